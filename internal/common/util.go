package common

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"math/big"
	"strconv"
)

// MakeRandHexString returns size random bytes encoded as hex (2*size chars).
func MakeRandHexString(size int) (string, error) {
	b := make([]byte, size)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// RandomNumericCode draws an integer uniformly from [min, max] using
// crypto/rand and returns its decimal representation.
func RandomNumericCode(min, max int64) (string, error) {
	if max < min {
		return "", fmt.Errorf("invalid code range [%d, %d]", min, max)
	}
	n, err := rand.Int(rand.Reader, big.NewInt(max-min+1))
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(n.Int64()+min, 10), nil
}

// NewResetCode returns a fresh 6-digit password reset code.
func NewResetCode() (string, error) {
	return RandomNumericCode(ResetCodeMin, ResetCodeMax)
}
