package auth

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/dmitrijs2005/gophnotes/internal/common"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/semaphore"
)

// DefaultBcryptCost is used when a configured cost is out of bcrypt range.
const DefaultBcryptCost = 10

// Hasher runs bcrypt on a bounded pool of worker goroutines so that CPU-heavy
// hashing never runs on more than `workers` goroutines at once. Callers wait
// on their context; a cancelled caller gets ctx.Err() while the worker still
// finishes and releases its slot.
type Hasher struct {
	cost int
	sem  *semaphore.Weighted

	dummyOnce sync.Once
	dummy     []byte
}

// NewHasher builds a Hasher. workers <= 0 means runtime.NumCPU().
func NewHasher(cost, workers int) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultBcryptCost
	}
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Hasher{cost: cost, sem: semaphore.NewWeighted(int64(workers))}
}

func (h *Hasher) run(ctx context.Context, fn func() error) error {
	if err := h.sem.Acquire(ctx, 1); err != nil {
		return err
	}

	done := make(chan error, 1)
	go func() {
		defer h.sem.Release(1)
		done <- fn()
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Hash returns the bcrypt hash of password. Passwords over bcrypt's 72 byte
// limit yield common.ErrorValidation.
func (h *Hasher) Hash(ctx context.Context, password string) (string, error) {
	var out []byte
	err := h.run(ctx, func() error {
		b, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
		out = b
		return err
	})
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return "", fmt.Errorf("%w: %v", common.ErrorValidation, err)
	}
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// Compare reports whether password matches hash. A mismatch is not an error.
func (h *Hasher) Compare(ctx context.Context, hash, password string) (bool, error) {
	err := h.run(ctx, func() error {
		return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	})
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, err
	}
}

// CompareDummy burns the same work as a real Compare against a throwaway
// hash. Login calls it for unknown emails so response time does not reveal
// whether an account exists.
func (h *Hasher) CompareDummy(ctx context.Context, password string) {
	h.dummyOnce.Do(func() {
		secret, err := common.MakeRandHexString(16)
		if err != nil {
			secret = "gophnotes-dummy-password"
		}
		h.dummy, _ = bcrypt.GenerateFromPassword([]byte(secret), h.cost)
	})
	_, _ = h.Compare(ctx, string(h.dummy), password)
}
