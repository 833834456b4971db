package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophnotes/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

var t0 = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func fixedClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}

func TestIssueAndVerify_Success(t *testing.T) {
	t.Parallel()

	iss := NewTokenIssuer("super-secret", 7*24*time.Hour).WithClock(fixedClock(t0))

	tok, err := iss.Issue(Identity{UserID: "user-123", Email: "a@x.io"})
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}

	id, err := iss.Verify(tok)
	if err != nil {
		t.Fatalf("Verify error: %v", err)
	}
	if id.UserID != "user-123" || id.Email != "a@x.io" {
		t.Fatalf("identity mismatch: %+v", id)
	}
}

func TestIssue_Deterministic(t *testing.T) {
	t.Parallel()

	iss := NewTokenIssuer("s", time.Hour).WithClock(fixedClock(t0))
	a, _ := iss.Issue(Identity{UserID: "u1", Email: "e"})
	b, _ := iss.Issue(Identity{UserID: "u1", Email: "e"})
	if a != b {
		t.Fatalf("same identity and clock should give same token")
	}
}

func TestVerify_Expired(t *testing.T) {
	t.Parallel()

	validity := 7 * 24 * time.Hour
	tok, err := NewTokenIssuer("secret", validity).WithClock(fixedClock(t0)).
		Issue(Identity{UserID: "u1", Email: "e"})
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}

	// one second before expiry is still fine
	_, err = NewTokenIssuer("secret", validity).WithClock(fixedClock(t0.Add(validity - time.Second))).Verify(tok)
	if err != nil {
		t.Fatalf("expected valid token, got %v", err)
	}

	for _, at := range []time.Time{t0.Add(validity), t0.Add(validity + time.Minute)} {
		_, err = NewTokenIssuer("secret", validity).WithClock(fixedClock(at)).Verify(tok)
		if !errors.Is(err, common.ErrTokenExpired) {
			t.Fatalf("at %v: expected common.ErrTokenExpired, got %v", at, err)
		}
	}
}

func TestVerify_WrongSecret(t *testing.T) {
	t.Parallel()

	tok, err := NewTokenIssuer("right", time.Hour).Issue(Identity{UserID: "u1"})
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}

	_, err = NewTokenIssuer("wrong", time.Hour).Verify(tok)
	if !errors.Is(err, common.ErrInvalidToken) {
		t.Fatalf("expected common.ErrInvalidToken, got %v", err)
	}
}

func TestVerify_TamperedPayload(t *testing.T) {
	t.Parallel()

	iss := NewTokenIssuer("secret", time.Hour)
	tok, _ := iss.Issue(Identity{UserID: "u1"})

	parts := strings.Split(tok, ".")
	if len(parts) != 3 {
		t.Fatalf("unexpected token shape: %q", tok)
	}
	other, _ := iss.Issue(Identity{UserID: "u2"})
	parts[1] = strings.Split(other, ".")[1]

	_, err := iss.Verify(strings.Join(parts, "."))
	if !errors.Is(err, common.ErrInvalidToken) {
		t.Fatalf("expected common.ErrInvalidToken, got %v", err)
	}
}

func TestVerify_Garbage(t *testing.T) {
	t.Parallel()

	iss := NewTokenIssuer("secret", time.Hour)
	for _, s := range []string{"", "abc", "a.b.c"} {
		if _, err := iss.Verify(s); !errors.Is(err, common.ErrInvalidToken) {
			t.Fatalf("%q: expected common.ErrInvalidToken, got %v", s, err)
		}
	}
}

func TestVerify_RejectsOtherAlgorithms(t *testing.T) {
	t.Parallel()

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
		UserID:           "u1",
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	_, err = NewTokenIssuer("secret", time.Hour).Verify(tok)
	if !errors.Is(err, common.ErrInvalidToken) {
		t.Fatalf("expected common.ErrInvalidToken, got %v", err)
	}
}

func TestVerify_MissingExpiry(t *testing.T) {
	t.Parallel()

	tok, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{UserID: "u1"}).SignedString([]byte("secret"))
	_, err := NewTokenIssuer("secret", time.Hour).Verify(tok)
	if !errors.Is(err, common.ErrInvalidToken) {
		t.Fatalf("expected common.ErrInvalidToken, got %v", err)
	}
}
