package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestUser_HasResetPending(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	code := "123456"
	later := now.Add(time.Hour)
	earlier := now.Add(-time.Second)

	assert.False(t, (&User{}).HasResetPending(now))
	assert.False(t, (&User{ResetCode: &code}).HasResetPending(now))
	assert.True(t, (&User{ResetCode: &code, ResetExpiresAt: &later}).HasResetPending(now))
	assert.False(t, (&User{ResetCode: &code, ResetExpiresAt: &earlier}).HasResetPending(now))
	assert.False(t, (&User{ResetCode: &code, ResetExpiresAt: &now}).HasResetPending(now), "expiry instant is exclusive")
}

func TestUser_ProfileOmitsSecrets(t *testing.T) {
	code := "654321"
	u := &User{ID: "u1", Name: "A", Email: "a@x.com", PasswordHash: "hash", ResetCode: &code}
	p := u.Profile()
	assert.Equal(t, Profile{ID: "u1", Name: "A", Email: "a@x.com"}, p)
}
