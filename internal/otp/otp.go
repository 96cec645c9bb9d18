package otp

import (
	"context"
	"crypto/rand"
	"errors"
	"time"
)

var (
	// ErrNotFound indicates no pending verification exists for the phone.
	ErrNotFound = errors.New("verification not found")

	// ErrExpired indicates the pending verification outlived its window. The
	// store deletes the entry before returning this.
	ErrExpired = errors.New("verification expired")
)

// Registration is the payload collected during the new-user dialog, parked
// until the phone is verified. The PIN is hashed before it is parked.
type Registration struct {
	FundKey    string `json:"fund_key"`
	Name       string `json:"name"`
	NationalID string `json:"national_id"`
	PINHash    []byte `json:"pin_hash"`
}

// Pending is a one-time-code verification session keyed by phone. At most one
// exists per phone.
type Pending struct {
	Code         string       `json:"code"`
	ExpiresAt    time.Time    `json:"expires_at"`
	Attempts     int          `json:"attempts"`
	Registration Registration `json:"registration"`
}

// Store holds pending verifications. Expiry is checked lazily on Get; no
// background sweep is required.
type Store interface {
	// Put stores the pending verification, replacing any outstanding one.
	Put(ctx context.Context, phone string, pending Pending) error
	Get(ctx context.Context, phone string) (Pending, error)
	// Update overwrites an existing entry, preserving its expiry window.
	Update(ctx context.Context, phone string, pending Pending) error
	Delete(ctx context.Context, phone string) error
}

// GenerateCode returns a random numeric code of the given length.
func GenerateCode(length int) (string, error) {
	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	digits := make([]byte, length)
	for i, b := range buf {
		digits[i] = '0' + b%10
	}
	return string(digits), nil
}
