package otp

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newRedisTestStore(t *testing.T) Store {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStore(client)
}

func TestRedisStoreRoundtrip(t *testing.T) {
	store := newRedisTestStore(t)
	ctx := context.Background()
	phone := "+254700000001"

	pending := Pending{
		Code:      "482913",
		ExpiresAt: time.Now().Add(time.Minute),
		Attempts:  1,
		Registration: Registration{
			FundKey:    "2",
			Name:       "Jane Doe",
			NationalID: "12345678",
			PINHash:    []byte("$2a$10$fakehash"),
		},
	}
	if err := store.Put(ctx, phone, pending); err != nil {
		t.Fatalf("put: %v", err)
	}

	got, err := store.Get(ctx, phone)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Code != pending.Code || got.Attempts != 1 {
		t.Fatalf("roundtrip mismatch: %+v", got)
	}
	if got.Registration.FundKey != "2" || got.Registration.Name != "Jane Doe" {
		t.Fatalf("registration payload lost: %+v", got.Registration)
	}
	if string(got.Registration.PINHash) != "$2a$10$fakehash" {
		t.Fatalf("pin hash did not survive serialization")
	}
}

func TestRedisStoreMissing(t *testing.T) {
	store := newRedisTestStore(t)
	ctx := context.Background()

	if _, err := store.Get(ctx, "+254700000001"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("get missing err = %v, want ErrNotFound", err)
	}
	if err := store.Update(ctx, "+254700000001", Pending{}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("update missing err = %v, want ErrNotFound", err)
	}
	if err := store.Delete(ctx, "+254700000001"); err != nil {
		t.Fatalf("delete missing should be a no-op, got %v", err)
	}
}

// An entry past its logical expiry but still present in Redis reports
// ErrExpired, not ErrNotFound.
func TestRedisStoreLogicalExpiry(t *testing.T) {
	store := newRedisTestStore(t)
	ctx := context.Background()
	phone := "+254700000001"

	pending := Pending{Code: "482913", ExpiresAt: time.Now().Add(-time.Second)}
	if err := store.Put(ctx, phone, pending); err != nil {
		t.Fatalf("put: %v", err)
	}

	if _, err := store.Get(ctx, phone); !errors.Is(err, ErrExpired) {
		t.Fatalf("expired get err = %v, want ErrExpired", err)
	}
	if _, err := store.Get(ctx, phone); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second get err = %v, want ErrNotFound", err)
	}
}

func TestRedisStoreUpdateAttempts(t *testing.T) {
	store := newRedisTestStore(t)
	ctx := context.Background()
	phone := "+254700000001"

	pending := Pending{Code: "482913", ExpiresAt: time.Now().Add(time.Minute)}
	if err := store.Put(ctx, phone, pending); err != nil {
		t.Fatalf("put: %v", err)
	}

	pending.Attempts = 2
	if err := store.Update(ctx, phone, pending); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, err := store.Get(ctx, phone)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Attempts != 2 {
		t.Fatalf("attempts = %d, want 2", got.Attempts)
	}
}
