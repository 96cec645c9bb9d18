package identity

import (
	"context"
	"errors"
	"testing"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	return NewService(NewMemoryRepository())
}

func registerTestUser(t *testing.T, svc *Service, phone string) User {
	t.Helper()
	pinHash, err := HashPIN("1234")
	if err != nil {
		t.Fatalf("hash pin: %v", err)
	}
	user, err := svc.Register(context.Background(), RegisterInput{
		Phone:      phone,
		Name:       "Jane Doe",
		NationalID: "12345678",
		PINHash:    pinHash,
		AccountID:  "GK00000001",
		FundKey:    "1",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	return user
}

func TestRegisterAndFind(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	phone := "+254700000001"

	user := registerTestUser(t, svc, phone)
	if user.DefaultAccountID != "GK00000001" {
		t.Fatalf("default account = %q, want first account", user.DefaultAccountID)
	}
	if user.Accounts["GK00000001"] != "1" {
		t.Fatalf("accounts map = %v, want first account attached", user.Accounts)
	}

	found, err := svc.FindByPhone(ctx, phone)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if found.Name != "Jane Doe" {
		t.Fatalf("name = %q", found.Name)
	}

	if _, err := svc.FindByPhone(ctx, "+254799999999"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("unknown phone err = %v, want ErrUserNotFound", err)
	}
}

func TestRegisterDuplicatePhone(t *testing.T) {
	svc := newTestService(t)
	phone := "+254700000001"
	registerTestUser(t, svc, phone)

	pinHash, _ := HashPIN("5678")
	_, err := svc.Register(context.Background(), RegisterInput{
		Phone: phone, Name: "Other", PINHash: pinHash, AccountID: "GK00000002", FundKey: "2",
	})
	if !errors.Is(err, ErrUserExists) {
		t.Fatalf("duplicate register err = %v, want ErrUserExists", err)
	}
}

func TestVerifyPIN(t *testing.T) {
	svc := newTestService(t)
	user := registerTestUser(t, svc, "+254700000001")

	if err := svc.VerifyPIN(user, "1234"); err != nil {
		t.Fatalf("correct PIN rejected: %v", err)
	}
	if err := svc.VerifyPIN(user, "9999"); !errors.Is(err, ErrInvalidPIN) {
		t.Fatalf("wrong PIN err = %v, want ErrInvalidPIN", err)
	}
}

func TestAttachAndSwitchDefault(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	phone := "+254700000001"
	registerTestUser(t, svc, phone)

	if err := svc.AttachAccount(ctx, phone, "GK00000002", "3"); err != nil {
		t.Fatalf("attach: %v", err)
	}
	if err := svc.SetDefaultAccount(ctx, phone, "GK00000002"); err != nil {
		t.Fatalf("set default: %v", err)
	}

	user, _ := svc.FindByPhone(ctx, phone)
	if len(user.Accounts) != 2 {
		t.Fatalf("accounts = %v, want 2 entries", user.Accounts)
	}
	if user.Accounts["GK00000002"] != "3" {
		t.Fatalf("attached fund key = %q, want 3", user.Accounts["GK00000002"])
	}
	if user.DefaultAccountID != "GK00000002" {
		t.Fatalf("default = %q, want GK00000002", user.DefaultAccountID)
	}

	if err := svc.AttachAccount(ctx, "+254799999999", "GK00000003", "1"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("attach to unknown user err = %v, want ErrUserNotFound", err)
	}
}
