package identity

import (
	"context"
	"errors"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidPIN indicates the supplied PIN does not match the stored hash.
var ErrInvalidPIN = errors.New("invalid PIN")

// Service manages identity lifecycle. PINs are stored as bcrypt hashes and
// never in plaintext.
type Service struct {
	repo Repository
}

// NewService creates a new identity service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// RegisterInput captures a verified registration payload. The PIN has already
// been hashed by the time the registration completes.
type RegisterInput struct {
	Phone      string
	Name       string
	NationalID string
	PINHash    []byte
	AccountID  string
	FundKey    string
}

// Register creates a user with their first account attached and selected as
// the default.
func (s *Service) Register(ctx context.Context, input RegisterInput) (User, error) {
	user := User{
		Phone:            input.Phone,
		Name:             input.Name,
		NationalID:       input.NationalID,
		PINHash:          input.PINHash,
		DefaultAccountID: input.AccountID,
		Accounts:         map[string]string{input.AccountID: input.FundKey},
		CreatedAt:        time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return User{}, err
	}
	return user, nil
}

// FindByPhone fetches the user registered for the phone, if any.
func (s *Service) FindByPhone(ctx context.Context, phone string) (User, error) {
	return s.repo.FindByPhone(ctx, phone)
}

// VerifyPIN compares the supplied PIN against the user's stored hash.
func (s *Service) VerifyPIN(user User, pin string) error {
	if err := bcrypt.CompareHashAndPassword(user.PINHash, []byte(pin)); err != nil {
		return ErrInvalidPIN
	}
	return nil
}

// SetDefaultAccount switches the user's default account.
func (s *Service) SetDefaultAccount(ctx context.Context, phone, accountID string) error {
	return s.repo.SetDefaultAccount(ctx, phone, accountID)
}

// AttachAccount records an additional account against the user.
func (s *Service) AttachAccount(ctx context.Context, phone, accountID, fundKey string) error {
	return s.repo.AttachAccount(ctx, phone, accountID, fundKey)
}

// HashPIN derives the bcrypt hash stored in place of the plaintext PIN.
func HashPIN(pin string) ([]byte, error) {
	return bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
}
