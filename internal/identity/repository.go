package identity

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrUserNotFound indicates no user is registered for the phone.
	ErrUserNotFound = errors.New("user not found")

	// ErrUserExists indicates the phone already has a registered user.
	ErrUserExists = errors.New("user exists")
)

// Repository persists users.
type Repository interface {
	Create(ctx context.Context, user User) error
	FindByPhone(ctx context.Context, phone string) (User, error)
	SetDefaultAccount(ctx context.Context, phone, accountID string) error
	AttachAccount(ctx context.Context, phone, accountID, fundKey string) error
}

// PostgresRepository implements Repository using PostgreSQL. Owned accounts
// are kept as a jsonb map of account ID to fund key.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a Postgres-backed identity repository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a new user keyed by phone.
func (r *PostgresRepository) Create(ctx context.Context, user User) error {
	accounts, err := json.Marshal(user.Accounts)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, `INSERT INTO users (phone, name, national_id, pin_hash, default_account_id, accounts, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		user.Phone, user.Name, user.NationalID, user.PINHash, user.DefaultAccountID, accounts, user.CreatedAt.UTC())
	return err
}

// FindByPhone fetches a user by phone number.
func (r *PostgresRepository) FindByPhone(ctx context.Context, phone string) (User, error) {
	row := r.db.QueryRow(ctx, `SELECT phone, name, national_id, pin_hash, default_account_id, accounts, created_at
        FROM users WHERE phone = $1`, phone)

	var user User
	var accounts []byte
	var createdAt time.Time
	err := row.Scan(&user.Phone, &user.Name, &user.NationalID, &user.PINHash,
		&user.DefaultAccountID, &accounts, &createdAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, ErrUserNotFound
	}
	if err != nil {
		return User{}, err
	}
	if len(accounts) > 0 {
		if err := json.Unmarshal(accounts, &user.Accounts); err != nil {
			return User{}, err
		}
	}
	user.CreatedAt = createdAt.UTC()
	return user, nil
}

// SetDefaultAccount updates the user's default account selection.
func (r *PostgresRepository) SetDefaultAccount(ctx context.Context, phone, accountID string) error {
	cmd, err := r.db.Exec(ctx, `UPDATE users SET default_account_id = $2 WHERE phone = $1`, phone, accountID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

// AttachAccount records a newly created account against the user.
func (r *PostgresRepository) AttachAccount(ctx context.Context, phone, accountID, fundKey string) error {
	cmd, err := r.db.Exec(ctx, `UPDATE users SET accounts = coalesce(accounts, '{}'::jsonb) || jsonb_build_object($2::text, $3::text)
        WHERE phone = $1`, phone, accountID, fundKey)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}
