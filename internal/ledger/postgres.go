package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements Store using PostgreSQL. Schema:
//
//	accounts(id text primary key, phone text, fund_key text, fund text,
//	         name text, balance bigint check (balance >= 0), created_at timestamptz)
//	account_transactions(seq bigserial primary key, account_id text references accounts(id),
//	         type text, amount bigint, created_at timestamptz)
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgres builds a Postgres-backed ledger store.
func NewPostgres(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// CreateAccount inserts a new account row.
func (s *PostgresStore) CreateAccount(ctx context.Context, account Account) error {
	_, err := s.db.Exec(ctx, `INSERT INTO accounts (id, phone, fund_key, fund, name, balance, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		account.ID, account.Phone, account.FundKey, account.Fund, account.Name, account.Balance, account.CreatedAt.UTC())
	return err
}

// Account fetches one account by identifier.
func (s *PostgresStore) Account(ctx context.Context, id string) (Account, error) {
	row := s.db.QueryRow(ctx, `SELECT id, phone, fund_key, fund, name, balance, created_at
        FROM accounts WHERE id = $1`, id)
	return scanAccount(row)
}

// AccountsByPhone lists a phone's accounts in creation order.
func (s *PostgresStore) AccountsByPhone(ctx context.Context, phone string) ([]Account, error) {
	rows, err := s.db.Query(ctx, `SELECT id, phone, fund_key, fund, name, balance, created_at
        FROM accounts WHERE phone = $1 ORDER BY created_at, id`, phone)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, account)
	}
	return accounts, rows.Err()
}

// Credit adds amount to the account balance and returns the new balance.
func (s *PostgresStore) Credit(ctx context.Context, id string, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}
	var balance int64
	err := s.db.QueryRow(ctx, `UPDATE accounts SET balance = balance + $2 WHERE id = $1 RETURNING balance`,
		id, amount).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrAccountNotFound
	}
	return balance, err
}

// Debit subtracts amount from the account balance, refusing to go negative.
func (s *PostgresStore) Debit(ctx context.Context, id string, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}
	var balance int64
	err := s.db.QueryRow(ctx, `UPDATE accounts SET balance = balance - $2
        WHERE id = $1 AND balance >= $2 RETURNING balance`, id, amount).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		// Distinguish a missing account from an underfunded one.
		var current int64
		lookupErr := s.db.QueryRow(ctx, `SELECT balance FROM accounts WHERE id = $1`, id).Scan(&current)
		if errors.Is(lookupErr, pgx.ErrNoRows) {
			return 0, ErrAccountNotFound
		}
		if lookupErr != nil {
			return 0, lookupErr
		}
		return current, ErrInsufficientFunds
	}
	return balance, err
}

// Append records a journal entry and trims the account's journal to the
// retention bound.
func (s *PostgresStore) Append(ctx context.Context, accountID string, tx Transaction) error {
	dbtx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer dbtx.Rollback(ctx)

	createdAt := tx.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	if _, err := dbtx.Exec(ctx, `INSERT INTO account_transactions (account_id, type, amount, created_at)
        VALUES ($1, $2, $3, $4)`, accountID, tx.Type, tx.Amount, createdAt.UTC()); err != nil {
		return err
	}

	if _, err := dbtx.Exec(ctx, `DELETE FROM account_transactions WHERE account_id = $1 AND seq NOT IN (
        SELECT seq FROM account_transactions WHERE account_id = $1 ORDER BY seq DESC LIMIT $2)`,
		accountID, MaxJournalEntries); err != nil {
		return err
	}

	return dbtx.Commit(ctx)
}

// Recent returns up to n journal entries, most recent first.
func (s *PostgresStore) Recent(ctx context.Context, accountID string, n int) ([]Transaction, error) {
	rows, err := s.db.Query(ctx, `SELECT type, amount, created_at FROM account_transactions
        WHERE account_id = $1 ORDER BY seq DESC LIMIT $2`, accountID, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Transaction
	for rows.Next() {
		var tx Transaction
		var createdAt time.Time
		if err := rows.Scan(&tx.Type, &tx.Amount, &createdAt); err != nil {
			return nil, err
		}
		tx.CreatedAt = createdAt.UTC()
		entries = append(entries, tx)
	}
	return entries, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (Account, error) {
	var account Account
	var createdAt time.Time
	err := row.Scan(&account.ID, &account.Phone, &account.FundKey, &account.Fund,
		&account.Name, &account.Balance, &createdAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Account{}, ErrAccountNotFound
	}
	if err != nil {
		return Account{}, err
	}
	account.CreatedAt = createdAt.UTC()
	return account, nil
}
