package ledger

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrInsufficientFunds occurs when an account lacks available balance to
	// cover a requested debit. Balances never go negative.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrAccountNotFound indicates the referenced account does not exist.
	ErrAccountNotFound = errors.New("account not found")

	// ErrDuplicateAccount indicates the generated account identifier collides
	// with an existing one.
	ErrDuplicateAccount = errors.New("account already exists")

	// ErrInvalidAmount rejects zero or negative posting amounts.
	ErrInvalidAmount = errors.New("amount must be positive")
)

// Transaction journal entry types.
const (
	TxAccountCreated = "ACCOUNT_CREATED"
	TxDeposit        = "DEPOSIT"
	TxWithdraw       = "WITHDRAW"
	TxSeed           = "SEED"
)

// MaxJournalEntries bounds the per-account transaction journal. Older entries
// are silently discarded, not archived.
const MaxJournalEntries = 20

// Account is one fund position owned by a user, identified by a globally
// unique human-presentable identifier.
type Account struct {
	ID        string
	Phone     string
	FundKey   string
	Fund      string
	Name      string
	Balance   int64
	CreatedAt time.Time
}

// Transaction is an append-only journal entry scoped to one account.
type Transaction struct {
	Type      string
	Amount    int64
	CreatedAt time.Time
}

// Store defines the contract implemented by ledger backends.
type Store interface {
	CreateAccount(ctx context.Context, account Account) error
	Account(ctx context.Context, id string) (Account, error)
	// AccountsByPhone returns the phone's accounts in creation order; the
	// ordering backs the 1-based selection menus shown to the user.
	AccountsByPhone(ctx context.Context, phone string) ([]Account, error)
	Credit(ctx context.Context, id string, amount int64) (int64, error)
	Debit(ctx context.Context, id string, amount int64) (int64, error)
	Append(ctx context.Context, accountID string, tx Transaction) error
	// Recent returns up to n journal entries, most recent first.
	Recent(ctx context.Context, accountID string, n int) ([]Transaction, error)
}
