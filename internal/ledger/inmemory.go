package ledger

import (
	"context"
	"sync"
)

type inMemoryStore struct {
	mu       sync.RWMutex
	accounts map[string]Account
	byPhone  map[string][]string
	journal  map[string][]Transaction
}

// NewInMemory creates a concurrency-safe in-memory ledger store. It is the
// development and test backend; all state is lost on restart.
func NewInMemory() Store {
	return &inMemoryStore{
		accounts: make(map[string]Account),
		byPhone:  make(map[string][]string),
		journal:  make(map[string][]Transaction),
	}
}

func (s *inMemoryStore) CreateAccount(_ context.Context, account Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.accounts[account.ID]; exists {
		return ErrDuplicateAccount
	}
	s.accounts[account.ID] = account
	s.byPhone[account.Phone] = append(s.byPhone[account.Phone], account.ID)
	s.journal[account.ID] = nil
	return nil
}

func (s *inMemoryStore) Account(_ context.Context, id string) (Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	account, ok := s.accounts[id]
	if !ok {
		return Account{}, ErrAccountNotFound
	}
	return account, nil
}

func (s *inMemoryStore) AccountsByPhone(_ context.Context, phone string) ([]Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.byPhone[phone]
	accounts := make([]Account, 0, len(ids))
	for _, id := range ids {
		accounts = append(accounts, s.accounts[id])
	}
	return accounts, nil
}

func (s *inMemoryStore) Credit(_ context.Context, id string, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	account, ok := s.accounts[id]
	if !ok {
		return 0, ErrAccountNotFound
	}
	account.Balance += amount
	s.accounts[id] = account
	return account.Balance, nil
}

func (s *inMemoryStore) Debit(_ context.Context, id string, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	account, ok := s.accounts[id]
	if !ok {
		return 0, ErrAccountNotFound
	}
	if account.Balance < amount {
		return account.Balance, ErrInsufficientFunds
	}
	account.Balance -= amount
	s.accounts[id] = account
	return account.Balance, nil
}

func (s *inMemoryStore) Append(_ context.Context, accountID string, tx Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.accounts[accountID]; !ok {
		return ErrAccountNotFound
	}
	entries := append([]Transaction{tx}, s.journal[accountID]...)
	if len(entries) > MaxJournalEntries {
		entries = entries[:MaxJournalEntries]
	}
	s.journal[accountID] = entries
	return nil
}

func (s *inMemoryStore) Recent(_ context.Context, accountID string, n int) ([]Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.accounts[accountID]; !ok {
		return nil, ErrAccountNotFound
	}
	entries := s.journal[accountID]
	if n > len(entries) {
		n = len(entries)
	}
	out := make([]Transaction, n)
	copy(out, entries[:n])
	return out, nil
}
