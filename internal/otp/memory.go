package otp

import (
	"context"
	"sync"
	"time"
)

type memoryStore struct {
	mu      sync.Mutex
	pending map[string]Pending
}

// NewMemoryStore builds an in-memory verification store for development and
// tests.
func NewMemoryStore() Store {
	return &memoryStore{pending: make(map[string]Pending)}
}

func (s *memoryStore) Put(_ context.Context, phone string, pending Pending) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending[phone] = pending
	return nil
}

func (s *memoryStore) Get(_ context.Context, phone string) (Pending, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pending, ok := s.pending[phone]
	if !ok {
		return Pending{}, ErrNotFound
	}
	if time.Now().After(pending.ExpiresAt) {
		delete(s.pending, phone)
		return Pending{}, ErrExpired
	}
	return pending, nil
}

func (s *memoryStore) Update(_ context.Context, phone string, pending Pending) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.pending[phone]; !ok {
		return ErrNotFound
	}
	s.pending[phone] = pending
	return nil
}

func (s *memoryStore) Delete(_ context.Context, phone string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pending, phone)
	return nil
}
