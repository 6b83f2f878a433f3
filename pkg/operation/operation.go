// Package operation records the lifecycle of individual transfers. An
// Operation moves through a linear lifecycle:
//
//	pending → running → complete | failed.
//
// Each attempt made against the backend while running is counted, so a
// caller can see how many retries an upload needed.
package operation

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Status represents the lifecycle state of an operation.
type Status string

const (
	StatusPending  Status = "pending"
	StatusRunning  Status = "running"
	StatusComplete Status = "complete"
	StatusFailed   Status = "failed"
)

// Operation represents a single upload or download.
type Operation struct {
	ID          string    `json:"id"`
	Status      Status    `json:"status"`
	Source      string    `json:"source"`
	Destination string    `json:"destination"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// Attempts counts the backend calls made so far.
	Attempts int `json:"attempts"`

	// LastError is the most recent attempt failure, retried or not.
	LastError string `json:"last_error,omitempty"`

	// URI is populated once the operation reaches StatusComplete.
	URI string `json:"uri,omitempty"`

	// Error is non-empty if the operation reached StatusFailed.
	Error string `json:"error,omitempty"`
}

// Store is the interface for persisting and retrieving operations.
type Store interface {
	Create(source, destination string) (*Operation, error)
	Get(id string) (*Operation, error)
	MarkRunning(id string) error
	RecordAttempt(id string, err error) error
	MarkComplete(id string, uri string) error
	MarkFailed(id string, err error) error
}

// MemoryStore is a concurrency-safe in-memory Store implementation.
type MemoryStore struct {
	mu  sync.RWMutex
	ops map[string]*Operation
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{ops: make(map[string]*Operation)}
}

func (s *MemoryStore) Create(source, destination string) (*Operation, error) {
	now := time.Now()
	op := &Operation{
		ID:          uuid.New().String(),
		Status:      StatusPending,
		Source:      source,
		Destination: destination,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	s.mu.Lock()
	s.ops[op.ID] = op
	s.mu.Unlock()

	copy := *op
	return &copy, nil
}

func (s *MemoryStore) Get(id string) (*Operation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	op, ok := s.ops[id]
	if !ok {
		return nil, fmt.Errorf("operation %q not found", id)
	}
	// Return a copy to prevent callers from mutating internal state.
	copy := *op
	return &copy, nil
}

// List returns a copy of every operation, in no particular order.
func (s *MemoryStore) List() []Operation {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ops := make([]Operation, 0, len(s.ops))
	for _, op := range s.ops {
		ops = append(ops, *op)
	}
	return ops
}

func (s *MemoryStore) MarkRunning(id string) error {
	return s.update(id, func(op *Operation) {
		op.Status = StatusRunning
	})
}

func (s *MemoryStore) RecordAttempt(id string, err error) error {
	return s.update(id, func(op *Operation) {
		op.Attempts++
		if err != nil {
			op.LastError = err.Error()
		}
	})
}

func (s *MemoryStore) MarkComplete(id string, uri string) error {
	return s.update(id, func(op *Operation) {
		op.Status = StatusComplete
		op.URI = uri
	})
}

func (s *MemoryStore) MarkFailed(id string, err error) error {
	return s.update(id, func(op *Operation) {
		op.Status = StatusFailed
		op.Error = err.Error()
	})
}

func (s *MemoryStore) update(id string, fn func(*Operation)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	op, ok := s.ops[id]
	if !ok {
		return fmt.Errorf("operation %q not found", id)
	}
	fn(op)
	op.UpdatedAt = time.Now()
	return nil
}
