// Package repo provides Repository implementations.
package repo

import (
	"context"
	"errors"
	"sync"

	"github.com/warp/ledger-engine/ledger"
)

// =============================================================================
// MEMORY REPOSITORY - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu      sync.RWMutex
	entries []ledger.Entry

	// FailSaves makes every Save fail, for persistence-failure tests.
	FailSaves bool

	saves int
}

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Load(_ context.Context) ([]ledger.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]ledger.Entry, len(m.entries))
	copy(out, m.entries)
	return out, nil
}

// Save replaces the stored entry set wholesale.
func (m *Memory) Save(_ context.Context, entries []ledger.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailSaves {
		return errors.New("save failed")
	}
	m.entries = make([]ledger.Entry, len(entries))
	copy(m.entries, entries)
	m.saves++
	return nil
}

// SaveCount returns how many successful saves have happened.
func (m *Memory) SaveCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.saves
}
