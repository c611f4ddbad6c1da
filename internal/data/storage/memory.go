package storage

import (
	"context"
	"sync"

	"github.com/songzhibin97/riskladder/internal/risk"
)

// MemoryStore holds the encoded document in memory, for paper trading and tests
type MemoryStore struct {
	mu   sync.Mutex
	data []byte
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Load(ctx context.Context) (*risk.RiskState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.data == nil {
		return nil, risk.ErrStateNotFound
	}
	return risk.DecodeState(s.data)
}

func (s *MemoryStore) Save(ctx context.Context, state *risk.RiskState) error {
	data, err := risk.EncodeState(state)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.data = data
	s.mu.Unlock()
	return nil
}

// SetRaw replaces the stored document as is
func (s *MemoryStore) SetRaw(data []byte) {
	s.mu.Lock()
	s.data = append([]byte(nil), data...)
	s.mu.Unlock()
}

func (s *MemoryStore) Close() error {
	return nil
}
