package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps records in process memory. Only correct for a single
// server instance.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]Record
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]Record)}
}

func (s *MemoryStore) Hit(_ context.Context, deviceID string, now time.Time, policy Policy) (Decision, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record := s.records[deviceID]
	record.DeviceID = deviceID
	next, decision := apply(record, now, policy)
	s.records[deviceID] = next
	return decision, nil
}

func (s *MemoryStore) Peek(_ context.Context, deviceID string) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.records[deviceID]
	if !ok {
		return Record{DeviceID: deviceID}, nil
	}
	return record, nil
}

func (s *MemoryStore) Reset(_ context.Context, deviceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.records, deviceID)
	return nil
}
