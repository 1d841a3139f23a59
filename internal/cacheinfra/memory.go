package cacheinfra

import (
	"context"
	"strings"
)

// memoryService stores entries in a plain map. It has no locking: it backs
// a single service instance used by one flow of control at a time.
type memoryService struct {
	entries map[string]any
}

// NewMemoryService creates an empty, unsynchronized map-backed cache service.
func NewMemoryService() *memoryService {
	return &memoryService{entries: make(map[string]any)}
}

func (m *memoryService) GetOrFetch(ctx context.Context, key string, fetchFn func(context.Context) (any, error)) (any, error) {
	if value, ok := m.entries[key]; ok {
		return value, nil
	}
	if fetchFn == nil {
		return nil, errNilFetch
	}

	value, err := fetchFn(ctx)
	if err != nil {
		return nil, err
	}
	m.entries[key] = value
	return value, nil
}

func (m *memoryService) Delete(ctx context.Context, key string) error {
	delete(m.entries, key)
	return nil
}

func (m *memoryService) DeleteByPrefix(ctx context.Context, prefix string) error {
	for key := range m.entries {
		if strings.HasPrefix(key, prefix) {
			delete(m.entries, key)
		}
	}
	return nil
}

// Size returns the number of stored entries.
func (m *memoryService) Size() int {
	return len(m.entries)
}
