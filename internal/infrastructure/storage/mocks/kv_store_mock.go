package mocks

import (
	"context"
	"sync"

	"github.com/example/caprieux-storefront/internal/infrastructure/storage"
)

// MockKeyValueStore is an in-memory KeyValueStore that records calls and can
// be told to fail.
type MockKeyValueStore struct {
	mu     sync.RWMutex
	values map[string][]byte

	// For tracking calls in tests
	PutCalls    []PutCall
	DeleteCalls []string
	GetErr      error
	PutErr      error
	DeleteErr   error
}

// PutCall records parameters passed to Put
type PutCall struct {
	Key   string
	Value []byte
}

func NewMockKeyValueStore() *MockKeyValueStore {
	return &MockKeyValueStore{
		values:   make(map[string][]byte),
		PutCalls: make([]PutCall, 0),
	}
}

func (m *MockKeyValueStore) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.GetErr != nil {
		return nil, m.GetErr
	}
	value, ok := m.values[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return append([]byte(nil), value...), nil
}

func (m *MockKeyValueStore) Put(ctx context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.PutCalls = append(m.PutCalls, PutCall{Key: key, Value: append([]byte(nil), value...)})
	if m.PutErr != nil {
		return m.PutErr
	}
	m.values[key] = append([]byte(nil), value...)
	return nil
}

func (m *MockKeyValueStore) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.DeleteCalls = append(m.DeleteCalls, key)
	if m.DeleteErr != nil {
		return m.DeleteErr
	}
	delete(m.values, key)
	return nil
}

// SetValue seeds a value directly for testing
func (m *MockKeyValueStore) SetValue(key string, value []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = append([]byte(nil), value...)
}

// Value returns the stored value and whether it exists
func (m *MockKeyValueStore) Value(key string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok
}

// Reset clears all values, recorded calls and injected errors
func (m *MockKeyValueStore) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values = make(map[string][]byte)
	m.PutCalls = make([]PutCall, 0)
	m.DeleteCalls = nil
	m.GetErr = nil
	m.PutErr = nil
	m.DeleteErr = nil
}
