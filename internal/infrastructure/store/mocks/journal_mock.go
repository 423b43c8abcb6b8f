package mocks

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/example/caprieux-storefront/internal/infrastructure/store"
	"github.com/google/uuid"
)

// MockJournal is a mock implementation of store.Journal for testing
type MockJournal struct {
	mu      sync.Mutex
	version map[string]int

	// For tracking calls in tests
	AppendCalls []AppendCall
	AppendErr   error
}

// AppendCall records parameters passed to Append
type AppendCall struct {
	AggregateID   string
	AggregateType string
	EventType     string
	Data          any
}

func NewMockJournal() *MockJournal {
	return &MockJournal{
		version:     make(map[string]int),
		AppendCalls: make([]AppendCall, 0),
	}
}

func (m *MockJournal) Append(ctx context.Context, aggregateID, aggregateType, eventType string, data any) (*store.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.AppendCalls = append(m.AppendCalls, AppendCall{
		AggregateID:   aggregateID,
		AggregateType: aggregateType,
		EventType:     eventType,
		Data:          data,
	})

	if m.AppendErr != nil {
		return nil, m.AppendErr
	}

	jsonData, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	m.version[aggregateID]++
	return &store.Event{
		ID:            uuid.New().String(),
		AggregateID:   aggregateID,
		AggregateType: aggregateType,
		EventType:     eventType,
		Data:          jsonData,
		Timestamp:     time.Now(),
		Version:       m.version[aggregateID],
	}, nil
}

// EventTypes returns the recorded event types in call order
func (m *MockJournal) EventTypes() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	types := make([]string, 0, len(m.AppendCalls))
	for _, call := range m.AppendCalls {
		types = append(types, call.EventType)
	}
	return types
}

// Reset clears recorded calls and injected errors
func (m *MockJournal) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.version = make(map[string]int)
	m.AppendCalls = make([]AppendCall, 0)
	m.AppendErr = nil
}
