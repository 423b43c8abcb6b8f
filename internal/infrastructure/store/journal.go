package store

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Event is one entry in the client activity journal: a cart change or a
// checkout lifecycle step.
type Event struct {
	ID            string          `json:"id"`
	AggregateID   string          `json:"aggregate_id"`
	AggregateType string          `json:"aggregate_type"`
	EventType     string          `json:"event_type"`
	Data          json.RawMessage `json:"data"`
	Timestamp     time.Time       `json:"timestamp"`
	Version       int             `json:"version"`
}

// Publisher ships journal events to an external stream.
type Publisher interface {
	Publish(ctx context.Context, key string, event any) error
}

// MemoryJournal keeps events in memory and forwards each one to an optional
// publisher.
type MemoryJournal struct {
	mu        sync.RWMutex
	events    map[string][]Event // aggregateID -> events
	publisher Publisher
	now       func() time.Time
}

func NewMemoryJournal(publisher Publisher) *MemoryJournal {
	return &MemoryJournal{
		events:    make(map[string][]Event),
		publisher: publisher,
		now:       time.Now,
	}
}

// Append records an event and publishes it. The event stays recorded even
// when publishing fails; the publish error is returned to the caller.
func (j *MemoryJournal) Append(ctx context.Context, aggregateID, aggregateType, eventType string, data any) (*Event, error) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	j.mu.Lock()
	event := Event{
		ID:            uuid.New().String(),
		AggregateID:   aggregateID,
		AggregateType: aggregateType,
		EventType:     eventType,
		Data:          jsonData,
		Timestamp:     j.now(),
		Version:       len(j.events[aggregateID]) + 1,
	}
	j.events[aggregateID] = append(j.events[aggregateID], event)
	j.mu.Unlock()

	if j.publisher != nil {
		if err := j.publisher.Publish(ctx, aggregateID, event); err != nil {
			return &event, err
		}
	}

	return &event, nil
}

// Events returns a copy of the events recorded for an aggregate
func (j *MemoryJournal) Events(aggregateID string) []Event {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return append([]Event(nil), j.events[aggregateID]...)
}
