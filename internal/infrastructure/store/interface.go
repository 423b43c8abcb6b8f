package store

import "context"

// Journal records client activity events.
type Journal interface {
	Append(ctx context.Context, aggregateID, aggregateType, eventType string, data any) (*Event, error)
}
