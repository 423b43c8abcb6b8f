package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
)

// PostgresJournal stores activity events in PostgreSQL next to the client
// state and forwards each one to an optional publisher.
type PostgresJournal struct {
	db        *sql.DB
	namespace string
	publisher Publisher
	now       func() time.Time
}

func NewPostgresJournal(db *sql.DB, namespace string, publisher Publisher) *PostgresJournal {
	if namespace == "" {
		namespace = "default"
	}
	return &PostgresJournal{
		db:        db,
		namespace: namespace,
		publisher: publisher,
		now:       time.Now,
	}
}

// EnsureSchema creates the storefront_events table if it does not exist.
func (j *PostgresJournal) EnsureSchema(ctx context.Context) error {
	_, err := j.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS storefront_events (
			id             UUID PRIMARY KEY,
			namespace      TEXT NOT NULL,
			aggregate_id   TEXT NOT NULL,
			aggregate_type TEXT NOT NULL,
			event_type     TEXT NOT NULL,
			data           JSONB NOT NULL,
			version        INT NOT NULL,
			created_at     TIMESTAMPTZ NOT NULL,
			UNIQUE (namespace, aggregate_id, version)
		)`)
	return err
}

// Append stores an event and publishes it. The version is assigned in the
// insert so concurrent writers to one aggregate conflict on the unique key
// instead of sharing a version.
func (j *PostgresJournal) Append(ctx context.Context, aggregateID, aggregateType, eventType string, data any) (*Event, error) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	event := Event{
		ID:            uuid.New().String(),
		AggregateID:   aggregateID,
		AggregateType: aggregateType,
		EventType:     eventType,
		Data:          jsonData,
		Timestamp:     j.now().UTC(),
	}

	err = j.db.QueryRowContext(ctx,
		`INSERT INTO storefront_events (id, namespace, aggregate_id, aggregate_type, event_type, data, version, created_at)
		 SELECT $1, $2, $3, $4, $5, $6, COALESCE(MAX(version), 0) + 1, $7
		 FROM storefront_events
		 WHERE namespace = $2 AND aggregate_id = $3
		 RETURNING version`,
		event.ID,
		j.namespace,
		event.AggregateID,
		event.AggregateType,
		event.EventType,
		[]byte(event.Data),
		event.Timestamp,
	).Scan(&event.Version)
	if err != nil {
		return nil, fmt.Errorf("append %s: %w", eventType, err)
	}

	if j.publisher != nil {
		if err := j.publisher.Publish(ctx, aggregateID, event); err != nil {
			return &event, err
		}
	}

	return &event, nil
}

// Events returns the events recorded for an aggregate, oldest first.
func (j *PostgresJournal) Events(ctx context.Context, aggregateID string) ([]Event, error) {
	rows, err := j.db.QueryContext(ctx,
		`SELECT id, aggregate_id, aggregate_type, event_type, data, version, created_at
		 FROM storefront_events
		 WHERE namespace = $1 AND aggregate_id = $2
		 ORDER BY version ASC`,
		j.namespace,
		aggregateID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var e Event
		var data []byte
		if err := rows.Scan(&e.ID, &e.AggregateID, &e.AggregateType, &e.EventType, &data, &e.Version, &e.Timestamp); err != nil {
			return nil, err
		}
		e.Data = data
		events = append(events, e)
	}
	return events, rows.Err()
}
