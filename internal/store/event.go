package store

import (
	"database/sql"
	"encoding/json"
	"time"
)

// GestureEvent represents an edge-triggered event stored in the database.
type GestureEvent struct {
	ID        int64
	Name      string
	Data      json.RawMessage
	BodyID    uint32
	CreatedAt time.Time
}

// EventRepository provides access to recorded gesture events.
type EventRepository struct {
	db *sql.DB
}

// Events returns the gesture event repository for this store.
func (s *Store) Events() *EventRepository {
	return &EventRepository{db: s.db}
}

// Create inserts a new event and sets its ID.
func (r *EventRepository) Create(e *GestureEvent) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}

	data := e.Data
	if data == nil {
		data = json.RawMessage("{}")
	}

	result, err := r.db.Exec(
		`INSERT INTO gesture_events (name, data, body_id, created_at) VALUES (?, ?, ?, ?)`,
		e.Name, string(data), e.BodyID, e.CreatedAt,
	)
	if err != nil {
		return err
	}

	e.ID, err = result.LastInsertId()
	return err
}

// List retrieves the most recent events, newest first.
// A non-positive limit returns every event.
func (r *EventRepository) List(limit int) ([]*GestureEvent, error) {
	if limit <= 0 {
		limit = -1
	}

	rows, err := r.db.Query(
		`SELECT id, name, data, body_id, created_at
		 FROM gesture_events ORDER BY id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*GestureEvent
	for rows.Next() {
		e := &GestureEvent{}
		var data string

		if err := rows.Scan(&e.ID, &e.Name, &data, &e.BodyID, &e.CreatedAt); err != nil {
			return nil, err
		}

		e.Data = json.RawMessage(data)
		events = append(events, e)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return events, nil
}

// CountByName returns how many events of each name have been recorded.
func (r *EventRepository) CountByName() (map[string]int, error) {
	rows, err := r.db.Query(`SELECT name, COUNT(*) FROM gesture_events GROUP BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var name string
		var n int
		if err := rows.Scan(&name, &n); err != nil {
			return nil, err
		}
		counts[name] = n
	}

	return counts, rows.Err()
}
