// Package outbox is the fallback side of the dual-write gap: when the local
// commit succeeded but the broker refused the event, the event is parked in
// the service's own store and replayed by a background republisher. The gap
// is still reported loudly; the outbox just makes sure it heals.
package outbox

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/payment-platform/services/pkg/bus"
)

// Entry is one parked event awaiting republication.
type Entry struct {
	ID        int64
	Topic     string
	Key       []byte
	Payload   []byte
	CreatedAt time.Time
}

// Store persists parked events in the owning service's database.
type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

func (s *Store) Save(ctx context.Context, msg bus.Message) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO event_outbox (topic, key, payload, created_at)
		VALUES ($1, $2, $3, NOW())
	`, msg.Topic, msg.Key, msg.Value)
	return err
}

// Unpublished returns the oldest parked events, oldest first so replay
// preserves publish order per topic.
func (s *Store) Unpublished(ctx context.Context, limit int) ([]Entry, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, topic, key, payload, created_at
		FROM event_outbox
		WHERE published_at IS NULL
		ORDER BY id
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.Topic, &e.Key, &e.Payload, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *Store) MarkPublished(ctx context.Context, id int64) error {
	_, err := s.db.Exec(ctx, `
		UPDATE event_outbox SET published_at = NOW()
		WHERE id = $1 AND published_at IS NULL
	`, id)
	return err
}
