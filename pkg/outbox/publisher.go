package outbox

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/payment-platform/services/pkg/bus"
)

// Saver is the slice of Store the fallback publisher needs.
type Saver interface {
	Save(ctx context.Context, msg bus.Message) error
}

// FallbackPublisher tries the broker first and parks the event in the outbox
// when the broker is unreachable. The caller's local write already
// committed at that point, so the error is reported, not propagated as a
// failure of the operation.
type FallbackPublisher struct {
	pub   bus.Publisher
	store Saver
}

func NewFallbackPublisher(pub bus.Publisher, store Saver) *FallbackPublisher {
	return &FallbackPublisher{pub: pub, store: store}
}

func (p *FallbackPublisher) Publish(ctx context.Context, msg bus.Message) error {
	err := p.pub.Publish(ctx, msg)
	if err == nil {
		return nil
	}

	log.Printf("🔥 DUAL-WRITE GAP on %s: local state committed but publish failed: %v", msg.Topic, err)
	if serr := p.store.Save(ctx, msg); serr != nil {
		return fmt.Errorf("parking event for %s after publish failure: %w", msg.Topic, serr)
	}
	log.Printf("📥 Event parked in outbox for %s", msg.Topic)
	return nil
}

// Queue is the slice of Store the republisher needs.
type Queue interface {
	Unpublished(ctx context.Context, limit int) ([]Entry, error)
	MarkPublished(ctx context.Context, id int64) error
}

// Republisher drains the outbox on an interval. Replay keeps at-least-once
// semantics: a crash between publish and MarkPublished redelivers, and
// consumers already absorb duplicates.
type Republisher struct {
	store    Queue
	pub      bus.Publisher
	interval time.Duration
	batch    int
}

func NewRepublisher(store Queue, pub bus.Publisher, interval time.Duration) *Republisher {
	return &Republisher{store: store, pub: pub, interval: interval, batch: 100}
}

func (r *Republisher) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.drain(ctx)
		}
	}
}

func (r *Republisher) drain(ctx context.Context) {
	entries, err := r.store.Unpublished(ctx, r.batch)
	if err != nil {
		log.Printf("❌ Reading outbox failed: %v", err)
		return
	}

	for _, e := range entries {
		msg := bus.Message{Topic: e.Topic, Key: e.Key, Value: e.Payload}
		if err := r.pub.Publish(ctx, msg); err != nil {
			// Broker still down; keep order, try again next tick.
			return
		}
		if err := r.store.MarkPublished(ctx, e.ID); err != nil {
			log.Printf("❌ Marking outbox entry %d published failed: %v", e.ID, err)
			return
		}
		log.Printf("♻️  Replayed parked event %d to %s", e.ID, e.Topic)
	}
}
