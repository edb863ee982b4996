package bus

import (
	"context"
	"sync"
)

// MemoryBus is an in-process bus with broker semantics scaled down to one
// process: per-topic publish order within a group, independent delivery to
// each group, at-least-once friendly (callers may republish). It backs the
// local run mode and the pipeline tests.
type MemoryBus struct {
	mu     sync.Mutex
	groups map[string]map[string]*memberGroup

	inflight sync.WaitGroup
}

type memberGroup struct {
	ch chan Message
}

const memoryBufferSize = 1024

func NewMemoryBus() *MemoryBus {
	return &MemoryBus{groups: make(map[string]map[string]*memberGroup)}
}

func (b *MemoryBus) Publish(ctx context.Context, msg Message) error {
	// Snapshot under the lock, send outside it: a full group channel blocks
	// only this publisher, never publishers on other topics or groups.
	b.mu.Lock()
	members := make([]*memberGroup, 0, len(b.groups[msg.Topic]))
	for _, g := range b.groups[msg.Topic] {
		members = append(members, g)
	}
	b.inflight.Add(len(members))
	b.mu.Unlock()

	for _, g := range members {
		g.ch <- msg
	}
	return nil
}

func (b *MemoryBus) Subscribe(ctx context.Context, topic, group string, h Handler) error {
	b.mu.Lock()
	if b.groups[topic] == nil {
		b.groups[topic] = make(map[string]*memberGroup)
	}
	g, ok := b.groups[topic][group]
	if !ok {
		g = &memberGroup{ch: make(chan Message, memoryBufferSize)}
		b.groups[topic][group] = g
	}
	b.mu.Unlock()

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case msg := <-g.ch:
				_ = h(ctx, msg)
				b.inflight.Done()
			}
		}
	}()

	return nil
}

// WaitIdle blocks until every published message has been handled. Test-only
// convenience; the real broker has no such global quiescence point.
func (b *MemoryBus) WaitIdle() {
	b.inflight.Wait()
}
