// Package events provides an in-process implementation of domain.EventBus
// used by tests and local, Redis-less deployments.
package events

import (
	"context"
	"strconv"
	"sync"

	"github.com/probmarket/ledger/internal/domain"
)

// subscriberBuffer is the per-subscriber channel capacity. A subscriber that
// falls this far behind loses messages on the ephemeral path; the durable
// stream path retains them.
const subscriberBuffer = 128

// MemoryBus is a process-local domain.EventBus. Publish fans out to
// subscribers; StreamAppend retains messages in an in-memory stream that can
// be re-read from any position.
type MemoryBus struct {
	mu      sync.RWMutex
	subs    map[string][]chan []byte
	streams map[string][]domain.StreamMessage
}

// NewMemoryBus creates an empty MemoryBus.
func NewMemoryBus() *MemoryBus {
	return &MemoryBus{
		subs:    make(map[string][]chan []byte),
		streams: make(map[string][]domain.StreamMessage),
	}
}

// Publish delivers payload to all current subscribers of channel. Slow
// subscribers are skipped rather than blocking the publisher.
func (b *MemoryBus) Publish(_ context.Context, channel string, payload []byte) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subs[channel] {
		select {
		case ch <- payload:
		default:
		}
	}
	return nil
}

// Subscribe returns a channel of payloads published to the given channel.
// The subscription ends when ctx is cancelled.
func (b *MemoryBus) Subscribe(ctx context.Context, channel string) (<-chan []byte, error) {
	ch := make(chan []byte, subscriberBuffer)

	b.mu.Lock()
	b.subs[channel] = append(b.subs[channel], ch)
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		subs := b.subs[channel]
		for i, c := range subs {
			if c == ch {
				b.subs[channel] = append(subs[:i], subs[i+1:]...)
				break
			}
		}
		b.mu.Unlock()
		close(ch)
	}()

	return ch, nil
}

// StreamAppend appends payload to the named stream with a monotonically
// increasing ID.
func (b *MemoryBus) StreamAppend(_ context.Context, stream string, payload []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := strconv.Itoa(len(b.streams[stream]) + 1)
	b.streams[stream] = append(b.streams[stream], domain.StreamMessage{ID: id, Payload: payload})
	return nil
}

// StreamRead returns up to count messages with IDs strictly after lastID.
// Use "0" to read from the beginning.
func (b *MemoryBus) StreamRead(_ context.Context, stream string, lastID string, count int) ([]domain.StreamMessage, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	last, err := strconv.Atoi(lastID)
	if err != nil {
		last = 0
	}

	msgs := b.streams[stream]
	if last >= len(msgs) {
		return nil, nil
	}
	out := msgs[last:]
	if count > 0 && count < len(out) {
		out = out[:count]
	}
	res := make([]domain.StreamMessage, len(out))
	copy(res, out)
	return res, nil
}

// Compile-time interface check.
var _ domain.EventBus = (*MemoryBus)(nil)
