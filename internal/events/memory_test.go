package events

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishFansOutToSubscribers(t *testing.T) {
	b := NewMemoryBus()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sub1, err := b.Subscribe(ctx, "orders")
	require.NoError(t, err)
	sub2, err := b.Subscribe(ctx, "orders")
	require.NoError(t, err)
	other, err := b.Subscribe(ctx, "fills")
	require.NoError(t, err)

	require.NoError(t, b.Publish(ctx, "orders", []byte("hello")))

	for _, sub := range []<-chan []byte{sub1, sub2} {
		select {
		case got := <-sub:
			assert.Equal(t, []byte("hello"), got)
		case <-time.After(time.Second):
			t.Fatal("subscriber did not receive payload")
		}
	}

	select {
	case <-other:
		t.Fatal("payload leaked across channels")
	default:
	}
}

func TestSubscribeEndsOnContextCancel(t *testing.T) {
	b := NewMemoryBus()
	ctx, cancel := context.WithCancel(context.Background())

	sub, err := b.Subscribe(ctx, "orders")
	require.NoError(t, err)
	cancel()

	select {
	case _, ok := <-sub:
		assert.False(t, ok, "channel should be closed")
	case <-time.After(time.Second):
		t.Fatal("channel not closed after cancel")
	}

	// Publishing after the subscriber is gone must not block or error.
	require.NoError(t, b.Publish(context.Background(), "orders", []byte("late")))
}

func TestStreamAppendAndRead(t *testing.T) {
	b := NewMemoryBus()
	ctx := context.Background()

	require.NoError(t, b.StreamAppend(ctx, "orders", []byte("a")))
	require.NoError(t, b.StreamAppend(ctx, "orders", []byte("b")))
	require.NoError(t, b.StreamAppend(ctx, "orders", []byte("c")))

	all, err := b.StreamRead(ctx, "orders", "0", 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "1", all[0].ID)
	assert.Equal(t, []byte("a"), all[0].Payload)
	assert.Equal(t, "3", all[2].ID)

	// Resume strictly after a previous position.
	rest, err := b.StreamRead(ctx, "orders", all[0].ID, 0)
	require.NoError(t, err)
	require.Len(t, rest, 2)
	assert.Equal(t, []byte("b"), rest[0].Payload)

	limited, err := b.StreamRead(ctx, "orders", "0", 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)

	caughtUp, err := b.StreamRead(ctx, "orders", "3", 0)
	require.NoError(t, err)
	assert.Empty(t, caughtUp)
}

func TestStreamReadUnknownStream(t *testing.T) {
	b := NewMemoryBus()

	msgs, err := b.StreamRead(context.Background(), "missing", "0", 0)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}
