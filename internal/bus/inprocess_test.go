package bus_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/travelintel/dealengine/internal/bus"
)

func TestInProcessPublishSubscribe(t *testing.T) {
	b := bus.NewInProcess(nil)
	defer b.Close(context.Background())

	var mu sync.Mutex
	var received []string

	done := make(chan struct{})
	err := b.Subscribe(bus.TopicNormalized, "test-group", func(ctx context.Context, key string, payload []byte) error {
		mu.Lock()
		received = append(received, string(payload))
		mu.Unlock()
		if len(received) == 2 {
			close(done)
		}
		return nil
	})
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, b.Publish(ctx, bus.TopicNormalized, "deal_1", []byte("first")))
	require.NoError(t, b.Publish(ctx, bus.TopicNormalized, "deal_1", []byte("second")))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for messages")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"first", "second"}, received, "same-key messages must preserve publish order")
}

func TestInProcessHandlerErrorDoesNotBlock(t *testing.T) {
	b := bus.NewInProcess(nil)
	defer b.Close(context.Background())

	var count int
	var mu sync.Mutex
	done := make(chan struct{})

	err := b.Subscribe(bus.TopicScored, "g", func(ctx context.Context, key string, payload []byte) error {
		mu.Lock()
		count++
		n := count
		mu.Unlock()
		if n == 2 {
			close(done)
		}
		return assert.AnError
	})
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, b.Publish(ctx, bus.TopicScored, "k1", []byte("a")))
	require.NoError(t, b.Publish(ctx, bus.TopicScored, "k1", []byte("b")))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("handler error should not block subsequent messages")
	}
}
