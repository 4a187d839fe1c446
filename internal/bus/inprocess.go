package bus

import (
	"context"
	"hash/fnv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/travelintel/dealengine/internal/obs"
)

const partitionCount = 8

type message struct {
	key     string
	payload []byte
}

// subscription is one (topic, group) registration. Messages are routed
// into partitionCount channels by key hash so that same-key messages
// are processed in publish order by a single goroutine, while
// different keys process concurrently.
type subscription struct {
	handler    Handler
	partitions []chan message
	wg         sync.WaitGroup
}

// InProcess is the local MessageBus substitute permitted when no
// external broker is configured. It preserves key-ordering and
// at-least-once delivery within a group without requiring Kafka for
// local operation.
type InProcess struct {
	log *obs.Logger

	mu   sync.Mutex
	subs map[string]map[string]*subscription // topic -> group -> subscription

	closing bool
}

func NewInProcess(log *obs.Logger) *InProcess {
	if log == nil {
		log = obs.NewNop()
	}
	return &InProcess{
		log:  log,
		subs: make(map[string]map[string]*subscription),
	}
}

func partitionOf(key string) int {
	if key == "" {
		return 0
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return int(h.Sum32()) % partitionCount
}

func (b *InProcess) Publish(ctx context.Context, topic, key string, payload []byte) error {
	b.mu.Lock()
	groups := b.subs[topic]
	closing := b.closing
	b.mu.Unlock()

	if closing {
		return nil
	}

	p := partitionOf(key)
	for _, sub := range groups {
		select {
		case sub.partitions[p] <- message{key: key, payload: payload}:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (b *InProcess) Subscribe(topic, group string, handler Handler) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.subs[topic]; !ok {
		b.subs[topic] = make(map[string]*subscription)
	}
	if _, exists := b.subs[topic][group]; exists {
		// Idempotent creation: re-subscribing replaces the handler but
		// reuses the running partitions.
		b.subs[topic][group].handler = handler
		return nil
	}

	sub := &subscription{handler: handler}
	sub.partitions = make([]chan message, partitionCount)
	for i := range sub.partitions {
		ch := make(chan message, 256)
		sub.partitions[i] = ch
		sub.wg.Add(1)
		go b.consumePartition(topic, group, sub, ch)
	}
	b.subs[topic][group] = sub
	return nil
}

func (b *InProcess) consumePartition(topic, group string, sub *subscription, ch chan message) {
	defer sub.wg.Done()
	for msg := range ch {
		if err := sub.handler(context.Background(), msg.key, msg.payload); err != nil {
			b.log.Warn("bus handler error, offset advances",
				zap.String("topic", topic), zap.String("group", group), zap.Error(err))
		}
	}
}

func (b *InProcess) Close(ctx context.Context) error {
	b.mu.Lock()
	if b.closing {
		b.mu.Unlock()
		return nil
	}
	b.closing = true
	groups := b.subs
	b.mu.Unlock()

	done := make(chan struct{})
	go func() {
		for _, subs := range groups {
			for _, sub := range subs {
				for _, ch := range sub.partitions {
					close(ch)
				}
				sub.wg.Wait()
			}
		}
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(10 * time.Second):
		return nil
	}
}
