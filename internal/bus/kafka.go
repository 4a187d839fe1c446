package bus

import (
	"context"
	"sync"
	"time"

	"github.com/confluentinc/confluent-kafka-go/kafka"
	"go.uber.org/zap"

	"github.com/travelintel/dealengine/internal/obs"
)

// Kafka is the production MessageBus backend.
type Kafka struct {
	log       *obs.Logger
	producer  *kafka.Producer
	bootstrap string

	mu        sync.Mutex
	consumers []*kafka.Consumer
	wg        sync.WaitGroup
	cancels   []context.CancelFunc
}

func NewKafka(bootstrap string, log *obs.Logger) (*Kafka, error) {
	if log == nil {
		log = obs.NewNop()
	}
	producer, err := kafka.NewProducer(&kafka.ConfigMap{
		"bootstrap.servers": bootstrap,
		"acks":              "all",
		"retries":           5,
	})
	if err != nil {
		return nil, err
	}
	return &Kafka{log: log, producer: producer, bootstrap: bootstrap}, nil
}

func (k *Kafka) Publish(ctx context.Context, topic, key string, payload []byte) error {
	deliveryChan := make(chan kafka.Event, 1)
	err := k.producer.Produce(&kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &topic, Partition: kafka.PartitionAny},
		Key:            []byte(key),
		Value:          payload,
	}, deliveryChan)
	if err != nil {
		return err
	}

	select {
	case e := <-deliveryChan:
		m := e.(*kafka.Message)
		if m.TopicPartition.Error != nil {
			return m.TopicPartition.Error
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (k *Kafka) Subscribe(topic, group string, handler Handler) error {
	consumer, err := kafka.NewConsumer(&kafka.ConfigMap{
		"bootstrap.servers": k.bootstrap,
		"group.id":          group,
		"auto.offset.reset": "earliest",
	})
	if err != nil {
		return err
	}
	if err := consumer.Subscribe(topic, nil); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	k.mu.Lock()
	k.consumers = append(k.consumers, consumer)
	k.cancels = append(k.cancels, cancel)
	k.mu.Unlock()

	k.wg.Add(1)
	go func() {
		defer k.wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			default:
				msg, err := consumer.ReadMessage(200 * time.Millisecond)
				if err != nil {
					continue
				}
				// Handled inline so same-key messages keep their
				// partition order; a goroutine per message would
				// reorder them.
				if herr := handler(context.Background(), string(msg.Key), msg.Value); herr != nil {
					k.log.Warn("kafka handler error, offset advances",
						zap.String("topic", topic), zap.String("group", group), zap.Error(herr))
				}
			}
		}
	}()
	return nil
}

func (k *Kafka) Close(ctx context.Context) error {
	k.mu.Lock()
	for _, cancel := range k.cancels {
		cancel()
	}
	consumers := k.consumers
	k.mu.Unlock()

	done := make(chan struct{})
	go func() {
		k.wg.Wait()
		for _, c := range consumers {
			_ = c.Close()
		}
		k.producer.Flush(5000)
		k.producer.Close()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
