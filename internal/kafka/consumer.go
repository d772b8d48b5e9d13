package kafka

import (
	"context"
	"hash/fnv"
	"log"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
)

// Handler returns nil once m is processed and its offset may be committed.
type Handler func(ctx context.Context, m kafka.Message) error

const (
	defaultAttempts = 3
	retryBackoff    = 200 * time.Millisecond
)

// Consumer reads one topic as part of a group. Messages with the same key go
// to the same worker, so events of one sale are handled in order.
type Consumer struct {
	r        *kafka.Reader
	workers  int
	Attempts int // handler tries per message before it is skipped
	Log      *log.Logger
}

// NewConsumer reads topic as part of group. Every API replica uses its own
// group when it needs to see all messages (fan-out) rather than share them.
func NewConsumer(brokers []string, group, topic string, workers int) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		GroupID:        group,
		Topic:          topic,
		MinBytes:       1,
		MaxBytes:       10e6,
		StartOffset:    kafka.LastOffset,
		CommitInterval: 0, // manual commit
	})
	if workers <= 0 {
		workers = 1
	}
	return &Consumer{r: r, workers: workers, Attempts: defaultAttempts}
}

func (c *Consumer) logf(format string, args ...any) {
	if c.Log != nil {
		c.Log.Printf(format, args...)
		return
	}
	log.Printf(format, args...)
}

// Start blocks until ctx is done or the reader fails.
func (c *Consumer) Start(ctx context.Context, h Handler) error {
	defer c.r.Close()

	shards := make([]chan kafka.Message, c.workers)
	var wg sync.WaitGroup
	for i := range shards {
		shards[i] = make(chan kafka.Message, 64)
		wg.Add(1)
		go func(in <-chan kafka.Message) {
			defer wg.Done()
			for m := range in {
				c.handle(ctx, h, m)
			}
		}(shards[i])
	}
	stop := func() {
		for _, s := range shards {
			close(s)
		}
		wg.Wait()
	}

	for {
		m, err := c.r.FetchMessage(ctx)
		if err != nil {
			stop()
			// kecilkan noise saat shutdown
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		select {
		case shards[shardOf(m.Key, len(shards))] <- m:
		case <-ctx.Done():
			stop()
			return nil
		}
	}
}

// handle retries h a few times. A message that keeps failing is logged and
// committed anyway so one bad event cannot stall the partition.
func (c *Consumer) handle(ctx context.Context, h Handler, m kafka.Message) {
	attempts := c.Attempts
	if attempts <= 0 {
		attempts = 1
	}
	var err error
	for i := 0; i < attempts; i++ {
		if err = h(ctx, m); err == nil {
			break
		}
		if ctx.Err() != nil {
			return
		}
		time.Sleep(retryBackoff * time.Duration(i+1))
	}
	if err != nil {
		c.logf("kafka %s: skip offset %d after %d attempts: %v", m.Topic, m.Offset, attempts, err)
	}
	if err := c.r.CommitMessages(ctx, m); err != nil && ctx.Err() == nil {
		c.logf("kafka %s: commit offset %d: %v", m.Topic, m.Offset, err)
	}
}

func shardOf(key []byte, n int) int {
	if n <= 1 || len(key) == 0 {
		return 0
	}
	h := fnv.New32a()
	_, _ = h.Write(key)
	return int(h.Sum32() % uint32(n))
}
