package events

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"
)

const (
	DefaultMaxAge         = 10 * time.Minute
	DefaultMaxEntries     = 1000
	DefaultKeepOnOverflow = 500
	DefaultPruneInterval  = time.Minute
)

// Event says "sale changed, go re-read it". Origin is empty for local
// changes and names the remote instance for events relayed from Kafka.
type Event struct {
	SaleID    string    `json:"saleId"`
	Timestamp time.Time `json:"timestamp"`
	Origin    string    `json:"-"`
}

// Handler runs synchronously inside Record. Errors and panics stay inside the buffer.
type Handler func(Event) error

type Options struct {
	MaxAge         time.Duration
	MaxEntries     int
	KeepOnOverflow int
	PruneInterval  time.Duration
	Now            func() time.Time
	Log            *log.Logger
	// OnHandlerError is told about every failed handler call (metrics).
	OnHandlerError func(error)
}

type subscriber struct {
	id uint64
	h  Handler
}

// Buffer is the process-wide, time-bounded log of sale changes.
// Build one with NewBuffer, Start it, Close it on shutdown.
type Buffer struct {
	opts Options

	mu      sync.Mutex
	entries []Event
	subs    []subscriber
	nextID  uint64
	closed  bool

	stop     chan struct{}
	done     chan struct{}
	started  atomic.Bool
	failures atomic.Int64
}

func NewBuffer(opts Options) *Buffer {
	if opts.MaxAge <= 0 {
		opts.MaxAge = DefaultMaxAge
	}
	if opts.MaxEntries <= 0 {
		opts.MaxEntries = DefaultMaxEntries
	}
	if opts.KeepOnOverflow <= 0 || opts.KeepOnOverflow > opts.MaxEntries {
		opts.KeepOnOverflow = DefaultKeepOnOverflow
		if opts.KeepOnOverflow > opts.MaxEntries {
			opts.KeepOnOverflow = opts.MaxEntries
		}
	}
	if opts.PruneInterval <= 0 {
		opts.PruneInterval = DefaultPruneInterval
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Buffer{
		opts: opts,
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
}

// Start runs the janitor that prunes stale entries between writes.
func (b *Buffer) Start(ctx context.Context) {
	if !b.started.CompareAndSwap(false, true) {
		return
	}
	go func() {
		defer close(b.done)
		t := time.NewTicker(b.opts.PruneInterval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-b.stop:
				return
			case <-t.C:
				b.mu.Lock()
				b.pruneAge(b.opts.Now())
				b.mu.Unlock()
			}
		}
	}()
}

// Close drops all subscribers and stops the janitor. Record is a no-op afterwards.
func (b *Buffer) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	b.subs = nil
	b.entries = nil
	b.mu.Unlock()

	close(b.stop)
	if b.started.Load() {
		<-b.done
	}
}

func (b *Buffer) Record(saleID string) {
	b.RecordFrom(saleID, "")
}

// RecordFrom appends an event and fans it out to every subscriber.
func (b *Buffer) RecordFrom(saleID, origin string) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	now := b.opts.Now()
	ev := Event{SaleID: saleID, Timestamp: now, Origin: origin}
	b.entries = append(b.entries, ev)
	b.pruneAge(now)
	if len(b.entries) > b.opts.MaxEntries {
		keep := make([]Event, b.opts.KeepOnOverflow)
		copy(keep, b.entries[len(b.entries)-b.opts.KeepOnOverflow:])
		b.entries = keep
	}
	subs := make([]subscriber, len(b.subs))
	copy(subs, b.subs)
	b.mu.Unlock()

	// handler dipanggil di luar lock supaya handler boleh Record/Subscribe lagi
	for _, s := range subs {
		b.invoke(s, ev)
	}
}

// Since returns retained events strictly newer than ts, oldest first.
func (b *Buffer) Since(ts time.Time) []Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pruneAge(b.opts.Now())
	out := make([]Event, 0)
	for _, e := range b.entries {
		if e.Timestamp.After(ts) {
			out = append(out, e)
		}
	}
	return out
}

func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.entries)
}

// HandlerFailures counts handler errors and panics since construction.
func (b *Buffer) HandlerFailures() int64 { return b.failures.Load() }

// Subscription identifies one registered handler.
type Subscription struct {
	b  *Buffer
	id uint64
}

func (b *Buffer) Subscribe(h Handler) Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := b.nextID
	if !b.closed {
		b.subs = append(b.subs, subscriber{id: id, h: h})
	}
	return Subscription{b: b, id: id}
}

// Unsubscribe removes exactly this handler. Safe to call more than once.
func (s Subscription) Unsubscribe() {
	if s.b == nil {
		return
	}
	s.b.mu.Lock()
	defer s.b.mu.Unlock()
	for i, sub := range s.b.subs {
		if sub.id == s.id {
			s.b.subs = append(s.b.subs[:i:i], s.b.subs[i+1:]...)
			return
		}
	}
}

func (b *Buffer) invoke(s subscriber, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			b.fail(fmt.Errorf("events: subscriber %d panicked: %v", s.id, r))
		}
	}()
	if err := s.h(ev); err != nil {
		b.fail(fmt.Errorf("events: subscriber %d: %w", s.id, err))
	}
}

func (b *Buffer) fail(err error) {
	b.failures.Add(1)
	if b.opts.Log != nil {
		b.opts.Log.Print(err)
	} else {
		log.Print(err)
	}
	if b.opts.OnHandlerError != nil {
		b.opts.OnHandlerError(err)
	}
}

// pruneAge expects b.mu held. Entries are in time order so one cut suffices.
func (b *Buffer) pruneAge(now time.Time) {
	cutoff := now.Add(-b.opts.MaxAge)
	i := 0
	for i < len(b.entries) && b.entries[i].Timestamp.Before(cutoff) {
		i++
	}
	if i > 0 {
		b.entries = append(b.entries[:0:0], b.entries[i:]...)
	}
}
