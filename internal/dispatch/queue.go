package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Transport performs the external side effect of a job.
type Transport interface {
	Send(ctx context.Context, j Job) error
}

type TransportFunc func(ctx context.Context, j Job) error

func (f TransportFunc) Send(ctx context.Context, j Job) error { return f(ctx, j) }

type Options struct {
	Workers int
	Buffer  int
	// SweepInterval re-feeds jobs that stayed queued (inbox full, requeue, restart).
	SweepInterval time.Duration
	// OnSettled is called once per processing attempt with the final record.
	OnSettled func(Job)
	Now       func() time.Time
	Log       *log.Logger
	// Instance names this process in the job lease. Keep it stable across
	// restarts so Start can recover its own interrupted jobs right away.
	Instance string
	// LeaseTTL bounds one send. Processing jobs claimed longer ago are
	// considered abandoned by any replica. Must exceed the transport timeouts.
	LeaseTTL time.Duration
}

// Queue persists jobs and runs them on a worker pool. Enqueue never waits
// for the side effect and never sees its failure.
type Queue struct {
	store      JobStore
	transports map[Kind]Transport
	opts       Options

	inbox  chan string
	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

func NewQueue(store JobStore, transports map[Kind]Transport, opts Options) *Queue {
	if opts.Workers <= 0 {
		opts.Workers = 2
	}
	if opts.Buffer <= 0 {
		opts.Buffer = 256
	}
	if opts.SweepInterval <= 0 {
		opts.SweepInterval = 30 * time.Second
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.LeaseTTL <= 0 {
		opts.LeaseTTL = 10 * time.Minute
	}
	if opts.Instance == "" {
		opts.Instance = defaultInstance()
	}
	return &Queue{
		store:      store,
		transports: transports,
		opts:       opts,
		inbox:      make(chan string, opts.Buffer),
	}
}

func (q *Queue) logf(format string, args ...any) {
	if q.opts.Log != nil {
		q.opts.Log.Printf(format, args...)
		return
	}
	log.Printf(format, args...)
}

func defaultInstance() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		return uuid.NewString()
	}
	return host
}

// recoverInterrupted fails jobs whose sender is gone: this instance's own
// leases (only at startup) and any lease older than LeaseTTL.
func (q *Queue) recoverInterrupted(ctx context.Context, instance string) {
	now := q.opts.Now().UTC()
	n, err := q.store.FailInterrupted(ctx, instance, now.Add(-q.opts.LeaseTTL), now)
	if err != nil {
		if ctx.Err() == nil {
			q.logf("dispatch: recover interrupted jobs: %v", err)
		}
		return
	}
	if n > 0 {
		q.logf("dispatch: %d interrupted job(s) marked failed", n)
	}
}

// Start runs the workers and the sweeper until ctx is done or Close is called.
func (q *Queue) Start(ctx context.Context) {
	q.recoverInterrupted(ctx, q.opts.Instance)

	for i := 0; i < q.opts.Workers; i++ {
		q.wg.Add(1)
		go func() {
			defer q.wg.Done()
			for id := range q.inbox {
				q.process(ctx, id)
			}
		}()
	}

	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		t := time.NewTicker(q.opts.SweepInterval)
		defer t.Stop()
		q.sweep(ctx)
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				q.sweep(ctx)
			}
		}
	}()
}

// Close stops accepting hand-offs and waits for in-flight jobs.
// Cancel the Start context first so the sweeper exits.
func (q *Queue) Close() {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.inbox)
	}
	q.mu.Unlock()
	q.wg.Wait()
}

// Enqueue stores a queued job and hands it to the workers.
func (q *Queue) Enqueue(ctx context.Context, kind Kind, target, body string) (Job, error) {
	if !kind.Valid() {
		return Job{}, ErrUnknownKind
	}
	j := Job{
		ID:        uuid.NewString(),
		Kind:      kind,
		Target:    strings.TrimSpace(target),
		Body:      body,
		Status:    StatusQueued,
		CreatedAt: q.opts.Now().UTC(),
	}
	if err := q.store.Create(ctx, j); err != nil {
		return Job{}, fmt.Errorf("create dispatch job: %w", err)
	}
	q.handOff(j.ID)
	return j, nil
}

// Requeue gives a failed job another attempt.
func (q *Queue) Requeue(ctx context.Context, id string) (Job, error) {
	j, err := q.store.Requeue(ctx, id)
	if err != nil {
		return Job{}, err
	}
	q.handOff(j.ID)
	return j, nil
}

func (q *Queue) Get(ctx context.Context, id string) (Job, error) {
	return q.store.Get(ctx, id)
}

func (q *Queue) handOff(id string) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	// sudah shutdown: job tetap queued, diambil sweeper saat start berikutnya
	if q.closed {
		return
	}
	select {
	case q.inbox <- id:
	default:
		q.logf("dispatch: inbox full, job %s left queued for the sweeper", id)
	}
}

func (q *Queue) sweep(ctx context.Context) {
	// lease milik sendiri masih jalan, jadi di sini hanya yang kadaluarsa
	q.recoverInterrupted(ctx, "")

	jobs, err := q.store.Queued(ctx, q.opts.Buffer)
	if err != nil {
		if ctx.Err() == nil {
			q.logf("dispatch: sweep: %v", err)
		}
		return
	}
	for _, j := range jobs {
		select {
		case <-ctx.Done():
			return
		default:
		}
		q.handOff(j.ID)
	}
}

func (q *Queue) process(ctx context.Context, id string) {
	// sekali processing tidak bisa dibatalkan, sampai selesai
	ctx = context.WithoutCancel(ctx)

	j, err := q.store.Claim(ctx, id, q.opts.Instance, q.opts.Now().UTC())
	if err != nil {
		// sudah diambil worker lain (sweeper + handOff bisa dobel)
		if !errors.Is(err, ErrNotQueued) {
			q.logf("dispatch: claim %s: %v", id, err)
		}
		return
	}

	status, msg := j.Kind.succeeded(), ""
	if err := q.send(ctx, j); err != nil {
		status, msg = StatusFailed, err.Error()
		q.logf("dispatch: %s job %s failed: %v", j.Kind, j.ID, err)
	}

	settled, err := q.store.Finish(ctx, j.ID, status, msg, q.opts.Now().UTC())
	if err != nil {
		q.logf("dispatch: finish %s: %v", j.ID, err)
		return
	}
	q.settled(settled)
}

func (q *Queue) send(ctx context.Context, j Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: panic: %v", ErrTransport, r)
		}
	}()
	t, ok := q.transports[j.Kind]
	if !ok || t == nil {
		return fmt.Errorf("%w: no %s transport", ErrNotConfigured, j.Kind)
	}
	return t.Send(ctx, j)
}

func (q *Queue) settled(j Job) {
	if q.opts.OnSettled == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			q.logf("dispatch: OnSettled panicked for %s: %v", j.ID, r)
		}
	}()
	q.opts.OnSettled(j)
}
