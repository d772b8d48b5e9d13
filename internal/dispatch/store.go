package dispatch

import (
	"context"
	"time"
)

type JobStore interface {
	Create(ctx context.Context, j Job) error
	Get(ctx context.Context, id string) (Job, error)
	// Claim moves a queued job to processing, bumps attempts and records the
	// lease (instance, at). ErrNotQueued otherwise.
	Claim(ctx context.Context, id, instance string, at time.Time) (Job, error)
	Finish(ctx context.Context, id string, status JobStatus, errMsg string, at time.Time) (Job, error)
	// Requeue moves a failed job back to queued. ErrNotRetryable otherwise.
	Requeue(ctx context.Context, id string) (Job, error)
	Queued(ctx context.Context, limit int) ([]Job, error)
	// FailInterrupted marks processing jobs as failed when they were claimed
	// by instance (a previous run of this process) or their lease started
	// before staleBefore. Jobs other replicas are still sending stay untouched.
	// An empty instance only matches expired leases.
	FailInterrupted(ctx context.Context, instance string, staleBefore, at time.Time) (int, error)
}

const interruptedMsg = "interrupted: process stopped while sending"
