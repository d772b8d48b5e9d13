package dispatch

import (
	"errors"
	"time"
)

type Kind string

const (
	KindPrint    Kind = "print"
	KindWhatsApp Kind = "whatsapp"
)

func (k Kind) Valid() bool { return k == KindPrint || k == KindWhatsApp }

type JobStatus string

const (
	StatusQueued     JobStatus = "queued"
	StatusProcessing JobStatus = "processing"
	StatusDone       JobStatus = "done" // print
	StatusSent       JobStatus = "sent" // whatsapp
	StatusFailed     JobStatus = "failed"
)

// succeeded is the terminal success status for each kind.
func (k Kind) succeeded() JobStatus {
	if k == KindWhatsApp {
		return StatusSent
	}
	return StatusDone
}

var (
	ErrNotFound      = errors.New("dispatch: job not found")
	ErrNotRetryable  = errors.New("dispatch: only failed jobs can be requeued")
	ErrNotQueued     = errors.New("dispatch: job is not queued")
	ErrNotProcessing = errors.New("dispatch: job is not processing")
	ErrUnknownKind   = errors.New("dispatch: unknown job kind")
	ErrTransport     = errors.New("dispatch: transport failure")
	ErrNotConfigured = errors.New("dispatch: transport not configured")
)

// Job is one print ticket or WhatsApp message. Failed jobs stay failed
// until someone requeues them.
type Job struct {
	ID          string     `json:"id"`
	Kind        Kind       `json:"kind"`
	Target      string     `json:"target"` // printer host:port or phone number
	Body        string     `json:"body"`
	Status      JobStatus  `json:"status"`
	Error       string     `json:"error,omitempty"`
	Attempts    int        `json:"attempts"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	// ClaimedBy/ClaimedAt form the processing lease of the worker's instance.
	ClaimedBy string     `json:"claimed_by,omitempty"`
	ClaimedAt *time.Time `json:"claimed_at,omitempty"`
}

func (j Job) Settled() bool {
	switch j.Status {
	case StatusDone, StatusSent, StatusFailed:
		return true
	}
	return false
}
