package dispatch

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PGStore struct{ DB *pgxpool.Pool }

var _ JobStore = (*PGStore)(nil)

const pgJobCols = `id, kind, target, body, status, error, attempts, created_at, completed_at, claimed_by, claimed_at`

func scanPGJob(row pgx.Row) (Job, error) {
	var j Job
	var kind, status string
	err := row.Scan(&j.ID, &kind, &j.Target, &j.Body, &status, &j.Error, &j.Attempts, &j.CreatedAt, &j.CompletedAt, &j.ClaimedBy, &j.ClaimedAt)
	if err != nil {
		return Job{}, err
	}
	j.Kind, j.Status = Kind(kind), JobStatus(status)
	j.CreatedAt = j.CreatedAt.UTC()
	j.CompletedAt = utcPtr(j.CompletedAt)
	j.ClaimedAt = utcPtr(j.ClaimedAt)
	return j, nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

func (r *PGStore) Create(ctx context.Context, j Job) error {
	_, err := r.DB.Exec(ctx, `
		INSERT INTO dispatch_jobs(`+pgJobCols+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		j.ID, string(j.Kind), j.Target, j.Body, string(j.Status), j.Error, j.Attempts, j.CreatedAt, j.CompletedAt,
		j.ClaimedBy, j.ClaimedAt)
	return err
}

func (r *PGStore) Get(ctx context.Context, id string) (Job, error) {
	j, err := scanPGJob(r.DB.QueryRow(ctx, `SELECT `+pgJobCols+` FROM dispatch_jobs WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Job{}, ErrNotFound
	}
	return j, err
}

// transition: update bersyarat, kalau 0 row bedakan not found vs status salah.
func (r *PGStore) transition(ctx context.Context, id string, wrong error, q string, args ...any) (Job, error) {
	j, err := scanPGJob(r.DB.QueryRow(ctx, q, args...))
	if err == nil {
		return j, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return Job{}, err
	}
	if _, err := r.Get(ctx, id); err != nil {
		return Job{}, err
	}
	return Job{}, wrong
}

func (r *PGStore) Claim(ctx context.Context, id, instance string, at time.Time) (Job, error) {
	return r.transition(ctx, id, ErrNotQueued, `
		UPDATE dispatch_jobs SET status='processing', attempts = attempts + 1, error='',
			claimed_by=$2, claimed_at=$3
		WHERE id=$1 AND status='queued'
		RETURNING `+pgJobCols, id, instance, at)
}

func (r *PGStore) Finish(ctx context.Context, id string, status JobStatus, errMsg string, at time.Time) (Job, error) {
	return r.transition(ctx, id, ErrNotProcessing, `
		UPDATE dispatch_jobs SET status=$2, error=$3, completed_at=$4
		WHERE id=$1 AND status='processing'
		RETURNING `+pgJobCols, id, string(status), errMsg, at)
}

func (r *PGStore) Requeue(ctx context.Context, id string) (Job, error) {
	return r.transition(ctx, id, ErrNotRetryable, `
		UPDATE dispatch_jobs SET status='queued', completed_at=NULL
		WHERE id=$1 AND status='failed'
		RETURNING `+pgJobCols, id)
}

func (r *PGStore) Queued(ctx context.Context, limit int) ([]Job, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT `+pgJobCols+` FROM dispatch_jobs
		WHERE status='queued' ORDER BY created_at, id LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Job
	for rows.Next() {
		j, err := scanPGJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, j)
	}
	return out, rows.Err()
}

func (r *PGStore) FailInterrupted(ctx context.Context, instance string, staleBefore, at time.Time) (int, error) {
	tag, err := r.DB.Exec(ctx, `
		UPDATE dispatch_jobs SET status='failed', error=$1, completed_at=$2
		WHERE status='processing'
		  AND (($3 <> '' AND claimed_by = $3) OR claimed_at IS NULL OR claimed_at < $4)`,
		interruptedMsg, at, instance, staleBefore)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}
