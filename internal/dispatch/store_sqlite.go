package dispatch

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/ariefcatur/go-bar-pos/internal/sqlite"
)

type SQLiteStore struct{ DB *sql.DB }

var _ JobStore = (*SQLiteStore)(nil)

const sqliteJobCols = `id, kind, target, body, status, error, attempts, created_at, completed_at, claimed_by, claimed_at`

type scanner interface{ Scan(dest ...any) error }

func scanSQLiteJob(row scanner) (Job, error) {
	var j Job
	var kind, status string
	var created int64
	var completed, claimed sql.NullInt64
	if err := row.Scan(&j.ID, &kind, &j.Target, &j.Body, &status, &j.Error, &j.Attempts, &created, &completed, &j.ClaimedBy, &claimed); err != nil {
		return Job{}, err
	}
	j.Kind, j.Status = Kind(kind), JobStatus(status)
	j.CreatedAt = sqlite.Time(created)
	j.CompletedAt = sqlite.NullTime(completed)
	j.ClaimedAt = sqlite.NullTime(claimed)
	return j, nil
}

func (r *SQLiteStore) Create(ctx context.Context, j Job) error {
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO dispatch_jobs(`+sqliteJobCols+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		j.ID, string(j.Kind), j.Target, j.Body, string(j.Status), j.Error, j.Attempts,
		sqlite.Millis(j.CreatedAt), sqlite.NullMillis(j.CompletedAt), j.ClaimedBy, sqlite.NullMillis(j.ClaimedAt))
	return err
}

func (r *SQLiteStore) Get(ctx context.Context, id string) (Job, error) {
	j, err := scanSQLiteJob(r.DB.QueryRowContext(ctx, `SELECT `+sqliteJobCols+` FROM dispatch_jobs WHERE id=?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Job{}, ErrNotFound
	}
	return j, err
}

func (r *SQLiteStore) transition(ctx context.Context, id string, wrong error, q string, args ...any) (Job, error) {
	res, err := r.DB.ExecContext(ctx, q, args...)
	if err != nil {
		return Job{}, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return Job{}, err
	}
	j, err := r.Get(ctx, id)
	if err != nil {
		return Job{}, err
	}
	if n == 0 {
		return Job{}, wrong
	}
	return j, nil
}

func (r *SQLiteStore) Claim(ctx context.Context, id, instance string, at time.Time) (Job, error) {
	return r.transition(ctx, id, ErrNotQueued, `
		UPDATE dispatch_jobs SET status='processing', attempts = attempts + 1, error='',
			claimed_by=?, claimed_at=?
		WHERE id=? AND status='queued'`, instance, sqlite.Millis(at), id)
}

func (r *SQLiteStore) Finish(ctx context.Context, id string, status JobStatus, errMsg string, at time.Time) (Job, error) {
	return r.transition(ctx, id, ErrNotProcessing, `
		UPDATE dispatch_jobs SET status=?, error=?, completed_at=?
		WHERE id=? AND status='processing'`, string(status), errMsg, sqlite.Millis(at), id)
}

func (r *SQLiteStore) Requeue(ctx context.Context, id string) (Job, error) {
	return r.transition(ctx, id, ErrNotRetryable, `
		UPDATE dispatch_jobs SET status='queued', completed_at=NULL
		WHERE id=? AND status='failed'`, id)
}

func (r *SQLiteStore) Queued(ctx context.Context, limit int) ([]Job, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT `+sqliteJobCols+` FROM dispatch_jobs
		WHERE status='queued' ORDER BY created_at, id LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Job
	for rows.Next() {
		j, err := scanSQLiteJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, j)
	}
	return out, rows.Err()
}

func (r *SQLiteStore) FailInterrupted(ctx context.Context, instance string, staleBefore, at time.Time) (int, error) {
	res, err := r.DB.ExecContext(ctx, `
		UPDATE dispatch_jobs SET status='failed', error=?, completed_at=?
		WHERE status='processing'
		  AND ((? <> '' AND claimed_by = ?) OR claimed_at IS NULL OR claimed_at < ?)`,
		interruptedMsg, sqlite.Millis(at), instance, instance, sqlite.Millis(staleBefore))
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}
