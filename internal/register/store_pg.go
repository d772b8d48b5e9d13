package register

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PGStore struct{ DB *pgxpool.Pool }

var _ Store = (*PGStore)(nil)

const pgCols = `id, opened_by, opened_at, closed_by, closed_at, opening_cents, closing_cents,
	total_sales_cents, total_cash_cents, total_card_cents, total_pix_cents, status`

func scanPG(row pgx.Row) (Register, error) {
	var r Register
	var status string
	err := row.Scan(&r.ID, &r.OpenedBy, &r.OpenedAt, &r.ClosedBy, &r.ClosedAt, &r.OpeningCents, &r.ClosingCents,
		&r.TotalSalesCents, &r.TotalCashCents, &r.TotalCardCents, &r.TotalPixCents, &status)
	if err != nil {
		return Register{}, err
	}
	r.Status = Status(status)
	r.OpenedAt = r.OpenedAt.UTC()
	if r.ClosedAt != nil {
		t := r.ClosedAt.UTC()
		r.ClosedAt = &t
	}
	return r, nil
}

func (s *PGStore) Open(ctx context.Context, r Register) error {
	_, err := s.DB.Exec(ctx, `
		INSERT INTO cash_registers(id, opened_by, opened_at, opening_cents, status)
		VALUES ($1, $2, $3, $4, 'open')`, r.ID, r.OpenedBy, r.OpenedAt, r.OpeningCents)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrConflict
	}
	return err
}

func (s *PGStore) one(ctx context.Context, notFound error, q string, args ...any) (Register, error) {
	r, err := scanPG(s.DB.QueryRow(ctx, q, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return Register{}, notFound
	}
	return r, err
}

func (s *PGStore) Get(ctx context.Context, id string) (Register, error) {
	return s.one(ctx, ErrNotFound, `SELECT `+pgCols+` FROM cash_registers WHERE id=$1`, id)
}

func (s *PGStore) Current(ctx context.Context) (Register, error) {
	return s.one(ctx, ErrNoOpenRegister, `SELECT `+pgCols+` FROM cash_registers WHERE status='open'`)
}

func (s *PGStore) Latest(ctx context.Context) (Register, error) {
	return s.one(ctx, ErrNotFound, `SELECT `+pgCols+` FROM cash_registers ORDER BY opened_at DESC, id DESC LIMIT 1`)
}

func (s *PGStore) Post(ctx context.Context, amountCents int64, m Method) (Register, error) {
	col := m.column()
	if col == "" {
		return Register{}, ErrInvalidMethod
	}
	// satu statement: total & bucket naik bareng atau tidak sama sekali
	return s.one(ctx, ErrNoOpenRegister, `
		UPDATE cash_registers
		SET total_sales_cents = total_sales_cents + $1, `+col+` = `+col+` + $1
		WHERE status='open'
		RETURNING `+pgCols, amountCents)
}

func (s *PGStore) Close(ctx context.Context, id, employeeID string, closingCents int64, at time.Time) (Register, error) {
	tx, err := s.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Register{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	cur, err := scanPG(tx.QueryRow(ctx, `SELECT `+pgCols+` FROM cash_registers WHERE id=$1 FOR UPDATE`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Register{}, ErrNotFound
	}
	if err != nil {
		return Register{}, err
	}
	if cur.Status == StatusClosed {
		return Register{}, ErrAlreadyClosed
	}

	r, err := scanPG(tx.QueryRow(ctx, `
		UPDATE cash_registers SET status='closed', closed_by=$2, closed_at=$3, closing_cents=$4
		WHERE id=$1
		RETURNING `+pgCols, id, employeeID, at, closingCents))
	if err != nil {
		return Register{}, err
	}
	return r, tx.Commit(ctx)
}
