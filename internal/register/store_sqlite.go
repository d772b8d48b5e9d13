package register

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/ariefcatur/go-bar-pos/internal/sqlite"
)

type SQLiteStore struct{ DB *sql.DB }

var _ Store = (*SQLiteStore)(nil)

const sqliteCols = `id, opened_by, opened_at, closed_by, closed_at, opening_cents, closing_cents,
	total_sales_cents, total_cash_cents, total_card_cents, total_pix_cents, status`

type scanner interface{ Scan(dest ...any) error }

func scanSQLite(row scanner) (Register, error) {
	var r Register
	var status string
	var openedAt int64
	var closedBy sql.NullString
	var closedAt, closing sql.NullInt64
	err := row.Scan(&r.ID, &r.OpenedBy, &openedAt, &closedBy, &closedAt, &r.OpeningCents, &closing,
		&r.TotalSalesCents, &r.TotalCashCents, &r.TotalCardCents, &r.TotalPixCents, &status)
	if err != nil {
		return Register{}, err
	}
	r.Status = Status(status)
	r.OpenedAt = sqlite.Time(openedAt)
	r.ClosedAt = sqlite.NullTime(closedAt)
	if closedBy.Valid {
		r.ClosedBy = &closedBy.String
	}
	if closing.Valid {
		r.ClosingCents = &closing.Int64
	}
	return r, nil
}

func (s *SQLiteStore) Open(ctx context.Context, r Register) error {
	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO cash_registers(id, opened_by, opened_at, opening_cents, status)
		VALUES (?, ?, ?, ?, 'open')`, r.ID, r.OpenedBy, sqlite.Millis(r.OpenedAt), r.OpeningCents)
	var se sqlite3.Error
	if errors.As(err, &se) && se.Code == sqlite3.ErrConstraint {
		return ErrConflict
	}
	return err
}

func (s *SQLiteStore) one(ctx context.Context, notFound error, q string, args ...any) (Register, error) {
	r, err := scanSQLite(s.DB.QueryRowContext(ctx, q, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return Register{}, notFound
	}
	return r, err
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (Register, error) {
	return s.one(ctx, ErrNotFound, `SELECT `+sqliteCols+` FROM cash_registers WHERE id=?`, id)
}

func (s *SQLiteStore) Current(ctx context.Context) (Register, error) {
	return s.one(ctx, ErrNoOpenRegister, `SELECT `+sqliteCols+` FROM cash_registers WHERE status='open'`)
}

func (s *SQLiteStore) Latest(ctx context.Context) (Register, error) {
	return s.one(ctx, ErrNotFound, `SELECT `+sqliteCols+` FROM cash_registers ORDER BY opened_at DESC, rowid DESC LIMIT 1`)
}

func (s *SQLiteStore) Post(ctx context.Context, amountCents int64, m Method) (Register, error) {
	col := m.column()
	if col == "" {
		return Register{}, ErrInvalidMethod
	}
	return s.one(ctx, ErrNoOpenRegister, `
		UPDATE cash_registers
		SET total_sales_cents = total_sales_cents + ?, `+col+` = `+col+` + ?
		WHERE status='open'
		RETURNING `+sqliteCols, amountCents, amountCents)
}

func (s *SQLiteStore) Close(ctx context.Context, id, employeeID string, closingCents int64, at time.Time) (Register, error) {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return Register{}, err
	}
	defer func() { _ = tx.Rollback() }()

	cur, err := scanSQLite(tx.QueryRowContext(ctx, `SELECT `+sqliteCols+` FROM cash_registers WHERE id=?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Register{}, ErrNotFound
	}
	if err != nil {
		return Register{}, err
	}
	if cur.Status == StatusClosed {
		return Register{}, ErrAlreadyClosed
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE cash_registers SET status='closed', closed_by=?, closed_at=?, closing_cents=?
		WHERE id=?`, employeeID, sqlite.Millis(at), closingCents, id); err != nil {
		return Register{}, err
	}
	r, err := scanSQLite(tx.QueryRowContext(ctx, `SELECT `+sqliteCols+` FROM cash_registers WHERE id=?`, id))
	if err != nil {
		return Register{}, err
	}
	return r, tx.Commit()
}
