package fulfillment

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PGStore struct{ DB *pgxpool.Pool }

var _ Store = (*PGStore)(nil)

const pgItemCols = `id, sale_id, sector_id, product_name, quantity, unit_price_cents, note, status, prepared_by, created_at, updated_at`

func (r *PGStore) CreateSale(ctx context.Context, sale Sale, items []SaleItem) error {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
		INSERT INTO sales(id, table_number, comanda_id, customer_name, customer_phone, notes, employee_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		sale.ID, sale.TableNumber, sale.ComandaID, sale.CustomerName, sale.CustomerPhone, sale.Notes, sale.EmployeeID, sale.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert sale: %w", err)
	}

	for _, it := range items {
		if _, err := tx.Exec(ctx, `
			INSERT INTO sale_items(`+pgItemCols+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
			it.ID, it.SaleID, it.SectorID, it.ProductName, it.Quantity, it.UnitPriceCents, it.Note,
			string(it.Status), it.PreparedBy, it.CreatedAt, it.UpdatedAt,
		); err != nil {
			return fmt.Errorf("insert sale item: %w", err)
		}
	}
	return tx.Commit(ctx)
}

func (r *PGStore) GetSale(ctx context.Context, saleID string) (Sale, error) {
	var s Sale
	err := r.DB.QueryRow(ctx, `
		SELECT id, table_number, comanda_id, customer_name, customer_phone, notes, employee_id, created_at
		FROM sales WHERE id=$1`, saleID).
		Scan(&s.ID, &s.TableNumber, &s.ComandaID, &s.CustomerName, &s.CustomerPhone, &s.Notes, &s.EmployeeID, &s.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Sale{}, ErrNotFound
	}
	if err != nil {
		return Sale{}, err
	}
	s.CreatedAt = s.CreatedAt.UTC()

	rows, err := r.DB.Query(ctx, `SELECT `+pgItemCols+` FROM sale_items WHERE sale_id=$1 ORDER BY created_at, id`, saleID)
	if err != nil {
		return Sale{}, err
	}
	s.Items, err = collectPGItems(rows)
	return s, err
}

func (r *PGStore) GetItem(ctx context.Context, itemID string) (SaleItem, error) {
	it, err := scanPGItem(r.DB.QueryRow(ctx, `SELECT `+pgItemCols+` FROM sale_items WHERE id=$1`, itemID))
	if errors.Is(err, pgx.ErrNoRows) {
		return SaleItem{}, ErrNotFound
	}
	return it, err
}

// Advance: lock row (FOR UPDATE) -> validasi transisi -> update atau split.
func (r *PGStore) Advance(ctx context.Context, m Move) (SaleItem, error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return SaleItem{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	it, err := scanPGItem(tx.QueryRow(ctx, `SELECT `+pgItemCols+` FROM sale_items WHERE id=$1 FOR UPDATE`, m.ItemID))
	if errors.Is(err, pgx.ErrNoRows) {
		return SaleItem{}, ErrNotFound
	}
	if err != nil {
		return SaleItem{}, err
	}

	moved, split, err := applyMove(it, m)
	if err != nil {
		return SaleItem{}, err
	}

	if split {
		if _, err := tx.Exec(ctx, `UPDATE sale_items SET quantity = quantity - $2, updated_at=$3 WHERE id=$1`,
			it.ID, moved.Quantity, m.At); err != nil {
			return SaleItem{}, err
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO sale_items(`+pgItemCols+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
			moved.ID, moved.SaleID, moved.SectorID, moved.ProductName, moved.Quantity, moved.UnitPriceCents, moved.Note,
			string(moved.Status), moved.PreparedBy, moved.CreatedAt, moved.UpdatedAt,
		); err != nil {
			return SaleItem{}, err
		}
	} else {
		ct, err := tx.Exec(ctx, `UPDATE sale_items SET status=$2, prepared_by=$3, updated_at=$4 WHERE id=$1 AND status=$5`,
			it.ID, string(moved.Status), moved.PreparedBy, m.At, string(it.Status))
		if err != nil {
			return SaleItem{}, err
		}
		if ct.RowsAffected() != 1 {
			return SaleItem{}, ErrInvalidTransition
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return SaleItem{}, err
	}
	return moved, nil
}

func (r *PGStore) ListQueue(ctx context.Context, q Query) ([]SaleItem, error) {
	where := []string{"status = $1"}
	args := []any{string(q.Status)}
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if q.Unassigned {
		where = append(where, "sector_id IS NULL")
	} else {
		add("sector_id = $%d", q.SectorID)
	}
	if !q.From.IsZero() {
		add("created_at >= $%d", q.From)
	}
	if !q.To.IsZero() {
		add("created_at < $%d", q.To)
	}
	if len(q.Employees) > 0 {
		add("prepared_by = ANY($%d)", q.Employees)
	}

	rows, err := r.DB.Query(ctx, `SELECT `+pgItemCols+` FROM sale_items WHERE `+strings.Join(where, " AND ")+` ORDER BY created_at, id`, args...)
	if err != nil {
		return nil, err
	}
	return collectPGItems(rows)
}

func scanPGItem(row pgx.Row) (SaleItem, error) {
	var it SaleItem
	var status string
	err := row.Scan(&it.ID, &it.SaleID, &it.SectorID, &it.ProductName, &it.Quantity, &it.UnitPriceCents, &it.Note,
		&status, &it.PreparedBy, &it.CreatedAt, &it.UpdatedAt)
	if err != nil {
		return SaleItem{}, err
	}
	it.Status = Status(status)
	it.CreatedAt = it.CreatedAt.UTC()
	it.UpdatedAt = it.UpdatedAt.UTC()
	return it, nil
}

func collectPGItems(rows pgx.Rows) ([]SaleItem, error) {
	defer rows.Close()
	out := []SaleItem{}
	for rows.Next() {
		it, err := scanPGItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

// applyMove validates m against the locked row and computes the resulting row.
// split reports that the original row keeps the remaining units.
func applyMove(it SaleItem, m Move) (moved SaleItem, split bool, err error) {
	if !CanTransition(it.Status, m.Next) {
		if want, ok := it.Status.Next(); ok {
			return SaleItem{}, false, fmt.Errorf("%w: %s -> %s (next is %s)", ErrInvalidTransition, it.Status, m.Next, want)
		}
		return SaleItem{}, false, fmt.Errorf("%w: %s is final", ErrInvalidTransition, it.Status)
	}
	moved = it
	moved.Status = m.Next
	moved.UpdatedAt = m.At
	if m.Next == StatusReady && m.EmployeeID != "" {
		emp := m.EmployeeID
		moved.PreparedBy = &emp
	}
	if m.Units > 0 && m.Units < it.Quantity {
		moved.ID = uuid.NewString()
		moved.Quantity = m.Units
		return moved, true, nil
	}
	return moved, false, nil
}
