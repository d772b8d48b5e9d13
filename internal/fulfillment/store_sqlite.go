package fulfillment

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/ariefcatur/go-bar-pos/internal/sqlite"
)

// SQLiteStore is the single-file variant used by dev mode and tests.
type SQLiteStore struct{ DB *sql.DB }

var _ Store = (*SQLiteStore)(nil)

const sqliteItemCols = pgItemCols

func (r *SQLiteStore) CreateSale(ctx context.Context, sale Sale, items []SaleItem) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var table sql.NullInt64
	if sale.TableNumber != nil {
		table = sql.NullInt64{Int64: int64(*sale.TableNumber), Valid: true}
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO sales(id, table_number, comanda_id, customer_name, customer_phone, notes, employee_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		sale.ID, table, sale.ComandaID, sale.CustomerName, sale.CustomerPhone, sale.Notes, sale.EmployeeID,
		sqlite.Millis(sale.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert sale: %w", err)
	}
	for _, it := range items {
		if err := insertSQLiteItem(ctx, tx, it); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (r *SQLiteStore) GetSale(ctx context.Context, saleID string) (Sale, error) {
	var s Sale
	var table sql.NullInt64
	var created int64
	err := r.DB.QueryRowContext(ctx, `
		SELECT id, table_number, comanda_id, customer_name, customer_phone, notes, employee_id, created_at
		FROM sales WHERE id = ?`, saleID).
		Scan(&s.ID, &table, &s.ComandaID, &s.CustomerName, &s.CustomerPhone, &s.Notes, &s.EmployeeID, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return Sale{}, ErrNotFound
	}
	if err != nil {
		return Sale{}, err
	}
	if table.Valid {
		n := int(table.Int64)
		s.TableNumber = &n
	}
	s.CreatedAt = sqlite.Time(created)

	rows, err := r.DB.QueryContext(ctx, `SELECT `+sqliteItemCols+` FROM sale_items WHERE sale_id = ? ORDER BY created_at, id`, saleID)
	if err != nil {
		return Sale{}, err
	}
	s.Items, err = collectSQLiteItems(rows)
	return s, err
}

func (r *SQLiteStore) GetItem(ctx context.Context, itemID string) (SaleItem, error) {
	it, err := scanSQLiteItem(r.DB.QueryRowContext(ctx, `SELECT `+sqliteItemCols+` FROM sale_items WHERE id = ?`, itemID))
	if errors.Is(err, sql.ErrNoRows) {
		return SaleItem{}, ErrNotFound
	}
	return it, err
}

func (r *SQLiteStore) Advance(ctx context.Context, m Move) (SaleItem, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return SaleItem{}, err
	}
	defer tx.Rollback()

	it, err := scanSQLiteItem(tx.QueryRowContext(ctx, `SELECT `+sqliteItemCols+` FROM sale_items WHERE id = ?`, m.ItemID))
	if errors.Is(err, sql.ErrNoRows) {
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
		if _, err := tx.ExecContext(ctx, `UPDATE sale_items SET quantity = quantity - ?, updated_at = ? WHERE id = ?`,
			moved.Quantity, sqlite.Millis(m.At), it.ID); err != nil {
			return SaleItem{}, err
		}
		if err := insertSQLiteItem(ctx, tx, moved); err != nil {
			return SaleItem{}, err
		}
	} else {
		res, err := tx.ExecContext(ctx, `UPDATE sale_items SET status = ?, prepared_by = ?, updated_at = ? WHERE id = ? AND status = ?`,
			string(moved.Status), moved.PreparedBy, sqlite.Millis(m.At), it.ID, string(it.Status))
		if err != nil {
			return SaleItem{}, err
		}
		if n, _ := res.RowsAffected(); n != 1 {
			return SaleItem{}, ErrInvalidTransition
		}
	}

	if err := tx.Commit(); err != nil {
		return SaleItem{}, err
	}
	return moved, nil
}

func (r *SQLiteStore) ListQueue(ctx context.Context, q Query) ([]SaleItem, error) {
	where := []string{"status = ?"}
	args := []any{string(q.Status)}
	if q.Unassigned {
		where = append(where, "sector_id IS NULL")
	} else {
		where = append(where, "sector_id = ?")
		args = append(args, q.SectorID)
	}
	if !q.From.IsZero() {
		where = append(where, "created_at >= ?")
		args = append(args, sqlite.Millis(q.From))
	}
	if !q.To.IsZero() {
		where = append(where, "created_at < ?")
		args = append(args, sqlite.Millis(q.To))
	}
	if len(q.Employees) > 0 {
		marks := strings.TrimSuffix(strings.Repeat("?,", len(q.Employees)), ",")
		where = append(where, "prepared_by IN ("+marks+")")
		for _, e := range q.Employees {
			args = append(args, e)
		}
	}

	rows, err := r.DB.QueryContext(ctx, `SELECT `+sqliteItemCols+` FROM sale_items WHERE `+strings.Join(where, " AND ")+` ORDER BY created_at, id`, args...)
	if err != nil {
		return nil, err
	}
	return collectSQLiteItems(rows)
}

func insertSQLiteItem(ctx context.Context, tx *sql.Tx, it SaleItem) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO sale_items(`+sqliteItemCols+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		it.ID, it.SaleID, it.SectorID, it.ProductName, it.Quantity, it.UnitPriceCents, it.Note,
		string(it.Status), it.PreparedBy, sqlite.Millis(it.CreatedAt), sqlite.Millis(it.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert sale item: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSQLiteItem(row scanner) (SaleItem, error) {
	var it SaleItem
	var status string
	var sector, prepared sql.NullString
	var created, updated int64
	err := row.Scan(&it.ID, &it.SaleID, &sector, &it.ProductName, &it.Quantity, &it.UnitPriceCents, &it.Note,
		&status, &prepared, &created, &updated)
	if err != nil {
		return SaleItem{}, err
	}
	if sector.Valid {
		it.SectorID = &sector.String
	}
	if prepared.Valid {
		it.PreparedBy = &prepared.String
	}
	it.Status = Status(status)
	it.CreatedAt = sqlite.Time(created)
	it.UpdatedAt = sqlite.Time(updated)
	return it, nil
}

func collectSQLiteItems(rows *sql.Rows) ([]SaleItem, error) {
	defer rows.Close()
	out := []SaleItem{}
	for rows.Next() {
		it, err := scanSQLiteItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}
