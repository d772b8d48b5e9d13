package fulfillment

import (
	"context"
	"time"
)

// Query is the store-level shape of a queue listing. The time range is half-open [From, To).
type Query struct {
	SectorID   string
	Unassigned bool // sector_id IS NULL
	Status     Status
	From       time.Time
	To         time.Time
	Employees  []string
}

// Move describes one status step on an item. Units > 0 and below the row quantity
// splits the row so only that many units move.
type Move struct {
	ItemID     string
	Next       Status
	Units      int
	EmployeeID string
	At         time.Time
}

type Store interface {
	CreateSale(ctx context.Context, sale Sale, items []SaleItem) error
	GetSale(ctx context.Context, saleID string) (Sale, error)
	GetItem(ctx context.Context, itemID string) (SaleItem, error)
	// Advance performs the read-check-write of one item atomically and returns the row now in m.Next.
	Advance(ctx context.Context, m Move) (SaleItem, error)
	ListQueue(ctx context.Context, q Query) ([]SaleItem, error)
}
