package fulfillment

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Recorder receives a notification every time a sale changes.
type Recorder interface {
	Record(saleID string)
}

// Notifier reacts to fulfillment events (print tickets, WhatsApp, outbound topics).
// Implementations must not block and must keep their own failures.
type Notifier interface {
	SaleSubmitted(ctx context.Context, sale Sale)
	ItemAdvanced(ctx context.Context, sale Sale, item SaleItem)
}

type Service struct {
	Store     Store
	Events    Recorder
	Notifiers []Notifier
	Location  *time.Location
	Now       func() time.Time
	Log       *log.Logger
}

type SaleInput struct {
	TableNumber   *int        `json:"table_number,omitempty"`
	ComandaID     string      `json:"comanda_id,omitempty"`
	CustomerName  string      `json:"customer_name,omitempty"`
	CustomerPhone string      `json:"customer_phone,omitempty"`
	Notes         string      `json:"notes,omitempty"`
	Items         []ItemInput `json:"items"`
}

type ItemInput struct {
	SectorID       string `json:"sector_id,omitempty"`
	ProductName    string `json:"product_name"`
	Quantity       int    `json:"quantity"`
	UnitPriceCents int64  `json:"unit_price_cents"`
	Note           string `json:"note,omitempty"`
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *Service) logf(format string, args ...any) {
	if s.Log != nil {
		s.Log.Printf(format, args...)
		return
	}
	log.Printf(format, args...)
}

// SubmitSale stores a new sale with all its items pending.
func (s *Service) SubmitSale(ctx context.Context, employeeID string, in SaleInput) (Sale, error) {
	if err := validateSale(in); err != nil {
		return Sale{}, err
	}
	now := s.now()
	sale := Sale{
		ID:            uuid.NewString(),
		TableNumber:   in.TableNumber,
		ComandaID:     strings.TrimSpace(in.ComandaID),
		CustomerName:  strings.TrimSpace(in.CustomerName),
		CustomerPhone: strings.TrimSpace(in.CustomerPhone),
		Notes:         strings.TrimSpace(in.Notes),
		EmployeeID:    employeeID,
		CreatedAt:     now,
	}
	items := make([]SaleItem, 0, len(in.Items))
	for _, ii := range in.Items {
		it := SaleItem{
			ID:             uuid.NewString(),
			SaleID:         sale.ID,
			ProductName:    strings.TrimSpace(ii.ProductName),
			Quantity:       ii.Quantity,
			UnitPriceCents: ii.UnitPriceCents,
			Note:           strings.TrimSpace(ii.Note),
			Status:         StatusPending,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if sid := strings.TrimSpace(ii.SectorID); sid != "" {
			it.SectorID = &sid
		}
		items = append(items, it)
	}

	if err := s.Store.CreateSale(ctx, sale, items); err != nil {
		return Sale{}, err
	}
	sale.Items = items
	s.record(sale.ID)
	for _, n := range s.Notifiers {
		n.SaleSubmitted(ctx, sale)
	}
	return sale, nil
}

func (s *Service) GetSale(ctx context.Context, saleID string) (Sale, error) {
	return s.Store.GetSale(ctx, saleID)
}

// AdvanceStatus moves the whole item one step forward.
func (s *Service) AdvanceStatus(ctx context.Context, itemID string, next Status, employeeID string) (SaleItem, error) {
	return s.AdvanceUnits(ctx, itemID, next, 0, employeeID)
}

// AdvanceUnits moves units of the item one step forward; units <= 0 means all of them.
func (s *Service) AdvanceUnits(ctx context.Context, itemID string, next Status, units int, employeeID string) (SaleItem, error) {
	if !next.Valid() {
		return SaleItem{}, ErrInvalidStatus
	}
	moved, err := s.Store.Advance(ctx, Move{
		ItemID:     itemID,
		Next:       next,
		Units:      units,
		EmployeeID: employeeID,
		At:         s.now(),
	})
	if err != nil {
		return SaleItem{}, err
	}
	s.record(moved.SaleID)

	if len(s.Notifiers) > 0 {
		sale, err := s.Store.GetSale(ctx, moved.SaleID)
		if err != nil {
			s.logf("advance: load sale %s for notifiers: %v", moved.SaleID, err)
			return moved, nil
		}
		for _, n := range s.Notifiers {
			n.ItemAdvanced(ctx, sale, moved)
		}
	}
	return moved, nil
}

// ListQueue returns the sector's items in the given status. When nothing is
// linked to the sector it falls back to items with no sector at all.
func (s *Service) ListQueue(ctx context.Context, sectorID string, status Status, f Filters) (QueueResult, error) {
	if !status.Valid() {
		return QueueResult{}, ErrInvalidStatus
	}
	q := Query{SectorID: sectorID, Status: status}
	// pending/ready selalu "sekarang", filter tanggal & pegawai hanya untuk histori
	if status == StatusDelivered {
		from, to, err := DayRange(f.From, f.To, s.Location)
		if err != nil {
			return QueueResult{}, err
		}
		q.From, q.To, q.Employees = from, to, f.Employees
	}

	items, err := s.Store.ListQueue(ctx, q)
	if err != nil {
		return QueueResult{}, err
	}
	if len(items) > 0 {
		return QueueResult{Items: items}, nil
	}

	// TODO: drop once legacy sale_items rows are backfilled with a sector_id.
	q.Unassigned = true
	items, err = s.Store.ListQueue(ctx, q)
	if err != nil {
		return QueueResult{}, err
	}
	if len(items) == 0 {
		return QueueResult{Items: items}, nil
	}
	s.logf("queue: sector=%s status=%s served %d unassigned items (compat fallback)", sectorID, status, len(items))
	return QueueResult{Items: items, Fallback: true}, nil
}

func (s *Service) record(saleID string) {
	if s.Events != nil {
		s.Events.Record(saleID)
	}
}

func validateSale(in SaleInput) error {
	if len(in.Items) == 0 {
		return newValidationError("at least one item is required")
	}
	if in.TableNumber != nil && *in.TableNumber <= 0 {
		return newValidationError("table number must be positive")
	}
	for _, it := range in.Items {
		if strings.TrimSpace(it.ProductName) == "" {
			return newValidationError("product name is required")
		}
		if it.Quantity <= 0 {
			return newValidationError("quantity must be positive")
		}
		if it.UnitPriceCents < 0 {
			return newValidationError("unit price must not be negative")
		}
	}
	return nil
}
