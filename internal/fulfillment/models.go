package fulfillment

import (
	"strconv"
	"time"
)

type Sale struct {
	ID            string     `json:"id"`
	TableNumber   *int       `json:"table_number,omitempty"`
	ComandaID     string     `json:"comanda_id,omitempty"`
	CustomerName  string     `json:"customer_name,omitempty"`
	CustomerPhone string     `json:"customer_phone,omitempty"`
	Notes         string     `json:"notes,omitempty"`
	EmployeeID    string     `json:"employee_id,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	Items         []SaleItem `json:"items,omitempty"`
}

// Label names where the order goes: table number first, else the comanda.
func (s Sale) Label() string {
	if s.TableNumber != nil {
		return "Mesa " + strconv.Itoa(*s.TableNumber)
	}
	if s.ComandaID != "" {
		return "Comanda " + s.ComandaID
	}
	return "Balcao"
}

func (s Sale) TotalCents() int64 {
	var total int64
	for _, it := range s.Items {
		total += it.SubtotalCents()
	}
	return total
}

// SaleItem is one queue unit. SectorID is nil for rows created before sectors existed.
type SaleItem struct {
	ID             string    `json:"id"`
	SaleID         string    `json:"sale_id"`
	SectorID       *string   `json:"sector_id"`
	ProductName    string    `json:"product_name"`
	Quantity       int       `json:"quantity"`
	UnitPriceCents int64     `json:"unit_price_cents"`
	Note           string    `json:"note,omitempty"`
	Status         Status    `json:"status"`
	PreparedBy     *string   `json:"prepared_by,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func (it SaleItem) SubtotalCents() int64 {
	return it.UnitPriceCents * int64(it.Quantity)
}

func (it SaleItem) Sector() string {
	if it.SectorID == nil {
		return ""
	}
	return *it.SectorID
}

// Filters narrow historical (delivered) queries. From/To are YYYY-MM-DD, inclusive.
type Filters struct {
	From      string   `json:"from,omitempty"`
	To        string   `json:"to,omitempty"`
	Employees []string `json:"employees,omitempty"`
}

type QueueResult struct {
	Items    []SaleItem `json:"items"`
	Fallback bool       `json:"fallback"`
}
