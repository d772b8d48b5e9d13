package cart

import (
	"encoding/json"
	"math"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

// Line is one product on an open order before it is submitted.
type Line struct {
	ID             string `json:"id"`
	ProductName    string `json:"product_name,omitempty"`
	SectorID       string `json:"sector_id,omitempty"`
	Quantity       int    `json:"quantity"`
	UnitPriceCents int64  `json:"unit_price_cents"`
	SubtotalCents  int64  `json:"subtotal_cents"`
}

type Cart struct {
	Ref   string `json:"ref,omitempty"`
	Lines []Line `json:"lines"`
}

func (c Cart) TotalCents() int64 {
	var total int64
	for _, l := range c.Lines {
		total += l.SubtotalCents
	}
	return total
}

func (c Cart) Line(id string) (Line, bool) {
	for _, l := range c.Lines {
		if l.ID == id {
			return l, true
		}
	}
	return Line{}, false
}

// ClampQuantity coerces v to a non-negative whole quantity: floor, negative
// becomes 0, anything non-numeric becomes 0.
func ClampQuantity(v any) int {
	d, ok := toDecimal(v)
	if !ok {
		return 0
	}
	d = d.Floor()
	if d.Sign() <= 0 {
		return 0
	}
	if d.GreaterThan(decimal.NewFromInt(math.MaxInt32)) {
		return math.MaxInt32
	}
	return int(d.IntPart())
}

func toDecimal(v any) (decimal.Decimal, bool) {
	switch n := v.(type) {
	case int:
		return decimal.NewFromInt(int64(n)), true
	case int8:
		return decimal.NewFromInt(int64(n)), true
	case int16:
		return decimal.NewFromInt(int64(n)), true
	case int32:
		return decimal.NewFromInt(int64(n)), true
	case int64:
		return decimal.NewFromInt(n), true
	case uint:
		return fromUint(uint64(n)), true
	case uint8:
		return fromUint(uint64(n)), true
	case uint16:
		return fromUint(uint64(n)), true
	case uint32:
		return fromUint(uint64(n)), true
	case uint64:
		return fromUint(n), true
	case float32:
		return fromFloat(float64(n))
	case float64:
		return fromFloat(n)
	case decimal.Decimal:
		return n, true
	case json.Number:
		return fromString(n.String())
	case string:
		return fromString(n)
	}
	return decimal.Decimal{}, false
}

func fromUint(n uint64) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(n), 0)
}

func fromFloat(f float64) (decimal.Decimal, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return decimal.Decimal{}, false
	}
	return decimal.NewFromFloat(f), true
}

func fromString(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(strings.Replace(s, ",", ".", 1))
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, false
	}
	return d, true
}

// UpdateOptimistic returns a copy of c with lineID set to the clamped quantity.
// A zero quantity removes the line. Subtotals are always derived locally.
func UpdateOptimistic(c Cart, lineID string, newQty any) Cart {
	qty := ClampQuantity(newQty)
	out := Cart{Ref: c.Ref, Lines: make([]Line, 0, len(c.Lines))}
	for _, l := range c.Lines {
		if l.ID != lineID {
			out.Lines = append(out.Lines, l)
			continue
		}
		if qty == 0 {
			continue
		}
		l.Quantity = qty
		l.SubtotalCents = l.UnitPriceCents * int64(qty)
		out.Lines = append(out.Lines, l)
	}
	return out
}
