package syncclient

import (
	"sort"
	"strconv"

	"github.com/ariefcatur/go-bar-pos/internal/fulfillment"
)

// ViewItem is one physical unit on screen. RealID is the stored item it
// came from; Key is only stable within one fetch.
type ViewItem struct {
	fulfillment.SaleItem
	RealID string `json:"real_id"`
	Key    string `json:"key"`
	Unit   int    `json:"unit"`
}

// Expand turns every item of quantity N into N single-unit rows, ordered by
// creation time, then RealID, then unit index.
func Expand(items []fulfillment.SaleItem) []ViewItem {
	n := 0
	for _, it := range items {
		if it.Quantity > 0 {
			n += it.Quantity
		}
	}
	out := make([]ViewItem, 0, n)
	for _, it := range items {
		for k := 0; k < it.Quantity; k++ {
			unit := it
			unit.Quantity = 1
			out = append(out, ViewItem{
				SaleItem: unit,
				RealID:   it.ID,
				Key:      it.ID + "-" + strconv.Itoa(k),
				Unit:     k,
			})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		if a.RealID != b.RealID {
			return a.RealID < b.RealID
		}
		return a.Unit < b.Unit
	})
	return out
}
