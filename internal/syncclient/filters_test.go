package syncclient

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ariefcatur/go-bar-pos/internal/fulfillment"
)

func TestFiltersRange(t *testing.T) {
	brt := time.FixedZone("BRT", -3*3600)
	// 01:30 UTC ainda é dia 2 em São Paulo
	now := time.Date(2025, 1, 3, 1, 30, 0, 0, time.UTC)

	cases := []struct {
		f        Filters
		from, to string
	}{
		{Filters{}, "", ""},
		{Filters{Preset: PresetToday}, "2025-01-02", "2025-01-02"},
		{Filters{Preset: PresetYesterday}, "2025-01-01", "2025-01-01"},
		{Filters{Preset: PresetLast7}, "2024-12-27", "2025-01-02"},
		{Filters{Preset: PresetCustom, From: "2025-01-01", To: "2025-01-07"}, "2025-01-01", "2025-01-07"},
	}
	for _, c := range cases {
		from, to := c.f.Range(now, brt)
		assert.Equal(t, c.from, from, string(c.f.Preset))
		assert.Equal(t, c.to, to, string(c.f.Preset))
	}
}

func TestSearchIgnoresAccentsAndCase(t *testing.T) {
	it := fulfillment.SaleItem{ProductName: "Porção de Fritas"}
	assert.True(t, matchSearch(it, "porcao"))
	assert.True(t, matchSearch(it, "FRITAS"))
	assert.True(t, matchSearch(it, "  "))
	assert.False(t, matchSearch(it, "chopp"))
	assert.True(t, matchSearch(fulfillment.SaleItem{ProductName: "Caipirinha Limão"}, "limao"))
}

func TestSearchMatchesItemNote(t *testing.T) {
	it := fulfillment.SaleItem{ProductName: "Caipirinha", Note: "Sem açúcar, limão extra"}
	assert.True(t, matchSearch(it, "acucar"))
	assert.True(t, matchSearch(it, "LIMAO EXTRA"))
	assert.False(t, matchSearch(it, "gelo"))
	assert.False(t, matchSearch(fulfillment.SaleItem{ProductName: "Chopp"}, "sem"))
}

func TestFiltersEqual(t *testing.T) {
	a := Filters{Status: fulfillment.StatusDelivered, Employees: []string{"e1"}}
	assert.True(t, a.equal(Filters{Status: fulfillment.StatusDelivered, Employees: []string{"e1"}}))
	assert.False(t, a.equal(Filters{Status: fulfillment.StatusDelivered, Employees: []string{"e2"}}))
	assert.False(t, a.equal(Filters{Status: fulfillment.StatusDelivered, Search: "x", Employees: []string{"e1"}}))
}
