package cart

import (
	"encoding/json"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClampQuantity(t *testing.T) {
	cases := []struct {
		in   any
		want int
	}{
		{-5, 0},
		{"3.7", 3},
		{"3,7", 3},
		{3.99, 3},
		{float32(2.5), 2},
		{int64(7), 7},
		{uint8(4), 4},
		{0, 0},
		{-0.5, 0},
		{"abc", 0},
		{"", 0},
		{nil, 0},
		{true, 0},
		{math.NaN(), 0},
		{math.Inf(1), 0},
		{json.Number("12"), 12},
		{" 5 ", 5},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, ClampQuantity(c.in), "%#v", c.in)
	}
}

func TestUpdateOptimistic_NegativeRemovesLine(t *testing.T) {
	c := Cart{Lines: []Line{{ID: "i2", Quantity: 1, UnitPriceCents: 1200, SubtotalCents: 1200}}}
	got := UpdateOptimistic(c, "i2", -5)
	assert.Empty(t, got.Lines)
	assert.Len(t, c.Lines, 1, "input cart untouched")
}

func TestUpdateOptimistic_RecomputesSubtotal(t *testing.T) {
	c := Cart{Lines: []Line{
		{ID: "i1", Quantity: 1, UnitPriceCents: 800, SubtotalCents: 800},
		// subtotal vindo do servidor errado, deve ser ignorado
		{ID: "i2", Quantity: 1, UnitPriceCents: 1200, SubtotalCents: 99999},
	}}
	got := UpdateOptimistic(c, "i2", "3.7")
	require.Len(t, got.Lines, 2)
	l, ok := got.Line("i2")
	require.True(t, ok)
	assert.Equal(t, 3, l.Quantity)
	assert.Equal(t, int64(3600), l.SubtotalCents)
	assert.Equal(t, int64(4400), got.TotalCents())
}

func TestUpdateOptimistic_UnknownLineIsNoop(t *testing.T) {
	c := Cart{Lines: []Line{{ID: "i1", Quantity: 2, UnitPriceCents: 100, SubtotalCents: 200}}}
	assert.Equal(t, c, UpdateOptimistic(c, "zz", 5))
}

func TestStaleResponseIsDiscarded(t *testing.T) {
	ctl := NewController(Cart{Lines: []Line{{ID: "i1", Quantity: 1, UnitPriceCents: 500, SubtotalCents: 500}}})

	seq1 := ctl.Change("i1", 2)
	seq2 := ctl.Change("i1", 3)
	require.Greater(t, seq2, seq1)

	// resposta de seq1 chega depois
	assert.False(t, ctl.Resolve("i1", seq1, 2))
	assert.True(t, ctl.Resolve("i1", seq2, 3))

	l, ok := ctl.Cart().Line("i1")
	require.True(t, ok)
	assert.Equal(t, 3, l.Quantity)
	assert.Equal(t, int64(1500), l.SubtotalCents)
}

func TestSequencerIsPerLine(t *testing.T) {
	s := NewSequencer()
	a := s.Next("a")
	b := s.Next("b")
	assert.True(t, s.IsLatest("a", a))
	assert.True(t, s.IsLatest("b", b))
	assert.False(t, s.IsLatest("c", 1))

	s.Next("a")
	assert.False(t, s.IsLatest("a", a))
	s.Forget("b")
	assert.False(t, s.IsLatest("b", b))
}

func TestSequencerConcurrentNextIsMonotonic(t *testing.T) {
	s := NewSequencer()
	var wg sync.WaitGroup
	seen := make(chan int64, 400)
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				seen <- s.Next("line")
			}
		}()
	}
	wg.Wait()
	close(seen)
	uniq := map[int64]bool{}
	for v := range seen {
		uniq[v] = true
	}
	assert.Len(t, uniq, 400)
	assert.True(t, s.IsLatest("line", 400))
}

func TestControllerAdd(t *testing.T) {
	ctl := NewController(Cart{})
	ctl.Add(Line{ID: "p1", Quantity: 1, UnitPriceCents: 700})
	ctl.Add(Line{ID: "p1", Quantity: 2, UnitPriceCents: 700})
	ctl.Add(Line{ID: "p2", Quantity: 0, UnitPriceCents: 100})

	c := ctl.Cart()
	require.Len(t, c.Lines, 1)
	assert.Equal(t, 3, c.Lines[0].Quantity)
	assert.Equal(t, int64(2100), c.TotalCents())
}

func TestAddSupersedesInFlightChange(t *testing.T) {
	ctl := NewController(Cart{})
	_, _ = ctl.Add(Line{ID: "l1", Quantity: 1, UnitPriceCents: 1000})

	seq1 := ctl.Change("l1", 2)
	seq2, qty := ctl.Add(Line{ID: "l1", Quantity: 1, UnitPriceCents: 1000})
	require.Greater(t, seq2, seq1)
	assert.Equal(t, 3, qty)

	// respons telat dari Change tidak boleh menimpa Add
	assert.False(t, ctl.Resolve("l1", seq1, 2))
	l, ok := ctl.Cart().Line("l1")
	require.True(t, ok)
	assert.Equal(t, 3, l.Quantity)

	assert.True(t, ctl.Resolve("l1", seq2, 3))
	l, _ = ctl.Cart().Line("l1")
	assert.Equal(t, int64(3000), l.SubtotalCents)
}

func TestAddNothingReturnsZeroSeq(t *testing.T) {
	ctl := NewController(Cart{})
	seq, qty := ctl.Add(Line{ID: "p2", Quantity: 0, UnitPriceCents: 100})
	assert.Zero(t, seq)
	assert.Zero(t, qty)
	assert.Empty(t, ctl.Cart().Lines)
}
