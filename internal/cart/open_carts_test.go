package cart

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ariefcatur/go-bar-pos/internal/redisx"
)

func newOpenCarts(t *testing.T) (*OpenCarts, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redisx.New(mr.Addr())
	t.Cleanup(func() { rdb.Close() })
	ms := int64(0)
	return &OpenCarts{Redis: rdb, Now: func() time.Time {
		ms++
		return time.UnixMilli(ms)
	}}, mr
}

func TestOpenCarts_SetGetClear(t *testing.T) {
	oc, mr := newOpenCarts(t)
	ctx := context.Background()

	_, ok, err := oc.SetLine(ctx, "mesa-4", LineInput{ProductID: "chopp", ProductName: "Chopp", Quantity: 2, UnitPriceCents: 1200, Seq: 1})
	require.NoError(t, err)
	assert.True(t, ok)
	c, ok, err := oc.SetLine(ctx, "mesa-4", LineInput{ProductID: "fritas", ProductName: "Fritas", Quantity: 1, UnitPriceCents: 2500, Seq: 2})
	require.NoError(t, err)
	assert.True(t, ok)

	require.Len(t, c.Lines, 2)
	assert.Equal(t, "chopp", c.Lines[0].ID, "ordered by first add")
	assert.Equal(t, int64(4900), c.TotalCents())
	assert.Equal(t, redisx.TTLCart, mr.TTL("cart:mesa-4"))

	require.NoError(t, oc.Clear(ctx, "mesa-4"))
	c, err = oc.Get(ctx, "mesa-4")
	require.NoError(t, err)
	assert.Empty(t, c.Lines)
}

func TestOpenCarts_StaleSeqIgnored(t *testing.T) {
	oc, _ := newOpenCarts(t)
	ctx := context.Background()

	_, _, err := oc.SetLine(ctx, "c1", LineInput{ProductID: "p", Quantity: 3, UnitPriceCents: 100, Seq: 2})
	require.NoError(t, err)

	c, applied, err := oc.SetLine(ctx, "c1", LineInput{ProductID: "p", Quantity: 2, UnitPriceCents: 100, Seq: 1})
	require.NoError(t, err)
	assert.False(t, applied)
	require.Len(t, c.Lines, 1)
	assert.Equal(t, 3, c.Lines[0].Quantity)
}

func TestOpenCarts_ZeroRemovesAndStaysRemoved(t *testing.T) {
	oc, _ := newOpenCarts(t)
	ctx := context.Background()

	_, _, err := oc.SetLine(ctx, "c1", LineInput{ProductID: "p", Quantity: 1, UnitPriceCents: 100, Seq: 1})
	require.NoError(t, err)
	c, applied, err := oc.SetLine(ctx, "c1", LineInput{ProductID: "p", Quantity: -5, UnitPriceCents: 100, Seq: 3})
	require.NoError(t, err)
	assert.True(t, applied)
	assert.Empty(t, c.Lines)

	c, applied, err = oc.SetLine(ctx, "c1", LineInput{ProductID: "p", Quantity: 4, UnitPriceCents: 100, Seq: 2})
	require.NoError(t, err)
	assert.False(t, applied)
	assert.Empty(t, c.Lines)
}

func TestOpenCarts_InvalidInput(t *testing.T) {
	oc, _ := newOpenCarts(t)
	_, _, err := oc.SetLine(context.Background(), "", LineInput{ProductID: "p"})
	assert.ErrorIs(t, err, ErrInvalidLine)
	_, _, err = oc.SetLine(context.Background(), "c", LineInput{ProductID: "p", UnitPriceCents: -1})
	assert.ErrorIs(t, err, ErrInvalidLine)
}
