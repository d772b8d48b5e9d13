package register

import (
	"bytes"
	"context"
	"io"
	"log"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ariefcatur/go-bar-pos/internal/money"
	"github.com/ariefcatur/go-bar-pos/internal/redisx"
	"github.com/ariefcatur/go-bar-pos/internal/sqlite"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	db, err := sqlite.Open(filepath.Join(t.TempDir(), "pos.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	var mu sync.Mutex
	now := time.Date(2025, 1, 3, 18, 0, 0, 0, time.UTC)
	return &Service{
		Store:           &SQLiteStore{DB: db},
		DefaultOperator: "sistema",
		Now: func() time.Time {
			mu.Lock()
			defer mu.Unlock()
			now = now.Add(time.Second)
			return now
		},
		Log: log.New(io.Discard, "", 0),
	}
}

func TestPostSaleAutoOpensRegister(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	amount, err := money.ParseCents("25.00")
	require.NoError(t, err)
	m, err := ParseMethod("dinheiro")
	require.NoError(t, err)

	r, err := svc.PostSale(ctx, amount, m)
	require.NoError(t, err)
	assert.Equal(t, StatusOpen, r.Status)
	assert.Equal(t, "sistema", r.OpenedBy)
	assert.Equal(t, int64(0), r.OpeningCents)
	assert.Equal(t, int64(2500), r.TotalCashCents)
	assert.Equal(t, int64(2500), r.TotalSalesCents)
}

func TestPostSaleKeepsTotalsBalanced(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	_, err := svc.Open(ctx, "emp-1", 10000)
	require.NoError(t, err)

	posts := []struct {
		amount int64
		method string
	}{{1200, "cash"}, {3000, "cartão"}, {450, "pix"}, {800, "Cartao"}}
	var r Register
	for _, p := range posts {
		m, err := ParseMethod(p.method)
		require.NoError(t, err)
		r, err = svc.PostSale(ctx, p.amount, m)
		require.NoError(t, err)
	}
	assert.Equal(t, int64(1200), r.TotalCashCents)
	assert.Equal(t, int64(3800), r.TotalCardCents)
	assert.Equal(t, int64(450), r.TotalPixCents)
	assert.Equal(t, r.TotalCashCents+r.TotalCardCents+r.TotalPixCents, r.TotalSalesCents)
	assert.Equal(t, int64(11200), r.ExpectedCashCents())
}

func TestConcurrentPostsAreAtomic(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			m := []Method{MethodCash, MethodCard, MethodPix}[i%3]
			_, err := svc.PostSale(ctx, 100, m)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	r, err := svc.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2000), r.TotalSalesCents)
	assert.Equal(t, r.TotalSalesCents, r.TotalCashCents+r.TotalCardCents+r.TotalPixCents)
}

func TestOpenConflict(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	_, err := svc.Open(ctx, "emp-1", 0)
	require.NoError(t, err)
	_, err = svc.Open(ctx, "emp-2", 0)
	assert.ErrorIs(t, err, ErrConflict)
}

func TestCloseLifecycle(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Close(ctx, "emp-1", 0)
	assert.ErrorIs(t, err, ErrNotFound, "never opened")

	opened, err := svc.Open(ctx, "emp-1", 5000)
	require.NoError(t, err)
	closed, err := svc.Close(ctx, "emp-2", 7500)
	require.NoError(t, err)
	assert.Equal(t, StatusClosed, closed.Status)
	require.NotNil(t, closed.ClosedAt)
	require.NotNil(t, closed.ClosedBy)
	assert.Equal(t, "emp-2", *closed.ClosedBy)
	require.NotNil(t, closed.ClosingCents)
	assert.Equal(t, int64(7500), *closed.ClosingCents)

	_, err = svc.Close(ctx, "emp-1", 0)
	assert.ErrorIs(t, err, ErrAlreadyClosed)
	_, err = svc.CloseByID(ctx, opened.ID, "emp-1", 0)
	assert.ErrorIs(t, err, ErrAlreadyClosed)
	_, err = svc.CloseByID(ctx, "missing", "emp-1", 0)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.Current(ctx)
	assert.ErrorIs(t, err, ErrNoOpenRegister)

	// a new shift can start after closing
	next, err := svc.Open(ctx, "emp-1", 0)
	require.NoError(t, err)
	assert.NotEqual(t, opened.ID, next.ID)
}

func TestPostSaleValidation(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.PostSale(context.Background(), 0, MethodCash)
	assert.ErrorIs(t, err, ErrInvalidAmount)
	_, err = svc.PostSale(context.Background(), 100, Method("cheque"))
	assert.ErrorIs(t, err, ErrInvalidMethod)
	_, err = ParseMethod("cheque")
	assert.ErrorIs(t, err, ErrInvalidMethod)
}

func TestPostSaleOnceDeduplicatesRetries(t *testing.T) {
	svc := newTestService(t)
	mr := miniredis.RunT(t)
	svc.Redis = redisx.New(mr.Addr())
	t.Cleanup(func() { svc.Redis.Close() })
	ctx := context.Background()

	r1, replay, err := svc.PostSaleOnce(ctx, "req-1", 2500, MethodPix)
	require.NoError(t, err)
	assert.False(t, replay)

	r2, replay, err := svc.PostSaleOnce(ctx, "req-1", 2500, MethodPix)
	require.NoError(t, err)
	assert.True(t, replay)
	assert.Equal(t, r1.ID, r2.ID)
	assert.Equal(t, int64(2500), r2.TotalSalesCents, "posted once")

	_, _, err = svc.PostSaleOnce(ctx, "req-2", 100, MethodPix)
	require.NoError(t, err)
	cur, err := svc.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2600), cur.TotalSalesCents)
}

func TestPostSaleOnceInProgress(t *testing.T) {
	svc := newTestService(t)
	mr := miniredis.RunT(t)
	svc.Redis = redisx.New(mr.Addr())
	t.Cleanup(func() { svc.Redis.Close() })

	require.NoError(t, mr.Set("idem:register:post:req-9", ""))
	_, _, err := svc.PostSaleOnce(context.Background(), "req-9", 100, MethodCash)
	assert.ErrorIs(t, err, ErrInProgress)
}

// postHook runs after a successful Post, e.g. to break redis mid-request.
type postHook struct {
	Store
	after func()
}

func (h *postHook) Post(ctx context.Context, amountCents int64, m Method) (Register, error) {
	r, err := h.Store.Post(ctx, amountCents, m)
	if err == nil && h.after != nil {
		h.after()
	}
	return r, err
}

func TestPostSaleOnceMarkerExpiresWhenResultIsLost(t *testing.T) {
	svc := newTestService(t)
	mr := miniredis.RunT(t)
	svc.Redis = redisx.New(mr.Addr())
	t.Cleanup(func() { svc.Redis.Close() })
	var logs bytes.Buffer
	svc.Log = log.New(&logs, "", 0)
	ctx := context.Background()
	key := "idem:register:post:req-5"

	var markerTTL time.Duration
	svc.Store = &postHook{Store: svc.Store, after: func() {
		markerTTL = mr.TTL(key)
		mr.SetError("ERR disk full")
	}}
	_, replay, err := svc.PostSaleOnce(ctx, "req-5", 700, MethodCard)
	require.NoError(t, err, "posting landed even though the key could not be recorded")
	assert.False(t, replay)
	assert.Equal(t, redisx.TTLInProgress, markerTTL)
	assert.Contains(t, logs.String(), "record idempotency key req-5")

	mr.SetError("")
	svc.Store = svc.Store.(*postHook).Store

	// marker masih hidup: retry ditolak sebagai in-progress
	_, _, err = svc.PostSaleOnce(ctx, "req-5", 700, MethodCard)
	assert.ErrorIs(t, err, ErrInProgress)

	// setelah expire, retry tidak terkunci seharian
	mr.FastForward(redisx.TTLInProgress + time.Second)
	_, replay, err = svc.PostSaleOnce(ctx, "req-5", 700, MethodCard)
	require.NoError(t, err)
	assert.False(t, replay)
}

func TestPostSaleOnceKeepsResultForADay(t *testing.T) {
	svc := newTestService(t)
	mr := miniredis.RunT(t)
	svc.Redis = redisx.New(mr.Addr())
	t.Cleanup(func() { svc.Redis.Close() })

	r, _, err := svc.PostSaleOnce(context.Background(), "req-6", 100, MethodPix)
	require.NoError(t, err)
	got, err := mr.Get("idem:register:post:req-6")
	require.NoError(t, err)
	assert.Equal(t, r.ID, got)
	assert.Equal(t, redisx.TTLIdempotency, mr.TTL("idem:register:post:req-6"))
}
