package syncclient

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/ariefcatur/go-bar-pos/internal/events"
	"github.com/ariefcatur/go-bar-pos/internal/fulfillment"
)

const DefaultPollInterval = 30 * time.Second

const AdvisoryFallback = "Itens sem setor exibidos (modo compatibilidade). Verifique o cadastro dos produtos."

type State int

const (
	StateIdle State = iota
	StateLoading
	StateDisplaying
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateDisplaying:
		return "displaying"
	}
	return "idle"
}

// Query is what one fetch asks the server for.
type Query struct {
	SectorID  string
	Status    fulfillment.Status
	From, To  string
	Employees []string
}

// Fetcher talks to the API. HTTPFetcher is the real one.
type Fetcher interface {
	Queue(ctx context.Context, q Query) (fulfillment.QueueResult, error)
	Advance(ctx context.Context, itemID string, next fulfillment.Status, units int) error
}

type Snapshot struct {
	State         State      `json:"state"`
	Items         []ViewItem `json:"items"`
	Filters       Filters    `json:"filters"`
	Advisory      string     `json:"advisory,omitempty"`
	Error         string     `json:"error,omitempty"`
	PushConnected bool       `json:"push_connected"`
	FetchedAt     time.Time  `json:"fetched_at"`
}

type Options struct {
	SectorID     string
	Filters      Filters
	PollInterval time.Duration
	Location     *time.Location
	Now          func() time.Time
	Log          *log.Logger
	// OnChange receives a snapshot after every state change.
	OnChange func(Snapshot)
}

// Client keeps one tablet queue screen in sync: polling is the floor,
// push events only make it faster.
type Client struct {
	fetcher Fetcher
	opts    Options

	loadMu sync.Mutex // satu fetch dalam satu waktu
	mu     sync.Mutex
	snap   Snapshot
	sales  map[string]bool

	wake chan struct{}
}

func New(f Fetcher, opts Options) *Client {
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Filters.Status == "" {
		opts.Filters.Status = fulfillment.StatusPending
	}
	return &Client{
		fetcher: f,
		opts:    opts,
		snap:    Snapshot{State: StateIdle, Filters: opts.Filters, Items: []ViewItem{}},
		sales:   map[string]bool{},
		wake:    make(chan struct{}, 1),
	}
}

func (c *Client) PollInterval() time.Duration { return c.opts.PollInterval }

// Run fetches immediately, then on every poll tick and every Refresh,
// until ctx is done.
func (c *Client) Run(ctx context.Context) error {
	t := time.NewTicker(c.opts.PollInterval)
	defer t.Stop()
	c.load(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		case <-c.wake:
		}
		c.load(ctx)
	}
}

// Load fetches once and waits for the result. Run does this on its own.
func (c *Client) Load(ctx context.Context) { c.load(ctx) }

// Refresh asks Run for a fetch without waiting for it.
func (c *Client) Refresh() {
	select {
	case c.wake <- struct{}{}:
	default:
	}
}

// SetFilters replaces the filters and refetches when anything changed.
func (c *Client) SetFilters(f Filters) {
	if f.Status == "" {
		f.Status = fulfillment.StatusPending
	}
	c.mu.Lock()
	changed := !c.snap.Filters.equal(f)
	c.snap.Filters = f
	c.mu.Unlock()
	if changed {
		c.Refresh()
	}
}

// HandlePush reacts to a push message: refresh when the sale is on screen,
// or on any sale while watching pending (new orders land there).
func (c *Client) HandlePush(msg events.PushMessage) {
	if msg.Type != events.TypeSaleUpdate {
		return
	}
	c.mu.Lock()
	relevant := c.sales[msg.Payload.SaleID] || c.snap.Filters.Status == fulfillment.StatusPending
	c.mu.Unlock()
	if relevant {
		c.Refresh()
	}
}

func (c *Client) SetPushConnected(ok bool) {
	c.mu.Lock()
	changed := c.snap.PushConnected != ok
	c.snap.PushConnected = ok
	snap := c.copyLocked()
	c.mu.Unlock()
	if changed {
		c.emit(snap)
	}
}

func (c *Client) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.copyLocked()
}

// Advance moves one unit to next and refetches.
func (c *Client) Advance(ctx context.Context, unit ViewItem, next fulfillment.Status) error {
	if err := c.fetcher.Advance(ctx, unit.RealID, next, 1); err != nil {
		return err
	}
	c.load(ctx)
	return nil
}

func (c *Client) load(ctx context.Context) {
	c.loadMu.Lock()
	defer c.loadMu.Unlock()

	c.mu.Lock()
	prev := c.snap.State
	c.snap.State = StateLoading
	f := c.snap.Filters
	snap := c.copyLocked()
	c.mu.Unlock()
	c.emit(snap)

	q := Query{SectorID: c.opts.SectorID, Status: f.Status}
	if f.Status == fulfillment.StatusDelivered {
		q.From, q.To = f.Range(c.opts.Now(), c.opts.Location)
		q.Employees = f.Employees
	}
	res, err := c.fetcher.Queue(ctx, q)

	c.mu.Lock()
	if err != nil {
		// layar tidak dikosongkan, tunggu poll berikutnya
		c.snap.Error = err.Error()
		if prev == StateIdle && c.snap.FetchedAt.IsZero() {
			c.snap.State = StateIdle
		} else {
			c.snap.State = StateDisplaying
		}
		snap = c.copyLocked()
		c.mu.Unlock()
		c.logf("sync: fetch %s/%s: %v", c.opts.SectorID, f.Status, err)
		c.emit(snap)
		return
	}

	// filter bisa berubah selama fetch; hasil tetap dipakai, Refresh sudah antri
	items := make([]fulfillment.SaleItem, 0, len(res.Items))
	sales := make(map[string]bool, len(res.Items))
	for _, it := range res.Items {
		sales[it.SaleID] = true
		if matchSearch(it, f.Search) {
			items = append(items, it)
		}
	}
	c.sales = sales
	c.snap.Items = Expand(items)
	c.snap.Error = ""
	c.snap.Advisory = ""
	if res.Fallback {
		c.snap.Advisory = AdvisoryFallback
	}
	c.snap.FetchedAt = c.opts.Now()
	c.snap.State = StateDisplaying
	snap = c.copyLocked()
	c.mu.Unlock()
	c.emit(snap)
}

func (c *Client) copyLocked() Snapshot {
	s := c.snap
	s.Items = append([]ViewItem(nil), c.snap.Items...)
	s.Filters.Employees = append([]string(nil), c.snap.Filters.Employees...)
	return s
}

func (c *Client) emit(s Snapshot) {
	if c.opts.OnChange != nil {
		c.opts.OnChange(s)
	}
}

func (c *Client) logf(format string, args ...any) {
	if c.opts.Log != nil {
		c.opts.Log.Printf(format, args...)
		return
	}
	log.Printf(format, args...)
}
