package cart

import "sync"

// Sequencer stamps every quantity intent at tap time. Numbers are
// monotonic across the whole process, latest is tracked per line.
type Sequencer struct {
	mu     sync.Mutex
	last   int64
	latest map[string]int64
}

func NewSequencer() *Sequencer {
	return &Sequencer{latest: make(map[string]int64)}
}

func (s *Sequencer) Next(lineKey string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last++
	if s.latest == nil {
		s.latest = make(map[string]int64)
	}
	s.latest[lineKey] = s.last
	return s.last
}

func (s *Sequencer) IsLatest(lineKey string, seq int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.latest[lineKey]
	return ok && cur == seq
}

// Forget drops the line, e.g. after the cart was submitted.
func (s *Sequencer) Forget(lineKey string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.latest, lineKey)
}

// Controller owns the locally displayed cart and guards it against
// out-of-order responses.
type Controller struct {
	seq  *Sequencer
	mu   sync.Mutex
	cart Cart
}

func NewController(c Cart) *Controller {
	return &Controller{seq: NewSequencer(), cart: c}
}

// NewControllerFrom numbers intents after base. Tablets seed it from the
// clock so a new session still outranks what an earlier one stored.
func NewControllerFrom(c Cart, base int64) *Controller {
	s := NewSequencer()
	s.last = base
	return &Controller{seq: s, cart: c}
}

// Change applies qty optimistically and returns the sequence stamped for it.
// The caller sends the request and later hands the response to Resolve.
func (c *Controller) Change(lineID string, qty any) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	seq := c.seq.Next(lineID)
	c.cart = UpdateOptimistic(c.cart, lineID, qty)
	return seq
}

// ApplyIfLatest runs apply only when seq is still the newest intent for lineKey.
// Superseded responses are inert.
func (c *Controller) ApplyIfLatest(lineKey string, seq int64, apply func(Cart) Cart) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.seq.IsLatest(lineKey, seq) {
		return false
	}
	c.cart = apply(c.cart)
	return true
}

// Resolve applies the server's quantity for the line if seq is the latest.
func (c *Controller) Resolve(lineID string, seq int64, serverQty any) bool {
	return c.ApplyIfLatest(lineID, seq, func(cur Cart) Cart {
		return UpdateOptimistic(cur, lineID, serverQty)
	})
}

// Add puts a line into the cart (or bumps its quantity) without a round-trip.
// It is a quantity intent like Change: the returned seq supersedes every
// request still in flight for the line, and qty is what the server must get.
// seq is 0 when nothing changed.
func (c *Controller) Add(l Line) (seq int64, qty int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cur, ok := c.cart.Line(l.ID); ok {
		c.cart = UpdateOptimistic(c.cart, l.ID, cur.Quantity+l.Quantity)
		after, _ := c.cart.Line(l.ID)
		return c.seq.Next(l.ID), after.Quantity
	}
	l.Quantity = ClampQuantity(l.Quantity)
	if l.Quantity == 0 {
		return 0, 0
	}
	l.SubtotalCents = l.UnitPriceCents * int64(l.Quantity)
	c.cart.Lines = append(c.cart.Lines, l)
	return c.seq.Next(l.ID), l.Quantity
}

func (c *Controller) Cart() Cart {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := c.cart
	out.Lines = append([]Line(nil), c.cart.Lines...)
	return out
}
