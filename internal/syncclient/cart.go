package syncclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync"

	"github.com/ariefcatur/go-bar-pos/internal/cart"
)

// CartLine is the body of PUT /carts/{ref}/lines/{productId}.
type CartLine struct {
	Quantity       int    `json:"quantity"`
	ProductName    string `json:"product_name,omitempty"`
	SectorID       string `json:"sector_id,omitempty"`
	UnitPriceCents int64  `json:"unit_price_cents"`
	Seq            int64  `json:"seq,omitempty"`
}

func decodeCart(env envelope) (cart.Cart, error) {
	var c cart.Cart
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return c, nil
	}
	if err := json.Unmarshal(env.Data, &c); err != nil {
		return cart.Cart{}, fmt.Errorf("decode cart: %w", err)
	}
	return c, nil
}

func (h *HTTPFetcher) Cart(ctx context.Context, ref string) (cart.Cart, error) {
	env, err := h.do(ctx, http.MethodGet, "/carts/"+url.PathEscape(ref), nil)
	if err != nil {
		return cart.Cart{}, err
	}
	return decodeCart(env)
}

// SetCartLine stores one line. applied is false when the server already
// holds a newer seq for it; the returned cart is the server's view either way.
func (h *HTTPFetcher) SetCartLine(ctx context.Context, ref, productID string, l CartLine) (cart.Cart, bool, error) {
	env, err := h.do(ctx, http.MethodPut, "/carts/"+url.PathEscape(ref)+"/lines/"+url.PathEscape(productID), l)
	if err != nil {
		return cart.Cart{}, false, err
	}
	c, err := decodeCart(env)
	return c, env.Meta.Applied, err
}

// CartSession drives one open cart from a tablet. Every tap updates the
// local cart at once and sends the request in the background; responses
// that arrive after a newer tap on the same line are dropped.
type CartSession struct {
	API *HTTPFetcher
	Ref string
	Ctl *cart.Controller
	// OnResult is called once per request with what happened to it.
	OnResult func(TapResult)

	wg sync.WaitGroup
}

type TapResult struct {
	ProductID string
	Seq       int64
	Quantity  int  // quantity sent
	Applied   bool // stored by the server
	Current   bool // response was the latest for the line and updated the local cart
	Err       error
}

// Add bumps a product by l.Quantity, creating the line when needed.
func (s *CartSession) Add(ctx context.Context, l cart.Line) {
	seq, qty := s.Ctl.Add(l)
	if seq == 0 {
		return
	}
	s.send(ctx, l.ID, seq, qty)
}

// Set replaces a line's quantity; anything that does not clamp to a
// positive whole number removes the line.
func (s *CartSession) Set(ctx context.Context, productID string, qty any) {
	seq := s.Ctl.Change(productID, qty)
	s.send(ctx, productID, seq, cart.ClampQuantity(qty))
}

// Wait blocks until every request sent so far has been resolved.
func (s *CartSession) Wait() { s.wg.Wait() }

func (s *CartSession) send(ctx context.Context, productID string, seq int64, qty int) {
	body := CartLine{Quantity: qty, Seq: seq}
	if l, ok := s.Ctl.Cart().Line(productID); ok {
		body.ProductName, body.SectorID, body.UnitPriceCents = l.ProductName, l.SectorID, l.UnitPriceCents
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		res := TapResult{ProductID: productID, Seq: seq, Quantity: qty}
		c, applied, err := s.API.SetCartLine(ctx, s.Ref, productID, body)
		if err != nil {
			// local cart tetap optimistis; tap berikutnya atau reload yang benerin
			res.Err = err
		} else {
			res.Applied = applied
			serverQty := 0
			if l, ok := c.Line(productID); ok {
				serverQty = l.Quantity
			}
			res.Current = s.Ctl.Resolve(productID, seq, serverQty)
		}
		if s.OnResult != nil {
			s.OnResult(res)
		}
	}()
}
