package httpx

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ariefcatur/go-bar-pos/internal/cart"
)

type cartLineReq struct {
	Quantity       any    `json:"quantity"`
	ProductName    string `json:"product_name"`
	SectorID       string `json:"sector_id,omitempty"`
	UnitPriceCents int64  `json:"unit_price_cents"`
	Seq            int64  `json:"seq,omitempty"`
}

type cartResp struct {
	cart.Cart
	TotalCents int64 `json:"total_cents"`
}

func (a *API) getCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	c, err := a.Carts.Get(ctx, chi.URLParam(r, "ref"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, cartResp{Cart: c, TotalCents: c.TotalCents()}, nil)
}

// setCartLine sets a line's quantity. Whatever the tablet sends as quantity
// (number, string, garbage) is clamped to a non-negative integer first.
func (a *API) setCartLine(w http.ResponseWriter, r *http.Request) {
	var req cartLineReq
	if err := decode(r, &req); err != nil {
		badRequest(w, "invalid json")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	c, applied, err := a.Carts.SetLine(ctx, chi.URLParam(r, "ref"), cart.LineInput{
		ProductID:      chi.URLParam(r, "productId"),
		ProductName:    req.ProductName,
		SectorID:       req.SectorID,
		Quantity:       cart.ClampQuantity(req.Quantity),
		UnitPriceCents: req.UnitPriceCents,
		Seq:            req.Seq,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, cartResp{Cart: c, TotalCents: c.TotalCents()}, map[string]any{"applied": applied})
}

func (a *API) clearCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	if err := a.Carts.Clear(ctx, chi.URLParam(r, "ref")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
