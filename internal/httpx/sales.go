package httpx

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ariefcatur/go-bar-pos/internal/config"
	"github.com/ariefcatur/go-bar-pos/internal/events"
	"github.com/ariefcatur/go-bar-pos/internal/fulfillment"
	"github.com/ariefcatur/go-bar-pos/internal/register"
)

type submitSaleReq struct {
	fulfillment.SaleInput
	CartRef       string `json:"cart_ref,omitempty"`
	PaymentMethod string `json:"payment_method,omitempty"`
}

type advanceReq struct {
	Status string `json:"status"`
	Units  int    `json:"units,omitempty"`
}

func (a *API) submitSale(w http.ResponseWriter, r *http.Request) {
	var req submitSaleReq
	if err := decode(r, &req); err != nil {
		badRequest(w, "invalid json")
		return
	}
	var method register.Method
	if req.PaymentMethod != "" {
		m, err := register.ParseMethod(req.PaymentMethod)
		if err != nil {
			writeError(w, err)
			return
		}
		method = m
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	sale, err := a.Sales.SubmitSale(ctx, EmployeeFrom(ctx), req.SaleInput)
	if err != nil {
		writeError(w, err)
		return
	}

	// sale sudah tersimpan; kegagalan di bawah ini cuma dicatat
	meta := map[string]any{}
	if req.CartRef != "" && a.Carts != nil {
		if err := a.Carts.Clear(ctx, req.CartRef); err != nil {
			logf("sales: clear cart %s: %v", req.CartRef, err)
		}
	}
	if method != "" && a.Register != nil {
		reg, replay, err := a.Register.PostSaleOnce(ctx, "sale:"+sale.ID, sale.TotalCents(), method)
		if err != nil {
			logf("sales: post %s to register: %v", sale.ID, err)
			meta["register_error"] = err.Error()
		} else {
			meta["register_id"] = reg.ID
			if !replay {
				a.countPosting(method)
			}
		}
	}
	if len(meta) == 0 {
		meta = nil
	}
	writeData(w, http.StatusCreated, sale, meta)
}

func (a *API) getSale(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	sale, err := a.Sales.GetSale(ctx, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, sale, nil)
}

func (a *API) listSectors(w http.ResponseWriter, r *http.Request) {
	sectors := a.Sectors
	if sectors == nil {
		sectors = config.Sectors{}
	}
	writeData(w, http.StatusOK, sectors, nil)
}

func (a *API) listQueue(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	status := fulfillment.StatusPending
	if s := q.Get("status"); s != "" {
		st, err := fulfillment.ParseStatus(s)
		if err != nil {
			writeError(w, err)
			return
		}
		status = st
	}
	f := fulfillment.Filters{
		From:      q.Get("from"),
		To:        q.Get("to"),
		Employees: fulfillment.SplitEmployees(q.Get("employees")),
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	res, err := a.Sales.ListQueue(ctx, chi.URLParam(r, "id"), status, f)
	if err != nil {
		writeError(w, err)
		return
	}
	items := res.Items
	if items == nil {
		items = []fulfillment.SaleItem{}
	}
	writeData(w, http.StatusOK, items, map[string]any{"fallback": res.Fallback, "count": len(items)})
}

func (a *API) advanceItem(w http.ResponseWriter, r *http.Request) {
	var req advanceReq
	if err := decode(r, &req); err != nil {
		badRequest(w, "invalid json")
		return
	}
	next, err := fulfillment.ParseStatus(req.Status)
	if err != nil {
		writeError(w, err)
		return
	}
	if req.Units < 0 {
		badRequest(w, "units must not be negative")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	it, err := a.Sales.AdvanceUnits(ctx, chi.URLParam(r, "id"), next, req.Units, EmployeeFrom(ctx))
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, it, nil)
}

func (a *API) eventsSince(w http.ResponseWriter, r *http.Request) {
	var since time.Time
	if s := strings.TrimSpace(r.URL.Query().Get("since")); s != "" {
		t, err := parseSince(s)
		if err != nil {
			badRequest(w, "invalid since")
			return
		}
		since = t
	}
	evs := a.Events.Since(since)
	if evs == nil {
		evs = []events.Event{}
	}
	writeData(w, http.StatusOK, evs, map[string]any{"count": len(evs)})
}

// since bisa RFC3339 atau unix millis
func parseSince(s string) (time.Time, error) {
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.UnixMilli(ms), nil
	}
	return time.Parse(time.RFC3339Nano, s)
}
