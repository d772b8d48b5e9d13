package httpx

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/ariefcatur/go-bar-pos/internal/money"
	"github.com/ariefcatur/go-bar-pos/internal/register"
)

const HeaderIdempotencyKey = "Idempotency-Key"

type openRegisterReq struct {
	OpeningCents int64 `json:"opening_cents"`
}

type closeRegisterReq struct {
	ClosingCents int64 `json:"closing_cents"`
}

// Amount is either amount_cents or a display string ("25,00", "R$ 1.234,56").
type postingReq struct {
	AmountCents *int64 `json:"amount_cents,omitempty"`
	Amount      string `json:"amount,omitempty"`
	Method      string `json:"method"`
}

type registerResp struct {
	register.Register
	ExpectedCashCents int64 `json:"expected_cash_cents"`
}

func toRegisterResp(r register.Register) registerResp {
	return registerResp{Register: r, ExpectedCashCents: r.ExpectedCashCents()}
}

func (a *API) openRegister(w http.ResponseWriter, r *http.Request) {
	var req openRegisterReq
	if err := decode(r, &req); err != nil {
		badRequest(w, "invalid json")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	reg, err := a.Register.Open(ctx, EmployeeFrom(ctx), req.OpeningCents)
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusCreated, toRegisterResp(reg), nil)
}

func (a *API) postSale(w http.ResponseWriter, r *http.Request) {
	var req postingReq
	if err := decode(r, &req); err != nil {
		badRequest(w, "invalid json")
		return
	}
	method, err := register.ParseMethod(req.Method)
	if err != nil {
		writeError(w, err)
		return
	}
	var amount int64
	switch {
	case req.AmountCents != nil:
		amount = *req.AmountCents
	case req.Amount != "":
		amount, err = money.ParseCents(req.Amount)
		if err != nil {
			writeError(w, err)
			return
		}
	default:
		badRequest(w, "amount is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	var (
		reg    register.Register
		replay bool
	)
	if key := strings.TrimSpace(r.Header.Get(HeaderIdempotencyKey)); key != "" {
		reg, replay, err = a.Register.PostSaleOnce(ctx, key, amount, method)
	} else {
		reg, err = a.Register.PostSale(ctx, amount, method)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	if !replay {
		a.countPosting(method)
	}
	writeData(w, http.StatusOK, toRegisterResp(reg), map[string]any{"idempotent": replay})
}

func (a *API) closeRegister(w http.ResponseWriter, r *http.Request) {
	var req closeRegisterReq
	if err := decode(r, &req); err != nil {
		badRequest(w, "invalid json")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	reg, err := a.Register.Close(ctx, EmployeeFrom(ctx), req.ClosingCents)
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, toRegisterResp(reg), nil)
}

func (a *API) currentRegister(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	reg, err := a.Register.Current(ctx)
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, toRegisterResp(reg), nil)
}

func (a *API) countPosting(m register.Method) {
	if a.Metrics != nil {
		a.Metrics.RegisterPostings.WithLabelValues(string(m)).Inc()
	}
}
