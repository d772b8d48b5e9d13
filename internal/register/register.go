package register

import (
	"errors"
	"strings"
	"time"
)

type Status string

const (
	StatusOpen   Status = "open"
	StatusClosed Status = "closed"
)

type Method string

const (
	MethodCash Method = "cash"
	MethodCard Method = "card"
	MethodPix  Method = "pix"
)

var (
	ErrNotFound       = errors.New("register not found")
	ErrConflict       = errors.New("a register is already open")
	ErrNoOpenRegister = errors.New("no open register")
	ErrAlreadyClosed  = errors.New("register already closed")
	ErrInvalidMethod  = errors.New("invalid payment method")
	ErrInvalidAmount  = errors.New("invalid amount")
	ErrInProgress     = errors.New("posting with this idempotency key is in progress")
)

// ParseMethod accepts the Portuguese names used on the floor as well as the English ones.
func ParseMethod(s string) (Method, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "dinheiro", "cash":
		return MethodCash, nil
	case "cartao", "cartão", "card":
		return MethodCard, nil
	case "pix":
		return MethodPix, nil
	}
	return "", ErrInvalidMethod
}

// Register is one shift of the cash drawer (caixa). TotalSalesCents always
// equals the sum of the three method buckets.
type Register struct {
	ID              string     `json:"id"`
	OpenedBy        string     `json:"opened_by"`
	OpenedAt        time.Time  `json:"opened_at"`
	ClosedBy        *string    `json:"closed_by,omitempty"`
	ClosedAt        *time.Time `json:"closed_at,omitempty"`
	OpeningCents    int64      `json:"opening_cents"`
	ClosingCents    *int64     `json:"closing_cents,omitempty"`
	TotalSalesCents int64      `json:"total_sales_cents"`
	TotalCashCents  int64      `json:"total_cash_cents"`
	TotalCardCents  int64      `json:"total_card_cents"`
	TotalPixCents   int64      `json:"total_pix_cents"`
	Status          Status     `json:"status"`
}

// ExpectedCashCents is what should be in the drawer: float plus cash sales.
func (r Register) ExpectedCashCents() int64 {
	return r.OpeningCents + r.TotalCashCents
}

// column maps a method to its bucket column. Never built from user input.
func (m Method) column() string {
	switch m {
	case MethodCash:
		return "total_cash_cents"
	case MethodCard:
		return "total_card_cents"
	case MethodPix:
		return "total_pix_cents"
	}
	return ""
}
