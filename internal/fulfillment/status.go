package fulfillment

import (
	"fmt"
	"strings"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusReady     Status = "ready"
	StatusDelivered Status = "delivered"
)

// pending -> ready -> delivered, satu langkah, tanpa mundur
var validNext = map[Status]Status{
	StatusPending: StatusReady,
	StatusReady:   StatusDelivered,
}

func CanTransition(from, to Status) bool {
	next, ok := from.Next()
	return ok && next == to
}

// Next returns the successor of s, or false when s is terminal or unknown.
func (s Status) Next() (Status, bool) {
	n, ok := validNext[s]
	return n, ok
}

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusReady, StatusDelivered:
		return true
	}
	return false
}

var aliases = map[string]Status{
	"pending":   StatusPending,
	"pendente":  StatusPending,
	"ready":     StatusReady,
	"pronto":    StatusReady,
	"delivered": StatusDelivered,
	"entregue":  StatusDelivered,
}

// ParseStatus accepts the wire values and the Portuguese labels the tablets send.
func ParseStatus(s string) (Status, error) {
	if st, ok := aliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return st, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
}
