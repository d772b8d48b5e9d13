package register

import (
	"context"
	"time"
)

type Store interface {
	// Open inserts r as the open register. ErrConflict when one is already open.
	Open(ctx context.Context, r Register) error
	Get(ctx context.Context, id string) (Register, error)
	// Current returns the open register or ErrNoOpenRegister.
	Current(ctx context.Context) (Register, error)
	// Latest returns the most recently opened register or ErrNotFound.
	Latest(ctx context.Context) (Register, error)
	// Post adds amount to total sales and the method bucket in one statement.
	Post(ctx context.Context, amountCents int64, m Method) (Register, error)
	Close(ctx context.Context, id, employeeID string, closingCents int64, at time.Time) (Register, error)
}
