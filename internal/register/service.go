package register

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/ariefcatur/go-bar-pos/internal/redisx"
)

// Service is the cash register ledger. A sale posted while no register is
// open auto-opens one under DefaultOperator: the sale is never rejected.
type Service struct {
	Store           Store
	Redis           *redis.Client // optional, idempotent postings
	DefaultOperator string
	Now             func() time.Time
	Log             *log.Logger
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *Service) logf(format string, args ...any) {
	if s.Log != nil {
		s.Log.Printf(format, args...)
		return
	}
	log.Printf(format, args...)
}

func (s *Service) Open(ctx context.Context, employeeID string, openingCents int64) (Register, error) {
	if openingCents < 0 {
		return Register{}, ErrInvalidAmount
	}
	r := Register{
		ID:           uuid.NewString(),
		OpenedBy:     employeeID,
		OpenedAt:     s.now(),
		OpeningCents: openingCents,
		Status:       StatusOpen,
	}
	if err := s.Store.Open(ctx, r); err != nil {
		return Register{}, err
	}
	return r, nil
}

// PostSale adds a sale to the open register, opening one if needed.
func (s *Service) PostSale(ctx context.Context, amountCents int64, m Method) (Register, error) {
	if amountCents <= 0 {
		return Register{}, ErrInvalidAmount
	}
	if m.column() == "" {
		return Register{}, ErrInvalidMethod
	}

	r, err := s.Store.Post(ctx, amountCents, m)
	if !errors.Is(err, ErrNoOpenRegister) {
		return r, err
	}

	opened, err := s.Open(ctx, s.DefaultOperator, 0)
	switch {
	case err == nil:
		s.logf("register: auto-opened %s under %q for a %s posting", opened.ID, s.DefaultOperator, m)
	case errors.Is(err, ErrConflict):
		// terminal lain sudah buka duluan, lanjut posting
	default:
		return Register{}, fmt.Errorf("auto-open register: %w", err)
	}
	return s.Store.Post(ctx, amountCents, m)
}

// PostSaleOnce is PostSale guarded by an idempotency key: a retried request
// with the same key returns the register it was posted to without posting again.
func (s *Service) PostSaleOnce(ctx context.Context, key string, amountCents int64, m Method) (Register, bool, error) {
	if key == "" || s.Redis == nil {
		r, err := s.PostSale(ctx, amountCents, m)
		return r, false, err
	}
	ikey := fmt.Sprintf(redisx.KeyIdemRegisterPost, key)
	// marker kosong = sedang diproses; TTL pendek supaya proses yang mati
	// di tengah jalan tidak mengunci key ini seharian
	first, err := redisx.Claim(ctx, s.Redis, ikey, "", redisx.TTLInProgress)
	if err != nil {
		// redis mati: DB tetap jadi kebenaran, posting tanpa guard
		s.logf("register: idempotency claim %s: %v", key, err)
		r, err := s.PostSale(ctx, amountCents, m)
		return r, false, err
	}
	if !first {
		id, err := s.Redis.Get(ctx, ikey).Result()
		if err != nil {
			return Register{}, false, err
		}
		if id == "" {
			return Register{}, false, ErrInProgress
		}
		r, err := s.Store.Get(ctx, id)
		return r, true, err
	}

	r, err := s.PostSale(ctx, amountCents, m)
	if err != nil {
		if derr := s.Redis.Del(ctx, ikey).Err(); derr != nil {
			s.logf("register: release idempotency key %s: %v", key, derr)
		}
		return Register{}, false, err
	}
	if err := s.Redis.Set(ctx, ikey, r.ID, redisx.TTLIdempotency).Err(); err != nil {
		// posting sudah masuk; retry setelah marker expire akan posting ulang
		s.logf("register: record idempotency key %s -> %s: %v", key, r.ID, err)
	}
	return r, false, nil
}

// Close closes the open register. With none open it reports ErrAlreadyClosed
// when the last register was already closed, ErrNotFound when there never was one.
func (s *Service) Close(ctx context.Context, employeeID string, closingCents int64) (Register, error) {
	cur, err := s.Store.Current(ctx)
	if errors.Is(err, ErrNoOpenRegister) {
		last, err := s.Store.Latest(ctx)
		if err != nil {
			return Register{}, err
		}
		if last.Status == StatusClosed {
			return Register{}, ErrAlreadyClosed
		}
		return Register{}, ErrNotFound
	}
	if err != nil {
		return Register{}, err
	}
	return s.CloseByID(ctx, cur.ID, employeeID, closingCents)
}

func (s *Service) CloseByID(ctx context.Context, id, employeeID string, closingCents int64) (Register, error) {
	if closingCents < 0 {
		return Register{}, ErrInvalidAmount
	}
	return s.Store.Close(ctx, id, employeeID, closingCents, s.now())
}

func (s *Service) Current(ctx context.Context) (Register, error) {
	return s.Store.Current(ctx)
}

func (s *Service) Get(ctx context.Context, id string) (Register, error) {
	return s.Store.Get(ctx, id)
}
