package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/ariefcatur/go-bar-pos/internal/redisx"
	"github.com/redis/go-redis/v9"
)

var ErrInvalidLine = errors.New("cart: invalid line")

// OpenCarts keeps the server-side copy of each table/comanda cart in Redis,
// one hash per ref with one field per product.
type OpenCarts struct {
	Redis *redis.Client
	TTL   time.Duration
	Now   func() time.Time
}

// LineInput is a quantity intent from a tablet. Seq is the tablet's
// sequence number for the line; 0 means unconditional.
type LineInput struct {
	ProductID      string
	ProductName    string
	SectorID       string
	Quantity       int
	UnitPriceCents int64
	Seq            int64
}

type storedLine struct {
	Line
	Seq     int64 `json:"seq"`
	AddedAt int64 `json:"added_at"`
}

func (o *OpenCarts) ttl() time.Duration {
	if o.TTL > 0 {
		return o.TTL
	}
	return redisx.TTLCart
}

func (o *OpenCarts) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}

func cartKey(ref string) string { return fmt.Sprintf(redisx.KeyCart, ref) }

func (o *OpenCarts) Get(ctx context.Context, ref string) (Cart, error) {
	raw, err := o.Redis.HGetAll(ctx, cartKey(ref)).Result()
	if err != nil {
		return Cart{}, err
	}
	return decodeCart(ref, raw)
}

// SetLine stores the line quantity (0 removes it). A seq older than the one
// already stored is ignored and reported as applied=false.
func (o *OpenCarts) SetLine(ctx context.Context, ref string, in LineInput) (Cart, bool, error) {
	if strings.TrimSpace(ref) == "" || strings.TrimSpace(in.ProductID) == "" {
		return Cart{}, false, ErrInvalidLine
	}
	if in.UnitPriceCents < 0 {
		return Cart{}, false, ErrInvalidLine
	}
	key := cartKey(ref)
	applied := false

	txf := func(tx *redis.Tx) error {
		applied = false
		cur, err := tx.HGet(ctx, key, in.ProductID).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		var prev storedLine
		if err == nil {
			if err := json.Unmarshal([]byte(cur), &prev); err != nil {
				return err
			}
			if in.Seq > 0 && in.Seq < prev.Seq {
				return nil
			}
		}

		qty := ClampQuantity(in.Quantity)
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			sl := storedLine{
				Line: Line{
					ID:             in.ProductID,
					ProductName:    in.ProductName,
					SectorID:       in.SectorID,
					Quantity:       qty,
					UnitPriceCents: in.UnitPriceCents,
					SubtotalCents:  in.UnitPriceCents * int64(qty),
				},
				Seq:     in.Seq,
				AddedAt: prev.AddedAt,
			}
			if sl.Seq < prev.Seq {
				sl.Seq = prev.Seq
			}
			if sl.AddedAt == 0 || prev.Quantity == 0 {
				sl.AddedAt = o.now().UnixMilli()
			}
			// qty 0 disimpan sebagai tombstone (seq tetap) supaya request lama
			// tidak menghidupkan line lagi; decodeCart melewatinya
			b, err := json.Marshal(sl)
			if err != nil {
				return err
			}
			p.HSet(ctx, key, in.ProductID, b)
			p.Expire(ctx, key, o.ttl())
			return nil
		})
		if err == nil {
			applied = true
		}
		return err
	}

	var err error
	for i := 0; i < 5; i++ {
		err = o.Redis.Watch(ctx, txf, key)
		if !errors.Is(err, redis.TxFailedErr) {
			break
		}
	}
	if err != nil {
		return Cart{}, false, err
	}
	c, err := o.Get(ctx, ref)
	return c, applied, err
}

// Clear drops the cart, called after the sale was submitted.
func (o *OpenCarts) Clear(ctx context.Context, ref string) error {
	return o.Redis.Del(ctx, cartKey(ref)).Err()
}

func decodeCart(ref string, raw map[string]string) (Cart, error) {
	lines := make([]storedLine, 0, len(raw))
	for field, v := range raw {
		var sl storedLine
		if err := json.Unmarshal([]byte(v), &sl); err != nil {
			return Cart{}, fmt.Errorf("cart %s line %s: %w", ref, field, err)
		}
		if sl.Quantity == 0 {
			continue
		}
		lines = append(lines, sl)
	}
	sort.Slice(lines, func(i, j int) bool {
		if lines[i].AddedAt != lines[j].AddedAt {
			return lines[i].AddedAt < lines[j].AddedAt
		}
		return lines[i].ID < lines[j].ID
	})
	c := Cart{Ref: ref, Lines: make([]Line, 0, len(lines))}
	for _, sl := range lines {
		c.Lines = append(c.Lines, sl.Line)
	}
	return c, nil
}
