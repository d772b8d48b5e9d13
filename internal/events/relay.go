package events

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/ariefcatur/go-bar-pos/internal/fulfillment"
	kafkax "github.com/ariefcatur/go-bar-pos/internal/kafka"
	"github.com/ariefcatur/go-bar-pos/internal/redisx"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
)

var ErrPublishDropped = errors.New("events: producer inbox full, event dropped")

// Publisher is satisfied by *kafka.Producer.
type Publisher interface {
	Publish(key, value []byte, headers ...kafkago.Header) bool
}

// Relay mirrors the local buffer onto Kafka and feeds events from other API
// replicas back into it, so tablets attached to any replica see every change.
type Relay struct {
	Buffer   *Buffer
	Producer Publisher
	Redis    *redis.Client
	Instance string
	Log      *log.Logger
}

// Attach subscribes the outbound side. Unsubscribe the result to detach.
func (r *Relay) Attach() Subscription {
	return r.Buffer.Subscribe(r.publish)
}

func (r *Relay) publish(e Event) error {
	// event dari replica lain jangan dipublish ulang
	if e.Origin != "" {
		return nil
	}
	env := kafkax.NewEnvelope(kafkax.EventSaleUpdated, r.Instance, e.SaleID, kafkax.SaleUpdatedPayload{
		SaleID: e.SaleID,
		At:     e.Timestamp.UTC(),
	})
	if !r.Producer.Publish(kafkax.PartitionKey(e.SaleID), kafkax.MustMarshal(env), env.Headers()...) {
		return ErrPublishDropped
	}
	return nil
}

// HandleRemote is the consumer handler for TopicSaleUpdated.
func (r *Relay) HandleRemote(ctx context.Context, m kafkago.Message) error {
	env, err := kafkax.UnmarshalEnvelope(m.Value)
	if err != nil {
		return err
	}
	if env.EventType != kafkax.EventSaleUpdated {
		return nil
	}
	if env.Producer == r.Instance {
		return nil
	}

	if r.Redis != nil {
		dkey := fmt.Sprintf(redisx.KeyDedup, r.Instance, env.EventID)
		first, err := redisx.Claim(ctx, r.Redis, dkey, "1", redisx.TTLDedup)
		if err != nil {
			// redis down: lebih baik dobel notif daripada hilang
			r.logf("relay: dedup %s: %v", env.EventID, err)
		} else if !first {
			return nil
		}
	}

	p, err := kafkax.UnwrapPayload[kafkax.SaleUpdatedPayload](env.Payload)
	if err != nil {
		return err
	}
	if p.SaleID == "" {
		return nil
	}
	r.Buffer.RecordFrom(p.SaleID, env.Producer)
	return nil
}

func (r *Relay) logf(format string, args ...any) {
	if r.Log != nil {
		r.Log.Printf(format, args...)
		return
	}
	log.Printf(format, args...)
}

// StatusPublisher announces item status changes on TopicItemStatusChanged for
// downstream consumers (reporting, displays). It is a fulfillment.Notifier.
type StatusPublisher struct {
	Producer Publisher
	Instance string
	Log      *log.Logger
}

var _ fulfillment.Notifier = (*StatusPublisher)(nil)

func (p *StatusPublisher) SaleSubmitted(ctx context.Context, sale fulfillment.Sale) {
	for _, it := range sale.Items {
		p.send(sale, it)
	}
}

func (p *StatusPublisher) ItemAdvanced(ctx context.Context, sale fulfillment.Sale, item fulfillment.SaleItem) {
	p.send(sale, item)
}

func (p *StatusPublisher) send(sale fulfillment.Sale, it fulfillment.SaleItem) {
	payload := kafkax.ItemStatusChangedPayload{
		SaleID:   sale.ID,
		ItemID:   it.ID,
		SectorID: it.Sector(),
		Product:  it.ProductName,
		Quantity: it.Quantity,
		Status:   string(it.Status),
	}
	if it.PreparedBy != nil {
		payload.EmployeeID = *it.PreparedBy
	}
	env := kafkax.NewEnvelope(kafkax.EventItemStatusChanged, p.Instance, sale.ID, payload)
	if !p.Producer.Publish(kafkax.PartitionKey(sale.ID), kafkax.MustMarshal(env), env.Headers()...) {
		msg := fmt.Sprintf("status publisher: dropped %s for item %s", it.Status, it.ID)
		if p.Log != nil {
			p.Log.Print(msg)
		} else {
			log.Print(msg)
		}
	}
}
