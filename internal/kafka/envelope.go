package kafka

import (
	"encoding/json"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"time"
)

const (
	TopicSaleUpdated       = "sale.updated"
	TopicItemStatusChanged = "sale.item.status_changed"
)

const (
	EventSaleUpdated       = "SaleUpdated"
	EventItemStatusChanged = "ItemStatusChanged"
)

type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"` // service/instance yang publish
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"` // biasanya sale_id
	Payload       json.RawMessage `json:"payload"`
}

// NewEnvelope wraps payload as version 1 of eventType.
func NewEnvelope(eventType, producer, correlationID string, payload any) Envelope {
	return Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      producer,
		CorrelationID: correlationID,
		Payload:       MustMarshal(payload),
	}
}

// Headers mirrors the envelope type/version so consumers can filter without decoding.
func (e Envelope) Headers() []kafka.Header {
	return []kafka.Header{
		{Key: "x-event-type", Value: []byte(e.EventType)},
		{Key: "x-event-version", Value: []byte("1")},
	}
}

type SaleUpdatedPayload struct {
	SaleID string    `json:"sale_id"`
	At     time.Time `json:"at"`
}

type ItemStatusChangedPayload struct {
	SaleID     string `json:"sale_id"`
	ItemID     string `json:"item_id"`
	SectorID   string `json:"sector_id,omitempty"`
	Product    string `json:"product"`
	Quantity   int    `json:"quantity"`
	Status     string `json:"status"`
	EmployeeID string `json:"employee_id,omitempty"`
}

// Partition key = sale_id, supaya semua event 1 sale maintain urutan.
func PartitionKey(saleID string) []byte { return []byte(saleID) }
