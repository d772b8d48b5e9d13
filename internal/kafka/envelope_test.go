package kafka

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvelopeRoundTrip(t *testing.T) {
	env := NewEnvelope(EventSaleUpdated, "pos-api@a", "sale-1", SaleUpdatedPayload{SaleID: "sale-1"})
	require.NotEmpty(t, env.EventID)
	assert.Equal(t, 1, env.EventVersion)

	got, err := UnmarshalEnvelope(MustMarshal(env))
	require.NoError(t, err)
	assert.Equal(t, env.EventID, got.EventID)
	assert.Equal(t, "pos-api@a", got.Producer)

	p, err := UnwrapPayload[SaleUpdatedPayload](got.Payload)
	require.NoError(t, err)
	assert.Equal(t, "sale-1", p.SaleID)
}

func TestEnvelopeHeaders(t *testing.T) {
	env := NewEnvelope(EventItemStatusChanged, "svc", "s", ItemStatusChangedPayload{})
	h := env.Headers()
	require.Len(t, h, 2)
	assert.Equal(t, "x-event-type", h[0].Key)
	assert.Equal(t, EventItemStatusChanged, string(h[0].Value))
}

func TestUnmarshalEnvelope_Invalid(t *testing.T) {
	_, err := UnmarshalEnvelope([]byte("{"))
	assert.Error(t, err)

	_, err = UnwrapPayload[SaleUpdatedPayload]([]byte(`"nope"`))
	assert.Error(t, err)
}

func TestPublishDropsWhenInboxFull(t *testing.T) {
	p := NewProducer([]string{"127.0.0.1:1"}, TopicSaleUpdated, 1)
	assert.True(t, p.Publish([]byte("k"), []byte("v1")))
	assert.False(t, p.Publish([]byte("k"), []byte("v2")), "not started, inbox holds one message")
	assert.Equal(t, int64(1), p.Dropped())
}

func TestShardOfKeepsSaleOnOneWorker(t *testing.T) {
	a := shardOf([]byte("sale-1"), 4)
	for i := 0; i < 10; i++ {
		assert.Equal(t, a, shardOf([]byte("sale-1"), 4))
	}
	assert.Equal(t, 0, shardOf(nil, 4))
	assert.Equal(t, 0, shardOf([]byte("sale-1"), 1))
	assert.Less(t, shardOf([]byte("sale-2"), 3), 3)
}
