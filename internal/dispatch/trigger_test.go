package dispatch

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ariefcatur/go-bar-pos/internal/config"
	"github.com/ariefcatur/go-bar-pos/internal/fulfillment"
)

type enqueued struct {
	kind   Kind
	target string
	body   string
}

type fakeEnqueuer struct {
	jobs []enqueued
	err  error
}

func (f *fakeEnqueuer) Enqueue(_ context.Context, kind Kind, target, body string) (Job, error) {
	if f.err != nil {
		return Job{}, f.err
	}
	f.jobs = append(f.jobs, enqueued{kind, target, body})
	return Job{Kind: kind, Target: target, Body: body, Status: StatusQueued}, nil
}

func newTrigger(q Enqueuer) *Trigger {
	return &Trigger{
		Queue: q,
		Sectors: config.Sectors{
			{ID: "bar", Name: "Bar", Printer: "10.0.0.2:9100", PrintOn: []string{config.PrintOnSubmit}},
			{ID: "cozinha", Name: "Cozinha", Printer: "10.0.0.3:9100", PrintOn: []string{config.PrintOnSubmit, config.PrintOnReady}},
		},
		Location: brt,
		Now:      func() time.Time { return printAt },
		Log:      log.New(io.Discard, "", 0),
	}
}

func TestTriggerOnSubmitPrintsPerSectorAndConfirms(t *testing.T) {
	q := &fakeEnqueuer{}
	newTrigger(q).SaleSubmitted(context.Background(), sampleSale())

	require.Len(t, q.jobs, 3)
	assert.Equal(t, KindPrint, q.jobs[0].kind)
	assert.Equal(t, "10.0.0.2:9100", q.jobs[0].target)
	assert.Contains(t, q.jobs[0].body, "2x Chopp")
	assert.NotContains(t, q.jobs[0].body, "fritas")

	assert.Equal(t, "10.0.0.3:9100", q.jobs[1].target)
	assert.Contains(t, q.jobs[1].body, "1x Porção de fritas")

	assert.Equal(t, KindWhatsApp, q.jobs[2].kind)
	assert.Equal(t, "+55 (11) 99999-0000", q.jobs[2].target)
	assert.Equal(t, FormatOrderMessage(sampleSale()), q.jobs[2].body)
}

func TestTriggerSkipsUnknownAndUnassignedSectors(t *testing.T) {
	q := &fakeEnqueuer{}
	sale := sampleSale()
	sale.CustomerPhone = ""
	sale.Items[0].SectorID = nil
	sale.Items[1].SectorID = strPtr("churrasqueira")
	newTrigger(q).SaleSubmitted(context.Background(), sale)
	assert.Empty(t, q.jobs)
}

func TestTriggerOnReady(t *testing.T) {
	q := &fakeEnqueuer{}
	tr := newTrigger(q)
	sale := sampleSale()

	bar := sale.Items[0]
	bar.Status = fulfillment.StatusReady
	tr.ItemAdvanced(context.Background(), sale, bar)
	require.Len(t, q.jobs, 1, "bar prints only on submit")
	assert.Equal(t, KindWhatsApp, q.jobs[0].kind)

	q.jobs = nil
	food := sale.Items[1]
	food.Status = fulfillment.StatusReady
	tr.ItemAdvanced(context.Background(), sale, food)
	require.Len(t, q.jobs, 2)
	assert.Equal(t, KindPrint, q.jobs[0].kind)
	assert.Equal(t, "10.0.0.3:9100", q.jobs[0].target)

	q.jobs = nil
	food.Status = fulfillment.StatusDelivered
	tr.ItemAdvanced(context.Background(), sale, food)
	assert.Empty(t, q.jobs)
}

func TestTriggerSwallowsEnqueueErrors(t *testing.T) {
	q := &fakeEnqueuer{err: errors.New("db down")}
	assert.NotPanics(t, func() {
		newTrigger(q).SaleSubmitted(context.Background(), sampleSale())
	})
}
