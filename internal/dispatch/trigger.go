package dispatch

import (
	"context"
	"log"
	"time"

	"github.com/ariefcatur/go-bar-pos/internal/config"
	"github.com/ariefcatur/go-bar-pos/internal/fulfillment"
)

type Enqueuer interface {
	Enqueue(ctx context.Context, kind Kind, target, body string) (Job, error)
}

// Trigger turns fulfillment events into print and WhatsApp jobs according
// to each sector's print_on list.
type Trigger struct {
	Queue    Enqueuer
	Sectors  config.Sectors
	Location *time.Location
	Now      func() time.Time
	Log      *log.Logger
}

var _ fulfillment.Notifier = (*Trigger)(nil)

func (t *Trigger) now() time.Time {
	if t.Now != nil {
		return t.Now()
	}
	return time.Now()
}

func (t *Trigger) SaleSubmitted(ctx context.Context, sale fulfillment.Sale) {
	bySector := map[string][]fulfillment.SaleItem{}
	var order []string
	for _, it := range sale.Items {
		sid := it.Sector()
		if sid == "" {
			continue
		}
		if _, ok := bySector[sid]; !ok {
			order = append(order, sid)
		}
		bySector[sid] = append(bySector[sid], it)
	}
	for _, sid := range order {
		sec, ok := t.Sectors.Find(sid)
		if !ok || !sec.Prints(config.PrintOnSubmit) {
			continue
		}
		t.enqueue(ctx, KindPrint, sec.Printer, FormatTicket(sec.Name, sale, bySector[sid], t.now(), t.Location))
	}

	if sale.CustomerPhone != "" {
		t.enqueue(ctx, KindWhatsApp, sale.CustomerPhone, FormatOrderMessage(sale))
	}
}

func (t *Trigger) ItemAdvanced(ctx context.Context, sale fulfillment.Sale, item fulfillment.SaleItem) {
	if item.Status != fulfillment.StatusReady {
		return
	}
	if sec, ok := t.Sectors.Find(item.Sector()); ok && sec.Prints(config.PrintOnReady) {
		t.enqueue(ctx, KindPrint, sec.Printer, FormatTicket(sec.Name, sale, []fulfillment.SaleItem{item}, t.now(), t.Location))
	}
	if sale.CustomerPhone != "" {
		t.enqueue(ctx, KindWhatsApp, sale.CustomerPhone, FormatReadyMessage(sale, item))
	}
}

// enqueue never lets a dispatch problem reach the fulfillment flow.
func (t *Trigger) enqueue(ctx context.Context, kind Kind, target, body string) {
	if _, err := t.Queue.Enqueue(ctx, kind, target, body); err != nil {
		msg := "dispatch trigger: enqueue " + string(kind) + ": " + err.Error()
		if t.Log != nil {
			t.Log.Print(msg)
		} else {
			log.Print(msg)
		}
	}
}
