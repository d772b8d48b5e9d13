package dispatch

import (
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"

	"github.com/ariefcatur/go-bar-pos/internal/fulfillment"
)

var (
	brt     = time.FixedZone("BRT", -3*3600)
	printAt = time.Date(2025, 1, 3, 12, 0, 0, 0, time.UTC)
)

func strPtr(s string) *string { return &s }

func sampleSale() fulfillment.Sale {
	table := 4
	return fulfillment.Sale{
		ID:            "sale-1",
		TableNumber:   &table,
		CustomerName:  "Maria",
		CustomerPhone: "+55 (11) 99999-0000",
		Notes:         "mesa da varanda",
		CreatedAt:     printAt,
		Items: []fulfillment.SaleItem{
			{ID: "i1", SaleID: "sale-1", SectorID: strPtr("bar"), ProductName: "Chopp", Quantity: 2, UnitPriceCents: 1200, Status: fulfillment.StatusPending},
			{ID: "i2", SaleID: "sale-1", SectorID: strPtr("cozinha"), ProductName: "Porção de fritas", Quantity: 1, UnitPriceCents: 2500, Note: "sem sal", Status: fulfillment.StatusPending},
		},
	}
}

func TestFormatTicket(t *testing.T) {
	g := goldie.New(t)
	sale := sampleSale()
	out := FormatTicket("Cozinha", sale, sale.Items[1:], printAt, brt)
	g.Assert(t, "ticket_cozinha", []byte(out))
}

func TestFormatTicket_ComandaLabel(t *testing.T) {
	g := goldie.New(t)
	sale := fulfillment.Sale{ID: "sale-2", ComandaID: "17", Items: []fulfillment.SaleItem{
		{ID: "i1", ProductName: "Chopp", Quantity: 2, UnitPriceCents: 1200},
	}}
	out := FormatTicket("Bar", sale, sale.Items, printAt, brt)
	g.Assert(t, "ticket_bar_comanda", []byte(out))
}

func TestFormatTicket_IsDeterministic(t *testing.T) {
	sale := sampleSale()
	a := FormatTicket("Bar", sale, sale.Items, printAt, brt)
	b := FormatTicket("Bar", sale, sale.Items, printAt, brt)
	assert.Equal(t, a, b)
}

func TestFormatOrderMessage(t *testing.T) {
	g := goldie.New(t)
	g.Assert(t, "whatsapp_order", []byte(FormatOrderMessage(sampleSale())))
}

func TestFormatOrderMessage_NoObservations(t *testing.T) {
	sale := sampleSale()
	sale.Notes = ""
	sale.Items[1].Note = ""
	sale.CustomerName = ""
	out := FormatOrderMessage(sale)
	assert.NotContains(t, out, "Observações")
	assert.Contains(t, out, "Olá!\n")
	assert.Contains(t, out, "Total: R$ 49,00")
}

func TestFormatReadyMessage(t *testing.T) {
	sale := sampleSale()
	assert.Equal(t, "Olá, Maria! Seu pedido está pronto: 2x Chopp (Mesa 4).\n", FormatReadyMessage(sale, sale.Items[0]))
}
