package dispatch

import (
	"fmt"
	"strings"
	"time"

	"github.com/ariefcatur/go-bar-pos/internal/fulfillment"
	"github.com/ariefcatur/go-bar-pos/internal/money"
)

const ticketWidth = 32

// FormatTicket renders the kitchen/bar ticket for one sector. The output
// depends only on its arguments.
func FormatTicket(sectorName string, sale fulfillment.Sale, items []fulfillment.SaleItem, at time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	var b strings.Builder
	b.WriteString(center(strings.ToUpper(sectorName)) + "\n")
	b.WriteString(sale.Label() + "\n")
	b.WriteString(at.In(loc).Format("02/01/2006 15:04") + "\n")
	b.WriteString(strings.Repeat("-", ticketWidth) + "\n")
	for _, it := range items {
		fmt.Fprintf(&b, "%dx %s\n", it.Quantity, it.ProductName)
		if note := strings.TrimSpace(it.Note); note != "" {
			fmt.Fprintf(&b, "   obs: %s\n", note)
		}
	}
	b.WriteString(strings.Repeat("-", ticketWidth) + "\n")
	if sale.Notes != "" {
		fmt.Fprintf(&b, "OBS: %s\n", sale.Notes)
	}
	return b.String()
}

func center(s string) string {
	if len(s) >= ticketWidth {
		return s
	}
	pad := (ticketWidth - len(s)) / 2
	return strings.Repeat(" ", pad) + s
}

// FormatOrderMessage is the WhatsApp confirmation: every item with a running
// total, then the observations.
func FormatOrderMessage(sale fulfillment.Sale) string {
	var b strings.Builder
	if sale.CustomerName != "" {
		fmt.Fprintf(&b, "Olá, %s!\n", sale.CustomerName)
	} else {
		b.WriteString("Olá!\n")
	}
	fmt.Fprintf(&b, "Recebemos seu pedido (%s):\n\n", sale.Label())

	var running int64
	for _, it := range sale.Items {
		running += it.SubtotalCents()
		fmt.Fprintf(&b, "%dx %s  %s  (acumulado %s)\n",
			it.Quantity, it.ProductName, money.Format(it.SubtotalCents()), money.Format(running))
	}
	fmt.Fprintf(&b, "\nTotal: %s\n", money.Format(running))

	var obs []string
	if n := strings.TrimSpace(sale.Notes); n != "" {
		obs = append(obs, n)
	}
	for _, it := range sale.Items {
		if n := strings.TrimSpace(it.Note); n != "" {
			obs = append(obs, it.ProductName+": "+n)
		}
	}
	if len(obs) > 0 {
		b.WriteString("\nObservações:\n")
		for _, o := range obs {
			fmt.Fprintf(&b, "- %s\n", o)
		}
	}
	return b.String()
}

// FormatReadyMessage tells the customer an item is ready for pickup.
func FormatReadyMessage(sale fulfillment.Sale, item fulfillment.SaleItem) string {
	name := sale.CustomerName
	if name == "" {
		name = "cliente"
	}
	return fmt.Sprintf("Olá, %s! Seu pedido está pronto: %dx %s (%s).\n", name, item.Quantity, item.ProductName, sale.Label())
}
