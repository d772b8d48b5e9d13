package httpx

import (
	"github.com/ariefcatur/go-bar-pos/internal/cart"
	"github.com/ariefcatur/go-bar-pos/internal/config"
	"github.com/ariefcatur/go-bar-pos/internal/dispatch"
	"github.com/ariefcatur/go-bar-pos/internal/events"
	"github.com/ariefcatur/go-bar-pos/internal/fulfillment"
	"github.com/ariefcatur/go-bar-pos/internal/metrics"
	"github.com/ariefcatur/go-bar-pos/internal/register"
	"github.com/go-chi/chi/v5"
)

// API holds everything the handlers need. Carts, Register, Dispatch and
// Metrics are optional; their routes are only mounted when set.
type API struct {
	Sales    *fulfillment.Service
	Sectors  config.Sectors
	Events   *events.Buffer
	Carts    *cart.OpenCarts
	Register *register.Service
	Dispatch *dispatch.Queue
	Metrics  *metrics.Metrics

	clients clients
}

func (a *API) Mount(r chi.Router) {
	withTimeout(r).Group(func(r chi.Router) {
		r.Post("/sales", a.submitSale)
		r.Get("/sales/{id}", a.getSale)
		r.Get("/sectors", a.listSectors)
		r.Get("/sectors/{id}/queue", a.listQueue)
		r.Post("/items/{id}/advance", a.advanceItem)
		r.Get("/events", a.eventsSince)

		if a.Carts != nil {
			r.Get("/carts/{ref}", a.getCart)
			r.Put("/carts/{ref}/lines/{productId}", a.setCartLine)
			r.Delete("/carts/{ref}", a.clearCart)
		}
		if a.Register != nil {
			r.Post("/register/open", a.openRegister)
			r.Post("/register/postings", a.postSale)
			r.Post("/register/close", a.closeRegister)
			r.Get("/register/current", a.currentRegister)
		}
		if a.Dispatch != nil {
			r.Get("/dispatch/jobs/{id}", a.getJob)
			r.Post("/dispatch/jobs/{id}/requeue", a.requeueJob)
		}
	})
	// koneksi ws hidup lama, jangan pasang Timeout
	r.Get("/ws", a.push)
}
