package loans

import (
	"github.com/go-chi/chi/v5"
)

func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/loans", h.List)
	r.Post("/loans", h.Create)
	r.Get("/loans/{id}", h.Show)
	r.Get("/loans/number/{number}", h.ShowByNumber)
	r.Get("/loans/{id}/payments", h.ListPayments)
	r.Post("/loans/{id}/payments", h.ApplyPayment)
	r.Post("/loans/{id}/principal", h.AddPrincipal)
	r.Post("/loans/{id}/redeem", h.Redeem)
	r.Post("/loans/{id}/forfeit", h.Forfeit)
	r.Post("/loans/{id}/reactivate", h.Reactivate)
}
