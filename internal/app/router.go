package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/pawnledger/pawnledger/internal/auth"
	"github.com/pawnledger/pawnledger/internal/loans"
	"github.com/pawnledger/pawnledger/internal/reports"
	"github.com/pawnledger/pawnledger/internal/shared"
	"github.com/pawnledger/pawnledger/internal/shifts"
	"github.com/pawnledger/pawnledger/report"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	SessionManager *shared.SessionManager
	AuthHandler    *auth.Handler
	LoansHandler   *loans.Handler
	ShiftsHandler  *shifts.Handler
	ReportsHandler *reports.Handler
	ReceiptHandler *report.Handler
}

// NewRouter constructs the chi.Router with pawnledger defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api/v1", func(r chi.Router) {
		params.AuthHandler.MountRoutes(r)

		r.Group(func(r chi.Router) {
			r.Use(RequireOperator(params.SessionManager, params.Logger))
			params.LoansHandler.MountRoutes(r)
			params.ShiftsHandler.MountRoutes(r)
			params.ReportsHandler.MountRoutes(r)
			if params.ReceiptHandler != nil {
				params.ReceiptHandler.MountRoutes(r)
			}
		})
	})

	return r
}
