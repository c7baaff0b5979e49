package reports

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pawnledger/pawnledger/internal/platform/httpx"
)

// Handler exposes the reconciliation report over HTTP.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/reports/reconciliation", h.Reconciliation)
}

// Reconciliation builds the report for ?from=YYYY-MM-DD&to=YYYY-MM-DD. The
// "to" day is included in the range.
func (h *Handler) Reconciliation(w http.ResponseWriter, r *http.Request) {
	from, err := time.Parse("2006-01-02", r.URL.Query().Get("from"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "from must be YYYY-MM-DD")
		return
	}
	to, err := time.Parse("2006-01-02", r.URL.Query().Get("to"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "to must be YYYY-MM-DD")
		return
	}

	report, err := h.service.Build(r.Context(), from, to.AddDate(0, 0, 1))
	if err != nil {
		h.logger.Error("build reconciliation report", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}
