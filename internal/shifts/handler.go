package shifts

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pawnledger/pawnledger/internal/platform/httpx"
	"github.com/pawnledger/pawnledger/internal/shared"
)

// Handler exposes shift open/close over HTTP.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/shifts", h.List)
	r.Post("/shifts", h.Open)
	r.Get("/shifts/current", h.Current)
	r.Get("/shifts/{id}", h.Show)
	r.Post("/shifts/{id}/close", h.Close)
}

func (h *Handler) Open(w http.ResponseWriter, r *http.Request) {
	var in OpenShiftInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}

	op, _ := shared.OperatorFromContext(r.Context())
	shift, err := h.service.Open(r.Context(), in, op)
	if err != nil {
		h.logger.Error("open shift", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, shift)
}

func (h *Handler) Close(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid shift id")
		return
	}
	var in CloseShiftInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}

	shift, err := h.service.Close(r.Context(), id, in)
	if err != nil {
		h.logger.Error("close shift", slog.Int64("shift_id", id), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, shift)
}

func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid shift id")
		return
	}
	shift, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, shift)
}

func (h *Handler) Current(w http.ResponseWriter, r *http.Request) {
	op, _ := shared.OperatorFromContext(r.Context())
	shift, err := h.service.Current(r.Context(), op)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, shift)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	req := ListShiftsRequest{Limit: 50}
	if raw := r.URL.Query().Get("operator_id"); raw != "" {
		if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
			req.OperatorID = &id
		}
	}
	req.DateFrom = parseDate(r.URL.Query().Get("date_from"))
	req.DateTo = parseDate(r.URL.Query().Get("date_to"))
	if limit, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && limit > 0 && limit <= 1000 {
		req.Limit = limit
	}
	if offset, err := strconv.Atoi(r.URL.Query().Get("offset")); err == nil && offset >= 0 {
		req.Offset = offset
	}

	items, total, err := h.service.List(r.Context(), req)
	if err != nil {
		h.logger.Error("list shifts", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"shifts": items, "total": total})
}

func parseDate(value string) *time.Time {
	if value == "" {
		return nil
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return nil
	}
	return &t
}
