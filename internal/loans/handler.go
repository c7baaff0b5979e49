package loans

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/pawnledger/pawnledger/internal/platform/httpx"
	"github.com/pawnledger/pawnledger/internal/shared"
)

// Handler exposes the loan lifecycle over HTTP.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		validator: validator.New(),
	}
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateLoanRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	op, _ := shared.OperatorFromContext(r.Context())
	loan, err := h.service.Create(r.Context(), req, op)
	if err != nil {
		h.logger.Error("create loan", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, loan)
}

func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	id, ok := h.loanID(w, r)
	if !ok {
		return
	}
	loan, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, loan)
}

func (h *Handler) ShowByNumber(w http.ResponseWriter, r *http.Request) {
	loan, err := h.service.GetByTransactionNumber(r.Context(), chi.URLParam(r, "number"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, loan)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	req := ListLoansRequest{Limit: 50}
	if status := r.URL.Query().Get("status"); status != "" {
		s := LoanStatus(status)
		req.Status = &s
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
		h.logger.Error("list loans", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"loans": items, "total": total})
}

func (h *Handler) ApplyPayment(w http.ResponseWriter, r *http.Request) {
	id, ok := h.loanID(w, r)
	if !ok {
		return
	}
	var req ApplyPaymentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	op, _ := shared.OperatorFromContext(r.Context())
	payment, err := h.service.ApplyPayment(r.Context(), id, req, op)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, payment)
}

func (h *Handler) ListPayments(w http.ResponseWriter, r *http.Request) {
	id, ok := h.loanID(w, r)
	if !ok {
		return
	}
	payments, err := h.service.Payments(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"payments": payments})
}

func (h *Handler) AddPrincipal(w http.ResponseWriter, r *http.Request) {
	id, ok := h.loanID(w, r)
	if !ok {
		return
	}
	var req AddPrincipalRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}

	loan, err := h.service.AddPrincipal(r.Context(), id, req)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, loan)
}

func (h *Handler) Redeem(w http.ResponseWriter, r *http.Request) {
	id, ok := h.loanID(w, r)
	if !ok {
		return
	}
	var req RedeemRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}

	op, _ := shared.OperatorFromContext(r.Context())
	event, err := h.service.Redeem(r.Context(), id, req, op)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, event)
}

func (h *Handler) Forfeit(w http.ResponseWriter, r *http.Request) {
	id, ok := h.loanID(w, r)
	if !ok {
		return
	}
	var req ForfeitRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}

	op, _ := shared.OperatorFromContext(r.Context())
	event, err := h.service.Forfeit(r.Context(), id, req, op)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, event)
}

func (h *Handler) Reactivate(w http.ResponseWriter, r *http.Request) {
	id, ok := h.loanID(w, r)
	if !ok {
		return
	}
	loan, err := h.service.Reactivate(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, loan)
}

func (h *Handler) loanID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid loan id")
		return 0, false
	}
	return id, true
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
