package report

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/pawnledger/pawnledger/internal/loans"
	"github.com/pawnledger/pawnledger/internal/platform/httpx"
)

var receiptTemplate = template.Must(template.New("receipt").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>Pawn Receipt {{.TransactionNumber}}</title></head>
<body>
  <h1>Pawn Receipt</h1>
  <p>Transaction: <strong>{{.TransactionNumber}}</strong></p>
  <p>Customer: {{.CustomerFirstName}} {{.CustomerLastName}}</p>
  {{if .ItemDescription}}<p>Item: {{.ItemDescription}}</p>{{end}}
  <table>
    <tr><td>Principal</td><td>{{.LoanAmount}}</td></tr>
    <tr><td>Interest rate</td><td>{{.InterestRate}}%</td></tr>
    <tr><td>Interest</td><td>{{.InterestAmount}}</td></tr>
    <tr><td>Total payable</td><td>{{.TotalPayable}}</td></tr>
  </table>
  <p>Issued: {{.LoanIssuedDate.Format "2006-01-02"}} &mdash; Due: {{.DueDate.Format "2006-01-02"}}</p>
  <p>Issued by: {{.CreatedByUsername}}</p>
</body>
</html>`))

// LoanSource provides read-only access to finalized loans.
type LoanSource interface {
	Get(ctx context.Context, id int64) (*loans.Loan, error)
}

// Handler renders loan receipts as PDF downloads.
type Handler struct {
	logger *slog.Logger
	client *Client
	loans  LoanSource
}

// NewHandler constructs a receipt handler.
func NewHandler(logger *slog.Logger, client *Client, source LoanSource) *Handler {
	return &Handler{logger: logger, client: client, loans: source}
}

// MountRoutes attaches receipt routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/loans/{id}/receipt", h.Receipt)
}

// Receipt streams a rendered PDF receipt for the loan.
func (h *Handler) Receipt(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid loan id")
		return
	}
	loan, err := h.loans.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}

	var html bytes.Buffer
	if err := receiptTemplate.Execute(&html, loan); err != nil {
		h.logger.Error("render receipt template", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}

	pdf, err := h.client.RenderHTML(r.Context(), html.String())
	if err != nil {
		h.logger.Error("render receipt pdf", slog.Int64("loan_id", id), slog.Any("error", err))
		httpx.Problem(w, http.StatusBadGateway, "Render Failed", "receipt rendering unavailable")
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="receipt-%s.pdf"`, loan.TransactionNumber))
	_, _ = w.Write(pdf)
}
