package httpx

import (
	"errors"
	"net/http"

	"github.com/pawnledger/pawnledger/internal/shared"
)

// RespondError maps ledger errors to HTTP responses using RFC7807.
func RespondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shared.ErrValidation):
		Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, shared.ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, shared.ErrInvalidState):
		Problem(w, http.StatusConflict, "Invalid State", err.Error())
	case errors.Is(err, shared.ErrConflict):
		Problem(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, shared.ErrInvalidAmount):
		Problem(w, http.StatusUnprocessableEntity, "Invalid Amount", err.Error())
	case errors.Is(err, shared.ErrResourceExhausted):
		Problem(w, http.StatusServiceUnavailable, "Resource Exhausted", err.Error())
	case errors.Is(err, shared.ErrDuplicateTransaction):
		Problem(w, http.StatusConflict, "Duplicate Transaction", err.Error())
	case errors.Is(err, shared.ErrInvalidCredentials):
		Problem(w, http.StatusUnauthorized, "Unauthorized", "")
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
