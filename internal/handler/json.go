package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/brokerdesk/backoffice/backend/internal/domain"
)

func (h *Handler) logInternalServerError(r *http.Request, err error) {
	slog.Error("internal server error", "method", r.Method, "path", r.URL.Path, "error", err)
}

func (h *Handler) readJSON(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}

func (h *Handler) writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logInternalServerError(r, err)
	}
}

type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data"`
}

func (h *Handler) errorResponse(w http.ResponseWriter, r *http.Request, msg string) {
	h.writeJSON(w, r, http.StatusOK, Response{
		Success: false,
		Message: msg,
		Data:    nil,
	})
}

func (h *Handler) badRequest(w http.ResponseWriter, r *http.Request, err error) {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		h.errorResponse(w, r, err.Error())
		return
	}

	h.errorResponse(w, r, validationErrors[0].Translate(h.translator))
}

func (h *Handler) internalServerError(w http.ResponseWriter, r *http.Request, err error) {
	h.logInternalServerError(r, err)
	h.writeJSON(w, r, http.StatusInternalServerError, Response{
		Success: false,
		Message: "internal server error",
		Data:    nil,
	})
}

func (h *Handler) successResponse(w http.ResponseWriter, r *http.Request, msg string, data any) {
	h.writeJSON(w, r, http.StatusOK, Response{
		Success: true,
		Message: msg,
		Data:    data,
	})
}

// userFacing lists errors whose message is shown to the caller as is.
var userFacing = []error{
	domain.ErrNotFound,
	domain.ErrDuplicateEmail,
	domain.ErrDuplicateCode,
	domain.ErrCodeRequired,
	domain.ErrNameRequired,
	domain.ErrReferenceNotFound,
	domain.ErrInactiveReference,
	domain.ErrStillActive,
	domain.ErrHasDependents,
	domain.ErrHasActiveDependents,
	domain.ErrHasRelatedRecords,
	domain.ErrBusy,
	domain.ErrInvalidKind,
	domain.ErrInvalidRole,
	domain.ErrEmailAlreadyUsedExternally,
	domain.ErrWeakPassword,
	domain.ErrPasswordTooShort,
	domain.ErrPasswordPolicyFailed,
}

// domainError renders a lifecycle failure. Validation and domain errors get
// their own message; anything else is an internal error.
func (h *Handler) domainError(w http.ResponseWriter, r *http.Request, err error) {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		h.badRequest(w, r, err)
		return
	}

	var providerErr *domain.ProviderError
	if errors.As(err, &providerErr) {
		h.errorResponse(w, r, providerErr.Error())
		return
	}

	for _, target := range userFacing {
		if errors.Is(err, target) {
			h.errorResponse(w, r, target.Error())
			return
		}
	}

	h.internalServerError(w, r, err)
}
