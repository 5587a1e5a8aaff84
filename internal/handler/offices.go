package handler

import (
	"net/http"

	"github.com/brokerdesk/backoffice/backend/internal/domain"
)

func (h *Handler) CreateOffice(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name  string `json:"name" validate:"required,max=100"`
		Email string `json:"email" validate:"omitempty,email"`
		Phone string `json:"phone" validate:"max=30"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	office := &domain.Office{
		Name:     req.Name,
		Email:    req.Email,
		Phone:    req.Phone,
		IsActive: true,
	}
	if err := h.directory.CreateOffice(r.Context(), office); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "office created", office)
}

func (h *Handler) GetAllOffices(w http.ResponseWriter, r *http.Request) {
	offices, err := h.directory.ListOffices(r.Context())
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "offices loaded", offices)
}

func (h *Handler) GetOffice(w http.ResponseWriter, r *http.Request) {
	office := r.Context().Value(OfficeCtx).(*domain.Office)
	h.successResponse(w, r, "office loaded", office)
}

func (h *Handler) UpdateOffice(w http.ResponseWriter, r *http.Request) {
	office := r.Context().Value(OfficeCtx).(*domain.Office)

	var req struct {
		Name     *string `json:"name" validate:"omitnil,min=1,max=100"`
		Email    *string `json:"email" validate:"omitnil,omitempty,email"`
		Phone    *string `json:"phone" validate:"omitnil,max=30"`
		IsActive *bool   `json:"isActive"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	if req.Name != nil {
		office.Name = *req.Name
	}
	if req.Email != nil {
		office.Email = *req.Email
	}
	if req.Phone != nil {
		office.Phone = *req.Phone
	}
	if req.IsActive != nil {
		office.IsActive = *req.IsActive
	}

	if err := h.directory.UpdateOffice(r.Context(), office); err != nil {
		h.domainError(w, r, err)
		return
	}

	h.successResponse(w, r, "office updated", office)
}
