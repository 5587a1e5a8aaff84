package handler

import (
	"net/http"
	"strings"

	"github.com/brokerdesk/backoffice/backend/internal/domain"
)

func (h *Handler) CreateEntity(kind domain.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			domain.Fields
			Password string `json:"password"`
		}

		if err := h.readJSON(r, &req); err != nil {
			h.badRequest(w, r, err)
			return
		}

		e, err := h.lifecycle.Create(r.Context(), kind, req.Fields, req.Password)
		if err != nil {
			h.domainError(w, r, err)
			return
		}

		h.successResponse(w, r, "record created", e)
	}
}

func (h *Handler) ListEntities(kind domain.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		search := strings.TrimSpace(r.URL.Query().Get("q"))

		entities, err := h.directory.List(r.Context(), kind, search)
		if err != nil {
			h.internalServerError(w, r, err)
			return
		}

		h.successResponse(w, r, "records loaded", entities)
	}
}

func (h *Handler) GetEntity(w http.ResponseWriter, r *http.Request) {
	e := r.Context().Value(EntityCtx).(*domain.Entity)
	h.successResponse(w, r, "record loaded", e)
}

func (h *Handler) UpdateEntity(kind domain.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		e := r.Context().Value(EntityCtx).(*domain.Entity)

		var changes domain.Changes
		if err := h.readJSON(r, &changes); err != nil {
			h.badRequest(w, r, err)
			return
		}

		updated, err := h.lifecycle.Update(r.Context(), kind, e.ID, changes)
		if err != nil {
			h.domainError(w, r, err)
			return
		}

		h.successResponse(w, r, "record updated", updated)
	}
}

func (h *Handler) DeactivateEntity(kind domain.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		e := r.Context().Value(EntityCtx).(*domain.Entity)

		updated, err := h.lifecycle.Deactivate(r.Context(), kind, e.ID)
		if err != nil {
			h.domainError(w, r, err)
			return
		}

		h.successResponse(w, r, "record deactivated", updated)
	}
}

func (h *Handler) ReactivateEntity(kind domain.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		e := r.Context().Value(EntityCtx).(*domain.Entity)

		updated, err := h.lifecycle.Reactivate(r.Context(), kind, e.ID)
		if err != nil {
			h.domainError(w, r, err)
			return
		}

		h.successResponse(w, r, "record reactivated", updated)
	}
}

func (h *Handler) DeleteEntity(kind domain.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		e := r.Context().Value(EntityCtx).(*domain.Entity)

		res, err := h.lifecycle.PermanentDelete(r.Context(), kind, e.ID)
		if err != nil {
			h.domainError(w, r, err)
			return
		}

		h.successResponse(w, r, "record deleted", res)
	}
}
