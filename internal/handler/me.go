package handler

import (
	"errors"
	"net/http"

	"github.com/brokerdesk/backoffice/backend/internal/domain"
	"github.com/brokerdesk/backoffice/backend/internal/portal"
)

func (h *Handler) GetMe(w http.ResponseWriter, r *http.Request) {
	me := r.Context().Value(MeCtx).(*domain.Entity)
	h.successResponse(w, r, "profile loaded", me)
}

func (h *Handler) GetMyNavigation(w http.ResponseWriter, r *http.Request) {
	me := r.Context().Value(MeCtx).(*domain.Entity)

	p, err := portal.For(me.Role)
	if err != nil {
		switch {
		case errors.Is(err, portal.ErrNoPortal):
			h.errorResponse(w, r, err.Error())
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	h.successResponse(w, r, "navigation loaded", struct {
		Role     domain.Role      `json:"role"`
		Home     string           `json:"home"`
		Sections []portal.Section `json:"sections"`
	}{
		Role:     p.Role(),
		Home:     p.Home(),
		Sections: p.Navigation(),
	})
}
