package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// UpgradeTenant moves the caller's tenant to the pro plan. The slug in the
// path must resolve to the tenant named in the caller's token.
func (h *Handler) UpgradeTenant(w http.ResponseWriter, r *http.Request) {
	tenant, err := h.svc.UpgradeTenant(r.Context(), claims(r), chi.URLParam(r, "slug"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tenant)
}
