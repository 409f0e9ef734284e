package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// listGroups handles GET /api/consolidation/groups.
func (h *Handler) listGroups(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.ListConsolidationGroups(r.Context(), r.URL.Query().Get("marketplace"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// groupDetail handles GET /api/consolidation/groups/{destination}/{windowEnd}.
// windowEnd is a calendar date (2006-01-02) or "nodate".
func (h *Handler) groupDetail(w http.ResponseWriter, r *http.Request) {
	detail, err := h.svc.GetConsolidationGroup(
		r.Context(),
		r.URL.Query().Get("marketplace"),
		chi.URLParam(r, "destination"),
		chi.URLParam(r, "windowEnd"),
	)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, detail)
}
