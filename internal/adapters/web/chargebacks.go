package web

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"vendor-pipeline/internal/app"
)

// listChargebacks handles GET /api/chargebacks.
func (h *Handler) listChargebacks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	result, err := h.svc.ListChargebacks(r.Context(), q.Get("status"), queryInt(q.Get("limit")), queryInt(q.Get("skip")))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// upsertChargeback handles POST /api/chargebacks.
func (h *Handler) upsertChargeback(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ChargebackRef string          `json:"chargeback_ref"`
		Type          string          `json:"type"`
		Amount        decimal.Decimal `json:"amount"`
		OrderNumber   string          `json:"order_number"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}

	cb, err := h.svc.UpsertChargeback(r.Context(), app.ChargebackRequest{
		ChargebackRef: body.ChargebackRef,
		Type:          body.Type,
		Amount:        body.Amount,
		OrderNumber:   body.OrderNumber,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, cb)
}

// getChargeback handles GET /api/chargebacks/{id}.
func (h *Handler) getChargeback(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, "invalid chargeback id", "BAD_REQUEST", http.StatusBadRequest)
		return
	}

	cb, err := h.svc.GetChargeback(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, cb)
}

// updateChargebackDispute handles POST /api/chargebacks/{id}/dispute.
func (h *Handler) updateChargebackDispute(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, "invalid chargeback id", "BAD_REQUEST", http.StatusBadRequest)
		return
	}

	var body struct {
		Status string `json:"status"`
		Note   string `json:"note"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}

	cb, err := h.svc.UpdateChargebackDispute(r.Context(), id, body.Status, body.Note)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, cb)
}

// importChargebacksCSV handles POST /api/chargebacks/import with a CSV body.
func (h *Handler) importChargebacksCSV(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 10<<20) // 10 MB
	result, err := h.svc.ImportChargebacksCSV(r.Context(), r.Body)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}
