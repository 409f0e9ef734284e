package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"vendor-pipeline/internal/app"
)

// getInvoice handles GET /api/invoices/{invoiceNumber}. Invoice numbers
// contain slashes, so clients URL-encode them (VBE%2F2024%2F02%2F00365).
func (h *Handler) getInvoice(w http.ResponseWriter, r *http.Request) {
	inv, err := h.svc.GetInvoice(r.Context(), chi.URLParam(r, "invoiceNumber"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, inv)
}

// validateInvoice handles POST /api/orders/{orderNumber}/invoice/validate.
func (h *Handler) validateInvoice(w http.ResponseWriter, r *http.Request) {
	var body struct {
		InvoiceID int `json:"invoice_id"`
	}
	if r.ContentLength > 0 && !decodeJSON(w, r, &body) {
		return
	}

	result, err := h.svc.ValidateInvoice(r.Context(), chi.URLParam(r, "orderNumber"), body.InvoiceID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// submitInvoice handles POST /api/orders/{orderNumber}/invoice/submit.
func (h *Handler) submitInvoice(w http.ResponseWriter, r *http.Request) {
	var body struct {
		InvoiceID      int  `json:"invoice_id"`
		DryRun         bool `json:"dry_run"`
		SkipValidation bool `json:"skip_validation"`
		ForceSubmit    bool `json:"force_submit"`
	}
	if r.ContentLength > 0 && !decodeJSON(w, r, &body) {
		return
	}

	result, err := h.svc.SubmitInvoice(r.Context(), app.SubmitInvoiceRequest{
		OrderNumber:    chi.URLParam(r, "orderNumber"),
		InvoiceID:      body.InvoiceID,
		DryRun:         body.DryRun,
		SkipValidation: body.SkipValidation,
		ForceSubmit:    body.ForceSubmit,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// submitPendingInvoices handles POST /api/invoices/submit-pending.
func (h *Handler) submitPendingInvoices(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r.URL.Query().Get("limit"))
	result, err := h.svc.SubmitPendingInvoices(r.Context(), limit)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}
