package web

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"vendor-pipeline/internal/app"
)

// listOrders handles GET /api/orders.
func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := app.ListOrdersRequest{
		Marketplace:    q.Get("marketplace"),
		State:          q.Get("state"),
		ShipmentStatus: q.Get("shipment_status"),
		Stat:           q.Get("stat"),
		Limit:          queryInt(q.Get("limit")),
		Skip:           queryInt(q.Get("skip")),
	}
	if raw := q.Get("acknowledged"); raw != "" {
		b := raw == "true" || raw == "1"
		req.Acknowledged = &b
	}

	result, err := h.svc.ListOrders(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// getOrder handles GET /api/orders/{orderNumber}.
func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.GetOrder(r.Context(), chi.URLParam(r, "orderNumber"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result.Order)
}

// acknowledgeOrder handles POST /api/orders/{orderNumber}/acknowledge.
func (h *Handler) acknowledgeOrder(w http.ResponseWriter, r *http.Request) {
	var body struct {
		AllowOverwrite bool   `json:"allow_overwrite"`
		StatusCode     string `json:"status_code"`
		SkipTransmit   bool   `json:"skip_transmit"`
	}
	if r.ContentLength > 0 && !decodeJSON(w, r, &body) {
		return
	}

	result, err := h.svc.AcknowledgeOrder(r.Context(), app.AcknowledgeRequest{
		OrderNumber:    chi.URLParam(r, "orderNumber"),
		AllowOverwrite: body.AllowOverwrite,
		StatusCode:     body.StatusCode,
		SkipTransmit:   body.SkipTransmit,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result.Order)
}

// applyAcknowledgment handles POST /api/orders/{orderNumber}/acknowledgment
// with operator-supplied quantity splits.
func (h *Handler) applyAcknowledgment(w http.ResponseWriter, r *http.Request) {
	var body struct {
		AllowOverwrite bool   `json:"allow_overwrite"`
		StatusCode     string `json:"status_code"`
		SkipTransmit   bool   `json:"skip_transmit"`
		Lines          []struct {
			SequenceNumber int             `json:"sequence_number"`
			AcknowledgeQty decimal.Decimal `json:"acknowledge_qty"`
			BackorderQty   decimal.Decimal `json:"backorder_qty"`
		} `json:"lines"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}

	req := app.ManualAcknowledgeRequest{
		OrderNumber:    chi.URLParam(r, "orderNumber"),
		AllowOverwrite: body.AllowOverwrite,
		StatusCode:     body.StatusCode,
		SkipTransmit:   body.SkipTransmit,
	}
	for _, l := range body.Lines {
		req.Lines = append(req.Lines, app.ManualLineInput{
			SequenceNumber: l.SequenceNumber,
			AcknowledgeQty: l.AcknowledgeQty,
			BackorderQty:   l.BackorderQty,
		})
	}

	result, err := h.svc.ApplyAcknowledgment(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result.Order)
}

// acknowledgePending handles POST /api/orders/acknowledge-pending.
func (h *Handler) acknowledgePending(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r.URL.Query().Get("limit"))
	result, err := h.svc.AcknowledgePendingOrders(r.Context(), limit)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

func queryInt(raw string) int {
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return n
}
