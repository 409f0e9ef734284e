// Package web is the HTTP adapter: a thin chi router over the
// ApplicationService. No business logic lives here.
package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"vendor-pipeline/internal/app"
)

// Handler holds the ApplicationService and the chi router.
type Handler struct {
	svc       app.ApplicationService
	jwtSecret string
	logger    *zap.Logger
}

// NewHandler creates and wires the chi router with all routes.
func NewHandler(svc app.ApplicationService, allowedOrigins, jwtSecret string, logger *zap.Logger) http.Handler {
	h := &Handler{
		svc:       svc,
		jwtSecret: jwtSecret,
		logger:    logger,
	}

	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(Logger(logger))
	r.Use(Recoverer(logger))
	r.Use(CORS(allowedOrigins))

	// Health (public)
	r.Get("/api/health", h.health)

	// Auth (public)
	r.Post("/api/auth/login", h.login)
	r.Post("/api/auth/logout", h.logout)

	// Protected API routes (401 JSON if unauthenticated)
	r.Group(func(r chi.Router) {
		r.Use(h.RequireAuth)

		// CSV uploads manage their own size limit.
		r.Post("/api/chargebacks/import", h.importChargebacksCSV)

		r.Group(func(r chi.Router) {
			r.Use(RequestBodyLimit(1 << 20)) // 1 MB

			r.Get("/api/auth/me", h.me)

			// Orders and acknowledgment
			r.Get("/api/orders", h.listOrders)
			r.Get("/api/orders/{orderNumber}", h.getOrder)
			r.Post("/api/orders/{orderNumber}/acknowledge", h.acknowledgeOrder)
			r.Post("/api/orders/{orderNumber}/acknowledgment", h.applyAcknowledgment)
			r.Post("/api/orders/acknowledge-pending", h.acknowledgePending)

			// Shipment consolidation
			r.Get("/api/consolidation/groups", h.listGroups)
			r.Get("/api/consolidation/groups/{destination}/{windowEnd}", h.groupDetail)

			// Invoices
			r.Get("/api/invoices/{invoiceNumber}", h.getInvoice)
			r.Post("/api/orders/{orderNumber}/invoice/validate", h.validateInvoice)
			r.Post("/api/orders/{orderNumber}/invoice/submit", h.submitInvoice)
			r.Post("/api/invoices/submit-pending", h.submitPendingInvoices)

			// Remittances
			r.Post("/api/remittances/import", h.importRemittance)

			// Chargebacks
			r.Get("/api/chargebacks", h.listChargebacks)
			r.Post("/api/chargebacks", h.upsertChargeback)
			r.Get("/api/chargebacks/{id}", h.getChargeback)
			r.Post("/api/chargebacks/{id}/dispute", h.updateChargebackDispute)
		})
	})

	return r
}

// health handles GET /api/health.
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}
