package app

import (
	"context"
	"io"

	"vendor-pipeline/internal/core"
)

// ApplicationService is the single interface all adapters (web, CLI) call.
// It decouples presentation from business logic. Implementations must contain
// no display logic of any kind.
type ApplicationService interface {
	// ListOrders returns purchase orders matching the filter, newest first,
	// with the total count for pagination.
	ListOrders(ctx context.Context, req ListOrdersRequest) (*OrderListResult, error)

	// GetOrder returns a single purchase order with its lines.
	GetOrder(ctx context.Context, orderNumber string) (*OrderResult, error)

	// AcknowledgeOrder runs the stock-aware automatic acknowledgment for one
	// order and transmits the result to the trading partner.
	AcknowledgeOrder(ctx context.Context, req AcknowledgeRequest) (*OrderResult, error)

	// ApplyAcknowledgment commits operator-supplied per-line quantity splits.
	ApplyAcknowledgment(ctx context.Context, req ManualAcknowledgeRequest) (*OrderResult, error)

	// AcknowledgePendingOrders auto-acknowledges the oldest unacknowledged
	// orders, continuing past per-order failures.
	AcknowledgePendingOrders(ctx context.Context, limit int) (*core.BatchResult, error)

	// ListConsolidationGroups returns the current shipment consolidation
	// groups, optionally restricted to one marketplace.
	ListConsolidationGroups(ctx context.Context, marketplace string) (*GroupListResult, error)

	// GetConsolidationGroup returns one group with its per-product
	// consolidated item list.
	GetConsolidationGroup(ctx context.Context, marketplace, destinationCode, windowEndDate string) (*core.GroupDetail, error)

	// ValidateInvoice checks an order's invoice against the order without
	// submitting anything.
	ValidateInvoice(ctx context.Context, orderNumber string, invoiceID int) (*core.ValidationResult, error)

	// SubmitInvoice validates and transmits an order's invoice, honoring
	// dry-run, skip-validation and force controls.
	SubmitInvoice(ctx context.Context, req SubmitInvoiceRequest) (*core.SubmitResult, error)

	// SubmitPendingInvoices submits the oldest fully-shipped orders whose
	// invoices were never successfully transmitted.
	SubmitPendingInvoices(ctx context.Context, limit int) (*core.BatchResult, error)

	// GetInvoice returns an invoice by its seller-assigned number.
	GetInvoice(ctx context.Context, invoiceNumber string) (*core.Invoice, error)

	// ImportRemittance ingests one parsed remittance file, matching its
	// detail lines to invoices. Idempotent per payment number.
	ImportRemittance(ctx context.Context, file core.RemittanceFile) (*core.ImportResult, error)

	// UpsertChargeback records or refreshes a chargeback by its
	// partner-issued reference.
	UpsertChargeback(ctx context.Context, req ChargebackRequest) (*core.Chargeback, error)

	// GetChargeback returns one chargeback with its note history.
	GetChargeback(ctx context.Context, id int) (*core.Chargeback, error)

	// ListChargebacks returns chargebacks, optionally filtered by dispute
	// status.
	ListChargebacks(ctx context.Context, status string, limit, skip int) (*ChargebackListResult, error)

	// UpdateChargebackDispute transitions a chargeback's dispute status and
	// appends an audit note. Fails on unknown ids.
	UpdateChargebackDispute(ctx context.Context, id int, status, note string) (*core.Chargeback, error)

	// ImportChargebacksCSV bulk-imports partner chargeback export rows.
	ImportChargebacksCSV(ctx context.Context, r io.Reader) (*core.CSVImportResult, error)

	// AuthenticateUser verifies credentials and returns a session on success.
	AuthenticateUser(ctx context.Context, username, password string) (*UserSession, error)

	// GetUser returns user profile by ID.
	GetUser(ctx context.Context, userID int) (*UserResult, error)
}
