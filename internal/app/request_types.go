package app

import (
	"github.com/shopspring/decimal"
)

// ListOrdersRequest is the input for ListOrders.
type ListOrdersRequest struct {
	Marketplace    string
	State          string
	ShipmentStatus string
	Acknowledged   *bool
	// Stat is a composite filter: action_required, open or shipped. Takes
	// precedence over State/ShipmentStatus when set.
	Stat  string
	Limit int
	Skip  int
}

// AcknowledgeRequest is the input for the automatic acknowledgment of one
// order.
type AcknowledgeRequest struct {
	OrderNumber string
	// AllowOverwrite re-acknowledges an already-acknowledged order.
	AllowOverwrite bool
	// StatusCode overrides the default acknowledgment status code.
	StatusCode string
	// SkipTransmit commits locally without calling the trading partner.
	SkipTransmit bool
}

// ManualAcknowledgeRequest is the input for an operator-supplied split.
type ManualAcknowledgeRequest struct {
	OrderNumber    string
	AllowOverwrite bool
	StatusCode     string
	SkipTransmit   bool
	Lines          []ManualLineInput
}

// ManualLineInput is one per-line quantity decision.
type ManualLineInput struct {
	SequenceNumber int
	AcknowledgeQty decimal.Decimal
	BackorderQty   decimal.Decimal
}

// SubmitInvoiceRequest is the input for SubmitInvoice.
type SubmitInvoiceRequest struct {
	OrderNumber    string
	InvoiceID      int
	DryRun         bool
	SkipValidation bool
	ForceSubmit    bool
}

// ChargebackRequest creates or refreshes a chargeback record.
type ChargebackRequest struct {
	ChargebackRef string
	Type          string
	Amount        decimal.Decimal
	OrderNumber   string
}
