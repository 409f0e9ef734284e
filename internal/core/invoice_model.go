package core

import (
	"time"

	"github.com/shopspring/decimal"
)

type InvoiceState string

const (
	InvoiceDraft  InvoiceState = "draft"
	InvoicePosted InvoiceState = "posted"
)

type SubmissionStatus string

const (
	SubmissionNotSubmitted SubmissionStatus = "not_submitted"
	SubmissionSubmitted    SubmissionStatus = "submitted"
	SubmissionAccepted     SubmissionStatus = "accepted"
	SubmissionFailed       SubmissionStatus = "failed"
)

type InvoicePaymentStatus string

const (
	PaymentOpen InvoicePaymentStatus = "open"
	// PaymentPaid means a remittance line with a positive net amount matched.
	PaymentPaid InvoicePaymentStatus = "paid"
	// PaymentProcessed means the partner processed the invoice at zero net
	// (fully offset by deductions).
	PaymentProcessed InvoicePaymentStatus = "processed"
)

// Submission is the transmission sub-state of an invoice. Mutated only by the
// invoice pipeline.
type Submission struct {
	Status        SubmissionStatus `json:"status"`
	TransactionID string           `json:"transaction_id,omitempty"`
	SubmittedAt   *time.Time       `json:"submitted_at,omitempty"`
	ErrorMessage  string           `json:"error_message,omitempty"`
}

type Invoice struct {
	ID            int                  `json:"id"`
	InvoiceNumber InvoiceNumber        `json:"invoice_number"`
	OrderNumber   OrderNumber          `json:"order_number"`
	State         InvoiceState         `json:"state"`
	InvoiceDate   time.Time            `json:"invoice_date"`
	AmountUntaxed decimal.Decimal      `json:"amount_untaxed"`
	AmountTotal   decimal.Decimal      `json:"amount_total"`
	Currency      string               `json:"currency"`
	Submission    Submission           `json:"submission"`
	PaymentStatus InvoicePaymentStatus `json:"payment_status"`
	Lines         []InvoiceLine        `json:"lines,omitempty"`
	CreatedAt     time.Time            `json:"created_at"`
}

type InvoiceLine struct {
	ID               int             `json:"id"`
	VendorSKU        string          `json:"vendor_sku"`
	PartnerProductID string          `json:"partner_product_id"`
	Quantity         decimal.Decimal `json:"quantity"`
	UnitPrice        decimal.Decimal `json:"unit_price"`
}

// ValidationResult is the outcome of checking a draft submission against its
// source order. Expected validation failures populate Errors; they are never
// returned as Go errors.
type ValidationResult struct {
	HasInvoice bool     `json:"has_invoice"`
	IsValid    bool     `json:"is_valid"`
	Errors     []string `json:"errors,omitempty"`
	Warnings   []string `json:"warnings,omitempty"`
}

// SubmitOptions control a single invoice submission.
type SubmitOptions struct {
	// InvoiceID targets a specific invoice instead of the order's latest.
	InvoiceID int
	// DryRun returns the payload that would be sent without transmitting.
	DryRun bool
	// SkipValidation submits without re-running validation.
	SkipValidation bool
	// ForceSubmit transmits even when validation fails.
	ForceSubmit bool
}

// SubmitResult is the structured outcome of a submission attempt.
type SubmitResult struct {
	OrderNumber   OrderNumber       `json:"order_number"`
	InvoiceNumber InvoiceNumber     `json:"invoice_number,omitempty"`
	Submitted     bool              `json:"submitted"`
	Skipped       bool              `json:"skipped,omitempty"`
	DryRun        bool              `json:"dry_run,omitempty"`
	TransactionID string            `json:"transaction_id,omitempty"`
	Payload       *InvoicePayload   `json:"payload,omitempty"`
	Validation    *ValidationResult `json:"validation,omitempty"`
	Errors        []string          `json:"errors,omitempty"`
}
