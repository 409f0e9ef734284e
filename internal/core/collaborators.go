package core

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// CatalogResolver maps trading-partner product identifiers to the seller's
// warehouse product. Resolution order is fixed: exact match on the primary
// external code (SKU), then the secondary code (EAN), then the partner's own
// catalog id. First match wins, no scoring.
type CatalogResolver interface {
	Resolve(ctx context.Context, vendorSKU, partnerProductID string) (*Product, error)
}

// StockProvider returns the free-to-promise quantity for a warehouse product
// at the canonical fulfillment warehouse, net of the product's safety stock.
type StockProvider interface {
	FreeToPromise(ctx context.Context, productID int) (decimal.Decimal, error)
}

// Product is the seller-side catalog entry for a warehouse product.
type Product struct {
	ID          int
	SKU         string
	EAN         string
	ASIN        string
	Name        string
	SafetyStock decimal.Decimal
}

// ErrAlreadyProcessed is returned by a Transmitter when the trading partner
// reports the document as already received for this order. Callers treat it
// as an idempotent no-op success.
var ErrAlreadyProcessed = errors.New("already processed by trading partner")

// TransientError wraps a retryable external failure (rate limit, timeout).
// RetryAfter carries the provider-issued backoff hint when present.
type TransientError struct {
	Err        error
	RetryAfter time.Duration
}

func (e *TransientError) Error() string { return "transient: " + e.Err.Error() }
func (e *TransientError) Unwrap() error { return e.Err }

// IsTransient reports whether err is (or wraps) a TransientError.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// AckLine is one per-line quantity decision transmitted to the trading
// partner.
type AckLine struct {
	SequenceNumber   int
	PartnerProductID string
	AcknowledgeQty   decimal.Decimal
	BackorderQty     decimal.Decimal
	AvailabilityCode AvailabilityCode
}

// InvoicePayload is the document handed to the Transmitter for invoice
// submission. Built by the invoice pipeline, returned as-is on dry runs.
type InvoicePayload struct {
	OrderNumber   OrderNumber     `json:"order_number"`
	InvoiceNumber InvoiceNumber   `json:"invoice_number"`
	Currency      string          `json:"currency"`
	AmountUntaxed decimal.Decimal `json:"amount_untaxed"`
	AmountTotal   decimal.Decimal `json:"amount_total"`
	Lines         []InvoicePayloadLine
}

type InvoicePayloadLine struct {
	PartnerProductID string          `json:"partner_product_id"`
	Quantity         decimal.Decimal `json:"quantity"`
	UnitPrice        decimal.Decimal `json:"unit_price"`
}

// Transmitter performs the network calls that deliver acknowledgments and
// invoices to the trading partner. Implementations return a partner-issued
// transaction id, ErrAlreadyProcessed for duplicates, or a TransientError
// for retryable failures.
type Transmitter interface {
	TransmitAcknowledgment(ctx context.Context, orderNumber OrderNumber, lines []AckLine) (transactionID string, err error)
	TransmitInvoice(ctx context.Context, payload InvoicePayload) (transactionID string, err error)
}

// OrderSource fetches new and changed purchase orders from the trading
// partner's API. since bounds the change window.
type OrderSource interface {
	FetchOrders(ctx context.Context, since time.Time) ([]PurchaseOrder, error)
}

// ERPOrderCreator creates the internal sales order for an acknowledged
// purchase order and returns its identifiers for the order's ERP link.
type ERPOrderCreator interface {
	CreateSalesOrder(ctx context.Context, order *PurchaseOrder) (erpOrderID int, erpOrderRef string, err error)
}

// RemittanceFile is a parsed payment-remittance file: one payment header and
// zero or more invoice-level detail lines (some files are summary-only).
// Raw is the verbatim file content, archived for audit and replay.
type RemittanceFile struct {
	PaymentNumber PaymentNumber
	PaymentDate   time.Time
	Amount        decimal.Decimal
	Currency      string
	Lines         []RemittanceFileLine
	Raw           []byte
}

type RemittanceFileLine struct {
	RawInvoiceRef string
	InvoiceAmount decimal.Decimal
	NetAmountPaid decimal.Decimal
}

// RemittanceSource lists and fetches remittance files published by the
// trading partner since the given time.
type RemittanceSource interface {
	FetchRemittances(ctx context.Context, since time.Time) ([]RemittanceFile, error)
}
