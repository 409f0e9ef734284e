package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// InvoiceService validates draft invoice submissions against their source
// orders and transmits them to the trading partner.
type InvoiceService interface {
	// Validate checks the order's latest invoice (or a specific one via
	// invoiceID > 0). Expected failures land in the result, never in err.
	Validate(ctx context.Context, orderNumber OrderNumber, invoiceID int) (*ValidationResult, error)
	// Submit transmits the invoice for an order, honoring dry-run, skip and
	// force controls. Retried submissions converge to Skipped, not errors.
	Submit(ctx context.Context, orderNumber OrderNumber, opts SubmitOptions) (*SubmitResult, error)
	// SubmitPending submits the N oldest fully-shipped orders with no
	// successful submission yet, continuing past per-order failures.
	SubmitPending(ctx context.Context, limit int) (*BatchResult, error)
	// Get returns an invoice by its seller-assigned number.
	Get(ctx context.Context, invoiceNumber InvoiceNumber) (*Invoice, error)
}

type invoiceService struct {
	pool        *pgxpool.Pool
	store       OrderStore
	transmitter Transmitter
}

// NewInvoiceService wires the invoice pipeline.
func NewInvoiceService(pool *pgxpool.Pool, store OrderStore, transmitter Transmitter) InvoiceService {
	return &invoiceService{pool: pool, store: store, transmitter: transmitter}
}

const invoiceColumns = `
	id, invoice_number, order_number, state, invoice_date,
	amount_untaxed, amount_total, currency,
	submission_status, transaction_id, submitted_at, COALESCE(error_message, ''),
	payment_status, created_at`

func scanInvoice(row pgx.Row) (*Invoice, error) {
	inv := &Invoice{}
	err := row.Scan(
		&inv.ID, &inv.InvoiceNumber, &inv.OrderNumber, &inv.State, &inv.InvoiceDate,
		&inv.AmountUntaxed, &inv.AmountTotal, &inv.Currency,
		&inv.Submission.Status, &inv.Submission.TransactionID, &inv.Submission.SubmittedAt, &inv.Submission.ErrorMessage,
		&inv.PaymentStatus, &inv.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return inv, nil
}

func (s *invoiceService) fetchInvoiceLines(ctx context.Context, invoiceID int) ([]InvoiceLine, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, vendor_sku, COALESCE(partner_product_id, ''), quantity, unit_price
		FROM invoice_lines WHERE invoice_id = $1 ORDER BY id`,
		invoiceID,
	)
	if err != nil {
		return nil, fmt.Errorf("fetch lines for invoice %d: %w", invoiceID, err)
	}
	defer rows.Close()

	var lines []InvoiceLine
	for rows.Next() {
		var l InvoiceLine
		if err := rows.Scan(&l.ID, &l.VendorSKU, &l.PartnerProductID, &l.Quantity, &l.UnitPrice); err != nil {
			return nil, fmt.Errorf("scan invoice line: %w", err)
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

func (s *invoiceService) Get(ctx context.Context, invoiceNumber InvoiceNumber) (*Invoice, error) {
	inv, err := scanInvoice(s.pool.QueryRow(ctx,
		"SELECT "+invoiceColumns+" FROM invoices WHERE invoice_number = $1",
		invoiceNumber,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &NotFoundError{Kind: "invoice", ID: string(invoiceNumber)}
		}
		return nil, fmt.Errorf("get invoice %s: %w", invoiceNumber, err)
	}
	inv.Lines, err = s.fetchInvoiceLines(ctx, inv.ID)
	if err != nil {
		return nil, err
	}
	return inv, nil
}

// invoiceForOrder loads the targeted invoice: a specific id when given,
// otherwise the most recent invoice for the order. Returns (nil, nil) when
// the order simply has no invoice yet.
func (s *invoiceService) invoiceForOrder(ctx context.Context, orderNumber OrderNumber, invoiceID int) (*Invoice, error) {
	var row pgx.Row
	if invoiceID > 0 {
		row = s.pool.QueryRow(ctx,
			"SELECT "+invoiceColumns+" FROM invoices WHERE id = $1 AND order_number = $2",
			invoiceID, orderNumber,
		)
	} else {
		row = s.pool.QueryRow(ctx,
			"SELECT "+invoiceColumns+" FROM invoices WHERE order_number = $1 ORDER BY invoice_date DESC, id DESC LIMIT 1",
			orderNumber,
		)
	}

	inv, err := scanInvoice(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			if invoiceID > 0 {
				return nil, &NotFoundError{Kind: "invoice", ID: fmt.Sprint(invoiceID)}
			}
			return nil, nil
		}
		return nil, fmt.Errorf("load invoice for order %s: %w", orderNumber, err)
	}
	inv.Lines, err = s.fetchInvoiceLines(ctx, inv.ID)
	if err != nil {
		return nil, err
	}
	return inv, nil
}

func (s *invoiceService) Validate(ctx context.Context, orderNumber OrderNumber, invoiceID int) (*ValidationResult, error) {
	order, err := s.store.Get(ctx, orderNumber)
	if err != nil {
		return nil, err
	}
	inv, err := s.invoiceForOrder(ctx, orderNumber, invoiceID)
	if err != nil {
		return nil, err
	}
	result := validateInvoiceAgainstOrder(order, inv)
	return &result, nil
}

func (s *invoiceService) Submit(ctx context.Context, orderNumber OrderNumber, opts SubmitOptions) (*SubmitResult, error) {
	order, err := s.store.Get(ctx, orderNumber)
	if err != nil {
		return nil, err
	}
	inv, err := s.invoiceForOrder(ctx, orderNumber, opts.InvoiceID)
	if err != nil {
		return nil, err
	}

	result := &SubmitResult{OrderNumber: orderNumber}
	if inv != nil {
		result.InvoiceNumber = inv.InvoiceNumber
	}

	// Upstream retries of the same request are expected: an invoice the
	// partner already has resolves as a no-op success.
	if inv != nil && (inv.Submission.Status == SubmissionSubmitted || inv.Submission.Status == SubmissionAccepted) {
		result.Skipped = true
		result.TransactionID = inv.Submission.TransactionID
		return result, nil
	}

	if !opts.SkipValidation {
		validation := validateInvoiceAgainstOrder(order, inv)
		result.Validation = &validation
		if !validation.IsValid && !opts.ForceSubmit {
			result.Errors = validation.Errors
			return result, nil
		}
	}

	// Force or not, there is nothing to transmit without an invoice.
	if inv == nil {
		result.Errors = append(result.Errors, fmt.Sprintf("no invoice found for order %s", orderNumber))
		return result, nil
	}

	payload := buildInvoicePayload(order, inv)

	if opts.DryRun {
		result.DryRun = true
		result.Payload = &payload
		return result, nil
	}

	txID, err := s.transmitter.TransmitInvoice(ctx, payload)
	switch {
	case errors.Is(err, ErrAlreadyProcessed):
		result.Skipped = true
	case err != nil:
		// Surface as a failure result so batch callers keep going; the
		// submission state records the message for the operator.
		if recErr := s.recordSubmission(ctx, inv.ID, SubmissionFailed, "", err.Error()); recErr != nil {
			return nil, recErr
		}
		result.Errors = []string{err.Error()}
		return result, nil
	default:
		result.Submitted = true
		result.TransactionID = txID
	}

	if err := s.recordSubmission(ctx, inv.ID, SubmissionSubmitted, txID, ""); err != nil {
		return nil, err
	}
	return result, nil
}

// recordSubmission updates the invoice's submission sub-state atomically.
func (s *invoiceService) recordSubmission(ctx context.Context, invoiceID int, status SubmissionStatus, txID, errMsg string) error {
	var submittedAt *time.Time
	if status == SubmissionSubmitted || status == SubmissionAccepted {
		now := time.Now().UTC()
		submittedAt = &now
	}
	if _, err := s.pool.Exec(ctx, `
		UPDATE invoices
		SET submission_status = $2, transaction_id = $3, submitted_at = $4, error_message = NULLIF($5, '')
		WHERE id = $1`,
		invoiceID, status, txID, submittedAt, errMsg,
	); err != nil {
		return fmt.Errorf("record submission state on invoice %d: %w", invoiceID, err)
	}
	return nil
}

func (s *invoiceService) SubmitPending(ctx context.Context, limit int) (*BatchResult, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	// Oldest fully-shipped orders holding a posted invoice that was never
	// successfully transmitted.
	rows, err := s.pool.Query(ctx, `
		SELECT DISTINCT po.order_number, po.order_date
		FROM purchase_orders po
		JOIN invoices i ON i.order_number = po.order_number
		WHERE po.shipment_status = $1
		  AND i.state = $2
		  AND i.submission_status NOT IN ($3, $4)
		ORDER BY po.order_date ASC
		LIMIT $5`,
		ShipmentFullyShipped, InvoicePosted, SubmissionSubmitted, SubmissionAccepted, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list pending submissions: %w", err)
	}
	var pending []OrderNumber
	for rows.Next() {
		var on OrderNumber
		var orderDate time.Time
		if err := rows.Scan(&on, &orderDate); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan pending submission: %w", err)
		}
		pending = append(pending, on)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	result := &BatchResult{}
	for _, on := range pending {
		sub, err := s.Submit(ctx, on, SubmitOptions{})
		if err != nil {
			result.add(BatchItemResult{OrderNumber: on, Error: err.Error()})
			continue
		}
		item := BatchItemResult{OrderNumber: on, OK: sub.Submitted || sub.Skipped, Skipped: sub.Skipped}
		if len(sub.Errors) > 0 {
			item.OK = false
			item.Error = sub.Errors[0]
		}
		result.add(item)
	}
	return result, nil
}
