package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// reasonNotFound marks a detail line whose reference resolved to no invoice
// in the accounting system.
const reasonNotFound = "not_found_in_erp"
const reasonBadRef = "unparseable_reference"

// Match stages, in order of attempt. First match wins.
const (
	matchStageExact    = "exact"
	matchStageContains = "contains"
	matchStageSequence = "sequence"
)

// UnmatchedLine reports one detail line that could not be matched, with the
// canonical reference that was attempted.
type UnmatchedLine struct {
	RawInvoiceRef string          `json:"raw_invoice_ref"`
	CanonicalRef  string          `json:"canonical_ref,omitempty"`
	NetAmountPaid decimal.Decimal `json:"net_amount_paid"`
	Reason        string          `json:"reason"`
}

// ImportResult aggregates one remittance import batch.
type ImportResult struct {
	PaymentNumber   PaymentNumber   `json:"payment_number"`
	AlreadyImported bool            `json:"already_imported,omitempty"`
	TotalLines      int             `json:"total_lines"`
	MatchedCount    int             `json:"matched_count"`
	UnmatchedCount  int             `json:"unmatched_count"`
	OtherCount      int             `json:"other_count"`
	MatchedAmount   decimal.Decimal `json:"matched_amount"`
	UnmatchedAmount decimal.Decimal `json:"unmatched_amount"`
	OtherAmount     decimal.Decimal `json:"other_amount"`
	Unmatched       []UnmatchedLine `json:"unmatched,omitempty"`
}

// RemittanceService parses imported payment batches, normalizes partner
// invoice references into the seller's numbering scheme, and marks matched
// invoices as paid. Matching is append-only and idempotent on re-import.
type RemittanceService interface {
	Import(ctx context.Context, file RemittanceFile) (*ImportResult, error)
}

type remittanceService struct {
	pool         *pgxpool.Pool
	sellerPrefix string
}

// NewRemittanceService constructs the matcher. sellerPrefix is the seller's
// own invoice prefix (e.g. "VBE"); references without it are classified as
// chargebacks/fees and never matched.
func NewRemittanceService(pool *pgxpool.Pool, sellerPrefix string) RemittanceService {
	return &remittanceService{pool: pool, sellerPrefix: sellerPrefix}
}

func (s *remittanceService) Import(ctx context.Context, file RemittanceFile) (*ImportResult, error) {
	if file.PaymentNumber == "" {
		return nil, &ValidationError{Problems: []string{"payment number is required"}}
	}

	// Re-import of a known batch re-reads the stored outcome instead of
	// matching again: identical counts, zero new payment records.
	var existingID int
	err := s.pool.QueryRow(ctx,
		"SELECT id FROM remittances WHERE payment_number = $1", file.PaymentNumber,
	).Scan(&existingID)
	if err == nil {
		return s.storedResult(ctx, existingID, file.PaymentNumber)
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("look up remittance %s: %w", file.PaymentNumber, err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var remittanceID int
	if err := tx.QueryRow(ctx, `
		INSERT INTO remittances (payment_number, payment_date, amount, currency, raw_payload)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (payment_number) DO NOTHING
		RETURNING id`,
		file.PaymentNumber, file.PaymentDate, file.Amount, file.Currency, file.Raw,
	).Scan(&remittanceID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Lost the race against a concurrent import of the same batch.
			return s.storedResult(ctx, 0, file.PaymentNumber)
		}
		return nil, fmt.Errorf("insert remittance %s: %w", file.PaymentNumber, err)
	}

	result := &ImportResult{PaymentNumber: file.PaymentNumber}
	for _, line := range file.Lines {
		if err := s.importLine(ctx, tx, remittanceID, file, line, result); err != nil {
			return nil, err
		}
	}
	result.TotalLines = len(file.Lines)

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit remittance %s: %w", file.PaymentNumber, err)
	}
	return result, nil
}

func (s *remittanceService) importLine(ctx context.Context, tx pgx.Tx, remittanceID int, file RemittanceFile, line RemittanceFileLine, result *ImportResult) error {
	class := classifyRemittanceRef(line.RawInvoiceRef, s.sellerPrefix)

	var (
		canonical InvoiceNumber
		invoiceID *int
		stage     string
		reason    string
	)

	switch class {
	case LineClassOther:
		result.OtherCount++
		result.OtherAmount = result.OtherAmount.Add(line.NetAmountPaid)
	case LineClassInvoice:
		var ok bool
		canonical, ok = NormalizeInvoiceRef(line.RawInvoiceRef)
		if !ok {
			reason = reasonBadRef
			break
		}
		id, matchedStage, err := s.matchInvoice(ctx, tx, canonical)
		if err != nil {
			return err
		}
		if id == 0 {
			reason = reasonNotFound
			break
		}
		invoiceID = &id
		stage = matchedStage

		if err := s.recordPayment(ctx, tx, id, file, line); err != nil {
			return err
		}
	}

	matched := invoiceID != nil
	if class == LineClassInvoice {
		if matched {
			result.MatchedCount++
			result.MatchedAmount = result.MatchedAmount.Add(line.NetAmountPaid)
		} else {
			result.UnmatchedCount++
			result.UnmatchedAmount = result.UnmatchedAmount.Add(line.NetAmountPaid)
			result.Unmatched = append(result.Unmatched, UnmatchedLine{
				RawInvoiceRef: line.RawInvoiceRef,
				CanonicalRef:  string(canonical),
				NetAmountPaid: line.NetAmountPaid,
				Reason:        reason,
			})
		}
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO remittance_lines
		            (remittance_id, raw_invoice_ref, canonical_ref, line_class,
		             invoice_amount, net_amount_paid, matched, matched_invoice_id,
		             match_stage, reason)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, $7, $8, NULLIF($9, ''), NULLIF($10, ''))`,
		remittanceID, line.RawInvoiceRef, string(canonical), class,
		line.InvoiceAmount, line.NetAmountPaid, matched, invoiceID, stage, reason,
	); err != nil {
		return fmt.Errorf("insert remittance line %q: %w", line.RawInvoiceRef, err)
	}
	return nil
}

// matchInvoice resolves a canonical reference to an invoice id. Stages in
// order: exact equality, substring containment, then same year/month bucket
// with a matching trailing sequence. The last stage is a known heuristic:
// two invoices sharing a trailing sequence in the same month cannot be told
// apart, and the source data gives nothing further to disambiguate with.
func (s *remittanceService) matchInvoice(ctx context.Context, tx pgx.Tx, canonical InvoiceNumber) (int, string, error) {
	var id int
	err := tx.QueryRow(ctx,
		"SELECT id FROM invoices WHERE invoice_number = $1", canonical,
	).Scan(&id)
	if err == nil {
		return id, matchStageExact, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, "", fmt.Errorf("exact match for %s: %w", canonical, err)
	}

	err = tx.QueryRow(ctx, `
		SELECT id FROM invoices
		WHERE position($1 in invoice_number) > 0 OR position(invoice_number in $1) > 0
		ORDER BY invoice_number
		LIMIT 1`,
		string(canonical),
	).Scan(&id)
	if err == nil {
		return id, matchStageContains, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, "", fmt.Errorf("contains match for %s: %w", canonical, err)
	}

	prefix, year, month, seq, ok := refParts(canonical)
	if !ok {
		return 0, "", nil
	}
	rows, err := tx.Query(ctx,
		"SELECT id, invoice_number FROM invoices WHERE invoice_number LIKE $1 ORDER BY invoice_number",
		fmt.Sprintf("%s/%s/%s/%%", prefix, year, month),
	)
	if err != nil {
		return 0, "", fmt.Errorf("sequence match for %s: %w", canonical, err)
	}
	defer rows.Close()
	for rows.Next() {
		var candidate InvoiceNumber
		if err := rows.Scan(&id, &candidate); err != nil {
			return 0, "", fmt.Errorf("scan sequence candidate: %w", err)
		}
		if _, _, _, candSeq, ok := refParts(candidate); ok && trailingSequenceMatches(candSeq, seq) {
			return id, matchStageSequence, nil
		}
	}
	return 0, "", rows.Err()
}

// recordPayment upserts the one payment record an invoice can carry and
// flips the invoice's payment status. The conflict target makes re-imports
// append-only: an existing match is never overwritten.
func (s *remittanceService) recordPayment(ctx context.Context, tx pgx.Tx, invoiceID int, file RemittanceFile, line RemittanceFileLine) error {
	status := PaymentProcessed
	if line.NetAmountPaid.IsPositive() {
		status = PaymentPaid
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO invoice_payments (invoice_id, payment_number, net_amount_paid, matched_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (invoice_id) DO NOTHING`,
		invoiceID, file.PaymentNumber, line.NetAmountPaid,
	); err != nil {
		return fmt.Errorf("record payment for invoice %d: %w", invoiceID, err)
	}

	if _, err := tx.Exec(ctx,
		"UPDATE invoices SET payment_status = $2 WHERE id = $1 AND payment_status = $3",
		invoiceID, status, PaymentOpen,
	); err != nil {
		return fmt.Errorf("mark invoice %d %s: %w", invoiceID, status, err)
	}
	return nil
}

// storedResult rebuilds an ImportResult from previously imported lines.
func (s *remittanceService) storedResult(ctx context.Context, remittanceID int, paymentNumber PaymentNumber) (*ImportResult, error) {
	if remittanceID == 0 {
		if err := s.pool.QueryRow(ctx,
			"SELECT id FROM remittances WHERE payment_number = $1", paymentNumber,
		).Scan(&remittanceID); err != nil {
			return nil, fmt.Errorf("reload remittance %s: %w", paymentNumber, err)
		}
	}

	rows, err := s.pool.Query(ctx, `
		SELECT raw_invoice_ref, COALESCE(canonical_ref, ''), line_class,
		       net_amount_paid, matched, COALESCE(reason, '')
		FROM remittance_lines
		WHERE remittance_id = $1
		ORDER BY id`,
		remittanceID,
	)
	if err != nil {
		return nil, fmt.Errorf("reload remittance %s lines: %w", paymentNumber, err)
	}
	defer rows.Close()

	result := &ImportResult{PaymentNumber: paymentNumber, AlreadyImported: true}
	for rows.Next() {
		var (
			raw, canonical, reason string
			class                  LineClass
			net                    decimal.Decimal
			matched                bool
		)
		if err := rows.Scan(&raw, &canonical, &class, &net, &matched, &reason); err != nil {
			return nil, fmt.Errorf("scan stored remittance line: %w", err)
		}
		result.TotalLines++
		switch {
		case class == LineClassOther:
			result.OtherCount++
			result.OtherAmount = result.OtherAmount.Add(net)
		case matched:
			result.MatchedCount++
			result.MatchedAmount = result.MatchedAmount.Add(net)
		default:
			result.UnmatchedCount++
			result.UnmatchedAmount = result.UnmatchedAmount.Add(net)
			result.Unmatched = append(result.Unmatched, UnmatchedLine{
				RawInvoiceRef: raw,
				CanonicalRef:  canonical,
				NetAmountPaid: net,
				Reason:        reason,
			})
		}
	}
	return result, rows.Err()
}
