package core

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type DisputeStatus string

const (
	DisputePending  DisputeStatus = "pending"
	DisputeAccepted DisputeStatus = "accepted"
	DisputeDisputed DisputeStatus = "disputed"
	DisputeWon      DisputeStatus = "won"
	DisputeLost     DisputeStatus = "lost"
	DisputePartial  DisputeStatus = "partial"
)

var disputeStatuses = map[DisputeStatus]bool{
	DisputePending: true, DisputeAccepted: true, DisputeDisputed: true,
	DisputeWon: true, DisputeLost: true, DisputePartial: true,
}

// Chargeback is a post-payment deduction applied by the trading partner,
// tracked through its dispute lifecycle.
type Chargeback struct {
	ID            int             `json:"id"`
	ChargebackRef string          `json:"chargeback_ref"`
	Type          string          `json:"type"`
	Amount        decimal.Decimal `json:"amount"`
	OrderNumber   *OrderNumber    `json:"order_number,omitempty"`
	DisputeStatus DisputeStatus   `json:"dispute_status"`
	Notes         []ChargebackNote `json:"notes,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

// ChargebackNote is one entry in the append-only audit trail.
type ChargebackNote struct {
	Note      string    `json:"note"`
	CreatedAt time.Time `json:"created_at"`
}

// ChargebackInput creates or updates a chargeback, keyed by the
// partner-issued reference.
type ChargebackInput struct {
	ChargebackRef string
	Type          string
	Amount        decimal.Decimal
	OrderNumber   *OrderNumber
}

// CSVImportResult summarizes a bulk chargeback import.
type CSVImportResult struct {
	Rows     int      `json:"rows"`
	Imported int      `json:"imported"`
	Errors   []string `json:"errors,omitempty"`
}

// ChargebackService tracks chargebacks and their dispute lifecycle.
type ChargebackService interface {
	Upsert(ctx context.Context, input ChargebackInput) (*Chargeback, error)
	Get(ctx context.Context, id int) (*Chargeback, error)
	List(ctx context.Context, status DisputeStatus, page Page) ([]Chargeback, error)
	// UpdateDisputeStatus transitions the dispute state and appends a
	// timestamped note. Any target status is allowed (the partner's
	// back-office drives the real-world constraint); an unknown id fails.
	UpdateDisputeStatus(ctx context.Context, id int, status DisputeStatus, note string) (*Chargeback, error)
	// ImportCSV maps partner-exported rows into chargebacks, upserting
	// idempotently by the partner chargeback id.
	ImportCSV(ctx context.Context, r io.Reader) (*CSVImportResult, error)
}

type chargebackService struct {
	pool *pgxpool.Pool
}

// NewChargebackService constructs a ChargebackService backed by PostgreSQL.
func NewChargebackService(pool *pgxpool.Pool) ChargebackService {
	return &chargebackService{pool: pool}
}

func (s *chargebackService) Upsert(ctx context.Context, input ChargebackInput) (*Chargeback, error) {
	if input.ChargebackRef == "" {
		return nil, &ValidationError{Problems: []string{"chargeback reference is required"}}
	}

	var id int
	if err := s.pool.QueryRow(ctx, `
		INSERT INTO chargebacks (chargeback_ref, type, amount, order_number, dispute_status)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (chargeback_ref) DO UPDATE SET
			type   = EXCLUDED.type,
			amount = EXCLUDED.amount,
			order_number = COALESCE(EXCLUDED.order_number, chargebacks.order_number)
		RETURNING id`,
		input.ChargebackRef, input.Type, input.Amount, input.OrderNumber, DisputePending,
	).Scan(&id); err != nil {
		return nil, fmt.Errorf("upsert chargeback %s: %w", input.ChargebackRef, err)
	}
	return s.Get(ctx, id)
}

func (s *chargebackService) Get(ctx context.Context, id int) (*Chargeback, error) {
	cb := &Chargeback{}
	err := s.pool.QueryRow(ctx, `
		SELECT id, chargeback_ref, type, amount, order_number, dispute_status, created_at
		FROM chargebacks WHERE id = $1`,
		id,
	).Scan(&cb.ID, &cb.ChargebackRef, &cb.Type, &cb.Amount, &cb.OrderNumber, &cb.DisputeStatus, &cb.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &NotFoundError{Kind: "chargeback", ID: fmt.Sprint(id)}
		}
		return nil, fmt.Errorf("get chargeback %d: %w", id, err)
	}

	rows, err := s.pool.Query(ctx,
		"SELECT note, created_at FROM chargeback_notes WHERE chargeback_id = $1 ORDER BY created_at, id",
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("fetch notes for chargeback %d: %w", id, err)
	}
	defer rows.Close()
	for rows.Next() {
		var n ChargebackNote
		if err := rows.Scan(&n.Note, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan chargeback note: %w", err)
		}
		cb.Notes = append(cb.Notes, n)
	}
	return cb, rows.Err()
}

func (s *chargebackService) List(ctx context.Context, status DisputeStatus, page Page) ([]Chargeback, error) {
	limit := page.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}

	query := `
		SELECT id, chargeback_ref, type, amount, order_number, dispute_status, created_at
		FROM chargebacks`
	args := []any{}
	if status != "" {
		query += " WHERE dispute_status = $1"
		args = append(args, status)
	}
	query += fmt.Sprintf(" ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, limit, page.Skip)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list chargebacks: %w", err)
	}
	defer rows.Close()

	var out []Chargeback
	for rows.Next() {
		var cb Chargeback
		if err := rows.Scan(&cb.ID, &cb.ChargebackRef, &cb.Type, &cb.Amount, &cb.OrderNumber, &cb.DisputeStatus, &cb.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan chargeback: %w", err)
		}
		out = append(out, cb)
	}
	return out, rows.Err()
}

func (s *chargebackService) UpdateDisputeStatus(ctx context.Context, id int, status DisputeStatus, note string) (*Chargeback, error) {
	if !disputeStatuses[status] {
		return nil, &ValidationError{Problems: []string{fmt.Sprintf("unknown dispute status %q", status)}}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var current DisputeStatus
	if err := tx.QueryRow(ctx,
		"SELECT dispute_status FROM chargebacks WHERE id = $1 FOR UPDATE", id,
	).Scan(&current); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &NotFoundError{Kind: "chargeback", ID: fmt.Sprint(id)}
		}
		return nil, fmt.Errorf("lock chargeback %d: %w", id, err)
	}

	if _, err := tx.Exec(ctx,
		"UPDATE chargebacks SET dispute_status = $2 WHERE id = $1",
		id, status,
	); err != nil {
		return nil, fmt.Errorf("update chargeback %d status: %w", id, err)
	}

	entry := fmt.Sprintf("status %s -> %s", current, status)
	if note != "" {
		entry += ": " + note
	}
	if _, err := tx.Exec(ctx,
		"INSERT INTO chargeback_notes (chargeback_id, note) VALUES ($1, $2)",
		id, entry,
	); err != nil {
		return nil, fmt.Errorf("append note to chargeback %d: %w", id, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit dispute update for chargeback %d: %w", id, err)
	}
	return s.Get(ctx, id)
}

// csvColumn indexes for partner chargeback exports:
// chargeback id, type, amount, order number (optional).
const (
	csvColRef = iota
	csvColType
	csvColAmount
	csvColOrderNumber
)

func (s *chargebackService) ImportCSV(ctx context.Context, r io.Reader) (*CSVImportResult, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	result := &CSVImportResult{}
	first := true
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read chargeback CSV: %w", err)
		}
		if first {
			first = false
			// Tolerate a header row.
			if strings.EqualFold(strings.TrimSpace(record[csvColRef]), "chargeback_id") {
				continue
			}
		}
		result.Rows++

		if len(record) <= csvColAmount {
			result.Errors = append(result.Errors, fmt.Sprintf("row %d: too few columns", result.Rows))
			continue
		}
		amount, err := decimal.NewFromString(strings.TrimSpace(record[csvColAmount]))
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("row %d: bad amount %q", result.Rows, record[csvColAmount]))
			continue
		}

		input := ChargebackInput{
			ChargebackRef: strings.TrimSpace(record[csvColRef]),
			Type:          strings.TrimSpace(record[csvColType]),
			Amount:        amount,
		}
		if len(record) > csvColOrderNumber {
			if on := strings.TrimSpace(record[csvColOrderNumber]); on != "" {
				ref := OrderNumber(on)
				input.OrderNumber = &ref
			}
		}

		if _, err := s.Upsert(ctx, input); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("row %d: %v", result.Rows, err))
			continue
		}
		result.Imported++
	}
	return result, nil
}
