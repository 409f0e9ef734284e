package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// ackStatusAccepted is the default acknowledgment status code reported to the
// trading partner.
const ackStatusAccepted = "00"

// AckOptions control an acknowledgment run.
type AckOptions struct {
	// AllowOverwrite permits re-acknowledging an already-acknowledged order.
	AllowOverwrite bool
	// StatusCode overrides the acknowledgment status code (default "00").
	StatusCode string
	// SkipTransmit commits locally without calling the trading partner.
	SkipTransmit bool
}

// ManualLine is a caller-supplied quantity split for one order line.
type ManualLine struct {
	SequenceNumber int
	AcknowledgeQty decimal.Decimal
	BackorderQty   decimal.Decimal
}

// AcknowledgmentService decides, per order line, how much quantity can be
// promised against live warehouse availability, and commits the decision
// atomically.
type AcknowledgmentService interface {
	// AutoFill resolves every line against the catalog, fetches
	// free-to-promise stock, computes the quantity split, and commits.
	AutoFill(ctx context.Context, orderNumber OrderNumber, opts AckOptions) (*PurchaseOrder, error)
	// Apply commits caller-supplied quantity splits. Every line of the order
	// must be covered; a violated invariant aborts with no partial write.
	Apply(ctx context.Context, orderNumber OrderNumber, lines []ManualLine, opts AckOptions) (*PurchaseOrder, error)
	// AcknowledgePending auto-fills the N oldest orders still in state New,
	// continuing past per-order failures.
	AcknowledgePending(ctx context.Context, limit int) (*BatchResult, error)
}

type ackService struct {
	pool        *pgxpool.Pool
	store       OrderStore
	catalog     CatalogResolver
	stock       StockProvider
	transmitter Transmitter
}

// NewAcknowledgmentService wires the acknowledgment engine with its
// collaborators.
func NewAcknowledgmentService(pool *pgxpool.Pool, store OrderStore, catalog CatalogResolver, stock StockProvider, transmitter Transmitter) AcknowledgmentService {
	return &ackService{pool: pool, store: store, catalog: catalog, stock: stock, transmitter: transmitter}
}

func (s *ackService) AutoFill(ctx context.Context, orderNumber OrderNumber, opts AckOptions) (*PurchaseOrder, error) {
	order, err := s.store.Get(ctx, orderNumber)
	if err != nil {
		return nil, err
	}
	if order.Ack.Acknowledged && !opts.AllowOverwrite {
		return nil, ErrAlreadyAcknowledged
	}
	if len(order.Lines) == 0 {
		return nil, &ValidationError{Problems: []string{fmt.Sprintf("order %s has no lines", orderNumber)}}
	}

	plans := make([]LinePlan, 0, len(order.Lines))
	for _, line := range order.Lines {
		plan := LinePlan{SequenceNumber: line.SequenceNumber}

		product, err := s.catalog.Resolve(ctx, line.VendorSKU, line.PartnerProductID)
		if err != nil {
			if IsNotFound(err) {
				// Unmapped product: nothing can be promised, but the order
				// can still be acknowledged with the line backordered out.
				plan.AcknowledgeQty = decimal.Zero
				plan.BackorderQty = line.OrderedQty
				plan.AvailabilityCode = AvailabilityUnavailable
				plans = append(plans, plan)
				continue
			}
			return nil, err
		}

		available, err := s.stock.FreeToPromise(ctx, product.ID)
		if err != nil {
			// Stock lookup failure is infrastructure, not a decision:
			// the order stays New.
			return nil, fmt.Errorf("%w: line %d (%s): %v", ErrNoAvailability, line.SequenceNumber, line.VendorSKU, err)
		}

		pid := product.ID
		avail := available
		plan.WarehouseProductID = &pid
		plan.AvailableQty = &avail
		plan.AcknowledgeQty, plan.BackorderQty, plan.AvailabilityCode = planLine(line.OrderedQty, available)
		plans = append(plans, plan)
	}

	return s.commit(ctx, order, plans, opts)
}

func (s *ackService) Apply(ctx context.Context, orderNumber OrderNumber, lines []ManualLine, opts AckOptions) (*PurchaseOrder, error) {
	order, err := s.store.Get(ctx, orderNumber)
	if err != nil {
		return nil, err
	}
	if order.Ack.Acknowledged && !opts.AllowOverwrite {
		return nil, ErrAlreadyAcknowledged
	}

	bySeq := make(map[int]ManualLine, len(lines))
	for _, ml := range lines {
		bySeq[ml.SequenceNumber] = ml
	}

	var problems []string
	plans := make([]LinePlan, 0, len(order.Lines))
	for _, line := range order.Lines {
		ml, ok := bySeq[line.SequenceNumber]
		if !ok {
			problems = append(problems, fmt.Sprintf("line %d: missing quantity decision", line.SequenceNumber))
			continue
		}
		problems = append(problems, validateManualSplit(line.SequenceNumber, line.OrderedQty, ml.AcknowledgeQty, ml.BackorderQty)...)
		plans = append(plans, LinePlan{
			SequenceNumber:     line.SequenceNumber,
			WarehouseProductID: line.WarehouseProductID,
			AvailableQty:       line.AvailableQty,
			AcknowledgeQty:     ml.AcknowledgeQty,
			BackorderQty:       ml.BackorderQty,
			AvailabilityCode:   availabilityFor(line.OrderedQty, ml.AcknowledgeQty),
		})
	}
	for seq := range bySeq {
		found := false
		for _, line := range order.Lines {
			if line.SequenceNumber == seq {
				found = true
				break
			}
		}
		if !found {
			problems = append(problems, fmt.Sprintf("line %d: not on order %s", seq, orderNumber))
		}
	}
	if len(problems) > 0 {
		return nil, &ValidationError{Problems: problems}
	}

	return s.commit(ctx, order, plans, opts)
}

// commit transmits the acknowledgment (unless skipped) and then writes the
// order, all line decisions, and the acknowledgment flag in one transaction.
// A duplicate report from the transport counts as success so a retried commit
// converges instead of failing.
func (s *ackService) commit(ctx context.Context, order *PurchaseOrder, plans []LinePlan, opts AckOptions) (*PurchaseOrder, error) {
	statusCode := opts.StatusCode
	if statusCode == "" {
		statusCode = ackStatusAccepted
	}

	if !opts.SkipTransmit && s.transmitter != nil {
		ackLines := make([]AckLine, len(plans))
		planBySeq := make(map[int]LinePlan, len(plans))
		for _, p := range plans {
			planBySeq[p.SequenceNumber] = p
		}
		for i, line := range order.Lines {
			p := planBySeq[line.SequenceNumber]
			ackLines[i] = AckLine{
				SequenceNumber:   line.SequenceNumber,
				PartnerProductID: line.PartnerProductID,
				AcknowledgeQty:   p.AcknowledgeQty,
				BackorderQty:     p.BackorderQty,
				AvailabilityCode: p.AvailabilityCode,
			}
		}
		if _, err := s.transmitter.TransmitAcknowledgment(ctx, order.OrderNumber, ackLines); err != nil && !errors.Is(err, ErrAlreadyProcessed) {
			return nil, fmt.Errorf("transmit acknowledgment for order %s: %w", order.OrderNumber, err)
		}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var acknowledged bool
	if err := tx.QueryRow(ctx,
		"SELECT acknowledged FROM purchase_orders WHERE order_number = $1 FOR UPDATE",
		order.OrderNumber,
	).Scan(&acknowledged); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &NotFoundError{Kind: "order", ID: string(order.OrderNumber)}
		}
		return nil, fmt.Errorf("lock order %s: %w", order.OrderNumber, err)
	}
	if acknowledged && !opts.AllowOverwrite {
		return nil, ErrAlreadyAcknowledged
	}

	for _, p := range plans {
		if _, err := tx.Exec(ctx, `
			UPDATE order_lines
			SET warehouse_product_id = $3,
			    available_qty        = $4,
			    acknowledge_qty      = $5,
			    backorder_qty        = $6,
			    availability_code    = $7
			WHERE order_number = $1 AND sequence_number = $2`,
			order.OrderNumber, p.SequenceNumber,
			p.WarehouseProductID, p.AvailableQty,
			p.AcknowledgeQty, p.BackorderQty, p.AvailabilityCode,
		); err != nil {
			return nil, fmt.Errorf("write decision for order %s line %d: %w", order.OrderNumber, p.SequenceNumber, err)
		}
	}

	now := time.Now().UTC()
	if _, err := tx.Exec(ctx, `
		UPDATE purchase_orders
		SET state = $2, acknowledged = true, acknowledged_at = $3,
		    ack_status_code = $4, updated_at = NOW()
		WHERE order_number = $1`,
		order.OrderNumber, OrderStateAcknowledged, now, statusCode,
	); err != nil {
		return nil, fmt.Errorf("mark order %s acknowledged: %w", order.OrderNumber, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit acknowledgment of order %s: %w", order.OrderNumber, err)
	}

	return s.store.Get(ctx, order.OrderNumber)
}

func (s *ackService) AcknowledgePending(ctx context.Context, limit int) (*BatchResult, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	rows, err := s.pool.Query(ctx, `
		SELECT order_number FROM purchase_orders
		WHERE state = $1 AND acknowledged = false
		ORDER BY order_date ASC
		LIMIT $2`,
		OrderStateNew, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list pending orders: %w", err)
	}
	var pending []OrderNumber
	for rows.Next() {
		var on OrderNumber
		if err := rows.Scan(&on); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan pending order: %w", err)
		}
		pending = append(pending, on)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	result := &BatchResult{}
	for _, on := range pending {
		if _, err := s.AutoFill(ctx, on, AckOptions{}); err != nil {
			if errors.Is(err, ErrAlreadyAcknowledged) {
				result.add(BatchItemResult{OrderNumber: on, OK: true, Skipped: true})
				continue
			}
			result.add(BatchItemResult{OrderNumber: on, Error: err.Error()})
			continue
		}
		result.add(BatchItemResult{OrderNumber: on, OK: true})
	}
	return result, nil
}
