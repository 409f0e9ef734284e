package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const defaultListLimit = 50

// OrderStore is the durable record of purchase orders. Every mutation is safe
// to replay: the upstream poller delivers at least once.
type OrderStore interface {
	// Upsert merges an order by order number. Fields owned by this system
	// (ERP link, acknowledgment detail, computed line quantities) are set on
	// insert only, so a later poll of the same order cannot erase them.
	Upsert(ctx context.Context, order *PurchaseOrder) error
	Get(ctx context.Context, orderNumber OrderNumber) (*PurchaseOrder, error)
	List(ctx context.Context, filter OrderFilter, page Page) ([]PurchaseOrder, error)
	Count(ctx context.Context, filter OrderFilter) (int, error)
	// SetERPLink records the ERP sales order for an order. It refuses to
	// overwrite an existing link.
	SetERPLink(ctx context.Context, orderNumber OrderNumber, erpOrderID int, erpOrderRef string) error
}

type orderStore struct {
	pool *pgxpool.Pool
}

// NewOrderStore constructs an OrderStore backed by PostgreSQL.
func NewOrderStore(pool *pgxpool.Pool) OrderStore {
	return &orderStore{pool: pool}
}

func (s *orderStore) Upsert(ctx context.Context, order *PurchaseOrder) error {
	if order.OrderNumber == "" {
		return &ValidationError{Problems: []string{"order number is required"}}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	state := order.State
	if state == "" {
		state = OrderStateNew
	}
	shipment := order.ShipmentStatus
	if shipment == "" {
		shipment = ShipmentNotShipped
	}

	// State is poll-owned until the order is locally acknowledged; after that
	// the acknowledgment engine owns it and a stale poll must not regress it.
	if _, err := tx.Exec(ctx, `
		INSERT INTO purchase_orders
		            (order_number, marketplace, state, shipment_status,
		             delivery_window_start, delivery_window_end,
		             destination_party_id, destination_address, destination_city,
		             destination_postal_code, destination_country,
		             order_date, total_units, total_amount, currency)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (order_number) DO UPDATE SET
			marketplace             = EXCLUDED.marketplace,
			state                   = CASE WHEN purchase_orders.acknowledged
			                               THEN purchase_orders.state
			                               ELSE EXCLUDED.state END,
			shipment_status         = EXCLUDED.shipment_status,
			delivery_window_start   = EXCLUDED.delivery_window_start,
			delivery_window_end     = EXCLUDED.delivery_window_end,
			destination_party_id    = EXCLUDED.destination_party_id,
			destination_address     = EXCLUDED.destination_address,
			destination_city        = EXCLUDED.destination_city,
			destination_postal_code = EXCLUDED.destination_postal_code,
			destination_country     = EXCLUDED.destination_country,
			order_date              = EXCLUDED.order_date,
			total_units             = EXCLUDED.total_units,
			total_amount            = EXCLUDED.total_amount,
			currency                = EXCLUDED.currency,
			updated_at              = NOW()`,
		order.OrderNumber, order.Marketplace, state, shipment,
		order.DeliveryWindow.Start, order.DeliveryWindow.End,
		order.Destination.PartyID, order.Destination.AddressLine, order.Destination.City,
		order.Destination.PostalCode, order.Destination.CountryCode,
		order.OrderDate, order.Totals.Units, order.Totals.Amount, order.Totals.Currency,
	); err != nil {
		return fmt.Errorf("upsert order %s: %w", order.OrderNumber, err)
	}

	// Line merge preserves locally-computed acknowledgment quantities.
	for _, l := range order.Lines {
		if _, err := tx.Exec(ctx, `
			INSERT INTO order_lines
			            (order_number, sequence_number, vendor_sku, partner_product_id,
			             ordered_qty, unit_of_measure, unit_cost)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (order_number, sequence_number) DO UPDATE SET
				vendor_sku         = EXCLUDED.vendor_sku,
				partner_product_id = EXCLUDED.partner_product_id,
				ordered_qty        = EXCLUDED.ordered_qty,
				unit_of_measure    = EXCLUDED.unit_of_measure,
				unit_cost          = EXCLUDED.unit_cost`,
			order.OrderNumber, l.SequenceNumber, l.VendorSKU, l.PartnerProductID,
			l.OrderedQty, l.UnitOfMeasure, l.UnitCost,
		); err != nil {
			return fmt.Errorf("upsert order %s line %d: %w", order.OrderNumber, l.SequenceNumber, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit upsert of order %s: %w", order.OrderNumber, err)
	}
	return nil
}

const orderColumns = `
	order_number, marketplace, state, shipment_status,
	delivery_window_start, delivery_window_end,
	destination_party_id, destination_address, destination_city,
	destination_postal_code, destination_country,
	order_date, total_units, total_amount, currency,
	erp_order_id, erp_order_ref,
	acknowledged, acknowledged_at, ack_status_code,
	created_at, updated_at`

func scanOrder(row pgx.Row) (*PurchaseOrder, error) {
	po := &PurchaseOrder{}
	err := row.Scan(
		&po.OrderNumber, &po.Marketplace, &po.State, &po.ShipmentStatus,
		&po.DeliveryWindow.Start, &po.DeliveryWindow.End,
		&po.Destination.PartyID, &po.Destination.AddressLine, &po.Destination.City,
		&po.Destination.PostalCode, &po.Destination.CountryCode,
		&po.OrderDate, &po.Totals.Units, &po.Totals.Amount, &po.Totals.Currency,
		&po.ERP.OrderID, &po.ERP.OrderRef,
		&po.Ack.Acknowledged, &po.Ack.AcknowledgedAt, &po.Ack.StatusCode,
		&po.CreatedAt, &po.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if po.Ack.Acknowledged && po.State == OrderStateNew {
		// Defensive: never happens through the acknowledgment engine.
		po.State = OrderStateAcknowledged
	}
	return po, nil
}

func (s *orderStore) Get(ctx context.Context, orderNumber OrderNumber) (*PurchaseOrder, error) {
	po, err := scanOrder(s.pool.QueryRow(ctx,
		"SELECT "+orderColumns+" FROM purchase_orders WHERE order_number = $1",
		orderNumber,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &NotFoundError{Kind: "order", ID: string(orderNumber)}
		}
		return nil, fmt.Errorf("get order %s: %w", orderNumber, err)
	}

	lines, err := fetchOrderLines(ctx, s.pool, orderNumber)
	if err != nil {
		return nil, err
	}
	po.Lines = lines
	return po, nil
}

func fetchOrderLines(ctx context.Context, q interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}, orderNumber OrderNumber) ([]LineItem, error) {
	rows, err := q.Query(ctx, `
		SELECT id, sequence_number, vendor_sku, partner_product_id,
		       ordered_qty, unit_of_measure, unit_cost,
		       warehouse_product_id, available_qty,
		       acknowledge_qty, backorder_qty, COALESCE(availability_code, '')
		FROM order_lines
		WHERE order_number = $1
		ORDER BY sequence_number`,
		orderNumber,
	)
	if err != nil {
		return nil, fmt.Errorf("fetch lines for order %s: %w", orderNumber, err)
	}
	defer rows.Close()

	var lines []LineItem
	for rows.Next() {
		var l LineItem
		if err := rows.Scan(
			&l.ID, &l.SequenceNumber, &l.VendorSKU, &l.PartnerProductID,
			&l.OrderedQty, &l.UnitOfMeasure, &l.UnitCost,
			&l.WarehouseProductID, &l.AvailableQty,
			&l.AcknowledgeQty, &l.BackorderQty, &l.AvailabilityCode,
		); err != nil {
			return nil, fmt.Errorf("scan order line: %w", err)
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

// filterClause renders an OrderFilter into a WHERE fragment plus args.
func filterClause(f OrderFilter) (string, []any) {
	where := "TRUE"
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.Marketplace != "" {
		where += " AND marketplace = " + arg(f.Marketplace)
	}
	if f.Acknowledged != nil {
		where += " AND acknowledged = " + arg(*f.Acknowledged)
	}
	if f.MissingERPLink {
		where += " AND erp_order_id IS NULL"
	}

	switch f.Stat {
	case StatActionRequired:
		where += fmt.Sprintf(" AND (state = %s OR (state = %s AND shipment_status = %s))",
			arg(OrderStateNew), arg(OrderStateAcknowledged), arg(ShipmentNotShipped))
	case StatOpen:
		where += fmt.Sprintf(" AND state NOT IN (%s, %s)", arg(OrderStateClosed), arg(OrderStateCancelled))
	case StatShipped:
		where += " AND shipment_status = " + arg(ShipmentFullyShipped)
	default:
		if f.State != "" {
			where += " AND state = " + arg(f.State)
		}
		if f.ShipmentStatus != "" {
			where += " AND shipment_status = " + arg(f.ShipmentStatus)
		}
	}
	return where, args
}

func (s *orderStore) List(ctx context.Context, filter OrderFilter, page Page) ([]PurchaseOrder, error) {
	limit := page.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}

	where, args := filterClause(filter)
	args = append(args, limit, page.Skip)
	query := fmt.Sprintf(
		"SELECT %s FROM purchase_orders WHERE %s ORDER BY order_date DESC, order_number LIMIT $%d OFFSET $%d",
		orderColumns, where, len(args)-1, len(args),
	)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var orders []PurchaseOrder
	for rows.Next() {
		po, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, *po)
	}
	return orders, rows.Err()
}

func (s *orderStore) Count(ctx context.Context, filter OrderFilter) (int, error) {
	where, args := filterClause(filter)
	var n int
	if err := s.pool.QueryRow(ctx,
		"SELECT COUNT(*) FROM purchase_orders WHERE "+where, args...,
	).Scan(&n); err != nil {
		return 0, fmt.Errorf("count orders: %w", err)
	}
	return n, nil
}

func (s *orderStore) SetERPLink(ctx context.Context, orderNumber OrderNumber, erpOrderID int, erpOrderRef string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE purchase_orders
		SET erp_order_id = $2, erp_order_ref = $3, updated_at = NOW()
		WHERE order_number = $1 AND erp_order_id IS NULL`,
		orderNumber, erpOrderID, erpOrderRef,
	)
	if err != nil {
		return fmt.Errorf("set ERP link on order %s: %w", orderNumber, err)
	}
	if tag.RowsAffected() == 0 {
		existing, err := s.Get(ctx, orderNumber)
		if err != nil {
			return err
		}
		// Idempotent when the same link is already recorded.
		if existing.ERP.OrderID != nil && *existing.ERP.OrderID == erpOrderID {
			return nil
		}
		return fmt.Errorf("order %s already linked to ERP order %v", orderNumber, existing.ERP.OrderID)
	}
	return nil
}
