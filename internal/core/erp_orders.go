package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// erpOrderCreator creates the internal sales order for an acknowledged
// purchase order. Orders dedupe on the source order number, so a retried
// create after a crash converges on the existing sales order.
type erpOrderCreator struct {
	pool *pgxpool.Pool
}

// NewERPSalesOrderCreator constructs an ERPOrderCreator backed by the ERP
// sales order tables.
func NewERPSalesOrderCreator(pool *pgxpool.Pool) ERPOrderCreator {
	return &erpOrderCreator{pool: pool}
}

func (c *erpOrderCreator) CreateSalesOrder(ctx context.Context, order *PurchaseOrder) (int, string, error) {
	tx, err := c.pool.Begin(ctx)
	if err != nil {
		return 0, "", fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var id int
	var ref string
	err = tx.QueryRow(ctx, `
		INSERT INTO erp_sales_orders (source_order_number, order_ref, marketplace, order_date, amount, currency)
		VALUES ($1, 'SO-' || nextval('erp_sales_order_ref_seq'), $2, $3, $4, $5)
		ON CONFLICT (source_order_number) DO NOTHING
		RETURNING id, order_ref`,
		order.OrderNumber, order.Marketplace, order.OrderDate,
		order.Totals.Amount, order.Totals.Currency,
	).Scan(&id, &ref)
	if errors.Is(err, pgx.ErrNoRows) {
		// Already created by an earlier run.
		if err := tx.QueryRow(ctx,
			"SELECT id, order_ref FROM erp_sales_orders WHERE source_order_number = $1",
			order.OrderNumber,
		).Scan(&id, &ref); err != nil {
			return 0, "", fmt.Errorf("reload ERP order for %s: %w", order.OrderNumber, err)
		}
		return id, ref, tx.Commit(ctx)
	}
	if err != nil {
		return 0, "", fmt.Errorf("create ERP order for %s: %w", order.OrderNumber, err)
	}

	for _, l := range order.Lines {
		ackQty := l.OrderedQty
		if l.AcknowledgeQty != nil {
			ackQty = *l.AcknowledgeQty
		}
		if ackQty.IsZero() {
			continue
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO erp_sales_order_lines (erp_order_id, vendor_sku, quantity, unit_price)
			VALUES ($1, $2, $3, $4)`,
			id, l.VendorSKU, ackQty, l.UnitCost,
		); err != nil {
			return 0, "", fmt.Errorf("create ERP order line for %s: %w", order.OrderNumber, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, "", fmt.Errorf("commit ERP order for %s: %w", order.OrderNumber, err)
	}
	return id, ref, nil
}
