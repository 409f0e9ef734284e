package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// catalogService resolves trading-partner product identifiers against the
// seller catalog and answers free-to-promise stock questions. It implements
// both CatalogResolver and StockProvider from the same tables the ERP
// maintains.
type catalogService struct {
	pool      *pgxpool.Pool
	warehouse string
}

// NewCatalogService constructs a catalogService bound to the canonical
// fulfillment warehouse code.
func NewCatalogService(pool *pgxpool.Pool, warehouse string) *catalogService {
	return &catalogService{pool: pool, warehouse: warehouse}
}

var _ CatalogResolver = (*catalogService)(nil)
var _ StockProvider = (*catalogService)(nil)

// Resolve tries the primary external code, then the secondary code, then the
// partner catalog id. First match wins.
func (s *catalogService) Resolve(ctx context.Context, vendorSKU, partnerProductID string) (*Product, error) {
	lookups := []struct {
		column string
		value  string
	}{
		{"sku", vendorSKU},
		{"ean", vendorSKU},
		{"asin", partnerProductID},
	}

	for _, lk := range lookups {
		if lk.value == "" {
			continue
		}
		p := &Product{}
		err := s.pool.QueryRow(ctx,
			"SELECT id, sku, ean, asin, name, safety_stock FROM products WHERE "+lk.column+" = $1 AND is_active = true",
			lk.value,
		).Scan(&p.ID, &p.SKU, &p.EAN, &p.ASIN, &p.Name, &p.SafetyStock)
		if err == nil {
			return p, nil
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("resolve product by %s=%s: %w", lk.column, lk.value, err)
		}
	}
	return nil, &NotFoundError{Kind: "product", ID: vendorSKU + "/" + partnerProductID}
}

// FreeToPromise returns on-hand stock at the canonical warehouse minus the
// product's safety stock, clamped at zero. The safety margin keeps a buffer
// back from the marketplace.
func (s *catalogService) FreeToPromise(ctx context.Context, productID int) (decimal.Decimal, error) {
	var onHand, safety decimal.Decimal
	err := s.pool.QueryRow(ctx, `
		SELECT COALESCE(sl.qty_on_hand, 0), p.safety_stock
		FROM products p
		LEFT JOIN stock_levels sl ON sl.product_id = p.id AND sl.warehouse_code = $2
		WHERE p.id = $1`,
		productID, s.warehouse,
	).Scan(&onHand, &safety)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, &NotFoundError{Kind: "product", ID: fmt.Sprint(productID)}
		}
		return decimal.Zero, fmt.Errorf("stock lookup for product %d: %w", productID, err)
	}

	free := onHand.Sub(safety)
	if free.IsNegative() {
		free = decimal.Zero
	}
	return free, nil
}
