package core_test

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
)

// setupTestDB connects to the dedicated test database, truncates the pipeline
// tables, and seeds the catalog. Integration tests skip when
// TEST_DATABASE_URL is not set to protect live databases.
func setupTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()
	_ = godotenv.Load("../../.env")

	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set — skipping integration test to protect live database")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}

	_, err = pool.Exec(ctx, `
		TRUNCATE TABLE chargeback_notes, chargebacks,
		               invoice_payments, remittance_lines, remittances,
		               invoice_lines, invoices,
		               erp_sales_order_lines, erp_sales_orders,
		               order_lines, purchase_orders,
		               stock_levels, products, users CASCADE;

		INSERT INTO products (id, sku, ean, asin, name, safety_stock) VALUES
		(1, 'SKU-RED-CHAIR',  '4001234567890', 'B00RED01', 'Red Chair',  10),
		(2, 'SKU-BLUE-DESK',  '4001234567891', 'B00BLU02', 'Blue Desk',  10),
		(3, 'SKU-LAMP-SMALL', '4001234567892', 'B00LMP03', 'Small Lamp',  5);
		SELECT setval('products_id_seq', 100);

		INSERT INTO stock_levels (product_id, warehouse_code, qty_on_hand) VALUES
		(1, 'MAIN', 40),
		(2, 'MAIN', 500),
		(3, 'MAIN', 3);
	`)
	if err != nil {
		t.Fatalf("Failed to seed test database: %v", err)
	}

	return pool
}
