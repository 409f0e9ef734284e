package core_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"vendor-pipeline/internal/core"

	"github.com/jackc/pgx/v5/pgxpool"
)

// seedInvoice inserts a posted invoice with lines, the way the accounting
// sync does.
func seedInvoice(t *testing.T, pool *pgxpool.Pool, number, orderNumber, untaxed, total string) int {
	t.Helper()
	ctx := context.Background()

	var id int
	err := pool.QueryRow(ctx, `
		INSERT INTO invoices (invoice_number, order_number, state, invoice_date, amount_untaxed, amount_total, currency)
		VALUES ($1, $2, 'posted', $3, $4, $5, 'EUR')
		RETURNING id`,
		number, orderNumber, time.Date(2026, 8, 22, 0, 0, 0, 0, time.UTC), untaxed, total,
	).Scan(&id)
	if err != nil {
		t.Fatalf("Failed to seed invoice: %v", err)
	}

	_, err = pool.Exec(ctx, `
		INSERT INTO invoice_lines (invoice_id, vendor_sku, partner_product_id, quantity, unit_price) VALUES
		($1, 'SKU-RED-CHAIR', 'B00RED01', 30, 2.50),
		($1, 'SKU-BLUE-DESK', 'B00BLU02', 10, 1.00)`,
		id,
	)
	if err != nil {
		t.Fatalf("Failed to seed invoice lines: %v", err)
	}
	return id
}

// seedAcknowledgedOrder upserts and acknowledges an order without touching
// the network.
func seedAcknowledgedOrder(t *testing.T, pool *pgxpool.Pool, store core.OrderStore, number string) {
	t.Helper()
	ctx := context.Background()
	if err := store.Upsert(ctx, sampleOrder(t, number)); err != nil {
		t.Fatalf("Failed to upsert order: %v", err)
	}
	acks := newAckService(pool, store, nil)
	if _, err := acks.AutoFill(ctx, core.OrderNumber(number), core.AckOptions{SkipTransmit: true}); err != nil {
		t.Fatalf("Failed to acknowledge order: %v", err)
	}
}

func TestInvoice_Validate(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	ctx := context.Background()
	store := core.NewOrderStore(pool)
	invoices := core.NewInvoiceService(pool, store, &stubTransmitter{})

	seedAcknowledgedOrder(t, pool, store, "PO-5001")
	seedInvoice(t, pool, "VBE/2026/08/00101", "PO-5001", "70.00", "85.00")

	result, err := invoices.Validate(ctx, "PO-5001", 0)
	if err != nil {
		t.Fatalf("Failed to validate: %v", err)
	}
	if !result.HasInvoice || !result.IsValid {
		t.Fatalf("validation = %+v, want valid", result)
	}
	// 85.00 against the 135.00 order total deviates enough to warn.
	if len(result.Warnings) != 1 {
		t.Errorf("warnings = %v, want exactly one", result.Warnings)
	}
}

func TestInvoice_ValidateWithoutInvoice(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	ctx := context.Background()
	store := core.NewOrderStore(pool)
	invoices := core.NewInvoiceService(pool, store, &stubTransmitter{})

	seedAcknowledgedOrder(t, pool, store, "PO-5002")

	result, err := invoices.Validate(ctx, "PO-5002", 0)
	if err != nil {
		t.Fatalf("Failed to validate: %v", err)
	}
	if result.HasInvoice || result.IsValid {
		t.Fatalf("validation = %+v, want invalid without invoice", result)
	}
}

func TestInvoice_SubmitDryRunDoesNotMutate(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	ctx := context.Background()
	store := core.NewOrderStore(pool)
	tr := &stubTransmitter{}
	invoices := core.NewInvoiceService(pool, store, tr)

	seedAcknowledgedOrder(t, pool, store, "PO-5003")
	seedInvoice(t, pool, "VBE/2026/08/00102", "PO-5003", "70.00", "85.00")

	result, err := invoices.Submit(ctx, "PO-5003", core.SubmitOptions{DryRun: true})
	if err != nil {
		t.Fatalf("Failed to dry-run submit: %v", err)
	}
	if !result.DryRun || result.Submitted {
		t.Fatalf("result = %+v, want dry run", result)
	}
	if result.Payload == nil || len(result.Payload.Lines) != 2 {
		t.Fatalf("payload = %+v, want 2 lines", result.Payload)
	}
	if len(tr.invCalls) != 0 {
		t.Error("dry run must not transmit")
	}

	inv, err := invoices.Get(ctx, "VBE/2026/08/00102")
	if err != nil {
		t.Fatalf("Failed to get invoice: %v", err)
	}
	if inv.Submission.Status != core.SubmissionNotSubmitted {
		t.Errorf("submission status = %s, want not_submitted", inv.Submission.Status)
	}
}

func TestInvoice_SubmitThenRetrySkips(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	ctx := context.Background()
	store := core.NewOrderStore(pool)
	tr := &stubTransmitter{txID: "TX-901"}
	invoices := core.NewInvoiceService(pool, store, tr)

	seedAcknowledgedOrder(t, pool, store, "PO-5004")
	seedInvoice(t, pool, "VBE/2026/08/00103", "PO-5004", "70.00", "85.00")

	result, err := invoices.Submit(ctx, "PO-5004", core.SubmitOptions{})
	if err != nil {
		t.Fatalf("Failed to submit: %v", err)
	}
	if !result.Submitted || result.TransactionID != "TX-901" {
		t.Fatalf("result = %+v, want submitted with TX-901", result)
	}

	inv, err := invoices.Get(ctx, "VBE/2026/08/00103")
	if err != nil {
		t.Fatalf("Failed to get invoice: %v", err)
	}
	if inv.Submission.Status != core.SubmissionSubmitted || inv.Submission.TransactionID != "TX-901" {
		t.Errorf("submission = %+v, want submitted TX-901", inv.Submission)
	}
	if inv.Submission.SubmittedAt == nil {
		t.Error("submitted_at not recorded")
	}

	// The retry resolves as a no-op carrying the recorded transaction id.
	retry, err := invoices.Submit(ctx, "PO-5004", core.SubmitOptions{})
	if err != nil {
		t.Fatalf("Failed to retry submit: %v", err)
	}
	if !retry.Skipped || retry.Submitted {
		t.Fatalf("retry = %+v, want skipped", retry)
	}
	if retry.TransactionID != "TX-901" {
		t.Errorf("retry transaction id = %q, want TX-901", retry.TransactionID)
	}
	if len(tr.invCalls) != 1 {
		t.Errorf("transmitted %d times, want 1", len(tr.invCalls))
	}
}

func TestInvoice_SubmitFailureIsRecorded(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	ctx := context.Background()
	store := core.NewOrderStore(pool)
	tr := &stubTransmitter{err: errors.New("partner gateway unavailable")}
	invoices := core.NewInvoiceService(pool, store, tr)

	seedAcknowledgedOrder(t, pool, store, "PO-5005")
	seedInvoice(t, pool, "VBE/2026/08/00104", "PO-5005", "70.00", "85.00")

	result, err := invoices.Submit(ctx, "PO-5005", core.SubmitOptions{})
	if err != nil {
		t.Fatalf("Submit must report transport failure in the result, got err: %v", err)
	}
	if result.Submitted || len(result.Errors) == 0 {
		t.Fatalf("result = %+v, want failure errors", result)
	}

	inv, err := invoices.Get(ctx, "VBE/2026/08/00104")
	if err != nil {
		t.Fatalf("Failed to get invoice: %v", err)
	}
	if inv.Submission.Status != core.SubmissionFailed {
		t.Errorf("submission status = %s, want failed", inv.Submission.Status)
	}
	if inv.Submission.ErrorMessage == "" {
		t.Error("error message not recorded")
	}
}

func TestInvoice_SubmitPending(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	ctx := context.Background()
	store := core.NewOrderStore(pool)
	tr := &stubTransmitter{}
	invoices := core.NewInvoiceService(pool, store, tr)

	seedAcknowledgedOrder(t, pool, store, "PO-5006")
	seedInvoice(t, pool, "VBE/2026/08/00105", "PO-5006", "70.00", "85.00")

	// Not yet shipped: the batch must leave it alone.
	result, err := invoices.SubmitPending(ctx, 10)
	if err != nil {
		t.Fatalf("Failed to run pending batch: %v", err)
	}
	if result.Processed != 0 {
		t.Fatalf("processed = %d, want 0 before shipment", result.Processed)
	}

	if _, err := pool.Exec(ctx,
		"UPDATE purchase_orders SET shipment_status = $1 WHERE order_number = 'PO-5006'",
		core.ShipmentFullyShipped,
	); err != nil {
		t.Fatalf("Failed to mark order shipped: %v", err)
	}

	result, err = invoices.SubmitPending(ctx, 10)
	if err != nil {
		t.Fatalf("Failed to run pending batch: %v", err)
	}
	if result.Processed != 1 || result.Succeeded != 1 {
		t.Fatalf("batch = %+v, want one success", result)
	}

	// Second run finds nothing left to submit.
	result, err = invoices.SubmitPending(ctx, 10)
	if err != nil {
		t.Fatalf("Failed to re-run pending batch: %v", err)
	}
	if result.Processed != 0 {
		t.Errorf("processed = %d on re-run, want 0", result.Processed)
	}
}
