package core_test

import (
	"context"
	"strings"
	"testing"

	"vendor-pipeline/internal/core"
)

func TestChargeback_UpsertIsIdempotentByRef(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	ctx := context.Background()
	svc := core.NewChargebackService(pool)

	first, err := svc.Upsert(ctx, core.ChargebackInput{
		ChargebackRef: "CB-7001",
		Type:          "shortage",
		Amount:        dec(t, "25.00"),
	})
	if err != nil {
		t.Fatalf("Failed to upsert chargeback: %v", err)
	}
	if first.DisputeStatus != core.DisputePending {
		t.Errorf("dispute status = %s, want pending", first.DisputeStatus)
	}

	// A re-export carries a corrected amount and now names the order.
	orderRef := core.OrderNumber("PO-7001")
	second, err := svc.Upsert(ctx, core.ChargebackInput{
		ChargebackRef: "CB-7001",
		Type:          "shortage",
		Amount:        dec(t, "30.00"),
		OrderNumber:   &orderRef,
	})
	if err != nil {
		t.Fatalf("Failed to re-upsert chargeback: %v", err)
	}
	if second.ID != first.ID {
		t.Errorf("re-upsert created a new row: %d vs %d", second.ID, first.ID)
	}
	if !second.Amount.Equal(dec(t, "30.00")) {
		t.Errorf("amount = %s, want 30.00", second.Amount)
	}
	if second.OrderNumber == nil || *second.OrderNumber != "PO-7001" {
		t.Errorf("order number = %v, want PO-7001", second.OrderNumber)
	}

	// A later export without the order number must not clear it.
	third, err := svc.Upsert(ctx, core.ChargebackInput{
		ChargebackRef: "CB-7001",
		Type:          "shortage",
		Amount:        dec(t, "30.00"),
	})
	if err != nil {
		t.Fatalf("Failed to upsert chargeback without order: %v", err)
	}
	if third.OrderNumber == nil || *third.OrderNumber != "PO-7001" {
		t.Errorf("order number was cleared: %v", third.OrderNumber)
	}
}

func TestChargeback_DisputeLifecycle(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	ctx := context.Background()
	svc := core.NewChargebackService(pool)

	cb, err := svc.Upsert(ctx, core.ChargebackInput{
		ChargebackRef: "CB-7002",
		Type:          "ppv",
		Amount:        dec(t, "12.50"),
	})
	if err != nil {
		t.Fatalf("Failed to upsert chargeback: %v", err)
	}

	updated, err := svc.UpdateDisputeStatus(ctx, cb.ID, core.DisputeDisputed, "evidence filed")
	if err != nil {
		t.Fatalf("Failed to update dispute status: %v", err)
	}
	if updated.DisputeStatus != core.DisputeDisputed {
		t.Errorf("dispute status = %s, want disputed", updated.DisputeStatus)
	}
	if len(updated.Notes) != 1 {
		t.Fatalf("got %d notes, want 1", len(updated.Notes))
	}
	if want := "status pending -> disputed: evidence filed"; updated.Notes[0].Note != want {
		t.Errorf("note = %q, want %q", updated.Notes[0].Note, want)
	}

	won, err := svc.UpdateDisputeStatus(ctx, cb.ID, core.DisputeWon, "")
	if err != nil {
		t.Fatalf("Failed to update dispute status: %v", err)
	}
	if len(won.Notes) != 2 {
		t.Errorf("got %d notes, want 2", len(won.Notes))
	}
	if won.Notes[1].Note != "status disputed -> won" {
		t.Errorf("note = %q", won.Notes[1].Note)
	}
}

func TestChargeback_UpdateStatusValidation(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	ctx := context.Background()
	svc := core.NewChargebackService(pool)

	if _, err := svc.UpdateDisputeStatus(ctx, 99999, core.DisputeWon, ""); !core.IsNotFound(err) {
		t.Errorf("unknown id: got %v, want NotFoundError", err)
	}

	cb, err := svc.Upsert(ctx, core.ChargebackInput{ChargebackRef: "CB-7003", Amount: dec(t, "1")})
	if err != nil {
		t.Fatalf("Failed to upsert chargeback: %v", err)
	}
	if _, err := svc.UpdateDisputeStatus(ctx, cb.ID, "bogus", ""); err == nil {
		t.Error("unknown status accepted")
	}
}

func TestChargeback_ListByStatus(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	ctx := context.Background()
	svc := core.NewChargebackService(pool)

	for _, ref := range []string{"CB-7101", "CB-7102", "CB-7103"} {
		if _, err := svc.Upsert(ctx, core.ChargebackInput{ChargebackRef: ref, Amount: dec(t, "5")}); err != nil {
			t.Fatalf("Failed to upsert chargeback %s: %v", ref, err)
		}
	}
	cb, err := svc.Upsert(ctx, core.ChargebackInput{ChargebackRef: "CB-7104", Amount: dec(t, "5")})
	if err != nil {
		t.Fatalf("Failed to upsert chargeback: %v", err)
	}
	if _, err := svc.UpdateDisputeStatus(ctx, cb.ID, core.DisputeAccepted, ""); err != nil {
		t.Fatalf("Failed to accept chargeback: %v", err)
	}

	pending, err := svc.List(ctx, core.DisputePending, core.Page{})
	if err != nil {
		t.Fatalf("Failed to list pending: %v", err)
	}
	if len(pending) != 3 {
		t.Errorf("pending = %d, want 3", len(pending))
	}

	all, err := svc.List(ctx, "", core.Page{})
	if err != nil {
		t.Fatalf("Failed to list all: %v", err)
	}
	if len(all) != 4 {
		t.Errorf("all = %d, want 4", len(all))
	}
}

func TestChargeback_ImportCSV(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	ctx := context.Background()
	svc := core.NewChargebackService(pool)

	csvData := strings.NewReader(
		"chargeback_id,type,amount,order_number\n" +
			"CB-7201,shortage,25.00,PO-7201\n" +
			"CB-7202,ppv,not-a-number,\n" +
			"CB-7203,co-op,10.50\n")

	result, err := svc.ImportCSV(ctx, csvData)
	if err != nil {
		t.Fatalf("Failed to import CSV: %v", err)
	}
	if result.Rows != 3 || result.Imported != 2 {
		t.Fatalf("result = %+v, want 3 rows, 2 imported", result)
	}
	if len(result.Errors) != 1 || !strings.Contains(result.Errors[0], "bad amount") {
		t.Errorf("errors = %v, want one bad amount", result.Errors)
	}

	list, err := svc.List(ctx, "", core.Page{})
	if err != nil {
		t.Fatalf("Failed to list chargebacks: %v", err)
	}
	if len(list) != 2 {
		t.Errorf("stored chargebacks = %d, want 2", len(list))
	}

	// Replaying the same export changes nothing.
	csvData = strings.NewReader(
		"chargeback_id,type,amount,order_number\n" +
			"CB-7201,shortage,25.00,PO-7201\n" +
			"CB-7203,co-op,10.50\n")
	if _, err := svc.ImportCSV(ctx, csvData); err != nil {
		t.Fatalf("Failed to re-import CSV: %v", err)
	}
	list, err = svc.List(ctx, "", core.Page{})
	if err != nil {
		t.Fatalf("Failed to list chargebacks: %v", err)
	}
	if len(list) != 2 {
		t.Errorf("stored chargebacks after replay = %d, want 2", len(list))
	}
}
