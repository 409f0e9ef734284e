package core_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"vendor-pipeline/internal/core"
)

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	v, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("bad decimal %q: %v", s, err)
	}
	return v
}

func sampleOrder(t *testing.T, number string) *core.PurchaseOrder {
	t.Helper()
	end := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	return &core.PurchaseOrder{
		OrderNumber:    core.OrderNumber(number),
		Marketplace:    "DE",
		State:          core.OrderStateNew,
		ShipmentStatus: core.ShipmentNotShipped,
		OrderDate:      time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC),
		DeliveryWindow: core.DeliveryWindow{End: &end},
		Destination:    core.Destination{PartyID: "WRO1", City: "Wrocław", CountryCode: "PL"},
		Totals:         core.Totals{Units: dec(t, "60"), Amount: dec(t, "135.00"), Currency: "EUR"},
		Lines: []core.LineItem{
			{SequenceNumber: 1, VendorSKU: "SKU-RED-CHAIR", PartnerProductID: "B00RED01", OrderedQty: dec(t, "50"), UnitOfMeasure: "EA", UnitCost: dec(t, "2.50")},
			{SequenceNumber: 2, VendorSKU: "SKU-BLUE-DESK", PartnerProductID: "B00BLU02", OrderedQty: dec(t, "10"), UnitOfMeasure: "EA", UnitCost: dec(t, "1.00")},
		},
	}
}

func TestOrderStore_UpsertIsIdempotent(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	ctx := context.Background()
	store := core.NewOrderStore(pool)

	order := sampleOrder(t, "PO-1001")
	if err := store.Upsert(ctx, order); err != nil {
		t.Fatalf("Failed to upsert order: %v", err)
	}
	if err := store.Upsert(ctx, order); err != nil {
		t.Fatalf("Failed to re-upsert order: %v", err)
	}

	got, err := store.Get(ctx, "PO-1001")
	if err != nil {
		t.Fatalf("Failed to get order: %v", err)
	}
	if len(got.Lines) != 2 {
		t.Errorf("got %d lines, want 2", len(got.Lines))
	}
	if got.State != core.OrderStateNew {
		t.Errorf("state = %s, want New", got.State)
	}
	if !got.Totals.Amount.Equal(dec(t, "135.00")) {
		t.Errorf("amount = %s, want 135.00", got.Totals.Amount)
	}
}

func TestOrderStore_UpsertMergesPollChanges(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	ctx := context.Background()
	store := core.NewOrderStore(pool)

	order := sampleOrder(t, "PO-1002")
	if err := store.Upsert(ctx, order); err != nil {
		t.Fatalf("Failed to upsert order: %v", err)
	}

	// A later poll reports new shipment progress and a revised quantity.
	refreshed := sampleOrder(t, "PO-1002")
	refreshed.ShipmentStatus = core.ShipmentPartiallyShipped
	refreshed.Lines[0].OrderedQty = dec(t, "45")
	if err := store.Upsert(ctx, refreshed); err != nil {
		t.Fatalf("Failed to upsert refreshed order: %v", err)
	}

	got, err := store.Get(ctx, "PO-1002")
	if err != nil {
		t.Fatalf("Failed to get order: %v", err)
	}
	if got.ShipmentStatus != core.ShipmentPartiallyShipped {
		t.Errorf("shipment status = %s, want partially_shipped", got.ShipmentStatus)
	}
	if !got.Lines[0].OrderedQty.Equal(dec(t, "45")) {
		t.Errorf("ordered qty = %s, want 45", got.Lines[0].OrderedQty)
	}
}

func TestOrderStore_PollCannotRegressAcknowledgedOrder(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	ctx := context.Background()
	store := core.NewOrderStore(pool)
	cat := core.NewCatalogService(pool, "MAIN")
	acks := core.NewAcknowledgmentService(pool, store, cat, cat, nil)

	if err := store.Upsert(ctx, sampleOrder(t, "PO-1003")); err != nil {
		t.Fatalf("Failed to upsert order: %v", err)
	}
	if _, err := acks.AutoFill(ctx, "PO-1003", core.AckOptions{SkipTransmit: true}); err != nil {
		t.Fatalf("Failed to acknowledge order: %v", err)
	}

	// A stale poll still sees the order as New. The merge must keep the local
	// state and the computed line quantities.
	stale := sampleOrder(t, "PO-1003")
	if err := store.Upsert(ctx, stale); err != nil {
		t.Fatalf("Failed to upsert stale order: %v", err)
	}

	got, err := store.Get(ctx, "PO-1003")
	if err != nil {
		t.Fatalf("Failed to get order: %v", err)
	}
	if got.State != core.OrderStateAcknowledged {
		t.Errorf("state = %s, want Acknowledged", got.State)
	}
	if !got.Ack.Acknowledged {
		t.Error("acknowledgment flag was lost")
	}
	if got.Lines[0].AcknowledgeQty == nil {
		t.Fatal("acknowledge qty was erased by the poll merge")
	}
}

func TestOrderStore_ListFilters(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	ctx := context.Background()
	store := core.NewOrderStore(pool)

	open := sampleOrder(t, "PO-2001")
	shipped := sampleOrder(t, "PO-2002")
	shipped.ShipmentStatus = core.ShipmentFullyShipped
	closed := sampleOrder(t, "PO-2003")
	closed.State = core.OrderStateClosed
	for _, o := range []*core.PurchaseOrder{open, shipped, closed} {
		if err := store.Upsert(ctx, o); err != nil {
			t.Fatalf("Failed to upsert order %s: %v", o.OrderNumber, err)
		}
	}

	n, err := store.Count(ctx, core.OrderFilter{Stat: core.StatOpen})
	if err != nil {
		t.Fatalf("Failed to count open orders: %v", err)
	}
	if n != 2 {
		t.Errorf("open count = %d, want 2", n)
	}

	list, err := store.List(ctx, core.OrderFilter{Stat: core.StatShipped}, core.Page{})
	if err != nil {
		t.Fatalf("Failed to list shipped orders: %v", err)
	}
	if len(list) != 1 || list[0].OrderNumber != "PO-2002" {
		t.Errorf("shipped list = %v, want [PO-2002]", list)
	}

	list, err = store.List(ctx, core.OrderFilter{State: core.OrderStateClosed}, core.Page{})
	if err != nil {
		t.Fatalf("Failed to list closed orders: %v", err)
	}
	if len(list) != 1 || list[0].OrderNumber != "PO-2003" {
		t.Errorf("closed list = %v, want [PO-2003]", list)
	}
}

func TestOrderStore_SetERPLink(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	ctx := context.Background()
	store := core.NewOrderStore(pool)

	if err := store.Upsert(ctx, sampleOrder(t, "PO-3001")); err != nil {
		t.Fatalf("Failed to upsert order: %v", err)
	}

	if err := store.SetERPLink(ctx, "PO-3001", 42, "SO-1042"); err != nil {
		t.Fatalf("Failed to set ERP link: %v", err)
	}
	// Same link again is a no-op.
	if err := store.SetERPLink(ctx, "PO-3001", 42, "SO-1042"); err != nil {
		t.Errorf("re-setting the same link must succeed: %v", err)
	}
	// A different link is refused.
	if err := store.SetERPLink(ctx, "PO-3001", 43, "SO-1043"); err == nil {
		t.Error("expected overwrite of ERP link to fail")
	}

	got, err := store.Get(ctx, "PO-3001")
	if err != nil {
		t.Fatalf("Failed to get order: %v", err)
	}
	if got.ERP.OrderID == nil || *got.ERP.OrderID != 42 {
		t.Errorf("ERP order id = %v, want 42", got.ERP.OrderID)
	}
	if got.ERP.OrderRef == nil || *got.ERP.OrderRef != "SO-1042" {
		t.Errorf("ERP order ref = %v, want SO-1042", got.ERP.OrderRef)
	}

	n, err := store.Count(ctx, core.OrderFilter{MissingERPLink: true})
	if err != nil {
		t.Fatalf("Failed to count unlinked orders: %v", err)
	}
	if n != 0 {
		t.Errorf("unlinked count = %d, want 0", n)
	}
}

func TestOrderStore_GetUnknownOrder(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	store := core.NewOrderStore(pool)
	_, err := store.Get(context.Background(), "PO-NOPE")
	if !core.IsNotFound(err) {
		t.Fatalf("got %v, want NotFoundError", err)
	}
}
