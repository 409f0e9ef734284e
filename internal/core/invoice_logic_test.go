package core

import (
	"strings"
	"testing"
	"time"
)

func ackedOrder() *PurchaseOrder {
	ack30 := d("30")
	back20 := d("20")
	ack10 := d("10")
	back0 := d("0")
	return &PurchaseOrder{
		OrderNumber:    "PO-100",
		State:          OrderStateAcknowledged,
		ShipmentStatus: ShipmentFullyShipped,
		Totals:         Totals{Amount: d("100.00"), Currency: "EUR"},
		Lines: []LineItem{
			{SequenceNumber: 1, VendorSKU: "SKU-A", PartnerProductID: "B00A", OrderedQty: d("50"), AcknowledgeQty: &ack30, BackorderQty: &back20},
			{SequenceNumber: 2, VendorSKU: "SKU-B", PartnerProductID: "B00B", OrderedQty: d("10"), AcknowledgeQty: &ack10, BackorderQty: &back0},
		},
	}
}

func postedInvoice() *Invoice {
	return &Invoice{
		ID:            1,
		InvoiceNumber: "VBE/2024/02/00365",
		OrderNumber:   "PO-100",
		State:         InvoicePosted,
		InvoiceDate:   time.Now(),
		AmountUntaxed: d("82.00"),
		AmountTotal:   d("100.00"),
		Currency:      "EUR",
		Lines: []InvoiceLine{
			{VendorSKU: "SKU-A", Quantity: d("30"), UnitPrice: d("2.40")},
			{VendorSKU: "SKU-B", Quantity: d("10"), UnitPrice: d("1.00")},
		},
	}
}

func TestValidateInvoiceAgainstOrder_Valid(t *testing.T) {
	result := validateInvoiceAgainstOrder(ackedOrder(), postedInvoice())
	if !result.IsValid {
		t.Fatalf("expected valid, got errors: %v", result.Errors)
	}
	if !result.HasInvoice {
		t.Error("HasInvoice must be true")
	}
	if len(result.Warnings) != 0 {
		t.Errorf("unexpected warnings: %v", result.Warnings)
	}
}

func TestValidateInvoiceAgainstOrder_NoInvoice(t *testing.T) {
	result := validateInvoiceAgainstOrder(ackedOrder(), nil)
	if result.IsValid {
		t.Fatal("expected invalid without invoice")
	}
	if result.HasInvoice {
		t.Error("HasInvoice must be false")
	}
}

func TestValidateInvoiceAgainstOrder_OrderNotAcknowledged(t *testing.T) {
	order := ackedOrder()
	order.State = OrderStateNew
	result := validateInvoiceAgainstOrder(order, postedInvoice())
	if result.IsValid {
		t.Fatal("expected invalid for unacknowledged order")
	}

	order.State = OrderStateCancelled
	result = validateInvoiceAgainstOrder(order, postedInvoice())
	if result.IsValid {
		t.Fatal("expected invalid for cancelled order")
	}
}

func TestValidateInvoiceAgainstOrder_DraftInvoice(t *testing.T) {
	inv := postedInvoice()
	inv.State = InvoiceDraft
	result := validateInvoiceAgainstOrder(ackedOrder(), inv)
	if result.IsValid {
		t.Fatal("expected invalid for draft invoice")
	}
}

func TestValidateInvoiceAgainstOrder_CurrencyMismatch(t *testing.T) {
	inv := postedInvoice()
	inv.Currency = "PLN"
	result := validateInvoiceAgainstOrder(ackedOrder(), inv)
	if result.IsValid {
		t.Fatal("expected invalid for currency mismatch")
	}
}

func TestValidateInvoiceAgainstOrder_OverInvoicedQuantity(t *testing.T) {
	inv := postedInvoice()
	inv.Lines[0].Quantity = d("31") // acknowledged only 30
	result := validateInvoiceAgainstOrder(ackedOrder(), inv)
	if result.IsValid {
		t.Fatal("expected invalid when invoiced qty exceeds acknowledged qty")
	}
}

func TestValidateInvoiceAgainstOrder_SplitLinesAggregate(t *testing.T) {
	// 30 acknowledged units billed across two invoice lines is fine.
	inv := postedInvoice()
	inv.Lines = []InvoiceLine{
		{VendorSKU: "SKU-A", Quantity: d("20"), UnitPrice: d("2.40")},
		{VendorSKU: "SKU-A", Quantity: d("10"), UnitPrice: d("2.40")},
		{VendorSKU: "SKU-B", Quantity: d("10"), UnitPrice: d("1.00")},
	}
	result := validateInvoiceAgainstOrder(ackedOrder(), inv)
	if !result.IsValid {
		t.Fatalf("expected valid, got errors: %v", result.Errors)
	}
}

func TestValidateInvoiceAgainstOrder_AmountDeviationWarns(t *testing.T) {
	inv := postedInvoice()
	inv.AmountTotal = d("110.00") // 10% off a 100.00 order
	result := validateInvoiceAgainstOrder(ackedOrder(), inv)
	if !result.IsValid {
		t.Fatalf("deviation must warn, not fail: %v", result.Errors)
	}
	if len(result.Warnings) != 1 {
		t.Fatalf("got %d warnings, want 1: %v", len(result.Warnings), result.Warnings)
	}
	if !strings.Contains(result.Warnings[0], "deviates") {
		t.Errorf("unexpected warning text: %s", result.Warnings[0])
	}
}

func TestValidateInvoiceAgainstOrder_UnknownSKUWarns(t *testing.T) {
	inv := postedInvoice()
	inv.Lines = append(inv.Lines, InvoiceLine{VendorSKU: "SKU-Z", Quantity: d("1"), UnitPrice: d("1")})
	result := validateInvoiceAgainstOrder(ackedOrder(), inv)
	if !result.IsValid {
		t.Fatalf("unknown SKU must warn, not fail: %v", result.Errors)
	}
	if len(result.Warnings) == 0 {
		t.Error("expected a warning for the unmatched invoice line")
	}
}

func TestBuildInvoicePayload(t *testing.T) {
	order := ackedOrder()
	inv := postedInvoice()
	inv.Lines[0].PartnerProductID = "" // falls back to the order line mapping

	payload := buildInvoicePayload(order, inv)
	if payload.OrderNumber != "PO-100" || payload.InvoiceNumber != "VBE/2024/02/00365" {
		t.Errorf("unexpected payload header: %+v", payload)
	}
	if len(payload.Lines) != 2 {
		t.Fatalf("got %d payload lines, want 2", len(payload.Lines))
	}
	if payload.Lines[0].PartnerProductID != "B00A" {
		t.Errorf("partner id fallback = %q, want B00A", payload.Lines[0].PartnerProductID)
	}
	if !payload.Lines[0].Quantity.Equal(d("30")) {
		t.Errorf("payload qty = %s, want 30", payload.Lines[0].Quantity)
	}
}
