package core

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// amountDeviationThreshold flags invoices whose total drifts more than 5%
// from the order total. A deviation is a warning, not an error: price
// corrections and partial shipments legitimately move the total.
var amountDeviationThreshold = decimal.NewFromFloat(0.05)

// validateInvoiceAgainstOrder checks a candidate invoice against its source
// order: order progressed to at least Acknowledged, invoice finalized,
// invoiced quantities within acknowledged quantities, currencies matching.
func validateInvoiceAgainstOrder(order *PurchaseOrder, inv *Invoice) ValidationResult {
	result := ValidationResult{HasInvoice: inv != nil}
	fail := func(msg string) { result.Errors = append(result.Errors, msg) }
	warn := func(msg string) { result.Warnings = append(result.Warnings, msg) }

	switch order.State {
	case OrderStateAcknowledged, OrderStateClosed:
	case OrderStateCancelled:
		fail(fmt.Sprintf("order %s is cancelled", order.OrderNumber))
	default:
		fail(fmt.Sprintf("order %s is not acknowledged yet", order.OrderNumber))
	}

	if inv == nil {
		fail(fmt.Sprintf("no invoice found for order %s", order.OrderNumber))
		result.IsValid = false
		return result
	}

	if inv.State != InvoicePosted {
		fail(fmt.Sprintf("invoice %s is still %s, must be posted", inv.InvoiceNumber, inv.State))
	}

	if inv.Currency != "" && order.Totals.Currency != "" && inv.Currency != order.Totals.Currency {
		fail(fmt.Sprintf("invoice currency %s does not match order currency %s", inv.Currency, order.Totals.Currency))
	}

	// Invoiced quantity per product must not exceed the acknowledged
	// quantity. Aggregated per identifier: one order line may be invoiced
	// across several invoice lines.
	ackBySKU := make(map[string]decimal.Decimal)
	for _, l := range order.Lines {
		if l.AcknowledgeQty != nil {
			ackBySKU[l.VendorSKU] = ackBySKU[l.VendorSKU].Add(*l.AcknowledgeQty)
		}
	}
	invBySKU := make(map[string]decimal.Decimal)
	for _, l := range inv.Lines {
		invBySKU[l.VendorSKU] = invBySKU[l.VendorSKU].Add(l.Quantity)
	}
	for sku, qty := range invBySKU {
		ack, ok := ackBySKU[sku]
		if !ok {
			warn(fmt.Sprintf("invoice line %s has no acknowledged counterpart on order %s", sku, order.OrderNumber))
			continue
		}
		if qty.GreaterThan(ack) {
			fail(fmt.Sprintf("invoiced qty %s for %s exceeds acknowledged qty %s", qty, sku, ack))
		}
	}

	if !order.Totals.Amount.IsZero() {
		deviation := inv.AmountTotal.Sub(order.Totals.Amount).Abs().Div(order.Totals.Amount)
		if deviation.GreaterThan(amountDeviationThreshold) {
			pct := deviation.Mul(decimal.NewFromInt(100)).StringFixed(1)
			warn(fmt.Sprintf("invoice total %s deviates %s%% from order total %s",
				inv.AmountTotal.StringFixed(2), pct, order.Totals.Amount.StringFixed(2)))
		}
	}

	result.IsValid = len(result.Errors) == 0
	return result
}

// buildInvoicePayload projects an invoice into the document transmitted to
// the trading partner.
func buildInvoicePayload(order *PurchaseOrder, inv *Invoice) InvoicePayload {
	partnerIDBySKU := make(map[string]string, len(order.Lines))
	for _, l := range order.Lines {
		partnerIDBySKU[l.VendorSKU] = l.PartnerProductID
	}

	payload := InvoicePayload{
		OrderNumber:   order.OrderNumber,
		InvoiceNumber: inv.InvoiceNumber,
		Currency:      inv.Currency,
		AmountUntaxed: inv.AmountUntaxed,
		AmountTotal:   inv.AmountTotal,
	}
	for _, l := range inv.Lines {
		partnerID := l.PartnerProductID
		if partnerID == "" {
			partnerID = partnerIDBySKU[l.VendorSKU]
		}
		payload.Lines = append(payload.Lines, InvoicePayloadLine{
			PartnerProductID: partnerID,
			Quantity:         l.Quantity,
			UnitPrice:        l.UnitPrice,
		})
	}
	return payload
}
