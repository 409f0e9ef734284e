package core

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// LinePlan is the availability decision for one order line, ready to be
// committed together with its siblings.
type LinePlan struct {
	SequenceNumber     int
	WarehouseProductID *int
	AvailableQty       *decimal.Decimal
	AcknowledgeQty     decimal.Decimal
	BackorderQty       decimal.Decimal
	AvailabilityCode   AvailabilityCode
}

// planLine computes the auto-fill quantity split for one line:
// acknowledge = min(ordered, max(0, available)), backorder = ordered − acknowledge.
func planLine(ordered, available decimal.Decimal) (ack, backorder decimal.Decimal, code AvailabilityCode) {
	if available.IsNegative() {
		available = decimal.Zero
	}
	ack = decimal.Min(ordered, available)
	backorder = ordered.Sub(ack)
	return ack, backorder, availabilityFor(ordered, ack)
}

// validateManualSplit checks a caller-supplied quantity split against the
// ordered quantity. Quantities must be non-negative integers,
// acknowledge must not exceed ordered, and acknowledge + backorder must
// equal ordered exactly.
func validateManualSplit(seq int, ordered, ack, backorder decimal.Decimal) []string {
	var problems []string
	at := func(msg string) {
		problems = append(problems, fmt.Sprintf("line %d: %s", seq, msg))
	}

	if ack.IsNegative() || backorder.IsNegative() {
		at("quantities must not be negative")
	}
	if !ack.IsInteger() || !backorder.IsInteger() {
		at("quantities must be whole units")
	}
	if ack.GreaterThan(ordered) {
		at(fmt.Sprintf("acknowledge qty %s exceeds ordered qty %s", ack, ordered))
	}
	if !ack.Add(backorder).Equal(ordered) {
		at(fmt.Sprintf("acknowledge %s + backorder %s must equal ordered %s", ack, backorder, ordered))
	}
	return problems
}

// availabilityFor classifies a quantity split. Both the auto-fill and the
// manual path go through it, so a given split always yields the same code.
func availabilityFor(ordered, ack decimal.Decimal) AvailabilityCode {
	switch {
	case ack.Equal(ordered) && ordered.IsPositive():
		return AvailabilityAvailable
	case ack.IsPositive():
		return AvailabilityBackordered
	default:
		return AvailabilityUnavailable
	}
}
