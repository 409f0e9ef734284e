package core

import (
	"fmt"
	"regexp"
	"strings"
)

// Remittance files carry seller invoice references in a compact form: the
// invoice prefix followed by a contiguous year/month/sequence digit string,
// e.g. "VBE20240200365" for canonical "VBE/2024/02/00365".
var compactInvoiceRef = regexp.MustCompile(`^([A-Z]{2,6})(\d{4})(\d{2})(\d{1,6})$`)

var canonicalInvoiceRef = regexp.MustCompile(`^[A-Z]{2,6}/\d{4}/\d{2}/\d{1,6}$`)

// LineClass tells how a remittance detail line is handled. Only invoice
// lines are matched; everything else (chargebacks, co-op fees) is counted
// and reported.
type LineClass string

const (
	LineClassInvoice LineClass = "invoice"
	LineClassOther   LineClass = "other"
)

// classifyRemittanceRef splits detail lines into seller invoices and "other"
// deductions by the seller's own invoice prefix.
func classifyRemittanceRef(raw, sellerPrefix string) LineClass {
	if strings.HasPrefix(strings.ToUpper(strings.TrimSpace(raw)), strings.ToUpper(sellerPrefix)) {
		return LineClassInvoice
	}
	return LineClassOther
}

// NormalizeInvoiceRef converts a compact partner invoice reference into the
// seller's canonical invoice number (PREFIX/YYYY/MM/NNNNN, sequence
// zero-padded to five digits). An already-canonical reference is returned
// unchanged. ok is false when the reference fits neither form.
func NormalizeInvoiceRef(raw string) (InvoiceNumber, bool) {
	ref := strings.ToUpper(strings.TrimSpace(raw))
	if canonicalInvoiceRef.MatchString(ref) {
		return InvoiceNumber(ref), true
	}
	m := compactInvoiceRef.FindStringSubmatch(ref)
	if m == nil {
		return "", false
	}
	seq := m[4]
	if len(seq) < 5 {
		seq = strings.Repeat("0", 5-len(seq)) + seq
	}
	return InvoiceNumber(fmt.Sprintf("%s/%s/%s/%s", m[1], m[2], m[3], seq)), true
}

// refParts breaks a canonical invoice number into prefix, year, month and
// sequence. ok is false for non-canonical input.
func refParts(canonical InvoiceNumber) (prefix, year, month, seq string, ok bool) {
	parts := strings.Split(string(canonical), "/")
	if len(parts) != 4 {
		return "", "", "", "", false
	}
	return parts[0], parts[1], parts[2], parts[3], true
}

// trailingSequenceMatches implements the last-resort fuzzy stage: same
// year+month bucket and the stored sequence ends with the reference's
// sequence digits (or vice versa, to tolerate differing zero-padding).
// Known heuristic limitation: two invoices sharing a trailing sequence in
// the same month are indistinguishable at this stage.
func trailingSequenceMatches(storedSeq, refSeq string) bool {
	a := strings.TrimLeft(storedSeq, "0")
	b := strings.TrimLeft(refSeq, "0")
	if a == "" || b == "" {
		return a == b
	}
	return strings.HasSuffix(a, b) || strings.HasSuffix(b, a)
}
