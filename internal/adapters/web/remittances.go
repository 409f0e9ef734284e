package web

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"vendor-pipeline/internal/core"
)

// importRemittance handles POST /api/remittances/import. The body is the
// parsed remittance file; the verbatim body is archived with the batch.
func (h *Handler) importRemittance(w http.ResponseWriter, r *http.Request) {
	var body struct {
		PaymentNumber string          `json:"payment_number"`
		PaymentDate   time.Time       `json:"payment_date"`
		Amount        decimal.Decimal `json:"amount"`
		Currency      string          `json:"currency"`
		Lines         []struct {
			InvoiceRef    string          `json:"invoice_ref"`
			InvoiceAmount decimal.Decimal `json:"invoice_amount"`
			NetAmountPaid decimal.Decimal `json:"net_amount_paid"`
		} `json:"lines"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	raw, _ := json.Marshal(body)

	file := core.RemittanceFile{
		PaymentNumber: core.PaymentNumber(body.PaymentNumber),
		PaymentDate:   body.PaymentDate,
		Amount:        body.Amount,
		Currency:      body.Currency,
		Raw:           raw,
	}
	for _, l := range body.Lines {
		file.Lines = append(file.Lines, core.RemittanceFileLine{
			RawInvoiceRef: l.InvoiceRef,
			InvoiceAmount: l.InvoiceAmount,
			NetAmountPaid: l.NetAmountPaid,
		})
	}

	result, err := h.svc.ImportRemittance(r.Context(), file)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}
