package vendorapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"vendor-pipeline/internal/core"
)

type wireRemittance struct {
	PaymentNumber string              `json:"paymentNumber"`
	PaymentDate   time.Time           `json:"paymentDate"`
	Amount        decimal.Decimal     `json:"paymentAmount"`
	Currency      string              `json:"currency"`
	Details       []wireRemittanceLine `json:"details"`
}

type wireRemittanceLine struct {
	InvoiceReference string          `json:"invoiceReference"`
	InvoiceAmount    decimal.Decimal `json:"invoiceAmount"`
	NetAmountPaid    decimal.Decimal `json:"netAmountPaid"`
}

type remittancesResponse struct {
	Remittances []json.RawMessage `json:"remittances"`
}

// FetchRemittances downloads payment remittance files published since the
// given time. The verbatim payload of each file is preserved for archival.
func (c *Client) FetchRemittances(ctx context.Context, since time.Time) ([]core.RemittanceFile, error) {
	path := "/remittances?publishedAfter=" + url.QueryEscape(since.UTC().Format(time.RFC3339))

	var resp remittancesResponse
	if err := c.do(ctx, "GET", path, nil, &resp); err != nil {
		return nil, fmt.Errorf("fetch remittances: %w", err)
	}

	files := make([]core.RemittanceFile, 0, len(resp.Remittances))
	for _, raw := range resp.Remittances {
		var wr wireRemittance
		if err := json.Unmarshal(raw, &wr); err != nil {
			return nil, fmt.Errorf("unmarshal remittance: %w", err)
		}
		file := core.RemittanceFile{
			PaymentNumber: core.PaymentNumber(wr.PaymentNumber),
			PaymentDate:   wr.PaymentDate,
			Amount:        wr.Amount,
			Currency:      wr.Currency,
			Raw:           raw,
		}
		for _, d := range wr.Details {
			file.Lines = append(file.Lines, core.RemittanceFileLine{
				RawInvoiceRef: d.InvoiceReference,
				InvoiceAmount: d.InvoiceAmount,
				NetAmountPaid: d.NetAmountPaid,
			})
		}
		files = append(files, file)
	}
	c.logger.Info("fetched remittances from vendor API",
		zap.Int("count", len(files)),
		zap.Time("since", since))
	return files, nil
}
