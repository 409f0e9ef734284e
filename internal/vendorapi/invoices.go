package vendorapi

import (
	"context"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"vendor-pipeline/internal/core"
)

type wireInvoiceLine struct {
	PartnerProductID string          `json:"partnerProductId"`
	Quantity         decimal.Decimal `json:"invoicedQuantity"`
	UnitPrice        decimal.Decimal `json:"netCost"`
}

type invoiceRequest struct {
	OrderNumber   string            `json:"orderNumber"`
	InvoiceNumber string            `json:"invoiceNumber"`
	Currency      string            `json:"currency"`
	AmountUntaxed decimal.Decimal   `json:"netAmount"`
	AmountTotal   decimal.Decimal   `json:"grossAmount"`
	Lines         []wireInvoiceLine `json:"items"`
}

// TransmitInvoice submits a finalized invoice document to the partner.
func (c *Client) TransmitInvoice(ctx context.Context, payload core.InvoicePayload) (string, error) {
	req := invoiceRequest{
		OrderNumber:   string(payload.OrderNumber),
		InvoiceNumber: string(payload.InvoiceNumber),
		Currency:      payload.Currency,
		AmountUntaxed: payload.AmountUntaxed,
		AmountTotal:   payload.AmountTotal,
	}
	for _, l := range payload.Lines {
		req.Lines = append(req.Lines, wireInvoiceLine{
			PartnerProductID: l.PartnerProductID,
			Quantity:         l.Quantity,
			UnitPrice:        l.UnitPrice,
		})
	}

	var resp transactionResponse
	if err := c.do(ctx, "POST", "/invoices", req, &resp); err != nil {
		return "", err
	}
	c.logger.Info("transmitted invoice",
		zap.String("order_number", string(payload.OrderNumber)),
		zap.String("invoice_number", string(payload.InvoiceNumber)),
		zap.String("transaction_id", resp.TransactionID))
	return resp.TransactionID, nil
}
