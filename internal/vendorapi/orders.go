package vendorapi

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"vendor-pipeline/internal/core"
)

// Wire formats for the partner's purchase order feed.
type wireOrder struct {
	OrderNumber    string         `json:"orderNumber"`
	Marketplace    string         `json:"marketplace"`
	OrderDate      time.Time      `json:"orderDate"`
	Status         string         `json:"status"`
	ShipmentStatus string         `json:"shipmentStatus"`
	DeliveryWindow wireWindow     `json:"deliveryWindow"`
	ShipTo         wireParty      `json:"shipToParty"`
	Lines          []wireLine     `json:"items"`
}

type wireWindow struct {
	Start *time.Time `json:"start,omitempty"`
	End   *time.Time `json:"end,omitempty"`
}

type wireParty struct {
	PartyID     string `json:"partyId"`
	AddressLine string `json:"addressLine,omitempty"`
	City        string `json:"city,omitempty"`
	PostalCode  string `json:"postalCode,omitempty"`
	CountryCode string `json:"countryCode,omitempty"`
}

type wireLine struct {
	SequenceNumber   int             `json:"sequenceNumber"`
	VendorSKU        string          `json:"vendorSku"`
	PartnerProductID string          `json:"partnerProductId"`
	OrderedQty       decimal.Decimal `json:"orderedQuantity"`
	UnitOfMeasure    string          `json:"unitOfMeasure"`
	UnitCost         decimal.Decimal `json:"netCost"`
	Currency         string          `json:"currency"`
}

type ordersResponse struct {
	Orders []wireOrder `json:"orders"`
}

// FetchOrders pulls orders created or changed since the given time.
func (c *Client) FetchOrders(ctx context.Context, since time.Time) ([]core.PurchaseOrder, error) {
	path := "/purchase-orders?changedAfter=" + url.QueryEscape(since.UTC().Format(time.RFC3339))

	var resp ordersResponse
	if err := c.do(ctx, "GET", path, nil, &resp); err != nil {
		return nil, fmt.Errorf("fetch orders: %w", err)
	}

	orders := make([]core.PurchaseOrder, 0, len(resp.Orders))
	for _, wo := range resp.Orders {
		orders = append(orders, mapOrder(wo))
	}
	c.logger.Info("fetched orders from vendor API",
		zap.Int("count", len(orders)),
		zap.Time("since", since))
	return orders, nil
}

func mapOrder(wo wireOrder) core.PurchaseOrder {
	po := core.PurchaseOrder{
		OrderNumber:    core.OrderNumber(wo.OrderNumber),
		Marketplace:    wo.Marketplace,
		State:          mapOrderState(wo.Status),
		ShipmentStatus: mapShipmentStatus(wo.ShipmentStatus),
		OrderDate:      wo.OrderDate,
		DeliveryWindow: core.DeliveryWindow{Start: wo.DeliveryWindow.Start, End: wo.DeliveryWindow.End},
		Destination: core.Destination{
			PartyID:     wo.ShipTo.PartyID,
			AddressLine: wo.ShipTo.AddressLine,
			City:        wo.ShipTo.City,
			PostalCode:  wo.ShipTo.PostalCode,
			CountryCode: wo.ShipTo.CountryCode,
		},
	}

	units := decimal.Zero
	amount := decimal.Zero
	for _, wl := range wo.Lines {
		po.Lines = append(po.Lines, core.LineItem{
			SequenceNumber:   wl.SequenceNumber,
			VendorSKU:        wl.VendorSKU,
			PartnerProductID: wl.PartnerProductID,
			OrderedQty:       wl.OrderedQty,
			UnitOfMeasure:    wl.UnitOfMeasure,
			UnitCost:         wl.UnitCost,
		})
		units = units.Add(wl.OrderedQty)
		amount = amount.Add(wl.OrderedQty.Mul(wl.UnitCost))
		if po.Totals.Currency == "" {
			po.Totals.Currency = wl.Currency
		}
	}
	po.Totals.Units = units
	po.Totals.Amount = amount
	return po
}

func mapOrderState(status string) core.OrderState {
	switch status {
	case "CLOSED":
		return core.OrderStateClosed
	case "CANCELLED":
		return core.OrderStateCancelled
	case "ACKNOWLEDGED":
		return core.OrderStateAcknowledged
	default:
		return core.OrderStateNew
	}
}

func mapShipmentStatus(status string) core.ShipmentStatus {
	switch status {
	case "PARTIALLY_SHIPPED":
		return core.ShipmentPartiallyShipped
	case "FULLY_SHIPPED":
		return core.ShipmentFullyShipped
	case "CANCELLED":
		return core.ShipmentCancelled
	default:
		return core.ShipmentNotShipped
	}
}

// Acknowledgment transmission.
type wireAckLine struct {
	SequenceNumber   int             `json:"sequenceNumber"`
	PartnerProductID string          `json:"partnerProductId"`
	AcknowledgeQty   decimal.Decimal `json:"acknowledgedQuantity"`
	BackorderQty     decimal.Decimal `json:"backorderedQuantity"`
	AvailabilityCode string          `json:"availabilityCode"`
}

type ackRequest struct {
	Lines []wireAckLine `json:"items"`
}

type transactionResponse struct {
	TransactionID string `json:"transactionId"`
}

// TransmitAcknowledgment sends the per-line quantity decisions for an order.
func (c *Client) TransmitAcknowledgment(ctx context.Context, orderNumber core.OrderNumber, lines []core.AckLine) (string, error) {
	req := ackRequest{}
	for _, l := range lines {
		req.Lines = append(req.Lines, wireAckLine{
			SequenceNumber:   l.SequenceNumber,
			PartnerProductID: l.PartnerProductID,
			AcknowledgeQty:   l.AcknowledgeQty,
			BackorderQty:     l.BackorderQty,
			AvailabilityCode: string(l.AvailabilityCode),
		})
	}

	path := "/purchase-orders/" + url.PathEscape(string(orderNumber)) + "/acknowledgment"
	var resp transactionResponse
	if err := c.do(ctx, "POST", path, req, &resp); err != nil {
		return "", err
	}
	c.logger.Info("transmitted acknowledgment",
		zap.String("order_number", string(orderNumber)),
		zap.String("transaction_id", resp.TransactionID))
	return resp.TransactionID, nil
}
