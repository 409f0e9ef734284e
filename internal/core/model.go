package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderNumber is the trading-partner-issued purchase order identifier.
type OrderNumber string

// InvoiceNumber is the seller-assigned invoice identifier
// (canonical form: PREFIX/YYYY/MM/NNNNN).
type InvoiceNumber string

// PaymentNumber identifies an imported remittance batch.
type PaymentNumber string

type OrderState string

const (
	OrderStateNew          OrderState = "New"
	OrderStateAcknowledged OrderState = "Acknowledged"
	OrderStateClosed       OrderState = "Closed"
	OrderStateCancelled    OrderState = "Cancelled"
)

type ShipmentStatus string

const (
	ShipmentNotShipped       ShipmentStatus = "not_shipped"
	ShipmentPartiallyShipped ShipmentStatus = "partially_shipped"
	ShipmentFullyShipped     ShipmentStatus = "fully_shipped"
	ShipmentCancelled        ShipmentStatus = "cancelled"
)

type AvailabilityCode string

const (
	AvailabilityAvailable   AvailabilityCode = "available"
	AvailabilityBackordered AvailabilityCode = "backordered"
	AvailabilityUnavailable AvailabilityCode = "unavailable"
)

// DeliveryWindow is the partner-requested delivery time window. Either bound
// may be absent on older orders.
type DeliveryWindow struct {
	Start *time.Time `json:"start,omitempty"`
	End   *time.Time `json:"end,omitempty"`
}

// Destination identifies the receiving fulfillment center.
type Destination struct {
	PartyID     string `json:"party_id"`
	AddressLine string `json:"address_line,omitempty"`
	City        string `json:"city,omitempty"`
	PostalCode  string `json:"postal_code,omitempty"`
	CountryCode string `json:"country_code,omitempty"`
}

type Totals struct {
	Units    decimal.Decimal `json:"units"`
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
}

// ERPLink points at the sales order created in the seller's ERP for this
// purchase order. Fields stay nil until the ERP order exists and are never
// overwritten by a poll refresh.
type ERPLink struct {
	OrderID  *int    `json:"order_id,omitempty"`
	OrderRef *string `json:"order_ref,omitempty"`
}

type Acknowledgment struct {
	Acknowledged   bool       `json:"acknowledged"`
	AcknowledgedAt *time.Time `json:"acknowledged_at,omitempty"`
	StatusCode     string     `json:"status_code,omitempty"`
}

type PurchaseOrder struct {
	OrderNumber    OrderNumber    `json:"order_number"`
	Marketplace    string         `json:"marketplace"`
	State          OrderState     `json:"state"`
	ShipmentStatus ShipmentStatus `json:"shipment_status"`
	DeliveryWindow DeliveryWindow `json:"delivery_window"`
	Destination    Destination    `json:"destination"`
	OrderDate      time.Time      `json:"order_date"`
	Totals         Totals         `json:"totals"`
	ERP            ERPLink        `json:"erp_link"`
	Ack            Acknowledgment `json:"acknowledgment"`
	Lines          []LineItem     `json:"lines,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// LineItem is one ordered position on a purchase order. The resolved
// warehouse product and the quantity split are populated by the
// acknowledgment engine; they survive poll refreshes.
type LineItem struct {
	ID                 int              `json:"id"`
	SequenceNumber     int              `json:"sequence_number"`
	VendorSKU          string           `json:"vendor_sku"`
	PartnerProductID   string           `json:"partner_product_id"`
	OrderedQty         decimal.Decimal  `json:"ordered_qty"`
	UnitOfMeasure      string           `json:"unit_of_measure"`
	UnitCost           decimal.Decimal  `json:"unit_cost"`
	WarehouseProductID *int             `json:"warehouse_product_id,omitempty"`
	AvailableQty       *decimal.Decimal `json:"available_qty,omitempty"`
	AcknowledgeQty     *decimal.Decimal `json:"acknowledge_qty,omitempty"`
	BackorderQty       *decimal.Decimal `json:"backorder_qty,omitempty"`
	AvailabilityCode   AvailabilityCode `json:"availability_code,omitempty"`
}

// OrderStat is a composite list filter combining state and shipment status.
type OrderStat string

const (
	// StatActionRequired selects orders needing operator attention:
	// New, or Acknowledged but not yet shipped.
	StatActionRequired OrderStat = "action_required"
	// StatOpen selects orders not in a terminal state.
	StatOpen OrderStat = "open"
	// StatShipped selects fully shipped orders.
	StatShipped OrderStat = "shipped"
)

// OrderFilter enumerates the supported list filters. Zero values mean
// "no constraint". Stat is a composite and takes precedence over
// State/ShipmentStatus when set.
type OrderFilter struct {
	Marketplace    string
	State          OrderState
	ShipmentStatus ShipmentStatus
	Acknowledged   *bool
	Stat           OrderStat
	// MissingERPLink selects orders with no ERP sales order yet.
	MissingERPLink bool
}

// Page bounds a list operation. A zero Limit falls back to the store default.
type Page struct {
	Limit int
	Skip  int
}
