package core

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// noDateBucket collects orders with no delivery-window end date; they group
// by destination only.
const noDateBucket = "nodate"

// GroupKey identifies a consolidation group: normalized destination code plus
// the delivery-window end truncated to a calendar day (or "nodate").
type GroupKey struct {
	DestinationCode string `json:"destination_code"`
	WindowEndDate   string `json:"window_end_date"`
}

func (k GroupKey) String() string {
	return k.DestinationCode + "/" + k.WindowEndDate
}

// GroupSummary is the aggregate view of one consolidation group.
type GroupSummary struct {
	Key             GroupKey        `json:"key"`
	DestinationName string          `json:"destination_name"`
	Orders          []OrderNumber   `json:"orders"`
	TotalItems      int             `json:"total_items"`
	TotalUnits      decimal.Decimal `json:"total_units"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	Currency        string          `json:"currency"`
	windowEnd       time.Time
}

// ConsolidatedItem is one product aggregated across every order in a group,
// keeping the per-order quantities for traceability.
type ConsolidatedItem struct {
	VendorSKU        string            `json:"vendor_sku"`
	PartnerProductID string            `json:"partner_product_id"`
	TotalQty         decimal.Decimal   `json:"total_qty"`
	Contributions    []ItemContribution `json:"contributions"`
}

type ItemContribution struct {
	OrderNumber OrderNumber     `json:"order_number"`
	Qty         decimal.Decimal `json:"qty"`
}

// GroupDetail is the full view of one group: its summary plus the
// per-product consolidated item list, sorted by SKU.
type GroupDetail struct {
	GroupSummary
	Items []ConsolidatedItem `json:"items"`
}

// groupKeyFor computes the grouping key for an order.
func groupKeyFor(order *PurchaseOrder) GroupKey {
	key := GroupKey{
		DestinationCode: strings.ToUpper(strings.TrimSpace(order.Destination.PartyID)),
		WindowEndDate:   noDateBucket,
	}
	if order.DeliveryWindow.End != nil {
		key.WindowEndDate = order.DeliveryWindow.End.Format("2006-01-02")
	}
	return key
}

// shippable reports whether an order participates in consolidation: not yet
// shipped and not in a terminal state.
func shippable(order *PurchaseOrder) bool {
	if order.State != OrderStateNew && order.State != OrderStateAcknowledged {
		return false
	}
	return order.ShipmentStatus == ShipmentNotShipped || order.ShipmentStatus == ""
}

// BuildGroups derives consolidation groups from the current order set. It is
// a pure function: the same orders always yield the same groups and totals.
// Groups sort by delivery-window end ascending (nodate last), ties by
// destination code.
func BuildGroups(orders []PurchaseOrder) []GroupSummary {
	byKey := make(map[GroupKey]*GroupSummary)

	for i := range orders {
		order := &orders[i]
		if !shippable(order) {
			continue
		}

		key := groupKeyFor(order)
		g, ok := byKey[key]
		if !ok {
			g = &GroupSummary{
				Key:             key,
				DestinationName: destinationName(order.Destination.PartyID, order.Destination),
			}
			if order.DeliveryWindow.End != nil {
				g.windowEnd = *order.DeliveryWindow.End
			}
			byKey[key] = g
		}

		g.Orders = append(g.Orders, order.OrderNumber)
		g.TotalItems += len(order.Lines)
		for _, l := range order.Lines {
			g.TotalUnits = g.TotalUnits.Add(l.OrderedQty)
		}
		g.TotalAmount = g.TotalAmount.Add(order.Totals.Amount)
		if g.Currency == "" {
			g.Currency = order.Totals.Currency
		}
	}

	groups := make([]GroupSummary, 0, len(byKey))
	for _, g := range byKey {
		sort.Slice(g.Orders, func(i, j int) bool { return g.Orders[i] < g.Orders[j] })
		groups = append(groups, *g)
	}
	sort.Slice(groups, func(i, j int) bool {
		a, b := groups[i], groups[j]
		if a.windowEnd.IsZero() != b.windowEnd.IsZero() {
			return !a.windowEnd.IsZero() // dated groups before nodate
		}
		if !a.windowEnd.Equal(b.windowEnd) {
			return a.windowEnd.Before(b.windowEnd)
		}
		return a.Key.DestinationCode < b.Key.DestinationCode
	})
	return groups
}

// BuildGroupDetail re-derives the group for key and consolidates its line
// items per product identifier. Returns nil when no shippable order matches
// the key.
func BuildGroupDetail(orders []PurchaseOrder, key GroupKey) *GroupDetail {
	key.DestinationCode = strings.ToUpper(strings.TrimSpace(key.DestinationCode))
	if key.WindowEndDate == "" {
		key.WindowEndDate = noDateBucket
	}

	var members []PurchaseOrder
	for i := range orders {
		if shippable(&orders[i]) && groupKeyFor(&orders[i]) == key {
			members = append(members, orders[i])
		}
	}
	if len(members) == 0 {
		return nil
	}

	summaries := BuildGroups(members)
	detail := &GroupDetail{GroupSummary: summaries[0]}

	type itemAgg struct {
		item ConsolidatedItem
	}
	byProduct := make(map[string]*itemAgg)
	var productOrder []string

	for i := range members {
		order := &members[i]
		for _, l := range order.Lines {
			id := l.VendorSKU
			if id == "" {
				id = l.PartnerProductID
			}
			agg, ok := byProduct[id]
			if !ok {
				agg = &itemAgg{item: ConsolidatedItem{
					VendorSKU:        l.VendorSKU,
					PartnerProductID: l.PartnerProductID,
				}}
				byProduct[id] = agg
				productOrder = append(productOrder, id)
			}
			agg.item.TotalQty = agg.item.TotalQty.Add(l.OrderedQty)
			agg.item.Contributions = append(agg.item.Contributions, ItemContribution{
				OrderNumber: order.OrderNumber,
				Qty:         l.OrderedQty,
			})
		}
	}

	sort.Strings(productOrder)
	for _, id := range productOrder {
		detail.Items = append(detail.Items, byProduct[id].item)
	}
	return detail
}
