package app

import "vendor-pipeline/internal/core"

// OrderListResult is returned by ListOrders.
type OrderListResult struct {
	Orders []core.PurchaseOrder
	Total  int
}

// OrderResult is returned by order operations.
type OrderResult struct {
	Order *core.PurchaseOrder
}

// GroupListResult is returned by ListConsolidationGroups.
type GroupListResult struct {
	Groups []core.GroupSummary
}

// ChargebackListResult is returned by ListChargebacks.
type ChargebackListResult struct {
	Chargebacks []core.Chargeback
}

// UserSession is returned by AuthenticateUser.
type UserSession struct {
	UserID   int
	Username string
	Role     string
}

// UserResult is returned by GetUser.
type UserResult struct {
	UserID   int
	Username string
	Email    string
	Role     string
}
