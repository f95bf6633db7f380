package domain

import "strings"

// Side is the direction of an order.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// OrderType is the pricing mode of an order.
type OrderType string

const (
	OrderTypeMarket OrderType = "MARKET"
	OrderTypeLimit  OrderType = "LIMIT"
)

// Order statuses reported back to callers.
const (
	StatusAccepted = "ACCEPTED"
	StatusRejected = "REJECTED"
	StatusPending  = "PENDING"
)

// ParseSide upper-cases and validates s.
func ParseSide(s string) (Side, bool) {
	switch Side(strings.ToUpper(strings.TrimSpace(s))) {
	case SideBuy:
		return SideBuy, true
	case SideSell:
		return SideSell, true
	default:
		return "", false
	}
}

// ParseOrderType upper-cases and validates s. Empty means MARKET.
func ParseOrderType(s string) (OrderType, bool) {
	switch OrderType(strings.ToUpper(strings.TrimSpace(s))) {
	case OrderTypeMarket, "":
		return OrderTypeMarket, true
	case OrderTypeLimit:
		return OrderTypeLimit, true
	default:
		return "", false
	}
}

// OrderRequest is what an adapter receives. Symbol is already canonical
// (EXCHANGE:TOKEN). Price is nil for MARKET orders.
type OrderRequest struct {
	Symbol string
	Side   Side
	Type   OrderType
	Qty    float64
	Price  *float64
}

// OrderRecord is an immutable fill kept by the paper ledger.
type OrderRecord struct {
	ID          string    `json:"id"`
	Symbol      string    `json:"symbol"`
	Side        Side      `json:"side"`
	Type        OrderType `json:"type"`
	Qty         float64   `json:"qty"`
	Price       float64   `json:"price"`
	TimestampMs int64     `json:"timestampMs"`
}

// OrderResponse is the normalized result of an order placement.
type OrderResponse struct {
	OrderID     string  `json:"orderId"`
	Status      string  `json:"status"`
	Symbol      string  `json:"symbol,omitempty"`
	Side        Side    `json:"side,omitempty"`
	Price       float64 `json:"price,omitempty"`
	Qty         float64 `json:"qty,omitempty"`
	TimestampMs int64   `json:"timestampMs,omitempty"`
	Message     string  `json:"message,omitempty"`
}

// IsAccepted checks if the venue took the order.
func (o OrderResponse) IsAccepted() bool {
	return o.Status == StatusAccepted
}
