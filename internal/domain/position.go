package domain

// PositionView is one line of a positions snapshot.
// Raw carries the venue payload for live brokers.
type PositionView struct {
	Symbol   string         `json:"symbol"`
	Qty      float64        `json:"qty"`
	AvgPrice float64        `json:"avgPrice"`
	Raw      map[string]any `json:"raw,omitempty"`
}

// IsLong checks if the position is Long.
func (p PositionView) IsLong() bool {
	return p.Qty > 0
}

// IsShort checks if the position is Short.
func (p PositionView) IsShort() bool {
	return p.Qty < 0
}

// Portfolio is a point-in-time account snapshot. Cash, MarketValue and
// Equity are nil when the venue does not report them.
type Portfolio struct {
	Cash        *float64       `json:"cash,omitempty"`
	Positions   []PositionView `json:"positions"`
	MarketValue *float64       `json:"marketValue,omitempty"`
	Equity      *float64       `json:"equity,omitempty"`
}
