package domain

import "testing"

func TestParseSide(t *testing.T) {
	tests := []struct {
		in   string
		want Side
		ok   bool
	}{
		{"BUY", SideBuy, true},
		{" sell ", SideSell, true},
		{"hold", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseSide(tt.in)
			if got != tt.want || ok != tt.ok {
				t.Errorf("ParseSide(%q) = %v, %v, want %v, %v", tt.in, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestParseOrderType(t *testing.T) {
	tests := []struct {
		in   string
		want OrderType
		ok   bool
	}{
		{"", OrderTypeMarket, true},
		{"market", OrderTypeMarket, true},
		{"LIMIT", OrderTypeLimit, true},
		{"SL", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseOrderType(tt.in)
			if got != tt.want || ok != tt.ok {
				t.Errorf("ParseOrderType(%q) = %v, %v, want %v, %v", tt.in, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestOrderResponse_IsAccepted(t *testing.T) {
	tests := []struct {
		status string
		want   bool
	}{
		{StatusAccepted, true},
		{StatusPending, false},
		{StatusRejected, false},
	}
	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			o := OrderResponse{Status: tt.status}
			if got := o.IsAccepted(); got != tt.want {
				t.Errorf("OrderResponse.IsAccepted() = %v, want %v", got, tt.want)
			}
		})
	}
}
