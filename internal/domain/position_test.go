package domain

import "testing"

func TestPositionView_Direction(t *testing.T) {
	tests := []struct {
		name    string
		qty     float64
		isLong  bool
		isShort bool
	}{
		{"Long", 10, true, false},
		{"Short", -10, false, true},
		{"Flat", 0, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := PositionView{Qty: tt.qty}
			if got := p.IsLong(); got != tt.isLong {
				t.Errorf("PositionView.IsLong() = %v, want %v", got, tt.isLong)
			}
			if got := p.IsShort(); got != tt.isShort {
				t.Errorf("PositionView.IsShort() = %v, want %v", got, tt.isShort)
			}
		})
	}
}
