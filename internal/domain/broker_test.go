package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestParseBrokerName(t *testing.T) {
	tests := []struct {
		in   string
		want BrokerName
	}{
		{"paper", BrokerPaper},
		{"Paper-Trade", BrokerPaper},
		{" angel_one ", BrokerLiveA},
		{"angel-one", BrokerLiveA},
		{"BINANCE", BrokerLiveB},
		{"live_b", BrokerLiveB},
		{"AUTO", BrokerAuto},
		{"kraken", BrokerName("kraken")},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := ParseBrokerName(tt.in); got != tt.want {
				t.Errorf("ParseBrokerName(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestBrokerError_Matching(t *testing.T) {
	err := fmt.Errorf("place order: %w", &BrokerError{Broker: BrokerLiveB, Op: "place_order", Err: ErrBrokerRejected})

	if !errors.Is(err, ErrBroker) {
		t.Error("expected BrokerError to match ErrBroker")
	}
	if !errors.Is(err, ErrBrokerRejected) {
		t.Error("expected BrokerError to unwrap to its cause")
	}
	var be *BrokerError
	if !errors.As(err, &be) || be.Broker != BrokerLiveB {
		t.Errorf("errors.As failed: %v", err)
	}
}

func TestIsClientError(t *testing.T) {
	if !IsClientError(fmt.Errorf("x: %w", ErrInvalidOrderParameters)) {
		t.Error("invalid parameters should be a client error")
	}
	if IsClientError(ErrBrokerRejected) {
		t.Error("rejection should not be a client error")
	}
}
