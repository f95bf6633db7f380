package markethours

import (
	"testing"
	"time"
)

func atIST(t *testing.T, s string) time.Time {
	t.Helper()
	tm, err := time.ParseInLocation("2006-01-02 15:04", s, NSE().Location())
	if err != nil {
		t.Fatalf("parse %q: %v", s, err)
	}
	return tm
}

func TestNSE_IsOpen(t *testing.T) {
	s := NSE()
	tests := []struct {
		at   string
		want bool
	}{
		{"2025-01-06 09:14", false}, // Monday, before open
		{"2025-01-06 09:15", true},
		{"2025-01-06 12:00", true},
		{"2025-01-06 15:29", true},
		{"2025-01-06 15:30", false}, // close is exclusive
		{"2025-01-10 10:00", true},  // Friday
		{"2025-01-11 10:00", false}, // Saturday
		{"2025-01-12 10:00", false}, // Sunday
	}
	for _, tt := range tests {
		if got := s.IsOpen(atIST(t, tt.at)); got != tt.want {
			t.Errorf("IsOpen(%s) = %v, want %v", tt.at, got, tt.want)
		}
	}
}

func TestNSE_IsOpenAcrossTimezones(t *testing.T) {
	// 04:00 UTC on a Monday is 09:30 IST.
	utc := time.Date(2025, 1, 6, 4, 0, 0, 0, time.UTC)
	if !NSE().IsOpen(utc) {
		t.Error("expected open at 04:00 UTC Monday")
	}
}

func TestNSE_NextBoundary(t *testing.T) {
	s := NSE()
	tests := []struct {
		at, want string
	}{
		{"2025-01-06 08:00", "2025-01-06 09:15"},
		{"2025-01-06 10:00", "2025-01-06 15:30"},
		{"2025-01-06 16:00", "2025-01-07 09:15"},
		{"2025-01-10 16:00", "2025-01-13 09:15"}, // Friday evening -> Monday
		{"2025-01-11 10:00", "2025-01-13 09:15"}, // Saturday
	}
	for _, tt := range tests {
		got := s.NextBoundary(atIST(t, tt.at))
		if want := atIST(t, tt.want); !got.Equal(want) {
			t.Errorf("NextBoundary(%s) = %s, want %s", tt.at, got, want)
		}
	}
}

func TestNew_Invalid(t *testing.T) {
	if _, err := New("Nowhere/City", time.Hour, 2*time.Hour); err == nil {
		t.Error("expected timezone error")
	}
	if _, err := New("UTC", 2*time.Hour, time.Hour); err == nil {
		t.Error("expected window error")
	}
}

func TestClock(t *testing.T) {
	open := atIST(t, "2025-01-06 10:00")
	isOpen := NSE().Clock(func() time.Time { return open })
	if !isOpen() {
		t.Error("expected open")
	}
}

func TestParseSignal(t *testing.T) {
	if ParseSignal("  ") != nil {
		t.Error("blank should be no signal")
	}
	for _, s := range []string{"1", "true", "YES", "on"} {
		if p := ParseSignal(s); p == nil || !*p {
			t.Errorf("%q should be open", s)
		}
	}
	for _, s := range []string{"0", "false", "closed"} {
		if p := ParseSignal(s); p == nil || *p {
			t.Errorf("%q should be closed", s)
		}
	}
}

func TestNSEIn(t *testing.T) {
	s, err := NSEIn("")
	if err != nil || s == nil {
		t.Fatalf("NSEIn(\"\") = %v, %v", s, err)
	}
	if _, err := NSEIn("Mars/Olympus"); err == nil {
		t.Error("expected error for unknown timezone")
	}

	utc, err := NSEIn("UTC")
	if err != nil {
		t.Fatalf("NSEIn(UTC) failed: %v", err)
	}
	// 09:30 UTC on a Monday is inside the window when it is read as UTC.
	if !utc.IsOpen(time.Date(2025, 1, 6, 9, 30, 0, 0, time.UTC)) {
		t.Error("expected open at 09:30 UTC")
	}
}
