// Package markethours answers "is the exchange in its regular session?" for
// brokers resolved in auto mode when the caller sends no market signal.
// Exchange holidays are not modeled.
package markethours

import (
	"fmt"
	"strings"
	"time"
)

// Session is a regular Monday to Friday trading window in one timezone.
// The window is half-open: [Open, Close).
type Session struct {
	loc   *time.Location
	open  time.Duration // since local midnight
	close time.Duration
}

// NSE regular session, 09:15 to 15:30 IST.
const (
	nseTimezone = "Asia/Kolkata"
	nseOpen     = 9*time.Hour + 15*time.Minute
	nseClose    = 15*time.Hour + 30*time.Minute
)

// ist is used when the tz database is unavailable. India has no DST.
var ist = time.FixedZone("IST", 5*3600+1800)

// NSE returns the National Stock Exchange regular session.
func NSE() *Session {
	loc, err := time.LoadLocation(nseTimezone)
	if err != nil {
		loc = ist
	}
	return &Session{loc: loc, open: nseOpen, close: nseClose}
}

// NSEIn returns the NSE window evaluated in tz instead of IST. An empty tz
// or the IST zone name returns NSE().
func NSEIn(tz string) (*Session, error) {
	if tz == "" || tz == nseTimezone {
		return NSE(), nil
	}
	return New(tz, nseOpen, nseClose)
}

// New builds a session in tz. open and close are offsets from local midnight.
func New(tz string, open, close time.Duration) (*Session, error) {
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", tz, err)
	}
	if open < 0 || close > 24*time.Hour || open >= close {
		return nil, fmt.Errorf("invalid session window %s-%s", open, close)
	}
	return &Session{loc: loc, open: open, close: close}, nil
}

// Location returns the session timezone.
func (s *Session) Location() *time.Location { return s.loc }

func (s *Session) sinceMidnight(t time.Time) time.Duration {
	h, m, sec := t.Clock()
	return time.Duration(h)*time.Hour + time.Duration(m)*time.Minute + time.Duration(sec)*time.Second
}

func isWeekday(d time.Weekday) bool {
	return d >= time.Monday && d <= time.Friday
}

// IsOpen reports whether t falls inside the session.
func (s *Session) IsOpen(t time.Time) bool {
	local := t.In(s.loc)
	if !isWeekday(local.Weekday()) {
		return false
	}
	m := s.sinceMidnight(local)
	return m >= s.open && m < s.close
}

// NextBoundary returns the next open or close after t: today's close while
// open, today's open before the bell, otherwise the next weekday's open.
func (s *Session) NextBoundary(t time.Time) time.Time {
	local := t.In(s.loc)
	midnight := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, s.loc)
	m := s.sinceMidnight(local)

	if isWeekday(local.Weekday()) {
		if m < s.open {
			return midnight.Add(s.open)
		}
		if m < s.close {
			return midnight.Add(s.close)
		}
	}

	day := midnight.AddDate(0, 0, 1)
	for !isWeekday(day.Weekday()) {
		day = day.AddDate(0, 0, 1)
	}
	return day.Add(s.open)
}

// Clock adapts the session to a zero-argument check using now.
func (s *Session) Clock(now func() time.Time) func() bool {
	if now == nil {
		now = time.Now
	}
	return func() bool { return s.IsOpen(now()) }
}

// ParseSignal reads a client supplied market flag. Empty input means no
// signal (nil); "1", "true", "yes" and "on" mean open; anything else closed.
func ParseSignal(s string) *bool {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return nil
	}
	open := s == "1" || s == "true" || s == "yes" || s == "on"
	return &open
}
