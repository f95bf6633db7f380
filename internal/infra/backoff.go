package infra

import (
	"time"
)

// Backoff doubles a delay for every consecutive failure, capped at Max.
type Backoff struct {
	Base time.Duration
	Max  time.Duration
}

// LoginBackoff spaces out broker re-login attempts. Brokers lock accounts
// after repeated bad logins, so a failing session must not hammer them.
var LoginBackoff = Backoff{Base: time.Second, Max: time.Minute}

// Delay returns the wait before the next attempt after failures consecutive
// failures. Zero failures means no wait.
func (b Backoff) Delay(failures int) time.Duration {
	if failures <= 0 {
		return 0
	}
	// 2^30 * Base is far beyond any sensible Max.
	if failures > 31 {
		return b.Max
	}

	d := b.Base * time.Duration(1<<(failures-1))
	if d > b.Max || d <= 0 {
		return b.Max
	}
	return d
}
