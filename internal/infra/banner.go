package infra

import (
	"fmt"
	"io"
	"strings"
)

// ANSI Color Codes
const (
	ColorReset  = "\033[0m"
	ColorRed    = "\033[31m"
	ColorGreen  = "\033[32m"
	ColorYellow = "\033[33m"
	ColorCyan   = "\033[36m"
)

// PrintBanner displays the startup banner with the effective routing mode.
// mode is "paper" or "live" as reported by the gateway.
func PrintBanner(w io.Writer, cfg *Config, mode string) {
	mode = strings.ToUpper(mode)

	color := ColorCyan
	modeDesc := "PAPER (SIMULATED FILLS)"
	if mode == "LIVE" {
		color = ColorRed
		modeDesc = "LIVE BROKERS REACHABLE"
	}

	killSwitch := "ON"
	if !cfg.Broker.PaperKillSwitch {
		killSwitch = "OFF"
		if mode != "LIVE" {
			color = ColorYellow
		}
	}

	auto := fmt.Sprintf("open=%s closed=%s", cfg.Broker.WhenAutoOpen, cfg.Broker.WhenAutoClosed)

	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s###########################################################%s\n", color, ColorReset)
	fmt.Fprintf(w, "%s#                                                         #%s\n", color, ColorReset)
	fmt.Fprintf(w, "%s#               Execution Gateway                         #%s\n", color, ColorReset)
	fmt.Fprintf(w, "%s#                                                         #%s\n", color, ColorReset)
	fmt.Fprintf(w, "%s#   MODE:    %-44s #%s\n", color, mode, ColorReset)
	fmt.Fprintf(w, "%s#   TYPE:    %-44s #%s\n", color, modeDesc, ColorReset)
	fmt.Fprintf(w, "%s#   PAPER:   %-44s #%s\n", color, "kill switch "+killSwitch, ColorReset)
	fmt.Fprintf(w, "%s#   AUTO:    %-44s #%s\n", color, auto, ColorReset)
	fmt.Fprintf(w, "%s#   VERSION: %-44s #%s\n", color, cfg.App.Version, ColorReset)
	fmt.Fprintf(w, "%s#                                                         #%s\n", color, ColorReset)

	if mode == "LIVE" {
		fmt.Fprintf(w, "%s#   WARNING: ORDERS MAY REACH A REAL VENUE                #%s\n", ColorRed, ColorReset)
		fmt.Fprintf(w, "%s#   VERIFY ROUTING WITH --dry-run FIRST                   #%s\n", ColorRed, ColorReset)
	}

	fmt.Fprintf(w, "%s###########################################################%s\n", color, ColorReset)
	fmt.Fprintln(w)
}
