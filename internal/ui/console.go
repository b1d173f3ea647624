// Package ui renders search progress and results on a terminal.
package ui

import (
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/Amr-9/omnivanity/pkg/generator"
	"github.com/Amr-9/omnivanity/pkg/generator/ethereum"
	"github.com/Amr-9/omnivanity/pkg/kernel"
)

var (
	colorTitle  = color.New(color.FgCyan, color.Bold)
	colorAccent = color.New(color.FgCyan)
	colorOK     = color.New(color.FgGreen, color.Bold)
	colorCount  = color.New(color.FgYellow)
	colorKey    = color.New(color.FgMagenta, color.Bold)
	colorError  = color.New(color.FgRed, color.Bold)
	colorDim    = color.New(color.Faint)
)

// Console writes human-readable output to W.
type Console struct {
	W io.Writer
}

// NewConsole returns a Console on w, or stdout when w is nil.
func NewConsole(w io.Writer) *Console {
	if w == nil {
		w = color.Output
	}
	return &Console{W: w}
}

// Stdout is the default console.
var Stdout = NewConsole(nil)

// PrintBanner shows the program name and version.
func (c *Console) PrintBanner(version string) {
	colorTitle.Fprintln(c.W, "\n  "+strings.Repeat("═", 58))
	colorTitle.Fprintf(c.W, "   OMNIVANITY  ")
	colorDim.Fprintf(c.W, "vanity address search • v%s\n", version)
	colorTitle.Fprintln(c.W, "  "+strings.Repeat("═", 58))
}

// PrintSearchInfo displays the search target and its expected cost.
func (c *Console) PrintSearchInfo(cfg *generator.Config, backend string) {
	l := cfg.Layout()
	difficulty := cfg.Difficulty()

	colorOK.Fprintf(c.W, "\n    SEARCHING ")
	switch cfg.Mode {
	case kernel.MatchPrefix:
		colorAccent.Fprintf(c.W, "%s%s", l.DisplayPrefix, cfg.Pattern)
		colorDim.Fprint(c.W, "...")
	case kernel.MatchSuffix:
		colorAccent.Fprint(c.W, l.DisplayPrefix)
		colorDim.Fprint(c.W, "...")
		colorAccent.Fprint(c.W, cfg.Pattern)
	default:
		colorAccent.Fprint(c.W, l.DisplayPrefix)
		colorDim.Fprint(c.W, "...")
		colorAccent.Fprint(c.W, cfg.Pattern)
		colorDim.Fprint(c.W, "...")
	}
	colorDim.Fprintf(c.W, " (1/%s)\n", generator.FormatDifficulty(difficulty))

	fmt.Fprintf(c.W, "    network  %s", cfg.Network)
	if cfg.Network == generator.Bitcoin {
		fmt.Fprintf(c.W, " %s", cfg.AddressType)
	}
	fmt.Fprintf(c.W, "\n    backend  %s\n", backend)
	if cfg.CaseInsensitive {
		colorDim.Fprintln(c.W, "    case-insensitive")
	}
	fmt.Fprintln(c.W)
}

// PrintProgress redraws the single progress line.
func (c *Console) PrintProgress(stats generator.Stats, difficulty float64, frame int) {
	spinners := []string{"◐", "◓", "◑", "◒"}
	spinner := spinners[frame%len(spinners)]

	progress := generator.Probability(difficulty, stats.Attempts)
	barWidth := 40
	filled := int(progress * float64(barWidth))
	if filled > barWidth {
		filled = barWidth
	}
	bar := strings.Repeat("▓", filled) + strings.Repeat("░", barWidth-filled)

	eta := "-"
	if stats.HashRate > 0 {
		eta = FormatDuration(generator.EstimateTime50(difficulty, stats.HashRate))
	}

	fmt.Fprintf(c.W, "\r    %s %s %s │ %s │ %s │ 50%% in %s",
		colorAccent.Sprint(spinner),
		colorDim.Sprint(bar),
		colorOK.Sprint(FormatHashRate(stats.HashRate)),
		colorCount.Sprint(FormatNumber(stats.Attempts)),
		FormatDuration(time.Duration(stats.ElapsedSecs*float64(time.Second))),
		eta)
}

// ClearLine clears the progress line.
func (c *Console) ClearLine() {
	fmt.Fprint(c.W, "\r"+strings.Repeat(" ", 94)+"\r")
}

// PrintSuccess shows the found address.
func (c *Console) PrintSuccess(result generator.Result, elapsed time.Duration, attempts uint64, outputFile string) {
	colorOK.Fprintln(c.W, "\n    ╔══════════════════════════════════════════════════════════╗")
	colorOK.Fprintln(c.W, "    ║                     ADDRESS FOUND                        ║")
	colorOK.Fprintln(c.W, "    ╚══════════════════════════════════════════════════════════╝")

	colorTitle.Fprintf(c.W, "\n    %s ADDRESS\n\n", strings.ToUpper(result.Network.String()))
	colorOK.Fprintf(c.W, "       %s\n\n", result.Address)

	colorKey.Fprintln(c.W, "    PRIVATE KEY")
	colorCount.Fprintf(c.W, "       %s\n\n", result.PrivateKey)

	fmt.Fprintf(c.W, "    time %s   │   keys %s   │   backend %s",
		FormatDuration(elapsed), FormatNumber(attempts), result.Backend)
	if outputFile != "" {
		fmt.Fprintf(c.W, "   │   saved %s", outputFile)
	}
	fmt.Fprintln(c.W)
	colorError.Fprintln(c.W, "\n    KEEP YOUR PRIVATE KEY SECRET!")
}

// PrintError reports a failure.
func (c *Console) PrintError(err error) {
	colorError.Fprintf(c.W, "\n    error: %v\n", err)
}

// PrintDevices lists the available backends.
func (c *Console) PrintDevices(backends []kernel.Backend, failures map[kernel.Kind]error) {
	colorTitle.Fprintln(c.W, "\n    COMPUTE BACKENDS")
	for _, b := range backends {
		d := b.Device()
		colorOK.Fprintf(c.W, "    %-7s", b.Name())
		fmt.Fprintf(c.W, " %s", d.Name)
		if d.Vendor != "" {
			colorDim.Fprintf(c.W, " (%s)", d.Vendor)
		}
		fmt.Fprintf(c.W, "\n            units %d", d.ComputeUnits)
		if d.GlobalMem > 0 {
			fmt.Fprintf(c.W, "   memory %d MiB", d.GlobalMem>>20)
		}
		fmt.Fprintf(c.W, "   64-bit %t\n", d.Native64)
		if len(d.Features) > 0 {
			colorDim.Fprintf(c.W, "            %s\n", strings.Join(d.Features, " "))
		}
	}
	for kind, err := range failures {
		colorError.Fprintf(c.W, "    %-7s", kind)
		colorDim.Fprintf(c.W, " unavailable: %v\n", err)
	}
}

// PrintChains lists the supported networks.
func (c *Console) PrintChains() {
	colorTitle.Fprintln(c.W, "\n    SUPPORTED NETWORKS")
	colorDim.Fprintf(c.W, "    %-6s %-10s %-10s %-8s %s\n", "TICKER", "NAME", "CURVE", "PREFIX", "ADDRESS TYPES")
	for _, n := range generator.Networks {
		types := n.AddressTypes()
		names := make([]string, len(types))
		for i, t := range types {
			names[i] = t.String()
		}
		prefix := n.Layout(generator.AddressTypeDefault).DisplayPrefix
		if prefix == "" {
			prefix = "-"
		}
		colorOK.Fprintf(c.W, "    %-6s", n.Ticker())
		fmt.Fprintf(c.W, " %-10s %-10s %-8s %s\n", n, n.Curve(), prefix, strings.Join(names, ", "))
	}
}

// PrintBench shows a benchmark report.
func (c *Console) PrintBench(r ethereum.BenchReport) {
	fmt.Fprintf(c.W, "    %-7s %s  %s keys in %s  (%s)\n",
		r.Backend,
		colorOK.Sprint(FormatHashRate(r.Rate)),
		FormatNumber(r.Keys),
		FormatDuration(r.Elapsed),
		r.Pipeline)
}

// PrintChecks shows self-check results and returns whether all passed.
func (c *Console) PrintChecks(backend string, checks []ethereum.CheckResult) bool {
	ok := true
	colorTitle.Fprintf(c.W, "\n    SELF-CHECK %s\n", backend)
	for _, r := range checks {
		if r.Match {
			colorOK.Fprint(c.W, "    PASS ")
		} else {
			ok = false
			colorError.Fprint(c.W, "    FAIL ")
		}
		fmt.Fprintf(c.W, "%s", r.Name)
		if r.Input != "" {
			colorDim.Fprintf(c.W, " [%s]", r.Input)
		}
		fmt.Fprintln(c.W)
		if !r.Match {
			if r.ErrorMsg != "" {
				colorDim.Fprintf(c.W, "         %s\n", r.ErrorMsg)
			} else {
				colorDim.Fprintf(c.W, "         got  %s\n         want %s\n", r.Got, r.Want)
			}
		}
	}
	return ok
}

// FormatHashRate formats a key rate.
func FormatHashRate(rate float64) string {
	switch {
	case rate >= 1e9:
		return fmt.Sprintf("%.2fG/s", rate/1e9)
	case rate >= 1e6:
		return fmt.Sprintf("%.1fM/s", rate/1e6)
	case rate >= 1e3:
		return fmt.Sprintf("%.1fK/s", rate/1e3)
	}
	return fmt.Sprintf("%.0f/s", rate)
}

// FormatNumber adds commas to large numbers.
func FormatNumber(n uint64) string {
	s := fmt.Sprintf("%d", n)
	if n < 1000 {
		return s
	}
	result := make([]byte, 0, len(s)+(len(s)-1)/3)
	for i := 0; i < len(s); i++ {
		if i > 0 && (len(s)-i)%3 == 0 {
			result = append(result, ',')
		}
		result = append(result, s[i])
	}
	return string(result)
}

// FormatDuration formats a duration in a human-readable way.
func FormatDuration(d time.Duration) string {
	switch {
	case d == time.Duration(math.MaxInt64):
		return "∞"
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d < time.Minute:
		return fmt.Sprintf("%.1fs", d.Seconds())
	case d < time.Hour:
		return fmt.Sprintf("%dm %ds", int(d.Minutes()), int(d.Seconds())%60)
	case d < 48*time.Hour:
		return fmt.Sprintf("%dh %dm", int(d.Hours()), int(d.Minutes())%60)
	}
	return fmt.Sprintf("%dd %dh", int(d.Hours())/24, int(d.Hours())%24)
}
