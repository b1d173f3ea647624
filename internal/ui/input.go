package ui

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/Amr-9/omnivanity/pkg/generator"
	"github.com/Amr-9/omnivanity/pkg/kernel"
)

// Prompter asks for search settings interactively.
type Prompter struct {
	r *bufio.Reader
	c *Console
}

// NewPrompter reads answers from r and writes prompts to c.
func NewPrompter(r io.Reader, c *Console) *Prompter {
	return &Prompter{r: bufio.NewReader(r), c: c}
}

func (p *Prompter) readLine() string {
	line, _ := p.r.ReadString('\n')
	return strings.TrimSpace(line)
}

func (p *Prompter) arrow() {
	fmt.Fprintf(p.c.W, "\n    %s ", colorOK.Sprint("→"))
}

// SelectNetwork fills cfg.Network and, for networks with several address
// formats, cfg.AddressType.
// An empty answer keeps the current value.
func (p *Prompter) SelectNetwork(cfg *generator.Config) {
	colorKey.Fprintln(p.c.W, "    SELECT NETWORK")
	for i, n := range generator.Networks {
		l := n.Layout(generator.AddressTypeDefault)
		fmt.Fprintf(p.c.W, "    %s %s ", colorAccent.Sprintf("[%d]", i+1), n)
		if l.DisplayPrefix == "" {
			colorDim.Fprintln(p.c.W, "- no fixed prefix")
		} else {
			colorDim.Fprintf(p.c.W, "- %s prefix\n", l.DisplayPrefix)
		}
	}
	p.arrow()
	choice := p.readLine()
	for i, n := range generator.Networks {
		if choice == fmt.Sprint(i+1) {
			cfg.Network = n
		}
	}
	if n, err := generator.ParseNetwork(choice); err == nil {
		cfg.Network = n
	}
	colorOK.Fprintf(p.c.W, "    ✓ %s selected\n\n", cfg.Network)

	types := cfg.Network.AddressTypes()
	if len(types) < 2 {
		return
	}
	colorKey.Fprintln(p.c.W, "    SELECT ADDRESS TYPE")
	for i, t := range types {
		fmt.Fprintf(p.c.W, "    %s %s\n", colorAccent.Sprintf("[%d]", i+1), t)
	}
	p.arrow()
	choice = p.readLine()
	for i, t := range types {
		if choice == fmt.Sprint(i+1) {
			cfg.AddressType = t
		}
	}
	fmt.Fprintln(p.c.W)
}

// Pattern asks for the pattern and match mode until the pattern is valid
// for the selected network. It returns false when input ends.
func (p *Prompter) Pattern(cfg *generator.Config) bool {
	l := cfg.Layout()
	colorKey.Fprintln(p.c.W, "    TARGET PATTERN")
	for {
		fmt.Fprintf(p.c.W, "    %s (%s...): ", colorAccent.Sprint("Pattern"), l.DisplayPrefix)
		line, err := p.r.ReadString('\n')
		pattern := l.TrimPattern(strings.TrimSpace(line))
		if pattern == "" && err != nil {
			return false
		}
		cfg.Pattern = pattern
		if verr := cfg.ValidatePattern(); verr != nil {
			colorError.Fprintf(p.c.W, "    ⚠ %v\n", verr)
			if bad := l.InvalidChars(pattern); len(bad) > 0 {
				colorDim.Fprintf(p.c.W, "      invalid characters: %s\n", string(bad))
			}
			if err != nil {
				return false
			}
			continue
		}
		break
	}

	fmt.Fprintf(p.c.W, "    %s (prefix/suffix/contains) [%s]: ", colorAccent.Sprint("Mode"), cfg.Mode)
	if mode, err := kernel.ParseMatchMode(strings.ToLower(p.readLine())); err == nil {
		cfg.Mode = mode
	}
	if !l.Hex && !l.CaseFree {
		fmt.Fprintf(p.c.W, "    %s [y/N]: ", colorAccent.Sprint("Ignore case"))
		answer := strings.ToLower(p.readLine())
		cfg.CaseInsensitive = answer == "y" || answer == "yes"
	}
	fmt.Fprintln(p.c.W)
	return true
}

// AskToContinue asks whether to search for another match.
func (p *Prompter) AskToContinue() bool {
	fmt.Fprintf(p.c.W, "\n    %s Continue searching  │  %s Exit",
		colorOK.Sprint("[Enter]"), colorError.Sprint("[Q]"))
	p.arrow()
	line, err := p.r.ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	input := strings.ToLower(strings.TrimSpace(line))
	return input != "q" && input != "quit" && input != "exit"
}
