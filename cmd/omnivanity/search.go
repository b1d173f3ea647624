package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Amr-9/omnivanity/internal/logging"
	"github.com/Amr-9/omnivanity/internal/ui"
	"github.com/Amr-9/omnivanity/pkg/generator"
	"github.com/Amr-9/omnivanity/pkg/generator/cpu"
	"github.com/Amr-9/omnivanity/pkg/generator/ethereum"
	"github.com/Amr-9/omnivanity/pkg/kernel"
)

const updateRate = 100 * time.Millisecond

var searchCmd = &cobra.Command{
	Use:   "search [pattern]",
	Short: "Search for an address matching a pattern",
	Long: `Search for an address matching a pattern.

Without a pattern the network and pattern are asked for interactively,
and the search can be repeated after each match.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSearch,
}

func init() {
	f := searchCmd.Flags()
	f.StringP("network", "n", "ethereum", "Network name or ticker (see the chains command)")
	f.StringP("type", "t", "default", "Bitcoin address type: p2tr, p2pkh, p2sh")
	f.StringP("mode", "m", "prefix", "Match mode: prefix, suffix, contains")
	f.BoolP("ignore-case", "i", false, "Fold letter case on Base58 networks")
	f.Uint64("max-attempts", 0, "Stop after this many keys (0 = unlimited)")
	f.Duration("max-duration", 0, "Stop after this long (0 = unlimited)")
	f.StringP("output", "o", "wallet.txt", "File that found keys are appended to (empty = do not save)")
	f.Bool("json", false, "Print the outcome as JSON on stdout; progress goes to stderr")

	bindFlags(f, map[string]string{
		"network":          "network",
		"address_type":     "type",
		"mode":             "mode",
		"case_insensitive": "ignore-case",
		"max_attempts":     "max-attempts",
		"max_duration":     "max-duration",
		"output":           "output",
		"json":             "json",
	})
}

func runSearch(cmd *cobra.Command, args []string) error {
	if len(args) == 1 {
		v.Set("pattern", args[0])
	}
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	search, err := cfg.ToGenerator()
	if err != nil {
		return err
	}
	raisePriority(logger)

	console := ui.Stdout
	if cfg.JSON {
		console = ui.NewConsole(os.Stderr)
	}
	interactive := search.Pattern == ""
	if interactive && cfg.JSON {
		return errors.New("--json needs a pattern")
	}
	var prompter *ui.Prompter
	if interactive {
		console.PrintBanner(version)
		prompter = ui.NewPrompter(os.Stdin, console)
		prompter.SelectNetwork(search)
	}

	for {
		if interactive && !prompter.Pattern(search) {
			return nil
		}
		if err := search.ValidatePattern(); err != nil {
			return err
		}

		gen := newGenerator(search, logger)
		out, err := runOnce(cmd.Context(), console, gen, search, cfg.Output)
		closeGenerator(gen)
		if err != nil {
			return err
		}
		if cfg.JSON {
			if err := writeJSON(cmd.OutOrStdout(), search, out); err != nil {
				return err
			}
		}
		if !interactive {
			if !out.Found {
				return errors.New("no match found")
			}
			return nil
		}
		if !prompter.AskToContinue() {
			return nil
		}
		fmt.Fprintln(console.W)
	}
}

// newGenerator picks the keccak dispatch host for hex networks and the
// batch-matching CPU generator for Base58 and Bech32 networks.
func newGenerator(cfg *generator.Config, logger *logging.Logger) generator.Generator {
	logger = logger.WithNetwork(cfg.Network.String())
	if cfg.Layout().Hex {
		cpuOpts := []kernel.CPUOption{
			kernel.WithWorkers(cfg.Workers),
			kernel.WithWorkgroupSize(cfg.WorkgroupSize),
		}
		return ethereum.New(cfg.Backend, cpuOpts, ethereum.WithLogger(logger))
	}

	opts := []cpu.Option{cpu.WithLogger(logger)}
	if cfg.Backend == kernel.KindOpenCL || cfg.Backend == kernel.KindAuto {
		// only an accelerator is worth a batch round trip
		if gpu, err := kernel.NewOpenCLBackend(); err == nil {
			opts = append(opts, cpu.WithMatcher(gpu))
		} else {
			logger.Debug("batch matcher stays on the CPU", "error", err)
		}
	}
	return cpu.NewCPUGenerator(cfg.Workers, opts...)
}

func closeGenerator(gen generator.Generator) {
	if c, ok := gen.(interface{ Close() error }); ok {
		_ = c.Close()
	}
}

// outcome is how one search ended.
type outcome struct {
	Found    bool
	Result   generator.Result
	Elapsed  time.Duration
	Attempts uint64
}

// runOnce runs one search to its end.
func runOnce(parent context.Context, console *ui.Console, gen generator.Generator, cfg *generator.Config, output string) (outcome, error) {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	console.PrintSearchInfo(cfg, gen.Name())
	difficulty := cfg.Difficulty()

	resultChan, err := gen.Start(ctx, cfg)
	if err != nil {
		return outcome{}, err
	}

	startTime := time.Now()
	ticker := time.NewTicker(updateRate)
	defer ticker.Stop()
	frame := 0

	for {
		select {
		case result, ok := <-resultChan:
			console.ClearLine()
			out := outcome{Elapsed: time.Since(startTime), Attempts: gen.Stats().Attempts}
			if !ok {
				if err := gen.Err(); err != nil {
					return out, err
				}
				fmt.Fprintf(console.W, "\n    search ended without a match │ %s keys │ %s\n",
					ui.FormatNumber(out.Attempts), ui.FormatDuration(out.Elapsed))
				return out, nil
			}
			out.Found, out.Result = true, result
			saved := output
			if output != "" {
				if err := saveResult(output, result, out.Elapsed, out.Attempts); err != nil {
					console.PrintError(fmt.Errorf("save failed: %w", err))
					saved = ""
				}
			}
			console.PrintSuccess(result, out.Elapsed, out.Attempts, saved)
			return out, nil

		case <-ticker.C:
			console.PrintProgress(gen.Stats(), difficulty, frame)
			frame++

		case <-sigChan:
			cancel()
			console.ClearLine()
			out := outcome{Elapsed: time.Since(startTime), Attempts: gen.Stats().Attempts}
			fmt.Fprintf(console.W, "\n    cancelled │ %s keys │ %s\n",
				ui.FormatNumber(out.Attempts), ui.FormatDuration(out.Elapsed))
			// drain so the workers can exit
			for range resultChan {
			}
			return out, nil
		}
	}
}

// saveResult appends the result to path, creating it readable by the
// owner only.
func saveResult(path string, result generator.Result, elapsed time.Duration, attempts uint64) error {
	content := fmt.Sprintf(`%s Vanity Address
=======================

Address:     %s
Private Key: %s
Backend:     %s

Statistics:
  Time:     %s
  Attempts: %s

Generated: %s

`, result.Network, result.Address, result.PrivateKey, result.Backend,
		ui.FormatDuration(elapsed), ui.FormatNumber(attempts), time.Now().Format("2006-01-02 15:04:05"))

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	if _, err := f.WriteString(content); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
