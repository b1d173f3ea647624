package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/Amr-9/omnivanity/internal/ui"
	"github.com/Amr-9/omnivanity/pkg/generator/ethereum"
	"github.com/Amr-9/omnivanity/pkg/kernel"
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check digests and derived addresses against reference implementations",
	RunE:  runVerify,
}

func init() {
	verifyCmd.Flags().Int("samples", 8, "Random inputs per check")
}

func runVerify(cmd *cobra.Command, _ []string) error {
	_, logger, err := loadConfig()
	if err != nil {
		return err
	}
	samples, _ := cmd.Flags().GetInt("samples")

	passed := true
	for _, kind := range []kernel.Kind{kernel.KindCPU64, kernel.KindCPU32, kernel.KindOpenCL} {
		b, err := kernel.Open(kind)
		if err != nil {
			logger.Info("backend not checked", "backend", kind, "error", err)
			continue
		}
		checks, ok := ethereum.SelfCheck(cmd.Context(), b, samples)
		b.Close()
		if !ui.Stdout.PrintChecks(b.Name(), checks) || !ok {
			passed = false
		}
	}
	if !passed {
		return errors.New("self-check failed")
	}
	return nil
}
