package main

import (
	"github.com/spf13/cobra"

	"github.com/Amr-9/omnivanity/internal/ui"
	"github.com/Amr-9/omnivanity/pkg/kernel"
)

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List the compute backends and their capabilities",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		var (
			backends []kernel.Backend
			failures = make(map[kernel.Kind]error)
		)
		for _, kind := range []kernel.Kind{kernel.KindOpenCL, kernel.KindCPU64, kernel.KindCPU32} {
			b, err := kernel.Open(kind)
			if err != nil {
				failures[kind] = err
				continue
			}
			defer b.Close()
			backends = append(backends, b)
		}
		ui.Stdout.PrintDevices(backends, failures)
		return nil
	},
}
