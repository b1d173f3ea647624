//go:build !opencl

package kernel

import (
	"context"
	"errors"

	"github.com/Amr-9/omnivanity/pkg/kernel/keccak"
)

var errNotCompiled = errors.New("built without OpenCL support, rebuild with -tags opencl")

// OpenCLBackend is a placeholder for builds without the opencl tag.
type OpenCLBackend struct{}

// NewOpenCLBackend always reports ErrRuntimeUnavailable.
func NewOpenCLBackend() (*OpenCLBackend, error) {
	return nil, unavailable("opencl", errNotCompiled)
}

func (b *OpenCLBackend) Name() string   { return string(KindOpenCL) }
func (b *OpenCLBackend) Device() Device { return Device{} }

func (b *OpenCLBackend) Search(context.Context, *Dispatch) error {
	return unavailable("opencl", errNotCompiled)
}

func (b *OpenCLBackend) Benchmark(context.Context, *BenchDispatch) error {
	return unavailable("opencl", errNotCompiled)
}

func (b *OpenCLBackend) MatchBatch(context.Context, *BatchDispatch) error {
	return unavailable("opencl", errNotCompiled)
}

func (b *OpenCLBackend) Digest(context.Context, [][PublicKeySize]byte) ([][keccak.Size]byte, error) {
	return nil, unavailable("opencl", errNotCompiled)
}

func (b *OpenCLBackend) Close() error { return nil }
