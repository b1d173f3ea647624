package kernel

import (
	"context"
	"fmt"
	"strings"

	"github.com/Amr-9/omnivanity/pkg/kernel/keccak"
)

// Backend executes the lane programs of a Pipeline. Backends are thin
// dispatch shells: the search, benchmark and batch semantics live in
// Pipeline and are identical everywhere.
//
// A dispatch cannot be interrupted once launched. ctx is only consulted
// before launch; hosts cancel by not issuing the next dispatch.
type Backend interface {
	// Name returns the backend name (e.g. "cpu64", "opencl").
	Name() string

	// Device describes the hardware the backend runs on.
	Device() Device

	// Search runs one search dispatch. A dispatch that finds nothing is not
	// an error.
	Search(ctx context.Context, d *Dispatch) error

	// Benchmark runs one benchmark dispatch.
	Benchmark(ctx context.Context, d *BenchDispatch) error

	// MatchBatch matches a pattern against a batch of addresses.
	MatchBatch(ctx context.Context, d *BatchDispatch) error

	// Close releases device resources.
	Close() error
}

// Digester is implemented by backends that can run the Keccak-256 stage on
// its own. Self-checks use it to compare device digests with a reference
// implementation.
type Digester interface {
	// Digest hashes every public-key block and returns the digests in order.
	Digest(ctx context.Context, blocks [][PublicKeySize]byte) ([][keccak.Size]byte, error)
}

// Device describes a compute device.
type Device struct {
	Name         string
	Vendor       string
	ComputeUnits int
	GlobalMem    uint64
	Native64     bool     // native 64-bit integer arithmetic
	Features     []string // notable instruction-set features
}

// Kind names a backend implementation.
type Kind string

const (
	KindAuto   Kind = "auto"
	KindOpenCL Kind = "opencl"
	KindCPU64  Kind = "cpu64"
	KindCPU32  Kind = "cpu32"
)

// ParseKind parses a backend name.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(s)); k {
	case KindAuto, KindOpenCL, KindCPU64, KindCPU32:
		return k, nil
	}
	return "", configError("backend", ErrInvalidDispatch, "unknown backend %q", s)
}

// Open opens a backend of the given kind. KindAuto prefers OpenCL and
// returns the error that made it unavailable alongside the CPU backend.
// Callers typically log that error once and continue.
func Open(kind Kind, opts ...CPUOption) (Backend, error) {
	switch kind {
	case KindOpenCL:
		gpu, err := NewOpenCLBackend()
		if err != nil {
			return nil, err
		}
		return gpu, nil
	case KindCPU64:
		return NewCPUBackend(append([]CPUOption{WithEncoding(Lane64Encoding)}, opts...)...), nil
	case KindCPU32:
		return NewCPUBackend(append([]CPUOption{WithEncoding(Lane32Encoding)}, opts...)...), nil
	case KindAuto:
		gpu, err := NewOpenCLBackend()
		if err == nil {
			return gpu, nil
		}
		return NewCPUBackend(opts...), err
	}
	return nil, fmt.Errorf("%w: unknown backend %q", ErrInvalidDispatch, kind)
}
