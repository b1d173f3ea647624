package kernel

import (
	"context"
	"math/bits"
	"runtime"

	"github.com/klauspost/cpuid/v2"
	"golang.org/x/sync/errgroup"

	"github.com/Amr-9/omnivanity/pkg/kernel/keccak"
)

// Encodings re-exported for backend options.
const (
	Lane64Encoding = keccak.Lane64
	Lane32Encoding = keccak.Lane32
)

// DefaultWorkgroupSize is the number of lanes a CPU worker runs back to back.
const DefaultWorkgroupSize = 64

// CPUBackend runs lanes on goroutines. Lanes are grouped into workgroups
// and at most Workers workgroups run at once.
type CPUBackend struct {
	pipeline      *Pipeline
	workers       int
	workgroupSize int
}

// CPUOption configures a CPUBackend.
type CPUOption func(*CPUBackend)

// WithEncoding selects the permutation encoding.
func WithEncoding(enc keccak.Encoding) CPUOption {
	return func(b *CPUBackend) { b.pipeline.Deriver.Encoding = enc }
}

// WithPublicKey replaces the public-key step.
func WithPublicKey(fn PublicKeyFunc) CPUOption {
	return func(b *CPUBackend) {
		if fn != nil {
			b.pipeline.Deriver.PublicKey = fn
		}
	}
}

// WithWorkers sets the number of concurrent workers (0 = GOMAXPROCS).
func WithWorkers(n int) CPUOption {
	return func(b *CPUBackend) {
		if n > 0 {
			b.workers = n
		}
	}
}

// WithWorkgroupSize sets the number of lanes per workgroup.
func WithWorkgroupSize(n int) CPUOption {
	return func(b *CPUBackend) {
		if n > 0 {
			b.workgroupSize = n
		}
	}
}

// NewCPUBackend creates a CPU backend. The default encoding follows the
// platform word size.
func NewCPUBackend(opts ...CPUOption) *CPUBackend {
	enc := keccak.Lane64
	if bits.UintSize < 64 {
		enc = keccak.Lane32
	}
	b := &CPUBackend{
		pipeline:      NewPipeline(enc),
		workers:       runtime.GOMAXPROCS(0),
		workgroupSize: DefaultWorkgroupSize,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Name returns "cpu64" or "cpu32".
func (b *CPUBackend) Name() string {
	if b.pipeline.Deriver.Encoding == keccak.Lane32 {
		return string(KindCPU32)
	}
	return string(KindCPU64)
}

// Encoding returns the permutation encoding in use.
func (b *CPUBackend) Encoding() keccak.Encoding { return b.pipeline.Deriver.Encoding }

// Pipeline returns the lane program the backend runs.
func (b *CPUBackend) Pipeline() *Pipeline { return b.pipeline }

// Device describes the host CPU.
func (b *CPUBackend) Device() Device {
	name := cpuid.CPU.BrandName
	if name == "" {
		name = runtime.GOARCH
	}
	return Device{
		Name:         name,
		Vendor:       cpuid.CPU.VendorString,
		ComputeUnits: max(cpuid.CPU.LogicalCores, runtime.NumCPU()),
		Native64:     bits.UintSize == 64,
		Features:     cpuid.CPU.FeatureSet(),
	}
}

// Search runs a search dispatch.
func (b *CPUBackend) Search(ctx context.Context, d *Dispatch) error {
	if err := d.Validate(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return b.launch(len(d.Seeds), func(lane int) {
		b.pipeline.SearchLane(d, uint32(lane))
	})
}

// Benchmark runs a benchmark dispatch.
func (b *CPUBackend) Benchmark(ctx context.Context, d *BenchDispatch) error {
	if err := d.Validate(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return b.launch(len(d.Seeds), func(lane int) {
		b.pipeline.BenchmarkLane(d, uint32(lane))
	})
}

// MatchBatch runs a batch match.
func (b *CPUBackend) MatchBatch(ctx context.Context, d *BatchDispatch) error {
	if err := d.Validate(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(d.Addresses) == 0 {
		return nil
	}
	return b.launch(len(d.Addresses), func(i int) {
		MatchLane(d, i)
	})
}

// Digest hashes blocks with the backend's permutation encoding.
func (b *CPUBackend) Digest(ctx context.Context, blocks [][PublicKeySize]byte) ([][keccak.Size]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([][keccak.Size]byte, len(blocks))
	if len(blocks) == 0 {
		return out, nil
	}
	enc := b.pipeline.Deriver.Encoding
	err := b.launch(len(blocks), func(i int) {
		out[i] = keccak.Sum256(enc, blocks[i][:])
	})
	return out, err
}

// Close is a no-op.
func (b *CPUBackend) Close() error { return nil }

// launch runs program for every lane and returns when all lanes are done.
func (b *CPUBackend) launch(lanes int, program func(lane int)) error {
	var g errgroup.Group
	g.SetLimit(b.workers)
	for first := 0; first < lanes; first += b.workgroupSize {
		last := min(first+b.workgroupSize, lanes)
		g.Go(func() error {
			for lane := first; lane < last; lane++ {
				program(lane)
			}
			return nil
		})
	}
	return g.Wait()
}
