package ethereum

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Amr-9/omnivanity/pkg/kernel"
)

func TestBenchmark(t *testing.T) {
	b := kernel.NewCPUBackend(kernel.WithWorkers(2))

	rep, err := Benchmark(context.Background(), b, BenchConfig{Lanes: 8, KeysPerLane: 16, Rounds: 2})
	require.NoError(t, err)
	assert.Equal(t, uint64(2*8*16), rep.Keys)
	assert.Equal(t, "keccak", rep.Pipeline)
	assert.Equal(t, b.Name(), rep.Backend)

	rep, err = Benchmark(context.Background(), b, BenchConfig{Lanes: 8, KeysPerLane: 4, Rounds: 2, FullPipeline: true})
	require.NoError(t, err)
	assert.Equal(t, uint64(2*8*4), rep.Keys)
	assert.Equal(t, "full", rep.Pipeline)
}

func TestBenchmarkReportsBackendErrors(t *testing.T) {
	_, err := Benchmark(context.Background(), &offlineBackend{}, BenchConfig{Lanes: 8, KeysPerLane: 4})
	assert.ErrorIs(t, err, kernel.ErrRuntimeUnavailable)
}

func TestSelfCheck(t *testing.T) {
	results, passed := SelfCheck(context.Background(), kernel.NewCPUBackend(), 4)
	device := 0
	for _, r := range results {
		assert.True(t, r.Match, "%s: got %s want %s %s", r.Name, r.Got, r.Want, r.ErrorMsg)
		if strings.HasPrefix(r.Name, "device keccak") {
			device++
		}
	}
	assert.True(t, passed)
	assert.Equal(t, 4, device)

	_, passed = SelfCheck(context.Background(), &offlineBackend{}, 2)
	assert.True(t, passed, "unavailable backends are skipped")
}

// flippedDigests is a CPU backend whose device digests have one bit wrong.
type flippedDigests struct {
	*kernel.CPUBackend
}

func (b flippedDigests) Digest(ctx context.Context, blocks [][kernel.PublicKeySize]byte) ([][32]byte, error) {
	out, err := b.CPUBackend.Digest(ctx, blocks)
	if err == nil && len(out) > 0 {
		out[len(out)-1][0] ^= 1
	}
	return out, err
}

func TestSelfCheckComparesDeviceDigests(t *testing.T) {
	results, passed := SelfCheck(context.Background(), flippedDigests{kernel.NewCPUBackend()}, 3)
	assert.False(t, passed)

	var failed []string
	for _, r := range results {
		if !r.Match {
			failed = append(failed, r.Name)
		}
	}
	assert.Equal(t, []string{"device keccak on " + kernel.NewCPUBackend().Name()}, failed)
}
