package cpu

import (
	"bytes"
	"context"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Amr-9/omnivanity/internal/logging"
	"github.com/Amr-9/omnivanity/pkg/generator"
	"github.com/Amr-9/omnivanity/pkg/generator/bitcoin"
	"github.com/Amr-9/omnivanity/pkg/generator/solana"
	"github.com/Amr-9/omnivanity/pkg/generator/tron"
	"github.com/Amr-9/omnivanity/pkg/kernel"
	"github.com/Amr-9/omnivanity/pkg/kernel/keccak"
)

type offlineMatcher struct{}

func (offlineMatcher) Name() string                                          { return "offline" }
func (offlineMatcher) Device() kernel.Device                                 { return kernel.Device{} }
func (offlineMatcher) Close() error                                          { return nil }
func (offlineMatcher) Search(context.Context, *kernel.Dispatch) error        { return kernel.ErrRuntimeUnavailable }
func (offlineMatcher) Benchmark(context.Context, *kernel.BenchDispatch) error { return kernel.ErrRuntimeUnavailable }
func (offlineMatcher) MatchBatch(context.Context, *kernel.BatchDispatch) error {
	return fmt.Errorf("offline: %w", kernel.ErrRuntimeUnavailable)
}

func search(t *testing.T, g *CPUGenerator, cfg *generator.Config) (generator.Result, bool) {
	t.Helper()
	ch, err := g.Start(context.Background(), cfg)
	require.NoError(t, err)
	select {
	case r, ok := <-ch:
		return r, ok
	case <-time.After(time.Minute):
		t.Fatal("search did not finish")
		return generator.Result{}, false
	}
}

func TestTronSuffix(t *testing.T) {
	g := NewCPUGenerator(2)
	res, ok := search(t, g, &generator.Config{
		Network: generator.Tron, Pattern: "a", Mode: kernel.MatchSuffix, KeysPerLane: 32,
	})
	require.True(t, ok)
	require.NoError(t, g.Err())
	assert.True(t, strings.HasSuffix(res.Address, "a"), res.Address)
	assert.Equal(t, byte('T'), res.Address[0])

	key, err := hex.DecodeString(res.PrivateKey)
	require.NoError(t, err)
	deriver := kernel.NewDeriver(keccak.Lane64)
	raw, ok := deriver.AddressOf([32]byte(key), 20)
	require.True(t, ok)
	assert.Equal(t, tron.Address(raw), res.Address)
}

func TestBitcoinLegacySuffix(t *testing.T) {
	g := NewCPUGenerator(2)
	res, ok := search(t, g, &generator.Config{
		Network: generator.Bitcoin, AddressType: generator.AddressTypeLegacy,
		Pattern: "z", Mode: kernel.MatchSuffix, KeysPerLane: 32,
	})
	require.True(t, ok)
	assert.True(t, strings.HasSuffix(res.Address, "z"), res.Address)

	version, payload, err := generator.DecodeBase58Check(res.PrivateKey)
	require.NoError(t, err)
	require.Equal(t, byte(0x80), version)
	require.Len(t, payload, 33)
	_, pub := btcec.PrivKeyFromBytes(payload[:32])
	addr, err := bitcoin.Address(pub, generator.AddressTypeLegacy)
	require.NoError(t, err)
	assert.Equal(t, addr, res.Address)
}

func TestTaprootCaseFolded(t *testing.T) {
	g := NewCPUGenerator(2)
	res, ok := search(t, g, &generator.Config{
		Network: generator.Bitcoin, Pattern: "Q", Mode: kernel.MatchSuffix, KeysPerLane: 32,
	})
	require.True(t, ok)
	assert.True(t, strings.HasPrefix(res.Address, "bc1p"))
	assert.True(t, strings.HasSuffix(res.Address, "q"), res.Address)
}

func TestLimitEndsSearch(t *testing.T) {
	g := NewCPUGenerator(2)
	_, ok := search(t, g, &generator.Config{
		Network: generator.Tron, Pattern: "zzzzzzzzzz", Mode: kernel.MatchSuffix,
		KeysPerLane: 16, MaxAttempts: 64,
	})
	assert.False(t, ok)
	assert.NoError(t, g.Err())
	assert.GreaterOrEqual(t, g.Stats().Attempts, uint64(64))
}

func TestMatcherFallback(t *testing.T) {
	var logs bytes.Buffer
	logger, err := logging.New(&logs, slog.LevelInfo, "text")
	require.NoError(t, err)

	g := NewCPUGenerator(2, WithMatcher(offlineMatcher{}), WithLogger(logger))
	res, ok := search(t, g, &generator.Config{
		Network: generator.Tron, Pattern: "b", Mode: kernel.MatchSuffix, KeysPerLane: 32,
	})
	require.True(t, ok)
	assert.NotEqual(t, "offline", res.Backend)
	assert.Equal(t, 1, strings.Count(logs.String(), "falling back"))
}

func TestRejectsHexNetworks(t *testing.T) {
	g := NewCPUGenerator(1)
	_, err := g.Start(context.Background(), &generator.Config{Network: generator.Ethereum, Pattern: "dead"})
	assert.Error(t, err)

	_, err = g.Start(context.Background(), &generator.Config{Network: generator.Tron, Pattern: "0OIl"})
	assert.ErrorIs(t, err, kernel.ErrInvalidPattern)
}

func TestBitcoinForksSuffix(t *testing.T) {
	for _, network := range []generator.Network{generator.Litecoin, generator.Dogecoin, generator.Zcash} {
		t.Run(network.String(), func(t *testing.T) {
			g := NewCPUGenerator(2)
			res, ok := search(t, g, &generator.Config{
				Network: network, Pattern: "x", Mode: kernel.MatchSuffix, KeysPerLane: 32,
			})
			require.True(t, ok)
			assert.True(t, strings.HasSuffix(res.Address, "x"), res.Address)
			assert.True(t, strings.HasPrefix(res.Address, network.Layout(generator.AddressTypeDefault).DisplayPrefix), res.Address)

			chain, ok := bitcoin.ChainOf(network)
			require.True(t, ok)
			version, payload, err := generator.DecodeBase58Check(res.PrivateKey)
			require.NoError(t, err)
			require.Equal(t, chain.Secret, version)
			_, pub := btcec.PrivKeyFromBytes(payload[:32])
			assert.Equal(t, chain.Address(pub), res.Address)
		})
	}
}

func TestSolanaContains(t *testing.T) {
	g := NewCPUGenerator(2)
	res, ok := search(t, g, &generator.Config{
		Network: generator.Solana, Pattern: "Z", Mode: kernel.MatchContains, KeysPerLane: 32,
	})
	require.True(t, ok)
	assert.Contains(t, res.Address, "Z")

	keypair, err := base58.Decode(res.PrivateKey)
	require.NoError(t, err)
	require.Len(t, keypair, 64)
	addr, _ := solana.Address([32]byte(keypair[:32]))
	assert.Equal(t, addr, res.Address)
}

// recordingMatcher records the size of every batch it matches.
type recordingMatcher struct {
	kernel.Backend
	mu    sync.Mutex
	sizes []int
}

func (m *recordingMatcher) MatchBatch(ctx context.Context, d *kernel.BatchDispatch) error {
	m.mu.Lock()
	m.sizes = append(m.sizes, len(d.Addresses))
	m.mu.Unlock()
	return m.Backend.MatchBatch(ctx, d)
}

func TestRoundsAreMatchedInBatches(t *testing.T) {
	m := &recordingMatcher{Backend: kernel.NewCPUBackend(kernel.WithWorkers(1))}
	g := NewCPUGenerator(1, WithMatcher(m))
	_, ok := search(t, g, &generator.Config{
		Network: generator.Tron, Pattern: "zzzzzzzzzz", Mode: kernel.MatchSuffix,
		KeysPerLane: 600, MaxAttempts: 600,
	})
	assert.False(t, ok)
	assert.Equal(t, []int{batchSize, batchSize, 600 - 2*batchSize}, m.sizes)
	assert.Equal(t, uint64(600), g.Stats().Attempts)
}

func TestLargeRoundStaysBounded(t *testing.T) {
	const (
		workers     = 2
		maxAttempts = 4096
	)
	g := NewCPUGenerator(workers)
	_, ok := search(t, g, &generator.Config{
		Network: generator.Tron, Pattern: "zzzzzzzzzz", Mode: kernel.MatchSuffix,
		KeysPerLane: 1 << 30, MaxAttempts: maxAttempts,
	})
	assert.False(t, ok)
	assert.NoError(t, g.Err())
	attempts := g.Stats().Attempts
	assert.GreaterOrEqual(t, attempts, uint64(maxAttempts))
	// each worker overshoots by at most one batch
	assert.LessOrEqual(t, attempts, uint64(maxAttempts+workers*batchSize))
}
