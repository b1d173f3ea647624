// Package cpu searches networks whose addresses are matched as rendered
// text (Tron, the Bitcoin family, Solana). Workers derive and render
// batches of addresses and hand each batch to the kernel's batch matcher.
package cpu

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/btcsuite/btcd/btcec/v2"

	"github.com/Amr-9/omnivanity/internal/logging"
	"github.com/Amr-9/omnivanity/pkg/generator"
	"github.com/Amr-9/omnivanity/pkg/generator/bitcoin"
	"github.com/Amr-9/omnivanity/pkg/generator/solana"
	"github.com/Amr-9/omnivanity/pkg/generator/tron"
	"github.com/Amr-9/omnivanity/pkg/kernel"
	"github.com/Amr-9/omnivanity/pkg/kernel/keccak"
)

// CPUGenerator implements the Generator interface for text-rendered
// networks.
type CPUGenerator struct {
	attempts atomic.Uint64
	started  atomic.Int64 // unix nanoseconds
	workers  int
	matcher  kernel.Backend
	fallback kernel.Backend
	logger   *logging.Logger
	rand     io.Reader

	fallbackOnce sync.Once

	mu  sync.Mutex
	err error
}

// Option configures a CPUGenerator.
type Option func(*CPUGenerator)

// WithMatcher sets the backend that runs the batch matcher.
func WithMatcher(b kernel.Backend) Option {
	return func(g *CPUGenerator) { g.matcher = b }
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(g *CPUGenerator) { g.logger = l }
}

// WithRandom sets the source of worker seeds.
func WithRandom(r io.Reader) Option {
	return func(g *CPUGenerator) { g.rand = r }
}

// NewCPUGenerator creates a new CPU-based generator.
// If workers is 0, it defaults to the number of CPU cores.
func NewCPUGenerator(workers int, opts ...Option) *CPUGenerator {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	g := &CPUGenerator{
		workers: workers,
		logger:  logging.Nop(),
		rand:    rand.Reader,
	}
	for _, opt := range opts {
		opt(g)
	}
	// each worker already owns a core
	g.fallback = kernel.NewCPUBackend(kernel.WithWorkers(1))
	if g.matcher == nil {
		g.matcher = g.fallback
	}
	return g
}

// Name returns the implementation name.
func (g *CPUGenerator) Name() string {
	return "CPU"
}

// Stats returns the current performance statistics.
func (g *CPUGenerator) Stats() generator.Stats {
	attempts := g.attempts.Load()
	var elapsed float64
	if started := g.started.Load(); started != 0 {
		elapsed = time.Since(time.Unix(0, started)).Seconds()
	}

	var hashRate float64
	if elapsed > 0 {
		hashRate = float64(attempts) / elapsed
	}

	return generator.Stats{
		Attempts:    attempts,
		HashRate:    hashRate,
		ElapsedSecs: elapsed,
	}
}

// Err returns the error that ended the last search.
func (g *CPUGenerator) Err() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.err
}

func (g *CPUGenerator) setErr(err error) {
	g.mu.Lock()
	if g.err == nil {
		g.err = err
	}
	g.mu.Unlock()
}

// Start begins the vanity address search with the given configuration.
func (g *CPUGenerator) Start(ctx context.Context, config *generator.Config) (<-chan generator.Result, error) {
	cfg := generator.WithDefaults(config)
	layout := cfg.Layout()
	if layout.Hex {
		return nil, fmt.Errorf("%s addresses are hex rendered, use the kernel host", cfg.Network)
	}
	pattern, err := cfg.KernelPattern()
	if err != nil {
		return nil, err
	}
	render, err := renderer(cfg)
	if err != nil {
		return nil, err
	}

	workers := g.workers
	if cfg.Workers > 0 {
		workers = cfg.Workers
	}
	seeds, err := kernel.NewSeedVectors(g.rand, workers)
	if err != nil {
		return nil, err
	}

	g.attempts.Store(0)
	g.started.Store(time.Now().UnixNano())
	g.mu.Lock()
	g.err = nil
	g.mu.Unlock()

	resultChan := make(chan generator.Result, 1)
	done := make(chan struct{})
	var (
		closeOnce sync.Once
		wg        sync.WaitGroup
	)
	stop := func() { closeOnce.Do(func() { close(done) }) }

	for w := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := g.worker(ctx, cfg, layout, pattern, render, seeds[w], uint32(w), resultChan, done, stop); err != nil {
				g.setErr(err)
				stop()
			}
		}()
	}
	go func() {
		wg.Wait()
		close(resultChan)
	}()

	return resultChan, nil
}

// renderFunc derives the display address and exported key of a private
// scalar. It reports false for scalars that are not valid keys.
type renderFunc func(priv [32]byte) (address, secret string, ok bool)

func renderer(cfg *generator.Config) (renderFunc, error) {
	switch cfg.Network {
	case generator.Tron:
		deriver := kernel.NewDeriver(keccak.Lane64)
		return func(priv [32]byte) (string, string, bool) {
			raw, ok := deriver.AddressOf(priv, 20)
			if !ok {
				return "", "", false
			}
			return tron.Address(raw), hex.EncodeToString(priv[:]), true
		}, nil
	case generator.Bitcoin:
		addrType := cfg.AddressType
		return func(priv [32]byte) (string, string, bool) {
			sk, pk, ok := secp256k1Key(priv)
			if !ok {
				return "", "", false
			}
			addr, err := bitcoin.Address(pk, addrType)
			if err != nil {
				return "", "", false
			}
			return addr, bitcoin.WIF(sk), true
		}, nil
	case generator.Litecoin, generator.Dogecoin, generator.Zcash:
		chain, _ := bitcoin.ChainOf(cfg.Network)
		return func(priv [32]byte) (string, string, bool) {
			sk, pk, ok := secp256k1Key(priv)
			if !ok {
				return "", "", false
			}
			return chain.Address(pk), chain.WIF(sk), true
		}, nil
	case generator.Solana:
		return func(seed [32]byte) (string, string, bool) {
			addr, secret := solana.Address(seed)
			return addr, secret, true
		}, nil
	}
	return nil, fmt.Errorf("no text renderer for %s", cfg.Network)
}

func secp256k1Key(priv [32]byte) (*btcec.PrivateKey, *btcec.PublicKey, bool) {
	var k btcec.ModNScalar
	if overflow := k.SetBytes(&priv); overflow != 0 || k.IsZero() {
		return nil, nil, false
	}
	sk, pk := btcec.PrivKeyFromBytes(priv[:])
	return sk, pk, true
}

// batchSize bounds the addresses rendered and matched at once, whatever
// KeysPerLane is.
const batchSize = 256

// worker walks its own key stream (the mixer lane w), one round per
// iteration offset, and matches every round in batches of at most
// batchSize addresses.
func (g *CPUGenerator) worker(
	ctx context.Context,
	cfg *generator.Config,
	layout generator.Layout,
	pattern *kernel.PatternSpec,
	render renderFunc,
	seed kernel.SeedVector,
	lane uint32,
	resultChan chan<- generator.Result,
	done <-chan struct{},
	stop func(),
) error {
	n := min(batchSize, int(cfg.KeysPerLane))
	var (
		matcher    = g.matcher
		candidates = make([][]byte, n)
		addresses  = make([]string, n)
		secrets    = make([]string, n)
		start      = time.Now()
	)

	for round := uint64(0); ; round++ {
		base := kernel.LaneStart(seed, lane, round)
		for first := uint64(0); first < uint64(cfg.KeysPerLane); first += uint64(n) {
			select {
			case <-ctx.Done():
				return nil
			case <-done:
				return nil
			default:
			}
			if cfg.Limited(g.attempts.Load(), time.Since(start)) {
				stop()
				return nil
			}

			last := min(first+uint64(n), uint64(cfg.KeysPerLane))
			var k kernel.CandidateKey
			size := 0
			for i := first; i < last; i++ {
				k.Step(&base, uint32(i))
				addr, secret, ok := render(k.Bytes())
				if !ok {
					continue
				}
				addresses[size], secrets[size] = addr, secret
				candidates[size] = []byte(layout.SearchablePart(addr))
				size++
			}

			batch := &kernel.BatchDispatch{
				Addresses: candidates[:size],
				Pattern:   pattern,
				Result:    kernel.NewBatchResult(size),
			}
			err := matcher.MatchBatch(ctx, batch)
			if errors.Is(err, kernel.ErrRuntimeUnavailable) && matcher != g.fallback {
				g.fallbackOnce.Do(func() {
					g.logger.LogFallback(ctx, matcher.Name(), g.fallback.Name(), err)
				})
				matcher = g.fallback
				batch.Result = kernel.NewBatchResult(size)
				err = matcher.MatchBatch(ctx, batch)
			}
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("batch match: %w", err)
			}
			g.attempts.Add(uint64(size))

			hit, ok := batch.Result.First()
			if !ok {
				continue
			}
			result := generator.Result{
				Network:    cfg.Network,
				Address:    addresses[hit],
				PrivateKey: secrets[hit],
				Backend:    matcher.Name(),
			}
			g.logger.LogMatch(ctx, result.Address, lane, g.attempts.Load())

			select {
			case resultChan <- result:
				stop()
			default:
			}
			return nil
		}
	}
}

// Close releases the batch matcher.
func (g *CPUGenerator) Close() error {
	err := g.matcher.Close()
	if g.matcher != g.fallback {
		err = errors.Join(err, g.fallback.Close())
	}
	return err
}
