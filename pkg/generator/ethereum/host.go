// Package ethereum hosts searches for keccak-address networks whose
// addresses are rendered as hex (Ethereum, XDC). The search runs as a
// sequence of kernel dispatches; every winner is re-derived with
// go-ethereum before it is reported.
package ethereum

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"golang.org/x/time/rate"

	"github.com/Amr-9/omnivanity/internal/logging"
	"github.com/Amr-9/omnivanity/pkg/generator"
	"github.com/Amr-9/omnivanity/pkg/kernel"
)

// ErrVerify is returned when a kernel winner does not re-derive to the
// reported address.
var ErrVerify = errors.New("winner failed verification")

// progressInterval throttles per-dispatch debug logging.
const progressInterval = 5 * time.Second

// Host implements generator.Generator on top of a kernel backend.
type Host struct {
	backend  kernel.Backend
	fallback kernel.Backend
	logger   *logging.Logger
	rand     io.Reader

	fallbackOnce sync.Once

	attempts atomic.Uint64
	started  atomic.Int64 // unix nanoseconds

	mu  sync.Mutex
	err error
}

// Option configures a Host.
type Option func(*Host)

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(h *Host) { h.logger = l }
}

// WithRandom sets the source of dispatch seeds.
func WithRandom(r io.Reader) Option {
	return func(h *Host) { h.rand = r }
}

// WithBackend uses b instead of opening one.
func WithBackend(b kernel.Backend) Option {
	return func(h *Host) { h.backend = b }
}

// WithFallback sets the backend used when the primary one is unavailable.
func WithFallback(b kernel.Backend) Option {
	return func(h *Host) { h.fallback = b }
}

// New creates a Host for the given backend kind. A backend that cannot be
// opened is logged once and replaced by the CPU backend, so New never fails.
func New(kind kernel.Kind, cpuOpts []kernel.CPUOption, opts ...Option) *Host {
	h := &Host{logger: logging.Nop(), rand: rand.Reader}
	for _, opt := range opts {
		opt(h)
	}
	if h.fallback == nil {
		h.fallback = kernel.NewCPUBackend(cpuOpts...)
	}
	if h.backend == nil {
		b, err := kernel.Open(kind, cpuOpts...)
		switch {
		case err != nil && b != nil:
			h.warnFallback(context.Background(), string(kind), b.Name(), err)
			h.backend = b
		case err != nil:
			h.warnFallback(context.Background(), string(kind), h.fallback.Name(), err)
			h.backend = h.fallback
		default:
			h.backend = b
		}
	}
	return h
}

func (h *Host) warnFallback(ctx context.Context, from, to string, err error) {
	h.fallbackOnce.Do(func() {
		h.logger.LogFallback(ctx, from, to, err)
	})
}

// Name returns the backend in use.
func (h *Host) Name() string { return h.backend.Name() }

// Backend returns the primary backend.
func (h *Host) Backend() kernel.Backend { return h.backend }

// Stats returns the current performance statistics.
func (h *Host) Stats() generator.Stats {
	attempts := h.attempts.Load()
	var elapsed float64
	if started := h.started.Load(); started != 0 {
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
func (h *Host) Err() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.err
}

func (h *Host) setErr(err error) {
	h.mu.Lock()
	h.err = err
	h.mu.Unlock()
}

// Start validates config, draws fresh seeds and starts the dispatch loop.
func (h *Host) Start(ctx context.Context, config *generator.Config) (<-chan generator.Result, error) {
	cfg := generator.WithDefaults(config)
	if !cfg.Layout().Hex {
		return nil, fmt.Errorf("%s addresses are not hex rendered", cfg.Network)
	}
	pattern, err := cfg.KernelPattern()
	if err != nil {
		return nil, err
	}
	seeds, err := kernel.NewSeedVectors(h.rand, cfg.Lanes)
	if err != nil {
		return nil, err
	}

	h.attempts.Store(0)
	h.started.Store(time.Now().UnixNano())
	h.setErr(nil)

	resultChan := make(chan generator.Result, 1)
	go h.run(ctx, resultChan, cfg, pattern, seeds)
	return resultChan, nil
}

func (h *Host) run(ctx context.Context, resultChan chan<- generator.Result, cfg *generator.Config, pattern *kernel.PatternSpec, seeds []kernel.SeedVector) {
	defer close(resultChan)

	var (
		backend     = h.backend
		progress    = rate.Sometimes{Interval: progressInterval}
		perDispatch = uint64(len(seeds)) * uint64(cfg.KeysPerLane)
		start       = time.Now()
		log         = h.logger.WithNetwork(cfg.Network.String())
	)

	for offset := uint64(0); ; offset++ {
		if ctx.Err() != nil {
			return
		}
		if cfg.Limited(h.attempts.Load(), time.Since(start)) {
			log.InfoContext(ctx, "search limit reached", "attempts", h.attempts.Load())
			return
		}

		d := &kernel.Dispatch{
			Seeds:      seeds,
			Params:     kernel.SearchParams{IterationOffset: offset, KeysPerLane: cfg.KeysPerLane},
			Pattern:    pattern,
			AddressLen: common.AddressLength,
			Result:     kernel.NewResultBuffer(len(seeds)),
		}
		began := time.Now()
		err := backend.Search(ctx, d)
		if errors.Is(err, kernel.ErrRuntimeUnavailable) && backend != h.fallback {
			h.warnFallback(ctx, backend.Name(), h.fallback.Name(), err)
			backend = h.fallback
			d.Result = kernel.NewResultBuffer(len(seeds))
			err = backend.Search(ctx, d)
		}
		if err != nil {
			if ctx.Err() == nil {
				h.setErr(err)
				log.ErrorContext(ctx, "dispatch failed", "offset", offset, "error", err)
			}
			return
		}

		h.attempts.Add(perDispatch)
		progress.Do(func() {
			log.WithBackend(backend.Name()).LogDispatch(ctx, offset, h.attempts.Load(), time.Since(began))
		})

		res := d.Result.Result()
		if !res.Found {
			continue
		}
		result, err := verify(cfg.Network, res)
		if err != nil {
			h.setErr(err)
			log.ErrorContext(ctx, "winner rejected", "lane", res.Lane, "error", err)
			return
		}
		result.Backend = backend.Name()
		log.LogMatch(ctx, result.Address, res.Lane, h.attempts.Load())

		select {
		case resultChan <- result:
		case <-ctx.Done():
		}
		return
	}
}

// verify re-derives the winner with go-ethereum and renders it.
func verify(n generator.Network, res kernel.MatchResult) (generator.Result, error) {
	priv, err := crypto.ToECDSA(res.Key[:])
	if err != nil {
		return generator.Result{}, fmt.Errorf("%w: %w", ErrVerify, err)
	}
	addr := crypto.PubkeyToAddress(priv.PublicKey)
	if !bytes.Equal(addr.Bytes(), res.Address) {
		return generator.Result{}, fmt.Errorf("%w: kernel address %x, derived %x", ErrVerify, res.Address, addr.Bytes())
	}
	return generator.Result{
		Network:    n,
		Address:    Display(n, addr),
		PrivateKey: hex.EncodeToString(crypto.FromECDSA(priv)),
	}, nil
}

// Display renders addr for n: EIP-55 checksummed hex, with the xdc prefix
// in place of 0x on XDC.
func Display(n generator.Network, addr common.Address) string {
	if n == generator.XDC {
		return "xdc" + addr.Hex()[2:]
	}
	return addr.Hex()
}

// Close releases the backends.
func (h *Host) Close() error {
	err := h.backend.Close()
	if h.fallback != h.backend {
		err = errors.Join(err, h.fallback.Close())
	}
	return err
}
