package kernel

import (
	"fmt"
	"math"

	"github.com/Amr-9/omnivanity/pkg/kernel/keccak"
)

// SearchParams are the read-only scalars of a dispatch.
type SearchParams struct {
	// IterationOffset distinguishes successive dispatches that reuse the
	// same seeds. Hosts use the dispatch sequence number.
	IterationOffset uint64
	// KeysPerLane is the number of keys every lane tests.
	KeysPerLane uint32
}

// Dispatch describes one search launch across len(Seeds) lanes.
type Dispatch struct {
	Seeds      []SeedVector
	Params     SearchParams
	Pattern    *PatternSpec
	AddressLen int           // trailing digest bytes that form the address
	Result     *ResultBuffer // host-allocated, one per dispatch
}

// Lanes returns the number of lanes of the dispatch.
func (d *Dispatch) Lanes() int { return len(d.Seeds) }

// Validate checks the dispatch before launch.
func (d *Dispatch) Validate() error {
	if err := validateLaunch(len(d.Seeds), d.Params); err != nil {
		return err
	}
	if d.Pattern == nil {
		return fmt.Errorf("%w: nil pattern", ErrInvalidDispatch)
	}
	if d.Pattern.Mode > MatchContains {
		return configError("mode", ErrInvalidMode, "%d", uint32(d.Pattern.Mode))
	}
	if d.Pattern.Len > MaxPatternLen {
		return configError("pattern", ErrPatternTooLong, "%d units, max %d", d.Pattern.Len, MaxPatternLen)
	}
	if d.AddressLen <= 0 || d.AddressLen > keccak.Size {
		return fmt.Errorf("%w: address length %d outside 1..%d", ErrInvalidDispatch, d.AddressLen, keccak.Size)
	}
	if d.Result == nil || d.Result.Lanes() < len(d.Seeds) {
		return fmt.Errorf("%w: result buffer does not cover %d lanes", ErrInvalidDispatch, len(d.Seeds))
	}
	return nil
}

// BenchDispatch describes one benchmark launch. Benchmarks never match and
// never write a MatchResult.
type BenchDispatch struct {
	Seeds  []SeedVector
	Params SearchParams
	// FullPipeline includes the public-key step and address extraction.
	// Without it the lane hashes the mixed key material directly.
	FullPipeline bool
	AddressLen   int
	Counter      *Counter
}

// Validate checks the benchmark dispatch before launch.
func (d *BenchDispatch) Validate() error {
	if err := validateLaunch(len(d.Seeds), d.Params); err != nil {
		return err
	}
	if d.FullPipeline && (d.AddressLen <= 0 || d.AddressLen > keccak.Size) {
		return fmt.Errorf("%w: address length %d outside 1..%d", ErrInvalidDispatch, d.AddressLen, keccak.Size)
	}
	if d.Counter == nil {
		return fmt.Errorf("%w: nil counter", ErrInvalidDispatch)
	}
	return nil
}

// BatchDispatch matches a pattern against externally produced addresses,
// one candidate per lane.
type BatchDispatch struct {
	Addresses [][]byte
	Pattern   *PatternSpec
	Result    *BatchResult
}

// Validate checks the batch dispatch before launch.
func (d *BatchDispatch) Validate() error {
	if d.Pattern == nil {
		return fmt.Errorf("%w: nil pattern", ErrInvalidDispatch)
	}
	if d.Pattern.Mode > MatchContains {
		return configError("mode", ErrInvalidMode, "%d", uint32(d.Pattern.Mode))
	}
	if len(d.Addresses) >= math.MaxUint32 {
		return fmt.Errorf("%w: %d candidates", ErrInvalidDispatch, len(d.Addresses))
	}
	if d.Result == nil || len(d.Result.Flags) < len(d.Addresses) {
		return fmt.Errorf("%w: batch result does not cover %d candidates", ErrInvalidDispatch, len(d.Addresses))
	}
	for i, a := range d.Addresses {
		if len(a) > MaxAddressLen {
			return fmt.Errorf("%w: candidate %d is %d bytes, max %d", ErrInvalidDispatch, i, len(a), MaxAddressLen)
		}
	}
	return nil
}

func validateLaunch(lanes int, p SearchParams) error {
	if lanes == 0 {
		return fmt.Errorf("%w: no lanes", ErrInvalidDispatch)
	}
	if uint64(lanes) >= math.MaxUint32 {
		return fmt.Errorf("%w: %d lanes", ErrInvalidDispatch, lanes)
	}
	if p.KeysPerLane == 0 {
		return fmt.Errorf("%w: zero keys per lane", ErrInvalidDispatch)
	}
	return nil
}

// Pipeline is the lane program shared by every backend: mixer, public key,
// permutation and, for searches, the matcher and the result claim.
type Pipeline struct {
	Deriver Deriver
}

// NewPipeline returns a secp256k1 pipeline with the given encoding.
func NewPipeline(enc keccak.Encoding) *Pipeline {
	return &Pipeline{Deriver: NewDeriver(enc)}
}

// SearchLane runs the search program of one lane. A matching lane publishes
// and stops; otherwise it tests all KeysPerLane keys. A rejected key moves
// the lane past it, so every key of the lane is tested at most once.
func (p *Pipeline) SearchLane(d *Dispatch, lane uint32) {
	start := LaneStart(d.Seeds[lane], lane, d.Params.IterationOffset)

	var (
		k    CandidateKey
		buf  [keccak.Size]byte
		addr = buf[:d.AddressLen]
	)
	for i := uint32(0); i < d.Params.KeysPerLane; i++ {
		k.Step(&start, i)
		i += p.Deriver.Derive(&k, addr)
		if d.Pattern.Match(addr) {
			key := k.Bytes()
			d.Result.Publish(lane, &key, addr)
			return
		}
	}
}

// BenchmarkLane runs the benchmark program of one lane: the same key stream
// and permutation, no matching, no early exit. The lane adds its key count
// to the shared counter once it is done.
func (p *Pipeline) BenchmarkLane(d *BenchDispatch, lane uint32) {
	start := LaneStart(d.Seeds[lane], lane, d.Params.IterationOffset)

	var (
		k      CandidateKey
		digest [keccak.Size]byte
		block  [PublicKeySize]byte
	)
	for i := uint32(0); i < d.Params.KeysPerLane; i++ {
		k.Step(&start, i)
		if d.FullPipeline {
			i += p.Deriver.Derive(&k, digest[:d.AddressLen])
		} else {
			key := k.Bytes()
			copy(block[:], key[:])
			p.Deriver.Hash(&block, digest[:])
		}
		// keeps the hash observable
		if digest[0] == byte(lane) && digest[1] == 0xa5 && digest[2] == 0x5a {
			d.Counter.sink.Add(1)
		}
	}
	d.Counter.keys.Add(uint64(d.Params.KeysPerLane))
}

// MatchLane runs the batch-match program for candidate i.
func MatchLane(d *BatchDispatch, i int) {
	if d.Pattern.Match(d.Addresses[i]) {
		d.Result.Flags[i] = 1
		atomicMin(&d.Result.first, uint32(i))
	}
}
