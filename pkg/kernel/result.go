package kernel

import (
	"math"
	"sync/atomic"
)

// MaxAddressLen bounds the address bytes a lane slot or batch candidate holds.
const MaxAddressLen = 64

// laneSlot is written only by the lane that owns it.
type laneSlot struct {
	key     [32]byte
	addr    [MaxAddressLen]byte
	addrLen int
}

// MatchResult is what the host reads back after a dispatch.
type MatchResult struct {
	Found   bool
	Lane    uint32
	Key     [32]byte
	Address []byte
}

// ResultBuffer is the only mutable state shared by the lanes of a dispatch.
// It is allocated by the host for exactly one dispatch.
//
// A matching lane first fills its own slot and then tries to claim the
// buffer with a single compare-and-swap of the winner word from 0 to
// lane+1. Losing lanes leave the winner untouched. The host reads the
// winner's slot once the dispatch has completed.
type ResultBuffer struct {
	winner atomic.Uint32
	slots  []laneSlot
}

// NewResultBuffer allocates a buffer for a dispatch of the given lane count.
func NewResultBuffer(lanes int) *ResultBuffer {
	return &ResultBuffer{slots: make([]laneSlot, lanes)}
}

// Lanes returns the number of lane slots.
func (r *ResultBuffer) Lanes() int { return len(r.slots) }

// Found reports whether some lane has claimed the buffer.
func (r *ResultBuffer) Found() bool { return r.winner.Load() != 0 }

// Publish records a match for lane. It reports whether this lane won the
// claim. addr longer than MaxAddressLen is truncated.
func (r *ResultBuffer) Publish(lane uint32, key *[32]byte, addr []byte) bool {
	slot := &r.slots[lane]
	slot.key = *key
	slot.addrLen = copy(slot.addr[:], addr)
	return r.winner.CompareAndSwap(0, lane+1)
}

// Result returns the winning lane's payload. It must only be called after
// every lane of the dispatch has finished.
func (r *ResultBuffer) Result() MatchResult {
	w := r.winner.Load()
	if w == 0 {
		return MatchResult{}
	}
	slot := &r.slots[w-1]
	addr := make([]byte, slot.addrLen)
	copy(addr, slot.addr[:slot.addrLen])
	return MatchResult{
		Found:   true,
		Lane:    w - 1,
		Key:     slot.key,
		Address: addr,
	}
}

// Counter accumulates benchmark throughput. It is allocated per dispatch.
type Counter struct {
	keys atomic.Uint64
	sink atomic.Uint64
}

// Keys returns the number of keys processed.
func (c *Counter) Keys() uint64 { return c.keys.Load() }

// BatchResult holds the outputs of a batch match: one flag per candidate and
// the lowest matching index.
type BatchResult struct {
	Flags []uint32
	first atomic.Uint32
}

// NewBatchResult allocates a result for n candidates.
func NewBatchResult(n int) *BatchResult {
	r := &BatchResult{Flags: make([]uint32, n)}
	r.first.Store(math.MaxUint32)
	return r
}

// First returns the lowest index whose candidate matched.
func (r *BatchResult) First() (int, bool) {
	v := r.first.Load()
	if v == math.MaxUint32 {
		return 0, false
	}
	return int(v), true
}

// Matches returns the indices of every matching candidate in order.
func (r *BatchResult) Matches() []int {
	var out []int
	for i, f := range r.Flags {
		if f != 0 {
			out = append(out, i)
		}
	}
	return out
}

// atomicMin lowers *a to v unless it already holds something smaller. Each
// attempt is one compare-and-swap; a failed attempt reloads and retries.
func atomicMin(a *atomic.Uint32, v uint32) {
	for {
		cur := a.Load()
		if v >= cur || a.CompareAndSwap(cur, v) {
			return
		}
	}
}
