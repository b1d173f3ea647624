package kernel

import (
	"encoding/binary"
	"fmt"
	"io"
)

// KeyLimbs is the number of 32-bit limbs in a candidate key.
const KeyLimbs = 8

const (
	// counterLimb advances once per local iteration. Its overflow is not
	// carried, so a lane reaches at most 2^32 consecutive keys per dispatch.
	counterLimb = 0
	// laneLimb carries the lane id xored into a value that all seeds of a
	// dispatch share.
	laneLimb = KeyLimbs - 1

	// offsetScale is odd, so multiplying by it permutes uint32 values.
	offsetScale = 0x9E3779B1
)

// SeedVector is the per-lane random seed of a dispatch. Limbs are little
// endian: limb 0 is the least significant 32 bits.
type SeedVector [KeyLimbs]uint32

// CandidateKey is a 256-bit private scalar as little-endian 32-bit limbs.
type CandidateKey [KeyLimbs]uint32

// Bytes returns the key as a 32-byte big-endian scalar.
func (k *CandidateKey) Bytes() (b [32]byte) {
	for i := 0; i < KeyLimbs; i++ {
		binary.BigEndian.PutUint32(b[4*(KeyLimbs-1-i):], k[i])
	}
	return b
}

// KeyFromBytes parses a 32-byte big-endian scalar.
func KeyFromBytes(b [32]byte) (k CandidateKey) {
	for i := 0; i < KeyLimbs; i++ {
		k[i] = binary.BigEndian.Uint32(b[4*(KeyLimbs-1-i):])
	}
	return k
}

// String returns the key as 64 lowercase hex characters.
func (k CandidateKey) String() string {
	b := k.Bytes()
	return fmt.Sprintf("%x", b[:])
}

// LaneStart folds the lane id and the dispatch iteration offset into the
// lane's seed. The result is the key a lane tests at local index 0.
//
// The offset is added into limbs 1 and 2 after scaling by an odd constant, so
// distinct offsets never map to the same pair of limbs. The lane id is xored
// into the top limb. Seeds from NewSeedVectors share that limb, so the top
// limbs of two lanes always differ.
func LaneStart(seed SeedVector, lane uint32, offset uint64) CandidateKey {
	k := CandidateKey(seed)
	k[1] += uint32(offset) * offsetScale
	k[2] += uint32(offset>>32) * offsetScale
	k[laneLimb] ^= lane
	return k
}

// Step sets k to the key at local index i of a lane that starts at start.
func (k *CandidateKey) Step(start *CandidateKey, i uint32) {
	*k = *start
	k[counterLimb] += i
}

// KeyAt returns the key at local index i of lane for the given dispatch.
func KeyAt(seed SeedVector, lane uint32, offset uint64, i uint32) CandidateKey {
	start := LaneStart(seed, lane, offset)
	var k CandidateKey
	k.Step(&start, i)
	return k
}

// NewSeedVectors reads one random seed per lane from r. Limbs below the lane
// limb are drawn per lane. The lane limb is one random value shared by every
// seed, so keys of different lanes never coincide while the top 32 bits of a
// key still do not reveal its lane.
func NewSeedVectors(r io.Reader, lanes int) ([]SeedVector, error) {
	if lanes <= 0 {
		return nil, configError("lanes", ErrInvalidDispatch, "must be positive, got %d", lanes)
	}
	const perLane = 4 * (KeyLimbs - 1)
	buf := make([]byte, 4+perLane*lanes)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, fmt.Errorf("read seeds: %w", err)
	}
	top := binary.LittleEndian.Uint32(buf)
	seeds := make([]SeedVector, lanes)
	for lane := range seeds {
		chunk := buf[4+perLane*lane:]
		for i := 0; i < laneLimb; i++ {
			seeds[lane][i] = binary.LittleEndian.Uint32(chunk[4*i:])
		}
		seeds[lane][laneLimb] = top
	}
	return seeds, nil
}
