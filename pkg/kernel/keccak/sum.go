package keccak

import (
	"encoding/binary"
	"fmt"
)

const (
	// Rate is the Keccak-256 sponge rate in bytes.
	Rate = 136
	// MaxInput is the longest message absorbed as a single padded block.
	MaxInput = Rate - 1
	// Size is the digest length in bytes.
	Size = 32

	// original Keccak padding: first bit after the message, last bit of the block
	padFirst = 0x01
	padLast  = 0x80
)

// Encoding selects the arithmetic used for the permutation.
type Encoding int

const (
	Lane64 Encoding = iota // native 64-bit lanes
	Lane32                 // 32-bit half lanes
)

// String returns the encoding name.
func (e Encoding) String() string {
	switch e {
	case Lane64:
		return "64-bit lanes"
	case Lane32:
		return "32-bit half lanes"
	default:
		return fmt.Sprintf("Encoding(%d)", int(e))
	}
}

// Sum256 returns the Keccak-256 digest of msg using the given encoding.
// msg must fit in one block (len(msg) <= MaxInput); longer input panics.
func Sum256(enc Encoding, msg []byte) (out [Size]byte) {
	if enc == Lane32 {
		Sum256x32(&out, msg)
	} else {
		Sum256x64(&out, msg)
	}
	return out
}

// Sum256x64 writes the Keccak-256 digest of msg into out using F1600.
func Sum256x64(out *[Size]byte, msg []byte) {
	var block [Rate]byte
	pad(&block, msg)

	var a [25]uint64
	for i := 0; i < Rate/8; i++ {
		a[i] = binary.LittleEndian.Uint64(block[8*i:])
	}
	F1600(&a)
	for i := 0; i < Size/8; i++ {
		binary.LittleEndian.PutUint64(out[8*i:], a[i])
	}
}

// Sum256x32 writes the Keccak-256 digest of msg into out using F1600x32.
func Sum256x32(out *[Size]byte, msg []byte) {
	var block [Rate]byte
	pad(&block, msg)

	var s [50]uint32
	for i := 0; i < Rate/4; i++ {
		s[i] = binary.LittleEndian.Uint32(block[4*i:])
	}
	F1600x32(&s)
	for i := 0; i < Size/4; i++ {
		binary.LittleEndian.PutUint32(out[4*i:], s[i])
	}
}

func pad(block *[Rate]byte, msg []byte) {
	if len(msg) > MaxInput {
		panic(fmt.Sprintf("keccak: message of %d bytes exceeds one block", len(msg)))
	}
	n := copy(block[:], msg)
	block[n] ^= padFirst
	block[Rate-1] ^= padLast
}
