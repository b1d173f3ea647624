// Package keccak implements the Keccak-f[1600] permutation and the
// single-block Keccak-256 digest used to derive keccak-family addresses.
//
// Two arithmetic encodings are provided. F1600 works on 25 native 64-bit
// lanes. F1600x32 works on 50 32-bit words (each lane split into a low and
// a high half) for backends that have no 64-bit integer operations. Both
// produce identical states for identical inputs.
package keccak

// Rounds is the number of Keccak-f[1600] rounds.
const Rounds = 24

// RoundConstants are the iota constants, one per round.
var RoundConstants = [Rounds]uint64{
	0x0000000000000001, 0x0000000000008082, 0x800000000000808a, 0x8000000080008000,
	0x000000000000808b, 0x0000000080000001, 0x8000000080008081, 0x8000000000008009,
	0x000000000000008a, 0x0000000000000088, 0x0000000080008009, 0x000000008000000a,
	0x000000008000808b, 0x800000000000008b, 0x8000000000008089, 0x8000000000008003,
	0x8000000000008002, 0x8000000000000080, 0x000000000000800a, 0x800000008000000a,
	0x8000000080008081, 0x8000000000008080, 0x0000000080000001, 0x8000000080008008,
}

// RoundConstantsLo and RoundConstantsHi are RoundConstants split into 32-bit
// halves for the half-lane encoding.
var (
	RoundConstantsLo = [Rounds]uint32{
		0x00000001, 0x00008082, 0x0000808a, 0x80008000,
		0x0000808b, 0x80000001, 0x80008081, 0x00008009,
		0x0000008a, 0x00000088, 0x80008009, 0x8000000a,
		0x8000808b, 0x0000008b, 0x00008089, 0x00008003,
		0x00008002, 0x00000080, 0x0000800a, 0x8000000a,
		0x80008081, 0x00008080, 0x80000001, 0x80008008,
	}
	RoundConstantsHi = [Rounds]uint32{
		0x00000000, 0x00000000, 0x80000000, 0x80000000,
		0x00000000, 0x00000000, 0x80000000, 0x80000000,
		0x00000000, 0x00000000, 0x00000000, 0x00000000,
		0x00000000, 0x80000000, 0x80000000, 0x80000000,
		0x80000000, 0x80000000, 0x00000000, 0x80000000,
		0x80000000, 0x80000000, 0x00000000, 0x80000000,
	}
)

// rotation offsets and destination lanes of the combined rho+pi step,
// walked as a single cycle starting from lane 1.
var (
	rhoOffsets = [24]int{
		1, 3, 6, 10, 15, 21, 28, 36, 45, 55, 2, 14,
		27, 41, 56, 8, 25, 43, 62, 18, 39, 61, 20, 44,
	}
	piLanes = [24]int{
		10, 7, 11, 17, 18, 3, 5, 16, 8, 21, 24, 4,
		15, 23, 19, 13, 12, 2, 20, 14, 22, 9, 6, 1,
	}
)

// mod5 avoids a division in the theta and chi index arithmetic.
var (
	next5 = [5]int{1, 2, 3, 4, 0}
	prev5 = [5]int{4, 0, 1, 2, 3}
	skip5 = [5]int{2, 3, 4, 0, 1}
)
