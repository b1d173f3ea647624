package keccak

import "math/bits"

// F1600 applies the 24-round Keccak-f[1600] permutation to a state of 25
// 64-bit lanes, indexed x+5y.
func F1600(a *[25]uint64) {
	var c [5]uint64
	for round := 0; round < Rounds; round++ {
		// theta
		for x := 0; x < 5; x++ {
			c[x] = a[x] ^ a[x+5] ^ a[x+10] ^ a[x+15] ^ a[x+20]
		}
		for x := 0; x < 5; x++ {
			d := c[prev5[x]] ^ bits.RotateLeft64(c[next5[x]], 1)
			a[x] ^= d
			a[x+5] ^= d
			a[x+10] ^= d
			a[x+15] ^= d
			a[x+20] ^= d
		}

		// rho and pi
		t := a[1]
		for i := 0; i < 24; i++ {
			j := piLanes[i]
			saved := a[j]
			a[j] = bits.RotateLeft64(t, rhoOffsets[i])
			t = saved
		}

		// chi
		for y := 0; y < 25; y += 5 {
			for x := 0; x < 5; x++ {
				c[x] = a[y+x]
			}
			for x := 0; x < 5; x++ {
				a[y+x] = c[x] ^ (^c[next5[x]] & c[skip5[x]])
			}
		}

		// iota
		a[0] ^= RoundConstants[round]
	}
}
