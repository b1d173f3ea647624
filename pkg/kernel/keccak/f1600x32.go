package keccak

// F1600x32 applies the 24-round Keccak-f[1600] permutation to a state held
// as 50 32-bit words. Lane i occupies s[2i] (low half) and s[2i+1] (high
// half). Only 32-bit shifts, xors and ands are used.
func F1600x32(s *[50]uint32) {
	var cLo, cHi [5]uint32
	for round := 0; round < Rounds; round++ {
		// theta
		for x := 0; x < 5; x++ {
			cLo[x] = s[2*x] ^ s[2*(x+5)] ^ s[2*(x+10)] ^ s[2*(x+15)] ^ s[2*(x+20)]
			cHi[x] = s[2*x+1] ^ s[2*(x+5)+1] ^ s[2*(x+10)+1] ^ s[2*(x+15)+1] ^ s[2*(x+20)+1]
		}
		for x := 0; x < 5; x++ {
			rLo, rHi := rotl32x2(cLo[next5[x]], cHi[next5[x]], 1)
			dLo := cLo[prev5[x]] ^ rLo
			dHi := cHi[prev5[x]] ^ rHi
			for y := 0; y < 25; y += 5 {
				s[2*(y+x)] ^= dLo
				s[2*(y+x)+1] ^= dHi
			}
		}

		// rho and pi
		tLo, tHi := s[2], s[3]
		for i := 0; i < 24; i++ {
			j := piLanes[i]
			savedLo, savedHi := s[2*j], s[2*j+1]
			s[2*j], s[2*j+1] = rotl32x2(tLo, tHi, rhoOffsets[i])
			tLo, tHi = savedLo, savedHi
		}

		// chi
		for y := 0; y < 25; y += 5 {
			for x := 0; x < 5; x++ {
				cLo[x] = s[2*(y+x)]
				cHi[x] = s[2*(y+x)+1]
			}
			for x := 0; x < 5; x++ {
				s[2*(y+x)] = cLo[x] ^ (^cLo[next5[x]] & cLo[skip5[x]])
				s[2*(y+x)+1] = cHi[x] ^ (^cHi[next5[x]] & cHi[skip5[x]])
			}
		}

		// iota
		s[0] ^= RoundConstantsLo[round]
		s[1] ^= RoundConstantsHi[round]
	}
}

// rotl32x2 rotates the 64-bit value hi:lo left by n (0 <= n < 64).
func rotl32x2(lo, hi uint32, n int) (uint32, uint32) {
	switch {
	case n == 0:
		return lo, hi
	case n < 32:
		return lo<<n | hi>>(32-n), hi<<n | lo>>(32-n)
	case n == 32:
		return hi, lo
	default:
		m := n - 32
		return hi<<m | lo>>(32-m), lo<<m | hi>>(32-m)
	}
}
