package kernel

import "fmt"

// MaxPatternLen bounds the pattern buffer in units (nibbles or bytes).
const MaxPatternLen = 64

// MatchMode selects where a pattern must occur in an address.
type MatchMode uint32

const (
	MatchPrefix MatchMode = iota
	MatchSuffix
	MatchContains
)

// String returns the mode name.
func (m MatchMode) String() string {
	switch m {
	case MatchPrefix:
		return "prefix"
	case MatchSuffix:
		return "suffix"
	case MatchContains:
		return "contains"
	default:
		return fmt.Sprintf("MatchMode(%d)", uint32(m))
	}
}

// ParseMatchMode parses "prefix", "suffix" or "contains".
func ParseMatchMode(s string) (MatchMode, error) {
	switch s {
	case "prefix":
		return MatchPrefix, nil
	case "suffix":
		return MatchSuffix, nil
	case "contains":
		return MatchContains, nil
	}
	return 0, configError("mode", ErrInvalidMode, "%q is not one of prefix, suffix, contains", s)
}

// Granularity is the unit of comparison.
type Granularity uint32

const (
	// Bytes compares whole address bytes (text-rendered and raw families).
	Bytes Granularity = iota
	// Nibbles compares 4-bit units, high nibble first, for hex-rendered
	// families. Odd-length patterns are allowed.
	Nibbles
)

// PatternSpec is the read-only pattern of a dispatch.
type PatternSpec struct {
	Units           [MaxPatternLen]byte
	Len             int
	Mode            MatchMode
	Granularity     Granularity
	CaseInsensitive bool
}

// NewPattern validates units and returns a pattern. With CaseInsensitive set,
// ASCII letters are folded to lower case once here; addresses are folded
// during comparison. A zero-length pattern is valid but never matches.
func NewPattern(units []byte, mode MatchMode, gran Granularity, caseInsensitive bool) (*PatternSpec, error) {
	if mode > MatchContains {
		return nil, configError("mode", ErrInvalidMode, "%d", uint32(mode))
	}
	if len(units) > MaxPatternLen {
		return nil, configError("pattern", ErrPatternTooLong, "%d units, max %d", len(units), MaxPatternLen)
	}

	p := &PatternSpec{
		Len:             len(units),
		Mode:            mode,
		Granularity:     gran,
		CaseInsensitive: caseInsensitive,
	}
	for i, u := range units {
		switch {
		case gran == Nibbles && u > 0x0f:
			return nil, configError("pattern", ErrInvalidPattern, "nibble %d out of range: %#x", i, u)
		case gran == Bytes && caseInsensitive:
			u = fold(u)
		}
		p.Units[i] = u
	}
	return p, nil
}

// ParseHexPattern converts hex text to a nibble pattern. Hex digits are
// compared by value, so letter case in s never matters.
func ParseHexPattern(s string, mode MatchMode) (*PatternSpec, error) {
	if len(s) > MaxPatternLen {
		return nil, configError("pattern", ErrPatternTooLong, "%d hex digits, max %d", len(s), MaxPatternLen)
	}
	units := make([]byte, len(s))
	for i := 0; i < len(s); i++ {
		v, ok := hexValue(s[i])
		if !ok {
			return nil, configError("pattern", ErrInvalidPattern, "%q is not a hex digit", s[i])
		}
		units[i] = v
	}
	return NewPattern(units, mode, Nibbles, true)
}

// TextPattern returns a byte pattern over the ASCII text s.
func TextPattern(s string, mode MatchMode, caseInsensitive bool) (*PatternSpec, error) {
	return NewPattern([]byte(s), mode, Bytes, caseInsensitive)
}

// Match reports whether addr satisfies the pattern.
func (p *PatternSpec) Match(addr []byte) bool {
	return p.Find(addr) >= 0
}

// Find returns the unit offset at which the pattern matches addr, or -1.
// For contains mode the earliest offset is returned.
func (p *PatternSpec) Find(addr []byte) int {
	n := len(addr)
	if p.Granularity == Nibbles {
		n *= 2
	}
	if p.Len == 0 || p.Len > n {
		return -1
	}

	switch p.Mode {
	case MatchPrefix:
		if p.matchAt(addr, 0) {
			return 0
		}
	case MatchSuffix:
		if p.matchAt(addr, n-p.Len) {
			return n - p.Len
		}
	case MatchContains:
		for off := 0; off <= n-p.Len; off++ {
			if p.matchAt(addr, off) {
				return off
			}
		}
	}
	return -1
}

// matchAt compares the pattern against addr starting at unit off, stopping
// at the first mismatch.
func (p *PatternSpec) matchAt(addr []byte, off int) bool {
	if p.Granularity == Nibbles {
		for i := 0; i < p.Len; i++ {
			if nibble(addr, off+i) != p.Units[i] {
				return false
			}
		}
		return true
	}

	if p.CaseInsensitive {
		for i := 0; i < p.Len; i++ {
			if fold(addr[off+i]) != p.Units[i] {
				return false
			}
		}
		return true
	}
	for i := 0; i < p.Len; i++ {
		if addr[off+i] != p.Units[i] {
			return false
		}
	}
	return true
}

func nibble(addr []byte, i int) byte {
	b := addr[i>>1]
	if i&1 == 0 {
		return b >> 4
	}
	return b & 0x0f
}

// fold maps ASCII upper-case letters to lower case and leaves everything
// else alone.
func fold(b byte) byte {
	if 'A' <= b && b <= 'Z' {
		return b + ('a' - 'A')
	}
	return b
}

func hexValue(c byte) (byte, bool) {
	switch {
	case '0' <= c && c <= '9':
		return c - '0', true
	case 'a' <= c && c <= 'f':
		return c - 'a' + 10, true
	case 'A' <= c && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}
