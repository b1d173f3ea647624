package kernel

import (
	"encoding/hex"
	"errors"
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// findReference locates pattern in the hex or text rendering of addr.
func findReference(rendered, pattern string, mode MatchMode) int {
	if pattern == "" || len(pattern) > len(rendered) {
		return -1
	}
	switch mode {
	case MatchPrefix:
		if strings.HasPrefix(rendered, pattern) {
			return 0
		}
	case MatchSuffix:
		if strings.HasSuffix(rendered, pattern) {
			return len(rendered) - len(pattern)
		}
	case MatchContains:
		return strings.Index(rendered, pattern)
	}
	return -1
}

var modes = []MatchMode{MatchPrefix, MatchSuffix, MatchContains}

func TestNibblePatternAgreesWithHexSearch(t *testing.T) {
	r := rand.New(rand.NewSource(10))
	addr := make([]byte, 20)

	for iter := 0; iter < 5000; iter++ {
		r.Read(addr)
		rendered := hex.EncodeToString(addr)

		// mostly patterns cut from the address itself, so matches occur
		var pat string
		if iter%3 == 0 {
			digits := make([]byte, 1+r.Intn(4))
			for i := range digits {
				digits[i] = "0123456789abcdef"[r.Intn(16)]
			}
			pat = string(digits)
		} else {
			n := 1 + r.Intn(12)
			off := r.Intn(len(rendered) - n + 1)
			pat = rendered[off : off+n]
		}

		for _, mode := range modes {
			p, err := ParseHexPattern(strings.ToUpper(pat), mode)
			require.NoError(t, err)
			want := findReference(rendered, pat, mode)
			assert.Equal(t, want, p.Find(addr), "addr=%s pattern=%s mode=%s", rendered, pat, mode)
			assert.Equal(t, want >= 0, p.Match(addr))
		}
	}
}

func TestTextPatternCaseFolding(t *testing.T) {
	const alphabet = "abcdefXYZxyz0123"
	r := rand.New(rand.NewSource(11))

	for iter := 0; iter < 3000; iter++ {
		addr := make([]byte, 8+r.Intn(30))
		for i := range addr {
			addr[i] = alphabet[r.Intn(len(alphabet))]
		}
		n := 1 + r.Intn(4)
		pat := make([]byte, n)
		for i := range pat {
			pat[i] = alphabet[r.Intn(len(alphabet))]
		}

		for _, mode := range modes {
			sensitive, err := TextPattern(string(pat), mode, false)
			require.NoError(t, err)
			insensitive, err := TextPattern(string(pat), mode, true)
			require.NoError(t, err)

			assert.Equal(t, findReference(string(addr), string(pat), mode), sensitive.Find(addr))
			assert.Equal(t,
				findReference(strings.ToLower(string(addr)), strings.ToLower(string(pat)), mode),
				insensitive.Find(addr))

			// folding either side never changes a case-insensitive outcome
			upper := []byte(strings.ToUpper(string(addr)))
			assert.Equal(t, insensitive.Match(addr), insensitive.Match(upper))
		}
	}
}

func TestCaseInsensitiveTextMatch(t *testing.T) {
	p, err := TextPattern("AbC", MatchContains, true)
	require.NoError(t, err)
	assert.True(t, p.Match([]byte("xxabcxx")))
	assert.True(t, p.Match([]byte("XXABCXX")))
	assert.Equal(t, 2, p.Find([]byte("xXaBcXabc")))
	assert.False(t, p.Match([]byte("xxab-cxx")))

	p, err = TextPattern("AbC", MatchContains, false)
	require.NoError(t, err)
	assert.False(t, p.Match([]byte("xxabcxx")))
	assert.True(t, p.Match([]byte("xxAbCxx")))
}

func TestNonLettersAreNotFolded(t *testing.T) {
	// '@' and '`' sit next to the letter ranges
	p, err := TextPattern("@", MatchPrefix, true)
	require.NoError(t, err)
	assert.False(t, p.Match([]byte("`")))
	assert.True(t, p.Match([]byte("@")))
}

func TestEmptyPatternNeverMatches(t *testing.T) {
	for _, mode := range modes {
		for _, gran := range []Granularity{Bytes, Nibbles} {
			p, err := NewPattern(nil, mode, gran, false)
			require.NoError(t, err)
			assert.False(t, p.Match([]byte{0, 1, 2}))
			assert.False(t, p.Match(nil))
		}
	}
}

func TestPatternLongerThanAddress(t *testing.T) {
	p, err := ParseHexPattern("abcdef", MatchContains)
	require.NoError(t, err)
	assert.False(t, p.Match([]byte{0xab, 0xcd}))
	assert.True(t, p.Match([]byte{0xab, 0xcd, 0xef}))
}

func TestOddNibbleSuffix(t *testing.T) {
	p, err := ParseHexPattern("def", MatchSuffix)
	require.NoError(t, err)
	assert.True(t, p.Match([]byte{0x12, 0x3d, 0xef}))
	assert.False(t, p.Match([]byte{0x12, 0xde, 0xf0}))
}

func TestPatternValidation(t *testing.T) {
	_, err := ParseHexPattern("12g4", MatchPrefix)
	assert.ErrorIs(t, err, ErrInvalidPattern)

	_, err = ParseHexPattern(strings.Repeat("a", MaxPatternLen+1), MatchPrefix)
	assert.ErrorIs(t, err, ErrPatternTooLong)

	_, err = NewPattern([]byte{0x10}, MatchPrefix, Nibbles, false)
	assert.ErrorIs(t, err, ErrInvalidPattern)

	_, err = NewPattern([]byte{1}, MatchMode(3), Bytes, false)
	assert.ErrorIs(t, err, ErrInvalidMode)

	var cfgErr *ConfigError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "mode", cfgErr.Field)

	p, err := NewPattern(make([]byte, MaxPatternLen), MatchPrefix, Nibbles, false)
	require.NoError(t, err)
	assert.Equal(t, MaxPatternLen, p.Len)
}

func TestParseMatchMode(t *testing.T) {
	for _, mode := range modes {
		got, err := ParseMatchMode(mode.String())
		require.NoError(t, err)
		assert.Equal(t, mode, got)
	}
	_, err := ParseMatchMode("middle")
	assert.ErrorIs(t, err, ErrInvalidMode)
}
