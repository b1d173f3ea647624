package generator

import (
	"fmt"
	"strings"

	"github.com/Amr-9/omnivanity/pkg/kernel"
)

// Alphabets of the address renderings.
const (
	HexAlphabet    = "0123456789abcdef"
	Base58Alphabet = "123456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz"
	Bech32Alphabet = "023456789acdefghjklmnpqrstuvwxyz"
)

// Layout describes how a network renders addresses and how patterns are
// matched against them.
type Layout struct {
	// Hex networks match raw address bytes per nibble inside the search
	// kernel. Text networks match rendered strings with the batch matcher.
	Hex bool
	// AddressLen is the number of raw address bytes (trailing digest bytes
	// for keccak families).
	AddressLen int
	// Alphabet is the set of characters a pattern may use.
	Alphabet string
	// CaseFree alphabets have one case only; patterns are folded before use.
	CaseFree bool
	// DisplayPrefix is the fixed start of every address. Patterns are
	// matched after it.
	DisplayPrefix string
	// Searchable is the number of characters after DisplayPrefix.
	Searchable int
}

// Layout returns the address layout of n. t only matters for Bitcoin.
// Solana has no fixed prefix, so patterns apply to the whole address.
func (n Network) Layout(t AddressType) Layout {
	switch n {
	case XDC:
		return Layout{Hex: true, AddressLen: 20, Alphabet: HexAlphabet, CaseFree: true, DisplayPrefix: "xdc", Searchable: 40}
	case Tron:
		return Layout{AddressLen: 20, Alphabet: Base58Alphabet, DisplayPrefix: "T", Searchable: 33}
	case Bitcoin:
		switch t {
		case AddressTypeLegacy:
			return Layout{AddressLen: 20, Alphabet: Base58Alphabet, DisplayPrefix: "1", Searchable: 33}
		case AddressTypeNestedSegWit:
			return Layout{AddressLen: 20, Alphabet: Base58Alphabet, DisplayPrefix: "3", Searchable: 33}
		default:
			return Layout{AddressLen: 32, Alphabet: Bech32Alphabet, CaseFree: true, DisplayPrefix: "bc1p", Searchable: 58}
		}
	case Litecoin:
		return Layout{AddressLen: 20, Alphabet: Base58Alphabet, DisplayPrefix: "L", Searchable: 33}
	case Dogecoin:
		return Layout{AddressLen: 20, Alphabet: Base58Alphabet, DisplayPrefix: "D", Searchable: 33}
	case Zcash:
		return Layout{AddressLen: 20, Alphabet: Base58Alphabet, DisplayPrefix: "t1", Searchable: 33}
	case Solana:
		// 32-byte keys render to 43 or 44 characters
		return Layout{AddressLen: 32, Alphabet: Base58Alphabet, Searchable: 44}
	default:
		return Layout{Hex: true, AddressLen: 20, Alphabet: HexAlphabet, CaseFree: true, DisplayPrefix: "0x", Searchable: 40}
	}
}

// Layout returns the layout of the configured network.
func (c *Config) Layout() Layout { return c.Network.Layout(c.AddressType) }

// TrimPattern removes a leading display prefix the user may have typed,
// such as "0x" on Ethereum.
func (l Layout) TrimPattern(pattern string) string {
	if l.Hex && len(pattern) >= len(l.DisplayPrefix) && strings.EqualFold(pattern[:len(l.DisplayPrefix)], l.DisplayPrefix) {
		return pattern[len(l.DisplayPrefix):]
	}
	return pattern
}

// InvalidChars returns the characters of pattern outside the alphabet.
func (l Layout) InvalidChars(pattern string) []rune {
	if l.CaseFree {
		pattern = strings.ToLower(pattern)
	}
	var invalid []rune
	for _, c := range pattern {
		if !strings.ContainsRune(l.Alphabet, c) {
			invalid = append(invalid, c)
		}
	}
	return invalid
}

// ValidatePattern checks the configured pattern against the network.
func (c *Config) ValidatePattern() error {
	l := c.Layout()
	p := l.TrimPattern(c.Pattern)
	if p == "" {
		return fmt.Errorf("pattern: %w", kernel.ErrEmptyPattern)
	}
	if bad := l.InvalidChars(p); len(bad) > 0 {
		return fmt.Errorf("pattern %q: %w: %q not in the %s alphabet", p, kernel.ErrInvalidPattern, string(bad), c.Network)
	}
	if len(p) > l.Searchable {
		return fmt.Errorf("pattern %q: %w: %d characters, %s addresses have %d", p, kernel.ErrPatternTooLong, len(p), c.Network, l.Searchable)
	}
	return nil
}

// KernelPattern validates the configured pattern and converts it to the
// matcher's form: nibbles for hex networks, bytes otherwise.
func (c *Config) KernelPattern() (*kernel.PatternSpec, error) {
	if err := c.ValidatePattern(); err != nil {
		return nil, err
	}
	l := c.Layout()
	p := l.TrimPattern(c.Pattern)
	if l.Hex {
		return kernel.ParseHexPattern(p, c.Mode)
	}
	return kernel.TextPattern(p, c.Mode, c.CaseInsensitive || l.CaseFree)
}

// SearchablePart returns the part of a rendered address that patterns apply to.
func (l Layout) SearchablePart(address string) string {
	return strings.TrimPrefix(address, l.DisplayPrefix)
}
