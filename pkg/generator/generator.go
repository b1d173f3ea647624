// Package generator defines the vanity search front end: the supported
// networks, the search configuration and the Generator interface the
// per-family hosts implement.
package generator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Amr-9/omnivanity/pkg/kernel"
)

// Network represents the blockchain network for address generation.
type Network int

const (
	Ethereum Network = iota // secp256k1, Keccak-256, hex
	XDC                     // secp256k1, Keccak-256, hex with xdc prefix
	Tron                    // secp256k1, Keccak-256, Base58Check
	Bitcoin                 // secp256k1, SHA256+RIPEMD160, Base58/Bech32
	Litecoin                // secp256k1, SHA256+RIPEMD160, Base58Check L...
	Dogecoin                // secp256k1, SHA256+RIPEMD160, Base58Check D...
	Zcash                   // secp256k1, SHA256+RIPEMD160, Base58Check t1...
	Solana                  // ed25519, raw public key, Base58
)

// Networks lists every supported network.
var Networks = []Network{Ethereum, XDC, Tron, Bitcoin, Litecoin, Dogecoin, Zcash, Solana}

// String returns the network name.
func (n Network) String() string {
	switch n {
	case Ethereum:
		return "Ethereum"
	case XDC:
		return "XDC"
	case Tron:
		return "Tron"
	case Bitcoin:
		return "Bitcoin"
	case Litecoin:
		return "Litecoin"
	case Dogecoin:
		return "Dogecoin"
	case Zcash:
		return "Zcash"
	case Solana:
		return "Solana"
	default:
		return "Unknown"
	}
}

// Ticker returns the exchange ticker of the network's coin.
func (n Network) Ticker() string {
	switch n {
	case Ethereum:
		return "ETH"
	case XDC:
		return "XDC"
	case Tron:
		return "TRX"
	case Bitcoin:
		return "BTC"
	case Litecoin:
		return "LTC"
	case Dogecoin:
		return "DOGE"
	case Zcash:
		return "ZEC"
	case Solana:
		return "SOL"
	default:
		return "?"
	}
}

// Curve returns the signature curve of the network's keys.
func (n Network) Curve() string {
	if n == Solana {
		return "ed25519"
	}
	return "secp256k1"
}

// AddressTypes lists the address types a network can be searched with.
// Networks with a single format return only AddressTypeDefault.
func (n Network) AddressTypes() []AddressType {
	if n == Bitcoin {
		return []AddressType{AddressTypeTaproot, AddressTypeLegacy, AddressTypeNestedSegWit}
	}
	return []AddressType{AddressTypeDefault}
}

// ParseNetwork parses a network name or ticker, ignoring case.
func ParseNetwork(s string) (Network, error) {
	switch strings.ToLower(s) {
	case "ethereum", "eth":
		return Ethereum, nil
	case "xdc":
		return XDC, nil
	case "tron", "trx":
		return Tron, nil
	case "bitcoin", "btc":
		return Bitcoin, nil
	case "litecoin", "ltc":
		return Litecoin, nil
	case "dogecoin", "doge":
		return Dogecoin, nil
	case "zcash", "zec":
		return Zcash, nil
	case "solana", "sol":
		return Solana, nil
	}
	return 0, fmt.Errorf("unknown network %q", s)
}

// AddressType represents the Bitcoin address format.
type AddressType int

const (
	AddressTypeDefault      AddressType = iota // Default for network (P2TR for Bitcoin)
	AddressTypeTaproot                         // P2TR - Taproot (bc1p...)
	AddressTypeLegacy                          // P2PKH - Legacy (1...)
	AddressTypeNestedSegWit                    // P2SH-P2WPKH - Nested SegWit (3...)
)

// String returns the address type name.
func (a AddressType) String() string {
	switch a {
	case AddressTypeTaproot:
		return "Taproot (P2TR)"
	case AddressTypeLegacy:
		return "Legacy (P2PKH)"
	case AddressTypeNestedSegWit:
		return "Nested SegWit (P2SH)"
	default:
		return "Default"
	}
}

// ParseAddressType parses p2tr, p2pkh or p2sh.
func ParseAddressType(s string) (AddressType, error) {
	switch strings.ToLower(s) {
	case "", "default":
		return AddressTypeDefault, nil
	case "p2tr", "taproot":
		return AddressTypeTaproot, nil
	case "p2pkh", "legacy":
		return AddressTypeLegacy, nil
	case "p2sh", "p2sh-p2wpkh", "segwit":
		return AddressTypeNestedSegWit, nil
	}
	return 0, fmt.Errorf("unknown address type %q", s)
}

// Config holds the configuration for vanity address generation.
type Config struct {
	Network         Network          // Target network
	AddressType     AddressType      // Bitcoin only: P2TR, P2PKH, P2SH
	Pattern         string           // Desired pattern, without the fixed network prefix
	Mode            kernel.MatchMode // prefix, suffix or contains
	CaseInsensitive bool             // fold ASCII case on text-rendered networks
	Backend         kernel.Kind      // compute backend for keccak-family searches

	Lanes         int    // lanes per dispatch
	WorkgroupSize int    // lanes run back to back by one CPU worker
	KeysPerLane   uint32 // keys each lane tests per dispatch
	Workers       int    // concurrent CPU workers

	MaxAttempts uint64        // stop after this many keys (0 = unlimited)
	MaxDuration time.Duration // stop after this long (0 = unlimited)
}

// Default dispatch geometry.
const (
	DefaultLanes       = 1 << 14
	DefaultKeysPerLane = 64
)

// withDefaults fills unset dispatch geometry.
func (c Config) withDefaults() Config {
	if c.Lanes <= 0 {
		c.Lanes = DefaultLanes
	}
	if c.KeysPerLane == 0 {
		c.KeysPerLane = DefaultKeysPerLane
	}
	if c.Backend == "" {
		c.Backend = kernel.KindAuto
	}
	return c
}

// WithDefaults returns a copy of c with unset dispatch geometry filled in.
func WithDefaults(c *Config) *Config {
	out := c.withDefaults()
	return &out
}

// Limited reports whether attempts or elapsed have reached a configured limit.
func (c *Config) Limited(attempts uint64, elapsed time.Duration) bool {
	return (c.MaxAttempts > 0 && attempts >= c.MaxAttempts) ||
		(c.MaxDuration > 0 && elapsed >= c.MaxDuration)
}

// Result contains a successfully found vanity address and its private key.
type Result struct {
	Network    Network // Network the address belongs to
	Address    string  // Display form (checksummed hex, Base58, Bech32m)
	PrivateKey string  // Hex for keccak families, WIF for UTXO chains, Base58 keypair for Solana
	Backend    string  // Backend that produced the match
}

// Stats holds real-time performance statistics.
type Stats struct {
	Attempts    uint64  // Total number of keys tested
	HashRate    float64 // Keys per second
	ElapsedSecs float64 // Time elapsed since start
}

// Generator defines the contract for address generation backends.
type Generator interface {
	// Start begins the vanity address search with the given configuration.
	// The returned channel receives the result when found and is closed
	// when the search ends, so a receive without a value means the search
	// was cancelled, hit a limit or failed (see Err).
	Start(ctx context.Context, config *Config) (<-chan Result, error)

	// Stats returns the current performance statistics.
	// This method is safe to call concurrently from any goroutine.
	Stats() Stats

	// Err returns the error that ended the last search, if any.
	Err() error

	// Name returns the implementation name.
	Name() string
}
