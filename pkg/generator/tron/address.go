// Package tron renders Tron addresses. Tron shares the Ethereum key and
// address derivation; only the display differs.
package tron

import (
	"fmt"

	"github.com/Amr-9/omnivanity/pkg/generator"
)

// MainnetPrefix is the version byte of Tron mainnet addresses.
const MainnetPrefix = 0x41

// Address renders a 20-byte keccak address as Base58Check(0x41‖addr).
// Every such address starts with 'T'.
func Address(raw []byte) string {
	return generator.Base58Check(MainnetPrefix, raw)
}

// Decode parses a Tron address back to its 20 raw bytes.
func Decode(s string) ([]byte, error) {
	version, payload, err := generator.DecodeBase58Check(s)
	if err != nil {
		return nil, err
	}
	if version != MainnetPrefix || len(payload) != 20 {
		return nil, fmt.Errorf("not a Tron mainnet address: version %#x, %d bytes", version, len(payload))
	}
	return payload, nil
}
