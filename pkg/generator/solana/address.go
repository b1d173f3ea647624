// Package solana renders Solana accounts. The address is the raw ed25519
// public key in Base58 with no checksum.
package solana

import (
	"crypto/ed25519"
	"fmt"

	"github.com/mr-tron/base58"
)

// Address returns the account address and the exported keypair of a 32-byte
// ed25519 seed. The keypair is Base58 of seed‖public key, the format wallets
// import. Every seed is a valid key.
func Address(seed [32]byte) (address, secret string) {
	priv := ed25519.NewKeyFromSeed(seed[:])
	pub := priv.Public().(ed25519.PublicKey)
	return base58.Encode(pub), base58.Encode(priv)
}

// PublicKey decodes an address back to the raw public key.
func PublicKey(address string) (ed25519.PublicKey, error) {
	raw, err := base58.Decode(address)
	if err != nil {
		return nil, err
	}
	if len(raw) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("address decodes to %d bytes, want %d", len(raw), ed25519.PublicKeySize)
	}
	return ed25519.PublicKey(raw), nil
}
