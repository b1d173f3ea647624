package bitcoin

import (
	"github.com/btcsuite/btcd/btcec/v2"

	"github.com/Amr-9/omnivanity/pkg/generator"
)

// Chain holds the mainnet version bytes of a network that reuses Bitcoin's
// P2PKH address and WIF key formats.
type Chain struct {
	Network generator.Network
	P2PKH   []byte // address version, two bytes for Zcash
	Secret  byte   // WIF version
}

// Bitcoin-derived chains.
var (
	Litecoin = Chain{Network: generator.Litecoin, P2PKH: []byte{0x30}, Secret: 0xb0}
	Dogecoin = Chain{Network: generator.Dogecoin, P2PKH: []byte{0x1e}, Secret: 0x9e}
	Zcash    = Chain{Network: generator.Zcash, P2PKH: []byte{0x1c, 0xb8}, Secret: versionWIF}
)

// ChainOf returns the chain parameters of n, if n is a P2PKH fork.
func ChainOf(n generator.Network) (Chain, bool) {
	for _, c := range []Chain{Litecoin, Dogecoin, Zcash} {
		if c.Network == n {
			return c, true
		}
	}
	return Chain{}, false
}

// Address returns the P2PKH address of the compressed pubKey.
func (c Chain) Address(pubKey *btcec.PublicKey) string {
	return generator.Base58CheckPrefix(c.P2PKH, hash160(pubKey.SerializeCompressed()))
}

// WIF exports priv in compressed Wallet Import Format.
func (c Chain) WIF(priv *btcec.PrivateKey) string {
	return generator.Base58Check(c.Secret, append(priv.Serialize(), 0x01))
}
