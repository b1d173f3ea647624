// Package bitcoin derives Bitcoin addresses: P2TR (Taproot), P2PKH
// (Legacy) and P2SH-P2WPKH (Nested SegWit).
package bitcoin

import (
	"crypto/sha256"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/btcutil/bech32"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"golang.org/x/crypto/ripemd160"

	"github.com/Amr-9/omnivanity/pkg/generator"
)

// Mainnet version bytes.
const (
	versionP2PKH = 0x00
	versionP2SH  = 0x05
	versionWIF   = 0x80
)

// Address derives the address of pubKey for the given address type.
func Address(pubKey *btcec.PublicKey, addrType generator.AddressType) (string, error) {
	switch addrType {
	case generator.AddressTypeLegacy:
		return generator.Base58Check(versionP2PKH, hash160(pubKey.SerializeCompressed())), nil
	case generator.AddressTypeNestedSegWit:
		// redeem script: OP_0 PUSH20 HASH160(pubkey)
		script := append([]byte{0x00, 0x14}, hash160(pubKey.SerializeCompressed())...)
		return generator.Base58Check(versionP2SH, hash160(script)), nil
	default:
		return taproot(pubKey)
	}
}

// taproot returns the key-path-only P2TR address: Bech32m of witness
// version 1 and the x coordinate of P + H_TapTweak(P)·G.
func taproot(pubKey *btcec.PublicKey) (string, error) {
	xOnly := schnorr.SerializePubKey(pubKey)
	tweak := chainhash.TaggedHash(chainhash.TagTapTweak, xOnly)

	var t btcec.ModNScalar
	if overflow := t.SetBytes((*[32]byte)(tweak)); overflow != 0 {
		return "", fmt.Errorf("taproot tweak overflows the group order")
	}

	var p, tG, q btcec.JacobianPoint
	// BIP-340 keys have even y
	even, err := schnorr.ParsePubKey(xOnly)
	if err != nil {
		return "", err
	}
	even.AsJacobian(&p)
	btcec.ScalarBaseMultNonConst(&t, &tG)
	btcec.AddNonConst(&p, &tG, &q)
	q.ToAffine()

	program := schnorr.SerializePubKey(btcec.NewPublicKey(&q.X, &q.Y))
	data, err := bech32.ConvertBits(program, 8, 5, true)
	if err != nil {
		return "", err
	}
	return bech32.EncodeM("bc", append([]byte{0x01}, data...))
}

// WIF exports priv in compressed Wallet Import Format.
func WIF(priv *btcec.PrivateKey) string {
	return generator.Base58Check(versionWIF, append(priv.Serialize(), 0x01))
}

func hash160(data []byte) []byte {
	sha := sha256.Sum256(data)
	h := ripemd160.New()
	h.Write(sha[:])
	return h.Sum(nil)
}
