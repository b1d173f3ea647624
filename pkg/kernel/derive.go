package kernel

import (
	"github.com/decred/dcrd/dcrec/secp256k1/v4"

	"github.com/Amr-9/omnivanity/pkg/kernel/keccak"
)

// PublicKeySize is the length of the public-key representation that gets
// hashed: the affine X and Y coordinates, 32 bytes each, without a prefix.
const PublicKeySize = 64

// PublicKeyFunc computes the public-key bytes for a 32-byte big-endian
// private scalar. It returns false when the scalar is not a usable key; the
// deriver then moves on to the next key. It must be a pure function and must
// accept at least one of any 2^32 consecutive keys.
type PublicKeyFunc func(priv *[32]byte, pub *[PublicKeySize]byte) bool

// Secp256k1PublicKey multiplies the secp256k1 generator by priv. Zero and
// scalars not below the group order are rejected.
func Secp256k1PublicKey(priv *[32]byte, pub *[PublicKeySize]byte) bool {
	var k secp256k1.ModNScalar
	if overflow := k.SetBytes(priv); overflow != 0 || k.IsZero() {
		return false
	}

	var p secp256k1.JacobianPoint
	secp256k1.ScalarBaseMultNonConst(&k, &p)
	p.ToAffine()
	p.X.Normalize()
	p.Y.Normalize()
	p.X.PutBytesUnchecked(pub[:32])
	p.Y.PutBytesUnchecked(pub[32:])
	return true
}

// Deriver turns candidate keys into addresses: public key, Keccak-256 digest,
// then the trailing bytes of the digest.
type Deriver struct {
	PublicKey PublicKeyFunc
	Encoding  keccak.Encoding
}

// NewDeriver returns a Deriver using secp256k1 and the given encoding.
func NewDeriver(enc keccak.Encoding) Deriver {
	return Deriver{PublicKey: Secp256k1PublicKey, Encoding: enc}
}

// Derive writes the address of *k into addr, whose length selects how many
// trailing digest bytes make up the address (at most keccak.Size). Keys the
// public-key step rejects are skipped as in Public. Derive returns the
// number of keys it skipped, which callers walking a lane add to their
// index so no key is tested twice.
func (d *Deriver) Derive(k *CandidateKey, addr []byte) (skipped uint32) {
	var pub [PublicKeySize]byte
	skipped = d.Public(k, &pub)
	d.Hash(&pub, addr)
	return skipped
}

// Public writes the public key of *k into pub. Keys the public-key step
// rejects are skipped by incrementing the counter limb, so *k may change;
// it always holds the key pub belongs to. Public returns the number of
// keys it skipped.
func (d *Deriver) Public(k *CandidateKey, pub *[PublicKeySize]byte) (skipped uint32) {
	for {
		priv := k.Bytes()
		if d.PublicKey(&priv, pub) {
			return skipped
		}
		k[counterLimb]++
		skipped++
	}
}

// Hash writes the trailing len(addr) bytes of the digest of pub into addr.
func (d *Deriver) Hash(pub *[PublicKeySize]byte, addr []byte) {
	var digest [keccak.Size]byte
	if d.Encoding == keccak.Lane32 {
		keccak.Sum256x32(&digest, pub[:])
	} else {
		keccak.Sum256x64(&digest, pub[:])
	}
	copy(addr, digest[keccak.Size-len(addr):])
}

// AddressOf derives the address of a 32-byte big-endian private key, or
// reports false if the public-key step rejects it.
func (d *Deriver) AddressOf(priv [32]byte, addrLen int) ([]byte, bool) {
	var pub [PublicKeySize]byte
	if !d.PublicKey(&priv, &pub) {
		return nil, false
	}
	addr := make([]byte, addrLen)
	d.Hash(&pub, addr)
	return addr, true
}
