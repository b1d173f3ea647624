package kernel

import (
	"encoding/hex"
	"math/rand"
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Amr-9/omnivanity/pkg/kernel/keccak"
)

var encodings = []keccak.Encoding{keccak.Lane64, keccak.Lane32}

func scalar(v byte) (b [32]byte) {
	b[31] = v
	return b
}

func TestKnownAddresses(t *testing.T) {
	cases := []struct {
		key  byte
		want string
	}{
		{1, "7e5f4552091a69125d5dfcb7b8c2659029395bdf"},
		{2, "2b5ad5c4795c026514f8317c7a215e218dccd6cf"},
	}
	for _, enc := range encodings {
		d := NewDeriver(enc)
		for _, tc := range cases {
			addr, ok := d.AddressOf(scalar(tc.key), 20)
			require.True(t, ok)
			assert.Equal(t, tc.want, hex.EncodeToString(addr), "%s key=%d", enc, tc.key)
		}
	}
}

func TestDeriveAgreesWithGoEthereum(t *testing.T) {
	seeds, err := NewSeedVectors(rand.New(rand.NewSource(20)), 8)
	require.NoError(t, err)

	for _, enc := range encodings {
		d := NewDeriver(enc)
		for lane := uint32(0); lane < 8; lane++ {
			for i := uint32(0); i < 4; i++ {
				k := KeyAt(seeds[lane], lane, 0, i)
				addr := make([]byte, 20)
				d.Derive(&k, addr)

				priv := k.Bytes()
				ecdsa, err := crypto.ToECDSA(priv[:])
				require.NoError(t, err)
				assert.Equal(t, crypto.PubkeyToAddress(ecdsa.PublicKey).Bytes(), addr)
			}
		}
	}
}

func TestAddressIsDigestTail(t *testing.T) {
	d := NewDeriver(keccak.Lane64)
	full, ok := d.AddressOf(scalar(7), keccak.Size)
	require.True(t, ok)
	short, ok := d.AddressOf(scalar(7), 4)
	require.True(t, ok)
	assert.Equal(t, full[keccak.Size-4:], short)
}

func TestSecp256k1RejectsInvalidScalars(t *testing.T) {
	var pub [PublicKeySize]byte
	zero := scalar(0)
	assert.False(t, Secp256k1PublicKey(&zero, &pub))

	var high [32]byte
	for i := range high {
		high[i] = 0xff
	}
	assert.False(t, Secp256k1PublicKey(&high, &pub))

	one := scalar(1)
	assert.True(t, Secp256k1PublicKey(&one, &pub))
}

// oddKeysOnly accepts keys whose lowest byte is odd.
func oddKeysOnly(priv *[32]byte, pub *[PublicKeySize]byte) bool {
	if priv[31]&1 == 0 {
		return false
	}
	return mirrorKey(priv, pub)
}

// mirrorKey is a cheap stand-in for the curve: the key bytes twice.
func mirrorKey(priv *[32]byte, pub *[PublicKeySize]byte) bool {
	copy(pub[:32], priv[:])
	copy(pub[32:], priv[:])
	return true
}

func TestDeriveSkipsRejectedKeys(t *testing.T) {
	d := Deriver{PublicKey: oddKeysOnly, Encoding: keccak.Lane64}
	k := CandidateKey{4}
	addr := make([]byte, 20)
	assert.Equal(t, uint32(1), d.Derive(&k, addr))

	assert.Equal(t, CandidateKey{5}, k)
	want, ok := d.AddressOf(k.Bytes(), 20)
	require.True(t, ok)
	assert.Equal(t, want, addr)
}

// countingKeys records every key handed to the public-key step.
type countingKeys struct {
	seen map[[32]byte]int
}

func (c *countingKeys) publicKey(priv *[32]byte, pub *[PublicKeySize]byte) bool {
	c.seen[*priv]++
	return oddKeysOnly(priv, pub)
}

func TestSearchLaneTestsEachKeyOnce(t *testing.T) {
	c := &countingKeys{seen: make(map[[32]byte]int)}
	p := &Pipeline{Deriver: Deriver{PublicKey: c.publicKey, Encoding: keccak.Lane64}}

	never, err := NewPattern([]byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff}, MatchPrefix, Bytes, false)
	require.NoError(t, err)
	d := &Dispatch{
		Seeds:      []SeedVector{{}},
		Params:     SearchParams{KeysPerLane: 16},
		Pattern:    never,
		AddressLen: 20,
		Result:     NewResultBuffer(1),
	}
	p.SearchLane(d, 0)

	for key, n := range c.seen {
		assert.Equal(t, 1, n, "key %x tested %d times", key, n)
	}
	// counters 0..15, the even ones rejected
	assert.Len(t, c.seen, 16)
	assert.False(t, d.Result.Found())
}
