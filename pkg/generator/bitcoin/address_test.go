package bitcoin

import (
	"strings"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil/bech32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Amr-9/omnivanity/pkg/generator"
)

func keyOne() (*btcec.PrivateKey, *btcec.PublicKey) {
	var b [32]byte
	b[31] = 1
	return btcec.PrivKeyFromBytes(b[:])
}

func TestKnownAddresses(t *testing.T) {
	priv, pub := keyOne()

	legacy, err := Address(pub, generator.AddressTypeLegacy)
	require.NoError(t, err)
	assert.Equal(t, "1BgGZ9tcN4rm9KBzDn7KprQz87SZ26SAMH", legacy)

	nested, err := Address(pub, generator.AddressTypeNestedSegWit)
	require.NoError(t, err)
	assert.Equal(t, "3JvL6Ymt8MVWiCNHC7oWU6nLeHNJKLZGLN", nested)

	assert.Equal(t, "KwDiBf89QgGbjEhKnhXJuH7LrciVrZi3qYjgd9M7rFU73sVHnoWn", WIF(priv))
}

func TestTaprootAddress(t *testing.T) {
	_, pub := keyOne()
	addr, err := Address(pub, generator.AddressTypeTaproot)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(addr, "bc1p"), addr)
	assert.Len(t, addr, 62)
	assert.Equal(t, "bc1pmfr3p9j00pfxjh0zmgp99y8zftmd3s5pmedqhyptwy6lm87hf5sspknck9", addr)

	hrp, data, version, err := bech32.DecodeGeneric(addr)
	require.NoError(t, err)
	assert.Equal(t, "bc", hrp)
	assert.Equal(t, bech32.VersionM, version)
	assert.Equal(t, byte(1), data[0])

	def, err := Address(pub, generator.AddressTypeDefault)
	require.NoError(t, err)
	assert.Equal(t, addr, def)
}
