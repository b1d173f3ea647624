package bitcoin

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Amr-9/omnivanity/pkg/generator"
)

// hash160 of the compressed public key of scalar 1
const keyOneHash = "751e76e8199196d454941c45d1b3a323f1433bd6"

func TestChainAddresses(t *testing.T) {
	priv, pub := keyOne()
	cases := []struct {
		network generator.Network
		prefix  string
	}{
		{generator.Litecoin, "L"},
		{generator.Dogecoin, "D"},
		{generator.Zcash, "t1"},
	}
	for _, tc := range cases {
		t.Run(tc.network.String(), func(t *testing.T) {
			c, ok := ChainOf(tc.network)
			require.True(t, ok)

			addr := c.Address(pub)
			assert.Equal(t, tc.prefix, addr[:len(tc.prefix)])
			assert.Len(t, addr, len(tc.prefix)+tc.network.Layout(generator.AddressTypeDefault).Searchable)

			version, payload, err := generator.DecodeBase58Check(addr)
			require.NoError(t, err)
			assert.Equal(t, c.P2PKH[0], version)
			assert.Equal(t, keyOneHash, hex.EncodeToString(payload[len(c.P2PKH)-1:]))

			secret, key, err := generator.DecodeBase58Check(c.WIF(priv))
			require.NoError(t, err)
			assert.Equal(t, c.Secret, secret)
			assert.Equal(t, append(priv.Serialize(), 0x01), key)
		})
	}

	_, ok := ChainOf(generator.Bitcoin)
	assert.False(t, ok)
}

func TestZcashSharesBitcoinWIF(t *testing.T) {
	priv, _ := keyOne()
	assert.Equal(t, WIF(priv), Zcash.WIF(priv))
}
