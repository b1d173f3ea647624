package tron

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Amr-9/omnivanity/pkg/kernel"
	"github.com/Amr-9/omnivanity/pkg/kernel/keccak"
)

func TestAddressRoundTrip(t *testing.T) {
	var key [32]byte
	key[31] = 1
	deriver := kernel.NewDeriver(keccak.Lane64)
	raw, ok := deriver.AddressOf(key, 20)
	require.True(t, ok)

	addr := Address(raw)
	assert.Equal(t, byte('T'), addr[0])
	assert.Len(t, addr, 34)

	back, err := Decode(addr)
	require.NoError(t, err)
	assert.Equal(t, "7e5f4552091a69125d5dfcb7b8c2659029395bdf", hex.EncodeToString(back))
}

func TestDecodeRejects(t *testing.T) {
	_, err := Decode("1BgGZ9tcN4rm9KBzDn7KprQz87SZ26SAMH")
	assert.Error(t, err, "bitcoin version byte")

	addr := []byte(Address(make([]byte, 20)))
	addr[5] ^= 1
	_, err = Decode(string(addr))
	assert.Error(t, err)
}
