package generator

import (
	"bytes"
	"crypto/sha256"
	"errors"

	"github.com/mr-tron/base58"
)

// ErrChecksum is returned for Base58Check strings with a bad checksum.
var ErrChecksum = errors.New("base58check: bad checksum")

// Base58Check encodes version‖payload followed by the first four bytes of
// its double SHA-256.
func Base58Check(version byte, payload []byte) string {
	return Base58CheckPrefix([]byte{version}, payload)
}

// Base58CheckPrefix is Base58Check with a multi-byte version, as used by
// Zcash transparent addresses.
func Base58CheckPrefix(version, payload []byte) string {
	data := make([]byte, 0, len(version)+len(payload)+4)
	data = append(data, version...)
	data = append(data, payload...)
	sum := checksum(data)
	return base58.Encode(append(data, sum[:]...))
}

// DecodeBase58Check reverses Base58Check.
func DecodeBase58Check(s string) (version byte, payload []byte, err error) {
	raw, err := base58.Decode(s)
	if err != nil {
		return 0, nil, err
	}
	if len(raw) < 5 {
		return 0, nil, ErrChecksum
	}
	data, sum := raw[:len(raw)-4], raw[len(raw)-4:]
	want := checksum(data)
	if !bytes.Equal(sum, want[:]) {
		return 0, nil, ErrChecksum
	}
	return data[0], data[1:], nil
}

func checksum(data []byte) (out [4]byte) {
	first := sha256.Sum256(data)
	second := sha256.Sum256(first[:])
	copy(out[:], second[:4])
	return out
}
