package ethereum

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"math/rand"

	"github.com/ethereum/go-ethereum/crypto"
	"golang.org/x/crypto/sha3"

	"github.com/Amr-9/omnivanity/pkg/kernel"
	"github.com/Amr-9/omnivanity/pkg/kernel/keccak"
)

// CheckResult is the outcome of one self-check.
type CheckResult struct {
	Name     string
	Input    string
	Got      string
	Want     string
	Match    bool
	ErrorMsg string
}

var knownAddresses = []struct {
	key  byte
	addr string
}{
	{1, "7e5f4552091a69125d5dfcb7b8c2659029395bdf"},
	{2, "2b5ad5c4795c026514f8317c7a215e218dccd6cf"},
	{3, "6813eb9362372eef6200f3b1dbc3f819671cba69"},
}

// SelfCheck compares both permutation encodings with x/crypto's Keccak,
// checks known addresses, and checks that the deriver agrees with
// go-ethereum on random keys. b, if not nil, must also find a planted
// match at a known lane and index, and if it is a kernel.Digester its
// digests must match x/crypto's as well.
func SelfCheck(ctx context.Context, b kernel.Backend, samples int) ([]CheckResult, bool) {
	if samples <= 0 {
		samples = 1
	}
	var results []CheckResult
	r := rand.New(rand.NewSource(rand.Int63()))

	// digest parity
	for i := 0; i < samples; i++ {
		msg := make([]byte, r.Intn(keccak.MaxInput+1))
		r.Read(msg)
		ref := sha3.NewLegacyKeccak256()
		ref.Write(msg)
		want := hex.EncodeToString(ref.Sum(nil))
		for _, enc := range []keccak.Encoding{keccak.Lane64, keccak.Lane32} {
			got := keccak.Sum256(enc, msg)
			results = append(results, check(fmt.Sprintf("keccak %s len=%d", enc, len(msg)), hex.EncodeToString(msg), hex.EncodeToString(got[:]), want))
		}
	}

	// known answers
	for _, enc := range []keccak.Encoding{keccak.Lane64, keccak.Lane32} {
		d := kernel.NewDeriver(enc)
		for _, tc := range knownAddresses {
			var priv [32]byte
			priv[31] = tc.key
			addr, ok := d.AddressOf(priv, 20)
			if !ok {
				results = append(results, CheckResult{Name: "known address", Input: hex.EncodeToString(priv[:]), ErrorMsg: "key rejected"})
				continue
			}
			results = append(results, check(fmt.Sprintf("known address %s", enc), hex.EncodeToString(priv[:]), hex.EncodeToString(addr), tc.addr))
		}
	}

	// deriver vs go-ethereum
	seeds, err := kernel.NewSeedVectors(r, samples)
	if err != nil {
		results = append(results, CheckResult{Name: "seeds", ErrorMsg: err.Error()})
		return results, false
	}
	d := kernel.NewDeriver(keccak.Lane64)
	for lane := range seeds {
		k := kernel.KeyAt(seeds[lane], uint32(lane), 0, 0)
		addr := make([]byte, 20)
		d.Derive(&k, addr)
		priv := k.Bytes()
		results = append(results, referenceCheck(priv, addr))
	}

	if b != nil {
		if dg, ok := b.(kernel.Digester); ok {
			results = append(results, digestChecks(ctx, b.Name(), dg, r, samples)...)
		}
		results = append(results, plantedCheck(ctx, b, r))
	}

	passed := true
	for _, res := range results {
		passed = passed && res.Match
	}
	return results, passed
}

func check(name, input, got, want string) CheckResult {
	return CheckResult{Name: name, Input: input, Got: got, Want: want, Match: got == want}
}

func referenceCheck(priv [32]byte, addr []byte) CheckResult {
	key, err := crypto.ToECDSA(priv[:])
	if err != nil {
		return CheckResult{Name: "go-ethereum agreement", Input: hex.EncodeToString(priv[:]), ErrorMsg: err.Error()}
	}
	want := crypto.PubkeyToAddress(key.PublicKey)
	return check("go-ethereum agreement", hex.EncodeToString(priv[:]), hex.EncodeToString(addr), hex.EncodeToString(want.Bytes()))
}

// digestChecks hashes random public-key blocks on the backend and compares
// every digest with x/crypto and with the host permutation.
func digestChecks(ctx context.Context, backend string, dg kernel.Digester, r *rand.Rand, samples int) []CheckResult {
	name := "device keccak on " + backend
	blocks := make([][kernel.PublicKeySize]byte, samples)
	for i := range blocks {
		r.Read(blocks[i][:])
	}
	got, err := dg.Digest(ctx, blocks)
	if err != nil {
		skipped := errors.Is(err, kernel.ErrRuntimeUnavailable)
		return []CheckResult{{Name: name, Match: skipped, ErrorMsg: err.Error()}}
	}
	if len(got) != len(blocks) {
		return []CheckResult{{Name: name, ErrorMsg: fmt.Sprintf("%d digests for %d blocks", len(got), len(blocks))}}
	}

	results := make([]CheckResult, 0, len(blocks))
	for i := range blocks {
		ref := sha3.NewLegacyKeccak256()
		ref.Write(blocks[i][:])
		want := hex.EncodeToString(ref.Sum(nil))
		host := keccak.Sum256(keccak.Lane64, blocks[i][:])
		c := check(name, hex.EncodeToString(blocks[i][:]), hex.EncodeToString(got[i][:]), want)
		c.Match = c.Match && hex.EncodeToString(host[:]) == want
		results = append(results, c)
	}
	return results
}

// plantedCheck searches for the full address of a key the dispatch is
// known to test, so the search must report exactly that key.
func plantedCheck(ctx context.Context, b kernel.Backend, r *rand.Rand) CheckResult {
	const (
		lanes = 32
		keys  = 8
	)
	name := "planted search on " + b.Name()
	seeds, err := kernel.NewSeedVectors(r, lanes)
	if err != nil {
		return CheckResult{Name: name, ErrorMsg: err.Error()}
	}
	lane, idx := uint32(r.Intn(lanes)), uint32(r.Intn(keys))
	k := kernel.KeyAt(seeds[lane], lane, 1, idx)
	want := make([]byte, 20)
	deriver := kernel.NewDeriver(keccak.Lane64)
	deriver.Derive(&k, want)

	pattern, err := kernel.NewPattern(want, kernel.MatchPrefix, kernel.Bytes, false)
	if err != nil {
		return CheckResult{Name: name, ErrorMsg: err.Error()}
	}
	d := &kernel.Dispatch{
		Seeds:      seeds,
		Params:     kernel.SearchParams{IterationOffset: 1, KeysPerLane: keys},
		Pattern:    pattern,
		AddressLen: 20,
		Result:     kernel.NewResultBuffer(lanes),
	}
	if err := b.Search(ctx, d); err != nil {
		// backends missing from this build are skipped, not failed
		skipped := errors.Is(err, kernel.ErrRuntimeUnavailable)
		return CheckResult{Name: name, Match: skipped, ErrorMsg: err.Error()}
	}
	res := d.Result.Result()
	wantKey := k.Bytes()
	got := fmt.Sprintf("found=%t lane=%d key=%x", res.Found, res.Lane, res.Key)
	exp := fmt.Sprintf("found=true lane=%d key=%x", lane, wantKey)
	c := check(name, hex.EncodeToString(want), got, exp)
	c.Match = c.Match && bytes.Equal(res.Address, want)
	return c
}
