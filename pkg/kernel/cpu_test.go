package kernel

import (
	"context"
	"math/rand"
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/sha3"

	"github.com/Amr-9/omnivanity/pkg/kernel/keccak"
)

func testSeeds(t *testing.T, lanes int, seed int64) []SeedVector {
	t.Helper()
	seeds, err := NewSeedVectors(rand.New(rand.NewSource(seed)), lanes)
	require.NoError(t, err)
	return seeds
}

// addressAt derives the address lane tests at index i.
func addressAt(b *CPUBackend, seeds []SeedVector, lane uint32, offset uint64, i uint32, addrLen int) (CandidateKey, []byte) {
	k := KeyAt(seeds[lane], lane, offset, i)
	addr := make([]byte, addrLen)
	b.Pipeline().Deriver.Derive(&k, addr)
	return k, addr
}

func TestSearchFindsTheOnlyMatch(t *testing.T) {
	const (
		lanes  = 64
		keys   = 32
		offset = 5
	)
	b := NewCPUBackend(WithPublicKey(mirrorKey), WithWorkers(16), WithWorkgroupSize(1))
	seeds := testSeeds(t, lanes, 30)

	key, addr := addressAt(b, seeds, 37, offset, 11, 20)
	pattern, err := NewPattern(addr, MatchPrefix, Bytes, false)
	require.NoError(t, err)

	d := &Dispatch{
		Seeds:      seeds,
		Params:     SearchParams{IterationOffset: offset, KeysPerLane: keys},
		Pattern:    pattern,
		AddressLen: 20,
		Result:     NewResultBuffer(lanes),
	}
	require.NoError(t, b.Search(context.Background(), d))

	res := d.Result.Result()
	require.True(t, res.Found)
	assert.Equal(t, uint32(37), res.Lane)
	assert.Equal(t, key.Bytes(), res.Key)
	assert.Equal(t, addr, res.Address)
}

func TestSearchManyMatchesOneWinner(t *testing.T) {
	const (
		lanes = 256
		keys  = 32
	)
	b := NewCPUBackend(WithPublicKey(mirrorKey), WithWorkers(32), WithWorkgroupSize(2))
	seeds := testSeeds(t, lanes, 31)
	pattern, err := ParseHexPattern("a", MatchPrefix)
	require.NoError(t, err)

	for offset := uint64(0); offset < 4; offset++ {
		d := &Dispatch{
			Seeds:      seeds,
			Params:     SearchParams{IterationOffset: offset, KeysPerLane: keys},
			Pattern:    pattern,
			AddressLen: 20,
			Result:     NewResultBuffer(lanes),
		}
		require.NoError(t, b.Search(context.Background(), d))

		res := d.Result.Result()
		require.True(t, res.Found)
		require.Less(t, res.Lane, uint32(lanes))
		assert.True(t, pattern.Match(res.Address))

		// the key belongs to the winning lane's stream for this dispatch
		k := KeyFromBytes(res.Key)
		start := LaneStart(seeds[res.Lane], res.Lane, offset)
		assert.Equal(t, start[1:], k[1:])
		assert.Less(t, k[0]-start[0], uint32(keys))

		addr, ok := b.Pipeline().Deriver.AddressOf(res.Key, 20)
		require.True(t, ok)
		assert.Equal(t, addr, res.Address)
	}
}

func TestSearchWithoutMatch(t *testing.T) {
	b := NewCPUBackend(WithPublicKey(mirrorKey))
	pattern, err := NewPattern(nil, MatchContains, Nibbles, false)
	require.NoError(t, err)

	d := &Dispatch{
		Seeds:      testSeeds(t, 16, 32),
		Params:     SearchParams{KeysPerLane: 8},
		Pattern:    pattern,
		AddressLen: 20,
		Result:     NewResultBuffer(16),
	}
	require.NoError(t, b.Search(context.Background(), d))
	assert.False(t, d.Result.Found())
	assert.False(t, d.Result.Result().Found)
}

func TestBackendEncodingsAgree(t *testing.T) {
	const (
		lanes = 8
		keys  = 16
	)
	seeds := testSeeds(t, lanes, 33)
	b64 := NewCPUBackend(WithEncoding(Lane64Encoding))
	b32 := NewCPUBackend(WithEncoding(Lane32Encoding))
	require.Equal(t, "cpu64", b64.Name())
	require.Equal(t, "cpu32", b32.Name())

	_, addr := addressAt(b64, seeds, 5, 0, 3, 20)
	_, addr32 := addressAt(b32, seeds, 5, 0, 3, 20)
	require.Equal(t, addr, addr32)

	pattern, err := NewPattern(addr, MatchSuffix, Bytes, false)
	require.NoError(t, err)

	var results []MatchResult
	for _, b := range []*CPUBackend{b64, b32} {
		d := &Dispatch{
			Seeds:      seeds,
			Params:     SearchParams{KeysPerLane: keys},
			Pattern:    pattern,
			AddressLen: 20,
			Result:     NewResultBuffer(lanes),
		}
		require.NoError(t, b.Search(context.Background(), d))
		results = append(results, d.Result.Result())
	}
	require.True(t, results[0].Found)
	assert.Equal(t, results[0], results[1])
}

func TestSearchDeadPrefix(t *testing.T) {
	if testing.Short() {
		t.Skip("runs real curve arithmetic")
	}
	// 16384 keys per dispatch against odds of 1/65536: the chance that 64
	// dispatches all miss is about e^-16.
	const (
		lanes      = 256
		keys       = 64
		dispatches = 64
	)
	b := NewCPUBackend()
	pattern, err := ParseHexPattern("dead", MatchPrefix)
	require.NoError(t, err)
	seeds := testSeeds(t, lanes, 34)

	var res MatchResult
	for offset := uint64(0); offset < dispatches && !res.Found; offset++ {
		d := &Dispatch{
			Seeds:      seeds,
			Params:     SearchParams{IterationOffset: offset, KeysPerLane: keys},
			Pattern:    pattern,
			AddressLen: 20,
			Result:     NewResultBuffer(lanes),
		}
		require.NoError(t, b.Search(context.Background(), d))
		res = d.Result.Result()
	}

	require.True(t, res.Found, "no dead... address in %d keys", lanes*keys*dispatches)
	assert.True(t, pattern.Match(res.Address))
	assert.Equal(t, byte(0xde), res.Address[0])
	assert.Equal(t, byte(0xad), res.Address[1])
	priv, err := crypto.ToECDSA(res.Key[:])
	require.NoError(t, err)
	assert.Equal(t, crypto.PubkeyToAddress(priv.PublicKey).Bytes(), res.Address)
}

func TestBenchmarkCountsEveryKey(t *testing.T) {
	const (
		lanes = 16
		keys  = 100
	)
	b := NewCPUBackend(WithPublicKey(mirrorKey), WithWorkers(4))
	seeds := testSeeds(t, lanes, 35)

	for _, full := range []bool{false, true} {
		c := &Counter{}
		d := &BenchDispatch{
			Seeds:        seeds,
			Params:       SearchParams{IterationOffset: 9, KeysPerLane: keys},
			FullPipeline: full,
			AddressLen:   20,
			Counter:      c,
		}
		require.NoError(t, b.Benchmark(context.Background(), d))
		assert.Equal(t, uint64(lanes*keys), c.Keys())
	}
}

func TestLaunchHonoursCancelledContext(t *testing.T) {
	b := NewCPUBackend(WithPublicKey(mirrorKey))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := &Counter{}
	err := b.Benchmark(ctx, &BenchDispatch{
		Seeds:   testSeeds(t, 4, 36),
		Params:  SearchParams{KeysPerLane: 10},
		Counter: c,
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, c.Keys())
}

func TestDispatchValidation(t *testing.T) {
	b := NewCPUBackend(WithPublicKey(mirrorKey))
	pattern, err := ParseHexPattern("ab", MatchPrefix)
	require.NoError(t, err)
	seeds := testSeeds(t, 4, 37)

	cases := map[string]*Dispatch{
		"no lanes":     {Params: SearchParams{KeysPerLane: 1}, Pattern: pattern, AddressLen: 20, Result: NewResultBuffer(4)},
		"no keys":      {Seeds: seeds, Pattern: pattern, AddressLen: 20, Result: NewResultBuffer(4)},
		"no pattern":   {Seeds: seeds, Params: SearchParams{KeysPerLane: 1}, AddressLen: 20, Result: NewResultBuffer(4)},
		"no address":   {Seeds: seeds, Params: SearchParams{KeysPerLane: 1}, Pattern: pattern, Result: NewResultBuffer(4)},
		"long address": {Seeds: seeds, Params: SearchParams{KeysPerLane: 1}, Pattern: pattern, AddressLen: 33, Result: NewResultBuffer(4)},
		"small result": {Seeds: seeds, Params: SearchParams{KeysPerLane: 1}, Pattern: pattern, AddressLen: 20, Result: NewResultBuffer(2)},
	}
	for name, d := range cases {
		t.Run(name, func(t *testing.T) {
			assert.ErrorIs(t, b.Search(context.Background(), d), ErrInvalidDispatch)
		})
	}

	bad := *pattern
	bad.Mode = 7
	err = b.Search(context.Background(), &Dispatch{
		Seeds: seeds, Params: SearchParams{KeysPerLane: 1}, Pattern: &bad, AddressLen: 20, Result: NewResultBuffer(4),
	})
	assert.ErrorIs(t, err, ErrInvalidMode)
}

func TestMatchBatch(t *testing.T) {
	b := NewCPUBackend(WithWorkers(8), WithWorkgroupSize(3))
	pattern, err := TextPattern("Dead", MatchContains, true)
	require.NoError(t, err)

	addrs := [][]byte{
		[]byte("T9xkq"),
		[]byte("TxxDEADxx"),
		[]byte(""),
		[]byte("deadbeef"),
		[]byte("dea"),
		[]byte("xxxxxxxxxxxxxdEaD"),
	}
	d := &BatchDispatch{Addresses: addrs, Pattern: pattern, Result: NewBatchResult(len(addrs))}
	require.NoError(t, b.MatchBatch(context.Background(), d))

	assert.Equal(t, []uint32{0, 1, 0, 1, 0, 1}, d.Result.Flags)
	first, ok := d.Result.First()
	require.True(t, ok)
	assert.Equal(t, 1, first)
	assert.Equal(t, []int{1, 3, 5}, d.Result.Matches())
}

func TestMatchBatchEmpty(t *testing.T) {
	b := NewCPUBackend()
	pattern, err := TextPattern("x", MatchPrefix, false)
	require.NoError(t, err)
	d := &BatchDispatch{Pattern: pattern, Result: NewBatchResult(0)}
	require.NoError(t, b.MatchBatch(context.Background(), d))
	_, ok := d.Result.First()
	assert.False(t, ok)
}

func TestCPUDevice(t *testing.T) {
	dev := NewCPUBackend().Device()
	assert.NotEmpty(t, dev.Name)
	assert.Positive(t, dev.ComputeUnits)
}

func TestDefaultEncoding(t *testing.T) {
	b := NewCPUBackend()
	assert.Contains(t, []keccak.Encoding{keccak.Lane64, keccak.Lane32}, b.Encoding())
}

func TestParseKind(t *testing.T) {
	for _, s := range []string{"auto", "opencl", "cpu64", "CPU32"} {
		_, err := ParseKind(s)
		assert.NoError(t, err)
	}
	_, err := ParseKind("cuda")
	assert.Error(t, err)
}

func TestDigestMatchesReference(t *testing.T) {
	rng := rand.New(rand.NewSource(41))
	blocks := make([][PublicKeySize]byte, 37)
	for i := range blocks {
		rng.Read(blocks[i][:])
	}
	for _, enc := range encodings {
		b := NewCPUBackend(WithEncoding(enc), WithWorkers(3), WithWorkgroupSize(4))
		got, err := b.Digest(context.Background(), blocks)
		require.NoError(t, err)
		require.Len(t, got, len(blocks))
		for i := range blocks {
			ref := sha3.NewLegacyKeccak256()
			ref.Write(blocks[i][:])
			assert.Equal(t, ref.Sum(nil), got[i][:], "%s block %d", enc, i)
		}
	}

	var _ Digester = NewCPUBackend()
}
