package codec

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func flip(payload string, positions ...int) string {
	b := []byte(payload)
	for _, p := range positions {
		if b[p] == '0' {
			b[p] = '1'
		} else {
			b[p] = '0'
		}
	}
	return string(b)
}

func TestEncode(t *testing.T) {
	t.Run("payload shape", func(t *testing.T) {
		p, err := Encode(12345)
		require.NoError(t, err)
		assert.Len(t, p, PayloadLength)
		assert.Equal(t, byte('1'), p[PayloadLength-1])
		assert.Equal(t, PayloadLength, strings.Count(p, "0")+strings.Count(p, "1"))
	})

	t.Run("rejects identifiers beyond the message length", func(t *testing.T) {
		_, err := Encode(MaxID + 1)
		assert.Error(t, err)
	})

	t.Run("deterministic", func(t *testing.T) {
		a, err := Encode(987654321)
		require.NoError(t, err)
		b, err := Encode(987654321)
		require.NoError(t, err)
		assert.Equal(t, a, b)
	})
}

func TestDecode_RoundTrip(t *testing.T) {
	ids := []uint64{0, 1, 2, 63, 64, 12345, 1 << 20, MaxID - 1, MaxID}
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 200; i++ {
		ids = append(ids, rng.Uint64()&MaxID)
	}
	for _, id := range ids {
		p, err := Encode(id)
		require.NoError(t, err)
		got, corrected, err := Decode(p)
		require.NoError(t, err, "id=%d", id)
		assert.Equal(t, id, got, "id=%d", id)
		assert.Equal(t, 0, corrected, "id=%d", id)
	}
}

func TestDecode_BoundedCorrection(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	for trial := 0; trial < 300; trial++ {
		id := rng.Uint64() & MaxID
		p, err := Encode(id)
		require.NoError(t, err)

		k := 1 + rng.Intn(CorrectionRadius)
		positions := rng.Perm(BlockLength)[:k] // never the framing bit
		got, corrected, err := Decode(flip(p, positions...))
		require.NoError(t, err, "id=%d flips=%v", id, positions)
		assert.Equal(t, id, got, "id=%d flips=%v", id, positions)
		assert.Equal(t, k, corrected, "id=%d flips=%v", id, positions)
	}
}

func TestDecode_FramingBitCarriesNoData(t *testing.T) {
	p, err := Encode(77)
	require.NoError(t, err)
	got, corrected, err := Decode(flip(p, PayloadLength-1))
	require.NoError(t, err)
	assert.Equal(t, uint64(77), got)
	assert.Equal(t, 0, corrected)
}

func TestDecode_BeyondRadius(t *testing.T) {
	// Five flips exceed the correction radius: the decoder must either
	// fail or land on a different codeword. It can never return the
	// original identifier, which sits at distance five.
	rng := rand.New(rand.NewSource(3))
	sawFailure := false
	for trial := 0; trial < 200; trial++ {
		id := rng.Uint64() & MaxID
		p, err := Encode(id)
		require.NoError(t, err)

		positions := rng.Perm(BlockLength)[:CorrectionRadius+1]
		got, _, err := Decode(flip(p, positions...))
		if err != nil {
			require.ErrorIs(t, err, ErrUncorrectable)
			sawFailure = true
			continue
		}
		assert.NotEqual(t, id, got, "flips=%v", positions)
	}
	assert.True(t, sawFailure, "expected at least one uncorrectable pattern in 200 trials")
}

func TestDecode_Malformed(t *testing.T) {
	t.Run("wrong length", func(t *testing.T) {
		_, _, err := Decode(strings.Repeat("0", BlockLength))
		assert.ErrorIs(t, err, ErrMalformedPayload)
	})
	t.Run("wrong alphabet", func(t *testing.T) {
		p, err := Encode(5)
		require.NoError(t, err)
		b := []byte(p)
		b[10] = 'x'
		_, _, err = Decode(string(b))
		assert.ErrorIs(t, err, ErrMalformedPayload)
	})
}

func TestGeneratorShape(t *testing.T) {
	// Monic, degree 24, and divides every encoded codeword.
	require.NotZero(t, generator&(1<<ParityLength))
	assert.Zero(t, generator>>(ParityLength+1))

	for _, id := range []uint64{1, 42, MaxID} {
		cw := encodeBlock(id)
		rem := cw
		for i := BlockLength - 1; i >= ParityLength; i-- {
			if rem&(1<<uint(i)) != 0 {
				rem ^= generator << uint(i-ParityLength)
			}
		}
		assert.Zero(t, rem, "codeword for %d not divisible by generator", id)
	}
}
