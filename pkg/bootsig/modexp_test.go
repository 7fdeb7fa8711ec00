package bootsig

import (
	"math/big"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var supportedExponents = []Exponent{Exponent3, Exponent65537}

func TestModExp_MatchesReference(t *testing.T) {
	rng := rand.New(rand.NewSource(20))

	for _, bits := range testModulusBits {
		n := randomModulus(rng, bits)
		for _, e := range supportedExponents {
			key := mustKey(t, n, e)
			for i := 0; i < 5; i++ {
				x := randomBelow(rng, n)

				var out Int
				require.NoError(t, key.ModExp(&out, mustInt(t, x)))

				want := new(big.Int).Exp(x, big.NewInt(int64(e)), n)
				require.Zero(t, out.Big().Cmp(want), "bits=%d e=%s x=%x", bits, e, x)
			}
		}
	}
}

func TestModExp_Boundaries(t *testing.T) {
	rng := rand.New(rand.NewSource(21))
	n := randomModulus(rng, 3072)
	nMinus1 := new(big.Int).Sub(n, big.NewInt(1))

	for _, e := range supportedExponents {
		t.Run("e="+e.String(), func(t *testing.T) {
			key := mustKey(t, n, e)

			var out Int
			require.NoError(t, key.ModExp(&out, &Int{}))
			assert.True(t, out.IsZero())

			require.NoError(t, key.ModExp(&out, &Int{1}))
			assert.Equal(t, Int{1}, out)

			// Both exponents are odd, so (m-1)^e = -1 = m-1 mod m.
			require.NoError(t, key.ModExp(&out, mustInt(t, nMinus1)))
			want := new(big.Int).Exp(nMinus1, big.NewInt(int64(e)), n)
			assert.Zero(t, out.Big().Cmp(want))
			assert.Zero(t, out.Big().Cmp(nMinus1))
		})
	}
}

func TestModExp_UnsupportedExponent(t *testing.T) {
	rng := rand.New(rand.NewSource(22))
	n := randomModulus(rng, 3072)
	key := mustKey(t, n, Exponent3)
	sig := mustInt(t, randomBelow(rng, n))

	for _, e := range []Exponent{0, 1, 5, 17, 65536, 65539} {
		out := Int{0xdeadbeef, 0xcafe}
		before := out

		err := ModExp(&out, sig, e, &key.RSquare, &key.Modulus, key.M0Inv)
		assert.ErrorIs(t, err, ErrUnsupportedExponent, "e=%d", e)
		assert.Equal(t, before, out, "out modified for e=%d", e)
	}
}

func TestModExp_OutAliasesSignature(t *testing.T) {
	rng := rand.New(rand.NewSource(23))
	n := randomModulus(rng, 2048)
	key := mustKey(t, n, Exponent65537)
	x := randomBelow(rng, n)

	sig := mustInt(t, x)
	require.NoError(t, key.ModExp(sig, sig))
	assert.Zero(t, sig.Big().Cmp(new(big.Int).Exp(x, big.NewInt(65537), n)))
}

func TestModExp_CubeRoot2048(t *testing.T) {
	v := loadCubeRootVector(t)

	// The fixture carries its own constants; they must agree with derivation.
	key := mustKey(t, v.Modulus, Exponent3)
	require.Equal(t, v.M0Inv, key.M0Inv)
	require.Zero(t, key.RSquare.Big().Cmp(v.RSquare))

	var out Int
	err := ModExp(&out, mustInt(t, v.Signature), Exponent3, mustInt(t, v.RSquare), mustInt(t, v.Modulus), v.M0Inv)
	require.NoError(t, err)
	assert.Zero(t, out.Big().Cmp(v.Message), "got %s", out.String())
}

func TestParseExponent(t *testing.T) {
	e, err := ParseExponent(3)
	require.NoError(t, err)
	assert.Equal(t, Exponent3, e)

	e, err = ParseExponent(65537)
	require.NoError(t, err)
	assert.Equal(t, Exponent65537, e)

	for _, raw := range []uint64{0, 5, 65536, 1 << 40} {
		_, err := ParseExponent(raw)
		assert.ErrorIs(t, err, ErrUnsupportedExponent, "e=%d", raw)
	}

	assert.True(t, Exponent3.Valid())
	assert.False(t, Exponent(7).Valid())
	assert.Equal(t, "65537", Exponent65537.String())
}

func benchmarkModExp(b *testing.B, e Exponent) {
	b.StopTimer()

	rng := rand.New(rand.NewSource(1))
	n := randomModulus(rng, 3072)
	key := mustKey(b, n, e)
	sig := mustInt(b, randomBelow(rng, n))
	var out Int

	b.StartTimer()
	for i := 0; i < b.N; i++ {
		if err := key.ModExp(&out, sig); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkModExp3(b *testing.B)     { benchmarkModExp(b, Exponent3) }
func BenchmarkModExp65537(b *testing.B) { benchmarkModExp(b, Exponent65537) }
