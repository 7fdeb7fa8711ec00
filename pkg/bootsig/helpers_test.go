package bootsig

import (
	"encoding/json"
	"math/big"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mahdiidarabi/bootsig/internal/parser"
)

// fixturesDir returns the fixtures directory relative to this package.
func fixturesDir() string {
	return filepath.Join("..", "..", "fixtures")
}

// cubeRootVector is a 2048-bit modulus with its Montgomery constants and a
// signature whose cube is message.
type cubeRootVector struct {
	Modulus   *big.Int
	RSquare   *big.Int
	M0Inv     uint32
	Signature *big.Int
	Message   *big.Int
}

func loadCubeRootVector(t *testing.T) cubeRootVector {
	t.Helper()

	data, err := os.ReadFile(filepath.Join(fixturesDir(), "cube_root_2048.json"))
	require.NoError(t, err)

	var raw map[string]string
	require.NoError(t, json.Unmarshal(data, &raw))

	num := func(name string) *big.Int {
		v, err := parser.ParseBigInt(raw[name])
		require.NoError(t, err, name)
		return v
	}
	m0Inv, err := parser.ParseUint32(raw["m0_inv"])
	require.NoError(t, err)

	return cubeRootVector{
		Modulus:   num("modulus"),
		RSquare:   num("r_square"),
		M0Inv:     m0Inv,
		Signature: num("signature"),
		Message:   num("message"),
	}
}

// randomModulus returns an odd modulus of exactly bits bits.
func randomModulus(rng *rand.Rand, bits int) *big.Int {
	n := new(big.Int).Rand(rng, new(big.Int).Lsh(big.NewInt(1), uint(bits)))
	n.SetBit(n, bits-1, 1)
	n.SetBit(n, 0, 1)
	return n
}

// randomBelow returns a uniform value in [0, n).
func randomBelow(rng *rand.Rand, n *big.Int) *big.Int {
	return new(big.Int).Rand(rng, n)
}

func mustInt(t testing.TB, x *big.Int) *Int {
	t.Helper()
	z, err := IntFromBig(x)
	require.NoError(t, err)
	return z
}

// rBig returns R = 2^(32*NumWords).
func rBig() *big.Int {
	return new(big.Int).Lsh(big.NewInt(1), NumWords*wordBits)
}

func mustKey(t testing.TB, n *big.Int, e Exponent) *PublicKey {
	t.Helper()
	key, err := NewPublicKey(n, e)
	require.NoError(t, err)
	return key
}
