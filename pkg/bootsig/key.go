package bootsig

import (
	"math/big"

	"github.com/pkg/errors"
)

var (
	// ErrEvenModulus is returned for a modulus that has no Montgomery form.
	ErrEvenModulus = errors.New("modulus must be odd")
	// ErrModulusTooSmall is returned for moduli below 3.
	ErrModulusTooSmall = errors.New("modulus too small")
	// ErrInvalidM0Inv is returned when M0Inv * m[0] != -1 mod 2^32.
	ErrInvalidM0Inv = errors.New("m0_inv does not match modulus")
	// ErrInvalidRSquare is returned when RSquare != R^2 mod m.
	ErrInvalidRSquare = errors.New("r_square does not match modulus")
)

// PublicKey is an RSA public key together with the Montgomery constants the
// verifier consumes.
//
// The modulus must be odd and fit in NumWords words. It need not fill the top
// word: moduli at or below R/2, such as 2048-bit keys, are accepted. MontMul
// keeps its result below y + Modulus and ModExp ends on a multiply by a
// signature below Modulus, so one final subtraction still reduces fully.
type PublicKey struct {
	Modulus  Int
	RSquare  Int    // R^2 mod Modulus, R = 2^(32*NumWords)
	M0Inv    uint32 // -Modulus^-1 mod 2^32
	Exponent Exponent
}

// NewPublicKey derives the Montgomery constants for n and returns the key.
func NewPublicKey(n *big.Int, e Exponent) (*PublicKey, error) {
	if !e.Valid() {
		return nil, errors.Wrapf(ErrUnsupportedExponent, "e=%d", uint32(e))
	}
	if n.Cmp(big.NewInt(3)) < 0 {
		return nil, ErrModulusTooSmall
	}
	if n.Bit(0) == 0 {
		return nil, ErrEvenModulus
	}
	m, err := IntFromBig(n)
	if err != nil {
		return nil, errors.Wrap(err, "modulus")
	}
	rr, err := IntFromBig(rSquare(n))
	if err != nil {
		return nil, errors.Wrap(err, "r_square")
	}
	return &PublicKey{
		Modulus:  *m,
		RSquare:  *rr,
		M0Inv:    minusInverseMod32(m[0]),
		Exponent: e,
	}, nil
}

// Check validates precomputed key material, typically loaded from a manifest.
//
// ModExp itself trusts its inputs; Check is what catches a key whose
// constants were computed for a different modulus. Like NewPublicKey it does
// not require the modulus to exceed R/2.
func (k *PublicKey) Check() error {
	if !k.Exponent.Valid() {
		return errors.Wrapf(ErrUnsupportedExponent, "e=%d", uint32(k.Exponent))
	}
	if k.Modulus[0]&1 == 0 {
		return ErrEvenModulus
	}
	n := k.Modulus.Big()
	if n.Cmp(big.NewInt(3)) < 0 {
		return ErrModulusTooSmall
	}
	if k.M0Inv*k.Modulus[0] != 0xFFFFFFFF {
		return errors.Wrapf(ErrInvalidM0Inv, "got %#08x, want %#08x", k.M0Inv, minusInverseMod32(k.Modulus[0]))
	}
	if k.RSquare.Big().Cmp(rSquare(n)) != 0 {
		return ErrInvalidRSquare
	}
	return nil
}

// Size returns the modulus length in bytes.
func (k *PublicKey) Size() int {
	return (k.Modulus.BitLen() + 7) / 8
}

// ModExp sets out = sig^e mod n for the key's exponent.
func (k *PublicKey) ModExp(out, sig *Int) error {
	return ModExp(out, sig, k.Exponent, &k.RSquare, &k.Modulus, k.M0Inv)
}

// minusInverseMod32 returns -x^-1 mod 2^32 for odd x.
//
// Each Newton step doubles the number of correct low bits, starting from the
// 3 bits that x^-1 = x already gives mod 8.
func minusInverseMod32(x uint32) uint32 {
	y := x
	for i := 0; i < 4; i++ {
		y = y * (2 - x*y)
	}
	return -y
}

// rSquare returns R^2 mod n.
func rSquare(n *big.Int) *big.Int {
	rr := new(big.Int).Lsh(big.NewInt(1), 2*NumWords*wordBits)
	return rr.Mod(rr, n)
}
