package bootsig

import (
	"strconv"

	"github.com/pkg/errors"
)

// ErrUnsupportedExponent is returned for any public exponent other than 3
// and 65537.
var ErrUnsupportedExponent = errors.New("unsupported RSA public exponent")

// Exponent is one of the two public exponents the verifier supports.
type Exponent uint32

const (
	Exponent3     Exponent = 3
	Exponent65537 Exponent = 65537
)

// ParseExponent converts a raw public exponent into an Exponent.
func ParseExponent(e uint64) (Exponent, error) {
	switch e {
	case uint64(Exponent3):
		return Exponent3, nil
	case uint64(Exponent65537):
		return Exponent65537, nil
	}
	return 0, errors.Wrapf(ErrUnsupportedExponent, "e=%d", e)
}

// Valid reports whether e is a supported exponent.
func (e Exponent) Valid() bool {
	return e == Exponent3 || e == Exponent65537
}

func (e Exponent) String() string {
	return strconv.FormatUint(uint64(e), 10)
}

// ModExp sets out = sig^e mod m.
//
// rSquare must be R^2 mod m and m0Inv the Montgomery constant for m. sig is
// expected to be below m; neither that nor the other key parameters are
// checked. For an unsupported exponent ModExp returns ErrUnsupportedExponent
// without writing out. out may alias sig.
func ModExp(out, sig *Int, e Exponent, rSquare, m *Int, m0Inv uint32) error {
	var buf, acc, res Int

	switch e {
	case Exponent3:
		// acc = sig * R mod m
		MontMul(&acc, sig, rSquare, m, m0Inv)
		// buf = sig^2 * R mod m
		MontMul(&buf, &acc, &acc, m, m0Inv)
	case Exponent65537:
		// buf = sig * R mod m
		MontMul(&buf, sig, rSquare, m, m0Inv)
		for i := 0; i < 8; i++ {
			// acc = sig^(2^(2i+1)) * R mod m
			MontMul(&acc, &buf, &buf, m, m0Inv)
			// buf = sig^(2^(2i+2)) * R mod m, ending at sig^65536 * R
			MontMul(&buf, &acc, &acc, m, m0Inv)
		}
	default:
		return ErrUnsupportedExponent
	}

	// Multiplying the Montgomery form by the plain signature adds the final
	// factor of sig and leaves the Montgomery domain in one step.
	MontMul(&res, &buf, sig, m, m0Inv)

	// res < sig + m < 2m, so a single subtraction fully reduces it.
	condSubtract(greaterEqual(&res, m), &res, m)

	*out = res
	return nil
}
