package bootsig

import (
	"encoding/hex"
	"math/big"
	"math/bits"

	"github.com/pkg/errors"
)

const (
	// NumWords is the number of 32-bit limbs in an Int, sized for 3072-bit
	// RSA moduli.
	NumWords = 96

	// NumBytes is the big-endian byte length of an Int.
	NumBytes = NumWords * 4

	wordBits = 32
)

// ErrIntTooLarge is returned when a value does not fit in NumWords limbs.
var ErrIntTooLarge = errors.New("value does not fit in a fixed-width integer")

// Int is a fixed-width unsigned integer of NumWords 32-bit limbs, least
// significant limb first.
//
// The zero value is the integer 0. Ints are plain arrays so they can live on
// the stack of a single verification and be copied by assignment.
type Int [NumWords]uint32

// choice is a constant-time condition, always either 1 or 0.
type choice uint32

func not(c choice) choice { return 1 ^ c }

// ctEq32 returns 1 if x == y and 0 otherwise.
func ctEq32(x, y uint32) choice {
	_, c1 := bits.Sub32(x, y, 0)
	_, c2 := bits.Sub32(y, x, 0)
	return not(choice(c1 | c2))
}

// ctSelect32 returns x if on == 1, and y if on == 0.
func ctSelect32(on choice, x, y uint32) uint32 {
	mask := -uint32(on)
	return y ^ (mask & (y ^ x))
}

// subtract computes a -= b and returns the final borrow.
//
// a must be greater than or equal to b. Otherwise the result wraps modulo R
// and the returned borrow is 1; nothing else reports the violation.
func subtract(a, b *Int) uint32 {
	var borrow uint32
	for i := 0; i < NumWords; i++ {
		a[i], borrow = bits.Sub32(a[i], b[i], borrow)
	}
	return borrow
}

// condSubtract computes a -= b if on == 1, and otherwise leaves a unchanged.
//
// Both outcomes read and write every limb of a.
func condSubtract(on choice, a, b *Int) {
	diff := *a
	subtract(&diff, b)
	for i := 0; i < NumWords; i++ {
		a[i] = ctSelect32(on, diff[i], a[i])
	}
}

// greaterEqual returns 1 if a >= b, and 0 otherwise.
//
// Every limb is visited from the most significant down. The first differing
// limb sets decided and records its ordering in gt; later limbs cannot
// change either flag.
func greaterEqual(a, b *Int) choice {
	var decided, gt choice
	for i := NumWords - 1; i >= 0; i-- {
		_, less := bits.Sub32(a[i], b[i], 0)
		differ := not(ctEq32(a[i], b[i]))
		open := differ & not(decided)
		gt = choice(ctSelect32(open, uint32(not(choice(less))), uint32(gt)))
		decided |= differ
	}
	// Equal integers leave decided at 0.
	return gt | not(decided)
}

// equal returns 1 if a == b, and 0 otherwise, without exiting early.
func equal(a, b *Int) choice {
	eq := choice(1)
	for i := 0; i < NumWords; i++ {
		eq &= ctEq32(a[i], b[i])
	}
	return eq
}

// IntFromBig converts a non-negative big.Int into an Int.
func IntFromBig(x *big.Int) (*Int, error) {
	if x.Sign() < 0 {
		return nil, errors.New("negative value cannot be represented")
	}
	if x.BitLen() > NumWords*wordBits {
		return nil, errors.Wrapf(ErrIntTooLarge, "%d bits", x.BitLen())
	}
	var buf [NumBytes]byte
	x.FillBytes(buf[:])
	return IntFromBytes(buf[:])
}

// IntFromBytes interprets b as a big-endian unsigned integer.
//
// Leading zero bytes are ignored, so b may be longer than NumBytes as long as
// the value itself fits.
func IntFromBytes(b []byte) (*Int, error) {
	for len(b) > NumBytes && b[0] == 0 {
		b = b[1:]
	}
	if len(b) > NumBytes {
		return nil, errors.Wrapf(ErrIntTooLarge, "%d bytes", len(b))
	}
	z := new(Int)
	for i := 0; i < len(b); i++ {
		// Byte i counted from the least significant end.
		v := uint32(b[len(b)-1-i])
		z[i/4] |= v << (8 * (i % 4))
	}
	return z, nil
}

// FillBytes writes x into buf as a big-endian integer, zero-extending on the
// left, and returns buf. It panics if the value does not fit.
func (x *Int) FillBytes(buf []byte) []byte {
	for i := range buf {
		buf[i] = 0
	}
	for i := 0; i < NumBytes; i++ {
		v := byte(x[i/4] >> (8 * (i % 4)))
		if i >= len(buf) {
			if v != 0 {
				panic("bootsig: buffer too small for Int")
			}
			continue
		}
		buf[len(buf)-1-i] = v
	}
	return buf
}

// Bytes returns x as NumBytes big-endian bytes.
func (x *Int) Bytes() []byte {
	return x.FillBytes(make([]byte, NumBytes))
}

// Big returns x as a big.Int.
func (x *Int) Big() *big.Int {
	return new(big.Int).SetBytes(x.Bytes())
}

// BitLen returns the length of x in bits. It is not constant time.
func (x *Int) BitLen() int {
	for i := NumWords - 1; i >= 0; i-- {
		if x[i] != 0 {
			return i*wordBits + bits.Len32(x[i])
		}
	}
	return 0
}

// IsZero reports whether x is 0.
func (x *Int) IsZero() bool {
	var acc uint32
	for _, w := range x {
		acc |= w
	}
	return acc == 0
}

// String returns x as 0x-prefixed hex without leading zeros.
func (x *Int) String() string {
	s := hex.EncodeToString(x.Bytes())
	for len(s) > 1 && s[0] == '0' {
		s = s[1:]
	}
	return "0x" + s
}
