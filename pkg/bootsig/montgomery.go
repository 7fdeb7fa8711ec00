package bootsig

// MontMul sets out = x * y * R^-1 mod m, where R = 2^(32*NumWords).
//
// m must be odd and m0Inv must satisfy m0Inv * m[0] = -1 mod 2^32. The result
// is bounded by y + m rather than m: when y < m it lies in [0, 2m) and may
// need one more subtraction to become the least non-negative residue.
//
// out must not alias x, y or m.
func MontMul(out, x, y, m *Int, m0Inv uint32) {
	*out = Int{}

	for i := 0; i < NumWords; i++ {
		// The inner loop writes out[j-1] while reading out[j], which folds the
		// division by the word base into the accumulation. acc0 carries
		// x[i]*y + out and acc1 carries the full sum including u*m. Neither
		// overflows since (2^32-1)^2 + 2*(2^32-1) = 2^64-1.
		acc0 := uint64(x[i])*uint64(y[0]) + uint64(out[0])
		u := uint32(acc0) * m0Inv
		acc1 := uint64(u)*uint64(m[0]) + uint64(uint32(acc0))

		for j := 1; j < NumWords; j++ {
			acc0 = uint64(x[i])*uint64(y[j]) + uint64(out[j]) + acc0>>32
			acc1 = uint64(u)*uint64(m[j]) + uint64(uint32(acc0)) + acc1>>32
			out[j-1] = uint32(acc1)
		}
		acc0 = acc0>>32 + acc1>>32
		out[NumWords-1] = uint32(acc0)

		// The running value is below y + m < 2R, so the carry is a single
		// bit and one subtraction of m brings it back under R.
		condSubtract(choice(acc0>>32), out, m)
	}
}
