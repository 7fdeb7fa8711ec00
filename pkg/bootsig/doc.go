// Package bootsig verifies RSA signatures the way a boot ROM does: with a
// fixed-width Montgomery exponentiation over exactly two public exponents,
// 3 and 65537.
//
// The arithmetic works on Int, an array of NumWords 32-bit limbs, and never
// allocates. MontMul computes x*y*R^-1 mod m and ModExp chains Montgomery
// multiplications into sig^e mod m, taking the Montgomery constants R^2 mod m
// and -m^-1 mod 2^32 from the caller. Keys carry these constants in
// PublicKey; NewPublicKey derives them from a modulus.
//
// # Quick Start
//
//	import "github.com/mahdiidarabi/bootsig/pkg/bootsig"
//
//	client := bootsig.NewClient()
//
//	report, err := client.VerifyFile(ctx, "manifest.json")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, r := range report.Results {
//	    fmt.Printf("%s: %v\n", r.Label, r.Err)
//	}
//
// # Raw exponentiation
//
//	key, err := bootsig.NewPublicKey(n, bootsig.Exponent65537)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	var em bootsig.Int
//	if err := key.ModExp(&em, sig); err != nil {
//	    log.Fatal(err)
//	}
//
// # Manifests
//
// A manifest holds a key and the entries signed by it, in JSON or YAML:
//
//	exponent: 3
//	modulus: "0x..."
//	r_square: "0x..."      # optional, derived when absent
//	m0_inv: "0x..."        # optional, derived when absent
//	entries:
//	  - label: "rom_ext"
//	    message: "..."     # or digest: "0x..." (SHA-256)
//	    signature: "0x..."
//
// CSVParser reads a bare list of entries with a label, message, digest and
// signature column, checked against a key supplied by the caller.
//
// Signatures use RSASSA-PKCS1-v1_5 with SHA-256.
package bootsig
