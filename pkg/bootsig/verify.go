package bootsig

import (
	"crypto/sha256"

	"github.com/pkg/errors"
)

var (
	// ErrSignatureOutOfRange is returned when the signature is not below the
	// modulus.
	ErrSignatureOutOfRange = errors.New("signature is not less than modulus")
	// ErrVerification is returned when the recovered encoded message does not
	// match the digest.
	ErrVerification = errors.New("signature verification failed")
)

// sha256DigestInfo is the DER prefix of a PKCS #1 DigestInfo for SHA-256.
var sha256DigestInfo = []byte{
	0x30, 0x31, 0x30, 0x0d, 0x06, 0x09, 0x60, 0x86, 0x48, 0x01,
	0x65, 0x03, 0x04, 0x02, 0x01, 0x05, 0x00, 0x04, 0x20,
}

// HashMessage returns the SHA-256 digest of message.
func HashMessage(message []byte) [sha256.Size]byte {
	return sha256.Sum256(message)
}

// EncodePKCS1v15SHA256 returns the EMSA-PKCS1-v1_5 encoding of digest for a
// modulus of size bytes:
//
//	00 01 FF .. FF 00 || DigestInfo || digest
func EncodePKCS1v15SHA256(digest [sha256.Size]byte, size int) (*Int, error) {
	tLen := len(sha256DigestInfo) + len(digest)
	// At least 8 bytes of FF padding.
	if size < tLen+11 {
		return nil, errors.Errorf("modulus of %d bytes is too short for a SHA-256 signature", size)
	}
	if size > NumBytes {
		return nil, errors.Wrapf(ErrIntTooLarge, "%d bytes", size)
	}
	em := make([]byte, size)
	em[1] = 0x01
	for i := 2; i < size-tLen-1; i++ {
		em[i] = 0xff
	}
	copy(em[size-tLen:], sha256DigestInfo)
	copy(em[size-len(digest):], digest[:])
	return IntFromBytes(em)
}

// Verify checks an RSASSA-PKCS1-v1_5 SHA-256 signature over digest.
//
// Returns:
//   - nil if the signature is valid
//   - ErrSignatureOutOfRange if sig >= modulus
//   - ErrUnsupportedExponent if the key's exponent is not 3 or 65537
//   - ErrVerification if the recovered message does not match digest
func Verify(key *PublicKey, sig *Int, digest [sha256.Size]byte) error {
	if greaterEqual(sig, &key.Modulus) == 1 {
		return ErrSignatureOutOfRange
	}

	expected, err := EncodePKCS1v15SHA256(digest, key.Size())
	if err != nil {
		return err
	}

	var em Int
	if err := key.ModExp(&em, sig); err != nil {
		return err
	}

	if equal(&em, expected) != 1 {
		return ErrVerification
	}
	return nil
}
