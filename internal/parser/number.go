// Package parser decodes the textual number formats used in manifests.
package parser

import (
	"encoding/hex"
	"encoding/json"
	"math"
	"math/big"
	"strings"

	"github.com/pkg/errors"
)

const maxExactFloat = 1 << 53

// ParseBigInt parses a non-negative integer from the forms a JSON or YAML
// decoder produces.
//
// Strings with a 0x prefix are hex, other strings are decimal. json.Number and
// the integer kinds are accepted as-is; float64 only when it is integral and
// below 2^53, where every integer is exactly representable.
func ParseBigInt(val interface{}) (*big.Int, error) {
	var z *big.Int

	switch v := val.(type) {
	case string:
		s := strings.TrimSpace(v)
		if hexStr, ok := trimHexPrefix(s); ok {
			b, err := DecodeHex(hexStr)
			if err != nil {
				return nil, errors.Wrapf(err, "invalid hex number %q", v)
			}
			z = new(big.Int).SetBytes(b)
			break
		}
		var ok bool
		if z, ok = new(big.Int).SetString(s, 10); !ok {
			return nil, errors.Errorf("invalid number format: %q", v)
		}

	case json.Number:
		var ok bool
		if z, ok = new(big.Int).SetString(string(v), 10); !ok {
			return nil, errors.Errorf("invalid number format: %s", v)
		}

	case float64:
		if v != math.Trunc(v) || math.IsInf(v, 0) {
			return nil, errors.Errorf("not an integer: %v", v)
		}
		if math.Abs(v) >= maxExactFloat {
			return nil, errors.Errorf("number %v is too large to be exact, quote it", v)
		}
		z, _ = new(big.Float).SetFloat64(v).Int(nil)

	case int:
		z = big.NewInt(int64(v))

	case int64:
		z = big.NewInt(v)

	case uint64:
		z = new(big.Int).SetUint64(v)

	case nil:
		return nil, errors.New("missing value")

	default:
		return nil, errors.Errorf("unsupported type: %T", val)
	}

	if z.Sign() < 0 {
		return nil, errors.Errorf("negative value: %s", z)
	}
	return z, nil
}

// ParseUint32 parses a value that must fit in 32 bits.
func ParseUint32(val interface{}) (uint32, error) {
	z, err := ParseBigInt(val)
	if err != nil {
		return 0, err
	}
	if !z.IsUint64() || z.Uint64() > math.MaxUint32 {
		return 0, errors.Errorf("value %s does not fit in 32 bits", z)
	}
	return uint32(z.Uint64()), nil
}

// DecodeHex decodes a hex string, handling a 0x prefix and odd length.
func DecodeHex(s string) ([]byte, error) {
	if trimmed, ok := trimHexPrefix(s); ok {
		s = trimmed
	}
	if len(s)%2 != 0 {
		s = "0" + s
	}
	return hex.DecodeString(s)
}

func trimHexPrefix(s string) (string, bool) {
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		return s[2:], true
	}
	return s, false
}
