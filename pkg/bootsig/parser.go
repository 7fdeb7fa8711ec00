package bootsig

import (
	"bytes"
	"crypto/sha256"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/mahdiidarabi/bootsig/internal/parser"
)

// ManifestParser defines the interface for loading manifests from various sources.
type ManifestParser interface {
	// ParseManifest parses a manifest from a source and returns it.
	ParseManifest(source string) (*Manifest, error)
}

// JSONParser parses manifests from JSON files.
//
// Expected format:
//
//	{
//	  "exponent": 3,
//	  "modulus": "0x...",
//	  "r_square": "0x...",   (optional)
//	  "m0_inv": "0x...",     (optional)
//	  "entries": [
//	    {"label": "...", "message": "...", "signature": "0x..."},
//	    {"digest": "0x...", "signature": "0x..."}
//	  ]
//	}
type JSONParser struct{}

// ParseManifest parses a manifest from a JSON file.
func (p *JSONParser) ParseManifest(jsonFile string) (*Manifest, error) {
	file, err := os.Open(jsonFile)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read file")
	}
	defer file.Close()

	decoder := json.NewDecoder(file)
	decoder.UseNumber() // Preserve large numbers as json.Number instead of float64
	decoder.DisallowUnknownFields()

	var raw rawManifest
	if err := decoder.Decode(&raw); err != nil {
		return nil, errors.Wrap(err, "failed to parse JSON")
	}
	return raw.build()
}

// YAMLParser parses manifests from YAML files. The layout is the same as for
// JSONParser.
type YAMLParser struct{}

// ParseManifest parses a manifest from a YAML file.
func (p *YAMLParser) ParseManifest(yamlFile string) (*Manifest, error) {
	file, err := os.Open(yamlFile)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read file")
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	decoder.KnownFields(true)

	var raw rawManifest
	if err := decoder.Decode(&raw); err != nil {
		return nil, errors.Wrap(err, "failed to parse YAML")
	}
	return raw.build()
}

// CSVParser parses entry lists from CSV files. A CSV file carries no key, so
// every entry is checked against Key.
//
// The first record is a header naming the columns; order is free and unknown
// columns are ignored. Each row needs a signature and either a message or a
// digest:
//
//	label,message,digest,signature
//	rom_ext,rom_ext image,,0x...
//	owner,,0x...,0x...
type CSVParser struct {
	Key *PublicKey

	LabelCol     string // Column name for label (default: "label")
	MessageCol   string // Column name for message (default: "message")
	DigestCol    string // Column name for digest (default: "digest")
	SignatureCol string // Column name for signature (default: "signature")
}

// ParseManifest parses the entries of a CSV file and pairs them with p.Key.
func (p *CSVParser) ParseManifest(csvFile string) (*Manifest, error) {
	if p.Key == nil {
		return nil, errors.New("csv entries need a key")
	}

	file, err := os.Open(csvFile)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read file")
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, errors.Wrap(err, "failed to read header")
	}

	labelIdx := columnIndex(header, p.LabelCol, "label")
	messageIdx := columnIndex(header, p.MessageCol, "message")
	digestIdx := columnIndex(header, p.DigestCol, "digest")
	sigIdx := columnIndex(header, p.SignatureCol, "signature")

	if sigIdx == -1 {
		return nil, errors.New("missing required column: signature")
	}
	if messageIdx == -1 && digestIdx == -1 {
		return nil, errors.New("missing required column: message or digest")
	}

	entries := make([]*Entry, 0)
	for i := 0; ; i++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "failed to read record")
		}

		var re rawEntry
		if labelIdx != -1 {
			re.Label = record[labelIdx]
		}
		if messageIdx != -1 && record[messageIdx] != "" {
			re.Message = &record[messageIdx]
		}
		if digestIdx != -1 {
			re.Digest = record[digestIdx]
		}
		if record[sigIdx] != "" {
			re.Signature = &number{val: record[sigIdx]}
		}

		entry, err := re.build()
		if err != nil {
			return nil, errors.Wrapf(err, "entry %d", i)
		}
		entries = append(entries, entry)
	}

	return &Manifest{Key: p.Key, Entries: entries}, nil
}

func columnIndex(header []string, name, def string) int {
	if name == "" {
		name = def
	}
	for i, col := range header {
		if col == name {
			return i
		}
	}
	return -1
}

// ParserForPath picks a parser from the file extension: .yaml and .yml use
// YAMLParser, anything else JSONParser.
func ParserForPath(path string) ManifestParser {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return &YAMLParser{}
	default:
		return &JSONParser{}
	}
}

// KeyHeader is the serialized form of a PublicKey, as written at the top of a
// manifest.
type KeyHeader struct {
	Exponent uint32 `json:"exponent" yaml:"exponent"`
	Modulus  string `json:"modulus" yaml:"modulus"`
	RSquare  string `json:"r_square" yaml:"r_square"`
	M0Inv    string `json:"m0_inv" yaml:"m0_inv"`
}

// Header returns the key in manifest form with hex-encoded values.
func (k *PublicKey) Header() KeyHeader {
	return KeyHeader{
		Exponent: uint32(k.Exponent),
		Modulus:  k.Modulus.String(),
		RSquare:  k.RSquare.String(),
		M0Inv:    fmt.Sprintf("%#x", k.M0Inv),
	}
}

// number holds a manifest scalar as the decoder saw it, without a float64
// conversion in between: YAML scalars keep their source text and JSON
// numbers stay json.Number.
type number struct {
	val interface{}
}

func (n *number) UnmarshalJSON(b []byte) error {
	decoder := json.NewDecoder(bytes.NewReader(b))
	decoder.UseNumber()
	return decoder.Decode(&n.val)
}

func (n *number) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return errors.Errorf("line %d: expected a number", node.Line)
	}
	n.val = node.Value
	return nil
}

// value returns nil for a field that was absent.
func (n *number) value() interface{} {
	if n == nil {
		return nil
	}
	return n.val
}

type rawEntry struct {
	Label     string  `json:"label" yaml:"label"`
	Message   *string `json:"message" yaml:"message"`
	Digest    string  `json:"digest" yaml:"digest"`
	Signature *number `json:"signature" yaml:"signature"`
}

type rawManifest struct {
	Exponent *number    `json:"exponent" yaml:"exponent"`
	Modulus  *number    `json:"modulus" yaml:"modulus"`
	RSquare  *number    `json:"r_square" yaml:"r_square"`
	M0Inv    *number    `json:"m0_inv" yaml:"m0_inv"`
	Entries  []rawEntry `json:"entries" yaml:"entries"`
}

func (raw *rawManifest) build() (*Manifest, error) {
	key, err := raw.key()
	if err != nil {
		return nil, err
	}

	entries := make([]*Entry, 0, len(raw.Entries))
	for i, re := range raw.Entries {
		entry, err := re.build()
		if err != nil {
			return nil, errors.Wrapf(err, "entry %d", i)
		}
		entries = append(entries, entry)
	}

	return &Manifest{Key: key, Entries: entries}, nil
}

// key loads the public key. Precomputed constants are taken as given so that
// PublicKey.Check can report a mismatch; missing ones are derived.
func (raw *rawManifest) key() (*PublicKey, error) {
	eVal, err := parser.ParseBigInt(raw.Exponent.value())
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse exponent")
	}
	if !eVal.IsUint64() {
		return nil, errors.Wrapf(ErrUnsupportedExponent, "e=%s", eVal)
	}
	e, err := ParseExponent(eVal.Uint64())
	if err != nil {
		return nil, err
	}

	n, err := parser.ParseBigInt(raw.Modulus.value())
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse modulus")
	}

	if raw.RSquare == nil || raw.M0Inv == nil {
		key, err := NewPublicKey(n, e)
		if err != nil {
			return nil, errors.Wrap(err, "failed to derive key parameters")
		}
		if raw.RSquare != nil {
			if err := setInt(&key.RSquare, raw.RSquare.value()); err != nil {
				return nil, errors.Wrap(err, "failed to parse r_square")
			}
		}
		if raw.M0Inv != nil {
			if key.M0Inv, err = parser.ParseUint32(raw.M0Inv.value()); err != nil {
				return nil, errors.Wrap(err, "failed to parse m0_inv")
			}
		}
		return key, nil
	}

	key := &PublicKey{Exponent: e}
	m, err := IntFromBig(n)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse modulus")
	}
	key.Modulus = *m
	if err := setInt(&key.RSquare, raw.RSquare.value()); err != nil {
		return nil, errors.Wrap(err, "failed to parse r_square")
	}
	if key.M0Inv, err = parser.ParseUint32(raw.M0Inv.value()); err != nil {
		return nil, errors.Wrap(err, "failed to parse m0_inv")
	}
	return key, nil
}

func (re *rawEntry) build() (*Entry, error) {
	entry := &Entry{Label: re.Label}

	switch {
	case re.Digest != "":
		d, err := parser.DecodeHex(re.Digest)
		if err != nil {
			return nil, errors.Wrap(err, "failed to parse digest")
		}
		if len(d) != sha256.Size {
			return nil, errors.Errorf("digest must be %d bytes, got %d", sha256.Size, len(d))
		}
		copy(entry.Digest[:], d)
	case re.Message != nil:
		entry.Digest = HashMessage([]byte(*re.Message))
	default:
		return nil, errors.New("missing message or digest field")
	}

	if re.Signature == nil {
		return nil, errors.New("missing signature field")
	}
	if err := setInt(&entry.Signature, re.Signature.value()); err != nil {
		return nil, errors.Wrap(err, "failed to parse signature")
	}
	return entry, nil
}

func setInt(dst *Int, val interface{}) error {
	z, err := parser.ParseBigInt(val)
	if err != nil {
		return err
	}
	x, err := IntFromBig(z)
	if err != nil {
		return err
	}
	*dst = *x
	return nil
}
