package bootsig

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/mahdiidarabi/bootsig/internal/batch"
)

// ErrSkipped marks entries that were not verified because an earlier entry
// failed under Config.FailFast.
var ErrSkipped = errors.New("verification skipped")

// Client provides a high-level API for verifying signed boot manifests.
type Client struct {
	parser  ManifestParser
	config  Config
	log     zerolog.Logger
	metrics *metrics
}

// NewClient creates a new client with default settings. The manifest parser
// is chosen from the file extension unless WithParser is used.
func NewClient() *Client {
	return &Client{
		config: DefaultConfig(),
		log:    zerolog.Nop(),
	}
}

// WithParser sets a custom manifest parser.
func (c *Client) WithParser(parser ManifestParser) *Client {
	c.parser = parser
	return c
}

// WithConfig replaces the verification configuration.
func (c *Client) WithConfig(config Config) *Client {
	c.config = config
	return c
}

// WithLogger sets the logger. The default logger discards everything.
func (c *Client) WithLogger(log zerolog.Logger) *Client {
	c.log = log
	return c
}

// WithMetrics registers verification metrics with reg.
func (c *Client) WithMetrics(reg prometheus.Registerer) (*Client, error) {
	m := newMetrics()
	if err := m.register(reg); err != nil {
		return nil, errors.Wrap(err, "failed to register metrics")
	}
	c.metrics = m
	return c, nil
}

// VerifyFile verifies every entry of the manifest at source.
//
// Args:
//   - ctx: Context for cancellation.
//   - source: Path to a manifest file (JSON or YAML, or CSV entries when
//     the client was given a CSVParser).
//
// Returns:
//   - A Report with one Result per entry. A non-nil error means the manifest
//     could not be loaded or verification was interrupted; failed signatures
//     are reported in the Report, not as an error.
func (c *Client) VerifyFile(ctx context.Context, source string) (*Report, error) {
	p := c.parser
	if p == nil {
		p = ParserForPath(source)
	}
	manifest, err := p.ParseManifest(source)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse manifest")
	}
	c.log.Debug().Str("source", source).Int("entries", len(manifest.Entries)).Msg("Loaded manifest")
	return c.VerifyManifest(ctx, manifest)
}

// VerifyManifest verifies an in-memory manifest.
// Use this when the key and signatures come from somewhere other than a file.
func (c *Client) VerifyManifest(ctx context.Context, manifest *Manifest) (*Report, error) {
	if manifest == nil || manifest.Key == nil {
		return nil, errors.New("manifest has no key")
	}
	for i, entry := range manifest.Entries {
		if entry == nil {
			return nil, errors.Errorf("entry %d: missing entry", i)
		}
	}
	key := manifest.Key

	if c.config.CheckKey {
		if err := key.Check(); err != nil {
			return nil, errors.Wrap(err, "invalid key")
		}
	}

	log := c.log.With().
		Str("exponent", key.Exponent.String()).
		Int("modulus_bits", key.Modulus.BitLen()).
		Logger()

	results := make([]Result, len(manifest.Entries))
	for i, entry := range manifest.Entries {
		results[i] = Result{Index: i, Label: entry.Label, Err: ErrSkipped}
	}

	err := batch.Run(ctx, len(manifest.Entries), c.config.Workers, func(ctx context.Context, i int) error {
		entry := manifest.Entries[i]

		start := time.Now()
		verr := Verify(key, &entry.Signature, entry.Digest)
		c.metrics.observe(key.Exponent, verr, time.Since(start))

		// Each job owns its slot, so no locking is needed.
		results[i].Err = verr
		if verr != nil {
			log.Warn().Int("index", i).Str("label", entry.Label).Err(verr).Msg("Signature rejected")
			if c.config.FailFast {
				return verr
			}
			return nil
		}
		log.Debug().Int("index", i).Str("label", entry.Label).Msg("Signature verified")
		return nil
	})

	if err != nil && !c.config.FailFast {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	report := &Report{Key: key, Results: results}
	for _, r := range results {
		if r.Valid() {
			report.Valid++
		} else {
			report.Invalid++
		}
	}
	log.Info().Int("valid", report.Valid).Int("invalid", report.Invalid).Msg("Manifest verified")
	return report, nil
}
