package main

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/mahdiidarabi/bootsig/internal/parser"
	"github.com/mahdiidarabi/bootsig/pkg/bootsig"
)

func verifyCommand() *cli.Command {
	return &cli.Command{
		Name:      "verify",
		Usage:     "Verify every entry of a signed manifest",
		UsageText: "bootsig verify --manifest FILE [--workers N] [--fail-fast]\n" +
			"   bootsig verify --entries FILE.csv --modulus HEX [--exponent 3|65537]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "manifest",
				Usage: "Path to manifest file (JSON or YAML)",
			},
			&cli.StringFlag{
				Name:  "entries",
				Usage: "Path to a CSV file of entries (label,message,digest,signature), verified against --modulus",
			},
			&cli.StringFlag{Name: "modulus", Usage: "RSA modulus for --entries (0x-prefixed hex or decimal)"},
			&cli.Uint64Flag{Name: "exponent", Usage: "Public exponent for --entries (3 or 65537)", Value: uint64(bootsig.Exponent65537)},
			&cli.IntFlag{
				Name:  "workers",
				Usage: "Number of parallel workers (0 = auto-detect based on CPU cores)",
			},
			&cli.BoolFlag{
				Name:  "fail-fast",
				Usage: "Stop at the first signature that fails to verify",
			},
			&cli.BoolFlag{
				Name:  "skip-key-check",
				Usage: "Trust r_square and m0_inv from the manifest without checking them",
			},
		},
		Action: runVerify,
	}
}

func runVerify(c *cli.Context) error {
	log := createLogger(c)

	config := bootsig.DefaultConfig()
	config.Workers = c.Int("workers")
	config.FailFast = c.Bool("fail-fast")
	config.CheckKey = !c.Bool("skip-key-check")

	client := bootsig.NewClient().WithConfig(config).WithLogger(log)

	source := c.String("manifest")
	switch {
	case c.IsSet("manifest") && c.IsSet("entries"):
		return errors.New("--manifest and --entries are mutually exclusive")
	case c.IsSet("entries"):
		if !c.IsSet("modulus") {
			return errors.New("--entries requires --modulus")
		}
		key, err := keyFromFlags(c)
		if err != nil {
			return err
		}
		client.WithParser(&bootsig.CSVParser{Key: key})
		source = c.String("entries")
	case !c.IsSet("manifest"):
		return errors.New("one of --manifest or --entries is required")
	}

	report, err := client.VerifyFile(c.Context, source)
	if err != nil {
		return err
	}

	out := c.App.Writer
	fmt.Fprintf(out, "Key: e=%s, %d-bit modulus\n", report.Key.Exponent, report.Key.Modulus.BitLen())
	for _, r := range report.Results {
		label := r.Label
		if label == "" {
			label = fmt.Sprintf("entry %d", r.Index)
		}
		if r.Valid() {
			fmt.Fprintf(out, "[+] %s: valid\n", label)
		} else {
			fmt.Fprintf(out, "[-] %s: %v\n", label, r.Err)
		}
	}
	fmt.Fprintf(out, "%d valid, %d invalid\n", report.Valid, report.Invalid)

	if !report.OK() {
		return cli.Exit("", 1)
	}
	return nil
}

func modExpCommand() *cli.Command {
	return &cli.Command{
		Name:      "modexp",
		Usage:     "Compute signature^exponent mod modulus",
		UsageText: "bootsig modexp --modulus HEX --signature HEX [--exponent 3|65537]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "modulus", Usage: "RSA modulus (0x-prefixed hex or decimal)", Required: true},
			&cli.StringFlag{Name: "signature", Usage: "Signature (0x-prefixed hex or decimal)", Required: true},
			&cli.Uint64Flag{Name: "exponent", Usage: "Public exponent (3 or 65537)", Value: uint64(bootsig.Exponent65537)},
			&cli.StringFlag{Name: "r-square", Usage: "Precomputed R^2 mod modulus (derived when unset)"},
			&cli.StringFlag{Name: "m0-inv", Usage: "Precomputed -modulus^-1 mod 2^32 (derived when unset)"},
		},
		Action: runModExp,
	}
}

func runModExp(c *cli.Context) error {
	log := createLogger(c)

	key, err := keyFromFlags(c)
	if err != nil {
		return err
	}
	if c.IsSet("r-square") {
		if key.RSquare, err = intFlag(c, "r-square"); err != nil {
			return err
		}
	}
	if c.IsSet("m0-inv") {
		if key.M0Inv, err = parser.ParseUint32(c.String("m0-inv")); err != nil {
			return errors.Wrap(err, "failed to parse m0-inv")
		}
	}

	sig, err := intFlag(c, "signature")
	if err != nil {
		return err
	}
	if sig.Big().Cmp(key.Modulus.Big()) >= 0 {
		log.Warn().Msg("Signature is not reduced modulo the modulus, result is unspecified")
	}

	var out bootsig.Int
	if err := key.ModExp(&out, &sig); err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, out.String())
	return nil
}

func keyParamsCommand() *cli.Command {
	return &cli.Command{
		Name:      "keyparams",
		Usage:     "Derive r_square and m0_inv for a modulus and print a manifest header",
		UsageText: "bootsig keyparams --modulus HEX [--exponent 3|65537]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "modulus", Usage: "RSA modulus (0x-prefixed hex or decimal)", Required: true},
			&cli.Uint64Flag{Name: "exponent", Usage: "Public exponent (3 or 65537)", Value: uint64(bootsig.Exponent65537)},
		},
		Action: runKeyParams,
	}
}

func runKeyParams(c *cli.Context) error {
	key, err := keyFromFlags(c)
	if err != nil {
		return err
	}

	enc := yaml.NewEncoder(c.App.Writer)
	defer enc.Close()
	return enc.Encode(key.Header())
}

func keyFromFlags(c *cli.Context) (*bootsig.PublicKey, error) {
	e, err := bootsig.ParseExponent(c.Uint64("exponent"))
	if err != nil {
		return nil, err
	}
	n, err := parser.ParseBigInt(c.String("modulus"))
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse modulus")
	}
	return bootsig.NewPublicKey(n, e)
}

func intFlag(c *cli.Context, name string) (bootsig.Int, error) {
	z, err := parser.ParseBigInt(c.String(name))
	if err != nil {
		return bootsig.Int{}, errors.Wrapf(err, "failed to parse %s", name)
	}
	x, err := bootsig.IntFromBig(z)
	if err != nil {
		return bootsig.Int{}, errors.Wrapf(err, "failed to parse %s", name)
	}
	return *x, nil
}
