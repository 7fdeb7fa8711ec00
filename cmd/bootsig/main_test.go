package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"math/big"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/mahdiidarabi/bootsig/pkg/bootsig"
)

func fixture(name string) string {
	return filepath.Join("..", "..", "fixtures", name)
}

func runApp(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	app := newApp()
	app.Writer = &out
	err := app.Run(append([]string{"bootsig", "--loglevel", "error"}, args...))
	return out.String(), err
}

func TestKeyParams(t *testing.T) {
	out, err := runApp(t, "keyparams", "--modulus", "0xfffb", "--exponent", "3")
	require.NoError(t, err)

	var header bootsig.KeyHeader
	require.NoError(t, yaml.Unmarshal([]byte(out), &header))

	key, err := bootsig.NewPublicKey(big.NewInt(0xfffb), bootsig.Exponent3)
	require.NoError(t, err)
	assert.Equal(t, key.Header(), header)
}

func TestKeyParams_EvenModulus(t *testing.T) {
	var code int
	defer func(orig func(int)) { cli.OsExiter = orig }(cli.OsExiter)
	cli.OsExiter = func(c int) { code = c }

	_, err := runApp(t, "keyparams", "--modulus", "0xfffc")
	assert.ErrorIs(t, err, bootsig.ErrEvenModulus)
	assert.Zero(t, code)
}

func TestModExp(t *testing.T) {
	n := big.NewInt(65531)

	out, err := runApp(t, "modexp", "--modulus", "65531", "--signature", "0x2", "--exponent", "3")
	require.NoError(t, err)
	assert.Equal(t, "0x8\n", out)

	out, err = runApp(t, "modexp", "--modulus", "65531", "--signature", "12345")
	require.NoError(t, err)
	want := new(big.Int).Exp(big.NewInt(12345), big.NewInt(65537), n)
	assert.Equal(t, fmt.Sprintf("0x%x\n", want), out)
}

func TestModExp_UnsupportedExponent(t *testing.T) {
	_, err := runApp(t, "modexp", "--modulus", "65531", "--signature", "0x2", "--exponent", "5")
	assert.ErrorIs(t, err, bootsig.ErrUnsupportedExponent)
}

func TestVerify(t *testing.T) {
	out, err := runApp(t, "verify", "--manifest", fixture("manifest_e3.json"), "--workers", "2")
	require.NoError(t, err)

	assert.Contains(t, out, "Key: e=3, 3072-bit modulus")
	assert.Contains(t, out, "[+] rom_ext slot a: valid")
	assert.Contains(t, out, "4 valid, 0 invalid")
}

func TestVerify_InvalidEntryExits(t *testing.T) {
	var code int
	defer func(orig func(int)) { cli.OsExiter = orig }(cli.OsExiter)
	cli.OsExiter = func(c int) { code = c }

	out, err := runApp(t, "verify", "--manifest", fixture("manifest_e65537.yaml"))
	assert.Error(t, err)
	assert.Equal(t, 1, code)
	assert.Contains(t, out, "[-] tampered: signature verification failed")
	assert.Contains(t, out, "2 valid, 1 invalid")
}

func TestVerify_Entries(t *testing.T) {
	var code int
	defer func(orig func(int)) { cli.OsExiter = orig }(cli.OsExiter)
	cli.OsExiter = func(c int) { code = c }

	raw, err := os.ReadFile(fixture("manifest_e3.json"))
	require.NoError(t, err)
	var header bootsig.KeyHeader
	require.NoError(t, json.Unmarshal(raw, &header))

	out, err := runApp(t, "verify", "--entries", fixture("entries_e3.csv"),
		"--modulus", header.Modulus, "--exponent", "3")
	assert.Error(t, err)
	assert.Equal(t, 1, code)
	assert.Contains(t, out, "[+] owner manifest: valid")
	assert.Contains(t, out, "[-] bl0 (modified): signature verification failed")
	assert.Contains(t, out, "4 valid, 1 invalid")
}

func TestVerify_SourceFlags(t *testing.T) {
	_, err := runApp(t, "verify")
	assert.EqualError(t, err, "one of --manifest or --entries is required")

	_, err = runApp(t, "verify", "--entries", fixture("entries_e3.csv"))
	assert.EqualError(t, err, "--entries requires --modulus")

	_, err = runApp(t, "verify", "--manifest", fixture("manifest_e3.json"), "--entries", fixture("entries_e3.csv"))
	assert.EqualError(t, err, "--manifest and --entries are mutually exclusive")
}
