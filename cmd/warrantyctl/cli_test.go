package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/smallbiznis/warranty/internal/warranty/engine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func cells(line string) []string {
	parts := strings.Split(line, "|")
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}
	return parts
}

func TestTiersCmd(t *testing.T) {
	out, err := run(t, "tiers")
	require.NoError(t, err)
	assert.Contains(t, out, "basic-1yr")
	assert.Contains(t, out, "platinum-25yr")
	assert.Contains(t, out, "Extended Warranty *")
	assert.NotContains(t, out, "\x1b[", "no styling when output is not a terminal")
}

func TestQuotesCmd(t *testing.T) {
	out, err := run(t, "quotes", "10000")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 8)
	assert.Equal(t, []string{"TIER", "YEARS", "PRICE", "MONTHLY", "COMMISSION"}, cells(lines[0]))
	assert.Regexp(t, `^-+$`, lines[1])
	assert.Equal(t, []string{"platinum-25yr", "25", "$2,499.00", "$208.25", "$499.80"}, cells(lines[7]))

	widths := map[int]bool{}
	for _, l := range lines {
		widths[len([]rune(l))] = true
	}
	assert.Len(t, widths, 1, "rows are padded to one width")
}

func TestTierCmd(t *testing.T) {
	out, err := run(t, "tier", "standard-3yr", "10000")
	require.NoError(t, err)
	assert.Contains(t, out, "$899.00")
	assert.Contains(t, out, "$74.92")

	_, err = run(t, "tier", "diamond", "10000")
	assert.ErrorIs(t, err, engine.ErrUnknownTier)
}

func TestRecommendCmd(t *testing.T) {
	out, err := run(t, "recommend", "5000")
	require.NoError(t, err)
	assert.Contains(t, out, "Recommended: Platinum (platinum-25yr)")

	out, err = run(t, "recommend", "5000", "--policy", "threshold")
	require.NoError(t, err)
	assert.Contains(t, out, "Recommended: Extended Warranty (extended-5yr)")

	_, err = run(t, "recommend", "5000", "--policy", "cheapest")
	assert.ErrorIs(t, err, engine.ErrInvalidOptions)
}

func TestInvalidJobTotal(t *testing.T) {
	for _, raw := range []string{"0", "-100", "abc"} {
		_, err := run(t, "quotes", raw)
		assert.ErrorIs(t, err, engine.ErrInvalidJobTotal, raw)
	}
}

func TestFormatCmd(t *testing.T) {
	out, err := run(t, "format", "1234.5")
	require.NoError(t, err)
	assert.Equal(t, "$1,234.50\n", out)
}

func TestCatalogFlag(t *testing.T) {
	path := filepath.Join(t.TempDir(), "warranty.yml")
	body := "warranty:\n  currency_symbol: \"£\"\n  tiers:\n    - {name: Solo, years: 2, base_fee: 10, rate: 0.1}\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	out, err := run(t, "--catalog", path, "quotes", "100")
	require.NoError(t, err)
	assert.Contains(t, out, "solo-2yr")
	assert.Contains(t, out, "£20.00")
}
