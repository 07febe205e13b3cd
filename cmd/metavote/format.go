package main

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/metapool/go-metavote/common/types"
)

// maxDisplayedFraction caps the fractional digits printed for token amounts.
const maxDisplayedFraction = 5

// parseTokens converts a human token amount ("12.5") to indivisible units.
func parseTokens(s string, decimals uint8) (types.Amount, error) {
	whole, frac, _ := strings.Cut(s, ".")
	if whole == "" && frac == "" {
		return types.Amount{}, fmt.Errorf("empty amount")
	}
	if len(frac) > int(decimals) {
		return types.Amount{}, fmt.Errorf("amount %q has more than %d decimal places", s, decimals)
	}
	if whole == "" {
		whole = "0"
	}
	raw := whole + frac + strings.Repeat("0", int(decimals)-len(frac))
	raw = strings.TrimLeft(raw, "0")
	if raw == "" {
		raw = "0"
	}
	amount, err := types.ParseAmount(raw)
	if err != nil {
		return types.Amount{}, fmt.Errorf("malformed amount %q", s)
	}
	return amount, nil
}

// formatTokens renders indivisible units as a human token amount.
func formatTokens(a types.Amount, decimals uint8) string {
	return formatScaled(a.BigInt(), decimals)
}

func formatScaled(v *big.Int, decimals uint8) string {
	raw := v.String()
	d := int(decimals)
	if d == 0 {
		return raw
	}
	if len(raw) <= d {
		raw = strings.Repeat("0", d-len(raw)+1) + raw
	}
	whole, frac := raw[:len(raw)-d], raw[len(raw)-d:]
	if len(frac) > maxDisplayedFraction {
		frac = frac[:maxDisplayedFraction]
	}
	frac = strings.TrimRight(frac, "0")
	if frac == "" {
		return whole
	}
	return whole + "." + frac
}
