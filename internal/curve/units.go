// internal/curve/units.go
package curve

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAssetAmount converts a human SOL amount ("0.5") into lamports.
// Digits beyond AssetDecimals are rejected rather than rounded.
func ParseAssetAmount(s string) (decimal.Decimal, error) {
	return parseUnits(s, AssetDecimals)
}

// ParseTokenAmount converts a human token amount ("1000.25") into token units.
func ParseTokenAmount(s string) (decimal.Decimal, error) {
	return parseUnits(s, TokenDecimals)
}

// FormatAssetAmount renders lamports as SOL.
func FormatAssetAmount(lamports decimal.Decimal) string {
	return lamports.Shift(-AssetDecimals).String()
}

// FormatTokenAmount renders token units as whole tokens.
func FormatTokenAmount(units decimal.Decimal) string {
	return units.Shift(-TokenDecimals).String()
}

func parseUnits(s string, decimals int32) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	units := d.Shift(decimals)
	if !isPositiveInteger(units) {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	return units, nil
}
