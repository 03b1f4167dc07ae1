package curve

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummarize_FreshCurve(t *testing.T) {
	rec := newTestRecord(t, DefaultTotalSupply)
	s := Summarize(rec)

	assert.Equal(t, testMint, s.TokenID)
	assert.Equal(t, "Test", s.Name)
	assert.Equal(t, "TST", s.Symbol)
	assert.True(t, s.Price.Equal(BasePrice))
	assert.True(t, s.RemainingTokens.Equal(DefaultTotalSupply))
	assert.True(t, s.VirtualTokenReserves.Equal(DefaultTotalSupply))
	// 800M tokens * 1e-6 SOL = 800 SOL
	assert.True(t, s.VirtualAssetReserves.Equal(decimal.NewFromInt(800_000_000_000)), "got %s", s.VirtualAssetReserves)
	assert.True(t, s.MarketCap.Equal(decimal.NewFromInt(800)))
	assert.True(t, s.RealAssetReserves.IsZero())
	assert.False(t, s.IsComplete)
}

func TestSummarize_HalfwayCurve(t *testing.T) {
	rec := withSold(t, newTestRecord(t, DefaultTotalSupply), DefaultTotalSupply.Div(decimal.NewFromInt(2)))
	rec.AssetCollected = decimal.NewFromInt(123)
	s := Summarize(rec)

	// 1.5^3 * 1e-6 = 3.375e-6
	assert.True(t, s.Price.Equal(decimal.RequireFromString("0.000003375")), "got %s", s.Price)
	assert.True(t, s.ProgressPercent.Equal(decimal.NewFromInt(50)))
	assert.True(t, s.MarketCap.Equal(decimal.NewFromInt(2_700)))
	assert.True(t, s.RealAssetReserves.Equal(decimal.NewFromInt(123)))
}

func TestParseAmounts(t *testing.T) {
	lamports, err := ParseAssetAmount("1.5")
	require.NoError(t, err)
	assert.True(t, lamports.Equal(decimal.NewFromInt(1_500_000_000)))
	assert.Equal(t, "1.5", FormatAssetAmount(lamports))

	units, err := ParseTokenAmount(" 1000.25 ")
	require.NoError(t, err)
	assert.True(t, units.Equal(decimal.NewFromInt(1_000_250_000)))
	assert.Equal(t, "1000.25", FormatTokenAmount(units))

	for _, bad := range []string{"", "abc", "0", "-1", "0.0000000001"} {
		_, err := ParseAssetAmount(bad)
		assert.ErrorIs(t, err, ErrInvalidAmount, "input %q", bad)
	}
	_, err = ParseTokenAmount("0.0000001")
	assert.ErrorIs(t, err, ErrInvalidAmount)
}
