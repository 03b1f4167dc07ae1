// internal/curve/pricing.go
package curve

import (
	"fmt"

	"github.com/shopspring/decimal"
)

const (
	// TokenDecimals is the number of decimals of a curve token unit.
	TokenDecimals = 6
	// AssetDecimals is the number of decimals of the base asset (lamports per SOL).
	AssetDecimals = 9

	// PricePrecision is the number of fractional digits kept by PriceAt.
	PricePrecision = 36
	// DisplayDecimals is the number of fractional digits shown to users.
	DisplayDecimals = 9
	// ProgressPrecision is the number of fractional digits of ProgressPercent.
	ProgressPrecision = 4
	// ImpactPrecision is the number of fractional digits of price impact percentages.
	ImpactPrecision = 18
)

var (
	// BasePrice is the spot price at zero progress (SOL per whole token).
	BasePrice = decimal.New(1, -6)
	// MaxPrice caps the curve on pathological inputs.
	MaxPrice = decimal.New(1, -4)

	// DefaultTotalSupply is the curve allocation used by the launch flow: 800M whole tokens.
	DefaultTotalSupply = decimal.New(800_000_000, TokenDecimals)

	hundred = decimal.NewFromInt(100)
)

// PriceAt returns basePrice * (1 + tokensSold/totalSupply)^3, capped at MaxPrice.
//
// The cube is expanded to (S+T)^3 / T^3 so the only rounding is a single
// truncating division at PricePrecision digits. A non-positive totalSupply
// yields BasePrice; a negative tokensSold is treated as zero.
func PriceAt(tokensSold, totalSupply decimal.Decimal) decimal.Decimal {
	if !totalSupply.IsPositive() {
		return BasePrice
	}
	if tokensSold.IsNegative() {
		tokensSold = decimal.Zero
	}

	sum := tokensSold.Add(totalSupply)
	num := sum.Mul(sum).Mul(sum).Mul(BasePrice)
	den := totalSupply.Mul(totalSupply).Mul(totalSupply)

	price, _ := num.QuoRem(den, PricePrecision)
	return decimal.Min(price, MaxPrice)
}

// ProgressPercent returns tokensSold / totalSupply * 100 clamped to [0, 100].
func ProgressPercent(tokensSold, totalSupply decimal.Decimal) decimal.Decimal {
	if !totalSupply.IsPositive() || !tokensSold.IsPositive() {
		return decimal.Zero
	}
	pct, _ := tokensSold.Mul(hundred).QuoRem(totalSupply, ProgressPrecision)
	return decimal.Min(pct, hundred)
}

// DisplayPrice truncates a full-precision price for presentation.
func DisplayPrice(price decimal.Decimal) decimal.Decimal {
	return price.Truncate(DisplayDecimals)
}

// QuoteBuy estimates the tokens received for inputAssetAmount lamports.
//
// The whole trade executes at the pre-trade spot price; the price is not
// integrated over the purchased range. Output is truncated to whole token
// units and limited to the allocation still unsold, in which case Capped is
// set and AssetCost is the (rounded up) cost of the capped output.
func QuoteBuy(rec Record, inputAssetAmount decimal.Decimal) (BuyQuote, error) {
	if !isPositiveInteger(inputAssetAmount) {
		return BuyQuote{}, fmt.Errorf("%w: buy amount %s", ErrInvalidAmount, inputAssetAmount)
	}

	spot := PriceAt(rec.TokensSold, rec.TotalSupply)

	// lamports -> SOL -> whole tokens -> token units, one truncating division.
	output, _ := inputAssetAmount.Shift(TokenDecimals-AssetDecimals).QuoRem(spot, 0)

	cost := inputAssetAmount
	capped := false
	if remaining := remainingSupply(rec); output.GreaterThan(remaining) {
		output = remaining
		capped = true
		cost = assetValue(output, spot).Ceil()
	}

	newPrice := PriceAt(rec.TokensSold.Add(output), rec.TotalSupply)

	return BuyQuote{
		InputAssetAmount:   inputAssetAmount,
		AssetCost:          cost,
		OutputTokenAmount:  output,
		SpotPrice:          spot,
		NewPrice:           newPrice,
		PriceImpactPercent: priceImpact(spot, newPrice),
		Capped:             capped,
	}, nil
}

// QuoteSell estimates the lamports received for inputTokenAmount token units.
//
// Selling more than TokensSold is not rejected: the post-trade counter is
// clamped to zero, matching ApplyTrade.
func QuoteSell(rec Record, inputTokenAmount decimal.Decimal) (SellQuote, error) {
	if !isPositiveInteger(inputTokenAmount) {
		return SellQuote{}, fmt.Errorf("%w: sell amount %s", ErrInvalidAmount, inputTokenAmount)
	}

	spot := PriceAt(rec.TokensSold, rec.TotalSupply)
	output := assetValue(inputTokenAmount, spot).Truncate(0)

	newSold := decimal.Max(decimal.Zero, rec.TokensSold.Sub(inputTokenAmount))
	newPrice := PriceAt(newSold, rec.TotalSupply)

	return SellQuote{
		InputTokenAmount:   inputTokenAmount,
		OutputAssetAmount:  output,
		SpotPrice:          spot,
		NewPrice:           newPrice,
		PriceImpactPercent: priceImpact(spot, newPrice),
	}, nil
}

// assetValue converts token units at price into (fractional) lamports.
func assetValue(tokenUnits, price decimal.Decimal) decimal.Decimal {
	return tokenUnits.Mul(price).Shift(AssetDecimals - TokenDecimals)
}

func remainingSupply(rec Record) decimal.Decimal {
	return decimal.Max(decimal.Zero, rec.TotalSupply.Sub(rec.TokensSold))
}

// priceImpact is |to - from| / from * 100. from is never below BasePrice.
func priceImpact(from, to decimal.Decimal) decimal.Decimal {
	if !from.IsPositive() {
		return decimal.Zero
	}
	return to.Sub(from).Abs().Mul(hundred).DivRound(from, ImpactPrecision)
}
