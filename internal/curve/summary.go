// internal/curve/summary.go
package curve

import (
	"time"

	"github.com/shopspring/decimal"
)

// Summary is the listing view of a curve, expressed the way launch pages
// show a pool: virtual reserves, market cap and completion.
type Summary struct {
	TokenID string
	Name    string
	Symbol  string

	Price           decimal.Decimal // display precision
	ProgressPercent decimal.Decimal
	IsComplete      bool

	RemainingTokens      decimal.Decimal // token units
	VirtualTokenReserves decimal.Decimal // token units
	VirtualAssetReserves decimal.Decimal // lamports
	RealAssetReserves    decimal.Decimal // lamports
	MarketCap            decimal.Decimal // SOL, 2 decimals

	CreatedAt time.Time
}

// Summarize derives the listing view of rec.
func Summarize(rec Record) Summary {
	price := PriceAt(rec.TokensSold, rec.TotalSupply)
	remaining := remainingSupply(rec)
	wholeSupply := rec.TotalSupply.Shift(-TokenDecimals)

	return Summary{
		TokenID:              rec.TokenID,
		Name:                 rec.Metadata.Name,
		Symbol:               rec.Metadata.Symbol,
		Price:                DisplayPrice(price),
		ProgressPercent:      ProgressPercent(rec.TokensSold, rec.TotalSupply),
		IsComplete:           rec.IsComplete,
		RemainingTokens:      remaining,
		VirtualTokenReserves: remaining,
		VirtualAssetReserves: price.Mul(wholeSupply).Shift(AssetDecimals).Truncate(0),
		RealAssetReserves:    rec.AssetCollected,
		MarketCap:            price.Mul(wholeSupply).Truncate(2),
		CreatedAt:            rec.CreatedAt,
	}
}
