// internal/curve/transition.go
package curve

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ApplyTrade returns rec with a settled trade applied. It does not persist.
//
// Buy adds both deltas; tokensSold is capped at totalSupply. Sell subtracts
// both deltas, each floored at zero on its own, so tokensSold and
// assetCollected can drift apart under heavy over-selling. Negative deltas
// count as zero. Once IsComplete is set it is never cleared.
func ApplyTrade(rec Record, tokenDelta, assetDelta decimal.Decimal, dir Direction) (Record, error) {
	if !dir.Valid() {
		return rec, fmt.Errorf("%w: %s", ErrInvalidDirection, dir)
	}

	tokenDelta = decimal.Max(decimal.Zero, tokenDelta)
	assetDelta = decimal.Max(decimal.Zero, assetDelta)

	switch dir {
	case Buy:
		rec.TokensSold = decimal.Min(rec.TokensSold.Add(tokenDelta), rec.TotalSupply)
		rec.AssetCollected = rec.AssetCollected.Add(assetDelta)
	case Sell:
		rec.TokensSold = decimal.Max(decimal.Zero, rec.TokensSold.Sub(tokenDelta))
		rec.AssetCollected = decimal.Max(decimal.Zero, rec.AssetCollected.Sub(assetDelta))
	}

	return Refresh(rec), nil
}

// Refresh recomputes the derived fields of rec from tokensSold and totalSupply.
func Refresh(rec Record) Record {
	rec.CurrentPrice = PriceAt(rec.TokensSold, rec.TotalSupply)
	rec.ProgressPercent = ProgressPercent(rec.TokensSold, rec.TotalSupply)
	rec.IsComplete = rec.IsComplete || rec.ProgressPercent.GreaterThanOrEqual(hundred)
	return rec
}
