// Package curve implements the bonding-curve pricing and progress engine.
//
// The engine is stateless. Every function receives a Record by value and
// returns a new value; persistence belongs to the storage package.
//
// Key Types and Functions:
//
//   - Record: curve state for one token (tokens sold, allocated supply, asset collected).
//   - PriceAt(): spot price for a given (tokensSold, totalSupply) pair.
//   - QuoteBuy(), QuoteSell(): trade estimates with price impact.
//   - ApplyTrade(): the only state transition a Record goes through after creation.
//   - Summarize(): listing view with market cap and virtual reserves.
//
// All quantities are integers in the smallest unit of their asset and are
// carried as decimal.Decimal so they never pass through float64:
//
//   - token units use TokenDecimals (6),
//   - base asset units use AssetDecimals (9, lamports),
//   - prices are base-asset whole units per whole token.
//
// Usage example:
//
//	rec, err := curve.NewRecord(mint, curve.DefaultTotalSupply, curve.Metadata{Name: "Demo", Symbol: "DEMO"}, time.Now())
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	quote, err := curve.QuoteBuy(rec, decimal.NewFromInt(1_000_000_000)) // 1 SOL
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	rec, err = curve.ApplyTrade(rec, quote.OutputTokenAmount, quote.AssetCost, curve.Buy)
package curve
