// =============================
// File: internal/curve/types.go
// =============================
package curve

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Direction is the side of a trade against the curve.
type Direction int

const (
	Buy Direction = iota + 1
	Sell
)

func (d Direction) String() string {
	switch d {
	case Buy:
		return "buy"
	case Sell:
		return "sell"
	default:
		return fmt.Sprintf("direction(%d)", int(d))
	}
}

// Valid reports whether d is Buy or Sell.
func (d Direction) Valid() bool {
	return d == Buy || d == Sell
}

// ParseDirection converts "buy" / "sell" (case-insensitive) into a Direction.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "buy":
		return Buy, nil
	case "sell":
		return Sell, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidDirection, s)
	}
}

// Metadata describes the token a curve was registered for. Pricing ignores it.
type Metadata struct {
	Name        string
	Symbol      string
	Image       string
	Description string
}

// Record holds the state of one token's bonding curve.
//
// TokensSold, TotalSupply and AssetCollected are integers in smallest units.
// CurrentPrice, ProgressPercent and IsComplete are derived; they are cached
// for display and recomputed on every state change.
type Record struct {
	TokenID  string
	Metadata Metadata

	TokensSold     decimal.Decimal
	TotalSupply    decimal.Decimal
	AssetCollected decimal.Decimal

	CurrentPrice    decimal.Decimal
	ProgressPercent decimal.Decimal
	IsComplete      bool

	CreatedAt time.Time
}

// BuyQuote is the estimate for spending InputAssetAmount on the curve.
type BuyQuote struct {
	InputAssetAmount   decimal.Decimal // lamports offered
	AssetCost          decimal.Decimal // lamports actually consumed, < input only when Capped
	OutputTokenAmount  decimal.Decimal // token units received
	SpotPrice          decimal.Decimal // pre-trade price used for the whole trade
	NewPrice           decimal.Decimal
	PriceImpactPercent decimal.Decimal
	Capped             bool // output limited by the remaining allocation
}

// SellQuote is the estimate for returning InputTokenAmount to the curve.
type SellQuote struct {
	InputTokenAmount   decimal.Decimal // token units offered
	OutputAssetAmount  decimal.Decimal // lamports received
	SpotPrice          decimal.Decimal
	NewPrice           decimal.Decimal
	PriceImpactPercent decimal.Decimal
}

// NewRecord builds a fresh record at zero progress and the base price.
// createdAt is truncated to milliseconds, the resolution it is persisted with.
func NewRecord(tokenID string, totalSupply decimal.Decimal, meta Metadata, createdAt time.Time) (Record, error) {
	tokenID = strings.TrimSpace(tokenID)
	if tokenID == "" {
		return Record{}, fmt.Errorf("%w: empty token id", ErrInvalidRecord)
	}
	if !isPositiveInteger(totalSupply) {
		return Record{}, fmt.Errorf("%w: total supply %s", ErrInvalidAmount, totalSupply)
	}

	rec := Record{
		TokenID:        tokenID,
		Metadata:       meta,
		TokensSold:     decimal.Zero,
		TotalSupply:    totalSupply,
		AssetCollected: decimal.Zero,
		CreatedAt:      time.UnixMilli(createdAt.UnixMilli()),
	}
	return Refresh(rec), nil
}

// Validate checks the structural invariants of a record. Derived fields are
// not checked because Refresh can always rebuild them.
func (r Record) Validate() error {
	if strings.TrimSpace(r.TokenID) == "" {
		return fmt.Errorf("%w: empty token id", ErrInvalidRecord)
	}
	if !isPositiveInteger(r.TotalSupply) {
		return fmt.Errorf("%w: total supply %s", ErrInvalidRecord, r.TotalSupply)
	}
	if !isNonNegativeInteger(r.TokensSold) {
		return fmt.Errorf("%w: tokens sold %s", ErrInvalidRecord, r.TokensSold)
	}
	if r.TokensSold.GreaterThan(r.TotalSupply) {
		return fmt.Errorf("%w: tokens sold %s exceed total supply %s", ErrInvalidRecord, r.TokensSold, r.TotalSupply)
	}
	if !isNonNegativeInteger(r.AssetCollected) {
		return fmt.Errorf("%w: asset collected %s", ErrInvalidRecord, r.AssetCollected)
	}
	return nil
}

// Equal compares two records by value. decimal.Decimal needs Equal rather
// than == since the same number can have several internal representations.
func (r Record) Equal(o Record) bool {
	return r.TokenID == o.TokenID &&
		r.Metadata == o.Metadata &&
		r.TokensSold.Equal(o.TokensSold) &&
		r.TotalSupply.Equal(o.TotalSupply) &&
		r.AssetCollected.Equal(o.AssetCollected) &&
		r.CurrentPrice.Equal(o.CurrentPrice) &&
		r.ProgressPercent.Equal(o.ProgressPercent) &&
		r.IsComplete == o.IsComplete &&
		r.CreatedAt.Equal(o.CreatedAt)
}

func isPositiveInteger(d decimal.Decimal) bool {
	return d.IsPositive() && d.IsInteger()
}

func isNonNegativeInteger(d decimal.Decimal) bool {
	return !d.IsNegative() && d.IsInteger()
}
