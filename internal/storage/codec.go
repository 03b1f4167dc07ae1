// internal/storage/codec.go
package storage

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/rovshanmuradov/launchlab/internal/curve"
	"github.com/shopspring/decimal"
)

// wireRecord is the persisted form of a curve.Record. Integer quantities and
// the price travel as decimal strings so values beyond 2^53 survive any JSON
// consumer.
type wireRecord struct {
	MintAddress  string  `json:"mintAddress"`
	TokenName    string  `json:"tokenName"`
	TokenSymbol  string  `json:"tokenSymbol"`
	TokenImage   string  `json:"tokenImage,omitempty"`
	Description  string  `json:"description,omitempty"`
	TokensSold   string  `json:"tokensSold"`
	TotalSupply  string  `json:"totalSupply"`
	SolCollected string  `json:"solCollected"`
	CurrentPrice string  `json:"currentPrice"`
	Progress     float64 `json:"progress"`
	IsComplete   bool    `json:"isComplete"`
	CreatedAt    int64   `json:"createdAt"` // unix ms
}

// Encode serializes rec for a Backend.
func Encode(rec curve.Record) ([]byte, error) {
	if err := rec.Validate(); err != nil {
		return nil, err
	}

	w := wireRecord{
		MintAddress:  rec.TokenID,
		TokenName:    rec.Metadata.Name,
		TokenSymbol:  rec.Metadata.Symbol,
		TokenImage:   rec.Metadata.Image,
		Description:  rec.Metadata.Description,
		TokensSold:   rec.TokensSold.String(),
		TotalSupply:  rec.TotalSupply.String(),
		SolCollected: rec.AssetCollected.String(),
		CurrentPrice: rec.CurrentPrice.String(),
		Progress:     rec.ProgressPercent.InexactFloat64(),
		IsComplete:   rec.IsComplete,
		CreatedAt:    rec.CreatedAt.UnixMilli(),
	}

	data, err := json.Marshal(w)
	if err != nil {
		return nil, fmt.Errorf("encode curve %s: %w", rec.TokenID, err)
	}
	return data, nil
}

// Decode parses a payload written by Encode. The stored price and progress
// are only display caches: both are recomputed from the counters, and the
// stored completion flag is kept if already set.
func Decode(data []byte) (curve.Record, error) {
	var w wireRecord
	if err := json.Unmarshal(data, &w); err != nil {
		return curve.Record{}, fmt.Errorf("%w: %w", ErrStorageCorrupt, err)
	}

	sold, err := parseQuantity("tokensSold", w.TokensSold)
	if err != nil {
		return curve.Record{}, err
	}
	supply, err := parseQuantity("totalSupply", w.TotalSupply)
	if err != nil {
		return curve.Record{}, err
	}
	collected, err := parseQuantity("solCollected", w.SolCollected)
	if err != nil {
		return curve.Record{}, err
	}

	rec := curve.Record{
		TokenID: w.MintAddress,
		Metadata: curve.Metadata{
			Name:        w.TokenName,
			Symbol:      w.TokenSymbol,
			Image:       w.TokenImage,
			Description: w.Description,
		},
		TokensSold:     sold,
		TotalSupply:    supply,
		AssetCollected: collected,
		IsComplete:     w.IsComplete,
		CreatedAt:      time.UnixMilli(w.CreatedAt),
	}
	if err := rec.Validate(); err != nil {
		return curve.Record{}, fmt.Errorf("%w: %w", ErrStorageCorrupt, err)
	}

	return curve.Refresh(rec), nil
}

func parseQuantity(field, s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, fmt.Errorf("%w: missing %s", ErrStorageCorrupt, field)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %s: %w", ErrStorageCorrupt, field, err)
	}
	return d, nil
}
