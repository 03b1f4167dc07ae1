package storage

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rovshanmuradov/launchlab/internal/curve"
)

func TestEncode_QuantitiesAreStrings(t *testing.T) {
	rec, err := curve.NewRecord("mint1", decimal.RequireFromString("100000000000000000000"), curve.Metadata{Name: "N", Symbol: "S"}, time.UnixMilli(1_700_000_000_123))
	require.NoError(t, err)
	rec, err = curve.ApplyTrade(rec, decimal.RequireFromString("9007199254740993"), decimal.RequireFromString("12345678901234567890"), curve.Buy)
	require.NoError(t, err)

	data, err := Encode(rec)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, "9007199254740993", raw["tokensSold"])
	assert.Equal(t, "100000000000000000000", raw["totalSupply"])
	assert.Equal(t, "12345678901234567890", raw["solCollected"])
	assert.Equal(t, "mint1", raw["mintAddress"])
	assert.IsType(t, "", raw["currentPrice"])
	assert.Equal(t, float64(1_700_000_000_123), raw["createdAt"])

	got, err := Decode(data)
	require.NoError(t, err)
	assert.True(t, got.Equal(rec))
}

func TestDecode_RecomputesDerivedFields(t *testing.T) {
	payload := `{
		"mintAddress": "mint1",
		"tokenName": "N",
		"tokenSymbol": "S",
		"tokensSold": "400",
		"totalSupply": "800",
		"solCollected": "10",
		"currentPrice": "999",
		"progress": 3,
		"isComplete": false,
		"createdAt": 1700000000000
	}`

	rec, err := Decode([]byte(payload))
	require.NoError(t, err)
	assert.True(t, rec.CurrentPrice.Equal(decimal.RequireFromString("0.000003375")), "got %s", rec.CurrentPrice)
	assert.True(t, rec.ProgressPercent.Equal(decimal.NewFromInt(50)))
	assert.False(t, rec.IsComplete)
}

func TestDecode_KeepsStickyCompletion(t *testing.T) {
	payload := `{"mintAddress":"m","tokensSold":"0","totalSupply":"800","solCollected":"0","currentPrice":"0","progress":0,"isComplete":true,"createdAt":1}`

	rec, err := Decode([]byte(payload))
	require.NoError(t, err)
	assert.True(t, rec.IsComplete)
}

func TestDecode_Corrupt(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{"not json", `{not json`},
		{"empty", ``},
		{"numeric quantity", `{"mintAddress":"m","tokensSold":5,"totalSupply":"800","solCollected":"0"}`},
		{"missing supply", `{"mintAddress":"m","tokensSold":"0","solCollected":"0"}`},
		{"garbage decimal", `{"mintAddress":"m","tokensSold":"abc","totalSupply":"800","solCollected":"0"}`},
		{"negative sold", `{"mintAddress":"m","tokensSold":"-1","totalSupply":"800","solCollected":"0"}`},
		{"zero supply", `{"mintAddress":"m","tokensSold":"0","totalSupply":"0","solCollected":"0"}`},
		{"sold beyond supply", `{"mintAddress":"m","tokensSold":"5000","totalSupply":"800","solCollected":"0"}`},
		{"fractional collected", `{"mintAddress":"m","tokensSold":"0","totalSupply":"800","solCollected":"0.5"}`},
		{"empty id", `{"mintAddress":"","tokensSold":"0","totalSupply":"800","solCollected":"0"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.payload))
			assert.ErrorIs(t, err, ErrStorageCorrupt)
		})
	}
}
