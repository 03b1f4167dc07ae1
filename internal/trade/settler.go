package trade

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rovshanmuradov/launchlab/internal/curve"
)

// Settlement is a trade to be moved on the ledger before curve state changes.
type Settlement struct {
	TokenID     string
	Direction   curve.Direction
	AssetAmount decimal.Decimal // lamports
	TokenAmount decimal.Decimal // token units
}

// Settler signs and submits settlements.
type Settler interface {
	IsConnected() bool
	// Settle returns the transaction signature of the settled trade.
	Settle(ctx context.Context, s Settlement) (string, error)
}

// SimulatedSettler settles nothing and returns a synthetic signature of the
// form simulated_<direction>_<unix ms>.
type SimulatedSettler struct {
	now func() time.Time
}

// NewSimulatedSettler creates a settler that is always connected.
func NewSimulatedSettler() *SimulatedSettler {
	return &SimulatedSettler{now: time.Now}
}

func (s *SimulatedSettler) IsConnected() bool { return true }

func (s *SimulatedSettler) Settle(ctx context.Context, st Settlement) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return fmt.Sprintf("simulated_%s_%d", st.Direction, s.now().UnixMilli()), nil
}
