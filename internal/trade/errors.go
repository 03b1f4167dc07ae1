package trade

import "errors"

var (
	// ErrWalletNotConnected is returned when the settler has no signing wallet.
	ErrWalletNotConnected = errors.New("wallet not connected")

	// ErrSettlementFailed wraps settler failures. Curve state is unchanged when it is returned.
	ErrSettlementFailed = errors.New("settlement failed")

	// ErrCurveComplete is returned for buys against a completed curve.
	ErrCurveComplete = errors.New("bonding curve complete")
)
