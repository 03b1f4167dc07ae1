// ==================================
// File: internal/wallet/settler.go
// ==================================
package wallet

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/gagliardetto/solana-go"
	computebudget "github.com/gagliardetto/solana-go/programs/compute-budget"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/programs/token"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/launchlab/internal/blockchain/solbc"
	"github.com/rovshanmuradov/launchlab/internal/curve"
	"github.com/rovshanmuradov/launchlab/internal/trade"
)

var (
	ErrAmountOutOfRange = errors.New("amount does not fit a ledger transfer")
	ErrInvalidMint      = errors.New("token id is not a valid mint address")
)

// Ledger is the chain access a Settler needs. *solbc.Client satisfies it.
type Ledger interface {
	GetRecentBlockhash(ctx context.Context) (solana.Hash, error)
	SendTransaction(ctx context.Context, tx *solana.Transaction) (solana.Signature, error)
	WaitForTransactionConfirmation(ctx context.Context, signature solana.Signature) error
}

// SettlerConfig tunes transaction building and submission.
type SettlerConfig struct {
	Vault        solana.PublicKey // receives lamports on buys and tokens on sells
	ComputeUnits uint32           // 0 leaves the runtime default
	PriorityFee  uint64           // micro-lamports per compute unit, 0 for none

	MaxTries      uint
	RetryDelay    time.Duration
	MaxRetryDelay time.Duration
	MaxElapsed    time.Duration
}

// DefaultSettlerConfig returns the submission defaults for vault.
func DefaultSettlerConfig(vault solana.PublicKey) SettlerConfig {
	return SettlerConfig{
		Vault:         vault,
		ComputeUnits:  200_000,
		MaxTries:      3,
		RetryDelay:    500 * time.Millisecond,
		MaxRetryDelay: 5 * time.Second,
		MaxElapsed:    15 * time.Second,
	}
}

// Settler moves the trader's side of a trade on chain: lamports to the
// vault on a buy, token units to the vault's token account on a sell.
type Settler struct {
	wallet *Wallet
	ledger Ledger
	cfg    SettlerConfig
	logger *zap.Logger
}

var _ trade.Settler = (*Settler)(nil)

// NewSettler creates a settler. A nil wallet yields a disconnected settler.
func NewSettler(w *Wallet, ledger Ledger, cfg SettlerConfig, logger *zap.Logger) *Settler {
	return &Settler{
		wallet: w,
		ledger: ledger,
		cfg:    cfg,
		logger: logger.Named("settler"),
	}
}

// IsConnected reports whether a signing wallet is loaded.
func (s *Settler) IsConnected() bool {
	return s.wallet != nil
}

// Settle builds, signs and submits the transfer for st and waits for its
// confirmation. Transient RPC failures are resubmitted with a fresh
// blockhash; rejected or unconfirmed transactions are not.
func (s *Settler) Settle(ctx context.Context, st trade.Settlement) (string, error) {
	if !s.IsConnected() {
		return "", trade.ErrWalletNotConnected
	}

	instructions, err := s.buildInstructions(st)
	if err != nil {
		return "", err
	}

	op := func() (solana.Signature, error) {
		blockhash, err := s.ledger.GetRecentBlockhash(ctx)
		if err != nil {
			return solana.Signature{}, fmt.Errorf("failed to get recent blockhash: %w", err)
		}

		tx, err := solana.NewTransaction(instructions, blockhash, solana.TransactionPayer(s.wallet.PublicKey))
		if err != nil {
			return solana.Signature{}, backoff.Permanent(fmt.Errorf("failed to create transaction: %w", err))
		}
		if err := s.wallet.SignTransaction(tx); err != nil {
			return solana.Signature{}, backoff.Permanent(fmt.Errorf("failed to sign transaction: %w", err))
		}

		sig, err := s.ledger.SendTransaction(ctx, tx)
		if err != nil {
			if solbc.IsPermanentError(err) {
				return solana.Signature{}, backoff.Permanent(err)
			}
			return solana.Signature{}, fmt.Errorf("failed to send transaction: %w", err)
		}

		// Once sent, the transaction may still land: never resubmit.
		if err := s.ledger.WaitForTransactionConfirmation(ctx, sig); err != nil {
			return solana.Signature{}, backoff.Permanent(fmt.Errorf("transaction %s: %w", sig, err))
		}
		return sig, nil
	}

	policy := backoff.NewExponentialBackOff()
	if s.cfg.RetryDelay > 0 {
		policy.InitialInterval = s.cfg.RetryDelay
	}
	if s.cfg.MaxRetryDelay > 0 {
		policy.MaxInterval = s.cfg.MaxRetryDelay
	}

	notify := func(err error, d time.Duration) {
		s.logger.Warn("Retrying settlement",
			zap.String("token_id", st.TokenID),
			zap.Error(err),
			zap.Duration("backoff", d))
	}

	opts := []backoff.RetryOption{
		backoff.WithBackOff(policy),
		backoff.WithNotify(notify),
	}
	if s.cfg.MaxTries > 0 {
		opts = append(opts, backoff.WithMaxTries(s.cfg.MaxTries))
	}
	if s.cfg.MaxElapsed > 0 {
		opts = append(opts, backoff.WithMaxElapsedTime(s.cfg.MaxElapsed))
	}

	sig, err := backoff.Retry(ctx, op, opts...)
	if err != nil {
		return "", err
	}

	s.logger.Info("Settlement confirmed",
		zap.String("token_id", st.TokenID),
		zap.String("direction", st.Direction.String()),
		zap.String("signature", sig.String()))
	return sig.String(), nil
}

func (s *Settler) buildInstructions(st trade.Settlement) ([]solana.Instruction, error) {
	var instructions []solana.Instruction
	if s.cfg.ComputeUnits > 0 {
		instructions = append(instructions, computebudget.NewSetComputeUnitLimitInstruction(s.cfg.ComputeUnits).Build())
	}
	if s.cfg.PriorityFee > 0 {
		instructions = append(instructions, computebudget.NewSetComputeUnitPriceInstruction(s.cfg.PriorityFee).Build())
	}

	switch st.Direction {
	case curve.Buy:
		lamports, err := toUint64(st.AssetAmount)
		if err != nil {
			return nil, err
		}
		return append(instructions,
			system.NewTransferInstruction(lamports, s.wallet.PublicKey, s.cfg.Vault).Build()), nil

	case curve.Sell:
		units, err := toUint64(st.TokenAmount)
		if err != nil {
			return nil, err
		}
		mint, err := solana.PublicKeyFromBase58(st.TokenID)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", ErrInvalidMint, st.TokenID)
		}
		source, err := s.wallet.GetATA(mint)
		if err != nil {
			return nil, err
		}
		destination, _, err := solana.FindAssociatedTokenAddress(s.cfg.Vault, mint)
		if err != nil {
			return nil, err
		}
		createVaultATA, err := CreateAssociatedTokenAccountIdempotentInstruction(s.wallet.PublicKey, s.cfg.Vault, mint)
		if err != nil {
			return nil, err
		}
		return append(instructions,
			createVaultATA,
			token.NewTransferInstruction(units, source, destination, s.wallet.PublicKey, nil).Build()), nil

	default:
		return nil, fmt.Errorf("%w: %d", curve.ErrInvalidDirection, int(st.Direction))
	}
}

func toUint64(d decimal.Decimal) (uint64, error) {
	if !d.IsPositive() || !d.IsInteger() {
		return 0, fmt.Errorf("%w: %s", ErrAmountOutOfRange, d)
	}
	n := d.BigInt()
	if !n.IsUint64() {
		return 0, fmt.Errorf("%w: %s", ErrAmountOutOfRange, d)
	}
	return n.Uint64(), nil
}
