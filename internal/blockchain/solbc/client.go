// internal/blockchain/solbc/client.go
package solbc

import (
	"context"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/launchlab/internal/metrics"
)

const (
	defaultPollInterval        = 500 * time.Millisecond
	defaultConfirmationTimeout = 30 * time.Second
)

// Client is a thin adapter over the solana-go RPC client: balances,
// blockhashes, submission and confirmation polling.
type Client struct {
	rpc     *rpc.Client
	logger  *zap.Logger
	metrics *metrics.Collector

	pollInterval        time.Duration
	confirmationTimeout time.Duration
}

// NewClient creates a client for rpcURL. collector may be nil.
func NewClient(rpcURL string, logger *zap.Logger, collector *metrics.Collector) *Client {
	return &Client{
		rpc:                 rpc.New(rpcURL),
		logger:              logger.Named("solbc-client"),
		metrics:             collector,
		pollInterval:        defaultPollInterval,
		confirmationTimeout: defaultConfirmationTimeout,
	}
}

// SetConfirmationPolling overrides how often and how long
// WaitForTransactionConfirmation polls.
func (c *Client) SetConfirmationPolling(interval, timeout time.Duration) {
	c.pollInterval = interval
	c.confirmationTimeout = timeout
}

// GetRecentBlockhash returns the latest finalized blockhash.
func (c *Client) GetRecentBlockhash(ctx context.Context) (solana.Hash, error) {
	start := time.Now()
	result, err := c.rpc.GetLatestBlockhash(ctx, rpc.CommitmentFinalized)
	c.metrics.RecordRPCLatency("getLatestBlockhash", time.Since(start))
	if err != nil {
		c.logger.Error("GetRecentBlockhash error", zap.Error(err))
		return solana.Hash{}, err
	}
	return result.Value.Blockhash, nil
}

// SendTransaction submits a signed transaction.
func (c *Client) SendTransaction(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	start := time.Now()
	sig, err := c.rpc.SendTransaction(ctx, tx)
	c.metrics.RecordRPCLatency("sendTransaction", time.Since(start))
	if err != nil {
		c.logger.Error("SendTransaction error", zap.Error(err))
		return solana.Signature{}, err
	}
	c.logger.Info("Transaction sent", zap.String("signature", sig.String()))
	return sig, nil
}

// GetBalance returns the lamport balance of pubkey at confirmed commitment.
func (c *Client) GetBalance(ctx context.Context, pubkey solana.PublicKey) (uint64, error) {
	start := time.Now()
	result, err := c.rpc.GetBalance(ctx, pubkey, rpc.CommitmentConfirmed)
	c.metrics.RecordRPCLatency("getBalance", time.Since(start))
	if err != nil {
		c.logger.Error("GetBalance error",
			zap.String("pubkey", pubkey.String()),
			zap.Error(err))
		return 0, err
	}
	return result.Value, nil
}

// GetTokenAccountBalance returns the raw token amount held by account.
func (c *Client) GetTokenAccountBalance(ctx context.Context, account solana.PublicKey) (string, error) {
	start := time.Now()
	result, err := c.rpc.GetTokenAccountBalance(ctx, account, rpc.CommitmentConfirmed)
	c.metrics.RecordRPCLatency("getTokenAccountBalance", time.Since(start))
	if err != nil {
		if IsAccountNotFoundError(err) {
			return "", fmt.Errorf("%w: %s", ErrAccountNotFound, account)
		}
		return "", err
	}
	return result.Value.Amount, nil
}

// GetSignatureStatuses fetches the statuses of signatures.
func (c *Client) GetSignatureStatuses(ctx context.Context, signatures ...solana.Signature) (*rpc.GetSignatureStatusesResult, error) {
	start := time.Now()
	result, err := c.rpc.GetSignatureStatuses(ctx, false, signatures...)
	c.metrics.RecordRPCLatency("getSignatureStatuses", time.Since(start))
	if err != nil {
		c.logger.Error("GetSignatureStatuses error", zap.Error(err))
		return nil, err
	}
	return result, nil
}

// WaitForTransactionConfirmation polls until signature is confirmed or
// finalized. A transaction that landed with an error is reported as
// ErrTransactionFailed.
func (c *Client) WaitForTransactionConfirmation(ctx context.Context, signature solana.Signature) error {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()
	timeout := time.After(c.confirmationTimeout)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timeout:
			return fmt.Errorf("%w: %s", ErrConfirmationTimeout, signature)
		case <-ticker.C:
			statuses, err := c.GetSignatureStatuses(ctx, signature)
			if err != nil {
				c.logger.Warn("Error getting signature statuses", zap.Error(err))
				continue
			}
			if statuses == nil || len(statuses.Value) == 0 || statuses.Value[0] == nil {
				continue
			}
			status := statuses.Value[0]
			if status.Err != nil {
				return fmt.Errorf("%w: %s: %v", ErrTransactionFailed, signature, status.Err)
			}
			if status.ConfirmationStatus == rpc.ConfirmationStatusFinalized ||
				status.ConfirmationStatus == rpc.ConfirmationStatusConfirmed {
				c.logger.Info("Transaction confirmed", zap.String("signature", signature.String()))
				return nil
			}
		}
	}
}
