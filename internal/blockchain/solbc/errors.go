// internal/blockchain/solbc/errors.go
package solbc

import (
	"errors"
	"strings"

	"github.com/gagliardetto/solana-go/rpc/jsonrpc"
)

var (
	ErrAccountNotFound     = errors.New("account not found")
	ErrConfirmationTimeout = errors.New("confirmation timeout")
	ErrTransactionFailed   = errors.New("transaction failed on chain")
)

// IsAccountNotFoundError reports whether err describes a missing account.
func IsAccountNotFoundError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrAccountNotFound) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "not found")
}

// IsPermanentError reports whether resubmitting the same transaction cannot
// succeed: preflight simulation rejected it, or it already failed on chain.
func IsPermanentError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrTransactionFailed) {
		return true
	}

	var rpcErr *jsonrpc.RPCError
	if !errors.As(err, &rpcErr) {
		return false
	}
	msg := strings.ToLower(rpcErr.Message)
	return strings.Contains(msg, "transaction simulation failed") ||
		strings.Contains(msg, "insufficient funds") ||
		strings.Contains(msg, "invalid transaction")
}
