package solbc

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc/jsonrpc"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/launchlab/internal/metrics"
)

// rpcServer answers JSON-RPC calls with the result returned by handle.
func rpcServer(t *testing.T, handle func(method string) any) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID     any    `json:"id"`
			Method string `json:"method"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result":  handle(req.Method),
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestClient_GetBalance(t *testing.T) {
	srv := rpcServer(t, func(method string) any {
		assert.Equal(t, "getBalance", method)
		return map[string]any{"context": map[string]any{"slot": 1}, "value": 1_500_000_000}
	})

	client := NewClient(srv.URL, zap.NewNop(), metrics.NewCollector(prometheus.NewRegistry()))
	balance, err := client.GetBalance(context.Background(), solana.SystemProgramID)
	require.NoError(t, err)
	assert.Equal(t, uint64(1_500_000_000), balance)
}

func TestClient_GetRecentBlockhash(t *testing.T) {
	srv := rpcServer(t, func(string) any {
		return map[string]any{
			"context": map[string]any{"slot": 1},
			"value": map[string]any{
				"blockhash":            solana.Hash{}.String(),
				"lastValidBlockHeight": 100,
			},
		}
	})

	hash, err := NewClient(srv.URL, zap.NewNop(), nil).GetRecentBlockhash(context.Background())
	require.NoError(t, err)
	assert.Equal(t, solana.Hash{}, hash)
}

func TestClient_WaitForTransactionConfirmation(t *testing.T) {
	var calls atomic.Int32
	srv := rpcServer(t, func(string) any {
		status := "processed"
		if calls.Add(1) >= 2 {
			status = "confirmed"
		}
		return map[string]any{
			"context": map[string]any{"slot": 1},
			"value": []any{map[string]any{
				"slot":               1,
				"confirmations":      nil,
				"err":                nil,
				"confirmationStatus": status,
			}},
		}
	})

	client := NewClient(srv.URL, zap.NewNop(), nil)
	client.SetConfirmationPolling(5*time.Millisecond, time.Second)

	require.NoError(t, client.WaitForTransactionConfirmation(context.Background(), solana.Signature{}))
	assert.GreaterOrEqual(t, calls.Load(), int32(2))
}

func TestClient_WaitForTransactionConfirmation_Failed(t *testing.T) {
	srv := rpcServer(t, func(string) any {
		return map[string]any{
			"context": map[string]any{"slot": 1},
			"value": []any{map[string]any{
				"slot":               1,
				"err":                map[string]any{"InstructionError": []any{0, "Custom"}},
				"confirmationStatus": "confirmed",
			}},
		}
	})

	client := NewClient(srv.URL, zap.NewNop(), nil)
	client.SetConfirmationPolling(5*time.Millisecond, time.Second)

	err := client.WaitForTransactionConfirmation(context.Background(), solana.Signature{})
	assert.ErrorIs(t, err, ErrTransactionFailed)
	assert.True(t, IsPermanentError(err))
}

func TestClient_WaitForTransactionConfirmation_Timeout(t *testing.T) {
	srv := rpcServer(t, func(string) any {
		return map[string]any{"context": map[string]any{"slot": 1}, "value": []any{nil}}
	})

	client := NewClient(srv.URL, zap.NewNop(), nil)
	client.SetConfirmationPolling(5*time.Millisecond, 30*time.Millisecond)

	err := client.WaitForTransactionConfirmation(context.Background(), solana.Signature{})
	assert.ErrorIs(t, err, ErrConfirmationTimeout)
	assert.False(t, IsPermanentError(err))
}

func TestIsPermanentError(t *testing.T) {
	assert.False(t, IsPermanentError(nil))
	assert.False(t, IsPermanentError(errors.New("connection reset")))
	assert.True(t, IsPermanentError(&jsonrpc.RPCError{Code: -32002, Message: "Transaction simulation failed: Attempt to debit an account but found no record of a prior credit."}))
	assert.False(t, IsPermanentError(&jsonrpc.RPCError{Code: -32005, Message: "Node is behind"}))
}

func TestIsAccountNotFoundError(t *testing.T) {
	assert.True(t, IsAccountNotFoundError(ErrAccountNotFound))
	assert.True(t, IsAccountNotFoundError(errors.New("could not find account: not found")))
	assert.False(t, IsAccountNotFoundError(errors.New("timeout")))
	assert.False(t, IsAccountNotFoundError(nil))
}
