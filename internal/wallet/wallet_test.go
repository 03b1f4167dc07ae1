package wallet

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWallet(t *testing.T) {
	key, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)

	w, err := NewWallet("  " + key.String() + "\n")
	require.NoError(t, err)
	assert.True(t, w.PublicKey.Equals(key.PublicKey()))
	assert.Equal(t, key.PublicKey().String(), w.String())

	_, err = NewWallet("0OIl")
	assert.Error(t, err)

	_, err = NewWallet(solana.NewWallet().PublicKey().String())
	assert.ErrorContains(t, err, "expected 64 bytes")
}

func TestGetATA_Cached(t *testing.T) {
	w := newTestWallet(t)
	mint := solana.MustPublicKeyFromBase58(testMint)

	first, err := w.GetATA(mint)
	require.NoError(t, err)
	second, err := w.GetATA(mint)
	require.NoError(t, err)

	expected, _, err := solana.FindAssociatedTokenAddress(w.PublicKey, mint)
	require.NoError(t, err)
	assert.Equal(t, expected, first)
	assert.Equal(t, first, second)
}

func TestResolve(t *testing.T) {
	alice, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)
	bob, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)

	dir := t.TempDir()
	single := filepath.Join(dir, "single.csv")
	multi := filepath.Join(dir, "multi.csv")
	require.NoError(t, os.WriteFile(single, []byte("name,key\nalice,"+alice.String()+"\n"), 0o600))
	require.NoError(t, os.WriteFile(multi, []byte("name,key\nalice,"+alice.String()+"\nbob,"+bob.String()+"\nbroken,xyz\n"), 0o600))

	w, err := Resolve(alice.String())
	require.NoError(t, err)
	assert.True(t, w.PublicKey.Equals(alice.PublicKey()))

	w, err = Resolve(single)
	require.NoError(t, err)
	assert.True(t, w.PublicKey.Equals(alice.PublicKey()))

	w, err = Resolve(multi + "#bob")
	require.NoError(t, err)
	assert.True(t, w.PublicKey.Equals(bob.PublicKey()))

	_, err = Resolve(multi)
	assert.ErrorContains(t, err, "holds 2 wallets")

	_, err = Resolve(multi + "#carol")
	assert.ErrorContains(t, err, "not found")
}
