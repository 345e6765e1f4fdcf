package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignerSignAndVerify(t *testing.T) {
	signer := NewSigner("secret", time.Hour)
	token, expiresAt, err := signer.Sign("export-1", "2025-01/ledger.xlsx")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := signer.Verify(token, false)
	require.NoError(t, err)
	assert.Equal(t, "export-1", claims.ResourceID)
	assert.Equal(t, "2025-01/ledger.xlsx", claims.Path)
	assert.True(t, expiresAt.Equal(claims.ExpiresAt))
}

func TestSignerRejectsExpiredUnlessAllowed(t *testing.T) {
	signer := NewSigner("secret", time.Minute)
	issued := time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)
	signer.now = func() time.Time { return issued }
	token, _, err := signer.Sign("export-1", "ledger.csv")
	require.NoError(t, err)

	signer.now = func() time.Time { return issued.Add(2 * time.Minute) }
	_, err = signer.Verify(token, false)
	assert.ErrorIs(t, err, ErrTokenExpired)

	claims, err := signer.Verify(token, true)
	require.NoError(t, err)
	assert.Equal(t, "ledger.csv", claims.Path)
}

func TestSignerRejectsTamperedToken(t *testing.T) {
	signer := NewSigner("secret", time.Hour)
	token, _, err := signer.Sign("export-1", "ledger.csv")
	require.NoError(t, err)

	other := NewSigner("other-secret", time.Hour)
	_, err = other.Verify(token, false)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = signer.Verify("not-a-token", false)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestLocalStorageRejectsEscapingPaths(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	_, err = store.Save("../outside.csv", []byte("x"))
	assert.ErrorIs(t, err, ErrInvalidPath)

	name, err := store.Save("2025-01/ledger.csv", []byte("a,b\n"))
	require.NoError(t, err)
	f, err := store.Open(name)
	require.NoError(t, err)
	require.NoError(t, f.Close())
	require.NoError(t, store.Delete(name))
	require.NoError(t, store.Delete(name))
}
