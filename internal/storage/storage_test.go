package storage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAccountStore_CreatesDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "data")

	s, err := NewAccountStore(dir)
	require.NoError(t, err)
	assert.Equal(t, dir, s.Dir())
	assert.DirExists(t, dir)

	_, err = NewAccountStore("")
	assert.Error(t, err)
}

func TestActiveAccount_SaveLoadClear(t *testing.T) {
	s, err := NewAccountStore(t.TempDir())
	require.NoError(t, err)

	got, err := s.LoadActiveAccount("ghostnet")
	require.NoError(t, err)
	assert.Nil(t, got)

	account := ActiveAccount{
		Address:     "tz1VSUr8wwNhLAzempoch5d6hLRiTh8Cjcjb",
		Network:     "ghostnet",
		PairingID:   "p-1",
		ConnectedAt: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	require.NoError(t, s.SaveActiveAccount(account))

	info, err := os.Stat(s.AccountFilePath("ghostnet"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	got, err = s.LoadActiveAccount("ghostnet")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, account, *got)

	other, err := s.LoadActiveAccount("mainnet")
	require.NoError(t, err)
	assert.Nil(t, other)

	require.NoError(t, s.ClearActiveAccount("ghostnet"))
	require.NoError(t, s.ClearActiveAccount("ghostnet"))

	got, err = s.LoadActiveAccount("ghostnet")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSaveActiveAccount_RejectsBadNetwork(t *testing.T) {
	s, err := NewAccountStore(t.TempDir())
	require.NoError(t, err)

	assert.Error(t, s.SaveActiveAccount(ActiveAccount{Address: "tz1", Network: ""}))
	assert.Error(t, s.SaveActiveAccount(ActiveAccount{Address: "tz1", Network: "../etc"}))
}

func TestLoadActiveAccount_Corrupt(t *testing.T) {
	s, err := NewAccountStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(s.AccountFilePath("ghostnet"), []byte("{broken"), 0600))
	_, err = s.LoadActiveAccount("ghostnet")
	assert.Error(t, err)
}

func TestIsAccountFile(t *testing.T) {
	s, err := NewAccountStore(t.TempDir())
	require.NoError(t, err)

	assert.True(t, s.IsAccountFile(filepath.Join(s.Dir(), "ghostnet_wallet.json"), "ghostnet"))
	assert.False(t, s.IsAccountFile(filepath.Join(s.Dir(), "mainnet_wallet.json"), "ghostnet"))
}
