package backup

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kelsos/tezos-dapp/internal/storage"
)

const (
	alice = "tz1VSUr8wwNhLAzempoch5d6hLRiTh8Cjcjb"
	bob   = "tz1aSkwEot3L2kmUvcoxzjMomb9mvBNuzFK6"
)

func newStore(t *testing.T) *storage.AccountStore {
	t.Helper()
	store, err := storage.NewAccountStore(t.TempDir())
	require.NoError(t, err)
	return store
}

func writeZip(t *testing.T, entries map[string]string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "backup.zip")
	f, err := os.Create(path)
	require.NoError(t, err)
	w := zip.NewWriter(f)
	for name, body := range entries {
		entry, err := w.Create(name)
		require.NoError(t, err)
		_, err = entry.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	require.NoError(t, f.Close())
	return path
}

func TestShouldIncludeInBackup(t *testing.T) {
	assert.True(t, ShouldIncludeInBackup("ghostnet_wallet.json", false))
	assert.False(t, ShouldIncludeInBackup("ghostnet_wallet.json", true))
	assert.False(t, ShouldIncludeInBackup(".wallet-123.tmp", false))
	assert.False(t, ShouldIncludeInBackup("notes.txt", false))
	assert.False(t, ShouldIncludeInBackup(filepath.Join("logs", "mainnet_wallet.json"), false))
}

func TestCreateAndRestoreBackup(t *testing.T) {
	src := newStore(t)
	now := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, src.SaveActiveAccount(storage.ActiveAccount{Address: alice, Network: "ghostnet", ConnectedAt: now}))
	require.NoError(t, src.SaveActiveAccount(storage.ActiveAccount{Address: bob, Network: "mainnet", ConnectedAt: now}))
	require.NoError(t, os.WriteFile(filepath.Join(src.Dir(), "notes.txt"), []byte("skip"), 0644))
	require.NoError(t, os.MkdirAll(filepath.Join(src.Dir(), "logs"), 0755))

	backupDir := filepath.Join(t.TempDir(), "out")
	file, err := CreateBackup(src, backupDir)
	require.NoError(t, err)

	reader, err := zip.OpenReader(file)
	require.NoError(t, err)
	var names []string
	for _, f := range reader.File {
		names = append(names, f.Name)
	}
	require.NoError(t, reader.Close())
	assert.ElementsMatch(t, []string{"ghostnet_wallet.json", "mainnet_wallet.json"}, names)

	dst := newStore(t)
	restored, err := RestoreBackup(file, dst)
	require.NoError(t, err)
	assert.Len(t, restored, 2)

	account, err := dst.LoadActiveAccount("mainnet")
	require.NoError(t, err)
	require.NotNil(t, account)
	assert.Equal(t, bob, account.Address)
	assert.True(t, now.Equal(account.ConnectedAt))
}

func TestRestoreBackup_RejectsBadEntries(t *testing.T) {
	tests := map[string]map[string]string{
		"invalid address":  {"ghostnet_wallet.json": `{"address":"tz1nope","network":"ghostnet"}`},
		"contract address": {"ghostnet_wallet.json": `{"address":"KT1RJ6PbjHpwc3M5rw5s2Nbmefwbuwbdxton","network":"ghostnet"}`},
		"network mismatch": {"mainnet_wallet.json": `{"address":"` + alice + `","network":"ghostnet"}`},
		"not json":         {"ghostnet_wallet.json": `{`},
	}

	for name, entries := range tests {
		t.Run(name, func(t *testing.T) {
			store := newStore(t)
			_, err := RestoreBackup(writeZip(t, entries), store)
			require.Error(t, err)

			account, err := store.LoadActiveAccount("ghostnet")
			require.NoError(t, err)
			assert.Nil(t, account)
		})
	}
}

func TestRestoreBackup_SkipsUnrelatedEntries(t *testing.T) {
	store := newStore(t)
	restored, err := RestoreBackup(writeZip(t, map[string]string{
		"README.txt":                 "hello",
		"nested/mainnet_wallet.json": `{"address":"` + bob + `","network":"mainnet"}`,
	}), store)
	require.NoError(t, err)
	assert.Empty(t, restored)
}
