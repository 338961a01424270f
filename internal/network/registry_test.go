package network

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookup_KnownAndFallback(t *testing.T) {
	r := Default()

	main := r.Lookup(Mainnet)
	assert.Equal(t, Mainnet, main.ID)
	assert.Equal(t, "https://mainnet.api.tez.ie", main.RPCEndpoint)
	assert.False(t, main.Testnet)

	unknown := r.Lookup("atlantis")
	assert.Equal(t, Ghostnet, unknown.ID)
	assert.True(t, unknown.Testnet)

	_, ok := r.Get("atlantis")
	assert.False(t, ok)
}

func TestNewRegistry_DefaultSelection(t *testing.T) {
	r, err := NewRegistry(Options{Default: "mainnet"})
	require.NoError(t, err)
	assert.Equal(t, Mainnet, r.DefaultNetwork().ID)

	r, err = NewRegistry(Options{Default: "nope"})
	require.NoError(t, err)
	assert.Equal(t, Ghostnet, r.DefaultNetwork().ID)
}

func TestNewRegistry_Overrides(t *testing.T) {
	r, err := NewRegistry(Options{
		RPCOverrides: map[string]string{"ghostnet": "http://localhost:8732"},
		APIOverrides: map[string]string{"mainnet": "http://localhost:5000"},
	})
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8732", r.Lookup(Ghostnet).RPCEndpoint)
	assert.Equal(t, "https://api.ghostnet.tzkt.io", r.Lookup(Ghostnet).ExplorerAPI)
	assert.Equal(t, "http://localhost:5000", r.Lookup(Mainnet).ExplorerAPI)

	_, err = NewRegistry(Options{RPCOverrides: map[string]string{"atlantis": "http://x"}})
	require.Error(t, err)
}

func TestNewRegistry_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "networks.yaml")
	doc := `
networks:
  - id: ghostnet
    rpc: http://ghost.local
  - id: sandbox
    name: Flextesa
    rpc: http://localhost:20000
    explorer_api: http://localhost:5000
    explorer_url: http://localhost:8080
    testnet: true
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0600))

	r, err := NewRegistry(Options{File: path, Default: "sandbox"})
	require.NoError(t, err)

	ghost := r.Lookup(Ghostnet)
	assert.Equal(t, "http://ghost.local", ghost.RPCEndpoint)
	assert.Equal(t, "https://api.ghostnet.tzkt.io", ghost.ExplorerAPI)
	assert.Equal(t, "https://faucet.ghostnet.teztnets.com", ghost.FaucetURL)

	sandbox := r.DefaultNetwork()
	assert.Equal(t, ID("sandbox"), sandbox.ID)
	assert.Equal(t, "Flextesa", sandbox.Name)

	ids := make([]ID, 0)
	for _, n := range r.List() {
		ids = append(ids, n.ID)
	}
	assert.Equal(t, []ID{Mainnet, Ghostnet, Oxfordnet, Shadownet, "sandbox"}, ids)
}

func TestNewRegistry_FileErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := NewRegistry(Options{File: filepath.Join(dir, "missing.yaml")})
	require.Error(t, err)

	incomplete := filepath.Join(dir, "incomplete.yaml")
	require.NoError(t, os.WriteFile(incomplete, []byte("networks:\n  - id: custom\n    rpc: http://x\n"), 0600))
	_, err = NewRegistry(Options{File: incomplete})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "explorer_api")
}

func TestNext_Wraps(t *testing.T) {
	r := Default()
	assert.Equal(t, Ghostnet, r.Next(Mainnet).ID)
	assert.Equal(t, Mainnet, r.Next(Shadownet).ID)
}

func TestExplorerLinks(t *testing.T) {
	n := Default().Lookup(Mainnet)
	assert.Equal(t, "https://tzkt.io/tz1abc", n.AccountURL("tz1abc"))
	assert.Equal(t, "https://tzkt.io/ooHash", n.OperationURL("ooHash"))
}
