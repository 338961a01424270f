package rpc

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kelsos/tezos-dapp/internal/tezos"
)

const alice = "tz1VSUr8wwNhLAzempoch5d6hLRiTh8Cjcjb"

func newTestServer(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL)
}

func TestBalance(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chains/main/blocks/head/context/contracts/"+alice+"/balance", r.URL.Path)
		_, _ = w.Write([]byte(`"42000000"`))
	})

	balance, err := c.Balance(context.Background(), alice)
	require.NoError(t, err)
	assert.Equal(t, int64(42_000_000), balance)
}

func TestBalance_InvalidAddressSkipsRequest(t *testing.T) {
	called := false
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
	})

	_, err := c.Balance(context.Background(), "tz1nope")
	require.ErrorIs(t, err, tezos.ErrInvalidAddress)
	assert.False(t, called)
}

func TestBalance_UpstreamError(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Unknown contract", http.StatusNotFound)
	})

	_, err := c.Balance(context.Background(), alice)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to fetch balance")
}

func TestBalance_Malformed(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`"forty-two"`))
	})

	_, err := c.Balance(context.Background(), alice)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse balance")
}

func TestHeadAndVersion(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/chains/main/blocks/head/header":
			_, _ = w.Write([]byte(`{"protocol":"PtParis","chain_id":"NetXnHfVqm9iesp","hash":"BLhead","level":7000000,"timestamp":"2024-09-01T10:00:00Z"}`))
		case "/version":
			_, _ = w.Write([]byte(`{"version":{"major":20,"minor":2,"additional_info":"release"},"network_version":{"chain_name":"TEZOS_ITHACANET_2022-01-25T15:00:00Z"}}`))
		default:
			http.NotFound(w, r)
		}
	})

	head, err := c.Head(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(7_000_000), head.Level)
	assert.Equal(t, "BLhead", head.Hash)
	assert.Equal(t, 2024, head.Timestamp.Year())

	version, err := c.Version(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "v20.2 (TEZOS_ITHACANET_2022-01-25T15:00:00Z)", version.String())
}
