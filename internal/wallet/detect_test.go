package wallet

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSignerServer(t *testing.T) *httptest.Server {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		if !assert.NoError(t, json.NewDecoder(r.Body).Decode(&req)) {
			return
		}
		resp := map[string]any{"jsonrpc": "2.0", "id": req["id"], "result": "0x61"}
		w.Header().Set("Content-Type", "application/json")
		assert.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestDetectProvider_Signer(t *testing.T) {
	t.Parallel()

	server := newSignerServer(t)
	p, ok := DetectProvider(context.Background(), DetectConfig{SignerURL: server.URL, PollInterval: time.Second})
	require.True(t, ok)
	defer p.Close()

	_, isRPC := p.(*RPCProvider)
	assert.True(t, isRPC)
}

func TestDetectProvider_FallsBackToKeystore(t *testing.T) {
	t.Parallel()

	dir, _ := newTestKeystore(t)
	p, ok := DetectProvider(context.Background(), DetectConfig{
		SignerURL:   "http://127.0.0.1:1",
		KeystoreDir: dir,
		Node:        &fakeNode{},
	})
	require.True(t, ok)
	defer p.Close()

	_, isKeystore := p.(*KeystoreProvider)
	assert.True(t, isKeystore)
}

func TestDetectProvider_NothingFound(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		cfg  DetectConfig
	}{
		{"no sources", DetectConfig{}},
		{"empty keystore in auto mode", DetectConfig{KeystoreDir: t.TempDir(), Node: &fakeNode{}}},
		{"keystore without node", DetectConfig{Mode: ModeKeystore, KeystoreDir: t.TempDir()}},
		{"rpc mode unreachable", DetectConfig{Mode: ModeRPC, SignerURL: "http://127.0.0.1:1"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			p, ok := DetectProvider(context.Background(), tc.cfg)
			assert.False(t, ok)
			assert.Nil(t, p)
		})
	}
}

func TestDetectProvider_KeystoreModeAllowsEmpty(t *testing.T) {
	t.Parallel()

	p, ok := DetectProvider(context.Background(), DetectConfig{
		Mode:        ModeKeystore,
		KeystoreDir: t.TempDir(),
		Node:        &fakeNode{},
	})
	require.True(t, ok)
	p.Close()
}
