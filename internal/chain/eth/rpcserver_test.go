package eth_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

// rpcReply is what a fake node answers to one JSON-RPC call.
type rpcReply struct {
	Result any
	Code   int
	Msg    string
	Status int
}

type rpcHandler func(call int, params []json.RawMessage) rpcReply

// fakeNode is an httptest JSON-RPC endpoint with per-method handlers.
type fakeNode struct {
	*httptest.Server

	mu       sync.Mutex
	handlers map[string]rpcHandler
	counts   map[string]int
}

func newFakeNode(t *testing.T, handlers map[string]rpcHandler) *fakeNode {
	t.Helper()

	n := &fakeNode{handlers: handlers, counts: make(map[string]int)}
	n.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID     json.RawMessage   `json:"id"`
			Method string            `json:"method"`
			Params []json.RawMessage `json:"params"`
		}
		if !assert.NoError(t, json.NewDecoder(r.Body).Decode(&req)) {
			return
		}

		n.mu.Lock()
		n.counts[req.Method]++
		call := n.counts[req.Method]
		handler := n.handlers[req.Method]
		n.mu.Unlock()

		reply := rpcReply{Code: -32601, Msg: "method not found: " + req.Method}
		if handler != nil {
			reply = handler(call, req.Params)
		}
		if reply.Status != 0 {
			w.WriteHeader(reply.Status)
			return
		}

		resp := map[string]any{"jsonrpc": "2.0", "id": req.ID}
		if reply.Code != 0 {
			resp["error"] = map[string]any{"code": reply.Code, "message": reply.Msg}
		} else {
			resp["result"] = reply.Result
		}
		w.Header().Set("Content-Type", "application/json")
		assert.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	t.Cleanup(n.Close)

	return n
}

func (n *fakeNode) count(method string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.counts[method]
}

func result(v any) rpcHandler {
	return func(int, []json.RawMessage) rpcReply { return rpcReply{Result: v} }
}
