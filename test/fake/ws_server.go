package fake

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/axelarnetwork/moi-rpc/jsonrpc"
)

// Handler answers a single call. A non-nil error info is sent as an error envelope
type Handler func(params []json.RawMessage) (any, *jsonrpc.ErrorInfo)

type request struct {
	ID     json.RawMessage   `json:"id"`
	Method string            `json:"method"`
	Params []json.RawMessage `json:"params"`
}

type response struct {
	JSONRPC string             `json:"jsonrpc"`
	ID      json.RawMessage    `json:"id"`
	Result  any                `json:"result,omitempty"`
	Error   *jsonrpc.ErrorInfo `json:"error,omitempty"`
}

type push struct {
	JSONRPC string     `json:"jsonrpc"`
	Method  string     `json:"method"`
	Params  pushParams `json:"params"`
}

type pushParams struct {
	Subscription string `json:"subscription"`
	Result       any    `json:"result"`
}

type wsConn struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
}

func (c *wsConn) write(v any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	return c.conn.WriteJSON(v)
}

// Node is an in-memory node answering JSON-RPC calls over HTTP and websocket.
// moi.subscribe and moi.unsubscribe are answered by default
type Node struct {
	mu       sync.Mutex
	handlers map[string]Handler
	calls    map[string][][]json.RawMessage
	conns    map[*wsConn]struct{}
	nextSub  int
	upgrader websocket.Upgrader
}

// NewNode returns a node with the subscription methods installed
func NewNode() *Node {
	n := &Node{
		handlers: make(map[string]Handler),
		calls:    make(map[string][][]json.RawMessage),
		conns:    make(map[*wsConn]struct{}),
	}

	n.Handle("moi.subscribe", func([]json.RawMessage) (any, *jsonrpc.ErrorInfo) {
		n.mu.Lock()
		defer n.mu.Unlock()

		n.nextSub++
		return fmt.Sprintf("0x%x", n.nextSub), nil
	})
	n.Handle("moi.unsubscribe", func([]json.RawMessage) (any, *jsonrpc.ErrorInfo) {
		return true, nil
	})

	return n
}

// NewServer serves the node. Websocket upgrades are accepted on every path
func NewServer(n *Node) *httptest.Server {
	return httptest.NewServer(n)
}

// WSURL returns the websocket address of a server
func WSURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

// Handle installs the handler of a method, replacing any previous one
func (n *Node) Handle(method string, h Handler) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.handlers[method] = h
}

// Calls returns the params of every call made to a method
func (n *Node) Calls(method string) [][]json.RawMessage {
	n.mu.Lock()
	defer n.mu.Unlock()

	return append([][]json.RawMessage(nil), n.calls[method]...)
}

// Push sends a subscription message to every websocket client
func (n *Node) Push(subscription string, result any) error {
	msg := push{
		JSONRPC: jsonrpc.Version,
		Method:  "moi.subscription",
		Params:  pushParams{Subscription: subscription, Result: result},
	}

	for _, c := range n.connections() {
		if err := c.write(msg); err != nil {
			return err
		}
	}

	return nil
}

// Connections returns the number of open websocket clients
func (n *Node) Connections() int {
	return len(n.connections())
}

// DropConnections closes every websocket client without a close handshake
func (n *Node) DropConnections() {
	for _, c := range n.connections() {
		_ = c.conn.Close()
	}
}

func (n *Node) connections() []*wsConn {
	n.mu.Lock()
	defer n.mu.Unlock()

	conns := make([]*wsConn, 0, len(n.conns))
	for c := range n.conns {
		conns = append(conns, c)
	}

	return conns
}

// ServeHTTP answers plain JSON-RPC posts and websocket upgrades
func (n *Node) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if websocket.IsWebSocketUpgrade(r) {
		n.serveWS(w, r)
		return
	}

	var req request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(n.answer(req))
}

func (n *Node) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := n.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	c := &wsConn{conn: conn}
	n.mu.Lock()
	n.conns[c] = struct{}{}
	n.mu.Unlock()

	defer func() {
		n.mu.Lock()
		delete(n.conns, c)
		n.mu.Unlock()
		_ = conn.Close()
	}()

	for {
		var req request
		if err := conn.ReadJSON(&req); err != nil {
			return
		}

		// answer asynchronously so slow handlers do not block pushes and pings
		go func() { _ = c.write(n.answer(req)) }()
	}
}

func (n *Node) answer(req request) response {
	n.mu.Lock()
	n.calls[req.Method] = append(n.calls[req.Method], req.Params)
	h, ok := n.handlers[req.Method]
	n.mu.Unlock()

	resp := response{JSONRPC: jsonrpc.Version, ID: req.ID}
	if !ok {
		resp.Error = &jsonrpc.ErrorInfo{Message: "method not found: " + req.Method, Code: "-32601"}
		return resp
	}

	resp.Result, resp.Error = h(req.Params)
	return resp
}
