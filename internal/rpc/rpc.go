// Copyright (c) 2024 The gem developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package rpc implements the node's JSON-RPC 2.0 HTTP interface:
// gem_getBalance, gem_getBlockByNumber, gem_getBlockByHash. Dispatch is a
// method table, each handler returning a plain Go value marshalled back as
// the JSON-RPC result.
package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/decred/slog"

	"github.com/gem-network/gem/internal/block"
	"github.com/gem-network/gem/internal/primitives"
	"github.com/gem-network/gem/internal/state"
	"github.com/gem-network/gem/internal/store"
)

// Log is the package-level logger, wired to a slog.Backend by cmd/gemd.
var Log = slog.Disabled

// Error codes returned in the JSON-RPC error object. Clients match on
// these numerically.
const (
	ErrCodeStateLock = 0
	ErrCodeBase58    = 1
	ErrCodeNotFound  = 2
	ErrCodeHash      = 3
)

// connectTimeout bounds how long a client may take to deliver its request
// headers.
const connectTimeout = 20 * time.Second

// rpcError carries a JSON-RPC error code alongside a message.
type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *rpcError) Error() string { return e.Message }

func newRPCError(code int, format string, args ...interface{}) *rpcError {
	return &rpcError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// request is a JSON-RPC 2.0 request envelope.
type request struct {
	ID     json.RawMessage   `json:"id"`
	Method string            `json:"method"`
	Params []json.RawMessage `json:"params"`
}

// response is a JSON-RPC 2.0 response envelope; exactly one of Result or
// Error is set.
type response struct {
	ID     json.RawMessage `json:"id"`
	Result interface{}     `json:"result,omitempty"`
	Error  *rpcError       `json:"error,omitempty"`
}

// blockView is the JSON shape returned for a block: the header plus its
// ordered transaction hashes. Full transaction bodies are deliberately not
// inlined.
type blockView struct {
	Height            uint64   `json:"height"`
	Hash              string   `json:"hash"`
	PrevBlock         string   `json:"prevBlock"`
	Generator         string   `json:"generator"`
	Reward            uint64   `json:"reward"`
	Root              string   `json:"root"`
	TransactionsCount uint64   `json:"transactionsCount"`
	NBits             uint32   `json:"nBits"`
	Nonce             uint64   `json:"nonce"`
	Transactions      []string `json:"transactions"`
}

// Server is the JSON-RPC HTTP server.
type Server struct {
	httpServer *http.Server
	state      *state.State
}

// New builds an RPC server bound to addr (e.g. "127.0.0.1:31337"),
// answering from st.
func New(addr string, st *state.State) *Server {
	srv := &Server{state: st}
	mux := http.NewServeMux()
	mux.HandleFunc("/", srv.handle)
	srv.httpServer = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: connectTimeout,
	}
	return srv
}

// ListenAndServe starts serving RPC requests; it blocks until the server is
// shut down or fails.
func (s *Server) ListenAndServe() error {
	Log.Infof("rpc: listening on %s", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	var req request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, nil, newRPCError(ErrCodeHash, "malformed JSON-RPC request: %v", err))
		return
	}

	result, rpcErr := s.dispatch(req.Method, req.Params)
	if rpcErr != nil {
		writeError(w, req.ID, rpcErr)
		return
	}
	writeResult(w, req.ID, result)
}

func (s *Server) dispatch(method string, params []json.RawMessage) (interface{}, *rpcError) {
	switch method {
	case "gem_getBalance":
		return s.getBalance(params)
	case "gem_getBlockByNumber":
		return s.getBlockByNumber(params)
	case "gem_getBlockByHash":
		return s.getBlockByHash(params)
	default:
		return nil, newRPCError(ErrCodeNotFound, "unknown method %q", method)
	}
}

func (s *Server) getBalance(params []json.RawMessage) (interface{}, *rpcError) {
	var addrStr string
	if err := decodeParam(params, 0, &addrStr); err != nil {
		return nil, newRPCError(ErrCodeBase58, "%v", err)
	}
	addrBytes, err := primitives.DecodeBase58(addrStr)
	if err != nil {
		return nil, newRPCError(ErrCodeBase58, "malformed address: %v", err)
	}
	addr, err := primitives.NewAddressFromBytes(addrBytes)
	if err != nil {
		return nil, newRPCError(ErrCodeBase58, "malformed address: %v", err)
	}

	balance, err := s.state.AccountBalance(addr)
	if err != nil {
		return nil, newRPCError(ErrCodeStateLock, "%v", err)
	}
	return balance, nil
}

func (s *Server) getBlockByNumber(params []json.RawMessage) (interface{}, *rpcError) {
	var height uint64
	if err := decodeParam(params, 0, &height); err != nil {
		return nil, newRPCError(ErrCodeHash, "%v", err)
	}
	h, err := s.state.HeaderByHeight(height)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, newRPCError(ErrCodeNotFound, "no block at height %d", height)
		}
		return nil, newRPCError(ErrCodeStateLock, "%v", err)
	}
	return s.viewOf(h)
}

func (s *Server) getBlockByHash(params []json.RawMessage) (interface{}, *rpcError) {
	var hashStr string
	if err := decodeParam(params, 0, &hashStr); err != nil {
		return nil, newRPCError(ErrCodeHash, "%v", err)
	}
	hash, err := primitives.NewHashFromString(hashStr)
	if err != nil {
		return nil, newRPCError(ErrCodeHash, "malformed hash: %v", err)
	}
	h, err := s.state.HeaderByHash(hash)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, newRPCError(ErrCodeNotFound, "no block with hash %s", hashStr)
		}
		return nil, newRPCError(ErrCodeStateLock, "%v", err)
	}
	return s.viewOf(h)
}

func (s *Server) viewOf(hdr *block.Header) (interface{}, *rpcError) {
	hash := hdr.Hash()
	txHashes, err := s.state.BlockTransactionHashes(hash)
	if err != nil {
		return nil, newRPCError(ErrCodeStateLock, "%v", err)
	}

	txStrings := make([]string, len(txHashes))
	for i, th := range txHashes {
		txStrings[i] = th.String()
	}

	return blockView{
		Height:            hdr.Height,
		Hash:              hash.String(),
		PrevBlock:         hdr.PrevBlock.String(),
		Generator:         hdr.Generator.String(),
		Reward:            hdr.Reward,
		Root:              hdr.Root.String(),
		TransactionsCount: hdr.TransactionsCount,
		NBits:             hdr.NBits,
		Nonce:             hdr.Nonce,
		Transactions:      txStrings,
	}, nil
}

func decodeParam(params []json.RawMessage, i int, out interface{}) error {
	if i >= len(params) {
		return fmt.Errorf("rpc: missing parameter %d", i)
	}
	return json.Unmarshal(params[i], out)
}

func writeResult(w http.ResponseWriter, id json.RawMessage, result interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response{ID: id, Result: result})
}

func writeError(w http.ResponseWriter, id json.RawMessage, rpcErr *rpcError) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response{ID: id, Error: rpcErr})
}
