package rpc

import (
	"bytes"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"vaultchain/core"
	"vaultchain/observability"
)

const (
	jsonRPCVersion  = "2.0"
	maxRequestBytes = 1 << 20 // 1 MiB
	rateLimitWindow = time.Minute
	maxTxPerWindow  = 60
)

const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeUnauthorized   = -32001
	codeServerError    = -32000
	codeRateLimited    = -32020
)

type rateLimiter struct {
	count       int
	windowStart time.Time
}

type Server struct {
	node    *core.Node
	metrics *observability.VaultMetrics

	mu           sync.Mutex
	rateLimiters map[string]*rateLimiter
	authToken    string
	now          func() time.Time
}

// NewServer builds the JSON-RPC front end. Privileged methods require the
// bearer token from VAULT_RPC_TOKEN; with the variable unset they are
// rejected outright.
func NewServer(node *core.Node) *Server {
	token := strings.TrimSpace(os.Getenv("VAULT_RPC_TOKEN"))
	return &Server{
		node:         node,
		rateLimiters: make(map[string]*rateLimiter),
		authToken:    token,
		now:          time.Now,
	}
}

// SetMetrics wires the request counter.
func (s *Server) SetMetrics(m *observability.VaultMetrics) { s.metrics = m }

func (s *Server) Start(addr string) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handle)
	return http.ListenAndServe(addr, mux)
}

// Handler exposes the RPC entry point for embedding into an existing mux.
func (s *Server) Handler() http.Handler {
	return http.HandlerFunc(s.handle)
}

type RPCRequest struct {
	JSONRPC string            `json:"jsonrpc"`
	Method  string            `json:"method"`
	Params  []json.RawMessage `json:"params"`
	ID      int               `json:"id"`
}

type RPCResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *RPCError   `json:"error,omitempty"`
}

type RPCError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func writeError(w http.ResponseWriter, status int, id interface{}, code int, message string, data interface{}) {
	if status <= 0 {
		status = http.StatusBadRequest
	}
	if status != http.StatusOK {
		w.WriteHeader(status)
	}
	errObj := &RPCError{Code: code, Message: message}
	if data != nil {
		errObj.Data = data
	}
	resp := RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Error: errObj}
	_ = json.NewEncoder(w).Encode(resp)
}

func writeResult(w http.ResponseWriter, id interface{}, result interface{}) {
	resp := RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Result: result}
	_ = json.NewEncoder(w).Encode(resp)
}

// statusRecorder captures the response status so request metrics can label
// the outcome after the handler has written.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// handle is the main request handler that routes to specific handlers.
func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	reader := http.MaxBytesReader(w, r.Body, maxRequestBytes)
	defer func() {
		_ = reader.Close()
	}()

	w.Header().Set("Content-Type", "application/json")

	body, err := io.ReadAll(reader)
	if err != nil {
		status := http.StatusBadRequest
		message := "failed to read request body"
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			status = http.StatusRequestEntityTooLarge
			message = fmt.Sprintf("request body exceeds %d bytes", maxRequestBytes)
		}
		writeError(w, status, nil, codeInvalidRequest, message, err.Error())
		return
	}
	if len(bytes.TrimSpace(body)) == 0 {
		writeError(w, http.StatusBadRequest, nil, codeInvalidRequest, "request body required", nil)
		return
	}

	req := &RPCRequest{}
	if err := json.Unmarshal(body, req); err != nil {
		writeError(w, http.StatusBadRequest, nil, codeParseError, "invalid JSON payload", err.Error())
		return
	}
	if req.JSONRPC != "" && req.JSONRPC != jsonRPCVersion {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidRequest, "unsupported jsonrpc version", req.JSONRPC)
		return
	}
	if req.Method == "" {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidRequest, "method required", nil)
		return
	}

	recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	s.dispatch(recorder, r, req)

	outcome := "ok"
	if recorder.status != http.StatusOK {
		outcome = "error"
	}
	s.metrics.ObserveRPC(req.Method, outcome)
}

func (s *Server) dispatch(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	switch req.Method {
	case "vault_deposit":
		s.handleMutation(w, r, req, s.handleDeposit)
	case "vault_withdraw":
		s.handleMutation(w, r, req, s.handleWithdraw)
	case "vault_withdrawAll":
		s.handleMutation(w, r, req, s.handleWithdrawAll)
	case "vault_getBalance":
		s.handleGetBalance(w, req)
	case "vault_getPricePerFullShare":
		s.handleGetPrice(w, req)
	case "vault_getShares":
		s.handleGetShares(w, req)
	case "vault_info":
		s.handleVaultInfo(w, req)
	case "strategy_harvest":
		s.handleMutation(w, r, req, s.handleHarvest)
	case "strategy_estimateHarvest":
		s.handleEstimateHarvest(w, req)
	case "strategy_info":
		s.handleStrategyInfo(w, req)
	case "strategy_ltv":
		s.handleLTV(w, req)
	case "farm_poolInfo":
		s.handleFarmPoolInfo(w, req)
	case "swap_pairInfo":
		s.handlePairInfo(w, req)
	case "node_getAccount":
		s.handleGetAccount(w, req)
	case "node_roles":
		s.handleRoles(w, req)
	case "node_paused":
		s.handlePaused(w, req)
	case "node_events":
		s.handleEvents(w, req)
	case "admin_pause":
		s.handleAdmin(w, r, req, s.handlePause)
	case "admin_unpause":
		s.handleAdmin(w, r, req, s.handleUnpause)
	case "admin_panic":
		s.handleAdmin(w, r, req, s.handlePanic)
	case "admin_retire":
		s.handleAdmin(w, r, req, s.handleRetire)
	case "admin_sweepStuckToken":
		s.handleAdmin(w, r, req, s.handleSweep)
	case "admin_setDepositFee":
		s.handleAdmin(w, r, req, s.handleSetDepositFee)
	case "admin_setDepositCap":
		s.handleAdmin(w, r, req, s.handleSetDepositCap)
	case "admin_setIdleBuffer":
		s.handleAdmin(w, r, req, s.handleSetIdleBuffer)
	case "admin_setWithdrawFee":
		s.handleAdmin(w, r, req, s.handleSetWithdrawFee)
	case "admin_setHarvestFees":
		s.handleAdmin(w, r, req, s.handleSetHarvestFees)
	case "admin_setHarvestMinOut":
		s.handleAdmin(w, r, req, s.handleSetHarvestMinOut)
	case "admin_setTargetLTV":
		s.handleAdmin(w, r, req, s.handleSetTargetLTV)
	case "admin_setStrategist":
		s.handleAdmin(w, r, req, s.handleSetStrategist)
	case "admin_setTreasury":
		s.handleAdmin(w, r, req, s.handleSetTreasury)
	case "admin_transferOwnership":
		s.handleAdmin(w, r, req, s.handleTransferOwnership)
	case "admin_initiateUpgrade":
		s.handleAdmin(w, r, req, s.handleInitiateUpgrade)
	case "admin_executeUpgrade":
		s.handleAdmin(w, r, req, s.handleExecuteUpgrade)
	case "admin_upgradeStatus":
		s.handleUpgradeStatus(w, req)
	case "admin_mint":
		s.handleAdmin(w, r, req, s.handleMint)
	default:
		writeError(w, http.StatusNotFound, req.ID, codeMethodNotFound, fmt.Sprintf("unknown method %s", req.Method), nil)
	}
}

type handlerFunc func(w http.ResponseWriter, req *RPCRequest)

// handleMutation rate-limits state-changing calls per source address.
func (s *Server) handleMutation(w http.ResponseWriter, r *http.Request, req *RPCRequest, fn handlerFunc) {
	if !s.allowSource(clientSource(r), s.now()) {
		writeError(w, http.StatusTooManyRequests, req.ID, codeRateLimited, "rate limit exceeded", nil)
		return
	}
	fn(w, req)
}

// handleAdmin additionally demands the bearer token.
func (s *Server) handleAdmin(w http.ResponseWriter, r *http.Request, req *RPCRequest, fn handlerFunc) {
	if authErr := s.requireAuth(r); authErr != nil {
		writeError(w, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
		return
	}
	s.handleMutation(w, r, req, fn)
}

func (s *Server) requireAuth(r *http.Request) *RPCError {
	if s.authToken == "" {
		return &RPCError{Code: codeUnauthorized, Message: "RPC authentication token not configured"}
	}
	header := r.Header.Get("Authorization")
	if header == "" {
		return &RPCError{Code: codeUnauthorized, Message: "missing Authorization header"}
	}
	if !strings.HasPrefix(header, "Bearer ") {
		return &RPCError{Code: codeUnauthorized, Message: "Authorization header must use Bearer scheme"}
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	if token == "" {
		return &RPCError{Code: codeUnauthorized, Message: "missing bearer token"}
	}
	if subtle.ConstantTimeCompare([]byte(token), []byte(s.authToken)) != 1 {
		return &RPCError{Code: codeUnauthorized, Message: "invalid RPC credentials"}
	}
	return nil
}

func (s *Server) allowSource(source string, now time.Time) bool {
	if source == "" {
		source = "unknown"
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	limiter, ok := s.rateLimiters[source]
	if !ok {
		limiter = &rateLimiter{windowStart: now}
		s.rateLimiters[source] = limiter
	}
	if now.Sub(limiter.windowStart) >= rateLimitWindow {
		limiter.windowStart = now
		limiter.count = 0
	}
	if limiter.count >= maxTxPerWindow {
		return false
	}
	limiter.count++
	return true
}

func clientSource(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		if len(parts) > 0 {
			candidate := strings.TrimSpace(parts[0])
			if candidate != "" {
				return candidate
			}
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
