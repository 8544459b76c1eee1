package rpc

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	leaseerrors "leasex/core/errors"
	"leasex/native/dispute"
	"leasex/native/leaseproperty"
	"leasex/native/marketplace"
	"leasex/observability/logging"
)

const (
	jsonRPCVersion  = "2.0"
	maxRequestBytes = 1 << 20 // 1 MiB
	requestIDHeader = "X-Request-ID"
)

const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeUnauthorized   = -32001
	codeServerError    = -32000
	codeDomain         = -32010
	codeRateLimited    = -32020
)

type RPCRequest struct {
	JSONRPC string            `json:"jsonrpc"`
	Method  string            `json:"method"`
	Params  []json.RawMessage `json:"params"`
	ID      interface{}       `json:"id"`
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

	status int
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

func invalidParams(format string, args ...interface{}) *RPCError {
	return &RPCError{Code: codeInvalidParams, Message: "invalid params", Data: fmt.Sprintf(format, args...), status: http.StatusBadRequest}
}

// call carries one decoded request to its handler.
type call struct {
	r      *http.Request
	req    *RPCRequest
	caller [20]byte
}

type handlerFunc func(c *call) (interface{}, error)

type method struct {
	auth bool
	fn   handlerFunc
}

func writeError(w http.ResponseWriter, status int, id interface{}, rpcErr *RPCError) {
	if status <= 0 {
		status = http.StatusBadRequest
	}
	if status != http.StatusOK {
		w.WriteHeader(status)
	}
	resp := RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Error: rpcErr}
	_ = json.NewEncoder(w).Encode(resp)
}

func writeResult(w http.ResponseWriter, id interface{}, result interface{}) {
	resp := RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Result: result}
	_ = json.NewEncoder(w).Encode(resp)
}

// handle decodes one JSON-RPC request, authenticates it when the method
// requires it and writes the response.
func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	requestID := uuid.NewString()
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set(requestIDHeader, requestID)

	methodName := "unknown"
	code := 0
	status := http.StatusOK
	defer func() {
		elapsed := time.Since(start)
		if s.observer != nil {
			s.observer.ObserveRequest(methodName, code, elapsed)
		}
		s.logger.Info("rpc request",
			slog.String("requestId", requestID),
			slog.String("method", methodName),
			slog.Int("code", code),
			slog.Int("status", status),
			slog.Duration("latency", elapsed))
		s.logger.Debug("rpc request headers", slog.String("requestId", requestID), logging.HeaderAttrs(r.Header))
	}()
	fail := func(id interface{}, rpcErr *RPCError) {
		code = rpcErr.Code
		status = rpcErr.status
		if status == 0 {
			status = http.StatusBadRequest
		}
		writeError(w, status, id, rpcErr)
	}

	if !s.limiter.allow(clientID(r, s.proxies)) {
		if s.observer != nil {
			s.observer.RecordThrottle("rate_limit")
		}
		fail(nil, &RPCError{Code: codeRateLimited, Message: "rate limit exceeded", status: http.StatusTooManyRequests})
		return
	}

	reader := http.MaxBytesReader(w, r.Body, maxRequestBytes)
	defer func() {
		_ = reader.Close()
	}()
	body, err := io.ReadAll(reader)
	if err != nil {
		rpcErr := &RPCError{Code: codeInvalidRequest, Message: "failed to read request body", Data: err.Error()}
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			rpcErr.status = http.StatusRequestEntityTooLarge
			rpcErr.Message = fmt.Sprintf("request body exceeds %d bytes", maxRequestBytes)
		}
		fail(nil, rpcErr)
		return
	}
	if len(bytes.TrimSpace(body)) == 0 {
		fail(nil, &RPCError{Code: codeInvalidRequest, Message: "request body required"})
		return
	}

	req := &RPCRequest{}
	if err := json.Unmarshal(body, req); err != nil {
		fail(nil, &RPCError{Code: codeParseError, Message: "invalid JSON payload", Data: err.Error()})
		return
	}
	if req.JSONRPC != "" && req.JSONRPC != jsonRPCVersion {
		fail(req.ID, &RPCError{Code: codeInvalidRequest, Message: "unsupported jsonrpc version", Data: req.JSONRPC})
		return
	}
	if req.Method == "" {
		fail(req.ID, &RPCError{Code: codeInvalidRequest, Message: "method required"})
		return
	}

	m, ok := s.methods[req.Method]
	if !ok {
		fail(req.ID, &RPCError{Code: codeMethodNotFound, Message: fmt.Sprintf("method %s not found", req.Method), status: http.StatusNotFound})
		return
	}
	methodName = req.Method

	c := &call{r: r, req: req}
	if m.auth {
		caller, authErr := s.authenticate(r)
		if authErr != nil {
			fail(req.ID, authErr)
			return
		}
		c.caller = caller
	}

	result, err := m.fn(c)
	if err != nil {
		fail(req.ID, s.toRPCError(req.Method, err))
		return
	}
	writeResult(w, req.ID, result)
}

// toRPCError maps handler failures onto the wire codes. Business rule
// rejections keep their message so clients can display it.
func (s *Server) toRPCError(methodName string, err error) *RPCError {
	var rpcErr *RPCError
	if errors.As(err, &rpcErr) {
		return rpcErr
	}
	if leaseerrors.IsDomain(err) {
		status := http.StatusConflict
		switch {
		case leaseerrors.IsNotFound(err):
			status = http.StatusNotFound
		case errors.Is(err, leaseproperty.ErrUnauthorized),
			errors.Is(err, marketplace.ErrUnauthorized),
			errors.Is(err, dispute.ErrUnauthorized):
			status = http.StatusForbidden
		}
		return &RPCError{Code: codeDomain, Message: err.Error(), status: status}
	}
	s.logger.Error("rpc method failed", slog.String("method", methodName), slog.Any("error", err))
	return &RPCError{Code: codeServerError, Message: "internal error", status: http.StatusInternalServerError}
}

// decodeParams unmarshals the single parameter object of a request.
func decodeParams(c *call, dst interface{}) error {
	if len(c.req.Params) != 1 {
		return invalidParams("exactly one parameter object expected")
	}
	dec := json.NewDecoder(bytes.NewReader(c.req.Params[0]))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return invalidParams("%v", err)
	}
	return nil
}
