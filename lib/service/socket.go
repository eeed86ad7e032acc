// Copyright 2026 The Trustplane Authors
// SPDX-License-Identifier: Apache-2.0

package service

import (
	"context"
	"crypto/ed25519"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"sync"
	"time"

	"github.com/trustplane/trustplane/lib/codec"
	"github.com/trustplane/trustplane/lib/servicetoken"
)

// ActionFunc processes an unauthenticated socket request. The raw
// parameter is the full CBOR request including the "action" field;
// the handler decodes its own fields from it.
//
// Return a value for the response "data" field (nil for a bare
// {ok: true}), or an error for a failure response.
type ActionFunc func(ctx context.Context, raw []byte) (any, error)

// AuthActionFunc processes an authenticated request. The token has
// already been signature-checked, expiry-checked, and audience-checked;
// its Subject is the caller.
type AuthActionFunc func(ctx context.Context, token *servicetoken.Token, raw []byte) (any, error)

// Response is the wire envelope for all socket responses.
type Response struct {
	OK    bool             `cbor:"ok"`
	Code  string           `cbor:"code,omitempty"`
	Error string           `cbor:"error,omitempty"`
	Data  codec.RawMessage `cbor:"data,omitempty"`
}

// SocketServerConfig configures a SocketServer.
type SocketServerConfig struct {
	// SocketPath is the Unix socket to listen on. Required.
	SocketPath string

	// Audience is the service name tokens must be scoped to.
	// Required if any HandleAuth action is registered.
	Audience string

	// VerifyKey is the Ed25519 public key that signed caller tokens.
	// Required if any HandleAuth action is registered.
	VerifyKey ed25519.PublicKey

	// Logger is the structured logger. Required.
	Logger *slog.Logger
}

// SocketServer serves the CBOR request/response protocol on a Unix
// socket. Each connection handles exactly one request/response cycle.
// Register actions with Handle and HandleAuth before calling Serve.
type SocketServer struct {
	socketPath string
	audience   string
	verifyKey  ed25519.PublicKey
	handlers   map[string]ActionFunc
	logger     *slog.Logger

	// ready is closed once the listener is accepting connections.
	ready chan struct{}

	// activeConnections tracks in-flight handlers so Serve can drain
	// them on shutdown.
	activeConnections sync.WaitGroup
}

// NewSocketServer creates a server. Call Serve to start listening.
func NewSocketServer(cfg SocketServerConfig) *SocketServer {
	if cfg.SocketPath == "" {
		panic("service.SocketServer: SocketPath is required")
	}
	if cfg.Logger == nil {
		panic("service.SocketServer: Logger is required")
	}
	return &SocketServer{
		socketPath: cfg.SocketPath,
		audience:   cfg.Audience,
		verifyKey:  cfg.VerifyKey,
		handlers:   make(map[string]ActionFunc),
		logger:     cfg.Logger,
		ready:      make(chan struct{}),
	}
}

// Handle registers an unauthenticated action. Panics on duplicates.
func (s *SocketServer) Handle(action string, handler ActionFunc) {
	if _, exists := s.handlers[action]; exists {
		panic(fmt.Sprintf("service.SocketServer: duplicate handler for action %q", action))
	}
	s.handlers[action] = handler
}

// HandleAuth registers an authenticated action: the request must carry
// a valid token for this server's audience, rejected with code
// "unauthenticated" otherwise. Panics on duplicates or if the server
// has no verify key.
func (s *SocketServer) HandleAuth(action string, handler AuthActionFunc) {
	if len(s.verifyKey) != ed25519.PublicKeySize {
		panic("service.SocketServer: HandleAuth requires a verify key")
	}
	if s.audience == "" {
		panic("service.SocketServer: HandleAuth requires an audience")
	}
	s.Handle(action, func(ctx context.Context, raw []byte) (any, error) {
		var envelope struct {
			Token []byte `cbor:"token"`
		}
		if err := codec.Unmarshal(raw, &envelope); err != nil {
			return nil, Errorf("unauthenticated", "invalid request envelope: %v", err)
		}
		if len(envelope.Token) == 0 {
			return nil, Errorf("unauthenticated", "action %q requires a token", action)
		}
		token, err := servicetoken.VerifyForAudience(s.verifyKey, envelope.Token, s.audience, time.Now())
		if err != nil {
			return nil, Errorf("unauthenticated", "token rejected: %v", err)
		}
		return handler(ctx, token, raw)
	})
}

// Ready returns a channel closed once the server is accepting
// connections.
func (s *SocketServer) Ready() <-chan struct{} {
	return s.ready
}

// Serve accepts connections and dispatches requests until ctx is
// cancelled, then drains active handlers. Any stale socket file is
// removed before listening; the socket file is removed on return.
func (s *SocketServer) Serve(ctx context.Context) error {
	if err := os.Remove(s.socketPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing stale socket %s: %w", s.socketPath, err)
	}

	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.socketPath, err)
	}
	defer func() {
		listener.Close()
		os.Remove(s.socketPath)
	}()

	// Unblock Accept when the context is cancelled.
	go func() {
		<-ctx.Done()
		listener.Close()
	}()

	s.logger.Info("socket server listening", "path", s.socketPath)
	close(s.ready)

	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				break
			}
			s.logger.Error("accept failed", "error", err)
			continue
		}

		s.activeConnections.Add(1)
		go func() {
			defer s.activeConnections.Done()
			s.handleConnection(ctx, conn)
		}()
	}

	s.activeConnections.Wait()
	return nil
}

// readTimeout bounds how long we wait for the client's request.
const readTimeout = 30 * time.Second

// writeTimeout bounds how long we wait for the response write.
const writeTimeout = 10 * time.Second

// maxRequestSize bounds a single CBOR request. Attestation reports are
// a few KB; 1 MB is generous for everything this service accepts.
const maxRequestSize = 1024 * 1024

func (s *SocketServer) handleConnection(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(readTimeout))

	// CBOR is self-delimiting, so one Decode reads exactly one
	// request. LimitReader keeps a bad client from exhausting memory.
	var raw codec.RawMessage
	if err := codec.NewDecoder(io.LimitReader(conn, maxRequestSize)).Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return
		}
		s.writeFailure(conn, CodeInternal, fmt.Sprintf("invalid request: %v", err))
		return
	}

	var header struct {
		Action string `cbor:"action"`
	}
	if err := codec.Unmarshal(raw, &header); err != nil {
		s.writeFailure(conn, CodeInternal, fmt.Sprintf("invalid request: %v", err))
		return
	}
	if header.Action == "" {
		s.writeFailure(conn, CodeInternal, "missing required field: action")
		return
	}

	handler, exists := s.handlers[header.Action]
	if !exists {
		s.writeFailure(conn, "unknown_action", fmt.Sprintf("unknown action %q", header.Action))
		return
	}

	result, err := handler(ctx, []byte(raw))
	if err != nil {
		code := CodeInternal
		var coded *Error
		if errors.As(err, &coded) {
			code = coded.Code
		}
		s.logger.Debug("action failed",
			"action", header.Action,
			"code", code,
			"error", err,
		)
		s.writeFailure(conn, code, err.Error())
		return
	}

	s.writeSuccess(conn, result)
}

func (s *SocketServer) writeFailure(conn net.Conn, code, message string) {
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := codec.NewEncoder(conn).Encode(Response{
		OK:    false,
		Code:  code,
		Error: message,
	}); err != nil {
		s.logger.Debug("failed to write failure response", "error", err)
	}
}

func (s *SocketServer) writeSuccess(conn net.Conn, result any) {
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))

	response := Response{OK: true}
	if result != nil {
		data, err := codec.Marshal(result)
		if err != nil {
			s.writeFailure(conn, CodeInternal, fmt.Sprintf("marshaling response: %v", err))
			return
		}
		response.Data = data
	}

	if err := codec.NewEncoder(conn).Encode(response); err != nil {
		s.logger.Debug("failed to write success response", "error", err)
	}
}
