// Copyright 2026 The Trustplane Authors
// SPDX-License-Identifier: Apache-2.0

package service

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/trustplane/trustplane/lib/codec"
)

// Client calls actions on a trustplane Unix-socket service. One
// connection is dialed per call.
type Client struct {
	socketPath string
	timeout    time.Duration
}

// NewClient creates a client for the service at socketPath.
func NewClient(socketPath string) *Client {
	return &Client{
		socketPath: socketPath,
		timeout:    30 * time.Second,
	}
}

// ServiceError is a failure response from the service, carrying the
// machine-readable code from the response envelope.
type ServiceError struct {
	Action  string
	Code    string
	Message string
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("action %q failed (%s): %s", e.Action, e.Code, e.Message)
}

// Call sends one request and decodes the response data into result.
// The request map must not contain an "action" key; it is added here.
// Pass a nil result to discard response data.
func (c *Client) Call(ctx context.Context, action string, fields map[string]any, result any) error {
	request := make(map[string]any, len(fields)+1)
	for key, value := range fields {
		request[key] = value
	}
	request["action"] = action

	dialer := net.Dialer{Timeout: c.timeout}
	conn, err := dialer.DialContext(ctx, "unix", c.socketPath)
	if err != nil {
		return fmt.Errorf("dialing %s: %w", c.socketPath, err)
	}
	defer conn.Close()

	deadline := time.Now().Add(c.timeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}
	conn.SetDeadline(deadline)

	if err := codec.NewEncoder(conn).Encode(request); err != nil {
		return fmt.Errorf("sending %q request: %w", action, err)
	}

	var response Response
	if err := codec.NewDecoder(conn).Decode(&response); err != nil {
		return fmt.Errorf("reading %q response: %w", action, err)
	}

	if !response.OK {
		code := response.Code
		if code == "" {
			code = CodeInternal
		}
		return &ServiceError{Action: action, Code: code, Message: response.Error}
	}

	if result != nil && len(response.Data) > 0 {
		if err := codec.Unmarshal(response.Data, result); err != nil {
			return fmt.Errorf("decoding %q response data: %w", action, err)
		}
	}
	return nil
}
