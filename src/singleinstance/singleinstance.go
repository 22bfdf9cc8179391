package singleinstance

// This file defines the API for single-instance ownership and command delegation.

import (
	"context"
	"encoding/json"
)

// Server owns the TCP endpoint and answers delegated command requests.
type Server interface {
	// Start begins listening on the first port of the configured range and accepting client requests.
	Start(ctx context.Context) error
	// Port returns the bound TCP port, or 0 if not started.
	Port() int
	// Next returns the next accepted connection as a Conn, or ctx error.
	Next(ctx context.Context) (Conn, error)
	// Close releases ownership and stops accepting clients.
	Close() error
}

// Conn represents one client connection and exposes request + response API.
type Conn interface {
	// Request returns the parsed client request.
	Request() Request
	// RespondSuccess sends the JSON encoding of result. A nil result is sent as null.
	RespondSuccess(result any) error
	// RespondError sends an error kind and a human-readable message.
	RespondError(kind, msg string) error
	// Close closes the underlying connection.
	Close() error
}

// Request is one command invocation sent as a single JSON line.
type Request struct {
	ID      string         `json:"id,omitempty"`
	Command string         `json:"command"`
	Args    map[string]any `json:"args,omitempty"`
}

// Client attempts to delegate a command to a resident server.
type Client interface {
	// Invoke scans the TCP range, performs the PING handshake and delegates req.
	// If no resident is found, returns delegated=false, err=nil.
	Invoke(ctx context.Context, req Request) (delegated bool, result json.RawMessage, err error)
}

// NewServer returns TCP implementation.
func NewServer() Server { return newTcpServer() }

// NewClient returns TCP implementation.
func NewClient() Client { return newTcpClient() }
