package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/shakram02/go-sql-admin-mcp/internal/scripts"
)

// MCPServer handles MCP protocol over stdio
type MCPServer struct {
	admin        *Admin
	adapter      DBAdapter
	scripts      *scripts.Library
	queryTimeout time.Duration
	initialized  bool
	ctx          context.Context
	cancel       context.CancelFunc
}

// NewMCPServer wraps an open Admin and script library.
func NewMCPServer(ctx context.Context, admin *Admin, library *scripts.Library, queryTimeout time.Duration) *MCPServer {
	if queryTimeout <= 0 {
		queryTimeout = DefaultQueryTimeout
	}
	serverCtx, serverCancel := context.WithCancel(ctx)
	return &MCPServer{
		admin:        admin,
		adapter:      admin.adapter,
		scripts:      library,
		queryTimeout: queryTimeout,
		ctx:          serverCtx,
		cancel:       serverCancel,
	}
}

// Run starts the MCP server, reading from stdin and writing to stdout
func (s *MCPServer) Run() error {
	return s.serve(os.Stdin, os.Stdout)
}

// serve reads one JSON-RPC message per line from r and writes one response
// per line to w.
func (s *MCPServer) serve(r io.Reader, w io.Writer) error {
	reader := bufio.NewReader(r)

	for {
		select {
		case <-s.ctx.Done():
			return s.ctx.Err()
		default:
		}

		line, err := reader.ReadString('\n')
		if err != nil && err != io.EOF {
			return fmt.Errorf("failed to read input: %w", err)
		}
		eof := err == io.EOF

		line = strings.TrimSpace(line)
		if line != "" {
			if response := s.handleMessage([]byte(line)); response != nil {
				responseBytes, err := json.Marshal(response)
				if err != nil {
					logError("Failed to marshal response: %v", err)
				} else if _, err := fmt.Fprintln(w, string(responseBytes)); err != nil {
					return fmt.Errorf("failed to write response: %w", err)
				}
			}
		}

		if eof {
			return nil
		}
	}
}

func (s *MCPServer) handleMessage(data []byte) *JSONRPCResponse {
	var req JSONRPCRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return &JSONRPCResponse{
			JSONRPC: "2.0",
			ID:      nil,
			Error: &Error{
				Code:    ParseError,
				Message: "Parse error",
				Data:    err.Error(),
			},
		}
	}

	if req.JSONRPC != "2.0" {
		return &JSONRPCResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Error: &Error{
				Code:    InvalidRequest,
				Message: "Invalid JSON-RPC version",
			},
		}
	}

	return s.handleRequest(&req)
}

func (s *MCPServer) handleRequest(req *JSONRPCRequest) *JSONRPCResponse {
	var result any
	var err *Error

	switch req.Method {
	case "initialize":
		result, err = s.handleInitialize(req.Params)
	case "initialized", "notifications/initialized":
		// Notification, no response needed
		return nil
	case "tools/list":
		result, err = s.handleListTools()
	case "tools/call":
		result, err = s.handleCallTool(req.Params)
	case "resources/list":
		result, err = s.handleListResources()
	case "resources/read":
		result, err = s.handleReadResource(req.Params)
	case "ping":
		result = map[string]any{}
	default:
		err = &Error{
			Code:    MethodNotFound,
			Message: fmt.Sprintf("Method not found: %s", req.Method),
		}
	}

	// A nil pointer stored in the interface would marshal as null.
	if err != nil {
		result = nil
	}

	return &JSONRPCResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result:  result,
		Error:   err,
	}
}

func (s *MCPServer) timeout() (context.Context, context.CancelFunc) {
	return context.WithTimeout(s.ctx, s.queryTimeout)
}

// Shutdown gracefully shuts down the server
func (s *MCPServer) Shutdown() {
	if s.cancel != nil {
		s.cancel()
	}
}

// Close releases all resources
func (s *MCPServer) Close() error {
	s.Shutdown()
	if s.admin != nil {
		return s.admin.Close()
	}
	return nil
}

func logError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "[sql-admin] "+format+"\n", args...)
}
