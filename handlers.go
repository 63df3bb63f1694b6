package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/shakram02/go-sql-admin-mcp/internal/cell"
)

func (s *MCPServer) handleInitialize(params json.RawMessage) (*InitializeResult, *Error) {
	var initParams InitializeParams
	if params != nil {
		if err := json.Unmarshal(params, &initParams); err != nil {
			return nil, &Error{
				Code:    InvalidParams,
				Message: "Invalid initialize parameters",
				Data:    err.Error(),
			}
		}
	}

	s.initialized = true

	return &InitializeResult{
		ProtocolVersion: ProtocolVersion,
		Capabilities: ServerCapabilities{
			Tools:     &ToolsCapability{},
			Resources: &ResourcesCapability{},
		},
		ServerInfo: ServerInfo{
			Name:    s.adapter.ServerName(),
			Version: ServerVersion,
		},
	}, nil
}

// handleListTools hides the tools that write when the server is read-only.
func (s *MCPServer) handleListTools() (*ListToolsResult, *Error) {
	tools := make([]Tool, 0, len(toolHandlers))
	for _, h := range toolHandlers {
		if h.writes && s.admin.readOnly {
			continue
		}
		tools = append(tools, h.tool)
	}
	return &ListToolsResult{Tools: tools}, nil
}

func (s *MCPServer) handleCallTool(params json.RawMessage) (*CallToolResult, *Error) {
	var callParams CallToolParams
	if err := json.Unmarshal(params, &callParams); err != nil {
		return nil, &Error{
			Code:    InvalidParams,
			Message: "Invalid parameters",
			Data:    err.Error(),
		}
	}

	handler, ok := lookupTool(callParams.Name)
	if !ok {
		return nil, &Error{
			Code:    MethodNotFound,
			Message: fmt.Sprintf("Unknown tool: %s", callParams.Name),
		}
	}

	text, err := handler.run(s, callParams.Arguments)
	if err != nil {
		var argErr *argumentError
		if errors.As(err, &argErr) {
			return nil, &Error{
				Code:    InvalidParams,
				Message: argErr.Error(),
			}
		}
		return toolError(err), nil
	}
	return &CallToolResult{
		Content: []Content{{Type: "text", Text: text}},
	}, nil
}

// toolError reports a failed operation as a tool result, so the client can
// show the message next to the value it rejected.
func toolError(err error) *CallToolResult {
	var coerceErr *cell.CoercionError
	msg := err.Error()
	switch {
	case errors.As(err, &coerceErr):
		msg = "Invalid value: " + coerceErr.Error()
	case errors.Is(err, ErrReadOnly):
		msg = "Operation rejected: " + msg
	default:
		msg = "Error: " + msg
	}
	return &CallToolResult{
		Content: []Content{{Type: "text", Text: msg}},
		IsError: true,
	}
}

func (s *MCPServer) handleListResources() (*ListResourcesResult, *Error) {
	ctx, cancel := s.timeout()
	defer cancel()

	tables, err := s.admin.ListTables(ctx)
	if err != nil {
		return nil, &Error{
			Code:    InternalError,
			Message: err.Error(),
		}
	}

	resources := make([]Resource, 0, len(tables))
	for _, tableName := range tables {
		resources = append(resources, Resource{
			URI:      s.schemaURI(tableName),
			Name:     fmt.Sprintf("Schema for table '%s'", tableName),
			MimeType: "application/json",
		})
	}
	return &ListResourcesResult{Resources: resources}, nil
}

func (s *MCPServer) schemaURI(table string) string {
	return fmt.Sprintf("%s://%s/%s/schema", s.adapter.URIScheme(), s.admin.databaseName, table)
}

// schemaTable extracts the table from scheme://dbname/tablename/schema.
func (s *MCPServer) schemaTable(uri string) (string, error) {
	prefix := s.adapter.URIScheme() + "://"
	if !strings.HasPrefix(uri, prefix) {
		return "", fmt.Errorf("invalid resource URI: must start with %s", prefix)
	}
	parts := strings.Split(strings.TrimPrefix(uri, prefix), "/")
	if len(parts) != 3 || parts[1] == "" || parts[2] != "schema" {
		return "", fmt.Errorf("invalid resource URI format: expected %sdbname/tablename/schema", prefix)
	}
	return parts[1], nil
}

func (s *MCPServer) handleReadResource(params json.RawMessage) (*ReadResourceResult, *Error) {
	var readParams ReadResourceParams
	if err := json.Unmarshal(params, &readParams); err != nil {
		return nil, &Error{
			Code:    InvalidParams,
			Message: "Invalid parameters",
			Data:    err.Error(),
		}
	}

	tableName, err := s.schemaTable(readParams.URI)
	if err != nil {
		return nil, &Error{
			Code:    InvalidParams,
			Message: err.Error(),
		}
	}

	ctx, cancel := s.timeout()
	defer cancel()

	columns, err := s.admin.Schema(ctx, tableName)
	if err != nil {
		code := InternalError
		if errors.Is(err, ErrTableNotFound) {
			code = InvalidParams
		}
		return nil, &Error{
			Code:    code,
			Message: err.Error(),
		}
	}

	schemaJSON, err := json.MarshalIndent(columns, "", "  ")
	if err != nil {
		return nil, &Error{
			Code:    InternalError,
			Message: fmt.Sprintf("Failed to marshal schema: %v", err),
		}
	}

	return &ReadResourceResult{
		Contents: []ResourceContent{
			{
				URI:      readParams.URI,
				MimeType: "application/json",
				Text:     string(schemaJSON),
			},
		},
	}, nil
}

// argumentError marks a malformed tools/call request, as opposed to an
// operation that failed.
type argumentError struct {
	msg string
}

func (e *argumentError) Error() string { return e.msg }

func badArgs(format string, args ...any) error {
	return &argumentError{msg: fmt.Sprintf(format, args...)}
}

// decodeArgs unmarshals tool arguments. Numbers stay json.Number so that
// integers and decimals reach the codec without float rounding.
func decodeArgs(raw json.RawMessage, v any) error {
	if len(bytes.TrimSpace(raw)) == 0 {
		raw = json.RawMessage("{}")
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return badArgs("Invalid arguments: %v", err)
	}
	return nil
}

func requireString(name, value string) error {
	if strings.TrimSpace(value) == "" {
		return badArgs("Missing or invalid '%s' parameter", name)
	}
	return nil
}

func marshalText(v any) (string, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal result: %w", err)
	}
	return string(b), nil
}
