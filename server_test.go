package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shakram02/go-sql-admin-mcp/internal/scripts"
)

type rpcResponse struct {
	ID     any             `json:"id"`
	Result json.RawMessage `json:"result"`
	Error  *Error          `json:"error"`
}

func newTestServer(t *testing.T, readOnly bool) *MCPServer {
	t.Helper()
	dir := t.TempDir()
	writer := openTestAdmin(t, dir, false)
	seedProducts(t, writer)

	admin := writer
	if readOnly {
		writer.Close()
		admin = openTestAdmin(t, dir, true)
	}

	defaults := `{"all products": "SELECT name FROM products ORDER BY id"}`
	if err := os.WriteFile(filepath.Join(dir, scripts.DefaultFile), []byte(defaults), 0o644); err != nil {
		t.Fatal(err)
	}
	library, err := scripts.Load(dir)
	if err != nil {
		t.Fatalf("scripts.Load error: %v", err)
	}
	return NewMCPServer(context.Background(), admin, library, 5*time.Second)
}

// exchange feeds one JSON-RPC message per line to the server and decodes
// every response line.
func exchange(t *testing.T, s *MCPServer, lines ...string) []rpcResponse {
	t.Helper()
	var out bytes.Buffer
	if err := s.serve(strings.NewReader(strings.Join(lines, "\n")), &out); err != nil {
		t.Fatalf("serve error: %v", err)
	}

	var responses []rpcResponse
	for _, line := range strings.Split(strings.TrimSpace(out.String()), "\n") {
		if line == "" {
			continue
		}
		var resp rpcResponse
		if err := json.Unmarshal([]byte(line), &resp); err != nil {
			t.Fatalf("invalid response line %q: %v", line, err)
		}
		responses = append(responses, resp)
	}
	return responses
}

func callTool(t *testing.T, s *MCPServer, name string, args any) (CallToolResult, *Error) {
	t.Helper()
	params, err := json.Marshal(map[string]any{"name": name, "arguments": args})
	if err != nil {
		t.Fatal(err)
	}
	req := `{"jsonrpc":"2.0","id":1,"method":"tools/call","params":` + string(params) + `}`
	responses := exchange(t, s, req)
	if len(responses) != 1 {
		t.Fatalf("got %d responses, want 1", len(responses))
	}
	if responses[0].Error != nil {
		return CallToolResult{}, responses[0].Error
	}
	var result CallToolResult
	if err := json.Unmarshal(responses[0].Result, &result); err != nil {
		t.Fatalf("invalid tool result: %v", err)
	}
	return result, nil
}

func toolText(t *testing.T, result CallToolResult) string {
	t.Helper()
	if len(result.Content) != 1 {
		t.Fatalf("tool result has %d content items, want 1", len(result.Content))
	}
	return result.Content[0].Text
}

func TestServer_InitializeAndPing(t *testing.T) {
	s := newTestServer(t, false)
	responses := exchange(t, s,
		`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2024-11-05","capabilities":{},"clientInfo":{"name":"test","version":"1"}}}`,
		`{"jsonrpc":"2.0","method":"notifications/initialized"}`,
		`{"jsonrpc":"2.0","id":2,"method":"ping"}`,
	)
	if len(responses) != 2 {
		t.Fatalf("got %d responses, want 2 (notifications get none)", len(responses))
	}

	var init InitializeResult
	if err := json.Unmarshal(responses[0].Result, &init); err != nil {
		t.Fatalf("invalid initialize result: %v", err)
	}
	if init.ServerInfo.Name != "sqlite-sql-admin-mcp-server" || init.ProtocolVersion != ProtocolVersion {
		t.Errorf("unexpected initialize result: %+v", init)
	}
	if !s.initialized {
		t.Error("server should be marked initialized")
	}
	if string(responses[1].Result) != "{}" {
		t.Errorf("ping result = %s, want {}", responses[1].Result)
	}
}

func TestServer_ProtocolErrors(t *testing.T) {
	s := newTestServer(t, false)
	responses := exchange(t, s,
		`not json`,
		`{"jsonrpc":"1.0","id":1,"method":"ping"}`,
		`{"jsonrpc":"2.0","id":2,"method":"tools/unknown"}`,
		`{"jsonrpc":"2.0","id":3,"method":"tools/call","params":{"name":"no_such_tool"}}`,
		`{"jsonrpc":"2.0","id":4,"method":"tools/call","params":{"name":"read_table","arguments":{}}}`,
	)
	want := []int{ParseError, InvalidRequest, MethodNotFound, MethodNotFound, InvalidParams}
	if len(responses) != len(want) {
		t.Fatalf("got %d responses, want %d", len(responses), len(want))
	}
	for i, code := range want {
		if responses[i].Error == nil || responses[i].Error.Code != code {
			t.Errorf("response %d error = %+v, want code %d", i, responses[i].Error, code)
		}
		if responses[i].Result != nil {
			t.Errorf("response %d carries a result alongside the error: %s", i, responses[i].Result)
		}
	}
}

func TestServer_ListTools(t *testing.T) {
	tests := []struct {
		readOnly  bool
		hasInsert bool
	}{
		{false, true},
		{true, false},
	}
	for _, tc := range tests {
		s := newTestServer(t, tc.readOnly)
		responses := exchange(t, s, `{"jsonrpc":"2.0","id":1,"method":"tools/list"}`)
		var list ListToolsResult
		if err := json.Unmarshal(responses[0].Result, &list); err != nil {
			t.Fatalf("invalid tools/list result: %v", err)
		}

		names := map[string]bool{}
		for _, tool := range list.Tools {
			names[tool.Name] = true
		}
		if names["insert_row"] != tc.hasInsert || names["drop_table"] != tc.hasInsert {
			t.Errorf("readOnly=%v: write tools listed = %v", tc.readOnly, names["insert_row"])
		}
		for _, always := range []string{"query", "read_table", "list_backups", "export_table", "format_value"} {
			if !names[always] {
				t.Errorf("readOnly=%v: tool %s missing", tc.readOnly, always)
			}
		}
	}
}

func TestServer_ReadTable(t *testing.T) {
	s := newTestServer(t, false)
	result, rpcErr := callTool(t, s, "read_table", map[string]any{"table": "products"})
	if rpcErr != nil || result.IsError {
		t.Fatalf("read_table failed: %+v %+v", rpcErr, result)
	}

	var table struct {
		Columns []columnInfo     `json:"columns"`
		Rows    []map[string]any `json:"rows"`
	}
	if err := json.Unmarshal([]byte(toolText(t, result)), &table); err != nil {
		t.Fatalf("invalid read_table output: %v", err)
	}
	if len(table.Columns) != 7 || table.Columns[0] != (columnInfo{Name: "id", Type: "Integer", PrimaryKey: true}) {
		t.Errorf("columns = %+v", table.Columns)
	}
	if len(table.Rows) != 3 {
		t.Fatalf("rows = %d, want 3", len(table.Rows))
	}
	first := table.Rows[0]
	if first["name"] != "Widget" || first["active"] != true || first["price"] != "12.5" || first["created"] != "2024-03-01 10:30:00" {
		t.Errorf("first row = %#v", first)
	}
	if first["meta"] != `{"color":"red"}` {
		t.Errorf("meta = %#v", first["meta"])
	}
}

func TestServer_WriteTools(t *testing.T) {
	s := newTestServer(t, false)

	result, rpcErr := callTool(t, s, "insert_row", map[string]any{
		"table":  "products",
		"values": map[string]any{"name": "Sprocket", "price": 19.99, "created": "not a date"},
	})
	if rpcErr != nil {
		t.Fatalf("insert_row protocol error: %+v", rpcErr)
	}
	if !result.IsError || !strings.HasPrefix(toolText(t, result), "Invalid value:") {
		t.Errorf("insert_row with bad timestamp = %+v", result)
	}

	result, _ = callTool(t, s, "insert_row", map[string]any{
		"table":  "products",
		"values": map[string]any{"name": "Sprocket", "price": 19.99},
	})
	if result.IsError || toolText(t, result) != "Inserted 1 row into products" {
		t.Errorf("insert_row = %+v", result)
	}

	result, _ = callTool(t, s, "update_cell", map[string]any{
		"table": "products", "row": map[string]any{"id": 7}, "column": "name", "value": "Sprocket XL",
	})
	if result.IsError || toolText(t, result) != "Updated name in 1 row(s)" {
		t.Errorf("update_cell = %+v", result)
	}

	result, _ = callTool(t, s, "delete_row", map[string]any{"table": "products", "row": map[string]any{"id": 7}})
	if result.IsError || !strings.Contains(toolText(t, result), "row_products_") {
		t.Errorf("delete_row = %+v", result)
	}

	_, rpcErr = callTool(t, s, "create_table", map[string]any{
		"table":   "tags",
		"columns": []map[string]any{{"name": "id", "type": "integer"}, {"name": "label", "type": "Money"}},
	})
	if rpcErr == nil || rpcErr.Code != InvalidParams {
		t.Errorf("create_table with unknown type error = %+v, want InvalidParams", rpcErr)
	}

	result, _ = callTool(t, s, "drop_table", map[string]any{"table": "products"})
	if result.IsError || !strings.Contains(toolText(t, result), "table_products.sql") {
		t.Errorf("drop_table = %+v", result)
	}

	result, _ = callTool(t, s, "restore_backup", map[string]any{"name": "table_products.sql"})
	if result.IsError {
		t.Errorf("restore_backup = %+v", result)
	}

	result, _ = callTool(t, s, "list_tables", nil)
	if toolText(t, result) != "[\n  \"products\"\n]" {
		t.Errorf("list_tables = %q", toolText(t, result))
	}
}

func TestServer_ReadOnlyRejectsWrites(t *testing.T) {
	s := newTestServer(t, true)

	result, rpcErr := callTool(t, s, "insert_row", map[string]any{"table": "products", "values": map[string]any{"name": "x"}})
	if rpcErr != nil {
		t.Fatalf("insert_row protocol error: %+v", rpcErr)
	}
	if !result.IsError || !strings.HasPrefix(toolText(t, result), "Operation rejected:") {
		t.Errorf("insert_row in read-only mode = %+v", result)
	}

	result, _ = callTool(t, s, "query", map[string]any{"sql": "DELETE FROM products"})
	if !result.IsError || !strings.Contains(toolText(t, result), "query rejected") {
		t.Errorf("query DELETE in read-only mode = %+v", result)
	}
}

func TestServer_QueryAndScripts(t *testing.T) {
	s := newTestServer(t, false)

	result, _ := callTool(t, s, "query", map[string]any{"sql": "SELECT id FROM products ORDER BY id"})
	if result.IsError {
		t.Fatalf("query = %+v", result)
	}
	var rows []map[string]any
	if err := json.Unmarshal([]byte(toolText(t, result)), &rows); err != nil {
		t.Fatalf("invalid query output: %v", err)
	}
	if len(rows) != 3 || rows[1]["id"] != float64(5) {
		t.Errorf("query rows = %v", rows)
	}

	result, _ = callTool(t, s, "query", map[string]any{"sql": "SELECT id FROM products WHERE id > 100"})
	if toolText(t, result) != "[]" {
		t.Errorf("empty query output = %q, want []", toolText(t, result))
	}

	result, _ = callTool(t, s, "save_script", map[string]any{"name": "cheap", "sql": "SELECT name FROM products WHERE price < 5"})
	if result.IsError || toolText(t, result) != "Saved script cheap" {
		t.Errorf("save_script = %+v", result)
	}

	result, _ = callTool(t, s, "list_scripts", nil)
	if toolText(t, result) != "[\n  \"all products\",\n  \"cheap\"\n]" {
		t.Errorf("list_scripts = %q", toolText(t, result))
	}

	result, _ = callTool(t, s, "run_script", map[string]any{"name": "cheap"})
	if result.IsError || !strings.Contains(toolText(t, result), "O'Brien") {
		t.Errorf("run_script = %+v", result)
	}

	result, _ = callTool(t, s, "delete_script", map[string]any{"name": "all products"})
	if !result.IsError {
		t.Errorf("deleting a default script should fail: %+v", result)
	}

	result, _ = callTool(t, s, "get_script", map[string]any{"name": "missing"})
	if !result.IsError {
		t.Errorf("get_script of missing script should fail: %+v", result)
	}
}

func TestServer_FormatValue(t *testing.T) {
	s := newTestServer(t, false)
	tests := []struct {
		typ     string
		value   any
		literal string
		isError bool
	}{
		{"String", "O'Brien", "'O''Brien'", false},
		{"Integer", "42", "42", false},
		{"Integer", 9007199254740993, "9007199254740993", false},
		{"Decimal", "0.10", "0.1", false},
		{"Boolean", "1", "TRUE", false},
		{"DateTime", "2024-03-01T10:30:00", "'2024-03-01 10:30:00'", false},
		{"Json", "hello", `'"hello"'`, false},
		{"Integer", "12x", "", true},
		{"Json", "{oops", "", true},
		{"Real", "", "NULL", false},
	}
	for _, tc := range tests {
		t.Run(tc.typ+"/"+tc.literal, func(t *testing.T) {
			result, rpcErr := callTool(t, s, "format_value", map[string]any{"type": tc.typ, "value": tc.value})
			if rpcErr != nil {
				t.Fatalf("protocol error: %+v", rpcErr)
			}
			if result.IsError != tc.isError {
				t.Fatalf("isError = %v, want %v: %s", result.IsError, tc.isError, toolText(t, result))
			}
			if tc.isError {
				return
			}
			var out struct {
				Literal string `json:"literal"`
			}
			if err := json.Unmarshal([]byte(toolText(t, result)), &out); err != nil {
				t.Fatalf("invalid output: %v", err)
			}
			if out.Literal != tc.literal {
				t.Errorf("literal = %q, want %q", out.Literal, tc.literal)
			}
		})
	}
}

func TestServer_Resources(t *testing.T) {
	s := newTestServer(t, false)
	responses := exchange(t, s,
		`{"jsonrpc":"2.0","id":1,"method":"resources/list"}`,
		`{"jsonrpc":"2.0","id":2,"method":"resources/read","params":{"uri":"sqlite://shop/products/schema"}}`,
		`{"jsonrpc":"2.0","id":3,"method":"resources/read","params":{"uri":"mysql://shop/products/schema"}}`,
		`{"jsonrpc":"2.0","id":4,"method":"resources/read","params":{"uri":"sqlite://shop/missing/schema"}}`,
	)

	var list ListResourcesResult
	if err := json.Unmarshal(responses[0].Result, &list); err != nil {
		t.Fatalf("invalid resources/list result: %v", err)
	}
	if len(list.Resources) != 1 || list.Resources[0].URI != "sqlite://shop/products/schema" {
		t.Errorf("resources = %+v", list.Resources)
	}

	var read ReadResourceResult
	if err := json.Unmarshal(responses[1].Result, &read); err != nil {
		t.Fatalf("invalid resources/read result: %v", err)
	}
	var columns []SchemaColumn
	if err := json.Unmarshal([]byte(read.Contents[0].Text), &columns); err != nil {
		t.Fatalf("invalid schema JSON: %v", err)
	}
	if len(columns) != 7 || columns[0].Name != "id" || columns[0].Key != "PRI" || columns[3].DataType != "DECIMAL" {
		t.Errorf("schema = %+v", columns)
	}

	for _, i := range []int{2, 3} {
		if responses[i].Error == nil || responses[i].Error.Code != InvalidParams {
			t.Errorf("response %d error = %+v, want InvalidParams", i, responses[i].Error)
		}
	}
}
