// Package tools implements the tool dispatcher: it maps named tool
// invocations with JSON argument maps onto storage.Engine operations and
// projects results (or errors) into the ToolResult envelope.
package tools

import (
	"encoding/json"
	"fmt"

	ijsonschema "github.com/invopop/jsonschema"
	"github.com/santhosh-tekuri/jsonschema/v6"
)

// WriteFileArgs is the argument contract for write_file.
type WriteFileArgs struct {
	Path      string `json:"path" jsonschema:"required,minLength=1"`
	Content   string `json:"content" jsonschema:"required"`
	Base64    bool   `json:"base64,omitempty"`
	SessionID string `json:"sessionId,omitempty"`
}

// ReadFileArgs is the argument contract for read_file.
type ReadFileArgs struct {
	Path      string `json:"path" jsonschema:"required,minLength=1"`
	SessionID string `json:"sessionId,omitempty"`
}

// ListDirectoryArgs is the argument contract for list_directory.
type ListDirectoryArgs struct {
	Path      string `json:"path" jsonschema:"required,minLength=1"`
	SessionID string `json:"sessionId,omitempty"`
}

// RenameNodeArgs is the argument contract for rename_node.
type RenameNodeArgs struct {
	Path      string `json:"path" jsonschema:"required,minLength=1"`
	NewName   string `json:"newName" jsonschema:"required,minLength=1"`
	SessionID string `json:"sessionId,omitempty"`
}

// MoveNodeArgs is the argument contract for move_node.
type MoveNodeArgs struct {
	Path         string `json:"path" jsonschema:"required,minLength=1"`
	NewDirectory string `json:"newDirectory" jsonschema:"required,minLength=1"`
	SessionID    string `json:"sessionId,omitempty"`
}

// ExportSessionZipArgs is the argument contract for export_session_zip.
type ExportSessionZipArgs struct {
	SessionID   string `json:"sessionId,omitempty"`
	Destination string `json:"destination,omitempty"`
}

// toolSchemas holds one compiled santhosh-tekuri/jsonschema/v6 schema per
// tool name, generated from the Go argument structs above via
// invopop/jsonschema the way gert's pkg/kernel/schema package generates
// its runbook/tool schemas.
var toolSchemas = map[string]*jsonschema.Schema{}

var schemaSources = map[string]any{
	"write_file":         WriteFileArgs{},
	"read_file":          ReadFileArgs{},
	"list_directory":     ListDirectoryArgs{},
	"rename_node":        RenameNodeArgs{},
	"move_node":          MoveNodeArgs{},
	"export_session_zip": ExportSessionZipArgs{},
}

func init() {
	reflector := &ijsonschema.Reflector{
		DoNotReference:            true,
		RequiredFromJSONSchemaTags: true,
	}
	for name, src := range schemaSources {
		raw := reflector.Reflect(src)
		data, err := json.Marshal(raw)
		if err != nil {
			panic(fmt.Sprintf("tools: marshal schema for %s: %v", name, err))
		}
		var doc any
		if err := json.Unmarshal(data, &doc); err != nil {
			panic(fmt.Sprintf("tools: decode schema for %s: %v", name, err))
		}
		resourceURL := "mem://threadbox/" + name + ".json"
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource(resourceURL, doc); err != nil {
			panic(fmt.Sprintf("tools: add schema resource for %s: %v", name, err))
		}
		compiled, err := compiler.Compile(resourceURL)
		if err != nil {
			panic(fmt.Sprintf("tools: compile schema for %s: %v", name, err))
		}
		toolSchemas[name] = compiled
	}
}

// JSONSchema returns the compiled JSON Schema for tool, which Dispatch
// validates incoming arguments against. The MCP tool declarations in
// server.go are built separately and do not use it.
func JSONSchema(tool string) (*jsonschema.Schema, bool) {
	s, ok := toolSchemas[tool]
	return s, ok
}

// ToolNames returns the canonical tool names in a fixed order.
func ToolNames() []string {
	return []string{
		"write_file",
		"read_file",
		"list_directory",
		"rename_node",
		"move_node",
		"export_session_zip",
	}
}
