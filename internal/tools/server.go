package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// NewServer registers the ThreadBox tool set against a mark3labs/mcp-go
// MCP server, grounded on gert's pkg/ecosystem/mcp.NewServer (same
// server.NewMCPServer + s.AddTool shape, one handler closure per tool).
func NewServer(version string, d *Dispatcher) *server.MCPServer {
	s := server.NewMCPServer(
		"threadbox",
		version,
		server.WithToolCapabilities(true),
	)

	s.AddTool(
		mcp.NewTool("write_file",
			mcp.WithDescription("Write (create or overwrite) a file in the virtual filesystem"),
			mcp.WithString("path", mcp.Required(), mcp.Description("Virtual path of the file")),
			mcp.WithString("content", mcp.Required(), mcp.Description("File content, UTF-8 or base64")),
			mcp.WithBoolean("base64", mcp.Description("Set true if content is base64-encoded")),
			mcp.WithString("sessionId", mcp.Description("Session namespace (defaults to the empty session)")),
		),
		handlerFor(d, "write_file"),
	)

	s.AddTool(
		mcp.NewTool("read_file",
			mcp.WithDescription("Read the latest version of a file"),
			mcp.WithString("path", mcp.Required(), mcp.Description("Virtual path of the file")),
			mcp.WithString("sessionId", mcp.Description("Session namespace")),
		),
		handlerFor(d, "read_file"),
	)

	s.AddTool(
		mcp.NewTool("list_directory",
			mcp.WithDescription("List the immediate children of a directory"),
			mcp.WithString("path", mcp.Required(), mcp.Description("Virtual path of the directory")),
			mcp.WithString("sessionId", mcp.Description("Session namespace")),
		),
		handlerFor(d, "list_directory"),
	)

	s.AddTool(
		mcp.NewTool("rename_node",
			mcp.WithDescription("Rename a file within its current directory"),
			mcp.WithString("path", mcp.Required(), mcp.Description("Virtual path of the file")),
			mcp.WithString("newName", mcp.Required(), mcp.Description("New bare file name")),
			mcp.WithString("sessionId", mcp.Description("Session namespace")),
		),
		handlerFor(d, "rename_node"),
	)

	s.AddTool(
		mcp.NewTool("move_node",
			mcp.WithDescription("Move a file into a different directory"),
			mcp.WithString("path", mcp.Required(), mcp.Description("Virtual path of the file")),
			mcp.WithString("newDirectory", mcp.Required(), mcp.Description("Destination directory path")),
			mcp.WithString("sessionId", mcp.Description("Session namespace")),
		),
		handlerFor(d, "move_node"),
	)

	s.AddTool(
		mcp.NewTool("export_session_zip",
			mcp.WithDescription("Export every file in a session as a ZIP archive"),
			mcp.WithString("sessionId", mcp.Description("Session namespace")),
			mcp.WithString("destination", mcp.Description("Output directory, created if missing; the server's export directory is used if omitted")),
		),
		handlerFor(d, "export_session_zip"),
	)

	return s
}

// handlerFor adapts Dispatcher.Dispatch to mcp-go's tool handler shape.
func handlerFor(d *Dispatcher, name string) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		result := d.Dispatch(ctx, name, req.GetArguments())
		return &mcp.CallToolResult{
			Content: []mcp.Content{mcp.NewTextContent(result.Payload)},
			IsError: result.IsError,
		}, nil
	}
}
