// Command threadbox runs the ThreadBox virtual filesystem as an MCP
// tool server, or as one of several CLI utility modes, grounded on
// gert's cmd/gert-mcp + cmd/gert main.go shape (server.ServeStdio for
// the tool loop, spf13/cobra for everything else).
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/simbo1905/threadbox-mcp/internal/billyfs"
	"github.com/simbo1905/threadbox-mcp/internal/metrics"
	"github.com/simbo1905/threadbox-mcp/internal/shell"
	"github.com/simbo1905/threadbox-mcp/internal/tools"
	"github.com/simbo1905/threadbox-mcp/internal/tui"
	"github.com/simbo1905/threadbox-mcp/internal/wiring"
)

var version = "dev"

var (
	flagMCPServer bool
	flagDump      bool
	flagSession   string
	flagZip       bool
	flagDataPath  string
	flagBrowse    bool
	flagShell     bool
	flagMetrics   bool
	flagMount     string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "threadbox",
	Short: "A versioned virtual filesystem for AI agent artefacts",
	Long:  "threadbox — a session-namespaced, append-only-versioned virtual filesystem exposed as an MCP tool server.",
	RunE:  run,
}

func init() {
	flags := rootCmd.Flags()
	flags.BoolVar(&flagMCPServer, "mcp-server", false, "run the tool loop over standard streams")
	flags.BoolVar(&flagDump, "dump", false, "print a JSON summary of all sessions to standard out")
	flags.StringVar(&flagSession, "session", "", "session id to target for --zip")
	flags.BoolVar(&flagZip, "zip", false, "export the session named by --session as a ZIP archive")
	flags.StringVar(&flagDataPath, "data-path", "", "override the data directory (default $HOME/.threadbox/data)")
	flags.BoolVar(&flagBrowse, "browse", false, "open a read-only TUI browser over one session")
	flags.BoolVar(&flagShell, "shell", false, "start an interactive REPL over the tool set")
	flags.BoolVar(&flagMetrics, "metrics", false, "dump process metrics in Prometheus text format and exit")
	flags.StringVar(&flagMount, "mount", "", "materialise the session named by --session onto this host directory via the go-billy adapter")
}

func run(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	dataPath := flagDataPath
	if dataPath == "" {
		dataPath = defaultDataPath()
	}
	if err := os.MkdirAll(dataPath, 0o755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}

	c, err := wiring.New(wiring.Config{
		Ctx:           ctx,
		DBPath:        filepath.Join(dataPath, "threadbox.db"),
		ExportDir:     filepath.Join(dataPath, "exports"),
		ServerVersion: version,
	})
	if err != nil {
		return fmt.Errorf("wire services: %w", err)
	}
	defer c.Close()

	switch {
	case flagMCPServer:
		return runMCPServer(c)
	case flagMetrics:
		return runMetricsDump()
	case flagDump:
		return runDump(ctx, c)
	case flagZip:
		return runZip(ctx, c)
	case flagMount != "":
		return runMount(ctx, c)
	case flagBrowse:
		return tui.Browse(ctx, c.Engine(), flagSession)
	case flagShell:
		return shell.Run(ctx, c.Dispatcher())
	default:
		return cmd.Help()
	}
}

// runMCPServer never writes to stdout directly — server.ServeStdio owns
// the wire protocol on standard streams, and any diagnostic goes to
// standard error only.
func runMCPServer(c *wiring.Container) error {
	s := tools.NewServer(version, c.Dispatcher())
	if err := server.ServeStdio(s); err != nil {
		return fmt.Errorf("serve stdio: %w", err)
	}
	return nil
}

func runMetricsDump() error {
	text, err := metrics.DumpText()
	if err != nil {
		return fmt.Errorf("dump metrics: %w", err)
	}
	fmt.Print(text)
	return nil
}

type dumpFile struct {
	Path        string `json:"path"`
	IsDirectory bool   `json:"isDirectory"`
	Version     int    `json:"version"`
	Size        int    `json:"size"`
}

type dumpSession struct {
	FileCount int        `json:"fileCount"`
	Files     []dumpFile `json:"files"`
}

func runDump(ctx context.Context, c *wiring.Container) error {
	sessions, err := c.Engine().Sessions(ctx)
	if err != nil {
		return fmt.Errorf("list sessions: %w", err)
	}

	out := make(map[string]dumpSession, len(sessions))
	for _, session := range sessions {
		files, err := c.Engine().AllLatestFiles(ctx, session)
		if err != nil {
			return fmt.Errorf("list files for session %q: %w", session, err)
		}
		entry := dumpSession{FileCount: len(files)}
		for _, f := range files {
			version := 0
			if f.LatestVersion != nil {
				version = *f.LatestVersion
			}
			entry.Files = append(entry.Files, dumpFile{
				Path:        f.Path,
				IsDirectory: f.IsDir(),
				Version:     version,
				Size:        len(f.Content),
			})
		}
		out[session] = entry
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("encode dump: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

func runZip(ctx context.Context, c *wiring.Container) error {
	result := c.Dispatcher().ExportSessionZip(ctx, map[string]any{"sessionId": flagSession})
	if result.IsError {
		return fmt.Errorf("%s", result.Payload)
	}

	var out struct {
		DownloadPath string `json:"downloadPath"`
	}
	if err := json.Unmarshal([]byte(result.Payload), &out); err != nil {
		return fmt.Errorf("decode export result: %w", err)
	}
	fmt.Println(out.DownloadPath)
	return nil
}

func runMount(ctx context.Context, c *wiring.Container) error {
	if err := billyfs.Materialize(ctx, c.Engine(), flagSession, flagMount); err != nil {
		return fmt.Errorf("materialise session %q onto %s: %w", flagSession, flagMount, err)
	}
	fmt.Println(flagMount)
	return nil
}

func defaultDataPath() string {
	home := os.Getenv("HOME")
	if runtime.GOOS == "windows" {
		home = os.Getenv("USERPROFILE")
	}
	if home == "" {
		home = "."
	}
	return filepath.Join(home, ".threadbox", "data")
}
