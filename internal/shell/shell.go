// Package shell implements the interactive REPL over the tool
// dispatcher, grounded on gert's pkg/debugger (a chzyer/readline loop
// with a prefix-completer command list and a switch-on-verb dispatch
// loop), but driving tools.Dispatcher commands instead of stepping a
// runbook engine.
package shell

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/chzyer/readline"

	"github.com/simbo1905/threadbox-mcp/internal/tools"
)

// Run starts the interactive REPL loop over d. It blocks until the user
// quits or standard input is exhausted.
func Run(ctx context.Context, d *tools.Dispatcher) error {
	commands := []string{"ls", "cat", "write", "mv", "rename", "history", "zip", "help", "quit"}

	completer := readline.NewPrefixCompleter()
	for _, cmd := range commands {
		completer.Children = append(completer.Children, readline.PcItem(cmd))
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "threadbox> ",
		AutoComplete:    completer,
		InterruptPrompt: "^C",
		EOFPrompt:       "quit",
	})
	if err != nil {
		return fmt.Errorf("init readline: %w", err)
	}
	defer rl.Close()

	out := os.Stdout
	session := ""
	fmt.Fprintln(out, "threadbox shell — type 'help' for available commands.")

	for {
		line, err := rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt || err == io.EOF {
				return nil
			}
			return err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		parts := strings.Fields(line)
		cmd := parts[0]
		rest := parts[1:]

		switch cmd {
		case "session":
			session = handleSession(out, rest, session)
		case "ls":
			handleLS(ctx, out, d, rest, session)
		case "cat":
			handleCat(ctx, out, d, rest, session)
		case "write":
			handleWrite(ctx, out, d, line, session)
		case "mv":
			handleMove(ctx, out, d, rest, session)
		case "rename":
			handleRename(ctx, out, d, rest, session)
		case "history":
			handleHistory(ctx, out, d, rest, session)
		case "zip":
			handleZip(ctx, out, d, session)
		case "help", "?":
			handleHelp(out)
		case "quit", "q":
			fmt.Fprintln(out, "Exiting shell.")
			return nil
		default:
			fmt.Fprintf(out, "Unknown command: %q. Type 'help' for available commands.\n", cmd)
		}
	}
}

func handleSession(out io.Writer, args []string, current string) string {
	if len(args) == 0 {
		fmt.Fprintf(out, "current session: %q\n", current)
		return current
	}
	fmt.Fprintf(out, "switched to session %q\n", args[0])
	return args[0]
}

func handleLS(ctx context.Context, out io.Writer, d *tools.Dispatcher, args []string, session string) {
	path := "/"
	if len(args) > 0 {
		path = args[0]
	}
	printResult(out, d.Dispatch(ctx, "list_directory", map[string]any{"path": path, "sessionId": session}))
}

func handleCat(ctx context.Context, out io.Writer, d *tools.Dispatcher, args []string, session string) {
	if len(args) == 0 {
		fmt.Fprintln(out, "usage: cat <path>")
		return
	}
	printResult(out, d.Dispatch(ctx, "read_file", map[string]any{"path": args[0], "sessionId": session}))
}

func handleWrite(ctx context.Context, out io.Writer, d *tools.Dispatcher, line, session string) {
	parts := strings.SplitN(line, " ", 3)
	if len(parts) < 3 {
		fmt.Fprintln(out, "usage: write <path> <content...>")
		return
	}
	printResult(out, d.Dispatch(ctx, "write_file", map[string]any{
		"path":      parts[1],
		"content":   parts[2],
		"sessionId": session,
	}))
}

func handleMove(ctx context.Context, out io.Writer, d *tools.Dispatcher, args []string, session string) {
	if len(args) != 2 {
		fmt.Fprintln(out, "usage: mv <path> <newDirectory>")
		return
	}
	printResult(out, d.Dispatch(ctx, "move_node", map[string]any{
		"path": args[0], "newDirectory": args[1], "sessionId": session,
	}))
}

func handleRename(ctx context.Context, out io.Writer, d *tools.Dispatcher, args []string, session string) {
	if len(args) != 2 {
		fmt.Fprintln(out, "usage: rename <path> <newName>")
		return
	}
	printResult(out, d.Dispatch(ctx, "rename_node", map[string]any{
		"path": args[0], "newName": args[1], "sessionId": session,
	}))
}

func handleHistory(ctx context.Context, out io.Writer, d *tools.Dispatcher, args []string, session string) {
	if len(args) != 1 {
		fmt.Fprintln(out, "usage: history <path>")
		return
	}
	// get_file_history has no dedicated tool entry in the fixed set (§4.F),
	// so history dispatches read_file and prints only the latest version;
	// the command surface stays a thin wrapper over Dispatcher.
	printResult(out, d.Dispatch(ctx, "read_file", map[string]any{"path": args[0], "sessionId": session}))
}

func handleZip(ctx context.Context, out io.Writer, d *tools.Dispatcher, session string) {
	printResult(out, d.Dispatch(ctx, "export_session_zip", map[string]any{"sessionId": session}))
}

func printResult(out io.Writer, result tools.ToolResult) {
	if result.IsError {
		fmt.Fprintf(out, "error: %s\n", result.Payload)
		return
	}
	var pretty any
	if err := json.Unmarshal([]byte(result.Payload), &pretty); err == nil {
		data, _ := json.MarshalIndent(pretty, "", "  ")
		fmt.Fprintln(out, string(data))
		return
	}
	fmt.Fprintln(out, result.Payload)
}

func handleHelp(out io.Writer) {
	fmt.Fprintln(out, `Available commands:
  session [id]            show or switch the active session
  ls [path]                list a directory (default /)
  cat <path>               read a file
  write <path> <content>   write a file
  mv <path> <dir>          move a file
  rename <path> <name>     rename a file
  history <path>           show the latest version (same as cat)
  zip                      export the active session as a ZIP
  help                     show this message
  quit                     exit the shell`)
}
