package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	Register(ctx context.Context) error
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	Whoami(ctx context.Context) error
	Go(ctx context.Context, path string) error
	Routes(ctx context.Context) error
	Promote(ctx context.Context, args []string) error
}

// runREPL starts a simple read–eval–print loop for the storefront CLI.
//
// It reads a line from reader, parses the first token as the command, and
// dispatches to methods on 'a'. The loop exits on EOF or when the user types
// "exit" or "quit".
//
// Prompt & Commands
//
//	Always:
//	  - help               - show available commands
//	  - go <path>          - navigate to a page (e.g. go /cart)
//	  - routes             - list the pages
//	  - whoami             - show the current session
//	  - exit | quit        - leave the program
//
//	Signed out:
//	  - register           - create an account
//	  - login              - sign in
//
//	Signed in:
//	  - logout             - sign out
//	  - promote <e> <role> - change a user's role (admins)
//
// Errors returned by command handlers are ignored here; handlers print their
// own messages.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader) {
	for {
		printlnFn(fmt.Sprintf("shop %s> ", statusFn()))
		line, err := reader.ReadString('\n')
		if err != nil && (err != io.EOF || line == "") {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		switch cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn("Available commands: go <path>, routes, whoami, promote <email> <role>, logout, exit")
			} else {
				printlnFn("Available commands: go <path>, routes, whoami, login, register, exit")
			}

		case "register":
			_ = a.Register(ctx)

		case "login":
			_ = a.Login(ctx)

		case "logout":
			_ = a.Logout(ctx)

		case "whoami":
			_ = a.Whoami(ctx)

		case "go", "cd":
			if len(args) == 0 {
				printlnFn("Usage: go <path>")
				continue
			}
			_ = a.Go(ctx, args[0])

		case "routes":
			_ = a.Routes(ctx)

		case "promote":
			_ = a.Promote(ctx, args)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}
	}
}
