package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	Create(ctx context.Context) error
	Login(ctx context.Context) error
	List(ctx context.Context) error
	AddFile(ctx context.Context) error
	Remove(ctx context.Context) error
	URL(ctx context.Context) error
	Export(ctx context.Context) error
	ViewOnly(ctx context.Context) error
	Panic(ctx context.Context) error
	Logout(ctx context.Context) error
}

// runREPL starts a simple read-eval-print loop for the SnapVault CLI.
//
// It reads a line from the provided scanner, parses the first token as the
// command, and dispatches to methods on 'a'. Unknown commands are reported
// back to the user. The loop exits on scanner EOF or when the user types
// "exit" or "quit".
//
// Any errors returned by command handlers are ignored here; handlers should
// log their own errors. This keeps the REPL loop resilient and focused on I/O.
func runREPL(ctx context.Context, a execIface, statusFn func() string, scanner *bufio.Scanner) {
	for {
		printlnFn(fmt.Sprintf("sv> %s > ", statusFn()))
		if !scanner.Scan() {
			return
		}
		line := scanner.Text()
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd := parts[0]

		switch cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn("Available commands: (l)ist, add, remove, url, export, viewonly, panic, logout, exit")
			} else {
				printlnFn("Available commands: create, login, exit")
			}

		case "create":
			_ = a.Create(ctx)

		case "login":
			_ = a.Login(ctx)

		case "l", "list":
			_ = a.List(ctx)

		case "add":
			_ = a.AddFile(ctx)

		case "remove":
			_ = a.Remove(ctx)

		case "url":
			_ = a.URL(ctx)

		case "export":
			_ = a.Export(ctx)

		case "viewonly":
			_ = a.ViewOnly(ctx)

		case "panic":
			_ = a.Panic(ctx)

		case "logout":
			_ = a.Logout(ctx)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}
	}
}
