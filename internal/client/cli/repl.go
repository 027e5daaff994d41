package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output.
var printlnFn = fmt.Println

// execIface is the command surface the REPL dispatches to. App satisfies
// it; tests provide a stub.
type execIface interface {
	isLoggedIn() bool
	Register(ctx context.Context) error
	Login(ctx context.Context) error
	List(ctx context.Context) error
	Add(ctx context.Context) error
	Show(ctx context.Context, id string) error
	Edit(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
	Reports(ctx context.Context, id string) error
	AddReport(ctx context.Context, id string) error
	Refresh(ctx context.Context) error
}

// runREPL reads a line, takes the first token as the command, and
// dispatches. Unknown commands are reported back. The loop ends on EOF or
// "exit"/"quit". Handlers log their own errors; the loop ignores them.
func runREPL(ctx context.Context, a execIface, statusFn func() string, scanner *bufio.Scanner) {
	for {
		printlnFn(fmt.Sprintf("ck %s > ", statusFn()))
		if !scanner.Scan() {
			return
		}
		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 {
			continue
		}
		cmd := parts[0]
		args := parts[1:]

		needsID := func() (string, bool) {
			if len(args) == 0 {
				printlnFn("Usage:", cmd, "<case-id>")
				return "", false
			}
			return args[0], true
		}

		switch cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn("Available commands: (l)ist, add, show <id>, edit <id>, delete <id>, reports <id>, addreport <id>, refresh, exit")
			} else {
				printlnFn("Available commands: register, login, list, exit")
			}

		case "register":
			_ = a.Register(ctx)

		case "login":
			_ = a.Login(ctx)

		case "l", "list":
			_ = a.List(ctx)

		case "add":
			_ = a.Add(ctx)

		case "show":
			if id, ok := needsID(); ok {
				_ = a.Show(ctx, id)
			}

		case "edit":
			if id, ok := needsID(); ok {
				_ = a.Edit(ctx, id)
			}

		case "delete":
			if id, ok := needsID(); ok {
				_ = a.Delete(ctx, id)
			}

		case "reports":
			if id, ok := needsID(); ok {
				_ = a.Reports(ctx, id)
			}

		case "addreport":
			if id, ok := needsID(); ok {
				_ = a.AddReport(ctx, id)
			}

		case "refresh":
			_ = a.Refresh(ctx)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}
	}
}
