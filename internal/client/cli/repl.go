package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/kinlink/internal/client/models"
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
	Open(ctx context.Context, raw string, source models.LinkSource) error
	Share(ctx context.Context, code string) error
	Sync(ctx context.Context) error
	WhoAmI(ctx context.Context) error
}

// runREPL starts a simple read–eval–print loop for the kinlink CLI.
//
// It reads a line from the provided scanner, parses the first token as the
// command, and dispatches to methods on 'a'. The loop exits on scanner EOF,
// on ctx cancellation, or when the user types "exit" or "quit".
//
//	help              show available commands
//	register          create an account
//	login / logout
//	open <link|code>  open a shared link
//	scan <code>       open a scanned code
//	share [code]      print share links (own profile by default)
//	sync              pull the family graph
//	whoami
//	exit | quit
//
// Errors returned by command handlers are ignored here; handlers print
// their own messages.
func runREPL(ctx context.Context, a execIface, statusFn func() string, scanner *bufio.Scanner) {
	for {
		if ctx.Err() != nil {
			return
		}
		printlnFn(fmt.Sprintf("kinlink %s> ", statusFn()))
		if !scanner.Scan() {
			return
		}
		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		switch cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn("Available commands: open, scan, share, sync, whoami, logout, exit")
			} else {
				printlnFn("Available commands: register, login, open, scan, exit")
			}

		case "register":
			_ = a.Register(ctx)

		case "login":
			_ = a.Login(ctx)

		case "logout":
			_ = a.Logout(ctx)

		case "open", "scan":
			if len(args) == 0 {
				printlnFn(fmt.Sprintf("Usage: %s <link|code>", cmd))
				continue
			}
			source := models.SourceLink
			if cmd == "scan" {
				source = models.SourceScan
			}
			_ = a.Open(ctx, args[0], source)

		case "share":
			code := ""
			if len(args) > 0 {
				code = args[0]
			}
			_ = a.Share(ctx, code)

		case "sync":
			_ = a.Sync(ctx)

		case "whoami":
			_ = a.WhoAmI(ctx)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}
	}
}
