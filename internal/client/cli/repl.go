package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output.
var printlnFn = fmt.Println

// execIface is the command surface the REPL dispatches to. *App satisfies
// it; tests substitute a stub.
type execIface interface {
	statusLine() string
	isConnected() bool

	Status(ctx context.Context)
	ConnectTo(ctx context.Context, rawURL string)
	Pair(ctx context.Context, args []string)
	Confirm(ctx context.Context, args []string)
	Devices(ctx context.Context)
	Shares(ctx context.Context)
	Use(ctx context.Context, args []string)
	Refresh(ctx context.Context)
	Send(ctx context.Context, paths []string)
	Transfers(ctx context.Context)
	Approve(ctx context.Context, args []string)
	Reject(ctx context.Context, args []string)
	Open(ctx context.Context, args []string)
	PauseUpload(ctx context.Context, args []string)
	ResumeUpload(ctx context.Context, args []string)
	CancelPending(ctx context.Context)
	ClearHistory(ctx context.Context)
	Visibility(ctx context.Context, args []string)
	Background(ctx context.Context, on bool)
	Recover(ctx context.Context)
	Reset(ctx context.Context)
}

// runREPL reads commands line by line and dispatches them. Handlers print
// their own errors; the loop only cares about I/O and exits on EOF, "exit"
// or "quit".
func runREPL(ctx context.Context, a execIface, scanner *bufio.Scanner) {
	printlnFn("lanferry client (type 'help' for commands)")
	for {
		fmt.Printf("lf %s> ", a.statusLine())
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
			if a.isConnected() {
				printlnFn("Commands: status, devices, shares, use <device|share> <id>, refresh,")
				printlnFn("  send <file...>, transfers, approve <id>, reject <id> [reason],")
				printlnFn("  open <id>, pause <id>, resume <id>, cancelpending, clearhistory,")
				printlnFn("  visibility on|off, bg, fg, recover, reset, exit")
			} else {
				printlnFn("Commands: status, connect [url], pair [url] [auto], confirm <pairing-id>, recover, exit")
			}
		case "status":
			a.Status(ctx)
		case "connect":
			url := ""
			if len(args) > 0 {
				url = args[0]
			}
			a.ConnectTo(ctx, url)
		case "pair":
			a.Pair(ctx, args)
		case "confirm":
			a.Confirm(ctx, args)
		case "devices":
			a.Devices(ctx)
		case "shares":
			a.Shares(ctx)
		case "use":
			a.Use(ctx, args)
		case "refresh":
			a.Refresh(ctx)
		case "send":
			a.Send(ctx, args)
		case "transfers", "t":
			a.Transfers(ctx)
		case "approve":
			a.Approve(ctx, args)
		case "reject":
			a.Reject(ctx, args)
		case "open":
			a.Open(ctx, args)
		case "pause":
			a.PauseUpload(ctx, args)
		case "resume":
			a.ResumeUpload(ctx, args)
		case "cancelpending":
			a.CancelPending(ctx)
		case "clearhistory":
			a.ClearHistory(ctx)
		case "visibility":
			a.Visibility(ctx, args)
		case "bg":
			a.Background(ctx, true)
		case "fg":
			a.Background(ctx, false)
		case "recover":
			a.Recover(ctx)
		case "reset":
			a.Reset(ctx)
		case "exit", "quit":
			printlnFn("Bye!")
			return
		default:
			printlnFn("Unknown command:", cmd)
		}
	}
}
