package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/heartwall/internal/client/api"
)

// printlnFn and printFn are test seams for user-facing output.
var (
	printlnFn = fmt.Println
	printFn   = fmt.Print
)

// execIface defines the command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	List(ctx context.Context) error
	Open(ctx context.Context, args []string) error
	Pan(ctx context.Context, args []string) error
	Zoom(ctx context.Context, args []string) error
	Preview(ctx context.Context, args []string) error
	Nickname(ctx context.Context, args []string) error
	Upload(ctx context.Context, args []string) error
	Cancel(ctx context.Context) error
	Refresh(ctx context.Context) error
}

const helpText = `Available commands:
  list                 show the wall, newest first
  open <path>          select a photo
  pan <dx> <dy>        move the photo under the heart
  zoom <scale>         set zoom (0.5 .. 3)
  preview [path]       write the heart-cropped preview
  nickname [name]      set or clear your nickname
  upload <message>     send the photo with a message
  cancel               discard the selected photo
  refresh              reload the wall from the server
  exit                 leave the program`

// runREPL reads commands from scanner and dispatches them to a until EOF or
// "exit". Command errors are printed and never end the loop.
func runREPL(ctx context.Context, a execIface, promptFn func() string, scanner *bufio.Scanner) {
	for {
		if p := promptFn(); p != "" {
			printFn(p)
		}
		if !scanner.Scan() {
			return
		}
		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		var err error
		switch cmd {
		case "help", "?":
			printlnFn(helpText)
		case "l", "list":
			err = a.List(ctx)
		case "open":
			err = a.Open(ctx, args)
		case "pan":
			err = a.Pan(ctx, args)
		case "zoom":
			err = a.Zoom(ctx, args)
		case "preview":
			err = a.Preview(ctx, args)
		case "nickname", "nick":
			err = a.Nickname(ctx, args)
		case "upload":
			err = a.Upload(ctx, args)
		case "cancel":
			err = a.Cancel(ctx)
		case "refresh":
			err = a.Refresh(ctx)
		case "exit", "quit":
			printlnFn("Bye!")
			return
		default:
			printlnFn("Unknown command:", cmd)
		}

		if err != nil {
			printlnFn("Error:", userMessage(err))
		}
	}
}

func userMessage(err error) string {
	msg := err.Error()
	var apiErr *api.Error
	if errors.As(err, &apiErr) {
		msg = apiErr.Message
	}
	var h *hintError
	if errors.As(err, &h) && h.hint != "" {
		msg += ". " + h.hint
	}
	return msg
}

// hintError adds a suggested next step to the message shown for err.
type hintError struct {
	err  error
	hint string
}

func (e *hintError) Error() string { return e.err.Error() }
func (e *hintError) Unwrap() error { return e.err }
