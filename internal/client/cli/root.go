package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

func (a *App) getStatus() string {
	var parts []string
	if nick := a.currentNickname(); nick != "" {
		parts = append(parts, nick)
	}
	if sess := a.svc.Session(); sess != nil {
		parts = append(parts, sess.SourceName())
	}
	if m := a.Mode(); m != "" {
		parts = append(parts, string(m))
	}
	if len(parts) == 0 {
		return ""
	}
	return fmt.Sprintf("(%s)", strings.Join(parts, " "))
}

func (a *App) prompt() string {
	if !a.interactive {
		return ""
	}
	if s := a.getStatus(); s != "" {
		return fmt.Sprintf("heartwall %s> ", s)
	}
	return "heartwall> "
}

// Root loads the gallery, starts the background workers and runs the REPL
// until the user exits or input ends.
func (a *App) Root(ctx context.Context) {
	printlnFn("Welcome to heartwall CLI (type 'help' for commands)")

	a.probe(ctx)
	if err := a.svc.Refresh(ctx); err != nil {
		a.logger.Warn(ctx, "history fetch failed", "error", err)
		printlnFn("Could not load memories, starting with an empty wall")
	} else {
		printlnFn(fmt.Sprintf("%d memories on the wall", a.svc.Gallery().Len()))
	}
	a.startAnnouncing()

	go func() {
		_ = a.svc.Listen(ctx)
	}()

	go func() {
		a.StartOnlineStatusWatcher(ctx, a.config.OnlineCheckInterval)
	}()

	runREPL(ctx, a, a.prompt, bufio.NewScanner(a.in))
}
