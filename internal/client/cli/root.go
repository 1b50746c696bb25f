package cli

import (
	"bufio"
	"context"
	"os"
)

func (a *App) getStatus() string {
	if a.isLoggedIn() {
		return "(logged in) "
	}
	return ""
}

// Root runs the interactive REPL on stdin.
func (a *App) Root(ctx context.Context) {
	printlnFn("Welcome to speechcoach CLI (type 'help' for commands)")
	runREPL(ctx, a, a.getStatus, bufio.NewScanner(os.Stdin))
}
