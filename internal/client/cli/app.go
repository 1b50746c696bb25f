package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/jagcoaching/speechcoach/internal/client/client"
	"github.com/jagcoaching/speechcoach/internal/client/config"
)

type App struct {
	config *config.Config
	api    client.Client
	store  *client.TokenStore
	reader *bufio.Reader
	out    io.Writer
}

func NewApp(c *config.Config) *App {
	return &App{
		config: c,
		api:    client.NewHTTPClient(c.ServerURL, c.RequestTimeout),
		store:  client.NewTokenStore(c.TokenFile),
		reader: bufio.NewReader(os.Stdin),
		out:    os.Stdout,
	}
}

// Run executes the subcommand in args, or the REPL when args is empty.
func (a *App) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		a.Root(ctx)
		return nil
	}
	return a.dispatch(ctx, args[0], args[1:])
}

func (a *App) dispatch(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "register":
		return a.Register(ctx)
	case "login":
		return a.Login(ctx)
	case "refresh":
		return a.Refresh(ctx)
	case "logout":
		return a.Logout(ctx, len(args) > 0 && (args[0] == "--all" || args[0] == "all"))
	case "whoami":
		return a.Whoami(ctx)
	case "help":
		a.printf("Available commands: %s\n", commandList)
		return nil
	default:
		return fmt.Errorf("unknown command %q (available: %s)", cmd, commandList)
	}
}

const commandList = "register, login, refresh, logout [--all], whoami"

func (a *App) isLoggedIn() bool {
	_, err := a.store.Load()
	return err == nil
}

func (a *App) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format, args...)
}
