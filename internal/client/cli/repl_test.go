package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeExec struct {
	loggedIn bool
	failOn   string

	calls []string
}

func (f *fakeExec) record(name string) error {
	f.calls = append(f.calls, name)
	if f.failOn == name {
		return errors.New(name + " failed")
	}
	return nil
}

func (f *fakeExec) isLoggedIn() bool                   { return f.loggedIn }
func (f *fakeExec) Register(ctx context.Context) error { return f.record("register") }
func (f *fakeExec) Login(ctx context.Context) error {
	f.loggedIn = true
	return f.record("login")
}
func (f *fakeExec) Refresh(ctx context.Context) error { return f.record("refresh") }
func (f *fakeExec) Logout(ctx context.Context, all bool) error {
	f.loggedIn = false
	if all {
		return f.record("logout-all")
	}
	return f.record("logout")
}
func (f *fakeExec) Whoami(ctx context.Context) error { return f.record("whoami") }

func captureOutput(t *testing.T) *[]string {
	t.Helper()
	var lines []string
	orig := printlnFn
	printlnFn = func(a ...any) (int, error) {
		lines = append(lines, strings.TrimSpace(fmt.Sprintln(a...)))
		return 0, nil
	}
	t.Cleanup(func() { printlnFn = orig })
	return &lines
}

func scannerOf(lines ...string) *bufio.Scanner {
	return bufio.NewScanner(strings.NewReader(strings.Join(lines, "\n") + "\n"))
}

func TestRunREPL_DispatchesCommands(t *testing.T) {
	out := captureOutput(t)
	f := &fakeExec{}

	runREPL(context.Background(), f, func() string { return "" }, scannerOf(
		"", "register", "login", "whoami", "refresh", "logout", "login", "logout --all", "exit", "whoami",
	))

	require.Equal(t, []string{"register", "login", "whoami", "refresh", "logout", "login", "logout-all"}, f.calls)
	require.Equal(t, "Bye!", (*out)[len(*out)-1])
}

func TestRunREPL_HelpDependsOnState(t *testing.T) {
	out := captureOutput(t)
	f := &fakeExec{}

	runREPL(context.Background(), f, func() string { return "" }, scannerOf("help", "login", "help"))

	require.Contains(t, *out, "Available commands: register, login, exit")
	require.Contains(t, *out, "Available commands: whoami, refresh, logout [--all], exit")
}

func TestRunREPL_PrintsErrorsAndContinues(t *testing.T) {
	out := captureOutput(t)
	f := &fakeExec{failOn: "whoami"}

	runREPL(context.Background(), f, func() string { return "" }, scannerOf("whoami", "bogus", "refresh"))

	require.Equal(t, []string{"whoami", "refresh"}, f.calls)
	require.Contains(t, *out, "error: whoami failed")
	require.Contains(t, *out, "Unknown command: bogus")
}

func TestRunREPL_PromptShowsStatus(t *testing.T) {
	out := captureOutput(t)
	runREPL(context.Background(), &fakeExec{}, func() string { return "(logged in) " }, scannerOf("quit"))
	require.Equal(t, "speechcoach (logged in) >", (*out)[0])
}
