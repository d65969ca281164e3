package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

type stubExec struct {
	loggedIn bool
	calls    []string
}

func (s *stubExec) record(name string) error {
	s.calls = append(s.calls, name)
	return nil
}

func (s *stubExec) isLoggedIn() bool                  { return s.loggedIn }
func (s *stubExec) Create(ctx context.Context) error  { return s.record("create") }
func (s *stubExec) Login(ctx context.Context) error   { return s.record("login") }
func (s *stubExec) List(ctx context.Context) error    { return s.record("list") }
func (s *stubExec) AddFile(ctx context.Context) error { return s.record("add") }
func (s *stubExec) Remove(ctx context.Context) error  { return s.record("remove") }
func (s *stubExec) URL(ctx context.Context) error     { return s.record("url") }
func (s *stubExec) Export(ctx context.Context) error  { return s.record("export") }
func (s *stubExec) ViewOnly(ctx context.Context) error {
	return s.record("viewonly")
}
func (s *stubExec) Panic(ctx context.Context) error  { return s.record("panic") }
func (s *stubExec) Logout(ctx context.Context) error { return s.record("logout") }

func captureOutput(t *testing.T) *[]string {
	t.Helper()
	var lines []string
	orig := printlnFn
	printlnFn = func(a ...any) (int, error) {
		lines = append(lines, strings.TrimSuffix(fmt.Sprintln(a...), "\n"))
		return 0, nil
	}
	t.Cleanup(func() { printlnFn = orig })
	return &lines
}

func TestRunREPL_DispatchesCommands(t *testing.T) {
	captureOutput(t)

	exec := &stubExec{loggedIn: true}
	input := strings.Join([]string{
		"list", "add", "remove", "url", "export", "viewonly", "panic", "logout", "exit",
	}, "\n")

	runREPL(context.Background(), exec, func() string { return "test" },
		bufio.NewScanner(strings.NewReader(input)))

	require.Equal(t, []string{
		"list", "add", "remove", "url", "export", "viewonly", "panic", "logout",
	}, exec.calls)
}

func TestRunREPL_ExitsOnEOF(t *testing.T) {
	captureOutput(t)

	exec := &stubExec{}
	runREPL(context.Background(), exec, func() string { return "" },
		bufio.NewScanner(strings.NewReader("create\nlogin\n")))

	require.Equal(t, []string{"create", "login"}, exec.calls)
}

func TestRunREPL_UnknownAndBlank(t *testing.T) {
	out := captureOutput(t)

	exec := &stubExec{}
	runREPL(context.Background(), exec, func() string { return "" },
		bufio.NewScanner(strings.NewReader("\nbogus\nexit\n")))

	require.Empty(t, exec.calls)

	joined := strings.Join(*out, "\n")
	require.Contains(t, joined, "Unknown command:")
	require.Contains(t, joined, "Bye!")
}
