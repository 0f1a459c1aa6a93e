package cli

import (
	"bufio"
	"context"
	"strings"
	"testing"

	"github.com/dmitrijs2005/kinlink/internal/client/models"
	"github.com/stretchr/testify/assert"
)

type fakeExec struct {
	loggedIn bool

	calls   []string
	sources []models.LinkSource
	args    []string
}

func (f *fakeExec) isLoggedIn() bool { return f.loggedIn }
func (f *fakeExec) Register(ctx context.Context) error {
	f.calls = append(f.calls, "register")
	return nil
}
func (f *fakeExec) Login(ctx context.Context) error {
	f.calls = append(f.calls, "login")
	f.loggedIn = true
	return nil
}
func (f *fakeExec) Logout(ctx context.Context) error {
	f.calls = append(f.calls, "logout")
	f.loggedIn = false
	return nil
}
func (f *fakeExec) Open(ctx context.Context, raw string, source models.LinkSource) error {
	f.calls = append(f.calls, "open")
	f.args = append(f.args, raw)
	f.sources = append(f.sources, source)
	return nil
}
func (f *fakeExec) Share(ctx context.Context, code string) error {
	f.calls = append(f.calls, "share")
	f.args = append(f.args, code)
	return nil
}
func (f *fakeExec) Sync(ctx context.Context) error   { f.calls = append(f.calls, "sync"); return nil }
func (f *fakeExec) WhoAmI(ctx context.Context) error { f.calls = append(f.calls, "whoami"); return nil }

func silencePrintln(t *testing.T) *[]string {
	t.Helper()
	var lines []string
	orig := printlnFn
	printlnFn = func(a ...any) (int, error) {
		parts := make([]string, 0, len(a))
		for _, v := range a {
			if s, ok := v.(string); ok {
				parts = append(parts, s)
			}
		}
		lines = append(lines, strings.Join(parts, " "))
		return 0, nil
	}
	t.Cleanup(func() { printlnFn = orig })
	return &lines
}

func TestRunREPL_LoginFlowAndCommands(t *testing.T) {
	silencePrintln(t)

	input := strings.NewReader(strings.Join([]string{
		"help",
		"login",
		"help",
		"open https://kinlink.app/profile/abc12",
		"scan def34",
		"share",
		"share abc12",
		"sync",
		"whoami",
		"foobar",
		"logout",
		"exit",
		"sync",
	}, "\n"))

	exec := &fakeExec{}
	runREPL(context.Background(), exec, func() string { return "status" }, bufio.NewScanner(input))

	assert.Equal(t, []string{"login", "open", "open", "share", "share", "sync", "whoami", "logout"}, exec.calls)
	assert.Equal(t, []models.LinkSource{models.SourceLink, models.SourceScan}, exec.sources)
	assert.Equal(t, []string{"https://kinlink.app/profile/abc12", "def34", "", "abc12"}, exec.args)
}

func TestRunREPL_UsageAndQuit(t *testing.T) {
	lines := silencePrintln(t)

	input := strings.NewReader("open\nscan\nquit\n")
	exec := &fakeExec{loggedIn: true}

	runREPL(context.Background(), exec, func() string { return "s" }, bufio.NewScanner(input))

	assert.Empty(t, exec.calls)
	assert.Contains(t, *lines, "Usage: open <link|code>")
	assert.Contains(t, *lines, "Usage: scan <link|code>")
	assert.Contains(t, *lines, "Bye!")
}

func TestRunREPL_StopsOnCanceledContext(t *testing.T) {
	silencePrintln(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	exec := &fakeExec{}
	runREPL(ctx, exec, func() string { return "" }, bufio.NewScanner(strings.NewReader("login\n")))

	assert.Empty(t, exec.calls)
}

func TestRunREPL_HelpDependsOnLogin(t *testing.T) {
	lines := silencePrintln(t)

	runREPL(context.Background(), &fakeExec{}, func() string { return "" }, bufio.NewScanner(strings.NewReader("help\n")))
	runREPL(context.Background(), &fakeExec{loggedIn: true}, func() string { return "" }, bufio.NewScanner(strings.NewReader("help\n")))

	assert.Contains(t, *lines, "Available commands: register, login, open, scan, exit")
	assert.Contains(t, *lines, "Available commands: open, scan, share, sync, whoami, logout, exit")
}
