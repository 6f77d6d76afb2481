package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/dmitrijs2005/gophsend/internal/common"
	"github.com/stretchr/testify/assert"
)

type fakeExec struct {
	loggedIn bool
	failWith error

	calls []string
}

func (f *fakeExec) record(name string, args ...string) error {
	f.calls = append(f.calls, strings.TrimSpace(name+" "+strings.Join(args, " ")))
	return f.failWith
}

func (f *fakeExec) isLoggedIn() bool { return f.loggedIn }
func (f *fakeExec) Login(context.Context) error {
	f.loggedIn = true
	return f.record("login")
}
func (f *fakeExec) Unlock(context.Context) error { return f.record("unlock") }
func (f *fakeExec) Logout(context.Context) error {
	f.loggedIn = false
	return f.record("logout")
}
func (f *fakeExec) Upload(_ context.Context, args []string) error {
	return f.record("upload", args...)
}
func (f *fakeExec) Download(_ context.Context, args []string) error {
	return f.record("download", args...)
}
func (f *fakeExec) List(context.Context) error { return f.record("list") }
func (f *fakeExec) Sync(context.Context) error { return f.record("sync") }
func (f *fakeExec) Delete(_ context.Context, args []string) error {
	return f.record("delete", args...)
}
func (f *fakeExec) Password(_ context.Context, args []string) error {
	return f.record("password", args...)
}
func (f *fakeExec) Limit(_ context.Context, args []string) error {
	return f.record("limit", args...)
}
func (f *fakeExec) Info(_ context.Context, args []string) error {
	return f.record("info", args...)
}

func capturePrintln(t *testing.T) *[]string {
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

func TestRunREPL_DispatchesWithArgs(t *testing.T) {
	out := capturePrintln(t)

	input := strings.Join([]string{
		"help",
		"login",
		"upload -p a.txt b.txt",
		"download https://x/download/1/#k",
		"l",
		"info 1",
		"limit 1 5",
		"password 1",
		"delete 1",
		"",
		"sync",
		"foobar",
		"logout",
		"exit",
		"list",
	}, "\n")

	exec := &fakeExec{}
	runREPL(context.Background(), exec, func() string { return "status" }, bufio.NewReader(strings.NewReader(input)))

	assert.Equal(t, []string{
		"login",
		"upload -p a.txt b.txt",
		"download https://x/download/1/#k",
		"list",
		"info 1",
		"limit 1 5",
		"password 1",
		"delete 1",
		"sync",
		"logout",
	}, exec.calls)
	assert.Contains(t, *out, "Unknown command: foobar")
	assert.Contains(t, *out, "Bye!")
}

func TestRunREPL_PrintsErrorsAndContinues(t *testing.T) {
	out := capturePrintln(t)

	exec := &fakeExec{failWith: fmt.Errorf("fetch: %w", common.ErrNotFound)}
	runREPL(context.Background(), exec, func() string { return "" }, bufio.NewReader(strings.NewReader("info x\nlist")))

	assert.Equal(t, []string{"info x", "list"}, exec.calls)
	assert.Contains(t, *out, "Error 404: fetch: not found")
}

func TestRunREPL_HelpDependsOnSession(t *testing.T) {
	out := capturePrintln(t)

	runREPL(context.Background(), &fakeExec{}, func() string { return "" }, bufio.NewReader(strings.NewReader("help\n")))
	runREPL(context.Background(), &fakeExec{loggedIn: true}, func() string { return "" }, bufio.NewReader(strings.NewReader("help\n")))

	var help []string
	for _, l := range *out {
		if strings.HasPrefix(l, "Available commands") {
			help = append(help, l)
		}
	}
	if assert.Len(t, help, 2) {
		assert.Contains(t, help[0], "login")
		assert.NotContains(t, help[1], "login")
		assert.Contains(t, help[1], "logout")
	}
}

func TestDescribe(t *testing.T) {
	assert.Equal(t, "Cancelled", describe(common.ErrCancelled))
	assert.Contains(t, describe(common.ErrStateMismatch), "state does not match")
	assert.Contains(t, describe(fmt.Errorf("x: %w", common.ErrAuthentication)), "could not be decrypted")
	assert.Equal(t, "Error 401: unauthorized", describe(common.ErrUnauthorized))
	assert.Equal(t, "Error: boom", describe(errors.New("boom")))
}
