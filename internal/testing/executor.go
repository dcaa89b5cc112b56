package testing

import (
	"context"
	"strings"
	"sync"

	"github.com/imamik/xtserver/internal/platform/shell"
)

type response struct {
	match  string
	result shell.Result
	err    error
}

// FakeExecutor is a shell.Executor whose results are scripted per command.
// A command matches a response when it contains the response's match
// string; the first registered match wins. Unmatched commands succeed.
type FakeExecutor struct {
	mu        sync.Mutex
	responses []response
	calls     []string
	inputs    []string
}

var _ shell.Executor = (*FakeExecutor)(nil)

// NewFakeExecutor returns an executor on which every command succeeds.
func NewFakeExecutor() *FakeExecutor {
	return &FakeExecutor{}
}

// On scripts the result for commands containing match.
func (f *FakeExecutor) On(match string, res shell.Result) *FakeExecutor {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses = append(f.responses, response{match: match, result: res})
	return f
}

// Fail scripts a non-zero exit with output for commands containing match.
func (f *FakeExecutor) Fail(match string, code int, stdout string) *FakeExecutor {
	return f.On(match, shell.Result{ExitCode: code, Stdout: stdout})
}

// OnError scripts a transport error for commands containing match.
func (f *FakeExecutor) OnError(match string, err error) *FakeExecutor {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses = append(f.responses, response{match: match, err: err})
	return f
}

// Run implements shell.Executor.
func (f *FakeExecutor) Run(_ context.Context, command string, opts ...shell.RunOption) (shell.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, command)
	f.inputs = append(f.inputs, shell.Collect(opts...).Stdin)

	for _, r := range f.responses {
		if strings.Contains(command, r.match) {
			res := r.result
			res.Command = command
			return res, r.err
		}
	}
	return shell.Result{Command: command}, nil
}

// Calls returns every command run so far, in order.
func (f *FakeExecutor) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// Matching returns the commands run so far that contain substr.
func (f *FakeExecutor) Matching(substr string) []string {
	var out []string
	for _, c := range f.Calls() {
		if strings.Contains(c, substr) {
			out = append(out, c)
		}
	}
	return out
}

// Ran reports whether any command containing substr was run.
func (f *FakeExecutor) Ran(substr string) bool {
	return len(f.Matching(substr)) > 0
}

// Index returns the position of the first command containing substr, or -1.
func (f *FakeExecutor) Index(substr string) int {
	for i, c := range f.Calls() {
		if strings.Contains(c, substr) {
			return i
		}
	}
	return -1
}

// Input returns the stdin of the first command containing substr.
func (f *FakeExecutor) Input(substr string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, c := range f.calls {
		if strings.Contains(c, substr) {
			return f.inputs[i], true
		}
	}
	return "", false
}
