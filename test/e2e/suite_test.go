// Package e2e runs the setup, install and uninstall plans end to end
// against an in-memory filesystem and a scripted executor.
//
// Run with:
//
//	go test ./test/e2e/...
package e2e

import (
	"context"
	"sync"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/afero"

	"github.com/imamik/xtserver/internal/provisioning"
)

func TestLifecycle(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Provisioning Lifecycle Suite")
}

// recorder is an observer that keeps every event.
type recorder struct {
	mu     sync.Mutex
	events []provisioning.Event
}

func (r *recorder) Event(e provisioning.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) ofType(t provisioning.EventType) []provisioning.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []provisioning.Event
	for _, e := range r.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

type fetcher struct{ calls int }

func (f *fetcher) Fetch(_ context.Context, _, _ string, fsys afero.Fs, dest string) error {
	f.calls++
	return afero.WriteFile(fsys, dest, []byte("deb"), 0o644)
}
