package firewall

import (
	"strings"
	"sync"
	"testing"
)

type recordingRunner struct {
	mu     sync.Mutex
	runs   int
	latest string
}

func (r *recordingRunner) Run(script string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs++
	r.latest = script
	return nil
}

func TestOpenIsIdempotent(t *testing.T) {
	run := &recordingRunner{}
	c := New(run)

	if err := c.Open(27700); err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := c.Open(27700); err != nil {
		t.Fatalf("second Open: %v", err)
	}
	if run.runs != 1 {
		t.Fatalf("expected exactly one script apply, got %d", run.runs)
	}
	if !strings.Contains(run.latest, "27700") {
		t.Fatalf("script missing port: %s", run.latest)
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	run := &recordingRunner{}
	c := New(run)
	_ = c.Open(27700)

	if err := c.Close(27700); err != nil {
		t.Fatalf("Close: %v", err)
	}
	before := run.runs
	if err := c.Close(27700); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if run.runs != before {
		t.Fatalf("expected no-op close to skip script apply")
	}
	if len(c.OpenPorts()) != 0 {
		t.Fatalf("expected no open ports after close")
	}
}

func TestCloseAllClearsEverything(t *testing.T) {
	run := &recordingRunner{}
	c := New(run)
	_ = c.Open(27700)
	_ = c.Open(27701)

	if err := c.CloseAll(); err != nil {
		t.Fatalf("CloseAll: %v", err)
	}
	if len(c.OpenPorts()) != 0 {
		t.Fatalf("expected empty port set after CloseAll")
	}
	if err := c.CloseAll(); err != nil {
		t.Fatalf("second CloseAll: %v", err)
	}
}

func TestConcurrentOpensOnDistinctPortsDoNotCorruptState(t *testing.T) {
	run := &recordingRunner{}
	c := New(run)
	var wg sync.WaitGroup
	for p := 27700; p < 27720; p++ {
		wg.Add(1)
		go func(port int) {
			defer wg.Done()
			_ = c.Open(port)
		}(p)
	}
	wg.Wait()
	if len(c.OpenPorts()) != 20 {
		t.Fatalf("expected 20 open ports, got %d", len(c.OpenPorts()))
	}
}

func TestRecoverAndCloseAllClosesThenRepanics(t *testing.T) {
	run := &recordingRunner{}
	c := New(run)
	_ = c.Open(27700)

	func() {
		defer func() {
			if recover() == nil {
				t.Fatalf("expected repanic")
			}
		}()
		defer c.RecoverAndCloseAll()
		panic("boom")
	}()

	if len(c.OpenPorts()) != 0 {
		t.Fatalf("expected ports closed after panic recovery")
	}
}
