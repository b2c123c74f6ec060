package ports

import (
	"sync"
	"testing"

	"intelliserver/internal/apperror"
)

func TestNextRemovesFromPool(t *testing.T) {
	p, err := New(27700, 27702, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	seen := map[int]bool{}
	for i := 0; i < 2; i++ {
		port, err := p.Next()
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		if port < 27700 || port >= 27702 {
			t.Fatalf("port %d out of range", port)
		}
		if seen[port] {
			t.Fatalf("port %d returned twice", port)
		}
		seen[port] = true
	}
	if _, err := p.Next(); !apperror.Is(err, apperror.KindNoPortAvailable) {
		t.Fatalf("expected NoPortAvailable, got %v", err)
	}
}

func TestReturnMakesPortReusable(t *testing.T) {
	p, err := New(27700, 27701, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	port, err := p.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	p.Return(port)
	again, err := p.Next()
	if err != nil {
		t.Fatalf("Next after return: %v", err)
	}
	if again != port {
		t.Fatalf("expected to get port %d back, got %d", port, again)
	}
}

func TestReservedPortsAreExcluded(t *testing.T) {
	p, err := New(27700, 27703, map[int]bool{27701: true})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if p.Available() != 2 {
		t.Fatalf("Available = %d, want 2", p.Available())
	}
	for i := 0; i < 2; i++ {
		port, err := p.Next()
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		if port == 27701 {
			t.Fatalf("reserved port 27701 was handed out")
		}
	}
}

func TestReturnOutOfRangePanics(t *testing.T) {
	p, _ := New(27700, 27701, nil)
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic on out-of-range return")
		}
	}()
	p.Return(1)
}

func TestReturnDoubleReturnPanics(t *testing.T) {
	p, _ := New(27700, 27701, nil)
	port, _ := p.Next()
	p.Return(port)
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic on double return")
		}
	}()
	p.Return(port)
}

func TestConcurrentNextNeverDuplicates(t *testing.T) {
	const n = 50
	p, err := New(27700, 27700+n, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	var wg sync.WaitGroup
	var mu sync.Mutex
	seen := map[int]bool{}
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			port, err := p.Next()
			if err != nil {
				t.Errorf("Next: %v", err)
				return
			}
			mu.Lock()
			if seen[port] {
				t.Errorf("port %d handed out twice", port)
			}
			seen[port] = true
			mu.Unlock()
		}()
	}
	wg.Wait()
}
