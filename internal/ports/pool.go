// Package ports allocates UDP ports for F1 services out of a fixed range,
// the Go equivalent of the source's MachinePorts: a mutex-guarded stack of
// free ports with LIFO reuse.
package ports

import (
	"fmt"
	"sync"

	"intelliserver/internal/apperror"
)

// Pool hands out ports from [start, end) and takes them back.
type Pool struct {
	mu    sync.Mutex
	start int
	end   int
	free  []int
}

// New builds a pool over [start, end) minus the reserved set.
func New(start, end int, reserved map[int]bool) (*Pool, error) {
	if end <= start {
		return nil, fmt.Errorf("ports: end (%d) must be greater than start (%d)", end, start)
	}
	free := make([]int, 0, end-start)
	for p := start; p < end; p++ {
		if reserved[p] {
			continue
		}
		free = append(free, p)
	}
	return &Pool{start: start, end: end, free: free}, nil
}

// Next removes and returns one free port, or NoPortAvailable if the pool
// is exhausted. Order is unspecified (LIFO, matching the source).
func (p *Pool) Next() (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.free) == 0 {
		return 0, apperror.New(apperror.KindNoPortAvailable)
	}
	last := len(p.free) - 1
	port := p.free[last]
	p.free = p.free[:last]
	return port, nil
}

// Return inserts port back into the free stack. It panics if port is out
// of range or already free, matching the source's debug_assert guarantees
// — a double-return or out-of-range return is a programming error in the
// caller, not a recoverable runtime condition.
func (p *Pool) Return(port int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if port < p.start || port >= p.end {
		panic(fmt.Sprintf("ports: return of out-of-range port %d (range [%d,%d))", port, p.start, p.end))
	}
	for _, existing := range p.free {
		if existing == port {
			panic(fmt.Sprintf("ports: double return of port %d", port))
		}
	}
	p.free = append(p.free, port)
}

// Available reports how many ports remain unallocated.
func (p *Pool) Available() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.free)
}
