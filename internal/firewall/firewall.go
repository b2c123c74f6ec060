// Package firewall coordinates host-level ingress rules for the UDP ports
// handed out by internal/ports. Production wiring shells out to nft; tests
// inject a stub Runner.
package firewall

import (
	"bytes"
	"fmt"
	"os/exec"
	"sync"

	"github.com/rs/zerolog/log"
)

// Runner executes a firewall script. The production Runner shells out to
// nft -f -; tests supply a fake that records invocations.
type Runner interface {
	Run(script string) error
}

// NFTRunner runs scripts through the nft binary, mirroring the script
// application step that sits below the table builder in the source
// firewall package.
type NFTRunner struct {
	Path string // defaults to "nft" via exec.LookPath if empty
}

func (r NFTRunner) Run(script string) error {
	path := r.Path
	if path == "" {
		path = "nft"
	}
	cmd := exec.Command(path, "-f", "-")
	cmd.Stdin = bytes.NewBufferString(script)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("firewall: nft apply failed: %w: %s", err, stderr.String())
	}
	return nil
}

const tableName = "intelliserver_ingest"

// Coordinator opens and closes per-port ingress rules and guarantees
// cleanup on shutdown or panic. It is shared across every F1 Service; opens
// and closes for distinct ports each take the coordinator's single mutex
// only long enough to recompute and apply the rule set, so they do not
// serialize any longer than the nft invocation itself requires.
type Coordinator struct {
	mu    sync.Mutex
	run   Runner
	ports map[int]bool
}

// New builds a Coordinator that applies rule changes via run.
func New(run Runner) *Coordinator {
	return &Coordinator{run: run, ports: make(map[int]bool)}
}

// Open adds port to the ingress allow-list and applies the updated
// ruleset. Open is idempotent: opening an already-open port is a no-op.
func (c *Coordinator) Open(port int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.ports[port] {
		return nil
	}
	c.ports[port] = true
	if err := c.run.Run(c.buildScriptLocked()); err != nil {
		delete(c.ports, port)
		return err
	}
	return nil
}

// Close removes port from the ingress allow-list. Close is idempotent:
// closing a port that is not open is a no-op.
func (c *Coordinator) Close(port int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.ports[port] {
		return nil
	}
	delete(c.ports, port)
	return c.run.Run(c.buildScriptLocked())
}

// CloseAll removes every tracked port. It is safe to call more than once
// and is intended to be registered as the last line of defense in a
// recover() block wrapping the process's main goroutine, so a panic in any
// worker still leaves no stale ingress rule behind.
func (c *Coordinator) CloseAll() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.ports) == 0 {
		return nil
	}
	c.ports = make(map[int]bool)
	return c.run.Run(c.buildScriptLocked())
}

// OpenPorts returns the currently open ports, for diagnostics and tests.
func (c *Coordinator) OpenPorts() []int {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]int, 0, len(c.ports))
	for p := range c.ports {
		out = append(out, p)
	}
	return out
}

// buildScriptLocked renders the full nft table script for the currently
// tracked port set. Callers must hold c.mu. The script flushes the table
// and re-declares it in full on every change (rather than diffing), which
// keeps the coordinator's state machine simple: one source of truth
// (c.ports) maps to one script, always.
func (c *Coordinator) buildScriptLocked() string {
	var sb bytes.Buffer
	fmt.Fprintf(&sb, "table inet %s\n", tableName)
	fmt.Fprintf(&sb, "flush table inet %s\n", tableName)
	fmt.Fprintf(&sb, "table inet %s {\n", tableName)
	sb.WriteString("\tchain input {\n")
	sb.WriteString("\t\ttype filter hook input priority filter; policy accept;\n")
	for port := range c.ports {
		fmt.Fprintf(&sb, "\t\tudp dport %d accept\n", port)
	}
	sb.WriteString("\t}\n")
	sb.WriteString("}\n")
	return sb.String()
}

// RecoverAndCloseAll is meant to be deferred in main: it recovers any
// panic, closes every open ingress rule, logs the panic, and re-panics so
// the process still exits non-zero.
func (c *Coordinator) RecoverAndCloseAll() {
	if r := recover(); r != nil {
		if err := c.CloseAll(); err != nil {
			log.Error().Err(err).Msg("firewall cleanup failed during panic recovery")
		}
		panic(r)
	}
}
