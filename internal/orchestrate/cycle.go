package orchestrate

import (
	"context"
	"sync"

	"github.com/keyforge/keyforge/internal/engine"
	"github.com/keyforge/keyforge/internal/logging"
	"github.com/keyforge/keyforge/internal/source"
	"github.com/keyforge/keyforge/internal/watcher"
)

// Cycle is one watched config's resolve-and-regenerate state: it holds the
// previously resolved config text and re-runs the orchestrator only when a
// change notification carries genuinely new content. OnChange is safe to
// call from the watcher's handler goroutine; a mutex serializes overlapping
// cycles so regenerations never interleave their writes.
type Cycle struct {
	resolver   *source.Resolver
	orch       *Orchestrator
	configPath string
	log        logging.Logger

	mu       sync.Mutex
	lastText string
	resolved bool

	// onSuccess runs after each successful regeneration. Used by the
	// preview server to push reload messages.
	onSuccess func()
}

// NewCycle creates a cycle for configPath.
func NewCycle(resolver *source.Resolver, orch *Orchestrator, configPath string, log logging.Logger) *Cycle {
	return &Cycle{
		resolver:   resolver,
		orch:       orch,
		configPath: configPath,
		log:        log.WithComponent("cycle"),
	}
}

// OnSuccess registers a hook invoked after every successful regeneration.
func (c *Cycle) OnSuccess(fn func()) {
	c.onSuccess = fn
}

// Bootstrap performs the initial resolve and run. The resolution error, if
// any, is returned so single-shot mode can exit nonzero; generation and
// materialization failures are captured in the outcome like any other run.
func (c *Cycle) Bootstrap(ctx context.Context) (Outcome, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	reg := engine.NewRegistry()
	bundle, err := c.resolver.Resolve(ctx, c.configPath, reg)
	if err != nil {
		return Outcome{}, err
	}

	c.lastText = bundle.ConfigText
	c.resolved = true

	return c.run(ctx, bundle.ConfigText, reg), nil
}

// OnChange handles a batch of debounced change notifications. Events that
// are not content modifications are ignored. The config path is then
// re-resolved; when the new text is byte-identical to the held text the
// cycle does nothing, suppressing regenerations from notification noise.
// Resolution failures abort this cycle but leave the held text and the
// loop intact.
func (c *Cycle) OnChange(ctx context.Context, events []watcher.Event) {
	modified := false
	for _, ev := range events {
		if ev.Type == watcher.EventModified || ev.Type == watcher.EventCreated {
			modified = true

			break
		}
	}
	if !modified {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	reg := engine.NewRegistry()
	bundle, err := c.resolver.Resolve(ctx, c.configPath, reg)
	if err != nil {
		c.log.Warn(ctx, err, "watch cycle aborted, waiting for next change", "path", c.configPath)

		return
	}

	if c.resolved && bundle.ConfigText == c.lastText {
		c.log.Debug(ctx, "config unchanged, skipping regeneration", "path", c.configPath)

		return
	}

	c.lastText = bundle.ConfigText
	c.resolved = true

	c.run(ctx, bundle.ConfigText, reg)
}

// run executes the orchestrator and fires the success hook. Caller holds
// the lock.
func (c *Cycle) run(ctx context.Context, configText string, reg *engine.Registry) Outcome {
	outcome := c.orch.Run(ctx, configText, reg)
	if outcome.OK() && c.onSuccess != nil {
		c.onSuccess()
	}

	return outcome
}
