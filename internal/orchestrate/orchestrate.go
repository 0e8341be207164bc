// Package orchestrate ties one generation run together: invoke the engine,
// then materialize its result tree. Failures from either step are captured
// into an explicit Outcome instead of propagating, so a long-running watch
// loop survives any single bad config edit.
package orchestrate

import (
	"context"
	"fmt"
	"time"

	"github.com/keyforge/keyforge/internal/engine"
	kferrors "github.com/keyforge/keyforge/internal/errors"
	"github.com/keyforge/keyforge/internal/logging"
	"github.com/keyforge/keyforge/internal/materialize"
)

// Stage identifies which pipeline step an outcome's error came from.
type Stage string

const (
	StageGeneration      Stage = "generation"
	StageMaterialization Stage = "materialization"
)

// Outcome is the result of one run. A failed run carries the error and the
// stage that produced it; Run never panics and never returns an error any
// other way.
type Outcome struct {
	Err      error
	Stage    Stage
	Duration time.Duration
}

// OK reports whether the run succeeded.
func (o Outcome) OK() bool {
	return o.Err == nil
}

// Options are the per-orchestrator settings.
type Options struct {
	Debug bool
	Clean bool
}

// Orchestrator runs the engine and the materializer for one config.
type Orchestrator struct {
	engine engine.Engine
	writer *materialize.Writer
	log    logging.Logger
	opts   Options
}

// New creates an orchestrator.
func New(eng engine.Engine, writer *materialize.Writer, log logging.Logger, opts Options) *Orchestrator {
	return &Orchestrator{
		engine: eng,
		writer: writer,
		log:    log.WithComponent("orchestrator"),
		opts:   opts,
	}
}

// Run processes configText and materializes the result. It always
// completes: every failure, engine panics included, is logged in full and
// reported through the returned Outcome.
func (o *Orchestrator) Run(ctx context.Context, configText string, reg *engine.Registry) (outcome Outcome) {
	start := time.Now()
	defer func() {
		outcome.Duration = time.Since(start)

		if r := recover(); r != nil {
			outcome.Err = kferrors.NewGenerationError(fmt.Sprintf("engine panicked: %v", r), nil)
			outcome.Stage = StageGeneration
			o.log.Error(ctx, outcome.Err, "generation panicked")
		}
	}()

	tree, err := o.engine.Process(ctx, configText, engine.Options{
		Debug:      o.opts.Debug,
		Injections: reg,
		Log: func(msg string) {
			o.log.Debug(ctx, msg, "source", "engine")
		},
	})
	if err != nil {
		genErr := kferrors.NewGenerationError("engine failed", err)
		o.log.Error(ctx, genErr, "generation failed")

		return Outcome{Err: genErr, Stage: StageGeneration}
	}

	if err := o.writer.Prepare(ctx, o.opts.Clean); err != nil {
		o.log.Error(ctx, err, "materialization failed", "root", o.writer.Root())

		return Outcome{Err: err, Stage: StageMaterialization}
	}
	if err := o.writer.WriteTree(ctx, tree); err != nil {
		o.log.Error(ctx, err, "materialization failed", "root", o.writer.Root())

		return Outcome{Err: err, Stage: StageMaterialization}
	}

	o.log.Info(ctx, "generation complete", "root", o.writer.Root())

	return Outcome{}
}
