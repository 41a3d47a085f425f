package pipeline

import (
	"github.com/funvibe/graphir/internal/ir"
)

// PipelineContext carries the working state between stages: the loaded
// bundle, the rewritten bundle, rendered output, and accumulated errors.
type PipelineContext struct {
	// FilePath is the source file the bundle was loaded from, if any.
	FilePath string

	// Bundle is the graph as loaded from disk or handed in directly.
	Bundle *ir.Bundle

	// Rewritten is the outlined form produced by the rewrite stage.
	Rewritten *ir.Bundle

	// Output holds rendered text produced by a printing stage.
	Output string

	Errors []error
}

// NewContext creates a context for processing the given file.
func NewContext(filePath string) *PipelineContext {
	return &PipelineContext{FilePath: filePath}
}

// AddError records a stage failure without stopping the pipeline.
func (ctx *PipelineContext) AddError(err error) {
	ctx.Errors = append(ctx.Errors, err)
}

// Failed reports whether any stage recorded an error.
func (ctx *PipelineContext) Failed() bool {
	return len(ctx.Errors) > 0
}

// Processor is a single pipeline stage.
type Processor interface {
	Process(ctx *PipelineContext) *PipelineContext
}

// Pipeline represents a sequence of processing stages.
type Pipeline struct {
	processors []Processor
}

func New(processors ...Processor) *Pipeline {
	return &Pipeline{processors: processors}
}

// Run executes the pipeline.
func (p *Pipeline) Run(initialCtx *PipelineContext) *PipelineContext {
	ctx := initialCtx
	for _, processor := range p.processors {
		ctx = processor.Process(ctx)
		// Continue on errors so later stages can still contribute
		// diagnostics where they do not depend on the failed stage.
	}
	return ctx
}
