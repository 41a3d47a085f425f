package printer

import (
	"fmt"

	"github.com/funvibe/graphir/internal/pipeline"
)

// Processor is the pipeline stage that renders the rewritten bundle, or
// the loaded bundle when no rewrite stage ran.
type Processor struct {
	Color bool
}

func (pp *Processor) Process(ctx *pipeline.PipelineContext) *pipeline.PipelineContext {
	bundle := ctx.Rewritten
	if bundle == nil {
		bundle = ctx.Bundle
	}
	if bundle == nil {
		ctx.AddError(fmt.Errorf("print: no bundle to render"))
		return ctx
	}
	ctx.Output = New(pp.Color).Print(bundle.Root)
	return ctx
}
