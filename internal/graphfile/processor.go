package graphfile

import (
	"fmt"

	"github.com/funvibe/graphir/internal/pipeline"
)

// LoadProcessor is the pipeline stage that reads the context's file path
// into a bundle.
type LoadProcessor struct{}

func (lp *LoadProcessor) Process(ctx *pipeline.PipelineContext) *pipeline.PipelineContext {
	if ctx.FilePath == "" {
		ctx.AddError(fmt.Errorf("load: no file path set"))
		return ctx
	}
	bundle, err := LoadFile(ctx.FilePath)
	if err != nil {
		ctx.AddError(err)
		return ctx
	}
	ctx.Bundle = bundle
	return ctx
}
