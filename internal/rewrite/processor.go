package rewrite

import (
	"fmt"

	"github.com/funvibe/graphir/internal/ir"
	"github.com/funvibe/graphir/internal/pipeline"
)

// BundleCache is the subset of the rewrite cache the pipeline stage
// needs. A nil cache disables caching.
type BundleCache interface {
	Lookup(b *ir.Bundle) (*ir.Bundle, error)
	Store(input, rewritten *ir.Bundle) error
}

// Processor is the pipeline stage that outlines precision scopes in the
// context's bundle.
type Processor struct {
	// Cache, when non-nil, is consulted before rewriting and updated
	// after a successful rewrite.
	Cache BundleCache

	// Rewriter, when non-nil, replaces the in-process pass, e.g. to
	// delegate to a remote rewrite service. Cache handling is unchanged.
	Rewriter func(b *ir.Bundle) (*ir.Bundle, error)
}

func (rp *Processor) Process(ctx *pipeline.PipelineContext) *pipeline.PipelineContext {
	if ctx.Bundle == nil {
		// Load runs first; this is a safeguard against miswired pipelines.
		ctx.AddError(fmt.Errorf("rewrite: no bundle loaded"))
		return ctx
	}

	if rp.Cache != nil {
		// A lookup failure is treated as a miss.
		if cached, err := rp.Cache.Lookup(ctx.Bundle); err == nil && cached != nil {
			ctx.Rewritten = cached
			return ctx
		}
	}

	if rp.Rewriter != nil {
		out, err := rp.Rewriter(ctx.Bundle)
		if err != nil {
			ctx.AddError(err)
			return ctx
		}
		out.SourceFile = ctx.Bundle.SourceFile
		ctx.Rewritten = out
	} else {
		root, spec, err := Rewrite(ctx.Bundle.Root, ctx.Bundle.Spec)
		if err != nil {
			ctx.AddError(err)
			return ctx
		}
		ctx.Rewritten = &ir.Bundle{Root: root, Spec: spec, SourceFile: ctx.Bundle.SourceFile}
	}

	if rp.Cache != nil {
		// Store is best effort; the rewrite itself succeeded.
		_ = rp.Cache.Store(ctx.Bundle, ctx.Rewritten)
	}
	return ctx
}
