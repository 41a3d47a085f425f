// Package graphir is the embedding API: load a graph document, outline
// its precision scopes, execute it, or render it, without touching the
// internal packages directly.
package graphir

import (
	"context"
	"errors"
	"fmt"

	"github.com/funvibe/graphir/internal/cache"
	"github.com/funvibe/graphir/internal/graphfile"
	"github.com/funvibe/graphir/internal/interp"
	"github.com/funvibe/graphir/internal/ir"
	"github.com/funvibe/graphir/internal/pipeline"
	"github.com/funvibe/graphir/internal/printer"
	"github.com/funvibe/graphir/internal/remote"
	"github.com/funvibe/graphir/internal/rewrite"
)

// Engine rewrites and executes graph documents by composing the
// processing pipeline. The zero configuration rewrites locally without
// caching.
type Engine struct {
	cache  *cache.Cache
	client *remote.Client
}

// Option configures an Engine.
type Option func(*Engine) error

// WithCache enables the sqlite rewrite cache under dir.
func WithCache(dir string) Option {
	return func(e *Engine) error {
		c, err := cache.Open(dir)
		if err != nil {
			return err
		}
		e.cache = c
		return nil
	}
}

// WithRemote sends rewrites to a server at target instead of running
// them locally.
func WithRemote(target string) Option {
	return func(e *Engine) error {
		client, err := remote.Dial(target)
		if err != nil {
			return err
		}
		e.client = client
		return nil
	}
}

// New creates an Engine.
func New(opts ...Option) (*Engine, error) {
	e := &Engine{}
	for _, opt := range opts {
		if err := opt(e); err != nil {
			e.Close()
			return nil, err
		}
	}
	return e, nil
}

// Close releases the cache and remote connection, if configured.
func (e *Engine) Close() error {
	var first error
	if e.cache != nil {
		if err := e.cache.Close(); err != nil {
			first = err
		}
		e.cache = nil
	}
	if e.client != nil {
		if err := e.client.Close(); err != nil && first == nil {
			first = err
		}
		e.client = nil
	}
	return first
}

// rewriteStage builds the pipeline stage matching the Engine's
// configuration: cache attached, rewrite local or delegated remotely.
func (e *Engine) rewriteStage(ctx context.Context) *rewrite.Processor {
	rp := &rewrite.Processor{}
	if e.cache != nil {
		rp.Cache = e.cache
	}
	if e.client != nil {
		client := e.client
		rp.Rewriter = func(b *ir.Bundle) (*ir.Bundle, error) {
			return client.Rewrite(ctx, b)
		}
	}
	return rp
}

// loadAndRewrite drives the load and rewrite stages for a file.
func (e *Engine) loadAndRewrite(ctx context.Context, path string) (*ir.Bundle, error) {
	p := pipeline.New(&graphfile.LoadProcessor{}, e.rewriteStage(ctx))
	pctx := p.Run(pipeline.NewContext(path))
	if pctx.Failed() {
		return nil, errors.Join(pctx.Errors...)
	}
	return pctx.Rewritten, nil
}

// Rewrite outlines the precision scopes in a YAML graph document and
// returns the rewritten document.
func (e *Engine) Rewrite(ctx context.Context, doc []byte) ([]byte, error) {
	bundle, err := graphfile.Load(doc)
	if err != nil {
		return nil, err
	}
	out, err := e.rewriteBundle(ctx, bundle)
	if err != nil {
		return nil, err
	}
	return graphfile.Save(out)
}

// RewriteFile rewrites the document at path and returns the result.
func (e *Engine) RewriteFile(ctx context.Context, path string) ([]byte, error) {
	out, err := e.loadAndRewrite(ctx, path)
	if err != nil {
		return nil, err
	}
	return graphfile.Save(out)
}

// RewriteFileBundle rewrites the document at path and returns the
// result in the binary bundle format.
func (e *Engine) RewriteFileBundle(ctx context.Context, path string) ([]byte, error) {
	out, err := e.loadAndRewrite(ctx, path)
	if err != nil {
		return nil, err
	}
	return out.Serialize()
}

// rewriteBundle runs the rewrite stage on an already loaded bundle.
func (e *Engine) rewriteBundle(ctx context.Context, bundle *ir.Bundle) (*ir.Bundle, error) {
	pctx := pipeline.NewContext(bundle.SourceFile)
	pctx.Bundle = bundle
	pctx = e.rewriteStage(ctx).Process(pctx)
	if pctx.Failed() {
		return nil, errors.Join(pctx.Errors...)
	}
	return pctx.Rewritten, nil
}

// Exec rewrites a document and executes it with the given scalar inputs.
// A scalar result comes back as a one-element slice; a tuple result is
// flattened in member order.
func (e *Engine) Exec(ctx context.Context, doc []byte, args []float64) ([]float64, error) {
	bundle, err := graphfile.Load(doc)
	if err != nil {
		return nil, err
	}
	out, err := e.rewriteBundle(ctx, bundle)
	if err != nil {
		return nil, err
	}
	return e.run(out, args)
}

// ExecFile rewrites the document at path and executes it with the given
// scalar inputs.
func (e *Engine) ExecFile(ctx context.Context, path string, args []float64) ([]float64, error) {
	out, err := e.loadAndRewrite(ctx, path)
	if err != nil {
		return nil, err
	}
	return e.run(out, args)
}

func (e *Engine) run(bundle *ir.Bundle, args []float64) ([]float64, error) {
	vals := make([]interp.Value, len(args))
	for i, a := range args {
		vals[i] = interp.Scalar(a)
	}
	res, err := interp.New().Run(bundle.Root, vals)
	if err != nil {
		return nil, err
	}
	return flatten(res)
}

func flatten(v interp.Value) ([]float64, error) {
	switch val := v.(type) {
	case interp.Scalar:
		return []float64{float64(val)}, nil
	case interp.Tuple:
		var out []float64
		for _, m := range val {
			s, ok := m.(interp.Scalar)
			if !ok {
				return nil, fmt.Errorf("non-scalar tuple member %s", m.Kind())
			}
			out = append(out, float64(s))
		}
		return out, nil
	case interp.Nil:
		return nil, nil
	default:
		return nil, fmt.Errorf("unsupported result %s", v.Kind())
	}
}

// Print renders a document in the textual instruction form.
func (e *Engine) Print(doc []byte, color bool) (string, error) {
	bundle, err := graphfile.Load(doc)
	if err != nil {
		return "", err
	}
	return printer.New(color).Print(bundle.Root), nil
}

// PrintFile loads the document at path and renders it through the load
// and print stages.
func (e *Engine) PrintFile(path string, color bool) (string, error) {
	p := pipeline.New(&graphfile.LoadProcessor{}, &printer.Processor{Color: color})
	pctx := p.Run(pipeline.NewContext(path))
	if pctx.Failed() {
		return "", errors.Join(pctx.Errors...)
	}
	return pctx.Output, nil
}
