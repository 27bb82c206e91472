// Package analyze implements the static analysis core: scope resolution
// over FROM clauses, expression type inference for target lists, and
// structural JSON shape inference, driven over the catalog in dependency
// order.
package analyze

import (
	"context"
	"errors"
	"fmt"

	"pgshape/internal/catalog"
	"pgshape/internal/linker"
)

// ObjectResult holds the inferred output shape of one view or routine.
type ObjectResult struct {
	Object *catalog.Object
	Fields []Field
}

// Failure records one object whose inference failed. Independent objects
// are unaffected. Source is the schema file that declared the object.
type Failure struct {
	Object catalog.Identifier
	Source string
	Err    error
}

/// Report aggregates one analysis pass: the execution order, every
// inferred result shape, and every per-object failure. All broken
// objects are reported at once rather than failing fast on the first.
type Report struct {
	Queue    *linker.Queue
	Results  []ObjectResult
	Failures []Failure
}

// Err returns all per-object failures joined into one error, or nil.
func (r *Report) Err() error {
	if len(r.Failures) == 0 {
		return nil
	}
	errs := make([]error, len(r.Failures))
	for i, f := range r.Failures {
		if f.Source != "" {
			errs[i] = fmt.Errorf("%s (%s): %w", f.Object, f.Source, f.Err)
		} else {
			errs[i] = fmt.Errorf("%s: %w", f.Object, f.Err)
		}
	}
	return errors.Join(errs...)
}

// Option configures an analysis pass.
type Option func(*options)

type options struct {
	keep func(*catalog.Object) bool
}

// WithObjectFilter installs a hook deciding which objects appear in the
// report, e.g. to skip internal helper routines from emitted output.
// Every object is still inferred so dependents keep resolving through it.
func WithObjectFilter(keep func(*catalog.Object) bool) Option {
	return func(o *options) { o.keep = keep }
}

// Run executes one full analysis pass: link dependency edges, build the
// execution queue (a cycle is fatal for the run), then infer the result
// shape of every view and SQL-bodied routine in dependency order.
// Inferred view shapes are fed back so later objects can select from
// them without a live database. The pass may be cancelled between
// objects; an in-flight object's inference is discarded whole, never
// partially applied.
func Run(ctx context.Context, cat *catalog.Catalog, resolver Resolver, opts ...Option) (*Report, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	linker.Link(cat)
	queue, err := linker.BuildQueue(cat)
	if err != nil {
		return nil, err
	}

	overlay := newOverlayResolver(resolver)
	report := &Report{Queue: queue}

	for _, obj := range queue.Items() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if obj.Query == nil {
			continue
		}

		scope := NewScope(overlay, cat)
		fields, err := scope.InferStatement(ctx, obj.Query)
		if err != nil {
			report.Failures = append(report.Failures, Failure{Object: obj.ID, Source: obj.Source, Err: err})
			continue
		}
		if obj.Kind == catalog.KindView {
			overlay.store(obj.ID, &RelationBinding{Kind: RelView, Fields: fields})
		}

		if o.keep != nil && !o.keep(obj) {
			continue
		}
		report.Results = append(report.Results, ObjectResult{Object: obj, Fields: fields})
	}
	return report, nil
}
