package meta

import (
	"context"
	"errors"

	"pgshape/internal/analyze"
	"pgshape/internal/catalog"
)

// Chain tries each resolver in order. A relation not found by one
// resolver falls through to the next; errors stop the chain. Type names
// fall through only on UnknownTypeError.
type Chain []analyze.Resolver

func (c Chain) ResolveRelation(ctx context.Context, id catalog.Identifier) (*analyze.RelationBinding, bool, error) {
	for _, r := range c {
		binding, ok, err := r.ResolveRelation(ctx, id)
		if err != nil {
			return nil, false, err
		}
		if ok {
			return binding, true, nil
		}
	}
	return nil, false, nil
}

func (c Chain) TypeName(ctx context.Context, oid uint32) (catalog.Identifier, error) {
	var lastErr error
	for _, r := range c {
		name, err := r.TypeName(ctx, oid)
		if err == nil {
			return name, nil
		}
		var unknown *analyze.UnknownTypeError
		if !errors.As(err, &unknown) {
			return catalog.Identifier{}, err
		}
		lastErr = err
	}
	if lastErr == nil {
		lastErr = &analyze.UnknownTypeError{OID: oid}
	}
	return catalog.Identifier{}, lastErr
}
