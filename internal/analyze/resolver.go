package analyze

import (
	"context"

	"pgshape/internal/catalog"
)

// Resolver supplies relation and type metadata during inference. It is
// the analyzer's only external collaborator and its only suspension
// point; implementations may be backed by the parsed catalog, a live
// database connection, or both. Both lookups are cacheable per run.
type Resolver interface {
	// ResolveRelation returns the fields a relation exposes, or ok=false
	// when the identifier does not name a known relation.
	ResolveRelation(ctx context.Context, id catalog.Identifier) (*RelationBinding, bool, error)

	// TypeName returns the qualified name for a type OID.
	TypeName(ctx context.Context, oid uint32) (catalog.Identifier, error)
}

// overlayResolver consults inferred relation shapes before falling back
// to the base resolver. The analysis pass registers each successfully
// inferred view here so later objects in the execution queue can select
// from it without a live database.
type overlayResolver struct {
	base      Resolver
	relations map[catalog.Identifier]*RelationBinding
}

func newOverlayResolver(base Resolver) *overlayResolver {
	return &overlayResolver{
		base:      base,
		relations: make(map[catalog.Identifier]*RelationBinding),
	}
}

func (r *overlayResolver) store(id catalog.Identifier, binding *RelationBinding) {
	r.relations[id] = binding
}

func (r *overlayResolver) ResolveRelation(ctx context.Context, id catalog.Identifier) (*RelationBinding, bool, error) {
	if binding, ok := r.relations[id]; ok {
		return binding, true, nil
	}
	return r.base.ResolveRelation(ctx, id)
}

func (r *overlayResolver) TypeName(ctx context.Context, oid uint32) (catalog.Identifier, error) {
	return r.base.TypeName(ctx, oid)
}
