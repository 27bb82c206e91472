package analyze

import (
	"context"

	"pgshape/internal/catalog"
)

// typeNameCache memoizes OID-to-name lookups for one analysis run. It is
// shared by reference across scope forks; a forked scope never gets its
// parent's bindings, only cache visibility.
type typeNameCache struct {
	names map[uint32]catalog.Identifier
}

func newTypeNameCache() *typeNameCache {
	return &typeNameCache{names: make(map[uint32]catalog.Identifier)}
}

// Scope is one lexical environment mapping exposed reference names to
// relation bindings. The owning scope is the only mutator of its refs
// map; nested constructs get forks.
type Scope struct {
	refs  map[string]*RelationBinding
	order []string // bind order, for deterministic star expansion

	// ctes holds WITH-clause bindings visible to this scope. A fork
	// snapshots the current set, so a CTE body sees only CTEs declared
	// before it.
	ctes map[string]*RelationBinding

	cache         *typeNameCache
	resolver      Resolver
	routines      *catalog.Catalog // routine result lookup; may be nil
	defaultSchema string
}

// NewScope returns a root scope backed by the given resolver. The
// catalog, when non-nil, resolves routine result types for function
// calls in target lists and supplies the schema assumed for unqualified
// names.
func NewScope(resolver Resolver, cat *catalog.Catalog) *Scope {
	def := catalog.DefaultSchema
	if cat != nil {
		def = cat.DefaultSchema()
	}
	return &Scope{
		refs:          make(map[string]*RelationBinding),
		ctes:          make(map[string]*RelationBinding),
		cache:         newTypeNameCache(),
		resolver:      resolver,
		routines:      cat,
		defaultSchema: def,
	}
}

// Fork creates a child scope with an empty bindings map, a snapshot of
// the currently visible CTEs, and shared cache visibility.
func (s *Scope) Fork() *Scope {
	ctes := make(map[string]*RelationBinding, len(s.ctes))
	for name, binding := range s.ctes {
		ctes[name] = binding
	}
	return &Scope{
		refs:          make(map[string]*RelationBinding),
		ctes:          ctes,
		cache:         s.cache,
		resolver:      s.resolver,
		routines:      s.routines,
		defaultSchema: s.defaultSchema,
	}
}

func (s *Scope) bind(name string, binding *RelationBinding) {
	if _, exists := s.refs[name]; !exists {
		s.order = append(s.order, name)
	}
	s.refs[name] = binding
}

func (s *Scope) binding(name string) (*RelationBinding, bool) {
	b, ok := s.refs[name]
	return b, ok
}

// allFields returns every bound field in bind order, for unqualified
// star expansion.
func (s *Scope) allFields() []Field {
	var fields []Field
	for _, name := range s.order {
		fields = append(fields, s.refs[name].Fields...)
	}
	return fields
}

// uniqueFields builds the index used by unqualified column lookup: the
// union of all bound fields, with any name exposed by more than one
// relation excluded entirely. Ambiguous references must go through an
// explicit qualifier instead.
func (s *Scope) uniqueFields() map[string]Field {
	counts := make(map[string]int)
	index := make(map[string]Field)
	for _, name := range s.order {
		for _, f := range s.refs[name].Fields {
			counts[f.Name]++
			if counts[f.Name] == 1 {
				index[f.Name] = f
			} else {
				delete(index, f.Name)
			}
		}
	}
	return index
}

// typeName resolves an OID to its qualified type name through the shared
// per-run cache.
func (s *Scope) typeName(ctx context.Context, oid uint32) (catalog.Identifier, error) {
	if name, ok := s.cache.names[oid]; ok {
		return name, nil
	}
	name, err := s.resolver.TypeName(ctx, oid)
	if err != nil {
		return catalog.Identifier{}, err
	}
	s.cache.names[oid] = name
	return name, nil
}
