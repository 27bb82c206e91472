// Package catalog models declared schema objects (tables, views,
// composite types, routines) and builds a name-indexed lookup table from
// parsed SQL statements.
package catalog

import (
	"fmt"
)

// DuplicateObjectError reports two statements declaring the same
// (kind, identifier) pair. This is a hard stop: a silent overwrite would
// hide schema authoring mistakes.
type DuplicateObjectError struct {
	Kind ObjectKind
	ID   Identifier
}

func (e *DuplicateObjectError) Error() string {
	return fmt.Sprintf("%s %q declared more than once", e.Kind, e.ID)
}

// Catalog is the name-to-object lookup table for one analysis run.
// Identifiers are unique per kind; insertion order is preserved for
// deterministic downstream iteration.
type Catalog struct {
	objects       []*Object
	index         map[ObjectKind]map[Identifier]*Object
	defaultSchema string
}

// New returns an empty catalog. Unqualified names in the statements it is
// built from are qualified with defaultSchema; empty means "public".
func New(defaultSchema string) *Catalog {
	if defaultSchema == "" {
		defaultSchema = DefaultSchema
	}
	return &Catalog{
		index:         make(map[ObjectKind]map[Identifier]*Object),
		defaultSchema: defaultSchema,
	}
}

// DefaultSchema returns the schema assumed for unqualified names.
func (c *Catalog) DefaultSchema() string {
	return c.defaultSchema
}

// Add registers an object, failing with DuplicateObjectError when the
// same (kind, identifier) pair was already declared.
func (c *Catalog) Add(obj *Object) error {
	byID := c.index[obj.Kind]
	if byID == nil {
		byID = make(map[Identifier]*Object)
		c.index[obj.Kind] = byID
	}
	if _, exists := byID[obj.ID]; exists {
		return &DuplicateObjectError{Kind: obj.Kind, ID: obj.ID}
	}
	byID[obj.ID] = obj
	c.objects = append(c.objects, obj)
	return nil
}

// Objects returns all objects in insertion order.
func (c *Catalog) Objects() []*Object {
	out := make([]*Object, len(c.objects))
	copy(out, c.objects)
	return out
}

// Len returns the number of registered objects.
func (c *Catalog) Len() int {
	return len(c.objects)
}

// Resolve looks up an identifier trying each given kind in order. With no
// kinds it tries all of them in declaration-priority order.
func (c *Catalog) Resolve(id Identifier, kinds ...ObjectKind) (*Object, bool) {
	if len(kinds) == 0 {
		kinds = []ObjectKind{KindTable, KindView, KindCompositeType, KindRoutine}
	}
	for _, kind := range kinds {
		if obj, ok := c.index[kind][id]; ok {
			return obj, true
		}
	}
	return nil, false
}

// ResolveRelation looks up an identifier as something usable in a FROM
// clause.
func (c *Catalog) ResolveRelation(id Identifier) (*Object, bool) {
	return c.Resolve(id, KindTable, KindView)
}

// ResolveType looks up an identifier as a column type: a composite type,
// or a table's row type.
func (c *Catalog) ResolveType(id Identifier) (*Object, bool) {
	return c.Resolve(id, KindCompositeType, KindTable)
}

// ResolveRoutine looks up a routine by name.
func (c *Catalog) ResolveRoutine(id Identifier) (*Object, bool) {
	return c.Resolve(id, KindRoutine)
}
