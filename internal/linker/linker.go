// Package linker builds the dependency graph over catalog objects and
// produces a dependency-first execution order. Consumers use the order to
// apply DDL safely and to emit declarations before their uses.
package linker

import (
	"sort"

	"pgshape/internal/catalog"
)

// Link populates dependency edges for every object in the catalog.
// Objects are visited sorted by canonical identifier so edge order is
// deterministic regardless of input order. References that do not
// resolve within the catalog (built-in types, external relations) are
// left unlinked; they are not errors here.
func Link(cat *catalog.Catalog) {
	objects := cat.Objects()
	sort.SliceStable(objects, func(i, j int) bool {
		return objects[i].ID.Less(objects[j].ID)
	})
	for _, obj := range objects {
		linkObject(cat, obj)
	}
}

func linkObject(cat *catalog.Catalog, obj *catalog.Object) {
	switch obj.Kind {
	case catalog.KindTable, catalog.KindCompositeType:
		linkColumns(cat, obj, obj.Columns)
	case catalog.KindRoutine:
		for _, param := range obj.Params {
			if dep, ok := cat.ResolveType(param.Type); ok {
				obj.AddDependency(dep)
			}
		}
		if dep, ok := cat.ResolveType(obj.ReturnType); ok {
			obj.AddDependency(dep)
		}
		linkColumns(cat, obj, obj.ReturnColumns)
		linkRefs(cat, obj)
	case catalog.KindView:
		linkRefs(cat, obj)
	}
}

func linkColumns(cat *catalog.Catalog, obj *catalog.Object, cols []catalog.Column) {
	for _, col := range cols {
		if dep, ok := cat.ResolveType(col.Type); ok {
			obj.AddDependency(dep)
		}
		for _, ref := range col.Refs {
			if dep, ok := cat.Resolve(ref); ok {
				obj.AddDependency(dep)
			}
		}
	}
}

func linkRefs(cat *catalog.Catalog, obj *catalog.Object) {
	for _, ref := range obj.Refs {
		if dep, ok := cat.ResolveRelation(ref); ok {
			obj.AddDependency(dep)
		}
	}
}
