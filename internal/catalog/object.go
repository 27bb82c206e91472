package catalog

import (
	pg_query "github.com/pganalyze/pg_query_go/v6"
)

// ObjectKind discriminates the supported schema object variants.
type ObjectKind int

const (
	KindTable ObjectKind = iota
	KindView
	KindCompositeType
	KindRoutine
)

func (k ObjectKind) String() string {
	switch k {
	case KindTable:
		return "table"
	case KindView:
		return "view"
	case KindCompositeType:
		return "composite type"
	case KindRoutine:
		return "routine"
	default:
		return "unknown"
	}
}

// Column is a declared column of a table or composite type, or a result
// column of a routine. Refs holds identifiers the column refers to beyond
// its own type (e.g. a foreign-key target table).
type Column struct {
	Name    string
	Type    Identifier
	NotNull bool
	Dims    int
	Refs    []Identifier
}

// Param is a declared routine parameter.
type Param struct {
	Name string
	Type Identifier
}

// Object is one schema object parsed from a declarative statement.
// Dependency edges are populated later by the linker; Dependents is the
// inverse back-reference and never owns anything.
type Object struct {
	Kind ObjectKind
	ID   Identifier

	// Tables and composite types.
	Columns []Column

	// Routines.
	Params        []Param
	ReturnType    Identifier // zero when ReturnColumns is set
	ReturnColumns []Column   // RETURNS TABLE / OUT parameters
	ReturnsSet    bool

	// Views.
	Refs []Identifier

	// Body query for views and single-statement SQL routines; nil when
	// the result shape is fully declared.
	Query *pg_query.Node

	// Byte offset of the declaring statement in its source, for
	// diagnostics.
	Location int32
	Source   string

	Dependencies []*Object
	Dependents   []*Object
}

// AddDependency records a dependency edge and its inverse, ignoring
// self-references and duplicates.
func (o *Object) AddDependency(dep *Object) {
	if dep == o {
		return
	}
	for _, existing := range o.Dependencies {
		if existing == dep {
			return
		}
	}
	o.Dependencies = append(o.Dependencies, dep)
	dep.Dependents = append(dep.Dependents, o)
}
