package catalog

import (
	pg_query "github.com/pganalyze/pg_query_go/v6"
)

// DefaultSchema is assumed for unqualified names when no other default is
// configured, matching PostgreSQL's default search path.
const DefaultSchema = "public"

// Identifier is the canonical (schema, name) pair identifying a schema
// object or type. A constructed Identifier always carries a schema.
type Identifier struct {
	Schema string
	Name   string
}

// NewIdentifier builds an Identifier, applying the standard default
// schema when none is given.
func NewIdentifier(schema, name string) Identifier {
	return qualify(schema, name, DefaultSchema)
}

// qualify fills in the schema from the configured default. An empty
// default falls back to DefaultSchema.
func qualify(schema, name, def string) Identifier {
	if schema == "" {
		if def == "" {
			def = DefaultSchema
		}
		schema = def
	}
	return Identifier{Schema: schema, Name: name}
}

// String returns the canonical "schema.name" form.
func (id Identifier) String() string {
	return id.Schema + "." + id.Name
}

// Less orders identifiers by schema, then name, case-sensitively. Used to
// make catalog traversal deterministic regardless of input order.
func (id Identifier) Less(other Identifier) bool {
	if id.Schema != other.Schema {
		return id.Schema < other.Schema
	}
	return id.Name < other.Name
}

// IsSystem reports whether the identifier lives in a built-in schema.
func (id Identifier) IsSystem() bool {
	return id.Schema == "pg_catalog" || id.Schema == "information_schema"
}

// identifierFromRangeVar converts a parsed RangeVar to an Identifier,
// qualifying unqualified names with the configured default schema.
func identifierFromRangeVar(rv *pg_query.RangeVar, def string) Identifier {
	return qualify(rv.Schemaname, rv.Relname, def)
}

// IdentifierFromTypeName converts a parsed TypeName to an Identifier.
// The parser normalizes built-in type aliases into pg_catalog names
// (e.g. "integer" becomes pg_catalog.int4), so qualified names pass
// through and single names get the configured default schema.
func IdentifierFromTypeName(tn *pg_query.TypeName, def string) Identifier {
	names := tn.Names
	switch len(names) {
	case 0:
		return Identifier{}
	case 1:
		return qualify("", names[0].GetString_().GetSval(), def)
	default:
		// Use the last two components; catalog-qualified names are rare
		// but legal.
		schema := names[len(names)-2].GetString_().GetSval()
		name := names[len(names)-1].GetString_().GetSval()
		return qualify(schema, name, def)
	}
}

// IdentifierFromNames converts a qualified name list (e.g. a function
// name) to an Identifier.
func IdentifierFromNames(names []*pg_query.Node, def string) Identifier {
	switch len(names) {
	case 0:
		return Identifier{}
	case 1:
		return qualify("", names[0].GetString_().GetSval(), def)
	default:
		schema := names[len(names)-2].GetString_().GetSval()
		name := names[len(names)-1].GetString_().GetSval()
		return qualify(schema, name, def)
	}
}
