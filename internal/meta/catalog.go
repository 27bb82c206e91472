// Package meta provides metadata resolvers: the analyzer's view of
// relation columns and type names, backed by the parsed catalog, a live
// PostgreSQL connection, or a chain of both.
package meta

import (
	"context"

	"pgshape/internal/analyze"
	"pgshape/internal/catalog"
)

// CatalogResolver answers relation and type lookups from the parsed
// catalog alone, with no database connection. Declared column types are
// mapped to OIDs through the built-in scalar table; user-defined types
// keep OID zero and degrade to opaque JSON downstream.
type CatalogResolver struct {
	cat *catalog.Catalog
}

// NewCatalogResolver wraps a catalog as a resolver.
func NewCatalogResolver(cat *catalog.Catalog) *CatalogResolver {
	return &CatalogResolver{cat: cat}
}

func (r *CatalogResolver) ResolveRelation(ctx context.Context, id catalog.Identifier) (*analyze.RelationBinding, bool, error) {
	obj, ok := r.cat.ResolveRelation(id)
	if !ok {
		return nil, false, nil
	}
	switch obj.Kind {
	case catalog.KindTable:
		return &analyze.RelationBinding{
			Kind:   analyze.RelTable,
			Fields: fieldsFromColumns(obj.Columns, r.cat.DefaultSchema()),
		}, true, nil
	default:
		// View shapes come from inference, not declaration; the analysis
		// pass overlays them in dependency order, so reaching here means
		// the view was not analyzable first.
		return nil, false, nil
	}
}

func (r *CatalogResolver) TypeName(ctx context.Context, oid uint32) (catalog.Identifier, error) {
	// The catalog has no OID assignments for user types; only built-in
	// scalars are nameable offline.
	if name, ok := builtinNamesByOID[oid]; ok {
		return catalog.Identifier{Schema: "pg_catalog", Name: name}, nil
	}
	return catalog.Identifier{}, &analyze.UnknownTypeError{OID: oid}
}

// builtinNamesByOID names the scalar OIDs the analyzer can produce
// without a live connection.
var builtinNamesByOID = map[uint32]string{
	analyze.OidBool:        "bool",
	analyze.OidBytea:       "bytea",
	analyze.OidName:        "name",
	analyze.OidInt8:        "int8",
	analyze.OidInt2:        "int2",
	analyze.OidInt4:        "int4",
	analyze.OidText:        "text",
	analyze.OidOid:         "oid",
	analyze.OidJSON:        "json",
	analyze.OidFloat4:      "float4",
	analyze.OidFloat8:      "float8",
	analyze.OidMoney:       "money",
	analyze.OidBpchar:      "bpchar",
	analyze.OidVarchar:     "varchar",
	analyze.OidDate:        "date",
	analyze.OidTime:        "time",
	analyze.OidTimestamp:   "timestamp",
	analyze.OidTimestamptz: "timestamptz",
	analyze.OidInterval:    "interval",
	analyze.OidTimetz:      "timetz",
	analyze.OidNumeric:     "numeric",
	analyze.OidUUID:        "uuid",
	analyze.OidJSONB:       "jsonb",
}

// fieldsFromColumns maps declared columns to analyzer fields. Columns
// without NOT NULL are nullable; unknown declared types keep OID zero.
func fieldsFromColumns(cols []catalog.Column, defaultSchema string) []analyze.Field {
	fields := make([]analyze.Field, len(cols))
	for i, col := range cols {
		oid, _ := analyze.TypeOID(col.Type, defaultSchema)
		fields[i] = analyze.Field{
			Name:     col.Name,
			TypeOID:  oid,
			Nullable: !col.NotNull,
			Dims:     col.Dims,
		}
	}
	return fields
}
