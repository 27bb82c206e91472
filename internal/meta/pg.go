package meta

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"pgshape/internal/analyze"
	"pgshape/internal/catalog"
)

// PgResolver resolves relation columns and type names against a live
// PostgreSQL connection. Both lookups are cached for the lifetime of the
// resolver, which is one analysis run.
type PgResolver struct {
	conn *pgx.Conn

	relations map[catalog.Identifier]*relationEntry
	typeNames map[uint32]catalog.Identifier
}

type relationEntry struct {
	binding *analyze.RelationBinding
	found   bool
}

// NewPgResolver wraps an open connection. The resolver does not own the
// connection; the caller closes it after the run.
func NewPgResolver(conn *pgx.Conn) *PgResolver {
	return &PgResolver{
		conn:      conn,
		relations: make(map[catalog.Identifier]*relationEntry),
		typeNames: make(map[uint32]catalog.Identifier),
	}
}

// Connect opens a connection and returns a resolver over it, plus a
// close function for the end of the run.
func Connect(ctx context.Context, dsn string) (*PgResolver, func(context.Context) error, error) {
	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("connect: %w", err)
	}
	return NewPgResolver(conn), conn.Close, nil
}

const relationColumnsQuery = `
SELECT a.attname, a.atttypid, a.attnotnull, a.attndims, c.relkind
FROM pg_attribute a
JOIN pg_class c ON c.oid = a.attrelid
JOIN pg_namespace n ON n.oid = c.relnamespace
WHERE n.nspname = $1
  AND c.relname = $2
  AND a.attnum > 0
  AND NOT a.attisdropped
ORDER BY a.attnum`

func (r *PgResolver) ResolveRelation(ctx context.Context, id catalog.Identifier) (*analyze.RelationBinding, bool, error) {
	if entry, ok := r.relations[id]; ok {
		return entry.binding, entry.found, nil
	}

	rows, err := r.conn.Query(ctx, relationColumnsQuery, id.Schema, id.Name)
	if err != nil {
		return nil, false, fmt.Errorf("resolve relation %q: %w", id, err)
	}
	defer rows.Close()

	var fields []analyze.Field
	kind := analyze.RelTable
	for rows.Next() {
		var (
			name    string
			typOID  uint32
			notNull bool
			ndims   int32
			relkind string
		)
		if err := rows.Scan(&name, &typOID, &notNull, &ndims, &relkind); err != nil {
			return nil, false, fmt.Errorf("resolve relation %q: %w", id, err)
		}
		if relkind == "v" || relkind == "m" {
			kind = analyze.RelView
		}
		fields = append(fields, analyze.Field{
			Name:     name,
			TypeOID:  typOID,
			Nullable: !notNull,
			Dims:     int(ndims),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("resolve relation %q: %w", id, err)
	}

	entry := &relationEntry{}
	if len(fields) > 0 {
		entry.binding = &analyze.RelationBinding{Kind: kind, Fields: fields}
		entry.found = true
	}
	r.relations[id] = entry
	return entry.binding, entry.found, nil
}

const typeNameQuery = `
SELECT n.nspname, t.typname
FROM pg_type t
JOIN pg_namespace n ON n.oid = t.typnamespace
WHERE t.oid = $1`

func (r *PgResolver) TypeName(ctx context.Context, oid uint32) (catalog.Identifier, error) {
	if name, ok := r.typeNames[oid]; ok {
		return name, nil
	}

	var schema, name string
	err := r.conn.QueryRow(ctx, typeNameQuery, oid).Scan(&schema, &name)
	if errors.Is(err, pgx.ErrNoRows) {
		return catalog.Identifier{}, &analyze.UnknownTypeError{OID: oid}
	}
	if err != nil {
		return catalog.Identifier{}, fmt.Errorf("type name for oid %d: %w", oid, err)
	}

	id := catalog.Identifier{Schema: schema, Name: name}
	r.typeNames[oid] = id
	return id, nil
}
