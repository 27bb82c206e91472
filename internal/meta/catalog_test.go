package meta

import (
	"context"
	"testing"

	pg_query "github.com/pganalyze/pg_query_go/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pgshape/internal/analyze"
	"pgshape/internal/catalog"
)

func buildCatalog(t *testing.T, sql string) *catalog.Catalog {
	t.Helper()
	parsed, err := pg_query.Parse(sql)
	require.NoError(t, err)
	cat, err := catalog.Build(parsed.Stmts, "schema.sql", "")
	require.NoError(t, err)
	return cat
}

func TestCatalogResolver_Table(t *testing.T) {
	cat := buildCatalog(t, `
		CREATE TABLE users (
			id bigint NOT NULL,
			name text,
			tags text[]
		);
	`)
	resolver := NewCatalogResolver(cat)

	binding, ok, err := resolver.ResolveRelation(context.Background(),
		catalog.NewIdentifier("", "users"))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, analyze.RelTable, binding.Kind)
	require.Len(t, binding.Fields, 3)

	assert.Equal(t, uint32(analyze.OidInt8), binding.Fields[0].TypeOID)
	assert.False(t, binding.Fields[0].Nullable)
	assert.True(t, binding.Fields[1].Nullable)
	assert.Equal(t, 1, binding.Fields[2].Dims)
}

func TestCatalogResolver_UserTypeColumnDegrades(t *testing.T) {
	cat := buildCatalog(t, `
		CREATE TYPE money_amount AS (amount numeric, currency text);
		CREATE TABLE prices (value money_amount);
	`)
	resolver := NewCatalogResolver(cat)

	binding, ok, err := resolver.ResolveRelation(context.Background(),
		catalog.NewIdentifier("", "prices"))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, uint32(0), binding.Fields[0].TypeOID)
}

func TestCatalogResolver_ViewNotServed(t *testing.T) {
	// View shapes come from the inference pass, not declarations.
	cat := buildCatalog(t, `
		CREATE TABLE users (id bigint);
		CREATE VIEW v AS SELECT id FROM users;
	`)
	resolver := NewCatalogResolver(cat)

	_, ok, err := resolver.ResolveRelation(context.Background(),
		catalog.NewIdentifier("", "v"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCatalogResolver_MissingRelation(t *testing.T) {
	resolver := NewCatalogResolver(buildCatalog(t, "CREATE TABLE users (id bigint);"))

	_, ok, err := resolver.ResolveRelation(context.Background(),
		catalog.NewIdentifier("", "nope"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCatalogResolver_TypeName(t *testing.T) {
	resolver := NewCatalogResolver(catalog.New(""))

	name, err := resolver.TypeName(context.Background(), analyze.OidJSONB)
	require.NoError(t, err)
	assert.Equal(t, "pg_catalog.jsonb", name.String())

	_, err = resolver.TypeName(context.Background(), 999999)
	var unknown *analyze.UnknownTypeError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, uint32(999999), unknown.OID)
}

func TestChain_FallsThroughOnMiss(t *testing.T) {
	first := NewCatalogResolver(buildCatalog(t, "CREATE TABLE a (x bigint NOT NULL);"))
	second := NewCatalogResolver(buildCatalog(t, "CREATE TABLE b (y text);"))
	chain := Chain{first, second}

	binding, ok, err := chain.ResolveRelation(context.Background(),
		catalog.NewIdentifier("", "b"))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "y", binding.Fields[0].Name)

	_, ok, err = chain.ResolveRelation(context.Background(),
		catalog.NewIdentifier("", "c"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestChain_FirstMatchWins(t *testing.T) {
	first := NewCatalogResolver(buildCatalog(t, "CREATE TABLE a (x bigint NOT NULL);"))
	second := NewCatalogResolver(buildCatalog(t, "CREATE TABLE a (x text, extra text);"))
	chain := Chain{first, second}

	binding, ok, err := chain.ResolveRelation(context.Background(),
		catalog.NewIdentifier("", "a"))
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, binding.Fields, 1)
	assert.Equal(t, uint32(analyze.OidInt8), binding.Fields[0].TypeOID)
}
