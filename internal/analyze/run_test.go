package analyze

import (
	"context"
	"testing"

	pg_query "github.com/pganalyze/pg_query_go/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pgshape/internal/catalog"
	"pgshape/internal/linker"
)

func buildCatalog(t *testing.T, sql string) *catalog.Catalog {
	t.Helper()
	parsed, err := pg_query.Parse(sql)
	require.NoError(t, err)
	cat, err := catalog.Build(parsed.Stmts, "schema.sql", "")
	require.NoError(t, err)
	return cat
}

func resultNames(report *Report) []string {
	var names []string
	for _, r := range report.Results {
		names = append(names, r.Object.ID.Name)
	}
	return names
}

func TestRun_ViewOverView(t *testing.T) {
	// v2 is declared before v1 and before the table; dependency order
	// still infers v1 first and feeds its shape back for v2.
	cat := buildCatalog(t, `
		CREATE VIEW v2 AS SELECT * FROM v1;
		CREATE VIEW v1 AS SELECT id, name FROM users;
		CREATE TABLE users (id bigint NOT NULL, name text);
	`)

	report, err := Run(context.Background(), cat, newUsersResolver())
	require.NoError(t, err)
	require.NoError(t, report.Err())

	assert.Equal(t, []string{"v1", "v2"}, resultNames(report))
	v2 := report.Results[1]
	require.Len(t, v2.Fields, 2)
	assert.Equal(t, "id", v2.Fields[0].Name)
	assert.Equal(t, uint32(OidInt8), v2.Fields[0].TypeOID)
	assert.True(t, v2.Fields[1].Nullable)
}

func TestRun_FailureIsolation(t *testing.T) {
	cat := buildCatalog(t, `
		CREATE TABLE users (id bigint NOT NULL, name text);
		CREATE VIEW good AS SELECT id FROM users;
		CREATE VIEW broken AS SELECT * FROM missing;
	`)

	report, err := Run(context.Background(), cat, newUsersResolver())
	require.NoError(t, err, "per-object failures do not abort the run")

	assert.Equal(t, []string{"good"}, resultNames(report))
	require.Len(t, report.Failures, 1)
	assert.Equal(t, "broken", report.Failures[0].Object.Name)
	assert.Equal(t, "schema.sql", report.Failures[0].Source)

	var notFound *RelationNotFoundError
	require.ErrorAs(t, report.Err(), &notFound)
	assert.Contains(t, report.Err().Error(), "schema.sql")
	assert.Equal(t, "public.missing", notFound.Rel.String())
}

func TestRun_CycleIsFatal(t *testing.T) {
	cat := buildCatalog(t, `
		CREATE VIEW a AS SELECT * FROM b;
		CREATE VIEW b AS SELECT * FROM a;
	`)

	_, err := Run(context.Background(), cat, newUsersResolver())
	var cycle *linker.CycleError
	require.ErrorAs(t, err, &cycle)
	assert.Len(t, cycle.Members, 2)
}

func TestRun_Cancellation(t *testing.T) {
	cat := buildCatalog(t, `
		CREATE TABLE users (id bigint NOT NULL, name text);
		CREATE VIEW v AS SELECT id FROM users;
	`)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Run(ctx, cat, newUsersResolver())
	require.ErrorIs(t, err, context.Canceled)
}

func TestRun_ObjectFilterKeepsOverlay(t *testing.T) {
	cat := buildCatalog(t, `
		CREATE TABLE users (id bigint NOT NULL, name text);
		CREATE VIEW inner_v AS SELECT id FROM users;
		CREATE VIEW outer_v AS SELECT * FROM inner_v;
	`)

	report, err := Run(context.Background(), cat, newUsersResolver(),
		WithObjectFilter(func(obj *catalog.Object) bool {
			return obj.ID.Name != "inner_v"
		}))
	require.NoError(t, err)
	require.NoError(t, report.Err(), "the filtered view still resolves for its dependents")
	assert.Equal(t, []string{"outer_v"}, resultNames(report))
}

func TestRun_ConfiguredDefaultSchema(t *testing.T) {
	parsed, err := pg_query.Parse(`
		CREATE TABLE users (id bigint NOT NULL, name text);
		CREATE VIEW v AS SELECT id::text AS id_text, name FROM users;
	`)
	require.NoError(t, err)
	cat, err := catalog.Build(parsed.Stmts, "schema.sql", "app")
	require.NoError(t, err)

	resolver := &fakeResolver{
		relations: map[string]*RelationBinding{
			"app.users": {Kind: RelTable, Fields: []Field{
				{Name: "id", TypeOID: OidInt8},
				{Name: "name", TypeOID: OidText, Nullable: true},
			}},
		},
		typeNames: map[uint32]catalog.Identifier{},
	}

	report, err := Run(context.Background(), cat, resolver)
	require.NoError(t, err)
	require.NoError(t, report.Err(), "unqualified references resolve in the configured schema")

	require.Len(t, report.Results, 1)
	v := report.Results[0]
	assert.Equal(t, "app.v", v.Object.ID.String())
	require.Len(t, v.Fields, 2)
	assert.Equal(t, "id_text", v.Fields[0].Name)
	assert.Equal(t, uint32(OidText), v.Fields[0].TypeOID,
		"bare built-in type names still cast under a custom default")
}

func newUsersResolver() *fakeResolver {
	return &fakeResolver{
		relations: map[string]*RelationBinding{
			"public.users": {Kind: RelTable, Fields: []Field{
				{Name: "id", TypeOID: OidInt8},
				{Name: "name", TypeOID: OidText, Nullable: true},
			}},
		},
		typeNames: map[uint32]catalog.Identifier{},
	}
}
