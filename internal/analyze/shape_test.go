package analyze

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashShape_ObjectFieldOrderIrrelevant(t *testing.T) {
	a := &ObjectShape{Fields: []ObjectField{
		{Name: "x", Value: &PrimitiveShape{Kind: KindNumber}},
		{Name: "y", Value: &PrimitiveShape{Kind: KindString}},
	}}
	b := &ObjectShape{Fields: []ObjectField{
		{Name: "y", Value: &PrimitiveShape{Kind: KindString}},
		{Name: "x", Value: &PrimitiveShape{Kind: KindNumber}},
	}}
	assert.Equal(t, HashShape(a), HashShape(b))
}

func TestHashShape_DistinguishesKindAndNullability(t *testing.T) {
	num := &PrimitiveShape{Kind: KindNumber}
	str := &PrimitiveShape{Kind: KindString}
	nullableNum := &PrimitiveShape{Kind: KindNumber, Null: true}

	assert.NotEqual(t, HashShape(num), HashShape(str))
	assert.NotEqual(t, HashShape(num), HashShape(nullableNum))
	assert.NotEqual(t,
		HashShape(&ArrayShape{Elem: num}),
		HashShape(&ObjectShape{Fields: []ObjectField{{Name: "a", Value: num}}}))
}

func TestHashShape_UnionMemberOrderIrrelevant(t *testing.T) {
	num := &PrimitiveShape{Kind: KindNumber}
	str := &PrimitiveShape{Kind: KindString}
	assert.Equal(t,
		HashShape(&UnionShape{Members: []Shape{num, str}}),
		HashShape(&UnionShape{Members: []Shape{str, num}}))
}

func TestMakeUnion_CollapsesIdenticalShapes(t *testing.T) {
	a := &ObjectShape{Fields: []ObjectField{{Name: "a", Value: &PrimitiveShape{Kind: KindNumber}}}}
	b := &ObjectShape{Fields: []ObjectField{{Name: "a", Value: &PrimitiveShape{Kind: KindNumber}}}}

	merged := MakeUnion(a, b)
	obj, ok := merged.(*ObjectShape)
	require.True(t, ok, "identical members collapse to a single shape, not a union")
	assert.Equal(t, "a", obj.Fields[0].Name)
}

func TestMakeUnion_FlattensNestedUnions(t *testing.T) {
	num := &PrimitiveShape{Kind: KindNumber}
	str := &PrimitiveShape{Kind: KindString}
	boolean := &PrimitiveShape{Kind: KindBoolean}

	merged := MakeUnion(&UnionShape{Members: []Shape{num, str}}, boolean)
	union, ok := merged.(*UnionShape)
	require.True(t, ok)
	assert.Len(t, union.Members, 3)
}

func TestMakeUnion_DedupsAcrossNesting(t *testing.T) {
	num := &PrimitiveShape{Kind: KindNumber}
	str := &PrimitiveShape{Kind: KindString}

	merged := MakeUnion(&UnionShape{Members: []Shape{num, str}}, &PrimitiveShape{Kind: KindNumber})
	union, ok := merged.(*UnionShape)
	require.True(t, ok)
	assert.Len(t, union.Members, 2)
}

func TestRenderShape_Primitives(t *testing.T) {
	assert.Equal(t, "number", RenderShape(&PrimitiveShape{Kind: KindNumber}))
	assert.Equal(t, "string | null", RenderShape(&PrimitiveShape{Kind: KindString, Null: true}))
	assert.Equal(t, "Json", RenderShape(&PrimitiveShape{Kind: KindJSON}))
}

func TestRenderShape_Object(t *testing.T) {
	shape := &ObjectShape{Fields: []ObjectField{
		{Name: "id", Value: &PrimitiveShape{Kind: KindNumber}},
		{Name: "name", Value: &PrimitiveShape{Kind: KindString, Null: true}},
	}}
	assert.Equal(t, "{id: number; name: string | null}", RenderShape(shape))
}

func TestRenderShape_ArrayOfNullableElementParenthesized(t *testing.T) {
	shape := &ArrayShape{Elem: &PrimitiveShape{Kind: KindNumber, Null: true}}
	assert.Equal(t, "(number | null)[]", RenderShape(shape))
}

func TestRenderShape_UnionSuppressesMemberNull(t *testing.T) {
	// A nullable member renders without its own "| null"; the union
	// carries a single outer one.
	shape := &UnionShape{Members: []Shape{
		&PrimitiveShape{Kind: KindNumber, Null: true},
		&PrimitiveShape{Kind: KindString},
	}}
	assert.Equal(t, "number | string | null", RenderShape(shape))
}

func TestRenderShape_UnionOfArraysParenthesized(t *testing.T) {
	union := &UnionShape{Members: []Shape{
		&PrimitiveShape{Kind: KindNumber},
		&PrimitiveShape{Kind: KindString},
	}}
	shape := &ArrayShape{Elem: union}
	assert.Equal(t, "(number | string)[]", RenderShape(shape))
}

func TestRenderShape_MemberOrderDeterministic(t *testing.T) {
	forward := &UnionShape{Members: []Shape{
		&PrimitiveShape{Kind: KindString},
		&PrimitiveShape{Kind: KindNumber},
	}}
	backward := &UnionShape{Members: []Shape{
		&PrimitiveShape{Kind: KindNumber},
		&PrimitiveShape{Kind: KindString},
	}}
	assert.Equal(t, RenderShape(forward), RenderShape(backward))
}

// --- JSON inference through SQL ---

func TestInfer_JSONBuildObject(t *testing.T) {
	fields := mustInfer(t, "SELECT json_build_object('id', id, 'name', name) FROM t1")
	require.Len(t, fields, 1)
	require.NotNil(t, fields[0].JSON)
	assert.Equal(t, "{id: number; name: string | null}", RenderShape(fields[0].JSON))
}

func TestInfer_JSONBuildObjectNonLiteralKeyDegrades(t *testing.T) {
	fields := mustInfer(t, "SELECT json_build_object(name, id) FROM t1")
	require.Len(t, fields, 1)
	assert.Equal(t, "Json", RenderShape(fields[0].JSON))
}

func TestInfer_JSONBuildObjectDuplicateKeyLastWins(t *testing.T) {
	fields := mustInfer(t, "SELECT json_build_object('k', id, 'k', name) FROM t1")
	require.Len(t, fields, 1)
	assert.Equal(t, "{k: string | null}", RenderShape(fields[0].JSON))
}

func TestInfer_JSONAgg(t *testing.T) {
	fields := mustInfer(t, "SELECT json_agg(json_build_object('id', id)) FROM t1")
	require.Len(t, fields, 1)
	require.NotNil(t, fields[0].JSON)
	assert.Equal(t, "{id: number}[] | null", RenderShape(fields[0].JSON))
}

func TestInfer_CaseIdenticalBranchesCollapse(t *testing.T) {
	fields := mustInfer(t, `
		SELECT CASE WHEN id > 0
			THEN json_build_object('a', id)
			ELSE json_build_object('a', id)
		END FROM t1`)
	require.Len(t, fields, 1)
	assert.Equal(t, "{a: number}", RenderShape(fields[0].JSON))
}

func TestInfer_CaseDistinctBranchesUnion(t *testing.T) {
	fields := mustInfer(t, `
		SELECT CASE WHEN id > 0
			THEN json_build_object('a', id)
			ELSE json_build_object('b', name)
		END FROM t1`)
	require.Len(t, fields, 1)
	union, ok := fields[0].JSON.(*UnionShape)
	require.True(t, ok)
	assert.Len(t, union.Members, 2)
}

func TestInfer_CaseWithoutElseNullable(t *testing.T) {
	fields := mustInfer(t, "SELECT CASE WHEN id > 0 THEN name END FROM t1")
	require.Len(t, fields, 1)
	assert.True(t, fields[0].Nullable)
	assert.Equal(t, uint32(OidText), fields[0].TypeOID)
}

func TestInfer_CoalesceNotNullWhenAnyArgIs(t *testing.T) {
	fields := mustInfer(t, "SELECT coalesce(name, 'fallback') FROM t1")
	require.Len(t, fields, 1)
	assert.False(t, fields[0].Nullable)
}

func TestInfer_ToJSONColumn(t *testing.T) {
	fields := mustInfer(t, "SELECT to_jsonb(name) FROM t1")
	require.Len(t, fields, 1)
	assert.Equal(t, uint32(OidJSONB), fields[0].TypeOID)
	assert.Equal(t, "string | null", RenderShape(fields[0].JSON))
}
