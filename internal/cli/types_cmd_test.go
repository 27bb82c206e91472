package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"pgshape/internal/analyze"
	"pgshape/internal/catalog"
)

func TestObjectHeading(t *testing.T) {
	table := &catalog.Object{
		Kind: catalog.KindTable,
		ID:   catalog.NewIdentifier("", "users"),
	}
	assert.Equal(t, "table public.users", objectHeading(table))

	setReturning := &catalog.Object{
		Kind:       catalog.KindRoutine,
		ID:         catalog.NewIdentifier("", "list_users"),
		ReturnsSet: true,
	}
	assert.Equal(t, "routine public.list_users (setof)", objectHeading(setReturning))

	scalar := &catalog.Object{
		Kind: catalog.KindRoutine,
		ID:   catalog.NewIdentifier("", "user_count"),
	}
	assert.Equal(t, "routine public.user_count", objectHeading(scalar))
}

func TestRenderFieldType(t *testing.T) {
	assert.Equal(t, "number",
		renderFieldType(analyze.Field{TypeOID: analyze.OidInt8}))
	assert.Equal(t, "string | null",
		renderFieldType(analyze.Field{TypeOID: analyze.OidText, Nullable: true}))
	assert.Equal(t, "number[]",
		renderFieldType(analyze.Field{TypeOID: analyze.OidInt4, Dims: 1}))
	assert.Equal(t, "{id: number}",
		renderFieldType(analyze.Field{
			TypeOID: analyze.OidJSONB,
			JSON: &analyze.ObjectShape{Fields: []analyze.ObjectField{
				{Name: "id", Value: &analyze.PrimitiveShape{Kind: analyze.KindNumber}},
			}},
		}))
}
