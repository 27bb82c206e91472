// Rendering of structural shapes to type declarations.
package analyze

import (
	"sort"
	"strings"
)

// RenderShape renders a structural type to a type declaration. The
// function is pure and depth-first. Members embedded in a union suppress
// their own nullable annotation; the union's outer "| null" (present
// when any member is nullable) already communicates it.
func RenderShape(s Shape) string {
	return renderShape(s, false)
}

func renderShape(s Shape, inUnion bool) string {
	switch t := s.(type) {
	case *PrimitiveShape:
		return withNull(t.Kind.String(), t.Null && !inUnion)

	case *ArrayShape:
		elem := renderShape(t.Elem, false)
		// Parenthesize when the element's own rendering is a union or
		// nullable, so the [] binds unambiguously.
		if needsParens(t.Elem) {
			elem = "(" + elem + ")"
		}
		return withNull(elem+"[]", t.Null && !inUnion)

	case *ObjectShape:
		parts := make([]string, len(t.Fields))
		for i, f := range t.Fields {
			parts[i] = f.Name + ": " + renderShape(f.Value, false)
		}
		return withNull("{"+strings.Join(parts, "; ")+"}", t.Null && !inUnion)

	case *UnionShape:
		parts := make([]string, len(t.Members))
		for i, m := range t.Members {
			parts[i] = renderShape(m, true)
		}
		sort.Strings(parts)
		return withNull(strings.Join(parts, " | "), shapeNullable(t))

	default:
		return "Json"
	}
}

func needsParens(elem Shape) bool {
	if _, ok := elem.(*UnionShape); ok {
		return true
	}
	return shapeNullable(elem)
}

func withNull(rendered string, nullable bool) string {
	if nullable {
		return rendered + " | null"
	}
	return rendered
}
