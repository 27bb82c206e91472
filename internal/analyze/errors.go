package analyze

import (
	"fmt"

	"pgshape/internal/catalog"
)

// RelationNotFoundError reports a FROM-clause identifier that resolves
// neither to a CTE in scope nor to a known relation.
type RelationNotFoundError struct {
	Rel      catalog.Identifier
	Location int32
}

func (e *RelationNotFoundError) Error() string {
	return fmt.Sprintf("relation %q does not exist (at offset %d)", e.Rel, e.Location)
}

// UnknownTypeError reports a type identifier or OID that could not be
// resolved during inference.
type UnknownTypeError struct {
	Type     catalog.Identifier
	OID      uint32
	Location int32
}

func (e *UnknownTypeError) Error() string {
	if e.Type.Name != "" {
		return fmt.Sprintf("unknown type %q (at offset %d)", e.Type, e.Location)
	}
	return fmt.Sprintf("unknown type oid %d (at offset %d)", e.OID, e.Location)
}

// UnsupportedConstructError reports a recognized but unmodeled SQL shape.
// It is fatal for the single object being analyzed, never for the run.
type UnsupportedConstructError struct {
	Construct string
	Location  int32
}

func (e *UnsupportedConstructError) Error() string {
	return fmt.Sprintf("unsupported construct: %s (at offset %d)", e.Construct, e.Location)
}

func unsupported(construct string, loc int32) error {
	return &UnsupportedConstructError{Construct: construct, Location: loc}
}
