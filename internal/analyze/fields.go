package analyze

// Field is one named output of a relation or expression. Dims is the
// array depth of the type; JSON carries the structural shape when the
// expression is JSON-producing.
type Field struct {
	Name     string
	TypeOID  uint32
	Nullable bool
	Dims     int
	JSON     Shape
}

// RelKind distinguishes what a FROM-clause entry is bound to.
type RelKind int

const (
	RelTable RelKind = iota
	RelView
	RelCte
	RelSubquery
)

func (k RelKind) String() string {
	switch k {
	case RelTable:
		return "table"
	case RelView:
		return "view"
	case RelCte:
		return "cte"
	default:
		return "subquery"
	}
}

// RelationBinding is the ordered set of fields one FROM-clause entry
// exposes under its reference name.
type RelationBinding struct {
	Kind   RelKind
	Fields []Field
}

// Field returns the named field, if the binding exposes it.
func (b *RelationBinding) Field(name string) (Field, bool) {
	for _, f := range b.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// renameFields applies column aliases positionally: the Nth declared
// field gets the Nth alias, regardless of its real name. Fields beyond
// the alias list keep their names.
func renameFields(fields []Field, aliases []string) []Field {
	if len(aliases) == 0 {
		return fields
	}
	out := make([]Field, len(fields))
	copy(out, fields)
	for i, alias := range aliases {
		if i >= len(out) {
			break
		}
		out[i].Name = alias
	}
	return out
}
