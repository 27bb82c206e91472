// Structural types for JSON-producing expressions.
package analyze

import (
	"context"
	"encoding/binary"
	"sort"

	"github.com/cespare/xxhash/v2"
	pg_query "github.com/pganalyze/pg_query_go/v6"
)

// Shape is the structural type of a JSON-producing expression: a
// primitive, an array, an object, or a union of those. Unions never nest
// directly inside unions.
type Shape interface {
	isShape()
}

// PrimitiveShape is a scalar JSON value.
type PrimitiveShape struct {
	Kind PrimitiveKind
	Null bool
}

// ArrayShape is a homogeneous JSON array.
type ArrayShape struct {
	Elem Shape
	Null bool
}

// ObjectField is one key of an ObjectShape. Field order is declaration
// order; identity ignores it.
type ObjectField struct {
	Name  string
	Value Shape
}

// ObjectShape is a JSON object with a fixed key set.
type ObjectShape struct {
	Fields []ObjectField
	Null   bool
}

// UnionShape is a set of alternative shapes. Members exclude unions;
// membership is structural, by content hash.
type UnionShape struct {
	Members []Shape
}

func (*PrimitiveShape) isShape() {}
func (*ArrayShape) isShape()     {}
func (*ObjectShape) isShape()    {}
func (*UnionShape) isShape()     {}

const (
	hashTagPrimitive = iota + 1
	hashTagArray
	hashTagObject
	hashTagUnion
)

// HashShape computes the canonical content hash used for structural
// identity. Object fields are hashed in sorted name order so declaration
// order never affects identity; union member hashes are sorted before
// combining so member order never does either.
func HashShape(s Shape) uint64 {
	d := xxhash.New()
	writeShape(d, s)
	return d.Sum64()
}

func writeShape(d *xxhash.Digest, s Shape) {
	var buf [8]byte
	writeByte := func(b byte) {
		buf[0] = b
		d.Write(buf[:1])
	}
	writeUint64 := func(v uint64) {
		binary.LittleEndian.PutUint64(buf[:], v)
		d.Write(buf[:])
	}

	switch t := s.(type) {
	case *PrimitiveShape:
		writeByte(hashTagPrimitive)
		writeByte(byte(t.Kind))
		writeByte(boolByte(t.Null))
	case *ArrayShape:
		writeByte(hashTagArray)
		writeByte(boolByte(t.Null))
		writeShape(d, t.Elem)
	case *ObjectShape:
		writeByte(hashTagObject)
		writeByte(boolByte(t.Null))
		fields := make([]ObjectField, len(t.Fields))
		copy(fields, t.Fields)
		sort.Slice(fields, func(i, j int) bool { return fields[i].Name < fields[j].Name })
		for _, f := range fields {
			d.WriteString(f.Name)
			writeByte(0)
			writeShape(d, f.Value)
		}
	case *UnionShape:
		writeByte(hashTagUnion)
		hashes := make([]uint64, len(t.Members))
		for i, m := range t.Members {
			hashes[i] = HashShape(m)
		}
		sort.Slice(hashes, func(i, j int) bool { return hashes[i] < hashes[j] })
		for _, h := range hashes {
			writeUint64(h)
		}
	}
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}

// MakeUnion combines two shapes into one, flattening nested unions one
// level and deduplicating members by content hash. Two structurally
// identical shapes collapse to a single member regardless of which code
// path produced them.
func MakeUnion(a, b Shape) Shape {
	seen := make(map[uint64]bool)
	var members []Shape
	add := func(s Shape) {
		h := HashShape(s)
		if seen[h] {
			return
		}
		seen[h] = true
		members = append(members, s)
	}
	for _, s := range []Shape{a, b} {
		if u, ok := s.(*UnionShape); ok {
			for _, m := range u.Members {
				add(m)
			}
			continue
		}
		add(s)
	}
	if len(members) == 1 {
		return members[0]
	}
	return &UnionShape{Members: members}
}

// shapeNullable reports whether a shape can be JSON null at its outer
// level. A union is nullable when any member is.
func shapeNullable(s Shape) bool {
	switch t := s.(type) {
	case *PrimitiveShape:
		return t.Null
	case *ArrayShape:
		return t.Null
	case *ObjectShape:
		return t.Null
	case *UnionShape:
		for _, m := range t.Members {
			if shapeNullable(m) {
				return true
			}
		}
	}
	return false
}

// fieldShape lifts a field's scalar classification into a structural
// shape, boxing it in one array wrapper per dimension. Nullability lands
// on the outermost peeled level only. Unknown types degrade to opaque
// JSON after a type-name lookup confirms they are not classifiable.
func (s *Scope) fieldShape(ctx context.Context, f Field) (Shape, error) {
	if f.JSON != nil {
		return f.JSON, nil
	}

	kind, ok := ClassifyOID(f.TypeOID)
	if !ok {
		kind = KindJSON
		if f.TypeOID != 0 {
			// User-defined composites and domains from non-system
			// schemas stay opaque; the lookup is still made so a
			// genuinely unresolvable OID surfaces.
			if _, err := s.typeName(ctx, f.TypeOID); err != nil {
				return nil, &UnknownTypeError{OID: f.TypeOID}
			}
		}
	}

	var shape Shape = &PrimitiveShape{Kind: kind, Null: f.Nullable && f.Dims == 0}
	for i := 0; i < f.Dims; i++ {
		outermost := i == f.Dims-1
		shape = &ArrayShape{Elem: shape, Null: outermost && f.Nullable}
	}
	return shape, nil
}

// buildObjectShape assembles the object shape for a
// json_build_object-style call. Every key must be a literal string; a
// non-literal key degrades the whole expression to opaque JSON. That is
// a degrade, not an error: JSON's type is allowed to be imprecise.
func (s *Scope) buildObjectShape(ctx context.Context, args []*pg_query.Node, unique map[string]Field) (Shape, error) {
	obj := &ObjectShape{}
	byName := make(map[string]int)

	for i := 0; i+1 < len(args); i += 2 {
		key, ok := literalString(args[i])
		if !ok {
			return &PrimitiveShape{Kind: KindJSON}, nil
		}

		value, err := s.valueShape(ctx, args[i+1], unique)
		if err != nil {
			return nil, err
		}
		if at, exists := byName[key]; exists {
			obj.Fields[at].Value = value
			continue
		}
		byName[key] = len(obj.Fields)
		obj.Fields = append(obj.Fields, ObjectField{Name: key, Value: value})
	}
	return obj, nil
}

// valueShape infers one object value sub-expression, falling back to
// scalar classification when it is not itself JSON-shaped, and to opaque
// JSON when it cannot be inferred at all.
func (s *Scope) valueShape(ctx context.Context, node *pg_query.Node, unique map[string]Field) (Shape, error) {
	fields, err := s.inferExpr(ctx, node, unique)
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return &PrimitiveShape{Kind: KindJSON}, nil
	}
	return s.fieldShape(ctx, fields[0])
}

func literalString(node *pg_query.Node) (string, bool) {
	c := node.GetAConst()
	if c == nil || c.Isnull {
		return "", false
	}
	sval, ok := c.Val.(*pg_query.A_Const_Sval)
	if !ok {
		return "", false
	}
	return sval.Sval.GetSval(), true
}
