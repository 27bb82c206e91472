// Target-list expression type inference.
package analyze

import (
	"context"
	"fmt"
	"strings"

	pg_query "github.com/pganalyze/pg_query_go/v6"

	"pgshape/internal/catalog"
)

// InferStatement infers the result fields of a top-level statement.
// Only SELECT statements are modeled.
func (s *Scope) InferStatement(ctx context.Context, node *pg_query.Node) ([]Field, error) {
	sel := node.GetSelectStmt()
	if sel == nil {
		return nil, unsupported(nodeKindName(node), 0)
	}
	return s.InferSelect(ctx, sel)
}

// InferSelect resolves the statement's WITH and FROM clauses into the
// scope, then infers the target list. The whole FROM tree must be bound
// before any target-list inference begins.
func (s *Scope) InferSelect(ctx context.Context, sel *pg_query.SelectStmt) ([]Field, error) {
	if sel.Op != pg_query.SetOperation_SETOP_NONE {
		return nil, unsupported("set operation", 0)
	}
	if len(sel.ValuesLists) > 0 {
		return nil, unsupported("VALUES list", 0)
	}
	if err := s.resolveWith(ctx, sel.WithClause); err != nil {
		return nil, err
	}
	if err := s.resolveFrom(ctx, sel.FromClause); err != nil {
		return nil, err
	}
	return s.inferTargetList(ctx, sel.TargetList)
}

// inferTargetList processes each selected item. An explicit alias forces
// the expression into exactly one named output column; otherwise all
// inferred fields are spliced in, which is what makes star expansion and
// whole-row references work.
func (s *Scope) inferTargetList(ctx context.Context, targets []*pg_query.Node) ([]Field, error) {
	unique := s.uniqueFields()

	var out []Field
	for _, target := range targets {
		rt := target.GetResTarget()
		if rt == nil {
			return nil, unsupported(nodeKindName(target), 0)
		}
		if len(rt.Indirection) > 0 || rt.Val.GetAIndirection() != nil {
			return nil, unsupported("indirection", rt.Location)
		}

		fields, err := s.inferExpr(ctx, rt.Val, unique)
		if err != nil {
			return nil, err
		}
		if len(fields) == 0 {
			return nil, unsupported(describeExpr(rt.Val), rt.Location)
		}
		if rt.Name != "" {
			field := fields[0]
			field.Name = rt.Name
			out = append(out, field)
			continue
		}
		out = append(out, fields...)
	}
	return out, nil
}

// inferExpr computes the fields an expression produces. A nil result
// with a nil error means the expression kind is not modeled; the caller
// turns that into an UnsupportedConstructError with the right location.
func (s *Scope) inferExpr(ctx context.Context, node *pg_query.Node, unique map[string]Field) ([]Field, error) {
	if node == nil {
		return nil, nil
	}
	switch n := node.Node.(type) {
	case *pg_query.Node_ColumnRef:
		return s.inferColumnRef(n.ColumnRef, unique)
	case *pg_query.Node_AConst:
		return []Field{constField(n.AConst)}, nil
	case *pg_query.Node_TypeCast:
		return s.inferTypeCast(ctx, n.TypeCast, unique)
	case *pg_query.Node_FuncCall:
		return s.inferFuncCall(ctx, n.FuncCall, unique)
	case *pg_query.Node_CaseExpr:
		return s.inferCase(ctx, n.CaseExpr, unique)
	case *pg_query.Node_CoalesceExpr:
		return s.inferCoalesce(ctx, n.CoalesceExpr, unique)
	case *pg_query.Node_SubLink:
		return s.inferSubLink(ctx, n.SubLink)
	case *pg_query.Node_BoolExpr:
		return []Field{{Name: "?column?", TypeOID: OidBool}}, nil
	case *pg_query.Node_NullTest:
		return []Field{{Name: "?column?", TypeOID: OidBool}}, nil
	case *pg_query.Node_AExpr:
		return s.inferAExpr(ctx, n.AExpr, unique)
	default:
		return nil, nil
	}
}

// inferColumnRef resolves a column reference through the unique-fields
// index, a qualified relation binding, or as a whole-row reference.
// An ambiguous or unknown name yields no fields rather than an error
// here; the target-list level reports it.
func (s *Scope) inferColumnRef(cr *pg_query.ColumnRef, unique map[string]Field) ([]Field, error) {
	parts := cr.Fields
	switch len(parts) {
	case 1:
		if parts[0].GetAStar() != nil {
			return s.allFields(), nil
		}
		name := parts[0].GetString_().GetSval()
		if f, ok := unique[name]; ok {
			return []Field{f}, nil
		}
		// Whole-row reference: the bare name matches a bound relation.
		if binding, ok := s.binding(name); ok {
			return binding.Fields, nil
		}
		return nil, nil
	case 2:
		rel := parts[0].GetString_().GetSval()
		binding, ok := s.binding(rel)
		if !ok {
			return nil, nil
		}
		if parts[1].GetAStar() != nil {
			return binding.Fields, nil
		}
		col := parts[1].GetString_().GetSval()
		if f, ok := binding.Field(col); ok {
			return []Field{f}, nil
		}
		return nil, nil
	default:
		return nil, nil
	}
}

func constField(c *pg_query.A_Const) Field {
	f := Field{Name: "?column?"}
	if c.Isnull {
		f.TypeOID = OidText
		f.Nullable = true
		return f
	}
	switch c.Val.(type) {
	case *pg_query.A_Const_Ival:
		f.TypeOID = OidInt4
	case *pg_query.A_Const_Fval:
		f.TypeOID = OidNumeric
	case *pg_query.A_Const_Boolval:
		f.TypeOID = OidBool
	default:
		f.TypeOID = OidText
	}
	return f
}

// inferTypeCast classifies the cast's declared type. Types outside the
// built-in table degrade to opaque JSON; that is a documented imprecision,
// not an error.
func (s *Scope) inferTypeCast(ctx context.Context, cast *pg_query.TypeCast, unique map[string]Field) ([]Field, error) {
	inner, err := s.inferExpr(ctx, cast.Arg, unique)
	if err != nil {
		return nil, err
	}

	field := Field{Name: "?column?", Nullable: true}
	if len(inner) > 0 {
		field.Name = inner[0].Name
		field.Nullable = inner[0].Nullable
	}

	id := catalog.IdentifierFromTypeName(cast.TypeName, s.defaultSchema)
	oid, known := TypeOID(id, s.defaultSchema)
	if known {
		field.TypeOID = oid
	}
	field.Dims = len(cast.TypeName.GetArrayBounds())

	// A cast to json keeps the inner structural shape when there is one.
	if (oid == OidJSON || oid == OidJSONB) && len(inner) > 0 && inner[0].JSON != nil {
		field.JSON = inner[0].JSON
	}
	return []Field{field}, nil
}

func (s *Scope) inferFuncCall(ctx context.Context, fc *pg_query.FuncCall, unique map[string]Field) ([]Field, error) {
	id := catalog.IdentifierFromNames(fc.Funcname, s.defaultSchema)

	switch id.Name {
	case "json_build_object", "jsonb_build_object":
		shape, err := s.buildObjectShape(ctx, fc.Args, unique)
		if err != nil {
			return nil, err
		}
		oid := uint32(OidJSON)
		if id.Name == "jsonb_build_object" {
			oid = OidJSONB
		}
		return []Field{{Name: id.Name, TypeOID: oid, JSON: shape}}, nil

	case "json_agg", "jsonb_agg":
		oid := uint32(OidJSON)
		if id.Name == "jsonb_agg" {
			oid = OidJSONB
		}
		elem, err := s.argShape(ctx, fc.Args, unique)
		if err != nil {
			return nil, err
		}
		// Aggregate over zero rows is SQL NULL.
		return []Field{{
			Name:     id.Name,
			TypeOID:  oid,
			Nullable: true,
			JSON:     &ArrayShape{Elem: elem, Null: true},
		}}, nil

	case "to_json", "to_jsonb":
		oid := uint32(OidJSON)
		if id.Name == "to_jsonb" {
			oid = OidJSONB
		}
		elem, err := s.argShape(ctx, fc.Args, unique)
		if err != nil {
			return nil, err
		}
		return []Field{{Name: id.Name, TypeOID: oid, JSON: elem}}, nil

	case "count":
		return []Field{{Name: "count", TypeOID: OidInt8}}, nil
	case "sum", "avg", "min", "max":
		return []Field{{Name: id.Name, TypeOID: OidNumeric, Nullable: true}}, nil
	case "now":
		return []Field{{Name: "now", TypeOID: OidTimestamptz}}, nil
	case "lower", "upper", "trim", "concat":
		return []Field{{Name: id.Name, TypeOID: OidText, Nullable: true}}, nil
	case "length", "char_length":
		return []Field{{Name: id.Name, TypeOID: OidInt4, Nullable: true}}, nil
	}

	// Routines declared in the analyzed schema.
	if s.routines != nil {
		if routine, ok := s.routines.ResolveRoutine(id); ok {
			return s.routineResultField(routine), nil
		}
	}
	return nil, nil
}

// routineResultField maps a declared routine result to a single field in
// scalar call position. Column-list returns degrade to opaque JSON.
func (s *Scope) routineResultField(routine *catalog.Object) []Field {
	field := Field{Name: routine.ID.Name, Nullable: true}
	if len(routine.ReturnColumns) > 0 {
		return []Field{field}
	}
	if oid, ok := TypeOID(routine.ReturnType, s.defaultSchema); ok {
		field.TypeOID = oid
	}
	return []Field{field}
}

// argShape computes the structural shape of a single function argument,
// falling back to scalar classification when it is not JSON-shaped.
func (s *Scope) argShape(ctx context.Context, args []*pg_query.Node, unique map[string]Field) (Shape, error) {
	if len(args) == 0 {
		return &PrimitiveShape{Kind: KindJSON}, nil
	}
	fields, err := s.inferExpr(ctx, args[0], unique)
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return &PrimitiveShape{Kind: KindJSON}, nil
	}
	return s.fieldShape(ctx, fields[0])
}

// inferCase infers every branch result. When all branches are
// JSON-shaped the results merge into a union (structurally identical
// branches collapse to one member); otherwise the first branch's
// classification wins, with nullability widened by a missing ELSE.
func (s *Scope) inferCase(ctx context.Context, ce *pg_query.CaseExpr, unique map[string]Field) ([]Field, error) {
	var branches []Field
	for _, arg := range ce.Args {
		when := arg.GetCaseWhen()
		if when == nil {
			return nil, unsupported(nodeKindName(arg), ce.Location)
		}
		fields, err := s.inferExpr(ctx, when.Result, unique)
		if err != nil {
			return nil, err
		}
		if len(fields) == 0 {
			return nil, unsupported(describeExpr(when.Result), ce.Location)
		}
		branches = append(branches, fields[0])
	}
	noElse := ce.Defresult == nil
	if !noElse {
		fields, err := s.inferExpr(ctx, ce.Defresult, unique)
		if err != nil {
			return nil, err
		}
		if len(fields) == 0 {
			return nil, unsupported(describeExpr(ce.Defresult), ce.Location)
		}
		branches = append(branches, fields[0])
	}
	if len(branches) == 0 {
		return nil, nil
	}
	return []Field{s.mergeBranches(ctx, branches, noElse)}, nil
}

func (s *Scope) inferCoalesce(ctx context.Context, ce *pg_query.CoalesceExpr, unique map[string]Field) ([]Field, error) {
	var branches []Field
	for _, arg := range ce.Args {
		fields, err := s.inferExpr(ctx, arg, unique)
		if err != nil {
			return nil, err
		}
		if len(fields) == 0 {
			return nil, unsupported(describeExpr(arg), ce.Location)
		}
		branches = append(branches, fields[0])
	}
	if len(branches) == 0 {
		return nil, nil
	}
	// COALESCE is null only when every argument can be.
	nullable := true
	for _, b := range branches {
		if !b.Nullable {
			nullable = false
		}
	}
	merged := s.mergeBranches(ctx, branches, false)
	merged.Nullable = nullable
	return []Field{merged}, nil
}

// mergeBranches combines branch fields from CASE/COALESCE. All-JSON
// branches union their shapes with structural deduplication.
func (s *Scope) mergeBranches(ctx context.Context, branches []Field, forceNullable bool) Field {
	allJSON := true
	for _, b := range branches {
		if b.JSON == nil {
			allJSON = false
			break
		}
	}
	out := branches[0]
	out.Name = "?column?"
	if allJSON {
		shape := branches[0].JSON
		for _, b := range branches[1:] {
			shape = MakeUnion(shape, b.JSON)
		}
		out.JSON = shape
	}
	for _, b := range branches {
		if b.Nullable {
			out.Nullable = true
		}
	}
	if forceNullable {
		out.Nullable = true
	}
	return out
}

// inferSubLink handles scalar and EXISTS subqueries in expression
// position, each inferred in a forked scope.
func (s *Scope) inferSubLink(ctx context.Context, sl *pg_query.SubLink) ([]Field, error) {
	switch sl.SubLinkType {
	case pg_query.SubLinkType_EXISTS_SUBLINK:
		return []Field{{Name: "exists", TypeOID: OidBool}}, nil
	case pg_query.SubLinkType_EXPR_SUBLINK:
		sel := sl.Subselect.GetSelectStmt()
		if sel == nil {
			return nil, unsupported("non-SELECT subquery", sl.Location)
		}
		child := s.Fork()
		fields, err := child.InferSelect(ctx, sel)
		if err != nil {
			return nil, err
		}
		if len(fields) == 0 {
			return nil, nil
		}
		// Zero rows makes a scalar subquery NULL.
		field := fields[0]
		field.Nullable = true
		return []Field{field}, nil
	default:
		return nil, nil
	}
}

var comparisonOps = map[string]bool{
	"=": true, "<": true, ">": true, "<=": true, ">=": true,
	"<>": true, "!=": true, "~~": true, "!~~": true,
}

var arithmeticOps = map[string]bool{
	"+": true, "-": true, "*": true, "/": true, "%": true, "^": true,
}

func (s *Scope) inferAExpr(ctx context.Context, ae *pg_query.A_Expr, unique map[string]Field) ([]Field, error) {
	if len(ae.Name) != 1 {
		return nil, nil
	}
	op := ae.Name[0].GetString_().GetSval()
	switch {
	case comparisonOps[op] || ae.Kind != pg_query.A_Expr_Kind_AEXPR_OP:
		return []Field{{Name: "?column?", TypeOID: OidBool}}, nil
	case arithmeticOps[op]:
		return []Field{{Name: "?column?", TypeOID: OidNumeric, Nullable: true}}, nil
	case op == "||":
		// Concatenation takes the left operand's type.
		left, err := s.inferExpr(ctx, ae.Lexpr, unique)
		if err != nil || len(left) == 0 {
			return nil, err
		}
		field := left[0]
		field.Name = "?column?"
		return []Field{field}, nil
	default:
		return nil, nil
	}
}

// nodeKindName names an AST node kind for diagnostics, without the
// protobuf wrapper noise.
func nodeKindName(node *pg_query.Node) string {
	if node == nil || node.Node == nil {
		return "empty expression"
	}
	name := fmt.Sprintf("%T", node.Node)
	return strings.TrimPrefix(name, "*pg_query.Node_")
}

// describeExpr renders a human-readable description of an expression for
// error messages.
func describeExpr(node *pg_query.Node) string {
	if node == nil {
		return "empty expression"
	}
	switch n := node.Node.(type) {
	case *pg_query.Node_ColumnRef:
		var parts []string
		for _, f := range n.ColumnRef.Fields {
			if f.GetAStar() != nil {
				parts = append(parts, "*")
			} else {
				parts = append(parts, f.GetString_().GetSval())
			}
		}
		return fmt.Sprintf("column reference %q", strings.Join(parts, "."))
	case *pg_query.Node_FuncCall:
		return fmt.Sprintf("function call %q", catalog.IdentifierFromNames(n.FuncCall.Funcname, "").Name)
	default:
		return nodeKindName(node)
	}
}
