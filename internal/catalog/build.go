package catalog

import (
	"fmt"

	pg_query "github.com/pganalyze/pg_query_go/v6"
)

// Build constructs a catalog from parsed statements. Statements that do
// not declare a modeled object kind (indexes, grants, DML, ...) are
// skipped. Source is a label for diagnostics, usually the file path;
// defaultSchema qualifies unqualified names (empty means "public").
func Build(stmts []*pg_query.RawStmt, source, defaultSchema string) (*Catalog, error) {
	cat := New(defaultSchema)
	if err := cat.Append(stmts, source); err != nil {
		return nil, err
	}
	return cat, nil
}

// Append adds the objects declared by stmts to an existing catalog.
func (c *Catalog) Append(stmts []*pg_query.RawStmt, source string) error {
	for _, raw := range stmts {
		if raw.Stmt == nil {
			continue
		}
		obj, err := objectFromStatement(raw, c.defaultSchema)
		if err != nil {
			return err
		}
		if obj == nil {
			continue
		}
		obj.Source = source
		if err := c.Add(obj); err != nil {
			return err
		}
	}
	return nil
}

func objectFromStatement(raw *pg_query.RawStmt, schema string) (*Object, error) {
	switch n := raw.Stmt.Node.(type) {
	case *pg_query.Node_CreateStmt:
		return tableFromCreate(n.CreateStmt, raw.StmtLocation, schema), nil
	case *pg_query.Node_CompositeTypeStmt:
		return compositeFromCreate(n.CompositeTypeStmt, raw.StmtLocation, schema), nil
	case *pg_query.Node_ViewStmt:
		return viewFromCreate(n.ViewStmt, raw.StmtLocation, schema), nil
	case *pg_query.Node_CreateFunctionStmt:
		return routineFromCreate(n.CreateFunctionStmt, raw.StmtLocation, schema)
	default:
		return nil, nil
	}
}

func tableFromCreate(stmt *pg_query.CreateStmt, loc int32, schema string) *Object {
	obj := &Object{
		Kind:     KindTable,
		ID:       identifierFromRangeVar(stmt.Relation, schema),
		Location: loc,
	}
	for _, elt := range stmt.TableElts {
		switch n := elt.Node.(type) {
		case *pg_query.Node_ColumnDef:
			obj.Columns = append(obj.Columns, columnFromDef(n.ColumnDef, schema))
		case *pg_query.Node_Constraint:
			applyTableConstraint(obj, n.Constraint, schema)
		}
	}
	return obj
}

func compositeFromCreate(stmt *pg_query.CompositeTypeStmt, loc int32, schema string) *Object {
	obj := &Object{
		Kind:     KindCompositeType,
		ID:       identifierFromRangeVar(stmt.Typevar, schema),
		Location: loc,
	}
	for _, elt := range stmt.Coldeflist {
		if def := elt.GetColumnDef(); def != nil {
			obj.Columns = append(obj.Columns, columnFromDef(def, schema))
		}
	}
	return obj
}

func viewFromCreate(stmt *pg_query.ViewStmt, loc int32, schema string) *Object {
	return &Object{
		Kind:     KindView,
		ID:       identifierFromRangeVar(stmt.View, schema),
		Query:    stmt.Query,
		Refs:     collectRelationRefs(stmt.Query, schema),
		Location: loc,
	}
}

func columnFromDef(def *pg_query.ColumnDef, schema string) Column {
	col := Column{
		Name:    def.Colname,
		Type:    IdentifierFromTypeName(def.TypeName, schema),
		NotNull: def.IsNotNull,
		Dims:    len(def.TypeName.GetArrayBounds()),
	}
	for _, cons := range def.Constraints {
		constraint := cons.GetConstraint()
		if constraint == nil {
			continue
		}
		switch constraint.Contype {
		case pg_query.ConstrType_CONSTR_NOTNULL, pg_query.ConstrType_CONSTR_PRIMARY:
			col.NotNull = true
		case pg_query.ConstrType_CONSTR_FOREIGN:
			if constraint.Pktable != nil {
				col.Refs = append(col.Refs, identifierFromRangeVar(constraint.Pktable, schema))
			}
		}
	}
	return col
}

// applyTableConstraint handles table-level constraints: a FOREIGN KEY is
// attached to the first named column's refs so the linker sees the edge.
func applyTableConstraint(obj *Object, cons *pg_query.Constraint, schema string) {
	switch cons.Contype {
	case pg_query.ConstrType_CONSTR_FOREIGN:
		if cons.Pktable == nil || len(cons.FkAttrs) == 0 {
			return
		}
		target := identifierFromRangeVar(cons.Pktable, schema)
		name := cons.FkAttrs[0].GetString_().GetSval()
		for i := range obj.Columns {
			if obj.Columns[i].Name == name {
				obj.Columns[i].Refs = append(obj.Columns[i].Refs, target)
				return
			}
		}
	case pg_query.ConstrType_CONSTR_PRIMARY:
		for _, key := range cons.Keys {
			name := key.GetString_().GetSval()
			for i := range obj.Columns {
				if obj.Columns[i].Name == name {
					obj.Columns[i].NotNull = true
				}
			}
		}
	}
}

func routineFromCreate(stmt *pg_query.CreateFunctionStmt, loc int32, schema string) (*Object, error) {
	obj := &Object{
		Kind:     KindRoutine,
		ID:       IdentifierFromNames(stmt.Funcname, schema),
		Location: loc,
	}
	for _, p := range stmt.Parameters {
		param := p.GetFunctionParameter()
		if param == nil {
			continue
		}
		switch param.Mode {
		case pg_query.FunctionParameterMode_FUNC_PARAM_OUT,
			pg_query.FunctionParameterMode_FUNC_PARAM_TABLE:
			obj.ReturnColumns = append(obj.ReturnColumns, Column{
				Name: param.Name,
				Type: IdentifierFromTypeName(param.ArgType, schema),
				Dims: len(param.ArgType.GetArrayBounds()),
			})
		default:
			obj.Params = append(obj.Params, Param{
				Name: param.Name,
				Type: IdentifierFromTypeName(param.ArgType, schema),
			})
		}
	}
	if stmt.ReturnType != nil {
		obj.ReturnType = IdentifierFromTypeName(stmt.ReturnType, schema)
		obj.ReturnsSet = stmt.ReturnType.Setof
	}
	query, err := routineBody(stmt)
	if err != nil {
		return nil, fmt.Errorf("routine %q: %w", obj.ID, err)
	}
	obj.Query = query
	if obj.Query != nil {
		obj.Refs = collectRelationRefs(obj.Query, schema)
	}
	return obj, nil
}

// routineBody extracts the final SELECT of a LANGUAGE sql routine body,
// either from the new-style BEGIN ATOMIC form or by reparsing the AS
// string. Routines in other languages have no inferable body.
func routineBody(stmt *pg_query.CreateFunctionStmt) (*pg_query.Node, error) {
	if stmt.SqlBody != nil {
		return lastSelect(stmt.SqlBody), nil
	}

	var language, body string
	for _, opt := range stmt.Options {
		def := opt.GetDefElem()
		if def == nil {
			continue
		}
		switch def.Defname {
		case "language":
			language = def.Arg.GetString_().GetSval()
		case "as":
			if list := def.Arg.GetList(); list != nil && len(list.Items) > 0 {
				body = list.Items[0].GetString_().GetSval()
			}
		}
	}
	if language != "sql" || body == "" {
		return nil, nil
	}

	parsed, err := pg_query.Parse(body)
	if err != nil {
		return nil, fmt.Errorf("parse body: %w", err)
	}
	if len(parsed.Stmts) == 0 {
		return nil, nil
	}
	last := parsed.Stmts[len(parsed.Stmts)-1].Stmt
	if last.GetSelectStmt() == nil {
		return nil, nil
	}
	return last, nil
}

// lastSelect unwraps a BEGIN ATOMIC body down to its final SELECT.
func lastSelect(node *pg_query.Node) *pg_query.Node {
	switch n := node.Node.(type) {
	case *pg_query.Node_ReturnStmt:
		if n.ReturnStmt.Returnval != nil && n.ReturnStmt.Returnval.GetSelectStmt() != nil {
			return n.ReturnStmt.Returnval
		}
	case *pg_query.Node_List:
		items := n.List.Items
		for i := len(items) - 1; i >= 0; i-- {
			if sel := lastSelect(items[i]); sel != nil {
				return sel
			}
		}
	case *pg_query.Node_SelectStmt:
		return node
	}
	return nil
}
