// FROM-clause resolution: base relations, joins, subqueries, and WITH
// clauses, via tag dispatch over the parse tree.
package analyze

import (
	"context"

	pg_query "github.com/pganalyze/pg_query_go/v6"

	"pgshape/internal/catalog"
)

// resolveFrom binds every FROM-clause entry into the scope. All entries
// must be bound before any target-list inference over the statement.
func (s *Scope) resolveFrom(ctx context.Context, fromClause []*pg_query.Node) error {
	for _, node := range fromClause {
		if err := s.resolveFromNode(ctx, node); err != nil {
			return err
		}
	}
	return nil
}

func (s *Scope) resolveFromNode(ctx context.Context, node *pg_query.Node) error {
	switch n := node.Node.(type) {
	case *pg_query.Node_RangeVar:
		return s.resolveRangeVar(ctx, n.RangeVar)
	case *pg_query.Node_JoinExpr:
		// Branches populate disjoint entries; both must complete before
		// inference proceeds.
		if err := s.resolveFromNode(ctx, n.JoinExpr.Larg); err != nil {
			return err
		}
		return s.resolveFromNode(ctx, n.JoinExpr.Rarg)
	case *pg_query.Node_RangeSubselect:
		return s.resolveSubselect(ctx, n.RangeSubselect)
	case *pg_query.Node_RangeFunction:
		return unsupported("function call in FROM", rangeFunctionLocation(n.RangeFunction))
	default:
		return unsupported(nodeKindName(node), 0)
	}
}

func rangeFunctionLocation(rf *pg_query.RangeFunction) int32 {
	if len(rf.Functions) > 0 {
		if list := rf.Functions[0].GetList(); list != nil && len(list.Items) > 0 {
			if fc := list.Items[0].GetFuncCall(); fc != nil {
				return fc.Location
			}
		}
	}
	return 0
}

// resolveRangeVar binds a base relation. Unqualified names check the
// CTE environment first; everything else goes through the metadata
// resolver. Column aliases rename fields positionally.
func (s *Scope) resolveRangeVar(ctx context.Context, rv *pg_query.RangeVar) error {
	name := rv.Relname
	var aliases []string
	if rv.Alias != nil {
		name = rv.Alias.Aliasname
		aliases = aliasColumnNames(rv.Alias)
	}

	if rv.Schemaname == "" {
		if cte, ok := s.ctes[rv.Relname]; ok {
			s.bind(name, &RelationBinding{
				Kind:   RelCte,
				Fields: renameFields(cte.Fields, aliases),
			})
			return nil
		}
	}

	schema := rv.Schemaname
	if schema == "" {
		schema = s.defaultSchema
	}
	id := catalog.NewIdentifier(schema, rv.Relname)
	binding, ok, err := s.resolver.ResolveRelation(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return &RelationNotFoundError{Rel: id, Location: rv.Location}
	}
	s.bind(name, &RelationBinding{
		Kind:   binding.Kind,
		Fields: renameFields(binding.Fields, aliases),
	})
	return nil
}

// resolveSubselect binds a parenthesized subquery. The alias is
// mandatory; the subquery's fields are inferred in a forked scope.
func (s *Scope) resolveSubselect(ctx context.Context, sub *pg_query.RangeSubselect) error {
	sel := sub.Subquery.GetSelectStmt()
	if sel == nil {
		return unsupported("non-SELECT subquery in FROM", 0)
	}
	if sub.Alias == nil || sub.Alias.Aliasname == "" {
		return unsupported("subquery without alias", 0)
	}

	child := s.Fork()
	fields, err := child.InferSelect(ctx, sel)
	if err != nil {
		return err
	}
	s.bind(sub.Alias.Aliasname, &RelationBinding{
		Kind:   RelSubquery,
		Fields: renameFields(fields, aliasColumnNames(sub.Alias)),
	})
	return nil
}

// resolveWith registers CTE bindings strictly in declaration order. Each
// body is inferred in its own fork, which by construction sees only the
// CTEs registered before it; a forward reference fails as an unknown
// relation.
func (s *Scope) resolveWith(ctx context.Context, with *pg_query.WithClause) error {
	if with == nil {
		return nil
	}
	for _, node := range with.Ctes {
		cte := node.GetCommonTableExpr()
		if cte == nil {
			return unsupported(nodeKindName(node), with.Location)
		}
		body := cte.Ctequery.GetSelectStmt()
		if body == nil {
			return unsupported("non-SELECT CTE body", cte.Location)
		}

		child := s.Fork()
		fields, err := child.InferSelect(ctx, body)
		if err != nil {
			return err
		}
		var aliases []string
		for _, col := range cte.Aliascolnames {
			aliases = append(aliases, col.GetString_().GetSval())
		}
		s.ctes[cte.Ctename] = &RelationBinding{
			Kind:   RelCte,
			Fields: renameFields(fields, aliases),
		}
	}
	return nil
}

func aliasColumnNames(alias *pg_query.Alias) []string {
	var names []string
	for _, col := range alias.Colnames {
		names = append(names, col.GetString_().GetSval())
	}
	return names
}
