// AST walkers that collect relation references from query trees.
package catalog

import (
	pg_query "github.com/pganalyze/pg_query_go/v6"
)

type refCollector struct {
	seen   map[Identifier]bool
	refs   []Identifier
	schema string // default for unqualified names
	// CTE names bound in the statement; unqualified references to them
	// are statement-local, not catalog references.
	ctes map[string]bool
}

// collectRelationRefs walks a query tree and returns the deduplicated
// identifiers of relations referenced in FROM clauses, joins, subqueries
// and CTE bodies, in first-reference order.
func collectRelationRefs(node *pg_query.Node, schema string) []Identifier {
	c := &refCollector{
		seen:   make(map[Identifier]bool),
		schema: schema,
		ctes:   make(map[string]bool),
	}
	c.walkNode(node)
	return c.refs
}

func (c *refCollector) add(rv *pg_query.RangeVar) {
	if rv == nil || rv.Relname == "" {
		return
	}
	if rv.Schemaname == "" && c.ctes[rv.Relname] {
		return
	}
	id := identifierFromRangeVar(rv, c.schema)
	if c.seen[id] {
		return
	}
	c.seen[id] = true
	c.refs = append(c.refs, id)
}

func (c *refCollector) walkNode(node *pg_query.Node) {
	if node == nil {
		return
	}
	switch n := node.Node.(type) {
	case *pg_query.Node_SelectStmt:
		c.walkSelect(n.SelectStmt)
	case *pg_query.Node_InsertStmt:
		c.add(n.InsertStmt.Relation)
		c.walkNode(n.InsertStmt.SelectStmt)
	case *pg_query.Node_UpdateStmt:
		c.add(n.UpdateStmt.Relation)
		for _, from := range n.UpdateStmt.FromClause {
			c.walkFrom(from)
		}
	case *pg_query.Node_DeleteStmt:
		c.add(n.DeleteStmt.Relation)
	}
}

func (c *refCollector) walkSelect(sel *pg_query.SelectStmt) {
	if sel == nil {
		return
	}

	// CTE names bind before anything else in the statement uses them.
	if sel.WithClause != nil {
		for _, cte := range sel.WithClause.Ctes {
			if ct := cte.GetCommonTableExpr(); ct != nil {
				c.walkNode(ct.Ctequery)
				c.ctes[ct.Ctename] = true
			}
		}
	}

	// UNION/INTERSECT/EXCEPT arms.
	c.walkSelect(sel.Larg)
	c.walkSelect(sel.Rarg)

	for _, from := range sel.FromClause {
		c.walkFrom(from)
	}
	c.walkExpr(sel.WhereClause)
	c.walkExpr(sel.HavingClause)
	for _, target := range sel.TargetList {
		c.walkExpr(target)
	}
}

func (c *refCollector) walkFrom(node *pg_query.Node) {
	if node == nil {
		return
	}
	switch n := node.Node.(type) {
	case *pg_query.Node_RangeVar:
		c.add(n.RangeVar)
	case *pg_query.Node_JoinExpr:
		c.walkFrom(n.JoinExpr.Larg)
		c.walkFrom(n.JoinExpr.Rarg)
		c.walkExpr(n.JoinExpr.Quals)
	case *pg_query.Node_RangeSubselect:
		c.walkNode(n.RangeSubselect.Subquery)
	}
}

func (c *refCollector) walkExpr(node *pg_query.Node) {
	if node == nil {
		return
	}
	switch n := node.Node.(type) {
	case *pg_query.Node_SubLink:
		c.walkNode(n.SubLink.Subselect)
	case *pg_query.Node_BoolExpr:
		for _, arg := range n.BoolExpr.Args {
			c.walkExpr(arg)
		}
	case *pg_query.Node_AExpr:
		c.walkExpr(n.AExpr.Lexpr)
		c.walkExpr(n.AExpr.Rexpr)
	case *pg_query.Node_ResTarget:
		c.walkExpr(n.ResTarget.Val)
	case *pg_query.Node_FuncCall:
		for _, arg := range n.FuncCall.Args {
			c.walkExpr(arg)
		}
	case *pg_query.Node_TypeCast:
		c.walkExpr(n.TypeCast.Arg)
	case *pg_query.Node_CaseExpr:
		for _, when := range n.CaseExpr.Args {
			if w := when.GetCaseWhen(); w != nil {
				c.walkExpr(w.Expr)
				c.walkExpr(w.Result)
			}
		}
		c.walkExpr(n.CaseExpr.Defresult)
	case *pg_query.Node_CoalesceExpr:
		for _, arg := range n.CoalesceExpr.Args {
			c.walkExpr(arg)
		}
	}
}
