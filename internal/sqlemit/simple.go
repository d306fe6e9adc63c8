package sqlemit

import (
	"strings"

	"github.com/cyphergraph/cyphergraph/internal/planner"
	"github.com/cyphergraph/cyphergraph/internal/renderplan"
)

func (e *emitter) renderFilterBody(body renderplan.FilterBody) (string, error) {
	ec := &exprCtx{ctx: e.ctx, binder: e.binder, qualified: false}
	pred, err := ec.renderExpr(body.Pred)
	if err != nil {
		return "", err
	}
	return "SELECT * FROM " + body.Source + " WHERE " + pred, nil
}

func (e *emitter) renderOrderByBody(body renderplan.OrderByBody) (string, error) {
	ec := &exprCtx{ctx: e.ctx, binder: e.binder, qualified: false}
	terms := make([]string, 0, len(body.Items))
	for _, item := range body.Items {
		s, err := ec.renderExpr(item.Expr)
		if err != nil {
			return "", err
		}
		if item.Descending {
			s += " DESC"
		}
		terms = append(terms, s)
	}
	q := "SELECT * FROM " + body.Source
	if len(terms) > 0 {
		q += " ORDER BY " + strings.Join(terms, ", ")
	}
	return q, nil
}

func (e *emitter) renderSliceBody(body renderplan.SliceBody) (string, error) {
	ec := &exprCtx{ctx: e.ctx, binder: e.binder, qualified: false}
	q := "SELECT * FROM " + body.Source
	if body.Limit != nil {
		limit, err := ec.renderExpr(body.Limit)
		if err != nil {
			return "", err
		}
		q += " LIMIT " + limit
	}
	if body.Skip != nil {
		skip, err := ec.renderExpr(body.Skip)
		if err != nil {
			return "", err
		}
		q += " OFFSET " + skip
	}
	return q, nil
}

func (e *emitter) renderUnionBody(body renderplan.UnionBody) (string, error) {
	op := " UNION ALL "
	if body.Kind == planner.UnionDistinct {
		op = " UNION DISTINCT "
	}
	parts := make([]string, len(body.Members))
	for i, m := range body.Members {
		parts[i] = "SELECT * FROM " + m
	}
	return strings.Join(parts, op), nil
}

// renderCrossJoinBody cross-joins every member with no ON predicate
// (spec.md §9 "disconnected comma patterns"); any correlation across
// members already lives in a downstream FilterBody reading the flattened
// output of this CTE.
func (e *emitter) renderCrossJoinBody(body renderplan.CrossJoinBody) (string, error) {
	var b strings.Builder
	b.WriteString("SELECT * FROM " + body.Members[0])
	for _, m := range body.Members[1:] {
		b.WriteString(" CROSS JOIN " + m)
	}
	return b.String(), nil
}

func (e *emitter) renderEmptyBody() (string, error) {
	return "SELECT 1 WHERE 1 = 0", nil
}
