// Package sqlemit walks a renderplan.RenderPlan DAG and produces the final
// SQL text a ClickHouse-dialect engine can execute, plus the bound
// parameters (named and literal) and the output projection's column names
// (spec.md §4.5).
package sqlemit

import (
	"strings"

	"github.com/cyphergraph/cyphergraph/internal/compileerr"
	"github.com/cyphergraph/cyphergraph/internal/planner"
	"github.com/cyphergraph/cyphergraph/internal/renderplan"
)

// ColumnDecl names one column of the compiled query's result row. Type is
// left blank until a downstream consumer with live column-type information
// (e.g. an engine DESCRIBE) fills it in; the compiler itself only knows
// names (spec.md §6 "projection_schema: [(column_name, declared_type)]").
type ColumnDecl struct {
	Name string
	Type string
}

// CompileResult is the sqlemit package's final output (spec.md §4.5,
// §6 query-request surface response shape).
type CompileResult struct {
	SQLText          string
	ProjectionSchema []ColumnDecl
	Parameters       []BoundParameter
	Warnings         []string
}

type emitter struct {
	ctx     *planner.PlanCtx
	binder  *Binder
	rp      *renderplan.RenderPlan
	byName  map[string]*renderplan.CTE
	warning []string
}

// Emit walks rp's CTE DAG and produces the final SQL text.
func Emit(ctx *planner.PlanCtx, rp *renderplan.RenderPlan) (*CompileResult, error) {
	e := &emitter{ctx: ctx, binder: NewBinder(), rp: rp, byName: make(map[string]*renderplan.CTE, len(rp.CTEs))}
	for i := range rp.CTEs {
		e.byName[rp.CTEs[i].Name] = &rp.CTEs[i]
	}

	recursive := false
	parts := make([]string, 0, len(rp.CTEs))
	for _, cte := range rp.CTEs {
		if _, ok := cte.Body.(renderplan.RecursiveBody); ok {
			recursive = true
		}
		body, err := e.renderBody(cte)
		if err != nil {
			return nil, err
		}
		parts = append(parts, cte.Name+" AS (\n"+body+"\n)")
	}

	outerCols, schema, err := e.renderOuterSelect()
	if err != nil {
		return nil, err
	}

	var b strings.Builder
	if len(parts) > 0 {
		if recursive {
			b.WriteString("WITH RECURSIVE ")
		} else {
			b.WriteString("WITH ")
		}
		b.WriteString(strings.Join(parts, ",\n"))
		b.WriteString("\n")
	}
	b.WriteString("SELECT " + strings.Join(outerCols, ", ") + " FROM " + e.rp.Root)

	return &CompileResult{
		SQLText:          b.String(),
		ProjectionSchema: schema,
		Parameters:       e.binder.Parameters(),
		Warnings:         e.warning,
	}, nil
}

// renderBody dispatches one CTE's body to its dedicated renderer. The
// CTE's own name is threaded through for RecursiveBody, whose recursive
// step self-joins against it.
func (e *emitter) renderBody(cte renderplan.CTE) (string, error) {
	switch body := cte.Body.(type) {
	case renderplan.ScanBody:
		return e.renderScanBody(body)
	case renderplan.JoinBody:
		return e.renderJoinBody(body)
	case renderplan.FilterBody:
		return e.renderFilterBody(body)
	case renderplan.ProjectBody:
		return e.renderProjectBody(body)
	case renderplan.OrderByBody:
		return e.renderOrderByBody(body)
	case renderplan.SliceBody:
		return e.renderSliceBody(body)
	case renderplan.UnionBody:
		return e.renderUnionBody(body)
	case renderplan.CrossJoinBody:
		return e.renderCrossJoinBody(body)
	case renderplan.RecursiveBody:
		return e.renderRecursiveBody(cte.Name, body)
	case renderplan.EnumeratedPathBody:
		return e.renderEnumeratedPathBody(body)
	case renderplan.EmptyBody:
		return e.renderEmptyBody()
	default:
		return "", compileerr.NewRenderError("no renderer registered for CTE body kind", nil)
	}
}

// renderOuterSelect builds the final client-facing SELECT list from
// rp.FinalItems: a bare graph-variable item expands to its
// label/id/properties triple (spec.md §4.5), everything else reselects the
// already-computed flattened column under its output name.
func (e *emitter) renderOuterSelect() ([]string, []ColumnDecl, error) {
	if len(e.rp.FinalItems) == 0 {
		return []string{"*"}, nil, nil
	}

	var cols []string
	var schema []ColumnDecl
	for _, item := range e.rp.FinalItems {
		if name, ok := bareVariable(item); ok {
			outName := item.Alias
			if outName == "" {
				outName = name
			}
			if _, isGraph := e.ctx.Tables[name]; isGraph {
				triple := e.finalEntityTriple(name, outName)
				cols = append(cols, triple...)
				schema = append(schema,
					ColumnDecl{Name: outName + "_label"},
					ColumnDecl{Name: outName + "_id"},
					ColumnDecl{Name: outName + "_properties"})
				continue
			}
			cols = append(cols, name+" AS "+outName)
			schema = append(schema, ColumnDecl{Name: outName})
			continue
		}

		ec := &exprCtx{ctx: e.ctx, binder: e.binder, qualified: false}
		rendered, err := ec.renderExpr(item.Expr)
		if err != nil {
			return nil, nil, err
		}
		outName := item.Alias
		if outName == "" {
			outName = defaultColumnName(item.Expr)
		}
		cols = append(cols, rendered+" AS "+outName)
		schema = append(schema, ColumnDecl{Name: outName})
	}
	return cols, schema, nil
}
