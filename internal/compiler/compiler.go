// Package compiler wires the pipeline stages together behind the single
// entry point a caller (the CLI, or any future transport) drives: parse,
// plan, analyze, join-infer, path-expand, render, emit (spec.md §4, §6).
package compiler

import (
	"context"

	"github.com/cyphergraph/cyphergraph/internal/analyzer"
	"github.com/cyphergraph/cyphergraph/internal/cache"
	"github.com/cyphergraph/cyphergraph/internal/catalog"
	"github.com/cyphergraph/cyphergraph/internal/compileerr"
	"github.com/cyphergraph/cyphergraph/internal/config"
	"github.com/cyphergraph/cyphergraph/internal/cypher"
	"github.com/cyphergraph/cyphergraph/internal/joininfer"
	"github.com/cyphergraph/cyphergraph/internal/obslog"
	"github.com/cyphergraph/cyphergraph/internal/pathexpand"
	"github.com/cyphergraph/cyphergraph/internal/planner"
	"github.com/cyphergraph/cyphergraph/internal/renderplan"
	"github.com/cyphergraph/cyphergraph/internal/sqlemit"
	"github.com/cyphergraph/cyphergraph/internal/telemetry"
)

// Request is the transport-agnostic query-request surface (spec.md §6).
type Request struct {
	QueryText        string
	Parameters       map[string]interface{}
	SchemaName       string
	ViewParameters   map[string]string
	MaxCTEDepth      int
	MaxInferredTypes int
}

// Response is the transport-agnostic query-response surface (spec.md §6).
// On compilation failure Compile returns a nil Response together with the
// error; structured detail is available from that error via errors.As
// against *compileerr.CompileError.
type Response struct {
	SQLText          string
	ProjectionSchema []sqlemit.ColumnDecl
	Parameters       []sqlemit.BoundParameter
	Warnings         []string
}

// Compiler is the orchestrating seam between a catalog, a compiled-SQL
// cache, and the compiler-wide settings. A single Compiler is safe for
// concurrent use: each Compile call owns its own planner.PlanCtx (spec.md
// §5 "PlanCtx is exclusively owned by the compilation that created it").
type Compiler struct {
	Schema *catalog.SchemaHandle
	Cache  *cache.QueryCache
	Config *config.Config
	Log    *obslog.Logger
	// Telemetry is optional; a nil Telemetry skips span/metric recording
	// entirely rather than recording against a no-op provider, so a caller
	// that never wired OpenTelemetry pays no per-stage overhead.
	Telemetry *telemetry.Recorder
}

// New builds a Compiler from already-constructed collaborators. A nil
// Cache disables caching; a nil Log discards stage timing output; a nil
// Recorder disables span/metric recording.
func New(schema *catalog.SchemaHandle, qc *cache.QueryCache, cfg *config.Config, log *obslog.Logger, rec *telemetry.Recorder) *Compiler {
	if log == nil {
		log = obslog.New(nil, obslog.LevelInfo, "text")
	}
	return &Compiler{Schema: schema, Cache: qc, Config: cfg, Log: log, Telemetry: rec}
}

// stage wraps one pipeline step with a debug log line and, when Telemetry
// is configured, a span plus duration/failure metrics. fn's error (if any)
// is what gets recorded before stage returns it unchanged.
func (c *Compiler) stage(ctx context.Context, name string, stageLog *obslog.Logger, fn func(context.Context) error) error {
	var done func(*error)
	if c.Telemetry != nil {
		ctx, done = c.Telemetry.StartStage(ctx, name)
	}
	err := fn(ctx)
	if done != nil {
		done(&err)
	}
	if err == nil {
		stageLog.Debug(name + " completed")
	}
	return err
}

// Compile runs req through the full pipeline and returns the compiled SQL
// (spec.md §4 end to end). A cache hit skips every stage past lookup; a
// miss populates the cache with the full Response before returning.
func (c *Compiler) Compile(ctx context.Context, req Request) (*Response, error) {
	schema := c.Schema.Load()

	maxCTEDepth := c.Config.Planner.MaxCTEDepth
	if req.MaxCTEDepth > 0 {
		maxCTEDepth = req.MaxCTEDepth
	}
	maxInferredTypes := c.Config.Planner.MaxInferredTypes
	if req.MaxInferredTypes > 0 {
		maxInferredTypes = req.MaxInferredTypes
	}

	var cacheKey uint64
	cacheable := c.Cache != nil
	if cacheable {
		cacheKey = c.Cache.Key(req.QueryText, req.Parameters, schema.Version)
		if cached, ok := c.Cache.Get(cacheKey); ok {
			if resp, ok := cached.(*Response); ok {
				return resp, nil
			}
		}
	}

	stageLog, done := c.Log.Stage("compile")
	defer done()

	planCtx := planner.NewPlanCtx(schema, maxInferredTypes, maxCTEDepth, c.Config.Planner.MaxHeterogeneousVLPLength)
	for k, v := range req.ViewParameters {
		planCtx.ViewParameterValues[k] = v
	}

	var q *cypher.Query
	if err := c.stage(ctx, "parse", stageLog, func(context.Context) error {
		var parseErr error
		q, parseErr = cypher.Parse(req.QueryText)
		if parseErr != nil {
			return asCompileError(parseErr, compileerr.KindParse)
		}
		return nil
	}); err != nil {
		return nil, err
	}

	var plan planner.LogicalPlan
	if err := c.stage(ctx, "plan", stageLog, func(context.Context) error {
		var buildErr error
		plan, buildErr = planner.Build(planCtx, q)
		return buildErr
	}); err != nil {
		return nil, err
	}

	if err := c.stage(ctx, "analyze", stageLog, func(context.Context) error {
		var analyzeErr error
		plan, analyzeErr = analyzer.Run(planCtx, plan, analyzer.DefaultPipeline())
		return analyzeErr
	}); err != nil {
		return nil, err
	}

	if err := c.stage(ctx, "join_infer", stageLog, func(context.Context) error {
		var inferErr error
		plan, inferErr = joininfer.Infer(planCtx, plan)
		return inferErr
	}); err != nil {
		return nil, err
	}

	if err := c.stage(ctx, "path_expand", stageLog, func(context.Context) error {
		var expandErr error
		plan, expandErr = pathexpand.Expand(planCtx, plan)
		return expandErr
	}); err != nil {
		return nil, err
	}

	var rp *renderplan.RenderPlan
	if err := c.stage(ctx, "render", stageLog, func(context.Context) error {
		var renderErr error
		rp, renderErr = renderplan.Build(planCtx, plan)
		return renderErr
	}); err != nil {
		return nil, err
	}

	var result *sqlemit.CompileResult
	if err := c.stage(ctx, "emit", stageLog, func(context.Context) error {
		var emitErr error
		result, emitErr = sqlemit.Emit(planCtx, rp)
		return emitErr
	}); err != nil {
		return nil, err
	}

	resp := &Response{
		SQLText:          result.SQLText,
		ProjectionSchema: result.ProjectionSchema,
		Parameters:       result.Parameters,
		Warnings:         result.Warnings,
	}

	if cacheable {
		c.Cache.Put(cacheKey, resp)
	}
	return resp, nil
}

// asCompileError wraps a *cypher.ParseError (the only error cypher.Parse
// returns) in the common *compileerr.CompileError shape so every pipeline
// stage's failure surfaces uniformly to the caller.
func asCompileError(err error, kind compileerr.Kind) error {
	pe, ok := err.(*cypher.ParseError)
	if !ok {
		return &compileerr.CompileError{Kind: kind, Message: err.Error(), Cause: err}
	}
	loc := compileerr.Location{Offset: pe.Location.Offset, Line: pe.Location.Line, Column: pe.Location.Column}
	return &compileerr.CompileError{Kind: kind, Message: pe.Message, Location: &loc, Cause: err}
}
