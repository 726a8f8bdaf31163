package engine

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/chameleon-db/colops/pkg/engine/introspect"
	"github.com/chameleon-db/colops/pkg/engine/operation"
)

// Phase names a step of PerformOperation
type Phase string

const (
	PhaseValidating Phase = "validating"
	PhaseInspecting Phase = "inspecting"
	PhaseCoercing   Phase = "coercing"
	PhaseCounting   Phase = "counting"
	PhaseReverting  Phase = "reverting"
	PhaseMutating   Phase = "mutating"
	PhaseSampling   Phase = "sampling"
)

// Request describes one column operation
type Request struct {
	Ref    ColumnRef        `json:"ref" yaml:"ref"`
	Kind   operation.Kind   `json:"kind" yaml:"kind"`
	Params operation.Params `json:"params" yaml:"params"`
}

// Validate checks the request without touching storage
func (r Request) Validate() error {
	if strings.TrimSpace(r.Ref.Table) == "" {
		return &ValidationError{Field: "table", Value: r.Ref.Table, Message: "table name is required"}
	}
	if strings.TrimSpace(r.Ref.Column) == "" {
		return &ValidationError{Field: "column", Value: r.Ref.Column, Message: "column name is required"}
	}
	return r.Params.Validate(r.Kind)
}

// Result reports the outcome of an operation
type Result struct {
	OperationID  string
	Kind         operation.Kind
	Ref          ColumnRef
	AffectedRows int64
	OriginalType string
	FinalType    string
	// Coerced is set when the column was widened to TEXT during the call
	Coerced bool
	// Reverted is set when that widening was undone because nothing changed
	Reverted bool
	Duration time.Duration
}

// TypeChanged reports whether the column's declared type differs after the call
func (r *Result) TypeChanged() bool {
	return r.Coerced && !r.Reverted
}

// Engine applies column operations to tables reached through a Querier
type Engine struct {
	inspector *introspect.Inspector
	coercer   *TypeCoercer
	counter   *PredicateCounter
	executor  *Executor
	logger    *zap.Logger

	// Debug context
	Debug *DebugContext
}

// ============================================================
// ENGINE INITIALIZATION
// ============================================================

// New creates an engine over db. The caller owns db and closes it.
// Debug output follows COLOPS_DEBUG until WithDebug overrides it.
func New(db Querier) *Engine {
	debug := DebugContextFromEnv()
	executor := NewExecutor(db, debug)
	inspector := introspect.NewInspector(db)

	return &Engine{
		inspector: inspector,
		coercer:   NewTypeCoercer(inspector, executor),
		counter:   NewPredicateCounter(executor),
		executor:  executor,
		logger:    zap.NewNop(),
		Debug:     debug,
	}
}

// WithDebug returns the engine with debug output at level
func (e *Engine) WithDebug(level DebugLevel) *Engine {
	e.Debug = &DebugContext{
		Level:       level,
		Writer:      os.Stdout,
		ColorOutput: true,
	}
	e.executor.debug = e.Debug
	return e
}

// WithLogger returns the engine logging to logger; nil disables logging
func (e *Engine) WithLogger(logger *zap.Logger) *Engine {
	if logger == nil {
		e.logger = zap.NewNop()
		return e
	}
	e.logger = logger.Named("engine")
	return e
}

// Inspector exposes the catalog reader the engine uses
func (e *Engine) Inspector() *introspect.Inspector {
	return e.inspector
}

// ============================================================
// OPERATIONS
// ============================================================

// PerformOperation runs req: inspect the column, widen it to TEXT when its
// type is not text-like, count the rows that would change, then either revert
// the widening (nothing to change) or run the mutation.
//
// On failure after inspection the partial Result is returned with the error,
// so callers can see a column left as TEXT by a failed count or mutation.
func (e *Engine) PerformOperation(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()
	result := &Result{
		OperationID: uuid.NewString(),
		Kind:        req.Kind,
		Ref:         req.Ref,
	}

	log := e.logger.With(
		zap.String("operation_id", result.OperationID),
		zap.String("kind", req.Kind.String()),
		zap.String("table", req.Ref.Table),
		zap.String("column", req.Ref.Column),
	)

	log.Debug("operation started", zap.String("phase", string(PhaseValidating)))
	if err := req.Validate(); err != nil {
		log.Debug("request rejected", zap.Error(err))
		return nil, err
	}
	strategy, err := operation.For(req.Kind)
	if err != nil {
		return nil, err
	}

	log.Debug("reading column type", zap.String("phase", string(PhaseInspecting)))
	original, err := e.inspector.Describe(ctx, req.Ref.Table, req.Ref.Column)
	if err != nil {
		err = mapStorageError(err, PhaseInspecting, req.Ref, "")
		log.Error("inspection failed", zap.Error(err))
		return nil, err
	}
	result.OriginalType = original.Name
	result.FinalType = original.Name

	finish := func(err error, phase Phase) (*Result, error) {
		result.Duration = time.Since(start)
		if err != nil {
			err = mapStorageError(err, phase, req.Ref, original.SQL)
			log.Error("operation failed",
				zap.String("phase", string(phase)),
				zap.Bool("left_coerced", result.TypeChanged()),
				zap.Error(err),
			)
		}
		return result, err
	}

	log.Debug("checking column type", zap.String("phase", string(PhaseCoercing)), zap.String("type", original.Name))
	converted, err := e.coercer.Coerce(ctx, req.Ref, original)
	if err != nil {
		return finish(err, PhaseCoercing)
	}
	if converted {
		result.Coerced = true
		result.FinalType = "TEXT"
		log.Info("column widened to TEXT", zap.String("original_type", original.Name))
	}

	log.Debug("counting affected rows", zap.String("phase", string(PhaseCounting)))
	affected, err := e.counter.Count(ctx, strategy.Predicate(req.Ref, req.Params))
	if err != nil {
		return finish(err, PhaseCounting)
	}

	if affected == 0 {
		if err := e.revert(ctx, log, req.Ref, original, result); err != nil {
			return finish(err, PhaseReverting)
		}
		log.Info("no rows to change")
		return finish(nil, PhaseCounting)
	}

	log.Debug("applying mutation", zap.String("phase", string(PhaseMutating)), zap.Int64("expected_rows", affected))
	changed, err := e.executor.Exec(ctx, strategy.Mutation(req.Ref, req.Params))
	if err != nil {
		return finish(err, PhaseMutating)
	}
	if changed != affected {
		log.Warn("mutation touched a different number of rows than counted",
			zap.Int64("counted", affected),
			zap.Int64("changed", changed),
		)
	}
	if changed == 0 {
		if err := e.revert(ctx, log, req.Ref, original, result); err != nil {
			return finish(err, PhaseReverting)
		}
	}

	result.AffectedRows = changed
	log.Info("operation applied", zap.Int64("affected_rows", changed), zap.Bool("type_changed", result.TypeChanged()))
	return finish(nil, PhaseMutating)
}

// revert undoes a widening made during this call, if any
func (e *Engine) revert(ctx context.Context, log *zap.Logger, ref ColumnRef, original ColumnType, result *Result) error {
	if !result.Coerced {
		return nil
	}

	log.Debug("restoring column type", zap.String("phase", string(PhaseReverting)), zap.String("type", original.SQL))
	if err := e.coercer.RevertType(ctx, ref, original); err != nil {
		return err
	}

	result.Reverted = true
	result.FinalType = original.Name
	log.Info("column type restored", zap.String("type", original.Name))
	return nil
}

// Trim strips leading and trailing whitespace from every value of ref
func (e *Engine) Trim(ctx context.Context, ref ColumnRef) (*Result, error) {
	return e.PerformOperation(ctx, Request{Ref: ref, Kind: operation.Trim})
}

// Lowercase lower-cases every value of ref
func (e *Engine) Lowercase(ctx context.Context, ref ColumnRef) (*Result, error) {
	return e.PerformOperation(ctx, Request{Ref: ref, Kind: operation.Lowercase})
}

// Uppercase upper-cases every value of ref
func (e *Engine) Uppercase(ctx context.Context, ref ColumnRef) (*Result, error) {
	return e.PerformOperation(ctx, Request{Ref: ref, Kind: operation.Uppercase})
}

// Replace substitutes params.Find with params.Replace in every value of ref
func (e *Engine) Replace(ctx context.Context, ref ColumnRef, params operation.Params) (*Result, error) {
	return e.PerformOperation(ctx, Request{Ref: ref, Kind: operation.Replace, Params: params})
}
