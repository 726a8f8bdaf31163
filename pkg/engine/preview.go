package engine

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/chameleon-db/colops/pkg/engine/operation"
)

// DefaultPreviewLimit is the sample size used when Preview gets limit 0
const DefaultPreviewLimit = 10

// PreviewRow is one value before and after the operation
type PreviewRow struct {
	Before string `json:"before"`
	After  string `json:"after"`
	// Agrees is false when the in-memory transform disagrees with the database
	Agrees bool `json:"agrees"`
}

// PreviewResult is a read-only look at what an operation would do
type PreviewResult struct {
	Request     Request      `json:"request"`
	ColumnType  string       `json:"columnType"`
	WouldCoerce bool         `json:"wouldCoerce"`
	Total       int64        `json:"total"`
	Samples     []PreviewRow `json:"samples"`
}

// Preview counts the rows req would change and samples up to limit of them.
// The column is read through a TEXT cast so its type is never altered.
func (e *Engine) Preview(ctx context.Context, req Request, limit int) (*PreviewResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if limit < 0 {
		return nil, &ValidationError{Field: "limit", Value: limit, Message: "limit must not be negative"}
	}
	if limit == 0 {
		limit = DefaultPreviewLimit
	}

	strategy, err := operation.For(req.Kind)
	if err != nil {
		return nil, err
	}

	log := e.logger.With(
		zap.String("kind", req.Kind.String()),
		zap.String("table", req.Ref.Table),
		zap.String("column", req.Ref.Column),
	)

	current, err := e.inspector.Describe(ctx, req.Ref.Table, req.Ref.Column)
	if err != nil {
		return nil, mapStorageError(err, PhaseInspecting, req.Ref, "")
	}

	result := &PreviewResult{
		Request:     req,
		ColumnType:  current.Name,
		WouldCoerce: !IsTextType(current.Name),
		Samples:     []PreviewRow{},
	}

	total, err := e.counter.Count(ctx, strategy.PreviewPredicate(req.Ref, req.Params))
	if err != nil {
		return nil, mapStorageError(err, PhaseCounting, req.Ref, current.SQL)
	}
	result.Total = total
	if total == 0 {
		return result, nil
	}

	rows, err := e.executor.Query(ctx, strategy.Sample(req.Ref, req.Params, limit))
	if err != nil {
		return nil, mapStorageError(err, PhaseSampling, req.Ref, current.SQL)
	}

	for _, row := range rows {
		before := textValue(row["before"])
		after := textValue(row["after"])
		local, _ := strategy.Apply(before, req.Params)

		sample := PreviewRow{Before: before, After: after, Agrees: local == after}
		if !sample.Agrees {
			log.Debug("in-memory transform differs from database",
				zap.String("before", before),
				zap.String("database", after),
				zap.String("local", local),
			)
		}
		result.Samples = append(result.Samples, sample)
	}

	log.Debug("preview sampled", zap.Int64("total", total), zap.Int("samples", len(result.Samples)))
	return result, nil
}

func textValue(v interface{}) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case []byte:
		return string(s)
	default:
		return fmt.Sprint(s)
	}
}
