package engine

import "context"

// PredicateCounter counts the rows an operation would change
type PredicateCounter struct {
	executor *Executor
}

// NewPredicateCounter creates a counter
func NewPredicateCounter(executor *Executor) *PredicateCounter {
	return &PredicateCounter{executor: executor}
}

// Count runs a single-column aggregate such as Strategy.Predicate.
// No retries, no caching.
func (c *PredicateCounter) Count(ctx context.Context, stmt Statement) (int64, error) {
	var n int64
	if err := c.executor.QueryRow(ctx, stmt, &n); err != nil {
		return 0, err
	}
	return n, nil
}
