package was

import (
	"context"
	"time"

	"github.com/webscan-io/was/v2/internal/constants"
)

// Validation errors raised before the bulk driver touches the network.
var (
	ErrNilBulkOperation = NewValidationError("bulk operation function is required")
)

// BulkItemFunc runs the underlying operation for a single identifier.
type BulkItemFunc func(ctx context.Context, id string) (interface{}, error)

// BulkProgressFunc observes each finished item. completed counts items done
// so far, total is the full batch size.
type BulkProgressFunc func(completed, total int, result BulkResult)

// BulkResult is the outcome of one item in a bulk run.
type BulkResult struct {
	// ID is the identifier the item was run for.
	ID string

	// Index is the item's position in the input, so callers can correlate
	// results even when the same identifier appears twice.
	Index int

	// Success reports whether the operation completed without error.
	Success bool

	// Data is the operation's result when it succeeded.
	Data interface{}

	// Error is the operation's failure when it did not.
	Error error

	// Duration is how long the item took.
	Duration time.Duration
}

// BulkOptions tune a bulk run. The zero value is usable.
type BulkOptions struct {
	// ItemTimeout bounds each item individually. Zero uses the default
	// HTTP timeout.
	ItemTimeout time.Duration

	// OnProgress, when set, is called after every finished item.
	OnProgress BulkProgressFunc
}

// RunBulk applies the operation to every identifier in order, one at a time.
// A failing item never stops the run: its error is recorded and the next
// item starts. The returned slice always parallels ids index for index.
//
// The parent context is checked between items. When it is cancelled, the
// results collected so far are returned together with the context error.
func RunBulk(ctx context.Context, ids []string, operation BulkItemFunc, options *BulkOptions) ([]BulkResult, error) {
	if len(ids) == 0 {
		return nil, ErrNoIdentifiers
	}

	if operation == nil {
		return nil, ErrNilBulkOperation
	}

	if options == nil {
		options = &BulkOptions{}
	}

	itemTimeout := options.ItemTimeout
	if itemTimeout <= 0 {
		itemTimeout = constants.DefaultHTTPTimeout
	}

	results := make([]BulkResult, 0, len(ids))

	for index, id := range ids {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		result := runBulkItem(ctx, index, id, operation, itemTimeout)
		results = append(results, result)

		if options.OnProgress != nil {
			options.OnProgress(len(results), len(ids), result)
		}
	}

	return results, nil
}

// runBulkItem executes one item under its own timeout.
func runBulkItem(ctx context.Context, index int, id string, operation BulkItemFunc, timeout time.Duration) BulkResult {
	result := BulkResult{
		ID:    id,
		Index: index,
	}

	if id == "" {
		result.Error = ErrEmptyID

		return result
	}

	itemCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()

	data, err := operation(itemCtx, id)
	result.Duration = time.Since(start)
	result.Success = err == nil
	result.Data = data
	result.Error = err

	return result
}

// BulkSummary aggregates a finished bulk run.
type BulkSummary struct {
	Total     int           `json:"total"     yaml:"total"`
	Succeeded int           `json:"succeeded" yaml:"succeeded"`
	Failed    int           `json:"failed"    yaml:"failed"`
	Duration  time.Duration `json:"duration"  yaml:"duration"`

	// FailedIDs lists the identifiers whose items failed, in input order.
	FailedIDs []string `json:"failed_ids,omitempty" yaml:"failed_ids,omitempty"`
}

// SummarizeBulk folds per-item results into totals.
func SummarizeBulk(results []BulkResult) BulkSummary {
	summary := BulkSummary{Total: len(results)}

	for _, result := range results {
		summary.Duration += result.Duration

		if result.Success {
			summary.Succeeded++

			continue
		}

		summary.Failed++
		summary.FailedIDs = append(summary.FailedIDs, result.ID)
	}

	return summary
}

// SuccessRate returns the fraction of items that succeeded.
func (s BulkSummary) SuccessRate() float64 {
	if s.Total == 0 {
		return 0
	}

	return float64(s.Succeeded) / float64(s.Total)
}

// BulkBuilder collects identifiers and options for a bulk run.
type BulkBuilder struct {
	ids     []string
	options BulkOptions
}

// NewBulkBuilder creates a new bulk builder.
func NewBulkBuilder() *BulkBuilder {
	return &BulkBuilder{
		ids: make([]string, 0),
	}
}

// Add appends one identifier.
func (b *BulkBuilder) Add(id string) *BulkBuilder {
	b.ids = append(b.ids, id)

	return b
}

// AddAll appends several identifiers.
func (b *BulkBuilder) AddAll(ids ...string) *BulkBuilder {
	b.ids = append(b.ids, ids...)

	return b
}

// WithItemTimeout bounds each item individually.
func (b *BulkBuilder) WithItemTimeout(timeout time.Duration) *BulkBuilder {
	b.options.ItemTimeout = timeout

	return b
}

// WithProgress registers a progress observer.
func (b *BulkBuilder) WithProgress(onProgress BulkProgressFunc) *BulkBuilder {
	b.options.OnProgress = onProgress

	return b
}

// Run executes the collected identifiers against the operation.
func (b *BulkBuilder) Run(ctx context.Context, operation BulkItemFunc) ([]BulkResult, error) {
	return RunBulk(ctx, b.ids, operation, &b.options)
}
