package was_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/webscan-io/was/v2/pkg/was"
)

var errItemFailed = errors.New("item failed")

func TestRunBulk_EmptyInput(t *testing.T) {
	t.Parallel()

	calls := 0

	results, err := was.RunBulk(context.Background(), nil, func(ctx context.Context, id string) (interface{}, error) {
		calls++

		return nil, nil
	}, nil)

	require.Error(t, err)
	assert.True(t, was.IsValidation(err))
	assert.Contains(t, err.Error(), "at least one identifier is required")
	assert.Nil(t, results)
	assert.Zero(t, calls, "no network-facing work may happen for empty input")
}

func TestRunBulk_NilOperation(t *testing.T) {
	t.Parallel()

	results, err := was.RunBulk(context.Background(), []string{"a"}, nil, nil)

	require.Error(t, err)
	assert.True(t, was.IsValidation(err))
	assert.Nil(t, results)
}

func TestRunBulk_OrderedResults(t *testing.T) {
	t.Parallel()

	ids := []string{"scan-1", "scan-2", "scan-3"}

	results, err := was.RunBulk(context.Background(), ids, func(ctx context.Context, id string) (interface{}, error) {
		return "done:" + id, nil
	}, nil)

	require.NoError(t, err)
	require.Len(t, results, 3)

	for i, result := range results {
		assert.Equal(t, ids[i], result.ID)
		assert.Equal(t, i, result.Index)
		assert.True(t, result.Success)
		assert.Equal(t, "done:"+ids[i], result.Data)
		assert.NoError(t, result.Error)
	}
}

func TestRunBulk_FailureDoesNotAbort(t *testing.T) {
	t.Parallel()

	ids := []string{"scan-1", "scan-2", "scan-3"}

	results, err := was.RunBulk(context.Background(), ids, func(ctx context.Context, id string) (interface{}, error) {
		if id == "scan-2" {
			return nil, errItemFailed
		}

		return id, nil
	}, nil)

	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.True(t, results[0].Success)
	assert.False(t, results[1].Success)
	assert.ErrorIs(t, results[1].Error, errItemFailed)
	assert.True(t, results[2].Success, "items after a failure must still run")
}

func TestRunBulk_DuplicatesRunIndependently(t *testing.T) {
	t.Parallel()

	calls := 0

	results, err := was.RunBulk(context.Background(), []string{"scan-1", "scan-1"}, func(ctx context.Context, id string) (interface{}, error) {
		calls++

		return calls, nil
	}, nil)

	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, 2, calls)
	assert.Equal(t, 0, results[0].Index)
	assert.Equal(t, 1, results[1].Index)
}

func TestRunBulk_EmptyIDFailsWithoutCall(t *testing.T) {
	t.Parallel()

	calls := 0

	results, err := was.RunBulk(context.Background(), []string{"scan-1", "", "scan-3"}, func(ctx context.Context, id string) (interface{}, error) {
		calls++

		return id, nil
	}, nil)

	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, 2, calls)
	assert.False(t, results[1].Success)
	assert.True(t, was.IsValidation(results[1].Error))
}

func TestRunBulk_Progress(t *testing.T) {
	t.Parallel()

	var (
		completedSeen []int
		totalSeen     []int
		idsSeen       []string
	)

	options := &was.BulkOptions{
		OnProgress: func(completed, total int, result was.BulkResult) {
			completedSeen = append(completedSeen, completed)
			totalSeen = append(totalSeen, total)
			idsSeen = append(idsSeen, result.ID)
		},
	}

	_, err := was.RunBulk(context.Background(), []string{"a", "b", "c"}, func(ctx context.Context, id string) (interface{}, error) {
		return nil, nil
	}, options)

	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, completedSeen)
	assert.Equal(t, []int{3, 3, 3}, totalSeen)
	assert.Equal(t, []string{"a", "b", "c"}, idsSeen)
}

func TestRunBulk_ContextCancelledBetweenItems(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())

	results, err := was.RunBulk(ctx, []string{"a", "b", "c"}, func(opCtx context.Context, id string) (interface{}, error) {
		if id == "b" {
			cancel()
		}

		return id, nil
	}, nil)

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)

	// Items finished before cancellation are preserved
	require.Len(t, results, 2)
	assert.Equal(t, "a", results[0].ID)
	assert.Equal(t, "b", results[1].ID)
}

func TestRunBulk_ItemTimeout(t *testing.T) {
	t.Parallel()

	options := &was.BulkOptions{ItemTimeout: 10 * time.Millisecond}

	results, err := was.RunBulk(context.Background(), []string{"slow"}, func(ctx context.Context, id string) (interface{}, error) {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(5 * time.Second):
			return id, nil
		}
	}, options)

	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.False(t, results[0].Success)
	assert.ErrorIs(t, results[0].Error, context.DeadlineExceeded)
}

func TestSummarizeBulk(t *testing.T) {
	t.Parallel()

	results := []was.BulkResult{
		{ID: "a", Success: true, Duration: 10 * time.Millisecond},
		{ID: "b", Success: false, Error: errItemFailed, Duration: 20 * time.Millisecond},
		{ID: "c", Success: true, Duration: 30 * time.Millisecond},
	}

	summary := was.SummarizeBulk(results)

	assert.Equal(t, 3, summary.Total)
	assert.Equal(t, 2, summary.Succeeded)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, []string{"b"}, summary.FailedIDs)
	assert.Equal(t, 60*time.Millisecond, summary.Duration)
	assert.InDelta(t, 2.0/3.0, summary.SuccessRate(), 0.0001)
}

func TestSummarizeBulk_Empty(t *testing.T) {
	t.Parallel()

	summary := was.SummarizeBulk(nil)

	assert.Equal(t, 0, summary.Total)
	assert.InDelta(t, 0.0, summary.SuccessRate(), 0.0001)
}

func TestBulkBuilder(t *testing.T) {
	t.Parallel()

	progressCalls := 0

	results, err := was.NewBulkBuilder().
		Add("scan-1").
		AddAll("scan-2", "scan-3").
		WithItemTimeout(time.Second).
		WithProgress(func(completed, total int, result was.BulkResult) {
			progressCalls++
		}).
		Run(context.Background(), func(ctx context.Context, id string) (interface{}, error) {
			return id, nil
		})

	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, 3, progressCalls)
	assert.Equal(t, "scan-1", results[0].ID)
	assert.Equal(t, "scan-3", results[2].ID)
}

func TestBulkBuilder_Empty(t *testing.T) {
	t.Parallel()

	_, err := was.NewBulkBuilder().Run(context.Background(), func(ctx context.Context, id string) (interface{}, error) {
		return nil, nil
	})

	require.Error(t, err)
	assert.True(t, was.IsValidation(err))
}
