package fetch

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tarowe/go-ews/config"
	"github.com/tarowe/go-ews/errors"
	"github.com/tarowe/go-ews/ews/fault"
	"github.com/tarowe/go-ews/ews/query"
	"github.com/tarowe/go-ews/ews/schema"
	"github.com/tarowe/go-ews/ews/types"
	"github.com/tarowe/go-ews/internal/ewstest"
)

const folder = "inbox"

func message(subject string, size int, read bool) types.Item {
	return types.Item{Shape: "message", Fields: map[string]any{
		"subject": subject,
		"size":    size,
		"is_read": read,
	}}
}

func meeting(subject string, start time.Time) types.Item {
	return types.Item{Shape: "meeting_request", Fields: map[string]any{
		"subject": subject,
		"start":   start,
	}}
}

func collect(t *testing.T, cur query.Cursor) []types.Item {
	t.Helper()
	var out []types.Item
	for cur.Next() {
		out = append(out, cur.Item())
	}
	require.NoError(t, cur.Err())
	return out
}

func TestEvaluatePagesThroughAllResults(t *testing.T) {
	fake := ewstest.New(schema.DefaultItemSchema())
	for i := 0; i < 25; i++ {
		fake.Add(folder, message(fmt.Sprintf("msg %02d", i), i, false))
	}
	exec := NewExecutor(fake, schema.DefaultItemSchema(), folder, WithPageSize(10))

	cur, err := exec.Evaluate(context.Background(), &query.Spec{})
	require.NoError(t, err)
	items := collect(t, cur)
	assert.Len(t, items, 25)

	// 25 messages at page size 10 is three pages, plus the other shape's
	// single empty probe
	messagePages := 0
	for _, call := range fake.FindCalls {
		if call.Shape == "message" {
			messagePages++
			assert.Equal(t, 10, call.PageSize)
			assert.NotEmpty(t, call.RequestID)
		}
	}
	assert.Equal(t, 3, messagePages)
}

func TestEvaluateMergesShapes(t *testing.T) {
	fake := ewstest.New(schema.DefaultItemSchema())
	fake.Add(folder,
		message("a", 1, false),
		message("c", 2, false),
		message("e", 3, true),
	)
	fake.Add(folder,
		meeting("b", time.Now()),
		meeting("d", time.Now()),
	)
	exec := NewExecutor(fake, schema.DefaultItemSchema(), folder)

	cur, err := exec.Evaluate(context.Background(), &query.Spec{
		Order: []query.OrderField{{Field: "subject"}},
	})
	require.NoError(t, err)
	items := collect(t, cur)

	subjects := make([]string, len(items))
	shapes := map[string]bool{}
	for i, item := range items {
		v, _ := item.Field("subject")
		subjects[i] = v.(string)
		shapes[item.Shape] = true
	}
	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, subjects)
	assert.True(t, shapes["message"] && shapes["meeting_request"], "both shapes in one result")
}

func TestEvaluateRestrictionFiltersServerSide(t *testing.T) {
	fake := ewstest.New(schema.DefaultItemSchema())
	fake.Add(folder,
		message("weekly report", 10, false),
		message("RE: weekly report", 20, true),
		message("lunch", 5, false),
	)
	exec := NewExecutor(fake, schema.DefaultItemSchema(), folder)

	cur, err := exec.Evaluate(context.Background(), &query.Spec{
		Q: query.Where("subject__icontains", "REPORT"),
	})
	require.NoError(t, err)
	assert.Len(t, collect(t, cur), 2)
}

func TestEvaluateNeverSkipsDispatch(t *testing.T) {
	fake := ewstest.New(schema.DefaultItemSchema())
	fake.Add(folder, message("a", 1, false))
	exec := NewExecutor(fake, schema.DefaultItemSchema(), folder)

	cur, err := exec.Evaluate(context.Background(), &query.Spec{
		Q: query.Where("size__in", []int{}),
	})
	require.NoError(t, err)
	assert.Empty(t, collect(t, cur))
	assert.Empty(t, fake.FindCalls, "a never-matching query must not hit the wire")
}

func TestEvaluateProjection(t *testing.T) {
	fake := ewstest.New(schema.DefaultItemSchema())
	fake.Add(folder, message("hello", 42, true))
	exec := NewExecutor(fake, schema.DefaultItemSchema(), folder)

	cur, err := exec.Evaluate(context.Background(), &query.Spec{
		Only: []string{"subject"},
	})
	require.NoError(t, err)
	items := collect(t, cur)
	require.Len(t, items, 1)

	_, hasSubject := items[0].Field("subject")
	_, hasSize := items[0].Field("size")
	assert.True(t, hasSubject)
	assert.False(t, hasSize, "unprojected fields are not fetched")
	assert.NotEmpty(t, items[0].ID.ID)
}

func TestEvaluateIDOnly(t *testing.T) {
	fake := ewstest.New(schema.DefaultItemSchema())
	fake.Add(folder, message("hello", 42, true))
	exec := NewExecutor(fake, schema.DefaultItemSchema(), folder)

	cur, err := exec.Evaluate(context.Background(), &query.Spec{Only: []string{}})
	require.NoError(t, err)
	items := collect(t, cur)
	require.Len(t, items, 1)
	assert.NotEmpty(t, items[0].ID.ID)
	assert.Nil(t, items[0].Fields)
}

func TestEvaluateSortOnlyFieldsAreStripped(t *testing.T) {
	fake := ewstest.New(schema.DefaultItemSchema())
	fake.Add(folder,
		message("b", 2, false),
		message("a", 1, false),
	)
	exec := NewExecutor(fake, schema.DefaultItemSchema(), folder)

	cur, err := exec.Evaluate(context.Background(), &query.Spec{
		Only:  []string{"subject"},
		Order: []query.OrderField{{Field: "size", Descending: true}},
	})
	require.NoError(t, err)
	items := collect(t, cur)
	require.Len(t, items, 2)

	first, _ := items[0].Field("subject")
	assert.Equal(t, "b", first, "descending size puts the larger item first")
	for _, item := range items {
		_, hasSize := item.Field("size")
		assert.False(t, hasSize, "sort-only field must not leak into results")
	}
}

func TestEvaluateReversedOrdering(t *testing.T) {
	fake := ewstest.New(schema.DefaultItemSchema())
	fake.Add(folder,
		message("a", 1, false),
		message("b", 2, false),
		message("c", 3, false),
	)
	exec := NewExecutor(fake, schema.DefaultItemSchema(), folder)

	cur, err := exec.Evaluate(context.Background(), &query.Spec{
		Order:    []query.OrderField{{Field: "size"}},
		Reversed: true,
	})
	require.NoError(t, err)
	items := collect(t, cur)
	require.Len(t, items, 3)
	v, _ := items[0].Field("subject")
	assert.Equal(t, "c", v)
}

func TestEvaluateUnknownOrderField(t *testing.T) {
	fake := ewstest.New(schema.DefaultItemSchema())
	exec := NewExecutor(fake, schema.DefaultItemSchema(), folder)

	_, err := exec.Evaluate(context.Background(), &query.Spec{
		Order: []query.OrderField{{Field: "spam_score"}},
	})
	var unknown *errors.UnknownFieldError
	require.ErrorAs(t, err, &unknown)
	assert.Empty(t, fake.FindCalls)
}

func TestEvaluateRetriesThrottledPages(t *testing.T) {
	fake := ewstest.New(schema.DefaultItemSchema())
	fake.Add(folder, message("a", 1, false))

	failures := 2
	fake.FindErr = func(*types.FindRequest) error {
		if failures > 0 {
			failures--
			return errors.NewRemote(errors.KindServerBusy, "busy")
		}
		return nil
	}

	policy := fault.NewPolicy(&config.RetryConfig{
		ServiceAccount:   true,
		MaxAttempts:      5,
		InitialBackoffMS: 1,
		MaxBackoffMS:     2,
	})
	exec := NewExecutor(fake, schema.DefaultItemSchema(), folder, WithPolicy(policy))

	cur, err := exec.Evaluate(context.Background(), &query.Spec{})
	require.NoError(t, err)
	assert.Len(t, collect(t, cur), 1)
}

func TestEvaluateSurfacesDispatchErrorViaCursor(t *testing.T) {
	fake := ewstest.New(schema.DefaultItemSchema())
	fake.Add(folder, message("a", 1, false))
	fake.FindErr = func(*types.FindRequest) error {
		return errors.NewRemote(errors.KindAccessDenied, "no")
	}
	exec := NewExecutor(fake, schema.DefaultItemSchema(), folder)

	cur, err := exec.Evaluate(context.Background(), &query.Spec{})
	require.NoError(t, err, "dispatch happens lazily, not at Evaluate time")
	assert.False(t, cur.Next())

	var remote *errors.RemoteError
	require.ErrorAs(t, cur.Err(), &remote)
	assert.Equal(t, errors.KindAccessDenied, remote.Kind)
}

func TestEvaluateFreshCursorPerEvaluation(t *testing.T) {
	fake := ewstest.New(schema.DefaultItemSchema())
	fake.Add(folder, message("a", 1, false), message("b", 2, false))
	exec := NewExecutor(fake, schema.DefaultItemSchema(), folder)

	spec := &query.Spec{}
	for round := 0; round < 2; round++ {
		cur, err := exec.Evaluate(context.Background(), spec)
		require.NoError(t, err)
		assert.Len(t, collect(t, cur), 2, "round %d", round)
	}
}

// findFunc adapts a function into a Dispatcher for tests that need raw
// control over paging responses.
type findFunc func(req *types.FindRequest) (*types.FindResponse, error)

func (f findFunc) FindItems(_ context.Context, req *types.FindRequest) (*types.FindResponse, error) {
	return f(req)
}

func (f findFunc) ExecuteBulk(context.Context, *types.BulkRequest) (*types.BulkResponse, error) {
	return nil, errors.New("not supported")
}

func TestEvaluateDeduplicatesAcrossShapes(t *testing.T) {
	// The same id served under both shapes must come back exactly once.
	var calls int
	disp := findFunc(func(req *types.FindRequest) (*types.FindResponse, error) {
		calls++
		item := types.Item{
			ID:     types.ItemID{ID: "aa-bb-01", ChangeKey: "ck-1"},
			Shape:  req.Shape,
			Fields: map[string]any{"subject": "weekly report"},
		}
		return &types.FindResponse{Items: []types.Item{item}, Done: true}, nil
	})
	exec := NewExecutor(disp, schema.DefaultItemSchema(), folder)

	cur, err := exec.Evaluate(context.Background(), &query.Spec{})
	require.NoError(t, err)
	items := collect(t, cur)
	require.Len(t, items, 1)
	assert.Equal(t, "aa-bb-01", items[0].ID.ID)
	assert.Equal(t, 2, calls, "one request per shape")
}

func TestEvaluateStopsOnStalledPaging(t *testing.T) {
	// A backend that answers an empty page with Done false and an
	// unchanged offset must not be polled again.
	var calls int
	disp := findFunc(func(req *types.FindRequest) (*types.FindResponse, error) {
		calls++
		return &types.FindResponse{NextOffset: req.Offset, Done: false}, nil
	})
	exec := NewExecutor(disp, schema.DefaultItemSchema(), folder)

	cur, err := exec.Evaluate(context.Background(), &query.Spec{})
	require.NoError(t, err)
	assert.Empty(t, collect(t, cur))
	assert.Equal(t, len(schema.Shapes(schema.DefaultItemSchema())), calls)
}
