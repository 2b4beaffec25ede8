package ews

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tarowe/go-ews/config"
	"github.com/tarowe/go-ews/errors"
	"github.com/tarowe/go-ews/ews/schema"
	"github.com/tarowe/go-ews/ews/types"
	"github.com/tarowe/go-ews/internal/ewstest"
)

func seededAccount(t *testing.T) (*Account, *ewstest.Dispatcher) {
	t.Helper()
	fake := ewstest.New(schema.DefaultItemSchema())
	fake.Add("inbox",
		types.Item{Shape: "message", Fields: map[string]any{
			"subject": "weekly report", "size": 120, "is_read": false,
			"categories": []string{"work"},
		}},
		types.Item{Shape: "message", Fields: map[string]any{
			"subject": "RE: weekly report", "size": 80, "is_read": true,
			"categories": []string{"work", "urgent"},
		}},
		types.Item{Shape: "message", Fields: map[string]any{
			"subject": "lunch?", "size": 15, "is_read": true,
		}},
		types.Item{Shape: "meeting_request", Fields: map[string]any{
			"subject": "planning",
			"start":   time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC),
		}},
	)
	return NewAccount(fake), fake
}

func TestFilterCount(t *testing.T) {
	account, _ := seededAccount(t)
	inbox := account.Folder("inbox")

	n, err := inbox.Filter(Q("subject__icontains", "report")).Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = inbox.All().Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, n, "folder queries span every item shape")
}

func TestCountUsesIDOnlyRequests(t *testing.T) {
	account, fake := seededAccount(t)
	_, err := account.Folder("inbox").All().Count(context.Background())
	require.NoError(t, err)

	require.NotEmpty(t, fake.FindCalls)
	for _, call := range fake.FindCalls {
		assert.True(t, call.IDOnly, "count must not fetch item bodies")
		assert.Empty(t, call.Sort, "count must not order")
	}
}

func TestExcludeMatchesFilteredNegation(t *testing.T) {
	account, _ := seededAccount(t)
	inbox := account.Folder("inbox")
	ctx := context.Background()

	excluded, err := inbox.Exclude(Q("is_read", true)).Count(ctx)
	require.NoError(t, err)

	// Negating is_read=true keeps unread messages and every item that has
	// no is_read field at all
	assert.Equal(t, 2, excluded)
}

func TestGetCardinality(t *testing.T) {
	account, _ := seededAccount(t)
	inbox := account.Folder("inbox")
	ctx := context.Background()

	item, err := inbox.Get(ctx, Q("subject", "lunch?"))
	require.NoError(t, err)
	v, _ := item.Field("size")
	assert.Equal(t, 15, v)

	_, err = inbox.Get(ctx, Q("subject", "no such thing"))
	assert.ErrorIs(t, err, errors.ErrDoesNotExist)

	_, err = inbox.Get(ctx, Q("subject__icontains", "report"))
	assert.ErrorIs(t, err, errors.ErrMultipleResults)
}

func TestChainingIsImmutable(t *testing.T) {
	account, _ := seededAccount(t)
	base := account.Folder("inbox").Filter(Q("subject__icontains", "report"))
	narrowed := base.Filter(Q("is_read", false))
	ctx := context.Background()

	n, err := narrowed.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = base.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n, "narrowing a copy must not touch the base query")
}

func TestOrderingAndValues(t *testing.T) {
	account, _ := seededAccount(t)
	inbox := account.Folder("inbox")

	subjects, err := inbox.Filter(Q("size__gt", 0)).
		OrderBy("-size").
		FlatValues("subject").
		Flat(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []any{"weekly report", "RE: weekly report", "lunch?"}, subjects)
}

func TestValuesMapsIncludePseudoFields(t *testing.T) {
	account, _ := seededAccount(t)
	inbox := account.Folder("inbox")

	maps, err := inbox.Filter(Q("subject", "lunch?")).
		Values("item_id", "subject").
		Maps(context.Background())
	require.NoError(t, err)
	require.Len(t, maps, 1)
	assert.NotEmpty(t, maps[0]["item_id"])
	assert.Equal(t, "lunch?", maps[0]["subject"])
}

func TestMultivaluedLookups(t *testing.T) {
	account, _ := seededAccount(t)
	inbox := account.Folder("inbox")
	ctx := context.Background()

	n, err := inbox.Filter(Q("categories__contains", []string{"work", "urgent"})).Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n, "contains requires every value")

	n, err = inbox.Filter(Q("categories__in", []string{"work", "urgent"})).Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n, "in requires any value")
}

func TestQuerySetDelete(t *testing.T) {
	account, fake := seededAccount(t)
	inbox := account.Folder("inbox")
	ctx := context.Background()

	outcomes, err := inbox.Filter(Q("is_read", true)).Delete(ctx)
	require.NoError(t, err)
	assert.Len(t, outcomes, 2)
	assert.Len(t, fake.Items("inbox"), 2)

	// Nothing left to delete: no bulk dispatch at all
	bulkCallsBefore := len(fake.BulkCalls)
	outcomes, err = inbox.Filter(Q("is_read", true)).Delete(ctx)
	require.NoError(t, err)
	assert.Nil(t, outcomes)
	assert.Len(t, fake.BulkCalls, bulkCallsBefore)
}

func TestBulkRoundTrip(t *testing.T) {
	fake := ewstest.New(schema.DefaultItemSchema())
	account := NewAccount(fake, WithConfig(&config.Config{
		Query: config.QueryConfig{PageSize: 10},
		Bulk:  config.BulkConfig{ChunkSize: 25, Concurrency: 2},
		Retry: config.RetryConfig{MaxAttempts: 1, InitialBackoffMS: 1, MaxBackoffMS: 1},
	}))
	drafts := account.Folder("drafts")
	ctx := context.Background()

	fields := make([]map[string]any, 60)
	for i := range fields {
		fields[i] = map[string]any{"subject": fmt.Sprintf("draft %02d", i), "size": i}
	}
	outcomes, err := drafts.BulkCreate(ctx, fields)
	require.NoError(t, err)
	require.Len(t, outcomes, 60)
	require.Len(t, fake.BulkCalls, 3, "60 items at chunk size 25")

	n, err := drafts.All().Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 60, n)

	ids := make([]types.ItemID, len(outcomes))
	for i, o := range outcomes {
		require.True(t, o.OK())
		ids[i] = o.ID
	}
	outcomes, err = drafts.BulkDelete(ctx, ids)
	require.NoError(t, err)
	require.Len(t, outcomes, 60)
	assert.Empty(t, fake.Items("drafts"))
}

func TestChainErrorsSurfaceBeforeDispatch(t *testing.T) {
	account, fake := seededAccount(t)
	inbox := account.Folder("inbox")

	_, err := inbox.All().Reverse().Iterate(context.Background())
	require.ErrorIs(t, err, errors.ErrNoOrdering)
	assert.Empty(t, fake.FindCalls)

	_, err = inbox.Filter(Q("bogus_field", 1)).Iterate(context.Background())
	var unknown *errors.UnknownFieldError
	require.ErrorAs(t, err, &unknown)
	assert.Empty(t, fake.FindCalls)
}
