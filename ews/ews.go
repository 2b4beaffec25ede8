// Package ews is the client entry point: an Account binds a dispatch
// service, a schema and a configuration, and hands out Folder handles whose
// query sets compile, page and merge remote results lazily.
//
//	account := ews.NewAccount(dispatcher)
//	inbox := account.Folder("inbox")
//	unread, err := inbox.Filter(ews.Q("is_read", false)).Count(ctx)
package ews

import (
	"context"

	"go.uber.org/zap"

	"github.com/tarowe/go-ews/config"
	"github.com/tarowe/go-ews/ews/bulk"
	"github.com/tarowe/go-ews/ews/fault"
	"github.com/tarowe/go-ews/ews/fetch"
	"github.com/tarowe/go-ews/ews/query"
	"github.com/tarowe/go-ews/ews/schema"
	"github.com/tarowe/go-ews/ews/types"
)

// Q builds a single lookup expression, e.g. Q("subject__icontains", "report").
func Q(spec string, value any) *query.Q { return query.Where(spec, value) }

// Account is a handle on one mailbox reachable through a dispatch service.
type Account struct {
	dispatcher types.Dispatcher
	schema     schema.Schema
	cfg        *config.Config
	policy     *fault.Policy
	log        *zap.SugaredLogger
}

// AccountOption configures an Account.
type AccountOption func(*Account)

// WithSchema replaces the default item schema.
func WithSchema(s schema.Schema) AccountOption {
	return func(a *Account) { a.schema = s }
}

// WithConfig supplies query, bulk and retry settings.
func WithConfig(cfg *config.Config) AccountOption {
	return func(a *Account) { a.cfg = cfg }
}

// WithPolicy overrides the fault policy derived from the configuration.
func WithPolicy(p *fault.Policy) AccountOption {
	return func(a *Account) { a.policy = p }
}

// WithLogger attaches a logger to the account and everything built from it.
func WithLogger(log *zap.SugaredLogger) AccountOption {
	return func(a *Account) { a.log = log }
}

// NewAccount creates an account over the given dispatcher.
func NewAccount(d types.Dispatcher, opts ...AccountOption) *Account {
	a := &Account{
		dispatcher: d,
		schema:     schema.DefaultItemSchema(),
		log:        zap.NewNop().Sugar(),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.cfg == nil {
		a.cfg = config.Default()
	}
	if a.policy == nil {
		a.policy = fault.NewPolicy(&a.cfg.Retry, fault.WithLogger(a.log))
	}
	return a
}

// Schema returns the account's item schema.
func (a *Account) Schema() schema.Schema { return a.schema }

// Folder returns a handle on one folder of the account.
func (a *Account) Folder(id string) *Folder {
	pageSize := a.cfg.Query.PageSize
	if pageSize < 1 {
		pageSize = config.DefaultPageSize
	}
	if pageSize > config.MaxPageSize {
		pageSize = config.MaxPageSize
	}
	return &Folder{
		id: id,
		executor: fetch.NewExecutor(a.dispatcher, a.schema, id,
			fetch.WithPageSize(pageSize),
			fetch.WithPolicy(a.policy),
			fetch.WithLogger(a.log)),
		bulk: bulk.NewRunner(a.dispatcher, id,
			bulk.WithChunkSize(a.cfg.Bulk.ChunkSize),
			bulk.WithConcurrency(a.cfg.Bulk.Concurrency),
			bulk.WithPolicy(a.policy),
			bulk.WithLogger(a.log)),
	}
}

// Folder is one folder of an account. It satisfies query.Evaluator, so
// every QuerySet built from it evaluates against this folder.
type Folder struct {
	id       string
	executor *fetch.Executor
	bulk     *bulk.Runner
}

// ID returns the folder identifier.
func (f *Folder) ID() string { return f.id }

// Evaluate implements query.Evaluator.
func (f *Folder) Evaluate(ctx context.Context, spec *query.Spec) (query.Cursor, error) {
	return f.executor.Evaluate(ctx, spec)
}

// DeleteIDs implements query.Evaluator.
func (f *Folder) DeleteIDs(ctx context.Context, ids []types.ItemID) ([]types.BatchOutcome, error) {
	return f.bulk.Delete(ctx, ids)
}

// All returns an unrestricted query set over the folder.
func (f *Folder) All() *query.QuerySet {
	return query.New(f)
}

// Filter returns a query set restricted to items matching all expressions.
func (f *Folder) Filter(exprs ...*query.Q) *query.QuerySet {
	return f.All().Filter(exprs...)
}

// Exclude returns a query set restricted to items matching no expression.
func (f *Folder) Exclude(exprs ...*query.Q) *query.QuerySet {
	return f.All().Exclude(exprs...)
}

// Get fetches the single item matching the expressions. Zero matches return
// ErrDoesNotExist, more than one ErrMultipleResults.
func (f *Folder) Get(ctx context.Context, exprs ...*query.Q) (types.Item, error) {
	return f.All().Get(ctx, exprs...)
}

// BulkCreate stores new items in the folder, chunked per configuration.
func (f *Folder) BulkCreate(ctx context.Context, fields []map[string]any) ([]types.BatchOutcome, error) {
	return f.bulk.Create(ctx, fields)
}

// BulkUpdate applies field changes to existing items.
func (f *Folder) BulkUpdate(ctx context.Context, items []types.BulkItem) ([]types.BatchOutcome, error) {
	return f.bulk.Update(ctx, items)
}

// BulkDelete removes the identified items.
func (f *Folder) BulkDelete(ctx context.Context, ids []types.ItemID) ([]types.BatchOutcome, error) {
	return f.bulk.Delete(ctx, ids)
}
