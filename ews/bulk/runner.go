// Package bulk executes mutating operations against the dispatch service in
// chunks: input order is preserved in the outcomes, chunk dispatch can run
// concurrently up to a bound, and a failed chunk aborts everything not yet
// submitted.
package bulk

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tarowe/go-ews/errors"
	"github.com/tarowe/go-ews/ews/fault"
	"github.com/tarowe/go-ews/ews/types"
	"github.com/tarowe/go-ews/logger"
)

// Runner executes bulk mutations against one folder.
type Runner struct {
	dispatcher  types.Dispatcher
	folderID    string
	chunkSize   int
	concurrency int
	policy      *fault.Policy
	log         *zap.SugaredLogger
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithChunkSize sets how many items travel in one dispatch request.
func WithChunkSize(n int) RunnerOption {
	return func(r *Runner) { r.chunkSize = n }
}

// WithConcurrency bounds how many chunks may be in flight at once.
func WithConcurrency(n int) RunnerOption {
	return func(r *Runner) { r.concurrency = n }
}

// WithPolicy sets the fault policy applied around every chunk dispatch.
func WithPolicy(p *fault.Policy) RunnerOption {
	return func(r *Runner) { r.policy = p }
}

// WithLogger attaches a logger.
func WithLogger(log *zap.SugaredLogger) RunnerOption {
	return func(r *Runner) { r.log = log }
}

// NewRunner builds a bulk runner over the given dispatcher and folder.
func NewRunner(d types.Dispatcher, folderID string, opts ...RunnerOption) *Runner {
	r := &Runner{
		dispatcher:  d,
		folderID:    folderID,
		chunkSize:   100,
		concurrency: 1,
		log:         zap.NewNop().Sugar(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.chunkSize < 1 {
		r.chunkSize = 1
	}
	if r.concurrency < 1 {
		r.concurrency = 1
	}
	if r.policy == nil {
		r.policy = fault.NewDefaultPolicy()
	}
	return r
}

// Create stores new items and returns one outcome per input, in input
// order. Successful outcomes carry the server-assigned id.
func (r *Runner) Create(ctx context.Context, fields []map[string]any) ([]types.BatchOutcome, error) {
	items := make([]types.BulkItem, len(fields))
	for i, f := range fields {
		items[i] = types.BulkItem{Fields: f}
	}
	return r.run(ctx, types.BulkCreate, items)
}

// Update applies field changes to existing items.
func (r *Runner) Update(ctx context.Context, items []types.BulkItem) ([]types.BatchOutcome, error) {
	return r.run(ctx, types.BulkUpdate, items)
}

// Delete removes the identified items.
func (r *Runner) Delete(ctx context.Context, ids []types.ItemID) ([]types.BatchOutcome, error) {
	items := make([]types.BulkItem, len(ids))
	for i, id := range ids {
		items[i] = types.BulkItem{ID: id}
	}
	return r.run(ctx, types.BulkDelete, items)
}

// run chunks the items and dispatches the chunks, at most concurrency in
// flight. A chunk whose dispatch fails outright poisons the batch: its
// items carry the dispatch error, nothing further is submitted, and every
// unsubmitted item reports ErrAborted. Item-level failures inside a
// successful chunk only mark their own outcome.
func (r *Runner) run(ctx context.Context, kind types.BulkKind, items []types.BulkItem) ([]types.BatchOutcome, error) {
	if len(items) == 0 {
		return nil, nil
	}

	outcomes := make([]types.BatchOutcome, len(items))
	sem := make(chan struct{}, r.concurrency)
	var wg sync.WaitGroup
	var mu sync.Mutex
	var fatal error

	r.log.Debugw("Starting bulk run",
		logger.FieldKind, kind.String(),
		logger.FieldFolder, r.folderID,
		logger.FieldTotalCount, len(items),
		logger.FieldChunkSize, r.chunkSize)

	for base := 0; base < len(items); base += r.chunkSize {
		end := base + r.chunkSize
		if end > len(items) {
			end = len(items)
		}
		chunk := items[base:end]

		// Checking after the slot acquisition means a sequential runner
		// never submits past a failed chunk, and a concurrent one stops
		// submitting as soon as a slot frees up behind a failure.
		sem <- struct{}{}
		mu.Lock()
		poisoned := fatal != nil
		mu.Unlock()
		if poisoned || ctx.Err() != nil {
			<-sem
			for i := range chunk {
				outcomes[base+i] = types.BatchOutcome{Index: base + i, ID: chunk[i].ID, Err: errors.ErrAborted}
			}
			continue
		}

		wg.Add(1)
		go func(base int, chunk []types.BulkItem) {
			defer wg.Done()
			defer func() { <-sem }()
			resp, err := r.dispatchChunk(ctx, kind, chunk)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if fatal == nil {
					fatal = err
				}
				// The chunk's own items abort too, but keep the dispatch
				// error reachable through Is/As alongside ErrAborted.
				chunkErr := errors.Mark(err, errors.ErrAborted)
				for i := range chunk {
					outcomes[base+i] = types.BatchOutcome{Index: base + i, ID: chunk[i].ID, Err: chunkErr}
				}
				return
			}
			for i, result := range resp.Results {
				outcomes[base+i] = types.BatchOutcome{Index: base + i, ID: result.ID, Err: result.Err}
			}
		}(base, chunk)
	}
	wg.Wait()

	if fatal != nil {
		return outcomes, errors.Wrapf(fatal, "bulk %s in %s aborted", kind, r.folderID)
	}
	if err := ctx.Err(); err != nil {
		return outcomes, err
	}
	return outcomes, nil
}

func (r *Runner) dispatchChunk(ctx context.Context, kind types.BulkKind, chunk []types.BulkItem) (*types.BulkResponse, error) {
	req := &types.BulkRequest{
		RequestID: uuid.NewString(),
		FolderID:  r.folderID,
		Kind:      kind,
		Items:     chunk,
	}

	var resp *types.BulkResponse
	err := r.policy.Do(ctx, req.RequestID, func(ctx context.Context) error {
		var dispatchErr error
		resp, dispatchErr = r.dispatcher.ExecuteBulk(ctx, req)
		return dispatchErr
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Results) != len(chunk) {
		return nil, errors.NewRemote(errors.KindSchemaViolation, "bulk response item count mismatch")
	}
	return resp, nil
}
