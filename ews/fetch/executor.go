// Package fetch executes query specifications against the dispatch service:
// restriction compilation, projection and ordering resolution, per-shape
// fan-out and lazy paged retrieval behind a merged cursor.
package fetch

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tarowe/go-ews/errors"
	"github.com/tarowe/go-ews/ews/fault"
	"github.com/tarowe/go-ews/ews/query"
	"github.com/tarowe/go-ews/ews/restriction"
	"github.com/tarowe/go-ews/ews/schema"
	"github.com/tarowe/go-ews/ews/types"
	"github.com/tarowe/go-ews/logger"
)

const fieldPathSep = "__"

// Executor evaluates query specs against one folder.
//
// The backend returns only items of the shape named in the request, so a
// query over a mixed folder fans out one paged stream per shape declared in
// the schema and merges them client-side in query order.
type Executor struct {
	dispatcher types.Dispatcher
	schema     schema.Schema
	folderID   string
	pageSize   int
	policy     *fault.Policy
	log        *zap.SugaredLogger
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithPageSize sets the default page size used when the spec does not
// override it.
func WithPageSize(n int) ExecutorOption {
	return func(e *Executor) { e.pageSize = n }
}

// WithPolicy sets the fault policy applied around every dispatch call.
func WithPolicy(p *fault.Policy) ExecutorOption {
	return func(e *Executor) { e.policy = p }
}

// WithLogger attaches a logger.
func WithLogger(log *zap.SugaredLogger) ExecutorOption {
	return func(e *Executor) { e.log = log }
}

// NewExecutor builds an executor over the given dispatcher, schema and
// folder.
func NewExecutor(d types.Dispatcher, s schema.Schema, folderID string, opts ...ExecutorOption) *Executor {
	e := &Executor{
		dispatcher: d,
		schema:     s,
		folderID:   folderID,
		pageSize:   100,
		log:        zap.NewNop().Sugar(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.policy == nil {
		e.policy = fault.NewDefaultPolicy()
	}
	return e
}

// plan is the resolved, wire-ready form of a query spec.
type plan struct {
	restriction *types.Restriction
	fields      []string // wire URIs to request, nil = full default set
	idOnly      bool
	sort        []types.SortSpec
	order       []orderKey // client-side comparator, same sense as sort
	strip       [][]string // sort-only field paths removed before yielding
	pageSize    int
	shapes      []string
}

type orderKey struct {
	path       []string
	fieldType  types.FieldType
	descending bool
}

// Evaluate resolves the spec into dispatch requests and returns a lazy
// cursor over the merged result streams. Compilation and resolution errors
// surface here, before any remote call.
func (e *Executor) Evaluate(ctx context.Context, spec *query.Spec) (query.Cursor, error) {
	compiled, err := restriction.Compile(spec.Q, e.schema)
	if err != nil {
		return nil, err
	}
	if compiled != nil && compiled.Kind == types.RestrictionNever {
		return emptyCursor{}, nil
	}

	p, err := e.resolve(spec, compiled)
	if err != nil {
		return nil, err
	}

	streams := make([]*shapeStream, len(p.shapes))
	for i, shape := range p.shapes {
		streams[i] = &shapeStream{exec: e, plan: p, shape: shape}
	}

	e.log.Debugw("Evaluating query",
		logger.FieldFolder, e.folderID,
		logger.FieldShape, p.shapes,
		logger.FieldPageSize, p.pageSize,
		"id_only", p.idOnly)

	return &mergeCursor{ctx: ctx, plan: p, streams: streams, seen: make(map[string]bool)}, nil
}

// resolve turns the spec's schema-level field names into wire URIs and a
// client-side ordering comparator.
func (e *Executor) resolve(spec *query.Spec, compiled *types.Restriction) (*plan, error) {
	p := &plan{restriction: compiled, pageSize: spec.PageSize}
	if p.pageSize <= 0 {
		p.pageSize = e.pageSize
	}

	// Projection. A nil Only keeps the backend's default field set; an empty
	// one requests ids alone.
	if spec.Only != nil {
		projected := make([]string, 0, len(spec.Only))
		for _, field := range spec.Only {
			if field == query.FieldItemID || field == query.FieldChangeKey {
				continue // carried by the id, not a wire field
			}
			desc, err := e.schema.Resolve(strings.Split(field, fieldPathSep))
			if err != nil {
				return nil, err
			}
			if desc.Type == types.FieldStruct {
				return nil, &errors.UnsupportedLookupError{Field: field, Operator: "projection"}
			}
			projected = append(projected, desc.WireID)
		}
		if len(projected) == 0 {
			p.idOnly = true
		} else {
			p.fields = projected
		}
	}

	// Ordering. Fields used only for sorting are fetched and stripped before
	// the item is yielded.
	for _, of := range spec.Order {
		path := strings.Split(of.Field, fieldPathSep)
		desc, err := e.schema.Resolve(path)
		if err != nil {
			return nil, err
		}
		if desc.Type == types.FieldStruct || desc.Multivalued {
			return nil, &errors.UnsupportedLookupError{Field: of.Field, Operator: "order_by"}
		}
		descending := of.Descending != spec.Reversed
		p.sort = append(p.sort, types.SortSpec{FieldURI: desc.WireID, Descending: descending})
		p.order = append(p.order, orderKey{path: path, fieldType: desc.Type, descending: descending})

		if p.idOnly || (p.fields != nil && !containsString(p.fields, desc.WireID)) {
			p.idOnly = false
			p.fields = append(p.fields, desc.WireID)
			p.strip = append(p.strip, path)
		}
	}

	p.shapes = schema.Shapes(e.schema)
	if len(p.shapes) == 0 {
		p.shapes = []string{""}
	}
	return p, nil
}

// fetchPage dispatches one page request for a shape under the fault policy.
func (e *Executor) fetchPage(ctx context.Context, p *plan, shape string, offset int) (*types.FindResponse, error) {
	req := &types.FindRequest{
		RequestID:   uuid.NewString(),
		FolderID:    e.folderID,
		Shape:       shape,
		Restriction: p.restriction,
		Fields:      p.fields,
		IDOnly:      p.idOnly,
		Sort:        p.sort,
		Offset:      offset,
		PageSize:    p.pageSize,
	}

	var resp *types.FindResponse
	err := e.policy.Do(ctx, req.RequestID, func(ctx context.Context) error {
		var dispatchErr error
		resp, dispatchErr = e.dispatcher.FindItems(ctx, req)
		return dispatchErr
	})
	if err != nil {
		return nil, errors.Wrapf(err, "find items in %s (shape %q, offset %d)", e.folderID, shape, offset)
	}

	e.log.Debugw("Fetched page",
		logger.FieldRequestID, req.RequestID,
		logger.FieldShape, shape,
		logger.FieldOffset, offset,
		logger.FieldCount, len(resp.Items),
		"done", resp.Done)
	return resp, nil
}

func containsString(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}
