package query

import (
	"context"
	"strings"

	"github.com/tarowe/go-ews/errors"
	"github.com/tarowe/go-ews/ews/types"
)

// ReturnMode selects what shape of values a QuerySet yields.
type ReturnMode int

const (
	ModeItems ReturnMode = iota
	ModeValues
	ModeValuesList
	ModeFlat
)

// Pseudo-fields always available regardless of projection.
const (
	FieldItemID    = "item_id"
	FieldChangeKey = "changekey"
)

// OrderField is one ordering entry. Fields prefixed with '-' in OrderBy
// parse to Descending.
type OrderField struct {
	Field      string
	Descending bool
}

// Spec is the immutable description of what to fetch: filter, projection,
// ordering and paging, before any remote call is made.
type Spec struct {
	Q        *Q           // nil = unrestricted
	Only     []string     // nil = default shape; empty non-nil = id-only
	Order    []OrderField // applied in sequence, ties broken by item id
	Reversed bool
	PageSize int // 0 = executor default
	Mode     ReturnMode
}

// Cursor is a forward-only, non-restartable sequence of items produced by
// one evaluation. Re-iterating the QuerySet triggers a fresh evaluation.
//
//	cur, err := qs.Iterate(ctx)
//	...
//	for cur.Next() {
//	    item := cur.Item()
//	}
//	if err := cur.Err(); err != nil { ... }
type Cursor interface {
	Next() bool
	Item() types.Item
	Err() error
}

// Evaluator executes a Spec against a concrete folder. The fetch executor
// implements it; tests substitute fakes.
type Evaluator interface {
	Evaluate(ctx context.Context, spec *Spec) (Cursor, error)
	DeleteIDs(ctx context.Context, ids []types.ItemID) ([]types.BatchOutcome, error)
}

// QuerySet is an immutable, chainable query builder. Every chaining method
// returns a new, independent QuerySet; none mutates the receiver, and no
// remote call happens until a terminal method (Iterate, Count, Exists, Get,
// Delete, Maps, Tuples, Flat) runs.
type QuerySet struct {
	eval Evaluator
	spec Spec
	err  error
}

// New creates a QuerySet over the given evaluator.
func New(eval Evaluator) *QuerySet {
	return &QuerySet{eval: eval}
}

// copy returns a shallow copy. Q trees and slices are immutable by
// convention, so sharing them between copies is safe; methods that change
// them always write fresh slices.
func (qs *QuerySet) copy() *QuerySet {
	dup := *qs
	return &dup
}

// Err returns the first configuration error recorded on the chain. The same
// error is returned by every terminal method, before any remote call.
func (qs *QuerySet) Err() error {
	if qs.err != nil {
		return qs.err
	}
	return qs.spec.Q.Err()
}

func (qs *QuerySet) fail(reason string) *QuerySet {
	dup := qs.copy()
	if dup.err == nil {
		dup.err = &errors.ConfigurationError{Reason: reason}
	}
	return dup
}

// All returns a copy of the QuerySet. A fresh evaluation is triggered when
// the copy is consumed.
func (qs *QuerySet) All() *QuerySet {
	return qs.copy()
}

// None returns a QuerySet that matches nothing and never dispatches.
func (qs *QuerySet) None() *QuerySet {
	dup := qs.copy()
	dup.spec.Q = Or()
	return dup
}

// Filter restricts the query to items matching all given expressions,
// AND-combined with any existing restriction.
func (qs *QuerySet) Filter(exprs ...*Q) *QuerySet {
	dup := qs.copy()
	for _, expr := range exprs {
		dup.spec.Q = dup.spec.Q.CombineAnd(expr)
	}
	return dup
}

// Exclude restricts the query to items matching none of the given
// expressions: each is negated before being AND-combined.
func (qs *QuerySet) Exclude(exprs ...*Q) *QuerySet {
	dup := qs.copy()
	for _, expr := range exprs {
		dup.spec.Q = dup.spec.Q.CombineAnd(expr.Negate())
	}
	return dup
}

// Only replaces the projection with the given field names. Item ids are
// always included. Calling Only after a values-style projection is a
// configuration error.
func (qs *QuerySet) Only(fields ...string) *QuerySet {
	if qs.spec.Mode != ModeItems {
		return qs.fail("Only() is not allowed after Values(), ValuesList() or Flat()")
	}
	dup := qs.copy()
	dup.spec.Only = append([]string(nil), fields...)
	return dup
}

// OrderBy replaces the ordering list. A '-' prefix sorts that field
// descending. Ties are broken by item id so pagination stays deterministic.
func (qs *QuerySet) OrderBy(fields ...string) *QuerySet {
	dup := qs.copy()
	order := make([]OrderField, 0, len(fields))
	for _, f := range fields {
		if desc := strings.HasPrefix(f, "-"); desc {
			order = append(order, OrderField{Field: f[1:], Descending: true})
		} else {
			order = append(order, OrderField{Field: f})
		}
	}
	dup.spec.Order = order
	dup.spec.Reversed = false
	return dup
}

// Reverse inverts the sense of every ordering entry. Reversing an unordered
// query records ErrNoOrdering on the chain.
func (qs *QuerySet) Reverse() *QuerySet {
	if len(qs.spec.Order) == 0 {
		dup := qs.copy()
		if dup.err == nil {
			dup.err = errors.ErrNoOrdering
		}
		return dup
	}
	dup := qs.copy()
	dup.spec.Reversed = !dup.spec.Reversed
	return dup
}

// Values switches the result shape to one field map per item, projected to
// the given fields. At least one field is required.
func (qs *QuerySet) Values(fields ...string) *QuerySet {
	if len(fields) == 0 {
		return qs.fail("Values() requires at least one field name")
	}
	dup := qs.copy()
	dup.spec.Only = append([]string(nil), fields...)
	dup.spec.Mode = ModeValues
	return dup
}

// ValuesList switches the result shape to one tuple per item, in the given
// field order.
func (qs *QuerySet) ValuesList(fields ...string) *QuerySet {
	if len(fields) == 0 {
		return qs.fail("ValuesList() requires at least one field name")
	}
	dup := qs.copy()
	dup.spec.Only = append([]string(nil), fields...)
	dup.spec.Mode = ModeValuesList
	return dup
}

// FlatValues switches the result shape to the bare values of exactly one
// field.
func (qs *QuerySet) FlatValues(field string) *QuerySet {
	dup := qs.copy()
	dup.spec.Only = []string{field}
	dup.spec.Mode = ModeFlat
	return dup
}

// PageSize overrides the executor's page size for this query.
func (qs *QuerySet) PageSize(n int) *QuerySet {
	if n < 1 {
		return qs.fail("page size must be >= 1")
	}
	dup := qs.copy()
	dup.spec.PageSize = n
	return dup
}

// Spec returns a copy of the underlying query specification.
func (qs *QuerySet) Spec() Spec {
	spec := qs.spec
	return spec
}

// Iterate evaluates the query and returns a fresh forward-only cursor.
func (qs *QuerySet) Iterate(ctx context.Context) (Cursor, error) {
	if err := qs.Err(); err != nil {
		return nil, err
	}
	spec := qs.spec
	return qs.eval.Evaluate(ctx, &spec)
}

// Count reports the number of matching items using an id-only query with no
// ordering, the least server effort possible.
func (qs *QuerySet) Count(ctx context.Context) (int, error) {
	if err := qs.Err(); err != nil {
		return 0, err
	}
	spec := qs.spec
	spec.Only = []string{}
	spec.Order = nil
	spec.Reversed = false
	spec.Mode = ModeItems

	cur, err := qs.eval.Evaluate(ctx, &spec)
	if err != nil {
		return 0, err
	}
	n := 0
	for cur.Next() {
		n++
	}
	return n, cur.Err()
}

// Exists reports whether any item matches.
func (qs *QuerySet) Exists(ctx context.Context) (bool, error) {
	n, err := qs.Count(ctx)
	return n > 0, err
}

// Get evaluates the query, optionally narrowed by extra filter expressions,
// and expects exactly one match. Zero matches return ErrDoesNotExist, more
// than one ErrMultipleResults.
func (qs *QuerySet) Get(ctx context.Context, exprs ...*Q) (types.Item, error) {
	narrowed := qs.Filter(exprs...)
	cur, err := narrowed.Iterate(ctx)
	if err != nil {
		return types.Item{}, err
	}

	var item types.Item
	n := 0
	for cur.Next() {
		if n == 0 {
			item = cur.Item()
		}
		n++
		if n > 1 {
			break
		}
	}
	if err := cur.Err(); err != nil {
		return types.Item{}, err
	}
	switch {
	case n == 0:
		return types.Item{}, errors.ErrDoesNotExist
	case n > 1:
		return types.Item{}, errors.ErrMultipleResults
	}
	return item, nil
}

// Delete evaluates an id-only form of the query and bulk-deletes every
// matching item, returning one outcome per item in fetch order.
func (qs *QuerySet) Delete(ctx context.Context) ([]types.BatchOutcome, error) {
	if err := qs.Err(); err != nil {
		return nil, err
	}
	spec := qs.spec
	spec.Only = []string{}
	spec.Order = nil
	spec.Reversed = false
	spec.Mode = ModeItems

	cur, err := qs.eval.Evaluate(ctx, &spec)
	if err != nil {
		return nil, err
	}
	var ids []types.ItemID
	for cur.Next() {
		ids = append(ids, cur.Item().ID)
	}
	if err := cur.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}
	return qs.eval.DeleteIDs(ctx, ids)
}

// Maps materializes a Values() query as field maps.
func (qs *QuerySet) Maps(ctx context.Context) ([]map[string]any, error) {
	if qs.err == nil && qs.spec.Mode != ModeValues {
		return nil, &errors.ConfigurationError{Reason: "Maps() requires Values()"}
	}
	cur, err := qs.Iterate(ctx)
	if err != nil {
		return nil, err
	}
	var out []map[string]any
	for cur.Next() {
		out = append(out, qs.projectMap(cur.Item()))
	}
	return out, cur.Err()
}

// Tuples materializes a ValuesList() query as value tuples in projection
// order.
func (qs *QuerySet) Tuples(ctx context.Context) ([][]any, error) {
	if qs.err == nil && qs.spec.Mode != ModeValuesList {
		return nil, &errors.ConfigurationError{Reason: "Tuples() requires ValuesList()"}
	}
	cur, err := qs.Iterate(ctx)
	if err != nil {
		return nil, err
	}
	var out [][]any
	for cur.Next() {
		item := cur.Item()
		row := make([]any, len(qs.spec.Only))
		for i, f := range qs.spec.Only {
			row[i] = qs.projectField(item, f)
		}
		out = append(out, row)
	}
	return out, cur.Err()
}

// Flat materializes a FlatValues() query as bare values.
func (qs *QuerySet) Flat(ctx context.Context) ([]any, error) {
	if qs.err == nil && qs.spec.Mode != ModeFlat {
		return nil, &errors.ConfigurationError{Reason: "Flat() requires FlatValues()"}
	}
	cur, err := qs.Iterate(ctx)
	if err != nil {
		return nil, err
	}
	var out []any
	for cur.Next() {
		out = append(out, qs.projectField(cur.Item(), qs.spec.Only[0]))
	}
	return out, cur.Err()
}

func (qs *QuerySet) projectMap(item types.Item) map[string]any {
	out := make(map[string]any, len(qs.spec.Only))
	for _, f := range qs.spec.Only {
		out[f] = qs.projectField(item, f)
	}
	return out
}

func (qs *QuerySet) projectField(item types.Item, field string) any {
	switch field {
	case FieldItemID:
		return item.ID.ID
	case FieldChangeKey:
		return item.ID.ChangeKey
	}
	v, _ := item.Field(strings.Split(field, lookupSep)...)
	return v
}
