// Package ewstest provides an in-memory Dispatcher for tests. It evaluates
// restriction trees against a folder of items the way the remote service
// would, honoring shape, sort, projection and paging, so executor behavior
// can be exercised without a live backend.
package ewstest

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/tarowe/go-ews/errors"
	"github.com/tarowe/go-ews/ews/restriction"
	"github.com/tarowe/go-ews/ews/schema"
	"github.com/tarowe/go-ews/ews/types"
)

type fieldRef struct {
	path []string
	desc *types.FieldDescriptor
}

// Dispatcher is a scriptable fake for types.Dispatcher.
//
// FindErr and BulkErr, when set, are consulted before serving a request and
// make the whole call fail. ItemErr makes individual bulk items fail while
// the chunk as a whole succeeds.
type Dispatcher struct {
	mu      sync.Mutex
	schema  schema.Schema
	byWire  map[string]fieldRef
	items   map[string][]types.Item // keyed by folder id
	nextID  int
	// CreateShape is the item shape assigned to bulk-created items.
	CreateShape string
	FindErr func(req *types.FindRequest) error
	BulkErr func(req *types.BulkRequest) error
	ItemErr func(item types.BulkItem) error

	FindCalls []types.FindRequest
	BulkCalls []types.BulkRequest
}

// New builds a fake dispatcher serving the given schema.
func New(s schema.Schema) *Dispatcher {
	d := &Dispatcher{
		schema:      s,
		byWire:      make(map[string]fieldRef),
		items:       make(map[string][]types.Item),
		CreateShape: "message",
	}
	for _, name := range s.FieldNames() {
		desc, err := s.Resolve([]string{name})
		if err != nil {
			continue
		}
		d.indexField([]string{name}, desc)
	}
	return d
}

func (d *Dispatcher) indexField(path []string, desc *types.FieldDescriptor) {
	if desc.Type == types.FieldStruct {
		for child, childDesc := range desc.Fields {
			d.indexField(append(append([]string{}, path...), child), childDesc)
		}
		return
	}
	d.byWire[desc.WireID] = fieldRef{path: path, desc: desc}
}

// Add stores items in a folder. IDs are assigned when absent.
func (d *Dispatcher) Add(folderID string, items ...types.Item) []types.ItemID {
	d.mu.Lock()
	defer d.mu.Unlock()
	ids := make([]types.ItemID, len(items))
	for i, item := range items {
		if item.ID.ID == "" {
			d.nextID++
			item.ID = types.ItemID{ID: fmt.Sprintf("item-%04d", d.nextID), ChangeKey: "ck-1"}
		}
		ids[i] = item.ID
		d.items[folderID] = append(d.items[folderID], item)
	}
	return ids
}

// Items returns a copy of the folder's current contents.
func (d *Dispatcher) Items(folderID string) []types.Item {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]types.Item, len(d.items[folderID]))
	copy(out, d.items[folderID])
	return out
}

// FindItems serves one page of matching items in the requested shape.
func (d *Dispatcher) FindItems(_ context.Context, req *types.FindRequest) (*types.FindResponse, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.FindCalls = append(d.FindCalls, *req)
	if d.FindErr != nil {
		if err := d.FindErr(req); err != nil {
			return nil, err
		}
	}

	var matched []types.Item
	for _, item := range d.items[req.FolderID] {
		if req.Shape != "" && item.Shape != req.Shape {
			continue
		}
		ok, err := d.matches(req.Restriction, item)
		if err != nil {
			return nil, err
		}
		if ok {
			matched = append(matched, item)
		}
	}

	d.sortItems(matched, req.Sort)

	total := len(matched)
	offset := req.Offset
	if offset > total {
		offset = total
	}
	end := total
	if req.PageSize > 0 && offset+req.PageSize < total {
		end = offset + req.PageSize
	}

	page := make([]types.Item, 0, end-offset)
	for _, item := range matched[offset:end] {
		page = append(page, d.project(item, req))
	}

	return &types.FindResponse{
		Items:      page,
		NextOffset: end,
		Done:       end >= total,
	}, nil
}

// ExecuteBulk applies one chunk of a bulk mutation.
func (d *Dispatcher) ExecuteBulk(_ context.Context, req *types.BulkRequest) (*types.BulkResponse, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.BulkCalls = append(d.BulkCalls, *req)
	if d.BulkErr != nil {
		if err := d.BulkErr(req); err != nil {
			return nil, err
		}
	}

	resp := &types.BulkResponse{Results: make([]types.BulkResult, len(req.Items))}
	for i, item := range req.Items {
		if d.ItemErr != nil {
			if err := d.ItemErr(item); err != nil {
				resp.Results[i] = types.BulkResult{ID: item.ID, Err: err}
				continue
			}
		}
		switch req.Kind {
		case types.BulkDelete:
			d.remove(req.FolderID, item.ID)
			resp.Results[i] = types.BulkResult{ID: item.ID}
		case types.BulkCreate:
			d.nextID++
			id := types.ItemID{ID: fmt.Sprintf("item-%04d", d.nextID), ChangeKey: "ck-1"}
			d.items[req.FolderID] = append(d.items[req.FolderID], types.Item{ID: id, Shape: d.CreateShape, Fields: item.Fields})
			resp.Results[i] = types.BulkResult{ID: id}
		case types.BulkUpdate:
			resp.Results[i] = types.BulkResult{ID: item.ID, Err: d.update(req.FolderID, item)}
		}
	}
	return resp, nil
}

func (d *Dispatcher) remove(folderID string, id types.ItemID) {
	items := d.items[folderID]
	for i, item := range items {
		if item.ID.ID == id.ID {
			d.items[folderID] = append(items[:i], items[i+1:]...)
			return
		}
	}
}

func (d *Dispatcher) update(folderID string, upd types.BulkItem) error {
	for i, item := range d.items[folderID] {
		if item.ID.ID == upd.ID.ID {
			for k, v := range upd.Fields {
				if item.Fields == nil {
					item.Fields = make(map[string]any)
				}
				item.Fields[k] = v
			}
			d.items[folderID][i] = item
			return nil
		}
	}
	return errors.NewRemote(errors.KindItemNotFound, "no such item: "+upd.ID.ID)
}

// project returns the item trimmed to the requested field set. IDOnly strips
// all fields.
func (d *Dispatcher) project(item types.Item, req *types.FindRequest) types.Item {
	out := types.Item{ID: item.ID, Shape: item.Shape}
	if req.IDOnly {
		return out
	}
	if len(req.Fields) == 0 {
		return item.Clone()
	}
	out.Fields = make(map[string]any)
	for _, wireID := range req.Fields {
		ref, known := d.byWire[wireID]
		if !known {
			continue
		}
		v, present := item.Field(ref.path...)
		if !present {
			continue
		}
		dst := out.Fields
		for _, seg := range ref.path[:len(ref.path)-1] {
			next, ok := dst[seg].(map[string]any)
			if !ok {
				next = make(map[string]any)
				dst[seg] = next
			}
			dst = next
		}
		dst[ref.path[len(ref.path)-1]] = v
	}
	return out
}

func (d *Dispatcher) sortItems(items []types.Item, specs []types.SortSpec) {
	if len(specs) == 0 {
		sort.SliceStable(items, func(i, j int) bool { return items[i].ID.ID < items[j].ID.ID })
		return
	}
	sort.SliceStable(items, func(i, j int) bool {
		for _, spec := range specs {
			cmp := d.compareField(spec.FieldURI, items[i], items[j])
			if cmp == 0 {
				continue
			}
			if spec.Descending {
				return cmp > 0
			}
			return cmp < 0
		}
		return items[i].ID.ID < items[j].ID.ID
	})
}

func (d *Dispatcher) compareField(wireID string, a, b types.Item) int {
	ref, known := d.byWire[wireID]
	if !known {
		return 0
	}
	av, aok := a.Field(ref.path...)
	bv, bok := b.Field(ref.path...)
	if !aok || !bok {
		if aok == bok {
			return 0
		}
		if !aok {
			return -1
		}
		return 1
	}
	ac, err := restriction.Canonical(strings.Join(ref.path, "__"), ref.desc.Type, av)
	if err != nil {
		return 0
	}
	bc, err := restriction.Canonical(strings.Join(ref.path, "__"), ref.desc.Type, bv)
	if err != nil {
		return 0
	}
	return compareCanonical(ref.desc.Type, ac, bc)
}

func compareCanonical(t types.FieldType, a, b string) int {
	if t == types.FieldInt {
		an, aerr := strconv.Atoi(a)
		bn, berr := strconv.Atoi(b)
		if aerr == nil && berr == nil {
			switch {
			case an < bn:
				return -1
			case an > bn:
				return 1
			default:
				return 0
			}
		}
	}
	// Canonical datetimes are fixed-width UTC so lexical order is
	// chronological; strings compare lexically by definition.
	return strings.Compare(a, b)
}

func (d *Dispatcher) matches(r *types.Restriction, item types.Item) (bool, error) {
	if r == nil {
		return true, nil
	}
	switch r.Kind {
	case types.RestrictionNever:
		return false, nil
	case types.RestrictionAnd:
		for _, child := range r.Children {
			ok, err := d.matches(child, item)
			if err != nil || !ok {
				return false, err
			}
		}
		return true, nil
	case types.RestrictionOr:
		for _, child := range r.Children {
			ok, err := d.matches(child, item)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil
	case types.RestrictionNot:
		ok, err := d.matches(r.Children[0], item)
		return !ok, err
	case types.RestrictionComparison:
		return d.matchComparison(r, item)
	default:
		return false, errors.NewRemote(errors.KindSchemaViolation, "unknown restriction kind")
	}
}

func (d *Dispatcher) matchComparison(r *types.Restriction, item types.Item) (bool, error) {
	ref, known := d.byWire[r.FieldURI]
	if !known {
		return false, errors.NewRemote(errors.KindSchemaViolation, "unknown field URI "+r.FieldURI)
	}
	raw, present := item.Field(ref.path...)
	if !present {
		return false, nil
	}

	if ref.desc.Multivalued {
		for _, element := range multiElements(raw) {
			canon, err := restriction.Canonical(r.FieldURI, ref.desc.Type, element)
			if err != nil {
				continue
			}
			if matchScalar(r, ref.desc.Type, canon) {
				return true, nil
			}
		}
		return false, nil
	}

	canon, err := restriction.Canonical(r.FieldURI, ref.desc.Type, raw)
	if err != nil {
		return false, nil
	}
	return matchScalar(r, ref.desc.Type, canon), nil
}

func matchScalar(r *types.Restriction, t types.FieldType, itemValue string) bool {
	switch r.Op {
	case types.OpEqual:
		return itemValue == r.Value
	case types.OpGreater:
		return compareCanonical(t, itemValue, r.Value) > 0
	case types.OpGreaterEqual:
		return compareCanonical(t, itemValue, r.Value) >= 0
	case types.OpLess:
		return compareCanonical(t, itemValue, r.Value) < 0
	case types.OpLessEqual:
		return compareCanonical(t, itemValue, r.Value) <= 0
	case types.OpContainment:
		have, want := itemValue, r.Value
		if r.IgnoreCase {
			have, want = strings.ToLower(have), strings.ToLower(want)
		}
		switch r.Mode {
		case types.MatchFullString:
			return have == want
		case types.MatchPrefix:
			return strings.HasPrefix(have, want)
		case types.MatchSubstring:
			return strings.Contains(have, want)
		}
	}
	return false
}

func multiElements(raw any) []any {
	switch v := raw.(type) {
	case []any:
		return v
	case []string:
		out := make([]any, len(v))
		for i, s := range v {
			out[i] = s
		}
		return out
	default:
		return []any{raw}
	}
}
