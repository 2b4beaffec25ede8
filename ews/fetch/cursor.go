package fetch

import (
	"context"
	"strconv"
	"strings"

	"github.com/tarowe/go-ews/ews/restriction"
	"github.com/tarowe/go-ews/ews/types"
)

// emptyCursor is returned for queries proven client-side to match nothing.
type emptyCursor struct{}

func (emptyCursor) Next() bool       { return false }
func (emptyCursor) Item() types.Item { return types.Item{} }
func (emptyCursor) Err() error       { return nil }

// shapeStream is the lazy paged stream of one shape's results. Pages are
// requested on demand as the buffer drains.
type shapeStream struct {
	exec   *Executor
	plan   *plan
	shape  string
	buffer []types.Item
	offset int
	done   bool
	err    error
}

// head returns the stream's next item without consuming it, fetching the
// next page if the buffer is empty. ok is false when the stream is
// exhausted or failed.
func (s *shapeStream) head(ctx context.Context) (types.Item, bool) {
	for len(s.buffer) == 0 {
		if s.done || s.err != nil {
			return types.Item{}, false
		}
		resp, err := s.exec.fetchPage(ctx, s.plan, s.shape, s.offset)
		if err != nil {
			s.err = err
			return types.Item{}, false
		}
		s.buffer = resp.Items
		s.done = resp.Done
		// An empty page that does not advance the continuation token
		// would be re-requested forever.
		if !s.done && len(resp.Items) == 0 && resp.NextOffset <= s.offset {
			s.done = true
		}
		s.offset = resp.NextOffset
	}
	return s.buffer[0], true
}

func (s *shapeStream) pop() {
	s.buffer = s.buffer[1:]
}

// mergeCursor merges the per-shape streams in query order. Each stream is
// already server-sorted, so a k-way pick of the smallest head preserves the
// global ordering. Items seen under more than one shape are yielded once.
type mergeCursor struct {
	ctx     context.Context
	plan    *plan
	streams []*shapeStream
	seen    map[string]bool
	current types.Item
	err     error
}

func (c *mergeCursor) Next() bool {
	if c.err != nil {
		return false
	}
	for {
		best := -1
		var bestItem types.Item
		for i, s := range c.streams {
			item, ok := s.head(c.ctx)
			if !ok {
				if s.err != nil {
					c.err = s.err
					return false
				}
				continue
			}
			if best < 0 || c.less(item, bestItem) {
				best, bestItem = i, item
			}
		}
		if best < 0 {
			return false
		}
		c.streams[best].pop()

		if c.seen[bestItem.ID.ID] {
			continue
		}
		c.seen[bestItem.ID.ID] = true
		c.current = c.strip(bestItem)
		return true
	}
}

func (c *mergeCursor) Item() types.Item { return c.current }

func (c *mergeCursor) Err() error { return c.err }

// less orders items by the plan's sort keys, ties broken by item id so the
// merge is deterministic.
func (c *mergeCursor) less(a, b types.Item) bool {
	for _, key := range c.plan.order {
		cmp := compareItems(key, a, b)
		if cmp == 0 {
			continue
		}
		if key.descending {
			return cmp > 0
		}
		return cmp < 0
	}
	return a.ID.ID < b.ID.ID
}

func compareItems(key orderKey, a, b types.Item) int {
	av, aok := a.Field(key.path...)
	bv, bok := b.Field(key.path...)
	if !aok || !bok {
		// Absent sorts first, matching the backend's treatment
		switch {
		case aok == bok:
			return 0
		case !aok:
			return -1
		default:
			return 1
		}
	}
	name := strings.Join(key.path, fieldPathSep)
	ac, err := restriction.Canonical(name, key.fieldType, av)
	if err != nil {
		return 0
	}
	bc, err := restriction.Canonical(name, key.fieldType, bv)
	if err != nil {
		return 0
	}
	if key.fieldType == types.FieldInt {
		an, aerr := strconv.Atoi(ac)
		bn, berr := strconv.Atoi(bc)
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
	// Canonical datetimes are fixed-width UTC, so lexical order is
	// chronological.
	return strings.Compare(ac, bc)
}

// strip removes fields that were fetched only to drive the sort.
func (c *mergeCursor) strip(item types.Item) types.Item {
	if len(c.plan.strip) == 0 {
		return item
	}
	out := item.Clone()
	for _, path := range c.plan.strip {
		removeField(out.Fields, path)
	}
	if len(out.Fields) == 0 {
		out.Fields = nil
	}
	return out
}

func removeField(fields map[string]any, path []string) {
	if fields == nil {
		return
	}
	if len(path) == 1 {
		delete(fields, path[0])
		return
	}
	nested, ok := fields[path[0]].(map[string]any)
	if !ok {
		return
	}
	removeField(nested, path[1:])
	if len(nested) == 0 {
		delete(fields, path[0])
	}
}
