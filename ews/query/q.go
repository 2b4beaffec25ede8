package query

import (
	"fmt"
	"reflect"
	"strings"
)

// Kind tags a Q node.
type Kind int

const (
	KindComparison Kind = iota
	KindAnd
	KindOr
	KindNot
)

// Q is a node in the boolean filter expression tree: a leaf comparison or an
// And/Or/Not combinator. Q values are immutable once constructed; the
// combinators return new nodes and never mutate their receivers, so a Q may
// be shared freely across queries and goroutines.
//
// An And with no children is the universal filter (matches everything); an
// Or with no children matches nothing.
type Q struct {
	Kind     Kind
	Lookup   Lookup
	Value    any
	Children []*Q

	err error
}

// Range is the operand of a range lookup: low and high bounds, both
// inclusive.
type Range struct {
	Low  any
	High any
}

// Where builds a comparison leaf from a lookup specifier and operand, e.g.
//
//	query.Where("start__gte", time.Now())
//
// A malformed specifier is carried inside the node and surfaces when the
// expression is compiled, before any remote call.
func Where(spec string, value any) *Q {
	lookup, err := ParseLookup(spec)
	if err != nil {
		return &Q{Kind: KindComparison, err: err}
	}
	return &Q{Kind: KindComparison, Lookup: lookup, Value: value}
}

// And combines expressions conjunctively. And() with no arguments is the
// universal filter.
func And(qs ...*Q) *Q {
	return &Q{Kind: KindAnd, Children: flatten(KindAnd, qs)}
}

// Or combines expressions disjunctively. Or() with no arguments matches
// nothing.
func Or(qs ...*Q) *Q {
	return &Q{Kind: KindOr, Children: flatten(KindOr, qs)}
}

// Not negates an expression.
func Not(q *Q) *Q {
	return q.Negate()
}

// flatten merges children of the same combinator kind so And(And(a,b),c)
// becomes And(a,b,c).
func flatten(kind Kind, qs []*Q) []*Q {
	out := make([]*Q, 0, len(qs))
	for _, q := range qs {
		if q == nil {
			continue
		}
		if q.Kind == kind {
			out = append(out, q.Children...)
			continue
		}
		out = append(out, q)
	}
	return out
}

// Negate wraps the expression in a Not, collapsing double negation:
// Not(Not(x)) is x.
func (q *Q) Negate() *Q {
	if q == nil {
		return nil
	}
	if q.Kind == KindNot {
		return q.Children[0]
	}
	return &Q{Kind: KindNot, Children: []*Q{q}}
}

// CombineAnd returns the conjunction of q and other, flattening nested And
// nodes. A single-child result collapses to that child.
func (q *Q) CombineAnd(other *Q) *Q {
	return combine(KindAnd, q, other)
}

// CombineOr returns the disjunction of q and other, flattening nested Or
// nodes.
func (q *Q) CombineOr(other *Q) *Q {
	return combine(KindOr, q, other)
}

func combine(kind Kind, a, b *Q) *Q {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	children := flatten(kind, []*Q{a, b})
	if len(children) == 1 {
		return children[0]
	}
	return &Q{Kind: kind, Children: children}
}

// Err returns the first construction error in the tree, if any.
func (q *Q) Err() error {
	if q == nil {
		return nil
	}
	if q.err != nil {
		return q.err
	}
	for _, child := range q.Children {
		if err := child.Err(); err != nil {
			return err
		}
	}
	return nil
}

// Equal reports structural equality, including operand equality.
func (q *Q) Equal(o *Q) bool {
	if q == nil || o == nil {
		return q == o
	}
	if q.Kind != o.Kind {
		return false
	}
	if q.Kind == KindComparison {
		return q.Lookup.Op == o.Lookup.Op &&
			reflect.DeepEqual(q.Lookup.Path, o.Lookup.Path) &&
			reflect.DeepEqual(q.Value, o.Value)
	}
	if len(q.Children) != len(o.Children) {
		return false
	}
	for i := range q.Children {
		if !q.Children[i].Equal(o.Children[i]) {
			return false
		}
	}
	return true
}

// String renders the expression for diagnostics.
func (q *Q) String() string {
	if q == nil {
		return "<nil>"
	}
	switch q.Kind {
	case KindComparison:
		if q.err != nil {
			return fmt.Sprintf("<invalid: %v>", q.err)
		}
		return fmt.Sprintf("%s__%s=%v", q.Lookup.FieldName(), q.Lookup.Op, q.Value)
	case KindNot:
		return fmt.Sprintf("NOT (%s)", q.Children[0])
	case KindAnd, KindOr:
		word := " AND "
		if q.Kind == KindOr {
			word = " OR "
		}
		parts := make([]string, len(q.Children))
		for i, child := range q.Children {
			parts[i] = child.String()
		}
		return "(" + strings.Join(parts, word) + ")"
	default:
		return "<unknown>"
	}
}
