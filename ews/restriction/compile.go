// Package restriction compiles query expression trees into protocol-level
// restriction structures: field paths resolved against the schema, operands
// type-coerced to canonical wire literals, and high-level lookups lowered to
// the comparison nodes the backend validates.
package restriction

import (
	"sort"
	"time"

	"github.com/tarowe/go-ews/errors"
	"github.com/tarowe/go-ews/ews/query"
	"github.com/tarowe/go-ews/ews/schema"
	"github.com/tarowe/go-ews/ews/types"
)

// Compile walks the expression tree and emits a wire-ready restriction.
//
// A nil result with nil error is the universal restriction (matches
// everything); a RestrictionNever node matches nothing and is short-circuited
// by the executor. All errors here are caller programming errors and are
// reported before any remote call.
func Compile(q *query.Q, s schema.Schema) (*types.Restriction, error) {
	if q == nil {
		return nil, nil
	}
	if err := q.Err(); err != nil {
		return nil, err
	}
	return compileNode(q, s)
}

func compileNode(q *query.Q, s schema.Schema) (*types.Restriction, error) {
	switch q.Kind {
	case query.KindComparison:
		return compileComparison(q, s)
	case query.KindAnd:
		return compileAnd(q.Children, s)
	case query.KindOr:
		return compileOr(q.Children, s)
	case query.KindNot:
		return compileNot(q.Children[0], s)
	default:
		return nil, errors.AssertionFailedf("unhandled expression kind %d", q.Kind)
	}
}

// compileAnd drops universal children and collapses to Never if any child
// never matches. An empty conjunction is universal.
func compileAnd(children []*query.Q, s schema.Schema) (*types.Restriction, error) {
	compiled := make([]*types.Restriction, 0, len(children))
	for _, child := range children {
		r, err := compileNode(child, s)
		if err != nil {
			return nil, err
		}
		if r == nil {
			continue
		}
		if r.Kind == types.RestrictionNever {
			return &types.Restriction{Kind: types.RestrictionNever}, nil
		}
		compiled = append(compiled, r)
	}
	switch len(compiled) {
	case 0:
		return nil, nil
	case 1:
		return compiled[0], nil
	}
	return &types.Restriction{Kind: types.RestrictionAnd, Children: compiled}, nil
}

// compileOr drops never-matching children and collapses to universal if any
// child matches everything. An empty disjunction never matches.
func compileOr(children []*query.Q, s schema.Schema) (*types.Restriction, error) {
	compiled := make([]*types.Restriction, 0, len(children))
	for _, child := range children {
		r, err := compileNode(child, s)
		if err != nil {
			return nil, err
		}
		if r == nil {
			return nil, nil
		}
		if r.Kind == types.RestrictionNever {
			continue
		}
		compiled = append(compiled, r)
	}
	switch len(compiled) {
	case 0:
		return &types.Restriction{Kind: types.RestrictionNever}, nil
	case 1:
		return compiled[0], nil
	}
	return &types.Restriction{Kind: types.RestrictionOr, Children: compiled}, nil
}

func compileNot(child *query.Q, s schema.Schema) (*types.Restriction, error) {
	r, err := compileNode(child, s)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return &types.Restriction{Kind: types.RestrictionNever}, nil
	}
	if r.Kind == types.RestrictionNever {
		return nil, nil
	}
	return &types.Restriction{Kind: types.RestrictionNot, Children: []*types.Restriction{r}}, nil
}

func compileComparison(q *query.Q, s schema.Schema) (*types.Restriction, error) {
	lookup := q.Lookup

	desc, err := s.Resolve(lookup.Path)
	if err != nil {
		// A trailing segment that resolves once removed is a typo'd operator
		// suffix, not an unknown field.
		if len(lookup.Path) > 1 {
			if _, parentErr := s.Resolve(lookup.Path[:len(lookup.Path)-1]); parentErr == nil {
				return nil, &errors.InvalidLookupError{
					Spec:   lookup.FieldName(),
					Reason: "unrecognized operator " + `"` + lookup.Path[len(lookup.Path)-1] + `"`,
				}
			}
		}
		return nil, err
	}

	if desc.Type == types.FieldStruct {
		return nil, &errors.UnsupportedLookupError{Field: lookup.FieldName(), Operator: lookup.Op.String()}
	}
	if err := checkOperator(lookup, desc); err != nil {
		return nil, err
	}

	if desc.Multivalued {
		return compileMembership(lookup, desc, q.Value)
	}

	switch lookup.Op {
	case query.OpRange:
		return compileRange(lookup, desc, q.Value)
	case query.OpIn:
		return compileIn(lookup, desc, q.Value)
	case query.OpNot:
		leaf, err := comparisonLeaf(lookup.FieldName(), desc, query.OpEq, q.Value)
		if err != nil {
			return nil, err
		}
		return &types.Restriction{Kind: types.RestrictionNot, Children: []*types.Restriction{leaf}}, nil
	default:
		return comparisonLeaf(lookup.FieldName(), desc, lookup.Op, q.Value)
	}
}

// checkOperator validates the lookup operator against the field's declared
// type.
func checkOperator(lookup query.Lookup, desc *types.FieldDescriptor) error {
	unsupported := func() error {
		return &errors.UnsupportedLookupError{Field: lookup.FieldName(), Operator: lookup.Op.String()}
	}

	if desc.Multivalued {
		// Membership tests only
		switch lookup.Op {
		case query.OpContains, query.OpIContains, query.OpIn:
			return nil
		default:
			return unsupported()
		}
	}

	switch desc.Type {
	case types.FieldString:
		return nil // every operator has string semantics
	case types.FieldInt, types.FieldDateTime:
		switch lookup.Op {
		case query.OpEq, query.OpNot, query.OpGT, query.OpGTE, query.OpLT, query.OpLTE,
			query.OpRange, query.OpIn:
			return nil
		default:
			return unsupported()
		}
	case types.FieldBool:
		switch lookup.Op {
		case query.OpEq, query.OpNot, query.OpIn:
			return nil
		default:
			return unsupported()
		}
	default:
		return unsupported()
	}
}

// compileMembership lowers contains/in on a multivalued field to existential
// membership tests built from the field's scalar comparison: contains
// requires every listed value to be present (conjunction), in requires any
// (disjunction).
func compileMembership(lookup query.Lookup, desc *types.FieldDescriptor, operand any) (*types.Restriction, error) {
	values, err := coerceSet(lookup.FieldName(), desc, operand)
	if err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return &types.Restriction{Kind: types.RestrictionNever}, nil
	}

	leaves := make([]*types.Restriction, len(values))
	for i, v := range values {
		leaves[i] = &types.Restriction{
			Kind:       types.RestrictionComparison,
			FieldURI:   desc.WireID,
			Op:         types.OpContainment,
			Mode:       types.MatchFullString,
			IgnoreCase: lookup.Op.CaseInsensitive(),
			Value:      v,
		}
	}
	if len(leaves) == 1 {
		return leaves[0], nil
	}
	kind := types.RestrictionAnd
	if lookup.Op == query.OpIn {
		kind = types.RestrictionOr
	}
	return &types.Restriction{Kind: kind, Children: leaves}, nil
}

// compileRange lowers field__range=(low, high) to gte(low) AND lte(high).
func compileRange(lookup query.Lookup, desc *types.FieldDescriptor, operand any) (*types.Restriction, error) {
	var low, high any
	switch v := operand.(type) {
	case query.Range:
		low, high = v.Low, v.High
	case *query.Range:
		low, high = v.Low, v.High
	case []any:
		if len(v) != 2 {
			return nil, &errors.TypeCoercionError{Field: lookup.FieldName(), Value: operand, Want: "(low, high) pair"}
		}
		low, high = v[0], v[1]
	default:
		return nil, &errors.TypeCoercionError{Field: lookup.FieldName(), Value: operand, Want: "(low, high) pair"}
	}

	lower, err := comparisonLeaf(lookup.FieldName(), desc, query.OpGTE, low)
	if err != nil {
		return nil, err
	}
	upper, err := comparisonLeaf(lookup.FieldName(), desc, query.OpLTE, high)
	if err != nil {
		return nil, err
	}
	return &types.Restriction{
		Kind:     types.RestrictionAnd,
		Children: []*types.Restriction{lower, upper},
	}, nil
}

// compileIn lowers field__in=set on a scalar field to a disjunction of
// equality leaves. An empty set never matches.
func compileIn(lookup query.Lookup, desc *types.FieldDescriptor, operand any) (*types.Restriction, error) {
	values, err := coerceSet(lookup.FieldName(), desc, operand)
	if err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return &types.Restriction{Kind: types.RestrictionNever}, nil
	}

	leaves := make([]*types.Restriction, len(values))
	for i, v := range values {
		leaves[i] = &types.Restriction{
			Kind:     types.RestrictionComparison,
			FieldURI: desc.WireID,
			Op:       types.OpEqual,
			Value:    v,
		}
	}
	if len(leaves) == 1 {
		return leaves[0], nil
	}
	return &types.Restriction{Kind: types.RestrictionOr, Children: leaves}, nil
}

// comparisonLeaf emits a single wire comparison for a scalar lookup.
func comparisonLeaf(field string, desc *types.FieldDescriptor, op query.Operator, operand any) (*types.Restriction, error) {
	value, err := Canonical(field, desc.Type, operand)
	if err != nil {
		return nil, err
	}

	leaf := &types.Restriction{
		Kind:     types.RestrictionComparison,
		FieldURI: desc.WireID,
		Value:    value,
	}

	switch op {
	case query.OpEq:
		leaf.Op = types.OpEqual
	case query.OpGT:
		leaf.Op = types.OpGreater
	case query.OpGTE:
		leaf.Op = types.OpGreaterEqual
	case query.OpLT:
		leaf.Op = types.OpLess
	case query.OpLTE:
		leaf.Op = types.OpLessEqual
	case query.OpIExact:
		leaf.Op = types.OpContainment
		leaf.Mode = types.MatchFullString
		leaf.IgnoreCase = true
	case query.OpContains, query.OpIContains:
		leaf.Op = types.OpContainment
		leaf.Mode = types.MatchSubstring
		leaf.IgnoreCase = op.CaseInsensitive()
	case query.OpStartsWith, query.OpIStartsWith:
		leaf.Op = types.OpContainment
		leaf.Mode = types.MatchPrefix
		leaf.IgnoreCase = op.CaseInsensitive()
	default:
		return nil, errors.AssertionFailedf("operator %s is not a scalar comparison", op)
	}

	return leaf, nil
}

// coerceSet canonicalizes a multi-value operand into an ordered, duplicate-
// free sequence. A bare scalar is treated as a one-element set.
func coerceSet(field string, desc *types.FieldDescriptor, operand any) ([]string, error) {
	raw, ok := anySlice(operand)
	if !ok {
		raw = []any{operand}
	}

	seen := make(map[string]bool, len(raw))
	values := make([]string, 0, len(raw))
	for _, v := range raw {
		canon, err := Canonical(field, desc.Type, v)
		if err != nil {
			return nil, err
		}
		if !seen[canon] {
			seen[canon] = true
			values = append(values, canon)
		}
	}
	sort.Strings(values)
	return values, nil
}

func anySlice(operand any) ([]any, bool) {
	switch v := operand.(type) {
	case []any:
		return v, true
	case []string:
		out := make([]any, len(v))
		for i, s := range v {
			out[i] = s
		}
		return out, true
	case []int:
		out := make([]any, len(v))
		for i, n := range v {
			out[i] = n
		}
		return out, true
	case []time.Time:
		out := make([]any, len(v))
		for i, ts := range v {
			out[i] = ts
		}
		return out, true
	default:
		return nil, false
	}
}
