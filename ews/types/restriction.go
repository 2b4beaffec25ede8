package types

// RestrictionKind tags a node in the compiled restriction tree.
type RestrictionKind int

const (
	RestrictionComparison RestrictionKind = iota
	RestrictionAnd
	RestrictionOr
	RestrictionNot
	// RestrictionNever matches nothing. The wire protocol has no such node;
	// the fetch executor short-circuits it to an empty result without
	// dispatching.
	RestrictionNever
)

// CompareOp is a protocol comparison operator.
type CompareOp int

const (
	OpEqual CompareOp = iota
	OpGreater
	OpGreaterEqual
	OpLess
	OpLessEqual
	OpContainment
)

func (op CompareOp) String() string {
	switch op {
	case OpEqual:
		return "IsEqualTo"
	case OpGreater:
		return "IsGreaterThan"
	case OpGreaterEqual:
		return "IsGreaterThanOrEqualTo"
	case OpLess:
		return "IsLessThan"
	case OpLessEqual:
		return "IsLessThanOrEqualTo"
	case OpContainment:
		return "Contains"
	default:
		return "unknown"
	}
}

// ContainmentMode selects how an OpContainment comparison matches.
type ContainmentMode int

const (
	MatchFullString ContainmentMode = iota
	MatchPrefix
	MatchSubstring
)

func (m ContainmentMode) String() string {
	switch m {
	case MatchFullString:
		return "FullString"
	case MatchPrefix:
		return "Prefixed"
	case MatchSubstring:
		return "Substring"
	default:
		return "unknown"
	}
}

// Restriction is a compiled, schema-validated, wire-ready filter node. Field
// identifiers are fully resolved wire URIs and Value holds the type-coerced
// canonical literal. Built once per query evaluation, never mutated.
type Restriction struct {
	Kind RestrictionKind

	// Comparison leaves
	FieldURI   string
	Op         CompareOp
	Mode       ContainmentMode // for OpContainment
	IgnoreCase bool            // case folding happens on the backend
	Value      string

	// And/Or/Not
	Children []*Restriction
}

// Equal reports structural equality.
func (r *Restriction) Equal(o *Restriction) bool {
	if r == nil || o == nil {
		return r == o
	}
	if r.Kind != o.Kind || r.FieldURI != o.FieldURI || r.Op != o.Op ||
		r.Mode != o.Mode || r.IgnoreCase != o.IgnoreCase || r.Value != o.Value {
		return false
	}
	if len(r.Children) != len(o.Children) {
		return false
	}
	for i := range r.Children {
		if !r.Children[i].Equal(o.Children[i]) {
			return false
		}
	}
	return true
}
