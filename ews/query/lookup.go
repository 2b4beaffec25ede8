// Package query implements the declarative query surface of go-ews: the
// field__operator lookup syntax, the boolean filter expression tree Q, and
// the chainable deferred-execution QuerySet.
package query

import (
	"strings"

	"github.com/tarowe/go-ews/errors"
)

// Operator is a lookup comparison operator.
type Operator int

const (
	OpEq Operator = iota
	OpIExact
	OpContains
	OpIContains
	OpStartsWith
	OpIStartsWith
	OpGT
	OpGTE
	OpLT
	OpLTE
	OpRange
	OpIn
	OpNot
)

// lookupSep separates path segments and the operator suffix in a lookup
// specifier, e.g. "organizer__email_address__startswith".
const lookupSep = "__"

var operatorNames = map[string]Operator{
	"eq":          OpEq,
	"iexact":      OpIExact,
	"contains":    OpContains,
	"icontains":   OpIContains,
	"startswith":  OpStartsWith,
	"istartswith": OpIStartsWith,
	"gt":          OpGT,
	"gte":         OpGTE,
	"lt":          OpLT,
	"lte":         OpLTE,
	"range":       OpRange,
	"in":          OpIn,
	"not":         OpNot,
}

func (op Operator) String() string {
	for name, o := range operatorNames {
		if o == op {
			return name
		}
	}
	return "unknown"
}

// CaseInsensitive reports whether the operator requests case folding on the
// backend.
func (op Operator) CaseInsensitive() bool {
	switch op {
	case OpIExact, OpIContains, OpIStartsWith:
		return true
	default:
		return false
	}
}

// Lookup is a parsed field-plus-operator filter clause.
type Lookup struct {
	Path []string
	Op   Operator
}

// FieldName returns the lookup's field path in specifier form.
func (l Lookup) FieldName() string {
	return strings.Join(l.Path, lookupSep)
}

// ParseLookup splits a specifier such as "start__gte" into a field path and
// operator. The suffix after the last separator is the operator if it names
// one; otherwise the whole specifier is the field path and the operator
// defaults to eq. An empty field path is invalid.
func ParseLookup(spec string) (Lookup, error) {
	segments := strings.Split(spec, lookupSep)

	op := OpEq
	if len(segments) > 1 {
		last := segments[len(segments)-1]
		if o, ok := operatorNames[last]; ok {
			op = o
			segments = segments[:len(segments)-1]
		}
	}

	for _, seg := range segments {
		if seg == "" {
			return Lookup{}, &errors.InvalidLookupError{Spec: spec, Reason: "empty field path segment"}
		}
	}
	if len(segments) == 0 || (len(segments) == 1 && segments[0] == "") {
		return Lookup{}, &errors.InvalidLookupError{Spec: spec, Reason: "empty field path"}
	}

	return Lookup{Path: segments, Op: op}, nil
}
