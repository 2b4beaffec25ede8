// Package schema resolves field paths against an item schema. The schema is
// an external collaborator of the query engine; Registry is the standard
// map-backed implementation.
package schema

import (
	"sort"

	"github.com/tarowe/go-ews/errors"
	"github.com/tarowe/go-ews/ews/types"
)

// Schema looks up field descriptors by path. Paths traverse nested
// structured attributes, e.g. ["organizer", "email_address"].
type Schema interface {
	Resolve(path []string) (*types.FieldDescriptor, error)
	// FieldNames returns the top-level field names in sorted order.
	FieldNames() []string
}

// Registry is a map-backed Schema.
type Registry struct {
	fields map[string]*types.FieldDescriptor
}

// NewRegistry creates a schema from top-level field descriptors.
func NewRegistry(fields map[string]*types.FieldDescriptor) *Registry {
	return &Registry{fields: fields}
}

// Resolve walks the path through nested descriptors. Every intermediate
// segment must be a struct field; a miss at any depth is an
// UnknownFieldError carrying the full requested path.
func (r *Registry) Resolve(path []string) (*types.FieldDescriptor, error) {
	if len(path) == 0 {
		return nil, &errors.UnknownFieldError{Path: path}
	}

	fields := r.fields
	var desc *types.FieldDescriptor
	for _, seg := range path {
		if fields == nil {
			return nil, &errors.UnknownFieldError{Path: path}
		}
		d, ok := fields[seg]
		if !ok {
			return nil, &errors.UnknownFieldError{Path: path}
		}
		desc = d
		fields = d.Fields
	}
	return desc, nil
}

// FieldNames returns the top-level field names in sorted order.
func (r *Registry) FieldNames() []string {
	names := make([]string, 0, len(r.fields))
	for name := range r.fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Shapes returns the distinct non-empty item shapes declared by top-level
// fields, sorted for deterministic fan-out.
func Shapes(s Schema) []string {
	seen := map[string]bool{}
	for _, name := range s.FieldNames() {
		desc, err := s.Resolve([]string{name})
		if err != nil {
			continue
		}
		if desc.Shape != "" && !seen[desc.Shape] {
			seen[desc.Shape] = true
		}
	}
	shapes := make([]string, 0, len(seen))
	for shape := range seen {
		shapes = append(shapes, shape)
	}
	sort.Strings(shapes)
	return shapes
}
