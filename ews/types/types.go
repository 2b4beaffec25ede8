// Package types holds the wire-level value types shared by the go-ews query
// engine: item identities, field descriptors, restriction trees and the
// dispatch request/response shapes. Everything here is plain data; behavior
// lives in the packages that consume it.
package types

// ItemID identifies an item on the server. ChangeKey is the server's
// optimistic-concurrency token and may be empty on id-only results from
// backends that omit it.
type ItemID struct {
	ID        string
	ChangeKey string
}

// Item is a fetched mailbox item. Fields holds the projected attribute
// values keyed by schema field name; nested structured attributes appear as
// map[string]any values.
type Item struct {
	ID     ItemID
	Shape  string // concrete subtype, e.g. "message" or "meeting_request"
	Fields map[string]any
}

// Field returns the value at the given path, traversing nested structured
// attributes. ok is false when any segment is absent.
func (i Item) Field(path ...string) (any, bool) {
	if len(path) == 0 {
		return nil, false
	}
	var cur any = i.Fields
	for _, seg := range path {
		m, isMap := cur.(map[string]any)
		if !isMap {
			return nil, false
		}
		v, present := m[seg]
		if !present {
			return nil, false
		}
		cur = v
	}
	return cur, true
}

// Clone returns a deep copy of the item's field map so callers can strip
// sort-only fields without aliasing dispatcher-owned data.
func (i Item) Clone() Item {
	out := Item{ID: i.ID, Shape: i.Shape}
	if i.Fields != nil {
		out.Fields = cloneFields(i.Fields)
	}
	return out
}

func cloneFields(src map[string]any) map[string]any {
	dst := make(map[string]any, len(src))
	for k, v := range src {
		if m, ok := v.(map[string]any); ok {
			dst[k] = cloneFields(m)
			continue
		}
		dst[k] = v
	}
	return dst
}

// FieldType is the declared scalar type of a schema field.
type FieldType int

const (
	FieldString FieldType = iota
	FieldInt
	FieldBool
	FieldDateTime
	FieldStruct // nested structured attribute, resolved via Fields
)

func (t FieldType) String() string {
	switch t {
	case FieldString:
		return "string"
	case FieldInt:
		return "int"
	case FieldBool:
		return "bool"
	case FieldDateTime:
		return "datetime"
	case FieldStruct:
		return "struct"
	default:
		return "unknown"
	}
}

// FieldDescriptor describes one schema field: its wire identifier, declared
// type, whether it holds multiple values, which concrete item shape it
// belongs to ("" = common to all shapes), and nested fields for structured
// attributes.
type FieldDescriptor struct {
	WireID      string // protocol field URI, e.g. "item:Subject"
	Type        FieldType
	Multivalued bool
	Shape       string
	Fields      map[string]*FieldDescriptor
}
