package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tarowe/go-ews/errors"
	"github.com/tarowe/go-ews/ews/types"
)

func TestResolveTopLevel(t *testing.T) {
	s := DefaultItemSchema()

	desc, err := s.Resolve([]string{"subject"})
	require.NoError(t, err)
	assert.Equal(t, "item:Subject", desc.WireID)
	assert.Equal(t, types.FieldString, desc.Type)
	assert.False(t, desc.Multivalued)
}

func TestResolveNested(t *testing.T) {
	s := DefaultItemSchema()

	desc, err := s.Resolve([]string{"organizer", "email_address"})
	require.NoError(t, err)
	assert.Equal(t, "calendar:Organizer/EmailAddress", desc.WireID)
	assert.Equal(t, types.FieldString, desc.Type)
}

func TestResolveUnknown(t *testing.T) {
	s := DefaultItemSchema()

	for _, path := range [][]string{
		{"subjekt"},
		{"organizer", "fax"},
		{"subject", "nested"}, // scalar has no children
		{},
	} {
		_, err := s.Resolve(path)
		var unknown *errors.UnknownFieldError
		require.ErrorAs(t, err, &unknown, "path %v", path)
	}
}

func TestFieldNamesSorted(t *testing.T) {
	names := DefaultItemSchema().FieldNames()
	require.NotEmpty(t, names)
	assert.IsIncreasing(t, names)
	assert.Contains(t, names, "start")
	assert.Contains(t, names, "is_read")
}

func TestShapes(t *testing.T) {
	assert.Equal(t, []string{"meeting_request", "message"}, Shapes(DefaultItemSchema()))
}
