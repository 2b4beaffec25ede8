package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tarowe/go-ews/errors"
)

func TestParseLookup(t *testing.T) {
	tests := []struct {
		spec     string
		wantPath []string
		wantOp   Operator
	}{
		{"subject", []string{"subject"}, OpEq},
		{"subject__eq", []string{"subject"}, OpEq},
		{"start__gte", []string{"start"}, OpGTE},
		{"start__lt", []string{"start"}, OpLT},
		{"subject__icontains", []string{"subject"}, OpIContains},
		{"categories__in", []string{"categories"}, OpIn},
		{"received__range", []string{"received"}, OpRange},
		{"subject__not", []string{"subject"}, OpNot},
		// Nested attribute path, no operator suffix
		{"organizer__email_address", []string{"organizer", "email_address"}, OpEq},
		// Nested attribute path with operator suffix
		{"organizer__email_address__istartswith", []string{"organizer", "email_address"}, OpIStartsWith},
	}
	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			l, err := ParseLookup(tt.spec)
			require.NoError(t, err)
			assert.Equal(t, tt.wantPath, l.Path)
			assert.Equal(t, tt.wantOp, l.Op)
		})
	}
}

func TestParseLookupInvalid(t *testing.T) {
	for _, spec := range []string{"", "__gte", "subject____gte", "__"} {
		t.Run(spec, func(t *testing.T) {
			_, err := ParseLookup(spec)
			var invalid *errors.InvalidLookupError
			require.ErrorAs(t, err, &invalid)
			assert.Equal(t, spec, invalid.Spec)
		})
	}
}

func TestOperatorCaseInsensitive(t *testing.T) {
	assert.True(t, OpIExact.CaseInsensitive())
	assert.True(t, OpIContains.CaseInsensitive())
	assert.True(t, OpIStartsWith.CaseInsensitive())
	assert.False(t, OpEq.CaseInsensitive())
	assert.False(t, OpContains.CaseInsensitive())
	assert.False(t, OpGTE.CaseInsensitive())
}

func TestLookupFieldName(t *testing.T) {
	l, err := ParseLookup("organizer__email_address__startswith")
	require.NoError(t, err)
	assert.Equal(t, "organizer__email_address", l.FieldName())
}
