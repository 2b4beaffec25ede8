package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDoubleNegationCollapses(t *testing.T) {
	x := Where("subject", "hello")
	assert.True(t, x.Negate().Negate().Equal(x))

	// Also through the Not constructor
	assert.True(t, Not(Not(x)).Equal(x))
}

func TestNegateWraps(t *testing.T) {
	x := Where("subject", "hello")
	n := x.Negate()
	require.Equal(t, KindNot, n.Kind)
	require.Len(t, n.Children, 1)
	assert.True(t, n.Children[0].Equal(x))
	// Receiver untouched
	assert.Equal(t, KindComparison, x.Kind)
}

func TestCombineAndFlattens(t *testing.T) {
	a := Where("subject", "a")
	b := Where("subject", "b")
	c := Where("subject", "c")
	d := Where("subject", "d")

	combined := And(a, b).CombineAnd(And(c, d))
	require.Equal(t, KindAnd, combined.Kind)
	require.Len(t, combined.Children, 4)
	assert.True(t, combined.Equal(And(a, b, c, d)))
}

func TestCombineOrFlattens(t *testing.T) {
	a := Where("subject", "a")
	b := Where("subject", "b")
	c := Where("subject", "c")

	combined := Or(a, b).CombineOr(c)
	require.Equal(t, KindOr, combined.Kind)
	require.Len(t, combined.Children, 3)
}

func TestCombineWithUniversal(t *testing.T) {
	x := Where("subject", "hello")

	// And() is universal: combining it with x yields x
	assert.True(t, And().CombineAnd(x).Equal(x))
	assert.True(t, x.CombineAnd(And()).Equal(x))

	// nil behaves as "no restriction"
	var none *Q
	assert.True(t, none.CombineAnd(x).Equal(x))
}

func TestCombineDoesNotMutate(t *testing.T) {
	a := And(Where("subject", "a"))
	before := len(a.Children)
	_ = a.CombineAnd(Where("subject", "b"))
	assert.Equal(t, before, len(a.Children))
}

func TestStructuralEquality(t *testing.T) {
	a := Where("start__gte", 5)
	assert.True(t, a.Equal(Where("start__gte", 5)))
	assert.False(t, a.Equal(Where("start__gte", 6)))
	assert.False(t, a.Equal(Where("start__gt", 5)))
	assert.False(t, a.Equal(Where("end__gte", 5)))
	assert.False(t, And(a).Equal(Or(a)))
	assert.False(t, a.Equal(nil))
}

func TestWhereCarriesParseError(t *testing.T) {
	q := Where("__bogus__gte", 1)
	require.Error(t, q.Err())

	// The error propagates through combinators
	combined := And(Where("subject", "x"), q)
	require.Error(t, combined.Err())
	assert.NoError(t, Where("subject", "x").Err())
}

func TestString(t *testing.T) {
	q := And(Where("subject__icontains", "report"), Not(Where("is_read", true)))
	s := q.String()
	assert.Contains(t, s, "subject__icontains=report")
	assert.Contains(t, s, "NOT (is_read__eq=true)")
	assert.Contains(t, s, " AND ")
}
