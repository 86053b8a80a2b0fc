package schema

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRuleCheck(t *testing.T) {
	even := Predicate("even", func(v any) error {
		n, ok := v.(int64)
		if !ok || n%2 != 0 {
			return errors.New("not an even integer")
		}
		return nil
	})

	tests := []struct {
		name  string
		rule  Rule
		value any
		ok    bool
	}{
		{"any accepts string", Any(), "x", true},
		{"zero rule accepts map", Rule{}, map[string]any{}, true},
		{"string", TypeOf(String), "BASE:PV", true},
		{"string rejects int", TypeOf(String), int64(3), false},
		{"int", TypeOf(Int), int64(400), true},
		{"int accepts integral float", TypeOf(Int), float64(400), true},
		{"int rejects fraction", TypeOf(Int), 0.5, false},
		{"int rejects bool", TypeOf(Int), true, false},
		{"float accepts int", TypeOf(Float), int64(1), true},
		{"float", TypeOf(Float), 300.5, true},
		{"bool", TypeOf(Bool), false, true},
		{"bool rejects string", TypeOf(Bool), "false", false},
		{"list", TypeOf(List), []any{"a"}, true},
		{"list accepts string slice", TypeOf(List), []string{"a"}, true},
		{"list rejects map", TypeOf(List), map[string]any{}, false},
		{"dict", TypeOf(Dict), map[string]any{"hi": "oh hello"}, true},
		{"dict rejects list", TypeOf(Dict), []any{}, false},
		{"enum member", OneOf("one", "zero"), "zero", true},
		{"enum non-member", OneOf("one", "zero"), "two", false},
		{"enum numeric", OneOf(1, 2), float64(2), true},
		{"pattern match", MustPattern(NamePattern), "sam_x", true},
		{"pattern anchored", MustPattern(NamePattern), "Sam_x", false},
		{"pattern too short", MustPattern(NamePattern), "ab", false},
		{"pattern rejects int", MustPattern(NamePattern), int64(1), false},
		{"predicate pass", even, int64(4), true},
		{"predicate fail", even, int64(3), false},
		{"nil predicate", Predicate("none", nil), "x", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.rule.Check(tt.value)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestRuleCheckPredicatePanic(t *testing.T) {
	r := Predicate("boom", func(any) error { panic("boom") })
	err := r.Check("x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "panicked")
}

func TestPatternInvalid(t *testing.T) {
	_, err := Pattern("[a-z")
	assert.Error(t, err)
	assert.Panics(t, func() { MustPattern("[a-z") })
}

func TestRuleCompatible(t *testing.T) {
	isPositive := Predicate("positive", func(any) error { return nil })
	alsoPositive := Predicate("positive", func(any) error { return errors.New("never") })
	isNegative := Predicate("negative", func(any) error { return nil })

	tests := []struct {
		name string
		a, b Rule
		want bool
	}{
		{"any with type", Any(), TypeOf(Bool), true},
		{"any with predicate", Any(), isPositive, true},
		{"same type", TypeOf(String), TypeOf(String), true},
		{"str vs bool", TypeOf(String), TypeOf(Bool), false},
		{"str vs int", TypeOf(String), TypeOf(Int), false},
		{"int vs float", TypeOf(Int), TypeOf(Float), true},
		{"list vs dict", TypeOf(List), TypeOf(Dict), false},
		{"enum within type", OneOf("one", "zero"), TypeOf(String), true},
		{"enum outside type", OneOf("one", int64(1)), TypeOf(String), false},
		{"enum subset", OneOf("zero"), OneOf("zero", "two"), true},
		{"enum overlap only", OneOf("one", "zero"), OneOf("zero", "two"), false},
		{"enum within pattern", OneOf("sam_x", "sam_y"), MustPattern(NamePattern), true},
		{"enum outside pattern", OneOf("sam_x", "X"), MustPattern(NamePattern), false},
		{"pattern vs string", MustPattern(NamePattern), TypeOf(String), true},
		{"pattern vs int", MustPattern(NamePattern), TypeOf(Int), false},
		{"same pattern", MustPattern(NamePattern), MustPattern(NamePattern), true},
		{"different pattern", MustPattern(NamePattern), MustPattern(`[A-Z]+`), false},
		{"same predicate name", isPositive, alsoPositive, true},
		{"different predicate", isPositive, isNegative, false},
		{"predicate vs type", isPositive, TypeOf(Int), false},
		{"predicate vs enum", isPositive, OneOf(1), false},
		{"empty enum vs any", OneOf(), Any(), true},
		{"empty enum vs empty enum", OneOf(), OneOf(), true},
		{"empty enum vs type", OneOf(), TypeOf(String), false},
		{"empty enum vs enum", OneOf(), OneOf("a"), false},
		{"empty enum vs pattern", OneOf(), MustPattern(NamePattern), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.a.Compatible(tt.b))
			assert.Equal(t, tt.want, tt.b.Compatible(tt.a), "compatibility must be symmetric")
		})
	}
}

func TestRuleEqual(t *testing.T) {
	assert.True(t, TypeOf(Int).Equal(TypeOf(Int)))
	assert.False(t, TypeOf(Int).Equal(TypeOf(Float)))
	assert.True(t, OneOf("a", "b").Equal(OneOf("b", "a")))
	assert.False(t, OneOf("a").Equal(OneOf("a", "b")))
	assert.True(t, Any().Equal(Rule{}))
	assert.False(t, Any().Equal(TypeOf(String)))
}

func TestParseValueType(t *testing.T) {
	for _, want := range []ValueType{String, Int, Float, Bool, List, Dict} {
		got, ok := ParseValueType(want.String())
		require.True(t, ok, want.String())
		assert.Equal(t, want, got)
	}
	_, ok := ParseValueType("complex")
	assert.False(t, ok)
}
