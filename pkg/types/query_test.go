package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConditions(t *testing.T) {
	re, err := NewRegex(`BASE:VGC\d:PV`)
	require.NoError(t, err)

	tests := []struct {
		name    string
		cond    Condition
		value   any
		present bool
		want    bool
	}{
		{"equals string", Equals{"LCLS"}, "LCLS", true, true},
		{"equals other string", Equals{"LCLS"}, "TST", true, false},
		{"equals across number kinds", Equals{300}, int64(300), true, true},
		{"equals float and int", Equals{300.0}, int64(300), true, true},
		{"equals number vs string", Equals{300}, "300", true, false},
		{"equals absent", Equals{nil}, nil, false, false},
		{"equals list", Equals{[]string{"a"}}, []any{"a"}, true, true},
		{"in member", In{[]any{"a", "b"}}, "b", true, true},
		{"in non-member", In{[]any{"a", "b"}}, "c", true, false},
		{"in absent", In{[]any{"a"}}, nil, false, false},
		{"range inside", Range{300, 301}, int64(301), true, true},
		{"range lower bound", Range{300, 301}, 300.0, true, true},
		{"range outside", Range{300, 301}, int64(400), true, false},
		{"range non-numeric", Range{0, 1}, "0.5", true, false},
		{"regex match", re, "BASE:VGC2:PV", true, true},
		{"regex is anchored", re, "XBASE:VGC2:PV", true, false},
		{"regex non-string", re, 12, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.cond.Match(tt.value, tt.present))
		})
	}
}

func TestQueryMatchIsConjunction(t *testing.T) {
	r := Record{"prefix": "BASE:VGC1:PV", "z": int64(300)}

	assert.True(t, Query{}.Match(r), "empty query matches all")
	assert.True(t, Query{"z": Range{300, 301}, "prefix": Equals{"BASE:VGC1:PV"}}.Match(r))
	assert.False(t, Query{"z": Range{300, 301}, "prefix": Equals{"BASE:VGC2:PV"}}.Match(r))
	assert.False(t, Query{"beamlnie": Equals{"LCLS"}}.Match(r), "unknown key matches nothing")
}

func TestQueryKeysSorted(t *testing.T) {
	q := Query{"z": Range{}, "beamline": Equals{}, "prefix": Equals{}}
	assert.Equal(t, []string{"beamline", "prefix", "z"}, q.Keys())
}

func TestNewRegexInvalid(t *testing.T) {
	_, err := NewRegex("(")
	assert.Error(t, err)
}

func TestIsIntegral(t *testing.T) {
	assert.True(t, IsIntegral(3))
	assert.True(t, IsIntegral(int64(-3)))
	assert.True(t, IsIntegral(3.0))
	assert.False(t, IsIntegral(3.5))
	assert.False(t, IsIntegral("3"))
}
