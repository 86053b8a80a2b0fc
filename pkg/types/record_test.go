package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordAccessors(t *testing.T) {
	r := Record{IDKey: "valve1", NameKey: "valve1", TypeKey: "OphydItem", "z": 300}
	assert.Equal(t, "valve1", r.ID())
	assert.Equal(t, "valve1", r.Name())
	assert.Equal(t, "OphydItem", r.Type())

	var empty Record
	assert.Equal(t, "", empty.ID())
	assert.Equal(t, "", Record{IDKey: 12}.ID(), "non-string id reads as empty")
}

func TestRecordCloneIsDeep(t *testing.T) {
	orig := Record{
		"args":   []any{"{{prefix}}"},
		"kwargs": map[string]any{"hi": "oh hello"},
	}
	cp := orig.Clone()
	cp["args"].([]any)[0] = "changed"
	cp["kwargs"].(map[string]any)["hi"] = "changed"

	assert.Equal(t, "{{prefix}}", orig["args"].([]any)[0])
	assert.Equal(t, "oh hello", orig["kwargs"].(map[string]any)["hi"])
	assert.Nil(t, Record(nil).Clone())
}

func TestCanonical(t *testing.T) {
	in := Record{
		IDKey:    "alias",
		"z":      400,
		"width":  float32(0.5),
		"exact":  float64(3),
		"args":   []string{"a", "b"},
		"kwargs": map[string]any{"n": int32(7)},
		"missing": nil,
	}
	got, err := Canonical(in)
	require.NoError(t, err)

	assert.Equal(t, int64(400), got["z"])
	assert.Equal(t, 0.5, got["width"])
	assert.Equal(t, int64(3), got["exact"])
	assert.Equal(t, []any{"a", "b"}, got["args"])
	assert.Equal(t, map[string]any{"n": int64(7)}, got["kwargs"])
	assert.Contains(t, got, "missing")
	assert.Nil(t, got["missing"])

	again, err := Canonical(got)
	require.NoError(t, err)
	assert.Equal(t, got, again, "canonical form is a fixed point")
}

func TestCanonicalRejectsUnencodable(t *testing.T) {
	_, err := Canonical(Record{"ch": make(chan int)})
	assert.ErrorIs(t, err, ErrInvalidRecord)
}

func TestDecodeRecordRejectsNonObject(t *testing.T) {
	_, err := DecodeRecord([]byte(`[1, 2]`))
	assert.ErrorIs(t, err, ErrInvalidRecord)
}

func TestDecodeRecordRejectsOutOfRangeNumbers(t *testing.T) {
	for _, in := range []string{
		`{"z": 1e400}`,
		`{"args": [1, -1e999]}`,
		`{"kwargs": {"gain": {"max": 2e308}}}`,
	} {
		_, err := DecodeRecord([]byte(in))
		assert.ErrorIs(t, err, ErrInvalidRecord, in)
	}

	rec, err := DecodeRecord([]byte(`{"z": 1e20, "n": 12345678901234567890}`))
	require.NoError(t, err)
	assert.Equal(t, 1e20, rec["z"])
	assert.Equal(t, 12345678901234567890.0, rec["n"])
}

func TestCheckSave(t *testing.T) {
	assert.ErrorIs(t, CheckSave("", Record{}), ErrInvalidID)
	assert.ErrorIs(t, CheckSave("a", nil), ErrInvalidRecord)
	assert.ErrorIs(t, CheckSave("a", Record{IDKey: "b"}), ErrInvalidRecord)
	assert.NoError(t, CheckSave("a", Record{IDKey: "a"}))
	assert.NoError(t, CheckSave("a", Record{NameKey: "a"}))
}
