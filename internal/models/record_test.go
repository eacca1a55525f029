package models

import (
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
)

func TestRecordLookup(t *testing.T) {
	r := Record{"name": "clinic", "count": json.Number("12"), "empty": nil}

	v, ok := r.String("name")
	assert.True(t, ok)
	assert.Equal(t, "clinic", v)

	v, ok = r.String("count")
	assert.True(t, ok)
	assert.Equal(t, "12", v)

	v, ok = r.String("empty")
	assert.True(t, ok, "present with a null value is still present")
	assert.Equal(t, "", v)

	_, ok = r.String("missing")
	assert.False(t, ok)

	var nilRecord Record
	_, ok = nilRecord.Lookup("name")
	assert.False(t, ok)
	assert.True(t, nilRecord.Empty())
}

func TestFormatValue(t *testing.T) {
	tests := []struct {
		name string
		in   interface{}
		want string
	}{
		{"string", "abc", "abc"},
		{"number literal", json.Number("3.50"), "3.50"},
		{"float", 2.5, "2.5"},
		{"whole float", float64(7), "7"},
		{"bool", true, "true"},
		{"nil", nil, ""},
		{"list", []interface{}{"a", "b"}, `["a","b"]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatValue(tt.in))
		})
	}
}
