package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func ptr[T any](v T) *T { return &v }

func TestDiffFields(t *testing.T) {
	stored := map[string]any{
		"status":   "active",
		"vcpus":    ptr(2),
		"memory":   (*int64)(nil),
		"comments": "hand written",
	}
	desired := map[string]any{
		"status": "offline",
		"vcpus":  ptr(2),
		"memory": ptr(int64(512_000_000)),
	}

	changes := DiffFields(stored, desired)

	assert.Equal(t, []string{"memory", "status"}, changes.Fields())
	assert.False(t, changes.Has("comments"))
	assert.Equal(t, "active", changes.Get("status").From)
	assert.Nil(t, changes.Get("memory").From)
	assert.Equal(t, map[string]any{"memory": int64(512_000_000), "status": "offline"}, changes.Values())
}

func TestDiffFields_NoChanges(t *testing.T) {
	stored := map[string]any{"vcpus": ptr(4), "memory": nil}
	desired := map[string]any{"vcpus": ptr(4), "memory": (*int64)(nil)}

	assert.Empty(t, DiffFields(stored, desired))
}

func TestEqual(t *testing.T) {
	tests := []struct {
		name string
		a, b any
		want bool
	}{
		{"Nil And Nil Pointer", nil, (*int)(nil), true},
		{"Pointer And Value", ptr(3), 3, true},
		{"Different Values", ptr(3), ptr(4), false},
		{"Value And Nil", "x", nil, false},
		{"Strings", "a", "a", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Equal(tt.a, tt.b))
		})
	}
}

func TestFieldChange_String(t *testing.T) {
	assert.Equal(t, "vcpus: none -> 2", FieldChange{Field: "vcpus", To: 2}.String())
}
