package reconcile

import (
	"fmt"
	"reflect"
	"sort"
)

// FieldChange is one owned field whose stored value differs from the source.
type FieldChange struct {
	Field string `json:"field"`
	From  any    `json:"from"`
	To    any    `json:"to"`
}

// Changes is an ordered set of field changes.
type Changes []FieldChange

// DiffFields compares the desired values of owned fields against the stored ones.
// Only keys present in desired are considered, so fields owned by other actors
// never show up. Pointers are compared by the value they point to; a nil pointer
// equals an untyped nil. The result is sorted by field name.
func DiffFields(stored, desired map[string]any) Changes {
	var changes Changes
	for field, want := range desired {
		have := stored[field]
		if Equal(have, want) {
			continue
		}
		changes = append(changes, FieldChange{Field: field, From: deref(have), To: deref(want)})
	}
	sort.Slice(changes, func(i, j int) bool {
		return changes[i].Field < changes[j].Field
	})
	return changes
}

// Equal reports whether two field values are the same after dereferencing pointers.
func Equal(a, b any) bool {
	return reflect.DeepEqual(deref(a), deref(b))
}

// Has reports whether field is among the changes.
func (c Changes) Has(field string) bool {
	return c.Get(field) != nil
}

// Get returns the change for field, or nil.
func (c Changes) Get(field string) *FieldChange {
	for i := range c {
		if c[i].Field == field {
			return &c[i]
		}
	}
	return nil
}

// Values returns the new values keyed by field, ready for a partial update.
func (c Changes) Values() map[string]any {
	out := make(map[string]any, len(c))
	for _, ch := range c {
		out[ch.Field] = ch.To
	}
	return out
}

// Fields returns the changed field names.
func (c Changes) Fields() []string {
	out := make([]string, len(c))
	for i, ch := range c {
		out[i] = ch.Field
	}
	return out
}

func (c FieldChange) String() string {
	return fmt.Sprintf("%s: %v -> %v", c.Field, display(c.From), display(c.To))
}

func deref(v any) any {
	if v == nil {
		return nil
	}
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	return rv.Interface()
}

func display(v any) any {
	if v == nil {
		return "none"
	}
	return v
}
