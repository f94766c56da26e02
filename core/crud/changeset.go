// Package crud holds the generic helpers shared by every editable entity:
// locating a record by UUID or natural key, applying an ordered change set onto it,
// and reconciling a list of identifiers against a collection.
package crud

import (
	"reflect"

	"github.com/trezcool/classroom/core"
)

// FieldUpdatedAt is appended to the modification record of every entity that changed.
const FieldUpdatedAt = "updated_at"

// Change is a single requested assignment.
// Value is either the raw request string or an already typed value (eg: a resolved uuid.UUID).
type Change struct {
	Field string
	Value interface{}
}

// ChangeSet is an ordered list of requested assignments; order is the order of appearance in the request.
type ChangeSet []Change

// Has reports whether field is part of cs.
func (cs ChangeSet) Has(field string) bool {
	_, ok := cs.Get(field)
	return ok
}

// Get returns the value of the last change of field.
func (cs ChangeSet) Get(field string) (interface{}, bool) {
	for i := len(cs) - 1; i >= 0; i-- {
		if cs[i].Field == field {
			return cs[i].Value, true
		}
	}
	return nil, false
}

// String returns the value of field when it is a raw string.
func (cs ChangeSet) String(field string) (string, bool) {
	v, ok := cs.Get(field)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Set replaces the value of every change of field. It is a no-op when field is absent.
func (cs ChangeSet) Set(field string, value interface{}) ChangeSet {
	out := make(ChangeSet, len(cs))
	for i, c := range cs {
		if c.Field == field {
			c.Value = value
		}
		out[i] = c
	}
	return out
}

// Without returns a copy of cs without the given fields.
func (cs ChangeSet) Without(fields ...string) ChangeSet {
	out := make(ChangeSet, 0, len(cs))
outer:
	for _, c := range cs {
		for _, f := range fields {
			if c.Field == f {
				continue outer
			}
		}
		out = append(out, c)
	}
	return out
}

// Editable is implemented by entities that can be partially updated.
// The returned fields must point into the receiver.
type Editable interface {
	EditableFields() []Field
}

// Apply assigns every change of cs that targets a mutable field of e and whose value differs from the current one.
// It returns the names of the modified fields, in change set order.
// Changes of unknown fields are ignored. When any value cannot be coerced to its field type, a *core.ValidationError
// is returned and e is left untouched.
func Apply(e Editable, cs ChangeSet) ([]string, error) {
	fields := make(map[string]Field)
	for _, f := range e.EditableFields() {
		fields[f.Name] = f
	}

	type assignment struct {
		field Field
		value interface{}
	}
	var (
		pending []assignment
		index   = make(map[string]int)
		verr    = core.NewValidationError(nil)
	)
	for _, c := range cs {
		f, ok := fields[c.Field]
		if !ok {
			continue
		}
		val, err := f.coerce(c.Value)
		if err != nil {
			verr.Add(f.Name, err.Error())
			continue
		}
		// a repeated field keeps its first position and its last value
		if i, seen := index[f.Name]; seen {
			pending[i].value = val
			continue
		}
		index[f.Name] = len(pending)
		pending = append(pending, assignment{field: f, value: val})
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	modified := make([]string, 0, len(pending))
	for _, a := range pending {
		if reflect.DeepEqual(a.field.get(), a.value) {
			continue
		}
		a.field.set(a.value)
		modified = append(modified, a.field.Name)
	}
	return modified, nil
}

// Require reports every field absent from cs as required.
// The returned *core.ValidationError is never nil; it is empty when nothing is missing.
func Require(cs ChangeSet, fields ...string) *core.ValidationError {
	verr := core.NewValidationError(nil)
	for _, f := range fields {
		if !cs.Has(f) {
			verr.Add(f, core.MsgRequired)
		}
	}
	return verr
}

// Create applies cs onto the zero value held by e, reporting missing required fields and invalid values together.
func Create(e Editable, cs ChangeSet, required ...string) error {
	verr := Require(cs, required...)
	if _, err := Apply(e, cs); err != nil {
		ve, ok := err.(*core.ValidationError)
		if !ok {
			return err
		}
		verr.Merge(ve)
	}
	return verr.OrNil()
}
