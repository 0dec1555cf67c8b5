package types

import (
	"fmt"
	"sort"
)

// FieldState is the transient per-field validation flag.
type FieldState int

const (
	StateNone FieldState = iota
	StateError
)

func (s FieldState) String() string {
	if s == StateError {
		return "Error"
	}
	return "None"
}

// HeaderLevel is the Item index used by FieldRef for header fields.
const HeaderLevel = -1

// FieldRef identifies one field of one record in a draft.
type FieldRef struct {
	Header int
	Item   int
	Field  string
}

// HeaderRef returns the reference of a header field.
func HeaderRef(header int, field string) FieldRef {
	return FieldRef{Header: header, Item: HeaderLevel, Field: field}
}

// ItemRef returns the reference of an item field.
func ItemRef(header, item int, field string) FieldRef {
	return FieldRef{Header: header, Item: item, Field: field}
}

// IsHeader reports whether the reference points at a header field.
func (r FieldRef) IsHeader() bool { return r.Item == HeaderLevel }

func (r FieldRef) String() string {
	if r.IsHeader() {
		return fmt.Sprintf("header[%d].%s", r.Header, r.Field)
	}
	return fmt.Sprintf("header[%d].item[%d].%s", r.Header, r.Item, r.Field)
}

// StateTable holds the validation state of every checked field.
type StateTable map[FieldRef]FieldState

// Get returns the state of a field; unchecked fields are StateNone.
func (t StateTable) Get(ref FieldRef) FieldState {
	return t[ref]
}

// HasErrors reports whether any field is marked StateError.
func (t StateTable) HasErrors() bool {
	for _, s := range t {
		if s == StateError {
			return true
		}
	}
	return false
}

// Errors returns the references marked StateError in a stable order.
func (t StateTable) Errors() []FieldRef {
	var refs []FieldRef
	for ref, s := range t {
		if s == StateError {
			refs = append(refs, ref)
		}
	}
	sort.Slice(refs, func(i, j int) bool {
		a, b := refs[i], refs[j]
		if a.Header != b.Header {
			return a.Header < b.Header
		}
		if a.Item != b.Item {
			return a.Item < b.Item
		}
		return a.Field < b.Field
	})
	return refs
}
