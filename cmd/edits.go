package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ginjaninja78/journal-batch-upload/internal/session"
	"github.com/ginjaninja78/journal-batch-upload/internal/types"
)

// fieldEdit is one --set correction.
//
// FORMAT:
//   H.Field=value     header H
//   H.I.Field=value   item I of header H
//
// Indices are zero-based, field names are wire names (HouseBank, DocDate).
type fieldEdit struct {
	Header int
	Item   int
	Field  string
	Value  string
}

func (e fieldEdit) ref() types.FieldRef {
	return types.FieldRef{Header: e.Header, Item: e.Item, Field: e.Field}
}

func parseEdit(s string) (fieldEdit, error) {
	path, value, ok := strings.Cut(s, "=")
	if !ok {
		return fieldEdit{}, fmt.Errorf("--set %q: expected H.Field=value or H.I.Field=value", s)
	}

	parts := strings.Split(strings.TrimSpace(path), ".")
	edit := fieldEdit{Item: types.HeaderLevel, Value: value}
	var err error
	switch len(parts) {
	case 2:
		edit.Header, err = index(parts[0])
	case 3:
		edit.Header, err = index(parts[0])
		if err == nil {
			edit.Item, err = index(parts[1])
		}
	default:
		return fieldEdit{}, fmt.Errorf("--set %q: expected H.Field=value or H.I.Field=value", s)
	}
	if err != nil {
		return fieldEdit{}, fmt.Errorf("--set %q: %w", s, err)
	}

	edit.Field = parts[len(parts)-1]
	if edit.Field == "" {
		return fieldEdit{}, fmt.Errorf("--set %q: missing field name", s)
	}
	return edit, nil
}

func index(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("index %q is not a non-negative number", s)
	}
	return n, nil
}

func parseEdits(values []string) ([]fieldEdit, error) {
	edits := make([]fieldEdit, 0, len(values))
	for _, v := range values {
		e, err := parseEdit(v)
		if err != nil {
			return nil, err
		}
		edits = append(edits, e)
	}
	return edits, nil
}

// applyEdits applies edits in order and stops at the first bad address.
func applyEdits(s *session.Session, edits []fieldEdit) error {
	for _, e := range edits {
		var err error
		if e.Item == types.HeaderLevel {
			_, err = s.SetHeaderField(e.Header, e.Field, e.Value)
		} else {
			_, err = s.SetItemField(e.Header, e.Item, e.Field, e.Value)
		}
		if err != nil {
			return fmt.Errorf("--set %s: %w", e.ref(), err)
		}
	}
	return nil
}
