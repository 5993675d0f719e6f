// Package formbuilder validates and edits the field list of a review-form
// widget. The list lives in the widget's config under "fields".
package formbuilder

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/google/uuid"
)

const (
	TypeText     = "text"
	TypeEmail    = "email"
	TypeRating   = "rating"
	TypeTextarea = "textarea"
)

var fieldTypes = []string{TypeText, TypeEmail, TypeRating, TypeTextarea}

var (
	ErrFieldNotFound = errors.New("field not found")
	ErrInvalidType   = errors.New("invalid field type")
)

type Field struct {
	ID          string `json:"id"`
	Type        string `json:"type"`
	Label       string `json:"label"`
	Required    bool   `json:"required"`
	Placeholder string `json:"placeholder,omitempty"`
	Order       int    `json:"order"`
}

// FieldPatch carries the editable properties of a field. Nil means unchanged.
type FieldPatch struct {
	Type        *string `json:"type"`
	Label       *string `json:"label"`
	Required    *bool   `json:"required"`
	Placeholder *string `json:"placeholder"`
}

// ValidType reports whether t is a known field type.
func ValidType(t string) bool { return slices.Contains(fieldTypes, t) }

// FromConfig extracts the field list from a widget config. A missing list is empty.
func FromConfig(cfg map[string]any) ([]Field, error) {
	raw, ok := cfg["fields"]
	if !ok || raw == nil {
		return []Field{}, nil
	}
	b, err := json.Marshal(raw)
	if err != nil {
		return nil, err
	}
	var fields []Field
	if err := json.Unmarshal(b, &fields); err != nil {
		return nil, fmt.Errorf("config.fields: %w", err)
	}
	if fields == nil {
		fields = []Field{}
	}
	return fields, nil
}

// ToConfig returns a copy of cfg with fields stored under "fields".
func ToConfig(cfg map[string]any, fields []Field) map[string]any {
	out := make(map[string]any, len(cfg)+1)
	for k, v := range cfg {
		out[k] = v
	}
	list := make([]any, 0, len(fields))
	for _, f := range fields {
		m := map[string]any{
			"id":       f.ID,
			"type":     f.Type,
			"label":    f.Label,
			"required": f.Required,
			"order":    f.Order,
		}
		if f.Placeholder != "" {
			m["placeholder"] = f.Placeholder
		}
		list = append(list, m)
	}
	out["fields"] = list
	return out
}

// Validate checks every field. Labels are required, types must be known
// and ids must be unique.
func Validate(fields []Field) error {
	seen := make(map[string]struct{}, len(fields))
	for i, f := range fields {
		if !ValidType(f.Type) {
			return fmt.Errorf("fields[%d].type must be one of [%s]", i, strings.Join(fieldTypes, ", "))
		}
		if strings.TrimSpace(f.Label) == "" {
			return fmt.Errorf("fields[%d].label is required", i)
		}
		if f.ID == "" {
			continue
		}
		if _, dup := seen[f.ID]; dup {
			return fmt.Errorf("fields[%d].id %q is duplicated", i, f.ID)
		}
		seen[f.ID] = struct{}{}
	}
	return nil
}

// Normalize sorts by order (stable), renumbers 0..n-1 and assigns missing ids.
func Normalize(fields []Field) []Field {
	out := slices.Clone(fields)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	for i := range out {
		out[i].Order = i
		out[i].Label = strings.TrimSpace(out[i].Label)
		if out[i].ID == "" {
			out[i].ID = newFieldID()
		}
	}
	return out
}

// AddField appends a new field of the given type with a default label.
func AddField(fields []Field, typ string) ([]Field, Field, error) {
	if !ValidType(typ) {
		return nil, Field{}, ErrInvalidType
	}
	f := Field{
		ID:    newFieldID(),
		Type:  typ,
		Label: fmt.Sprintf("New %s field", typ),
		Order: len(fields),
	}
	return append(slices.Clone(fields), f), f, nil
}

// UpdateField applies patch to the field with the given id.
func UpdateField(fields []Field, id string, patch FieldPatch) ([]Field, error) {
	i := slices.IndexFunc(fields, func(f Field) bool { return f.ID == id })
	if i < 0 {
		return nil, ErrFieldNotFound
	}
	out := slices.Clone(fields)
	f := &out[i]
	if patch.Type != nil {
		if !ValidType(*patch.Type) {
			return nil, ErrInvalidType
		}
		f.Type = *patch.Type
	}
	if patch.Label != nil {
		f.Label = *patch.Label
	}
	if patch.Required != nil {
		f.Required = *patch.Required
	}
	if patch.Placeholder != nil {
		f.Placeholder = *patch.Placeholder
	}
	return out, Validate(out)
}

// RemoveField drops the field with the given id and renumbers the rest.
func RemoveField(fields []Field, id string) ([]Field, error) {
	i := slices.IndexFunc(fields, func(f Field) bool { return f.ID == id })
	if i < 0 {
		return nil, ErrFieldNotFound
	}
	out := slices.Delete(slices.Clone(fields), i, i+1)
	return Normalize(out), nil
}

// Reorder sets the order of fields to match ids, which must name every field exactly once.
func Reorder(fields []Field, ids []string) ([]Field, error) {
	if len(ids) != len(fields) {
		return nil, fmt.Errorf("order must list all %d fields", len(fields))
	}
	pos := make(map[string]int, len(ids))
	for i, id := range ids {
		if _, dup := pos[id]; dup {
			return nil, fmt.Errorf("field %q listed twice", id)
		}
		pos[id] = i
	}
	out := slices.Clone(fields)
	for i := range out {
		p, ok := pos[out[i].ID]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrFieldNotFound, out[i].ID)
		}
		out[i].Order = p
	}
	return Normalize(out), nil
}

func newFieldID() string {
	return "field_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}
