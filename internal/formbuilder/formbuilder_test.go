package formbuilder

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sample() []Field {
	return []Field{
		{ID: "a", Type: TypeText, Label: "Name", Required: true, Order: 0},
		{ID: "b", Type: TypeRating, Label: "Rating", Required: true, Order: 1},
		{ID: "c", Type: TypeTextarea, Label: "Review", Order: 2},
	}
}

func ids(fields []Field) []string {
	out := make([]string, len(fields))
	for i, f := range fields {
		out[i] = f.ID
	}
	return out
}

func TestAddField(t *testing.T) {
	fields, f, err := AddField(sample(), TypeEmail)
	require.NoError(t, err)
	assert.Len(t, fields, 4)
	assert.Equal(t, "New email field", f.Label)
	assert.Equal(t, 3, f.Order)
	assert.NotEmpty(t, f.ID)

	_, _, err = AddField(sample(), "checkbox")
	assert.ErrorIs(t, err, ErrInvalidType)
}

func TestUpdateField(t *testing.T) {
	label := "Your name"
	req := false
	fields, err := UpdateField(sample(), "a", FieldPatch{Label: &label, Required: &req})
	require.NoError(t, err)
	assert.Equal(t, "Your name", fields[0].Label)
	assert.False(t, fields[0].Required)

	empty := " "
	_, err = UpdateField(sample(), "a", FieldPatch{Label: &empty})
	assert.Error(t, err)

	_, err = UpdateField(sample(), "zzz", FieldPatch{Label: &label})
	assert.ErrorIs(t, err, ErrFieldNotFound)
}

func TestRemoveField_Renumbers(t *testing.T) {
	fields, err := RemoveField(sample(), "b")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c"}, ids(fields))
	assert.Equal(t, 1, fields[1].Order)

	_, err = RemoveField(sample(), "zzz")
	assert.ErrorIs(t, err, ErrFieldNotFound)
}

func TestReorder(t *testing.T) {
	fields, err := Reorder(sample(), []string{"c", "a", "b"})
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "a", "b"}, ids(fields))
	for i, f := range fields {
		assert.Equal(t, i, f.Order)
	}

	_, err = Reorder(sample(), []string{"a", "b"})
	assert.Error(t, err)
	_, err = Reorder(sample(), []string{"a", "a", "b"})
	assert.Error(t, err)
	_, err = Reorder(sample(), []string{"a", "b", "x"})
	assert.ErrorIs(t, err, ErrFieldNotFound)
}

func TestNormalize(t *testing.T) {
	in := []Field{
		{Type: TypeText, Label: " Second ", Order: 7},
		{ID: "x", Type: TypeEmail, Label: "First", Order: 2},
	}
	out := Normalize(in)
	assert.Equal(t, "x", out[0].ID)
	assert.Equal(t, 0, out[0].Order)
	assert.Equal(t, "Second", out[1].Label)
	assert.Equal(t, 1, out[1].Order)
	assert.NotEmpty(t, out[1].ID)
	assert.Empty(t, in[0].ID, "input is not modified")
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Validate(sample()))
	assert.EqualError(t, Validate([]Field{{ID: "a", Type: "select", Label: "x"}}),
		"fields[0].type must be one of [text, email, rating, textarea]")
	assert.EqualError(t, Validate([]Field{{ID: "a", Type: TypeText}}), "fields[0].label is required")
	assert.Error(t, Validate([]Field{
		{ID: "a", Type: TypeText, Label: "x"},
		{ID: "a", Type: TypeText, Label: "y"},
	}))
}

func TestConfigRoundTrip(t *testing.T) {
	cfg := map[string]any{
		"submitButtonText": "Send",
		"fields": []any{
			map[string]any{"id": "a", "type": "text", "label": "Name", "required": true, "order": 0},
		},
	}
	fields, err := FromConfig(cfg)
	require.NoError(t, err)
	require.Len(t, fields, 1)
	assert.Equal(t, "Name", fields[0].Label)

	out := ToConfig(cfg, append(fields, Field{ID: "b", Type: TypeEmail, Label: "Email", Order: 1}))
	assert.Equal(t, "Send", out["submitButtonText"])
	assert.Len(t, out["fields"], 2)

	empty, err := FromConfig(map[string]any{})
	require.NoError(t, err)
	assert.Empty(t, empty)

	_, err = FromConfig(map[string]any{"fields": "nope"})
	assert.Error(t, err)
}
