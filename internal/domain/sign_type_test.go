package domain

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestSignTypeFromLegacyAppliesDefaultsForAbsentKeys(t *testing.T) {
	desc := SignTypeFromLegacy(map[string]any{"id": "t1", "code": "RM"})
	require.Equal(t, "RM", desc.Name)
	require.Equal(t, DefaultPrimaryColor, desc.PrimaryColor)
	require.Equal(t, DefaultSecondaryColor, desc.SecondaryColor)
	require.Equal(t, DefaultTextFields(), desc.TextFields)
}

func TestSignTypeFromLegacyKeepsPresentButEmpty(t *testing.T) {
	desc := SignTypeFromLegacy(map[string]any{
		"code":       "RM",
		"name":       "",
		"textFields": []any{},
	})
	require.Equal(t, "", desc.Name)
	require.NotNil(t, desc.TextFields)
	require.Empty(t, desc.TextFields)
}

func TestSignTypeFromLegacyAcceptsBareFieldNames(t *testing.T) {
	desc := SignTypeFromLegacy(map[string]any{
		"code": "EX",
		"textFields": []any{
			"message1",
			map[string]any{"name": "room", "maxLength": 12},
		},
	})
	want := []TextField{{Name: "message1"}, {Name: "room", MaxLength: 12}}
	if diff := cmp.Diff(want, desc.TextFields); diff != "" {
		t.Fatalf("text fields mismatch (-want +got):\n%s", diff)
	}
}

func TestSignTypeRoundTripPreservesUnknownKeys(t *testing.T) {
	desc := SignTypeDescriptor{
		ID:             "t1",
		Code:           "RM.1",
		Name:           "Room ID",
		PrimaryColor:   "#123456",
		SecondaryColor: "#ffffff",
		TextFields:     []TextField{{Name: "message1", MaxLength: 20}, {Name: "occupant"}},
		ArrowCapable:   true,
		TemplateID:     "tmpl-1",
		Extra:          map[string]any{"mountHeight": 1.5, "vendor": "acme"},
	}
	back := SignTypeFromLegacy(desc.ToLegacy())
	if diff := cmp.Diff(desc, back); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
	require.True(t, back.HasField("occupant"))
	require.Equal(t, []string{"message1", "occupant"}, back.FieldNames())
}

func TestSignTypeFromLegacyCarriesBadlyTypedKeys(t *testing.T) {
	desc := SignTypeFromLegacy(map[string]any{
		"code":         "RM",
		"arrowEnabled": map[string]any{"oops": true},
	})
	require.False(t, desc.ArrowCapable)
	require.Equal(t, map[string]any{"oops": true}, desc.Extra["arrowEnabled"])
	require.Equal(t, "RM", desc.Code)
}
