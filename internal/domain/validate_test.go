package domain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidCode(t *testing.T) {
	for code, want := range map[string]bool{
		"RM":     true,
		"RM.1-a": true,
		"ex_2":   true,
		"":       false,
		"R M":    false,
		"RM/1":   false,
	} {
		if got := ValidCode(code); got != want {
			t.Fatalf("ValidCode(%q) = %v, want %v", code, got, want)
		}
	}
}

func TestValidFieldName(t *testing.T) {
	for name, want := range map[string]bool{
		"message1": true,
		"occupant": true,
		"a_b":      true,
		"1st":      false,
		"_x":       false,
		"room-no":  false,
	} {
		if got := ValidFieldName(name); got != want {
			t.Fatalf("ValidFieldName(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestColorHelpers(t *testing.T) {
	require.True(t, ValidColor("#FFAA00"))
	require.True(t, ValidColor("#fa0"))
	require.False(t, ValidColor("red"))
	require.False(t, ValidColor("#12345"))

	got, ok := NormalizeColor("#FA0")
	require.True(t, ok)
	require.Equal(t, "#ffaa00", got)

	got, ok = NormalizeColor("nope")
	require.False(t, ok)
	require.Equal(t, "nope", got)
}

func TestSignTypeValidateReportsEveryProblem(t *testing.T) {
	desc := SignTypeDescriptor{
		Code:           "bad code",
		PrimaryColor:   "#000000",
		SecondaryColor: "white",
		TextFields:     []TextField{{Name: "ok"}, {Name: "ok"}, {Name: "9lives"}},
	}
	err := desc.Validate()
	require.Error(t, err)
	for _, fragment := range []string{"invalid code", "secondary color", "duplicate field", "invalid field name"} {
		require.Contains(t, err.Error(), fragment)
	}

	desc = SignTypeDescriptor{Code: "RM", PrimaryColor: "#000", SecondaryColor: "#fff", TextFields: DefaultTextFields()}
	require.NoError(t, desc.Validate())
}

func TestCheckTemplateFieldsIsAdvisory(t *testing.T) {
	desc := SignTypeDescriptor{Code: "RM", TextFields: DefaultTextFields()}
	tmpl := DesignTemplate{
		Face: View{TextFields: []TextPlacement{{ID: "p1", FieldName: FieldMessage1}, {ID: "p2", FieldName: "occupant"}}},
		Side: View{TextFields: []TextPlacement{{ID: "p3", FieldName: "gone"}}},
	}
	got := CheckTemplateFields(desc, tmpl)
	require.Equal(t, []FieldMismatch{
		{View: ViewFace, Placement: "p2", FieldName: "occupant"},
		{View: ViewSide, Placement: "p3", FieldName: "gone"},
	}, got)
	require.Equal(t, `face/p2: undeclared field "occupant"`, got[0].String())
}
