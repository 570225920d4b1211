package domain

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/require"
)

func TestTemplateFromLegacyDefaultsPlaceholderAndViews(t *testing.T) {
	tmpl := TemplateFromLegacy(map[string]any{
		"id":           "tmpl-1",
		"name":         "Room",
		"signTypeCode": "RM",
		"faceView": map[string]any{
			"textFields": []any{
				map[string]any{"id": "p1", "fieldName": "message1", "x": 10, "y": 20},
				map[string]any{"id": "p2", "fieldName": "message2", "placeholder": ""},
			},
		},
	})
	require.Len(t, tmpl.Face.TextFields, 2)
	require.Equal(t, "{{message1}}", tmpl.Face.TextFields[0].Placeholder)
	require.Equal(t, "", tmpl.Face.TextFields[1].Placeholder)
	require.Equal(t, DefaultCanvas(), tmpl.Face.Canvas)
	require.Equal(t, DefaultCanvas(), tmpl.Side.Canvas)
	require.Empty(t, tmpl.Side.TextFields)
	require.NotNil(t, tmpl.Side.Graphics)
}

func TestTemplateRoundTrip(t *testing.T) {
	tmpl := DesignTemplate{
		ID:           "tmpl-1",
		Name:         "Room",
		SignTypeCode: "RM",
		Face: View{
			Canvas: Canvas{Width: 200, Height: 100, Unit: "mm", Background: "#eeeeee"},
			TextFields: []TextPlacement{{
				ID: "p1", FieldName: "message1", X: 5, Y: 5, Width: 100, Height: 20,
				FontSize: 14, Align: "center", Placeholder: Placeholder("message1"),
				Extra: map[string]any{"fontFamily": "Inter"},
			}},
			Graphics:  []GraphicPlacement{{ID: "g1", AssetID: "arrow", X: 1, Y: 2, Width: 3, Height: 4, Rotation: 90}},
			Materials: Materials{Substrate: "acrylic", Thickness: 3, Extra: map[string]any{"supplier": "x"}},
		},
		Side:  View{Canvas: DefaultCanvas(), TextFields: []TextPlacement{}, Graphics: []GraphicPlacement{}},
		Extra: map[string]any{"revision": 4},
	}
	back := TemplateFromLegacy(tmpl.ToLegacy())
	if diff := cmp.Diff(tmpl, back, cmpopts.EquateEmpty()); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestTemplateCloneIsDeep(t *testing.T) {
	tmpl := DesignTemplate{Face: View{TextFields: []TextPlacement{{ID: "p1", FieldName: "a"}}}}
	clone := tmpl.Clone()
	clone.Face.TextFields[0].FieldName = "b"
	require.Equal(t, "a", tmpl.Face.TextFields[0].FieldName)
	require.Len(t, tmpl.Views(), 2)
}
