package domain

import (
	"fmt"
	"slices"
)

// View names used in legacy template records.
const (
	ViewFace = "face"
	ViewSide = "side"
)

// Canvas describes the drawing surface of one template view.
type Canvas struct {
	Width      float64 `json:"width" mapstructure:"width"`
	Height     float64 `json:"height" mapstructure:"height"`
	Unit       string  `json:"unit,omitempty" mapstructure:"unit"`
	Background string  `json:"background,omitempty" mapstructure:"background"`
}

// DefaultCanvas is used for a view whose record has no canvas at all.
func DefaultCanvas() Canvas {
	return Canvas{Width: 600, Height: 300, Unit: "px", Background: DefaultSecondaryColor}
}

// TextPlacement binds a sign-type field to a box on the canvas.
type TextPlacement struct {
	ID          string         `json:"id"`
	FieldName   string         `json:"fieldName"`
	X           float64        `json:"x"`
	Y           float64        `json:"y"`
	Width       float64        `json:"width"`
	Height      float64        `json:"height"`
	FontSize    float64        `json:"fontSize,omitempty"`
	Align       string         `json:"align,omitempty"`
	Placeholder string         `json:"placeholder"`
	Extra       map[string]any `json:"extra,omitempty"`
}

// Placeholder returns the canonical placeholder text for a field.
func Placeholder(fieldName string) string {
	return fmt.Sprintf("{{%s}}", fieldName)
}

// GraphicPlacement positions a library asset on the canvas.
type GraphicPlacement struct {
	ID       string         `json:"id" mapstructure:"id"`
	AssetID  string         `json:"assetId" mapstructure:"assetId"`
	X        float64        `json:"x" mapstructure:"x"`
	Y        float64        `json:"y" mapstructure:"y"`
	Width    float64        `json:"width" mapstructure:"width"`
	Height   float64        `json:"height" mapstructure:"height"`
	Rotation float64        `json:"rotation,omitempty" mapstructure:"rotation"`
	Extra    map[string]any `json:"extra,omitempty" mapstructure:",remain"`
}

// Materials describes how a view is fabricated.
type Materials struct {
	Substrate string         `json:"substrate,omitempty" mapstructure:"substrate"`
	Finish    string         `json:"finish,omitempty" mapstructure:"finish"`
	Thickness float64        `json:"thickness,omitempty" mapstructure:"thickness"`
	Extra     map[string]any `json:"extra,omitempty" mapstructure:",remain"`
}

// View is one side of a template.
type View struct {
	Canvas     Canvas             `json:"canvas"`
	TextFields []TextPlacement    `json:"textFields"`
	Graphics   []GraphicPlacement `json:"graphics"`
	Materials  Materials          `json:"materials"`
}

// DesignTemplate is a named face/side design bound to a sign type.
type DesignTemplate struct {
	ID           string         `json:"id"`
	Name         string         `json:"name"`
	SignTypeCode string         `json:"signTypeCode,omitempty"`
	Face         View           `json:"face"`
	Side         View           `json:"side"`
	Extra        map[string]any `json:"extra,omitempty"`
}

// Views returns the views keyed by their legacy names.
func (t DesignTemplate) Views() map[string]View {
	return map[string]View{ViewFace: t.Face, ViewSide: t.Side}
}

// Clone returns a deep copy.
func (t DesignTemplate) Clone() DesignTemplate {
	clone := t
	clone.Face = t.Face.clone()
	clone.Side = t.Side.clone()
	clone.Extra = CloneMap(t.Extra)
	return clone
}

func (t DesignTemplate) cloneValue() any { return t.Clone() }

func (v View) clone() View {
	out := v
	out.TextFields = slices.Clone(v.TextFields)
	for i := range out.TextFields {
		out.TextFields[i].Extra = CloneMap(v.TextFields[i].Extra)
	}
	out.Graphics = slices.Clone(v.Graphics)
	for i := range out.Graphics {
		out.Graphics[i].Extra = CloneMap(v.Graphics[i].Extra)
	}
	out.Materials.Extra = CloneMap(v.Materials.Extra)
	return out
}

type legacyTextPlacement struct {
	ID          *string        `mapstructure:"id"`
	FieldName   *string        `mapstructure:"fieldName"`
	X           *float64       `mapstructure:"x"`
	Y           *float64       `mapstructure:"y"`
	Width       *float64       `mapstructure:"width"`
	Height      *float64       `mapstructure:"height"`
	FontSize    *float64       `mapstructure:"fontSize"`
	Align       *string        `mapstructure:"align"`
	Placeholder *string        `mapstructure:"placeholder"`
	Rest        map[string]any `mapstructure:",remain"`
}

type legacyView struct {
	Canvas     *Canvas               `mapstructure:"canvas"`
	TextFields []legacyTextPlacement `mapstructure:"textFields"`
	Graphics   []GraphicPlacement    `mapstructure:"graphics"`
	Materials  *Materials            `mapstructure:"materials"`
}

type legacyTemplate struct {
	ID           *string        `mapstructure:"id"`
	Name         *string        `mapstructure:"name"`
	SignTypeCode *string        `mapstructure:"signTypeCode"`
	FaceView     *legacyView    `mapstructure:"faceView"`
	SideView     *legacyView    `mapstructure:"sideView"`
	Rest         map[string]any `mapstructure:",remain"`
}

// ToLegacy renders the template in the sign-design editor's record shape.
func (t DesignTemplate) ToLegacy() map[string]any {
	out := map[string]any{
		"id":       t.ID,
		"name":     t.Name,
		"faceView": t.Face.toLegacy(),
		"sideView": t.Side.toLegacy(),
	}
	if t.SignTypeCode != "" {
		out["signTypeCode"] = t.SignTypeCode
	}
	for k, v := range t.Extra {
		out[k] = CloneValue(v)
	}
	return out
}

func (v View) toLegacy() map[string]any {
	texts := make([]any, len(v.TextFields))
	for i, p := range v.TextFields {
		entry := CloneMap(p.Extra)
		if entry == nil {
			entry = map[string]any{}
		}
		for k, val := range map[string]any{
			"id":          p.ID,
			"fieldName":   p.FieldName,
			"x":           p.X,
			"y":           p.Y,
			"width":       p.Width,
			"height":      p.Height,
			"placeholder": p.Placeholder,
		} {
			entry[k] = val
		}
		if p.FontSize != 0 {
			entry["fontSize"] = p.FontSize
		}
		if p.Align != "" {
			entry["align"] = p.Align
		}
		texts[i] = entry
	}
	graphics := make([]any, len(v.Graphics))
	for i, g := range v.Graphics {
		entry := CloneMap(g.Extra)
		if entry == nil {
			entry = map[string]any{}
		}
		for k, val := range map[string]any{
			"id":      g.ID,
			"assetId": g.AssetID,
			"x":       g.X,
			"y":       g.Y,
			"width":   g.Width,
			"height":  g.Height,
		} {
			entry[k] = val
		}
		if g.Rotation != 0 {
			entry["rotation"] = g.Rotation
		}
		graphics[i] = entry
	}
	materials := map[string]any{}
	for k, val := range v.Materials.Extra {
		materials[k] = CloneValue(val)
	}
	if v.Materials.Substrate != "" {
		materials["substrate"] = v.Materials.Substrate
	}
	if v.Materials.Finish != "" {
		materials["finish"] = v.Materials.Finish
	}
	if v.Materials.Thickness != 0 {
		materials["thickness"] = v.Materials.Thickness
	}
	canvas := map[string]any{
		"width":  v.Canvas.Width,
		"height": v.Canvas.Height,
	}
	if v.Canvas.Unit != "" {
		canvas["unit"] = v.Canvas.Unit
	}
	if v.Canvas.Background != "" {
		canvas["background"] = v.Canvas.Background
	}
	return map[string]any{
		"canvas":     canvas,
		"textFields": texts,
		"graphics":   graphics,
		"materials":  materials,
	}
}

// TemplateFromLegacy converts a sign-design record into a template.
func TemplateFromLegacy(data map[string]any) DesignTemplate {
	raw, rejected := decodeTolerant[legacyTemplate](data)
	tmpl := DesignTemplate{
		Face: viewFromLegacy(nil),
		Side: viewFromLegacy(nil),
	}
	if raw.ID != nil {
		tmpl.ID = *raw.ID
	}
	if raw.Name != nil {
		tmpl.Name = *raw.Name
	}
	if raw.SignTypeCode != nil {
		tmpl.SignTypeCode = *raw.SignTypeCode
	}
	if raw.FaceView != nil {
		tmpl.Face = viewFromLegacy(raw.FaceView)
	}
	if raw.SideView != nil {
		tmpl.Side = viewFromLegacy(raw.SideView)
	}
	tmpl.Extra = mergeExtra(tmpl.Extra, raw.Rest)
	tmpl.Extra = mergeExtra(tmpl.Extra, rejected)
	return tmpl
}

func viewFromLegacy(raw *legacyView) View {
	view := View{
		Canvas:     DefaultCanvas(),
		TextFields: []TextPlacement{},
		Graphics:   []GraphicPlacement{},
	}
	if raw == nil {
		return view
	}
	if raw.Canvas != nil {
		view.Canvas = *raw.Canvas
	}
	for _, p := range raw.TextFields {
		view.TextFields = append(view.TextFields, textPlacementFromLegacy(p))
	}
	for _, g := range raw.Graphics {
		g.Extra = CloneMap(g.Extra)
		view.Graphics = append(view.Graphics, g)
	}
	if raw.Materials != nil {
		view.Materials = *raw.Materials
		view.Materials.Extra = CloneMap(raw.Materials.Extra)
	}
	return view
}

func textPlacementFromLegacy(p legacyTextPlacement) TextPlacement {
	out := TextPlacement{}
	if p.ID != nil {
		out.ID = *p.ID
	}
	if p.FieldName != nil {
		out.FieldName = *p.FieldName
	}
	if p.X != nil {
		out.X = *p.X
	}
	if p.Y != nil {
		out.Y = *p.Y
	}
	if p.Width != nil {
		out.Width = *p.Width
	}
	if p.Height != nil {
		out.Height = *p.Height
	}
	if p.FontSize != nil {
		out.FontSize = *p.FontSize
	}
	if p.Align != nil {
		out.Align = *p.Align
	}
	if p.Placeholder != nil {
		out.Placeholder = *p.Placeholder
	} else {
		out.Placeholder = Placeholder(out.FieldName)
	}
	if len(p.Rest) > 0 {
		out.Extra = CloneMap(p.Rest)
	}
	return out
}
