package domain

import (
	"reflect"
	"slices"
)

const (
	// FieldMessage1 and FieldMessage2 are the two text fields every sign
	// carries unless its type declares otherwise.
	FieldMessage1 = "message1"
	FieldMessage2 = "message2"

	DefaultPrimaryColor   = "#000000"
	DefaultSecondaryColor = "#ffffff"
)

// TextField is one named text slot declared by a sign type. MaxLength zero
// means unlimited.
type TextField struct {
	Name      string `json:"name" mapstructure:"name"`
	MaxLength int    `json:"maxLength,omitempty" mapstructure:"maxLength"`
}

// DefaultTextFields returns the fields used when a sign type declares none.
func DefaultTextFields() []TextField {
	return []TextField{{Name: FieldMessage1}, {Name: FieldMessage2}}
}

// SignTypeDescriptor is the canonical description of a category of sign.
// Code is unique across the shared catalog.
type SignTypeDescriptor struct {
	ID             string         `json:"id"`
	Code           string         `json:"code"`
	Name           string         `json:"name"`
	PrimaryColor   string         `json:"primaryColor"`
	SecondaryColor string         `json:"secondaryColor"`
	TextFields     []TextField    `json:"textFields"`
	ArrowCapable   bool           `json:"arrowCapable,omitempty"`
	TemplateID     string         `json:"templateId,omitempty"`
	Extra          map[string]any `json:"extra,omitempty"`
}

// HasField reports whether the descriptor declares a field with that name.
func (d SignTypeDescriptor) HasField(name string) bool {
	return slices.ContainsFunc(d.TextFields, func(f TextField) bool { return f.Name == name })
}

// FieldNames lists the declared field names in order.
func (d SignTypeDescriptor) FieldNames() []string {
	names := make([]string, len(d.TextFields))
	for i, f := range d.TextFields {
		names[i] = f.Name
	}
	return names
}

// Clone returns a deep copy.
func (d SignTypeDescriptor) Clone() SignTypeDescriptor {
	clone := d
	clone.TextFields = slices.Clone(d.TextFields)
	clone.Extra = CloneMap(d.Extra)
	return clone
}

func (d SignTypeDescriptor) cloneValue() any { return d.Clone() }

type legacySignType struct {
	ID           *string        `mapstructure:"id"`
	Code         *string        `mapstructure:"code"`
	Name         *string        `mapstructure:"name"`
	Color        *string        `mapstructure:"color"`
	TextColor    *string        `mapstructure:"textColor"`
	TextFields   *[]TextField   `mapstructure:"textFields"`
	ArrowEnabled *bool          `mapstructure:"arrowEnabled"`
	TemplateID   *string        `mapstructure:"templateId"`
	Rest         map[string]any `mapstructure:",remain"`
}

// ToLegacy renders the descriptor in the module-local shape.
func (d SignTypeDescriptor) ToLegacy() map[string]any {
	fields := make([]any, len(d.TextFields))
	for i, f := range d.TextFields {
		field := map[string]any{"name": f.Name}
		if f.MaxLength > 0 {
			field["maxLength"] = f.MaxLength
		}
		fields[i] = field
	}
	out := map[string]any{
		"id":           d.ID,
		"code":         d.Code,
		"name":         d.Name,
		"color":        d.PrimaryColor,
		"textColor":    d.SecondaryColor,
		"textFields":   fields,
		"arrowEnabled": d.ArrowCapable,
	}
	if d.TemplateID != "" {
		out["templateId"] = d.TemplateID
	}
	for k, v := range d.Extra {
		out[k] = CloneValue(v)
	}
	return out
}

// SignTypeFromLegacy converts a module-local record into a descriptor.
// textFields may be a list of names or of {name, maxLength} objects.
func SignTypeFromLegacy(data map[string]any) SignTypeDescriptor {
	raw, rejected := decodeTolerant[legacySignType](data)
	desc := SignTypeDescriptor{
		PrimaryColor:   DefaultPrimaryColor,
		SecondaryColor: DefaultSecondaryColor,
		TextFields:     DefaultTextFields(),
	}
	if raw.ID != nil {
		desc.ID = *raw.ID
	}
	if raw.Code != nil {
		desc.Code = *raw.Code
	}
	if raw.Name != nil {
		desc.Name = *raw.Name
	} else {
		desc.Name = desc.Code
	}
	if raw.Color != nil {
		desc.PrimaryColor = *raw.Color
	}
	if raw.TextColor != nil {
		desc.SecondaryColor = *raw.TextColor
	}
	if raw.TextFields != nil {
		desc.TextFields = slices.Clone(*raw.TextFields)
		if desc.TextFields == nil {
			desc.TextFields = []TextField{}
		}
	}
	if raw.ArrowEnabled != nil {
		desc.ArrowCapable = *raw.ArrowEnabled
	}
	if raw.TemplateID != nil {
		desc.TemplateID = *raw.TemplateID
	}
	desc.Extra = mergeExtra(desc.Extra, raw.Rest)
	desc.Extra = mergeExtra(desc.Extra, rejected)
	return desc
}

var textFieldType = reflect.TypeOf(TextField{})

// textFieldHook lets legacy records list fields as bare names.
func textFieldHook(from reflect.Type, to reflect.Type, data any) (any, error) {
	if from == nil || to != textFieldType || from.Kind() != reflect.String {
		return data, nil
	}
	return map[string]any{"name": data}, nil
}
