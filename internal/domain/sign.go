package domain

import (
	"maps"
	"sort"
)

// DefaultPage is the floor/page a sign lands on when its record names none.
const DefaultPage = 1

// ArrowDirection is the optional arrow printed on a sign.
type ArrowDirection string

const (
	ArrowNone  ArrowDirection = ""
	ArrowUp    ArrowDirection = "up"
	ArrowDown  ArrowDirection = "down"
	ArrowLeft  ArrowDirection = "left"
	ArrowRight ArrowDirection = "right"
)

// Location places a sign on a page of the floor plan.
type Location struct {
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	Page int     `json:"page"`
}

// SignInstance is one placed sign.
//
// Messages is the open field mapping: it holds the declared text fields and
// any string-valued field a module invents. Extra carries module-invented
// values that are not text, plus values that failed to decode, under their
// original keys.
type SignInstance struct {
	ID        string            `json:"id"`
	TypeCode  string            `json:"typeCode"`
	Location  Location          `json:"location"`
	Messages  map[string]string `json:"messages"`
	Extra     map[string]any    `json:"extra,omitempty"`
	Arrow     ArrowDirection    `json:"arrow,omitempty"`
	Notes     string            `json:"notes,omitempty"`
	Installed bool              `json:"installed"`
	Produced  bool              `json:"produced"`
}

// NewSignInstance returns an instance of typeCode at loc with a fresh id.
func NewSignInstance(typeCode string, loc Location) SignInstance {
	if loc.Page == 0 {
		loc.Page = DefaultPage
	}
	return SignInstance{
		ID:       NewID(),
		TypeCode: typeCode,
		Location: loc,
		Messages: map[string]string{},
	}
}

// Message returns the text stored for a field.
func (s SignInstance) Message(field string) string {
	return s.Messages[field]
}

// FieldNames lists the field names present in the open mapping, sorted.
func (s SignInstance) FieldNames() []string {
	names := make([]string, 0, len(s.Messages))
	for name := range s.Messages {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Clone returns a deep copy.
func (s SignInstance) Clone() SignInstance {
	clone := s
	clone.Messages = maps.Clone(s.Messages)
	clone.Extra = CloneMap(s.Extra)
	return clone
}

func (s SignInstance) cloneValue() any { return s.Clone() }

// Legacy record keys with a fixed meaning. A message whose name collides with
// one of these travels under messageOverflow instead.
const (
	legacyKeyID        = "id"
	legacyKeyType      = "type"
	legacyKeyX         = "x"
	legacyKeyY         = "y"
	legacyKeyPage      = "page"
	legacyKeyArrow     = "arrow"
	legacyKeyNotes     = "notes"
	legacyKeyInstalled = "installed"
	legacyKeyProduced  = "produced"
	legacyKeyOverflow  = "messageOverflow"
)

var reservedSignKeys = map[string]struct{}{
	legacyKeyID: {}, legacyKeyType: {}, legacyKeyX: {}, legacyKeyY: {},
	legacyKeyPage: {}, legacyKeyArrow: {}, legacyKeyNotes: {},
	legacyKeyInstalled: {}, legacyKeyProduced: {}, legacyKeyOverflow: {},
}

type legacySign struct {
	ID        *string           `mapstructure:"id"`
	Type      *string           `mapstructure:"type"`
	X         *float64          `mapstructure:"x"`
	Y         *float64          `mapstructure:"y"`
	Page      *int              `mapstructure:"page"`
	Arrow     *string           `mapstructure:"arrow"`
	Notes     *string           `mapstructure:"notes"`
	Installed *bool             `mapstructure:"installed"`
	Produced  *bool             `mapstructure:"produced"`
	Overflow  map[string]string `mapstructure:"messageOverflow"`
	Rest      map[string]any    `mapstructure:",remain"`
}

// ToLegacy renders the instance as the flat record the location-mapping
// editor stores: fixed keys plus one top-level key per message.
func (s SignInstance) ToLegacy() map[string]any {
	out := make(map[string]any, len(reservedSignKeys)+len(s.Messages)+len(s.Extra))
	var overflow map[string]any
	for name, text := range s.Messages {
		if _, reserved := reservedSignKeys[name]; reserved {
			if overflow == nil {
				overflow = map[string]any{}
			}
			overflow[name] = text
			continue
		}
		out[name] = text
	}
	out[legacyKeyID] = s.ID
	out[legacyKeyType] = s.TypeCode
	out[legacyKeyX] = s.Location.X
	out[legacyKeyY] = s.Location.Y
	out[legacyKeyPage] = s.Location.Page
	out[legacyKeyArrow] = string(s.Arrow)
	out[legacyKeyNotes] = s.Notes
	out[legacyKeyInstalled] = s.Installed
	out[legacyKeyProduced] = s.Produced
	if overflow != nil {
		out[legacyKeyOverflow] = overflow
	}
	for k, v := range s.Extra {
		out[k] = CloneValue(v)
	}
	return out
}

// SignInstanceFromLegacy converts a flat module-local record into an instance.
func SignInstanceFromLegacy(data map[string]any) SignInstance {
	raw, rejected := decodeTolerant[legacySign](data)
	inst := SignInstance{
		Location: Location{Page: DefaultPage},
		Messages: map[string]string{},
	}
	if raw.ID != nil {
		inst.ID = *raw.ID
	}
	if raw.Type != nil {
		inst.TypeCode = *raw.Type
	}
	if raw.X != nil {
		inst.Location.X = *raw.X
	}
	if raw.Y != nil {
		inst.Location.Y = *raw.Y
	}
	if raw.Page != nil {
		inst.Location.Page = *raw.Page
	}
	if raw.Arrow != nil {
		inst.Arrow = ArrowDirection(*raw.Arrow)
	}
	if raw.Notes != nil {
		inst.Notes = *raw.Notes
	}
	if raw.Installed != nil {
		inst.Installed = *raw.Installed
	}
	if raw.Produced != nil {
		inst.Produced = *raw.Produced
	}
	for name, text := range raw.Overflow {
		inst.Messages[name] = text
	}
	for key, value := range raw.Rest {
		if text, ok := value.(string); ok {
			inst.Messages[key] = text
			continue
		}
		inst.Extra = mergeExtra(inst.Extra, map[string]any{key: value})
	}
	inst.Extra = mergeExtra(inst.Extra, rejected)
	return inst
}
