package ocrimport

import (
	"cmp"
	"fmt"
	"math"
	"regexp"
	"slices"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/kingrea/slayer-suite/internal/domain"
)

const (
	DefaultColumnWidth   = 50.0
	DefaultLineGap       = 30.0
	DefaultMinConfidence = 40.0
	DefaultGridSize      = 20.0
)

// RoomOptions tunes ExtractRooms. Zero values take the defaults.
type RoomOptions struct {
	ColumnWidth   float64
	LineGap       float64
	MinConfidence float64
	GridSize      float64
}

func (o RoomOptions) withDefaults() RoomOptions {
	if o.ColumnWidth <= 0 {
		o.ColumnWidth = DefaultColumnWidth
	}
	if o.LineGap <= 0 {
		o.LineGap = DefaultLineGap
	}
	if o.MinConfidence <= 0 {
		o.MinConfidence = DefaultMinConfidence
	}
	if o.GridSize <= 0 {
		o.GridSize = DefaultGridSize
	}
	return o
}

// Room is a room label assembled from one or more stacked readings.
type Room struct {
	Name       string   `json:"name"`
	X          float64  `json:"x"`
	Y          float64  `json:"y"`
	Confidence float64  `json:"confidence"`
	Parts      []string `json:"parts"`
}

var (
	tagPattern     = regexp.MustCompile(`^T\d{3,4}`)
	numericPattern = regexp.MustCompile(`^[\d.,]+$`)
	genericWords   = map[string]struct{}{
		"THE": {}, "AND": {}, "OR": {}, "OF": {}, "TO": {}, "IN": {}, "FOR": {},
	}
)

// IsRoomName reports whether a reading looks like part of a room label
// rather than a door tag (T123), a dimension or a stray glyph.
func IsRoomName(text string) bool {
	t := strings.TrimSpace(text)
	if tagPattern.MatchString(t) || numericPattern.MatchString(t) {
		return false
	}
	if len([]rune(t)) < 2 {
		return false
	}
	return strings.IndexFunc(t, unicode.IsLetter) >= 0
}

// ExtractRooms stacks readings in the same column (|dx| < ColumnWidth,
// |dy| < LineGap from the group's first reading) into multi-line labels,
// drops low-confidence and generic results, keeps the most confident label
// per GridSize cell and returns them sorted top to bottom, then left to
// right.
func ExtractRooms(texts []Text, opts RoomOptions) []Room {
	opts = opts.withDefaults()
	used := make([]bool, len(texts))
	var candidates []Room
	for i, first := range texts {
		if used[i] {
			continue
		}
		used[i] = true
		group := []Text{first}
		for j, other := range texts {
			if used[j] {
				continue
			}
			if math.Abs(first.X-other.X) < opts.ColumnWidth && math.Abs(first.Y-other.Y) < opts.LineGap {
				group = append(group, other)
				used[j] = true
			}
		}
		if room, ok := assemble(group); ok {
			candidates = append(candidates, room)
		}
	}

	type cell struct{ x, y float64 }
	best := map[cell]int{}
	var kept []Room
	for _, room := range candidates {
		if room.Confidence < opts.MinConfidence {
			continue
		}
		if _, generic := genericWords[strings.ToUpper(room.Name)]; generic {
			continue
		}
		key := cell{math.RoundToEven(room.X / opts.GridSize), math.RoundToEven(room.Y / opts.GridSize)}
		if idx, seen := best[key]; seen {
			if kept[idx].Confidence < room.Confidence {
				kept[idx] = room
			}
			continue
		}
		best[key] = len(kept)
		kept = append(kept, room)
	}
	slices.SortStableFunc(kept, func(a, b Room) int {
		if c := cmp.Compare(a.Y, b.Y); c != 0 {
			return c
		}
		return cmp.Compare(a.X, b.X)
	})
	return kept
}

func assemble(group []Text) (Room, bool) {
	slices.SortStableFunc(group, func(a, b Text) int { return cmp.Compare(a.Y, b.Y) })
	var room Room
	for _, t := range group {
		if !IsRoomName(t.Text) {
			continue
		}
		room.Parts = append(room.Parts, strings.TrimSpace(t.Text))
		room.X += t.X
		room.Y += t.Y
		room.Confidence += t.Confidence
	}
	n := float64(len(room.Parts))
	if n == 0 {
		return Room{}, false
	}
	room.X /= n
	room.Y /= n
	room.Confidence /= n
	room.Name = cleanName(strings.Join(room.Parts, " "))
	return room, true
}

var nameCleaner = strings.NewReplacer("  ", " ", " .", ".", " ,", ",")

func cleanName(name string) string {
	return nameCleaner.Replace(name)
}

// SignOptions controls ToSignInstances.
type SignOptions struct {
	TypeCode string
	Page     int
	// TitleCase rewrites shouted plan labels ("BOILER RM") as "Boiler Rm".
	TitleCase bool
	// Field receives the room name; message1 when empty.
	Field string
}

// ToSignInstances places one sign per room, carrying the room name in the
// configured text field and the OCR confidence in Extra.
func ToSignInstances(rooms []Room, opts SignOptions) ([]domain.SignInstance, error) {
	if opts.TypeCode == "" {
		return nil, fmt.Errorf("ocrimport: sign type code is required")
	}
	if opts.Field == "" {
		opts.Field = domain.FieldMessage1
	}
	if !domain.ValidFieldName(opts.Field) {
		return nil, fmt.Errorf("ocrimport: invalid field name %q", opts.Field)
	}
	caser := cases.Title(language.English)
	out := make([]domain.SignInstance, 0, len(rooms))
	for _, room := range rooms {
		sign := domain.NewSignInstance(opts.TypeCode, domain.Location{X: room.X, Y: room.Y, Page: opts.Page})
		name := room.Name
		if opts.TitleCase {
			name = caser.String(name)
		}
		sign.Messages[opts.Field] = name
		sign.Extra = map[string]any{"ocrConfidence": room.Confidence}
		out = append(out, sign)
	}
	return out, nil
}
