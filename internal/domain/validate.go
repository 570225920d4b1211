package domain

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

var (
	codePattern      = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)
	fieldNamePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)
)

// ValidCode reports whether code is an acceptable sign-type code.
func ValidCode(code string) bool {
	return codePattern.MatchString(code)
}

// ValidFieldName reports whether name is an acceptable text-field name.
func ValidFieldName(name string) bool {
	return fieldNamePattern.MatchString(name)
}

// ValidArrow reports whether dir is one of the four arrow literals or none.
func ValidArrow(dir ArrowDirection) bool {
	switch dir {
	case ArrowNone, ArrowUp, ArrowDown, ArrowLeft, ArrowRight:
		return true
	}
	return false
}

// ValidColor reports whether s parses as a #rgb or #rrggbb color.
func ValidColor(s string) bool {
	_, err := parseColor(s)
	return err == nil
}

// NormalizeColor returns s as lowercase #rrggbb. Unparseable input is
// returned unchanged with ok false.
func NormalizeColor(s string) (string, bool) {
	c, err := parseColor(s)
	if err != nil {
		return s, false
	}
	return c.Hex(), true
}

func parseColor(s string) (colorful.Color, error) {
	s = strings.TrimSpace(s)
	if len(s) == 4 && s[0] == '#' {
		s = string([]byte{'#', s[1], s[1], s[2], s[2], s[3], s[3]})
	}
	if len(s) != 7 {
		return colorful.Color{}, fmt.Errorf("color %q: want #rgb or #rrggbb", s)
	}
	return colorful.Hex(s)
}

// Validate runs the advisory checks callers apply before inserting a
// descriptor into the shared catalog. Every problem is reported.
func (d SignTypeDescriptor) Validate() error {
	var errs []error
	if !ValidCode(d.Code) {
		errs = append(errs, fmt.Errorf("sign type: invalid code %q", d.Code))
	}
	if !ValidColor(d.PrimaryColor) {
		errs = append(errs, fmt.Errorf("sign type %s: invalid primary color %q", d.Code, d.PrimaryColor))
	}
	if !ValidColor(d.SecondaryColor) {
		errs = append(errs, fmt.Errorf("sign type %s: invalid secondary color %q", d.Code, d.SecondaryColor))
	}
	seen := make(map[string]struct{}, len(d.TextFields))
	for _, f := range d.TextFields {
		if !ValidFieldName(f.Name) {
			errs = append(errs, fmt.Errorf("sign type %s: invalid field name %q", d.Code, f.Name))
		}
		if _, dup := seen[f.Name]; dup {
			errs = append(errs, fmt.Errorf("sign type %s: duplicate field %q", d.Code, f.Name))
		}
		seen[f.Name] = struct{}{}
		if f.MaxLength < 0 {
			errs = append(errs, fmt.Errorf("sign type %s: field %q has negative max length", d.Code, f.Name))
		}
	}
	return errors.Join(errs...)
}

// FieldMismatch is a text placement whose field the sign type does not declare.
type FieldMismatch struct {
	View      string
	Placement string
	FieldName string
}

func (m FieldMismatch) String() string {
	return fmt.Sprintf("%s/%s: undeclared field %q", m.View, m.Placement, m.FieldName)
}

// CheckTemplateFields lists placements in tmpl that reference fields desc
// does not declare. Mismatches are not errors: such placements simply render
// as an unfilled placeholder.
func CheckTemplateFields(desc SignTypeDescriptor, tmpl DesignTemplate) []FieldMismatch {
	var out []FieldMismatch
	for _, view := range []struct {
		name string
		v    View
	}{{ViewFace, tmpl.Face}, {ViewSide, tmpl.Side}} {
		for _, p := range view.v.TextFields {
			if desc.HasField(p.FieldName) {
				continue
			}
			out = append(out, FieldMismatch{View: view.name, Placement: p.ID, FieldName: p.FieldName})
		}
	}
	return out
}
