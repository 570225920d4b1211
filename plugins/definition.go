package plugins

import (
	"errors"
	"fmt"
	"strings"

	"github.com/kingrea/slayer-suite/internal/domain"
)

// CatalogDefinition describes one catalog plugin file.
//
// The struct mirrors the on-disk schema under .slayer/catalog/*.yaml. Sign
// types are kept in their module-local record shape (code, name, color,
// textColor, textFields, arrowEnabled) so files written by hand and files
// exported from the design editor look the same.
type CatalogDefinition struct {
	Name        string           `json:"name,omitempty" yaml:"name,omitempty"`
	Description string           `json:"description,omitempty" yaml:"description,omitempty"`
	SignTypes   []map[string]any `json:"sign_types" yaml:"sign_types"`
}

// Normalized returns a trimmed copy of the definition. Record keys are
// trimmed and string codes are upper-cased.
func (def CatalogDefinition) Normalized() CatalogDefinition {
	clone := CatalogDefinition{
		Name:        strings.TrimSpace(def.Name),
		Description: strings.TrimSpace(def.Description),
	}
	if len(def.SignTypes) == 0 {
		return clone
	}
	clone.SignTypes = make([]map[string]any, 0, len(def.SignTypes))
	for _, record := range def.SignTypes {
		normalized := make(map[string]any, len(record))
		for key, value := range record {
			trimmed := strings.TrimSpace(key)
			if trimmed == "" {
				continue
			}
			normalized[trimmed] = domain.CloneValue(value)
		}
		if code, ok := normalized["code"].(string); ok {
			normalized["code"] = strings.ToUpper(strings.TrimSpace(code))
		}
		clone.SignTypes = append(clone.SignTypes, normalized)
	}
	return clone
}

// Validate ensures the file declares at least one sign type and that every
// entry carries a code. Per-entry advisory checks happen in Descriptors.
func (def CatalogDefinition) Validate() error {
	normalized := def.Normalized()
	label := normalized.Name
	if label == "" {
		label = "catalog"
	}
	if len(normalized.SignTypes) == 0 {
		return fmt.Errorf("plugin %s: sign_types is required", label)
	}
	for idx, record := range normalized.SignTypes {
		code, _ := record["code"].(string)
		if code == "" {
			return fmt.Errorf("plugin %s: sign_types[%d]: code is required", label, idx)
		}
	}
	return nil
}

// Descriptors converts the declared records into sign type descriptors.
// Entries that fail the advisory checks are left out and reported in the
// joined error; the valid ones are still returned.
func (def CatalogDefinition) Descriptors() ([]domain.SignTypeDescriptor, error) {
	normalized := def.Normalized()
	var (
		out  []domain.SignTypeDescriptor
		errs []error
	)
	for idx, record := range normalized.SignTypes {
		desc := domain.SignTypeFromLegacy(record)
		if err := desc.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("sign_types[%d]: %w", idx, err))
			continue
		}
		out = append(out, desc)
	}
	return out, errors.Join(errs...)
}
