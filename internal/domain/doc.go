// Package domain defines the canonical entities every editor converts to and
// from: sign-type descriptors, placed sign instances and design templates.
//
// Each entity has a ToLegacy method producing the module-local map shape and
// a matching ...FromLegacy constructor. Conversions are total: unknown keys
// are carried through the entity's open mapping verbatim, and values that do
// not decode are kept under their original key instead of being dropped.
// Defaults apply only to keys that are absent, never to present-but-empty
// values.
//
// The validation helpers (ValidCode, ValidFieldName, ValidColor,
// CheckTemplateFields, SignTypeDescriptor.Validate) are advisory. The
// adapters never call them.
package domain
