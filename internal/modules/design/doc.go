// Package design is the sign-design editor. It keeps one face/side template
// per sign-type code.
//
// Exported data: `{"templates": {CODE: legacy template record}}`.
//
// Data requests: `{"kind": "template", "code": CODE}` returns a
// `domain.DesignTemplate`; `{"kind": "templates"}` returns the codes that
// have one.
//
// Sync events emitted: `template:created`, `template:updated`,
// `template:deleted` with `{code, template}`.
//
// Sync events consumed: `signType:deleted` drops the template for that code;
// `signType:fieldRemoved` and `signType:updated` refresh the field
// diagnostics reported by Diagnostics.
package design
