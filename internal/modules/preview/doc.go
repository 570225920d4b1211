// Package preview is the production-preview editor: a read-only projection
// of the mapped signs plus the production status the shop floor records
// against them.
//
// On activation it asks the mapping editor for `{"kind": "signs"}` through
// the router; afterwards it follows `sign:*` sync events. Only the status
// flags are its own data.
//
// Exported data: `{"status": {SIGN_ID: {"installed": bool, "produced": bool}}}`.
package preview
