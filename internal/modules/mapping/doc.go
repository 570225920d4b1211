// Package mapping is the location-mapping editor: it places signs on floor
// plan pages and owns the authoritative list of sign instances.
//
// Private state:
//   - One flat record per sign, in the shape older saves use: fixed keys
//     (`id`, `type`, `x`, `y`, `page`, `arrow`, `notes`, `installed`,
//     `produced`) plus one top-level key per text field. Records are kept as
//     maps so keys this editor does not understand survive a round trip.
//   - The set of sign-type codes deleted from the shared catalog while signs
//     still reference them.
//
// Exported data (`ExportData`): `{"signs": [record, ...]}`.
//
// Data requests answered (`HandleDataRequest`):
//   - `{"kind": "signs"}` returns `[]domain.SignInstance` in placement order.
//   - `{"kind": "sign", "id": ID}` returns one `domain.SignInstance`.
//
// Sync events emitted: `sign:created`, `sign:updated`, `sign:deleted`,
// `sign:messageChanged`, `sign:notesChanged`. Payloads carry `id` and, except
// for deletion, the canonical `sign`.
//
// Sync events consumed: `signType:deleted` marks the code orphaned,
// `signType:created` clears it.
package mapping
