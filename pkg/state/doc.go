// Package state defines persistence-facing contracts for loading and saving
// serialized query-state snapshots.
//
// Responsibilities:
//   - Store[T] only loads/saves a single snapshot for a single Ref.
//   - Save stamps a SnapshotID and a content ETag and rejects stale writes
//     with ErrETagMismatch. Mutate is the read-modify-write variant.
//   - Backends live in sub packages (file, sqlite, postgres, s3) and are
//     selected from a DSN by the backends package. MemoryStore is the
//     in-process default.
//
// Deterministic keys:
//
//	Ref.Identifier() returns `<scope>/<domain>`, e.g. `default/themes.items`.
//	Backends store one row, object or file per identifier.
package state
