// Package domain defines the core types of the outreach scheduling service.
//
// Types in this package are value objects shared by the reconciler, the
// capacity calculator, the rulebook, the repositories and the HTTP layer.
// Derived types (TimelineItem, Slot, DayLoad) are recomputed on every read
// and never persisted.
//
// Rules for this package:
//   - No imports from other internal/ packages
//   - No *sql.DB, no http.Request, no context.Context in struct fields
//   - JSON/DB/YAML tags are allowed (they're metadata, not behavior)
//   - Pure helper methods on the types are allowed
//   - Constants and enums belong here
package domain
