// Package mapping converts between local objects and remote records.
//
// A Mapping is built once per entity type from typed accessor closures and
// the entity's schema, then reused for every conversion:
//
//	m, err := mapping.New[Note](model, "Note", identity).
//		Attribute("title", getTitle, setTitle).
//		ToOne("folder", folderID).
//		Build()
//
//	rec, err := m.ToRecord(cfg, note)  // object -> record
//	h, err := m.FromRecord(rec, note)  // record -> object + pending references
//
// # Projection
//
// Attributes are copied by name. To-one relationships become references
// whose delete action follows the inverse relationship's delete rule.
// To-many relationships are never projected.
//
// # Hydration
//
// Record values are written through the typed setters. References are not
// linked here; they come back as PendingReferences for the caller to
// resolve. The record's system fields are archived onto the object so the
// next projection starts from the same remote identity and bookkeeping.
//
// # Errors
//
// Every precondition violation is a *Error with an ErrorCode. Nothing in
// this package panics except the Must helpers.
package mapping
