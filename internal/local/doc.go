// Package local provides schema-driven local objects.
//
// An Object carries its entity name, a local identifier, a modification
// timestamp, the archived system fields of its remote record, attribute
// values and relationship links. A Registry turns each entity of a
// schema.Model into a mapping.Mapping[Object] once and caches it, so
// objects of any entity can be projected and hydrated without hand-written
// accessors.
package local
