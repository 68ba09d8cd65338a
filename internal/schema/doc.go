// Package schema describes local entity types: their attributes, their
// relationships, and the delete rules that govern those relationships.
//
// A Model is the introspection surface the mapping layer consumes. It is
// built once (usually by the compiler package from CUE files) and treated
// as read-only afterwards.
package schema
