// Package record models the remote side: records identified by type, record
// name and zone, holding user fields and opaque system fields.
//
// System fields are owned by the remote datastore. This package can archive
// them to bytes and restore them, and never looks inside beyond that.
package record
