// Package bridge connects stored local objects with the records an
// external sync manager uploads and downloads.
//
// Project and ProjectAll turn stored objects into records. Apply takes a
// downloaded record, hydrates (or creates) the matching object, saves it
// and links the references whose destinations are already stored; the
// rest are parked until ResolvePending finds their destination.
//
// Transport, conflict resolution, change tracking and retries are the
// sync manager's concern, not the bridge's.
package bridge
