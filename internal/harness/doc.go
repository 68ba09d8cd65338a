// Package harness runs scripted sync scenarios against a fresh store.
//
// # Scenario Format
//
// Scenarios are YAML files:
//
//	name: note_before_folder
//	description: "A note arrives before its folder"
//	model: ../models/notes
//	steps:
//	  - apply:
//	      record_type: Note
//	      record_name: n1
//	      fields:
//	        title: Hello
//	        folder:
//	          $ref:
//	            record_name: f1
//	            zone_name: RecordSyncZone
//	            owner_name: __defaultOwner__
//	            action: none
//	    expect:
//	      created: true
//	      pending: [folder]
//	  - apply:
//	      record_type: Folder
//	      record_name: f1
//	      fields: {name: Inbox}
//	  - resolve: true
//	    expect:
//	      resolved: [n1.folder]
//	assertions:
//	  - type: linked
//	    entity: Note
//	    id: n1
//	    relationship: folder
//	    destination: f1
//
// Applied documents that name no zone land in the scenario's zone.
//
// # Assertion Types
//
//   - object_count: number of stored objects of an entity
//   - pending_count: number of parked references
//   - linked: a relationship points at a local id
//   - projection: a subset of the fields of an object's projected record
//   - absent: no object of an entity has the id
//
// # Deterministic Testing
//
// Every run uses an in-memory SQLite database and a
// testutil.DeterministicClock, so the same scenario always yields the
// same trace. RunWithGolden compares that trace with
// testdata/golden/{name}.golden.
package harness
