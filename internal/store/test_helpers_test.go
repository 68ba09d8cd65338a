package store

import (
	"path/filepath"
	"testing"

	"github.com/roach88/recordsync/internal/ir"
	"github.com/roach88/recordsync/internal/local"
	"github.com/roach88/recordsync/internal/mapping"
	"github.com/roach88/recordsync/internal/testutil"
)

// createTestStore creates a new store in a temporary directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestObject creates an object with a deterministic timestamp.
func createTestObject(entity, id string) *local.Object {
	return local.NewObjectWithID(entity, id, testutil.NewDeterministicClock())
}

// pendingTo builds a pending reference to the record named name.
func pendingTo(entity, name string) mapping.PendingReference {
	cfg := mapping.DefaultConfig()
	return mapping.PendingReference{
		DestinationEntity: entity,
		Reference:         ir.NewReference(ir.RecordID{RecordName: name, Zone: cfg.ZoneID()}, ir.DeleteActionNone),
	}
}
