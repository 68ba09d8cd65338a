package ir

import "fmt"

// ZoneID names a record zone and its owner.
type ZoneID struct {
	ZoneName  string `json:"zone_name"`
	OwnerName string `json:"owner_name"`
}

// RecordID is the remote identity of a record: a record name inside a zone.
// Together with the record type it forms the record's composite key.
type RecordID struct {
	RecordName string `json:"record_name"`
	Zone       ZoneID `json:"zone"`
}

// String renders the identity as zone/owner/name for logs and errors.
func (id RecordID) String() string {
	return fmt.Sprintf("%s/%s/%s", id.Zone.ZoneName, id.Zone.OwnerName, id.RecordName)
}

// DeleteAction tells the remote side what to do with a referencing record
// when the referenced record is deleted.
type DeleteAction int

const (
	// DeleteActionNone leaves the referencing record in place.
	DeleteActionNone DeleteAction = iota
	// DeleteActionDeleteSelf deletes the referencing (dependent) record.
	DeleteActionDeleteSelf
)

// String returns the wire name of the action.
func (a DeleteAction) String() string {
	switch a {
	case DeleteActionNone:
		return "none"
	case DeleteActionDeleteSelf:
		return "delete_self"
	default:
		return fmt.Sprintf("DeleteAction(%d)", int(a))
	}
}

// ParseDeleteAction parses the wire name of an action.
func ParseDeleteAction(s string) (DeleteAction, error) {
	switch s {
	case "none":
		return DeleteActionNone, nil
	case "delete_self":
		return DeleteActionDeleteSelf, nil
	default:
		return 0, fmt.Errorf("unknown delete action %q", s)
	}
}
