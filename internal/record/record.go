package record

import (
	"github.com/roach88/recordsync/internal/ir"
)

// SystemFields is vendor bookkeeping carried by a remote record.
// The mapping layer never interprets these values; it only archives and
// restores them.
type SystemFields struct {
	ChangeTag      string      `json:"change_tag,omitempty"`
	CreatedAt      int64       `json:"created_at,omitempty"`  // unix milliseconds
	ModifiedAt     int64       `json:"modified_at,omitempty"` // unix milliseconds
	CreatedBy      string      `json:"created_by,omitempty"`
	LastModifiedBy string      `json:"last_modified_by,omitempty"`
	Extra          ir.IRObject `json:"extra,omitempty"`
}

// IsZero reports whether no system fields have been assigned yet.
func (s SystemFields) IsZero() bool {
	return s.ChangeTag == "" && s.CreatedAt == 0 && s.ModifiedAt == 0 &&
		s.CreatedBy == "" && s.LastModifiedBy == "" && len(s.Extra) == 0
}

// Record is the remote representation of one local object.
type Record struct {
	recordType string
	id         ir.RecordID
	fields     ir.IRObject
	system     SystemFields
}

// New creates an empty record with the given type and identity.
func New(recordType string, id ir.RecordID) *Record {
	return &Record{
		recordType: recordType,
		id:         id,
		fields:     ir.IRObject{},
	}
}

// WithSystemFields returns a record with the given type, identity and
// system fields and no user fields.
func WithSystemFields(recordType string, id ir.RecordID, system SystemFields) *Record {
	r := New(recordType, id)
	r.system = system
	return r
}

// Type returns the record type name.
func (r *Record) Type() string { return r.recordType }

// ID returns the record identity.
func (r *Record) ID() ir.RecordID { return r.id }

// System returns the record's system fields.
func (r *Record) System() SystemFields { return r.system }

// SetSystem replaces the record's system fields. Only the remote side (or
// a test double of it) should call this.
func (r *Record) SetSystem(s SystemFields) { r.system = s }

// Get returns the value stored under key, or IRNull when absent.
func (r *Record) Get(key string) ir.IRValue {
	v, ok := r.fields[key]
	if !ok {
		return ir.IRNull{}
	}
	return v
}

// Has reports whether key holds a value.
func (r *Record) Has(key string) bool {
	_, ok := r.fields[key]
	return ok
}

// Set stores v under key. A nil or IRNull value removes the key.
func (r *Record) Set(key string, v ir.IRValue) {
	if ir.IsNull(v) {
		delete(r.fields, key)
		return
	}
	r.fields[key] = v
}

// Reference returns the reference stored under key.
// ok is false when the key is absent or not reference-typed.
func (r *Record) Reference(key string) (ir.IRReference, bool) {
	ref, ok := r.fields[key].(ir.IRReference)
	return ref, ok
}

// Keys returns the keys that hold values, in canonical order.
func (r *Record) Keys() []string {
	return r.fields.SortedKeys()
}

// Fields returns a copy of the user fields.
func (r *Record) Fields() ir.IRObject {
	return r.fields.Clone()
}
