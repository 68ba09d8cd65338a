package mapping

import (
	"github.com/roach88/recordsync/internal/ir"
	"github.com/roach88/recordsync/internal/record"
)

// PendingReference is a relationship captured during hydration that the
// caller still has to resolve into a local link.
type PendingReference struct {
	DestinationEntity string
	Reference         ir.IRReference
}

// Hydration is the result of applying a record to an object.
// PendingReferences is keyed by relationship name; resolving them is the
// caller's job.
type Hydration[T any] struct {
	Entity            *T
	PendingReferences map[string]PendingReference
}

// RecordID derives the remote identity of obj from its local identifier
// and the configured zone.
func (m *Mapping[T]) RecordID(cfg Config, obj *T) (ir.RecordID, error) {
	if err := m.check(); err != nil {
		return ir.RecordID{}, err
	}
	id, err := RecordIDFor(cfg, m.identity.LocalID(obj))
	if err != nil {
		return ir.RecordID{}, m.annotate(err, "")
	}
	return id, nil
}

// ToRecord projects obj onto a remote record.
//
// When obj carries archived system fields, the archived record (type,
// identity and system fields) is the base and keeps its identity;
// otherwise a new record of the entity's type is created under the derived
// identity. Attribute values are copied as-is, absent values included.
// Each to-one relationship that is set becomes a reference; to-many
// relationships are not projected. obj is not modified.
func (m *Mapping[T]) ToRecord(cfg Config, obj *T) (*record.Record, error) {
	if err := m.check(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var rec *record.Record
	if blob := m.identity.SystemFields(obj); len(blob) > 0 {
		base, err := record.DecodeSystemFields(blob)
		if err != nil {
			return nil, &Error{
				Code:    ErrCodeCorruptSystemFields,
				Message: "stored system fields cannot be decoded",
				Entity:  m.entity,
				Err:     err,
			}
		}
		rec = base
	} else {
		id, err := m.RecordID(cfg, obj)
		if err != nil {
			return nil, err
		}
		rec = record.New(m.entity, id)
	}

	for _, a := range m.attrs {
		rec.Set(a.name, a.get(obj))
	}

	for _, r := range m.toOne {
		localID, ok := r.get(obj)
		if !ok {
			continue
		}
		id, err := RecordIDFor(cfg, localID)
		if err != nil {
			return nil, m.annotate(err, r.name)
		}
		rec.Set(r.name, ir.NewReference(id, r.action))
	}

	return rec, nil
}

// FromRecord applies rec to obj.
//
// Keys naming an attribute are written through the attribute's setter.
// Keys naming a to-one relationship and holding a reference are returned
// as pending references. Other keys are ignored. Finally the record's
// system fields are archived onto obj, replacing any earlier archive.
//
// A nil rec reports MISSING_ENTITY_NAME. obj may be partially updated
// when an error is returned.
func (m *Mapping[T]) FromRecord(rec *record.Record, obj *T) (*Hydration[T], error) {
	if err := m.check(); err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, newError(ErrCodeMissingEntityName, m.entity, "", "no record to hydrate from")
	}
	if rec.Type() != m.entity {
		return nil, newError(ErrCodeEntityMismatch, m.entity, "",
			"record %s has type %q", rec.ID(), rec.Type())
	}

	pending := make(map[string]PendingReference)
	for _, key := range rec.Keys() {
		if i, ok := m.attrIdx[key]; ok {
			if err := m.attrs[i].set(obj, rec.Get(key)); err != nil {
				return nil, &Error{
					Code:    ErrCodeTypeMismatch,
					Message: "record value does not fit the attribute",
					Entity:  m.entity,
					Field:   key,
					Err:     err,
				}
			}
			continue
		}

		i, ok := m.toOneIdx[key]
		if !ok {
			continue
		}
		ref, isRef := rec.Reference(key)
		if !isRef {
			continue
		}
		b := m.toOne[i]
		if b.destination == "" {
			return nil, newError(ErrCodeMissingDestination, m.entity, key, "relationship has no destination entity")
		}
		pending[key] = PendingReference{DestinationEntity: b.destination, Reference: ref}
	}

	blob, err := record.EncodeSystemFields(rec)
	if err != nil {
		return nil, &Error{
			Code:    ErrCodeArchiveFailed,
			Message: "system fields cannot be archived",
			Entity:  m.entity,
			Err:     err,
		}
	}
	m.identity.SetSystemFields(obj, blob)

	return &Hydration[T]{Entity: obj, PendingReferences: pending}, nil
}

// check guards against a zero or nil Mapping.
func (m *Mapping[T]) check() error {
	if m == nil || m.entity == "" {
		return newError(ErrCodeMissingEntityName, "", "", "mapping has no entity name")
	}
	return nil
}

// annotate fills in the entity and field of a mapping error.
func (m *Mapping[T]) annotate(err error, field string) error {
	if me, ok := err.(*Error); ok {
		cp := *me
		cp.Entity = m.entity
		if field != "" {
			cp.Field = field
		}
		return &cp
	}
	return err
}
