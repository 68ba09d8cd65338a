package mapping

import (
	"errors"
	"time"

	"github.com/roach88/recordsync/internal/ir"
	"github.com/roach88/recordsync/internal/schema"
)

// Getter reads an attribute value from an object.
// It returns IRNull (or nil) when the attribute has no value.
type Getter[T any] func(obj *T) ir.IRValue

// Setter writes an attribute value onto an object. It returns an error
// when v does not fit the attribute.
type Setter[T any] func(obj *T, v ir.IRValue) error

// Related reads a to-one relationship. ok is false when no related object
// is set; otherwise localID is the related object's local identifier.
type Related[T any] func(obj *T) (localID string, ok bool)

// Identity binds the bookkeeping every synchronized object carries.
// LocalID, SystemFields and SetSystemFields are required.
type Identity[T any] struct {
	LocalID         func(obj *T) string
	ModifiedAt      func(obj *T) time.Time
	SystemFields    func(obj *T) []byte
	SetSystemFields func(obj *T, blob []byte)
}

type attributeBinding[T any] struct {
	name string
	get  Getter[T]
	set  Setter[T]
}

type referenceBinding[T any] struct {
	name        string
	destination string
	action      ir.DeleteAction
	get         Related[T]
}

// Mapping converts between objects of type T and remote records for one
// entity. A Mapping is immutable once built and may be shared.
type Mapping[T any] struct {
	entity   string
	identity Identity[T]

	attrs    []attributeBinding[T]
	attrIdx  map[string]int
	toOne    []referenceBinding[T]
	toOneIdx map[string]int
}

// Entity returns the entity (and record type) name.
func (m *Mapping[T]) Entity() string {
	return m.entity
}

// ReferenceAction returns the delete action projected for to-one
// relationship name.
func (m *Mapping[T]) ReferenceAction(name string) (ir.DeleteAction, bool) {
	i, ok := m.toOneIdx[name]
	if !ok {
		return 0, false
	}
	return m.toOne[i].action, true
}

// ModificationDate returns the object's modification timestamp.
// ok is false when the mapping has no ModifiedAt accessor.
func (m *Mapping[T]) ModificationDate(obj *T) (time.Time, bool) {
	if m.identity.ModifiedAt == nil {
		return time.Time{}, false
	}
	return m.identity.ModifiedAt(obj), true
}

// Builder collects typed accessors for one entity. Every attribute and
// every to-one relationship of the entity must be bound before Build.
type Builder[T any] struct {
	model    *schema.Model
	entity   string
	identity Identity[T]

	attrs []attributeBinding[T]
	toOne []referenceBinding[T]
	bound map[string]bool
	errs  []error
}

// New starts a mapping for entity in model.
func New[T any](model *schema.Model, entity string, identity Identity[T]) *Builder[T] {
	return &Builder[T]{
		model:    model,
		entity:   entity,
		identity: identity,
		bound:    make(map[string]bool),
	}
}

// Attribute binds the accessors of attribute name.
func (b *Builder[T]) Attribute(name string, get Getter[T], set Setter[T]) *Builder[T] {
	if !b.claim(name) {
		return b
	}
	if get == nil || set == nil {
		b.errs = append(b.errs, newError(ErrCodeInvalidBinding, b.entity, name, "attribute needs both a getter and a setter"))
		return b
	}
	b.attrs = append(b.attrs, attributeBinding[T]{name: name, get: get, set: set})
	return b
}

// ToOne binds the accessor of to-one relationship name.
func (b *Builder[T]) ToOne(name string, get Related[T]) *Builder[T] {
	if !b.claim(name) {
		return b
	}
	if get == nil {
		b.errs = append(b.errs, newError(ErrCodeInvalidBinding, b.entity, name, "relationship needs an accessor"))
		return b
	}
	b.toOne = append(b.toOne, referenceBinding[T]{name: name, get: get})
	return b
}

func (b *Builder[T]) claim(name string) bool {
	if b.bound[name] {
		b.errs = append(b.errs, newError(ErrCodeInvalidBinding, b.entity, name, "bound more than once"))
		return false
	}
	b.bound[name] = true
	return true
}

// Build checks the bindings against the schema and returns the mapping.
// Delete actions for to-one relationships are resolved here, once.
func (b *Builder[T]) Build() (*Mapping[T], error) {
	if b.entity == "" {
		return nil, newError(ErrCodeMissingEntityName, "", "", "entity name is empty")
	}
	if b.model == nil {
		return nil, newError(ErrCodeMissingEntityName, b.entity, "", "no model to look the entity up in")
	}
	ent, ok := b.model.Entity(b.entity)
	if !ok {
		return nil, newError(ErrCodeMissingEntityName, b.entity, "", "entity is not declared in the model")
	}

	errs := append([]error(nil), b.errs...)
	if b.identity.LocalID == nil || b.identity.SystemFields == nil || b.identity.SetSystemFields == nil {
		errs = append(errs, newError(ErrCodeInvalidBinding, b.entity, "", "identity needs LocalID, SystemFields and SetSystemFields"))
	}

	m := &Mapping[T]{
		entity:   ent.Name,
		identity: b.identity,
		attrIdx:  make(map[string]int, len(b.attrs)),
		toOneIdx: make(map[string]int, len(b.toOne)),
	}

	for _, a := range b.attrs {
		if _, ok := ent.AttributeByName(a.name); !ok {
			errs = append(errs, newError(ErrCodeInvalidBinding, ent.Name, a.name, "no such attribute"))
			continue
		}
		m.attrIdx[a.name] = len(m.attrs)
		m.attrs = append(m.attrs, a)
	}
	for _, attr := range ent.Attributes {
		if _, ok := m.attrIdx[attr.Name]; !ok {
			errs = append(errs, newError(ErrCodeUnboundProperty, ent.Name, attr.Name, "attribute has no accessors"))
		}
	}

	for _, r := range b.toOne {
		rel, ok := ent.RelationshipByName(r.name)
		if !ok || rel.ToMany {
			errs = append(errs, newError(ErrCodeInvalidBinding, ent.Name, r.name, "no such to-one relationship"))
			continue
		}
		action, err := deleteActionFor(b.model, ent.Name, rel)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		r.destination = rel.Destination
		r.action = action
		m.toOneIdx[r.name] = len(m.toOne)
		m.toOne = append(m.toOne, r)
	}
	for _, rel := range ent.ToOne() {
		if !b.bound[rel.Name] {
			errs = append(errs, newError(ErrCodeUnboundProperty, ent.Name, rel.Name, "relationship has no accessor"))
		}
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return m, nil
}

// deleteActionFor derives the reference action of a to-one relationship
// from the delete rule of its inverse: cascade deletes the dependent
// record, any other rule does nothing, and no inverse at all defaults to
// deleting the dependent record.
func deleteActionFor(model *schema.Model, entity string, rel *schema.Relationship) (ir.DeleteAction, error) {
	if rel.Inverse == "" {
		return ir.DeleteActionDeleteSelf, nil
	}
	inverse, ok := model.InverseOf(entity, rel.Name)
	if !ok {
		return 0, newError(ErrCodeInconsistentInverse, entity, rel.Name,
			"inverse %q not found on %q", rel.Inverse, rel.Destination)
	}
	if inverse.DeleteRule == schema.DeleteRuleCascade {
		return ir.DeleteActionDeleteSelf, nil
	}
	return ir.DeleteActionNone, nil
}

// MustBuild is like Build but panics on error.
// Use only in tests or for mappings known to be valid.
func (b *Builder[T]) MustBuild() *Mapping[T] {
	m, err := b.Build()
	if err != nil {
		panic(err)
	}
	return m
}
