package local

import (
	"slices"
	"time"

	"github.com/roach88/recordsync/internal/ir"
)

// Object is a schema-driven local entity instance.
//
// Attributes hold values by attribute name; an absent key means no value.
// ToOne and ToMany hold the local identifiers of related objects by
// relationship name.
type Object struct {
	Entity       string
	ID           string
	ModifiedAt   time.Time
	SystemFields []byte
	Attributes   ir.IRObject
	ToOne        map[string]string
	ToMany       map[string][]string
}

// NewObject creates an empty object of entity with a fresh UUIDv7 local
// identifier, stamped with clock's current time.
func NewObject(entity string, clock Clock) *Object {
	return NewObjectWithID(entity, UUIDv7Generator{}.Generate(), clock)
}

// NewObjectWithID is like NewObject with a caller-chosen identifier.
func NewObjectWithID(entity, id string, clock Clock) *Object {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Object{
		Entity:     entity,
		ID:         id,
		ModifiedAt: clock.Now(),
		Attributes: ir.IRObject{},
		ToOne:      map[string]string{},
		ToMany:     map[string][]string{},
	}
}

// Get returns the value of attribute name, or IRNull when unset.
func (o *Object) Get(name string) ir.IRValue {
	v, ok := o.Attributes[name]
	if !ok {
		return ir.IRNull{}
	}
	return v
}

// Set assigns attribute name. A nil or IRNull value clears it.
func (o *Object) Set(name string, v ir.IRValue) {
	if ir.IsNull(v) {
		delete(o.Attributes, name)
		return
	}
	if o.Attributes == nil {
		o.Attributes = ir.IRObject{}
	}
	o.Attributes[name] = v
}

// Link points to-one relationship rel at the object with local id dest.
func (o *Object) Link(rel, dest string) {
	if o.ToOne == nil {
		o.ToOne = map[string]string{}
	}
	o.ToOne[rel] = dest
}

// Unlink clears to-one relationship rel.
func (o *Object) Unlink(rel string) {
	delete(o.ToOne, rel)
}

// Linked returns the local id the to-one relationship rel points at.
func (o *Object) Linked(rel string) (string, bool) {
	id, ok := o.ToOne[rel]
	return id, ok
}

// Add appends dest to to-many relationship rel unless already present.
func (o *Object) Add(rel, dest string) {
	if o.ToMany == nil {
		o.ToMany = map[string][]string{}
	}
	if slices.Contains(o.ToMany[rel], dest) {
		return
	}
	o.ToMany[rel] = append(o.ToMany[rel], dest)
}

// Touch stamps the object with clock's current time.
func (o *Object) Touch(clock Clock) {
	o.ModifiedAt = clock.Now()
}

// Clone returns a deep copy of o.
func (o *Object) Clone() *Object {
	cp := *o
	cp.SystemFields = slices.Clone(o.SystemFields)
	cp.Attributes = o.Attributes.Clone()
	cp.ToOne = make(map[string]string, len(o.ToOne))
	for k, v := range o.ToOne {
		cp.ToOne[k] = v
	}
	cp.ToMany = make(map[string][]string, len(o.ToMany))
	for k, v := range o.ToMany {
		cp.ToMany[k] = slices.Clone(v)
	}
	return &cp
}
