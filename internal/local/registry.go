package local

import (
	"fmt"
	"sync"
	"time"

	"github.com/roach88/recordsync/internal/ir"
	"github.com/roach88/recordsync/internal/mapping"
	"github.com/roach88/recordsync/internal/schema"
)

// Registry derives a mapping for each entity of a model the first time it
// is asked for and reuses it afterwards.
//
// Thread-safety: Registry is safe for concurrent use.
type Registry struct {
	model *schema.Model

	mu       sync.RWMutex
	mappings map[string]*mapping.Mapping[Object]
}

// NewRegistry creates a registry over model.
func NewRegistry(model *schema.Model) *Registry {
	return &Registry{
		model:    model,
		mappings: make(map[string]*mapping.Mapping[Object]),
	}
}

// Model returns the model the registry maps.
func (r *Registry) Model() *schema.Model {
	return r.model
}

// Mapping returns the mapping of entity, building it on first use.
func (r *Registry) Mapping(entity string) (*mapping.Mapping[Object], error) {
	r.mu.RLock()
	m, ok := r.mappings[entity]
	r.mu.RUnlock()
	if ok {
		return m, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if m, ok := r.mappings[entity]; ok {
		return m, nil
	}
	m, err := r.build(entity)
	if err != nil {
		return nil, err
	}
	r.mappings[entity] = m
	return m, nil
}

func (r *Registry) build(entity string) (*mapping.Mapping[Object], error) {
	b := mapping.New[Object](r.model, entity, mapping.Identity[Object]{
		LocalID:         func(o *Object) string { return o.ID },
		ModifiedAt:      func(o *Object) time.Time { return o.ModifiedAt },
		SystemFields:    func(o *Object) []byte { return o.SystemFields },
		SetSystemFields: func(o *Object, blob []byte) { o.SystemFields = blob },
	})

	// An unknown entity leaves the builder empty; Build reports it.
	ent, ok := r.model.Entity(entity)
	if ok {
		for _, attr := range ent.Attributes {
			name := attr.Name
			b.Attribute(name,
				func(o *Object) ir.IRValue { return o.Get(name) },
				setterFor(attr))
		}
		for _, rel := range ent.ToOne() {
			name := rel.Name
			b.ToOne(name, func(o *Object) (string, bool) { return o.Linked(name) })
		}
	}
	return b.Build()
}

// CheckRequired reports the first attribute of obj's entity that is not
// optional and has no value, in declaration order.
func (r *Registry) CheckRequired(obj *Object) error {
	ent, ok := r.model.Entity(obj.Entity)
	if !ok {
		return &mapping.Error{
			Code:    mapping.ErrCodeMissingEntityName,
			Message: "entity is not declared in the model",
			Entity:  obj.Entity,
		}
	}
	for _, attr := range ent.Attributes {
		if attr.Optional || !ir.IsNull(obj.Get(attr.Name)) {
			continue
		}
		return &mapping.Error{
			Code:    mapping.ErrCodeMissingAttribute,
			Message: fmt.Sprintf("object %s has no value for a required attribute", obj.ID),
			Entity:  ent.Name,
			Field:   attr.Name,
		}
	}
	return nil
}

// setterFor returns a setter that only accepts values of attr's type.
func setterFor(attr schema.Attribute) mapping.Setter[Object] {
	name := attr.Name
	return func(o *Object, v ir.IRValue) error {
		if !ir.IsNull(v) && !fits(attr.Type, v) {
			return fmt.Errorf("attribute %q is %s, got %T", name, attr.Type, v)
		}
		o.Set(name, v)
		return nil
	}
}

// fits reports whether v is a value of type t. Timestamps are unix
// milliseconds. Lists hold plain data only; references are field values.
func fits(t schema.AttributeType, v ir.IRValue) bool {
	switch val := v.(type) {
	case ir.IRString:
		return t == schema.TypeString
	case ir.IRInt:
		return t == schema.TypeInt || t == schema.TypeTimestamp
	case ir.IRBool:
		return t == schema.TypeBool
	case ir.IRArray:
		return t == schema.TypeList && !holdsReference(val)
	default:
		return false
	}
}

func holdsReference(v ir.IRValue) bool {
	switch val := v.(type) {
	case ir.IRReference:
		return true
	case ir.IRArray:
		for _, elem := range val {
			if holdsReference(elem) {
				return true
			}
		}
	case ir.IRObject:
		for _, elem := range val {
			if holdsReference(elem) {
				return true
			}
		}
	}
	return false
}
