package schema

import (
	"fmt"
	"sort"
	"strings"
)

// Validation error codes (E100-E199)
const (
	ErrEmptyName          = "E101" // entity or property name is empty
	ErrDuplicateName      = "E102" // duplicate entity or property name
	ErrInvalidType        = "E103" // unknown attribute type
	ErrUnknownDestination = "E104" // relationship destination does not exist
	ErrUnknownInverse     = "E105" // inverse relationship does not exist
	ErrInverseMismatch    = "E106" // inverse does not point back
	ErrInvalidDeleteRule  = "E107" // unknown delete rule
	ErrReservedName       = "E108" // property uses a bookkeeping name
)

// ReservedNames are bookkeeping fields every local object carries outside
// its attributes. They cannot be declared as properties.
var ReservedNames = map[string]bool{
	"local_record_id":       true,
	"modification_date":     true,
	"encoded_system_fields": true,
}

// ValidationError represents a model validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Line    int    `json:"line,omitempty"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("[%s] line %d: %s: %s", e.Code, e.Line, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Model is a set of entity descriptors keyed by name.
type Model struct {
	entities   map[string]*Entity
	duplicates []string
}

// NewModel builds a model from entity descriptors.
// Duplicate names are kept as the last one; Validate reports them.
func NewModel(entities ...Entity) *Model {
	m := &Model{entities: make(map[string]*Entity, len(entities))}
	for i := range entities {
		e := entities[i]
		if _, dup := m.entities[e.Name]; dup {
			m.duplicates = append(m.duplicates, e.Name)
		}
		m.entities[e.Name] = &e
	}
	return m
}

// Entity returns the entity called name.
func (m *Model) Entity(name string) (*Entity, bool) {
	e, ok := m.entities[name]
	return e, ok
}

// Names returns entity names in sorted order.
func (m *Model) Names() []string {
	names := make([]string, 0, len(m.entities))
	for n := range m.entities {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// InverseOf returns the inverse of relationship rel declared on entity.
// ok is false when rel declares no inverse or the inverse cannot be found.
func (m *Model) InverseOf(entity string, rel string) (*Relationship, bool) {
	e, ok := m.entities[entity]
	if !ok {
		return nil, false
	}
	r, ok := e.RelationshipByName(rel)
	if !ok || r.Inverse == "" {
		return nil, false
	}
	dest, ok := m.entities[r.Destination]
	if !ok {
		return nil, false
	}
	return dest.RelationshipByName(r.Inverse)
}

// Validate checks structural consistency of the model.
// Returns all errors found (does not fail-fast).
func (m *Model) Validate() []ValidationError {
	var errs []ValidationError
	for _, name := range m.duplicates {
		errs = append(errs, ValidationError{
			Field:   "entity." + name,
			Message: fmt.Sprintf("duplicate entity name: %q", name),
			Code:    ErrDuplicateName,
		})
	}
	for _, name := range m.Names() {
		errs = append(errs, m.validateEntity(m.entities[name])...)
	}
	return errs
}

func (m *Model) validateEntity(e *Entity) []ValidationError {
	var errs []ValidationError
	prefix := "entity." + e.Name

	if strings.TrimSpace(e.Name) == "" {
		errs = append(errs, ValidationError{
			Field:   "entity",
			Message: "entity name is required",
			Code:    ErrEmptyName,
		})
	}

	seen := make(map[string]bool)
	checkName := func(field, name string) {
		switch {
		case strings.TrimSpace(name) == "":
			errs = append(errs, ValidationError{
				Field:   field,
				Message: "property name is required",
				Code:    ErrEmptyName,
			})
		case ReservedNames[name]:
			errs = append(errs, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("%q is reserved for bookkeeping", name),
				Code:    ErrReservedName,
			})
		case seen[name]:
			errs = append(errs, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("duplicate property name: %q", name),
				Code:    ErrDuplicateName,
			})
		}
		seen[name] = true
	}

	for i, a := range e.Attributes {
		field := fmt.Sprintf("%s.attributes[%d]", prefix, i)
		checkName(field, a.Name)
		if !ValidAttributeTypes[a.Type] {
			errs = append(errs, ValidationError{
				Field:   field + ".type",
				Message: fmt.Sprintf("unknown attribute type %q", a.Type),
				Code:    ErrInvalidType,
			})
		}
	}

	for i, r := range e.Relationships {
		field := fmt.Sprintf("%s.relationships[%d]", prefix, i)
		checkName(field, r.Name)

		if !ValidDeleteRules[r.DeleteRule] {
			errs = append(errs, ValidationError{
				Field:   field + ".delete_rule",
				Message: fmt.Sprintf("unknown delete rule %q", r.DeleteRule),
				Code:    ErrInvalidDeleteRule,
			})
		}

		dest, ok := m.entities[r.Destination]
		if !ok {
			errs = append(errs, ValidationError{
				Field:   field + ".destination",
				Message: fmt.Sprintf("unknown destination entity %q", r.Destination),
				Code:    ErrUnknownDestination,
			})
			continue
		}
		if r.Inverse == "" {
			continue
		}
		inv, ok := dest.RelationshipByName(r.Inverse)
		if !ok {
			errs = append(errs, ValidationError{
				Field:   field + ".inverse",
				Message: fmt.Sprintf("entity %q has no relationship %q", r.Destination, r.Inverse),
				Code:    ErrUnknownInverse,
			})
			continue
		}
		if inv.Destination != e.Name || (inv.Inverse != "" && inv.Inverse != r.Name) {
			errs = append(errs, ValidationError{
				Field:   field + ".inverse",
				Message: fmt.Sprintf("%s.%s does not point back to %s.%s", r.Destination, r.Inverse, e.Name, r.Name),
				Code:    ErrInverseMismatch,
			})
		}
	}

	return errs
}
