package schema

import "fmt"

// AttributeType is the storage type of an attribute.
type AttributeType string

const (
	TypeString    AttributeType = "string"
	TypeInt       AttributeType = "int"
	TypeBool      AttributeType = "bool"
	TypeTimestamp AttributeType = "timestamp" // unix milliseconds
	TypeList      AttributeType = "list"
)

// ValidAttributeTypes defines allowed attribute types.
var ValidAttributeTypes = map[AttributeType]bool{
	TypeString:    true,
	TypeInt:       true,
	TypeBool:      true,
	TypeTimestamp: true,
	TypeList:      true,
}

// ParseAttributeType parses a type name as written in model files.
func ParseAttributeType(s string) (AttributeType, error) {
	t := AttributeType(s)
	if !ValidAttributeTypes[t] {
		return "", fmt.Errorf("unknown attribute type %q", s)
	}
	return t, nil
}

// DeleteRule is what happens to related objects when an object is deleted.
type DeleteRule string

const (
	DeleteRuleNullify  DeleteRule = "nullify"
	DeleteRuleCascade  DeleteRule = "cascade"
	DeleteRuleDeny     DeleteRule = "deny"
	DeleteRuleNoAction DeleteRule = "no_action"
)

// ValidDeleteRules defines allowed delete rules.
var ValidDeleteRules = map[DeleteRule]bool{
	DeleteRuleNullify:  true,
	DeleteRuleCascade:  true,
	DeleteRuleDeny:     true,
	DeleteRuleNoAction: true,
}

// ParseDeleteRule parses a delete rule name. The empty string is nullify.
func ParseDeleteRule(s string) (DeleteRule, error) {
	if s == "" {
		return DeleteRuleNullify, nil
	}
	r := DeleteRule(s)
	if !ValidDeleteRules[r] {
		return "", fmt.Errorf("unknown delete rule %q", s)
	}
	return r, nil
}

// Attribute describes a named scalar property of an entity.
type Attribute struct {
	Name     string        `json:"name"`
	Type     AttributeType `json:"type"`
	Optional bool          `json:"optional,omitempty"`
}

// Relationship describes a named link from an entity to another entity.
type Relationship struct {
	Name        string     `json:"name"`
	Destination string     `json:"destination"`       // destination entity name
	ToMany      bool       `json:"to_many,omitempty"` // false = to-one
	Inverse     string     `json:"inverse,omitempty"` // relationship name on Destination
	DeleteRule  DeleteRule `json:"delete_rule"`
}

// Entity describes one local entity type.
type Entity struct {
	Name          string         `json:"name"`
	Attributes    []Attribute    `json:"attributes"`
	Relationships []Relationship `json:"relationships"`
}

// AttributeByName returns the attribute called name.
func (e *Entity) AttributeByName(name string) (*Attribute, bool) {
	for i := range e.Attributes {
		if e.Attributes[i].Name == name {
			return &e.Attributes[i], true
		}
	}
	return nil, false
}

// RelationshipByName returns the relationship called name.
func (e *Entity) RelationshipByName(name string) (*Relationship, bool) {
	for i := range e.Relationships {
		if e.Relationships[i].Name == name {
			return &e.Relationships[i], true
		}
	}
	return nil, false
}

// ToOne returns the entity's to-one relationships in declaration order.
func (e *Entity) ToOne() []Relationship {
	var out []Relationship
	for _, r := range e.Relationships {
		if !r.ToMany {
			out = append(out, r)
		}
	}
	return out
}
