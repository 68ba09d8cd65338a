package compiler

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/recordsync/internal/schema"
)

// Compile error codes. Structural problems found after compilation use the
// schema package's E101-E108 codes.
const (
	ErrCodeCUE       = "E100" // CUE syntax or evaluation error
	ErrCodeMalformed = "E109" // value has the wrong shape
)

// CompileModel compiles every entity declared under the top-level "entity"
// field of v. Entities keep CUE declaration order.
//
// The model is not validated; call Validate or schema.Model.Validate.
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`entity: Note: { attributes: { title: "string" } }`)
//	model, err := CompileModel(v)
func CompileModel(v cue.Value) (*schema.Model, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	entitiesVal := v.LookupPath(cue.ParsePath("entity"))
	if !entitiesVal.Exists() {
		return nil, &CompileError{
			Field:   "entity",
			Message: "no entities declared",
			Code:    ErrCodeMalformed,
			Pos:     v.Pos(),
		}
	}

	iter, err := entitiesVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var entities []schema.Entity
	for iter.Next() {
		e, err := CompileEntity(iter.Value())
		if err != nil {
			return nil, err
		}
		entities = append(entities, *e)
	}
	if len(entities) == 0 {
		return nil, &CompileError{
			Field:   "entity",
			Message: "no entities declared",
			Code:    ErrCodeMalformed,
			Pos:     entitiesVal.Pos(),
		}
	}

	return schema.NewModel(entities...), nil
}

// CompileEntity compiles one entity struct. The entity name is the last
// label of v's path, e.g. "Note" for entity.Note.
func CompileEntity(v cue.Value) (*schema.Entity, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	if v.IncompleteKind() != cue.StructKind {
		return nil, &CompileError{
			Field:   "entity",
			Message: fmt.Sprintf("entity must be a struct, got %v", v.IncompleteKind()),
			Code:    ErrCodeMalformed,
			Pos:     v.Pos(),
		}
	}

	e := &schema.Entity{}
	labels := v.Path().Selectors()
	if len(labels) > 0 {
		e.Name = labels[len(labels)-1].String()
	}

	var err error
	e.Attributes, err = parseAttributes(v)
	if err != nil {
		return nil, err
	}
	e.Relationships, err = parseRelationships(v)
	if err != nil {
		return nil, err
	}
	return e, nil
}

// parseAttributes accepts the short form `title: "string"` and the long
// form `rank: { type: "int", optional: true }`.
func parseAttributes(entity cue.Value) ([]schema.Attribute, error) {
	attrsVal := entity.LookupPath(cue.ParsePath("attributes"))
	if !attrsVal.Exists() {
		return nil, nil
	}

	iter, err := attrsVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var attrs []schema.Attribute
	for iter.Next() {
		name := iter.Label()
		val := iter.Value()
		attr := schema.Attribute{Name: name}

		var typeVal cue.Value
		switch val.IncompleteKind() {
		case cue.StringKind:
			typeVal = val
		case cue.StructKind:
			typeVal = val.LookupPath(cue.ParsePath("type"))
			if !typeVal.Exists() {
				return nil, &CompileError{
					Field:   "attributes." + name,
					Message: "type is required",
					Code:    ErrCodeMalformed,
					Pos:     val.Pos(),
				}
			}
			attr.Optional, err = optionalBool(val, "optional")
			if err != nil {
				return nil, err
			}
		default:
			return nil, &CompileError{
				Field:   "attributes." + name,
				Message: "attribute must be a type name or a struct",
				Code:    ErrCodeMalformed,
				Pos:     val.Pos(),
			}
		}

		attr.Type, err = extractTypeName(typeVal)
		if err != nil {
			return nil, err
		}
		attrs = append(attrs, attr)
	}
	return attrs, nil
}

func parseRelationships(entity cue.Value) ([]schema.Relationship, error) {
	relsVal := entity.LookupPath(cue.ParsePath("relationships"))
	if !relsVal.Exists() {
		return nil, nil
	}

	iter, err := relsVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var rels []schema.Relationship
	for iter.Next() {
		name := iter.Label()
		val := iter.Value()
		field := "relationships." + name

		if val.IncompleteKind() != cue.StructKind {
			return nil, &CompileError{
				Field:   field,
				Message: "relationship must be a struct",
				Code:    ErrCodeMalformed,
				Pos:     val.Pos(),
			}
		}

		rel := schema.Relationship{Name: name}

		destVal := val.LookupPath(cue.ParsePath("destination"))
		if !destVal.Exists() {
			return nil, &CompileError{
				Field:   field + ".destination",
				Message: "destination is required",
				Code:    ErrCodeMalformed,
				Pos:     val.Pos(),
			}
		}
		if rel.Destination, err = destVal.String(); err != nil {
			return nil, formatCUEError(err)
		}

		if rel.ToMany, err = optionalBool(val, "to_many"); err != nil {
			return nil, err
		}
		if rel.Inverse, err = optionalString(val, "inverse"); err != nil {
			return nil, err
		}

		rule, err := optionalString(val, "delete_rule")
		if err != nil {
			return nil, err
		}
		rel.DeleteRule, err = schema.ParseDeleteRule(rule)
		if err != nil {
			return nil, &CompileError{
				Field:   field + ".delete_rule",
				Message: err.Error(),
				Code:    schema.ErrInvalidDeleteRule,
				Pos:     val.LookupPath(cue.ParsePath("delete_rule")).Pos(),
			}
		}

		rels = append(rels, rel)
	}
	return rels, nil
}

func optionalBool(v cue.Value, path string) (bool, error) {
	f := v.LookupPath(cue.ParsePath(path))
	if !f.Exists() {
		return false, nil
	}
	b, err := f.Bool()
	if err != nil {
		return false, formatCUEError(err)
	}
	return b, nil
}

func optionalString(v cue.Value, path string) (string, error) {
	f := v.LookupPath(cue.ParsePath(path))
	if !f.Exists() {
		return "", nil
	}
	s, err := f.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	return s, nil
}

// extractTypeName reads an attribute type name. Floats are rejected.
func extractTypeName(v cue.Value) (schema.AttributeType, error) {
	s, err := v.String()
	if err != nil {
		return "", &CompileError{
			Field:   "type",
			Message: fmt.Sprintf("type must be a string, got %v", v.IncompleteKind()),
			Code:    ErrCodeMalformed,
			Pos:     v.Pos(),
		}
	}
	if s == "float" || s == "number" {
		return "", &CompileError{
			Field:   "type",
			Message: "float types are forbidden - use int instead",
			Code:    schema.ErrInvalidType,
			Pos:     v.Pos(),
		}
	}
	t, err := schema.ParseAttributeType(s)
	if err != nil {
		return "", &CompileError{
			Field:   "type",
			Message: err.Error(),
			Code:    schema.ErrInvalidType,
			Pos:     v.Pos(),
		}
	}
	return t, nil
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Code    string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	// CUE errors may contain multiple errors
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	// Return first error with position info
	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Code:    ErrCodeCUE,
			Pos:     positions[0],
		}
	}

	return err
}
