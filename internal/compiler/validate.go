package compiler

import (
	"errors"
	"strings"

	"cuelang.org/go/cue"

	"github.com/roach88/recordsync/internal/schema"
)

// ValidationError is a model problem with an optional source line.
type ValidationError = schema.ValidationError

// Validate compiles the model in v and checks it.
// Returns all structural errors found (does not fail-fast); a compile error
// stops compilation and is reported on its own.
func Validate(v cue.Value) []ValidationError {
	model, err := CompileModel(v)
	if err != nil {
		return []ValidationError{compileToValidation(err)}
	}

	errs := model.Validate()
	for i := range errs {
		errs[i].Line = entityLine(v, errs[i].Field)
	}
	return errs
}

func compileToValidation(err error) ValidationError {
	var cErr *CompileError
	if errors.As(err, &cErr) {
		ve := ValidationError{
			Field:   cErr.Field,
			Message: cErr.Message,
			Code:    cErr.Code,
		}
		if cErr.Pos.IsValid() {
			ve.Line = cErr.Pos.Line()
		}
		return ve
	}
	return ValidationError{
		Field:   "entity",
		Message: err.Error(),
		Code:    ErrCodeCUE,
	}
}

// entityLine finds the line of the entity a validation field points into,
// e.g. "entity.Note.relationships[0].inverse" yields the line of entity.Note.
func entityLine(v cue.Value, field string) int {
	rest, ok := strings.CutPrefix(field, "entity.")
	if !ok {
		return 0
	}
	name, _, _ := strings.Cut(rest, ".")
	if name == "" {
		return 0
	}
	ev := v.LookupPath(cue.MakePath(cue.Str("entity"), cue.Str(name)))
	if !ev.Exists() || !ev.Pos().IsValid() {
		return 0
	}
	return ev.Pos().Line()
}
