package mapping

import (
	"errors"
	"fmt"
)

// Error reports a precondition violation while building a mapping or
// converting between objects and records.
//
// Conversion errors include:
//   - Missing identifier: an object (or a related object) has no local ID
//   - Missing entity name: the mapping has no entity/record type name
//   - Missing destination: a to-one relationship names no destination entity
//   - Entity mismatch: a record of another type was offered for hydration
//   - Type mismatch: a record value does not fit the attribute's type
//   - Corrupt system fields: the stored archive cannot be decoded
//   - Missing attribute: a required attribute has no value
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Entity is the entity the mapping was built for.
	Entity string

	// Field is the attribute or relationship involved, if any.
	Field string

	// Err is the underlying cause, if any.
	Err error
}

// ErrorCode categorizes mapping errors.
type ErrorCode string

const (
	ErrCodeMissingIdentifier   ErrorCode = "MISSING_IDENTIFIER"
	ErrCodeMissingEntityName   ErrorCode = "MISSING_ENTITY_NAME"
	ErrCodeMissingDestination  ErrorCode = "MISSING_DESTINATION"
	ErrCodeEntityMismatch      ErrorCode = "ENTITY_MISMATCH"
	ErrCodeTypeMismatch        ErrorCode = "TYPE_MISMATCH"
	ErrCodeCorruptSystemFields ErrorCode = "CORRUPT_SYSTEM_FIELDS"
	ErrCodeArchiveFailed       ErrorCode = "ARCHIVE_FAILED"
	ErrCodeInvalidConfig       ErrorCode = "INVALID_CONFIG"
	ErrCodeInvalidBinding      ErrorCode = "INVALID_BINDING"
	ErrCodeUnboundProperty     ErrorCode = "UNBOUND_PROPERTY"
	ErrCodeInconsistentInverse ErrorCode = "INCONSISTENT_INVERSE"
	ErrCodeMissingAttribute    ErrorCode = "MISSING_ATTRIBUTE"
)

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	switch {
	case e.Entity != "" && e.Field != "":
		msg = fmt.Sprintf("%s (entity=%s, field=%s)", msg, e.Entity, e.Field)
	case e.Entity != "":
		msg = fmt.Sprintf("%s (entity=%s)", msg, e.Entity)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// HasCode reports whether err is (or wraps) an *Error with the given code.
// Joined errors (as returned by Builder.Build) match if any member matches.
func HasCode(err error, code ErrorCode) bool {
	if err == nil {
		return false
	}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		for _, e := range joined.Unwrap() {
			if HasCode(e, code) {
				return true
			}
		}
		return false
	}
	var me *Error
	if errors.As(err, &me) {
		return me.Code == code
	}
	return false
}

// IsMissingIdentifier returns true if err reports a missing local identifier.
func IsMissingIdentifier(err error) bool {
	return HasCode(err, ErrCodeMissingIdentifier)
}

func newError(code ErrorCode, entity, field, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Entity:  entity,
		Field:   field,
	}
}
