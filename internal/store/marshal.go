package store

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/recordsync/internal/ir"
)

// marshalAttributes converts IRObject to canonical JSON TEXT for storage.
// Uses RFC 8785 canonical JSON for deterministic serialization.
func marshalAttributes(attrs ir.IRObject) (string, error) {
	if attrs == nil {
		attrs = ir.IRObject{}
	}
	data, err := ir.MarshalCanonical(attrs)
	if err != nil {
		return "", fmt.Errorf("marshal attributes: %w", err)
	}
	return string(data), nil
}

// unmarshalAttributes parses canonical JSON TEXT to IRObject.
// Uses ir.IRObject.UnmarshalJSON which properly handles large integers via
// json.Number to avoid float64 precision loss for values > 2^53.
func unmarshalAttributes(data string) (ir.IRObject, error) {
	if data == "" || data == "{}" {
		return ir.IRObject{}, nil
	}
	var obj ir.IRObject
	if err := json.Unmarshal([]byte(data), &obj); err != nil {
		return nil, fmt.Errorf("unmarshal attributes: %w", err)
	}
	return obj, nil
}

// marshalReference converts a parked reference to canonical JSON TEXT.
func marshalReference(ref ir.IRReference) (string, error) {
	data, err := ir.MarshalIRValue(ref)
	if err != nil {
		return "", fmt.Errorf("marshal reference: %w", err)
	}
	return string(data), nil
}

// unmarshalReference parses a parked reference.
func unmarshalReference(data string) (ir.IRReference, error) {
	v, err := ir.UnmarshalIRValue([]byte(data))
	if err != nil {
		return ir.IRReference{}, fmt.Errorf("unmarshal reference: %w", err)
	}
	ref, ok := v.(ir.IRReference)
	if !ok {
		return ir.IRReference{}, fmt.Errorf("unmarshal reference: got %T", v)
	}
	return ref, nil
}
