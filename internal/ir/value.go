package ir

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"unicode/utf16"
)

// refKey is the single key of the JSON object that carries an IRReference.
const refKey = "$ref"

// IRValue is a sealed interface representing constrained value types.
// Only IRNull, IRString, IRInt, IRBool, IRArray, IRObject and IRReference
// implement this. There is no float variant.
type IRValue interface {
	irValue() // Sealed - only these types implement it
}

// IRNull represents an absent value.
type IRNull struct{}

func (IRNull) irValue() {}

// MarshalJSON implements json.Marshaler for IRNull.
func (IRNull) MarshalJSON() ([]byte, error) {
	return []byte("null"), nil
}

// IRString represents a string value.
type IRString string

func (IRString) irValue() {}

// IRInt represents an integer value. Always int64.
type IRInt int64

func (IRInt) irValue() {}

// IRBool represents a boolean value.
type IRBool bool

func (IRBool) irValue() {}

// IRArray represents an ordered list of values.
type IRArray []IRValue

func (IRArray) irValue() {}

// IRObject represents a map of string keys to values.
// Use SortedKeys() for deterministic iteration.
type IRObject map[string]IRValue

func (IRObject) irValue() {}

// IRReference is a pointer-like value naming another record.
type IRReference struct {
	RecordID RecordID
	Action   DeleteAction
}

func (IRReference) irValue() {}

// NewReference creates a reference to id with the given delete action.
func NewReference(id RecordID, action DeleteAction) IRReference {
	return IRReference{RecordID: id, Action: action}
}

// IsNull reports whether v is nil or IRNull.
func IsNull(v IRValue) bool {
	if v == nil {
		return true
	}
	_, ok := v.(IRNull)
	return ok
}

// O builds a single-entry object pair for ergonomic construction in tests
// and fixtures.
// Example: NewIRObjectFromPairs(O("title", IRString("Hello")), O("rank", IRInt(5)))
func O(key string, value IRValue) IRPair {
	return IRPair{Key: key, Value: value}
}

// IRPair represents a key-value pair for typed IRObject construction.
type IRPair struct {
	Key   string
	Value IRValue
}

// NewIRObjectFromPairs creates an IRObject from typed key-value pairs.
func NewIRObjectFromPairs(pairs ...IRPair) IRObject {
	obj := make(IRObject, len(pairs))
	for _, p := range pairs {
		obj[p.Key] = p.Value
	}
	return obj
}

// Clone returns a shallow copy of obj. A nil object clones to an empty one.
func (obj IRObject) Clone() IRObject {
	out := make(IRObject, len(obj))
	for k, v := range obj {
		out[k] = v
	}
	return out
}

// SortedKeys returns keys in RFC 8785 canonical order (UTF-16 code units).
// Go's sort.Strings uses UTF-8 byte order, which differs for
// supplementary-plane characters.
func (obj IRObject) SortedKeys() []string {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareKeysRFC8785)
	return keys
}

// compareKeysRFC8785 compares strings by UTF-16 code units.
func compareKeysRFC8785(a, b string) int {
	a16 := utf16.Encode([]rune(a))
	b16 := utf16.Encode([]rune(b))

	n := min(len(a16), len(b16))
	for i := 0; i < n; i++ {
		if a16[i] != b16[i] {
			if a16[i] < b16[i] {
				return -1
			}
			return 1
		}
	}

	switch {
	case len(a16) < len(b16):
		return -1
	case len(a16) > len(b16):
		return 1
	}
	return 0
}

// MarshalJSON implements json.Marshaler for IRReference using the
// single-key {"$ref": ...} envelope.
func (r IRReference) MarshalJSON() ([]byte, error) {
	return MarshalIRValue(r)
}

// UnmarshalJSON implements json.Unmarshaler for IRObject. The object's
// values are field values, so a {"$ref": ...} value becomes an
// IRReference.
func (obj *IRObject) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	decoded, err := decodeObject(raw, true)
	if err != nil {
		return err
	}
	*obj = decoded
	return nil
}

// UnmarshalJSON implements json.Unmarshaler for IRArray.
func (arr *IRArray) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	decoded, err := decodeArray(raw)
	if err != nil {
		return err
	}
	*arr = decoded
	return nil
}

func decodeArray(raw []json.RawMessage) (IRArray, error) {
	arr := make(IRArray, len(raw))
	for i, v := range raw {
		val, err := decodeValue(v, false)
		if err != nil {
			return nil, fmt.Errorf("IRArray index %d: %w", i, err)
		}
		arr[i] = val
	}
	return arr, nil
}

// decodeObject decodes the members of an object. Members are decoded as
// field values when field is set.
func decodeObject(raw map[string]json.RawMessage, field bool) (IRObject, error) {
	obj := make(IRObject, len(raw))
	for k, v := range raw {
		val, err := decodeValue(v, field)
		if err != nil {
			return nil, fmt.Errorf("IRObject key %q: %w", k, err)
		}
		obj[k] = val
	}
	return obj, nil
}

// UnmarshalIRValue decodes a JSON document into an IRValue.
// Floats are rejected; null becomes IRNull; {"$ref": {...}} becomes an
// IRReference. References are field values only: the envelope nested in
// a list or object decodes as an ordinary IRObject.
func UnmarshalIRValue(data []byte) (IRValue, error) {
	return unmarshalIRValue(bytes.TrimSpace(data))
}

func unmarshalIRValue(data []byte) (IRValue, error) {
	return decodeValue(data, true)
}

// decodeValue decodes one JSON value. The $ref envelope is recognized
// only when field is set.
func decodeValue(data []byte, field bool) (IRValue, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty JSON value")
	}

	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil, err
		}
		return IRString(s), nil

	case 't', 'f':
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			return nil, err
		}
		return IRBool(b), nil

	case 'n':
		if string(data) != "null" {
			return nil, fmt.Errorf("invalid JSON value %q", data)
		}
		return IRNull{}, nil

	case '[':
		var raw []json.RawMessage
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, err
		}
		arr, err := decodeArray(raw)
		if err != nil {
			return nil, err
		}
		return arr, nil

	case '{':
		var raw map[string]json.RawMessage
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, err
		}
		obj, err := decodeObject(raw, false)
		if err != nil {
			return nil, err
		}
		if !field {
			return obj, nil
		}
		if ref, ok, err := referenceFromObject(obj); ok || err != nil {
			return ref, err
		}
		return obj, nil

	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return nil, err
		}
		s := n.String()
		if strings.ContainsAny(s, ".eE") {
			return nil, fmt.Errorf("floats are not supported: %s", s)
		}
		i, err := n.Int64()
		if err != nil {
			return nil, fmt.Errorf("number out of int64 range: %s", s)
		}
		return IRInt(i), nil
	}
}

// referenceFromObject recognizes the {"$ref": {...}} envelope.
// ok is false when obj is an ordinary object.
func referenceFromObject(obj IRObject) (IRReference, bool, error) {
	if len(obj) != 1 {
		return IRReference{}, false, nil
	}
	inner, present := obj[refKey]
	if !present {
		return IRReference{}, false, nil
	}
	if ref, isRef := inner.(IRReference); isRef {
		return ref, true, nil
	}
	body, isObj := inner.(IRObject)
	if !isObj {
		return IRReference{}, true, fmt.Errorf("%s must be an object", refKey)
	}

	var ref IRReference
	var err error
	if ref.RecordID.RecordName, err = stringField(body, "record_name"); err != nil {
		return IRReference{}, true, err
	}
	if ref.RecordID.Zone.ZoneName, err = stringField(body, "zone_name"); err != nil {
		return IRReference{}, true, err
	}
	if ref.RecordID.Zone.OwnerName, err = stringField(body, "owner_name"); err != nil {
		return IRReference{}, true, err
	}
	action, err := stringField(body, "action")
	if err != nil {
		return IRReference{}, true, err
	}
	if ref.Action, err = ParseDeleteAction(action); err != nil {
		return IRReference{}, true, err
	}
	return ref, true, nil
}

func stringField(obj IRObject, key string) (string, error) {
	v, ok := obj[key]
	if !ok {
		return "", fmt.Errorf("%s: missing %q", refKey, key)
	}
	s, ok := v.(IRString)
	if !ok {
		return "", fmt.Errorf("%s: %q must be a string, got %T", refKey, key, v)
	}
	return string(s), nil
}

// referenceObject is the object form of r used inside the $ref envelope.
func referenceObject(r IRReference) IRObject {
	return IRObject{
		refKey: IRObject{
			"record_name": IRString(r.RecordID.RecordName),
			"zone_name":   IRString(r.RecordID.Zone.ZoneName),
			"owner_name":  IRString(r.RecordID.Zone.OwnerName),
			"action":      IRString(r.Action.String()),
		},
	}
}

// MarshalJSON implements json.Marshaler for IRObject with sorted keys.
func (obj IRObject) MarshalJSON() ([]byte, error) {
	return MarshalCanonical(obj)
}

// MarshalIRValue marshals an IRValue to JSON bytes.
func MarshalIRValue(v IRValue) ([]byte, error) {
	if v == nil {
		return []byte("null"), nil
	}
	return MarshalCanonical(v)
}

// FromGo converts plain Go data (as produced by encoding/json with UseNumber,
// or by gopkg.in/yaml.v3) into an IRValue.
//
// v is a field value: a map holding only a $ref key becomes an
// IRReference. Nested in a list or map the same shape stays an IRObject.
func FromGo(v any) (IRValue, error) {
	return fromGo(v, true)
}

func fromGo(v any, field bool) (IRValue, error) {
	switch val := v.(type) {
	case nil:
		return IRNull{}, nil
	case IRValue:
		return val, nil
	case string:
		return IRString(val), nil
	case bool:
		return IRBool(val), nil
	case int:
		return IRInt(val), nil
	case int64:
		return IRInt(val), nil
	case uint64:
		if val > 1<<63-1 {
			return nil, fmt.Errorf("number out of int64 range: %d", val)
		}
		return IRInt(int64(val)), nil
	case json.Number:
		return unmarshalIRValue([]byte(val.String()))
	case float32, float64:
		return nil, fmt.Errorf("floats are not supported: %v", val)
	case []any:
		arr := make(IRArray, len(val))
		for i, elem := range val {
			e, err := fromGo(elem, false)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			arr[i] = e
		}
		return arr, nil
	case map[string]any:
		obj := make(IRObject, len(val))
		for k, elem := range val {
			e, err := fromGo(elem, false)
			if err != nil {
				return nil, fmt.Errorf("[%q]: %w", k, err)
			}
			obj[k] = e
		}
		if !field {
			return obj, nil
		}
		if ref, ok, err := referenceFromObject(obj); ok || err != nil {
			return ref, err
		}
		return obj, nil
	default:
		return nil, fmt.Errorf("unsupported type: %T", v)
	}
}
