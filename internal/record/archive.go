package record

import (
	"errors"
	"fmt"

	"github.com/roach88/recordsync/internal/ir"
)

// ErrCorruptArchive is returned when a system-fields archive cannot be
// decoded: malformed JSON, unknown version, missing keys or a checksum
// mismatch.
var ErrCorruptArchive = errors.New("corrupt system fields archive")

// EncodeSystemFields archives the record's type, identity and system fields.
// User fields are not included.
//
// The archive is canonical JSON:
//
//	{"checksum":"<hex>","record":{...},"version":1}
//
// Encoding is deterministic, so EncodeSystemFields(DecodeSystemFields(b))
// returns b for any archive b this function produced.
func EncodeSystemFields(r *Record) ([]byte, error) {
	body := archiveBody(r)
	sum, err := ir.SystemFieldsChecksum(body)
	if err != nil {
		return nil, fmt.Errorf("encode system fields: %w", err)
	}

	envelope := ir.IRObject{
		"version":  ir.IRInt(ir.ArchiveVersion),
		"record":   body,
		"checksum": ir.IRString(sum),
	}
	data, err := ir.MarshalCanonical(envelope)
	if err != nil {
		return nil, fmt.Errorf("encode system fields: %w", err)
	}
	return data, nil
}

// DecodeSystemFields restores a bare record from an archive produced by
// EncodeSystemFields. The returned record has no user fields.
func DecodeSystemFields(data []byte) (*Record, error) {
	v, err := ir.UnmarshalIRValue(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptArchive, err)
	}
	envelope, ok := v.(ir.IRObject)
	if !ok {
		return nil, fmt.Errorf("%w: archive is %T, not an object", ErrCorruptArchive, v)
	}

	version, ok := envelope["version"].(ir.IRInt)
	if !ok {
		return nil, fmt.Errorf("%w: missing version", ErrCorruptArchive)
	}
	if version != ir.ArchiveVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrCorruptArchive, version)
	}

	body, ok := envelope["record"].(ir.IRObject)
	if !ok {
		return nil, fmt.Errorf("%w: missing record", ErrCorruptArchive)
	}
	sum, ok := envelope["checksum"].(ir.IRString)
	if !ok {
		return nil, fmt.Errorf("%w: missing checksum", ErrCorruptArchive)
	}
	want, err := ir.SystemFieldsChecksum(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptArchive, err)
	}
	if string(sum) != want {
		return nil, fmt.Errorf("%w: checksum mismatch", ErrCorruptArchive)
	}

	return recordFromBody(body)
}

// archiveBody builds the canonical object for r's archived state.
// Every key is always present so decode/encode is byte-stable.
func archiveBody(r *Record) ir.IRObject {
	s := r.system
	extra := s.Extra
	if extra == nil {
		extra = ir.IRObject{}
	}
	return ir.IRObject{
		"record_type": ir.IRString(r.recordType),
		"record_name": ir.IRString(r.id.RecordName),
		"zone_name":   ir.IRString(r.id.Zone.ZoneName),
		"owner_name":  ir.IRString(r.id.Zone.OwnerName),
		"system": ir.IRObject{
			"change_tag":       ir.IRString(s.ChangeTag),
			"created_at":       ir.IRInt(s.CreatedAt),
			"modified_at":      ir.IRInt(s.ModifiedAt),
			"created_by":       ir.IRString(s.CreatedBy),
			"last_modified_by": ir.IRString(s.LastModifiedBy),
			"extra":            extra,
		},
	}
}

func recordFromBody(body ir.IRObject) (*Record, error) {
	var d decoder
	recordType := d.str(body, "record_type")
	id := ir.RecordID{
		RecordName: d.str(body, "record_name"),
		Zone: ir.ZoneID{
			ZoneName:  d.str(body, "zone_name"),
			OwnerName: d.str(body, "owner_name"),
		},
	}
	sys := d.obj(body, "system")
	system := SystemFields{
		ChangeTag:      d.str(sys, "change_tag"),
		CreatedAt:      d.int(sys, "created_at"),
		ModifiedAt:     d.int(sys, "modified_at"),
		CreatedBy:      d.str(sys, "created_by"),
		LastModifiedBy: d.str(sys, "last_modified_by"),
		Extra:          d.obj(sys, "extra"),
	}
	if d.err != nil {
		return nil, d.err
	}
	if len(system.Extra) == 0 {
		system.Extra = nil
	}
	return WithSystemFields(recordType, id, system), nil
}

// decoder pulls typed fields out of an archive body, keeping the first error.
type decoder struct {
	err error
}

func (d *decoder) fail(key string, v ir.IRValue, want string) {
	if d.err != nil {
		return
	}
	if v == nil {
		d.err = fmt.Errorf("%w: missing %q", ErrCorruptArchive, key)
		return
	}
	d.err = fmt.Errorf("%w: %q is %T, want %s", ErrCorruptArchive, key, v, want)
}

func (d *decoder) str(obj ir.IRObject, key string) string {
	s, ok := obj[key].(ir.IRString)
	if !ok {
		d.fail(key, obj[key], "string")
	}
	return string(s)
}

func (d *decoder) int(obj ir.IRObject, key string) int64 {
	n, ok := obj[key].(ir.IRInt)
	if !ok {
		d.fail(key, obj[key], "int")
	}
	return int64(n)
}

func (d *decoder) obj(obj ir.IRObject, key string) ir.IRObject {
	o, ok := obj[key].(ir.IRObject)
	if !ok {
		d.fail(key, obj[key], "object")
	}
	return o
}
