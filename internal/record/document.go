package record

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/recordsync/internal/ir"
)

// Document is the on-disk form of a full record (user fields included).
// JSON documents parse too, since JSON is a subset of YAML.
type Document struct {
	RecordType string          `yaml:"record_type"`
	RecordName string          `yaml:"record_name"`
	ZoneName   string          `yaml:"zone_name"`
	OwnerName  string          `yaml:"owner_name"`
	System     *DocumentSystem `yaml:"system,omitempty"`
	Fields     map[string]any  `yaml:"fields"`
}

// DocumentSystem is the system-fields section of a Document.
type DocumentSystem struct {
	ChangeTag      string         `yaml:"change_tag,omitempty"`
	CreatedAt      int64          `yaml:"created_at,omitempty"`
	ModifiedAt     int64          `yaml:"modified_at,omitempty"`
	CreatedBy      string         `yaml:"created_by,omitempty"`
	LastModifiedBy string         `yaml:"last_modified_by,omitempty"`
	Extra          map[string]any `yaml:"extra,omitempty"`
}

// LoadDocument reads and parses a record document file.
func LoadDocument(path string) (*Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read record document: %w", err)
	}
	return ParseDocument(data)
}

// ParseDocument parses a YAML or JSON record document.
// Unknown top-level keys are rejected.
func ParseDocument(data []byte) (*Record, error) {
	var doc Document
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("empty record document")
		}
		return nil, fmt.Errorf("failed to parse record document: %w", err)
	}
	return doc.Record()
}

// Record converts the document into a Record.
func (doc *Document) Record() (*Record, error) {
	if doc.RecordType == "" {
		return nil, fmt.Errorf("record document: record_type is required")
	}
	if doc.RecordName == "" {
		return nil, fmt.Errorf("record document: record_name is required")
	}

	r := New(doc.RecordType, ir.RecordID{
		RecordName: doc.RecordName,
		Zone:       ir.ZoneID{ZoneName: doc.ZoneName, OwnerName: doc.OwnerName},
	})

	for key, raw := range doc.Fields {
		v, err := ir.FromGo(raw)
		if err != nil {
			return nil, fmt.Errorf("record document: field %q: %w", key, err)
		}
		r.Set(key, v)
	}

	if doc.System != nil {
		s := SystemFields{
			ChangeTag:      doc.System.ChangeTag,
			CreatedAt:      doc.System.CreatedAt,
			ModifiedAt:     doc.System.ModifiedAt,
			CreatedBy:      doc.System.CreatedBy,
			LastModifiedBy: doc.System.LastModifiedBy,
		}
		if len(doc.System.Extra) > 0 {
			extra, err := ir.FromGo(doc.System.Extra)
			if err != nil {
				return nil, fmt.Errorf("record document: system.extra: %w", err)
			}
			obj, ok := extra.(ir.IRObject)
			if !ok {
				return nil, fmt.Errorf("record document: system.extra must be an object")
			}
			s.Extra = obj
		}
		r.system = s
	}
	return r, nil
}

// MarshalJSON renders the full record as canonical JSON in Document shape.
func (r *Record) MarshalJSON() ([]byte, error) {
	return ir.MarshalCanonical(r.documentObject())
}

func (r *Record) documentObject() ir.IRObject {
	obj := ir.IRObject{
		"record_type": ir.IRString(r.recordType),
		"record_name": ir.IRString(r.id.RecordName),
		"zone_name":   ir.IRString(r.id.Zone.ZoneName),
		"owner_name":  ir.IRString(r.id.Zone.OwnerName),
		"fields":      r.fields.Clone(),
	}
	if r.system.IsZero() {
		return obj
	}

	sys := ir.IRObject{}
	s := r.system
	if s.ChangeTag != "" {
		sys["change_tag"] = ir.IRString(s.ChangeTag)
	}
	if s.CreatedAt != 0 {
		sys["created_at"] = ir.IRInt(s.CreatedAt)
	}
	if s.ModifiedAt != 0 {
		sys["modified_at"] = ir.IRInt(s.ModifiedAt)
	}
	if s.CreatedBy != "" {
		sys["created_by"] = ir.IRString(s.CreatedBy)
	}
	if s.LastModifiedBy != "" {
		sys["last_modified_by"] = ir.IRString(s.LastModifiedBy)
	}
	if len(s.Extra) > 0 {
		sys["extra"] = s.Extra
	}
	obj["system"] = sys
	return obj
}
