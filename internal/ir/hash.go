package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for checksums.
// Version suffix enables future algorithm migration.
const (
	DomainSystemFields = "recordsync/system-fields/v1"
	DomainAttributes   = "recordsync/attributes/v1"
)

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
// The null byte separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// SystemFieldsChecksum computes the checksum stored alongside an archived
// set of system fields. archived must be the canonical object that is
// written into the archive.
func SystemFieldsChecksum(archived IRObject) (string, error) {
	canonical, err := MarshalCanonical(archived)
	if err != nil {
		return "", fmt.Errorf("SystemFieldsChecksum: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainSystemFields, canonical), nil
}

// AttributesDigest computes a content digest of a set of attribute values.
// Two objects with equal attributes have equal digests regardless of map
// iteration order.
func AttributesDigest(attrs IRObject) (string, error) {
	canonical, err := MarshalCanonical(attrs)
	if err != nil {
		return "", fmt.Errorf("AttributesDigest: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainAttributes, canonical), nil
}

// MustAttributesDigest is like AttributesDigest but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustAttributesDigest(attrs IRObject) string {
	d, err := AttributesDigest(attrs)
	if err != nil {
		panic(err)
	}
	return d
}
