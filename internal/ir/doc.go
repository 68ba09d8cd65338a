// Package ir provides the value and identity types shared by local objects
// and remote records.
//
// This package contains leaf types only. All other internal packages import
// ir; ir imports nothing internal.
//
// Key design constraints:
//   - NO float types anywhere - use int64 for numbers
//   - Timestamps travel as IRInt unix milliseconds
//   - References are values: IRReference serializes as {"$ref": {...}}
//   - All JSON tags use snake_case
//   - Persisted and hashed forms always go through MarshalCanonical
package ir
