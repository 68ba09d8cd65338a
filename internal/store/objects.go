package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/roach88/recordsync/internal/local"
)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// SaveObject inserts or updates obj together with its links.
//
// Links are replaced wholesale. Parked references for relationships that
// obj now links are dropped.
func (s *Store) SaveObject(ctx context.Context, obj *local.Object) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		return saveObject(ctx, tx, obj)
	})
}

func saveObject(ctx context.Context, q querier, obj *local.Object) error {
	if obj.ID == "" {
		return fmt.Errorf("save object: local id is required")
	}
	if obj.Entity == "" {
		return fmt.Errorf("save object %q: entity is required", obj.ID)
	}

	attrs, err := marshalAttributes(obj.Attributes)
	if err != nil {
		return fmt.Errorf("save object %q: %w", obj.ID, err)
	}

	// A nil blob must be stored as NULL, not as an empty BLOB.
	var system any
	if len(obj.SystemFields) > 0 {
		system = obj.SystemFields
	}

	_, err = q.ExecContext(ctx, `
		INSERT INTO objects (local_id, entity, modified_at, system_fields, attributes)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(local_id) DO UPDATE SET
			entity = excluded.entity,
			modified_at = excluded.modified_at,
			system_fields = excluded.system_fields,
			attributes = excluded.attributes
	`, obj.ID, obj.Entity, obj.ModifiedAt.UnixMilli(), system, attrs)
	if err != nil {
		return fmt.Errorf("save object %q: %w", obj.ID, err)
	}

	if _, err := q.ExecContext(ctx, `DELETE FROM links WHERE source_id = ?`, obj.ID); err != nil {
		return fmt.Errorf("save object %q: clear links: %w", obj.ID, err)
	}

	for _, rel := range sortedKeys(obj.ToOne) {
		if err := insertLink(ctx, q, obj.ID, rel, 0, false, obj.ToOne[rel]); err != nil {
			return fmt.Errorf("save object %q: %w", obj.ID, err)
		}
		_, err := q.ExecContext(ctx, `
			DELETE FROM pending_links WHERE source_id = ? AND relationship = ?
		`, obj.ID, rel)
		if err != nil {
			return fmt.Errorf("save object %q: clear pending %q: %w", obj.ID, rel, err)
		}
	}
	for _, rel := range sortedKeys(obj.ToMany) {
		for pos, dest := range obj.ToMany[rel] {
			if err := insertLink(ctx, q, obj.ID, rel, pos, true, dest); err != nil {
				return fmt.Errorf("save object %q: %w", obj.ID, err)
			}
		}
	}
	return nil
}

func insertLink(ctx context.Context, q querier, source, rel string, pos int, toMany bool, dest string) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO links (source_id, relationship, position, to_many, dest_id)
		VALUES (?, ?, ?, ?, ?)
	`, source, rel, pos, toMany, dest)
	if err != nil {
		return fmt.Errorf("insert link %q: %w", rel, err)
	}
	return nil
}

// LoadObject returns the object with local identifier id.
// Returns an error wrapping ErrNotFound when there is none.
func (s *Store) LoadObject(ctx context.Context, id string) (*local.Object, error) {
	return loadObject(ctx, s.db, id)
}

func loadObject(ctx context.Context, q querier, id string) (*local.Object, error) {
	row := q.QueryRowContext(ctx, `
		SELECT local_id, entity, modified_at, system_fields, attributes
		FROM objects
		WHERE local_id = ?
	`, id)
	obj, err := scanObject(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("load object %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load object %q: %w", id, err)
	}
	if err := loadLinks(ctx, q, obj); err != nil {
		return nil, err
	}
	return obj, nil
}

// LookupObject returns the object of entity with local identifier id.
// An object with that identifier but another entity is not found.
func (s *Store) LookupObject(ctx context.Context, entity, id string) (*local.Object, error) {
	obj, err := s.LoadObject(ctx, id)
	if err != nil {
		return nil, err
	}
	if obj.Entity != entity {
		return nil, fmt.Errorf("lookup %s %q: %w", entity, id, ErrNotFound)
	}
	return obj, nil
}

// ListObjects returns every object of entity ordered by local identifier
// (binary collation).
//
// Returns an empty slice (not nil) if there are none.
func (s *Store) ListObjects(ctx context.Context, entity string) ([]*local.Object, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT local_id, entity, modified_at, system_fields, attributes
		FROM objects
		WHERE entity = ?
		ORDER BY local_id COLLATE BINARY ASC
	`, entity)
	if err != nil {
		return nil, fmt.Errorf("list objects: %w", err)
	}

	objects := []*local.Object{}
	for rows.Next() {
		obj, err := scanObject(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("list objects: %w", err)
		}
		objects = append(objects, obj)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterate objects: %w", err)
	}
	// The single pooled connection must be released before loading links.
	rows.Close()

	for _, obj := range objects {
		if err := loadLinks(ctx, s.db, obj); err != nil {
			return nil, err
		}
	}
	return objects, nil
}

// DeleteObject removes the object with local identifier id, its own links
// and parked references, and every link pointing at it.
// Returns an error wrapping ErrNotFound when there is no such object.
func (s *Store) DeleteObject(ctx context.Context, id string) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM objects WHERE local_id = ?`, id)
		if err != nil {
			return fmt.Errorf("delete object %q: %w", id, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("delete object %q: %w", id, err)
		}
		if n == 0 {
			return fmt.Errorf("delete object %q: %w", id, ErrNotFound)
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM links WHERE source_id = ? OR dest_id = ?`, id, id); err != nil {
			return fmt.Errorf("delete object %q: links: %w", id, err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM pending_links WHERE source_id = ?`, id); err != nil {
			return fmt.Errorf("delete object %q: pending links: %w", id, err)
		}
		return nil
	})
}

func scanObject(row scanner) (*local.Object, error) {
	var (
		obj      local.Object
		modified int64
		system   []byte
		attrs    string
	)
	if err := row.Scan(&obj.ID, &obj.Entity, &modified, &system, &attrs); err != nil {
		return nil, err
	}

	attributes, err := unmarshalAttributes(attrs)
	if err != nil {
		return nil, err
	}
	obj.ModifiedAt = time.UnixMilli(modified).UTC()
	obj.SystemFields = system
	obj.Attributes = attributes
	obj.ToOne = map[string]string{}
	obj.ToMany = map[string][]string{}
	return &obj, nil
}

func loadLinks(ctx context.Context, q querier, obj *local.Object) error {
	rows, err := q.QueryContext(ctx, `
		SELECT relationship, to_many, dest_id
		FROM links
		WHERE source_id = ?
		ORDER BY relationship COLLATE BINARY ASC, position ASC
	`, obj.ID)
	if err != nil {
		return fmt.Errorf("load links of %q: %w", obj.ID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			rel, dest string
			toMany    bool
		)
		if err := rows.Scan(&rel, &toMany, &dest); err != nil {
			return fmt.Errorf("scan link: %w", err)
		}
		if toMany {
			obj.ToMany[rel] = append(obj.ToMany[rel], dest)
		} else {
			obj.ToOne[rel] = dest
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate links: %w", err)
	}
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
