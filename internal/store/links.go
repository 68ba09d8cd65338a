package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/recordsync/internal/ir"
	"github.com/roach88/recordsync/internal/local"
	"github.com/roach88/recordsync/internal/mapping"
)

// PendingLink is a reference parked until its destination object is
// stored.
type PendingLink struct {
	SourceID     string         `json:"source_id"`
	Relationship string         `json:"relationship"`
	DestEntity   string         `json:"dest_entity"`
	Reference    ir.IRReference `json:"reference"`
}

// Resolution reports what happened to each pending reference.
type Resolution struct {
	Linked []string `json:"linked"` // relationships now linked
	Parked []string `json:"parked"` // relationships waiting for their destination
}

// ResolveReferences links obj to the destinations of pending that are
// stored, parks the others and saves obj, all in one transaction.
//
// A reference is satisfied by the object whose entity is the destination
// entity and whose local identifier is the referenced record name; obj
// satisfies references to itself. A parked relationship is unlinked on obj
// so a stale link does not survive.
// obj's links are updated in place even when an error is returned.
func (s *Store) ResolveReferences(ctx context.Context, obj *local.Object, pending map[string]mapping.PendingReference) (*Resolution, error) {
	res := &Resolution{Linked: []string{}, Parked: []string{}}

	err := s.inTx(ctx, func(tx *sql.Tx) error {
		for _, rel := range sortedKeys(pending) {
			p := pending[rel]
			name := p.Reference.RecordID.RecordName

			found := p.DestinationEntity == obj.Entity && name == obj.ID
			if !found {
				var err error
				if found, err = objectExists(ctx, tx, p.DestinationEntity, name); err != nil {
					return fmt.Errorf("resolve %q: %w", rel, err)
				}
			}
			if found {
				obj.Link(rel, name)
				res.Linked = append(res.Linked, rel)
			} else {
				obj.Unlink(rel)
				res.Parked = append(res.Parked, rel)
			}
		}

		if err := saveObject(ctx, tx, obj); err != nil {
			return err
		}

		for _, rel := range res.Parked {
			if err := parkReference(ctx, tx, obj.ID, rel, pending[rel]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func objectExists(ctx context.Context, q querier, entity, id string) (bool, error) {
	var n int
	err := q.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM objects WHERE local_id = ? AND entity = ?
	`, id, entity).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func parkReference(ctx context.Context, q querier, source, rel string, p mapping.PendingReference) error {
	ref, err := marshalReference(p.Reference)
	if err != nil {
		return fmt.Errorf("park %q: %w", rel, err)
	}
	_, err = q.ExecContext(ctx, `
		INSERT INTO pending_links (source_id, relationship, dest_entity, record_name, reference)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(source_id, relationship) DO UPDATE SET
			dest_entity = excluded.dest_entity,
			record_name = excluded.record_name,
			reference = excluded.reference
	`, source, rel, p.DestinationEntity, p.Reference.RecordID.RecordName, ref)
	if err != nil {
		return fmt.Errorf("park %q: %w", rel, err)
	}
	return nil
}

// ResolvePending links every parked reference whose destination object
// is now stored and returns the references it resolved, ordered by source
// identifier and relationship.
//
// Returns an empty slice (not nil) if nothing could be resolved.
func (s *Store) ResolvePending(ctx context.Context) ([]PendingLink, error) {
	var resolved []PendingLink

	err := s.inTx(ctx, func(tx *sql.Tx) error {
		links, err := queryPending(ctx, tx, `
			SELECT p.source_id, p.relationship, p.dest_entity, p.reference
			FROM pending_links p
			JOIN objects o ON o.local_id = p.record_name AND o.entity = p.dest_entity
			ORDER BY p.source_id COLLATE BINARY ASC, p.relationship COLLATE BINARY ASC
		`)
		if err != nil {
			return err
		}

		for _, l := range links {
			_, err := tx.ExecContext(ctx, `
				DELETE FROM links WHERE source_id = ? AND relationship = ?
			`, l.SourceID, l.Relationship)
			if err != nil {
				return fmt.Errorf("resolve pending %q: %w", l.Relationship, err)
			}
			if err := insertLink(ctx, tx, l.SourceID, l.Relationship, 0, false, l.Reference.RecordID.RecordName); err != nil {
				return fmt.Errorf("resolve pending: %w", err)
			}
			_, err = tx.ExecContext(ctx, `
				DELETE FROM pending_links WHERE source_id = ? AND relationship = ?
			`, l.SourceID, l.Relationship)
			if err != nil {
				return fmt.Errorf("resolve pending %q: %w", l.Relationship, err)
			}
		}
		resolved = links
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resolved, nil
}

// PendingLinks returns every parked reference ordered by source identifier
// and relationship.
//
// Returns an empty slice (not nil) if there are none.
func (s *Store) PendingLinks(ctx context.Context) ([]PendingLink, error) {
	return queryPending(ctx, s.db, `
		SELECT source_id, relationship, dest_entity, reference
		FROM pending_links
		ORDER BY source_id COLLATE BINARY ASC, relationship COLLATE BINARY ASC
	`)
}

// PendingCount returns the number of parked references.
func (s *Store) PendingCount(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM pending_links`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count pending links: %w", err)
	}
	return n, nil
}

func queryPending(ctx context.Context, q querier, query string, args ...any) ([]PendingLink, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query pending links: %w", err)
	}
	defer rows.Close()

	links := []PendingLink{}
	for rows.Next() {
		var (
			l   PendingLink
			ref string
		)
		if err := rows.Scan(&l.SourceID, &l.Relationship, &l.DestEntity, &ref); err != nil {
			return nil, fmt.Errorf("scan pending link: %w", err)
		}
		if l.Reference, err = unmarshalReference(ref); err != nil {
			return nil, err
		}
		links = append(links, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pending links: %w", err)
	}
	return links, nil
}
