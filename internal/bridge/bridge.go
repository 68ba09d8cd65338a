package bridge

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/recordsync/internal/ir"
	"github.com/roach88/recordsync/internal/local"
	"github.com/roach88/recordsync/internal/mapping"
	"github.com/roach88/recordsync/internal/record"
	"github.com/roach88/recordsync/internal/store"
)

// Bridge hands records to and takes records from an external sync
// manager. It projects stored objects onto records and applies incoming
// records to stored objects, resolving references as destinations arrive.
type Bridge struct {
	store    *store.Store
	registry *local.Registry
	cfg      mapping.Config
	clock    local.Clock
	logger   *slog.Logger
}

// Option configures a Bridge.
type Option func(*Bridge)

// WithLogger sets the structured logger. The default discards everything.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Bridge) {
		b.logger = logger
	}
}

// WithClock sets the clock used to stamp objects that an applied record
// creates or changes. The default is the wall clock.
func WithClock(clock local.Clock) Option {
	return func(b *Bridge) {
		b.clock = clock
	}
}

// New creates a Bridge over st whose objects are described by registry's
// model and whose records live in the zone cfg names.
func New(st *store.Store, registry *local.Registry, cfg mapping.Config, opts ...Option) (*Bridge, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("bridge: %w", err)
	}
	b := &Bridge{
		store:    st,
		registry: registry,
		cfg:      cfg,
		clock:    local.SystemClock{},
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

// Config returns the zone configuration records are projected into.
func (b *Bridge) Config() mapping.Config {
	return b.cfg
}

// Project loads the object of entity with local identifier localID and
// projects it onto a record ready for upload.
func (b *Bridge) Project(ctx context.Context, entity, localID string) (*record.Record, error) {
	m, err := b.registry.Mapping(entity)
	if err != nil {
		return nil, fmt.Errorf("project %s %q: %w", entity, localID, err)
	}
	obj, err := b.store.LookupObject(ctx, entity, localID)
	if err != nil {
		return nil, fmt.Errorf("project: %w", err)
	}

	rec, err := m.ToRecord(b.cfg, obj)
	if err != nil {
		return nil, fmt.Errorf("project %s %q: %w", entity, localID, err)
	}

	modified, _ := m.ModificationDate(obj)
	b.logger.DebugContext(ctx, "object projected",
		"entity", entity,
		"local_id", localID,
		"record", rec.ID().String(),
		"modified_at", modified,
		"fields", len(rec.Keys()),
	)
	return rec, nil
}

// ProjectAll projects every stored object of entity, in local identifier
// order.
func (b *Bridge) ProjectAll(ctx context.Context, entity string) ([]*record.Record, error) {
	m, err := b.registry.Mapping(entity)
	if err != nil {
		return nil, fmt.Errorf("project %s: %w", entity, err)
	}
	objs, err := b.store.ListObjects(ctx, entity)
	if err != nil {
		return nil, fmt.Errorf("project %s: %w", entity, err)
	}

	records := make([]*record.Record, 0, len(objs))
	for _, obj := range objs {
		rec, err := m.ToRecord(b.cfg, obj)
		if err != nil {
			return nil, fmt.Errorf("project %s %q: %w", entity, obj.ID, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

// ApplyResult describes what applying one record did.
type ApplyResult struct {
	Object *local.Object

	// Created is true when no object existed for the record.
	Created bool

	// Changed is true when the object's attribute values differ from
	// before the record was applied.
	Changed bool

	// Linked and Pending name the record's relationships that now point at
	// a stored object and that wait for their destination, respectively.
	Linked  []string
	Pending []string
}

// Apply hydrates the object the record describes, creating it when
// absent, saves it and resolves the references the record carries.
//
// The record must live in the bridge's zone. The object's local
// identifier is the record name. Nothing is saved unless every required
// attribute of the resulting object has a value.
func (b *Bridge) Apply(ctx context.Context, rec *record.Record) (*ApplyResult, error) {
	id := rec.ID()
	if id.Zone != b.cfg.ZoneID() {
		return nil, fmt.Errorf("apply %s: record belongs to zone %s/%s, not %s/%s",
			id.RecordName, id.Zone.ZoneName, id.Zone.OwnerName, b.cfg.ZoneName, b.cfg.OwnerName)
	}

	m, err := b.registry.Mapping(rec.Type())
	if err != nil {
		return nil, fmt.Errorf("apply %s: %w", id, err)
	}

	created := false
	obj, err := b.store.LoadObject(ctx, id.RecordName)
	switch {
	case errors.Is(err, store.ErrNotFound):
		obj = local.NewObjectWithID(rec.Type(), id.RecordName, b.clock)
		created = true
	case err != nil:
		return nil, fmt.Errorf("apply %s: %w", id, err)
	case obj.Entity != rec.Type():
		return nil, fmt.Errorf("apply %s: local object is a %s, record is a %s", id, obj.Entity, rec.Type())
	}

	before, err := ir.AttributesDigest(obj.Attributes)
	if err != nil {
		return nil, fmt.Errorf("apply %s: %w", id, err)
	}

	h, err := m.FromRecord(rec, obj)
	if err != nil {
		return nil, fmt.Errorf("apply %s: %w", id, err)
	}
	if err := b.registry.CheckRequired(obj); err != nil {
		return nil, fmt.Errorf("apply %s: %w", id, err)
	}

	after, err := ir.AttributesDigest(obj.Attributes)
	if err != nil {
		return nil, fmt.Errorf("apply %s: %w", id, err)
	}
	changed := before != after
	if changed && !created {
		obj.Touch(b.clock)
	}

	res, err := b.store.ResolveReferences(ctx, obj, h.PendingReferences)
	if err != nil {
		return nil, fmt.Errorf("apply %s: %w", id, err)
	}

	b.logger.InfoContext(ctx, "record applied",
		"record", id.String(),
		"type", rec.Type(),
		"created", created,
		"changed", changed,
		"linked", res.Linked,
		"pending", res.Parked,
	)

	return &ApplyResult{
		Object:  obj,
		Created: created,
		Changed: changed,
		Linked:  res.Linked,
		Pending: res.Parked,
	}, nil
}

// ResolvePending links parked references whose destinations have arrived
// since they were parked.
func (b *Bridge) ResolvePending(ctx context.Context) ([]store.PendingLink, error) {
	resolved, err := b.store.ResolvePending(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolve pending: %w", err)
	}
	for _, l := range resolved {
		b.logger.DebugContext(ctx, "reference resolved",
			"source", l.SourceID,
			"relationship", l.Relationship,
			"destination", l.Reference.RecordID.RecordName,
		)
	}
	return resolved, nil
}
