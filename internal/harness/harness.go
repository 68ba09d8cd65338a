package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/roach88/recordsync/internal/bridge"
	"github.com/roach88/recordsync/internal/compiler"
	"github.com/roach88/recordsync/internal/local"
	"github.com/roach88/recordsync/internal/mapping"
	"github.com/roach88/recordsync/internal/record"
	"github.com/roach88/recordsync/internal/store"
	"github.com/roach88/recordsync/internal/testutil"
)

// Harness is the scenario execution engine.
// It drives a bridge over a private store with a deterministic clock.
type Harness struct {
	store  *store.Store
	bridge *bridge.Bridge
	cfg    mapping.Config
	clock  *testutil.DeterministicClock
	logger *slog.Logger
}

// Option configures Run.
type Option func(*Harness)

// WithLogger sets the logger handed to the bridge. The default discards
// everything.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Harness) {
		h.logger = logger
	}
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database. Step expectations
// and assertions that fail are collected in the result; an error is
// returned only when the scenario cannot run at all.
func Run(scenario *Scenario, opts ...Option) (*Result, error) {
	model, err := compiler.LoadModel(scenario.Model)
	if err != nil {
		return nil, fmt.Errorf("failed to load model: %w", err)
	}

	cfg := mapping.DefaultConfig()
	if scenario.ZoneName != "" {
		cfg.ZoneName = scenario.ZoneName
	}
	if scenario.OwnerName != "" {
		cfg.OwnerName = scenario.OwnerName
	}

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	h := &Harness{
		store:  st,
		cfg:    cfg,
		clock:  testutil.NewDeterministicClock(),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(h)
	}

	h.bridge, err = bridge.New(st, local.NewRegistry(model), cfg,
		bridge.WithClock(h.clock),
		bridge.WithLogger(h.logger),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create bridge: %w", err)
	}

	ctx := context.Background()
	result := NewResult()

	for i, step := range scenario.Steps {
		ev := h.executeStep(ctx, step)
		result.AddTrace(ev)
		for _, msg := range checkExpect(i, ev, step.Expect) {
			result.AddError(msg)
		}
	}

	actx := &AssertionContext{
		Ctx:    ctx,
		Store:  st,
		Bridge: h.bridge,
	}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(msg)
	}

	return result, nil
}

func (h *Harness) executeStep(ctx context.Context, step Step) TraceEvent {
	ev := TraceEvent{Step: step.Kind()}

	var err error
	switch ev.Step {
	case StepApply:
		err = h.apply(ctx, *step.Apply, &ev)
	case StepResolve:
		err = h.resolve(ctx, &ev)
	case StepDelete:
		ev.Record = step.Delete
		err = h.store.DeleteObject(ctx, step.Delete)
	}
	if err != nil {
		ev.Error = errorCode(err)
	}
	return ev
}

// apply hydrates doc. A document without a zone lands in the scenario's.
func (h *Harness) apply(ctx context.Context, doc record.Document, ev *TraceEvent) error {
	ev.Record = doc.RecordName
	ev.RecordType = doc.RecordType
	if doc.ZoneName == "" {
		doc.ZoneName = h.cfg.ZoneName
	}
	if doc.OwnerName == "" {
		doc.OwnerName = h.cfg.OwnerName
	}

	rec, err := doc.Record()
	if err != nil {
		return err
	}
	res, err := h.bridge.Apply(ctx, rec)
	if err != nil {
		return err
	}

	ev.Created = res.Created
	ev.Changed = res.Changed
	ev.Linked = res.Linked
	ev.Pending = res.Pending
	return nil
}

func (h *Harness) resolve(ctx context.Context, ev *TraceEvent) error {
	resolved, err := h.bridge.ResolvePending(ctx)
	if err != nil {
		return err
	}
	ev.Resolved = make([]string, 0, len(resolved))
	for _, l := range resolved {
		ev.Resolved = append(ev.Resolved, l.SourceID+"."+l.Relationship)
	}
	return nil
}

// errorCode reduces err to its mapping error code when it has one.
func errorCode(err error) string {
	var merr *mapping.Error
	if errors.As(err, &merr) {
		return string(merr.Code)
	}
	return err.Error()
}

// checkExpect compares a step's outcome with its expectation.
func checkExpect(index int, ev TraceEvent, exp *Expect) []string {
	var errs []string
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Sprintf("steps[%d] (%s): ", index, ev.Step)+fmt.Sprintf(format, args...))
	}

	if exp == nil {
		if ev.Error != "" {
			fail("unexpected error: %s", ev.Error)
		}
		return errs
	}

	if exp.Error != "" {
		if ev.Error != exp.Error {
			fail("expected error %s, got %q", exp.Error, ev.Error)
		}
		return errs
	}
	if ev.Error != "" {
		fail("unexpected error: %s", ev.Error)
		return errs
	}

	if exp.Created != nil && *exp.Created != ev.Created {
		fail("created = %t, expected %t", ev.Created, *exp.Created)
	}
	if exp.Changed != nil && *exp.Changed != ev.Changed {
		fail("changed = %t, expected %t", ev.Changed, *exp.Changed)
	}
	if exp.Linked != nil && !slices.Equal(exp.Linked, ev.Linked) {
		fail("linked = %v, expected %v", ev.Linked, exp.Linked)
	}
	if exp.Pending != nil && !slices.Equal(exp.Pending, ev.Pending) {
		fail("pending = %v, expected %v", ev.Pending, exp.Pending)
	}
	if exp.Resolved != nil && !slices.Equal(exp.Resolved, ev.Resolved) {
		fail("resolved = %v, expected %v", ev.Resolved, exp.Resolved)
	}
	return errs
}
