package harness

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/roach88/recordsync/internal/bridge"
	"github.com/roach88/recordsync/internal/ir"
	"github.com/roach88/recordsync/internal/store"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, event := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %s %s", event.Seq, event.Step, event.Record)
			if event.Error != "" {
				fmt.Fprintf(&buf, " (error: %s)", event.Error)
			}
			buf.WriteString("\n")
		}
	}

	return buf.String()
}

// AssertionContext provides the store and bridge assertions inspect.
type AssertionContext struct {
	Ctx    context.Context
	Store  *store.Store
	Bridge *bridge.Bridge
}

// EvaluateAssertions evaluates all assertions against the final store.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errs []string

	for i, assertion := range assertions {
		var err error

		if actx == nil || actx.Store == nil || actx.Bridge == nil {
			err = fmt.Errorf("assertion[%d]: %s requires a store", i, assertion.Type)
		} else {
			switch assertion.Type {
			case AssertObjectCount:
				err = assertObjectCount(actx, result.Trace, assertion)
			case AssertPendingCount:
				err = assertPendingCount(actx, result.Trace, assertion)
			case AssertLinked:
				err = assertLinked(actx, result.Trace, assertion)
			case AssertProjection:
				err = assertProjection(actx, result.Trace, assertion)
			case AssertAbsent:
				err = assertAbsent(actx, result.Trace, assertion)
			default:
				err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
			}
		}

		if err != nil {
			errs = append(errs, err.Error())
		}
	}

	return errs
}

func countOf(a Assertion) int {
	if a.Count == nil {
		return 0
	}
	return *a.Count
}

// assertObjectCount checks how many objects of an entity are stored.
func assertObjectCount(actx *AssertionContext, trace []TraceEvent, a Assertion) error {
	objs, err := actx.Store.ListObjects(actx.Ctx, a.Entity)
	if err != nil {
		return fmt.Errorf("object_count: %w", err)
	}
	if len(objs) != countOf(a) {
		return &AssertionError{
			Type:     AssertObjectCount,
			Expected: fmt.Sprintf("%d %s object(s)", countOf(a), a.Entity),
			Actual:   fmt.Sprintf("%d %s object(s)", len(objs), a.Entity),
			Trace:    trace,
		}
	}
	return nil
}

// assertPendingCount checks how many references are still parked.
func assertPendingCount(actx *AssertionContext, trace []TraceEvent, a Assertion) error {
	n, err := actx.Store.PendingCount(actx.Ctx)
	if err != nil {
		return fmt.Errorf("pending_count: %w", err)
	}
	if n != countOf(a) {
		return &AssertionError{
			Type:     AssertPendingCount,
			Expected: fmt.Sprintf("%d pending reference(s)", countOf(a)),
			Actual:   fmt.Sprintf("%d pending reference(s)", n),
			Trace:    trace,
		}
	}
	return nil
}

// assertLinked checks that a to-one relationship points at, or a to-many
// relationship contains, the destination.
func assertLinked(actx *AssertionContext, trace []TraceEvent, a Assertion) error {
	expected := fmt.Sprintf("%s %s.%s -> %s", a.Entity, a.ID, a.Relationship, a.Destination)

	obj, err := actx.Store.LookupObject(actx.Ctx, a.Entity, a.ID)
	if errors.Is(err, store.ErrNotFound) {
		return &AssertionError{Type: AssertLinked, Expected: expected, Actual: "object not found", Trace: trace}
	}
	if err != nil {
		return fmt.Errorf("linked: %w", err)
	}

	if dest, ok := obj.Linked(a.Relationship); ok {
		if dest == a.Destination {
			return nil
		}
		return &AssertionError{Type: AssertLinked, Expected: expected, Actual: "linked to " + dest, Trace: trace}
	}
	if dests := obj.ToMany[a.Relationship]; len(dests) > 0 {
		if slices.Contains(dests, a.Destination) {
			return nil
		}
		return &AssertionError{Type: AssertLinked, Expected: expected, Actual: fmt.Sprintf("linked to %v", dests), Trace: trace}
	}
	return &AssertionError{Type: AssertLinked, Expected: expected, Actual: "not linked", Trace: trace}
}

// assertProjection projects the object and checks the listed fields
// (subset semantics).
func assertProjection(actx *AssertionContext, trace []TraceEvent, a Assertion) error {
	rec, err := actx.Bridge.Project(actx.Ctx, a.Entity, a.ID)
	if err != nil {
		return &AssertionError{
			Type:     AssertProjection,
			Expected: fmt.Sprintf("%s %s to project", a.Entity, a.ID),
			Actual:   err.Error(),
			Trace:    trace,
		}
	}

	keys := make([]string, 0, len(a.Fields))
	for k := range a.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		want, err := ir.FromGo(a.Fields[key])
		if err != nil {
			return fmt.Errorf("projection: field %q: %w", key, err)
		}
		got := rec.Get(key)
		equal, err := valuesEqual(got, want)
		if err != nil {
			return fmt.Errorf("projection: field %q: %w", key, err)
		}
		if !equal {
			return &AssertionError{
				Type:     AssertProjection,
				Expected: fmt.Sprintf("field %q = %s", key, render(want)),
				Actual:   fmt.Sprintf("field %q = %s", key, render(got)),
				Trace:    trace,
			}
		}
	}
	return nil
}

// assertAbsent checks that no object of the entity has the id.
func assertAbsent(actx *AssertionContext, trace []TraceEvent, a Assertion) error {
	_, err := actx.Store.LookupObject(actx.Ctx, a.Entity, a.ID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return nil
	case err != nil:
		return fmt.Errorf("absent: %w", err)
	}
	return &AssertionError{
		Type:     AssertAbsent,
		Expected: fmt.Sprintf("no %s %s", a.Entity, a.ID),
		Actual:   "object present",
		Trace:    trace,
	}
}

// valuesEqual compares two values by their canonical JSON form.
func valuesEqual(a, b ir.IRValue) (bool, error) {
	ab, err := ir.MarshalCanonical(a)
	if err != nil {
		return false, err
	}
	bb, err := ir.MarshalCanonical(b)
	if err != nil {
		return false, err
	}
	return bytes.Equal(ab, bb), nil
}

func render(v ir.IRValue) string {
	data, err := ir.MarshalCanonical(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}
