package harness

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/chronotree/internal/chrono"
	"github.com/roach88/chronotree/internal/ir"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string // Assertion type for categorization
	Expected string // Human-readable expected outcome
	Actual   string // Human-readable actual outcome
	Dump     string // Replica dump for debugging context, if any
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if e.Dump != "" {
		fmt.Fprintf(&buf, "\nReplica state:\n%s\n", e.Dump)
	}

	return buf.String()
}

// EvaluateAssertions runs all assertions and returns error messages for
// failures. An empty slice means every assertion held.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errs []string
	for i, a := range assertions {
		if err := evaluateAssertion(result, a); err != nil {
			errs = append(errs, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return errs
}

func evaluateAssertion(result *Result, a Assertion) error {
	switch a.Type {
	case AssertConverged:
		return assertConverged(result, a)
	case AssertFrontier:
		return assertFrontier(result, a)
	case AssertKnownCount:
		return assertKnownCount(result, a)
	case AssertHeadEquals:
		return assertHeadEquals(result, a)
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

// assertConverged checks that the listed replicas (default: all) hold
// identical head, frontier and known sets.
func assertConverged(result *Result, a Assertion) error {
	replicas := result.Replicas
	if len(a.Replicas) > 0 {
		replicas = nil
		for _, name := range a.Replicas {
			rep := result.Replica(name)
			if rep == nil {
				return fmt.Errorf("unknown replica %q", name)
			}
			replicas = append(replicas, rep)
		}
	}

	for i := 0; i+1 < len(replicas); i++ {
		if err := chrono.Compare(replicas[i], replicas[i+1]); err != nil {
			return &AssertionError{
				Type:     AssertConverged,
				Expected: fmt.Sprintf("%s and %s identical", replicas[i].Name(), replicas[i+1].Name()),
				Actual:   err.Error(),
			}
		}
	}
	return nil
}

// assertFrontier checks that a replica's frontier is exactly the labeled
// records, in any order.
func assertFrontier(result *Result, a Assertion) error {
	rep := result.Replica(a.Replica)
	if rep == nil {
		return fmt.Errorf("unknown replica %q", a.Replica)
	}

	want := make([]ir.Hash, 0, len(a.Labels))
	for _, label := range a.Labels {
		h, ok := result.Hash(label)
		if !ok {
			return fmt.Errorf("unknown label %q", label)
		}
		want = append(want, h)
	}

	if !chrono.NewFrontier(want...).Equal(rep.Frontier()) {
		return &AssertionError{
			Type:     AssertFrontier,
			Expected: fmt.Sprintf("%s frontier %v", a.Replica, sortedLabels(a.Labels)),
			Actual:   fmt.Sprintf("%v", frontierLabels(result, rep)),
			Dump:     rep.Dump(),
		}
	}
	return nil
}

// assertKnownCount checks the number of records a replica knows, its head
// aggregate included.
func assertKnownCount(result *Result, a Assertion) error {
	rep := result.Replica(a.Replica)
	if rep == nil {
		return fmt.Errorf("unknown replica %q", a.Replica)
	}

	if n := len(rep.Known()); n != a.Count {
		return &AssertionError{
			Type:     AssertKnownCount,
			Expected: fmt.Sprintf("%s knows %d records", a.Replica, a.Count),
			Actual:   fmt.Sprintf("%d records", n),
			Dump:     rep.Dump(),
		}
	}
	return nil
}

// assertHeadEquals checks a replica's head against a snapshot label or
// another replica's current head.
func assertHeadEquals(result *Result, a Assertion) error {
	rep := result.Replica(a.Replica)
	if rep == nil {
		return fmt.Errorf("unknown replica %q", a.Replica)
	}

	want, ok := result.snapshots[a.Ref]
	if !ok {
		other := result.Replica(a.Ref)
		if other == nil {
			return fmt.Errorf("unknown snapshot or replica %q", a.Ref)
		}
		want = other.Head()
	}

	if rep.Head() != want {
		return &AssertionError{
			Type:     AssertHeadEquals,
			Expected: fmt.Sprintf("%s head equals %s (%s)", a.Replica, a.Ref, want.Short()),
			Actual:   rep.Head().Short(),
		}
	}
	return nil
}

func frontierLabels(result *Result, rep *chrono.Replica) []string {
	labels := make([]string, 0, len(rep.Frontier()))
	for _, h := range rep.Frontier() {
		labels = append(labels, result.Label(h))
	}
	return sortedLabels(labels)
}

func sortedLabels(labels []string) []string {
	out := slices.Clone(labels)
	slices.Sort(out)
	return out
}
