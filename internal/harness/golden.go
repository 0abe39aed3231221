package harness

import (
	"context"
	"slices"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/chronotree/internal/ir"
)

// Snapshot renders a result with records named by label rather than hash, so
// golden files read as the scenario does and survive hash format changes.
// Serialized with canonical JSON for deterministic comparison.
func (r *Result) Snapshot(name string) ([]byte, error) {
	steps := make([]any, len(r.Steps))
	for i, s := range r.Steps {
		steps[i] = map[string]any{
			"index":   s.Index,
			"replica": s.Replica,
			"op":      s.Op,
			"target":  s.Target,
			"outcome": s.Outcome,
		}
	}

	replicas := make(map[string]any, len(r.Replicas))
	for _, rep := range r.Replicas {
		var known []string
		for h, rec := range rep.Known() {
			if rec.IsContent() {
				known = append(known, r.Label(h))
			}
		}
		slices.Sort(known)
		replicas[rep.Name()] = map[string]any{
			"frontier":    frontierLabels(r, rep),
			"known":       orEmpty(known),
			"known_count": len(rep.Known()),
		}
	}

	return ir.MarshalCanonical(map[string]any{
		"scenario": name,
		"pass":     r.Pass,
		"steps":    steps,
		"replicas": replicas,
	})
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// RunWithGolden executes a scenario and compares its label snapshot against
// a golden file stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if the snapshot doesn't match.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(context.Background(), scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result against a golden file without
// re-running the scenario.
func AssertGolden(t *testing.T, name string, result *Result) error {
	t.Helper()

	snapshot, err := result.Snapshot(name)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, snapshot)
	return nil
}
