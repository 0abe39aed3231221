package harness

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshot_UsesLabels(t *testing.T) {
	scenario := &Scenario{
		Name:        "first_record",
		Description: "single root",
		Replicas:    []string{"a"},
		Steps: []Step{
			{Replica: "a", Add: &AddStep{Label: "first", Payload: "-1"}},
		},
	}

	result, err := Run(context.Background(), scenario)
	require.NoError(t, err)

	snapshot, err := result.Snapshot(scenario.Name)
	require.NoError(t, err)
	assert.Equal(t,
		`{"pass":true,"replicas":{"a":{"frontier":["first"],"known":["first"],"known_count":2}},"scenario":"first_record","steps":[{"index":0,"op":"add","outcome":"applied","replica":"a","target":"first"}]}`,
		string(snapshot))
	assert.NotContains(t, string(snapshot), string(result.Replica("a").Head()))
}

func TestSnapshot_Deterministic(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/associativity.yaml")
	require.NoError(t, err)

	first, err := Run(context.Background(), scenario)
	require.NoError(t, err)
	second, err := Run(context.Background(), scenario)
	require.NoError(t, err)

	a, err := first.Snapshot(scenario.Name)
	require.NoError(t, err)
	b, err := second.Snapshot(scenario.Name)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}

func TestAssertGolden_ExistingResult(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/empty_replica.yaml")
	require.NoError(t, err)

	result, err := Run(context.Background(), scenario)
	require.NoError(t, err)
	require.NoError(t, AssertGolden(t, scenario.Name, result))
}
