package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/chronotree/internal/harness"
)

// TestOptions are the test subcommand flags.
type TestOptions struct {
	*RootOptions
	Update bool   // rewrite golden snapshots instead of comparing
	Filter string // glob over scenario base names
}

// ScenarioResult is the verdict for one scenario file.
type ScenarioResult struct {
	Name   string   `json:"name"`
	Pass   bool     `json:"pass"`
	Errors []string `json:"errors,omitempty"`
}

// TestResult aggregates every scenario run by one invocation.
type TestResult struct {
	Scenarios []ScenarioResult `json:"scenarios"`
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
	Total     int              `json:"total"`
}

// NewTestCommand runs scenario files through the harness.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "test <path>...",
		Short: "Run replica scenarios",
		Long: `Run replica scenario files and check their assertions.

Each path is a scenario file or a directory searched for .yaml/.yml files.
Scenarios run in memory. When a golden file exists at
<scenarios-dir>/../golden/<name>.golden, the result snapshot must match it.

Exit codes:
  0  every scenario passed
  1  at least one scenario failed
  2  bad arguments or unreadable paths

Examples:
  chronotree test ./testdata/scenarios
  chronotree test ./testdata/scenarios --filter "divergent*"
  chronotree test ./testdata/scenarios --update
  chronotree test ./testdata/scenarios/first_record.yaml --format json`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTests(cmd, opts, args)
		},
	}

	cmd.Flags().BoolVar(&opts.Update, "update", false, "rewrite golden snapshots")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "only run scenarios whose name matches this glob")

	return cmd
}

func runTests(cmd *cobra.Command, opts *TestOptions, paths []string) error {
	files, err := collectScenarios(paths, opts.Filter)
	if err != nil {
		return err
	}

	progress := cmd.OutOrStdout()
	if opts.Format == "json" {
		progress = io.Discard
	}

	result := TestResult{Scenarios: make([]ScenarioResult, 0, len(files))}
	for _, file := range files {
		sr := runScenario(cmd, opts, file)
		result.add(sr)
		printScenario(progress, sr)
	}

	if opts.Format == "json" {
		return outputTestJSON(cmd, result)
	}
	return outputTestText(cmd, result)
}

func (r *TestResult) add(sr ScenarioResult) {
	r.Scenarios = append(r.Scenarios, sr)
	r.Total++
	if sr.Pass {
		r.Passed++
	} else {
		r.Failed++
	}
}

func (r TestResult) failure() error {
	if r.Failed == 0 {
		return nil
	}
	return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", r.Failed))
}

func printScenario(w io.Writer, sr ScenarioResult) {
	mark := "✓"
	if !sr.Pass {
		mark = "✗"
	}
	fmt.Fprintf(w, "%s %s\n", mark, sr.Name)
	for _, e := range sr.Errors {
		fmt.Fprintf(w, "  %s\n", strings.ReplaceAll(e, "\n", "\n  "))
	}
}

// collectScenarios expands each path argument into scenario files.
func collectScenarios(paths []string, filter string) ([]string, error) {
	var all []string
	for _, path := range paths {
		if _, err := os.Stat(path); err != nil {
			return nil, NewExitError(ExitCommandError, "scenario path not found: "+path)
		}
		files, err := findScenarioFiles(path, filter)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to find scenarios", err)
		}
		all = append(all, files...)
	}
	return all, nil
}

// findScenarioFiles walks path for .yaml and .yml files whose base name,
// without extension, matches filter. An empty filter matches everything.
func findScenarioFiles(path, filter string) ([]string, error) {
	var files []string
	walk := func(p string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		ext := filepath.Ext(p)
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}
		if filter == "" {
			files = append(files, p)
			return nil
		}
		ok, err := filepath.Match(filter, strings.TrimSuffix(d.Name(), ext))
		if err != nil {
			return fmt.Errorf("invalid filter pattern: %w", err)
		}
		if ok {
			files = append(files, p)
		}
		return nil
	}
	if err := filepath.WalkDir(path, walk); err != nil {
		return nil, err
	}
	return files, nil
}

// runScenario loads and runs one file, then compares or rewrites its golden
// snapshot. A missing golden file leaves the verdict to the assertions.
func runScenario(cmd *cobra.Command, opts *TestOptions, file string) ScenarioResult {
	sr := ScenarioResult{Name: filepath.Base(file)}
	fail := func(format string, args ...any) ScenarioResult {
		sr.Errors = []string{fmt.Sprintf(format, args...)}
		return sr
	}

	scenario, err := harness.LoadScenario(file)
	if err != nil {
		return fail("failed to load scenario: %v", err)
	}
	sr.Name = scenario.Name

	result, err := harness.Run(cmd.Context(), scenario, harness.WithLogger(opts.logger()))
	switch {
	case err != nil:
		return fail("execution failed: %v", err)
	case !result.Pass:
		sr.Errors = result.Errors
		return sr
	}

	snapshot, err := result.Snapshot(scenario.Name)
	if err != nil {
		return fail("failed to snapshot result: %v", err)
	}
	if err := checkGolden(goldenFilePath(file, scenario.Name), snapshot, opts.Update); err != nil {
		return fail("%v", err)
	}
	sr.Pass = true
	return sr
}

func checkGolden(path string, snapshot []byte, update bool) error {
	if update {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return fmt.Errorf("failed to create golden directory: %w", err)
		}
		if err := os.WriteFile(path, snapshot, 0o644); err != nil {
			return fmt.Errorf("failed to write golden file: %w", err)
		}
		return nil
	}
	want, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return nil
	case err != nil:
		return fmt.Errorf("failed to read golden file: %w", err)
	case !bytes.Equal(want, snapshot):
		return fmt.Errorf("snapshot does not match %s (run with --update to regenerate)", path)
	}
	return nil
}

// goldenFilePath maps dir/scenarios/x.yaml to dir/golden/<name>.golden.
func goldenFilePath(scenarioFile, name string) string {
	base := filepath.Dir(filepath.Dir(scenarioFile))
	return filepath.Join(base, "golden", name+".golden")
}

func outputTestJSON(cmd *cobra.Command, result TestResult) error {
	resp := CLIResponse{Status: "ok", Data: result}
	if fail := result.failure(); fail != nil {
		resp.Status = "error"
		resp.Error = &CLIError{Code: "E_TEST_FAILED", Message: fail.Error()}
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(resp); err != nil {
		return err
	}
	return result.failure()
}

func outputTestText(cmd *cobra.Command, result TestResult) error {
	w := cmd.OutOrStdout()
	if result.Total == 0 {
		fmt.Fprintln(w, "No scenarios found.")
		return nil
	}
	fmt.Fprintf(w, "\nTest Summary: %d passed, %d failed, %d total\n", result.Passed, result.Failed, result.Total)
	if err := result.failure(); err != nil {
		return err
	}
	fmt.Fprintln(w, "✓ All scenarios passed")
	return nil
}
