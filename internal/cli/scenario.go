package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/typeref/internal/harness"
)

// ScenarioOptions holds flags for the scenario command.
type ScenarioOptions struct {
	*RootOptions
}

// ScenarioSummary is the JSON payload of the scenario command.
type ScenarioSummary struct {
	Total   int               `json:"total"`
	Passed  int               `json:"passed"`
	Failed  int               `json:"failed"`
	Results []*harness.Result `json:"results"`
}

func (s ScenarioSummary) String() string {
	reports := make([]string, len(s.Results))
	for i, r := range s.Results {
		reports[i] = r.Report()
	}
	return strings.Join(reports, "\n") + fmt.Sprintf("\n%d scenarios: %d passed, %d failed", s.Total, s.Passed, s.Failed)
}

// NewScenarioCommand creates the scenario command.
func NewScenarioCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ScenarioOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "scenario <file>...",
		Short: "Run conformance scenarios",
		Long: `Run YAML conformance scenarios and print their reports.

Each scenario names a CUE schema directory and lists type and pointer cases
with expected properties. Exits with status 1 when any expectation fails.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenarios(opts, args, cmd)
		},
	}

	return cmd
}

func runScenarios(opts *ScenarioOptions, files []string, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd)
	logger := f.Logger()

	summary := ScenarioSummary{Results: []*harness.Result{}}
	for _, file := range files {
		scenario, err := harness.LoadScenario(file)
		if err != nil {
			return reportCommandError(f, ErrCodeScenario, "failed to load scenario "+file, err)
		}

		result, err := harness.Run(scenario, harness.WithLogger(logger))
		if err != nil {
			return reportCommandError(f, ErrCodeScenario, "failed to run scenario "+scenario.Name, err)
		}
		logger.Info("scenario finished", "scenario", scenario.Name, "pass", result.Pass, "errors", len(result.Errors))

		summary.Results = append(summary.Results, result)
		summary.Total++
		if result.Pass {
			summary.Passed++
		} else {
			summary.Failed++
		}
	}

	if summary.Failed > 0 {
		if f.Format == "json" {
			if err := f.Error(ErrCodeCheckFailed, fmt.Sprintf("%d of %d scenarios failed", summary.Failed, summary.Total), summary); err != nil {
				return err
			}
		} else {
			fmt.Fprintln(f.Writer, summary)
		}
		return NewExitError(ExitFailure, "scenarios failed")
	}
	return f.Success(summary)
}
