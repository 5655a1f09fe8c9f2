package harness

import "strings"

// Reference kinds as reported and matched by TypeExpect.Kind.
const (
	KindScalar   = "scalar"
	KindObject   = "object"
	KindView     = "view"
	KindArray    = "array"
	KindTuple    = "tuple"
	KindAny      = "any"
	KindAnyTuple = "anytuple"
)

// Result is the outcome of a scenario execution.
type Result struct {
	// Scenario is the name of the executed scenario.
	Scenario string `json:"scenario"`

	// Pass is true if every case met its expectations.
	Pass bool `json:"pass"`

	// Cases holds one entry per case, types first, in scenario order.
	Cases []CaseResult `json:"cases"`

	// Errors contains one message per failed expectation.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// CaseResult describes the reference built for one case.
type CaseResult struct {
	// Label is "type <expr>" or "pointer <source>.<name> <direction>".
	Label string `json:"label"`

	// Properties are the observed properties of the reference as
	// "key: value" lines in a fixed order.
	Properties []string `json:"properties"`

	// Failures lists the expectations the reference did not meet.
	Failures []string `json:"failures,omitempty"`
}

// NewResult creates a new passing result.
func NewResult(scenario string) *Result {
	return &Result{
		Scenario: scenario,
		Pass:     true,
		Cases:    []CaseResult{},
		Errors:   []string{},
	}
}

// AddCase appends c and records its failures.
func (r *Result) AddCase(c CaseResult) {
	r.Cases = append(r.Cases, c)
	for _, f := range c.Failures {
		r.AddError(c.Label + ": " + f)
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Report renders the result as deterministic text, suitable for golden
// comparison.
func (r *Result) Report() string {
	var buf strings.Builder
	buf.WriteString("scenario: " + r.Scenario + "\n")
	for _, c := range r.Cases {
		buf.WriteString("\n" + c.Label + "\n")
		for _, p := range c.Properties {
			buf.WriteString("  " + p + "\n")
		}
		if len(c.Failures) == 0 {
			buf.WriteString("  => ok\n")
			continue
		}
		for _, f := range c.Failures {
			buf.WriteString("  => FAIL " + f + "\n")
		}
	}
	if r.Pass {
		buf.WriteString("\nPASS\n")
	} else {
		buf.WriteString("\nFAIL\n")
	}
	return buf.String()
}
