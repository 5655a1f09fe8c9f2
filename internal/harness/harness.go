package harness

import (
	"fmt"
	"log/slog"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/typeref/internal/compiler"
	"github.com/roach88/typeref/internal/ir"
	"github.com/roach88/typeref/internal/schema"
	"github.com/roach88/typeref/internal/typeutils"
)

// Harness executes scenarios against one compiled snapshot.
type Harness struct {
	snapshot *schema.Snapshot
	logger   *slog.Logger
	workers  int
}

// Option configures a Harness.
type Option func(*Harness)

// WithLogger sets the logger used for per-case diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Harness) {
		h.logger = logger
	}
}

// WithWorkers bounds the number of cases built concurrently.
func WithWorkers(n int) Option {
	return func(h *Harness) {
		h.workers = n
	}
}

// New creates a harness over snapshot.
func New(snapshot *schema.Snapshot, opts ...Option) *Harness {
	h := &Harness{
		snapshot: snapshot,
		logger:   slog.New(slog.DiscardHandler),
		workers:  runtime.GOMAXPROCS(0),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Run compiles the scenario's schema and executes the scenario.
//
// An error is returned only when the schema cannot be loaded. Cases that
// fail to build or miss an expectation are reported in the Result.
func Run(scenario *Scenario, opts ...Option) (*Result, error) {
	snapshot, err := compiler.LoadSchemaDir(scenario.Schema)
	if err != nil {
		return nil, fmt.Errorf("failed to load schema: %w", err)
	}
	return New(snapshot, opts...).Execute(scenario), nil
}

// Execute runs every case of scenario.
//
// Cases are built concurrently against the shared snapshot, each with its
// own builder. The result lists cases in scenario order regardless of
// completion order.
func (h *Harness) Execute(scenario *Scenario) *Result {
	cases := make([]CaseResult, len(scenario.Types)+len(scenario.Pointers))

	var g errgroup.Group
	if h.workers > 0 {
		g.SetLimit(h.workers)
	}
	for i, c := range scenario.Types {
		g.Go(func() error {
			cases[i] = h.runType(c)
			return nil
		})
	}
	offset := len(scenario.Types)
	for i, c := range scenario.Pointers {
		g.Go(func() error {
			cases[offset+i] = h.runPointer(c)
			return nil
		})
	}
	_ = g.Wait()

	result := NewResult(scenario.Name)
	for _, c := range cases {
		result.AddCase(c)
	}
	h.logger.Debug("scenario executed",
		"scenario", scenario.Name,
		"cases", len(cases),
		"pass", result.Pass)
	return result
}

func (h *Harness) runType(c TypeCase) CaseResult {
	res := CaseResult{Label: "type " + c.Expr}
	if c.Name != "" {
		res.Label += " as " + c.Name
	}

	typ, err := schema.ParseTypeExpr(h.snapshot, c.Expr)
	if err != nil {
		res.Failures = []string{"error: " + err.Error()}
		return res
	}

	var opts []typeutils.TypeRefOption
	if c.Name != "" {
		opts = append(opts, typeutils.WithTypeName(c.Name))
	}
	ref, err := typeutils.NewBuilder(h.snapshot).TypeRef(typ, opts...)
	if err != nil {
		res.Failures = []string{"error: " + err.Error()}
		return res
	}

	o := observeType(h.snapshot, typ, ref)
	res.Properties = o.properties()
	res.Failures = checkType(o, c.Expect)
	h.logger.Debug("type case", "expr", c.Expr, "key", ref.Key().Short(), "failures", len(res.Failures))
	return res
}

func (h *Harness) runPointer(c PointerCase) CaseResult {
	dir := ir.Outbound
	if c.Inbound {
		dir = ir.Inbound
	}
	res := CaseResult{Label: fmt.Sprintf("pointer %s.%s %s", c.Source, c.Pointer, dir)}

	ptr, err := h.lookupPointer(c.Source, c.Pointer)
	if err != nil {
		res.Failures = []string{"error: " + err.Error()}
		return res
	}

	b := typeutils.NewBuilder(h.snapshot)
	src, err := b.TypeRef(h.snapshot.Source(ptr))
	if err != nil {
		res.Failures = []string{"error: " + err.Error()}
		return res
	}
	dst, err := b.TypeRef(h.snapshot.Target(ptr))
	if err != nil {
		res.Failures = []string{"error: " + err.Error()}
		return res
	}
	ref, err := b.PtrRef(typeutils.PtrRefRequest{Source: src, Target: dst, Pointer: ptr, Direction: dir})
	if err != nil {
		res.Failures = []string{"error: " + err.Error()}
		return res
	}

	o := observePtr(h.snapshot, ptr, ref)
	res.Properties = o.properties()
	res.Failures = checkPtr(o, c.Expect)
	h.logger.Debug("pointer case", "pointer", o.name, "direction", dir.String(), "key", ref.Key().Short(), "failures", len(res.Failures))
	return res
}

func (h *Harness) lookupPointer(source, short string) (schema.Pointer, error) {
	t, err := h.snapshot.TypeByName(source)
	if err != nil {
		return nil, err
	}
	p, ok := h.snapshot.PointerOn(t, short)
	if !ok {
		return nil, fmt.Errorf("type %s has no pointer %q", source, short)
	}
	return p, nil
}
