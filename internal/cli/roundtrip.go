package cli

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/typeref/internal/ir"
	"github.com/roach88/typeref/internal/schema"
	"github.com/roach88/typeref/internal/typeutils"
)

// RoundTripOptions holds flags for the roundtrip command.
type RoundTripOptions struct {
	*RootOptions
	Workers int
}

// RoundTripReport summarizes a roundtrip run.
type RoundTripReport struct {
	Types      int      `json:"types"`
	Pointers   int      `json:"pointers"`
	Mismatches []string `json:"mismatches"`
}

func (r RoundTripReport) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d types, %d pointer traversals checked", r.Types, r.Pointers)
	for _, m := range r.Mismatches {
		sb.WriteString("\n  " + m)
	}
	return sb.String()
}

// NewRoundTripCommand creates the roundtrip command.
func NewRoundTripCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RoundTripOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "roundtrip <schema-dir>",
		Short: "Check that every reference resolves back to its schema element",
		Long: `Build the reference for every type and for every pointer in both
directions, resolve each reference back into the schema, and report any
reference that does not resolve to the element it was built from.

Exits with status 1 when a mismatch is found.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRoundTrip(opts, args[0], cmd)
		},
	}

	cmd.Flags().IntVar(&opts.Workers, "workers", runtime.GOMAXPROCS(0), "maximum concurrent checks")

	return cmd
}

func runRoundTrip(opts *RoundTripOptions, schemaDir string, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd)
	logger := f.Logger()

	s, err := loadOrReport(f, schemaDir)
	if err != nil {
		return err
	}

	types := s.Types()
	ptrs := s.Pointers()
	results := make([]string, len(types)+2*len(ptrs))

	g, ctx := errgroup.WithContext(cmd.Context())
	if opts.Workers > 0 {
		g.SetLimit(opts.Workers)
	}
	for i, t := range types {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = checkTypeRoundTrip(s, t)
			return nil
		})
	}
	for i, p := range ptrs {
		for j, dir := range []ir.Direction{ir.Outbound, ir.Inbound} {
			g.Go(func() error {
				if err := ctx.Err(); err != nil {
					return err
				}
				results[len(types)+2*i+j] = checkPtrRoundTrip(s, p, dir)
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return reportCommandError(f, ErrCodeGeneric, "roundtrip interrupted", err)
	}

	report := RoundTripReport{Types: len(types), Pointers: 2 * len(ptrs), Mismatches: []string{}}
	for _, r := range results {
		if r != "" {
			report.Mismatches = append(report.Mismatches, r)
		}
	}
	logger.Info("roundtrip checked",
		"snapshot", s.Version(),
		"types", report.Types,
		"pointers", report.Pointers,
		"mismatches", len(report.Mismatches))

	if len(report.Mismatches) > 0 {
		if err := f.Error(ErrCodeCheckFailed, fmt.Sprintf("%d references did not round-trip", len(report.Mismatches)), report.Mismatches); err != nil {
			return err
		}
		return NewExitError(ExitFailure, "roundtrip mismatches found")
	}
	return f.SuccessFor(s.Version(), report)
}

// checkTypeRoundTrip returns a mismatch description, or "" if t survives
// build and resolve.
func checkTypeRoundTrip(s *schema.Snapshot, t schema.Type) string {
	ref, err := typeutils.NewBuilder(s).TypeRef(t)
	if err != nil {
		return fmt.Sprintf("type %s: build: %v", t.Name(), err)
	}
	got, err := typeutils.TypeRefToType(s, ref)
	if err != nil {
		return fmt.Sprintf("type %s: resolve: %v", t.Name(), err)
	}
	if got.ID() != t.ID() {
		return fmt.Sprintf("type %s: resolved to %s", t.Name(), got.Name())
	}
	return ""
}

func checkPtrRoundTrip(s *schema.Snapshot, p schema.Pointer, dir ir.Direction) string {
	label := fmt.Sprintf("pointer %s %s", p.Name(), dir)
	b := typeutils.NewBuilder(s)
	src, err := b.TypeRef(s.Source(p))
	if err != nil {
		return fmt.Sprintf("%s: build source: %v", label, err)
	}
	dst, err := b.TypeRef(s.Target(p))
	if err != nil {
		return fmt.Sprintf("%s: build target: %v", label, err)
	}
	ref, err := b.PtrRef(typeutils.PtrRefRequest{Source: src, Target: dst, Pointer: p, Direction: dir})
	if err != nil {
		return fmt.Sprintf("%s: build: %v", label, err)
	}
	got, err := typeutils.PointerFromPtrRef(s, ref)
	if err != nil {
		return fmt.Sprintf("%s: resolve: %v", label, err)
	}
	if got.ID() != p.ID() {
		return fmt.Sprintf("%s: resolved to %s", label, got.Name())
	}
	return ""
}
