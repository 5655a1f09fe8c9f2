package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/typeref/internal/ir"
	"github.com/roach88/typeref/internal/typeutils"
	"github.com/roach88/typeref/internal/wire"
)

// PointerOptions holds flags for the pointer command.
type PointerOptions struct {
	*RootOptions
	Inbound bool
}

// NewPointerCommand creates the pointer command.
func NewPointerCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PointerOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "pointer <schema-dir> <source-type> <pointer>",
		Short: "Build the reference for a pointer",
		Long: `Build the pointer reference for a pointer of source-type and print it in
wire form. Pointers inherited from an ancestor are found by short name.

With --inbound the pointer is traversed from its target to its source.`,
		Args:          cobra.ExactArgs(3),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPointer(opts, args[0], args[1], args[2], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Inbound, "inbound", false, "traverse the pointer in reverse")

	return cmd
}

func runPointer(opts *PointerOptions, schemaDir, sourceType, shortName string, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd)
	logger := f.Logger()

	s, err := loadOrReport(f, schemaDir)
	if err != nil {
		return err
	}

	source, err := s.TypeByName(sourceType)
	if err != nil {
		return reportCommandError(f, ErrCodeTypeExpr, "unknown source type", err)
	}
	ptr, ok := s.PointerOn(source, shortName)
	if !ok {
		return reportCommandError(f, ErrCodePointer, "unknown pointer",
			fmt.Errorf("type %s has no pointer %q", sourceType, shortName))
	}

	dir := ir.Outbound
	if opts.Inbound {
		dir = ir.Inbound
	}

	b := typeutils.NewBuilder(s)
	src, err := b.TypeRef(s.Source(ptr))
	if err != nil {
		return reportCommandError(f, ErrCodeBuildRef, "failed to build source reference", err)
	}
	dst, err := b.TypeRef(s.Target(ptr))
	if err != nil {
		return reportCommandError(f, ErrCodeBuildRef, "failed to build target reference", err)
	}
	logger.Debug("endpoints built", "pointer", ptr.Name().String(), "keys", refKeys(src, dst))

	ref, err := b.PtrRef(typeutils.PtrRefRequest{Source: src, Target: dst, Pointer: ptr, Direction: dir})
	if err != nil {
		return reportCommandError(f, ErrCodeBuildRef, "failed to build pointer reference", err)
	}
	logger.Debug("pointer ref built", "pointer", ptr.Name().String(), "direction", dir.String(), "key", ref.Key().Short())

	payload, err := wire.EncodePtrRef(ref)
	if err != nil {
		return reportCommandError(f, ErrCodeBuildRef, "failed to encode pointer reference", err)
	}
	return f.SuccessFor(s.Version(), RefOutput{Key: string(ref.Key()), Ref: payload})
}
