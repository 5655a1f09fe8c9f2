package cli

import (
	"bytes"
	"fmt"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/roach88/typeref/internal/ir"
	"github.com/roach88/typeref/internal/schema"
	"github.com/roach88/typeref/internal/typeutils"
	"github.com/roach88/typeref/internal/wire"
)

// TypeOptions holds flags for the type command.
type TypeOptions struct {
	*RootOptions
	Name string // name carried by the reference instead of the type's own
}

// RefOutput is the payload of the type and pointer commands.
type RefOutput struct {
	Key string          `json:"key"`
	Ref json.RawMessage `json:"ref"`
}

// String renders the key followed by the indented wire form.
func (o RefOutput) String() string {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "key: %s\n", o.Key)
	if err := json.Indent(&buf, o.Ref, "", "  "); err != nil {
		buf.Write(o.Ref)
	}
	return buf.String()
}

// NewTypeCommand creates the type command.
func NewTypeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TypeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "type <schema-dir> <type-expr>",
		Short: "Build the reference for a type",
		Long: `Build the type reference for a type expression and print it in wire form.

Type expressions name a schema type ("default::User"), a generic placeholder
("anytype", "anytuple") or a collection ("array<std::int64>",
"tuple<a: std::int64, b: std::str>").`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true, // Don't print usage on errors - we handle our own error output
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runType(opts, args[0], args[1], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Name, "name", "", "name carried by the reference")

	return cmd
}

func runType(opts *TypeOptions, schemaDir, expr string, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd)
	logger := f.Logger()

	s, err := loadOrReport(f, schemaDir)
	if err != nil {
		return err
	}
	logger.Debug("schema loaded", "dir", schemaDir, "snapshot", s.Version())

	typ, err := schema.ParseTypeExpr(s, expr)
	if err != nil {
		return reportCommandError(f, ErrCodeTypeExpr, "invalid type expression", err)
	}

	var typeOpts []typeutils.TypeRefOption
	if opts.Name != "" {
		typeOpts = append(typeOpts, typeutils.WithTypeName(opts.Name))
	}
	ref, err := typeutils.TypeToTypeRef(s, typ, typeOpts...)
	if err != nil {
		return reportCommandError(f, ErrCodeBuildRef, "failed to build type reference", err)
	}
	logger.Debug("type ref built", "type", typ.Name().String(), "key", ref.Key().Short())

	payload, err := wire.EncodeTypeRef(ref)
	if err != nil {
		return reportCommandError(f, ErrCodeBuildRef, "failed to encode type reference", err)
	}
	return f.SuccessFor(s.Version(), RefOutput{Key: string(ref.Key()), Ref: payload})
}

// reportCommandError outputs err under code and returns it as a command
// error.
func reportCommandError(f *OutputFormatter, code, message string, err error) error {
	if outErr := f.Error(code, fmt.Sprintf("%s: %v", message, err), nil); outErr != nil {
		return outErr
	}
	return WrapExitError(ExitCommandError, message, err)
}

// refKeys lists the short keys of refs, for logging.
func refKeys[T interface{ Key() ir.RefKey }](refs ...T) []string {
	keys := make([]string, len(refs))
	for i, r := range refs {
		keys[i] = r.Key().Short()
	}
	return keys
}
