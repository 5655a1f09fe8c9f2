package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"cuelang.org/go/cue/token"

	"github.com/roach88/typeref/internal/compiler"
	"github.com/roach88/typeref/internal/schema"
)

// LoadError represents an error that occurred during schema loading.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// LoadSchema compiles the CUE schema in dir into a snapshot. Failures are
// returned as *LoadError carrying an error code.
func LoadSchema(dir string) (*schema.Snapshot, error) {
	s, err := compiler.LoadSchemaDir(dir)
	if err != nil {
		return nil, convertLoadError(dir, err)
	}
	return s, nil
}

// convertLoadError converts a compiler error to a LoadError with position info.
func convertLoadError(dir string, err error) *LoadError {
	var compileErr *compiler.CompileError
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("schema directory not found: %s", dir)}
	case errors.Is(err, compiler.ErrNoCUEFiles):
		return &LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", dir)}
	case errors.As(err, &compileErr):
		return &LoadError{
			Code:    MapFieldToErrorCode(compileErr.Field),
			Message: compileErr.Message,
			Pos:     compileErr.Pos,
		}
	case strings.HasPrefix(err.Error(), "loading CUE files"):
		return &LoadError{Code: ErrCodeLoadFailed, Message: err.Error()}
	}
	return &LoadError{Code: ErrCodeGeneric, Message: err.Error()}
}

// Error code constants - unified across all CLI commands.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeNoFiles     = "E003" // No CUE files found
	ErrCodeLoadFailed  = "E004" // CUE load failed
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeBuildFailed = "E006" // CUE build failed
	ErrCodeStore       = "E007" // Reference store error

	// Schema definition errors
	ErrCodeModules       = "E101" // Missing or invalid module list
	ErrCodeSchema        = "E102" // Definitions do not form a valid snapshot
	ErrCodePointerTarget = "E103" // Invalid pointer target expression
	ErrCodeCardinality   = "E104" // Invalid pointer cardinality
	ErrCodeUnion         = "E105" // Invalid union members
	ErrCodeView          = "E106" // Invalid view material type

	// Reference errors
	ErrCodeTypeExpr    = "E201" // Unparseable or unknown type expression
	ErrCodePointer     = "E202" // Unknown pointer
	ErrCodeBuildRef    = "E203" // Reference construction failed
	ErrCodeScenario    = "E204" // Invalid scenario file
	ErrCodeCheckFailed = "E205" // Round-trip or scenario expectations not met
)

// MapFieldToErrorCode maps a compiler error field to an error code.
func MapFieldToErrorCode(field string) string {
	switch {
	case field == "cue":
		return ErrCodeBuildFailed
	case field == "modules":
		return ErrCodeModules
	case field == "schema":
		return ErrCodeSchema
	case strings.HasSuffix(field, ".target"):
		return ErrCodePointerTarget
	case strings.HasSuffix(field, ".cardinality"):
		return ErrCodeCardinality
	case strings.HasPrefix(field, "unions."):
		return ErrCodeUnion
	case strings.HasPrefix(field, "views."):
		return ErrCodeView
	default:
		return ErrCodeGeneric
	}
}

// loadOrReport loads the schema and reports a load failure through f.
func loadOrReport(f *OutputFormatter, dir string) (*schema.Snapshot, error) {
	s, err := LoadSchema(dir)
	if err == nil {
		return s, nil
	}
	var loadErr *LoadError
	if !errors.As(err, &loadErr) {
		loadErr = &LoadError{Code: ErrCodeGeneric, Message: err.Error()}
	}
	var details any
	if loadErr.Pos.IsValid() {
		details = map[string]any{
			"file":   loadErr.Pos.Filename(),
			"line":   loadErr.Pos.Line(),
			"column": loadErr.Pos.Column(),
		}
	}
	if outErr := f.Error(loadErr.Code, loadErr.Message, details); outErr != nil {
		return nil, outErr
	}
	return nil, WrapExitError(ExitCommandError, "failed to load schema", loadErr)
}
