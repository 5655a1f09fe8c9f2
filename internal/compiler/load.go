package compiler

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"

	"github.com/roach88/typeref/internal/schema"
)

// ErrNoCUEFiles is returned by LoadSchemaDir for a directory without .cue files.
var ErrNoCUEFiles = errors.New("no CUE files found")

// LoadSchemaDir loads the CUE package in dir and compiles it into a
// snapshot.
func LoadSchemaDir(dir string) (*schema.Snapshot, error) {
	v, err := LoadValue(dir)
	if err != nil {
		return nil, err
	}
	return CompileSchema(v)
}

// LoadValue loads and builds the CUE package in dir.
func LoadValue(dir string) (cue.Value, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return cue.Value{}, fmt.Errorf("schema directory: %w", err)
	}
	if !info.IsDir() {
		return cue.Value{}, fmt.Errorf("schema directory: not a directory: %s", dir)
	}

	files, err := FindCUEFiles(dir)
	if err != nil {
		return cue.Value{}, fmt.Errorf("scanning %s: %w", dir, err)
	}
	if len(files) == 0 {
		return cue.Value{}, fmt.Errorf("%s: %w", dir, ErrNoCUEFiles)
	}

	ctx := cuecontext.New()
	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return cue.Value{}, fmt.Errorf("loading %s: no CUE instances loaded", dir)
	}
	inst := instances[0]
	if inst.Err != nil {
		return cue.Value{}, fmt.Errorf("loading CUE files: %w", inst.Err)
	}

	value := ctx.BuildInstance(inst)
	if err := value.Err(); err != nil {
		return cue.Value{}, formatCUEError(err)
	}
	return value, nil
}

// FindCUEFiles returns the .cue files of the package in dir, sorted.
// Subdirectories hold other packages and are not searched.
func FindCUEFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".cue" {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	return files, nil
}
