package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
)

// Scenario defines a conformance scenario.
// A scenario loads one CUE schema directory, builds references for the
// listed type expressions and pointers, and checks each against its
// expectations.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Schema is the CUE schema directory to compile.
	// Relative paths are resolved against the scenario file location.
	Schema string `yaml:"schema"`

	// Types lists type reference cases.
	Types []TypeCase `yaml:"types,omitempty"`

	// Pointers lists pointer reference cases.
	Pointers []PointerCase `yaml:"pointers,omitempty"`
}

// TypeCase builds the reference for one type expression.
type TypeCase struct {
	// Expr is a type expression such as "default::User" or
	// "tuple<a: std::int64, b: std::str>".
	Expr string `yaml:"expr"`

	// Name overrides the name carried by the reference.
	Name string `yaml:"name,omitempty"`

	// Expect holds the checked properties. Nil fields are not checked.
	Expect TypeExpect `yaml:"expect"`
}

// TypeExpect lists expected properties of a type reference.
type TypeExpect struct {
	// Kind is one of scalar, object, view, array, tuple, any, anytuple.
	Kind *string `yaml:"kind,omitempty"`

	Name     *string `yaml:"name,omitempty"`
	Abstract *bool   `yaml:"abstract,omitempty"`
	Generic  *bool   `yaml:"generic,omitempty"`

	// Base is the expected base type name; "" expects no base type.
	Base *string `yaml:"base,omitempty"`

	// Material is the expected material type name; "" expects none.
	Material *string `yaml:"material,omitempty"`

	// Children is the expected set of virtual children, in any order.
	Children []string `yaml:"children,omitempty"`

	// CommonParent is the expected common ancestor; "" expects none.
	CommonParent *string `yaml:"common_parent,omitempty"`

	// Elements are the expected element names of a named tuple, in order.
	Elements []string `yaml:"elements,omitempty"`

	// Subtypes are the expected collection subtype names, in order.
	Subtypes []string `yaml:"subtypes,omitempty"`

	// RoundTrip expects resolving the reference to give back the same type.
	RoundTrip *bool `yaml:"roundtrip,omitempty"`
}

// PointerCase builds the reference for one pointer traversal.
type PointerCase struct {
	// Source is the type declaring the pointer.
	Source string `yaml:"source"`

	// Pointer is the pointer's short name on Source.
	Pointer string `yaml:"pointer"`

	// Inbound traverses the pointer from target to source.
	Inbound bool `yaml:"inbound,omitempty"`

	Expect PointerExpect `yaml:"expect"`
}

// PointerExpect lists expected properties of a pointer reference.
type PointerExpect struct {
	// Source and Target are the traversal endpoints.
	Source *string `yaml:"source,omitempty"`
	Target *string `yaml:"target,omitempty"`

	// Cardinality is the cardinality in the traversal direction
	// (ONE, MANY or UNKNOWN).
	Cardinality *string `yaml:"cardinality,omitempty"`

	// OutCardinality is the declared outbound cardinality.
	OutCardinality *string `yaml:"out_cardinality,omitempty"`

	Required   *bool `yaml:"required,omitempty"`
	Computable *bool `yaml:"computable,omitempty"`
	IDPointer  *bool `yaml:"id_pointer,omitempty"`

	// Material is the expected material pointer name; "" expects none.
	Material *string `yaml:"material,omitempty"`

	// DerivedFrom is the expected non-derived parent; "" expects none.
	DerivedFrom *string `yaml:"derived_from,omitempty"`

	// Descendants is the expected number of descendant pointers.
	Descendants *int `yaml:"descendants,omitempty"`

	RoundTrip *bool `yaml:"roundtrip,omitempty"`
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Strict field validation catches typos like "pointer:" vs "pointers:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if scenario.Schema != "" && !filepath.IsAbs(scenario.Schema) {
		scenario.Schema = filepath.Join(filepath.Dir(path), scenario.Schema)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// LoadScenarios loads every *.yaml and *.yml file in dir, sorted by file
// name.
func LoadScenarios(dir string) ([]*Scenario, error) {
	var paths []string
	for _, pattern := range []string{"*.yaml", "*.yml"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, err
		}
		paths = append(paths, matches...)
	}
	sort.Strings(paths)

	scenarios := make([]*Scenario, 0, len(paths))
	for _, path := range paths {
		s, err := LoadScenario(path)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
		}
		scenarios = append(scenarios, s)
	}
	return scenarios, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if s.Schema == "" {
		return fmt.Errorf("schema is required")
	}

	if len(s.Types) == 0 && len(s.Pointers) == 0 {
		return fmt.Errorf("at least one type or pointer case is required")
	}

	info, err := os.Stat(s.Schema)
	if os.IsNotExist(err) {
		return fmt.Errorf("schema directory not found: %s", s.Schema)
	}
	if err != nil {
		return fmt.Errorf("schema directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("schema is not a directory: %s", s.Schema)
	}

	for i, c := range s.Types {
		if c.Expr == "" {
			return fmt.Errorf("types[%d]: expr is required", i)
		}
		if c.Expect.Kind != nil && !validKinds[*c.Expect.Kind] {
			return fmt.Errorf("types[%d]: unknown kind %q", i, *c.Expect.Kind)
		}
	}

	for i, c := range s.Pointers {
		if c.Source == "" {
			return fmt.Errorf("pointers[%d]: source is required", i)
		}
		if c.Pointer == "" {
			return fmt.Errorf("pointers[%d]: pointer is required", i)
		}
		for _, card := range []*string{c.Expect.Cardinality, c.Expect.OutCardinality} {
			if card != nil && !validCardinalities[*card] {
				return fmt.Errorf("pointers[%d]: unknown cardinality %q", i, *card)
			}
		}
		if c.Expect.Descendants != nil && *c.Expect.Descendants < 0 {
			return fmt.Errorf("pointers[%d]: descendants must be non-negative", i)
		}
	}

	return nil
}

var validKinds = map[string]bool{
	KindScalar:   true,
	KindObject:   true,
	KindView:     true,
	KindArray:    true,
	KindTuple:    true,
	KindAny:      true,
	KindAnyTuple: true,
}

var validCardinalities = map[string]bool{
	"ONE":     true,
	"MANY":    true,
	"UNKNOWN": true,
}
