package ir

import (
	"fmt"
	"strings"
)

// QualName is a module-qualified schema name such as "std::int64".
type QualName struct {
	Module string `json:"module"`
	Name   string `json:"name"`
}

// NewQualName creates a QualName.
func NewQualName(module, name string) QualName {
	return QualName{Module: module, Name: name}
}

// ParseQualName splits "module::name". A name without a module separator
// yields an empty Module.
func ParseQualName(s string) QualName {
	if i := strings.LastIndex(s, "::"); i >= 0 {
		return QualName{Module: s[:i], Name: s[i+2:]}
	}
	return QualName{Name: s}
}

// String renders the name as "module::name".
func (n QualName) String() string {
	if n.Module == "" {
		return n.Name
	}
	return n.Module + "::" + n.Name
}

// IsZero reports whether the name is unset.
func (n QualName) IsZero() bool {
	return n.Module == "" && n.Name == ""
}

// Direction is the traversal direction across a pointer.
type Direction int

const (
	// Outbound is forward navigation, source to target.
	Outbound Direction = iota
	// Inbound is reverse navigation, target to source.
	Inbound
)

// String returns ">" for Outbound and "<" for Inbound.
func (d Direction) String() string {
	switch d {
	case Outbound:
		return ">"
	case Inbound:
		return "<"
	default:
		return fmt.Sprintf("Direction(%d)", int(d))
	}
}

// ParseDirection parses ">" / "outbound" and "<" / "inbound".
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(s) {
	case ">", "outbound", "":
		return Outbound, nil
	case "<", "inbound":
		return Inbound, nil
	default:
		return Outbound, fmt.Errorf("invalid direction %q", s)
	}
}

// Cardinality is the multiplicity of values reachable through a pointer.
// The zero value means the cardinality has not been inferred yet.
type Cardinality int

const (
	CardinalityUnknown Cardinality = iota
	CardinalityOne
	CardinalityMany
)

// String returns "ONE", "MANY" or "UNKNOWN".
func (c Cardinality) String() string {
	switch c {
	case CardinalityOne:
		return "ONE"
	case CardinalityMany:
		return "MANY"
	default:
		return "UNKNOWN"
	}
}

// IsKnown reports whether the cardinality has been inferred.
func (c Cardinality) IsKnown() bool {
	return c == CardinalityOne || c == CardinalityMany
}

// ParseCardinality parses "one" / "many" (case-insensitive). An empty string
// or "unknown" yields CardinalityUnknown.
func ParseCardinality(s string) (Cardinality, error) {
	switch strings.ToLower(s) {
	case "", "unknown":
		return CardinalityUnknown, nil
	case "one":
		return CardinalityOne, nil
	case "many":
		return CardinalityMany, nil
	default:
		return CardinalityUnknown, fmt.Errorf("invalid cardinality %q", s)
	}
}

// CollectionKind tags collection type references.
type CollectionKind string

const (
	CollectionArray CollectionKind = "array"
	CollectionTuple CollectionKind = "tuple"
)
