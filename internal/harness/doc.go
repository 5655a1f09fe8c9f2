// Package harness provides conformance testing for reference builders.
//
// The harness compiles a CUE schema directory, builds type and pointer
// references for the cases a scenario lists, resolves each reference back
// into the schema, and checks the observed properties against the
// scenario's expectations.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	schema: ../../testdata/schema
//	types:
//	  - expr: default::Principal
//	    expect:
//	      kind: object
//	      abstract: true
//	      children: [default::User, default::Group]
//	      common_parent: std::Object
//	      roundtrip: true
//	  - expr: "tuple<a: std::int64, b: std::str>"
//	    expect:
//	      elements: [a, b]
//	pointers:
//	  - source: default::User
//	    pointer: group
//	    inbound: true
//	    expect:
//	      source: default::Group
//	      target: default::User
//	      cardinality: MANY
//
// Expectations are subset matches: only listed properties are checked. An
// empty string expects the property to be absent.
//
// # Deterministic Reports
//
// Every case contributes its observed properties to a text report in
// scenario order. Collections of references that are ordered by content key
// in the IR (virtual children, descendant pointers) are listed by name, so
// the report does not depend on hashing and can be compared with a golden
// file.
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/hierarchy.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.Run(scenario)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if !result.Pass {
//	    for _, msg := range result.Errors {
//	        log.Println(msg)
//	    }
//	}
package harness
