package testutil

import (
	"github.com/roach88/typeref/internal/ir"
	"github.com/roach88/typeref/internal/schema"
)

// SchemaBuilder returns a builder preloaded with a small schema shaped like
// a real database schema:
//
//	std::anyscalar (abstract)
//	  std::anyint (abstract)
//	    std::int64
//	      default::myint
//	  std::str
//	  std::uuid
//	std::bool
//
//	std::BaseObject (abstract)    .id -> std::uuid
//	  std::Object (abstract)
//	    default::Named (abstract) .name -> std::str
//	    default::User             .friends, .group, .scores, .pair, .name_upper, .display
//	      default::Admin          .friends (override), .level
//	      default::Moderator      .friends (material: Admin.friends)
//	    default::Group            .members
//
//	default::Principal = User | Group
//	default::Staff     = Admin | Moderator
//	default::UserView  view of default::User
//
// Callers may add further definitions before building.
func SchemaBuilder() *schema.SnapshotBuilder {
	return schema.NewSnapshotBuilder().
		Module("std").
		Module("default").
		Scalar("std::anyscalar", schema.ScalarDef{Abstract: true}).
		Scalar("std::anyint", schema.ScalarDef{Abstract: true, Bases: []string{"std::anyscalar"}}).
		Scalar("std::int64", schema.ScalarDef{Bases: []string{"std::anyint"}}).
		Scalar("default::myint", schema.ScalarDef{Bases: []string{"std::int64"}}).
		Scalar("std::str", schema.ScalarDef{Bases: []string{"std::anyscalar"}}).
		Scalar("std::uuid", schema.ScalarDef{Bases: []string{"std::anyscalar"}}).
		Scalar("std::bool", schema.ScalarDef{}).
		Object("std::BaseObject", schema.ObjectDef{Abstract: true}).
		Object("std::Object", schema.ObjectDef{Abstract: true, Bases: []string{"std::BaseObject"}}).
		Object("default::Named", schema.ObjectDef{Abstract: true, Bases: []string{"std::Object"}}).
		Object("default::User", schema.ObjectDef{Bases: []string{"std::Object", "default::Named"}}).
		Object("default::Admin", schema.ObjectDef{Bases: []string{"default::User"}}).
		Object("default::Moderator", schema.ObjectDef{Bases: []string{"default::User"}}).
		Object("default::Group", schema.ObjectDef{Bases: []string{"std::Object"}}).
		Union("default::Principal", schema.UnionDef{Members: []string{"default::User", "default::Group"}}).
		Union("default::Staff", schema.UnionDef{Members: []string{"default::Admin", "default::Moderator"}}).
		View("default::UserView", schema.ViewDef{Material: "default::User"}).
		Pointer("std::BaseObject", "id", schema.PointerDef{
			Target: "std::uuid", Cardinality: ir.CardinalityOne, Required: true, Exclusive: true,
		}).
		Pointer("default::Named", "name", schema.PointerDef{
			Target: "std::str", Cardinality: ir.CardinalityOne, Required: true,
		}).
		Pointer("default::User", "friends", schema.PointerDef{
			Target: "default::User", Cardinality: ir.CardinalityMany, Properties: true,
		}).
		Pointer("default::User", "group", schema.PointerDef{
			Target: "default::Group", Cardinality: ir.CardinalityOne,
		}).
		Pointer("default::User", "scores", schema.PointerDef{
			Target: "array<std::int64>", Cardinality: ir.CardinalityOne,
		}).
		Pointer("default::User", "pair", schema.PointerDef{
			Target: "tuple<a: std::int64, b: std::str>", Cardinality: ir.CardinalityOne,
		}).
		Pointer("default::User", "name_upper", schema.PointerDef{
			Target: "std::str", Cardinality: ir.CardinalityOne, DerivedFrom: "default::Named.name",
		}).
		Pointer("default::User", "display", schema.PointerDef{
			Target: "std::str", Cardinality: ir.CardinalityOne, DerivedFrom: "default::User.name_upper",
		}).
		Pointer("default::Admin", "friends", schema.PointerDef{
			Target: "default::User", Cardinality: ir.CardinalityMany,
		}).
		Pointer("default::Admin", "level", schema.PointerDef{
			Target: "std::int64", Cardinality: ir.CardinalityOne,
		}).
		Pointer("default::Moderator", "friends", schema.PointerDef{
			Target: "default::User", Cardinality: ir.CardinalityMany, Material: "default::Admin.friends",
		}).
		Pointer("default::Group", "members", schema.PointerDef{
			Target: "default::User", Cardinality: ir.CardinalityMany, Exclusive: true,
		}).
		Collection("array<std::int64>").
		Collection("tuple<std::int64, std::str>").
		Collection("tuple<a: std::int64, b: std::str>")
}

// Snapshot builds the fixture schema. It panics if the fixture is invalid.
func Snapshot() *schema.Snapshot {
	return SchemaBuilder().MustBuild()
}
