package typeutils

import "github.com/roach88/typeref/internal/ir"

// IDPointerName is the short name of the identity pointer.
const IDPointerName = "std::id"

// IsScalar reports whether r references a scalar type.
func IsScalar(r ir.TypeRef) bool {
	t, ok := r.(*ir.SchemaTypeRef)
	return ok && t.IsScalar
}

// IsObject reports whether r references an object or view type: anything
// that is not a scalar, a collection or generic.
func IsObject(r ir.TypeRef) bool {
	return !IsScalar(r) && !IsCollection(r) && !IsGeneric(r)
}

// IsView reports whether r references a view.
func IsView(r ir.TypeRef) bool {
	t, ok := r.(*ir.SchemaTypeRef)
	return ok && t.IsView
}

// IsAbstract reports whether r references an abstract type.
func IsAbstract(r ir.TypeRef) bool {
	t, ok := r.(*ir.SchemaTypeRef)
	return ok && t.IsAbstract
}

// IsCollection reports whether r references an array or tuple.
func IsCollection(r ir.TypeRef) bool {
	c, ok := r.(*ir.CollectionTypeRef)
	return ok && c.Collection != ""
}

// IsArray reports whether r references an array.
func IsArray(r ir.TypeRef) bool {
	c, ok := r.(*ir.CollectionTypeRef)
	return ok && c.Collection == ir.CollectionArray
}

// IsTuple reports whether r references a tuple.
func IsTuple(r ir.TypeRef) bool {
	c, ok := r.(*ir.CollectionTypeRef)
	return ok && c.Collection == ir.CollectionTuple
}

// IsAny reports whether r is the anytype placeholder.
func IsAny(r ir.TypeRef) bool {
	_, ok := r.(*ir.AnyTypeRef)
	return ok
}

// IsAnyTuple reports whether r is the anytuple placeholder.
func IsAnyTuple(r ir.TypeRef) bool {
	_, ok := r.(*ir.AnyTupleRef)
	return ok
}

// IsGeneric reports whether r is a placeholder or a collection containing
// one at any depth.
func IsGeneric(r ir.TypeRef) bool {
	if c, ok := r.(*ir.CollectionTypeRef); ok {
		for _, st := range c.Subtypes {
			if IsGeneric(st) {
				return true
			}
		}
		return false
	}
	return IsAny(r) || IsAnyTuple(r)
}

// IsIDPtrRef reports whether r references the identity pointer.
func IsIDPtrRef(r ir.PtrRef) bool {
	return r.Base().ShortName.String() == IDPointerName
}

// IsInboundPtrRef reports whether r is traversed in reverse.
func IsInboundPtrRef(r ir.PtrRef) bool {
	return r.Base().Direction == ir.Inbound
}

// IsComputablePtrRef reports whether r references a computed pointer.
func IsComputablePtrRef(r ir.PtrRef) bool {
	return r.Base().DerivedFromPtr != nil
}
