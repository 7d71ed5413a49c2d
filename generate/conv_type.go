package generate

import (
	"midas/mir"
	"midas/report"

	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"
)

// convType converts a MIR reference type into the LLVM type of values of that
// reference.
func (g *Generator) convType(ref *mir.Reference) types.Type {
	switch v := ref.Referend.(type) {
	case *mir.Int:
		return types.I64
	case *mir.Bool:
		return types.I1
	case *mir.Void:
		return g.voidType
	case *mir.Str:
		return types.NewPointer(g.strType)
	case *mir.StructReferend:
		if ref.Location == mir.Inline {
			return g.innerStructTypes[g.structID(v)]
		}

		return types.NewPointer(g.wrapperStructTypes[g.structID(v)])
	case *mir.InterfaceReferend:
		// interface references are always fat: the object address is inside
		return g.interfaceRefTypes[g.interfaceID(v)]
	case *mir.KnownSizeArrayT, *mir.UnknownSizeArrayT:
		if ref.Location == mir.Inline {
			report.ICE("inline array representation is not supported: %s", ref)
		}

		return types.NewPointer(g.arrayWrapperType(v))
	}

	report.ICE("unhandled referend: %T", ref.Referend)
	return nil
}

// arrayWrapperType returns the heap layout of an array referend:
// known size arrays are `{cb, [N x T]}` and unknown size arrays are
// `{cb, i64 len, [0 x T]}`.
func (g *Generator) arrayWrapperType(referend mir.Referend) *types.StructType {
	key := referend.String()
	if typ, ok := g.arrayTypes[key]; ok {
		return typ
	}

	var typ *types.StructType
	switch v := referend.(type) {
	case *mir.KnownSizeArrayT:
		typ = types.NewStruct(g.controlBlockType, types.NewArray(uint64(v.Size), g.convType(v.Elem)))
	case *mir.UnknownSizeArrayT:
		typ = types.NewStruct(g.controlBlockType, types.I64, types.NewArray(0, g.convType(v.Elem)))
	default:
		report.ICE("%s is not an array", referend)
	}

	g.arrayTypes[key] = typ
	return typ
}

// structID returns the resolved ID of a struct referend.
func (g *Generator) structID(sr *mir.StructReferend) mir.StructID {
	if sr.ID < 0 || int(sr.ID) >= len(g.prog.Structs) {
		report.ICE("unresolved struct `%s`", sr.Name)
	}

	return sr.ID
}

// interfaceID returns the resolved ID of an interface referend.
func (g *Generator) interfaceID(iref *mir.InterfaceReferend) mir.InterfaceID {
	if iref.ID < 0 || int(iref.ID) >= len(g.prog.Interfaces) {
		report.ICE("unresolved interface `%s`", iref.Name)
	}

	return iref.ID
}

// -----------------------------------------------------------------------------

// i32 creates an i32 constant: used for struct field indices.
func i32(n int64) *constant.Int {
	return constant.NewInt(types.I32, n)
}

// i64 creates an i64 constant.
func i64(n int64) *constant.Int {
	return constant.NewInt(types.I64, n)
}

// voidValue returns the one value of the void type.
func (g *Generator) voidValue() value.Value {
	return constant.NewZeroInitializer(g.voidType)
}

// voidResult returns a result holding the void value.
func (g *Generator) voidResult() Result {
	return Yield(g.voidValue(), mir.VoidRef)
}

// sizeOf returns the allocation size of typ as a constant expression: the
// address of the second element of a typ array starting at null.
func sizeOf(typ types.Type) constant.Constant {
	null := constant.NewNull(types.NewPointer(typ))
	return constant.NewPtrToInt(constant.NewGetElementPtr(typ, null, i32(1)), types.I64)
}

// elemPtrType returns the element type of a pointer typed value.
func elemPtrType(v value.Value) types.Type {
	return v.Type().(*types.PointerType).ElemType
}
