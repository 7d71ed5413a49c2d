package mir

import (
	"fmt"

	"midas/report"
)

// Visitor has one method per expression kind.  Adding a kind to MIR means
// adding a method here, which breaks the build of every visitor until it
// handles the new kind.
type Visitor[R any] interface {
	ConstantI64(*ConstantI64) R
	ConstantBool(*ConstantBool) R
	ConstantStr(*ConstantStr) R
	Argument(*Argument) R
	Discard(*Discard) R
	Return(*Return) R
	Stackify(*Stackify) R
	Unstackify(*Unstackify) R
	LocalLoad(*LocalLoad) R
	LocalStore(*LocalStore) R
	Call(*Call) R
	ExternCall(*ExternCall) R
	InterfaceCall(*InterfaceCall) R
	NewStruct(*NewStruct) R
	Block(*Block) R
	If(*If) R
	While(*While) R
	Destroy(*Destroy) R
	MemberLoad(*MemberLoad) R
	MemberStore(*MemberStore) R
	StructToInterfaceUpcast(*StructToInterfaceUpcast) R
	KnownSizeArrayLoad(*KnownSizeArrayLoad) R
	UnknownSizeArrayLoad(*UnknownSizeArrayLoad) R
	ArrayLength(*ArrayLength) R
	NewArrayFromValues(*NewArrayFromValues) R
	ConstructUnknownSizeArray(*ConstructUnknownSizeArray) R
	DestroyKnownSizeArrayIntoFunction(*DestroyKnownSizeArrayIntoFunction) R
	DestroyUnknownSizeArray(*DestroyUnknownSizeArray) R
}

// Visit dispatches an expression to the matching visitor method.
func Visit[R any](expr Expr, v Visitor[R]) R {
	switch e := expr.(type) {
	case *ConstantI64:
		return v.ConstantI64(e)
	case *ConstantBool:
		return v.ConstantBool(e)
	case *ConstantStr:
		return v.ConstantStr(e)
	case *Argument:
		return v.Argument(e)
	case *Discard:
		return v.Discard(e)
	case *Return:
		return v.Return(e)
	case *Stackify:
		return v.Stackify(e)
	case *Unstackify:
		return v.Unstackify(e)
	case *LocalLoad:
		return v.LocalLoad(e)
	case *LocalStore:
		return v.LocalStore(e)
	case *Call:
		return v.Call(e)
	case *ExternCall:
		return v.ExternCall(e)
	case *InterfaceCall:
		return v.InterfaceCall(e)
	case *NewStruct:
		return v.NewStruct(e)
	case *Block:
		return v.Block(e)
	case *If:
		return v.If(e)
	case *While:
		return v.While(e)
	case *Destroy:
		return v.Destroy(e)
	case *MemberLoad:
		return v.MemberLoad(e)
	case *MemberStore:
		return v.MemberStore(e)
	case *StructToInterfaceUpcast:
		return v.StructToInterfaceUpcast(e)
	case *KnownSizeArrayLoad:
		return v.KnownSizeArrayLoad(e)
	case *UnknownSizeArrayLoad:
		return v.UnknownSizeArrayLoad(e)
	case *ArrayLength:
		return v.ArrayLength(e)
	case *NewArrayFromValues:
		return v.NewArrayFromValues(e)
	case *ConstructUnknownSizeArray:
		return v.ConstructUnknownSizeArray(e)
	case *DestroyKnownSizeArrayIntoFunction:
		return v.DestroyKnownSizeArrayIntoFunction(e)
	case *DestroyUnknownSizeArray:
		return v.DestroyUnknownSizeArray(e)
	}

	// Expr is sealed so this is only reachable with a nil node.
	report.ICE("unrecognized expression kind: %T", expr)
	var zero R
	return zero
}

// KindName returns the name of an expression's kind, eg. "MemberLoad".
func KindName(expr Expr) string {
	name := fmt.Sprintf("%T", expr)
	for i := len(name) - 1; i >= 0; i-- {
		if name[i] == '.' {
			return name[i+1:]
		}
	}

	return name
}
