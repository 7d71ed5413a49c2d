package generate

import (
	"fmt"

	"midas/mir"
	"midas/report"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"
)

// virtualParamIndex returns the index of the receiver of an interface method:
// the parameter whose referend is the interface itself.
func virtualParamIndex(idef *mir.InterfaceDefinition, method *mir.Prototype) int {
	for i, param := range method.Params {
		if iref, ok := param.Referend.(*mir.InterfaceReferend); ok && iref.ID == idef.ID {
			return i
		}
	}

	report.ICE("method `%s` of `%s` has no receiver", method.Name, idef.Name)
	return -1
}

// methodFuncType returns the type of the itable entry for method.  The receiver
// is passed as an untyped pointer to the object.
func (g *Generator) methodFuncType(idef *mir.InterfaceDefinition, method *mir.Prototype) *types.FuncType {
	vindex := virtualParamIndex(idef, method)

	params := make([]types.Type, len(method.Params))
	for i, param := range method.Params {
		if i == vindex {
			params[i] = types.I8Ptr
		} else {
			params[i] = g.convType(param)
		}
	}

	return types.NewFunc(g.convType(method.Return), params...)
}

// genITables generates the itable of every edge in the program.  The method
// entries point directly at the struct's implementations which only differ
// from the entry type in the type of the receiver pointer.
func (g *Generator) genITables() {
	edges := g.prog.Edges()
	g.itables = make([]*ir.Global, len(edges))

	for i, edge := range edges {
		sid, iid := g.structID(edge.Struct), g.interfaceID(edge.Interface)
		idef := g.prog.Interface(iid)
		itableType := g.itableTypes[iid]

		entries := []constant.Constant{g.dropFuncs[sid]}
		for j, method := range idef.Methods {
			impl := g.funcs[edge.Methods[j].ID]
			if impl == nil {
				report.ICE("`%s` cannot implement `%s`", edge.Methods[j].Name, method.Name)
			}

			entries = append(entries, constant.NewBitCast(impl, itableType.Fields[j+1]))
		}

		g.itables[i] = g.mod.NewGlobalDef(
			fmt.Sprintf("%s.%s.itable", edge.Struct.Name, edge.Interface.Name),
			constant.NewStruct(itableType, entries...),
		)
		g.itables[i].Immutable = true
	}
}

// -----------------------------------------------------------------------------

// upcast translates converting a struct reference into an interface reference.
// Only heap objects can be referred to through an interface: an inline struct
// has no address to put in the reference.
func (g *Generator) upcast(fs *FunctionState, expr *mir.StructToInterfaceUpcast) Result {
	if !expr.SourceStructType.IsHeap() {
		report.ICE(
			"upcast of inline struct `%s` to interface `%s`",
			expr.SourceStruct.Name, expr.TargetInterface.Name,
		)
	}

	source := g.Translate(fs, expr.Source).Ref()

	sid, iid := g.structID(expr.SourceStruct), g.interfaceID(expr.TargetInterface)
	edgeIndex, ok := g.prog.EdgeIndex(sid, iid)
	if !ok {
		report.ICE("`%s` does not implement `%s`", expr.SourceStruct.Name, expr.TargetInterface.Name)
	}

	obj := fs.block.NewBitCast(source.LE, types.I8Ptr)
	fatRef := g.makeInterfaceRef(fs, iid, obj, g.itables[edgeIndex])

	// the interface reference takes over the struct reference
	return Yield(fatRef, mir.NewRef(expr.SourceStructType.Ownership, mir.Yonder, expr.TargetInterface))
}

// makeInterfaceRef builds a fat reference from an object pointer and an
// itable.
func (g *Generator) makeInterfaceRef(fs *FunctionState, iid mir.InterfaceID, obj, itable value.Value) value.Value {
	refType := g.interfaceRefTypes[iid]
	fatRef := fs.block.NewInsertValue(constant.NewUndef(refType), obj, 0)
	return fs.block.NewInsertValue(fatRef, itable, 1)
}

// loadMethod loads the itable entry at methodIndex out of a fat reference.
func (g *Generator) loadMethod(fs *FunctionState, iid mir.InterfaceID, fatRef value.Value, methodIndex int) value.Value {
	idef := g.prog.Interface(iid)
	if methodIndex < 0 || methodIndex >= len(idef.Methods) {
		report.ICE("`%s` has no method %d", idef.Name, methodIndex)
	}

	itableType := g.itableTypes[iid]
	itable := fs.block.NewExtractValue(fatRef, 1)

	// the drop function occupies the first entry
	slot := fs.block.NewGetElementPtr(itableType, itable, i32(0), i32(int64(methodIndex+1)))
	return fs.block.NewLoad(itableType.Fields[methodIndex+1], slot)
}

// interfaceCall translates a virtual call.  The full argument list, receiver
// included, is passed to the implementation with the receiver replaced by the
// object pointer inside the fat reference.
func (g *Generator) interfaceCall(fs *FunctionState, expr *mir.InterfaceCall) Result {
	iid := g.interfaceID(expr.Interface)
	if expr.VirtualParamIndex < 0 || expr.VirtualParamIndex >= len(expr.Args) {
		report.ICE("virtual parameter %d out of range for call through `%s`", expr.VirtualParamIndex, expr.Interface.Name)
	}

	args := values(g.TranslateList(fs, expr.Args))

	fatRef := args[expr.VirtualParamIndex]
	method := g.loadMethod(fs, iid, fatRef, expr.IndexInEdge)
	args[expr.VirtualParamIndex] = fs.block.NewExtractValue(fatRef, 0)

	return Yield(fs.block.NewCall(method, args...), expr.FunctionType.Return)
}

// functorMethod returns the single method of the interface a functor (an array
// generator or consumer) is called through.
func (g *Generator) functorMethod(functor *Ref) *mir.Prototype {
	iref, ok := functor.Type.Referend.(*mir.InterfaceReferend)
	if !ok {
		report.ICE("functor must be an interface reference: %s", functor.Type)
	}

	idef := g.prog.Interface(g.interfaceID(iref))
	if len(idef.Methods) == 0 || len(idef.Methods[0].Params) != 2 {
		report.ICE("`%s` cannot be called as a functor", idef.Name)
	}

	return idef.Methods[0]
}

// callFunctor calls the first method of a functor with the functor itself as
// the receiver and arg as the other argument.  The call consumes a reference to
// the functor.
func (g *Generator) callFunctor(fs *FunctionState, functor, arg *Ref) value.Value {
	method := g.functorMethod(functor)
	iid := g.interfaceID(functor.Type.Referend.(*mir.InterfaceReferend))
	vindex := virtualParamIndex(g.prog.Interface(iid), method)

	args := make([]value.Value, 2)
	args[vindex] = fs.block.NewExtractValue(functor.LE, 0)
	args[1-vindex] = arg.LE

	return fs.block.NewCall(g.loadMethod(fs, iid, functor.LE, 0), args...)
}
