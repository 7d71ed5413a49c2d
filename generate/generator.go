package generate

import (
	"fmt"

	"midas/common"
	"midas/mir"
	"midas/report"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"
)

// BoundsCheck selects how array indexing is guarded.
type BoundsCheck int

// Enumeration of bounds checking policies.
const (
	// BoundsTrap emits a range check before every element access which traps
	// when the index is negative or not less than the length.
	BoundsTrap BoundsCheck = iota

	// BoundsUnchecked trusts the index completely.
	BoundsUnchecked
)

// Options configures a Generator.
type Options struct {
	BoundsCheck BoundsCheck

	// Flares makes the generated code print the kind of every expression as it
	// is evaluated.  It is a debugging aid for tracking down bad lowering.
	Flares bool
}

// Generator is responsible for converting a resolved MIR program into LLVM IR.
// The whole program is converted into a single LLVM module.  Generation is
// assumed to always succeed: any inconsistency in the input is an internal
// compiler error.
type Generator struct {
	// prog is the program metadata registry.  It is only read.
	prog *mir.Program

	opts Options

	// mod is the LLVM module being generated.
	mod *ir.Module

	// controlBlockType is the header of every heap-resident object.
	controlBlockType *types.StructType

	// strType is the heap layout of a string: control block, length, bytes.
	strType *types.StructType

	// voidType is the (empty) type of void values.
	voidType *types.StructType

	// The following tables are indexed by the resolved IDs of the program.
	innerStructTypes   []*types.StructType // by StructID
	wrapperStructTypes []*types.StructType // by StructID
	interfaceRefTypes  []*types.StructType // by InterfaceID
	itableTypes        []*types.StructType // by InterfaceID
	dropFuncs          []*ir.Func          // by StructID
	funcs              []*ir.Func          // by FunctionID
	itables            []*ir.Global        // by edge index

	// arrayTypes caches the heap layouts of array referends by their string
	// representation.
	arrayTypes map[string]*types.StructType

	// rt holds the declarations of the runtime functions.
	rt runtimeFuncs

	// strLits interns the character data of string literals.
	strLits map[string]*ir.Global

	// globalCounter is a counter used to generate anonymous globals such as
	// those for interned strings and flares.
	globalCounter int
}

// runtimeFuncs are the functions provided by the native runtime.
type runtimeFuncs struct {
	malloc, free, trap, strlen                  *ir.Func
	initStr, addStr, eqStr, printStr, intToCStr *ir.Func
}

// NewGenerator creates a new generator for the given program.  The program
// must already be resolved.
func NewGenerator(prog *mir.Program, opts Options) *Generator {
	if !prog.Resolved() {
		report.ICE("generator created for an unresolved program")
	}

	return &Generator{
		prog:       prog,
		opts:       opts,
		mod:        ir.NewModule(),
		arrayTypes: make(map[string]*types.StructType),
		strLits:    make(map[string]*ir.Global),
	}
}

// Generate runs the generation algorithm for the whole program and returns
// the completed module.
func (g *Generator) Generate() *ir.Module {
	g.declareRuntime()
	g.declareTypes()
	g.declareFuncs()
	g.genDropFuncs()
	g.genITables()

	for _, fn := range g.prog.Functions {
		g.genFuncBody(fn)
	}

	return g.mod
}

// -----------------------------------------------------------------------------

// declareRuntime declares all the functions the native runtime provides.
func (g *Generator) declareRuntime() {
	i8Ptr := types.I8Ptr

	g.rt.malloc = g.mod.NewFunc(common.RTMalloc, i8Ptr, ir.NewParam("size", types.I64))
	g.rt.free = g.mod.NewFunc(common.RTFree, types.Void, ir.NewParam("ptr", i8Ptr))
	g.rt.trap = g.mod.NewFunc(common.RTTrap, types.Void)
	g.rt.strlen = g.mod.NewFunc("strlen", types.I64, ir.NewParam("s", i8Ptr))

	// The string library follows the C ABI of the runtime: lengths and the
	// integer being formatted are C `int`s.
	g.rt.initStr = g.mod.NewFunc(
		common.RTInitStr, types.Void,
		ir.NewParam("newStr", i8Ptr), ir.NewParam("chars", i8Ptr), ir.NewParam("len", types.I32),
	)
	g.rt.addStr = g.mod.NewFunc(
		common.RTAddStr, types.Void,
		ir.NewParam("a", i8Ptr), ir.NewParam("b", i8Ptr), ir.NewParam("dest", i8Ptr),
	)
	g.rt.eqStr = g.mod.NewFunc(common.RTEqStr, types.I8, ir.NewParam("a", i8Ptr), ir.NewParam("b", i8Ptr))
	g.rt.printStr = g.mod.NewFunc(common.RTPrintStr, types.Void, ir.NewParam("a", i8Ptr))
	g.rt.intToCStr = g.mod.NewFunc(
		common.RTIntToCStr, types.Void,
		ir.NewParam("n", types.I32), ir.NewParam("dest", i8Ptr), ir.NewParam("destSize", types.I32),
	)
}

// declareTypes creates the named LLVM types for every struct and interface in
// the program.  All names are created before any bodies are filled in so that
// definitions can refer to each other in any order.
func (g *Generator) declareTypes() {
	g.controlBlockType = types.NewStruct(types.I64)
	g.mod.NewTypeDef("__ControlBlock", g.controlBlockType)

	g.strType = types.NewStruct(g.controlBlockType, types.I64, types.NewArray(0, types.I8))
	g.mod.NewTypeDef("__Str", g.strType)

	g.voidType = types.NewStruct()
	g.mod.NewTypeDef("__Void", g.voidType)

	g.innerStructTypes = make([]*types.StructType, len(g.prog.Structs))
	g.wrapperStructTypes = make([]*types.StructType, len(g.prog.Structs))
	for i, sdef := range g.prog.Structs {
		g.innerStructTypes[i] = types.NewStruct()
		g.mod.NewTypeDef(sdef.Name+".inline", g.innerStructTypes[i])

		g.wrapperStructTypes[i] = types.NewStruct()
		g.mod.NewTypeDef(sdef.Name, g.wrapperStructTypes[i])
	}

	g.interfaceRefTypes = make([]*types.StructType, len(g.prog.Interfaces))
	g.itableTypes = make([]*types.StructType, len(g.prog.Interfaces))
	for i, idef := range g.prog.Interfaces {
		g.itableTypes[i] = types.NewStruct()
		g.mod.NewTypeDef(idef.Name+".itable", g.itableTypes[i])

		g.interfaceRefTypes[i] = types.NewStruct(types.I8Ptr, types.NewPointer(g.itableTypes[i]))
		g.mod.NewTypeDef(idef.Name+".ref", g.interfaceRefTypes[i])
	}

	// fill in the struct bodies now that every name exists
	for i, sdef := range g.prog.Structs {
		fields := make([]types.Type, len(sdef.Members))
		for j, member := range sdef.Members {
			fields[j] = g.convType(member.Type)
		}

		g.innerStructTypes[i].Fields = fields
		g.wrapperStructTypes[i].Fields = []types.Type{g.controlBlockType, g.innerStructTypes[i]}
	}

	// the itable of an interface starts with the drop function of the
	// concrete struct followed by one entry per method
	dropType := types.NewPointer(types.NewFunc(types.Void, types.I8Ptr))
	for i, idef := range g.prog.Interfaces {
		fields := []types.Type{dropType}
		for _, method := range idef.Methods {
			fields = append(fields, types.NewPointer(g.methodFuncType(idef, method)))
		}

		g.itableTypes[i].Fields = fields
	}
}

// declareFuncs declares every function and extern in the program so that
// calls can refer to them before their bodies are generated.
func (g *Generator) declareFuncs() {
	g.funcs = make([]*ir.Func, len(g.prog.Functions)+len(g.prog.Externs))

	for _, fn := range g.prog.Functions {
		g.funcs[fn.Prototype.ID] = g.declareFunc(fn.Prototype)
	}

	for _, ext := range g.prog.Externs {
		// builtins are lowered inline and so don't need a declaration
		if _, ok := builtinExterns[ext.Name]; ok {
			continue
		}

		llFunc := g.declareFunc(ext)
		llFunc.Linkage = enum.LinkageExternal
		g.funcs[ext.ID] = llFunc
	}
}

// declareFunc declares a single function from its prototype.
func (g *Generator) declareFunc(proto *mir.Prototype) *ir.Func {
	params := make([]*ir.Param, len(proto.Params))
	for i, param := range proto.Params {
		params[i] = ir.NewParam(fmt.Sprintf("arg%d", i), g.convType(param))
	}

	return g.mod.NewFunc(proto.Name, g.convType(proto.Return), params...)
}

// genFuncBody generates the body of a function.
func (g *Generator) genFuncBody(fn *mir.Function) {
	llFunc := g.funcs[fn.Prototype.ID]

	// Midas does not use exceptions in any form and thus all functions are
	// marked `nounwind`
	llFunc.FuncAttrs = append(llFunc.FuncAttrs, enum.FuncAttrNoUnwind)

	fs := newFunctionState(llFunc, fn.Prototype)
	result := g.Translate(fs, fn.Body)

	// the body already returned on every path
	if fs.terminated() {
		return
	}

	if result.IsNever() {
		if _, ok := fn.Prototype.Return.Referend.(*mir.Void); ok {
			fs.block.NewRet(g.voidValue())
			return
		}

		report.ICE("body of `%s` ends without a value", fn.Prototype.Name)
	}

	fs.block.NewRet(result.Ref().LE)
}
