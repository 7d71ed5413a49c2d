package generate

import (
	"midas/mir"
	"midas/report"

	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/value"
)

// Translate translates an expression into the current block of fs.  It returns
// the value of the expression or the divergence marker.
func (g *Generator) Translate(fs *FunctionState, expr mir.Expr) Result {
	if fs.terminated() {
		report.ICE("unreachable %s after divergent expression", mir.KindName(expr))
	}

	if g.opts.Flares {
		g.flare(fs, expr)
	}

	return mir.Visit[Result](expr, translator{g: g, fs: fs})
}

// TranslateList translates a list of expressions in order and returns one
// result per expression.
func (g *Generator) TranslateList(fs *FunctionState, exprs []mir.Expr) []Result {
	results := make([]Result, len(exprs))
	for i, expr := range exprs {
		results[i] = g.Translate(fs, expr)
	}

	return results
}

// values extracts the LLVM values of a list of results, none of which may be
// divergent.
func values(results []Result) []value.Value {
	vals := make([]value.Value, len(results))
	for i, result := range results {
		vals[i] = result.Ref().LE
	}

	return vals
}

// -----------------------------------------------------------------------------

// translator dispatches each expression kind to the generator.  It is the only
// visitor of MIR expressions in the generator.
type translator struct {
	g  *Generator
	fs *FunctionState
}

func (t translator) ConstantI64(expr *mir.ConstantI64) Result {
	return Yield(i64(expr.Value), mir.IntRef)
}

func (t translator) ConstantBool(expr *mir.ConstantBool) Result {
	return Yield(constant.NewBool(expr.Value), mir.BoolRef)
}

func (t translator) ConstantStr(expr *mir.ConstantStr) Result {
	return t.g.constantStr(t.fs, expr.Value)
}

func (t translator) Argument(expr *mir.Argument) Result {
	return Yield(t.fs.param(expr.Index), expr.Type)
}

func (t translator) Discard(expr *mir.Discard) Result {
	source := t.g.Translate(t.fs, expr.Source).Ref()
	t.g.discard(t.fs, &Ref{LE: source.LE, Type: expr.SourceType})
	return t.g.voidResult()
}

func (t translator) Return(expr *mir.Return) Result {
	source := t.g.Translate(t.fs, expr.Source).Ref()
	t.fs.block.NewRet(source.LE)
	return Never()
}

func (t translator) Stackify(expr *mir.Stackify) Result {
	return t.g.stackify(t.fs, expr)
}

func (t translator) Unstackify(expr *mir.Unstackify) Result {
	return t.g.unstackify(t.fs, expr)
}

func (t translator) LocalLoad(expr *mir.LocalLoad) Result {
	return t.g.localLoad(t.fs, expr)
}

func (t translator) LocalStore(expr *mir.LocalStore) Result {
	return t.g.localStore(t.fs, expr)
}

func (t translator) Call(expr *mir.Call) Result {
	// arguments move into the callee
	args := values(t.g.TranslateList(t.fs, expr.Args))
	return Yield(t.fs.block.NewCall(t.g.funcFor(expr.Function), args...), expr.Function.Return)
}

func (t translator) ExternCall(expr *mir.ExternCall) Result {
	return t.g.externCall(t.fs, expr)
}

func (t translator) InterfaceCall(expr *mir.InterfaceCall) Result {
	return t.g.interfaceCall(t.fs, expr)
}

func (t translator) NewStruct(expr *mir.NewStruct) Result {
	return t.g.newStruct(t.fs, expr)
}

func (t translator) Block(expr *mir.Block) Result {
	return t.g.genBlock(t.fs, expr)
}

func (t translator) If(expr *mir.If) Result {
	return t.g.genIf(t.fs, expr)
}

func (t translator) While(expr *mir.While) Result {
	return t.g.genWhile(t.fs, expr)
}

func (t translator) Destroy(expr *mir.Destroy) Result {
	return t.g.destroyStruct(t.fs, expr)
}

func (t translator) MemberLoad(expr *mir.MemberLoad) Result {
	return t.g.memberLoad(t.fs, expr)
}

func (t translator) MemberStore(expr *mir.MemberStore) Result {
	return t.g.memberStore(t.fs, expr)
}

func (t translator) StructToInterfaceUpcast(expr *mir.StructToInterfaceUpcast) Result {
	return t.g.upcast(t.fs, expr)
}

func (t translator) KnownSizeArrayLoad(expr *mir.KnownSizeArrayLoad) Result {
	return t.g.loadElement(t.fs, expr.Array, expr.ArrayType, expr.Index)
}

func (t translator) UnknownSizeArrayLoad(expr *mir.UnknownSizeArrayLoad) Result {
	return t.g.loadElement(t.fs, expr.Array, expr.ArrayType, expr.Index)
}

func (t translator) ArrayLength(expr *mir.ArrayLength) Result {
	sc := t.g.openScope(t.fs)
	defer sc.close()

	array := sc.take(t.g.Translate(t.fs, expr.Array))
	array.Type = expr.ArrayType
	return Yield(t.g.arrayLength(t.fs, array), mir.IntRef)
}

func (t translator) NewArrayFromValues(expr *mir.NewArrayFromValues) Result {
	return t.g.newKnownSizeArray(t.fs, expr)
}

func (t translator) ConstructUnknownSizeArray(expr *mir.ConstructUnknownSizeArray) Result {
	return t.g.constructUnknownSizeArray(t.fs, expr)
}

func (t translator) DestroyKnownSizeArrayIntoFunction(expr *mir.DestroyKnownSizeArrayIntoFunction) Result {
	return t.g.destroyArrayInto(t.fs, expr.Array, expr.ArrayType, expr.Consumer, expr.ConsumerType)
}

func (t translator) DestroyUnknownSizeArray(expr *mir.DestroyUnknownSizeArray) Result {
	return t.g.destroyArrayInto(t.fs, expr.Array, expr.ArrayType, expr.Consumer, expr.ConsumerType)
}
