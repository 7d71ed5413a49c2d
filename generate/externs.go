package generate

import (
	"midas/mir"
	"midas/report"

	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/value"
)

// builtinFunc lowers a builtin extern applied to already translated arguments.
type builtinFunc struct {
	arity int
	gen   func(g *Generator, fs *FunctionState, args []*Ref) Result
}

// builtinExterns are the externs which are lowered inline rather than called.
var builtinExterns map[string]builtinFunc

func init() {
	builtinExterns = map[string]builtinFunc{
		"__addIntInt":          intBinop(func(fs *FunctionState, a, b value.Value) value.Value { return fs.block.NewAdd(a, b) }),
		"__subIntInt":          intBinop(func(fs *FunctionState, a, b value.Value) value.Value { return fs.block.NewSub(a, b) }),
		"__multiplyIntInt":     intBinop(func(fs *FunctionState, a, b value.Value) value.Value { return fs.block.NewMul(a, b) }),
		"__divideIntInt":       intBinop(func(fs *FunctionState, a, b value.Value) value.Value { return fs.block.NewSDiv(a, b) }),
		"__modIntInt":          intBinop(func(fs *FunctionState, a, b value.Value) value.Value { return fs.block.NewSRem(a, b) }),
		"__eqIntInt":           comparison(enum.IPredEQ),
		"__lessThanInt":        comparison(enum.IPredSLT),
		"__lessThanOrEqInt":    comparison(enum.IPredSLE),
		"__greaterThanInt":     comparison(enum.IPredSGT),
		"__greaterThanOrEqInt": comparison(enum.IPredSGE),
		"__eqBoolBool":         comparison(enum.IPredEQ),
		"__and":                boolBinop(func(fs *FunctionState, a, b value.Value) value.Value { return fs.block.NewAnd(a, b) }),
		"__or":                 boolBinop(func(fs *FunctionState, a, b value.Value) value.Value { return fs.block.NewOr(a, b) }),
		"__not": {1, func(g *Generator, fs *FunctionState, args []*Ref) Result {
			return Yield(fs.block.NewXor(args[0].LE, constant.True), mir.BoolRef)
		}},
		"__negateInt": {1, func(g *Generator, fs *FunctionState, args []*Ref) Result {
			return Yield(fs.block.NewSub(i64(0), args[0].LE), mir.IntRef)
		}},
		"__addStrStr":  {2, (*Generator).genAddStr},
		"__eqStrStr":   {2, (*Generator).genEqStr},
		"__print":      {1, (*Generator).genPrint},
		"__castIntStr": {1, (*Generator).genCastIntStr},
		"__strLength":  {1, (*Generator).genStrLength},
	}
}

func intBinop(op func(fs *FunctionState, a, b value.Value) value.Value) builtinFunc {
	return builtinFunc{2, func(g *Generator, fs *FunctionState, args []*Ref) Result {
		return Yield(op(fs, args[0].LE, args[1].LE), mir.IntRef)
	}}
}

func boolBinop(op func(fs *FunctionState, a, b value.Value) value.Value) builtinFunc {
	return builtinFunc{2, func(g *Generator, fs *FunctionState, args []*Ref) Result {
		return Yield(op(fs, args[0].LE, args[1].LE), mir.BoolRef)
	}}
}

func comparison(pred enum.IPred) builtinFunc {
	return builtinFunc{2, func(g *Generator, fs *FunctionState, args []*Ref) Result {
		return Yield(fs.block.NewICmp(pred, args[0].LE, args[1].LE), mir.BoolRef)
	}}
}

// externCall translates a call to an extern.  Builtins are lowered inline and
// everything else is called through its declaration.
func (g *Generator) externCall(fs *FunctionState, expr *mir.ExternCall) Result {
	results := g.TranslateList(fs, expr.Args)

	if builtin, ok := builtinExterns[expr.Function.Name]; ok {
		if len(results) != builtin.arity || len(expr.Function.Params) != builtin.arity {
			report.ICE("builtin `%s` takes %d arguments not %d", expr.Function.Name, builtin.arity, len(results))
		}

		args := make([]*Ref, len(results))
		for i, result := range results {
			args[i] = &Ref{LE: result.Ref().LE, Type: expr.Function.Params[i]}
		}

		return builtin.gen(g, fs, args)
	}

	return Yield(fs.block.NewCall(g.funcFor(expr.Function), values(results)...), expr.Function.Return)
}

// funcFor returns the LLVM function of a resolved prototype.
func (g *Generator) funcFor(proto *mir.Prototype) value.Value {
	if proto.ID < 0 || int(proto.ID) >= len(g.funcs) || g.funcs[proto.ID] == nil {
		report.ICE("call to unresolved function `%s`", proto.Name)
	}

	return g.funcs[proto.ID]
}
