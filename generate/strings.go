package generate

import (
	"fmt"
	"strings"

	"midas/common"
	"midas/mir"
	"midas/report"

	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"
)

// charData returns a pointer to the zero-terminated character data of a string
// literal.  Equal literals share the same global.
func (g *Generator) charData(s string) value.Value {
	glob, ok := g.strLits[s]
	if !ok {
		glob = g.mod.NewGlobalDef(
			fmt.Sprintf("__strlit.%d", g.globalCounter),
			constant.NewCharArrayFromString(s+"\x00"),
		)
		glob.Immutable = true

		g.globalCounter++
		g.strLits[s] = glob
	}

	return constant.NewGetElementPtr(glob.ContentType, glob, i32(0), i32(0))
}

// allocStr allocates a string object with room for length characters and the
// terminator.  The count and length fields are initialized; the characters
// are not.
func (g *Generator) allocStr(fs *FunctionState, length value.Value) value.Value {
	byteSize := fs.block.NewAdd(sizeOf(g.strType), fs.block.NewAdd(length, i64(1)))
	str := g.allocObject(fs, g.strType, byteSize)

	lenPtr := fs.block.NewGetElementPtr(g.strType, str, i32(0), i32(1))
	fs.block.NewStore(length, lenPtr)
	return str
}

// strChars returns a pointer to the first character of a string object.
func (g *Generator) strChars(fs *FunctionState, str value.Value) value.Value {
	return fs.block.NewGetElementPtr(g.strType, str, i32(0), i32(2), i64(0))
}

// strLength loads the length field of a string object.
func (g *Generator) strLength(fs *FunctionState, str value.Value) value.Value {
	lenPtr := fs.block.NewGetElementPtr(g.strType, str, i32(0), i32(1))
	return fs.block.NewLoad(types.I64, lenPtr)
}

// constantStr builds a new string object holding the value of a literal.
func (g *Generator) constantStr(fs *FunctionState, s string) Result {
	if strings.IndexByte(s, 0) != -1 {
		report.ICE("string literal contains a zero byte")
	}

	length := int64(len(s))
	str := g.allocStr(fs, i64(length))
	fs.block.NewCall(g.rt.initStr, g.strChars(fs, str), g.charData(s), i32(length))
	return Yield(str, mir.StrRef)
}

// -----------------------------------------------------------------------------

// The string builtins.  Every string argument is discarded once it has been
// used.

func (g *Generator) genAddStr(fs *FunctionState, args []*Ref) Result {
	a, b := args[0].LE, args[1].LE

	length := fs.block.NewAdd(g.strLength(fs, a), g.strLength(fs, b))
	dest := g.allocStr(fs, length)
	fs.block.NewCall(g.rt.addStr, g.strChars(fs, a), g.strChars(fs, b), g.strChars(fs, dest))

	g.discard(fs, args[0])
	g.discard(fs, args[1])
	return Yield(dest, mir.StrRef)
}

func (g *Generator) genEqStr(fs *FunctionState, args []*Ref) Result {
	eq := fs.block.NewCall(g.rt.eqStr, g.strChars(fs, args[0].LE), g.strChars(fs, args[1].LE))
	result := fs.block.NewICmp(enum.IPredNE, eq, constant.NewInt(types.I8, 0))

	g.discard(fs, args[0])
	g.discard(fs, args[1])
	return Yield(result, mir.BoolRef)
}

func (g *Generator) genPrint(fs *FunctionState, args []*Ref) Result {
	fs.block.NewCall(g.rt.printStr, g.strChars(fs, args[0].LE))

	g.discard(fs, args[0])
	return g.voidResult()
}

func (g *Generator) genCastIntStr(fs *FunctionState, args []*Ref) Result {
	bufType := types.NewArray(common.IntStrBufSize, types.I8)
	buf := fs.entryAlloca(bufType, "intbuf")
	bufPtr := fs.block.NewGetElementPtr(bufType, buf, i32(0), i32(0))

	n := fs.block.NewTrunc(args[0].LE, types.I32)
	fs.block.NewCall(g.rt.intToCStr, n, bufPtr, i32(common.IntStrBufSize))

	length := fs.block.NewCall(g.rt.strlen, bufPtr)
	str := g.allocStr(fs, length)
	fs.block.NewCall(g.rt.initStr, g.strChars(fs, str), bufPtr, fs.block.NewTrunc(length, types.I32))
	return Yield(str, mir.StrRef)
}

func (g *Generator) genStrLength(fs *FunctionState, args []*Ref) Result {
	length := g.strLength(fs, args[0].LE)

	g.discard(fs, args[0])
	return Yield(length, mir.IntRef)
}

// flare prints the kind of expr when the generated code reaches it.
func (g *Generator) flare(fs *FunctionState, expr mir.Expr) {
	msg := fmt.Sprintf("flare: %s\n", mir.KindName(expr))
	fs.block.NewCall(g.rt.printStr, g.charData(msg))
}
