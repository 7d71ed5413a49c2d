package generate

import (
	"fmt"

	"midas/mir"
	"midas/report"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"
)

// FunctionState is the state of a single in-progress function translation.
// It is exclusively owned by that translation and never shared.
type FunctionState struct {
	// fn is the function whose body is being generated.
	fn *ir.Func

	// proto is the prototype of the function (nil for generated helpers).
	proto *mir.Prototype

	// block is the block instructions are currently appended to.
	block *ir.Block

	// locals maps each open local to its storage slot.
	locals map[mir.VariableID]*ir.InstAlloca

	// blockCounter numbers the blocks of the function.
	blockCounter int
}

// newFunctionState creates the state for generating the body of fn and
// positions it in a fresh entry block.
func newFunctionState(fn *ir.Func, proto *mir.Prototype) *FunctionState {
	fs := &FunctionState{
		fn:     fn,
		proto:  proto,
		locals: make(map[mir.VariableID]*ir.InstAlloca),
	}

	fs.block = fn.NewBlock("entry")
	return fs
}

// appendBlock adds a new basic block to the current function.  It does *not*
// set the current block to this new block.
func (fs *FunctionState) appendBlock(label string) *ir.Block {
	fs.blockCounter++
	return fs.fn.NewBlock(fmt.Sprintf("%s%d", label, fs.blockCounter))
}

// terminated returns whether the current block already ends in a terminator:
// ie. control flow can never reach code appended now.
func (fs *FunctionState) terminated() bool {
	return fs.block.Term != nil
}

// entryAlloca creates a stack slot in the entry block so that slots are not
// reallocated on every iteration of a loop.
func (fs *FunctionState) entryAlloca(elemType types.Type, name string) *ir.InstAlloca {
	alloca := fs.fn.Blocks[0].NewAlloca(elemType)
	alloca.SetName(name)
	return alloca
}

// param returns the parameter at index.
func (fs *FunctionState) param(index int) value.Value {
	if index < 0 || index >= len(fs.fn.Params) {
		report.ICE("argument %d is out of range for `%s`", index, fs.fn.Name())
	}

	return fs.fn.Params[index]
}
