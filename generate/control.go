package generate

import (
	"midas/mir"
	"midas/report"

	"github.com/llir/llvm/ir"
)

// genBlock translates a block.  Its value is the value of its last expression.
func (g *Generator) genBlock(fs *FunctionState, block *mir.Block) Result {
	if len(block.Exprs) == 0 {
		report.ICE("empty block")
	}

	var result Result
	for _, expr := range block.Exprs {
		// Translate rejects anything following an expression that diverged
		result = g.Translate(fs, expr)
	}

	return result
}

// genIf translates a conditional.  The incoming values of both branches are
// merged with a phi node unless the result is void or only one branch reaches
// the end of the conditional.
func (g *Generator) genIf(fs *FunctionState, ifExpr *mir.If) Result {
	cond := g.Translate(fs, ifExpr.Cond).Ref()

	thenBlock := fs.appendBlock("then")
	elseBlock := fs.appendBlock("else")
	fs.block.NewCondBr(cond.LE, thenBlock, elseBlock)

	// incoming accumulates the values of the branches which reach the end
	var incoming []*ir.Incoming
	var liveBlocks []*ir.Block
	for _, branch := range []struct {
		block *ir.Block
		body  mir.Expr
	}{{thenBlock, ifExpr.Then}, {elseBlock, ifExpr.Else}} {
		fs.block = branch.block
		result := g.Translate(fs, branch.body)
		if fs.terminated() {
			continue
		}

		liveBlocks = append(liveBlocks, fs.block)
		if !result.IsNever() {
			incoming = append(incoming, ir.NewIncoming(result.Ref().LE, fs.block))
		}
	}

	// every branch diverged: so does the conditional.  The current block is
	// left terminated so nothing may follow.
	if len(liveBlocks) == 0 {
		return Never()
	}

	endBlock := fs.appendBlock("endif")
	for _, block := range liveBlocks {
		block.NewBr(endBlock)
	}
	fs.block = endBlock

	if _, ok := ifExpr.CommonSupertype.Referend.(*mir.Void); ok {
		return g.voidResult()
	}

	if len(incoming) != len(liveBlocks) {
		report.ICE("branch of conditional of type %s produced no value", ifExpr.CommonSupertype)
	}

	if len(incoming) == 1 {
		return Yield(incoming[0].X, ifExpr.CommonSupertype)
	}

	return Yield(endBlock.NewPhi(incoming...), ifExpr.CommonSupertype)
}

// genWhile translates a loop.  The condition is re-evaluated in a dedicated
// header block before every iteration.
func (g *Generator) genWhile(fs *FunctionState, whileExpr *mir.While) Result {
	headerBlock := fs.appendBlock("whilehead")
	bodyBlock := fs.appendBlock("whilebody")
	endBlock := fs.appendBlock("endwhile")

	fs.block.NewBr(headerBlock)

	fs.block = headerBlock
	cond := g.Translate(fs, whileExpr.Cond).Ref()
	if fs.terminated() {
		report.ICE("while condition diverged")
	}
	fs.block.NewCondBr(cond.LE, bodyBlock, endBlock)

	fs.block = bodyBlock
	g.Translate(fs, whileExpr.Body)
	if !fs.terminated() {
		fs.block.NewBr(headerBlock)
	}

	fs.block = endBlock
	return g.voidResult()
}
