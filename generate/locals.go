package generate

import (
	"midas/mir"
	"midas/report"

	"github.com/llir/llvm/ir"
)

// openLocal creates the storage slot of a local and stores value into it.
func (g *Generator) openLocal(fs *FunctionState, local *mir.Local, value *Ref) {
	if _, ok := fs.locals[local.ID]; ok {
		report.ICE("local `%s` (%d) opened twice", local.Name, local.ID)
	}

	slot := fs.entryAlloca(g.convType(local.Type), local.Name)
	fs.block.NewStore(value.LE, slot)
	fs.locals[local.ID] = slot
}

// localSlot returns the storage slot of an open local.
func (g *Generator) localSlot(fs *FunctionState, local *mir.Local) *ir.InstAlloca {
	slot, ok := fs.locals[local.ID]
	if !ok {
		report.ICE("local `%s` (%d) is not open", local.Name, local.ID)
	}

	return slot
}

// stackify translates opening a local.  Opening is bookkeeping only so it
// yields no value.
func (g *Generator) stackify(fs *FunctionState, expr *mir.Stackify) Result {
	source := g.Translate(fs, expr.Source).Ref()
	g.openLocal(fs, expr.Local, source)
	return Never()
}

// unstackify translates closing a local.  The final content of the slot is
// handed over to whatever consumes the result; nothing is freed here.
func (g *Generator) unstackify(fs *FunctionState, expr *mir.Unstackify) Result {
	slot := g.localSlot(fs, expr.Local)
	content := fs.block.NewLoad(slot.ElemType, slot)
	delete(fs.locals, expr.Local.ID)
	return Yield(content, expr.Local.Type)
}

// localLoad translates reading a local.  The loaded value is a new alias of the
// content so it is acquired.
func (g *Generator) localLoad(fs *FunctionState, expr *mir.LocalLoad) Result {
	slot := g.localSlot(fs, expr.Local)

	loaded := &Ref{
		LE:   fs.block.NewLoad(slot.ElemType, slot),
		Type: mir.NewRef(expr.TargetOwnership, expr.Local.Type.Location, expr.Local.Type.Referend),
	}
	g.acquire(fs, loaded)
	return Yield(loaded.LE, loaded.Type)
}

// localStore translates swapping a new value into a local.  The previous
// content is read before the new value is translated and is the result.
func (g *Generator) localStore(fs *FunctionState, expr *mir.LocalStore) Result {
	slot := g.localSlot(fs, expr.Local)

	previous := fs.block.NewLoad(slot.ElemType, slot)
	source := g.Translate(fs, expr.Source).Ref()
	fs.block.NewStore(source.LE, slot)
	return Yield(previous, expr.Local.Type)
}
