package generate

import (
	"midas/mir"
	"midas/report"

	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/value"
)

// structDef returns the definition of the struct a reference designates.
func (g *Generator) structDef(typ *mir.Reference) *mir.StructDefinition {
	sr, ok := typ.Referend.(*mir.StructReferend)
	if !ok {
		report.ICE("%s is not a struct", typ)
	}

	return g.prog.Struct(g.structID(sr))
}

// memberOf returns the member at index of the struct a reference designates.
func (g *Generator) memberOf(typ *mir.Reference, index int) *mir.StructMember {
	sdef := g.structDef(typ)
	if index < 0 || index >= len(sdef.Members) {
		report.ICE("`%s` has no member %d", sdef.Name, index)
	}

	return sdef.Members[index]
}

// memberPtr returns a pointer to a member of a heap struct.
func (g *Generator) memberPtr(fs *FunctionState, obj *Ref, index int) value.Value {
	wrapperType := g.wrapperStructTypes[g.structDef(obj.Type).ID]
	return fs.block.NewGetElementPtr(wrapperType, obj.LE, i32(0), i32(1), i32(int64(index)))
}

// viewMutability returns the mutability of the view a reference gives onto a
// struct: shared structs can only be read.
func viewMutability(typ *mir.Reference) mir.Mutability {
	switch typ.Ownership {
	case mir.Own, mir.Borrow:
		return mir.Mutable
	case mir.Share:
		return mir.Immutable
	}

	report.ICE("unhandled ownership: %s", typ.Ownership)
	return mir.Immutable
}

// -----------------------------------------------------------------------------

// newStruct translates constructing a struct.  Member values are translated
// in order and move into the new struct.
func (g *Generator) newStruct(fs *FunctionState, expr *mir.NewStruct) Result {
	sdef := g.structDef(expr.ResultType)
	if len(expr.Sources) != len(sdef.Members) {
		report.ICE("`%s` has %d members but was built from %d values", sdef.Name, len(sdef.Members), len(expr.Sources))
	}

	members := values(g.TranslateList(fs, expr.Sources))

	if !expr.ResultType.IsHeap() {
		var agg value.Value = constant.NewUndef(g.innerStructTypes[sdef.ID])
		for i, member := range members {
			agg = fs.block.NewInsertValue(agg, member, uint64(i))
		}

		return Yield(agg, expr.ResultType)
	}

	wrapperType := g.wrapperStructTypes[sdef.ID]
	obj := &Ref{LE: g.allocObject(fs, wrapperType, sizeOf(wrapperType)), Type: expr.ResultType}
	for i, member := range members {
		fs.block.NewStore(member, g.memberPtr(fs, obj, i))
	}

	return Yield(obj.LE, obj.Type)
}

// memberLoad translates reading a member.  The struct operand is consumed by
// the load so it is discarded after the member has been read and acquired.
func (g *Generator) memberLoad(fs *FunctionState, expr *mir.MemberLoad) Result {
	member := g.memberOf(expr.StructType, expr.MemberIndex)

	sc := g.openScope(fs)
	defer sc.close()

	obj := sc.take(g.Translate(fs, expr.Struct))
	obj.Type = expr.StructType

	var field value.Value
	if expr.StructType.IsHeap() {
		field = fs.block.NewLoad(g.convType(member.Type), g.memberPtr(fs, obj, expr.MemberIndex))
	} else {
		field = fs.block.NewExtractValue(obj.LE, uint64(expr.MemberIndex))
	}

	loaded := &Ref{LE: field, Type: expr.ExpectedType}
	g.acquire(fs, loaded)
	return Yield(loaded.LE, loaded.Type)
}

// memberStore translates swapping a new value into a member.  The previous
// value of the member is the result and the struct operand is discarded.
func (g *Generator) memberStore(fs *FunctionState, expr *mir.MemberStore) Result {
	member := g.memberOf(expr.StructType, expr.MemberIndex)

	if !expr.StructType.IsHeap() {
		report.ICE("store into member `%s` of inline struct", expr.MemberName)
	}

	if viewMutability(expr.StructType) == mir.Immutable {
		report.ICE("store into member `%s` through an immutable view", expr.MemberName)
	}

	sc := g.openScope(fs)
	defer sc.close()

	obj := sc.take(g.Translate(fs, expr.Struct))
	obj.Type = expr.StructType
	source := g.Translate(fs, expr.Source).Ref()

	fieldPtr := g.memberPtr(fs, obj, expr.MemberIndex)
	previous := fs.block.NewLoad(g.convType(member.Type), fieldPtr)
	fs.block.NewStore(source.LE, fieldPtr)

	return Yield(previous, member.Type)
}

// destroyStruct translates destructuring a struct: every member moves into its
// local and the storage of the struct is destroyed.
func (g *Generator) destroyStruct(fs *FunctionState, expr *mir.Destroy) Result {
	sdef := g.structDef(expr.StructType)
	if len(expr.Locals) != len(sdef.Members) {
		report.ICE("`%s` has %d members but was destroyed into %d locals", sdef.Name, len(sdef.Members), len(expr.Locals))
	}

	obj := &Ref{LE: g.Translate(fs, expr.Struct).Ref().LE, Type: expr.StructType}

	for i, member := range sdef.Members {
		var field value.Value
		if obj.Type.IsHeap() {
			field = fs.block.NewLoad(g.convType(member.Type), g.memberPtr(fs, obj, i))
		} else {
			field = fs.block.NewExtractValue(obj.LE, uint64(i))
		}

		g.openLocal(fs, expr.Locals[i], &Ref{LE: field, Type: member.Type})
	}

	// inline structs have no storage of their own
	if obj.Type.IsHeap() {
		g.destroyStorage(fs, obj)
	}

	return Never()
}
