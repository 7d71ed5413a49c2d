package generate

import (
	"midas/mir"
	"midas/report"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"
)

// acquire creates a new reference to the value of ref.  Only shared heap
// objects are counted.  A shared inline struct acquires its members instead,
// mirroring what discard releases.
func (g *Generator) acquire(fs *FunctionState, ref *Ref) {
	if ref.Type.Ownership != mir.Share {
		return
	}

	if ref.Type.IsHeap() {
		g.adjustRefcount(fs, ref, 1)
	} else {
		g.forEachInlineMember(fs, ref, func(member *Ref) {
			g.acquire(fs, member)
		})
	}
}

// discard releases ref.  Owning and borrowed references are never released
// here: owned values are only ever freed by an explicit destroy.  A shared heap
// object whose count reaches zero is dropped.
func (g *Generator) discard(fs *FunctionState, ref *Ref) {
	switch ref.Type.Ownership {
	case mir.Own, mir.Borrow:
		return
	case mir.Share:
		if ref.Type.IsHeap() {
			g.releaseShared(fs, ref)
		} else {
			g.forEachInlineMember(fs, ref, func(member *Ref) {
				g.discard(fs, member)
			})
		}
	default:
		report.ICE("unhandled ownership: %s", ref.Type.Ownership)
	}
}

// releaseShared decrements the count of a shared heap object and drops it when
// the count reaches zero.
func (g *Generator) releaseShared(fs *FunctionState, ref *Ref) {
	newCount := g.adjustRefcount(fs, ref, -1)

	isZero := fs.block.NewICmp(enum.IPredEQ, newCount, i64(0))
	dropBlock := fs.appendBlock("drop")
	contBlock := fs.appendBlock("dropcont")
	fs.block.NewCondBr(isZero, dropBlock, contBlock)

	fs.block = dropBlock
	g.dropShared(fs, ref)
	fs.block.NewBr(contBlock)

	fs.block = contBlock
}

// forEachInlineMember calls fn with every member of an inline struct.  The
// struct itself has no storage of its own but its members may.  Inline values
// of any other referend have no members.
func (g *Generator) forEachInlineMember(fs *FunctionState, ref *Ref, fn func(member *Ref)) {
	sr, ok := ref.Type.Referend.(*mir.StructReferend)
	if !ok {
		return
	}

	sdef := g.prog.Struct(g.structID(sr))
	for i, member := range sdef.Members {
		field := fs.block.NewExtractValue(ref.LE, uint64(i))
		fn(&Ref{LE: field, Type: member.Type})
	}
}

// dropShared releases everything a shared heap object holds and frees it.  It
// must only be called once the count of the object has reached zero.
func (g *Generator) dropShared(fs *FunctionState, ref *Ref) {
	switch v := ref.Type.Referend.(type) {
	case *mir.StructReferend:
		obj := fs.block.NewBitCast(ref.LE, types.I8Ptr)
		fs.block.NewCall(g.dropFuncs[g.structID(v)], obj)
	case *mir.InterfaceReferend:
		// the concrete type is only known to the itable
		obj := fs.block.NewExtractValue(ref.LE, 0)
		itable := fs.block.NewExtractValue(ref.LE, 1)

		itableType := g.itableTypes[g.interfaceID(v)]
		dropSlot := fs.block.NewGetElementPtr(itableType, itable, i32(0), i32(0))
		dropFn := fs.block.NewLoad(itableType.Fields[0], dropSlot)
		fs.block.NewCall(dropFn, obj)
	case *mir.KnownSizeArrayT:
		g.releaseElements(fs, ref, v.Elem)
		g.freeConcreteStorage(fs, ref)
	case *mir.UnknownSizeArrayT:
		g.releaseElements(fs, ref, v.Elem)
		g.freeConcreteStorage(fs, ref)
	case *mir.Str:
		g.freeConcreteStorage(fs, ref)
	default:
		report.ICE("cannot drop a value of type %s", ref.Type)
	}
}

// releaseElements discards every element of an array in ascending order.
func (g *Generator) releaseElements(fs *FunctionState, array *Ref, elemType *mir.Reference) {
	if elemType.Ownership != mir.Share {
		return
	}

	g.forEachElement(fs, array, func(elemPtr value.Value) {
		elem := fs.block.NewLoad(elemPtrType(elemPtr), elemPtr)
		g.discard(fs, &Ref{LE: elem, Type: elemType})
	})
}

// adjustRefcount adds delta to the count of a heap object and returns the new
// count.
func (g *Generator) adjustRefcount(fs *FunctionState, ref *Ref, delta int64) value.Value {
	if !ref.Type.IsHeap() {
		report.ICE("adjusting the count of inline value of type %s", ref.Type)
	}

	rcPtr := g.refcountPtr(fs, ref)
	count := fs.block.NewLoad(types.I64, rcPtr)
	newCount := fs.block.NewAdd(count, i64(delta))
	fs.block.NewStore(newCount, rcPtr)
	return newCount
}

// refcountPtr returns a pointer to the count in the control block of a heap
// object.  The control block is always the first field of the object.
func (g *Generator) refcountPtr(fs *FunctionState, ref *Ref) value.Value {
	var obj value.Value
	if _, ok := ref.Type.Referend.(*mir.InterfaceReferend); ok {
		obj = fs.block.NewExtractValue(ref.LE, 0)
	} else {
		obj = ref.LE
	}

	cbPtr := fs.block.NewBitCast(obj, types.NewPointer(g.controlBlockType))
	return fs.block.NewGetElementPtr(g.controlBlockType, cbPtr, i32(0), i32(0))
}

// freeConcreteStorage frees the storage of a heap object whose concrete type
// is known.  The caller guarantees the object is uniquely owned or that its
// count just reached zero.
func (g *Generator) freeConcreteStorage(fs *FunctionState, ref *Ref) {
	if _, ok := ref.Type.Referend.(*mir.InterfaceReferend); ok {
		report.ICE("cannot free the concrete storage of interface %s", ref.Type)
	}

	if !ref.Type.IsHeap() {
		report.ICE("cannot free inline value of type %s", ref.Type)
	}

	fs.block.NewCall(g.rt.free, fs.block.NewBitCast(ref.LE, types.I8Ptr))
}

// destroyStorage ends the life of an object being consumed whole: an owned
// object is counted down then freed while a shared one has already reached
// zero and is only freed.
func (g *Generator) destroyStorage(fs *FunctionState, ref *Ref) {
	switch ref.Type.Ownership {
	case mir.Own:
		g.adjustRefcount(fs, ref, -1)
		g.freeConcreteStorage(fs, ref)
	case mir.Share:
		g.freeConcreteStorage(fs, ref)
	default:
		report.ICE("cannot destroy a value of type %s", ref.Type)
	}
}

// -----------------------------------------------------------------------------

// allocObject allocates a heap object of type typ occupying size bytes and
// initializes its count to one.  It returns a typed pointer to the object.
func (g *Generator) allocObject(fs *FunctionState, typ *types.StructType, size value.Value) value.Value {
	mem := fs.block.NewCall(g.rt.malloc, size)
	obj := fs.block.NewBitCast(mem, types.NewPointer(typ))

	rcPtr := fs.block.NewGetElementPtr(typ, obj, i32(0), i32(0), i32(0))
	fs.block.NewStore(i64(1), rcPtr)
	return obj
}

// genDropFuncs generates the drop function of every struct.  A drop function
// takes an untyped pointer to the heap object, releases all of its shared
// members, and frees it.  They are the first entry of every itable.
func (g *Generator) genDropFuncs() {
	g.dropFuncs = make([]*ir.Func, len(g.prog.Structs))
	for i, sdef := range g.prog.Structs {
		g.dropFuncs[i] = g.mod.NewFunc("__drop_"+sdef.Name, types.Void, ir.NewParam("obj", types.I8Ptr))
		g.dropFuncs[i].FuncAttrs = append(g.dropFuncs[i].FuncAttrs, enum.FuncAttrNoUnwind)
	}

	for i, sdef := range g.prog.Structs {
		llFunc := g.dropFuncs[i]
		fs := newFunctionState(llFunc, nil)

		wrapperType := g.wrapperStructTypes[i]
		obj := fs.block.NewBitCast(llFunc.Params[0], types.NewPointer(wrapperType))
		for j, member := range sdef.Members {
			if member.Type.Ownership != mir.Share {
				continue
			}

			fieldPtr := fs.block.NewGetElementPtr(wrapperType, obj, i32(0), i32(1), i32(int64(j)))
			field := fs.block.NewLoad(g.convType(member.Type), fieldPtr)
			g.discard(fs, &Ref{LE: field, Type: member.Type})
		}

		fs.block.NewCall(g.rt.free, llFunc.Params[0])
		fs.block.NewRet(nil)
	}
}
