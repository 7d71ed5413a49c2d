package generate

import (
	"midas/mir"
	"midas/report"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"
)

// arrayLength returns the length of an array: a constant for known size arrays
// and the header field for unknown size arrays.
func (g *Generator) arrayLength(fs *FunctionState, array *Ref) value.Value {
	switch v := array.Type.Referend.(type) {
	case *mir.KnownSizeArrayT:
		return i64(int64(v.Size))
	case *mir.UnknownSizeArrayT:
		wrapperType := g.arrayWrapperType(v)
		lenPtr := fs.block.NewGetElementPtr(wrapperType, array.LE, i32(0), i32(1))
		return fs.block.NewLoad(types.I64, lenPtr)
	}

	report.ICE("%s is not an array", array.Type)
	return nil
}

// elementPtr returns a pointer to the element at index in the contents region
// of an array.  No bounds check is performed.
func (g *Generator) elementPtr(fs *FunctionState, array *Ref, index value.Value) value.Value {
	if !array.Type.IsHeap() {
		report.ICE("inline array representation is not supported: %s", array.Type)
	}

	wrapperType := g.arrayWrapperType(array.Type.Referend)

	// the contents are the last field of the wrapper
	contentsField := int64(len(wrapperType.Fields) - 1)
	return fs.block.NewGetElementPtr(wrapperType, array.LE, i32(0), i32(contentsField), index)
}

// checkBounds guards an element access according to the bounds check policy.
// Control only continues past the check if index is in range.
func (g *Generator) checkBounds(fs *FunctionState, index, length value.Value) {
	if g.opts.BoundsCheck == BoundsUnchecked {
		return
	}

	// lengths are never negative so an unsigned comparison rejects negative
	// indices as well
	inRange := fs.block.NewICmp(enum.IPredULT, index, length)

	okBlock := fs.appendBlock("inbounds")
	trapBlock := fs.appendBlock("outofbounds")
	fs.block.NewCondBr(inRange, okBlock, trapBlock)

	trapBlock.NewCall(g.rt.trap)
	trapBlock.NewUnreachable()

	fs.block = okBlock
}

// buildLoop emits a counted loop calling body with every index from 0 up to
// but not including length, in ascending order.  The function state is left
// positioned after the loop.
func (g *Generator) buildLoop(fs *FunctionState, length value.Value, body func(index value.Value)) {
	preBlock := fs.block
	headerBlock := fs.appendBlock("loophead")
	bodyBlock := fs.appendBlock("loopbody")
	exitBlock := fs.appendBlock("loopexit")

	preBlock.NewBr(headerBlock)

	index := headerBlock.NewPhi(ir.NewIncoming(i64(0), preBlock))
	more := headerBlock.NewICmp(enum.IPredSLT, index, length)
	headerBlock.NewCondBr(more, bodyBlock, exitBlock)

	fs.block = bodyBlock
	body(index)

	if fs.terminated() {
		report.ICE("loop body diverged")
	}

	next := fs.block.NewAdd(index, i64(1))
	index.Incs = append(index.Incs, ir.NewIncoming(next, fs.block))
	fs.block.NewBr(headerBlock)

	fs.block = exitBlock
}

// forEachElement calls body with a pointer to every element of an array in
// ascending order.
func (g *Generator) forEachElement(fs *FunctionState, array *Ref, body func(elemPtr value.Value)) {
	length := g.arrayLength(fs, array)
	g.buildLoop(fs, length, func(index value.Value) {
		body(g.elementPtr(fs, array, index))
	})
}

// loadedElementType is the type of an element read out of an array.  Elements
// cannot be moved out by a load so owned elements are lent instead.
func loadedElementType(elem *mir.Reference) *mir.Reference {
	if elem.Ownership == mir.Own {
		return mir.NewRef(mir.Borrow, elem.Location, elem.Referend)
	}

	return elem
}

// -----------------------------------------------------------------------------

// loadElement translates an array load of either kind.
func (g *Generator) loadElement(fs *FunctionState, arrayExpr mir.Expr, arrayType *mir.Reference, indexExpr mir.Expr) Result {
	sc := g.openScope(fs)
	defer sc.close()

	array := sc.take(g.Translate(fs, arrayExpr))
	array.Type = arrayType
	index := g.Translate(fs, indexExpr).Ref()

	elemType, ok := mir.ElemType(arrayType.Referend)
	if !ok {
		report.ICE("%s is not an array", arrayType)
	}

	g.checkBounds(fs, index.LE, g.arrayLength(fs, array))

	elemPtr := g.elementPtr(fs, array, index.LE)
	elem := &Ref{
		LE:   fs.block.NewLoad(g.convType(elemType), elemPtr),
		Type: loadedElementType(elemType),
	}

	// the element must be acquired before the array is released by the scope,
	// so the read comes first rather than after discarding the array
	g.acquire(fs, elem)
	return Yield(elem.LE, elem.Type)
}

// newKnownSizeArray translates the construction of a known size array from
// its element values.
func (g *Generator) newKnownSizeArray(fs *FunctionState, expr *mir.NewArrayFromValues) Result {
	ksa, ok := expr.ArrayType.Referend.(*mir.KnownSizeArrayT)
	if !ok {
		report.ICE("array built from values must have a known size: %s", expr.ArrayType)
	}

	if ksa.Size != len(expr.Sources) {
		report.ICE("array of size %d built from %d values", ksa.Size, len(expr.Sources))
	}

	// elements move into the array
	elems := g.TranslateList(fs, expr.Sources)

	wrapperType := g.arrayWrapperType(ksa)
	array := &Ref{LE: g.allocObject(fs, wrapperType, sizeOf(wrapperType)), Type: expr.ArrayType}
	for i, elem := range elems {
		fs.block.NewStore(elem.Ref().LE, g.elementPtr(fs, array, i64(int64(i))))
	}

	return Yield(array.LE, array.Type)
}

// constructUnknownSizeArray translates the construction of an unknown size
// array whose elements are produced by calling a generator with each index.
func (g *Generator) constructUnknownSizeArray(fs *FunctionState, expr *mir.ConstructUnknownSizeArray) Result {
	usa, ok := expr.ArrayType.Referend.(*mir.UnknownSizeArrayT)
	if !ok {
		report.ICE("constructed array must have an unknown size: %s", expr.ArrayType)
	}

	sc := g.openScope(fs)
	defer sc.close()

	size := g.Translate(fs, expr.Size).Ref()
	generator := sc.take(g.Translate(fs, expr.Generator))
	generator.Type = expr.GeneratorType

	wrapperType := g.arrayWrapperType(usa)
	elemSize := sizeOf(g.convType(usa.Elem))
	byteSize := fs.block.NewAdd(sizeOf(wrapperType), fs.block.NewMul(size.LE, elemSize))

	array := &Ref{LE: g.allocObject(fs, wrapperType, byteSize), Type: expr.ArrayType}
	lenPtr := fs.block.NewGetElementPtr(wrapperType, array.LE, i32(0), i32(1))
	fs.block.NewStore(size.LE, lenPtr)

	g.buildLoop(fs, size.LE, func(index value.Value) {
		// every call consumes a reference to the generator
		g.acquire(fs, generator)
		elem := g.callFunctor(fs, generator, &Ref{LE: index, Type: mir.IntRef})
		fs.block.NewStore(elem, g.elementPtr(fs, array, index))
	})

	return Yield(array.LE, array.Type)
}

// destroyArrayInto translates consuming an array of either kind by handing
// each of its elements to a consumer in ascending order.
func (g *Generator) destroyArrayInto(fs *FunctionState, arrayExpr mir.Expr, arrayType *mir.Reference, consumerExpr mir.Expr, consumerType *mir.Reference) Result {
	if _, ok := mir.ElemType(arrayType.Referend); !ok {
		report.ICE("%s is not an array", arrayType)
	}

	sc := g.openScope(fs)
	defer sc.close()

	array := g.Translate(fs, arrayExpr).Ref()
	array = &Ref{LE: array.LE, Type: arrayType}
	consumer := sc.take(g.Translate(fs, consumerExpr))
	consumer.Type = consumerType

	g.forEachElement(fs, array, func(elemPtr value.Value) {
		g.acquire(fs, consumer)

		elemType, _ := mir.ElemType(arrayType.Referend)
		elem := &Ref{LE: fs.block.NewLoad(g.convType(elemType), elemPtr), Type: elemType}

		result := g.callFunctor(fs, consumer, elem)
		g.discard(fs, &Ref{LE: result, Type: g.functorMethod(consumer).Return})
	})

	// the elements have all been moved out so only the storage remains
	g.destroyStorage(fs, array)

	// the consumer is released when the scope closes
	return Never()
}
