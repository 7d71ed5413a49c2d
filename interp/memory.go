package interp

import (
	"fmt"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/types"
)

// objectKind is where an allocation lives.
type objectKind int

const (
	heapObject objectKind = iota
	stackObject
	globalObject
)

func (k objectKind) String() string {
	switch k {
	case heapObject:
		return "heap"
	case stackObject:
		return "stack"
	default:
		return "global"
	}
}

// cell is a single scalar stored in memory.
type cell struct {
	size int64
	v    Value
}

// object is a single allocation.  Memory is modelled as scalar cells keyed by
// their byte offset within the allocation so pointers keep their provenance.
type object struct {
	id    int
	addr  int64
	size  int64
	kind  objectKind
	cells map[int64]cell
	dead  bool
}

// Pointer is a pointer value.  A null pointer has no object: its offset is
// still tracked so that address arithmetic on null (eg. computing the size of
// a type) works.
type Pointer struct {
	obj *object
	off int64
	fn  *ir.Func
}

// IsNull returns whether p points at nothing.
func (p Pointer) IsNull() bool {
	return p.obj == nil && p.fn == nil
}

// Offset returns the byte offset of the pointer into the object it points at.
func (p Pointer) Offset() int64 {
	return p.off
}

func (p Pointer) String() string {
	switch {
	case p.fn != nil:
		return "@" + p.fn.Name()
	case p.obj == nil:
		return fmt.Sprintf("null+%d", p.off)
	default:
		return fmt.Sprintf("%s#%d+%d", p.obj.kind, p.obj.id, p.off)
	}
}

// Aggregate is the value of a struct or array typed register.
type Aggregate []Value

// -----------------------------------------------------------------------------

// sizeOf returns the allocation size of typ.  Layouts use natural alignment.
func sizeOf(typ types.Type) int64 {
	switch t := typ.(type) {
	case *types.IntType:
		return intBytes(t)
	case *types.PointerType:
		return 8
	case *types.StructType:
		var size int64
		for _, field := range t.Fields {
			size = alignTo(size, alignOf(field)) + sizeOf(field)
		}

		return alignTo(size, alignOf(t))
	case *types.ArrayType:
		return int64(t.Len) * sizeOf(t.ElemType)
	}

	panic(execErrorf("no layout for type %s", typ))
}

// alignOf returns the alignment of typ.
func alignOf(typ types.Type) int64 {
	switch t := typ.(type) {
	case *types.IntType:
		return intBytes(t)
	case *types.PointerType:
		return 8
	case *types.StructType:
		align := int64(1)
		for _, field := range t.Fields {
			if a := alignOf(field); a > align {
				align = a
			}
		}

		return align
	case *types.ArrayType:
		return alignOf(t.ElemType)
	}

	panic(execErrorf("no layout for type %s", typ))
}

// fieldOffset returns the offset of field index of st.
func fieldOffset(st *types.StructType, index int) int64 {
	var offset int64
	for i, field := range st.Fields {
		offset = alignTo(offset, alignOf(field))
		if i == index {
			return offset
		}

		offset += sizeOf(field)
	}

	panic(execErrorf("struct %s has no field %d", st, index))
}

func intBytes(t *types.IntType) int64 {
	return (int64(t.BitSize) + 7) / 8
}

func alignTo(n, align int64) int64 {
	return (n + align - 1) / align * align
}

// -----------------------------------------------------------------------------

// checkAccess validates an access of size bytes through p.
func (m *Machine) checkAccess(p Pointer, size int64) {
	if p.obj == nil {
		panic(execErrorf("access through null pointer %s", p))
	}

	if p.obj.dead {
		if p.obj.kind == heapObject {
			panic(execErrorf("use after free of %s", p))
		}

		panic(execErrorf("access to dead %s object %s", p.obj.kind, p))
	}

	if p.off < 0 || p.off+size > p.obj.size {
		panic(execErrorf("out of bounds access of %d bytes at %s (object size %d)", size, p, p.obj.size))
	}
}

// load reads a value of type typ through p.
func (m *Machine) load(typ types.Type, p Pointer) Value {
	m.checkAccess(p, sizeOf(typ))

	switch t := typ.(type) {
	case *types.StructType:
		agg := make(Aggregate, len(t.Fields))
		for i, field := range t.Fields {
			agg[i] = m.load(field, Pointer{obj: p.obj, off: p.off + fieldOffset(t, i)})
		}

		return agg
	case *types.ArrayType:
		elemSize := sizeOf(t.ElemType)
		agg := make(Aggregate, t.Len)
		for i := range agg {
			agg[i] = m.load(t.ElemType, Pointer{obj: p.obj, off: p.off + int64(i)*elemSize})
		}

		return agg
	}

	c, ok := p.obj.cells[p.off]
	if !ok {
		panic(execErrorf("read of uninitialized memory at %s", p))
	}

	if c.size != sizeOf(typ) {
		panic(execErrorf("misaligned read of %s at %s", typ, p))
	}

	return c.v
}

// store writes v as a value of type typ through p.
func (m *Machine) store(typ types.Type, v Value, p Pointer) {
	m.checkAccess(p, sizeOf(typ))

	switch t := typ.(type) {
	case *types.StructType:
		agg := v.(Aggregate)
		for i, field := range t.Fields {
			m.store(field, agg[i], Pointer{obj: p.obj, off: p.off + fieldOffset(t, i)})
		}

		return
	case *types.ArrayType:
		agg := v.(Aggregate)
		elemSize := sizeOf(t.ElemType)
		for i := range agg {
			m.store(t.ElemType, agg[i], Pointer{obj: p.obj, off: p.off + int64(i)*elemSize})
		}

		return
	}

	size := sizeOf(typ)

	// a scalar store replaces every cell it overlaps
	for off := p.off - 7; off < p.off+size; off++ {
		if c, ok := p.obj.cells[off]; ok && off+c.size > p.off {
			delete(p.obj.cells, off)
		}
	}

	p.obj.cells[p.off] = cell{size: size, v: v}
}

// readByte reads the byte at offset i from p.
func (m *Machine) readByte(p Pointer, i int64) byte {
	return byte(m.load(types.I8, Pointer{obj: p.obj, off: p.off + i}).(int64))
}

// writeByte writes b at offset i from p.
func (m *Machine) writeByte(p Pointer, i int64, b byte) {
	m.store(types.I8, int64(int8(b)), Pointer{obj: p.obj, off: p.off + i})
}

// allocate creates a new object of size bytes.
func (m *Machine) allocate(size int64, kind objectKind) *object {
	m.objectCounter++
	obj := &object{
		id:    m.objectCounter,
		addr:  m.nextAddr,
		size:  size,
		kind:  kind,
		cells: make(map[int64]cell),
	}

	// leave a gap so that no two objects are adjacent
	m.nextAddr += alignTo(size, 16) + 16

	if kind == heapObject {
		m.heap[obj] = struct{}{}
	}

	return obj
}

// free releases a heap object.
func (m *Machine) free(p Pointer) {
	if p.IsNull() {
		return
	}

	if p.obj == nil || p.obj.kind != heapObject {
		panic(execErrorf("free of non-heap pointer %s", p))
	}

	if p.obj.dead {
		panic(execErrorf("double free of %s", p))
	}

	if p.off != 0 {
		panic(execErrorf("free of interior pointer %s", p))
	}

	p.obj.dead = true
	delete(m.heap, p.obj)
}
