package interp

import (
	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"
)

// frame is the activation record of a single call.
type frame struct {
	fn     *ir.Func
	regs   map[value.Value]Value
	allocs []*object
}

// call executes fn with args.
func (m *Machine) call(fn *ir.Func, args []Value) Value {
	if len(fn.Blocks) == 0 {
		return m.callExtern(fn.Name(), args)
	}

	if len(args) != len(fn.Params) {
		panic(execErrorf("`%s` called with %d arguments but takes %d", fn.Name(), len(args), len(fn.Params)))
	}

	m.depth++
	if m.depth > maxCallDepth {
		panic(execErrorf("call depth exceeded in `%s`", fn.Name()))
	}

	fr := &frame{fn: fn, regs: make(map[value.Value]Value)}
	for i, param := range fn.Params {
		fr.regs[param] = args[i]
	}

	defer func() {
		// stack slots die with the frame
		for _, obj := range fr.allocs {
			obj.dead = true
		}

		m.depth--
	}()

	var pred *ir.Block
	block := fn.Blocks[0]
	for {
		m.enterBlock(fr, pred, block)

		for _, inst := range block.Insts {
			if _, ok := inst.(*ir.InstPhi); ok {
				continue
			}

			m.exec(fr, inst)
		}

		switch term := block.Term.(type) {
		case *ir.TermRet:
			if term.X == nil {
				return nil
			}

			return m.eval(fr, term.X)
		case *ir.TermBr:
			pred, block = block, asBlock(term.Target)
		case *ir.TermCondBr:
			pred = block
			if m.eval(fr, term.Cond).(int64) != 0 {
				block = asBlock(term.TargetTrue)
			} else {
				block = asBlock(term.TargetFalse)
			}
		case *ir.TermUnreachable:
			panic(execErrorf("reached unreachable in `%s`", fn.Name()))
		case nil:
			panic(execErrorf("block %s of `%s` has no terminator", block.Name(), fn.Name()))
		default:
			panic(execErrorf("unsupported terminator %T in `%s`", term, fn.Name()))
		}
	}
}

// asBlock returns the block a branch target refers to.
func asBlock(target value.Value) *ir.Block {
	block, ok := target.(*ir.Block)
	if !ok {
		panic(execErrorf("branch target %s is not a block", target.Ident()))
	}

	return block
}

// enterBlock evaluates the phi nodes of block.  All incoming values are read
// before any phi is assigned.
func (m *Machine) enterBlock(fr *frame, pred, block *ir.Block) {
	type assignment struct {
		phi *ir.InstPhi
		v   Value
	}

	var assignments []assignment
	for _, inst := range block.Insts {
		phi, ok := inst.(*ir.InstPhi)
		if !ok {
			break
		}

		found := false
		for _, inc := range phi.Incs {
			if asBlock(inc.Pred) == pred {
				assignments = append(assignments, assignment{phi, m.eval(fr, inc.X)})
				found = true
				break
			}
		}

		if !found {
			panic(execErrorf("phi in %s has no incoming value for its predecessor", block.Name()))
		}
	}

	for _, a := range assignments {
		fr.regs[a.phi] = a.v
	}
}

// exec executes a single non-phi instruction.
func (m *Machine) exec(fr *frame, inst ir.Instruction) {
	var result Value

	switch v := inst.(type) {
	case *ir.InstAlloca:
		obj := m.allocate(sizeOf(v.ElemType), stackObject)
		fr.allocs = append(fr.allocs, obj)
		result = Pointer{obj: obj}
	case *ir.InstLoad:
		result = m.load(v.ElemType, m.evalPtr(fr, v.Src))
	case *ir.InstStore:
		m.store(v.Src.Type(), m.eval(fr, v.Src), m.evalPtr(fr, v.Dst))
		return
	case *ir.InstGetElementPtr:
		indices := make([]int64, len(v.Indices))
		for i, index := range v.Indices {
			indices[i] = m.eval(fr, index).(int64)
		}

		result = gep(v.ElemType, m.evalPtr(fr, v.Src), indices)
	case *ir.InstCall:
		args := make([]Value, len(v.Args))
		for i, arg := range v.Args {
			args[i] = m.eval(fr, arg)
		}

		result = m.callPtr(m.evalPtr(fr, v.Callee), args)
	case *ir.InstICmp:
		result = icmp(v.Pred, v.X.Type(), m.eval(fr, v.X), m.eval(fr, v.Y))
	case *ir.InstAdd:
		result = m.intOp(fr, v.X, v.Y, func(a, b int64) int64 { return a + b })
	case *ir.InstSub:
		result = m.intOp(fr, v.X, v.Y, func(a, b int64) int64 { return a - b })
	case *ir.InstMul:
		result = m.intOp(fr, v.X, v.Y, func(a, b int64) int64 { return a * b })
	case *ir.InstSDiv:
		result = m.intOp(fr, v.X, v.Y, func(a, b int64) int64 {
			if b == 0 {
				panic(execErrorf("division by zero"))
			}

			return a / b
		})
	case *ir.InstSRem:
		result = m.intOp(fr, v.X, v.Y, func(a, b int64) int64 {
			if b == 0 {
				panic(execErrorf("division by zero"))
			}

			return a % b
		})
	case *ir.InstAnd:
		result = m.intOp(fr, v.X, v.Y, func(a, b int64) int64 { return a & b })
	case *ir.InstOr:
		result = m.intOp(fr, v.X, v.Y, func(a, b int64) int64 { return a | b })
	case *ir.InstXor:
		result = m.intOp(fr, v.X, v.Y, func(a, b int64) int64 { return a ^ b })
	case *ir.InstBitCast:
		result = m.eval(fr, v.From)
	case *ir.InstTrunc:
		result = normalize(m.eval(fr, v.From).(int64), v.To.(*types.IntType))
	case *ir.InstZExt:
		result = zext(m.eval(fr, v.From).(int64), v.From.Type().(*types.IntType))
	case *ir.InstSExt:
		result = m.eval(fr, v.From)
	case *ir.InstPtrToInt:
		result = m.ptrToInt(m.evalPtr(fr, v.From))
	case *ir.InstExtractValue:
		result = extract(m.eval(fr, v.X), v.Indices)
	case *ir.InstInsertValue:
		result = insert(m.eval(fr, v.X), m.eval(fr, v.Elem), v.Indices)
	default:
		panic(execErrorf("unsupported instruction %T in `%s`", inst, fr.fn.Name()))
	}

	fr.regs[inst.(value.Value)] = result
}

// callPtr calls the function a pointer points to.
func (m *Machine) callPtr(callee Pointer, args []Value) Value {
	if callee.fn == nil {
		panic(execErrorf("call through non-function pointer %s", callee))
	}

	return m.call(callee.fn, args)
}

// intOp applies a binary operation to integers of the type of x.
func (m *Machine) intOp(fr *frame, x, y value.Value, op func(a, b int64) int64) Value {
	typ := x.Type().(*types.IntType)
	return normalize(op(m.eval(fr, x).(int64), m.eval(fr, y).(int64)), typ)
}

// ptrToInt converts a pointer to its numeric address.  Null based pointers
// convert to their offset which is how type sizes are computed.
func (m *Machine) ptrToInt(p Pointer) int64 {
	if p.fn != nil {
		panic(execErrorf("cannot take the address of function %s", p))
	}

	if p.obj == nil {
		return p.off
	}

	return p.obj.addr + p.off
}

// -----------------------------------------------------------------------------

// eval evaluates an operand.
func (m *Machine) eval(fr *frame, v value.Value) Value {
	// functions and globals are constants as well
	if c, ok := v.(constant.Constant); ok {
		return m.evalConst(c)
	}

	result, ok := fr.regs[v]
	if !ok {
		panic(execErrorf("use of undefined value %s in `%s`", v.Ident(), fr.fn.Name()))
	}

	return result
}

// evalPtr evaluates an operand which must be a pointer.
func (m *Machine) evalPtr(fr *frame, v value.Value) Pointer {
	p, ok := m.eval(fr, v).(Pointer)
	if !ok {
		panic(execErrorf("%s is not a pointer", v.Ident()))
	}

	return p
}

// evalConst evaluates a constant.
func (m *Machine) evalConst(c constant.Constant) Value {
	switch v := c.(type) {
	case *constant.Int:
		return normalize(v.X.Int64(), v.Typ)
	case *constant.Null:
		return Pointer{}
	case *constant.Undef:
		return zeroValue(v.Typ)
	case *constant.ZeroInitializer:
		return zeroValue(v.Typ)
	case *constant.Struct:
		agg := make(Aggregate, len(v.Fields))
		for i, field := range v.Fields {
			agg[i] = m.evalConst(field)
		}

		return agg
	case *constant.Array:
		agg := make(Aggregate, len(v.Elems))
		for i, elem := range v.Elems {
			agg[i] = m.evalConst(elem)
		}

		return agg
	case *constant.CharArray:
		agg := make(Aggregate, len(v.X))
		for i, b := range v.X {
			agg[i] = int64(int8(b))
		}

		return agg
	case *ir.Func:
		return Pointer{fn: v}
	case *ir.Global:
		return Pointer{obj: m.globals[v]}
	case *constant.ExprGetElementPtr:
		indices := make([]int64, len(v.Indices))
		for i, index := range v.Indices {
			indices[i] = m.evalConst(index).(int64)
		}

		return gep(v.ElemType, m.evalConst(v.Src).(Pointer), indices)
	case *constant.ExprBitCast:
		return m.evalConst(v.From)
	case *constant.ExprPtrToInt:
		return m.ptrToInt(m.evalConst(v.From).(Pointer))
	}

	panic(execErrorf("unsupported constant %T", c))
}

// zeroValue returns the zero value of typ.
func zeroValue(typ types.Type) Value {
	switch t := typ.(type) {
	case *types.IntType:
		return int64(0)
	case *types.PointerType:
		return Pointer{}
	case *types.StructType:
		agg := make(Aggregate, len(t.Fields))
		for i, field := range t.Fields {
			agg[i] = zeroValue(field)
		}

		return agg
	case *types.ArrayType:
		agg := make(Aggregate, t.Len)
		for i := range agg {
			agg[i] = zeroValue(t.ElemType)
		}

		return agg
	}

	panic(execErrorf("no zero value for type %s", typ))
}

// -----------------------------------------------------------------------------

// gep computes an element address.  The first index steps over whole elements
// of elemType and the rest select fields and elements within it.
func gep(elemType types.Type, p Pointer, indices []int64) Pointer {
	if len(indices) == 0 {
		return p
	}

	off := p.off + indices[0]*sizeOf(elemType)

	typ := elemType
	for _, index := range indices[1:] {
		switch t := typ.(type) {
		case *types.StructType:
			off += fieldOffset(t, int(index))
			typ = t.Fields[index]
		case *types.ArrayType:
			// indexing past the declared length is allowed: trailing arrays
			// are sized by their allocation
			off += index * sizeOf(t.ElemType)
			typ = t.ElemType
		default:
			panic(execErrorf("cannot index into %s", typ))
		}
	}

	return Pointer{obj: p.obj, off: off, fn: p.fn}
}

// extract reads an element of an aggregate.
func extract(v Value, indices []uint64) Value {
	for _, index := range indices {
		v = v.(Aggregate)[index]
	}

	return v
}

// insert returns a copy of an aggregate with one element replaced.
func insert(v, elem Value, indices []uint64) Value {
	if len(indices) == 0 {
		return elem
	}

	agg := append(Aggregate(nil), v.(Aggregate)...)
	agg[indices[0]] = insert(agg[indices[0]], elem, indices[1:])
	return agg
}

// normalize wraps n to the width of typ.  Booleans are kept as 0 or 1 and
// every other width is sign extended.
func normalize(n int64, typ *types.IntType) int64 {
	bits := int64(typ.BitSize)
	switch {
	case bits == 1:
		return n & 1
	case bits >= 64:
		return n
	}

	shift := 64 - bits
	return n << shift >> shift
}

// zext zero extends n from typ.
func zext(n int64, typ *types.IntType) int64 {
	bits := int64(typ.BitSize)
	if bits >= 64 {
		return n
	}

	return n & (int64(1)<<bits - 1)
}

// icmp compares two integers or pointers.
func icmp(pred enum.IPred, typ types.Type, x, y Value) Value {
	var result bool
	if px, ok := x.(Pointer); ok {
		py := y.(Pointer)
		switch pred {
		case enum.IPredEQ:
			result = px == py
		case enum.IPredNE:
			result = px != py
		default:
			panic(execErrorf("unsupported pointer comparison %s", pred))
		}
	} else {
		a, b := x.(int64), y.(int64)
		it := typ.(*types.IntType)
		ua, ub := uint64(zext(a, it)), uint64(zext(b, it))

		switch pred {
		case enum.IPredEQ:
			result = a == b
		case enum.IPredNE:
			result = a != b
		case enum.IPredSLT:
			result = a < b
		case enum.IPredSLE:
			result = a <= b
		case enum.IPredSGT:
			result = a > b
		case enum.IPredSGE:
			result = a >= b
		case enum.IPredULT:
			result = ua < ub
		case enum.IPredULE:
			result = ua <= ub
		case enum.IPredUGT:
			result = ua > ub
		case enum.IPredUGE:
			result = ua >= ub
		default:
			panic(execErrorf("unsupported comparison %s", pred))
		}
	}

	if result {
		return int64(1)
	}

	return int64(0)
}
