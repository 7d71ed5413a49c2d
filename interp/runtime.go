package interp

import (
	"strconv"

	"midas/common"
)

// callExtern calls a function the module only declares: either part of the
// native runtime or registered with RegisterExtern.
func (m *Machine) callExtern(name string, args []Value) Value {
	if fn, ok := m.externs[name]; ok {
		result, err := fn(m, args)
		if err != nil {
			panic(&execError{err: err})
		}

		return result
	}

	switch name {
	case common.RTMalloc:
		size := args[0].(int64)
		if size < 0 {
			panic(execErrorf("malloc of negative size %d", size))
		}

		return Pointer{obj: m.allocate(size, heapObject)}
	case common.RTFree:
		m.free(args[0].(Pointer))
		return nil
	case common.RTTrap:
		panic(&execError{err: ErrTrap})
	case "strlen":
		return int64(len(m.cString(args[0].(Pointer))))
	case common.RTInitStr:
		m.initStr(args[0].(Pointer), args[1].(Pointer), args[2].(int64))
		return nil
	case common.RTAddStr:
		m.addStr(args[0].(Pointer), args[1].(Pointer), args[2].(Pointer))
		return nil
	case common.RTEqStr:
		return m.eqStr(args[0].(Pointer), args[1].(Pointer))
	case common.RTPrintStr:
		if _, err := m.stdout.Write(m.cString(args[0].(Pointer))); err != nil {
			panic(&execError{err: err})
		}

		return nil
	case common.RTIntToCStr:
		m.intToCStr(args[0].(int64), args[1].(Pointer), args[2].(int64))
		return nil
	}

	panic(execErrorf("call to undefined function `%s`", name))
}

// cString reads the bytes before the terminator at p.
func (m *Machine) cString(p Pointer) []byte {
	var buf []byte
	for i := int64(0); ; i++ {
		b := m.readByte(p, i)
		if b == 0 {
			return buf
		}

		buf = append(buf, b)
	}
}

// initStr copies length bytes from chars into newStr and terminates it.  None
// of the copied bytes may be zero.
func (m *Machine) initStr(newStr, chars Pointer, length int64) {
	for i := int64(0); i < length; i++ {
		b := m.readByte(chars, i)
		if b == 0 {
			panic(execErrorf("assertion failed: zero byte at %d in string of length %d", i, length))
		}

		m.writeByte(newStr, i, b)
	}

	m.writeByte(newStr, length, 0)
}

// addStr writes a followed by b into dest with a single terminator.  The
// caller sizes dest to hold both.
func (m *Machine) addStr(a, b, dest Pointer) {
	var n int64
	for _, src := range []Pointer{a, b} {
		for _, c := range m.cString(src) {
			m.writeByte(dest, n, c)
			n++
		}
	}

	m.writeByte(dest, n, 0)
}

// eqStr compares a and b byte for byte up to and including the terminator.
func (m *Machine) eqStr(a, b Pointer) int64 {
	for i := int64(0); ; i++ {
		ca, cb := m.readByte(a, i), m.readByte(b, i)
		if ca != cb {
			return 0
		}

		if ca == 0 {
			return 1
		}
	}
}

// intToCStr formats n in base 10 into dest writing at most destSize bytes
// including the terminator.
func (m *Machine) intToCStr(n int64, dest Pointer, destSize int64) {
	if destSize <= 0 {
		return
	}

	s := strconv.FormatInt(int64(int32(n)), 10)
	if int64(len(s)) > destSize-1 {
		s = s[:destSize-1]
	}

	for i := 0; i < len(s); i++ {
		m.writeByte(dest, int64(i), s[i])
	}

	m.writeByte(dest, int64(len(s)), 0)
}
