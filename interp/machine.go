// Package interp executes the subset of LLVM IR emitted by the generator
// together with the native runtime it is linked against.  It is used to run
// programs without a native toolchain and to observe their memory behavior.
package interp

import (
	"errors"
	"fmt"
	"io"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/types"
)

// Value is a runtime value: an int64 for every integer type (booleans are 0
// or 1), a Pointer, or an Aggregate.
type Value interface{}

// ErrTrap is returned when the program executes `llvm.trap`.
var ErrTrap = errors.New("trap")

// ExternFunc implements an external function for the program.
type ExternFunc func(m *Machine, args []Value) (Value, error)

// maxCallDepth bounds recursion in the executed program.
const maxCallDepth = 10000

// Machine executes the functions of a single module.  A machine is not safe
// for concurrent use.
type Machine struct {
	mod    *ir.Module
	stdout io.Writer

	funcs   map[string]*ir.Func
	globals map[*ir.Global]*object
	externs map[string]ExternFunc

	// heap is the set of live heap objects.
	heap map[*object]struct{}

	objectCounter int
	nextAddr      int64
	depth         int
}

// New creates a machine for mod.  Everything the program prints is written to
// stdout.
func New(mod *ir.Module, stdout io.Writer) *Machine {
	m := &Machine{
		mod:      mod,
		stdout:   stdout,
		funcs:    make(map[string]*ir.Func),
		globals:  make(map[*ir.Global]*object),
		externs:  make(map[string]ExternFunc),
		heap:     make(map[*object]struct{}),
		nextAddr: 0x1000,
	}

	for _, fn := range mod.Funcs {
		m.funcs[fn.Name()] = fn
	}

	for _, glob := range mod.Globals {
		m.globals[glob] = m.allocate(sizeOf(glob.ContentType), globalObject)
	}

	// initializers may refer to other globals so they are evaluated once every
	// global has storage
	for glob, obj := range m.globals {
		if glob.Init != nil {
			m.store(glob.ContentType, m.evalConst(glob.Init), Pointer{obj: obj})
		}
	}

	return m
}

// RegisterExtern provides the implementation of an external function.
func (m *Machine) RegisterExtern(name string, fn ExternFunc) {
	m.externs[name] = fn
}

// Call calls the function named name with args and returns its result.
func (m *Machine) Call(name string, args ...Value) (result Value, err error) {
	fn, ok := m.funcs[name]
	if !ok {
		return nil, fmt.Errorf("no function named `%s`", name)
	}

	defer catch(&err)

	m.depth = 0
	return m.call(fn, args), nil
}

// LiveObjects returns the number of heap objects that have been allocated but
// not freed.
func (m *Machine) LiveObjects() int {
	return len(m.heap)
}

// Global returns a pointer to the global named name.
func (m *Machine) Global(name string) (Pointer, bool) {
	for glob, obj := range m.globals {
		if glob.Name() == name {
			return Pointer{obj: obj}, true
		}
	}

	return Pointer{}, false
}

// RefCount reads the count in the control block of the heap object p points
// to.
func (m *Machine) RefCount(p Pointer) (count int64, err error) {
	defer catch(&err)

	return m.load(types.I64, p).(int64), nil
}

// ReadString reads the zero terminated character data at p.
func (m *Machine) ReadString(p Pointer) (s string, err error) {
	defer catch(&err)

	return string(m.cString(p)), nil
}

// strCharsOffset is the offset of the characters in a string object: they
// follow the control block and the length.
const strCharsOffset = 16

// StrContents reads the characters of the string object p points to.
func (m *Machine) StrContents(p Pointer) (s string, err error) {
	defer catch(&err)

	p.off += strCharsOffset
	return string(m.cString(p)), nil
}

// -----------------------------------------------------------------------------

// execError aborts execution.  It is raised as a panic and converted back into
// an error at the API boundary.
type execError struct {
	err error
}

func (ee *execError) unwrap() error {
	return ee.err
}

// catch converts an execError raised during execution into *err.  It must be
// deferred directly.
func catch(err *error) {
	if x := recover(); x != nil {
		if ee, ok := x.(*execError); ok {
			*err = ee.unwrap()
			return
		}

		panic(x)
	}
}

func execErrorf(format string, args ...interface{}) *execError {
	return &execError{err: fmt.Errorf(format, args...)}
}
