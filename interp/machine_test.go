package interp

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"midas/common"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"
)

// runtime holds the declarations of the native runtime in a test module.
type runtime struct {
	malloc, free, trap                  *ir.Func
	initStr, eqStr, printStr, intToCStr *ir.Func
}

func newModule() (*ir.Module, *runtime) {
	mod := ir.NewModule()
	i8Ptr := types.I8Ptr

	rt := &runtime{
		malloc: mod.NewFunc(common.RTMalloc, i8Ptr, ir.NewParam("size", types.I64)),
		free:   mod.NewFunc(common.RTFree, types.Void, ir.NewParam("ptr", i8Ptr)),
		trap:   mod.NewFunc(common.RTTrap, types.Void),
		initStr: mod.NewFunc(
			common.RTInitStr, types.Void,
			ir.NewParam("newStr", i8Ptr), ir.NewParam("chars", i8Ptr), ir.NewParam("len", types.I32),
		),
		eqStr:    mod.NewFunc(common.RTEqStr, types.I8, ir.NewParam("a", i8Ptr), ir.NewParam("b", i8Ptr)),
		printStr: mod.NewFunc(common.RTPrintStr, types.Void, ir.NewParam("a", i8Ptr)),
		intToCStr: mod.NewFunc(
			common.RTIntToCStr, types.Void,
			ir.NewParam("n", types.I32), ir.NewParam("dest", i8Ptr), ir.NewParam("destSize", types.I32),
		),
	}

	return mod, rt
}

func i32(n int64) *constant.Int { return constant.NewInt(types.I32, n) }
func i64(n int64) *constant.Int { return constant.NewInt(types.I64, n) }

// chars creates a global holding s and returns a pointer to its first byte.
func chars(mod *ir.Module, name, s string) value.Value {
	glob := mod.NewGlobalDef(name, constant.NewCharArrayFromString(s))
	glob.Immutable = true
	return constant.NewGetElementPtr(glob.ContentType, glob, i32(0), i32(0))
}

// expectError calls fn and checks that it fails with a message containing
// want.
func expectError(t *testing.T, mod *ir.Module, fn, want string) {
	t.Helper()

	_, err := New(mod, &bytes.Buffer{}).Call(fn)
	if err == nil {
		t.Fatalf("expected `%s` to fail", fn)
	}

	if !strings.Contains(err.Error(), want) {
		t.Errorf("unexpected error %q", err)
	}
}

// -----------------------------------------------------------------------------

func TestHeapErrors(t *testing.T) {
	mod, rt := newModule()

	doubleFree := mod.NewFunc("doubleFree", types.Void)
	entry := doubleFree.NewBlock("entry")
	p := entry.NewCall(rt.malloc, i64(8))
	entry.NewCall(rt.free, p)
	entry.NewCall(rt.free, p)
	entry.NewRet(nil)

	useAfterFree := mod.NewFunc("useAfterFree", types.I64)
	entry = useAfterFree.NewBlock("entry")
	p = entry.NewCall(rt.malloc, i64(8))
	n := entry.NewBitCast(p, types.NewPointer(types.I64))
	entry.NewStore(i64(1), n)
	entry.NewCall(rt.free, p)
	entry.NewRet(entry.NewLoad(types.I64, n))

	uninit := mod.NewFunc("uninit", types.I64)
	entry = uninit.NewBlock("entry")
	p = entry.NewCall(rt.malloc, i64(8))
	entry.NewRet(entry.NewLoad(types.I64, entry.NewBitCast(p, types.NewPointer(types.I64))))

	overrun := mod.NewFunc("overrun", types.Void)
	entry = overrun.NewBlock("entry")
	p = entry.NewCall(rt.malloc, i64(4))
	entry.NewStore(i64(1), entry.NewBitCast(p, types.NewPointer(types.I64)))
	entry.NewRet(nil)

	expectError(t, mod, "doubleFree", "double free")
	expectError(t, mod, "useAfterFree", "use after free")
	expectError(t, mod, "uninit", "uninitialized")
	expectError(t, mod, "overrun", "out of bounds")
}

func TestLiveObjects(t *testing.T) {
	mod, rt := newModule()

	leak := mod.NewFunc("leak", types.I8Ptr)
	entry := leak.NewBlock("entry")
	entry.NewCall(rt.free, entry.NewCall(rt.malloc, i64(8)))
	entry.NewRet(entry.NewCall(rt.malloc, i64(16)))

	m := New(mod, &bytes.Buffer{})
	if _, err := m.Call("leak"); err != nil {
		t.Fatalf("call failed: %s", err)
	}

	if m.LiveObjects() != 1 {
		t.Errorf("expected 1 live object but found %d", m.LiveObjects())
	}
}

func TestTrap(t *testing.T) {
	mod, rt := newModule()

	fn := mod.NewFunc("main", types.Void)
	entry := fn.NewBlock("entry")
	entry.NewCall(rt.trap)
	entry.NewUnreachable()

	_, err := New(mod, &bytes.Buffer{}).Call("main")
	if !errors.Is(err, ErrTrap) {
		t.Errorf("expected a trap but got %v", err)
	}
}

// -----------------------------------------------------------------------------

func TestStringLibrary(t *testing.T) {
	mod, rt := newModule()
	hello := chars(mod, "hello", "hello\x00")

	// initializes a copy of hello, prints it and compares it to the original
	fn := mod.NewFunc("main", types.I8)
	entry := fn.NewBlock("entry")
	str := entry.NewCall(rt.malloc, i64(6))
	entry.NewCall(rt.initStr, str, hello, i32(5))
	entry.NewCall(rt.printStr, str)
	entry.NewRet(entry.NewCall(rt.eqStr, str, hello))

	stdout := &bytes.Buffer{}
	result, err := New(mod, stdout).Call("main")
	if err != nil {
		t.Fatalf("call failed: %s", err)
	}

	if result != int64(1) {
		t.Errorf("copied string compared unequal: %v", result)
	}

	// print never adds a newline
	if stdout.String() != "hello" {
		t.Errorf("unexpected output %q", stdout.String())
	}

	bad := mod.NewFunc("bad", types.Void)
	entry = bad.NewBlock("entry")
	entry.NewCall(rt.initStr, entry.NewCall(rt.malloc, i64(4)), chars(mod, "zero", "a\x00b\x00"), i32(3))
	entry.NewRet(nil)

	expectError(t, mod, "bad", "zero byte")
}

func TestIntToCStr(t *testing.T) {
	cases := []struct {
		n        int64
		destSize int64
		want     string
	}{
		{-12345, 21, "-12345"},
		{-12345, 4, "-12"},
		{0, 2, "0"},
		{2147483647, 21, "2147483647"},
	}

	for _, c := range cases {
		mod, rt := newModule()

		fn := mod.NewFunc("main", types.I8Ptr)
		entry := fn.NewBlock("entry")
		buf := entry.NewCall(rt.malloc, i64(c.destSize))
		entry.NewCall(rt.intToCStr, i32(c.n), buf, i32(c.destSize))
		entry.NewRet(buf)

		m := New(mod, &bytes.Buffer{})
		result, err := m.Call("main")
		if err != nil {
			t.Fatalf("call failed: %s", err)
		}

		s, err := m.ReadString(result.(Pointer))
		if err != nil || s != c.want {
			t.Errorf("formatting %d into %d bytes: expected %q but got %q (%v)", c.n, c.destSize, c.want, s, err)
		}
	}
}

func TestRegisterExtern(t *testing.T) {
	mod, _ := newModule()
	double := mod.NewFunc("double", types.I64, ir.NewParam("n", types.I64))

	fn := mod.NewFunc("main", types.I64)
	entry := fn.NewBlock("entry")
	entry.NewRet(entry.NewCall(double, i64(21)))

	m := New(mod, &bytes.Buffer{})
	if _, err := m.Call("main"); err == nil {
		t.Error("call to an unregistered extern succeeded")
	}

	m.RegisterExtern("double", func(m *Machine, args []Value) (Value, error) {
		return args[0].(int64) * 2, nil
	})

	result, err := m.Call("main")
	if err != nil {
		t.Fatalf("call failed: %s", err)
	}

	if result != int64(42) {
		t.Errorf("expected 42 but got %v", result)
	}
}
