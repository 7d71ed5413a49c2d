package generate

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"midas/interp"
	"midas/mirload"
	"midas/report"

	"github.com/llir/llvm/ir"
)

// generate loads src and generates it with opts.  Internal compiler errors are
// returned rather than raised.
func generate(t *testing.T, src string, opts Options) (*ir.Module, error) {
	t.Helper()

	prog, err := mirload.Parse([]byte(src))
	if err != nil {
		t.Fatalf("failed to load program: %s", err)
	}

	var mod *ir.Module
	err = report.Recover(func() {
		mod = NewGenerator(prog, opts).Generate()
	})

	return mod, err
}

// mustGenerate generates src with opts and fails the test on any internal
// compiler error.
func mustGenerate(t *testing.T, src string, opts Options) *ir.Module {
	t.Helper()

	mod, err := generate(t, src, opts)
	if err != nil {
		t.Fatalf("generation failed: %s", err)
	}

	return mod
}

// execute runs fn of mod and returns its result, the machine and everything
// it printed.
func execute(t *testing.T, mod *ir.Module, fn string, args ...interp.Value) (interp.Value, *interp.Machine, string) {
	t.Helper()

	stdout := &bytes.Buffer{}
	m := interp.New(mod, stdout)
	result, err := m.Call(fn, args...)
	if err != nil {
		t.Fatalf("`%s` failed: %s\n%s", fn, err, mod)
	}

	return result, m, stdout.String()
}

func expectInt(t *testing.T, result interp.Value, want int64) {
	t.Helper()

	if n, ok := result.(int64); !ok || n != want {
		t.Errorf("expected %d but got %v", want, result)
	}
}

func expectNoLeaks(t *testing.T, m *interp.Machine) {
	t.Helper()

	if n := m.LiveObjects(); n != 0 {
		t.Errorf("%d heap objects leaked", n)
	}
}

// -----------------------------------------------------------------------------

const arithExterns = `
externs:
  - {name: __addIntInt, params: [int, int], return: int}
  - {name: __multiplyIntInt, params: [int, int], return: int}
  - {name: __lessThanInt, params: [int, int], return: bool}
  - {name: __negateInt, params: [int], return: int}
`

func TestBlockValue(t *testing.T) {
	mod := mustGenerate(t, arithExterns+`
functions:
  - name: main
    return: int
    body:
      kind: Block
      exprs:
        - kind: Discard
          type: int
          source: {kind: ConstantI64, value: 7}
        - kind: ExternCall
          function: __addIntInt
          args:
            - {kind: ConstantI64, value: 2}
            - {kind: ConstantI64, value: 3}
`, Options{})

	result, m, _ := execute(t, mod, "main")
	expectInt(t, result, 5)
	expectNoLeaks(t, m)
}

func TestLocals(t *testing.T) {
	mod := mustGenerate(t, arithExterns+`
functions:
  - name: loadOpen
    return: int
    body:
      kind: Block
      exprs:
        - kind: Stackify
          local: {id: 0, name: x, type: int}
          source: {kind: ConstantI64, value: 5}
        - kind: Return
          type: int
          source: {kind: LocalLoad, local: {id: 0}}
  - name: swap
    return: int
    body:
      kind: Block
      exprs:
        - kind: Stackify
          local: {id: 0, name: x, type: int}
          source: {kind: ConstantI64, value: 5}
        - kind: Stackify
          local: {id: 1, name: old, type: int}
          source:
            kind: LocalStore
            local: {id: 0}
            source: {kind: ConstantI64, value: 9}
        - kind: ExternCall
          function: __addIntInt
          args:
            - kind: ExternCall
              function: __multiplyIntInt
              args:
                - {kind: Unstackify, local: {id: 1}}
                - {kind: ConstantI64, value: 100}
            - {kind: Unstackify, local: {id: 0}}
`, Options{})

	result, _, _ := execute(t, mod, "loadOpen")
	expectInt(t, result, 5)

	// the store yields the previous content and close yields the last one
	result, _, _ = execute(t, mod, "swap")
	expectInt(t, result, 509)
}

func TestLocalStoreSequence(t *testing.T) {
	mod := mustGenerate(t, arithExterns+`
functions:
  - name: main
    return: int
    body:
      kind: Block
      exprs:
        - kind: Stackify
          local: {id: 0, name: x, type: int}
          source: {kind: ConstantI64, value: 1}
        - kind: Stackify
          local: {id: 1, name: first, type: int}
          source:
            kind: LocalStore
            local: {id: 0}
            source: {kind: ConstantI64, value: 2}
        - kind: Stackify
          local: {id: 2, name: second, type: int}
          source:
            kind: LocalStore
            local: {id: 0}
            source: {kind: ConstantI64, value: 3}
        - kind: ExternCall
          function: __addIntInt
          args:
            - kind: ExternCall
              function: __multiplyIntInt
              args:
                - {kind: Unstackify, local: {id: 1}}
                - {kind: ConstantI64, value: 100}
            - kind: ExternCall
              function: __addIntInt
              args:
                - kind: ExternCall
                  function: __multiplyIntInt
                  args:
                    - {kind: Unstackify, local: {id: 2}}
                    - {kind: ConstantI64, value: 10}
                - {kind: Unstackify, local: {id: 0}}
`, Options{})

	// each store yields the value it replaced: 1 then 2, leaving 3
	result, _, _ := execute(t, mod, "main")
	expectInt(t, result, 123)
}

func TestIfAndWhile(t *testing.T) {
	mod := mustGenerate(t, arithExterns+`
functions:
  - name: pick
    params: [int]
    return: int
    body:
      kind: If
      type: int
      cond:
        kind: ExternCall
        function: __lessThanInt
        args:
          - {kind: Argument, index: 0, type: int}
          - {kind: ConstantI64, value: 10}
      then: {kind: ConstantI64, value: 1}
      else: {kind: ConstantI64, value: 2}
  - name: abs
    params: [int]
    return: int
    body:
      kind: If
      type: int
      cond:
        kind: ExternCall
        function: __lessThanInt
        args:
          - {kind: Argument, index: 0, type: int}
          - {kind: ConstantI64, value: 0}
      then:
        kind: Return
        type: int
        source:
          kind: ExternCall
          function: __negateInt
          args: [{kind: Argument, index: 0, type: int}]
      else:
        kind: Return
        type: int
        source: {kind: Argument, index: 0, type: int}
  - name: sum
    return: int
    body:
      kind: Block
      exprs:
        - kind: Stackify
          local: {id: 0, name: i, type: int}
          source: {kind: ConstantI64, value: 0}
        - kind: Stackify
          local: {id: 1, name: acc, type: int}
          source: {kind: ConstantI64, value: 0}
        - kind: While
          cond:
            kind: ExternCall
            function: __lessThanInt
            args:
              - {kind: LocalLoad, local: {id: 0}}
              - {kind: ConstantI64, value: 5}
          body:
            kind: Block
            exprs:
              - kind: Discard
                type: int
                source:
                  kind: LocalStore
                  local: {id: 1}
                  source:
                    kind: ExternCall
                    function: __addIntInt
                    args:
                      - {kind: LocalLoad, local: {id: 1}}
                      - {kind: LocalLoad, local: {id: 0}}
              - kind: Discard
                type: int
                source:
                  kind: LocalStore
                  local: {id: 0}
                  source:
                    kind: ExternCall
                    function: __addIntInt
                    args:
                      - {kind: LocalLoad, local: {id: 0}}
                      - {kind: ConstantI64, value: 1}
        - kind: Discard
          type: int
          source: {kind: Unstackify, local: {id: 0}}
        - {kind: Unstackify, local: {id: 1}}
`, Options{})

	result, _, _ := execute(t, mod, "pick", int64(3))
	expectInt(t, result, 1)
	result, _, _ = execute(t, mod, "pick", int64(30))
	expectInt(t, result, 2)

	result, _, _ = execute(t, mod, "abs", int64(-4))
	expectInt(t, result, 4)
	result, _, _ = execute(t, mod, "abs", int64(6))
	expectInt(t, result, 6)

	result, _, _ = execute(t, mod, "sum")
	expectInt(t, result, 10)
}

// -----------------------------------------------------------------------------

const boxProgram = arithExterns + `
structs:
  - name: Box
    members:
      - {name: v, type: int}
  - name: Point
    immutable: true
    members:
      - {name: x, type: int}
      - {name: y, type: int}
`

func TestMemberStoreAndDestroy(t *testing.T) {
	mod := mustGenerate(t, boxProgram+`
functions:
  - name: main
    return: int
    body:
      kind: Block
      exprs:
        - kind: Stackify
          local: {id: 0, name: b, type: own yonder Box}
          source:
            kind: NewStruct
            type: own yonder Box
            sources: [{kind: ConstantI64, value: 1}]
        - kind: Stackify
          local: {id: 1, name: old, type: int}
          source:
            kind: MemberStore
            type: borrow yonder Box
            member: v
            struct: {kind: LocalLoad, local: {id: 0}, ownership: borrow}
            source: {kind: ConstantI64, value: 2}
        - kind: Destroy
          type: own yonder Box
          struct: {kind: Unstackify, local: {id: 0}}
          locals: [{id: 2, name: v, type: int}]
        - kind: ExternCall
          function: __addIntInt
          args:
            - kind: ExternCall
              function: __multiplyIntInt
              args:
                - {kind: Unstackify, local: {id: 1}}
                - {kind: ConstantI64, value: 10}
            - {kind: Unstackify, local: {id: 2}}
`, Options{})

	result, m, _ := execute(t, mod, "main")
	expectInt(t, result, 12)
	expectNoLeaks(t, m)
}

func TestSharedRefcount(t *testing.T) {
	mod := mustGenerate(t, boxProgram+`
functions:
  - name: roundTrip
    return: int
    body:
      kind: Block
      exprs:
        - kind: Stackify
          local: {id: 0, name: s, type: share yonder Box}
          source:
            kind: NewStruct
            type: share yonder Box
            sources: [{kind: ConstantI64, value: 4}]
        - kind: Stackify
          local: {id: 1, name: t, type: share yonder Box}
          source: {kind: LocalLoad, local: {id: 0}}
        - kind: Discard
          type: share yonder Box
          source: {kind: Unstackify, local: {id: 1}}
        - kind: MemberLoad
          type: share yonder Box
          member: v
          struct: {kind: Unstackify, local: {id: 0}}
  - name: alias
    return: share yonder Box
    body:
      kind: Block
      exprs:
        - kind: Stackify
          local: {id: 0, name: s, type: share yonder Box}
          source:
            kind: NewStruct
            type: share yonder Box
            sources: [{kind: ConstantI64, value: 4}]
        - kind: Return
          type: share yonder Box
          source: {kind: LocalLoad, local: {id: 0}}
  - name: point
    return: int
    body:
      kind: MemberLoad
      type: share yonder Point
      member: y
      struct:
        kind: NewStruct
        type: share yonder Point
        sources:
          - {kind: ConstantI64, value: 1}
          - {kind: ConstantI64, value: 2}
`, Options{})

	result, m, _ := execute(t, mod, "roundTrip")
	expectInt(t, result, 4)
	expectNoLeaks(t, m)

	result, m, _ = execute(t, mod, "alias")
	count, err := m.RefCount(result.(interp.Pointer))
	if err != nil {
		t.Fatalf("failed to read count: %s", err)
	}

	if count != 2 {
		t.Errorf("expected a count of 2 but got %d", count)
	}

	result, m, _ = execute(t, mod, "point")
	expectInt(t, result, 2)
	expectNoLeaks(t, m)
}

func TestOwnLocalLoadedAsBorrow(t *testing.T) {
	mod := mustGenerate(t, boxProgram+`
functions:
  - name: lend
    return: own yonder Box
    body:
      kind: Block
      exprs:
        - kind: Stackify
          local: {id: 0, name: b, type: own yonder Box}
          source:
            kind: NewStruct
            type: own yonder Box
            sources: [{kind: ConstantI64, value: 4}]
        - kind: Discard
          type: borrow yonder Box
          source: {kind: LocalLoad, local: {id: 0}, ownership: borrow}
        - kind: Discard
          type: borrow yonder Box
          source: {kind: LocalLoad, local: {id: 0}, ownership: borrow}
        - {kind: Unstackify, local: {id: 0}}
  - name: main
    return: int
    body:
      kind: Block
      exprs:
        - kind: Stackify
          local: {id: 0, name: b, type: own yonder Box}
          source:
            kind: NewStruct
            type: own yonder Box
            sources: [{kind: ConstantI64, value: 4}]
        - kind: Stackify
          local: {id: 1, name: seen, type: int}
          source:
            kind: MemberLoad
            type: borrow yonder Box
            member: v
            struct: {kind: LocalLoad, local: {id: 0}, ownership: borrow}
        - kind: Destroy
          type: own yonder Box
          struct: {kind: Unstackify, local: {id: 0}}
          locals: [{id: 2, name: v, type: int}]
        - kind: ExternCall
          function: __addIntInt
          args:
            - {kind: Unstackify, local: {id: 1}}
            - {kind: Unstackify, local: {id: 2}}
`, Options{})

	// lending an owned object never touches its count
	result, m, _ := execute(t, mod, "lend")
	count, err := m.RefCount(result.(interp.Pointer))
	if err != nil {
		t.Fatalf("failed to read count: %s", err)
	}

	if count != 1 {
		t.Errorf("expected a count of 1 but got %d", count)
	}

	result, m, _ = execute(t, mod, "main")
	expectInt(t, result, 8)
	expectNoLeaks(t, m)
}

func TestInlineStructs(t *testing.T) {
	mod := mustGenerate(t, boxProgram+`
functions:
  - name: main
    return: int
    body:
      kind: MemberLoad
      type: share inline Point
      member: x
      struct:
        kind: NewStruct
        type: share inline Point
        sources:
          - {kind: ConstantI64, value: 8}
          - {kind: ConstantI64, value: 9}
`, Options{})

	result, m, _ := execute(t, mod, "main")
	expectInt(t, result, 8)
	expectNoLeaks(t, m)

	_, err := generate(t, boxProgram+`
functions:
  - name: main
    return: int
    body:
      kind: MemberStore
      type: own inline Box
      member: v
      struct:
        kind: NewStruct
        type: own inline Box
        sources: [{kind: ConstantI64, value: 1}]
      source: {kind: ConstantI64, value: 2}
`, Options{})

	var ierr *report.InternalError
	if !errors.As(err, &ierr) || !strings.Contains(ierr.Message, "inline struct") {
		t.Errorf("expected an internal error for a store into an inline struct, got %v", err)
	}
}

const holderProgram = `
externs:
  - {name: __strLength, params: [str], return: int}
structs:
  - name: Holder
    members:
      - {name: s, type: str}
functions:
  - name: main
    return: int
    body:
      kind: Block
      exprs:
        - kind: Stackify
          local: {id: 0, name: h, type: share inline Holder}
          source:
            kind: NewStruct
            type: share inline Holder
            sources: [{kind: ConstantStr, value: hi}]
        - kind: Discard
          type: share inline Holder
          source: {kind: LocalLoad, local: {id: 0}}
        - kind: ExternCall
          function: __strLength
          args:
            - kind: MemberLoad
              type: share inline Holder
              member: s
              struct: {kind: Unstackify, local: {id: 0}}
  - name: keep
    return: str
    body:
      kind: Block
      exprs:
        - kind: Stackify
          local: {id: 0, name: h, type: share inline Holder}
          source:
            kind: NewStruct
            type: share inline Holder
            sources: [{kind: ConstantStr, value: hi}]
        - kind: Discard
          type: share inline Holder
          source: {kind: LocalLoad, local: {id: 0}}
        - kind: Discard
          type: share inline Holder
          source: {kind: LocalLoad, local: {id: 0}}
        - kind: MemberLoad
          type: share inline Holder
          member: s
          struct: {kind: Unstackify, local: {id: 0}}
`

func TestInlineStructAliases(t *testing.T) {
	mod := mustGenerate(t, holderProgram, Options{})

	// discarding a loaded alias must leave the members held by the local
	result, m, _ := execute(t, mod, "main")
	expectInt(t, result, 2)
	expectNoLeaks(t, m)

	result, m, _ = execute(t, mod, "keep")
	count, err := m.RefCount(result.(interp.Pointer))
	if err != nil {
		t.Fatalf("failed to read count: %s", err)
	}

	if count != 1 || m.LiveObjects() != 1 {
		t.Errorf("expected one string with a count of 1 but found %d objects with a count of %d", m.LiveObjects(), count)
	}
}

// -----------------------------------------------------------------------------

const shapeProgram = arithExterns + `
interfaces:
  - name: Shape
    methods:
      - {name: area, params: [share yonder Shape], return: int}
structs:
  - name: Square
    members:
      - {name: side, type: int}
    implements:
      - {interface: Shape, methods: [squareArea]}
`

const squareArea = `
  - name: squareArea
    params: [share yonder Square]
    return: int
    body:
      kind: ExternCall
      function: __addIntInt
      args:
        - kind: MemberLoad
          type: share yonder Square
          member: side
          struct: {kind: Argument, index: 0, type: share yonder Square}
        - {kind: ConstantI64, value: 1}
`

func TestInterfaceCall(t *testing.T) {
	mod := mustGenerate(t, shapeProgram+`
functions:`+squareArea+`
  - name: main
    return: int
    body:
      kind: InterfaceCall
      interface: Shape
      method: 0
      args:
        - kind: StructToInterfaceUpcast
          type: share yonder Square
          interface: Shape
          source:
            kind: NewStruct
            type: share yonder Square
            sources: [{kind: ConstantI64, value: 5}]
  - name: upcast
    return: share yonder Shape
    body:
      kind: StructToInterfaceUpcast
      type: share yonder Square
      interface: Shape
      source:
        kind: NewStruct
        type: share yonder Square
        sources: [{kind: ConstantI64, value: 5}]
`, Options{})

	result, m, _ := execute(t, mod, "main")
	expectInt(t, result, 6)
	expectNoLeaks(t, m)

	result, m, _ = execute(t, mod, "upcast")
	itable, ok := m.Global("Square.Shape.itable")
	if !ok {
		t.Fatal("missing itable global")
	}

	fatRef, ok := result.(interp.Aggregate)
	if !ok || len(fatRef) != 2 {
		t.Fatalf("expected a fat reference but got %v", result)
	}

	if fatRef[1] != itable {
		t.Errorf("upcast refers to %v instead of the itable %v", fatRef[1], itable)
	}
}

func TestUpcastInlineStruct(t *testing.T) {
	_, err := generate(t, shapeProgram+`
functions:`+squareArea+`
  - name: main
    return: share yonder Shape
    body:
      kind: StructToInterfaceUpcast
      type: share inline Square
      interface: Shape
      source:
        kind: NewStruct
        type: share inline Square
        sources: [{kind: ConstantI64, value: 5}]
`, Options{})

	var ierr *report.InternalError
	if !errors.As(err, &ierr) || !strings.Contains(ierr.Message, "upcast of inline struct") {
		t.Errorf("expected an internal error for an inline upcast, got %v", err)
	}
}

func TestOwnInterfaceCall(t *testing.T) {
	mod := mustGenerate(t, `
interfaces:
  - name: Opener
    methods:
      - {name: open, params: [own yonder Opener], return: int}
structs:
  - name: Crate
    members:
      - {name: v, type: int}
    implements:
      - {interface: Opener, methods: [crateOpen]}
functions:
  - name: crateOpen
    params: [own yonder Crate]
    return: int
    body:
      kind: Block
      exprs:
        - kind: Destroy
          type: own yonder Crate
          struct: {kind: Argument, index: 0, type: own yonder Crate}
          locals: [{id: 0, name: v, type: int}]
        - {kind: Unstackify, local: {id: 0}}
  - name: main
    return: int
    body:
      kind: InterfaceCall
      interface: Opener
      method: 0
      args:
        - kind: StructToInterfaceUpcast
          type: own yonder Crate
          interface: Opener
          source:
            kind: NewStruct
            type: own yonder Crate
            sources: [{kind: ConstantI64, value: 7}]
`, Options{})

	// the implementation receives the owned object and destroys it
	result, m, _ := execute(t, mod, "main")
	expectInt(t, result, 7)
	expectNoLeaks(t, m)
}

// -----------------------------------------------------------------------------

const functorProgram = arithExterns + `
  - {name: __print, params: [str]}
  - {name: __castIntStr, params: [int], return: str}
interfaces:
  - name: Consumer
    methods:
      - {name: consume, params: [share yonder Consumer, int]}
  - name: Gen
    methods:
      - {name: generate, params: [share yonder Gen, int], return: int}
structs:
  - name: Printer
    implements:
      - {interface: Consumer, methods: [printerConsume]}
  - name: Squarer
    implements:
      - {interface: Gen, methods: [squarerGenerate]}
functions:
  - name: printerConsume
    params: [share yonder Printer, int]
    body:
      kind: Block
      exprs:
        - kind: Discard
          type: share yonder Printer
          source: {kind: Argument, index: 0, type: share yonder Printer}
        - kind: ExternCall
          function: __print
          args:
            - kind: ExternCall
              function: __castIntStr
              args: [{kind: Argument, index: 1, type: int}]
  - name: squarerGenerate
    params: [share yonder Squarer, int]
    return: int
    body:
      kind: Block
      exprs:
        - kind: Discard
          type: share yonder Squarer
          source: {kind: Argument, index: 0, type: share yonder Squarer}
        - kind: ExternCall
          function: __multiplyIntInt
          args:
            - {kind: Argument, index: 1, type: int}
            - {kind: Argument, index: 1, type: int}
`

func TestDestroyArrayIntoConsumer(t *testing.T) {
	mod := mustGenerate(t, functorProgram+`
  - name: main
    body:
      kind: DestroyKnownSizeArrayIntoFunction
      type: own yonder [3]<int>
      functor-type: share yonder Consumer
      array:
        kind: NewArrayFromValues
        type: own yonder [3]<int>
        sources:
          - {kind: ConstantI64, value: 1}
          - {kind: ConstantI64, value: 2}
          - {kind: ConstantI64, value: 3}
      functor:
        kind: StructToInterfaceUpcast
        type: share yonder Printer
        interface: Consumer
        source: {kind: NewStruct, type: share yonder Printer}
`, Options{})

	_, m, out := execute(t, mod, "main")
	if out != "123" {
		t.Errorf("elements consumed out of order: %q", out)
	}

	expectNoLeaks(t, m)
}

func TestConstructUnknownSizeArray(t *testing.T) {
	mod := mustGenerate(t, functorProgram+`
  - name: main
    return: int
    body:
      kind: Block
      exprs:
        - kind: Stackify
          local: {id: 0, name: a, type: "share yonder []<int>"}
          source:
            kind: ConstructUnknownSizeArray
            type: share yonder []<int>
            functor-type: share yonder Gen
            size: {kind: ConstantI64, value: 4}
            functor:
              kind: StructToInterfaceUpcast
              type: share yonder Squarer
              interface: Gen
              source: {kind: NewStruct, type: share yonder Squarer}
        - kind: Stackify
          local: {id: 1, name: n, type: int}
          source:
            kind: ArrayLength
            type: share yonder []<int>
            array: {kind: LocalLoad, local: {id: 0}}
        - kind: ExternCall
          function: __addIntInt
          args:
            - kind: UnknownSizeArrayLoad
              type: share yonder []<int>
              array: {kind: Unstackify, local: {id: 0}}
              at: {kind: ConstantI64, value: 3}
            - {kind: Unstackify, local: {id: 1}}
`, Options{})

	result, m, _ := execute(t, mod, "main")
	expectInt(t, result, 13)
	expectNoLeaks(t, m)
}

func TestDestroySharedArrays(t *testing.T) {
	mod := mustGenerate(t, functorProgram+`
  - name: unknown
    body:
      kind: Block
      exprs:
        - kind: Stackify
          local: {id: 0, name: a, type: "share yonder []<int>"}
          source:
            kind: ConstructUnknownSizeArray
            type: share yonder []<int>
            functor-type: share yonder Gen
            size: {kind: ConstantI64, value: 4}
            functor:
              kind: StructToInterfaceUpcast
              type: share yonder Squarer
              interface: Gen
              source: {kind: NewStruct, type: share yonder Squarer}
        - kind: DestroyUnknownSizeArray
          type: share yonder []<int>
          functor-type: share yonder Consumer
          array: {kind: Unstackify, local: {id: 0}}
          functor:
            kind: StructToInterfaceUpcast
            type: share yonder Printer
            interface: Consumer
            source: {kind: NewStruct, type: share yonder Printer}
  - name: known
    body:
      kind: DestroyKnownSizeArrayIntoFunction
      type: share yonder [2]<int>
      functor-type: share yonder Consumer
      array:
        kind: NewArrayFromValues
        type: share yonder [2]<int>
        sources:
          - {kind: ConstantI64, value: 5}
          - {kind: ConstantI64, value: 6}
      functor:
        kind: StructToInterfaceUpcast
        type: share yonder Printer
        interface: Consumer
        source: {kind: NewStruct, type: share yonder Printer}
`, Options{})

	_, m, out := execute(t, mod, "unknown")
	if out != "0149" {
		t.Errorf("elements consumed out of order: %q", out)
	}

	expectNoLeaks(t, m)

	_, m, out = execute(t, mod, "known")
	if out != "56" {
		t.Errorf("elements consumed out of order: %q", out)
	}

	expectNoLeaks(t, m)
}

// -----------------------------------------------------------------------------

const indexProgram = `
functions:
  - name: main
    params: [int]
    return: int
    body:
      kind: KnownSizeArrayLoad
      type: share yonder [3]<int>
      array:
        kind: NewArrayFromValues
        type: share yonder [3]<int>
        sources:
          - {kind: ConstantI64, value: 10}
          - {kind: ConstantI64, value: 20}
          - {kind: ConstantI64, value: 30}
      at: {kind: Argument, index: 0, type: int}
`

func TestBoundsCheck(t *testing.T) {
	mod := mustGenerate(t, indexProgram, Options{BoundsCheck: BoundsTrap})

	result, m, _ := execute(t, mod, "main", int64(1))
	expectInt(t, result, 20)
	expectNoLeaks(t, m)

	for _, index := range []int64{3, -1} {
		m := interp.New(mod, &bytes.Buffer{})
		if _, err := m.Call("main", index); !errors.Is(err, interp.ErrTrap) {
			t.Errorf("index %d: expected a trap but got %v", index, err)
		}
	}

	mod = mustGenerate(t, indexProgram, Options{BoundsCheck: BoundsUnchecked})
	if strings.Contains(mod.String(), "call void @llvm.trap()") {
		t.Error("unchecked indexing still emits a trap")
	}

	result, _, _ = execute(t, mod, "main", int64(2))
	expectInt(t, result, 30)
}

func TestStrings(t *testing.T) {
	mod := mustGenerate(t, `
externs:
  - {name: __addStrStr, params: [str, str], return: str}
  - {name: __eqStrStr, params: [str, str], return: bool}
  - {name: __castIntStr, params: [int], return: str}
  - {name: __strLength, params: [str], return: int}
  - {name: __print, params: [str]}
functions:
  - name: equal
    return: bool
    body:
      kind: ExternCall
      function: __eqStrStr
      args:
        - kind: ExternCall
          function: __addStrStr
          args:
            - {kind: ConstantStr, value: ab}
            - {kind: ConstantStr, value: cd}
        - {kind: ConstantStr, value: abcd}
  - name: length
    return: int
    body:
      kind: ExternCall
      function: __strLength
      args:
        - kind: ExternCall
          function: __castIntStr
          args: [{kind: ConstantI64, value: -123}]
  - name: concat
    return: str
    body:
      kind: ExternCall
      function: __addStrStr
      args:
        - {kind: ConstantStr, value: foo}
        - {kind: ConstantStr, value: bar}
  - name: main
    body:
      kind: ExternCall
      function: __print
      args: [{kind: ConstantStr, value: "hello"}]
`, Options{})

	result, m, _ := execute(t, mod, "equal")
	expectInt(t, result, 1)
	expectNoLeaks(t, m)

	result, m, _ = execute(t, mod, "length")
	expectInt(t, result, 4)
	expectNoLeaks(t, m)

	result, m, _ = execute(t, mod, "concat")
	s, err := m.StrContents(result.(interp.Pointer))
	if err != nil || s != "foobar" {
		t.Errorf("expected foobar but got %q (%v)", s, err)
	}

	if m.LiveObjects() != 1 {
		t.Errorf("expected only the result to be live but found %d objects", m.LiveObjects())
	}

	_, m, out := execute(t, mod, "main")
	if out != "hello" {
		t.Errorf("unexpected output %q", out)
	}

	expectNoLeaks(t, m)
}

func TestFlares(t *testing.T) {
	src := `
functions:
  - name: main
    return: int
    body:
      kind: Block
      exprs: [{kind: ConstantI64, value: 7}]
`

	_, _, out := execute(t, mustGenerate(t, src, Options{Flares: true}), "main")
	if out != "flare: Block\nflare: ConstantI64\n" {
		t.Errorf("unexpected flares %q", out)
	}

	_, _, out = execute(t, mustGenerate(t, src, Options{}), "main")
	if out != "" {
		t.Errorf("flares emitted while disabled: %q", out)
	}
}

func TestInternalErrors(t *testing.T) {
	cases := map[string]struct {
		body    string
		message string
	}{
		"empty block": {
			body:    "{kind: Block, exprs: []}",
			message: "empty block",
		},
		"code after return": {
			body: `
      kind: Block
      exprs:
        - {kind: Return, type: int, source: {kind: ConstantI64, value: 1}}
        - {kind: ConstantI64, value: 2}`,
			message: "unreachable ConstantI64 after divergent expression",
		},
		"load of closed local": {
			body: `
      kind: Block
      exprs:
        - {kind: Stackify, local: {id: 0, type: int}, source: {kind: ConstantI64, value: 1}}
        - {kind: Discard, type: int, source: {kind: Unstackify, local: {id: 0}}}
        - {kind: LocalLoad, local: {id: 0}}`,
			message: "is not open",
		},
		"argument out of range": {
			body:    "{kind: Argument, index: 2, type: int}",
			message: "argument 2 is out of range",
		},
	}

	for name, c := range cases {
		_, err := generate(t, `
functions:
  - name: main
    return: int
    body: `+c.body+"\n", Options{})

		var ierr *report.InternalError
		if !errors.As(err, &ierr) {
			t.Errorf("%s: expected an internal error but got %v", name, err)
			continue
		}

		if !strings.Contains(ierr.Message, c.message) {
			t.Errorf("%s: unexpected message %q", name, ierr.Message)
		}
	}
}
