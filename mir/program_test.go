package mir

import (
	"strings"
	"testing"
)

// shapes builds a program with one interface implemented by one struct.
func shapes(implName string) *Program {
	p := NewProgram()

	p.AddStruct(&StructDefinition{
		Name:    "Square",
		Members: []*StructMember{{Name: "side", Type: IntRef}},
		Edges: []*Edge{{
			Struct:    p.StructRef("Square"),
			Interface: p.InterfaceRef("Shape"),
			Methods:   []*Prototype{{Name: implName, ID: Unresolved}},
		}},
		ID: Unresolved,
	})

	p.AddInterface(&InterfaceDefinition{
		Name: "Shape",
		Methods: []*Prototype{{
			Name:   "area",
			Params: []*Reference{NewRef(Share, Yonder, p.InterfaceRef("Shape"))},
			Return: IntRef,
			ID:     Unresolved,
		}},
		ID: Unresolved,
	})

	p.AddExtern(&Prototype{Name: "__addIntInt", Params: []*Reference{IntRef, IntRef}, Return: IntRef})
	p.AddFunction(&Function{
		Prototype: &Prototype{
			Name:   "squareArea",
			Params: []*Reference{NewRef(Share, Yonder, p.StructRef("Square"))},
			Return: IntRef,
		},
		Body: &ConstantI64{Value: 1},
	})

	return p
}

func TestResolve(t *testing.T) {
	p := shapes("squareArea")
	if err := p.Resolve(); err != nil {
		t.Fatalf("resolve failed: %s", err)
	}

	if !p.Resolved() {
		t.Error("program not marked resolved")
	}

	if sr := p.StructRef("Square"); sr.ID != 0 || p.Struct(sr.ID).Name != "Square" {
		t.Errorf("struct resolved to %d", sr.ID)
	}

	if ir := p.InterfaceRef("Shape"); ir.ID != 0 || p.Interface(ir.ID).Name != "Shape" {
		t.Errorf("interface resolved to %d", ir.ID)
	}

	// externs are numbered after the functions
	if id := p.Externs[0].ID; id != 1 {
		t.Errorf("extern resolved to %d", id)
	}

	ndx, ok := p.EdgeIndex(0, 0)
	if !ok || ndx != 0 || len(p.Edges()) != 1 {
		t.Fatalf("edge not registered")
	}

	// the edge must refer to the function's own prototype
	if p.Edges()[0].Methods[0] != p.Functions[0].Prototype {
		t.Error("edge method was not replaced by the function prototype")
	}

	if _, ok := p.EdgeIndex(0, 1); ok {
		t.Error("found an edge that does not exist")
	}
}

func TestResolveErrors(t *testing.T) {
	cases := map[string]struct {
		build   func() *Program
		message string
	}{
		"undefined implementation": {
			build:   func() *Program { return shapes("circleArea") },
			message: "undefined function `circleArea`",
		},
		"duplicate struct": {
			build: func() *Program {
				p := shapes("squareArea")
				p.AddStruct(&StructDefinition{Name: "Square"})
				return p
			},
			message: "struct `Square` defined multiple times",
		},
		"undefined struct": {
			build: func() *Program {
				p := shapes("squareArea")
				p.StructRef("Circle")
				return p
			},
			message: "undefined struct `Circle`",
		},
		"extern collision": {
			build: func() *Program {
				p := shapes("squareArea")
				p.AddExtern(&Prototype{Name: "squareArea", Return: IntRef})
				return p
			},
			message: "extern `squareArea` collides",
		},
		"missing method": {
			build: func() *Program {
				p := shapes("squareArea")
				p.Structs[0].Edges[0].Methods = nil
				return p
			},
			message: "implements 0 of the 1 methods",
		},
	}

	for name, c := range cases {
		p := c.build()
		err := p.Resolve()
		if err == nil {
			t.Errorf("%s: expected an error", name)
			continue
		}

		if !strings.Contains(err.Error(), c.message) {
			t.Errorf("%s: unexpected error %q", name, err)
		}

		if p.Resolved() {
			t.Errorf("%s: program marked resolved", name)
		}
	}
}

func TestReferenceStrings(t *testing.T) {
	elem := NewRef(Share, Inline, &Int{})
	cases := []struct {
		ref  *Reference
		want string
	}{
		{IntRef, "share inline int"},
		{StrRef, "share yonder str"},
		{NewRef(Own, Yonder, &KnownSizeArrayT{Size: 3, Elem: elem}), "own yonder [3]<share inline int>"},
		{NewRef(Borrow, Yonder, &UnknownSizeArrayT{Elem: elem}), "borrow yonder []<share inline int>"},
	}

	for _, c := range cases {
		if got := c.ref.String(); got != c.want {
			t.Errorf("expected %s but got %s", c.want, got)
		}
	}

	if !StrRef.IsHeap() || IntRef.IsHeap() {
		t.Error("wrong location for primitive references")
	}
}

func TestKindName(t *testing.T) {
	cases := map[string]Expr{
		"ConstantI64":                       &ConstantI64{},
		"MemberLoad":                        &MemberLoad{},
		"DestroyKnownSizeArrayIntoFunction": &DestroyKnownSizeArrayIntoFunction{},
	}

	for want, expr := range cases {
		if got := KindName(expr); got != want {
			t.Errorf("expected %s but got %s", want, got)
		}
	}
}
