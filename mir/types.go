package mir

import "fmt"

// Ownership is the ownership qualifier of a reference.
type Ownership int

// Enumeration of ownership qualifiers.
const (
	Own    Ownership = iota // Unique, deterministically freed.
	Borrow                  // Non-owning view, never frees.
	Share                   // Reference counted, freed at zero.
)

func (o Ownership) String() string {
	switch o {
	case Own:
		return "own"
	case Borrow:
		return "borrow"
	case Share:
		return "share"
	}

	return fmt.Sprintf("ownership(%d)", int(o))
}

// Location determines whether a value is embedded in its container or accessed
// through a pointer to a heap-resident object.
type Location int

// Enumeration of locations.
const (
	Inline Location = iota
	Yonder          // Heap-resident.
)

func (l Location) String() string {
	if l == Inline {
		return "inline"
	}

	return "yonder"
}

// Mutability is the mutability of a struct definition or of a view onto one.
type Mutability int

// Enumeration of mutabilities.
const (
	Mutable Mutability = iota
	Immutable
)

// -----------------------------------------------------------------------------

// Reference is the type of every value flowing through MIR: a referend
// qualified by ownership and location.
type Reference struct {
	Ownership Ownership
	Location  Location
	Referend  Referend
}

// NewRef creates a new reference type.
func NewRef(own Ownership, loc Location, referend Referend) *Reference {
	return &Reference{Ownership: own, Location: loc, Referend: referend}
}

// IsHeap returns whether the reference points to a heap-resident object.
func (r *Reference) IsHeap() bool {
	return r.Location == Yonder
}

func (r *Reference) String() string {
	return fmt.Sprintf("%s %s %s", r.Ownership, r.Location, r.Referend)
}

// Referend is the type a reference designates independent of its ownership and
// location.  The set of referends is closed.
type Referend interface {
	fmt.Stringer

	referend()
}

// Int is the 64 bit signed integer referend.
type Int struct{}

// Bool is the boolean referend.
type Bool struct{}

// Str is the string referend.  Strings are always heap-resident and shared.
type Str struct{}

// Void is the referend of expressions which produce nothing useful.
type Void struct{}

// StructReferend refers to a struct definition in the program.
type StructReferend struct {
	Name string

	// ID is the index of the struct definition.  It is set by Program.Resolve.
	ID StructID
}

// InterfaceReferend refers to an interface definition in the program.
type InterfaceReferend struct {
	Name string

	// ID is the index of the interface definition.  It is set by
	// Program.Resolve.
	ID InterfaceID
}

// KnownSizeArrayT is an array whose length is a compile-time constant.
type KnownSizeArrayT struct {
	Size int
	Elem *Reference
}

// UnknownSizeArrayT is an array whose length is only known at runtime.
type UnknownSizeArrayT struct {
	Elem *Reference
}

func (*Int) referend()               {}
func (*Bool) referend()              {}
func (*Str) referend()               {}
func (*Void) referend()              {}
func (*StructReferend) referend()    {}
func (*InterfaceReferend) referend() {}
func (*KnownSizeArrayT) referend()   {}
func (*UnknownSizeArrayT) referend() {}

func (*Int) String() string                  { return "int" }
func (*Bool) String() string                 { return "bool" }
func (*Str) String() string                  { return "str" }
func (*Void) String() string                 { return "void" }
func (sr *StructReferend) String() string    { return sr.Name }
func (ir *InterfaceReferend) String() string { return ir.Name }

func (ksa *KnownSizeArrayT) String() string {
	return fmt.Sprintf("[%d]<%s>", ksa.Size, ksa.Elem)
}

func (usa *UnknownSizeArrayT) String() string {
	return fmt.Sprintf("[]<%s>", usa.Elem)
}

// ElemType returns the element type of an array referend.  The boolean is
// false if the referend is not an array.
func ElemType(referend Referend) (*Reference, bool) {
	switch v := referend.(type) {
	case *KnownSizeArrayT:
		return v.Elem, true
	case *UnknownSizeArrayT:
		return v.Elem, true
	}

	return nil, false
}

// Commonly used primitive references.
var (
	IntRef  = NewRef(Share, Inline, &Int{})
	BoolRef = NewRef(Share, Inline, &Bool{})
	StrRef  = NewRef(Share, Yonder, &Str{})
	VoidRef = NewRef(Share, Inline, &Void{})
)
