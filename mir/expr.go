package mir

// Expr is an expression node in MIR.  The set of expression kinds is closed:
// every kind is listed in Visitor, and Visit is the only place which
// dispatches on the concrete node type.  Each node exclusively owns its child
// expressions.
type Expr interface {
	exprNode()
}

// exprBase is embedded in every expression node to seal the Expr interface.
type exprBase struct{}

func (exprBase) exprNode() {}

// VariableID identifies a local variable within a function.
type VariableID int

// Local is a function-local variable bound to a storage slot.
type Local struct {
	ID   VariableID
	Name string
	Type *Reference
}

// -----------------------------------------------------------------------------

// ConstantI64 is an integer literal.
type ConstantI64 struct {
	exprBase
	Value int64
}

// ConstantBool is a boolean literal.
type ConstantBool struct {
	exprBase
	Value bool
}

// ConstantStr is a string literal.  The string may not contain zero bytes.
type ConstantStr struct {
	exprBase
	Value string
}

// Argument refers to a parameter of the enclosing function.
type Argument struct {
	exprBase
	Type  *Reference
	Index int
}

// Discard releases the value of its source expression.
type Discard struct {
	exprBase
	Source     Expr
	SourceType *Reference
}

// Return returns the value of its source expression from the function.
type Return struct {
	exprBase
	Source     Expr
	SourceType *Reference
}

// Stackify opens a local: it moves the value of its source expression into a
// new storage slot.
type Stackify struct {
	exprBase
	Source Expr
	Local  *Local
}

// Unstackify closes a local and yields its final content.
type Unstackify struct {
	exprBase
	Local *Local
}

// LocalLoad reads the current content of a local.
type LocalLoad struct {
	exprBase
	Local           *Local
	TargetOwnership Ownership
}

// LocalStore stores a new value into a local and yields the previous one.
type LocalStore struct {
	exprBase
	Local  *Local
	Source Expr
}

// Call calls a function defined in the program.
type Call struct {
	exprBase
	Function *Prototype
	Args     []Expr
}

// ExternCall calls a function defined outside of the program: either a builtin
// or a native function.
type ExternCall struct {
	exprBase
	Function *Prototype
	Args     []Expr
}

// InterfaceCall calls a method through the interface reference passed at
// VirtualParamIndex.
type InterfaceCall struct {
	exprBase
	Args              []Expr
	VirtualParamIndex int
	Interface         *InterfaceReferend
	IndexInEdge       int
	FunctionType      *Prototype
}

// NewStruct constructs a struct from its member values (in member order).
type NewStruct struct {
	exprBase
	Sources    []Expr
	ResultType *Reference
}

// Block evaluates a non-empty sequence of expressions and yields the value of
// the last one.
type Block struct {
	exprBase
	Exprs []Expr
}

// If is a conditional expression.  The Then and Else branches yield values of
// type CommonSupertype.
type If struct {
	exprBase
	Cond            Expr
	Then            Expr
	Else            Expr
	CommonSupertype *Reference
}

// While evaluates Body for as long as Cond yields true.
type While struct {
	exprBase
	Cond Expr
	Body Expr
}

// Destroy destructures a struct: each member is moved into the corresponding
// local and the struct's storage is freed.
type Destroy struct {
	exprBase
	Struct     Expr
	StructType *Reference
	Locals     []*Local
}

// MemberLoad reads a member of a struct.
type MemberLoad struct {
	exprBase
	Struct       Expr
	StructType   *Reference
	MemberIndex  int
	MemberName   string
	ExpectedType *Reference
}

// MemberStore swaps a new value into a member of a struct and yields the
// previous one.
type MemberStore struct {
	exprBase
	Struct      Expr
	StructType  *Reference
	MemberIndex int
	MemberName  string
	Source      Expr
}

// StructToInterfaceUpcast converts a struct reference into an interface
// reference.
type StructToInterfaceUpcast struct {
	exprBase
	Source           Expr
	SourceStructType *Reference
	SourceStruct     *StructReferend
	TargetInterface  *InterfaceReferend
}

// KnownSizeArrayLoad reads an element of a known size array.
type KnownSizeArrayLoad struct {
	exprBase
	Array     Expr
	ArrayType *Reference
	Index     Expr
}

// UnknownSizeArrayLoad reads an element of an unknown size array.
type UnknownSizeArrayLoad struct {
	exprBase
	Array     Expr
	ArrayType *Reference
	Index     Expr
}

// ArrayLength yields the runtime length of an unknown size array.
type ArrayLength struct {
	exprBase
	Array     Expr
	ArrayType *Reference
}

// NewArrayFromValues constructs a known size array from its elements.
type NewArrayFromValues struct {
	exprBase
	Sources   []Expr
	ArrayType *Reference
}

// ConstructUnknownSizeArray constructs an unknown size array by calling a
// generator for every index.
type ConstructUnknownSizeArray struct {
	exprBase
	Size          Expr
	Generator     Expr
	GeneratorType *Reference
	ArrayType     *Reference
}

// DestroyKnownSizeArrayIntoFunction consumes a known size array by handing
// each element to a consumer.
type DestroyKnownSizeArrayIntoFunction struct {
	exprBase
	Array        Expr
	ArrayType    *Reference
	Consumer     Expr
	ConsumerType *Reference
}

// DestroyUnknownSizeArray consumes an unknown size array by handing each
// element to a consumer.
type DestroyUnknownSizeArray struct {
	exprBase
	Array        Expr
	ArrayType    *Reference
	Consumer     Expr
	ConsumerType *Reference
}
