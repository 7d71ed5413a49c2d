package mir

import "fmt"

// StructID is the dense index of a struct definition in a program.
type StructID int

// InterfaceID is the dense index of an interface definition in a program.
type InterfaceID int

// FunctionID is the dense index of a function in a program.  Externs are
// numbered after all the defined functions.
type FunctionID int

// Unresolved marks an ID that has not been resolved yet.
const Unresolved = -1

// Prototype is the signature of a function, extern, or interface method.
type Prototype struct {
	Name   string
	Params []*Reference
	Return *Reference

	// ID is the index of the function or extern; it is set by Program.Resolve
	// and stays Unresolved for interface methods.
	ID FunctionID
}

// Function is a function defined in the program.
type Function struct {
	Prototype *Prototype
	Body      Expr
}

// StructMember is a single member of a struct definition.
type StructMember struct {
	Name string
	Type *Reference
}

// StructDefinition defines a struct and the interfaces it implements.
type StructDefinition struct {
	Name       string
	Mutability Mutability
	Members    []*StructMember
	Edges      []*Edge

	ID StructID
}

// InterfaceDefinition defines an interface as an ordered list of methods.
// The receiver of each method is the parameter of the interface's type.
type InterfaceDefinition struct {
	Name    string
	Methods []*Prototype

	ID InterfaceID
}

// Edge records that a struct implements an interface.  Methods holds the
// struct's implementation of each interface method, in interface order.
type Edge struct {
	Struct    *StructReferend
	Interface *InterfaceReferend
	Methods   []*Prototype
}

// edgeKey identifies an edge by its resolved struct and interface.
type edgeKey struct {
	s StructID
	i InterfaceID
}

// -----------------------------------------------------------------------------

// Program is the program metadata registry.  It is built once, resolved, and
// then treated as read-only by all function translations.
type Program struct {
	Structs    []*StructDefinition
	Interfaces []*InterfaceDefinition
	Externs    []*Prototype
	Functions  []*Function

	// structRefs and interfaceRefs intern referends by name so that resolution
	// only has to visit each name once.
	structRefs    map[string]*StructReferend
	interfaceRefs map[string]*InterfaceReferend

	// edges maps a resolved (struct, interface) pair to its index in
	// edgeList.
	edges    map[edgeKey]int
	edgeList []*Edge

	resolved bool
}

// NewProgram creates a new, empty program.
func NewProgram() *Program {
	return &Program{
		structRefs:    make(map[string]*StructReferend),
		interfaceRefs: make(map[string]*InterfaceReferend),
		edges:         make(map[edgeKey]int),
	}
}

// StructRef returns the interned referend for the struct named name.
func (p *Program) StructRef(name string) *StructReferend {
	if sr, ok := p.structRefs[name]; ok {
		return sr
	}

	sr := &StructReferend{Name: name, ID: Unresolved}
	p.structRefs[name] = sr
	return sr
}

// InterfaceRef returns the interned referend for the interface named name.
func (p *Program) InterfaceRef(name string) *InterfaceReferend {
	if ir, ok := p.interfaceRefs[name]; ok {
		return ir
	}

	ir := &InterfaceReferend{Name: name, ID: Unresolved}
	p.interfaceRefs[name] = ir
	return ir
}

// AddStruct adds a struct definition to the program.
func (p *Program) AddStruct(def *StructDefinition) {
	p.Structs = append(p.Structs, def)
}

// AddInterface adds an interface definition to the program.
func (p *Program) AddInterface(def *InterfaceDefinition) {
	p.Interfaces = append(p.Interfaces, def)
}

// AddExtern adds an extern prototype to the program.
func (p *Program) AddExtern(proto *Prototype) {
	p.Externs = append(p.Externs, proto)
}

// AddFunction adds a function to the program.
func (p *Program) AddFunction(fn *Function) {
	p.Functions = append(p.Functions, fn)
}

// Resolve assigns dense indices to all definitions and resolves every interned
// referend and every edge to those indices.  All lookups after this point are
// by index rather than by name.
func (p *Program) Resolve() error {
	structIDs := make(map[string]StructID, len(p.Structs))
	for i, sdef := range p.Structs {
		if _, ok := structIDs[sdef.Name]; ok {
			return fmt.Errorf("struct `%s` defined multiple times", sdef.Name)
		}

		sdef.ID = StructID(i)
		structIDs[sdef.Name] = sdef.ID
	}

	interfaceIDs := make(map[string]InterfaceID, len(p.Interfaces))
	for i, idef := range p.Interfaces {
		if _, ok := interfaceIDs[idef.Name]; ok {
			return fmt.Errorf("interface `%s` defined multiple times", idef.Name)
		}

		idef.ID = InterfaceID(i)
		interfaceIDs[idef.Name] = idef.ID
	}

	for name, sr := range p.structRefs {
		id, ok := structIDs[name]
		if !ok {
			return fmt.Errorf("reference to undefined struct `%s`", name)
		}

		sr.ID = id
	}

	for name, ir := range p.interfaceRefs {
		id, ok := interfaceIDs[name]
		if !ok {
			return fmt.Errorf("reference to undefined interface `%s`", name)
		}

		ir.ID = id
	}

	funcNames := make(map[string]struct{}, len(p.Functions)+len(p.Externs))
	for i, fn := range p.Functions {
		if _, ok := funcNames[fn.Prototype.Name]; ok {
			return fmt.Errorf("function `%s` defined multiple times", fn.Prototype.Name)
		}

		funcNames[fn.Prototype.Name] = struct{}{}
		fn.Prototype.ID = FunctionID(i)
	}

	for i, ext := range p.Externs {
		if _, ok := funcNames[ext.Name]; ok {
			return fmt.Errorf("extern `%s` collides with another function", ext.Name)
		}

		funcNames[ext.Name] = struct{}{}
		ext.ID = FunctionID(len(p.Functions) + i)
	}

	funcsByName := make(map[string]*Prototype, len(p.Functions))
	for _, fn := range p.Functions {
		funcsByName[fn.Prototype.Name] = fn.Prototype
	}

	p.edges = make(map[edgeKey]int)
	p.edgeList = nil
	for _, sdef := range p.Structs {
		for _, edge := range sdef.Edges {
			if edge.Struct.ID != sdef.ID {
				return fmt.Errorf("edge listed on struct `%s` belongs to `%s`", sdef.Name, edge.Struct.Name)
			}

			if edge.Interface.ID < 0 || int(edge.Interface.ID) >= len(p.Interfaces) {
				return fmt.Errorf("struct `%s` implements unknown interface `%s`", sdef.Name, edge.Interface.Name)
			}

			idef := p.Interfaces[edge.Interface.ID]
			if len(edge.Methods) != len(idef.Methods) {
				return fmt.Errorf(
					"struct `%s` implements %d of the %d methods of `%s`",
					sdef.Name, len(edge.Methods), len(idef.Methods), idef.Name,
				)
			}

			// method implementations are always defined functions
			for j, method := range edge.Methods {
				proto, ok := funcsByName[method.Name]
				if !ok {
					return fmt.Errorf(
						"struct `%s` implements `%s` with undefined function `%s`",
						sdef.Name, idef.Name, method.Name,
					)
				}

				edge.Methods[j] = proto
			}

			key := edgeKey{sdef.ID, idef.ID}
			if _, ok := p.edges[key]; ok {
				return fmt.Errorf("struct `%s` implements `%s` multiple times", sdef.Name, idef.Name)
			}

			p.edges[key] = len(p.edgeList)
			p.edgeList = append(p.edgeList, edge)
		}
	}

	p.resolved = true
	return nil
}

// Resolved returns whether Resolve has completed successfully.
func (p *Program) Resolved() bool {
	return p.resolved
}

// Struct returns the struct definition with the given ID.
func (p *Program) Struct(id StructID) *StructDefinition {
	return p.Structs[id]
}

// Interface returns the interface definition with the given ID.
func (p *Program) Interface(id InterfaceID) *InterfaceDefinition {
	return p.Interfaces[id]
}

// Edges returns all edges in the program in resolution order.  The position
// of an edge in this list is its edge index.
func (p *Program) Edges() []*Edge {
	return p.edgeList
}

// EdgeIndex returns the index of the edge for the struct implementing the
// interface.  The boolean is false if there is no such edge.
func (p *Program) EdgeIndex(s StructID, i InterfaceID) (int, bool) {
	ndx, ok := p.edges[edgeKey{s, i}]
	return ndx, ok
}
