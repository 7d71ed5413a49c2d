// Package mirload decodes textual program descriptions into resolved MIR
// programs.  Programs are written in YAML (and therefore also JSON).
package mirload

import (
	"bytes"
	"fmt"
	"io/ioutil"

	"midas/mir"

	"gopkg.in/yaml.v3"
)

// programDoc represents a program as it is encoded in YAML
type programDoc struct {
	Structs    []*structDoc    `yaml:"structs"`
	Interfaces []*interfaceDoc `yaml:"interfaces"`
	Externs    []*protoDoc     `yaml:"externs"`
	Functions  []*functionDoc  `yaml:"functions"`
}

// structDoc represents a struct definition as it is encoded in YAML
type structDoc struct {
	Name       string       `yaml:"name"`
	Immutable  bool         `yaml:"immutable"`
	Members    []*memberDoc `yaml:"members"`
	Implements []*edgeDoc   `yaml:"implements"`
}

type memberDoc struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"`
}

// edgeDoc lists the functions implementing the methods of an interface in
// interface method order.
type edgeDoc struct {
	Interface string   `yaml:"interface"`
	Methods   []string `yaml:"methods"`
}

type interfaceDoc struct {
	Name    string      `yaml:"name"`
	Methods []*protoDoc `yaml:"methods"`
}

type protoDoc struct {
	Name   string   `yaml:"name"`
	Params []string `yaml:"params"`
	Return string   `yaml:"return"`
}

type functionDoc struct {
	protoDoc `yaml:",inline"`
	Body     *exprDoc `yaml:"body"`
}

// -----------------------------------------------------------------------------

// loader holds the state of decoding a single program.
type loader struct {
	prog *mir.Program

	structNames    map[string]*mir.StructDefinition
	interfaceNames map[string]*mir.InterfaceDefinition
	protos         map[string]*mir.Prototype
}

// LoadFile reads and decodes the program at path.
func LoadFile(path string) (*mir.Program, error) {
	buff, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, err
	}

	prog, err := Parse(buff)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return prog, nil
}

// Parse decodes a program and resolves it.
func Parse(buff []byte) (*mir.Program, error) {
	dec := yaml.NewDecoder(bytes.NewReader(buff))
	dec.KnownFields(true)

	doc := &programDoc{}
	if err := dec.Decode(doc); err != nil {
		return nil, err
	}

	l := &loader{
		prog:           mir.NewProgram(),
		structNames:    make(map[string]*mir.StructDefinition),
		interfaceNames: make(map[string]*mir.InterfaceDefinition),
		protos:         make(map[string]*mir.Prototype),
	}

	if err := l.load(doc); err != nil {
		return nil, err
	}

	if err := l.prog.Resolve(); err != nil {
		return nil, err
	}

	return l.prog, nil
}

// load builds the program from its document.  All names are declared before
// any types are parsed so that definitions may refer to each other in any
// order.
func (l *loader) load(doc *programDoc) error {
	for _, sd := range doc.Structs {
		sdef := &mir.StructDefinition{Name: sd.Name, ID: mir.Unresolved}
		if sd.Immutable {
			sdef.Mutability = mir.Immutable
		}

		l.structNames[sd.Name] = sdef
		l.prog.AddStruct(sdef)
	}

	for _, id := range doc.Interfaces {
		idef := &mir.InterfaceDefinition{Name: id.Name, ID: mir.Unresolved}
		l.interfaceNames[id.Name] = idef
		l.prog.AddInterface(idef)
	}

	for _, id := range doc.Interfaces {
		idef := l.interfaceNames[id.Name]
		for _, md := range id.Methods {
			method, err := l.convertProto(md)
			if err != nil {
				return fmt.Errorf("interface `%s`: %w", id.Name, err)
			}

			idef.Methods = append(idef.Methods, method)
		}
	}

	for _, sd := range doc.Structs {
		if err := l.convertStruct(sd); err != nil {
			return fmt.Errorf("struct `%s`: %w", sd.Name, err)
		}
	}

	for _, ed := range doc.Externs {
		ext, err := l.convertProto(ed)
		if err != nil {
			return fmt.Errorf("extern `%s`: %w", ed.Name, err)
		}

		l.protos[ext.Name] = ext
		l.prog.AddExtern(ext)
	}

	fns := make([]*mir.Function, len(doc.Functions))
	for i, fd := range doc.Functions {
		proto, err := l.convertProto(&fd.protoDoc)
		if err != nil {
			return fmt.Errorf("function `%s`: %w", fd.Name, err)
		}

		fns[i] = &mir.Function{Prototype: proto}
		l.protos[proto.Name] = proto
		l.prog.AddFunction(fns[i])
	}

	for i, fd := range doc.Functions {
		if fd.Body == nil {
			return fmt.Errorf("function `%s` has no body", fd.Name)
		}

		fl := &funcLoader{loader: l, locals: make(map[mir.VariableID]*mir.Local)}
		body, err := fl.convertExpr(fd.Body)
		if err != nil {
			return fmt.Errorf("function `%s`: %w", fd.Name, err)
		}

		fns[i].Body = body
	}

	return nil
}

// convertStruct fills in the members and edges of a struct definition.
func (l *loader) convertStruct(sd *structDoc) error {
	sdef := l.structNames[sd.Name]

	for _, md := range sd.Members {
		typ, err := l.parseRef(md.Type)
		if err != nil {
			return fmt.Errorf("member `%s`: %w", md.Name, err)
		}

		sdef.Members = append(sdef.Members, &mir.StructMember{Name: md.Name, Type: typ})
	}

	for _, ed := range sd.Implements {
		if _, ok := l.interfaceNames[ed.Interface]; !ok {
			return fmt.Errorf("implements undefined interface `%s`", ed.Interface)
		}

		edge := &mir.Edge{
			Struct:    l.prog.StructRef(sd.Name),
			Interface: l.prog.InterfaceRef(ed.Interface),
		}

		// the implementations are resolved by name once every function has
		// been declared
		for _, name := range ed.Methods {
			edge.Methods = append(edge.Methods, &mir.Prototype{Name: name, ID: mir.Unresolved})
		}

		sdef.Edges = append(sdef.Edges, edge)
	}

	return nil
}

// convertProto converts a prototype document.  A missing return type means
// the prototype returns void.
func (l *loader) convertProto(pd *protoDoc) (*mir.Prototype, error) {
	if pd.Name == "" {
		return nil, fmt.Errorf("prototype must specify a name")
	}

	proto := &mir.Prototype{Name: pd.Name, Return: mir.VoidRef, ID: mir.Unresolved}
	for i, param := range pd.Params {
		typ, err := l.parseRef(param)
		if err != nil {
			return nil, fmt.Errorf("parameter %d of `%s`: %w", i, pd.Name, err)
		}

		proto.Params = append(proto.Params, typ)
	}

	if pd.Return != "" {
		typ, err := l.parseRef(pd.Return)
		if err != nil {
			return nil, fmt.Errorf("return type of `%s`: %w", pd.Name, err)
		}

		proto.Return = typ
	}

	return proto, nil
}
