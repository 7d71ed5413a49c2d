package mirload

import (
	"fmt"

	"midas/mir"

	"gopkg.in/yaml.v3"
)

// exprDoc represents an expression as it is encoded in YAML.  The kind selects
// which of the other fields are meaningful; kinds are named as in MIR.
type exprDoc struct {
	Kind string `yaml:"kind"`

	// Value is the literal of a constant.
	Value yaml.Node `yaml:"value"`

	// Type is the principal type of the expression: the type of an argument,
	// discarded or returned value, constructed or accessed struct or array, or
	// the common supertype of a conditional.
	Type string `yaml:"type"`

	Index     int      `yaml:"index"`     // Argument
	Local     *local   `yaml:"local"`     // Stackify, Unstackify, LocalLoad, LocalStore
	Locals    []*local `yaml:"locals"`    // Destroy
	Ownership string   `yaml:"ownership"` // LocalLoad
	Function  string   `yaml:"function"`  // Call, ExternCall
	Interface string   `yaml:"interface"` // InterfaceCall, StructToInterfaceUpcast
	Method    int      `yaml:"method"`    // InterfaceCall
	Member    string   `yaml:"member"`    // MemberLoad, MemberStore
	Expected  string   `yaml:"expected"`  // MemberLoad

	// FunctorType is the type of the generator or consumer of an array.
	FunctorType string `yaml:"functor-type"`

	Source  *exprDoc   `yaml:"source"`
	Sources []*exprDoc `yaml:"sources"`
	Args    []*exprDoc `yaml:"args"`
	Exprs   []*exprDoc `yaml:"exprs"`
	Struct  *exprDoc   `yaml:"struct"`
	Array   *exprDoc   `yaml:"array"`
	At      *exprDoc   `yaml:"at"`
	Size    *exprDoc   `yaml:"size"`
	Functor *exprDoc   `yaml:"functor"`
	Cond    *exprDoc   `yaml:"cond"`
	Then    *exprDoc   `yaml:"then"`
	Else    *exprDoc   `yaml:"else"`
	Body    *exprDoc   `yaml:"body"`
}

// local represents a local variable as it is encoded in YAML.  Only the first
// mention of a local in a function needs to give its type.
type local struct {
	ID   int    `yaml:"id"`
	Name string `yaml:"name"`
	Type string `yaml:"type"`
}

// funcLoader converts the expressions of a single function body.
type funcLoader struct {
	*loader

	locals map[mir.VariableID]*mir.Local
}

// convertExpr converts an expression document into a MIR expression.
func (fl *funcLoader) convertExpr(ed *exprDoc) (mir.Expr, error) {
	if ed == nil {
		return nil, fmt.Errorf("missing expression")
	}

	expr, err := fl.convertKind(ed)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ed.Kind, err)
	}

	return expr, nil
}

// convertKind does the work of convertExpr.
func (fl *funcLoader) convertKind(ed *exprDoc) (mir.Expr, error) {
	switch ed.Kind {
	case "ConstantI64":
		var n int64
		if err := ed.Value.Decode(&n); err != nil {
			return nil, err
		}

		return &mir.ConstantI64{Value: n}, nil
	case "ConstantBool":
		var b bool
		if err := ed.Value.Decode(&b); err != nil {
			return nil, err
		}

		return &mir.ConstantBool{Value: b}, nil
	case "ConstantStr":
		var s string
		if err := ed.Value.Decode(&s); err != nil {
			return nil, err
		}

		return &mir.ConstantStr{Value: s}, nil
	case "Argument":
		typ, err := fl.parseRef(ed.Type)
		if err != nil {
			return nil, err
		}

		return &mir.Argument{Type: typ, Index: ed.Index}, nil
	case "Discard", "Return":
		source, err := fl.convertExpr(ed.Source)
		if err != nil {
			return nil, err
		}

		typ, err := fl.parseRef(ed.Type)
		if err != nil {
			return nil, err
		}

		if ed.Kind == "Discard" {
			return &mir.Discard{Source: source, SourceType: typ}, nil
		}

		return &mir.Return{Source: source, SourceType: typ}, nil
	case "Stackify":
		source, err := fl.convertExpr(ed.Source)
		if err != nil {
			return nil, err
		}

		loc, err := fl.convertLocal(ed.Local)
		if err != nil {
			return nil, err
		}

		return &mir.Stackify{Source: source, Local: loc}, nil
	case "Unstackify":
		loc, err := fl.convertLocal(ed.Local)
		if err != nil {
			return nil, err
		}

		return &mir.Unstackify{Local: loc}, nil
	case "LocalLoad":
		loc, err := fl.convertLocal(ed.Local)
		if err != nil {
			return nil, err
		}

		own := loc.Type.Ownership
		if ed.Ownership != "" {
			if own, err = parseOwnership(ed.Ownership); err != nil {
				return nil, err
			}
		}

		return &mir.LocalLoad{Local: loc, TargetOwnership: own}, nil
	case "LocalStore":
		loc, err := fl.convertLocal(ed.Local)
		if err != nil {
			return nil, err
		}

		source, err := fl.convertExpr(ed.Source)
		if err != nil {
			return nil, err
		}

		return &mir.LocalStore{Local: loc, Source: source}, nil
	case "Call", "ExternCall":
		proto, ok := fl.protos[ed.Function]
		if !ok {
			return nil, fmt.Errorf("call to undefined function `%s`", ed.Function)
		}

		args, err := fl.convertList(ed.Args)
		if err != nil {
			return nil, err
		}

		if ed.Kind == "Call" {
			return &mir.Call{Function: proto, Args: args}, nil
		}

		return &mir.ExternCall{Function: proto, Args: args}, nil
	case "InterfaceCall":
		return fl.convertInterfaceCall(ed)
	case "NewStruct":
		typ, err := fl.parseRef(ed.Type)
		if err != nil {
			return nil, err
		}

		sources, err := fl.convertList(ed.Sources)
		if err != nil {
			return nil, err
		}

		return &mir.NewStruct{Sources: sources, ResultType: typ}, nil
	case "Block":
		exprs, err := fl.convertList(ed.Exprs)
		if err != nil {
			return nil, err
		}

		return &mir.Block{Exprs: exprs}, nil
	case "If":
		parts, err := fl.convertList([]*exprDoc{ed.Cond, ed.Then, ed.Else})
		if err != nil {
			return nil, err
		}

		typ, err := fl.parseRef(ed.Type)
		if err != nil {
			return nil, err
		}

		return &mir.If{Cond: parts[0], Then: parts[1], Else: parts[2], CommonSupertype: typ}, nil
	case "While":
		parts, err := fl.convertList([]*exprDoc{ed.Cond, ed.Body})
		if err != nil {
			return nil, err
		}

		return &mir.While{Cond: parts[0], Body: parts[1]}, nil
	case "Destroy":
		return fl.convertDestroy(ed)
	case "MemberLoad", "MemberStore":
		return fl.convertMemberAccess(ed)
	case "StructToInterfaceUpcast":
		return fl.convertUpcast(ed)
	case "KnownSizeArrayLoad", "UnknownSizeArrayLoad", "ArrayLength":
		return fl.convertArrayAccess(ed)
	case "NewArrayFromValues":
		typ, err := fl.parseRef(ed.Type)
		if err != nil {
			return nil, err
		}

		sources, err := fl.convertList(ed.Sources)
		if err != nil {
			return nil, err
		}

		return &mir.NewArrayFromValues{Sources: sources, ArrayType: typ}, nil
	case "ConstructUnknownSizeArray", "DestroyKnownSizeArrayIntoFunction", "DestroyUnknownSizeArray":
		return fl.convertFunctorArray(ed)
	case "":
		return nil, fmt.Errorf("expression must specify a kind")
	}

	return nil, fmt.Errorf("unknown expression kind")
}

// convertList converts a list of expressions in order.
func (fl *funcLoader) convertList(eds []*exprDoc) ([]mir.Expr, error) {
	exprs := make([]mir.Expr, len(eds))
	for i, ed := range eds {
		expr, err := fl.convertExpr(ed)
		if err != nil {
			return nil, err
		}

		exprs[i] = expr
	}

	return exprs, nil
}

// convertLocal returns the local a document refers to.  Every mention of the
// same ID in a function refers to the same local.
func (fl *funcLoader) convertLocal(ld *local) (*mir.Local, error) {
	if ld == nil {
		return nil, fmt.Errorf("missing local")
	}

	id := mir.VariableID(ld.ID)
	if loc, ok := fl.locals[id]; ok {
		return loc, nil
	}

	typ, err := fl.parseRef(ld.Type)
	if err != nil {
		return nil, fmt.Errorf("local %d: %w", ld.ID, err)
	}

	loc := &mir.Local{ID: id, Name: ld.Name, Type: typ}
	if loc.Name == "" {
		loc.Name = fmt.Sprintf("local%d", ld.ID)
	}

	fl.locals[id] = loc
	return loc, nil
}

// convertInterfaceCall converts a virtual call.  The receiver position and the
// signature come from the interface method.
func (fl *funcLoader) convertInterfaceCall(ed *exprDoc) (mir.Expr, error) {
	idef, ok := fl.interfaceNames[ed.Interface]
	if !ok {
		return nil, fmt.Errorf("undefined interface `%s`", ed.Interface)
	}

	if ed.Method < 0 || ed.Method >= len(idef.Methods) {
		return nil, fmt.Errorf("interface `%s` has no method %d", idef.Name, ed.Method)
	}

	method := idef.Methods[ed.Method]
	vindex := -1
	for i, param := range method.Params {
		if iref, ok := param.Referend.(*mir.InterfaceReferend); ok && iref.Name == idef.Name {
			vindex = i
			break
		}
	}

	if vindex == -1 {
		return nil, fmt.Errorf("method `%s` of `%s` has no receiver", method.Name, idef.Name)
	}

	args, err := fl.convertList(ed.Args)
	if err != nil {
		return nil, err
	}

	return &mir.InterfaceCall{
		Args:              args,
		VirtualParamIndex: vindex,
		Interface:         fl.prog.InterfaceRef(idef.Name),
		IndexInEdge:       ed.Method,
		FunctionType:      method,
	}, nil
}

// structOf returns the definition of the struct a reference type designates.
func (fl *funcLoader) structOf(typ *mir.Reference) (*mir.StructDefinition, error) {
	sr, ok := typ.Referend.(*mir.StructReferend)
	if !ok {
		return nil, fmt.Errorf("%s is not a struct", typ)
	}

	return fl.structNames[sr.Name], nil
}

// convertDestroy converts destructuring a struct into locals.
func (fl *funcLoader) convertDestroy(ed *exprDoc) (mir.Expr, error) {
	typ, err := fl.parseRef(ed.Type)
	if err != nil {
		return nil, err
	}

	if _, err := fl.structOf(typ); err != nil {
		return nil, err
	}

	src, err := fl.convertExpr(ed.Struct)
	if err != nil {
		return nil, err
	}

	locals := make([]*mir.Local, len(ed.Locals))
	for i, ld := range ed.Locals {
		if locals[i], err = fl.convertLocal(ld); err != nil {
			return nil, err
		}
	}

	return &mir.Destroy{Struct: src, StructType: typ, Locals: locals}, nil
}

// convertMemberAccess converts member loads and stores.  Members are named
// and resolved to their index here.
func (fl *funcLoader) convertMemberAccess(ed *exprDoc) (mir.Expr, error) {
	typ, err := fl.parseRef(ed.Type)
	if err != nil {
		return nil, err
	}

	sdef, err := fl.structOf(typ)
	if err != nil {
		return nil, err
	}

	index := -1
	for i, member := range sdef.Members {
		if member.Name == ed.Member {
			index = i
			break
		}
	}

	if index == -1 {
		return nil, fmt.Errorf("struct `%s` has no member `%s`", sdef.Name, ed.Member)
	}

	src, err := fl.convertExpr(ed.Struct)
	if err != nil {
		return nil, err
	}

	if ed.Kind == "MemberStore" {
		source, err := fl.convertExpr(ed.Source)
		if err != nil {
			return nil, err
		}

		return &mir.MemberStore{
			Struct:      src,
			StructType:  typ,
			MemberIndex: index,
			MemberName:  ed.Member,
			Source:      source,
		}, nil
	}

	expected := sdef.Members[index].Type
	if ed.Expected != "" {
		if expected, err = fl.parseRef(ed.Expected); err != nil {
			return nil, err
		}
	}

	return &mir.MemberLoad{
		Struct:       src,
		StructType:   typ,
		MemberIndex:  index,
		MemberName:   ed.Member,
		ExpectedType: expected,
	}, nil
}

// convertUpcast converts a struct to interface upcast.
func (fl *funcLoader) convertUpcast(ed *exprDoc) (mir.Expr, error) {
	typ, err := fl.parseRef(ed.Type)
	if err != nil {
		return nil, err
	}

	if _, err := fl.structOf(typ); err != nil {
		return nil, err
	}

	if _, ok := fl.interfaceNames[ed.Interface]; !ok {
		return nil, fmt.Errorf("undefined interface `%s`", ed.Interface)
	}

	source, err := fl.convertExpr(ed.Source)
	if err != nil {
		return nil, err
	}

	return &mir.StructToInterfaceUpcast{
		Source:           source,
		SourceStructType: typ,
		SourceStruct:     typ.Referend.(*mir.StructReferend),
		TargetInterface:  fl.prog.InterfaceRef(ed.Interface),
	}, nil
}

// convertArrayAccess converts element loads and length queries.
func (fl *funcLoader) convertArrayAccess(ed *exprDoc) (mir.Expr, error) {
	typ, err := fl.parseRef(ed.Type)
	if err != nil {
		return nil, err
	}

	array, err := fl.convertExpr(ed.Array)
	if err != nil {
		return nil, err
	}

	if ed.Kind == "ArrayLength" {
		return &mir.ArrayLength{Array: array, ArrayType: typ}, nil
	}

	index, err := fl.convertExpr(ed.At)
	if err != nil {
		return nil, err
	}

	if ed.Kind == "KnownSizeArrayLoad" {
		return &mir.KnownSizeArrayLoad{Array: array, ArrayType: typ, Index: index}, nil
	}

	return &mir.UnknownSizeArrayLoad{Array: array, ArrayType: typ, Index: index}, nil
}

// convertFunctorArray converts the array expressions which call a generator
// or consumer.
func (fl *funcLoader) convertFunctorArray(ed *exprDoc) (mir.Expr, error) {
	typ, err := fl.parseRef(ed.Type)
	if err != nil {
		return nil, err
	}

	functorType, err := fl.parseRef(ed.FunctorType)
	if err != nil {
		return nil, err
	}

	if ed.Kind == "ConstructUnknownSizeArray" {
		size, err := fl.convertExpr(ed.Size)
		if err != nil {
			return nil, err
		}

		generator, err := fl.convertExpr(ed.Functor)
		if err != nil {
			return nil, err
		}

		return &mir.ConstructUnknownSizeArray{
			Size:          size,
			Generator:     generator,
			GeneratorType: functorType,
			ArrayType:     typ,
		}, nil
	}

	array, err := fl.convertExpr(ed.Array)
	if err != nil {
		return nil, err
	}

	consumer, err := fl.convertExpr(ed.Functor)
	if err != nil {
		return nil, err
	}

	if ed.Kind == "DestroyKnownSizeArrayIntoFunction" {
		return &mir.DestroyKnownSizeArrayIntoFunction{
			Array:        array,
			ArrayType:    typ,
			Consumer:     consumer,
			ConsumerType: functorType,
		}, nil
	}

	return &mir.DestroyUnknownSizeArray{
		Array:        array,
		ArrayType:    typ,
		Consumer:     consumer,
		ConsumerType: functorType,
	}, nil
}
