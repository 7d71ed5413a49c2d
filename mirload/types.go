package mirload

import (
	"fmt"
	"strconv"
	"strings"

	"midas/mir"
)

// primitiveRefs are the shorthands accepted in place of a full reference.
var primitiveRefs = map[string]*mir.Reference{
	"int":  mir.IntRef,
	"bool": mir.BoolRef,
	"str":  mir.StrRef,
	"void": mir.VoidRef,
}

var ownerships = map[string]mir.Ownership{
	"own":    mir.Own,
	"borrow": mir.Borrow,
	"share":  mir.Share,
}

var locations = map[string]mir.Location{
	"inline": mir.Inline,
	"yonder": mir.Yonder,
}

// parseRef parses a reference type written the way mir.Reference prints:
// `<ownership> <location> <referend>`, eg. `own yonder Point` or
// `share yonder [3]<share inline int>`.  Primitives can be written alone.
func (l *loader) parseRef(s string) (*mir.Reference, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("missing type")
	}

	if ref, ok := primitiveRefs[s]; ok {
		return ref, nil
	}

	fields := strings.SplitN(s, " ", 3)
	if len(fields) != 3 {
		return nil, fmt.Errorf("malformed type `%s`", s)
	}

	own, ok := ownerships[fields[0]]
	if !ok {
		return nil, fmt.Errorf("unknown ownership `%s` in `%s`", fields[0], s)
	}

	loc, ok := locations[fields[1]]
	if !ok {
		return nil, fmt.Errorf("unknown location `%s` in `%s`", fields[1], s)
	}

	referend, err := l.parseReferend(strings.TrimSpace(fields[2]))
	if err != nil {
		return nil, err
	}

	return mir.NewRef(own, loc, referend), nil
}

// parseReferend parses the referend part of a reference type.
func (l *loader) parseReferend(s string) (mir.Referend, error) {
	switch s {
	case "int":
		return &mir.Int{}, nil
	case "bool":
		return &mir.Bool{}, nil
	case "str":
		return &mir.Str{}, nil
	case "void":
		return &mir.Void{}, nil
	}

	if strings.HasPrefix(s, "[") {
		closeBracket := strings.IndexByte(s, ']')
		if closeBracket == -1 || !strings.HasPrefix(s[closeBracket+1:], "<") || !strings.HasSuffix(s, ">") {
			return nil, fmt.Errorf("malformed array type `%s`", s)
		}

		elem, err := l.parseRef(s[closeBracket+2 : len(s)-1])
		if err != nil {
			return nil, err
		}

		sizeText := s[1:closeBracket]
		if sizeText == "" {
			return &mir.UnknownSizeArrayT{Elem: elem}, nil
		}

		size, err := strconv.Atoi(sizeText)
		if err != nil || size < 0 {
			return nil, fmt.Errorf("invalid array size `%s`", sizeText)
		}

		return &mir.KnownSizeArrayT{Size: size, Elem: elem}, nil
	}

	if _, ok := l.structNames[s]; ok {
		return l.prog.StructRef(s), nil
	}

	if _, ok := l.interfaceNames[s]; ok {
		return l.prog.InterfaceRef(s), nil
	}

	return nil, fmt.Errorf("undefined type `%s`", s)
}

// parseOwnership parses a bare ownership qualifier.
func parseOwnership(s string) (mir.Ownership, error) {
	own, ok := ownerships[s]
	if !ok {
		return 0, fmt.Errorf("unknown ownership `%s`", s)
	}

	return own, nil
}
