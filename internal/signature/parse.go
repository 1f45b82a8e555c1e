package signature

import "fmt"

type parser struct {
	sig string
	pos int
	a   Action
}

func (p *parser) errorf(format string, args ...any) error {
	return &SyntaxError{Sig: p.sig, Pos: p.pos, Msg: fmt.Sprintf(format, args...)}
}

func (p *parser) peek() byte {
	if p.pos < len(p.sig) {
		return p.sig[p.pos]
	}
	return 0
}

func (p *parser) expect(c byte) error {
	if p.peek() != c {
		if p.pos >= len(p.sig) {
			return p.errorf("want %q, got end of input", c)
		}
		return p.errorf("want %q, got %q", c, p.peek())
	}
	p.pos++
	p.a.ParsedSymbol(c)
	return nil
}

// identifier scans an unqualified name. The JVMS forbids . ; [ / < > :
// inside one.
func (p *parser) identifier() (string, error) {
	start := p.pos
	for p.pos < len(p.sig) && !isDelim(p.sig[p.pos]) {
		p.pos++
	}
	if p.pos == start {
		return "", p.errorf("empty identifier")
	}
	return p.sig[start:p.pos], nil
}

func isDelim(c byte) bool {
	switch c {
	case '.', ';', '[', '/', '<', '>', ':':
		return true
	}
	return false
}

// ClassSignature: [TypeParameters] SuperclassSignature {SuperinterfaceSignature}
func (p *parser) classSignature() error {
	if p.peek() == '<' {
		if err := p.typeParameters(); err != nil {
			return err
		}
	}
	if err := p.classType(); err != nil {
		return err
	}
	for p.pos < len(p.sig) {
		if err := p.classType(); err != nil {
			return err
		}
	}
	return nil
}

// MethodSignature: [TypeParameters] ( {JavaTypeSignature} ) Result {ThrowsSignature}
func (p *parser) methodSignature() error {
	if p.peek() == '<' {
		if err := p.typeParameters(); err != nil {
			return err
		}
	}
	if err := p.expect('('); err != nil {
		return err
	}
	for p.peek() != ')' {
		if p.pos >= len(p.sig) {
			return p.errorf("unterminated parameter list")
		}
		if err := p.javaType(); err != nil {
			return err
		}
	}
	p.expect(')')
	if p.peek() == 'V' {
		p.expect('V')
	} else if err := p.javaType(); err != nil {
		return err
	}
	for p.peek() == '^' {
		p.expect('^')
		var err error
		if p.peek() == 'T' {
			err = p.typeVariable()
		} else {
			err = p.classType()
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// TypeParameters: < TypeParameter {TypeParameter} >
func (p *parser) typeParameters() error {
	p.expect('<')
	if p.peek() == '>' {
		return p.errorf("empty type parameter list")
	}
	for p.peek() != '>' {
		if p.pos >= len(p.sig) {
			return p.errorf("unterminated type parameters")
		}
		id, err := p.identifier()
		if err != nil {
			return err
		}
		p.a.ParsedIdentifier(id)
		// ClassBound: : [ReferenceTypeSignature]
		if err := p.expect(':'); err != nil {
			return err
		}
		if c := p.peek(); c == 'L' || c == 'T' || c == '[' {
			if err := p.referenceType(); err != nil {
				return err
			}
		}
		// InterfaceBound: : ReferenceTypeSignature
		for p.peek() == ':' {
			p.expect(':')
			if err := p.referenceType(); err != nil {
				return err
			}
		}
	}
	p.expect('>')
	return nil
}

// ReferenceTypeSignature: ClassTypeSignature | TypeVariableSignature | ArrayTypeSignature
func (p *parser) referenceType() error {
	switch p.peek() {
	case 'L':
		return p.classType()
	case 'T':
		return p.typeVariable()
	case '[':
		p.expect('[')
		return p.javaType()
	}
	if p.pos >= len(p.sig) {
		return p.errorf("want reference type, got end of input")
	}
	return p.errorf("want reference type, got %q", p.peek())
}

// JavaTypeSignature: ReferenceTypeSignature | BaseType
func (p *parser) javaType() error {
	switch c := p.peek(); c {
	case 'B', 'C', 'D', 'F', 'I', 'J', 'S', 'Z':
		p.expect(c)
		return nil
	}
	return p.referenceType()
}

// TypeVariableSignature: T Identifier ;
func (p *parser) typeVariable() error {
	p.expect('T')
	id, err := p.identifier()
	if err != nil {
		return err
	}
	p.a.ParsedIdentifier(id)
	return p.expect(';')
}

// ClassTypeSignature: L [PackageSpecifier] SimpleClassTypeSignature {. SimpleClassTypeSignature} ;
func (p *parser) classType() error {
	if err := p.expect('L'); err != nil {
		return err
	}
	start := p.pos
	for {
		if _, err := p.identifier(); err != nil {
			return err
		}
		if p.peek() != '/' {
			break
		}
		p.pos++
	}
	enclosing := p.a.ParsedTypeName(p.sig[start:p.pos])
	if err := p.optTypeArguments(); err != nil {
		return err
	}
	for p.peek() == '.' {
		p.expect('.')
		id, err := p.identifier()
		if err != nil {
			return err
		}
		enclosing = p.a.ParsedInnerTypeName(enclosing, id)
		if err := p.optTypeArguments(); err != nil {
			return err
		}
	}
	return p.expect(';')
}

// TypeArguments: < TypeArgument {TypeArgument} >
func (p *parser) optTypeArguments() error {
	if p.peek() != '<' {
		return nil
	}
	p.expect('<')
	if p.peek() == '>' {
		return p.errorf("empty type argument list")
	}
	for p.peek() != '>' {
		switch c := p.peek(); c {
		case 0:
			if p.pos >= len(p.sig) {
				return p.errorf("unterminated type arguments")
			}
		case '*':
			p.expect('*')
			continue
		case '+', '-':
			p.expect(c)
		}
		if err := p.referenceType(); err != nil {
			return err
		}
	}
	p.expect('>')
	return nil
}
