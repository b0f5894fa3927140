package syntax

// parseTypeAnnot parses ": Type".
func (p *Parser) parseTypeAnnot() *TypeAnnot {
	start := p.tok.Start
	p.expect(":")
	t := p.parseType()
	return &TypeAnnot{Span: p.span(start), Type: t}
}

func (p *Parser) parseType() TypeNode {
	start := p.tok.Start
	p.eat("|")
	first := p.parseIntersectionType()
	if !p.tok.IsPunct("|") {
		return first
	}
	types := []TypeNode{first}
	for p.eat("|") {
		types = append(types, p.parseIntersectionType())
	}
	return &UnionType{Span: p.span(start), Types: types}
}

func (p *Parser) parseIntersectionType() TypeNode {
	start := p.tok.Start
	p.eat("&")
	first := p.parsePostfixType()
	if !p.tok.IsPunct("&") {
		return first
	}
	types := []TypeNode{first}
	for p.eat("&") {
		types = append(types, p.parsePostfixType())
	}
	return &IntersectionType{Span: p.span(start), Types: types}
}

func (p *Parser) parsePostfixType() TypeNode {
	start := p.tok.Start
	t := p.parsePrimaryType()
	for p.tok.IsPunct("[") && !p.tok.NewlineBefore && p.peek().IsPunct("]") {
		p.next()
		p.next()
		t = &ArrayType{Span: p.span(start), Elem: t}
	}
	return t
}

func (p *Parser) parsePrimaryType() TypeNode {
	start := p.tok.Start
	switch p.tok.Kind {
	case String, Number:
		raw := p.tok.Text
		p.next()
		return &LiteralType{Span: p.span(start), Raw: raw}
	case IdentToken:
		switch p.tok.Text {
		case "typeof":
			p.next()
			name := p.parseDottedName()
			return &TypeofType{Span: p.span(start), Name: name}
		case "keyof", "readonly", "unique":
			op := p.tok.Text
			p.next()
			t := p.parsePostfixType()
			return &TypeRef{Span: p.span(start), Name: op, Args: []TypeNode{t}}
		}
		name := p.parseDottedName()
		ref := &TypeRef{Name: name}
		if p.tok.IsPunct("<") && !p.tok.NewlineBefore {
			ref.Args = p.parseTypeArgs().Types
		}
		ref.Span = p.span(start)
		return ref
	case Punct:
		switch p.tok.Text {
		case "-":
			p.next()
			if p.tok.Kind != Number {
				p.unexpected()
			}
			p.next()
			return &LiteralType{Span: p.span(start), Raw: p.src[start:p.prevEnd]}
		case "(":
			var fn *FuncType
			if p.try(func() { fn = p.parseFuncType(start) }) {
				return fn
			}
			p.next()
			inner := p.parseType()
			p.expect(")")
			return &ParenType{Span: p.span(start), X: inner}
		case "{":
			return p.parseObjectType()
		case "[":
			p.next()
			tuple := &TupleType{}
			for !p.tok.IsPunct("]") {
				if p.tok.Kind == IdentToken && (p.peek().IsPunct(":") || p.peek().IsPunct("?")) {
					p.next()
					p.eat("?")
					p.expect(":")
				}
				p.eat("...")
				tuple.Elems = append(tuple.Elems, p.parseType())
				if !p.tok.IsPunct("]") {
					p.expect(",")
				}
			}
			p.next()
			tuple.Span = p.span(start)
			return tuple
		case "<":
			return p.parseFuncType(start)
		}
	case Template:
		raw := p.tok.Text
		p.next()
		return &LiteralType{Span: p.span(start), Raw: raw}
	}
	p.failAt(p.tok.Start, "expected type but found %s", p.tok)
	return nil
}

func (p *Parser) parseDottedName() string {
	name := p.parseIdent().Name
	for p.tok.IsPunct(".") {
		p.next()
		name += "." + p.parseIdent().Name
	}
	return name
}

// parseFuncType parses "[<T>](params) => Ret".
func (p *Parser) parseFuncType(start int) *FuncType {
	if p.tok.IsPunct("<") {
		p.parseTypeParams()
	}
	params := p.parseParams(false)
	p.expect("=>")
	ret := p.parseType()
	return &FuncType{Span: p.span(start), Params: params, Return: ret}
}

func (p *Parser) parseObjectType() TypeNode {
	start := p.tok.Start
	p.expect("{")
	obj := &ObjectType{}
	for !p.tok.IsPunct("}") {
		mstart := p.tok.Start
		m := &TypeMember{}
		if p.tok.IsWord("readonly") && !isMemberNameFollower(p.peek()) {
			m.Readonly = true
			p.next()
		}
		switch {
		case p.tok.IsPunct("["):
			p.next()
			p.parseIdent()
			p.expect(":")
			p.parseType()
			p.expect("]")
			m.Name = "[index]"
		case p.tok.IsPunct("("):
			m.Name = "()"
		default:
			key, _ := p.parsePropertyKey()
			switch k := key.(type) {
			case *Ident:
				m.Name = k.Name
			case *Literal:
				m.Name = k.Raw
			}
		}
		if p.tok.IsPunct("?") {
			m.Optional = true
			p.next()
		}
		if p.tok.IsPunct("(") || p.tok.IsPunct("<") {
			fstart := p.tok.Start
			if p.tok.IsPunct("<") {
				p.parseTypeParams()
			}
			params := p.parseParams(false)
			var ret TypeNode
			if p.tok.IsPunct(":") {
				ret = p.parseTypeAnnot().Type
			}
			m.Type = &FuncType{Span: p.span(fstart), Params: params, Return: ret}
		} else if p.tok.IsPunct(":") {
			m.Type = p.parseTypeAnnot().Type
		}
		m.Span = p.span(mstart)
		obj.Members = append(obj.Members, m)
		if !p.eat(";") && !p.eat(",") && !p.tok.IsPunct("}") && !p.tok.NewlineBefore {
			p.unexpected()
		}
	}
	p.next()
	obj.Span = p.span(start)
	return obj
}

// parseTypeParams parses "<T, U extends V = W>".
func (p *Parser) parseTypeParams() *TypeParams {
	start := p.tok.Start
	p.expect("<")
	params := &TypeParams{}
	for !p.isTypeClose() {
		params.Names = append(params.Names, p.parseBindingIdent().Name)
		if p.eatWord("extends") {
			p.parseType()
		}
		if p.eat("=") {
			p.parseType()
		}
		if !p.eat(",") {
			break
		}
	}
	p.expectTypeClose()
	params.Span = p.span(start)
	return params
}

func (p *Parser) parseTypeArgs() *TypeArgs {
	start := p.tok.Start
	p.expect("<")
	args := &TypeArgs{}
	for !p.isTypeClose() {
		args.Types = append(args.Types, p.parseType())
		if !p.eat(",") {
			break
		}
	}
	p.expectTypeClose()
	args.Span = p.span(start)
	return args
}

func (p *Parser) isTypeClose() bool {
	if p.tok.Kind != Punct {
		return false
	}
	switch p.tok.Text {
	case ">", ">>", ">>>", ">=", ">>=", ">>>=":
		return true
	}
	return false
}

// expectTypeClose consumes one '>', splitting compound tokens such as ">>"
// that close nested argument lists.
func (p *Parser) expectTypeClose() {
	if !p.isTypeClose() {
		p.failAt(p.tok.Start, "expected \">\" but found %s", p.tok)
	}
	if p.tok.Text == ">" {
		p.next()
		return
	}
	p.prevEnd = p.tok.Start + 1
	p.tok = Token{Kind: Punct, Text: p.tok.Text[1:], Start: p.tok.Start + 1, End: p.tok.End}
}
