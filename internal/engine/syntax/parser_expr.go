package syntax

// Binary operator precedence, loosest first.
const (
	precNone = iota
	precNullish
	precLogicalOr
	precLogicalAnd
	precBitwiseOr
	precBitwiseXor
	precBitwiseAnd
	precEquals
	precCompare
	precShift
	precAdd
	precMultiply
	precExponent
)

var binaryPrec = map[string]int{
	"??": precNullish,
	"||": precLogicalOr,
	"&&": precLogicalAnd,
	"|":  precBitwiseOr,
	"^":  precBitwiseXor,
	"&":  precBitwiseAnd,
	"==": precEquals, "!=": precEquals, "===": precEquals, "!==": precEquals,
	"<": precCompare, ">": precCompare, "<=": precCompare, ">=": precCompare,
	"instanceof": precCompare, "in": precCompare, "as": precCompare,
	"<<": precShift, ">>": precShift, ">>>": precShift,
	"+": precAdd, "-": precAdd,
	"*": precMultiply, "/": precMultiply, "%": precMultiply,
	"**": precExponent,
}

var assignOps = map[string]bool{
	"=": true, "+=": true, "-=": true, "*=": true, "/=": true, "%=": true,
	"**=": true, "<<=": true, ">>=": true, ">>>=": true, "&=": true, "|=": true,
	"^=": true, "&&=": true, "||=": true, "??=": true,
}

func (p *Parser) parseExpression(noIn bool) Expr {
	start := p.tok.Start
	x := p.parseAssign(noIn)
	if !p.tok.IsPunct(",") {
		return x
	}
	list := []Expr{x}
	for p.eat(",") {
		list = append(list, p.parseAssign(noIn))
	}
	return &SeqExpr{Span: p.span(start), List: list}
}

func (p *Parser) parseAssign(noIn bool) Expr {
	if arrow := p.tryArrow(noIn); arrow != nil {
		return arrow
	}
	start := p.tok.Start
	if p.tok.IsWord("yield") && p.inGenerator {
		p.next()
		y := &YieldExpr{}
		if p.eat("*") {
			y.Delegate = true
			y.X = p.parseAssign(noIn)
		} else if !p.tok.NewlineBefore && p.startsExpression() {
			y.X = p.parseAssign(noIn)
		}
		y.Span = p.span(start)
		return y
	}

	left := p.parseConditional(noIn)
	if p.tok.Kind == Punct && assignOps[p.tok.Text] {
		op := p.tok.Text
		p.next()
		value := p.parseAssign(noIn)
		return &AssignExpr{Span: p.span(start), Op: op, Target: left, Value: value}
	}
	return left
}

// startsExpression reports whether the current token can begin an
// expression operand.
func (p *Parser) startsExpression() bool {
	switch p.tok.Kind {
	case EOF:
		return false
	case Punct:
		switch p.tok.Text {
		case ")", "]", "}", ",", ";", ":", "=>":
			return false
		}
	}
	return true
}

// tryArrow recognizes arrow functions speculatively and returns nil when the
// tokens do not form one.
func (p *Parser) tryArrow(noIn bool) Expr {
	start := p.tok.Start
	async := false
	if p.tok.IsWord("async") {
		next := p.peek()
		if next.NewlineBefore || !(next.Kind == IdentToken || next.IsPunct("(")) {
			return nil
		}
		async = true
	}

	switch {
	case !async && p.tok.Kind == IdentToken && !IsReservedWord(p.tok.Text):
		if !p.peek().IsPunct("=>") {
			return nil
		}
	case !async && p.tok.IsPunct("("):
	case async:
	default:
		return nil
	}

	var fn *Function
	ok := p.try(func() {
		if async {
			p.next()
		}
		fn = &Function{Arrow: true, Async: async}
		if p.tok.Kind == IdentToken {
			pstart := p.tok.Start
			name := p.parseBindingIdent()
			fn.Params = []*Param{{Span: p.span(pstart), Name: name, Question: -1}}
		} else {
			fn.Params = p.parseParams(false)
			if p.tok.IsPunct(":") {
				fn.ReturnType = p.parseTypeAnnot()
			}
		}
		if !p.tok.IsPunct("=>") || p.tok.NewlineBefore {
			p.failAt(p.tok.Start, "expected \"=>\"")
		}
		p.next()
	})
	if !ok {
		return nil
	}

	savedGen, savedAsync := p.inGenerator, p.inAsync
	p.inGenerator, p.inAsync = false, async
	if p.tok.IsPunct("{") {
		fn.Body = p.parseBlock(true)
	} else {
		fn.ExprBody = p.parseAssign(noIn)
	}
	p.inGenerator, p.inAsync = savedGen, savedAsync
	fn.Span = p.span(start)
	return &FuncExpr{Span: p.span(start), Func: fn}
}

func (p *Parser) parseConditional(noIn bool) Expr {
	start := p.tok.Start
	test := p.parseBinary(precNullish, noIn)
	if !p.eat("?") {
		return test
	}
	then := p.parseAssign(false)
	p.expect(":")
	els := p.parseAssign(noIn)
	return &CondExpr{Span: p.span(start), Test: test, Then: then, Else: els}
}

func (p *Parser) binaryOp(noIn bool) (string, int) {
	switch p.tok.Kind {
	case Punct:
		return p.tok.Text, binaryPrec[p.tok.Text]
	case IdentToken:
		switch p.tok.Text {
		case "instanceof":
			return p.tok.Text, precCompare
		case "in":
			if noIn {
				return "", precNone
			}
			return p.tok.Text, precCompare
		case "as":
			if p.tok.NewlineBefore {
				return "", precNone
			}
			return p.tok.Text, precCompare
		}
	}
	return "", precNone
}

func (p *Parser) parseBinary(minPrec int, noIn bool) Expr {
	start := p.tok.Start
	left := p.parseUnary()
	for {
		op, prec := p.binaryOp(noIn)
		if prec == precNone || prec < minPrec {
			return left
		}
		if op == "as" {
			asPos := p.tok.Start
			p.next()
			t := p.parseType()
			left = &CastExpr{Span: p.span(start), X: left, AsPos: asPos, Type: t}
			continue
		}
		p.next()
		next := prec + 1
		if op == "**" {
			next = prec
		}
		right := p.parseBinary(next, noIn)
		left = &BinaryExpr{Span: p.span(start), Op: op, X: left, Y: right}
	}
}

func (p *Parser) parseUnary() Expr {
	start := p.tok.Start
	switch p.tok.Kind {
	case Punct:
		switch p.tok.Text {
		case "!", "~", "+", "-":
			op := p.tok.Text
			p.next()
			x := p.parseUnary()
			return &UnaryExpr{Span: p.span(start), Op: op, X: x}
		case "++", "--":
			op := p.tok.Text
			p.next()
			x := p.parseUnary()
			return &UpdateExpr{Span: p.span(start), Op: op, Prefix: true, X: x}
		}
	case IdentToken:
		switch p.tok.Text {
		case "typeof", "void", "delete":
			op := p.tok.Text
			p.next()
			x := p.parseUnary()
			return &UnaryExpr{Span: p.span(start), Op: op, X: x}
		case "await":
			if p.inAsync || p.startsAwaitOperand() {
				p.next()
				x := p.parseUnary()
				return &AwaitExpr{Span: p.span(start), X: x}
			}
		}
	}

	x := p.parseLeftHandSide()
	if (p.tok.IsPunct("++") || p.tok.IsPunct("--")) && !p.tok.NewlineBefore {
		op := p.tok.Text
		p.next()
		return &UpdateExpr{Span: p.span(start), Op: op, X: x}
	}
	return x
}

// startsAwaitOperand allows top-level await when an operand follows on the
// same line.
func (p *Parser) startsAwaitOperand() bool {
	next := p.peek()
	if next.NewlineBefore || next.Kind == EOF {
		return false
	}
	if next.Kind == Punct {
		switch next.Text {
		case "(", "[", "{", "!", "~", "+", "-", "`":
			return true
		}
		return false
	}
	return next.Kind != IdentToken || !binaryWord(next.Text)
}

func binaryWord(s string) bool {
	return s == "instanceof" || s == "in" || s == "as" || s == "of"
}

// parseLeftHandSide parses member access, calls and new expressions.
func (p *Parser) parseLeftHandSide() Expr {
	start := p.tok.Start
	var x Expr
	if p.tok.IsWord("new") {
		x = p.parseNew()
	} else {
		x = p.parsePrimary()
	}
	return p.parseSuffixes(start, x, true)
}

func (p *Parser) parseSuffixes(start int, x Expr, allowCall bool) Expr {
	for {
		switch {
		case p.tok.IsPunct("."):
			p.next()
			x = &MemberExpr{X: x, Name: p.parseMemberName()}
			x.(*MemberExpr).Span = p.span(start)
		case p.tok.IsPunct("?."):
			if !allowCall {
				return x
			}
			p.next()
			switch {
			case p.tok.IsPunct("("):
				x = p.parseCall(start, x, nil, true)
			case p.tok.IsPunct("["):
				p.next()
				index := p.parseExpression(false)
				p.expect("]")
				x = &IndexExpr{Span: p.span(start), X: x, Index: index, Optional: true}
			default:
				x = &MemberExpr{X: x, Name: p.parseMemberName(), Optional: true}
				x.(*MemberExpr).Span = p.span(start)
			}
		case p.tok.IsPunct("["):
			p.next()
			index := p.parseExpression(false)
			p.expect("]")
			x = &IndexExpr{Span: p.span(start), X: x, Index: index}
		case p.tok.Kind == Template || p.tok.Kind == TemplateHead:
			x = p.parseTemplate(start, x)
		case allowCall && p.tok.IsPunct("("):
			x = p.parseCall(start, x, nil, false)
		case allowCall && p.tok.IsPunct("<") && !p.tok.NewlineBefore:
			var args *TypeArgs
			if !p.try(func() {
				args = p.parseTypeArgs()
				if !p.tok.IsPunct("(") {
					p.unexpected()
				}
			}) {
				return x
			}
			x = p.parseCall(start, x, args, false)
		default:
			return x
		}
	}
}

func (p *Parser) parseMemberName() *Ident {
	if p.tok.IsPunct("#") {
		start := p.tok.Start
		p.next()
		id := p.parseIdent()
		id.Name = "#" + id.Name
		id.Start = start
		return id
	}
	return p.parseIdent()
}

func (p *Parser) parseCall(start int, callee Expr, typeArgs *TypeArgs, optional bool) Expr {
	lparen := p.tok.Start
	args := p.parseArguments()
	return &CallExpr{
		Span:     p.span(start),
		Callee:   callee,
		TypeArgs: typeArgs,
		Args:     args,
		Optional: optional,
		Lparen:   lparen,
		Rparen:   p.prevEnd - 1,
	}
}

func (p *Parser) parseNew() Expr {
	start := p.tok.Start
	p.next()
	if p.eat(".") {
		prop := p.parseIdent()
		return &MetaProperty{Span: p.span(start), Meta: "new", Property: prop.Name}
	}
	var callee Expr
	cstart := p.tok.Start
	if p.tok.IsWord("new") {
		callee = p.parseNew()
	} else {
		callee = p.parsePrimary()
	}
	callee = p.parseSuffixes(cstart, callee, false)

	n := &NewExpr{Callee: callee}
	if p.tok.IsPunct("<") {
		var args *TypeArgs
		if p.try(func() {
			args = p.parseTypeArgs()
			if !p.tok.IsPunct("(") {
				p.unexpected()
			}
		}) {
			n.TypeArgs = args
		}
	}
	if p.tok.IsPunct("(") {
		n.Lparen = p.tok.Start
		n.Args = p.parseArguments()
		n.HasArgs = true
		n.Rparen = p.prevEnd - 1
	}
	n.Span = p.span(start)
	return n
}

// parseArguments parses a parenthesized argument list. "label: expr" is
// tried first and rewound when the colon belongs to something else.
func (p *Parser) parseArguments() []Expr {
	p.expect("(")
	var args []Expr
	for !p.tok.IsPunct(")") {
		start := p.tok.Start
		switch {
		case p.eat("..."):
			x := p.parseAssign(false)
			args = append(args, &SpreadExpr{Span: p.span(start), X: x})
		case p.tok.Kind == IdentToken && p.peek().IsPunct(":"):
			var arg Expr
			if p.try(func() {
				label := p.parseIdent()
				p.expect(":")
				value := p.parseAssign(false)
				if !p.tok.IsPunct(",") && !p.tok.IsPunct(")") {
					p.unexpected()
				}
				arg = &NamedArg{Span: p.span(start), Label: label, Value: value}
			}) {
				args = append(args, arg)
			} else {
				args = append(args, p.parseAssign(false))
			}
		default:
			args = append(args, p.parseAssign(false))
		}
		if !p.eat(",") {
			break
		}
	}
	p.expect(")")
	return args
}

func (p *Parser) parsePrimary() Expr {
	start := p.tok.Start
	switch p.tok.Kind {
	case IdentToken:
		switch p.tok.Text {
		case "this":
			p.next()
			return &ThisExpr{Span: p.span(start)}
		case "super":
			p.next()
			return &SuperExpr{Span: p.span(start)}
		case "null", "true", "false":
			kind := map[string]LitKind{"null": LitNull, "true": LitTrue, "false": LitFalse}[p.tok.Text]
			raw := p.tok.Text
			p.next()
			return &Literal{Span: p.span(start), Kind: kind, Raw: raw}
		case "function":
			fn := p.parseFunction(start, false, false, false)
			return &FuncExpr{Span: p.span(start), Func: fn}
		case "class":
			class := p.parseClass(false)
			return &ClassExpr{Span: p.span(start), Class: class}
		case "async":
			if next := p.peek(); next.IsWord("function") && !next.NewlineBefore {
				p.next()
				fn := p.parseFunction(start, true, false, false)
				return &FuncExpr{Span: p.span(start), Func: fn}
			}
		}
		if IsReservedWord(p.tok.Text) && p.tok.Text != "import" {
			p.unexpected()
		}
		return p.parseIdent()
	case Number, String, Regex:
		kind := LitNumber
		if p.tok.Kind == String {
			kind = LitString
		} else if p.tok.Kind == Regex {
			kind = LitRegex
		}
		raw := p.tok.Text
		p.next()
		return &Literal{Span: p.span(start), Kind: kind, Raw: raw}
	case Template, TemplateHead:
		return p.parseTemplate(start, nil)
	case Punct:
		switch p.tok.Text {
		case "(":
			p.next()
			x := p.parseExpression(false)
			p.expect(")")
			return &ParenExpr{Span: p.span(start), X: x}
		case "[":
			return p.parseArrayLit()
		case "{":
			return p.parseObjectLit()
		}
	}
	p.unexpected()
	return nil
}

func (p *Parser) parseTemplate(start int, tag Expr) Expr {
	lit := &TemplateLit{Tag: tag}
	if p.tok.Kind == Template {
		p.next()
		lit.Span = p.span(start)
		return lit
	}
	for {
		p.next()
		lit.Exprs = append(lit.Exprs, p.parseExpression(false))
		if !p.tok.IsPunct("}") {
			p.failAt(p.tok.Start, "expected \"}\" in template literal but found %s", p.tok)
		}
		tok, err := p.lex.ContinueTemplate(p.tok.Start)
		if err != nil {
			panic(bailout{err})
		}
		p.tok = tok
		if tok.Kind == TemplateTail {
			p.next()
			lit.Span = p.span(start)
			return lit
		}
	}
}

func (p *Parser) parseArrayLit() Expr {
	start := p.tok.Start
	p.expect("[")
	arr := &ArrayLit{}
	for !p.tok.IsPunct("]") {
		if p.tok.IsPunct(",") {
			p.next()
			arr.Elems = append(arr.Elems, nil)
			continue
		}
		estart := p.tok.Start
		var elem Expr
		if p.eat("...") {
			x := p.parseAssign(false)
			elem = &SpreadExpr{Span: p.span(estart), X: x}
		} else {
			elem = p.parseAssign(false)
		}
		arr.Elems = append(arr.Elems, elem)
		if !p.tok.IsPunct("]") {
			p.expect(",")
		}
	}
	p.next()
	arr.Span = p.span(start)
	return arr
}

func (p *Parser) parseObjectLit() Expr {
	start := p.tok.Start
	p.expect("{")
	obj := &ObjectLit{}
	for !p.tok.IsPunct("}") {
		obj.Props = append(obj.Props, p.parseProperty())
		if !p.tok.IsPunct("}") {
			p.expect(",")
		}
	}
	p.next()
	obj.Span = p.span(start)
	return obj
}

func (p *Parser) parseProperty() *Property {
	start := p.tok.Start
	if p.eat("...") {
		x := p.parseAssign(false)
		return &Property{Span: p.span(start), Kind: PropSpread, Value: x}
	}

	async, generator := false, false
	kind := PropInit
	if p.tok.IsWord("async") && !isPropertyKeyFollower(p.peek()) {
		async = true
		p.next()
	}
	if p.eat("*") {
		generator = true
	}
	if !async && !generator && (p.tok.IsWord("get") || p.tok.IsWord("set")) && !isPropertyKeyFollower(p.peek()) {
		kind = PropGet
		if p.tok.Text == "set" {
			kind = PropSet
		}
		p.next()
	}

	key, computed := p.parsePropertyKey()

	if p.tok.IsPunct("(") || p.tok.IsPunct("<") || kind != PropInit || async || generator {
		if kind == PropInit {
			kind = PropMethod
		}
		fn := &Function{Async: async, Generator: generator}
		p.parseFunctionRest(fn)
		fn.Span = p.span(key.Pos())
		return &Property{Span: p.span(start), Kind: kind, Key: key, Computed: computed, Func: fn}
	}

	if p.eat(":") {
		value := p.parseAssign(false)
		return &Property{Span: p.span(start), Kind: PropInit, Key: key, Computed: computed, Value: value}
	}

	id, ok := key.(*Ident)
	if !ok || computed {
		p.failAt(p.tok.Start, "expected \":\" but found %s", p.tok)
	}
	var value Expr = &Ident{Span: Span{NodeID: p.newID(), Start: id.Start, End: id.End}, Name: id.Name}
	if p.tok.IsPunct("=") {
		p.next()
		def := p.parseAssign(false)
		value = &AssignExpr{Span: p.span(start), Op: "=", Target: value, Value: def}
	}
	return &Property{Span: p.span(start), Kind: PropShorthand, Key: key, Value: value}
}

func isPropertyKeyFollower(tok Token) bool {
	if tok.Kind != Punct {
		return false
	}
	switch tok.Text {
	case ",", ":", "(", "}", "=", "<":
		return true
	}
	return false
}
