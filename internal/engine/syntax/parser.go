// Package syntax parses the extended JavaScript grammar into an AST whose
// nodes carry byte ranges and stable ids.
package syntax

import (
	cerrors "nilscript/internal/core/errors"
)

// stmtParser handles a statement starting with a given keyword or
// punctuator. It returns nil to hand the token back to the base grammar.
type stmtParser func(p *Parser) Stmt

// memberParser handles a class member starting with a given word. It
// returns nil to hand the token back to the base member grammar.
type memberParser func(p *Parser, m memberPrefix) ClassMember

type memberPrefix struct {
	start  int
	static bool
	async  bool
}

// Parser is a single-use recursive descent parser. Syntax errors unwind
// through panics carrying a bailout and are recovered in Parse; speculative
// productions recover them locally and rewind.
type Parser struct {
	lex     *Lexer
	src     string
	path    string
	tok     Token
	prevEnd int
	nextID  NodeID

	stmts   map[string]stmtParser
	members map[string]memberParser

	inGenerator bool
	inAsync     bool
}

type bailout struct {
	err error
}

type parserState struct {
	lex         lexerState
	tok         Token
	prevEnd     int
	nextID      NodeID
	inGenerator bool
	inAsync     bool
}

// Parse parses text into a Program. A syntax error is returned as a
// *errors.Issue of kind Parse carrying a 1-based line and column.
func Parse(path, text string) (prog *Program, err error) {
	p := newParser(path, text)
	defer func() {
		if r := recover(); r != nil {
			b, ok := r.(bailout)
			if !ok {
				panic(r)
			}
			prog = nil
			err = b.err
			if issue, ok := cerrors.AsIssue(err); ok {
				issue.At(path, 0, 0)
			}
		}
	}()

	p.next()
	prog = &Program{Path: path, Source: text, Lines: p.lex.Lines()}
	for p.tok.Kind != EOF {
		prog.Body = append(prog.Body, p.parseStatement())
	}
	prog.Span = Span{NodeID: p.newID(), Start: 0, End: len(text)}
	prog.NodeCount = int(p.nextID)
	return prog, nil
}

func newParser(path, text string) *Parser {
	p := &Parser{
		lex:  NewLexer(text),
		src:  text,
		path: path,
	}
	p.stmts = baseStatements()
	for k, v := range extensionStatements() {
		p.stmts[k] = chainStmt(v, p.stmts[k])
	}
	p.members = extensionMembers()
	return p
}

// chainStmt tries ext first and falls back to base.
func chainStmt(ext, base stmtParser) stmtParser {
	if base == nil {
		return ext
	}
	return func(p *Parser) Stmt {
		if s := ext(p); s != nil {
			return s
		}
		return base(p)
	}
}

func baseStatements() map[string]stmtParser {
	return map[string]stmtParser{
		"var":      func(p *Parser) Stmt { return p.parseVarStatement() },
		"let":      (*Parser).parseLetStatement,
		"const":    func(p *Parser) Stmt { return p.parseVarStatement() },
		"function": func(p *Parser) Stmt { return p.parseFuncDecl(p.tok.Start, false) },
		"async":    (*Parser).parseAsyncStatement,
		"class":    func(p *Parser) Stmt { return p.parseClassDecl() },
		"if":       (*Parser).parseIf,
		"for":      (*Parser).parseFor,
		"while":    (*Parser).parseWhile,
		"do":       (*Parser).parseDoWhile,
		"return":   (*Parser).parseReturn,
		"break":    (*Parser).parseBreak,
		"continue": (*Parser).parseContinue,
		"throw":    (*Parser).parseThrow,
		"try":      (*Parser).parseTry,
		"switch":   (*Parser).parseSwitch,
		"debugger": (*Parser).parseDebugger,
		"{":        func(p *Parser) Stmt { return p.parseBlock(false) },
		";":        (*Parser).parseEmpty,
	}
}

// ----------------------------------------------------------------------------
// Token plumbing

func (p *Parser) next() {
	p.prevEnd = p.tok.End
	tok, err := p.lex.Next()
	if err != nil {
		panic(bailout{err})
	}
	p.tok = tok
}

// peek returns the token after the current one without consuming it.
func (p *Parser) peek() Token {
	saved := p.lex.save()
	tok, err := p.lex.Next()
	p.lex.restore(saved)
	if err != nil {
		return Token{Kind: EOF, Start: p.tok.End, End: p.tok.End}
	}
	return tok
}

func (p *Parser) newID() NodeID {
	id := p.nextID
	p.nextID++
	return id
}

// span closes a node that started at start and ends at the previous token.
func (p *Parser) span(start int) Span {
	return Span{NodeID: p.newID(), Start: start, End: p.prevEnd}
}

func (p *Parser) failAt(offset int, format string, args ...interface{}) {
	line, col := p.lex.Lines().Position(offset)
	panic(bailout{cerrors.NewParseIssue(line, col, format, args...)})
}

func (p *Parser) unexpected() {
	if p.tok.Kind == EOF {
		p.failAt(p.tok.Start, "unexpected end of file")
	}
	p.failAt(p.tok.Start, "unexpected token %s", p.tok)
}

func (p *Parser) expect(text string) Token {
	if p.tok.Kind != Punct || p.tok.Text != text {
		p.failAt(p.tok.Start, "expected %q but found %s", text, p.tok)
	}
	tok := p.tok
	p.next()
	return tok
}

func (p *Parser) expectWord(text string) {
	if !p.tok.IsWord(text) {
		p.failAt(p.tok.Start, "expected %q but found %s", text, p.tok)
	}
	p.next()
}

func (p *Parser) eat(text string) bool {
	if p.tok.Kind == Punct && p.tok.Text == text {
		p.next()
		return true
	}
	return false
}

func (p *Parser) eatWord(text string) bool {
	if p.tok.IsWord(text) {
		p.next()
		return true
	}
	return false
}

// semicolon consumes a statement terminator, applying automatic semicolon
// insertion.
func (p *Parser) semicolon() {
	if p.eat(";") {
		return
	}
	if p.tok.IsPunct("}") || p.tok.Kind == EOF || p.tok.NewlineBefore {
		return
	}
	p.failAt(p.tok.Start, "expected \";\" but found %s", p.tok)
}

func (p *Parser) save() parserState {
	return parserState{
		lex:         p.lex.save(),
		tok:         p.tok,
		prevEnd:     p.prevEnd,
		nextID:      p.nextID,
		inGenerator: p.inGenerator,
		inAsync:     p.inAsync,
	}
}

func (p *Parser) restore(s parserState) {
	p.lex.restore(s.lex)
	p.tok = s.tok
	p.prevEnd = s.prevEnd
	p.nextID = s.nextID
	p.inGenerator = s.inGenerator
	p.inAsync = s.inAsync
}

// try runs fn speculatively. On a syntax error the parser rewinds and try
// reports false.
func (p *Parser) try(fn func()) (ok bool) {
	saved := p.save()
	defer func() {
		if r := recover(); r != nil {
			if _, isBail := r.(bailout); !isBail {
				panic(r)
			}
			p.restore(saved)
			ok = false
		}
	}()
	fn()
	return true
}

func (p *Parser) parseIdent() *Ident {
	if p.tok.Kind != IdentToken {
		p.failAt(p.tok.Start, "expected identifier but found %s", p.tok)
	}
	start, name := p.tok.Start, p.tok.Text
	p.next()
	return &Ident{Span: p.span(start), Name: name}
}

// parseBindingIdent parses an identifier that introduces a binding.
func (p *Parser) parseBindingIdent() *Ident {
	if p.tok.Kind == IdentToken && IsReservedWord(p.tok.Text) {
		p.failAt(p.tok.Start, "unexpected reserved word %s", p.tok)
	}
	return p.parseIdent()
}

// ----------------------------------------------------------------------------
// Statements

func (p *Parser) parseStatement() Stmt {
	if p.tok.Kind == IdentToken || p.tok.Kind == Punct {
		if fn, ok := p.stmts[p.tok.Text]; ok {
			if s := fn(p); s != nil {
				return s
			}
		}
	}
	if p.tok.Kind == IdentToken && !IsReservedWord(p.tok.Text) && p.peek().IsPunct(":") {
		start := p.tok.Start
		label := p.parseIdent()
		p.expect(":")
		body := p.parseStatement()
		return &LabeledStmt{Span: p.span(start), Label: label, Body: body}
	}
	return p.parseExprStatement()
}

func (p *Parser) parseExprStatement() Stmt {
	start := p.tok.Start
	x := p.parseExpression(false)
	p.semicolon()
	return &ExprStmt{Span: p.span(start), X: x}
}

func (p *Parser) parseEmpty() Stmt {
	start := p.tok.Start
	p.next()
	return &EmptyStmt{Span: p.span(start)}
}

func (p *Parser) parseDebugger() Stmt {
	start := p.tok.Start
	p.next()
	p.semicolon()
	return &DebuggerStmt{Span: p.span(start)}
}

func (p *Parser) parseBlock(functionBody bool) *BlockStmt {
	start := p.tok.Start
	p.expect("{")
	var body []Stmt
	for !p.tok.IsPunct("}") {
		if p.tok.Kind == EOF {
			p.unexpected()
		}
		body = append(body, p.parseStatement())
	}
	p.next()
	return &BlockStmt{Span: p.span(start), Body: body, FunctionBody: functionBody}
}

func (p *Parser) parseVarStatement() Stmt {
	decl := p.parseVarDecl(false)
	p.semicolon()
	decl.End = p.prevEnd
	return decl
}

// parseLetStatement treats "let" as an identifier when it cannot start a
// declaration.
func (p *Parser) parseLetStatement() Stmt {
	next := p.peek()
	if next.Kind == IdentToken || next.IsPunct("[") || next.IsPunct("{") {
		return p.parseVarStatement()
	}
	return nil
}

func (p *Parser) parseVarDecl(noIn bool) *VarDecl {
	start := p.tok.Start
	kind := p.tok.Text
	p.next()
	decl := &VarDecl{Kind: kind}
	for {
		dstart := p.tok.Start
		target := p.parseBindingTarget()
		var annot *TypeAnnot
		if p.tok.IsPunct(":") {
			annot = p.parseTypeAnnot()
		}
		var init Expr
		if p.eat("=") {
			init = p.parseAssign(noIn)
		}
		decl.List = append(decl.List, &VarDeclarator{Span: p.span(dstart), Target: target, Annot: annot, Init: init})
		if !p.eat(",") {
			break
		}
	}
	decl.Span = p.span(start)
	return decl
}

// parseBindingTarget parses an identifier or a destructuring pattern.
// Patterns reuse the object and array literal nodes.
func (p *Parser) parseBindingTarget() Expr {
	switch {
	case p.tok.IsPunct("["):
		return p.parseArrayLit()
	case p.tok.IsPunct("{"):
		return p.parseObjectLit()
	default:
		return p.parseBindingIdent()
	}
}

func (p *Parser) parseAsyncStatement() Stmt {
	next := p.peek()
	if next.IsWord("function") && !next.NewlineBefore {
		start := p.tok.Start
		p.next()
		return p.parseFuncDecl(start, true)
	}
	return nil
}

func (p *Parser) parseFuncDecl(start int, async bool) Stmt {
	fn := p.parseFunction(start, async, true, false)
	return &FuncDecl{Span: p.span(start), Func: fn}
}

func (p *Parser) parseClassDecl() Stmt {
	start := p.tok.Start
	class := p.parseClass(true)
	return &ClassDecl{Span: p.span(start), Class: class}
}

func (p *Parser) parseIf() Stmt {
	start := p.tok.Start
	p.next()
	p.expect("(")
	test := p.parseExpression(false)
	p.expect(")")
	then := p.parseStatement()
	var els Stmt
	if p.eatWord("else") {
		els = p.parseStatement()
	}
	return &IfStmt{Span: p.span(start), Test: test, Then: then, Else: els}
}

func (p *Parser) parseFor() Stmt {
	start := p.tok.Start
	p.next()
	await := p.eatWord("await")
	p.expect("(")

	var init Node
	switch {
	case p.tok.IsPunct(";"):
	case p.tok.IsWord("var") || p.tok.IsWord("const") ||
		(p.tok.IsWord("let") && (p.peek().Kind == IdentToken || p.peek().IsPunct("[") || p.peek().IsPunct("{"))):
		init = p.parseVarDecl(true)
	default:
		init = p.parseExpression(true)
	}

	if init != nil && (p.tok.IsWord("of") || p.tok.IsWord("in")) {
		of := p.tok.Text == "of"
		p.next()
		var right Expr
		if of {
			right = p.parseAssign(false)
		} else {
			right = p.parseExpression(false)
		}
		p.expect(")")
		body := p.parseStatement()
		return &ForInStmt{Span: p.span(start), Left: init, Right: right, Body: body, Of: of, Await: await}
	}

	p.expect(";")
	var test, update Expr
	if !p.tok.IsPunct(";") {
		test = p.parseExpression(false)
	}
	p.expect(";")
	if !p.tok.IsPunct(")") {
		update = p.parseExpression(false)
	}
	p.expect(")")
	body := p.parseStatement()
	return &ForStmt{Span: p.span(start), Init: init, Test: test, Update: update, Body: body}
}

func (p *Parser) parseWhile() Stmt {
	start := p.tok.Start
	p.next()
	p.expect("(")
	test := p.parseExpression(false)
	p.expect(")")
	body := p.parseStatement()
	return &WhileStmt{Span: p.span(start), Test: test, Body: body}
}

func (p *Parser) parseDoWhile() Stmt {
	start := p.tok.Start
	p.next()
	body := p.parseStatement()
	p.expectWord("while")
	p.expect("(")
	test := p.parseExpression(false)
	p.expect(")")
	p.eat(";")
	return &DoWhileStmt{Span: p.span(start), Body: body, Test: test}
}

func (p *Parser) parseReturn() Stmt {
	start := p.tok.Start
	p.next()
	var x Expr
	if !p.tok.IsPunct(";") && !p.tok.IsPunct("}") && p.tok.Kind != EOF && !p.tok.NewlineBefore {
		x = p.parseExpression(false)
	}
	p.semicolon()
	return &ReturnStmt{Span: p.span(start), X: x}
}

func (p *Parser) parseJumpLabel() *Ident {
	if p.tok.Kind == IdentToken && !p.tok.NewlineBefore && !IsReservedWord(p.tok.Text) {
		return p.parseIdent()
	}
	return nil
}

func (p *Parser) parseBreak() Stmt {
	start := p.tok.Start
	p.next()
	label := p.parseJumpLabel()
	p.semicolon()
	return &BreakStmt{Span: p.span(start), Label: label}
}

func (p *Parser) parseContinue() Stmt {
	start := p.tok.Start
	p.next()
	label := p.parseJumpLabel()
	p.semicolon()
	return &ContinueStmt{Span: p.span(start), Label: label}
}

func (p *Parser) parseThrow() Stmt {
	start := p.tok.Start
	p.next()
	if p.tok.NewlineBefore {
		p.failAt(p.tok.Start, "illegal newline after throw")
	}
	x := p.parseExpression(false)
	p.semicolon()
	return &ThrowStmt{Span: p.span(start), X: x}
}

func (p *Parser) parseTry() Stmt {
	start := p.tok.Start
	p.next()
	block := p.parseBlock(false)
	stmt := &TryStmt{Block: block}
	if p.tok.IsWord("catch") {
		cstart := p.tok.Start
		p.next()
		clause := &CatchClause{}
		if p.eat("(") {
			clause.Param = p.parseBindingTarget()
			if p.tok.IsPunct(":") {
				clause.Annot = p.parseTypeAnnot()
			}
			p.expect(")")
		}
		clause.Body = p.parseBlock(false)
		clause.Span = p.span(cstart)
		stmt.Catch = clause
	}
	if p.eatWord("finally") {
		stmt.Finally = p.parseBlock(false)
	}
	if stmt.Catch == nil && stmt.Finally == nil {
		p.failAt(p.tok.Start, "expected catch or finally after try block")
	}
	stmt.Span = p.span(start)
	return stmt
}

func (p *Parser) parseSwitch() Stmt {
	start := p.tok.Start
	p.next()
	p.expect("(")
	disc := p.parseExpression(false)
	p.expect(")")
	p.expect("{")
	stmt := &SwitchStmt{Disc: disc}
	for !p.eat("}") {
		cstart := p.tok.Start
		c := &SwitchCase{}
		switch {
		case p.eatWord("case"):
			c.Test = p.parseExpression(false)
		case p.eatWord("default"):
		default:
			p.unexpected()
		}
		p.expect(":")
		for !p.tok.IsWord("case") && !p.tok.IsWord("default") && !p.tok.IsPunct("}") {
			if p.tok.Kind == EOF {
				p.unexpected()
			}
			c.Body = append(c.Body, p.parseStatement())
		}
		c.Span = p.span(cstart)
		stmt.Cases = append(stmt.Cases, c)
	}
	stmt.Span = p.span(start)
	return stmt
}

// ----------------------------------------------------------------------------
// Functions and classes

// parseFunction parses from the "function" keyword. start is the offset of
// the first token of the declaration (which may be "async").
func (p *Parser) parseFunction(start int, async, requireName, labeled bool) *Function {
	p.expectWord("function")
	fn := &Function{Async: async, Labeled: labeled}
	if p.eat("*") {
		fn.Generator = true
	}
	if p.tok.Kind == IdentToken {
		fn.Name = p.parseBindingIdent()
	} else if requireName {
		p.failAt(p.tok.Start, "expected function name but found %s", p.tok)
	}
	p.parseFunctionRest(fn)
	fn.Span = p.span(start)
	return fn
}

// parseFunctionRest parses type parameters, parameters, return type and
// body into fn.
func (p *Parser) parseFunctionRest(fn *Function) {
	if p.tok.IsPunct("<") {
		fn.TypeParams = p.parseTypeParams()
	}
	savedGen, savedAsync := p.inGenerator, p.inAsync
	p.inGenerator, p.inAsync = fn.Generator, fn.Async
	fn.Params = p.parseParams(fn.Labeled)
	if p.tok.IsPunct(":") {
		fn.ReturnType = p.parseTypeAnnot()
	}
	fn.Body = p.parseBlock(true)
	p.inGenerator, p.inAsync = savedGen, savedAsync
}

func (p *Parser) parseParams(labeled bool) []*Param {
	p.expect("(")
	var params []*Param
	for !p.tok.IsPunct(")") {
		params = append(params, p.parseParam(labeled))
		if !p.eat(",") {
			break
		}
	}
	p.expect(")")
	return params
}

func (p *Parser) parseParam(labeled bool) *Param {
	start := p.tok.Start
	param := &Param{Question: -1}
	if p.eat("...") {
		param.Rest = true
	}
	if labeled && !param.Rest && p.tok.Kind == IdentToken {
		if next := p.peek(); next.Kind == IdentToken {
			param.Label = p.parseIdent()
		}
	}
	param.Name = p.parseBindingTarget()
	if p.tok.IsPunct("?") {
		param.Question = p.tok.Start
		p.next()
	}
	if p.tok.IsPunct(":") {
		param.Annot = p.parseTypeAnnot()
	}
	if p.eat("=") {
		param.Default = p.parseAssign(false)
	}
	param.Span = p.span(start)
	return param
}

// parseClass parses from the "class" keyword.
func (p *Parser) parseClass(requireName bool) *Class {
	start := p.tok.Start
	p.expectWord("class")
	class := &Class{}
	if p.tok.Kind == IdentToken && !p.tok.IsWord("extends") && !p.tok.IsWord("implements") {
		class.Name = p.parseBindingIdent()
	} else if requireName {
		p.failAt(p.tok.Start, "expected class name but found %s", p.tok)
	}
	if p.tok.IsPunct("<") {
		class.TypeParams = p.parseTypeParams()
	}
	if p.eatWord("extends") {
		class.Super = p.parseLeftHandSide()
		if p.tok.IsPunct("<") {
			class.SuperArgs = p.parseTypeArgs()
		}
	}
	if p.tok.IsWord("implements") {
		istart := p.tok.Start
		p.next()
		impl := &Implements{}
		for {
			impl.Types = append(impl.Types, p.parseType())
			if !p.eat(",") {
				break
			}
		}
		impl.Span = p.span(istart)
		class.Implements = impl
	}
	class.Body = p.parseClassBody()
	class.Span = p.span(start)
	return class
}

func (p *Parser) parseClassBody() *ClassBody {
	start := p.tok.Start
	p.expect("{")
	body := &ClassBody{}
	for !p.tok.IsPunct("}") {
		if p.tok.Kind == EOF {
			p.unexpected()
		}
		if p.eat(";") {
			continue
		}
		body.Members = append(body.Members, p.parseClassMember())
	}
	p.next()
	body.Span = p.span(start)
	return body
}

// isMemberNameFollower reports whether tok ends a member key, meaning the
// previous word was the key itself rather than a modifier.
func isMemberNameFollower(tok Token) bool {
	if tok.Kind != Punct {
		return false
	}
	switch tok.Text {
	case "(", "=", ";", ":", "?", "}", "<":
		return true
	}
	return false
}

func (p *Parser) parseClassMember() ClassMember {
	m := memberPrefix{start: p.tok.Start}
	if p.tok.IsWord("static") && !isMemberNameFollower(p.peek()) {
		m.static = true
		p.next()
	}
	if p.tok.IsWord("async") {
		next := p.peek()
		if !next.NewlineBefore && !isMemberNameFollower(next) {
			m.async = true
			p.next()
		}
	}
	if p.tok.Kind == IdentToken {
		if fn, ok := p.members[p.tok.Text]; ok {
			if member := fn(p, m); member != nil {
				return member
			}
		}
	}
	return p.parseBaseMember(m)
}

func (p *Parser) parseBaseMember(m memberPrefix) ClassMember {
	generator := p.eat("*")
	kind := MethodNormal
	if (p.tok.IsWord("get") || p.tok.IsWord("set")) && !m.async && !generator && !isMemberNameFollower(p.peek()) {
		if p.tok.Text == "get" {
			kind = MethodGet
		} else {
			kind = MethodSet
		}
		p.next()
	}

	key, computed := p.parsePropertyKey()

	if p.tok.IsPunct("(") || p.tok.IsPunct("<") {
		if id, ok := key.(*Ident); ok && id.Name == "constructor" && !m.static && kind == MethodNormal {
			kind = MethodConstructor
		}
		fn := &Function{Async: m.async, Generator: generator}
		p.parseFunctionRest(fn)
		fn.Span = p.span(key.Pos())
		return &MethodMember{Span: p.span(m.start), Static: m.static, Kind: kind, Key: key, Computed: computed, Func: fn}
	}

	if kind != MethodNormal || m.async || generator {
		p.failAt(p.tok.Start, "expected \"(\" but found %s", p.tok)
	}
	field := &FieldMember{Static: m.static, Key: key, Computed: computed, Question: -1}
	if p.tok.IsPunct("?") {
		field.Question = p.tok.Start
		p.next()
	}
	if p.tok.IsPunct(":") {
		field.Annot = p.parseTypeAnnot()
	}
	if p.eat("=") {
		field.Init = p.parseAssign(false)
	}
	p.semicolon()
	field.Span = p.span(m.start)
	return field
}

// parsePropertyKey parses an object or class member key.
func (p *Parser) parsePropertyKey() (Expr, bool) {
	start := p.tok.Start
	switch p.tok.Kind {
	case IdentToken:
		return p.parseIdent(), false
	case String, Number:
		kind := LitString
		if p.tok.Kind == Number {
			kind = LitNumber
		}
		raw := p.tok.Text
		p.next()
		return &Literal{Span: p.span(start), Kind: kind, Raw: raw}, false
	case Punct:
		if p.tok.Text == "[" {
			p.next()
			x := p.parseAssign(false)
			p.expect("]")
			return x, true
		}
		if p.tok.Text == "#" {
			p.next()
			id := p.parseIdent()
			id.Name = "#" + id.Name
			id.Start = start
			return id, false
		}
	}
	p.failAt(p.tok.Start, "expected property name but found %s", p.tok)
	return nil, false
}
