package syntax

import (
	"math"
	"strconv"
	"strings"
)

// extensionStatements are consulted before the base statement grammar.
func extensionStatements() map[string]stmtParser {
	return map[string]stmtParser{
		"enum":   (*Parser).parseEnum,
		"global": (*Parser).parseGlobal,
		"type":   (*Parser).parseTypeAlias,
		"import": (*Parser).parseImport,
		"export": (*Parser).parseExport,
	}
}

// extensionMembers are consulted before the base class member grammar.
func extensionMembers() map[string]memberParser {
	modifiers := (*Parser).parsePropWithModifiers
	return map[string]memberParser{
		"prop":     modifiers,
		"private":  modifiers,
		"readonly": modifiers,
		"observed": modifiers,
		"func":     (*Parser).parseFuncMember,
		"init":     (*Parser).parseInitMember,
	}
}

var propModifiers = map[string]bool{"private": true, "readonly": true, "observed": true}

// ----------------------------------------------------------------------------
// Class members

func (p *Parser) parsePropWithModifiers(m memberPrefix) ClassMember {
	if m.static || m.async {
		return nil
	}
	// Scan ahead: modifiers must be followed by "prop <name>".
	saved := p.save()
	var mods []*Ident
	for propModifiers[p.tok.Text] && p.tok.Kind == IdentToken {
		if p.peek().Kind != IdentToken {
			p.restore(saved)
			return nil
		}
		mods = append(mods, p.parseIdent())
	}
	if !p.tok.IsWord("prop") || p.peek().Kind != IdentToken {
		p.restore(saved)
		return nil
	}

	prop := &PropMember{Modifiers: mods}
	kstart := p.tok.Start
	p.next()
	prop.Keyword = Span{NodeID: p.newID(), Start: kstart, End: p.prevEnd}
	prop.Name = p.parseBindingIdent()
	if p.tok.IsPunct(":") {
		prop.Annot = p.parseTypeAnnot()
	}
	if p.eat("=") {
		prop.Init = p.parseAssign(false)
	}
	p.semicolon()
	prop.Span = p.span(m.start)
	return prop
}

func (p *Parser) parseFuncMember(m memberPrefix) ClassMember {
	if next := p.peek(); next.Kind != IdentToken {
		return nil
	}
	member := &FuncMember{Static: m.static}
	kstart := p.tok.Start
	p.next()
	member.Keyword = Span{NodeID: p.newID(), Start: kstart, End: p.prevEnd}

	fstart := p.tok.Start
	fn := &Function{Async: m.async, Labeled: true}
	fn.Name = p.parseIdent()
	p.parseFunctionRest(fn)
	fn.Span = p.span(fstart)
	member.Func = fn
	member.Span = p.span(m.start)
	return member
}

func (p *Parser) parseInitMember(m memberPrefix) ClassMember {
	if m.static || m.async || !p.peek().IsPunct("(") {
		return nil
	}
	fstart := p.tok.Start
	fn := &Function{Labeled: true}
	fn.Name = p.parseIdent()
	p.parseFunctionRest(fn)
	fn.Span = p.span(fstart)
	return &InitMember{Span: p.span(m.start), Func: fn}
}

// ----------------------------------------------------------------------------
// Statements

// parseEnum parses "enum Name { A, B = 5, C }". Members without an
// initializer continue from the previous integer value.
func (p *Parser) parseEnum() Stmt {
	if p.peek().Kind != IdentToken {
		return nil
	}
	start := p.tok.Start
	p.next()
	decl := &EnumDecl{Name: p.parseBindingIdent()}
	p.expect("{")

	var prev *EnumMember
	for !p.tok.IsPunct("}") {
		mstart := p.tok.Start
		member := &EnumMember{Name: p.parseBindingIdent()}
		if p.eat("=") {
			member.Init = p.parseAssign(false)
			member.Kind, member.Num, member.Str, member.Raw = enumLiteral(member.Init)
		} else {
			switch {
			case prev == nil:
				member.Kind, member.Num = EnumNumber, 0
			case prev.Kind == EnumNumber && prev.Num == math.Trunc(prev.Num):
				member.Kind, member.Num = EnumNumber, prev.Num+1
			case prev.Kind == EnumNumber:
				p.failAt(mstart, "enum member %q follows non-integer value %s and needs an initializer", member.Name.Name, prev.Raw)
			default:
				p.failAt(mstart, "enum member %q needs an initializer", member.Name.Name)
			}
			member.Raw = formatNumber(member.Num)
		}
		member.Span = p.span(mstart)
		decl.Members = append(decl.Members, member)
		prev = member
		if !p.tok.IsPunct("}") {
			p.expect(",")
		}
	}
	p.next()
	decl.Span = p.span(start)
	return decl
}

// enumLiteral evaluates a literal enum initializer.
func enumLiteral(x Expr) (EnumValueKind, float64, string, string) {
	negate := false
	if u, ok := x.(*UnaryExpr); ok && (u.Op == "-" || u.Op == "+") {
		negate = u.Op == "-"
		x = u.X
		if lit, ok := x.(*Literal); !ok || lit.Kind != LitNumber {
			return EnumInvalid, 0, "", ""
		}
	}
	lit, ok := x.(*Literal)
	if !ok {
		return EnumInvalid, 0, "", ""
	}
	switch lit.Kind {
	case LitNumber:
		n, ok := ParseNumber(lit.Raw)
		if !ok {
			return EnumInvalid, 0, "", ""
		}
		if negate {
			n = -n
		}
		return EnumNumber, n, "", formatNumber(n)
	case LitString:
		s, ok := UnquoteString(lit.Raw)
		if !ok {
			return EnumInvalid, 0, "", ""
		}
		return EnumString, 0, s, lit.Raw
	}
	return EnumInvalid, 0, "", ""
}

func (p *Parser) parseGlobal() Stmt {
	next := p.peek()
	if next.NewlineBefore || !(next.IsWord("function") || next.IsWord("const")) {
		return nil
	}
	start := p.tok.Start
	p.next()
	keyword := Span{NodeID: p.newID(), Start: start, End: p.prevEnd}

	if p.tok.IsWord("function") {
		fn := p.parseFunction(p.tok.Start, false, true, true)
		return &GlobalFuncDecl{Span: p.span(start), Keyword: keyword, Func: fn}
	}

	p.next()
	decl := &GlobalConstDecl{Keyword: keyword, Name: p.parseBindingIdent()}
	if p.tok.IsPunct(":") {
		decl.Annot = p.parseTypeAnnot()
	}
	p.expect("=")
	decl.Init = p.parseAssign(false)
	p.semicolon()
	decl.Span = p.span(start)
	return decl
}

func (p *Parser) parseTypeAlias() Stmt {
	next := p.peek()
	if next.Kind != IdentToken || next.NewlineBefore {
		return nil
	}
	start := p.tok.Start
	p.next()
	decl := &TypeAliasDecl{Name: p.parseBindingIdent()}
	if p.tok.IsPunct("<") {
		decl.TypeParams = p.parseTypeParams()
	}
	p.expect("=")
	decl.Type = p.parseType()
	p.semicolon()
	decl.Span = p.span(start)
	return decl
}

// parseImport accepts "import { A, B };" and recognizes the module forms
// so the builder can report them.
func (p *Parser) parseImport() Stmt {
	next := p.peek()
	if next.IsPunct("(") || next.IsPunct(".") {
		return nil
	}
	start := p.tok.Start
	p.next()
	decl := &ImportDecl{Form: ImportNamed}
	switch {
	case p.tok.Kind == String:
		decl.Form = ImportSideEffect
		p.next()
	case p.tok.IsPunct("*"):
		decl.Form = ImportNamespace
		p.next()
		p.expectWord("as")
		decl.Names = append(decl.Names, p.parseBindingIdent())
	case p.tok.IsPunct("{"):
		p.next()
		for !p.tok.IsPunct("}") {
			decl.Names = append(decl.Names, p.parseBindingIdent())
			if p.tok.IsWord("as") {
				decl.Form = ImportFrom
				p.next()
				p.parseBindingIdent()
			}
			if !p.eat(",") {
				break
			}
		}
		p.expect("}")
	default:
		decl.Form = ImportDefault
		decl.Names = append(decl.Names, p.parseBindingIdent())
	}
	if p.eatWord("from") {
		if decl.Form == ImportNamed {
			decl.Form = ImportFrom
		}
		if p.tok.Kind != String {
			p.failAt(p.tok.Start, "expected module path but found %s", p.tok)
		}
		p.next()
	}
	p.semicolon()
	decl.Span = p.span(start)
	return decl
}

func (p *Parser) parseExport() Stmt {
	start := p.tok.Start
	p.next()
	keyword := Span{NodeID: p.newID(), Start: start, End: p.prevEnd}
	decl := &ExportDecl{Keyword: keyword}

	switch {
	case p.tok.IsWord("default"):
		decl.Form = ExportDefault
		p.next()
		p.parseAssign(false)
		p.semicolon()
	case p.tok.IsPunct("*"):
		decl.Form = ExportStar
		p.next()
		if p.eatWord("as") {
			p.parseIdent()
		}
		p.expectWord("from")
		p.next()
		p.semicolon()
	case p.tok.IsPunct("{"):
		decl.Form = ExportList
		p.next()
		for !p.tok.IsPunct("}") {
			p.parseIdent()
			if p.eatWord("as") {
				p.parseIdent()
			}
			if !p.eat(",") {
				break
			}
		}
		p.expect("}")
		if p.eatWord("from") {
			p.next()
		}
		p.semicolon()
	default:
		decl.Form = ExportDeclaration
		decl.Decl = p.parseStatement()
	}
	decl.Span = p.span(start)
	return decl
}

// ----------------------------------------------------------------------------
// Literal helpers

// ParseNumber evaluates a numeric literal. BigInt literals are rejected.
func ParseNumber(raw string) (float64, bool) {
	s := strings.ReplaceAll(raw, "_", "")
	if strings.HasSuffix(s, "n") {
		return 0, false
	}
	if len(s) > 2 && s[0] == '0' {
		base := 0
		switch s[1] | 0x20 {
		case 'x':
			base = 16
		case 'o':
			base = 8
		case 'b':
			base = 2
		}
		if base != 0 {
			n, err := strconv.ParseUint(s[2:], base, 64)
			if err != nil {
				return 0, false
			}
			return float64(n), true
		}
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

func formatNumber(n float64) string {
	return strconv.FormatFloat(n, 'f', -1, 64)
}

// UnquoteString decodes a single- or double-quoted string literal.
func UnquoteString(raw string) (string, bool) {
	if len(raw) < 2 || (raw[0] != '"' && raw[0] != '\'') || raw[len(raw)-1] != raw[0] {
		return "", false
	}
	body := raw[1 : len(raw)-1]
	if !strings.Contains(body, "\\") {
		return body, true
	}
	var b strings.Builder
	for i := 0; i < len(body); i++ {
		c := body[i]
		if c != '\\' {
			b.WriteByte(c)
			continue
		}
		i++
		if i >= len(body) {
			return "", false
		}
		switch body[i] {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case 'r':
			b.WriteByte('\r')
		case 'b':
			b.WriteByte('\b')
		case 'f':
			b.WriteByte('\f')
		case 'v':
			b.WriteByte('\v')
		case '0':
			b.WriteByte(0)
		case '\n':
		case 'x':
			if i+3 > len(body) {
				return "", false
			}
			n, err := strconv.ParseUint(body[i+1:i+3], 16, 8)
			if err != nil {
				return "", false
			}
			b.WriteRune(rune(n))
			i += 2
		case 'u':
			var hex string
			if i+1 < len(body) && body[i+1] == '{' {
				end := strings.IndexByte(body[i:], '}')
				if end < 0 {
					return "", false
				}
				hex = body[i+2 : i+end]
				i += end
			} else {
				if i+5 > len(body) {
					return "", false
				}
				hex = body[i+1 : i+5]
				i += 4
			}
			n, err := strconv.ParseUint(hex, 16, 32)
			if err != nil {
				return "", false
			}
			b.WriteRune(rune(n))
		default:
			b.WriteByte(body[i])
		}
	}
	return b.String(), true
}
