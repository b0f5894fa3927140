package syntax

import "fmt"

type TokenKind int

const (
	EOF TokenKind = iota
	IdentToken
	Number
	String
	Regex
	Template
	TemplateHead
	TemplateMiddle
	TemplateTail
	Punct
)

var tokenKindNames = [...]string{
	EOF:            "end of file",
	IdentToken:     "identifier",
	Number:         "number",
	String:         "string",
	Regex:          "regular expression",
	Template:       "template",
	TemplateHead:   "template head",
	TemplateMiddle: "template middle",
	TemplateTail:   "template tail",
	Punct:          "punctuator",
}

func (k TokenKind) String() string {
	if int(k) < len(tokenKindNames) {
		return tokenKindNames[k]
	}
	return fmt.Sprintf("token(%d)", int(k))
}

// Token is a lexeme. Text is the raw source slice; keywords are IdentToken
// tokens and are told apart by Text.
type Token struct {
	Kind          TokenKind
	Text          string
	Start         int
	End           int
	NewlineBefore bool
}

func (t Token) Is(kind TokenKind, text string) bool {
	return t.Kind == kind && t.Text == text
}

func (t Token) IsPunct(text string) bool {
	return t.Kind == Punct && t.Text == text
}

func (t Token) IsWord(text string) bool {
	return t.Kind == IdentToken && t.Text == text
}

func (t Token) String() string {
	if t.Kind == EOF {
		return "end of file"
	}
	return fmt.Sprintf("%q", t.Text)
}

// reservedWords cannot be used as binding names.
var reservedWords = map[string]bool{
	"break": true, "case": true, "catch": true, "class": true, "const": true,
	"continue": true, "debugger": true, "default": true, "delete": true, "do": true,
	"else": true, "export": true, "extends": true, "finally": true, "for": true,
	"function": true, "if": true, "import": true, "in": true, "instanceof": true,
	"new": true, "return": true, "super": true, "switch": true, "this": true,
	"throw": true, "try": true, "typeof": true, "var": true, "void": true,
	"while": true, "with": true, "null": true, "true": true, "false": true,
	"enum": true,
}

// IsReservedWord reports whether name is a JavaScript reserved word.
func IsReservedWord(name string) bool {
	return reservedWords[name]
}

// operatorWords precede an expression, so a following slash starts a regex.
var operatorWords = map[string]bool{
	"return": true, "typeof": true, "instanceof": true, "in": true, "of": true,
	"new": true, "delete": true, "void": true, "throw": true, "case": true,
	"do": true, "else": true, "yield": true, "await": true,
}

var punctuators = []string{
	">>>=",
	"...", "===", "!==", "**=", "<<=", ">>=", ">>>", "&&=", "||=", "??=",
	"=>", "==", "!=", "<=", ">=", "&&", "||", "??", "?.", "++", "--",
	"+=", "-=", "*=", "/=", "%=", "&=", "|=", "^=", "**", "<<", ">>",
	"{", "}", "(", ")", "[", "]", ";", ",", "<", ">", "+", "-", "*", "/",
	"%", "&", "|", "^", "!", "~", "?", ":", "=", ".", "@", "#",
}
