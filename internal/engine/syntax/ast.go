package syntax

// NodeID identifies a node within one parsed Program. IDs are assigned in
// parse order and are stable for the lifetime of the AST, so side tables
// (scopes, annotations) can be keyed by them.
type NodeID int32

type Node interface {
	ID() NodeID
	Pos() int
	EndPos() int
}

// Span is embedded in every node and records its id and byte range.
type Span struct {
	NodeID NodeID
	Start  int
	End    int
}

func (s *Span) ID() NodeID  { return s.NodeID }
func (s *Span) Pos() int    { return s.Start }
func (s *Span) EndPos() int { return s.End }

type Stmt interface {
	Node
	stmtNode()
}

type Expr interface {
	Node
	exprNode()
}

type TypeNode interface {
	Node
	typeNode()
}

type ClassMember interface {
	Node
	memberNode()
}

// Program is the root of a parsed file.
type Program struct {
	Span
	Path   string
	Source string
	Lines  *LineIndex
	Body   []Stmt
	// NodeCount is one past the largest NodeID in the tree.
	NodeCount int
}

// ----------------------------------------------------------------------------
// Shared pieces

// TypeAnnot is ": Type" including the colon.
type TypeAnnot struct {
	Span
	Type TypeNode
}

// TypeParams is a "<T, U extends X>" list.
type TypeParams struct {
	Span
	Names []string
}

// TypeArgs is an explicit "<A, B>" argument list in a heritage clause.
type TypeArgs struct {
	Span
	Types []TypeNode
}

type Function struct {
	Span
	Name       *Ident
	TypeParams *TypeParams
	Params     []*Param
	ReturnType *TypeAnnot
	Body       *BlockStmt
	ExprBody   Expr
	Async      bool
	Generator  bool
	Arrow      bool
	// Labeled functions accept "label name" parameters.
	Labeled bool
}

// Param is a function parameter. Label is nil when the label defaults to the
// parameter name; a label spelled "_" is the empty label.
type Param struct {
	Span
	Label    *Ident
	Name     Expr
	Question int
	Annot    *TypeAnnot
	Default  Expr
	Rest     bool
}

// LabelText resolves the parameter's selector label.
func (p *Param) LabelText() string {
	if p.Label != nil {
		if p.Label.Name == "_" {
			return ""
		}
		return p.Label.Name
	}
	if id, ok := p.Name.(*Ident); ok {
		return id.Name
	}
	return ""
}

// Labels returns the selector labels of fn's parameters.
func (fn *Function) Labels() []string {
	labels := make([]string, 0, len(fn.Params))
	for _, p := range fn.Params {
		labels = append(labels, p.LabelText())
	}
	return labels
}

// ----------------------------------------------------------------------------
// Statements

type VarDecl struct {
	Span
	Kind string
	List []*VarDeclarator
}

type VarDeclarator struct {
	Span
	Target Expr
	Annot  *TypeAnnot
	Init   Expr
}

type FuncDecl struct {
	Span
	Func *Function
}

type ClassDecl struct {
	Span
	Class *Class
}

type Class struct {
	Span
	Name       *Ident
	TypeParams *TypeParams
	Super      Expr
	SuperArgs  *TypeArgs
	Implements *Implements
	Body       *ClassBody
}

type Implements struct {
	Span
	Types []TypeNode
}

type ClassBody struct {
	Span
	Members []ClassMember
}

type MethodKind int

const (
	MethodNormal MethodKind = iota
	MethodGet
	MethodSet
	MethodConstructor
)

// MethodMember is a plain JavaScript class method, accessor or constructor.
type MethodMember struct {
	Span
	Static   bool
	Kind     MethodKind
	Key      Expr
	Computed bool
	Func     *Function
}

// FieldMember is a plain class field "name[: T] [= init];".
type FieldMember struct {
	Span
	Static   bool
	Key      Expr
	Computed bool
	Question int
	Annot    *TypeAnnot
	Init     Expr
}

// PropMember is "[modifiers] prop name: T [= init];".
type PropMember struct {
	Span
	Modifiers []*Ident
	Keyword   Span
	Name      *Ident
	Annot     *TypeAnnot
	Init      Expr
}

func (p *PropMember) HasModifier(name string) bool {
	for _, m := range p.Modifiers {
		if m.Name == name {
			return true
		}
	}
	return false
}

// FuncMember is "[static] [async] func name(label p: T): R { }".
type FuncMember struct {
	Span
	Static  bool
	Keyword Span
	Func    *Function
}

// InitMember is "init(label p: T) { }".
type InitMember struct {
	Span
	Func *Function
}

type EnumDecl struct {
	Span
	Name    *Ident
	Members []*EnumMember
}

type EnumValueKind int

const (
	EnumNumber EnumValueKind = iota
	EnumString
	EnumInvalid
)

type EnumMember struct {
	Span
	Name *Ident
	Init Expr
	Kind EnumValueKind
	Num  float64
	Str  string
	// Raw is the literal text the value is emitted as.
	Raw string
}

type GlobalFuncDecl struct {
	Span
	Keyword Span
	Func    *Function
}

type GlobalConstDecl struct {
	Span
	Keyword Span
	Name    *Ident
	Annot   *TypeAnnot
	Init    Expr
}

type TypeAliasDecl struct {
	Span
	Name       *Ident
	TypeParams *TypeParams
	Type       TypeNode
}

type ImportForm int

const (
	ImportNamed ImportForm = iota
	ImportDefault
	ImportNamespace
	ImportSideEffect
	ImportFrom
)

type ImportDecl struct {
	Span
	Form  ImportForm
	Names []*Ident
}

type ExportForm int

const (
	ExportDeclaration ExportForm = iota
	ExportDefault
	ExportStar
	ExportList
)

type ExportDecl struct {
	Span
	Form ExportForm
	Decl Stmt
	// Keyword is the "export" token itself.
	Keyword Span
}

type ExprStmt struct {
	Span
	X Expr
}

type BlockStmt struct {
	Span
	Body         []Stmt
	FunctionBody bool
}

type IfStmt struct {
	Span
	Test Expr
	Then Stmt
	Else Stmt
}

// ForStmt is a C-style loop. Init is a *VarDecl, an Expr or nil.
type ForStmt struct {
	Span
	Init   Node
	Test   Expr
	Update Expr
	Body   Stmt
}

// ForInStmt covers for-in and for-of. Left is a *VarDecl or an Expr.
type ForInStmt struct {
	Span
	Left  Node
	Right Expr
	Body  Stmt
	Of    bool
	Await bool
}

type WhileStmt struct {
	Span
	Test Expr
	Body Stmt
}

type DoWhileStmt struct {
	Span
	Body Stmt
	Test Expr
}

type ReturnStmt struct {
	Span
	X Expr
}

type BreakStmt struct {
	Span
	Label *Ident
}

type ContinueStmt struct {
	Span
	Label *Ident
}

type ThrowStmt struct {
	Span
	X Expr
}

type TryStmt struct {
	Span
	Block   *BlockStmt
	Catch   *CatchClause
	Finally *BlockStmt
}

type CatchClause struct {
	Span
	Param Expr
	Annot *TypeAnnot
	Body  *BlockStmt
}

type SwitchStmt struct {
	Span
	Disc  Expr
	Cases []*SwitchCase
}

type SwitchCase struct {
	Span
	Test Expr
	Body []Stmt
}

type LabeledStmt struct {
	Span
	Label *Ident
	Body  Stmt
}

type EmptyStmt struct {
	Span
}

type DebuggerStmt struct {
	Span
}

// ----------------------------------------------------------------------------
// Expressions

type Ident struct {
	Span
	Name string
}

type ThisExpr struct {
	Span
}

type SuperExpr struct {
	Span
}

type LitKind int

const (
	LitNumber LitKind = iota
	LitString
	LitRegex
	LitTrue
	LitFalse
	LitNull
)

type Literal struct {
	Span
	Kind LitKind
	Raw  string
}

type TemplateLit struct {
	Span
	Tag   Expr
	Exprs []Expr
}

type ArrayLit struct {
	Span
	Elems []Expr
}

type PropKind int

const (
	PropInit PropKind = iota
	PropShorthand
	PropGet
	PropSet
	PropMethod
	PropSpread
)

type Property struct {
	Span
	Kind     PropKind
	Key      Expr
	Computed bool
	Value    Expr
	Func     *Function
}

type ObjectLit struct {
	Span
	Props []*Property
}

type FuncExpr struct {
	Span
	Func *Function
}

type ClassExpr struct {
	Span
	Class *Class
}

type UnaryExpr struct {
	Span
	Op string
	X  Expr
}

type UpdateExpr struct {
	Span
	Op     string
	Prefix bool
	X      Expr
}

type BinaryExpr struct {
	Span
	Op string
	X  Expr
	Y  Expr
}

type AssignExpr struct {
	Span
	Op     string
	Target Expr
	Value  Expr
}

type CondExpr struct {
	Span
	Test Expr
	Then Expr
	Else Expr
}

type CallExpr struct {
	Span
	Callee   Expr
	TypeArgs *TypeArgs
	Args     []Expr
	Optional bool
	// Lparen and Rparen are the argument parentheses.
	Lparen int
	Rparen int
}

type NewExpr struct {
	Span
	Callee   Expr
	TypeArgs *TypeArgs
	Args     []Expr
	HasArgs  bool
	Lparen   int
	Rparen   int
}

type MemberExpr struct {
	Span
	X        Expr
	Name     *Ident
	Optional bool
}

type IndexExpr struct {
	Span
	X        Expr
	Index    Expr
	Optional bool
}

type SeqExpr struct {
	Span
	List []Expr
}

type ParenExpr struct {
	Span
	X Expr
}

type SpreadExpr struct {
	Span
	X Expr
}

type YieldExpr struct {
	Span
	X        Expr
	Delegate bool
}

type AwaitExpr struct {
	Span
	X Expr
}

// CastExpr is "X as T"; AsPos is the offset of "as".
type CastExpr struct {
	Span
	X     Expr
	AsPos int
	Type  TypeNode
}

// NamedArg is "label: value" inside call arguments.
type NamedArg struct {
	Span
	Label *Ident
	Value Expr
}

// MetaProperty is new.target.
type MetaProperty struct {
	Span
	Meta     string
	Property string
}

// ----------------------------------------------------------------------------
// Types

type TypeRef struct {
	Span
	Name string
	Args []TypeNode
}

type ArrayType struct {
	Span
	Elem TypeNode
}

type UnionType struct {
	Span
	Types []TypeNode
}

type IntersectionType struct {
	Span
	Types []TypeNode
}

type TypeMember struct {
	Span
	Name     string
	Optional bool
	Readonly bool
	Type     TypeNode
}

type ObjectType struct {
	Span
	Members []*TypeMember
}

type TupleType struct {
	Span
	Elems []TypeNode
}

type FuncType struct {
	Span
	Params []*Param
	Return TypeNode
}

type LiteralType struct {
	Span
	Raw string
}

type ParenType struct {
	Span
	X TypeNode
}

type TypeofType struct {
	Span
	Name string
}

func (*VarDecl) stmtNode()         {}
func (*FuncDecl) stmtNode()        {}
func (*ClassDecl) stmtNode()       {}
func (*EnumDecl) stmtNode()        {}
func (*GlobalFuncDecl) stmtNode()  {}
func (*GlobalConstDecl) stmtNode() {}
func (*TypeAliasDecl) stmtNode()   {}
func (*ImportDecl) stmtNode()      {}
func (*ExportDecl) stmtNode()      {}
func (*ExprStmt) stmtNode()        {}
func (*BlockStmt) stmtNode()       {}
func (*IfStmt) stmtNode()          {}
func (*ForStmt) stmtNode()         {}
func (*ForInStmt) stmtNode()       {}
func (*WhileStmt) stmtNode()       {}
func (*DoWhileStmt) stmtNode()     {}
func (*ReturnStmt) stmtNode()      {}
func (*BreakStmt) stmtNode()       {}
func (*ContinueStmt) stmtNode()    {}
func (*ThrowStmt) stmtNode()       {}
func (*TryStmt) stmtNode()         {}
func (*SwitchStmt) stmtNode()      {}
func (*LabeledStmt) stmtNode()     {}
func (*EmptyStmt) stmtNode()       {}
func (*DebuggerStmt) stmtNode()    {}

func (*Ident) exprNode()        {}
func (*ThisExpr) exprNode()     {}
func (*SuperExpr) exprNode()    {}
func (*Literal) exprNode()      {}
func (*TemplateLit) exprNode()  {}
func (*ArrayLit) exprNode()     {}
func (*ObjectLit) exprNode()    {}
func (*FuncExpr) exprNode()     {}
func (*ClassExpr) exprNode()    {}
func (*UnaryExpr) exprNode()    {}
func (*UpdateExpr) exprNode()   {}
func (*BinaryExpr) exprNode()   {}
func (*AssignExpr) exprNode()   {}
func (*CondExpr) exprNode()     {}
func (*CallExpr) exprNode()     {}
func (*NewExpr) exprNode()      {}
func (*MemberExpr) exprNode()   {}
func (*IndexExpr) exprNode()    {}
func (*SeqExpr) exprNode()      {}
func (*ParenExpr) exprNode()    {}
func (*SpreadExpr) exprNode()   {}
func (*YieldExpr) exprNode()    {}
func (*AwaitExpr) exprNode()    {}
func (*CastExpr) exprNode()     {}
func (*NamedArg) exprNode()     {}
func (*MetaProperty) exprNode() {}

func (*MethodMember) memberNode() {}
func (*FieldMember) memberNode()  {}
func (*PropMember) memberNode()   {}
func (*FuncMember) memberNode()   {}
func (*InitMember) memberNode()   {}

func (*TypeRef) typeNode()          {}
func (*ArrayType) typeNode()        {}
func (*UnionType) typeNode()        {}
func (*IntersectionType) typeNode() {}
func (*ObjectType) typeNode()       {}
func (*TupleType) typeNode()        {}
func (*FuncType) typeNode()         {}
func (*LiteralType) typeNode()      {}
func (*ParenType) typeNode()        {}
func (*TypeofType) typeNode()       {}
