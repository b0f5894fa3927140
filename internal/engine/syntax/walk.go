package syntax

import "fmt"

// A Visitor's Visit method is invoked for each node encountered by Walk.
// If the result visitor w is not nil, Walk visits each of the children of
// node with w, followed by a call of w.Visit(nil).
type Visitor interface {
	Visit(node Node) (w Visitor)
}

type inspector func(Node) bool

func (f inspector) Visit(node Node) Visitor {
	if f(node) {
		return f
	}
	return nil
}

// Inspect traverses the tree in depth-first order, calling f(node) for each
// node and f(nil) after its children.
func Inspect(node Node, f func(Node) bool) {
	Walk(inspector(f), node)
}

// Walk traverses the tree in source order.
func Walk(v Visitor, node Node) {
	if v = v.Visit(node); v == nil {
		return
	}

	switch n := node.(type) {
	case *Program:
		walkStmts(v, n.Body)

	// Shared pieces
	case *Function:
		if n.Name != nil {
			Walk(v, n.Name)
		}
		for _, p := range n.Params {
			Walk(v, p)
		}
		if n.ReturnType != nil {
			Walk(v, n.ReturnType)
		}
		if n.Body != nil {
			Walk(v, n.Body)
		}
		if n.ExprBody != nil {
			Walk(v, n.ExprBody)
		}
	case *Param:
		if n.Label != nil {
			Walk(v, n.Label)
		}
		Walk(v, n.Name)
		if n.Annot != nil {
			Walk(v, n.Annot)
		}
		if n.Default != nil {
			Walk(v, n.Default)
		}
	case *TypeAnnot:
		Walk(v, n.Type)
	case *TypeParams:
	case *TypeArgs:
		walkTypes(v, n.Types)
	case *Implements:
		walkTypes(v, n.Types)
	case *Class:
		if n.Name != nil {
			Walk(v, n.Name)
		}
		if n.Super != nil {
			Walk(v, n.Super)
		}
		if n.SuperArgs != nil {
			Walk(v, n.SuperArgs)
		}
		if n.Implements != nil {
			Walk(v, n.Implements)
		}
		Walk(v, n.Body)
	case *ClassBody:
		for _, m := range n.Members {
			Walk(v, m)
		}

	// Class members
	case *MethodMember:
		Walk(v, n.Key)
		Walk(v, n.Func)
	case *FieldMember:
		Walk(v, n.Key)
		if n.Annot != nil {
			Walk(v, n.Annot)
		}
		if n.Init != nil {
			Walk(v, n.Init)
		}
	case *PropMember:
		Walk(v, n.Name)
		if n.Annot != nil {
			Walk(v, n.Annot)
		}
		if n.Init != nil {
			Walk(v, n.Init)
		}
	case *FuncMember:
		Walk(v, n.Func)
	case *InitMember:
		Walk(v, n.Func)

	// Statements
	case *VarDecl:
		for _, d := range n.List {
			Walk(v, d)
		}
	case *VarDeclarator:
		Walk(v, n.Target)
		if n.Annot != nil {
			Walk(v, n.Annot)
		}
		if n.Init != nil {
			Walk(v, n.Init)
		}
	case *FuncDecl:
		Walk(v, n.Func)
	case *ClassDecl:
		Walk(v, n.Class)
	case *EnumDecl:
		Walk(v, n.Name)
		for _, m := range n.Members {
			Walk(v, m)
		}
	case *EnumMember:
		Walk(v, n.Name)
		if n.Init != nil {
			Walk(v, n.Init)
		}
	case *GlobalFuncDecl:
		Walk(v, n.Func)
	case *GlobalConstDecl:
		Walk(v, n.Name)
		if n.Annot != nil {
			Walk(v, n.Annot)
		}
		Walk(v, n.Init)
	case *TypeAliasDecl:
		Walk(v, n.Name)
		Walk(v, n.Type)
	case *ImportDecl:
		for _, id := range n.Names {
			Walk(v, id)
		}
	case *ExportDecl:
		if n.Decl != nil {
			Walk(v, n.Decl)
		}
	case *ExprStmt:
		Walk(v, n.X)
	case *BlockStmt:
		walkStmts(v, n.Body)
	case *IfStmt:
		Walk(v, n.Test)
		Walk(v, n.Then)
		if n.Else != nil {
			Walk(v, n.Else)
		}
	case *ForStmt:
		if n.Init != nil {
			Walk(v, n.Init)
		}
		if n.Test != nil {
			Walk(v, n.Test)
		}
		if n.Update != nil {
			Walk(v, n.Update)
		}
		Walk(v, n.Body)
	case *ForInStmt:
		Walk(v, n.Left)
		Walk(v, n.Right)
		Walk(v, n.Body)
	case *WhileStmt:
		Walk(v, n.Test)
		Walk(v, n.Body)
	case *DoWhileStmt:
		Walk(v, n.Body)
		Walk(v, n.Test)
	case *ReturnStmt:
		if n.X != nil {
			Walk(v, n.X)
		}
	case *BreakStmt:
		if n.Label != nil {
			Walk(v, n.Label)
		}
	case *ContinueStmt:
		if n.Label != nil {
			Walk(v, n.Label)
		}
	case *ThrowStmt:
		Walk(v, n.X)
	case *TryStmt:
		Walk(v, n.Block)
		if n.Catch != nil {
			Walk(v, n.Catch)
		}
		if n.Finally != nil {
			Walk(v, n.Finally)
		}
	case *CatchClause:
		if n.Param != nil {
			Walk(v, n.Param)
		}
		if n.Annot != nil {
			Walk(v, n.Annot)
		}
		Walk(v, n.Body)
	case *SwitchStmt:
		Walk(v, n.Disc)
		for _, c := range n.Cases {
			Walk(v, c)
		}
	case *SwitchCase:
		if n.Test != nil {
			Walk(v, n.Test)
		}
		walkStmts(v, n.Body)
	case *LabeledStmt:
		Walk(v, n.Label)
		Walk(v, n.Body)
	case *EmptyStmt, *DebuggerStmt:

	// Expressions
	case *Ident, *ThisExpr, *SuperExpr, *Literal, *MetaProperty:
	case *TemplateLit:
		if n.Tag != nil {
			Walk(v, n.Tag)
		}
		walkExprs(v, n.Exprs)
	case *ArrayLit:
		walkExprs(v, n.Elems)
	case *ObjectLit:
		for _, p := range n.Props {
			Walk(v, p)
		}
	case *Property:
		if n.Key != nil {
			Walk(v, n.Key)
		}
		if n.Value != nil {
			Walk(v, n.Value)
		}
		if n.Func != nil {
			Walk(v, n.Func)
		}
	case *FuncExpr:
		Walk(v, n.Func)
	case *ClassExpr:
		Walk(v, n.Class)
	case *UnaryExpr:
		Walk(v, n.X)
	case *UpdateExpr:
		Walk(v, n.X)
	case *BinaryExpr:
		Walk(v, n.X)
		Walk(v, n.Y)
	case *AssignExpr:
		Walk(v, n.Target)
		Walk(v, n.Value)
	case *CondExpr:
		Walk(v, n.Test)
		Walk(v, n.Then)
		Walk(v, n.Else)
	case *CallExpr:
		Walk(v, n.Callee)
		if n.TypeArgs != nil {
			Walk(v, n.TypeArgs)
		}
		walkExprs(v, n.Args)
	case *NewExpr:
		Walk(v, n.Callee)
		if n.TypeArgs != nil {
			Walk(v, n.TypeArgs)
		}
		walkExprs(v, n.Args)
	case *MemberExpr:
		Walk(v, n.X)
		Walk(v, n.Name)
	case *IndexExpr:
		Walk(v, n.X)
		Walk(v, n.Index)
	case *SeqExpr:
		walkExprs(v, n.List)
	case *ParenExpr:
		Walk(v, n.X)
	case *SpreadExpr:
		Walk(v, n.X)
	case *YieldExpr:
		if n.X != nil {
			Walk(v, n.X)
		}
	case *AwaitExpr:
		Walk(v, n.X)
	case *CastExpr:
		Walk(v, n.X)
		Walk(v, n.Type)
	case *NamedArg:
		Walk(v, n.Label)
		Walk(v, n.Value)

	// Types
	case *TypeRef:
		walkTypes(v, n.Args)
	case *ArrayType:
		Walk(v, n.Elem)
	case *UnionType:
		walkTypes(v, n.Types)
	case *IntersectionType:
		walkTypes(v, n.Types)
	case *ObjectType:
		for _, m := range n.Members {
			Walk(v, m)
		}
	case *TypeMember:
		if n.Type != nil {
			Walk(v, n.Type)
		}
	case *TupleType:
		walkTypes(v, n.Elems)
	case *FuncType:
		for _, p := range n.Params {
			Walk(v, p)
		}
		if n.Return != nil {
			Walk(v, n.Return)
		}
	case *LiteralType, *TypeofType:
	case *ParenType:
		Walk(v, n.X)

	default:
		panic(fmt.Sprintf("syntax.Walk: unexpected node type %T", n))
	}

	v.Visit(nil)
}

func walkStmts(v Visitor, list []Stmt) {
	for _, s := range list {
		Walk(v, s)
	}
}

func walkExprs(v Visitor, list []Expr) {
	for _, x := range list {
		if x != nil {
			Walk(v, x)
		}
	}
}

func walkTypes(v Visitor, list []TypeNode) {
	for _, t := range list {
		Walk(v, t)
	}
}
