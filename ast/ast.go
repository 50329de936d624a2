// Package ast defines the compiler's abstract syntax tree: one tagged union
// of node variants with a single Visitor interface, rather than the split
// expression/statement hierarchies common in tree-walking interpreters —
// every one of these variants, including Fdef, If, and Return, is an
// ordinary node the parser can produce in expression position.
package ast

import (
	"tinycc/token"
	"tinycc/types"
)

// Node is implemented by every AST variant. Accept dispatches to the
// matching Visit method on v; Line reports the source line the node was
// parsed from, used by error rendering.
type Node interface {
	Accept(v Visitor) any
	Line() int32
}

// Visitor defines one Visit method per AST variant. Implementations include
// the scope/typing engine, the code generator, and Printer.
type Visitor interface {
	VisitNoop(n *Noop) any
	VisitCpd(n *Cpd) any
	VisitInt(n *Int) any
	VisitChar(n *Char) any
	VisitStr(n *Str) any
	VisitVar(n *Var) any
	VisitVardef(n *Vardef) any
	VisitFdef(n *Fdef) any
	VisitFcall(n *Fcall) any
	VisitReturn(n *Return) any
	VisitIf(n *If) any
	VisitWhile(n *While) any
	VisitFor(n *For) any
	VisitBinop(n *Binop) any
	VisitUnop(n *Unop) any
	VisitStruct(n *Struct) any
	VisitInitList(n *InitList) any
}

// Noop is the empty node: a function declaration's body, or a Vardef's
// synthesized value when no initializer was written.
type Noop struct {
	Ln int32
}

func (n *Noop) Accept(v Visitor) any { return v.VisitNoop(n) }
func (n *Noop) Line() int32          { return n.Ln }

// Cpd is an ordered sequence of child nodes: a braced compound, or the
// single top-level node the parser produces for a whole file.
type Cpd struct {
	Ln       int32
	Children []Node
}

func (n *Cpd) Accept(v Visitor) any { return v.VisitCpd(n) }
func (n *Cpd) Line() int32          { return n.Ln }

// Int is an integer literal.
type Int struct {
	Ln    int32
	Value int64
}

func (n *Int) Accept(v Visitor) any { return v.VisitInt(n) }
func (n *Int) Line() int32          { return n.Ln }

// Char is a character literal, stored as its byte value.
type Char struct {
	Ln    int32
	Value int64
}

func (n *Char) Accept(v Visitor) any { return v.VisitChar(n) }
func (n *Char) Line() int32          { return n.Ln }

// Str is a string literal. Its dtype is always char* — each time the code
// generator lowers one, it adds the text to the .rodata pool under a fresh
// strN label.
type Str struct {
	Ln    int32
	Value string
}

func (n *Str) Accept(v Visitor) any { return v.VisitStr(n) }
func (n *Str) Line() int32          { return n.Ln }

// Var is a variable reference by name.
type Var struct {
	Ln   int32
	Name string
}

func (n *Var) Accept(v Visitor) any { return v.VisitVar(n) }
func (n *Var) Line() int32          { return n.Ln }

// Vardef binds Name to Init's value at Dtype. Init is *Noop when the
// source wrote no initializer (`T x;`). Also reused, with a non-nil Dtype
// and Init, as the synthesized per-argument binding the code generator
// manufactures for each actual parameter of a call.
type Vardef struct {
	Ln    int32
	Name  *Var
	Init  Node
	Dtype types.Dtype
}

func (n *Vardef) Accept(v Visitor) any { return v.VisitVardef(n) }
func (n *Vardef) Line() int32          { return n.Ln }

// Fdef is a function declaration (Body is *Noop) or definition. Params are
// declared in left-to-right order; ReturnDtype is the function's result
// type.
type Fdef struct {
	Ln          int32
	Name        string
	Params      []*Vardef
	Body        Node
	ReturnDtype types.Dtype
}

func (n *Fdef) Accept(v Visitor) any { return v.VisitFdef(n) }
func (n *Fdef) Line() int32          { return n.Ln }

// Fcall is a call to Name with Args evaluated left to right.
type Fcall struct {
	Ln   int32
	Name string
	Args []Node
}

func (n *Fcall) Accept(v Visitor) any { return v.VisitFcall(n) }
func (n *Fcall) Line() int32          { return n.Ln }

// Return yields Value from the enclosing function.
type Return struct {
	Ln    int32
	Value Node
}

func (n *Return) Accept(v Visitor) any { return v.VisitReturn(n) }
func (n *Return) Line() int32          { return n.Ln }

// If runs Body when Cond is non-zero. There is no else branch in this
// language.
type If struct {
	Ln   int32
	Cond Node
	Body Node
}

func (n *If) Accept(v Visitor) any { return v.VisitIf(n) }
func (n *If) Line() int32          { return n.Ln }

// While runs Body, then re-checks Cond. See codegen's While lowering for
// the resulting do-while semantics.
type While struct {
	Ln   int32
	Cond Node
	Body Node
}

func (n *While) Accept(v Visitor) any { return v.VisitWhile(n) }
func (n *While) Line() int32          { return n.Ln }

// For is parsed but, per SPEC_FULL.md, not lowered by the code generator.
type For struct {
	Ln   int32
	Init Node
	Cond Node
	Inc  Node
	Body Node
}

func (n *For) Accept(v Visitor) any { return v.VisitFor(n) }
func (n *For) Line() int32          { return n.Ln }

// Binop is a binary operation. Op is restricted by the parser to the
// closed operator set in token.Token.IsBinaryOp.
type Binop struct {
	Ln    int32
	Op    token.Kind
	Left  Node
	Right Node
}

func (n *Binop) Accept(v Visitor) any { return v.VisitBinop(n) }
func (n *Binop) Line() int32          { return n.Ln }

// Unop is a unary operation: one of `!`, `&`, `*`.
type Unop struct {
	Ln    int32
	Op    token.Kind
	Right Node
}

func (n *Unop) Accept(v Visitor) any { return v.VisitUnop(n) }
func (n *Unop) Line() int32          { return n.Ln }

// Struct is a struct type definition. An empty Fields list is a forward
// declaration.
type Struct struct {
	Ln     int32
	Name   string
	Fields []*Vardef
}

func (n *Struct) Accept(v Visitor) any { return v.VisitStruct(n) }
func (n *Struct) Line() int32          { return n.Ln }

// InitField is one `.name = expr` pair of a designated initializer, in the
// order it was written.
type InitField struct {
	Name  string
	Value Node
}

// InitList is a designated-initializer literal `(Dtype){ .f = e, … }`.
type InitList struct {
	Ln     int32
	Dtype  types.Dtype
	Fields []InitField
}

func (n *InitList) Accept(v Visitor) any { return v.VisitInitList(n) }
func (n *InitList) Line() int32          { return n.Ln }
