// Package scope implements the compiler's symbol tables: layered variable
// bindings with a simulated stack offset, flat function and struct tables,
// and the typing/offset queries the code generator drives off the AST.
package scope

import (
	"fmt"

	"tinycc/ast"
	"tinycc/cerr"
	"tinycc/types"
)

// CVardef is a variable binding: the Vardef node it came from, and the
// stack offset (signed, relative to rbp) it was recorded at.
type CVardef struct {
	Node        *ast.Vardef
	StackOffset int32
}

// CFdef is a function table entry: the Fdef node and the positive,
// rbp-relative offset of each parameter in declaration order.
// ParamStackOffsets[0] is always 16 (saved return address + saved rbp).
type CFdef struct {
	Node              *ast.Fdef
	ParamStackOffsets []int32
}

// CStruct is a struct table entry: the Struct node and the non-negative
// intra-struct byte offset of each field, laid out in declaration order
// with no padding.
type CStruct struct {
	Node             *ast.Struct
	MembStackOffsets []int32
}

// FieldDtype returns the declared dtype of field name, if present.
func (cs *CStruct) FieldDtype(name string) (types.Dtype, bool) {
	for _, f := range cs.Node.Fields {
		if f.Name.Name == name {
			return f.Dtype, true
		}
	}
	return types.Dtype{}, false
}

// OffsetOf returns the byte offset of field name within the struct.
func (cs *CStruct) OffsetOf(name string) (int32, bool) {
	for i, f := range cs.Node.Fields {
		if f.Name.Name == name {
			return cs.MembStackOffsets[i], true
		}
	}
	return 0, false
}

// ScopeLayer is one level of variable bindings plus its own simulated
// stack offset, starting at 0 when the layer is created.
type ScopeLayer struct {
	Vardefs     []CVardef
	StackOffset int32
}

// Scope is the full symbol table: a stack of variable layers plus flat
// function and struct tables. It is owned exclusively by the code
// generator (parser and lexer hand off their results and share no mutable
// state with it).
type Scope struct {
	Layers  []*ScopeLayer
	Fdefs   []*CFdef
	Structs []*CStruct
}

// New returns a Scope with a single, empty base layer.
func New() *Scope {
	return &Scope{Layers: []*ScopeLayer{{}}}
}

// PushLayer pushes a fresh, empty layer.
func (s *Scope) PushLayer() {
	s.Layers = append(s.Layers, &ScopeLayer{})
}

// PushLayerFrom pushes a previously-popped layer back onto the stack,
// enabling the non-nested function-entry scope switch (pop current, push
// fresh, bind params, emit body, pop, restore the popped caller layer).
func (s *Scope) PushLayerFrom(layer *ScopeLayer) {
	s.Layers = append(s.Layers, layer)
}

// PopLayer pops and returns the innermost layer. Panics if called on an
// empty stack — every push_layer must be paired with a pop_layer on every
// exit path, so an empty stack here indicates a compiler bug, not a user
// error.
func (s *Scope) PopLayer() *ScopeLayer {
	n := len(s.Layers)
	layer := s.Layers[n-1]
	s.Layers = s.Layers[:n-1]
	return layer
}

func (s *Scope) current() *ScopeLayer {
	return s.Layers[len(s.Layers)-1]
}

// PushVardef records n at the current layer's stack offset, failing with a
// redefinition error if the name is already bound in the current layer
// (bindings in outer layers are shadowed, not rejected).
func (s *Scope) PushVardef(n *ast.Vardef) error {
	name := n.Name.Name
	for _, cv := range s.current().Vardefs {
		if cv.Node.Name.Name == name {
			return cerr.NewDuplicateVardef(n.Line(), name)
		}
	}
	s.current().Vardefs = append(s.current().Vardefs, CVardef{Node: n, StackOffset: s.StackOffset()})
	return nil
}

// PushCVardef records a preformed (name, offset) binding — used to bind
// function parameters to their precomputed positive offsets from rbp.
func (s *Scope) PushCVardef(cv CVardef) {
	s.current().Vardefs = append(s.current().Vardefs, cv)
}

// PopVardef pops and returns the most recently pushed binding in the
// current layer.
func (s *Scope) PopVardef() CVardef {
	layer := s.current()
	n := len(layer.Vardefs)
	cv := layer.Vardefs[n-1]
	layer.Vardefs = layer.Vardefs[:n-1]
	return cv
}

// PushFdef inserts n's function table entry. If a prior Noop-bodied
// declaration exists, the new definition must agree on parameter count and
// return-type variant (else fn-decl-def-mismatch) and replaces it. A prior
// entry with a real body is a duplicate-fdef.
func (s *Scope) PushFdef(n *ast.Fdef) error {
	for i, fdef := range s.Fdefs {
		if fdef.Node.Name != n.Name {
			continue
		}
		if _, isNoop := fdef.Node.Body.(*ast.Noop); !isNoop {
			return cerr.NewDuplicateFdef(n.Line(), n.Name)
		}
		if len(fdef.Node.Params) != len(n.Params) || fdef.Node.ReturnDtype.Variant != n.ReturnDtype.Variant {
			return cerr.NewFunctionDeclDefMismatch(n.Line(), n.Name)
		}
		cf, err := s.newCFdef(n)
		if err != nil {
			return err
		}
		s.Fdefs[i] = cf
		return nil
	}
	cf, err := s.newCFdef(n)
	if err != nil {
		return err
	}
	s.Fdefs = append(s.Fdefs, cf)
	return nil
}

func (s *Scope) newCFdef(n *ast.Fdef) (*CFdef, error) {
	offsets := make([]int32, len(n.Params))
	offset := int32(16)
	for i, param := range n.Params {
		offsets[i] = offset
		offset += int32(SizeOf(s, param.Dtype))
	}
	return &CFdef{Node: n, ParamStackOffsets: offsets}, nil
}

// PushStruct inserts n's struct table entry. An empty field list is a
// forward declaration; a prior entry with a non-empty field list is a
// duplicate-sdef.
func (s *Scope) PushStruct(n *ast.Struct) error {
	for i, cs := range s.Structs {
		if cs.Node.Name != n.Name {
			continue
		}
		if len(cs.Node.Fields) > 0 {
			return cerr.NewDuplicateSdef(n.Line(), n.Name)
		}
		s.Structs[i] = s.newCStruct(n)
		return nil
	}
	s.Structs = append(s.Structs, s.newCStruct(n))
	return nil
}

func (s *Scope) newCStruct(n *ast.Struct) *CStruct {
	offsets := make([]int32, len(n.Fields))
	offset := int32(0)
	for i, field := range n.Fields {
		offsets[i] = offset
		offset += int32(SizeOf(s, field.Dtype))
	}
	return &CStruct{Node: n, MembStackOffsets: offsets}
}

// FindVardef walks layers from innermost to outermost.
func (s *Scope) FindVardef(name string) (*CVardef, bool) {
	for i := len(s.Layers) - 1; i >= 0; i-- {
		layer := s.Layers[i]
		for j := range layer.Vardefs {
			if layer.Vardefs[j].Node.Name.Name == name {
				return &layer.Vardefs[j], true
			}
		}
	}
	return nil, false
}

// FindFdef performs a flat linear search over the function table.
func (s *Scope) FindFdef(name string) (*CFdef, bool) {
	for _, fdef := range s.Fdefs {
		if fdef.Node.Name == name {
			return fdef, true
		}
	}
	return nil, false
}

// FindStruct performs a flat linear search over the struct table.
func (s *Scope) FindStruct(name string) (*CStruct, bool) {
	for _, cs := range s.Structs {
		if cs.Node.Name == name {
			return cs, true
		}
	}
	return nil, false
}

// FindStructDtype resolves a Struct{name}-variant Dtype to its table
// entry.
func (s *Scope) FindStructDtype(dt types.Dtype) (*CStruct, error) {
	if dt.Variant != types.Struct {
		return nil, fmt.Errorf("scope: FindStructDtype called with non-struct dtype %s", dt)
	}
	cs, ok := s.FindStruct(dt.StructName)
	if !ok {
		return nil, cerr.NewNonexistentStruct(0, dt.StructName)
	}
	return cs, nil
}

// StackOffset returns the current layer's simulated stack offset.
func (s *Scope) StackOffset() int32 {
	return s.current().StackOffset
}

// StackOffsetChange applies delta to the current layer's stack offset.
func (s *Scope) StackOffsetChange(delta int32) {
	s.current().StackOffset += delta
}

// StackOffsetChangeN applies direction * sizeof(dt) to the current
// layer's stack offset.
func (s *Scope) StackOffsetChangeN(dt types.Dtype, direction int32) {
	s.StackOffsetChange(direction * int32(SizeOf(s, dt)))
}

// SizeOf returns the in-memory byte size of dt, resolving struct sizes
// (which types.Dtype.BaseNumBytes cannot do on its own) against s.
func SizeOf(s *Scope, dt types.Dtype) int {
	if dt.IsPointer() {
		return 8
	}
	if dt.Variant == types.Struct {
		cs, ok := s.FindStruct(dt.StructName)
		if !ok {
			return 0
		}
		total := 0
		for _, f := range cs.Node.Fields {
			total += SizeOf(s, f.Dtype)
		}
		return total
	}
	return dt.BaseNumBytes()
}

// DtypeOf computes the result type of an AST node, per spec.md §4.2's
// typing contract.
func (s *Scope) DtypeOf(n ast.Node) (types.Dtype, error) {
	switch node := n.(type) {
	case *ast.Int:
		return types.Dtype{Variant: types.Int}, nil
	case *ast.Char:
		return types.Dtype{Variant: types.Char}, nil
	case *ast.Str:
		return types.Dtype{Variant: types.Char, NDerefs: 1}, nil
	case *ast.Var:
		cv, ok := s.FindVardef(node.Name)
		if !ok {
			return types.Dtype{}, cerr.NewNonexistentVariable(node.Ln, node.Name)
		}
		return cv.Node.Dtype, nil
	case *ast.Vardef:
		return node.Dtype, nil
	case *ast.Fdef:
		return node.ReturnDtype, nil
	case *ast.Fcall:
		cf, ok := s.FindFdef(node.Name)
		if !ok {
			return types.Dtype{}, cerr.NewNonexistentFunction(node.Ln, node.Name)
		}
		return cf.Node.ReturnDtype, nil
	case *ast.InitList:
		return node.Dtype, nil
	case *ast.Unop:
		right, err := s.DtypeOf(node.Right)
		if err != nil {
			return types.Dtype{}, err
		}
		switch node.Op {
		case "&":
			if _, ok := node.Right.(*ast.Var); !ok {
				return types.Dtype{}, cerr.NewInvalidAddressof(node.Ln, nodeKindName(node.Right))
			}
			return right.AddrOf(), nil
		case "*":
			if !right.IsPointer() {
				return types.Dtype{}, cerr.NewInvalidDeref(node.Ln, right.String())
			}
			return right.Deref(), nil
		default: // "!"
			return types.Dtype{Variant: types.Int}, nil
		}
	case *ast.Binop:
		if node.Op == "." || node.Op == "->" {
			_, parent, err := s.NestedOffset(node.Left)
			if err != nil {
				return types.Dtype{}, err
			}
			rightVar, ok := node.Right.(*ast.Var)
			if !ok {
				return types.Dtype{}, cerr.NewStructMemberVarNonId(node.Ln, nodeKindName(node.Right))
			}
			if parent == nil {
				leftDtype, err := s.DtypeOf(node.Left)
				if err != nil {
					return types.Dtype{}, err
				}
				return types.Dtype{}, cerr.NewPrimitiveMemberAccess(node.Ln, leftDtype.String())
			}
			dt, ok := parent.FieldDtype(rightVar.Name)
			if !ok {
				return types.Dtype{}, cerr.NewNonexistentStructMember(node.Ln, parent.Node.Name, rightVar.Name)
			}
			return dt, nil
		}
		return s.DtypeOf(node.Left)
	default:
		return types.Dtype{Variant: types.Void}, nil
	}
}

// NestedOffset resolves a member-access chain (a.b.c) to its flattened,
// frame-relative byte offset plus the struct descriptor of the resolved
// value (nil if the resolved value isn't itself a struct).
func (s *Scope) NestedOffset(n ast.Node) (int32, *CStruct, error) {
	switch node := n.(type) {
	case *ast.Var:
		cv, ok := s.FindVardef(node.Name)
		if !ok {
			return 0, nil, cerr.NewNonexistentVariable(node.Ln, node.Name)
		}
		var structDesc *CStruct
		if cv.Node.Dtype.Variant == types.Struct && !cv.Node.Dtype.IsPointer() {
			structDesc, _ = s.FindStruct(cv.Node.Dtype.StructName)
		}
		return cv.StackOffset, structDesc, nil
	case *ast.Binop:
		if node.Op != "." && node.Op != "->" {
			return 0, nil, fmt.Errorf("scope: NestedOffset called on non-member binop %q", node.Op)
		}
		offset, parent, err := s.NestedOffset(node.Left)
		if err != nil {
			return 0, nil, err
		}
		rightVar, ok := node.Right.(*ast.Var)
		if !ok {
			return 0, nil, cerr.NewStructMemberVarNonId(node.Ln, nodeKindName(node.Right))
		}
		if parent == nil {
			return 0, nil, cerr.NewNonexistentStructMember(node.Ln, "<non-struct>", rightVar.Name)
		}
		fieldOffset, ok := parent.OffsetOf(rightVar.Name)
		if !ok {
			return 0, nil, cerr.NewNonexistentStructMember(node.Ln, parent.Node.Name, rightVar.Name)
		}
		total := offset + fieldOffset
		var childStruct *CStruct
		if fieldDt, ok := parent.FieldDtype(rightVar.Name); ok && fieldDt.Variant == types.Struct && !fieldDt.IsPointer() {
			childStruct, _ = s.FindStruct(fieldDt.StructName)
		}
		return total, childStruct, nil
	default:
		return 0, nil, fmt.Errorf("scope: NestedOffset called on unsupported node type %T", n)
	}
}

func nodeKindName(n ast.Node) string {
	switch n.(type) {
	case *ast.Var:
		return "Var"
	case *ast.Int:
		return "Int"
	case *ast.Char:
		return "Char"
	case *ast.Str:
		return "Str"
	case *ast.Binop:
		return "Binop"
	case *ast.Unop:
		return "Unop"
	case *ast.Fcall:
		return "Fcall"
	default:
		return fmt.Sprintf("%T", n)
	}
}
