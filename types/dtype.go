// Package types defines the data-type descriptor shared by the AST, the
// scope engine, and the code generator.
package types

import "fmt"

// Variant is the base kind of a Dtype, before pointer indirection is applied.
type Variant int

const (
	Int Variant = iota
	Char
	Void
	Struct
)

func (v Variant) String() string {
	switch v {
	case Int:
		return "int"
	case Char:
		return "char"
	case Void:
		return "void"
	case Struct:
		return "struct"
	default:
		return "<invalid variant>"
	}
}

// baseSize is the in-memory size, in bytes, of one value of the variant with
// zero pointer indirection. Struct's size is not fixed here — it is the sum
// of its members' sizes, computed by the scope engine (scope.SizeOf).
func (v Variant) baseSize() int {
	switch v {
	case Int:
		return 4
	case Char:
		return 1
	case Void:
		return 0
	case Struct:
		return 0 // computed by scope.SizeOf
	default:
		return 0
	}
}

// Dtype is the type of an AST node: a base Variant plus a pointer-indirection
// level. Any NDerefs > 0 forces the value's representation to 8 bytes
// (a pointer), regardless of the pointee's own size.
type Dtype struct {
	Variant    Variant
	StructName string // populated iff Variant == Struct
	NDerefs    int
}

// Equal reports whether two Dtypes describe the same type: same variant
// (and, for structs, same name) and the same indirection level.
func (d Dtype) Equal(other Dtype) bool {
	if d.Variant != other.Variant || d.NDerefs != other.NDerefs {
		return false
	}
	if d.Variant == Struct {
		return d.StructName == other.StructName
	}
	return true
}

// AddrOf returns the Dtype obtained by taking the address of a value of
// type d (nderefs + 1).
func (d Dtype) AddrOf() Dtype {
	d.NDerefs++
	return d
}

// Deref returns the Dtype obtained by dereferencing a value of type d
// (nderefs - 1). Callers must ensure NDerefs > 0 before calling.
func (d Dtype) Deref() Dtype {
	d.NDerefs--
	return d
}

// IsPointer reports whether d has any pointer indirection.
func (d Dtype) IsPointer() bool { return d.NDerefs > 0 }

// BaseNumBytes returns the byte size of d ignoring struct-specific sizing:
// 8 for any pointer, else the primitive base size. Struct values with
// NDerefs == 0 report 0 here — callers needing a struct's true size must
// use scope.SizeOf.
func (d Dtype) BaseNumBytes() int {
	if d.IsPointer() {
		return 8
	}
	return d.Variant.baseSize()
}

// String renders d in its display form: the primitive name (or
// "struct NAME") followed by one '*' per level of indirection.
func (d Dtype) String() string {
	base := d.Variant.String()
	if d.Variant == Struct {
		base = fmt.Sprintf("struct %s", d.StructName)
	}
	stars := ""
	for i := 0; i < d.NDerefs; i++ {
		stars += "*"
	}
	return base + stars
}
