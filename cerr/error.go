// Package cerr defines the compiler's structured error kinds and their
// 3-line source-context rendering.
package cerr

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/fatih/color"
)

// Kind identifies the category of a compilation error. Each New* constructor
// sets one Kind and formats its arguments into the Error's Message.
type Kind int

const (
	UnrecognizedToken Kind = iota
	UnexpectedToken
	VardefNoExpression
	NonexistentStructMember
	InvalidDtypeFromStr
	FunctionArgParamMismatch
	AssignTypeMismatch
	StructMemberVarNonId
	PrimitiveMemberAccess
	FunctionDeclDefMismatch
	DuplicateFdef
	DuplicateSdef
	NonexistentFunction
	NonexistentStruct
	NonexistentVariable
	InvalidAddressof
	InvalidDeref
	UnbalancedConditional
	DuplicateVardef
)

// Error is a single compilation failure: a Kind, the message rendered from
// it, and the source line it occurred on.
type Error struct {
	Kind    Kind
	Line    int32
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("error: Line %d: %s", e.Line, e.Message)
}

func newErr(kind Kind, line int32, message string) *Error {
	return &Error{Kind: kind, Line: line, Message: message}
}

func NewUnrecognizedToken(line int32, ch rune) *Error {
	return newErr(UnrecognizedToken, line, fmt.Sprintf("Unrecognized token '%c'.", ch))
}

func NewUnexpectedToken(line int32, received, expected string) *Error {
	return newErr(UnexpectedToken, line, fmt.Sprintf("Expected %s, received %s.", expected, received))
}

func NewVardefNoExpression(line int32, name string) *Error {
	return newErr(VardefNoExpression, line, fmt.Sprintf("Definition of variable '%s' has no expression.", name))
}

func NewNonexistentStructMember(line int32, structName, member string) *Error {
	return newErr(NonexistentStructMember, line, fmt.Sprintf("Struct '%s' has no member '%s'.", structName, member))
}

func NewInvalidDtypeFromStr(line int32, text string) *Error {
	return newErr(InvalidDtypeFromStr, line, fmt.Sprintf("'%s' is not a valid data type.", text))
}

func NewFunctionArgParamMismatch(line int32, name string, nargs, nparams int) *Error {
	return newErr(FunctionArgParamMismatch, line, fmt.Sprintf(
		"Function '%s' takes in %d parameters but was passed %d arguments.", name, nparams, nargs))
}

func NewAssignTypeMismatch(line int32, dest, src string) *Error {
	return newErr(AssignTypeMismatch, line, fmt.Sprintf("Attempting to assign type '%s' to type '%s'.", src, dest))
}

func NewStructMemberVarNonId(line int32, received string) *Error {
	return newErr(StructMemberVarNonId, line, fmt.Sprintf(
		"Struct member access must be an identifier; received '%s'.", received))
}

func NewPrimitiveMemberAccess(line int32, dtype string) *Error {
	return newErr(PrimitiveMemberAccess, line, fmt.Sprintf(
		"Attempting to access member variable of non-struct type '%s'.", dtype))
}

func NewFunctionDeclDefMismatch(line int32, name string) *Error {
	return newErr(FunctionDeclDefMismatch, line, fmt.Sprintf(
		"Function declaration and definition of '%s' do not align.", name))
}

func NewDuplicateFdef(line int32, name string) *Error {
	return newErr(DuplicateFdef, line, fmt.Sprintf("Duplicate definition of function '%s'.", name))
}

func NewDuplicateSdef(line int32, name string) *Error {
	return newErr(DuplicateSdef, line, fmt.Sprintf("Duplicate definition of struct '%s'.", name))
}

func NewNonexistentFunction(line int32, name string) *Error {
	return newErr(NonexistentFunction, line, fmt.Sprintf("Function '%s' does not exist.", name))
}

func NewNonexistentStruct(line int32, name string) *Error {
	return newErr(NonexistentStruct, line, fmt.Sprintf("Struct '%s' does not exist.", name))
}

func NewNonexistentVariable(line int32, name string) *Error {
	return newErr(NonexistentVariable, line, fmt.Sprintf("Variable '%s' does not exist.", name))
}

func NewInvalidAddressof(line int32, received string) *Error {
	return newErr(InvalidAddressof, line, fmt.Sprintf("Can't take address of '%s'.", received))
}

func NewInvalidDeref(line int32, dtype string) *Error {
	return newErr(InvalidDeref, line, fmt.Sprintf("Can't dereference '%s'.", dtype))
}

// NewDuplicateVardef reports a variable name bound twice within the same
// scope layer. Not one of spec.md §4.4's named kinds (whose list omits a
// vardef-redefinition entry despite §4's "no two variable names repeat"
// invariant) — added to give that invariant's failure mode a reportable
// error, named after the sibling duplicate-fdef/duplicate-sdef kinds.
func NewDuplicateVardef(line int32, name string) *Error {
	return newErr(DuplicateVardef, line, fmt.Sprintf("Redefinition of variable '%s'.", name))
}

// NewUnbalancedConditional reports a preprocessor #ifdef/#ifndef left
// without a matching #endif — not present in the original source's
// directive set (which only implemented #include) but required by
// SPEC_FULL.md's fuller preprocessor input.
func NewUnbalancedConditional(line int32, openCount int) *Error {
	return newErr(UnbalancedConditional, line, fmt.Sprintf(
		"%d conditional block(s) never closed with #endif.", openCount))
}

// Render prints "error: Line N: <message>" followed by the three lines of
// source around N (N-1, N, N+1), with N itself bolded and the neighbors
// dimmed, mirroring the original implementation's error.rs renderer.
//
// Line numbers here are 0-based, matching the lexer's lineCount (the first
// line of a file is line 0) — so source line N is lines[N], not lines[N-1]
// as in the original Rust renderer.
func Render(err *Error, source string) string {
	lines := strings.Split(source, "\n")

	var b strings.Builder
	b.WriteString(color.New(color.FgHiRed).Sprint("error"))
	b.WriteString(fmt.Sprintf(": Line %d: %s\n", err.Line, err.Message))

	line := err.Line
	longest := 0
	for _, n := range []int32{line - 1, line, line + 1} {
		if n < 0 {
			continue
		}
		if l := len(strconv.Itoa(int(n))); l > longest {
			longest = l
		}
	}

	bold := color.New(color.FgWhite, color.Bold)
	dim := color.New(color.FgHiBlack)

	for delta := int32(-1); delta <= 1; delta++ {
		n := line + delta
		if n < 0 || int(n) >= len(lines) {
			continue
		}
		padding := longest - len(strconv.Itoa(int(n)))
		row := fmt.Sprintf("  %d%s | %s", n, strings.Repeat(" ", padding), lines[n])
		if delta == 0 {
			b.WriteString(bold.Sprint(row))
		} else {
			b.WriteString(dim.Sprint(row))
		}
		b.WriteByte('\n')
	}

	return b.String()
}
