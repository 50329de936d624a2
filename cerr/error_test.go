package cerr

import (
	"strings"
	"testing"
)

func TestErrorMessage(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{"unrecognized token", NewUnrecognizedToken(3, '@'), "error: Line 3: Unrecognized token '@'."},
		{"nonexistent variable", NewNonexistentVariable(5, "foo"), "error: Line 5: Variable 'foo' does not exist."},
		{
			"arg/param mismatch",
			NewFunctionArgParamMismatch(7, "add", 3, 2),
			"error: Line 7: Function 'add' takes in 2 parameters but was passed 3 arguments.",
		},
		{
			"assign type mismatch",
			NewAssignTypeMismatch(9, "int", "char*"),
			"error: Line 9: Attempting to assign type 'char*' to type 'int'.",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRenderIncludesSourceContext(t *testing.T) {
	source := "int a = 1;\nint b = a +;\nint c = 3;\n"
	err := NewUnexpectedToken(1, "';'", "expression")
	out := Render(err, source)

	if !strings.Contains(out, "int a = 1;") {
		t.Errorf("Render() = %q, want the preceding line included", out)
	}
	if !strings.Contains(out, "int b = a +;") {
		t.Errorf("Render() = %q, want the erroring line included", out)
	}
	if !strings.Contains(out, "int c = 3;") {
		t.Errorf("Render() = %q, want the following line included", out)
	}
}

func TestRenderAtFileBoundary(t *testing.T) {
	source := "int a = 1;\n"
	err := NewNonexistentVariable(0, "x")
	out := Render(err, source)
	if !strings.Contains(out, "int a = 1;") {
		t.Errorf("Render() = %q, want the only line included even at line 0", out)
	}
}

func TestNewDuplicateVardef(t *testing.T) {
	err := NewDuplicateVardef(4, "x")
	want := "error: Line 4: Redefinition of variable 'x'."
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestNewUnbalancedConditional(t *testing.T) {
	err := NewUnbalancedConditional(1, 2)
	if !strings.Contains(err.Error(), "2 conditional block") {
		t.Errorf("Error() = %q, want a mention of the 2 unclosed blocks", err.Error())
	}
}
