package parser

import (
	"testing"

	"tinycc/ast"
	"tinycc/lexer"
	"tinycc/token"
	"tinycc/types"
)

func mustLex(t *testing.T, src string) []token.Token {
	t.Helper()
	toks, err := lexer.New(src).Scan()
	if err != nil {
		t.Fatalf("lexer.Scan(%q) returned error: %v", src, err)
	}
	return toks
}

func mustParse(t *testing.T, src string) ast.Node {
	t.Helper()
	root, err := Parse(mustLex(t, src))
	if err != nil {
		t.Fatalf("Parse(%q) returned error: %v", src, err)
	}
	return root
}

func TestParseVardef(t *testing.T) {
	root := mustParse(t, "int x = 5;")
	cpd := root.(*ast.Cpd)
	if len(cpd.Children) != 1 {
		t.Fatalf("len(children) = %d, want 1", len(cpd.Children))
	}
	vd, ok := cpd.Children[0].(*ast.Vardef)
	if !ok {
		t.Fatalf("children[0] = %T, want *ast.Vardef", cpd.Children[0])
	}
	if vd.Name.Name != "x" || !vd.Dtype.Equal(types.Dtype{Variant: types.Int}) {
		t.Errorf("vardef = %+v, want name x, dtype int", vd)
	}
	if _, ok := vd.Init.(*ast.Int); !ok {
		t.Errorf("vardef.Init = %T, want *ast.Int", vd.Init)
	}
}

func TestParseVardefNoInitializer(t *testing.T) {
	root := mustParse(t, "int x;")
	cpd := root.(*ast.Cpd)
	vd := cpd.Children[0].(*ast.Vardef)
	if _, ok := vd.Init.(*ast.Noop); !ok {
		t.Errorf("vardef.Init = %T, want synthesized *ast.Noop", vd.Init)
	}
}

func TestParseFdefDeclarationVsDefinition(t *testing.T) {
	root := mustParse(t, "int add(int a, int b);")
	cpd := root.(*ast.Cpd)
	fdef := cpd.Children[0].(*ast.Fdef)
	if fdef.Name != "add" || len(fdef.Params) != 2 {
		t.Fatalf("fdef = %+v, want name add with 2 params", fdef)
	}
	if _, ok := fdef.Body.(*ast.Noop); !ok {
		t.Errorf("declaration body = %T, want *ast.Noop", fdef.Body)
	}

	root2 := mustParse(t, "int add(int a, int b) { return a + b; }")
	cpd2 := root2.(*ast.Cpd)
	fdef2 := cpd2.Children[0].(*ast.Fdef)
	body, ok := fdef2.Body.(*ast.Cpd)
	if !ok || len(body.Children) != 1 {
		t.Fatalf("definition body = %+v, want a 1-statement Cpd", fdef2.Body)
	}
	if _, ok := body.Children[0].(*ast.Return); !ok {
		t.Errorf("body.Children[0] = %T, want *ast.Return", body.Children[0])
	}
}

func TestParseFcall(t *testing.T) {
	root := mustParse(t, "foo(1, 2);")
	cpd := root.(*ast.Cpd)
	call := cpd.Children[0].(*ast.Fcall)
	if call.Name != "foo" || len(call.Args) != 2 {
		t.Fatalf("fcall = %+v, want foo(1, 2)", call)
	}
}

func TestParseIfWhileFor(t *testing.T) {
	root := mustParse(t, "if (x) { y; } while (x) { y; } for (i; j; k) { y; }")
	cpd := root.(*ast.Cpd)
	if len(cpd.Children) != 3 {
		t.Fatalf("len(children) = %d, want 3", len(cpd.Children))
	}
	if _, ok := cpd.Children[0].(*ast.If); !ok {
		t.Errorf("children[0] = %T, want *ast.If", cpd.Children[0])
	}
	if _, ok := cpd.Children[1].(*ast.While); !ok {
		t.Errorf("children[1] = %T, want *ast.While", cpd.Children[1])
	}
	if _, ok := cpd.Children[2].(*ast.For); !ok {
		t.Errorf("children[2] = %T, want *ast.For", cpd.Children[2])
	}
}

func TestParseBinopEqualWeightLeftAssociative(t *testing.T) {
	root := mustParse(t, "a + b - c;")
	cpd := root.(*ast.Cpd)
	top := cpd.Children[0].(*ast.Binop)
	if top.Op != token.MINUS {
		t.Fatalf("top operator = %s, want -, i.e. (a + b) - c", top.Op)
	}
	left, ok := top.Left.(*ast.Binop)
	if !ok || left.Op != token.PLUS {
		t.Fatalf("top.Left = %+v, want a Binop(+)", top.Left)
	}
}

func TestParseBinopHigherWeightNestsIntoRight(t *testing.T) {
	// '.' (weight 3) binds tighter than '+' (weight 2): a + b.c -> a + (b.c)
	root := mustParse(t, "a + b.c;")
	cpd := root.(*ast.Cpd)
	top := cpd.Children[0].(*ast.Binop)
	if top.Op != token.PLUS {
		t.Fatalf("top operator = %s, want +", top.Op)
	}
	right, ok := top.Right.(*ast.Binop)
	if !ok || right.Op != token.DOT {
		t.Fatalf("top.Right = %+v, want a Binop(.) for b.c", top.Right)
	}
}

func TestParseUnaryBindsTighterThanBinary(t *testing.T) {
	root := mustParse(t, "a + !b;")
	cpd := root.(*ast.Cpd)
	top := cpd.Children[0].(*ast.Binop)
	if _, ok := top.Right.(*ast.Unop); !ok {
		t.Fatalf("top.Right = %T, want *ast.Unop", top.Right)
	}
}

func TestParseStructDef(t *testing.T) {
	root := mustParse(t, "struct Point { int x; int y; }")
	cpd := root.(*ast.Cpd)
	st := cpd.Children[0].(*ast.Struct)
	if st.Name != "Point" || len(st.Fields) != 2 {
		t.Fatalf("struct = %+v, want Point with 2 fields", st)
	}
}

func TestParseStructTypedVardef(t *testing.T) {
	root := mustParse(t, "struct Point p;")
	cpd := root.(*ast.Cpd)
	vd := cpd.Children[0].(*ast.Vardef)
	if vd.Dtype.Variant != types.Struct || vd.Dtype.StructName != "Point" {
		t.Fatalf("vardef dtype = %+v, want struct Point", vd.Dtype)
	}
}

func TestParsePointerDtype(t *testing.T) {
	root := mustParse(t, "int* p;")
	cpd := root.(*ast.Cpd)
	vd := cpd.Children[0].(*ast.Vardef)
	if vd.Dtype.NDerefs != 1 {
		t.Fatalf("vardef dtype = %+v, want NDerefs 1", vd.Dtype)
	}
}

func TestParseDesignatedInitializer(t *testing.T) {
	root := mustParse(t, "struct Point p = (struct Point){ .x = 1, .y = 2 };")
	cpd := root.(*ast.Cpd)
	vd := cpd.Children[0].(*ast.Vardef)
	il, ok := vd.Init.(*ast.InitList)
	if !ok {
		t.Fatalf("vardef.Init = %T, want *ast.InitList", vd.Init)
	}
	if il.Dtype.StructName != "Point" || len(il.Fields) != 2 {
		t.Fatalf("init list = %+v, want struct Point with 2 fields", il)
	}
	if il.Fields[0].Name != "x" || il.Fields[1].Name != "y" {
		t.Errorf("init list fields = %+v, want x then y in order", il.Fields)
	}
}

func TestParseParenthesizedExpressionBacktracks(t *testing.T) {
	// (a + b) must NOT be mistaken for a designated initializer: 'a' isn't
	// a valid type name, so the speculative parse must fail and backtrack.
	root := mustParse(t, "int x = (a + b);")
	cpd := root.(*ast.Cpd)
	vd := cpd.Children[0].(*ast.Vardef)
	binop, ok := vd.Init.(*ast.Binop)
	if !ok || binop.Op != token.PLUS {
		t.Fatalf("vardef.Init = %+v, want a Binop(+)", vd.Init)
	}
}

func TestParseAssignmentAsBinop(t *testing.T) {
	root := mustParse(t, "x = 5;")
	cpd := root.(*ast.Cpd)
	binop := cpd.Children[0].(*ast.Binop)
	if binop.Op != token.ASSIGN {
		t.Fatalf("operator = %s, want =", binop.Op)
	}
}

func TestParseVardefNoExpressionError(t *testing.T) {
	_, err := Parse(mustLex(t, "int x = ;"))
	if err == nil {
		t.Fatal("Parse() expected an error for a missing expression after '='")
	}
}

func TestParseReturnFromDeeplyNestedBlock(t *testing.T) {
	root := mustParse(t, "int main() { { { return 0; } } }")
	cpd := root.(*ast.Cpd)
	fdef := cpd.Children[0].(*ast.Fdef)
	body := fdef.Body.(*ast.Cpd)
	if len(body.Children) != 1 {
		t.Fatalf("len(body.Children) = %d, want 1", len(body.Children))
	}
}
