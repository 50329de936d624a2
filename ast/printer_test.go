package ast

import (
	"encoding/json"
	"testing"

	"tinycc/token"
	"tinycc/types"
)

func TestPrintJSONSimpleReturn(t *testing.T) {
	root := &Cpd{Children: []Node{
		&Fdef{
			Name:        "main",
			ReturnDtype: types.Dtype{Variant: types.Int},
			Body: &Cpd{Children: []Node{
				&Return{Value: &Int{Value: 0}},
			}},
		},
	}}

	out, err := PrintJSON(root)
	if err != nil {
		t.Fatalf("PrintJSON() returned error: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal([]byte(out), &decoded); err != nil {
		t.Fatalf("PrintJSON() produced invalid JSON: %v", err)
	}
	if decoded["type"] != "Cpd" {
		t.Errorf("root type = %v, want Cpd", decoded["type"])
	}
}

func TestPrintJSONBinop(t *testing.T) {
	root := &Binop{
		Op:    token.PLUS,
		Left:  &Int{Value: 1},
		Right: &Int{Value: 2},
	}
	out, err := PrintJSON(root)
	if err != nil {
		t.Fatalf("PrintJSON() returned error: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal([]byte(out), &decoded); err != nil {
		t.Fatalf("PrintJSON() produced invalid JSON: %v", err)
	}
	if decoded["operator"] != string(token.PLUS) {
		t.Errorf("operator = %v, want %s", decoded["operator"], token.PLUS)
	}
}

func TestPrintJSONInitList(t *testing.T) {
	root := &InitList{
		Dtype: types.Dtype{Variant: types.Struct, StructName: "P"},
		Fields: []InitField{
			{Name: "x", Value: &Int{Value: 1}},
			{Name: "y", Value: &Int{Value: 2}},
		},
	}
	out, err := PrintJSON(root)
	if err != nil {
		t.Fatalf("PrintJSON() returned error: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal([]byte(out), &decoded); err != nil {
		t.Fatalf("PrintJSON() produced invalid JSON: %v", err)
	}
	fields, ok := decoded["fields"].([]any)
	if !ok || len(fields) != 2 {
		t.Fatalf("fields = %v, want a 2-element slice", decoded["fields"])
	}
}
