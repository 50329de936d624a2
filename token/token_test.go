package token

import "testing"

func TestNew(t *testing.T) {
	tests := []struct {
		name string
		kind Kind
		want Token
	}{
		{name: "create ASSIGN token", kind: ASSIGN, want: Token{Kind: ASSIGN, Text: "="}},
		{name: "create LBRACE token", kind: LBRACE, want: Token{Kind: LBRACE, Text: "{"}},
		{name: "create EOF token", kind: EOF, want: Token{Kind: EOF, Text: "EOF"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := New(tt.kind, 0, 0)
			if got != tt.want {
				t.Errorf("New() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewLiteral(t *testing.T) {
	got := NewLiteral(IDENT, "myVar", "myVar", 3, 10)
	want := Token{Kind: IDENT, Text: "myVar", Literal: "myVar", Line: 3, Column: 10}
	if got != want {
		t.Errorf("NewLiteral() = %v, want %v", got, want)
	}
}

func TestIsBinaryOp(t *testing.T) {
	tests := []struct {
		kind Kind
		want bool
	}{
		{DOT, true},
		{ARROW, true},
		{ASSIGN, true},
		{ANDAND, true},
		{OROR, true},
		{BANG, false},
		{AMP, false},
		{LPAREN, false},
	}
	for _, tt := range tests {
		tok := Token{Kind: tt.kind}
		if got := tok.IsBinaryOp(); got != tt.want {
			t.Errorf("Token{Kind: %s}.IsBinaryOp() = %v, want %v", tt.kind, got, tt.want)
		}
	}
}
