// Package parser fuses type parsing, operator-precedence expression
// parsing, struct definitions, and designated-initializer literals into one
// recursive-descent routine over a token stream with unbounded lookahead.
package parser

import (
	"tinycc/ast"
	"tinycc/cerr"
	"tinycc/token"
	"tinycc/types"
)

// Parser holds a token slice and a cursor; Parser values can be
// checkpointed (mark/reset) and restarted, which is how the designated
// initializer's speculative type parse backtracks on failure.
type Parser struct {
	tokens []token.Token
	pos    int
}

// New constructs a Parser over tokens, which must end with a single EOF
// token (as lexer.Lexer.Scan produces).
func New(tokens []token.Token) *Parser {
	return &Parser{tokens: tokens}
}

// Parse parses the whole token stream into the single top-level Cpd node.
func Parse(tokens []token.Token) (ast.Node, error) {
	p := New(tokens)
	root, err := p.parseCompound(token.EOF)
	if err != nil {
		return nil, err
	}
	if !p.check(token.EOF) {
		tok := p.peek()
		return nil, cerr.NewUnexpectedToken(tok.Line, string(tok.Kind), "end of input")
	}
	return root, nil
}

func (p *Parser) peek() token.Token { return p.peekAt(0) }

// peekAt returns the token k positions beyond the cursor, clamped to the
// trailing EOF token — the unbounded lookahead the designated-initializer
// speculative parse and the fcall/type-name one-token lookahead both need.
func (p *Parser) peekAt(k int) token.Token {
	idx := p.pos + k
	if idx >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1]
	}
	return p.tokens[idx]
}

func (p *Parser) advance() token.Token {
	tok := p.peek()
	if tok.Kind != token.EOF {
		p.pos++
	}
	return tok
}

func (p *Parser) check(kind token.Kind) bool {
	return p.peek().Kind == kind
}

func (p *Parser) isMatch(kind token.Kind) bool {
	if p.check(kind) {
		p.advance()
		return true
	}
	return false
}

// consume advances past a token of the given kind, or fails with an
// unexpected-token error naming what was expected.
func (p *Parser) consume(kind token.Kind, expected string) (token.Token, error) {
	if p.check(kind) {
		return p.advance(), nil
	}
	tok := p.peek()
	return token.Token{}, cerr.NewUnexpectedToken(tok.Line, string(tok.Kind), expected)
}

// mark/reset checkpoint the cursor for backtracking.
func (p *Parser) mark() int      { return p.pos }
func (p *Parser) reset(mark int) { p.pos = mark }

// weightOf returns a binary operator's precedence weight (higher binds
// tighter), per spec.md §4.1's table. Non-binary kinds return -1.
func weightOf(kind token.Kind) int {
	switch kind {
	case token.DOT, token.ARROW:
		return 3
	case token.STAR, token.SLASH, token.PLUS, token.MINUS:
		return 2
	case token.LT, token.LE, token.GT, token.GE, token.EQ, token.NEQ, token.ASSIGN:
		return 1
	case token.ANDAND, token.OROR:
		return 0
	default:
		return -1
	}
}

func isTypeName(tok token.Token) bool {
	return tok.Kind == token.IDENT && token.PrimitiveTypeNames[tok.Text]
}

// parseExpr is the expression routine: parsePrimary for the first atom,
// then — unless onlyOne restricts the result to a single primary — a
// precedence climb over any following binary operators.
func (p *Parser) parseExpr(onlyOne bool) (ast.Node, error) {
	for p.check(token.SEMICOLON) {
		p.advance()
	}
	left, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	if onlyOne || !p.peek().IsBinaryOp() {
		return left, nil
	}
	return p.parseBinopClimb(left, 0)
}

// parseBinopClimb implements the binop climb: each iteration reads one
// operator and parses its right-hand side as a single primary, then lets
// any immediately-following strictly-higher-weight operator absorb that
// primary (and further primaries) into a deeper right child before the
// current operator closes over it. Equal-weight operators stay flat and
// left-associative.
func (p *Parser) parseBinopClimb(left ast.Node, minWeight int) (ast.Node, error) {
	for p.peek().IsBinaryOp() && weightOf(p.peek().Kind) >= minWeight {
		opTok := p.advance()
		opWeight := weightOf(opTok.Kind)

		right, err := p.parsePrimary()
		if err != nil {
			return nil, err
		}
		for p.peek().IsBinaryOp() && weightOf(p.peek().Kind) > opWeight {
			right, err = p.parseBinopClimb(right, opWeight+1)
			if err != nil {
				return nil, err
			}
		}
		left = &ast.Binop{Ln: opTok.Line, Op: opTok.Kind, Left: left, Right: right}
	}
	return left, nil
}

// parsePrimary selects and parses one primary expression, with no binary
// operator climbing of its own.
func (p *Parser) parsePrimary() (ast.Node, error) {
	tok := p.peek()

	switch tok.Kind {
	case token.INT:
		p.advance()
		return &ast.Int{Ln: tok.Line, Value: tok.Literal.(int64)}, nil

	case token.CHAR:
		p.advance()
		return &ast.Char{Ln: tok.Line, Value: tok.Literal.(int64)}, nil

	case token.STRING:
		p.advance()
		return &ast.Str{Ln: tok.Line, Value: tok.Literal.(string)}, nil

	case token.IF:
		return p.parseIf()

	case token.WHILE:
		return p.parseWhile()

	case token.FOR:
		return p.parseFor()

	case token.RETURN:
		return p.parseReturn()

	case token.STRUCT:
		if p.peekAt(2).Kind == token.LBRACE {
			return p.parseStructDef()
		}
		return p.parseVardefOrFdef()

	case token.IDENT:
		if isTypeName(tok) {
			return p.parseVardefOrFdef()
		}
		if p.peekAt(1).Kind == token.LPAREN {
			return p.parseFcall()
		}
		p.advance()
		return &ast.Var{Ln: tok.Line, Name: tok.Text}, nil

	case token.LBRACE:
		p.advance()
		body, err := p.parseCompound(token.RBRACE)
		if err != nil {
			return nil, err
		}
		if _, err := p.consume(token.RBRACE, "}"); err != nil {
			return nil, err
		}
		return body, nil

	case token.LPAREN:
		return p.parseParenOrInitList()

	case token.BANG, token.AMP, token.STAR:
		p.advance()
		right, err := p.parseExpr(true)
		if err != nil {
			return nil, err
		}
		return &ast.Unop{Ln: tok.Line, Op: tok.Kind, Right: right}, nil

	default:
		return nil, cerr.NewUnexpectedToken(tok.Line, string(tok.Kind), "expression")
	}
}

// parseCompound parses children until stop (RBRACE for a nested block,
// EOF for the top level) is reached, requiring a terminating ';' after
// each child unless it naturally ended in '}' or already consumed one.
func (p *Parser) parseCompound(stop token.Kind) (*ast.Cpd, error) {
	ln := p.peek().Line
	var children []ast.Node

	for !p.check(stop) && !p.check(token.EOF) {
		for p.check(token.SEMICOLON) {
			p.advance()
		}
		if p.check(stop) || p.check(token.EOF) {
			break
		}

		child, err := p.parseExpr(false)
		if err != nil {
			return nil, err
		}
		children = append(children, child)

		prev := p.tokens[p.pos-1].Kind
		if prev != token.RBRACE && prev != token.SEMICOLON {
			if _, err := p.consume(token.SEMICOLON, ";"); err != nil {
				return nil, err
			}
		}
	}

	return &ast.Cpd{Ln: ln, Children: children}, nil
}

// parseDtype consumes a primitive type name or `struct NAME`, then an
// unbounded suffix of `*`/`&` contributing to NDerefs (the original's `&`
// historical alias: it increments NDerefs identically to `*`).
func (p *Parser) parseDtype() (types.Dtype, error) {
	tok := p.peek()

	var dt types.Dtype
	switch {
	case tok.Kind == token.STRUCT:
		p.advance()
		nameTok, err := p.consume(token.IDENT, "struct name")
		if err != nil {
			return types.Dtype{}, err
		}
		dt = types.Dtype{Variant: types.Struct, StructName: nameTok.Text}
	case isTypeName(tok):
		p.advance()
		switch tok.Text {
		case "int":
			dt = types.Dtype{Variant: types.Int}
		case "char":
			dt = types.Dtype{Variant: types.Char}
		case "void":
			dt = types.Dtype{Variant: types.Void}
		}
	default:
		return types.Dtype{}, cerr.NewInvalidDtypeFromStr(tok.Line, tok.Text)
	}

	for p.check(token.STAR) || p.check(token.AMP) {
		p.advance()
		dt.NDerefs++
	}
	return dt, nil
}

// parseVardefOrFdef parses `Dtype Var [= Expr]`, rewriting to an Fdef when
// the name is followed by '(' .
func (p *Parser) parseVardefOrFdef() (ast.Node, error) {
	ln := p.peek().Line
	dtype, err := p.parseDtype()
	if err != nil {
		return nil, err
	}
	nameTok, err := p.consume(token.IDENT, "variable name")
	if err != nil {
		return nil, err
	}
	name := &ast.Var{Ln: nameTok.Line, Name: nameTok.Text}

	if p.check(token.LPAREN) {
		return p.parseFdef(ln, dtype, name)
	}

	if p.isMatch(token.ASSIGN) {
		if p.check(token.SEMICOLON) || p.check(token.EOF) {
			return nil, cerr.NewVardefNoExpression(ln, name.Name)
		}
		init, err := p.parseExpr(false)
		if err != nil {
			return nil, err
		}
		return &ast.Vardef{Ln: ln, Name: name, Init: init, Dtype: dtype}, nil
	}

	return &ast.Vardef{Ln: ln, Name: name, Init: &ast.Noop{Ln: ln}, Dtype: dtype}, nil
}

// parseFdef parses the parameter list and optional body of a function
// whose name and return type were already parsed by parseVardefOrFdef.
func (p *Parser) parseFdef(ln int32, returnDtype types.Dtype, name *ast.Var) (ast.Node, error) {
	if _, err := p.consume(token.LPAREN, "("); err != nil {
		return nil, err
	}

	var params []*ast.Vardef
	for !p.check(token.RPAREN) {
		param, err := p.parseVardefOrFdef()
		if err != nil {
			return nil, err
		}
		vd, ok := param.(*ast.Vardef)
		if !ok {
			return nil, cerr.NewUnexpectedToken(param.Line(), "nested function definition", "parameter")
		}
		params = append(params, vd)
		if !p.check(token.RPAREN) {
			if _, err := p.consume(token.COMMA, ","); err != nil {
				return nil, err
			}
		}
	}
	if _, err := p.consume(token.RPAREN, ")"); err != nil {
		return nil, err
	}

	var body ast.Node = &ast.Noop{Ln: ln}
	if p.check(token.LBRACE) {
		b, err := p.parsePrimary()
		if err != nil {
			return nil, err
		}
		body = b
	}

	return &ast.Fdef{Ln: ln, Name: name.Name, Params: params, Body: body, ReturnDtype: returnDtype}, nil
}

func (p *Parser) parseFcall() (ast.Node, error) {
	nameTok := p.advance()
	if _, err := p.consume(token.LPAREN, "("); err != nil {
		return nil, err
	}
	var args []ast.Node
	for !p.check(token.RPAREN) {
		arg, err := p.parseExpr(false)
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
		if !p.check(token.RPAREN) {
			if _, err := p.consume(token.COMMA, ","); err != nil {
				return nil, err
			}
		}
	}
	if _, err := p.consume(token.RPAREN, ")"); err != nil {
		return nil, err
	}
	return &ast.Fcall{Ln: nameTok.Line, Name: nameTok.Text, Args: args}, nil
}

func (p *Parser) parseReturn() (ast.Node, error) {
	tok := p.advance()
	val, err := p.parseExpr(false)
	if err != nil {
		return nil, err
	}
	return &ast.Return{Ln: tok.Line, Value: val}, nil
}

func (p *Parser) parseIf() (ast.Node, error) {
	tok := p.advance()
	if _, err := p.consume(token.LPAREN, "("); err != nil {
		return nil, err
	}
	cond, err := p.parseExpr(false)
	if err != nil {
		return nil, err
	}
	if _, err := p.consume(token.RPAREN, ")"); err != nil {
		return nil, err
	}
	body, err := p.parseExpr(false)
	if err != nil {
		return nil, err
	}
	return &ast.If{Ln: tok.Line, Cond: cond, Body: body}, nil
}

func (p *Parser) parseWhile() (ast.Node, error) {
	tok := p.advance()
	if _, err := p.consume(token.LPAREN, "("); err != nil {
		return nil, err
	}
	cond, err := p.parseExpr(false)
	if err != nil {
		return nil, err
	}
	if _, err := p.consume(token.RPAREN, ")"); err != nil {
		return nil, err
	}
	body, err := p.parseExpr(false)
	if err != nil {
		return nil, err
	}
	return &ast.While{Ln: tok.Line, Cond: cond, Body: body}, nil
}

func (p *Parser) parseFor() (ast.Node, error) {
	tok := p.advance()
	if _, err := p.consume(token.LPAREN, "("); err != nil {
		return nil, err
	}
	init, err := p.parseExpr(false)
	if err != nil {
		return nil, err
	}
	if _, err := p.consume(token.SEMICOLON, ";"); err != nil {
		return nil, err
	}
	cond, err := p.parseExpr(false)
	if err != nil {
		return nil, err
	}
	if _, err := p.consume(token.SEMICOLON, ";"); err != nil {
		return nil, err
	}
	inc, err := p.parseExpr(false)
	if err != nil {
		return nil, err
	}
	if _, err := p.consume(token.RPAREN, ")"); err != nil {
		return nil, err
	}
	body, err := p.parseExpr(false)
	if err != nil {
		return nil, err
	}
	return &ast.For{Ln: tok.Line, Init: init, Cond: cond, Inc: inc, Body: body}, nil
}

func (p *Parser) parseStructDef() (ast.Node, error) {
	ln := p.peek().Line
	p.advance() // 'struct'
	nameTok, err := p.consume(token.IDENT, "struct name")
	if err != nil {
		return nil, err
	}
	if _, err := p.consume(token.LBRACE, "{"); err != nil {
		return nil, err
	}

	var fields []*ast.Vardef
	for !p.check(token.RBRACE) {
		field, err := p.parseVardefOrFdef()
		if err != nil {
			return nil, err
		}
		vd, ok := field.(*ast.Vardef)
		if !ok {
			return nil, cerr.NewStructMemberVarNonId(field.Line(), "<non-vardef struct field>")
		}
		fields = append(fields, vd)
		if _, err := p.consume(token.SEMICOLON, ";"); err != nil {
			return nil, err
		}
	}
	if _, err := p.consume(token.RBRACE, "}"); err != nil {
		return nil, err
	}

	return &ast.Struct{Ln: ln, Name: nameTok.Text, Fields: fields}, nil
}

// parseParenOrInitList distinguishes `(Dtype){ .f = e, … }` from a plain
// parenthesized subexpression by speculatively parsing a type and checking
// for the `){` that only a designated initializer has; on any mismatch it
// backtracks to just after the opening '(' and parses a normal expression.
func (p *Parser) parseParenOrInitList() (ast.Node, error) {
	ln := p.peek().Line
	p.advance() // '('

	if dtype, ok := p.trySpeculativeType(); ok {
		if _, err := p.consume(token.RPAREN, ")"); err != nil {
			return nil, err
		}
		if _, err := p.consume(token.LBRACE, "{"); err != nil {
			return nil, err
		}
		var fields []ast.InitField
		for !p.check(token.RBRACE) {
			if _, err := p.consume(token.DOT, "."); err != nil {
				return nil, err
			}
			fieldTok, err := p.consume(token.IDENT, "field name")
			if err != nil {
				return nil, err
			}
			if _, err := p.consume(token.ASSIGN, "="); err != nil {
				return nil, err
			}
			val, err := p.parseExpr(false)
			if err != nil {
				return nil, err
			}
			fields = append(fields, ast.InitField{Name: fieldTok.Text, Value: val})
			if !p.check(token.RBRACE) {
				if _, err := p.consume(token.COMMA, ","); err != nil {
					return nil, err
				}
			}
		}
		if _, err := p.consume(token.RBRACE, "}"); err != nil {
			return nil, err
		}
		return &ast.InitList{Ln: ln, Dtype: dtype, Fields: fields}, nil
	}

	expr, err := p.parseExpr(false)
	if err != nil {
		return nil, err
	}
	if _, err := p.consume(token.RPAREN, ")"); err != nil {
		return nil, err
	}
	return expr, nil
}

// trySpeculativeType attempts a type parse at the current position,
// accepting it only if immediately followed by ')' '{'. On any failure —
// a malformed type, or a well-formed type not followed by '){' — the
// cursor is restored to where it started.
func (p *Parser) trySpeculativeType() (types.Dtype, bool) {
	save := p.mark()
	dtype, err := p.parseDtype()
	if err != nil {
		p.reset(save)
		return types.Dtype{}, false
	}
	if p.check(token.RPAREN) && p.peekAt(1).Kind == token.LBRACE {
		return dtype, true
	}
	p.reset(save)
	return types.Dtype{}, false
}
