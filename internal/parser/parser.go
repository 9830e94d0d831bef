package parser

import (
	"fmt"
	"strconv"

	"github.com/sunholo/camlc/internal/ast"
	"github.com/sunholo/camlc/internal/lexer"
)

// LexingError reports an unexpected character in the input.
type LexingError struct {
	Literal string
	Pos     ast.Pos
}

func (e *LexingError) Error() string {
	return fmt.Sprintf("%s: unexpected character %q", e.Pos, e.Literal)
}

// ParsingError reports an unexpected token.
type ParsingError struct {
	Message string
	Near    lexer.Token
	Pos     ast.Pos
}

func (e *ParsingError) Error() string {
	return fmt.Sprintf("%s: %s", e.Pos, e.Message)
}

// Parser parses camlc source code into an AST.
//
// The grammar is a small ML: top-level let statements terminated by ";;",
// `let rec`, `let ... = ... in ...`, `fun x -> e`, application by
// juxtaposition, infix `+ - * div mod =` (desugared to calls of the
// operator's identifier with a pair argument), if/then/else, and tuple
// literals of two or more components.
type Parser struct {
	l        *lexer.Lexer
	curToken lexer.Token
}

// New creates a new Parser reading from l.
func New(l *lexer.Lexer) *Parser {
	p := &Parser{l: l}
	p.nextToken()
	return p
}

func (p *Parser) nextToken() {
	p.curToken = p.l.NextToken()
}

func (p *Parser) pos() ast.Pos {
	return ast.Pos{Line: p.curToken.Line, Column: p.curToken.Column, File: p.curToken.File}
}

func (p *Parser) errUnexpected(expected string) error {
	if p.curToken.Type == lexer.ILLEGAL {
		return &LexingError{Literal: p.curToken.Literal, Pos: p.pos()}
	}
	return &ParsingError{
		Message: fmt.Sprintf("expected %s, found %q", expected, p.curToken.Literal),
		Near:    p.curToken,
		Pos:     p.pos(),
	}
}

// expect consumes the current token if it has the wanted type and fails
// otherwise.
func (p *Parser) expect(t lexer.TokenType) (lexer.Token, error) {
	if p.curToken.Type != t {
		return lexer.Token{}, p.errUnexpected(t.String())
	}
	tok := p.curToken
	p.nextToken()
	return tok, nil
}

// Parse consumes a whole program: a sequence of ";;"-terminated statements.
func (p *Parser) Parse() (*ast.TopLevelStmts, error) {
	program := &ast.TopLevelStmts{Pos: p.pos()}

	for p.curToken.Type != lexer.EOF {
		stmt, err := p.parseStmt()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.DSEMI); err != nil {
			return nil, err
		}
		program.Stmts = append(program.Stmts, stmt)
	}

	return program, nil
}

// ParseExpr consumes a single expression followed by EOF.
func (p *Parser) ParseExpr() (ast.Expr, error) {
	expr, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if p.curToken.Type != lexer.EOF {
		return nil, p.errUnexpected("end of input")
	}
	return expr, nil
}

// parseStmt parses either a top-level let binding or a bare expression
// statement.
func (p *Parser) parseStmt() (ast.Node, error) {
	if p.curToken.Type == lexer.LET {
		pos := p.pos()
		name, rhs, recursive, err := p.parseLetBinding()
		if err != nil {
			return nil, err
		}
		if p.curToken.Type == lexer.IN {
			// Actually a let expression: finish it as one.
			return p.parseLetTail(name, rhs, recursive, pos)
		}
		return &ast.LetStmt{Name: name, Rhs: rhs, Recursive: recursive, Pos: pos}, nil
	}
	return p.parseExpr()
}

// parseLetBinding consumes `let [rec] name params... = expr`, leaving the
// cursor on whatever follows the right-hand side. Parameter sugar folds into
// nested lambdas: `let f x y = e` is `let f = fun x -> fun y -> e`.
func (p *Parser) parseLetBinding() (string, ast.Expr, bool, error) {
	if _, err := p.expect(lexer.LET); err != nil {
		return "", nil, false, err
	}

	recursive := false
	if p.curToken.Type == lexer.REC {
		recursive = true
		p.nextToken()
	}

	nameTok, err := p.expect(lexer.IDENT)
	if err != nil {
		return "", nil, false, err
	}

	var params []lexer.Token
	for p.curToken.Type == lexer.IDENT {
		params = append(params, p.curToken)
		p.nextToken()
	}

	if _, err := p.expect(lexer.ASSIGN); err != nil {
		return "", nil, false, err
	}

	rhs, err := p.parseExpr()
	if err != nil {
		return "", nil, false, err
	}

	// Fold parameters right-to-left around the body.
	for i := len(params) - 1; i >= 0; i-- {
		tok := params[i]
		rhs = &ast.Lambda{
			Param: tok.Literal,
			Body:  rhs,
			Pos:   ast.Pos{Line: tok.Line, Column: tok.Column, File: tok.File},
		}
	}

	return nameTok.Literal, rhs, recursive, nil
}

// parseLetTail finishes a `let ... in body` expression whose binding has
// already been consumed.
func (p *Parser) parseLetTail(name string, rhs ast.Expr, recursive bool, pos ast.Pos) (ast.Expr, error) {
	if _, err := p.expect(lexer.IN); err != nil {
		return nil, err
	}
	body, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	return &ast.Let{Name: name, Rhs: rhs, Body: body, Recursive: recursive, Pos: pos}, nil
}

// parseExpr parses a full expression.
func (p *Parser) parseExpr() (ast.Expr, error) {
	switch p.curToken.Type {
	case lexer.FUN:
		return p.parseLambda()
	case lexer.IF:
		return p.parseIf()
	case lexer.LET:
		pos := p.pos()
		name, rhs, recursive, err := p.parseLetBinding()
		if err != nil {
			return nil, err
		}
		return p.parseLetTail(name, rhs, recursive, pos)
	default:
		return p.parseBinary(1)
	}
}

func (p *Parser) parseLambda() (ast.Expr, error) {
	pos := p.pos()
	if _, err := p.expect(lexer.FUN); err != nil {
		return nil, err
	}
	param, err := p.expect(lexer.IDENT)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.ARROW); err != nil {
		return nil, err
	}
	body, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	return &ast.Lambda{Param: param.Literal, Body: body, Pos: pos}, nil
}

func (p *Parser) parseIf() (ast.Expr, error) {
	pos := p.pos()
	if _, err := p.expect(lexer.IF); err != nil {
		return nil, err
	}
	pred, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.THEN); err != nil {
		return nil, err
	}
	yes, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.ELSE); err != nil {
		return nil, err
	}
	no, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	return &ast.If{Pred: pred, Yes: yes, No: no, Pos: pos}, nil
}

// binOp desugars `a op b` into a call of the operator's identifier with a
// pair argument.
func binOp(op lexer.Token, left, right ast.Expr) ast.Expr {
	pos := ast.Pos{Line: op.Line, Column: op.Column, File: op.File}
	return &ast.Call{
		Fn:  &ast.Ident{Name: op.Type.String(), Pos: pos},
		Arg: &ast.TupleLit{Vals: []ast.Expr{left, right}, Pos: pos},
		Pos: pos,
	}
}

// parseBinary climbs operator precedence: `=` binds loosest, then `+ -`,
// then `* div mod`. All operators are left-associative; application binds
// tighter than any of them.
func (p *Parser) parseBinary(minPrec int) (ast.Expr, error) {
	left, err := p.parseApplication()
	if err != nil {
		return nil, err
	}
	for p.curToken.IsBinOp() && p.curToken.Precedence() >= minPrec {
		op := p.curToken
		p.nextToken()
		right, err := p.parseBinary(op.Precedence() + 1)
		if err != nil {
			return nil, err
		}
		left = binOp(op, left, right)
	}
	return left, nil
}

// parseApplication parses juxtaposed atoms as left-associated calls:
// `f a b` is `(f a) b`.
func (p *Parser) parseApplication() (ast.Expr, error) {
	expr, err := p.parseAtom()
	if err != nil {
		return nil, err
	}
	for p.startsAtom() {
		pos := p.pos()
		arg, err := p.parseAtom()
		if err != nil {
			return nil, err
		}
		expr = &ast.Call{Fn: expr, Arg: arg, Pos: pos}
	}
	return expr, nil
}

func (p *Parser) startsAtom() bool {
	switch p.curToken.Type {
	case lexer.INT, lexer.TRUE, lexer.FALSE, lexer.IDENT, lexer.LPAREN:
		return true
	}
	return false
}

// parseAtom parses literals, identifiers, parenthesized expressions and
// tuple literals.
func (p *Parser) parseAtom() (ast.Expr, error) {
	switch p.curToken.Type {
	case lexer.INT:
		pos := p.pos()
		val, err := strconv.ParseInt(p.curToken.Literal, 10, 64)
		if err != nil {
			return nil, &ParsingError{
				Message: fmt.Sprintf("invalid integer literal %q", p.curToken.Literal),
				Near:    p.curToken,
				Pos:     pos,
			}
		}
		p.nextToken()
		return &ast.Const{Kind: ast.IntLit, Int: val, Pos: pos}, nil

	case lexer.TRUE, lexer.FALSE:
		pos := p.pos()
		val := p.curToken.Type == lexer.TRUE
		p.nextToken()
		return &ast.Const{Kind: ast.BoolLit, Bool: val, Pos: pos}, nil

	case lexer.IDENT:
		pos := p.pos()
		name := p.curToken.Literal
		p.nextToken()
		return &ast.Ident{Name: name, Pos: pos}, nil

	case lexer.LPAREN:
		return p.parseParenOrTuple()

	default:
		return nil, p.errUnexpected("an expression")
	}
}

// parseParenOrTuple parses `(e)` as grouping and `(e1, e2, ...)` as a tuple
// literal.
func (p *Parser) parseParenOrTuple() (ast.Expr, error) {
	pos := p.pos()
	if _, err := p.expect(lexer.LPAREN); err != nil {
		return nil, err
	}

	first, err := p.parseExpr()
	if err != nil {
		return nil, err
	}

	if p.curToken.Type == lexer.RPAREN {
		p.nextToken()
		return first, nil
	}

	vals := []ast.Expr{first}
	for p.curToken.Type == lexer.COMMA {
		p.nextToken()
		next, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		vals = append(vals, next)
	}
	if _, err := p.expect(lexer.RPAREN); err != nil {
		return nil, err
	}

	return &ast.TupleLit{Vals: vals, Pos: pos}, nil
}
