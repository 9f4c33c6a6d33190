// Recursive descent parser
// https://en.wikipedia.org/wiki/Recursive_descent_parser
//
// A Recursive descent parser is a top-down parser because it starts from the top
// grammar rule and works its way down in to the nested sub-expressions before reaching
// the leaves of the syntax tree (terminal rules). Expressions additionally use
// Pratt-style precedence climbing: each precedence level is its own method, and each
// calls down to the next tighter-binding level before looking for its own operators.
package parser

import (
	"fmt"

	"neksis/ast"
	"neksis/token"
)

var comparisonTokenTypes = []token.TokenType{
	token.LARGER,
	token.LARGER_EQUAL,
	token.LESS,
	token.LESS_EQUAL,
}

var equalityTokenTypes = []token.TokenType{
	token.NOT_EQUAL,
	token.EQUAL_EQUAL,
}

var termTokenTypes = []token.TokenType{
	token.SUB,
	token.ADD,
}

var factorExpressionTypes = []token.TokenType{
	token.MULT,
	token.DIV,
	token.PERCENT,
}

var unaryExpressionTypes = []token.TokenType{
	token.BANG,
	token.SUB,
}

// Parser turns a token stream into a Program AST, accumulating errors rather
// than stopping at the first one so a single pass can report everything wrong
// with a source file.
type Parser struct {
	tokens   []token.Token
	position int
	errors   []error
}

// NOTE: The parser's position indexes the current, not yet consumed
// token; previous() is the last consumed one.

// Make initializes and returns a new Parser instance over the given tokens.
func Make(tokens []token.Token) *Parser {
	return &Parser{
		tokens:   tokens,
		position: 0,
	}
}

// Print prints the AST as prettified JSON to standard output.
func (parser *Parser) Print(program ast.Program) {
	_, err := PrintASTJSON(program)
	if err != nil {
		fmt.Println("error producing AST JSON:", err)
	}
}

// PrintToFile writes the AST for the provided program to a .json file at the given path.
func (parser *Parser) PrintToFile(program ast.Program, path string) error {
	return WriteASTJSONToFile(program, path)
}

// peek returns the token at the parser's current position, without advancing.
func (parser *Parser) peek() token.Token {
	return parser.tokens[parser.position]
}

// peekAt returns the token `offset` positions ahead of the current position,
// clamped to the last token (EOF) if the offset runs past the end.
func (parser *Parser) peekAt(offset int) token.Token {
	index := parser.position + offset
	if index >= len(parser.tokens) {
		return parser.tokens[len(parser.tokens)-1]
	}
	return parser.tokens[index]
}

// previous retrieves the token at the parser's previous position (position - 1).
func (parser *Parser) previous() token.Token {
	return parser.tokens[parser.position-1]
}

// advance increments the parser's position by one unit and consumes the current token.
func (parser *Parser) advance() token.Token {
	if !parser.isFinished() {
		parser.position++
	}
	return parser.previous()
}

// isFinished determines if the parser has consumed every token up to EOF.
func (parser *Parser) isFinished() bool {
	tok := parser.peek()
	return tok.TokenType == token.EOF
}

// checkType determines if the provided tokenType matches the TokenType at the
// parser's current position.
func (parser *Parser) checkType(tokenType token.TokenType) bool {
	if parser.isFinished() {
		return false
	}
	tok := parser.peek()
	return tok.TokenType == tokenType
}

// checkTypeAt is checkType for a token `offset` positions ahead.
func (parser *Parser) checkTypeAt(offset int, tokenType token.TokenType) bool {
	return parser.peekAt(offset).TokenType == tokenType
}

// isMatch determines if the TokenType at the current position matches any of
// the provided tokenTypes. If a match is found the parser advances past it.
func (parser *Parser) isMatch(tokenTypes []token.TokenType) bool {
	for i := range tokenTypes {
		tokenType := tokenTypes[i]

		if parser.checkType(tokenType) {
			parser.advance()
			return true
		}
	}
	return false
}

// synchronizeStmt recovers from a statement-level parse error by advancing
// until a statement boundary: a consumed ';', or an unconsumed '{'/'}'.
// Tokens inside a balanced bracket are never silently dropped since block()
// itself recurses into nested braces rather than skipping over them.
func (parser *Parser) synchronizeStmt() {
	start := parser.position
	for !parser.isFinished() {
		moved := parser.position > start
		if moved && parser.previous().TokenType == token.SEMICOLON {
			return
		}
		if parser.checkType(token.RCUR) || (moved && parser.checkType(token.LCUR)) {
			return
		}
		parser.advance()
	}
}

// synchronizeItem recovers from a top-level parse error by advancing until
// the next function declaration or end of input.
func (parser *Parser) synchronizeItem() {
	for !parser.isFinished() {
		if parser.checkType(token.FUNC) {
			return
		}
		parser.advance()
	}
}

// Parse parses the entire token stream into a Program, continuing past
// malformed declarations so multiple errors can be reported in one pass.
//
// Returns:
//   - ast.Program: the successfully parsed function declarations.
//   - []error: all errors that occurred during parsing.
func (parser *Parser) Parse() (ast.Program, []error) {
	var functions []ast.FnDecl

	for !parser.isFinished() {
		fn, err := parser.fnDecl()
		if err != nil {
			parser.errors = append(parser.errors, err)
			parser.synchronizeItem()
			continue
		}
		functions = append(functions, fn)
	}

	return ast.Program{Functions: functions}, parser.errors
}

// fnDecl parses a single function declaration:
// "'fn' Ident '(' [ Params ] ')' [ '->' Type ] Block".
func (parser *Parser) fnDecl() (ast.FnDecl, error) {
	if _, err := parser.consume(token.FUNC, "expected 'fn' to start a function declaration"); err != nil {
		return ast.FnDecl{}, err
	}
	name, err := parser.consume(token.IDENTIFIER, "expected a function name")
	if err != nil {
		return ast.FnDecl{}, err
	}
	if _, err := parser.consume(token.LPA, "expected '(' after function name"); err != nil {
		return ast.FnDecl{}, err
	}

	var params []ast.Param
	if !parser.checkType(token.RPA) {
		for {
			paramName, err := parser.consume(token.IDENTIFIER, "expected a parameter name")
			if err != nil {
				return ast.FnDecl{}, err
			}
			if _, err := parser.consume(token.COLON, "expected ':' after parameter name"); err != nil {
				return ast.FnDecl{}, err
			}
			paramType, err := parser.consume(token.IDENTIFIER, "expected a parameter type")
			if err != nil {
				return ast.FnDecl{}, err
			}
			params = append(params, ast.Param{Name: paramName, TypeName: paramType, TypeNameOk: true})
			if !parser.isMatch([]token.TokenType{token.COMMA}) {
				break
			}
		}
	}
	if _, err := parser.consume(token.RPA, "expected ')' after parameter list"); err != nil {
		return ast.FnDecl{}, err
	}

	var returnType token.Token
	hasReturn := false
	if parser.isMatch([]token.TokenType{token.ARROW}) {
		returnType, err = parser.consume(token.IDENTIFIER, "expected a return type after '->'")
		if err != nil {
			return ast.FnDecl{}, err
		}
		hasReturn = true
	}

	body, err := parser.block()
	if err != nil {
		return ast.FnDecl{}, err
	}

	return ast.FnDecl{
		Name:       name,
		Params:     params,
		ReturnType: returnType,
		HasReturn:  hasReturn,
		Body:       body,
	}, nil
}

// block parses a block: "'{' { Stmt } [ Expr ] '}'". A statement-level
// error does not abort the whole block: it is recorded and the parser
// resynchronizes to the next statement boundary before continuing.
func (parser *Parser) block() (ast.BlockStmt, error) {
	if _, err := parser.consume(token.LCUR, "expected '{' to start a block"); err != nil {
		return ast.BlockStmt{}, err
	}

	var statements []ast.Stmt
	var tail ast.Expression

	for !parser.checkType(token.RCUR) && !parser.isFinished() {
		stmt, tailExpr, err := parser.blockEntry()
		if err != nil {
			parser.errors = append(parser.errors, err)
			parser.synchronizeStmt()
			continue
		}
		if tailExpr != nil {
			tail = tailExpr
			break
		}
		statements = append(statements, stmt)
	}

	if _, err := parser.consume(token.RCUR, "expected '}' to close block"); err != nil {
		return ast.BlockStmt{}, err
	}

	return ast.BlockStmt{Statements: statements, Tail: tail}, nil
}

// blockEntry parses one entry of a block's body: a statement, or (only when
// immediately followed by '}') a trailing tail expression. Exactly one of the
// two return values besides err is populated.
func (parser *Parser) blockEntry() (ast.Stmt, ast.Expression, error) {
	switch {
	case parser.checkType(token.VAR):
		stmt, err := parser.letStmt()
		return stmt, nil, err
	case parser.checkType(token.IF):
		expr, err := parser.ifExpr()
		if err != nil {
			return nil, nil, err
		}
		if parser.checkType(token.RCUR) {
			return nil, expr, nil
		}
		return ast.ExpressionStmt{Expression: expr}, nil, nil
	case parser.checkType(token.WHILE):
		stmt, err := parser.whileStmt()
		return stmt, nil, err
	case parser.checkType(token.RETURN):
		stmt, err := parser.returnStmt()
		return stmt, nil, err
	case parser.checkType(token.IDENTIFIER) && parser.checkTypeAt(1, token.ASSIGN):
		stmt, err := parser.assignStmt()
		return stmt, nil, err
	default:
		expr, err := parser.expression()
		if err != nil {
			return nil, nil, err
		}
		if parser.isMatch([]token.TokenType{token.SEMICOLON}) {
			return ast.ExpressionStmt{Expression: expr}, nil, nil
		}
		if parser.checkType(token.RCUR) {
			return nil, expr, nil
		}
		currentToken := parser.peek()
		return nil, nil, CreateSyntaxError(currentToken.Line, currentToken.Column, "expected ';' after expression statement")
	}
}

// letStmt parses "'let' [ 'mut' ] Ident [ ':' Type ] '=' Expr ';'".
func (parser *Parser) letStmt() (ast.Stmt, error) {
	if _, err := parser.consume(token.VAR, "expected 'let'"); err != nil {
		return nil, err
	}
	mutable := parser.isMatch([]token.TokenType{token.MUT})

	name, err := parser.consume(token.IDENTIFIER, "expected a variable name")
	if err != nil {
		return nil, err
	}

	var typeTok token.Token
	typeOk := false
	if parser.isMatch([]token.TokenType{token.COLON}) {
		typeTok, err = parser.consume(token.IDENTIFIER, "expected a type name after ':'")
		if err != nil {
			return nil, err
		}
		typeOk = true
	}

	if _, err := parser.consume(token.ASSIGN, "expected '=' in let binding"); err != nil {
		return nil, err
	}
	initializer, err := parser.expression()
	if err != nil {
		return nil, err
	}
	if _, err := parser.consume(token.SEMICOLON, "expected ';' after let binding"); err != nil {
		return nil, err
	}

	return ast.VarStmt{
		Name:        name,
		Mutable:     mutable,
		TypeName:    typeTok,
		TypeNameOk:  typeOk,
		Initializer: initializer,
	}, nil
}

// assignStmt parses "Ident '=' Expr ';'", re-using the Assign expression node
// wrapped in an ExpressionStmt since it has no additional statement-level
// shape of its own.
func (parser *Parser) assignStmt() (ast.Stmt, error) {
	name, err := parser.consume(token.IDENTIFIER, "expected a variable name")
	if err != nil {
		return nil, err
	}
	if _, err := parser.consume(token.ASSIGN, "expected '=' in assignment"); err != nil {
		return nil, err
	}
	value, err := parser.expression()
	if err != nil {
		return nil, err
	}
	if _, err := parser.consume(token.SEMICOLON, "expected ';' after assignment"); err != nil {
		return nil, err
	}
	return ast.ExpressionStmt{Expression: ast.Assign{Name: name, Value: value}}, nil
}

// returnStmt parses "'return' [ Expr ] ';'".
func (parser *Parser) returnStmt() (ast.Stmt, error) {
	keyword, err := parser.consume(token.RETURN, "expected 'return'")
	if err != nil {
		return nil, err
	}

	var value ast.Expression
	if !parser.checkType(token.SEMICOLON) {
		value, err = parser.expression()
		if err != nil {
			return nil, err
		}
	}

	if _, err := parser.consume(token.SEMICOLON, "expected ';' after return statement"); err != nil {
		return nil, err
	}
	return ast.ReturnStmt{Keyword: keyword, Value: value}, nil
}

// whileStmt parses "'while' Expr Block".
func (parser *Parser) whileStmt() (ast.Stmt, error) {
	if _, err := parser.consume(token.WHILE, "expected 'while'"); err != nil {
		return nil, err
	}
	condition, err := parser.expression()
	if err != nil {
		return nil, err
	}
	body, err := parser.block()
	if err != nil {
		return nil, err
	}
	return ast.WhileStmt{Condition: condition, Body: body}, nil
}

// ifExpr parses "'if' Expr Block [ 'else' ( IfExpr | Block ) ]". It is called
// both from blockEntry, when an `if` starts a block entry, and from primary,
// when an `if` appears nested inside a larger expression (a let initializer,
// a call argument, a binary operand, or a block's tail).
func (parser *Parser) ifExpr() (ast.Expression, error) {
	if _, err := parser.consume(token.IF, "expected 'if'"); err != nil {
		return nil, err
	}
	condition, err := parser.expression()
	if err != nil {
		return nil, err
	}
	thenBlock, err := parser.block()
	if err != nil {
		return nil, err
	}

	var elseExpr ast.Expression
	if parser.isMatch([]token.TokenType{token.ELSE}) {
		if parser.checkType(token.IF) {
			elseExpr, err = parser.ifExpr()
		} else {
			var elseBlock ast.BlockStmt
			elseBlock, err = parser.block()
			elseExpr = ast.BlockExpr{Block: elseBlock}
		}
		if err != nil {
			return nil, err
		}
	}

	return ast.IfExpr{Condition: condition, Then: thenBlock, Else: elseExpr}, nil
}

// expression is the entry point for parsing an expression. Assignment is a
// statement-level construct in Neksis (see AssignStmt), so the precedence
// ladder begins at logical-or, the lowest-precedence expression operator.
func (parser *Parser) expression() (ast.Expression, error) {
	return parser.or()
}

// or parses a left-associative chain of "||" expressions.
func (parser *Parser) or() (ast.Expression, error) {
	expr, err := parser.and()
	if err != nil {
		return nil, err
	}

	for parser.isMatch([]token.TokenType{token.OR}) {
		op := parser.previous()
		rightExpr, err := parser.and()
		if err != nil {
			return nil, err
		}
		expr = ast.Logical{Left: expr, Operator: op, Right: rightExpr}
	}

	return expr, nil
}

// and parses a left-associative chain of "&&" expressions.
func (parser *Parser) and() (ast.Expression, error) {
	expr, err := parser.equality()
	if err != nil {
		return nil, err
	}

	for parser.isMatch([]token.TokenType{token.AND}) {
		op := parser.previous()
		rightExpr, err := parser.equality()
		if err != nil {
			return nil, err
		}
		expr = ast.Logical{Left: expr, Operator: op, Right: rightExpr}
	}
	return expr, nil
}

// equality parses equality expressions using operators "==" and "!=".
func (parser *Parser) equality() (ast.Expression, error) {
	exp, err := parser.comparison()
	if err != nil {
		return nil, err
	}
	for parser.isMatch(equalityTokenTypes) {
		operator := parser.previous()
		right, err := parser.comparison()
		if err != nil {
			return nil, err
		}
		exp = ast.Binary{Left: exp, Operator: operator, Right: right}
	}
	return exp, nil
}

// comparison parses comparison expressions using operators "<", "<=", ">", ">=".
func (parser *Parser) comparison() (ast.Expression, error) {
	exp, err := parser.term()
	if err != nil {
		return nil, err
	}
	for parser.isMatch(comparisonTokenTypes) {
		operator := parser.previous()
		right, err := parser.term()
		if err != nil {
			return nil, err
		}
		exp = ast.Binary{Left: exp, Operator: operator, Right: right}
	}
	return exp, nil
}

// term parses addition and subtraction expressions using operators "+" and "-".
func (parser *Parser) term() (ast.Expression, error) {
	exp, err := parser.factor()
	if err != nil {
		return nil, err
	}
	for parser.isMatch(termTokenTypes) {
		operator := parser.previous()
		right, err := parser.factor()
		if err != nil {
			return nil, err
		}
		exp = ast.Binary{Left: exp, Operator: operator, Right: right}
	}
	return exp, nil
}

// factor parses multiplication, division and modulo expressions using "*", "/" and "%".
func (parser *Parser) factor() (ast.Expression, error) {
	exp, err := parser.unary()
	if err != nil {
		return nil, err
	}
	for parser.isMatch(factorExpressionTypes) {
		operator := parser.previous()
		right, err := parser.unary()
		if err != nil {
			return nil, err
		}
		exp = ast.Binary{Left: exp, Operator: operator, Right: right}
	}
	return exp, nil
}

// unary parses unary prefix expressions using operators "!" or "-".
// Examples: "!done", "-x".
func (parser *Parser) unary() (ast.Expression, error) {
	if parser.isMatch(unaryExpressionTypes) {
		operator := parser.previous()
		right, err := parser.unary()
		if err != nil {
			return nil, err
		}
		return ast.Unary{Operator: operator, Right: right}, nil
	}
	return parser.call()
}

// call parses postfix call expressions, e.g. "fact(n - 1)", falling back to
// a bare identifier reference or other primary expression when no '(' follows.
func (parser *Parser) call() (ast.Expression, error) {
	if parser.checkType(token.IDENTIFIER) && parser.checkTypeAt(1, token.LPA) {
		name := parser.advance()
		parser.advance() // consume '('

		var args []ast.Expression
		if !parser.checkType(token.RPA) {
			for {
				arg, err := parser.expression()
				if err != nil {
					return nil, err
				}
				args = append(args, arg)
				if !parser.isMatch([]token.TokenType{token.COMMA}) {
					break
				}
			}
		}
		if _, err := parser.consume(token.RPA, "expected ')' after call arguments"); err != nil {
			return nil, err
		}
		return ast.Call{Callee: name, Args: args}, nil
	}
	return parser.primary()
}

// primary parses the most basic forms of expressions:
//   - if-expressions: "if cond { 1 } else { 2 }"
//   - Literals: true, false, numbers, strings
//   - Variable references
//   - Grouping: "(expression)"
//
// If no valid token matches, returns a syntax error.
func (parser *Parser) primary() (ast.Expression, error) {
	if parser.checkType(token.IF) {
		return parser.ifExpr()
	}

	if parser.isMatch([]token.TokenType{token.FALSE}) {
		return ast.Literal{Value: false}, nil
	}
	if parser.isMatch([]token.TokenType{token.TRUE}) {
		return ast.Literal{Value: true}, nil
	}

	if parser.isMatch([]token.TokenType{token.FLOAT, token.INT, token.STRING}) {
		return ast.Literal{Value: parser.previous().Literal}, nil
	}

	if parser.isMatch([]token.TokenType{token.IDENTIFIER}) {
		return ast.Variable{Name: parser.previous()}, nil
	}

	if parser.isMatch([]token.TokenType{token.LPA}) {
		expr, err := parser.expression()
		if err != nil {
			return nil, err
		}
		_, consumeErr := parser.consume(token.RPA, fmt.Sprintf("expression is missing '%s'", token.RPA))
		if consumeErr != nil {
			return nil, consumeErr
		}
		return ast.Grouping{Expression: expr}, nil
	}

	currentToken := parser.peek()
	return nil, CreateSyntaxError(currentToken.Line, currentToken.Column, "unrecognised expression")
}

// consume advances the parser past the current token if its TokenType matches
// tokenType, otherwise returns a SyntaxError at the current position.
func (parser *Parser) consume(tokenType token.TokenType, errorMessage string) (token.Token, error) {
	if parser.checkType(tokenType) {
		return parser.advance(), nil
	}
	currentToken := parser.peek()
	return token.CreateToken(token.EOF, 0, 0), CreateSyntaxError(currentToken.Line, currentToken.Column, errorMessage)
}
