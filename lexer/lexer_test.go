package lexer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"neksis/token"
)

func scanOk(t *testing.T, source string) []token.Token {
	t.Helper()
	tokens, errs := New(source).Scan()
	require.Empty(t, errs)
	return tokens
}

func tokenTypes(tokens []token.Token) []token.TokenType {
	types := make([]token.TokenType, len(tokens))
	for i, tok := range tokens {
		types[i] = tok.TokenType
	}
	return types
}

func TestScanOperators(t *testing.T) {
	tokens := scanOk(t, "==/=*+>-<!=<=>=!!%")
	assert.Equal(t, []token.TokenType{
		token.EQUAL_EQUAL, token.DIV, token.ASSIGN, token.MULT, token.ADD,
		token.LARGER, token.SUB, token.LESS, token.NOT_EQUAL, token.LESS_EQUAL,
		token.LARGER_EQUAL, token.BANG, token.BANG, token.PERCENT, token.EOF,
	}, tokenTypes(tokens))
}

func TestScanDelimitersAndArrow(t *testing.T) {
	tokens := scanOk(t, "(){}[]:,;->")
	assert.Equal(t, []token.TokenType{
		token.LPA, token.RPA, token.LCUR, token.RCUR, token.LBRACKET, token.RBRACKET,
		token.COLON, token.COMMA, token.SEMICOLON, token.ARROW, token.EOF,
	}, tokenTypes(tokens))
}

func TestScanLogicalOperators(t *testing.T) {
	tokens := scanOk(t, "&& ||")
	assert.Equal(t, []token.TokenType{token.AND, token.OR, token.EOF}, tokenTypes(tokens))
}

func TestScanKeywordsAndIdentifiers(t *testing.T) {
	tokens := scanOk(t, "fn while let mut return if else true false notAKeyword")
	assert.Equal(t, []token.TokenType{
		token.FUNC, token.WHILE, token.VAR, token.MUT, token.RETURN,
		token.IF, token.ELSE, token.TRUE, token.FALSE, token.IDENTIFIER, token.EOF,
	}, tokenTypes(tokens))
	assert.Equal(t, "notAKeyword", tokens[9].Lexeme)
}

func TestScanIntegerLiteral(t *testing.T) {
	tokens := scanOk(t, "42")
	require.Len(t, tokens, 2)
	assert.Equal(t, token.INT, tokens[0].TokenType)
	assert.Equal(t, int64(42), tokens[0].Literal)
}

func TestScanFloatLiteral(t *testing.T) {
	tokens := scanOk(t, "3.14")
	require.Len(t, tokens, 2)
	assert.Equal(t, token.FLOAT, tokens[0].TokenType)
	assert.Equal(t, 3.14, tokens[0].Literal)
}

func TestScanFloatWithExponent(t *testing.T) {
	tokens := scanOk(t, "1.5e10")
	require.Len(t, tokens, 2)
	assert.Equal(t, token.FLOAT, tokens[0].TokenType)
	assert.Equal(t, 1.5e10, tokens[0].Literal)
}

func TestScanHexBinaryOctalIntegers(t *testing.T) {
	tokens := scanOk(t, "0xFF 0b101 0o17")
	require.Len(t, tokens, 4)
	assert.Equal(t, int64(255), tokens[0].Literal)
	assert.Equal(t, int64(5), tokens[1].Literal)
	assert.Equal(t, int64(15), tokens[2].Literal)
}

func TestScanStringLiteralWithEscapes(t *testing.T) {
	tokens := scanOk(t, `"hi\nthere"`)
	require.Len(t, tokens, 2)
	assert.Equal(t, token.STRING, tokens[0].TokenType)
	assert.Equal(t, "hi\nthere", tokens[0].Literal)
}

func TestScanLineComment(t *testing.T) {
	tokens := scanOk(t, "1 // a comment\n+ 2")
	assert.Equal(t, []token.TokenType{token.INT, token.ADD, token.INT, token.EOF}, tokenTypes(tokens))
}

func TestScanNestedBlockComment(t *testing.T) {
	tokens := scanOk(t, "1 /* outer /* inner */ still outer */ + 2")
	assert.Equal(t, []token.TokenType{token.INT, token.ADD, token.INT, token.EOF}, tokenTypes(tokens))
}

func TestScanAccumulatesMultipleErrors(t *testing.T) {
	_, errs := New("1. & |").Scan()
	assert.Len(t, errs, 3)
}

func TestScanUnterminatedStringProducesError(t *testing.T) {
	_, errs := New(`"unterminated`).Scan()
	require.Len(t, errs, 1)
}

func TestScanUnterminatedBlockCommentProducesError(t *testing.T) {
	_, errs := New("/* never closed").Scan()
	require.Len(t, errs, 1)
}
