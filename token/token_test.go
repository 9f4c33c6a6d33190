package token

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCreateToken(t *testing.T) {
	tok := CreateToken(ASSIGN, 3, 7)
	assert.Equal(t, ASSIGN, tok.TokenType)
	assert.Equal(t, "=", tok.Lexeme)
	assert.Nil(t, tok.Literal)
	assert.Equal(t, int32(3), tok.Line)
	assert.Equal(t, 7, tok.Column)
}

func TestCreateLiteralToken(t *testing.T) {
	tok := CreateLiteralToken(INT, int64(42), "42", 1, 0)
	assert.Equal(t, INT, tok.TokenType)
	assert.Equal(t, "42", tok.Lexeme)
	assert.Equal(t, int64(42), tok.Literal)
}

func TestKeyWordsRecognized(t *testing.T) {
	for lexeme, want := range KeyWords {
		got, ok := KeyWords[lexeme]
		assert.True(t, ok)
		assert.Equal(t, want, got)
	}
	_, ok := KeyWords["notAKeyword"]
	assert.False(t, ok)
}

func TestTokenString(t *testing.T) {
	tok := CreateLiteralToken(STRING, "hi", "hi", 0, 0)
	assert.Contains(t, tok.String(), "STRING")
	assert.Contains(t, tok.String(), "hi")
}
