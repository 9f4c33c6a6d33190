package parser

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"neksis/ast"
	"neksis/token"
)

func nameTok(name string) token.Token {
	return token.CreateLiteralToken(token.IDENTIFIER, nil, name, 0, 0)
}

func mainFnReturning(body ast.BlockStmt) ast.Program {
	return ast.Program{Functions: []ast.FnDecl{
		{
			Name:       nameTok("main"),
			ReturnType: token.CreateToken(token.IDENTIFIER, 0, 0),
			HasReturn:  false,
			Body:       body,
		},
	}}
}

func TestPrintASTJSON_Literal(t *testing.T) {
	program := mainFnReturning(ast.BlockStmt{
		Statements: []ast.Stmt{
			ast.ExpressionStmt{Expression: ast.Literal{Value: int64(42)}},
		},
	})

	jsonString, err := PrintASTJSON(program)
	require.NoError(t, err)

	var out []map[string]any
	require.NoError(t, json.Unmarshal([]byte(jsonString), &out))
	require.Len(t, out, 1)

	fn := out[0]
	require.Equal(t, "FnDecl", fn["type"])
	require.Equal(t, "main", fn["name"])

	body, ok := fn["body"].(map[string]any)
	require.True(t, ok)
	stmts, ok := body["statements"].([]any)
	require.True(t, ok)
	require.Len(t, stmts, 1)

	stmt := stmts[0].(map[string]any)
	require.Equal(t, "ExpressionStmt", stmt["type"])
	require.InDelta(t, 42, stmt["expression"], 0)
}

func TestPrintASTJSON_VarStmtNilInitializer(t *testing.T) {
	program := mainFnReturning(ast.BlockStmt{
		Statements: []ast.Stmt{
			ast.VarStmt{Name: nameTok("x"), Initializer: nil},
		},
	})

	jsonStr, err := PrintASTJSON(program)
	require.NoError(t, err)

	var out []map[string]any
	require.NoError(t, json.Unmarshal([]byte(jsonStr), &out))

	body := out[0]["body"].(map[string]any)
	stmt := body["statements"].([]any)[0].(map[string]any)

	require.Equal(t, "VarStmt", stmt["type"])
	require.Equal(t, "x", stmt["name"])
	require.Nil(t, stmt["initializer"])
}

func TestPrintASTJSON_BinaryExpression(t *testing.T) {
	program := mainFnReturning(ast.BlockStmt{
		Statements: []ast.Stmt{
			ast.ExpressionStmt{Expression: ast.Binary{
				Left:     ast.Literal{Value: int64(1)},
				Operator: token.CreateToken(token.ADD, 0, 0),
				Right:    ast.Literal{Value: int64(2)},
			}},
		},
	})

	jsonStr, err := PrintASTJSON(program)
	require.NoError(t, err)

	var out []map[string]any
	require.NoError(t, json.Unmarshal([]byte(jsonStr), &out))

	body := out[0]["body"].(map[string]any)
	stmt := body["statements"].([]any)[0].(map[string]any)
	expr := stmt["expression"].(map[string]any)

	require.Equal(t, "Binary", expr["type"])
	require.Equal(t, "+", expr["operator"])
	require.InDelta(t, 1, expr["left"], 0)
	require.InDelta(t, 2, expr["right"], 0)
}

func TestWriteASTJSONToFile(t *testing.T) {
	program := mainFnReturning(ast.BlockStmt{
		Tail: ast.Literal{Value: "hello neksis!"},
	})

	filePath := filepath.Join(os.TempDir(), "neksis_ast_printer_test.json")
	defer os.Remove(filePath)

	require.NoError(t, WriteASTJSONToFile(program, filePath))

	bytes, err := os.ReadFile(filePath)
	require.NoError(t, err)

	var out []map[string]any
	require.NoError(t, json.Unmarshal(bytes, &out))

	body := out[0]["body"].(map[string]any)
	require.Equal(t, "hello neksis!", body["tail"])
}
