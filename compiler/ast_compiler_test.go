package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"neksis/ast"
	"neksis/token"
)

func ident(name string) token.Token {
	return token.CreateLiteralToken(token.IDENTIFIER, nil, name, 0, 0)
}

func intLit(v int64) ast.Literal {
	return ast.Literal{Value: v}
}

func fn(name string, params []ast.Param, hasReturn bool, body ast.BlockStmt) ast.FnDecl {
	return ast.FnDecl{Name: ident(name), Params: params, HasReturn: hasReturn, Body: body}
}

func program(fns ...ast.FnDecl) ast.Program {
	return ast.Program{Functions: fns}
}

func TestCompileProgramRequiresMain(t *testing.T) {
	prog := program(fn("helper", nil, false, ast.BlockStmt{}))

	_, err := NewASTCompiler().CompileProgram(prog)
	require.Error(t, err)
	assert.IsType(t, DeveloperError{}, err)
}

func TestCompileProgramRejectsDuplicateFunctionNames(t *testing.T) {
	prog := program(
		fn("main", nil, false, ast.BlockStmt{}),
		fn("main", nil, false, ast.BlockStmt{}),
	)

	_, err := NewASTCompiler().CompileProgram(prog)
	require.Error(t, err)
	assert.IsType(t, SemanticError{}, err)
}

func TestCompileProgramEntryPoint(t *testing.T) {
	prog := program(
		fn("helper", nil, false, ast.BlockStmt{}),
		fn("main", nil, false, ast.BlockStmt{}),
	)

	bytecode, err := NewASTCompiler().CompileProgram(prog)
	require.NoError(t, err)
	assert.Equal(t, "main", bytecode.Functions[bytecode.EntryIndex].Name)
}

func TestCompileFunctionTailExpressionEmitsReturn(t *testing.T) {
	prog := program(fn("main", nil, true, ast.BlockStmt{Tail: intLit(42)}))

	bytecode, err := NewASTCompiler().CompileProgram(prog)
	require.NoError(t, err)

	instrs := bytecode.Functions[bytecode.EntryIndex].Instructions
	require.NotEmpty(t, instrs)
	assert.Equal(t, byte(OP_CONSTANT), instrs[0])
	assert.Equal(t, byte(OP_RETURN), instrs[len(instrs)-1])
}

func TestCompileFunctionWithoutTailEmitsReturnVoid(t *testing.T) {
	prog := program(fn("main", nil, false, ast.BlockStmt{}))

	bytecode, err := NewASTCompiler().CompileProgram(prog)
	require.NoError(t, err)

	instrs := bytecode.Functions[bytecode.EntryIndex].Instructions
	require.Len(t, instrs, 1)
	assert.Equal(t, byte(OP_RETURN_VOID), instrs[0])
}

func TestCompileVarStmtAndAssign(t *testing.T) {
	body := ast.BlockStmt{
		Statements: []ast.Stmt{
			ast.VarStmt{Name: ident("x"), Initializer: intLit(1)},
			ast.ExpressionStmt{Expression: ast.Assign{Name: ident("x"), Value: intLit(2)}},
		},
	}
	prog := program(fn("main", nil, false, body))

	bytecode, err := NewASTCompiler().CompileProgram(prog)
	require.NoError(t, err)

	instrs := bytecode.Functions[bytecode.EntryIndex].Instructions
	assert.Equal(t, byte(OP_CONSTANT), instrs[0])
	foundDefine := false
	foundSet := false
	for _, b := range instrs {
		if Opcode(b) == OP_DEFINE_LOCAL {
			foundDefine = true
		}
		if Opcode(b) == OP_SET_LOCAL {
			foundSet = true
		}
	}
	assert.True(t, foundDefine)
	assert.True(t, foundSet)
}

func TestVisitVariableExpressionUndefinedPanics(t *testing.T) {
	body := ast.BlockStmt{
		Statements: []ast.Stmt{
			ast.ExpressionStmt{Expression: ast.Variable{Name: ident("missing")}},
		},
	}
	prog := program(fn("main", nil, false, body))

	_, err := NewASTCompiler().CompileProgram(prog)
	require.Error(t, err)
	assert.IsType(t, SemanticError{}, err)
}

func TestCompileCallToUndefinedFunctionPanics(t *testing.T) {
	body := ast.BlockStmt{
		Statements: []ast.Stmt{
			ast.ExpressionStmt{Expression: ast.Call{Callee: ident("ghost"), Args: nil}},
		},
	}
	prog := program(fn("main", nil, false, body))

	_, err := NewASTCompiler().CompileProgram(prog)
	require.Error(t, err)
	assert.IsType(t, SemanticError{}, err)
}

func TestCompileRecursiveCallResolvesOwnIndex(t *testing.T) {
	body := ast.BlockStmt{
		Statements: []ast.Stmt{
			ast.ExpressionStmt{Expression: ast.Call{Callee: ident("main"), Args: nil}},
		},
	}
	prog := program(fn("main", nil, false, body))

	bytecode, err := NewASTCompiler().CompileProgram(prog)
	require.NoError(t, err)

	instrs := bytecode.Functions[bytecode.EntryIndex].Instructions
	found := false
	for _, b := range instrs {
		if Opcode(b) == OP_CALL {
			found = true
		}
	}
	assert.True(t, found)
}

func TestCompileIfExprPatchesJumpTargets(t *testing.T) {
	body := ast.BlockStmt{
		Statements: []ast.Stmt{
			ast.ExpressionStmt{Expression: ast.IfExpr{
				Condition: ast.Literal{Value: true},
				Then:      ast.BlockStmt{},
				Else:      ast.BlockExpr{Block: ast.BlockStmt{}},
			}},
		},
	}
	prog := program(fn("main", nil, false, body))

	bytecode, err := NewASTCompiler().CompileProgram(prog)
	require.NoError(t, err)

	instrs := bytecode.Functions[bytecode.EntryIndex].Instructions
	dia, err := DisassembleAll(instrs)
	require.NoError(t, err)
	assert.Contains(t, dia, "OP_JUMP_IF_FALSE")
}

// TestCompileIfExprAsValueBalancesStack verifies an if-expression used in
// value position (here, a function's tail) compiles to a single value on
// every path, regardless of which arm executes.
func TestCompileIfExprAsValueBalancesStack(t *testing.T) {
	body := ast.BlockStmt{
		Tail: ast.IfExpr{
			Condition: ast.Literal{Value: true},
			Then:      ast.BlockStmt{Tail: ast.Literal{Value: int64(1)}},
			Else:      ast.BlockExpr{Block: ast.BlockStmt{Tail: ast.Literal{Value: int64(2)}}},
		},
	}
	prog := program(fn("main", nil, true, body))

	bytecode, err := NewASTCompiler().CompileProgram(prog)
	require.NoError(t, err)

	instrs := bytecode.Functions[bytecode.EntryIndex].Instructions
	dia, err := DisassembleAll(instrs)
	require.NoError(t, err)
	assert.Contains(t, dia, "OP_RETURN")
	assert.NotContains(t, dia, "OP_POP")
}

func TestCompileWhileStmtLoopsBackToCondition(t *testing.T) {
	body := ast.BlockStmt{
		Statements: []ast.Stmt{
			ast.WhileStmt{
				Condition: ast.Literal{Value: false},
				Body:      ast.BlockStmt{},
			},
		},
	}
	prog := program(fn("main", nil, false, body))

	bytecode, err := NewASTCompiler().CompileProgram(prog)
	require.NoError(t, err)

	instrs := bytecode.Functions[bytecode.EntryIndex].Instructions
	dia, err := DisassembleAll(instrs)
	require.NoError(t, err)
	assert.Contains(t, dia, "OP_JUMP,")
}

func TestCompileParamsOccupyLeadingSlots(t *testing.T) {
	params := []ast.Param{{Name: ident("a")}, {Name: ident("b")}}
	body := ast.BlockStmt{Tail: ast.Variable{Name: ident("a")}}
	prog := program(fn("main", params, true, body))

	bytecode, err := NewASTCompiler().CompileProgram(prog)
	require.NoError(t, err)

	fnCompiled := bytecode.Functions[bytecode.EntryIndex]
	assert.Equal(t, 2, fnCompiled.NumParams)
	assert.GreaterOrEqual(t, fnCompiled.NumLocals, 2)
}

func TestCompileIntrinsicCall(t *testing.T) {
	body := ast.BlockStmt{
		Statements: []ast.Stmt{
			ast.ExpressionStmt{Expression: ast.Call{Callee: ident("print"), Args: []ast.Expression{intLit(1)}}},
		},
	}
	prog := program(fn("main", nil, false, body))

	bytecode, err := NewASTCompiler().CompileProgram(prog)
	require.NoError(t, err)

	instrs := bytecode.Functions[bytecode.EntryIndex].Instructions
	dia, err := DisassembleAll(instrs)
	require.NoError(t, err)
	assert.Contains(t, dia, "OP_CALL_INTRINSIC")
}
