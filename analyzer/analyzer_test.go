package analyzer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"neksis/ast"
	"neksis/token"
)

func ident(name string) token.Token {
	return token.CreateLiteralToken(token.IDENTIFIER, nil, name, 1, 1)
}

func typeTok(name string) token.Token {
	return token.CreateLiteralToken(token.IDENTIFIER, nil, name, 1, 1)
}

func intLit(v int64) ast.Literal { return ast.Literal{Value: v} }

func mainFn(hasReturn bool, retType string, params []ast.Param, body ast.BlockStmt) ast.FnDecl {
	fn := ast.FnDecl{Name: ident("main"), Params: params, HasReturn: hasReturn, Body: body}
	if hasReturn {
		fn.ReturnType = typeTok(retType)
	}
	return fn
}

func TestAnalyzeAcceptsWellTypedProgram(t *testing.T) {
	program := ast.Program{Functions: []ast.FnDecl{
		mainFn(true, "Int", nil, ast.BlockStmt{Tail: intLit(42)}),
	}}

	errs := New().Analyze(program)
	assert.Empty(t, errs)
}

func TestAnalyzeRequiresMain(t *testing.T) {
	program := ast.Program{Functions: []ast.FnDecl{
		{Name: ident("helper"), Body: ast.BlockStmt{}},
	}}

	errs := New().Analyze(program)
	require.NotEmpty(t, errs)
}

func TestAnalyzeRejectsDuplicateFunctionNames(t *testing.T) {
	program := ast.Program{Functions: []ast.FnDecl{
		mainFn(false, "", nil, ast.BlockStmt{}),
		mainFn(false, "", nil, ast.BlockStmt{}),
	}}

	errs := New().Analyze(program)
	require.NotEmpty(t, errs)
}

func TestAnalyzeDetectsMismatchedTailReturn(t *testing.T) {
	program := ast.Program{Functions: []ast.FnDecl{
		mainFn(true, "Bool", nil, ast.BlockStmt{Tail: intLit(1)}),
	}}

	errs := New().Analyze(program)
	require.NotEmpty(t, errs)
}

func TestAnalyzeDetectsMissingReturnOnSomePath(t *testing.T) {
	program := ast.Program{Functions: []ast.FnDecl{
		mainFn(true, "Int", nil, ast.BlockStmt{
			Statements: []ast.Stmt{
				ast.ExpressionStmt{Expression: ast.IfExpr{
					Condition: ast.Literal{Value: true},
					Then:      ast.BlockStmt{Statements: []ast.Stmt{ast.ReturnStmt{Value: intLit(1)}}},
				}},
			},
		}),
	}}

	errs := New().Analyze(program)
	require.NotEmpty(t, errs)
}

func TestAnalyzeAcceptsReturnOnAllPaths(t *testing.T) {
	program := ast.Program{Functions: []ast.FnDecl{
		mainFn(true, "Int", nil, ast.BlockStmt{
			Statements: []ast.Stmt{
				ast.ExpressionStmt{Expression: ast.IfExpr{
					Condition: ast.Literal{Value: true},
					Then:      ast.BlockStmt{Statements: []ast.Stmt{ast.ReturnStmt{Value: intLit(1)}}},
					Else:      ast.BlockExpr{Block: ast.BlockStmt{Statements: []ast.Stmt{ast.ReturnStmt{Value: intLit(0)}}}},
				}},
			},
		}),
	}}

	errs := New().Analyze(program)
	assert.Empty(t, errs)
}

func TestAnalyzeDetectsUndefinedIdentifier(t *testing.T) {
	program := ast.Program{Functions: []ast.FnDecl{
		mainFn(false, "", nil, ast.BlockStmt{
			Statements: []ast.Stmt{
				ast.ExpressionStmt{Expression: ast.Variable{Name: ident("ghost")}},
			},
		}),
	}}

	errs := New().Analyze(program)
	require.NotEmpty(t, errs)
}

func TestAnalyzeDetectsAssignmentToImmutableBinding(t *testing.T) {
	program := ast.Program{Functions: []ast.FnDecl{
		mainFn(false, "", nil, ast.BlockStmt{
			Statements: []ast.Stmt{
				ast.VarStmt{Name: ident("x"), Mutable: false, Initializer: intLit(1)},
				ast.ExpressionStmt{Expression: ast.Assign{Name: ident("x"), Value: intLit(2)}},
			},
		}),
	}}

	errs := New().Analyze(program)
	require.NotEmpty(t, errs)
}

func TestAnalyzeAllowsAssignmentToMutableBinding(t *testing.T) {
	program := ast.Program{Functions: []ast.FnDecl{
		mainFn(false, "", nil, ast.BlockStmt{
			Statements: []ast.Stmt{
				ast.VarStmt{Name: ident("x"), Mutable: true, Initializer: intLit(1)},
				ast.ExpressionStmt{Expression: ast.Assign{Name: ident("x"), Value: intLit(2)}},
			},
		}),
	}}

	errs := New().Analyze(program)
	assert.Empty(t, errs)
}

func TestAnalyzeDetectsCallArityMismatch(t *testing.T) {
	program := ast.Program{Functions: []ast.FnDecl{
		{
			Name:   ident("add"),
			Params: []ast.Param{{Name: ident("a"), TypeName: typeTok("Int"), TypeNameOk: true}, {Name: ident("b"), TypeName: typeTok("Int"), TypeNameOk: true}},
			Body:   ast.BlockStmt{},
		},
		mainFn(false, "", nil, ast.BlockStmt{
			Statements: []ast.Stmt{
				ast.ExpressionStmt{Expression: ast.Call{Callee: ident("add"), Args: []ast.Expression{intLit(1)}}},
			},
		}),
	}}

	errs := New().Analyze(program)
	require.NotEmpty(t, errs)
}

func TestAnalyzeDetectsCallToUndefinedFunction(t *testing.T) {
	program := ast.Program{Functions: []ast.FnDecl{
		mainFn(false, "", nil, ast.BlockStmt{
			Statements: []ast.Stmt{
				ast.ExpressionStmt{Expression: ast.Call{Callee: ident("ghost"), Args: nil}},
			},
		}),
	}}

	errs := New().Analyze(program)
	require.NotEmpty(t, errs)
}

func TestAnalyzeAllowsRecursiveCall(t *testing.T) {
	program := ast.Program{Functions: []ast.FnDecl{
		{
			Name:       ident("fact"),
			Params:     []ast.Param{{Name: ident("n"), TypeName: typeTok("Int"), TypeNameOk: true}},
			HasReturn:  true,
			ReturnType: typeTok("Int"),
			Body: ast.BlockStmt{
				Tail: ast.Call{Callee: ident("fact"), Args: []ast.Expression{intLit(1)}},
			},
		},
		mainFn(true, "Int", nil, ast.BlockStmt{Tail: intLit(0)}),
	}}

	errs := New().Analyze(program)
	assert.Empty(t, errs)
}

func TestAnalyzeDetectsAdditionOperandTypeMismatch(t *testing.T) {
	program := ast.Program{Functions: []ast.FnDecl{
		mainFn(false, "", nil, ast.BlockStmt{
			Statements: []ast.Stmt{
				ast.ExpressionStmt{Expression: ast.Binary{
					Left:     ast.Literal{Value: true},
					Operator: token.CreateToken(token.ADD, 1, 1),
					Right:    ast.Literal{Value: int64(1)},
				}},
			},
		}),
	}}

	errs := New().Analyze(program)
	require.NotEmpty(t, errs)
}

func TestAnalyzeDetectsIfConditionMustBeBool(t *testing.T) {
	program := ast.Program{Functions: []ast.FnDecl{
		mainFn(false, "", nil, ast.BlockStmt{
			Statements: []ast.Stmt{
				ast.ExpressionStmt{Expression: ast.IfExpr{Condition: intLit(1), Then: ast.BlockStmt{}}},
			},
		}),
	}}

	errs := New().Analyze(program)
	require.NotEmpty(t, errs)
}

func TestAnalyzeIfExprWithMatchingArmsProducesValue(t *testing.T) {
	program := ast.Program{Functions: []ast.FnDecl{
		mainFn(true, "Int", nil, ast.BlockStmt{
			Tail: ast.IfExpr{
				Condition: ast.Literal{Value: true},
				Then:      ast.BlockStmt{Tail: intLit(1)},
				Else:      ast.BlockExpr{Block: ast.BlockStmt{Tail: intLit(0)}},
			},
		}),
	}}

	errs := New().Analyze(program)
	assert.Empty(t, errs)
}

func TestAnalyzeIfExprWithoutElseIsVoidAndRejectedAsValue(t *testing.T) {
	program := ast.Program{Functions: []ast.FnDecl{
		mainFn(true, "Int", nil, ast.BlockStmt{
			Tail: ast.IfExpr{
				Condition: ast.Literal{Value: true},
				Then:      ast.BlockStmt{Tail: intLit(1)},
			},
		}),
	}}

	errs := New().Analyze(program)
	require.NotEmpty(t, errs)
}

func TestAnalyzeIfExprWithMismatchedArmsIsVoidAndRejectedAsValue(t *testing.T) {
	program := ast.Program{Functions: []ast.FnDecl{
		mainFn(true, "Int", nil, ast.BlockStmt{
			Tail: ast.IfExpr{
				Condition: ast.Literal{Value: true},
				Then:      ast.BlockStmt{Tail: intLit(1)},
				Else:      ast.BlockExpr{Block: ast.BlockStmt{Tail: ast.Literal{Value: "nope"}}},
			},
		}),
	}}

	errs := New().Analyze(program)
	require.NotEmpty(t, errs)
}

func TestAnalyzeDetectsIntrinsicArityMismatch(t *testing.T) {
	program := ast.Program{Functions: []ast.FnDecl{
		mainFn(false, "", nil, ast.BlockStmt{
			Statements: []ast.Stmt{
				ast.ExpressionStmt{Expression: ast.Call{Callee: ident("len"), Args: nil}},
			},
		}),
	}}

	errs := New().Analyze(program)
	require.NotEmpty(t, errs)
}

func TestAnalyzeAllowsShadowingInNestedScope(t *testing.T) {
	program := ast.Program{Functions: []ast.FnDecl{
		mainFn(false, "", nil, ast.BlockStmt{
			Statements: []ast.Stmt{
				ast.VarStmt{Name: ident("x"), Initializer: intLit(1)},
				ast.BlockStmt{
					Statements: []ast.Stmt{
						ast.VarStmt{Name: ident("x"), Initializer: ast.Literal{Value: "shadowed"}},
					},
				},
			},
		}),
	}}

	errs := New().Analyze(program)
	assert.Empty(t, errs)
}
