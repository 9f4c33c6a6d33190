package parser

import (
	"encoding/json"
	"fmt"
	"os"

	"neksis/ast"
)

const (
	colorYellow = "\033[33m"
	colorReset  = "\033[0m"
)

// astPrinter implements the Visitor interfaces and builds a
// JSON-friendly representation of the AST using maps and slices.
// Each Visit method returns an object that can be marshaled to JSON.
type astPrinter struct{}

func (p astPrinter) VisitExpressionStmt(exprStmt ast.ExpressionStmt) any {
	return map[string]any{
		"type":       "ExpressionStmt",
		"expression": exprStmt.Expression.Accept(p),
	}
}

func (p astPrinter) VisitVarStmt(varStmt ast.VarStmt) any {
	return map[string]any{
		"type":        "VarStmt",
		"name":        varStmt.Name.Lexeme,
		"mutable":     varStmt.Mutable,
		"initializer": nilOrAccept(varStmt.Initializer, p),
	}
}

func (p astPrinter) VisitBlockStmt(blockStmt ast.BlockStmt) any {
	stmts := make([]any, 0, len(blockStmt.Statements))
	for _, stmt := range blockStmt.Statements {
		stmts = append(stmts, stmt.Accept(p))
	}
	return map[string]any{
		"type":       "BlockStmt",
		"statements": stmts,
		"tail":       nilOrAccept(blockStmt.Tail, p),
	}
}

func (p astPrinter) VisitWhileStmt(stmt ast.WhileStmt) any {
	return map[string]any{
		"type":      "WhileStmt",
		"condition": stmt.Condition.Accept(p),
		"body":      stmt.Body.Accept(p),
	}
}

func (p astPrinter) VisitReturnStmt(stmt ast.ReturnStmt) any {
	return map[string]any{
		"type":  "ReturnStmt",
		"value": nilOrAccept(stmt.Value, p),
	}
}

func (p astPrinter) VisitLogicalExpression(expr ast.Logical) any {
	return map[string]any{
		"type":     "Logical",
		"operator": expr.Operator.Lexeme,
		"left":     expr.Left.Accept(p),
		"right":    expr.Right.Accept(p),
	}
}

func (p astPrinter) VisitAssignExpression(assign ast.Assign) any {
	return map[string]any{
		"type":  "Assign",
		"name":  assign.Name.Lexeme,
		"value": assign.Value.Accept(p),
	}
}

func (p astPrinter) VisitVariableExpression(variable ast.Variable) any {
	return map[string]any{
		"type": "Variable",
		"name": variable.Name.Lexeme,
	}
}

func (p astPrinter) VisitCall(call ast.Call) any {
	args := make([]any, 0, len(call.Args))
	for _, arg := range call.Args {
		args = append(args, arg.Accept(p))
	}
	return map[string]any{
		"type":   "Call",
		"callee": call.Callee.Lexeme,
		"args":   args,
	}
}

func (p astPrinter) VisitIfExpr(expr ast.IfExpr) any {
	var elseVal any
	if expr.Else != nil {
		elseVal = expr.Else.Accept(p)
	}
	return map[string]any{
		"type":      "IfExpr",
		"condition": expr.Condition.Accept(p),
		"then":      expr.Then.Accept(p),
		"else":      elseVal,
	}
}

func (p astPrinter) VisitBlockExpr(expr ast.BlockExpr) any {
	return expr.Block.Accept(p)
}

func (p astPrinter) VisitBinary(b ast.Binary) any {
	return map[string]any{
		"type":     "Binary",
		"operator": b.Operator.Lexeme,
		"left":     b.Left.Accept(p),
		"right":    b.Right.Accept(p),
	}
}

func (p astPrinter) VisitUnary(u ast.Unary) any {
	return map[string]any{
		"type":     "Unary",
		"operator": u.Operator.Lexeme,
		"right":    u.Right.Accept(p),
	}
}

func (p astPrinter) VisitLiteral(l ast.Literal) any {
	// literals are terminal values and can be used directly in JSON
	return l.Value
}

func (p astPrinter) VisitGrouping(g ast.Grouping) any {
	return map[string]any{
		"type":       "Grouping",
		"expression": g.Expression.Accept(p),
	}
}

// nilOrAccept returns nil if expr is nil, otherwise it continues
// processing the expression and returns the result.
func nilOrAccept(expr ast.Expression, p ast.ExpressionVisitor) any {
	if expr == nil {
		return nil
	}
	return expr.Accept(p)
}

func printFnDecl(fn ast.FnDecl) any {
	printer := astPrinter{}
	params := make([]any, 0, len(fn.Params))
	for _, param := range fn.Params {
		params = append(params, map[string]any{
			"name": param.Name.Lexeme,
			"type": param.TypeName.Lexeme,
		})
	}
	return map[string]any{
		"type":   "FnDecl",
		"name":   fn.Name.Lexeme,
		"params": params,
		"return": fn.ReturnType.Lexeme,
		"body":   fn.Body.Accept(printer),
	}
}

// PrintASTJSON converts a parsed Program into a prettified JSON string.
func PrintASTJSON(program ast.Program) (string, error) {
	out := make([]any, 0, len(program.Functions))
	for _, fn := range program.Functions {
		out = append(out, printFnDecl(fn))
	}
	bytes, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return "", err
	}

	jsonStr := string(bytes)
	fmt.Println(colorYellow + "----- AST JSON -----")
	fmt.Println(colorYellow + jsonStr)
	fmt.Println(colorYellow + "-----" + colorReset)
	fmt.Println("")
	return jsonStr, nil
}

// WriteASTJSONToFile writes the prettified AST JSON for a Program to the given file path.
func WriteASTJSONToFile(program ast.Program, path string) error {
	s, err := PrintASTJSON(program)
	if err != nil {
		return err
	}
	fDescriptor, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("error creating AST file: %s", err.Error())
	}
	defer fDescriptor.Close()

	_, writeErr := fDescriptor.Write([]byte(s))
	if writeErr != nil {
		return fmt.Errorf("error writing AST to file: %s", writeErr.Error())
	}
	return nil
}
