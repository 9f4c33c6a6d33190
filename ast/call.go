// call.go contains the function-call expression AST node.

package ast

import "neksis/token"

// Call represents a function call expression, e.g. "fact(n - 1)".
// Callee is the IDENTIFIER token naming the function; Neksis has no
// first-class function values, so calls are always by name.
type Call struct {
	Callee token.Token
	Args   []Expression
}

func (call Call) Accept(v ExpressionVisitor) any {
	return v.VisitCall(call)
}
