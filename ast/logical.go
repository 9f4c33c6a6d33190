// logical.go contains the short-circuiting logical expression AST node (&&, ||).
// It is kept separate from Binary because its compilation emits jumps instead of an
// opcode, unlike every other binary operator.

package ast

import "neksis/token"

type Logical struct {
	Left     Expression
	Operator token.Token
	Right    Expression
}

func (logical Logical) Accept(v ExpressionVisitor) any {
	return v.VisitLogicalExpression(logical)
}
