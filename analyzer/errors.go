package analyzer

import "fmt"

// SemanticError is one diagnostic produced while walking the AST: an
// undefined identifier, a type mismatch, an arity mismatch, an assignment to
// an immutable binding, or any other failure mode listed in the analyzer's
// responsibilities. Analysis continues after recording one, assigning
// ast.Unknown to the offending expression so the error does not cascade.
type SemanticError struct {
	Line    int32
	Column  int
	Message string
}

func (e SemanticError) Error() string {
	return fmt.Sprintf("💥 Neksis Semantic error:\nline:%d, column:%d - %s", e.Line, e.Column, e.Message)
}
