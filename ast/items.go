// items.go contains the top-level item AST nodes. An Item is not an Expression or a Stmt:
// per the grammar, "Program := { Item }" and "Item := FnDecl" sit above statements, so
// items are walked directly by the semantic analyzer and bytecode compiler rather than
// through the Expression/Stmt visitor pattern.

package ast

import "neksis/token"

// Param is one entry of a function's ordered parameter list.
type Param struct {
	Name       token.Token
	TypeName   token.Token
	TypeNameOk bool
}

// FnDecl represents a function declaration: its name, ordered parameters, declared
// return type, and body block.
type FnDecl struct {
	Name       token.Token
	Params     []Param
	ReturnType token.Token
	HasReturn  bool
	Body       BlockStmt
}

// Program is the root AST node: an ordered list of function declarations.
// Execution begins by calling the function named "main".
type Program struct {
	Functions []FnDecl
}
