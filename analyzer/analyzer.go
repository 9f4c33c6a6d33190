// Package analyzer implements Neksis's semantic analyzer: the pass between
// parsing and bytecode compilation that resolves every identifier, assigns a
// type to every expression, checks type compatibility at every use, and
// populates a function table consulted for call arity and return typing.
package analyzer

import (
	"fmt"

	"neksis/ast"
	"neksis/intrinsics"
	"neksis/token"
)

// binding is one name's entry in a lexical scope: its type, whether it was
// declared `mut` (and is therefore a legal assignment target), and whether
// it has been initialized yet (a `let` without an initializer starts false).
type binding struct {
	typ         ast.Type
	mutable     bool
	initialized bool
}

// funcSig is a function's signature as recorded by the analyzer's first
// pass, consulted by every call site regardless of declaration order.
type funcSig struct {
	params []ast.Type
	ret    ast.Type
}

// Analyzer walks a parsed ast.Program, accumulating SemanticErrors rather
// than stopping at the first one, mirroring the lexer and parser's
// accumulate-and-continue error policy.
type Analyzer struct {
	functions     map[string]funcSig
	scopes        []map[string]*binding
	currentReturn ast.Type
	errors        []error
}

// New creates an Analyzer ready to run Analyze.
func New() *Analyzer {
	return &Analyzer{functions: make(map[string]funcSig)}
}

// Analyze runs both passes over program: first gathering every function's
// signature (so forward and recursive references resolve), then walking
// each body with full lexical-scope name resolution and type checking. It
// returns every diagnostic collected; an empty result means the program is
// well-typed and safe to hand to the bytecode compiler.
func (a *Analyzer) Analyze(program ast.Program) []error {
	for _, fn := range program.Functions {
		name := fn.Name.Lexeme
		if _, exists := a.functions[name]; exists {
			a.errorAt(fn.Name, "function '%s' is already defined", name)
			continue
		}

		params := make([]ast.Type, len(fn.Params))
		for i, p := range fn.Params {
			t, ok := ast.TypeFromName(p.TypeName.Lexeme)
			if !ok {
				a.errorAt(p.TypeName, "unknown type '%s'", p.TypeName.Lexeme)
				t = ast.Unknown
			}
			params[i] = t
		}

		ret := ast.Void
		if fn.HasReturn {
			t, ok := ast.TypeFromName(fn.ReturnType.Lexeme)
			if !ok {
				a.errorAt(fn.ReturnType, "unknown type '%s'", fn.ReturnType.Lexeme)
				t = ast.Unknown
			}
			ret = t
		}

		a.functions[name] = funcSig{params: params, ret: ret}
	}

	if _, ok := a.functions["main"]; !ok {
		a.errors = append(a.errors, SemanticError{Message: "program must declare a 'main' function"})
	}

	for _, fn := range program.Functions {
		a.analyzeFunction(fn)
	}

	return a.errors
}

func (a *Analyzer) analyzeFunction(fn ast.FnDecl) {
	sig, ok := a.functions[fn.Name.Lexeme]
	if !ok {
		// Only reachable if the first pass rejected this declaration as a
		// duplicate; skip the body rather than re-report the same error.
		return
	}

	a.currentReturn = sig.ret
	a.scopes = []map[string]*binding{{}}

	for i, p := range fn.Params {
		a.declare(p.Name, sig.params[i], false, true)
	}

	for _, stmt := range fn.Body.Statements {
		a.analyzeStmt(stmt)
	}
	if fn.Body.Tail != nil {
		tailType := a.inferExpr(fn.Body.Tail)
		if tailType.Kind != ast.KindUnknown && sig.ret.Kind != ast.KindUnknown && !tailType.Equal(sig.ret) {
			a.errorAt(fn.Name, "function '%s' returns %s but its body's value is %s", fn.Name.Lexeme, sig.ret.String(), tailType.String())
		}
	} else if sig.ret.Kind != ast.KindVoid && !blockGuaranteesReturn(fn.Body) {
		a.errorAt(fn.Name, "function '%s' does not return a value on all paths", fn.Name.Lexeme)
	}
}

// blockGuaranteesReturn is a structural (not full data-flow) check that
// every path through block ends in a return or a tail expression.
func blockGuaranteesReturn(block ast.BlockStmt) bool {
	if block.Tail != nil {
		return true
	}
	if len(block.Statements) == 0 {
		return false
	}
	return stmtGuaranteesReturn(block.Statements[len(block.Statements)-1])
}

func stmtGuaranteesReturn(stmt ast.Stmt) bool {
	switch s := stmt.(type) {
	case ast.ReturnStmt:
		return true
	case ast.ExpressionStmt:
		return exprGuaranteesReturn(s.Expression)
	case ast.BlockStmt:
		return blockGuaranteesReturn(s)
	default:
		return false
	}
}

// exprGuaranteesReturn mirrors stmtGuaranteesReturn for an if-expression used
// in statement position: it guarantees a return only when it has an else arm
// and both arms guarantee one. Else is either a nested IfExpr (an "else if")
// or a BlockExpr (a final else block).
func exprGuaranteesReturn(expr ast.Expression) bool {
	switch e := expr.(type) {
	case ast.IfExpr:
		if e.Else == nil {
			return false
		}
		return blockGuaranteesReturn(e.Then) && exprGuaranteesReturn(e.Else)
	case ast.BlockExpr:
		return blockGuaranteesReturn(e.Block)
	default:
		return false
	}
}

func (a *Analyzer) analyzeStmt(stmt ast.Stmt) {
	switch s := stmt.(type) {
	case ast.VarStmt:
		a.analyzeVarStmt(s)
	case ast.ExpressionStmt:
		a.inferExpr(s.Expression)
	case ast.BlockStmt:
		a.analyzeBlockValue(s)
	case ast.WhileStmt:
		a.analyzeWhileStmt(s)
	case ast.ReturnStmt:
		a.analyzeReturnStmt(s)
	}
}

func (a *Analyzer) analyzeVarStmt(s ast.VarStmt) {
	initType := a.inferExpr(s.Initializer)
	declared := initType

	if s.TypeNameOk {
		t, ok := ast.TypeFromName(s.TypeName.Lexeme)
		if !ok {
			a.errorAt(s.TypeName, "unknown type '%s'", s.TypeName.Lexeme)
			t = ast.Unknown
		}
		if initType.Kind != ast.KindUnknown && t.Kind != ast.KindUnknown && !initType.Equal(t) {
			a.errorAt(s.Name, "type mismatch in 'let %s': expected %s, got %s", s.Name.Lexeme, t.String(), initType.String())
		}
		declared = t
	}

	a.declare(s.Name, declared, s.Mutable, s.Initializer != nil)
}

// analyzeBlockValue analyzes block in its own scope and returns the type of
// its tail expression, or Void if it has none. Used both for a block in
// statement position and for an if-expression's arms.
func (a *Analyzer) analyzeBlockValue(block ast.BlockStmt) ast.Type {
	a.pushScope()
	for _, inner := range block.Statements {
		a.analyzeStmt(inner)
	}
	t := ast.Void
	if block.Tail != nil {
		t = a.inferExpr(block.Tail)
	}
	a.popScope()
	return t
}

// inferIfExpr type-checks an if-expression's condition and both arms. Per the
// language's typing rule, the expression only carries a value when an else
// arm is present and its type exactly matches the then arm's; otherwise the
// if is Void, usable only as a statement.
func (a *Analyzer) inferIfExpr(e ast.IfExpr) ast.Type {
	condType := a.inferExpr(e.Condition)
	if condType.Kind != ast.KindUnknown && !condType.Equal(ast.Bool) {
		a.errors = append(a.errors, SemanticError{Message: fmt.Sprintf("if condition must be Bool, got %s", condType.String())})
	}

	thenType := a.analyzeBlockValue(e.Then)
	if e.Else == nil {
		return ast.Void
	}
	elseType := a.inferExpr(e.Else)

	if thenType.Kind != ast.KindUnknown && elseType.Kind != ast.KindUnknown && thenType.Equal(elseType) {
		return thenType
	}
	return ast.Void
}

func (a *Analyzer) analyzeWhileStmt(s ast.WhileStmt) {
	condType := a.inferExpr(s.Condition)
	if condType.Kind != ast.KindUnknown && !condType.Equal(ast.Bool) {
		a.errors = append(a.errors, SemanticError{Message: fmt.Sprintf("while condition must be Bool, got %s", condType.String())})
	}
	a.analyzeStmt(s.Body)
}

func (a *Analyzer) analyzeReturnStmt(s ast.ReturnStmt) {
	if s.Value != nil {
		t := a.inferExpr(s.Value)
		if t.Kind != ast.KindUnknown && a.currentReturn.Kind != ast.KindUnknown && !t.Equal(a.currentReturn) {
			a.errorAt(s.Keyword, "return type mismatch: expected %s, got %s", a.currentReturn.String(), t.String())
		}
	} else if a.currentReturn.Kind != ast.KindVoid {
		a.errorAt(s.Keyword, "bare 'return' is only allowed in a function returning Void")
	}
}

// inferExpr assigns a type to expr, recording any diagnostic along the way,
// and returns ast.Unknown for anything it could not type so callers do not
// cascade the same error.
func (a *Analyzer) inferExpr(expr ast.Expression) ast.Type {
	switch e := expr.(type) {
	case ast.Literal:
		return literalType(e.Value)
	case ast.Grouping:
		return a.inferExpr(e.Expression)
	case ast.Variable:
		b, ok := a.resolve(e.Name.Lexeme)
		if !ok {
			a.errorAt(e.Name, "undefined identifier '%s'", e.Name.Lexeme)
			return ast.Unknown
		}
		if !b.initialized {
			a.errorAt(e.Name, "cannot access uninitialized variable '%s'", e.Name.Lexeme)
		}
		return b.typ
	case ast.Assign:
		return a.inferAssign(e)
	case ast.Unary:
		return a.inferUnary(e)
	case ast.Binary:
		return a.inferBinary(e)
	case ast.Logical:
		return a.inferLogical(e)
	case ast.Call:
		return a.inferCall(e)
	case ast.IfExpr:
		return a.inferIfExpr(e)
	case ast.BlockExpr:
		return a.analyzeBlockValue(e.Block)
	default:
		return ast.Unknown
	}
}

func literalType(value any) ast.Type {
	switch value.(type) {
	case int64:
		return ast.Int
	case float64:
		return ast.Float
	case bool:
		return ast.Bool
	case string:
		return ast.String
	default:
		return ast.Unknown
	}
}

func (a *Analyzer) inferAssign(e ast.Assign) ast.Type {
	b, ok := a.resolve(e.Name.Lexeme)
	valType := a.inferExpr(e.Value)
	if !ok {
		a.errorAt(e.Name, "undefined identifier '%s'", e.Name.Lexeme)
		return ast.Void
	}
	if !b.mutable {
		a.errorAt(e.Name, "cannot assign to immutable binding '%s'", e.Name.Lexeme)
	}
	if valType.Kind != ast.KindUnknown && b.typ.Kind != ast.KindUnknown && !valType.Equal(b.typ) {
		a.errorAt(e.Name, "type mismatch assigning to '%s': expected %s, got %s", e.Name.Lexeme, b.typ.String(), valType.String())
	}
	b.initialized = true
	// Assignment is a statement-level construct with no value of its own.
	return ast.Void
}

func (a *Analyzer) inferUnary(e ast.Unary) ast.Type {
	rt := a.inferExpr(e.Right)
	switch e.Operator.TokenType {
	case token.SUB:
		if rt.Kind != ast.KindUnknown && rt.Kind != ast.KindInt && rt.Kind != ast.KindFloat {
			a.errorAt(e.Operator, "unary '-' requires an Int or Float operand, got %s", rt.String())
			return ast.Unknown
		}
		return rt
	case token.BANG:
		if rt.Kind != ast.KindUnknown && rt.Kind != ast.KindBool {
			a.errorAt(e.Operator, "unary '!' requires a Bool operand, got %s", rt.String())
			return ast.Unknown
		}
		return ast.Bool
	}
	return ast.Unknown
}

func isPrimitive(t ast.Type) bool {
	switch t.Kind {
	case ast.KindInt, ast.KindFloat, ast.KindBool, ast.KindString:
		return true
	default:
		return false
	}
}

func (a *Analyzer) inferBinary(b ast.Binary) ast.Type {
	lt := a.inferExpr(b.Left)
	rt := a.inferExpr(b.Right)

	switch b.Operator.TokenType {
	case token.ADD, token.SUB, token.MULT, token.DIV, token.PERCENT:
		if lt.Kind == ast.KindUnknown || rt.Kind == ast.KindUnknown {
			return ast.Unknown
		}
		if b.Operator.TokenType == token.ADD && (lt.Kind == ast.KindString || rt.Kind == ast.KindString) {
			if lt.Kind == ast.KindString && isPrimitive(rt) {
				return ast.String
			}
			if rt.Kind == ast.KindString && isPrimitive(lt) {
				return ast.String
			}
			a.errorAt(b.Operator, "cannot concatenate %s and %s", lt.String(), rt.String())
			return ast.Unknown
		}
		if !lt.Equal(rt) {
			a.errorAt(b.Operator, "operand type mismatch: %s vs %s", lt.String(), rt.String())
			return ast.Unknown
		}
		if lt.Kind != ast.KindInt && lt.Kind != ast.KindFloat {
			a.errorAt(b.Operator, "operator '%s' requires Int or Float operands, got %s", b.Operator.Lexeme, lt.String())
			return ast.Unknown
		}
		if b.Operator.TokenType == token.PERCENT && lt.Kind == ast.KindFloat {
			a.errorAt(b.Operator, "modulo is not defined for Float operands")
			return ast.Unknown
		}
		return lt
	case token.LARGER, token.LARGER_EQUAL, token.LESS, token.LESS_EQUAL:
		if lt.Kind != ast.KindUnknown && rt.Kind != ast.KindUnknown {
			if !lt.Equal(rt) || (lt.Kind != ast.KindInt && lt.Kind != ast.KindFloat) {
				a.errorAt(b.Operator, "comparison requires matching Int or Float operands, got %s and %s", lt.String(), rt.String())
			}
		}
		return ast.Bool
	case token.EQUAL_EQUAL, token.NOT_EQUAL:
		if lt.Kind != ast.KindUnknown && rt.Kind != ast.KindUnknown && !lt.Equal(rt) {
			a.errorAt(b.Operator, "equality requires matching operand types, got %s and %s", lt.String(), rt.String())
		}
		return ast.Bool
	}
	return ast.Unknown
}

func (a *Analyzer) inferLogical(l ast.Logical) ast.Type {
	lt := a.inferExpr(l.Left)
	rt := a.inferExpr(l.Right)
	if lt.Kind != ast.KindUnknown && !lt.Equal(ast.Bool) {
		a.errorAt(l.Operator, "'%s' requires Bool operands, got %s on the left", l.Operator.Lexeme, lt.String())
	}
	if rt.Kind != ast.KindUnknown && !rt.Equal(ast.Bool) {
		a.errorAt(l.Operator, "'%s' requires Bool operands, got %s on the right", l.Operator.Lexeme, rt.String())
	}
	return ast.Bool
}

func (a *Analyzer) inferCall(call ast.Call) ast.Type {
	name := call.Callee.Lexeme

	if intr, ok := intrinsics.ByName[name]; ok {
		return a.inferIntrinsicCall(call, intr)
	}

	sig, ok := a.functions[name]
	if !ok {
		a.errorAt(call.Callee, "call to undefined function '%s'", name)
		for _, arg := range call.Args {
			a.inferExpr(arg)
		}
		return ast.Unknown
	}

	if len(call.Args) != len(sig.params) {
		a.errorAt(call.Callee, "function '%s' expects %d argument(s), got %d", name, len(sig.params), len(call.Args))
	}
	for i, arg := range call.Args {
		t := a.inferExpr(arg)
		if i >= len(sig.params) {
			continue
		}
		if t.Kind != ast.KindUnknown && sig.params[i].Kind != ast.KindUnknown && !t.Equal(sig.params[i]) {
			a.errorAt(call.Callee, "argument %d to '%s': expected %s, got %s", i+1, name, sig.params[i].String(), t.String())
		}
	}
	return sig.ret
}

func (a *Analyzer) inferIntrinsicCall(call ast.Call, intr intrinsics.Intrinsic) ast.Type {
	if len(call.Args) != intr.Arity {
		a.errorAt(call.Callee, "intrinsic '%s' expects %d argument(s), got %d", intr.Name, intr.Arity, len(call.Args))
	}

	argTypes := make([]ast.Type, len(call.Args))
	for i, arg := range call.Args {
		argTypes[i] = a.inferExpr(arg)
	}

	switch intr.Name {
	case "print", "println":
		if len(argTypes) > 0 && argTypes[0].Kind != ast.KindUnknown && argTypes[0].Kind != ast.KindString {
			a.errorAt(call.Callee, "'%s' expects a String argument, got %s", intr.Name, argTypes[0].String())
		}
		return ast.Void
	case "read_line":
		return ast.String
	case "abs":
		if len(argTypes) == 0 {
			return ast.Unknown
		}
		if argTypes[0].Kind != ast.KindUnknown && argTypes[0].Kind != ast.KindInt && argTypes[0].Kind != ast.KindFloat {
			a.errorAt(call.Callee, "'abs' expects an Int or Float argument, got %s", argTypes[0].String())
			return ast.Unknown
		}
		return argTypes[0]
	case "len":
		if len(argTypes) > 0 && argTypes[0].Kind != ast.KindUnknown && argTypes[0].Kind != ast.KindString {
			a.errorAt(call.Callee, "'len' expects a String argument, got %s", argTypes[0].String())
		}
		return ast.Int
	case "to_string":
		if len(argTypes) > 0 && argTypes[0].Kind != ast.KindUnknown && !isPrimitive(argTypes[0]) {
			a.errorAt(call.Callee, "'to_string' expects a primitive argument, got %s", argTypes[0].String())
		}
		return ast.String
	}
	return ast.Unknown
}

func (a *Analyzer) pushScope() {
	a.scopes = append(a.scopes, map[string]*binding{})
}

func (a *Analyzer) popScope() {
	a.scopes = a.scopes[:len(a.scopes)-1]
}

// declare binds name in the innermost scope, reporting a duplicate
// declaration if one already exists at that same scope depth. Shadowing a
// binding from an enclosing scope is allowed.
func (a *Analyzer) declare(nameTok token.Token, typ ast.Type, mutable bool, initialized bool) {
	current := a.scopes[len(a.scopes)-1]
	if _, exists := current[nameTok.Lexeme]; exists {
		a.errorAt(nameTok, "'%s' is already declared in this scope", nameTok.Lexeme)
		return
	}
	current[nameTok.Lexeme] = &binding{typ: typ, mutable: mutable, initialized: initialized}
}

// resolve looks up name starting from the innermost scope outward.
func (a *Analyzer) resolve(name string) (*binding, bool) {
	for i := len(a.scopes) - 1; i >= 0; i-- {
		if b, ok := a.scopes[i][name]; ok {
			return b, true
		}
	}
	return nil, false
}

func (a *Analyzer) errorAt(tok token.Token, format string, args ...any) {
	a.errors = append(a.errors, SemanticError{
		Line:    tok.Line,
		Column:  tok.Column,
		Message: fmt.Sprintf(format, args...),
	})
}
