package compiler

// This file implements the ASTCompiler, which compiles the abstract syntax tree (AST) directly to bytecode.

import (
	"encoding/binary"
	"fmt"
	"os"
	"strings"

	"neksis/ast"
	"neksis/intrinsics"
	"neksis/token"
)

// Local represents a local variable in the compiler.
type Local struct {
	// The variable's name
	name string
	// The variable's depth in the scope stack. Used to determine when variables go out of scope.
	depth uint16
	// Whether the variable has been initialized. Used to prevent accessing uninitialized variables.
	initialized bool
	// The slot index where the variable is stored in the current frame's Locals array.
	slot uint16
}

// funcSig is the compiler's own minimal view of a function's signature,
// read directly off the AST rather than shared with the semantic analyzer.
// ReturnsVoid is the only fact the compiler needs beyond arity: whether a
// bare call to this function, used as a statement, leaves a value to pop.
type funcSig struct {
	numParams   int
	returnsVoid bool
}

// ASTCompiler is a visitor that compiles AST nodes directly to bytecode.
// It implements both ast.ExpressionVisitor and ast.StmtVisitor interfaces
// to traverse and compile the abstract syntax tree to bytecode.
type ASTCompiler struct {
	bytecode Bytecode

	// funcIndex maps a function's name to its index in bytecode.Functions.
	// It is fully populated before any function body is compiled, which is
	// what lets OP_CALL reference forward-declared and recursive functions.
	funcIndex map[string]int
	sigs      map[string]funcSig

	// current is the index, within bytecode.Functions, of the function
	// currently being compiled; emit appends to its Instructions.
	current int

	// locals is a stack of local variables in scope for the function
	// currently being compiled, ordered by declaration. Reset per function.
	locals []Local
	// scopeDepth is the current nesting depth of lexical blocks within the
	// function currently being compiled.
	scopeDepth uint16
	// highWaterMark tracks the largest len(locals) reached while compiling
	// the current function, which becomes its CompiledFunction.NumLocals.
	highWaterMark int
}

// NewASTCompiler creates a new AST-to-bytecode compiler.
func NewASTCompiler() *ASTCompiler {
	return &ASTCompiler{
		bytecode: Bytecode{
			ConstantsPool: []any{},
			Functions:     []CompiledFunction{},
		},
		funcIndex: make(map[string]int),
		sigs:      make(map[string]funcSig),
	}
}

// DumpBytecode writes the compiled bytecode for every function to a file with
// a `.nic` extension, each function's instructions encoded as hexadecimal so
// it can be viewed in a text editor.
func (ac *ASTCompiler) DumpBytecode(filePath string) error {
	return DumpBytecode(ac.bytecode, filePath)
}

// DiassembleBytecode disassembles every compiled function to a human readable
// format and optionally saves it to disk.
func (ac *ASTCompiler) DiassembleBytecode(saveToDisk bool, filePath string) (string, error) {
	return DiassembleBytecode(ac.bytecode, saveToDisk, filePath)
}

// DumpBytecode writes bytecode's compiled functions to a file with a `.nic`
// extension, each function's instructions encoded as hexadecimal so it can
// be viewed in a text editor.
func DumpBytecode(bytecode Bytecode, filePath string) error {
	if filePath == "" {
		filePath = "bytecode.nic"
	} else {
		filePath = filePath + ".nic"
	}
	fDescriptor, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("error creating neksis bytecode file: %s", err.Error())
	}
	defer fDescriptor.Close()

	var builder strings.Builder
	for _, fn := range bytecode.Functions {
		fmt.Fprintf(&builder, "%s: %x\n", fn.Name, fn.Instructions)
	}
	_, err = fDescriptor.WriteString(builder.String())
	return err
}

// DiassembleBytecode disassembles every function in bytecode to a human
// readable format and optionally saves it to disk.
func DiassembleBytecode(bytecode Bytecode, saveToDisk bool, filePath string) (string, error) {
	var builder strings.Builder
	for i, fn := range bytecode.Functions {
		entryMark := ""
		if i == bytecode.EntryIndex {
			entryMark = " (entry)"
		}
		fmt.Fprintf(&builder, "fn %s%s:\n", fn.Name, entryMark)
		dia, err := DisassembleAll(fn.Instructions)
		if err != nil {
			return "", err
		}
		builder.WriteString(dia)
	}

	diassembledBytecode := builder.String()
	if saveToDisk {
		if filePath == "" {
			filePath = "bytecode.dnic"
		} else {
			filePath = filePath + ".dnic"
		}
		fDescriptor, err := os.Create(filePath)
		if err != nil {
			return "", fmt.Errorf("error creating diassembled bytecode file: %s", err.Error())
		}
		defer fDescriptor.Close()
		fDescriptor.WriteString(diassembledBytecode)
	}
	return diassembledBytecode, nil
}

// CompileProgram compiles every function declared in program into a single
// Bytecode. Function signatures are registered in a first pass, before any
// body is lowered, so a call to a function declared later in the file (or to
// the enclosing function itself) resolves to a valid table index.
func (ac *ASTCompiler) CompileProgram(program ast.Program) (b Bytecode, err error) {
	defer func() {
		if r := recover(); r != nil {
			switch v := r.(type) {
			case SemanticError:
				err = v
			case DeveloperError:
				err = v
			default:
				panic(r)
			}
		}
	}()

	for i, fn := range program.Functions {
		name := fn.Name.Lexeme
		if _, exists := ac.funcIndex[name]; exists {
			panic(SemanticError{Message: fmt.Sprintf("function '%s' is already defined", name)})
		}
		ac.funcIndex[name] = i
		ac.sigs[name] = funcSig{numParams: len(fn.Params), returnsVoid: !fn.HasReturn}
		ac.bytecode.Functions = append(ac.bytecode.Functions, CompiledFunction{
			Name:      name,
			NumParams: len(fn.Params),
		})
	}

	entryIndex, ok := ac.funcIndex["main"]
	if !ok {
		panic(DeveloperError{Message: "program has no 'main' function"})
	}
	ac.bytecode.EntryIndex = entryIndex

	for i, fn := range program.Functions {
		ac.compileFunction(fn, i)
	}

	return ac.bytecode, nil
}

// compileFunction lowers one FnDecl's body into bytecode.Functions[index]'s
// Instructions. Parameters occupy the first NumParams local slots, declared
// and marked initialized before the body is compiled.
func (ac *ASTCompiler) compileFunction(fn ast.FnDecl, index int) {
	ac.current = index
	ac.locals = ac.locals[:0]
	ac.scopeDepth = 0
	ac.highWaterMark = 0

	for _, param := range fn.Params {
		ac.declareLocal(param.Name.Lexeme)
		ac.defineLocal()
	}

	for _, stmt := range fn.Body.Statements {
		stmt.Accept(ac)
	}

	if fn.Body.Tail != nil && fn.HasReturn {
		fn.Body.Tail.Accept(ac)
		ac.emit(OP_RETURN)
	} else {
		// A Void function's tail is compiled for effect only, so the
		// caller's stack receives nothing.
		if fn.Body.Tail != nil {
			ac.VisitExpressionStmt(ast.ExpressionStmt{Expression: fn.Body.Tail})
		}
		ac.emit(OP_RETURN_VOID)
	}

	ac.bytecode.Functions[index].NumLocals = ac.highWaterMark
}

// VisitBinary handles binary expressions (arithmetic, comparison, equality).
func (ac *ASTCompiler) VisitBinary(binary ast.Binary) any {
	// Left expression is compiled first to ensure correct evaluation order.
	binary.Left.Accept(ac)
	binary.Right.Accept(ac)

	switch binary.Operator.TokenType {
	case token.ADD:
		ac.emit(OP_ADD)
	case token.SUB:
		ac.emit(OP_SUBTRACT)
	case token.MULT:
		ac.emit(OP_MULTIPLY)
	case token.DIV:
		ac.emit(OP_DIVIDE)
	case token.PERCENT:
		ac.emit(OP_MODULO)
	case token.EQUAL_EQUAL:
		ac.emit(OP_EQUALITY)
	case token.LARGER:
		ac.emit(OP_LARGER)
	case token.LESS:
		ac.emit(OP_LESS)
	case token.LESS_EQUAL:
		ac.emit(OP_LESS_EQUAL)
	case token.LARGER_EQUAL:
		ac.emit(OP_LARGER_EQUAL)
	case token.NOT_EQUAL:
		ac.emit(OP_NOT_EQUAL)
	}
	return nil
}

// VisitUnary handles unary expressions (operators: -, !).
func (ac *ASTCompiler) VisitUnary(unary ast.Unary) any {
	unary.Right.Accept(ac)

	switch unary.Operator.TokenType {
	case token.SUB:
		ac.emit(OP_NEGATE)
	case token.BANG:
		ac.emit(OP_NOT)
	}
	return nil
}

// VisitLiteral handles literal values (numbers, strings, booleans).
// Adds the literal value to the constants pool.
func (ac *ASTCompiler) VisitLiteral(literal ast.Literal) any {
	ac.addConstant(literal.Value)
	return nil
}

// VisitGrouping handles parenthesized expressions.
func (ac *ASTCompiler) VisitGrouping(grouping ast.Grouping) any {
	grouping.Expression.Accept(ac)
	return nil
}

// VisitVariableExpression compiles variable access, emitting OP_GET_LOCAL
// with the variable's frame slot as the operand.
func (ac *ASTCompiler) VisitVariableExpression(variable ast.Variable) any {
	identifier := variable.Name.Lexeme

	slotIndex := ac.resolveLocal(identifier)
	if slotIndex == -1 {
		panic(SemanticError{Message: fmt.Sprintf("name '%s' is not defined", identifier)})
	}
	if !ac.locals[slotIndex].initialized {
		panic(SemanticError{Message: fmt.Sprintf("cannot access uninitialized variable '%s'", identifier)})
	}
	ac.emit(OP_GET_LOCAL, slotIndex)
	return nil
}

// VisitAssignExpression compiles an assignment expression. The right-hand
// side is compiled first, then stored into the target's frame slot via
// OP_SET_LOCAL. Assignment is a statement-level construct in Neksis (it
// never nests inside a larger expression), so unlike every other Expression
// visitor method, this one pushes nothing back onto the stack.
func (ac *ASTCompiler) VisitAssignExpression(assign ast.Assign) any {
	name := assign.Name.Lexeme

	assign.Value.Accept(ac)

	slotIndex := ac.resolveLocal(name)
	if slotIndex == -1 {
		panic(SemanticError{Message: fmt.Sprintf("name '%s' is not defined", name)})
	}
	ac.locals[slotIndex].initialized = true
	ac.emit(OP_SET_LOCAL, slotIndex)
	return nil
}

// VisitVarStmt handles a `let` declaration: the initializer is compiled
// first, then bound to a freshly declared local slot via OP_DEFINE_LOCAL.
func (ac *ASTCompiler) VisitVarStmt(varStmt ast.VarStmt) any {
	variableName := varStmt.Name.Lexeme

	if varStmt.Initializer != nil {
		varStmt.Initializer.Accept(ac)
	} else {
		ac.addConstant(nil)
	}

	ac.declareLocal(variableName)
	slot := ac.locals[len(ac.locals)-1].slot
	ac.emit(OP_DEFINE_LOCAL, int(slot))
	ac.locals[len(ac.locals)-1].initialized = true
	return nil
}

// VisitLogicalExpression compiles && and || by emitting jumps that implement
// short-circuiting directly; there is no dedicated AND/OR opcode.
func (ac *ASTCompiler) VisitLogicalExpression(logical ast.Logical) any {
	logical.Left.Accept(ac)

	switch logical.Operator.TokenType {
	case token.OR:
		// If the left operand is truthy, push true and skip the right operand
		// entirely. OP_JUMP_IF_FALSE pops the left operand either way.
		jumpIfFalsePos := ac.emitPlaceholderJump(OP_JUMP_IF_FALSE)
		ac.emit(OP_TRUE)
		jumpEndPos := ac.emitPlaceholderJump(OP_JUMP)

		ac.patchJump(jumpIfFalsePos, ac.here())
		logical.Right.Accept(ac)

		ac.patchJump(jumpEndPos, ac.here())
	case token.AND:
		// If the left operand is falsy, skip the right operand entirely and
		// push false. OP_JUMP_IF_FALSE pops the left operand either way.
		jumpIfFalsePos := ac.emitPlaceholderJump(OP_JUMP_IF_FALSE)
		logical.Right.Accept(ac)
		jumpEndPos := ac.emitPlaceholderJump(OP_JUMP)

		ac.patchJump(jumpIfFalsePos, ac.here())
		ac.emit(OP_FALSE)

		ac.patchJump(jumpEndPos, ac.here())
	}
	return nil
}

// VisitCall compiles a call expression. A name that resolves to a registered
// intrinsic compiles to OP_CALL_INTRINSIC; otherwise it must be a
// user-defined function, resolved to its table index for OP_CALL.
func (ac *ASTCompiler) VisitCall(call ast.Call) any {
	name := call.Callee.Lexeme

	if intr, ok := intrinsics.ByName[name]; ok {
		for _, arg := range call.Args {
			arg.Accept(ac)
		}
		ac.emit(OP_CALL_INTRINSIC, int(intr.ID))
		return nil
	}

	idx, ok := ac.funcIndex[name]
	if !ok {
		panic(SemanticError{Message: fmt.Sprintf("call to undefined function '%s'", name)})
	}
	for _, arg := range call.Args {
		arg.Accept(ac)
	}
	ac.emit(OP_CALL, idx)
	return nil
}

// VisitReturnStmt compiles an explicit return. A bare `return;` is only
// legal inside a Void function, enforced by the semantic analyzer.
func (ac *ASTCompiler) VisitReturnStmt(stmt ast.ReturnStmt) any {
	if stmt.Value != nil {
		stmt.Value.Accept(ac)
		ac.emit(OP_RETURN)
	} else {
		ac.emit(OP_RETURN_VOID)
	}
	return nil
}

// callReturnsVoid reports whether a call expression's callee produces no
// value, so VisitExpressionStmt knows whether to discard a result.
func (ac *ASTCompiler) callReturnsVoid(call ast.Call) bool {
	name := call.Callee.Lexeme
	if intr, ok := intrinsics.ByName[name]; ok {
		return intr.Void
	}
	if sig, ok := ac.sigs[name]; ok {
		return sig.returnsVoid
	}
	return false
}

// VisitExpressionStmt compiles an expression used as a statement, discarding
// whatever value it produces. Assignment pushes nothing (see
// VisitAssignExpression) and a call to a Void function pushes nothing either,
// so both are left unbalanced by design rather than followed by a spurious pop.
func (ac *ASTCompiler) VisitExpressionStmt(exprStmt ast.ExpressionStmt) any {
	switch expr := exprStmt.Expression.(type) {
	case ast.Assign:
		expr.Accept(ac)
	case ast.Call:
		expr.Accept(ac)
		if !ac.callReturnsVoid(expr) {
			ac.emit(OP_POP)
		}
	default:
		exprStmt.Expression.Accept(ac)
		ac.emit(OP_POP)
	}
	return nil
}

// VisitBlockStmt compiles a block used in statement position (a while body
// or a bare nested block; if-arms go through compileBlockValue). Any trailing
// tail expression is computed then discarded: a block
// only feeds a caller's return value through compileFunction's direct
// handling of a function's own top-level body, never through this method.
func (ac *ASTCompiler) VisitBlockStmt(blockStmt ast.BlockStmt) any {
	ac.beginScope()
	for _, stmt := range blockStmt.Statements {
		stmt.Accept(ac)
	}
	if blockStmt.Tail != nil {
		blockStmt.Tail.Accept(ac)
		if call, ok := blockStmt.Tail.(ast.Call); !ok || !ac.callReturnsVoid(call) {
			ac.emit(OP_POP)
		}
	}
	ac.endScope()
	return nil
}

// VisitIfExpr compiles an if-expression using backpatched jumps. Both arms
// always leave exactly one value on the stack: a missing else compiles to a
// synthesized nil constant, mirroring VisitVarStmt's handling of a missing
// initializer. This keeps the stack depth identical regardless of which
// branch runs, so statement-position discard (VisitExpressionStmt's default
// OP_POP) and expression-position consumption both work without the
// compiler having to know whether the arms' types actually matched; that
// question was already settled by the semantic analyzer.
func (ac *ASTCompiler) VisitIfExpr(ifExpr ast.IfExpr) any {
	ifExpr.Condition.Accept(ac)

	jumpIfFalsePatch := ac.emitPlaceholderJump(OP_JUMP_IF_FALSE)

	ac.compileBlockValue(ifExpr.Then)

	jumpPatch := ac.emitPlaceholderJump(OP_JUMP)

	ac.patchJump(jumpIfFalsePatch, ac.here())
	if ifExpr.Else != nil {
		ifExpr.Else.Accept(ac)
	} else {
		ac.addConstant(nil)
	}

	ac.patchJump(jumpPatch, ac.here())
	return nil
}

// VisitBlockExpr compiles a block used in expression position (an
// if-expression's arm), leaving its value on the stack.
func (ac *ASTCompiler) VisitBlockExpr(blockExpr ast.BlockExpr) any {
	ac.compileBlockValue(blockExpr.Block)
	return nil
}

// compileBlockValue compiles block's statements for effect, then leaves
// exactly one value on the stack: its tail expression's value, or a
// synthesized nil constant if it has no tail.
func (ac *ASTCompiler) compileBlockValue(block ast.BlockStmt) {
	ac.beginScope()
	for _, stmt := range block.Statements {
		stmt.Accept(ac)
	}
	if block.Tail != nil {
		block.Tail.Accept(ac)
		if call, ok := block.Tail.(ast.Call); ok && ac.callReturnsVoid(call) {
			ac.addConstant(nil)
		}
	} else {
		ac.addConstant(nil)
	}
	ac.endScope()
}

// VisitWhileStmt compiles a condition-checked loop, re-testing the condition
// before every iteration including the first.
func (ac *ASTCompiler) VisitWhileStmt(whileStmt ast.WhileStmt) any {
	loopStartPos := ac.here()

	whileStmt.Condition.Accept(ac)

	jumpIfFalsePatch := ac.emitPlaceholderJump(OP_JUMP_IF_FALSE)

	whileStmt.Body.Accept(ac)

	ac.emit(OP_JUMP, loopStartPos)

	ac.patchJump(jumpIfFalsePatch, ac.here())
	return nil
}

// here returns the current end-of-stream offset within the function
// presently being compiled.
func (ac *ASTCompiler) here() int {
	return len(ac.bytecode.Functions[ac.current].Instructions)
}

// patchJump overwrites a jump instruction's 2-byte operand with the actual
// target offset, once it becomes known. jumpPos is the byte index of the
// jump opcode itself, recorded by emitPlaceholderJump.
func (ac *ASTCompiler) patchJump(jumpPos int, targetPos int) {
	operandPos := jumpPos + 1
	ins := ac.bytecode.Functions[ac.current].Instructions
	binary.BigEndian.PutUint16(ins[operandPos:], uint16(targetPos))
}

// addConstant appends a value to the constant pool and emits an OP_CONSTANT
// instruction whose operand is its index in the pool.
func (ac *ASTCompiler) addConstant(value any) {
	ac.bytecode.ConstantsPool = append(ac.bytecode.ConstantsPool, value)
	index := len(ac.bytecode.ConstantsPool) - 1
	ac.emit(OP_CONSTANT, index)
}

// emit constructs a bytecode instruction and appends it to the instruction
// stream of the function currently being compiled.
func (ac *ASTCompiler) emit(opcode Opcode, operands ...int) {
	instruction, err := AssembleInstruction(opcode, operands...)
	if err != nil {
		panic(DeveloperError{Message: err.Error()})
	}
	ac.bytecode.Functions[ac.current].Instructions = append(ac.bytecode.Functions[ac.current].Instructions, instruction...)
}

// emitPlaceholderJump emits a jump instruction with a placeholder operand
// (0) and returns its position, to later be passed to patchJump.
func (ac *ASTCompiler) emitPlaceholderJump(opcode Opcode) int {
	position := ac.here()
	ac.emit(opcode, 0)
	return position
}

// beginScope increments the scope depth when compiling a nested block.
func (ac *ASTCompiler) beginScope() {
	ac.scopeDepth++
}

// endScope decrements the scope depth and drops any locals that go out of
// scope. Slots freed this way are available for reuse by the next sibling
// block's declarations; since locals live in a fixed-size per-frame array at
// runtime, no instruction needs to be emitted to "exit" the scope.
func (ac *ASTCompiler) endScope() {
	ac.scopeDepth--
	for len(ac.locals) > 0 && ac.locals[len(ac.locals)-1].depth > ac.scopeDepth {
		ac.locals = ac.locals[:len(ac.locals)-1]
	}
}

// declareLocal adds a local variable, checking for same-scope duplicates,
// and assigns it the next available frame slot.
func (ac *ASTCompiler) declareLocal(name string) {
	for i := len(ac.locals) - 1; i >= 0; i-- {
		if ac.locals[i].depth < ac.scopeDepth {
			break
		}
		if ac.locals[i].name == name {
			panic(SemanticError{Message: fmt.Sprintf("redefinition of variable '%s'", name)})
		}
	}

	slot := uint16(len(ac.locals))
	ac.locals = append(ac.locals, Local{
		name:  name,
		depth: ac.scopeDepth,
		slot:  slot,
	})
	if len(ac.locals) > ac.highWaterMark {
		ac.highWaterMark = len(ac.locals)
	}
}

// defineLocal marks the most recently declared local variable as initialized.
func (ac *ASTCompiler) defineLocal() {
	if len(ac.locals) > 0 {
		ac.locals[len(ac.locals)-1].initialized = true
	}
}

// resolveLocal returns name's frame slot, or -1 if it is not in scope.
func (ac *ASTCompiler) resolveLocal(name string) int {
	for i := len(ac.locals) - 1; i >= 0; i-- {
		if ac.locals[i].name == name {
			return int(ac.locals[i].slot)
		}
	}
	return -1
}
