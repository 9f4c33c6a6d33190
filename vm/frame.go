package vm

// Frame is one function call's activation record: which function's
// instructions it is executing, where in that stream, its local-slot array
// (sized once from the callee's CompiledFunction.NumLocals), and the operand
// stack depth at entry. The VM records basePointer but does not check stack
// balance against it on return.
type Frame struct {
	funcIndex   int
	ip          int
	locals      []any
	basePointer int
}
