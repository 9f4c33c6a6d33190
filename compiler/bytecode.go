package compiler

// CompiledFunction is one function's compiled body plus the frame-sizing
// information the VM needs to set up a call: how many parameter slots precede
// the local slots, and the total slot count the frame's Locals array must hold.
type CompiledFunction struct {
	Name        string
	Instructions Instructions
	NumParams   int
	NumLocals   int
}

// Bytecode is the compiler's full output: every function compiled from the
// Program, addressed by its index in Functions. OP_CALL's operand is such an
// index, assigned before any body is compiled, which is what lets forward and
// recursive calls resolve without cross-function jump patching.
type Bytecode struct {
	ConstantsPool []any
	Functions     []CompiledFunction
	EntryIndex    int
}
