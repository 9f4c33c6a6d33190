// Package intrinsics describes the fixed set of built-in functions the VM
// provides directly, without a user-level declaration: print, println,
// read_line, abs, len, to_string. Both the compiler (to resolve a call by
// name and emit its id) and the VM (to dispatch on that id) depend on this
// package rather than on each other.
package intrinsics

// Intrinsic describes one built-in function's calling convention. Overload
// resolution between, e.g., abs(Int) and abs(Float) happens at runtime in the
// VM by switching on the popped argument's dynamic type, not by distinct ids.
type Intrinsic struct {
	ID    byte
	Name  string
	Arity int
	// Void is true for intrinsics with no return value (print, println).
	Void bool
}

const (
	Print byte = iota
	Println
	ReadLine
	Abs
	Len
	ToString
)

// ByName resolves a source-level call target to its Intrinsic description.
var ByName = map[string]Intrinsic{
	"print":     {ID: Print, Name: "print", Arity: 1, Void: true},
	"println":   {ID: Println, Name: "println", Arity: 1, Void: true},
	"read_line": {ID: ReadLine, Name: "read_line", Arity: 0, Void: false},
	"abs":       {ID: Abs, Name: "abs", Arity: 1, Void: false},
	"len":       {ID: Len, Name: "len", Arity: 1, Void: false},
	"to_string": {ID: ToString, Name: "to_string", Arity: 1, Void: false},
}

// ByID resolves an encoded OP_CALL_INTRINSIC operand back to its description.
var ByID = map[byte]Intrinsic{
	Print:    ByName["print"],
	Println:  ByName["println"],
	ReadLine: ByName["read_line"],
	Abs:      ByName["abs"],
	Len:      ByName["len"],
	ToString: ByName["to_string"],
}
