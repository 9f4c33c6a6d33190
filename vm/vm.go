package vm

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"neksis/compiler"
)

// VM is a stack-based virtual machine: the runtime environment where
// compiled Neksis bytecode is executed. It owns an operand stack (values
// produced and consumed by expression evaluation) and a separate frame
// stack (one Frame per live function call).
type VM struct {
	operandStack Stack
	frames       []Frame

	stdout io.Writer
	stdin  io.Reader

	stdinBuf *bufio.Reader

	logger *zap.SugaredLogger
	debug  bool

	// InstructionBudget, if nonzero, is decremented on every fetch and
	// faults the run with a RuntimeError once exhausted, implementing the
	// cooperative cancellation point described in §5 of the specification.
	InstructionBudget int
}

// New creates a VM with stdout/stdin wired to the process's own streams.
func New() *VM {
	return &VM{
		stdout: os.Stdout,
		stdin:  os.Stdin,
	}
}

// SetStdout redirects where print/println write; useful for embedding and tests.
func (vm *VM) SetStdout(w io.Writer) { vm.stdout = w }

// SetStdin redirects where read_line reads from; useful for embedding and tests.
func (vm *VM) SetStdin(r io.Reader) {
	vm.stdin = r
	vm.stdinBuf = nil
}

// SetLogger attaches a zap logger that records the start of each run and
// every fault, plus a per-instruction trace when debug mode is enabled; it
// never receives program stdout, which must remain byte-exact.
func (vm *VM) SetLogger(logger *zap.SugaredLogger) { vm.logger = logger }

// SetDebug toggles per-instruction tracing through the attached logger.
func (vm *VM) SetDebug(debug bool) { vm.debug = debug }

// Run executes bytecode starting at its EntryIndex (the compiled "main"
// function) and returns main's declared Int return value as a process exit
// code, or 0 if main is Void. It returns a RuntimeError on any VM fault
// (division by zero, a failing intrinsic, or budget exhaustion); the frame
// stack is left unwound in that case.
func (vm *VM) Run(bytecode compiler.Bytecode) (int, error) {
	runID := uuid.NewString()

	vm.operandStack = Stack{}
	vm.frames = []Frame{{
		funcIndex: bytecode.EntryIndex,
		ip:        0,
		locals:    make([]any, bytecode.Functions[bytecode.EntryIndex].NumLocals),
	}}

	if vm.logger != nil {
		vm.logger.Debugw("vm run started", "run_id", runID, "entry", bytecode.Functions[bytecode.EntryIndex].Name)
	}

	for {
		frame := &vm.frames[len(vm.frames)-1]
		fn := bytecode.Functions[frame.funcIndex]

		if vm.InstructionBudget > 0 {
			vm.InstructionBudget--
			if vm.InstructionBudget == 0 {
				return 1, vm.fault(runID, fn.Name, frame.ip, "instruction budget exhausted")
			}
		}

		op := compiler.Opcode(fn.Instructions[frame.ip])
		if vm.debug && vm.logger != nil {
			vm.logger.Debugw("exec", "run_id", runID, "fn", fn.Name, "ip", frame.ip, "op", op)
		}

		switch op {
		case compiler.OP_CONSTANT:
			operand, width := compiler.ReadOperand(2, fn.Instructions, frame.ip+1)
			vm.operandStack.Push(bytecode.ConstantsPool[operand])
			frame.ip += 1 + width

		case compiler.OP_TRUE:
			vm.operandStack.Push(true)
			frame.ip++

		case compiler.OP_FALSE:
			vm.operandStack.Push(false)
			frame.ip++

		case compiler.OP_POP:
			vm.operandStack.Pop()
			frame.ip++

		case compiler.OP_ADD, compiler.OP_SUBTRACT, compiler.OP_MULTIPLY, compiler.OP_DIVIDE, compiler.OP_MODULO:
			right, _ := vm.operandStack.Pop()
			left, _ := vm.operandStack.Pop()
			result, rerr := vm.arithmetic(op, left, right)
			if rerr != nil {
				return 1, vm.fault(runID, fn.Name, frame.ip, rerr.Error())
			}
			vm.operandStack.Push(result)
			frame.ip++

		case compiler.OP_NEGATE:
			value, _ := vm.operandStack.Pop()
			switch v := value.(type) {
			case int64:
				vm.operandStack.Push(-v)
			case float64:
				vm.operandStack.Push(-v)
			}
			frame.ip++

		case compiler.OP_NOT:
			value, _ := vm.operandStack.Pop()
			b, _ := truthy(value)
			vm.operandStack.Push(!b)
			frame.ip++

		case compiler.OP_EQUALITY, compiler.OP_NOT_EQUAL, compiler.OP_LARGER, compiler.OP_LARGER_EQUAL,
			compiler.OP_LESS, compiler.OP_LESS_EQUAL:
			right, _ := vm.operandStack.Pop()
			left, _ := vm.operandStack.Pop()
			vm.operandStack.Push(compare(op, left, right))
			frame.ip++

		case compiler.OP_GET_LOCAL:
			slot, width := compiler.ReadOperand(2, fn.Instructions, frame.ip+1)
			vm.operandStack.Push(frame.locals[slot])
			frame.ip += 1 + width

		case compiler.OP_SET_LOCAL, compiler.OP_DEFINE_LOCAL:
			slot, width := compiler.ReadOperand(2, fn.Instructions, frame.ip+1)
			value, _ := vm.operandStack.Pop()
			frame.locals[slot] = value
			frame.ip += 1 + width

		case compiler.OP_JUMP:
			target, _ := compiler.ReadOperand(2, fn.Instructions, frame.ip+1)
			frame.ip = target

		case compiler.OP_JUMP_IF_FALSE:
			target, width := compiler.ReadOperand(2, fn.Instructions, frame.ip+1)
			value, _ := vm.operandStack.Pop()
			cond, _ := truthy(value)
			if !cond {
				frame.ip = target
			} else {
				frame.ip += 1 + width
			}

		case compiler.OP_CALL:
			calleeIndex, width := compiler.ReadOperand(2, fn.Instructions, frame.ip+1)
			frame.ip += 1 + width

			callee := bytecode.Functions[calleeIndex]
			locals := make([]any, callee.NumLocals)
			for i := callee.NumParams - 1; i >= 0; i-- {
				value, _ := vm.operandStack.Pop()
				locals[i] = value
			}
			vm.frames = append(vm.frames, Frame{
				funcIndex:   calleeIndex,
				locals:      locals,
				basePointer: len(vm.operandStack),
			})

		case compiler.OP_CALL_INTRINSIC:
			id := fn.Instructions[frame.ip+1]
			if err := vm.callIntrinsic(id); err != nil {
				return 1, vm.fault(runID, fn.Name, frame.ip, err.Error())
			}
			frame.ip += 2

		case compiler.OP_RETURN, compiler.OP_RETURN_VOID:
			var value any
			if op == compiler.OP_RETURN {
				value, _ = vm.operandStack.Pop()
			}
			vm.frames = vm.frames[:len(vm.frames)-1]
			if len(vm.frames) == 0 {
				if op == compiler.OP_RETURN {
					if code, ok := value.(int64); ok {
						return int(code), nil
					}
				}
				return 0, nil
			}
			if op == compiler.OP_RETURN {
				vm.operandStack.Push(value)
			}

		case compiler.OP_END:
			return 0, nil

		default:
			return 1, vm.fault(runID, fn.Name, frame.ip, fmt.Sprintf("unknown opcode %v", op))
		}
	}
}

// fault builds a RuntimeError for the current execution point and, if a
// logger is attached, records it there too for later correlation by run_id.
func (vm *VM) fault(runID, funcName string, ip int, message string) error {
	if vm.logger != nil {
		vm.logger.Errorw("vm fault", "run_id", runID, "fn", funcName, "ip", ip, "message", message)
	}
	return RuntimeError{Message: message, FuncName: funcName, IP: ip, RunID: runID}
}

// arithmetic dispatches a binary arithmetic opcode on the dynamic Go type of
// its operands (int64, float64, or string for OP_ADD's concatenation case,
// where a String on either side stringifies the other operand).
// The semantic analyzer having already accepted the program guarantees the
// remaining cases' operands agree in type; integer overflow wraps per Go's
// defined signed integer semantics.
func (vm *VM) arithmetic(op compiler.Opcode, left, right any) (any, error) {
	if ls, ok := left.(string); ok && op == compiler.OP_ADD {
		rs, ok := right.(string)
		if !ok {
			rs = stringify(right)
		}
		return ls + rs, nil
	}
	if rs, ok := right.(string); ok && op == compiler.OP_ADD {
		return stringify(left) + rs, nil
	}
	if li, ok := left.(int64); ok {
		ri, ok := right.(int64)
		if !ok {
			return nil, RuntimeError{Message: "arithmetic operand type mismatch"}
		}
		switch op {
		case compiler.OP_ADD:
			return li + ri, nil
		case compiler.OP_SUBTRACT:
			return li - ri, nil
		case compiler.OP_MULTIPLY:
			return li * ri, nil
		case compiler.OP_DIVIDE:
			if ri == 0 {
				return nil, fmt.Errorf("division by zero")
			}
			return li / ri, nil
		case compiler.OP_MODULO:
			if ri == 0 {
				return nil, fmt.Errorf("modulo by zero")
			}
			return li % ri, nil
		}
	}
	if lf, ok := left.(float64); ok {
		rf, ok := right.(float64)
		if !ok {
			return nil, RuntimeError{Message: "arithmetic operand type mismatch"}
		}
		switch op {
		case compiler.OP_ADD:
			return lf + rf, nil
		case compiler.OP_SUBTRACT:
			return lf - rf, nil
		case compiler.OP_MULTIPLY:
			return lf * rf, nil
		case compiler.OP_DIVIDE:
			if rf == 0 {
				return nil, fmt.Errorf("division by zero")
			}
			return lf / rf, nil
		}
	}
	return nil, RuntimeError{Message: "arithmetic operand type mismatch"}
}

// compare dispatches an equality/comparison opcode on the dynamic type of
// its operands, both of which the semantic analyzer guarantees already agree.
func compare(op compiler.Opcode, left, right any) bool {
	switch l := left.(type) {
	case int64:
		r := right.(int64)
		switch op {
		case compiler.OP_EQUALITY:
			return l == r
		case compiler.OP_NOT_EQUAL:
			return l != r
		case compiler.OP_LARGER:
			return l > r
		case compiler.OP_LARGER_EQUAL:
			return l >= r
		case compiler.OP_LESS:
			return l < r
		case compiler.OP_LESS_EQUAL:
			return l <= r
		}
	case float64:
		r := right.(float64)
		switch op {
		case compiler.OP_EQUALITY:
			return l == r
		case compiler.OP_NOT_EQUAL:
			return l != r
		case compiler.OP_LARGER:
			return l > r
		case compiler.OP_LARGER_EQUAL:
			return l >= r
		case compiler.OP_LESS:
			return l < r
		case compiler.OP_LESS_EQUAL:
			return l <= r
		}
	case bool:
		r := right.(bool)
		switch op {
		case compiler.OP_EQUALITY:
			return l == r
		case compiler.OP_NOT_EQUAL:
			return l != r
		}
	case string:
		r := right.(string)
		switch op {
		case compiler.OP_EQUALITY:
			return l == r
		case compiler.OP_NOT_EQUAL:
			return l != r
		}
	}
	return false
}
