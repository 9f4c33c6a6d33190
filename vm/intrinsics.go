package vm

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"neksis/intrinsics"
)

// callIntrinsic executes the intrinsic identified by id, popping its
// arguments off the operand stack (already pushed by the caller in
// left-to-right order) and pushing its result, unless it is Void.
func (vm *VM) callIntrinsic(id byte) error {
	intr, ok := intrinsics.ByID[id]
	if !ok {
		return RuntimeError{Message: fmt.Sprintf("unknown intrinsic id %d", id)}
	}

	args := make([]any, intr.Arity)
	for i := intr.Arity - 1; i >= 0; i-- {
		value, ok := vm.operandStack.Pop()
		if !ok {
			return RuntimeError{Message: fmt.Sprintf("intrinsic '%s' called with too few arguments", intr.Name)}
		}
		args[i] = value
	}

	switch intr.Name {
	case "print":
		fmt.Fprint(vm.stdout, stringify(args[0]))
	case "println":
		fmt.Fprintln(vm.stdout, stringify(args[0]))
	case "read_line":
		line, err := vm.stdinReader().ReadString('\n')
		if err != nil && err != io.EOF {
			return RuntimeError{Message: fmt.Sprintf("read_line failed: %s", err.Error())}
		}
		vm.operandStack.Push(strings.TrimRight(line, "\r\n"))
	case "abs":
		switch v := args[0].(type) {
		case int64:
			if v < 0 {
				v = -v
			}
			vm.operandStack.Push(v)
		case float64:
			if v < 0 {
				v = -v
			}
			vm.operandStack.Push(v)
		default:
			return RuntimeError{Message: "abs called with a non-numeric argument"}
		}
	case "len":
		s, ok := args[0].(string)
		if !ok {
			return RuntimeError{Message: "len called with a non-string argument"}
		}
		vm.operandStack.Push(int64(len(s)))
	case "to_string":
		vm.operandStack.Push(stringify(args[0]))
	}
	return nil
}

// stdinReader lazily wraps vm.stdin in a *bufio.Reader so read_line can be
// called repeatedly without losing buffered input between calls.
func (vm *VM) stdinReader() *bufio.Reader {
	if vm.stdinBuf == nil {
		vm.stdinBuf = bufio.NewReader(vm.stdin)
	}
	return vm.stdinBuf
}
