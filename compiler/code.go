package compiler

import (
	"encoding/binary"
	"fmt"
	"strings"
)

// Opcode identifies one bytecode instruction. Each Opcode is a single byte,
// optionally followed by one operand encoded in Big-Endian order according to
// its OpCodeDefinition.
type Opcode byte

// Instructions is a flat, linear stream of encoded bytecode instructions.
type Instructions []byte

const (
	// OP_CONSTANT pushes ConstantsPool[operand] (an Int, Float, String or Bool
	// literal, or the nil placeholder for a missing value).
	OP_CONSTANT Opcode = iota
	// OP_TRUE and OP_FALSE push a boolean literal without touching the constant pool.
	OP_TRUE
	OP_FALSE
	// OP_POP discards the value on top of the operand stack.
	OP_POP

	// Arithmetic. Operands are taken from the Go dynamic type of the popped
	// values (int64, float64, or string for OP_ADD's concatenation case);
	// the semantic analyzer having already accepted the program guarantees
	// both operands agree, except that OP_ADD with a String on either side
	// stringifies the other operand.
	OP_ADD
	OP_SUBTRACT
	OP_MULTIPLY
	OP_DIVIDE
	OP_MODULO
	OP_NEGATE
	OP_NOT

	// Comparison and equality, all producing a Bool.
	OP_EQUALITY
	OP_NOT_EQUAL
	OP_LARGER
	OP_LARGER_EQUAL
	OP_LESS
	OP_LESS_EQUAL

	// Locals live in a per-frame array addressed by slot, not on the operand
	// stack, so entering/leaving a lexical block needs no runtime bookkeeping;
	// slot reuse across sibling blocks is a compile-time-only concern.
	OP_GET_LOCAL
	OP_SET_LOCAL
	OP_DEFINE_LOCAL

	// Control flow. Both operands are absolute instruction indexes within the
	// current function's Instructions.
	OP_JUMP
	OP_JUMP_IF_FALSE

	// OP_CALL invokes Bytecode.Functions[operand], popping its declared
	// parameter count off the stack (in order) into the callee's frame.
	OP_CALL
	// OP_CALL_INTRINSIC invokes one of the fixed VM-provided intrinsics
	// (print, println, read_line, abs, len, to_string); its one-byte operand
	// is the intrinsic's id, not a constant pool index.
	OP_CALL_INTRINSIC
	// OP_RETURN pops the return value off the current frame and resumes the
	// caller with it pushed onto the caller's stack. OP_RETURN_VOID does the
	// same without a value.
	OP_RETURN
	OP_RETURN_VOID

	// OP_END halts the VM with exit code 0. The compiler does not emit it;
	// every function ends in OP_RETURN or OP_RETURN_VOID.
	OP_END
)

// OpCodeDefinition describes how an Opcode's operands, if any, are encoded.
type OpCodeDefinition struct {
	Name          string
	OperandWidths []int
}

var definitions = map[Opcode]*OpCodeDefinition{
	OP_CONSTANT:       {Name: "OP_CONSTANT", OperandWidths: []int{2}},
	OP_TRUE:           {Name: "OP_TRUE", OperandWidths: []int{}},
	OP_FALSE:          {Name: "OP_FALSE", OperandWidths: []int{}},
	OP_POP:            {Name: "OP_POP", OperandWidths: []int{}},
	OP_ADD:            {Name: "OP_ADD", OperandWidths: []int{}},
	OP_SUBTRACT:       {Name: "OP_SUBTRACT", OperandWidths: []int{}},
	OP_MULTIPLY:       {Name: "OP_MULTIPLY", OperandWidths: []int{}},
	OP_DIVIDE:         {Name: "OP_DIVIDE", OperandWidths: []int{}},
	OP_MODULO:         {Name: "OP_MODULO", OperandWidths: []int{}},
	OP_NEGATE:         {Name: "OP_NEGATE", OperandWidths: []int{}},
	OP_NOT:            {Name: "OP_NOT", OperandWidths: []int{}},
	OP_EQUALITY:       {Name: "OP_EQUALITY", OperandWidths: []int{}},
	OP_NOT_EQUAL:      {Name: "OP_NOT_EQUAL", OperandWidths: []int{}},
	OP_LARGER:         {Name: "OP_LARGER", OperandWidths: []int{}},
	OP_LARGER_EQUAL:   {Name: "OP_LARGER_EQUAL", OperandWidths: []int{}},
	OP_LESS:           {Name: "OP_LESS", OperandWidths: []int{}},
	OP_LESS_EQUAL:     {Name: "OP_LESS_EQUAL", OperandWidths: []int{}},
	OP_GET_LOCAL:      {Name: "OP_GET_LOCAL", OperandWidths: []int{2}},
	OP_SET_LOCAL:      {Name: "OP_SET_LOCAL", OperandWidths: []int{2}},
	OP_DEFINE_LOCAL:   {Name: "OP_DEFINE_LOCAL", OperandWidths: []int{2}},
	OP_JUMP:           {Name: "OP_JUMP", OperandWidths: []int{2}},
	OP_JUMP_IF_FALSE:  {Name: "OP_JUMP_IF_FALSE", OperandWidths: []int{2}},
	OP_CALL:           {Name: "OP_CALL", OperandWidths: []int{2}},
	OP_CALL_INTRINSIC: {Name: "OP_CALL_INTRINSIC", OperandWidths: []int{1}},
	OP_RETURN:         {Name: "OP_RETURN", OperandWidths: []int{}},
	OP_RETURN_VOID:    {Name: "OP_RETURN_VOID", OperandWidths: []int{}},
	OP_END:            {Name: "OP_END", OperandWidths: []int{}},
}

// Get looks up the OpCodeDefinition for op.
func Get(op Opcode) (*OpCodeDefinition, error) {
	def, ok := definitions[op]
	if !ok {
		return nil, fmt.Errorf("opcode: '%d' undefined", op)
	}
	return def, nil
}

// AssembleInstruction encodes op and its operands into a single instruction.
// Operands are encoded in Big-Endian order according to op's defined widths:
// a 2-byte operand of 65000 is encoded as [253, 232].
func AssembleInstruction(op Opcode, operands ...int) ([]byte, error) {
	def, err := Get(op)
	if err != nil {
		return nil, err
	}

	instructionLength := 1
	for _, width := range def.OperandWidths {
		instructionLength += width
	}

	instruction := make([]byte, instructionLength)
	instruction[0] = byte(op)

	offset := 1
	for i, operand := range operands {
		width := def.OperandWidths[i]
		switch width {
		case 1:
			instruction[offset] = byte(operand)
		case 2:
			binary.BigEndian.PutUint16(instruction[offset:], uint16(operand))
		}
		offset += width
	}
	return instruction, nil
}

// ReadOperand decodes the operand of the given width starting at offset
// within ins, returning the decoded value and the width consumed.
func ReadOperand(width int, ins Instructions, offset int) (int, int) {
	switch width {
	case 1:
		return int(ins[offset]), 1
	case 2:
		return int(binary.BigEndian.Uint16(ins[offset:])), 2
	default:
		return 0, 0
	}
}

// DiassembleInstruction renders a single encoded instruction as a human
// readable line, e.g. "opcode: OP_CONSTANT, operand: 65000, operand widths: 2 bytes".
func DiassembleInstruction(instruction []byte) (string, error) {
	if len(instruction) == 0 {
		return "", fmt.Errorf("cannot diassemble an empty instruction")
	}

	op := Opcode(instruction[0])
	def, err := Get(op)
	if err != nil {
		return "", err
	}

	totalWidth := 0
	for _, width := range def.OperandWidths {
		totalWidth += width
	}

	operandStr := "None"
	if len(def.OperandWidths) > 0 {
		value, _ := ReadOperand(def.OperandWidths[0], Instructions(instruction), 1)
		operandStr = fmt.Sprintf("%d", value)
	}

	return fmt.Sprintf("opcode: %s, operand: %s, operand widths: %d bytes", def.Name, operandStr, totalWidth), nil
}

// DisassembleAll renders every instruction in ins as one line each, prefixed
// with its byte offset, for use by a disassembler driver command.
func DisassembleAll(ins Instructions) (string, error) {
	var out strings.Builder
	offset := 0
	for offset < len(ins) {
		op := Opcode(ins[offset])
		def, err := Get(op)
		if err != nil {
			return "", err
		}
		line, err := DiassembleInstruction(ins[offset:])
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&out, "%04d %s\n", offset, line)
		offset++
		for _, width := range def.OperandWidths {
			offset += width
		}
	}
	return out.String(), nil
}
