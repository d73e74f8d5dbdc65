package chunk

import "fmt"

type OpCode byte

// List of bytecode operations. Operands follow the opcode inline; 16-bit
// operands are big-endian.
const (
	OP_CONSTANT      OpCode = iota // idx8
	OP_NIL                         //
	OP_TRUE                        //
	OP_FALSE                       //
	OP_POP                         //
	OP_GET_LOCAL                   // slot8
	OP_SET_LOCAL                   // slot8
	OP_GET_GLOBAL                  // idx8
	OP_DEFINE_GLOBAL               // idx8
	OP_SET_GLOBAL                  // idx8
	OP_GET_UPVALUE                 // idx8
	OP_SET_UPVALUE                 // idx8
	OP_EQUAL                       //
	OP_GREATER                     //
	OP_LESS                        //
	OP_ADD                         //
	OP_SUBTRACT                    //
	OP_MULTIPLY                    //
	OP_DIVIDE                      //
	OP_NOT                         //
	OP_NEGATE                      //
	OP_PRINT                       //
	OP_JUMP                        // off16
	OP_JUMP_IF_FALSE               // off16
	OP_LOOP                        // off16
	OP_CALL                        // argc8
	OP_CLOSURE                     // idx8 (isLocal8 index8)*
	OP_CLOSE_UPVALUE               //
	OP_RETURN                      //
)

var opNames = [...]string{
	OP_CONSTANT:      "OP_CONSTANT",
	OP_NIL:           "OP_NIL",
	OP_TRUE:          "OP_TRUE",
	OP_FALSE:         "OP_FALSE",
	OP_POP:           "OP_POP",
	OP_GET_LOCAL:     "OP_GET_LOCAL",
	OP_SET_LOCAL:     "OP_SET_LOCAL",
	OP_GET_GLOBAL:    "OP_GET_GLOBAL",
	OP_DEFINE_GLOBAL: "OP_DEFINE_GLOBAL",
	OP_SET_GLOBAL:    "OP_SET_GLOBAL",
	OP_GET_UPVALUE:   "OP_GET_UPVALUE",
	OP_SET_UPVALUE:   "OP_SET_UPVALUE",
	OP_EQUAL:         "OP_EQUAL",
	OP_GREATER:       "OP_GREATER",
	OP_LESS:          "OP_LESS",
	OP_ADD:           "OP_ADD",
	OP_SUBTRACT:      "OP_SUBTRACT",
	OP_MULTIPLY:      "OP_MULTIPLY",
	OP_DIVIDE:        "OP_DIVIDE",
	OP_NOT:           "OP_NOT",
	OP_NEGATE:        "OP_NEGATE",
	OP_PRINT:         "OP_PRINT",
	OP_JUMP:          "OP_JUMP",
	OP_JUMP_IF_FALSE: "OP_JUMP_IF_FALSE",
	OP_LOOP:          "OP_LOOP",
	OP_CALL:          "OP_CALL",
	OP_CLOSURE:       "OP_CLOSURE",
	OP_CLOSE_UPVALUE: "OP_CLOSE_UPVALUE",
	OP_RETURN:        "OP_RETURN",
}

// String returns the mnemonic of the opcode
func (op OpCode) String() string {
	if int(op) < len(opNames) {
		return opNames[op]
	}

	return fmt.Sprintf("UNKNOWN(%d)", int(op))
}
