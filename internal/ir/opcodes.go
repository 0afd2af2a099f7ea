package ir

// Opcode is a three-address instruction kind.
type Opcode uint8

const (
	// Structure
	OP_LABEL Opcode = iota // A = chunk-local label id; removed by the linker
	OP_MOVE                // Dest = A

	// Arithmetic
	OP_ADD // +
	OP_SUB // -
	OP_MUL // *
	OP_DIV // /
	OP_MOD // %
	OP_NEG // unary minus

	// Bitwise
	OP_BAND   // &
	OP_BOR    // |
	OP_BXOR   // ^
	OP_LSHIFT // <<
	OP_RSHIFT // >>

	// Comparison
	OP_EQ // ==
	OP_NE // !=
	OP_LT // <
	OP_LE // <=
	OP_GT // >
	OP_GE // >=

	// Logic
	OP_NOT // !

	// Control flow
	OP_JUMP        // goto A
	OP_JUMP_UNLESS // if !A goto B

	// Calls
	OP_PARAM       // push A onto the value stack
	OP_CALL        // Dest = Name(B args); A is the callee entry once linked
	OP_CALL_NATIVE // Dest = Externs[A](B args)
	OP_RETURN      // return A

	// Globals live in the top-level register window
	OP_GET_GLOBAL // Dest = globals[A]
	OP_SET_GLOBAL // globals[A] = B

	OP_PRINT // print A
	OP_END   // normal end of the top-level chunk
	OP_HALT  // fatal stop
)

var opcodeNames = map[Opcode]string{
	OP_LABEL:       "LABEL",
	OP_MOVE:        "MOVE",
	OP_ADD:         "ADD",
	OP_SUB:         "SUB",
	OP_MUL:         "MUL",
	OP_DIV:         "DIV",
	OP_MOD:         "MOD",
	OP_NEG:         "NEG",
	OP_BAND:        "BAND",
	OP_BOR:         "BOR",
	OP_BXOR:        "BXOR",
	OP_LSHIFT:      "LSHIFT",
	OP_RSHIFT:      "RSHIFT",
	OP_EQ:          "EQ",
	OP_NE:          "NE",
	OP_LT:          "LT",
	OP_LE:          "LE",
	OP_GT:          "GT",
	OP_GE:          "GE",
	OP_NOT:         "NOT",
	OP_JUMP:        "JUMP",
	OP_JUMP_UNLESS: "JUMP_UNLESS",
	OP_PARAM:       "PARAM",
	OP_CALL:        "CALL",
	OP_CALL_NATIVE: "CALL_NATIVE",
	OP_RETURN:      "RETURN",
	OP_GET_GLOBAL:  "GET_GLOBAL",
	OP_SET_GLOBAL:  "SET_GLOBAL",
	OP_PRINT:       "PRINT",
	OP_END:         "END",
	OP_HALT:        "HALT",
}

func (op Opcode) String() string {
	if name, ok := opcodeNames[op]; ok {
		return name
	}
	return "UNKNOWN"
}

// IsBinary reports whether op consumes A and B and writes Dest.
func (op Opcode) IsBinary() bool {
	switch op {
	case OP_ADD, OP_SUB, OP_MUL, OP_DIV, OP_MOD,
		OP_BAND, OP_BOR, OP_BXOR, OP_LSHIFT, OP_RSHIFT,
		OP_EQ, OP_NE, OP_LT, OP_LE, OP_GT, OP_GE:
		return true
	}
	return false
}
