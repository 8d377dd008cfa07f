package vm

// Op is a single opcode byte. Inline operands, when present, immediately
// follow the opcode byte in the bytecode buffer and are always little-endian.
type Op byte

const (
	// NOP does nothing.
	NOP Op = iota

	// Arithmetic: binary ops pop two numeric operands and push one result;
	// NEG is unary. All halt the dispatch loop on success (see Executor).
	ADD
	SUB
	MUL
	DIV
	MOD
	NEG

	// PushN has a 4-byte little-endian f32 inline operand.
	PushN
	// PushS has a 4-byte little-endian u32 length, then that many bytes.
	PushS

	// Pop has inline u8 offset, u8 count.
	Pop
	// Peek has inline u8 offset.
	Peek

	// CMP sets the flag register from the top two operands.
	CMP

	// JMP has inline u32 LE address, interpreted as a backward-only
	// absolute byte offset into the current bytecode buffer.
	JMP
	JEQ
	JNQ
	JL
	JLE
	JG
	JGE

	// JSR pops a callable and invokes it (native or bytecode).
	JSR
	// RET pops a call frame, or halts (returns to host) if none remain.
	RET

	// SETG pops name then value and stores globals[name] = value.
	SETG
	// GETG pops name and pushes globals[name], or halts if absent.
	GETG
)
