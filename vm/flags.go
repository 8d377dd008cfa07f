package vm

// Flags is the Executor's one-byte condition register, set by CMP and
// tested by conditional jumps.
type Flags byte

const (
	// FlagEQ is set when the last CMP found its operands equal.
	FlagEQ Flags = 0x01
	// FlagBelow is set when the last CMP found lhs < rhs.
	FlagBelow Flags = 0x02
	// FlagInvalidOp is set when the last CMP (or other flag-setting op)
	// saw operands of incompatible types.
	FlagInvalidOp Flags = 0x10
)

// Above reports the "above" pseudo-bit: no EQ, no BELOW, no INVALID-OP.
// It is derived, never stored directly.
func (f Flags) Above() bool { return f == 0 }

func (f Flags) has(bit Flags) bool { return f&bit != 0 }
