package vm

import (
	"encoding/binary"
	"math"

	"go.uber.org/zap"

	"github.com/krehermann/rigvm/diag"
	"github.com/krehermann/rigvm/value"
)

// Executor is the dispatch loop: operand stack, call stack, the
// currently-executing bytecode buffer, program counter and flag register.
// A single Executor is reused across Execute/Call invocations by VM — the
// call stack is deliberately not reset between host calls.
type Executor struct {
	stack   *Stack
	calls   *CallStack
	globals *Globals

	code  []byte
	pc    int
	flags Flags

	lastFault diag.Fault
	logger    *zap.Logger
}

// ExecutorOpt configures a new Executor.
type ExecutorOpt func(*Executor)

// WithLogger attaches a zap logger that receives a Debug record (pc and
// fault) when a dispatch step halts on a bounds, underflow, type,
// missing-global or unknown-opcode fault. Halts from CMP, from a completed
// arithmetic op and from RET on an empty call stack are not logged.
func WithLogger(l *zap.Logger) ExecutorOpt {
	return func(e *Executor) { e.logger = l.Named("executor") }
}

// NewExecutor constructs an Executor sharing globals, with its own fresh
// operand and call stacks.
func NewExecutor(globals *Globals, opts ...ExecutorOpt) *Executor {
	e := &Executor{
		stack:   NewStack(),
		calls:   NewCallStack(),
		globals: globals,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// LoadCode installs code as the currently-executing buffer and resets pc.
// The call stack and operand stack are left untouched.
func (e *Executor) LoadCode(code []byte) {
	e.code = code
	e.pc = 0
}

// Stack returns the operand stack, for host push/peek/pop access.
func (e *Executor) Stack() *Stack { return e.stack }

// Flags returns the current flag register.
func (e *Executor) Flags() Flags { return e.flags }

// LastFault reports why the most recent dispatch step halted (diag.FaultNone
// after a completed arithmetic or compare op, diag.FaultCallUnderflow after
// RET with an empty call stack).
func (e *Executor) LastFault() diag.Fault { return e.lastFault }

// Run repeats RunOne until it returns false, then reports the resulting
// operand stack depth.
func (e *Executor) Run() int {
	for e.RunOne() {
	}
	return e.stack.Depth()
}

func (e *Executor) fault(f diag.Fault) {
	e.lastFault = f
	if ce := e.logger.Check(zap.DebugLevel, "dispatch halt"); ce != nil {
		ce.Write(zap.Int("pc", e.pc), zap.String("fault", f.String()))
	}
}

func (e *Executor) ok() bool {
	e.lastFault = diag.FaultNone
	return true
}

// RunOne fetches the opcode at pc, advances pc past it and its inline
// operands, executes it, and reports whether the loop should continue.
func (e *Executor) RunOne() bool {
	if e.pc < 0 || e.pc >= len(e.code) {
		e.fault(diag.FaultBounds)
		return false
	}
	op := Op(e.code[e.pc])
	e.pc++

	switch op {
	case NOP:
		return e.ok()
	case ADD, SUB, MUL, DIV, MOD:
		return e.arith(op)
	case NEG:
		return e.neg()
	case PushN:
		return e.pushNumber()
	case PushS:
		return e.pushString()
	case Pop:
		return e.popOp()
	case Peek:
		return e.peekOp()
	case CMP:
		return e.cmp()
	case JMP:
		return e.jump(nil)
	case JEQ:
		return e.jump(func() bool { return e.flags.has(FlagEQ) })
	case JNQ:
		return e.jump(func() bool { return !e.flags.has(FlagEQ) })
	case JL:
		return e.jump(func() bool { return e.flags.has(FlagBelow) })
	case JLE:
		return e.jump(func() bool { return e.flags.has(FlagBelow) || e.flags.has(FlagEQ) })
	case JG:
		return e.jump(func() bool { return e.flags.Above() })
	case JGE:
		return e.jump(func() bool { return e.flags.Above() || e.flags.has(FlagEQ) })
	case JSR:
		return e.jsr()
	case RET:
		return e.ret()
	case SETG:
		return e.setg()
	case GETG:
		return e.getg()
	default:
		e.fault(diag.FaultUnknownOp)
		return false
	}
}

// --- inline-operand readers; each advances pc only on success ---

func (e *Executor) readU8() (byte, bool) {
	if e.pc >= len(e.code) {
		return 0, false
	}
	b := e.code[e.pc]
	e.pc++
	return b, true
}

func (e *Executor) readU32() (uint32, bool) {
	if e.pc+4 > len(e.code) {
		return 0, false
	}
	v := binary.LittleEndian.Uint32(e.code[e.pc : e.pc+4])
	e.pc += 4
	return v, true
}

func (e *Executor) readF32() (float32, bool) {
	bits, ok := e.readU32()
	if !ok {
		return 0, false
	}
	return math.Float32frombits(bits), true
}

func (e *Executor) readBytes(n int) ([]byte, bool) {
	if n < 0 || e.pc+n > len(e.code) {
		return nil, false
	}
	b := e.code[e.pc : e.pc+n]
	e.pc += n
	return b, true
}

// --- opcode bodies ---

// arith implements ADD/SUB/MUL/DIV/MOD. A successful arithmetic op halts
// the dispatch loop same as a failed one — only the stack content and
// lastFault differ (see DESIGN.md).
func (e *Executor) arith(op Op) bool {
	rhs, ok1 := e.stack.Peek(0)
	lhs, ok2 := e.stack.Peek(1)
	if !ok1 || !ok2 {
		e.fault(diag.FaultUnderflow)
		return false
	}
	if !rhs.IsNumeric() || !lhs.IsNumeric() {
		e.fault(diag.FaultType)
		return false
	}
	e.stack.PopCount(2)
	a, b := lhs.AsNumber(), rhs.AsNumber()
	var result float32
	switch op {
	case ADD:
		result = a + b
	case SUB:
		result = a - b
	case MUL:
		result = a * b
	case DIV:
		result = a / b
	case MOD:
		result = float32(math.Mod(float64(a), float64(b)))
	}
	e.stack.Push(value.Number(result))
	e.lastFault = diag.FaultNone
	return false
}

func (e *Executor) neg() bool {
	top, ok := e.stack.Peek(0)
	if !ok {
		e.fault(diag.FaultUnderflow)
		return false
	}
	if !top.IsNumeric() {
		e.fault(diag.FaultType)
		return false
	}
	e.stack.PopCount(1)
	e.stack.Push(value.Number(-top.AsNumber()))
	e.lastFault = diag.FaultNone
	return false
}

func (e *Executor) pushNumber() bool {
	f, ok := e.readF32()
	if !ok {
		e.fault(diag.FaultBounds)
		return false
	}
	e.stack.Push(value.Number(f))
	return e.ok()
}

func (e *Executor) pushString() bool {
	length, ok := e.readU32()
	if !ok {
		e.fault(diag.FaultBounds)
		return false
	}
	body, ok := e.readBytes(int(length))
	if !ok {
		e.fault(diag.FaultBounds)
		return false
	}
	e.stack.Push(value.String(string(body)))
	return e.ok()
}

func (e *Executor) popOp() bool {
	offset, ok := e.readU8()
	if !ok {
		e.fault(diag.FaultBounds)
		return false
	}
	count, ok := e.readU8()
	if !ok {
		e.fault(diag.FaultBounds)
		return false
	}
	if !e.stack.PopSplice(int(offset), int(count)) {
		e.fault(diag.FaultUnderflow)
		return false
	}
	return e.ok()
}

func (e *Executor) peekOp() bool {
	offset, ok := e.readU8()
	if !ok {
		e.fault(diag.FaultBounds)
		return false
	}
	v, ok := e.stack.Peek(int(offset))
	if !ok {
		e.fault(diag.FaultUnderflow)
		return false
	}
	e.stack.Push(v)
	return e.ok()
}

// cmp sets the flag register from the top two operands without popping
// them, then always halts the dispatch loop.
func (e *Executor) cmp() bool {
	e.flags = FlagInvalidOp
	rhs, ok1 := e.stack.Peek(0)
	lhs, ok2 := e.stack.Peek(1)
	if !ok1 || !ok2 {
		e.lastFault = diag.FaultUnderflow
		return false
	}
	if !rhs.IsNumeric() || !lhs.IsNumeric() {
		e.lastFault = diag.FaultType
		return false
	}
	e.flags = 0
	if lhs.Equal(rhs) {
		e.flags |= FlagEQ
	}
	if lhs.Less(rhs) {
		e.flags |= FlagBelow
	}
	e.lastFault = diag.FaultNone
	return false
}

// jump reads the 4-byte address operand (always, even for JMP, where pred is
// nil meaning unconditional) and only performs the jump when it is backward
// (addr < pc after the operand has been consumed). Forward jumps fall
// through silently — a documented, intentional restriction, not a bug
// (see DESIGN.md).
func (e *Executor) jump(pred func() bool) bool {
	addr, ok := e.readU32()
	if !ok {
		e.fault(diag.FaultBounds)
		return false
	}
	if (pred == nil || pred()) && int(addr) < e.pc {
		e.pc = int(addr)
	}
	return e.ok()
}

func (e *Executor) jsr() bool {
	callee, ok := e.stack.Pop()
	if !ok || !callee.IsCallable() {
		e.fault(diag.FaultType)
		return false
	}
	if callee.IsNative() {
		callee.AsNative()(e.stack)
		return e.ok()
	}
	e.calls.Push(Frame{SavedBytecode: e.code, SavedPC: e.pc})
	e.code = callee.AsBytecode()
	e.pc = 0
	return e.ok()
}

func (e *Executor) ret() bool {
	f, ok := e.calls.Pop()
	if !ok {
		// Normal top-level termination, not an error, but still
		// classified as call-stack underflow for the host's benefit.
		e.lastFault = diag.FaultCallUnderflow
		return false
	}
	e.code = f.SavedBytecode
	e.pc = f.SavedPC
	return e.ok()
}

func (e *Executor) setg() bool {
	name, ok1 := e.stack.Peek(0)
	val, ok2 := e.stack.Peek(1)
	if !ok1 || !ok2 {
		e.fault(diag.FaultUnderflow)
		return false
	}
	if !name.IsString() {
		e.fault(diag.FaultType)
		return false
	}
	e.stack.PopCount(2)
	e.globals.Set(name.AsString(), val)
	return e.ok()
}

func (e *Executor) getg() bool {
	name, ok := e.stack.Peek(0)
	if !ok {
		e.fault(diag.FaultUnderflow)
		return false
	}
	if !name.IsString() {
		e.fault(diag.FaultType)
		return false
	}
	v, present := e.globals.Get(name.AsString())
	if !present {
		e.fault(diag.FaultMissingGlobal)
		return false
	}
	e.stack.PopCount(1)
	e.stack.Push(v)
	return e.ok()
}
