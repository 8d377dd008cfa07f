package vm

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/krehermann/rigvm/diag"
	"github.com/krehermann/rigvm/value"
)

func pushN(f float32) []byte {
	buf := make([]byte, 5)
	buf[0] = byte(PushN)
	binary.LittleEndian.PutUint32(buf[1:], math.Float32bits(f))
	return buf
}

func pushS(s string) []byte {
	buf := make([]byte, 0, 5+len(s))
	buf = append(buf, byte(PushS))
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(s)))
	buf = append(buf, lenBuf[:]...)
	buf = append(buf, s...)
	return buf
}

func newExec() *Executor {
	return NewExecutor(NewGlobals())
}

func TestNegTwiceRestoresValue(t *testing.T) {
	code := append(pushN(3.5), byte(NEG), byte(NEG))
	e := newExec()
	e.LoadCode(code)
	// NEG halts the dispatch loop on success, so each Run applies one NEG;
	// the host re-enters the loop to reach the second one.
	e.Run()
	e.Run()
	top, ok := e.Stack().Peek(0)
	assert.True(t, ok)
	assert.Equal(t, float32(3.5), top.AsNumber())
}

func TestPushStringRoundTrips(t *testing.T) {
	code := pushS("hello")
	e := newExec()
	e.LoadCode(code)
	e.Run()
	top, ok := e.Stack().Peek(0)
	assert.True(t, ok)
	assert.Equal(t, "hello", top.AsString())
}

func TestPushStringBoundsFault(t *testing.T) {
	code := pushS("hello")
	code = code[:len(code)-2] // truncate the string body
	e := newExec()
	e.LoadCode(code)
	e.Run()
	assert.Equal(t, diag.FaultBounds, e.LastFault())
}

func TestPeekZeroDuplicatesTop(t *testing.T) {
	code := append(pushN(9), byte(Peek), 0)
	e := newExec()
	e.LoadCode(code)
	e.Run()
	assert.Equal(t, 2, e.Stack().Depth())
	a, _ := e.Stack().Peek(0)
	b, _ := e.Stack().Peek(1)
	assert.True(t, a.Equal(b))
}

func TestPopZeroOneInverseOfPushN(t *testing.T) {
	before := 0
	code := append(pushN(5), byte(Pop), 0, 1)
	e := newExec()
	e.LoadCode(code)
	e.Run()
	assert.Equal(t, before, e.Stack().Depth())
}

func TestArithmeticOnNonNumericHalts(t *testing.T) {
	code := append(append(pushS("a"), pushS("b")...), byte(ADD))
	e := newExec()
	e.LoadCode(code)
	e.Run()
	assert.Equal(t, diag.FaultType, e.LastFault())
	// the non-numeric operands are left on the stack untouched
	assert.Equal(t, 2, e.Stack().Depth())
}

func TestArithmeticHaltsDispatchOnSuccess(t *testing.T) {
	// ADD followed by a PUSH that must never execute, proving ADD halts
	// the loop even on success.
	code := append(append(append(pushN(2), pushN(3)...), byte(ADD)), pushN(100)...)
	e := newExec()
	e.LoadCode(code)
	e.Run()
	assert.Equal(t, 1, e.Stack().Depth())
	top, _ := e.Stack().Peek(0)
	assert.Equal(t, float32(5), top.AsNumber())
}

func TestModUsesFmodSignOfDividend(t *testing.T) {
	code := append(append(pushN(-5), pushN(3)...), byte(MOD))
	e := newExec()
	e.LoadCode(code)
	e.Run()
	top, _ := e.Stack().Peek(0)
	assert.Equal(t, float32(math.Mod(-5, 3)), top.AsNumber())
}

func TestDivByZeroPropagatesIEEE754(t *testing.T) {
	code := append(append(pushN(1), pushN(0)...), byte(DIV))
	e := newExec()
	e.LoadCode(code)
	e.Run()
	top, _ := e.Stack().Peek(0)
	assert.True(t, math.IsInf(float64(top.AsNumber()), 1))
}

func TestCmpSetsFlagsAndDoesNotPop(t *testing.T) {
	tests := []struct {
		name       string
		lhs, rhs   float32
		wantEQ     bool
		wantBelow  bool
		wantAbove  bool
	}{
		{name: "equal", lhs: 1, rhs: 1, wantEQ: true},
		{name: "below", lhs: 1, rhs: 2, wantBelow: true},
		{name: "above", lhs: 2, rhs: 1, wantAbove: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code := append(append(pushN(tt.lhs), pushN(tt.rhs)...), byte(CMP))
			e := newExec()
			e.LoadCode(code)
			e.Run()
			assert.Equal(t, 2, e.Stack().Depth(), "CMP must not pop its operands")
			assert.Equal(t, tt.wantEQ, e.Flags().has(FlagEQ))
			assert.Equal(t, tt.wantBelow, e.Flags().has(FlagBelow))
			assert.Equal(t, tt.wantAbove, e.Flags().Above())
		})
	}
}

func TestCmpNonNumericSetsInvalidOp(t *testing.T) {
	code := append(append(pushS("a"), pushN(1)...), byte(CMP))
	e := newExec()
	e.LoadCode(code)
	e.Run()
	assert.True(t, e.Flags().has(FlagInvalidOp))
}

func TestForwardJumpFallsThrough(t *testing.T) {
	// JMP's own instruction is 5 bytes (opcode + u32 addr), so pc is 5
	// once the address operand has been read. Target 5 is not strictly
	// less than pc, so the jump must not fire and PUSH_n 7 must execute
	// next.
	code := []byte{byte(JMP), 5, 0, 0, 0}
	code = append(code, pushN(7)...)
	e := newExec()
	e.LoadCode(code)
	e.Run()
	top, ok := e.Stack().Peek(0)
	assert.True(t, ok)
	assert.Equal(t, float32(7), top.AsNumber())
}

func TestBackwardJumpFires(t *testing.T) {
	// PUSH_n 3 (5 bytes) followed by JMP 0 (5 bytes). Target 0 is
	// strictly less than pc (10) once the jump's operand is read, so it
	// must fire and loop back to the PUSH_n, growing the stack on every
	// pass.
	code := pushN(3)
	code = append(code, byte(JMP))
	code = append(code, 0, 0, 0, 0)
	e := newExec()
	e.LoadCode(code)

	assert.True(t, e.RunOne()) // PUSH_n 3
	assert.Equal(t, 1, e.Stack().Depth())
	assert.True(t, e.RunOne()) // JMP 0, fires
	assert.True(t, e.RunOne()) // PUSH_n 3 again, proves pc looped back
	assert.Equal(t, 2, e.Stack().Depth())
}

func TestSetgGetgRoundTrip(t *testing.T) {
	code := append(append(pushN(64), pushS("x")...), byte(SETG))
	code = append(code, pushS("x")...)
	code = append(code, byte(GETG))
	e := newExec()
	e.LoadCode(code)
	e.Run()
	top, ok := e.Stack().Peek(0)
	assert.True(t, ok)
	assert.Equal(t, float32(64), top.AsNumber())

	v, ok := e.globals.Get("x")
	assert.True(t, ok)
	assert.Equal(t, float32(64), v.AsNumber())
}

func TestGetgMissingHalts(t *testing.T) {
	code := pushS("nope")
	code = append(code, byte(GETG))
	e := newExec()
	e.LoadCode(code)
	e.Run()
	assert.Equal(t, diag.FaultMissingGlobal, e.LastFault())
}

func TestRetWithEmptyCallStackHaltsToHost(t *testing.T) {
	e := newExec()
	e.LoadCode([]byte{byte(RET)})
	cont := e.RunOne()
	assert.False(t, cont)
	assert.Equal(t, diag.FaultCallUnderflow, e.LastFault())
}

func TestJsrNativeInvokesAndContinues(t *testing.T) {
	called := false
	native := value.NativeFn(func(s value.Stack) int {
		called = true
		arg, _ := s.Pop()
		s.Push(value.Number(arg.AsNumber() * 2))
		return 1
	})
	e := newExec()
	e.globals.Set("double", native)

	code := pushN(21)
	code = append(code, pushS("double")...)
	code = append(code, byte(GETG))
	code = append(code, byte(JSR))
	code = append(code, byte(RET))
	e.LoadCode(code)
	e.Run()

	assert.True(t, called)
	top, _ := e.Stack().Peek(0)
	assert.Equal(t, float32(42), top.AsNumber())
}

func TestJsrBytecodePushesAndPopsFrame(t *testing.T) {
	callee := append(pushN(5), byte(RET))
	e := newExec()
	e.globals.Set("five", value.Bytecode(callee))

	caller := pushS("five")
	caller = append(caller, byte(GETG))
	caller = append(caller, byte(JSR))
	e.LoadCode(caller)
	e.Run()

	top, ok := e.Stack().Peek(0)
	assert.True(t, ok)
	assert.Equal(t, float32(5), top.AsNumber())
	assert.Equal(t, 0, e.calls.Depth())
}

func TestUnknownOpcodeHalts(t *testing.T) {
	e := newExec()
	e.LoadCode([]byte{0xFE})
	cont := e.RunOne()
	assert.False(t, cont)
	assert.Equal(t, diag.FaultUnknownOp, e.LastFault())
}
