package vm

import (
	"go.uber.org/zap"

	"github.com/krehermann/rigvm/diag"
	"github.com/krehermann/rigvm/value"
)

// VM is the host-facing shell: it owns a shared global name table and an
// Executor, and exposes the host entry points — Execute, Call, and direct
// operand-stack access. The call stack is intentionally not reset between
// host calls.
type VM struct {
	globals  *Globals
	executor *Executor

	logger *zap.Logger
}

// Opt configures a new VM via the functional-options pattern.
type Opt func(*VM) *VM

// LoggerOpt attaches a zap logger; dispatch halts on faults are logged at
// Debug, as described on WithLogger.
func LoggerOpt(l *zap.Logger) Opt {
	return func(v *VM) *VM {
		v.logger = l
		return v
	}
}

// StackOptsOpt forwards operand-stack sizing options to the Executor.
func StackOptsOpt(opts ...StackOpt) Opt {
	return func(v *VM) *VM {
		v.executor.stack = NewStack(opts...)
		return v
	}
}

// NewVM constructs a VM with an empty global table and a fresh Executor.
func NewVM(opts ...Opt) *VM {
	g := NewGlobals()
	v := &VM{
		globals:  g,
		executor: NewExecutor(g),
		logger:   zap.L(),
	}
	for _, opt := range opts {
		v = opt(v)
	}
	v.logger = v.logger.Named("vm")
	v.executor.logger = v.logger
	return v
}

// SetGlobal overwrites or inserts name's global binding.
func (v *VM) SetGlobal(name string, val value.Value) {
	v.globals.Set(name, val)
}

// GetGlobal looks up name in the global table.
func (v *VM) GetGlobal(name string) (value.Value, bool) {
	return v.globals.Get(name)
}

// Push pushes v onto the operand stack, for host use before a Call.
func (v *VM) Push(val value.Value) {
	v.executor.Stack().Push(val)
}

// Peek returns the operand stack element offset positions below the top.
func (v *VM) Peek(offset int) (value.Value, bool) {
	return v.executor.Stack().Peek(offset)
}

// Pop removes and returns the topmost operand stack element.
func (v *VM) Pop() (value.Value, bool) {
	return v.executor.Stack().Pop()
}

// StackDepth reports the current operand stack depth.
func (v *VM) StackDepth() int {
	return v.executor.Stack().Depth()
}

// LastFault reports why the most recent Execute/Call halted.
func (v *VM) LastFault() diag.Fault {
	return v.executor.LastFault()
}

// Execute installs bytecode as the top-level program, runs it to halt, then
// clears the current program and returns the resulting stack depth.
func (v *VM) Execute(bytecode []byte) int32 {
	v.executor.LoadCode(bytecode)
	depth := v.executor.Run()
	v.executor.LoadCode(nil)
	return int32(depth)
}

// Call looks up name among the globals and invokes it. It returns -1 if name
// is absent or not callable. For a native global it invokes the function
// directly on the current operand stack and returns its reported result
// count. For a bytecode global it runs Execute and returns that result.
func (v *VM) Call(name string) int32 {
	callee, ok := v.globals.Get(name)
	if !ok || !callee.IsCallable() {
		return -1
	}
	if callee.IsNative() {
		return int32(callee.AsNative()(v.executor.Stack()))
	}
	return v.Execute(callee.AsBytecode())
}
