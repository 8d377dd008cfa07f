// Package asm is a minimal fluent bytecode builder. It exists only so tests
// and the demo command can construct well-formed programs without
// hand-encoding bytes.
package asm

import (
	"encoding/binary"
	"math"

	"github.com/krehermann/rigvm/vm"
)

// Builder accumulates bytecode for a single buffer.
type Builder struct {
	code []byte
}

// New constructs an empty Builder.
func New() *Builder {
	return &Builder{code: make([]byte, 0, 64)}
}

// Bytes returns the assembled bytecode buffer.
func (b *Builder) Bytes() []byte { return b.code }

// Len reports the current buffer length — the byte offset the next emitted
// instruction will land at, useful for computing backward jump targets.
func (b *Builder) Len() int { return len(b.code) }

func (b *Builder) op(o vm.Op) *Builder {
	b.code = append(b.code, byte(o))
	return b
}

func (b *Builder) u32(v uint32) *Builder {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	b.code = append(b.code, buf[:]...)
	return b
}

func (b *Builder) u8(v byte) *Builder {
	b.code = append(b.code, v)
	return b
}

// Nop emits NOP.
func (b *Builder) Nop() *Builder { return b.op(vm.NOP) }

// Add, Sub, Mul, Div, Mod emit the corresponding binary arithmetic opcode.
func (b *Builder) Add() *Builder { return b.op(vm.ADD) }
func (b *Builder) Sub() *Builder { return b.op(vm.SUB) }
func (b *Builder) Mul() *Builder { return b.op(vm.MUL) }
func (b *Builder) Div() *Builder { return b.op(vm.DIV) }
func (b *Builder) Mod() *Builder { return b.op(vm.MOD) }

// Neg emits NEG.
func (b *Builder) Neg() *Builder { return b.op(vm.NEG) }

// PushNumber emits PUSH_n with f as its inline f32 literal.
func (b *Builder) PushNumber(f float32) *Builder {
	b.op(vm.PushN)
	return b.u32(math.Float32bits(f))
}

// PushString emits PUSH_s with s as its inline length-prefixed literal.
func (b *Builder) PushString(s string) *Builder {
	b.op(vm.PushS)
	b.u32(uint32(len(s)))
	b.code = append(b.code, s...)
	return b
}

// Pop emits POP with the given splice offset and count.
func (b *Builder) Pop(offset, count byte) *Builder {
	b.op(vm.Pop)
	b.u8(offset)
	return b.u8(count)
}

// Peek emits PEEK with the given offset.
func (b *Builder) Peek(offset byte) *Builder {
	b.op(vm.Peek)
	return b.u8(offset)
}

// Cmp emits CMP.
func (b *Builder) Cmp() *Builder { return b.op(vm.CMP) }

// Jmp, Jeq, Jnq, Jl, Jle, Jg, Jge emit the corresponding jump with an
// absolute byte-offset target. The jump only fires when target is strictly
// less than the address just past the jump's 4-byte operand (backward jumps
// only); callers building loops should emit the target label first.
func (b *Builder) Jmp(target uint32) *Builder { return b.op(vm.JMP).u32(target) }
func (b *Builder) Jeq(target uint32) *Builder { return b.op(vm.JEQ).u32(target) }
func (b *Builder) Jnq(target uint32) *Builder { return b.op(vm.JNQ).u32(target) }
func (b *Builder) Jl(target uint32) *Builder  { return b.op(vm.JL).u32(target) }
func (b *Builder) Jle(target uint32) *Builder { return b.op(vm.JLE).u32(target) }
func (b *Builder) Jg(target uint32) *Builder  { return b.op(vm.JG).u32(target) }
func (b *Builder) Jge(target uint32) *Builder { return b.op(vm.JGE).u32(target) }

// Jsr emits JSR.
func (b *Builder) Jsr() *Builder { return b.op(vm.JSR) }

// Ret emits RET.
func (b *Builder) Ret() *Builder { return b.op(vm.RET) }

// Setg emits SETG.
func (b *Builder) Setg() *Builder { return b.op(vm.SETG) }

// Getg emits GETG.
func (b *Builder) Getg() *Builder { return b.op(vm.GETG) }
