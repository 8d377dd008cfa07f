// Package nativefn supplies a small library of host-native functions that a
// VM can bind as globals: each takes the operand stack directly and
// returns the number of results it produced. These are the generic
// math/string natives an embedding host would plausibly register, such as
// a sine function bound under the name "sin".
package nativefn

import (
	"math"
	"strings"

	"github.com/krehermann/rigvm/value"
)

// unary wraps a float32->float32 host function as a Value.Native: it pops
// one numeric argument and pushes one numeric result.
func unary(fn func(float32) float32) value.Native {
	return func(stack value.Stack) int {
		arg, ok := stack.Pop()
		if !ok || !arg.IsNumeric() {
			return 0
		}
		stack.Push(value.Number(fn(arg.AsNumber())))
		return 1
	}
}

// Sin is sinf.
func Sin() value.Value { return value.NativeFn(unary(func(x float32) float32 { return float32(math.Sin(float64(x))) })) }

// Cos is cosf.
func Cos() value.Value { return value.NativeFn(unary(func(x float32) float32 { return float32(math.Cos(float64(x))) })) }

// Sqrt is sqrtf.
func Sqrt() value.Value {
	return value.NativeFn(unary(func(x float32) float32 { return float32(math.Sqrt(float64(x))) }))
}

// Abs is fabsf.
func Abs() value.Value {
	return value.NativeFn(unary(func(x float32) float32 { return float32(math.Abs(float64(x))) }))
}

// Len pops a string and pushes its byte length as a number.
func Len() value.Value {
	return value.NativeFn(func(stack value.Stack) int {
		arg, ok := stack.Pop()
		if !ok || !arg.IsString() {
			return 0
		}
		stack.Push(value.Number(float32(len(arg.AsString()))))
		return 1
	})
}

// Concat pops two strings (rhs on top, lhs beneath) and pushes their
// concatenation lhs+rhs.
func Concat() value.Value {
	return value.NativeFn(func(stack value.Stack) int {
		rhs, ok1 := stack.Pop()
		lhs, ok2 := stack.Pop()
		if !ok1 || !ok2 || !rhs.IsString() || !lhs.IsString() {
			return 0
		}
		stack.Push(value.String(lhs.AsString() + rhs.AsString()))
		return 1
	})
}

// Upper pops a string and pushes its uppercased form.
func Upper() value.Value {
	return value.NativeFn(func(stack value.Stack) int {
		arg, ok := stack.Pop()
		if !ok || !arg.IsString() {
			return 0
		}
		stack.Push(value.String(strings.ToUpper(arg.AsString())))
		return 1
	})
}

// Registry returns the standard set of natives, keyed by the global name a
// host would bind them under.
func Registry() map[string]value.Value {
	return map[string]value.Value{
		"sin":    Sin(),
		"cos":    Cos(),
		"sqrt":   Sqrt(),
		"abs":    Abs(),
		"len":    Len(),
		"concat": Concat(),
		"upper":  Upper(),
	}
}
