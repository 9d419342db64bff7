// Package assert holds invariant checks that panic when violated. They guard
// states that must be unreachable, not input validation.
package assert

import (
	"fmt"
)

// True panics with msg when cond is false
func True(cond bool, msg string, args ...any) {
	if !cond {
		panic("assert.True failed: " + fmt.Sprintf(msg, args...))
	}
}

// Length panics when value is not exactly expected bytes long
func Length(value string, expected int) {
	if len(value) != expected {
		msg := fmt.Sprintf("assert.Length expected %d actual %d", expected, len(value))
		panic(msg)
	}
}
