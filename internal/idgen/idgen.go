// Package idgen issues request ids that do not alias in-flight or recently
// completed requests.
package idgen

import "math/rand/v2"

// Generator produces request ids. Implementations must be safe for concurrent use.
type Generator interface {
	// Next returns a fresh id.
	Next() uint64
}

// Func adapts a function to Generator.
type Func func() uint64

// Next calls f.
func (f Func) Next() uint64 { return f() }

// Random draws ids from a uniform 64-bit source.
type Random struct {
	// Window rejects ids issued recently; nil disables the check.
	Window *Window
	// Source overrides the random source, mainly for tests.
	Source func() uint64
}

// NewRandom returns a generator backed by a window with the given limits.
func NewRandom(window *Window) *Random {
	return &Random{Window: window}
}

// Next returns a random id not present in the window.
func (r *Random) Next() uint64 {
	draw := rand.Uint64
	if r.Source != nil {
		draw = r.Source
	}
	for {
		id := draw()
		if r.Window == nil || r.Window.Claim(id) {
			return id
		}
	}
}
