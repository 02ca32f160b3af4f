// Package memory implements the statically sized Memory Context and the
// typed Memory Manager wrapper over it. There is no runtime allocation:
// Context is built once, sized by the constants below, and reset() clears
// it in place.
package memory

const (
	// GlobalCount is the number of 32-bit global cells.
	GlobalCount = 64
	// ArrayCount is the number of array slots.
	ArrayCount = 16
	// ArraySize is the number of 32-bit cells per array.
	ArraySize = 64
)

// Context is the fixed-size backing store for globals and arrays. Every
// field is sized at construction time and never grows.
type Context struct {
	Globals     [GlobalCount]int32
	Arrays      [ArrayCount][ArraySize]int32
	GlobalHigh  int  // highest-index+1 global ever written
	ArrayActive [ArrayCount]bool
}

// NewContext returns a zeroed Memory Context.
func NewContext() *Context {
	return &Context{}
}

// Reset zeros every cell and clears array activity.
func (c *Context) Reset() {
	for i := range c.Globals {
		c.Globals[i] = 0
	}
	for a := range c.Arrays {
		for i := range c.Arrays[a] {
			c.Arrays[a][i] = 0
		}
		c.ArrayActive[a] = false
	}
	c.GlobalHigh = 0
}
