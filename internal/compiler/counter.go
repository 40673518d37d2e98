package compiler

import "github.com/roach88/numerus/internal/ir"

// VariableCounter hands out SSA names within one function: numbered
// temporaries for instruction results and versioned locals for bound names.
type VariableCounter struct {
	temp     int
	versions map[string]int
}

// NewVariableCounter returns a counter with no temporaries and no bindings.
func NewVariableCounter() *VariableCounter {
	return &VariableCounter{versions: make(map[string]int)}
}

// NextTemp returns a fresh temporary. The first is %_1.
func (c *VariableCounter) NextTemp() ir.Operand {
	c.temp++
	return ir.TempOf(c.temp)
}

// Temps returns how many temporaries have been handed out.
func (c *VariableCounter) Temps() int {
	return c.temp
}

// Bind makes name refer to a new local. The first binding of a name is
// version 0; every rebinding gets the next version.
func (c *VariableCounter) Bind(name string) ir.Operand {
	v, ok := c.versions[name]
	if ok {
		v++
	}
	c.versions[name] = v
	return ir.LocalOf(name, v)
}

// Lookup returns the current local for name.
func (c *VariableCounter) Lookup(name string) (ir.Operand, bool) {
	v, ok := c.versions[name]
	if !ok {
		return ir.Operand{}, false
	}
	return ir.LocalOf(name, v), true
}
