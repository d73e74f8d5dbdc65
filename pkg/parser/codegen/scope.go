package codegen

import "loxvm/pkg/chunk"

// Local is a variable living in a stack slot of the current frame.
// Depth is -1 between declaration and the end of its initializer.
type Local struct {
	Name       string
	Depth      int
	IsCaptured bool
}

// Upvalue records where a closure finds a captured variable when it is
// created: a local slot of the enclosing function, or one of its upvalues.
type Upvalue struct {
	Index   byte
	IsLocal bool
}

// ScopeDepth returns 0 at top level, more inside blocks
func (c *Codegen) ScopeDepth() int {
	return c.scopeDepth
}

func (c *Codegen) BeginScope() {
	c.scopeDepth++
}

// EndScope discards the locals of the innermost block, newest first.
// Captured ones are moved to the heap instead of being popped.
func (c *Codegen) EndScope(line int) {
	c.scopeDepth--

	for c.localCount > 0 && c.locals[c.localCount-1].Depth > c.scopeDepth {
		if c.locals[c.localCount-1].IsCaptured {
			c.EmitOp(line, chunk.OP_CLOSE_UPVALUE)
		} else {
			c.EmitOp(line, chunk.OP_POP)
		}
		c.localCount--
	}
}

// LocalCount returns the number of occupied slots, slot 0 included
func (c *Codegen) LocalCount() int {
	return c.localCount
}

// DeclaredInScope reports whether name is already a local of the innermost scope
func (c *Codegen) DeclaredInScope(name string) bool {
	for i := c.localCount - 1; i >= 0; i-- {
		local := &c.locals[i]
		if local.Depth != -1 && local.Depth < c.scopeDepth {
			break
		}
		if local.Name == name {
			return true
		}
	}
	return false
}

// AddLocal declares an uninitialized local
func (c *Codegen) AddLocal(name string) error {
	if c.localCount == MaxLocals {
		return ErrTooManyLocals
	}

	c.locals[c.localCount] = Local{Name: name, Depth: -1}
	c.localCount++
	return nil
}

// MarkInitialized makes the newest local visible. Globals need no marking.
func (c *Codegen) MarkInitialized() {
	if c.scopeDepth == 0 {
		return
	}
	c.locals[c.localCount-1].Depth = c.scopeDepth
}

// ResolveLocal returns the slot of name, or -1 when it is not a local.
// Reading a local inside its own initializer returns the slot and ErrOwnInitializer.
func (c *Codegen) ResolveLocal(name string) (int, error) {
	for i := c.localCount - 1; i >= 0; i-- {
		local := &c.locals[i]
		if local.Name == name {
			if local.Depth == -1 {
				return i, ErrOwnInitializer
			}
			return i, nil
		}
	}
	return -1, nil
}

// ResolveUpvalue returns the upvalue index of name captured from an enclosing
// function, or -1 when no enclosing function declares it.
func (c *Codegen) ResolveUpvalue(name string) (int, error) {
	if c.Enclosing == nil {
		return -1, nil
	}

	local, err := c.Enclosing.ResolveLocal(name)
	if err != nil {
		return -1, err
	}
	if local != -1 {
		c.Enclosing.locals[local].IsCaptured = true
		return c.addUpvalue(byte(local), true)
	}

	upvalue, err := c.Enclosing.ResolveUpvalue(name)
	if err != nil || upvalue == -1 {
		return -1, err
	}
	return c.addUpvalue(byte(upvalue), false)
}

func (c *Codegen) addUpvalue(index byte, isLocal bool) (int, error) {
	for i := 0; i < c.upvalueCount; i++ {
		up := &c.upvalues[i]
		if up.Index == index && up.IsLocal == isLocal {
			return i, nil
		}
	}

	if c.upvalueCount == MaxUpvalues {
		return 0, ErrTooManyUpvalues
	}

	c.upvalues[c.upvalueCount] = Upvalue{Index: index, IsLocal: isLocal}
	c.upvalueCount++
	return c.upvalueCount - 1, nil
}

// Upvalues returns the captures of the function, in upvalue index order
func (c *Codegen) Upvalues() []Upvalue {
	return c.upvalues[:c.upvalueCount]
}
