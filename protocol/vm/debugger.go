package vm

// Debugger runs an engine with breakpoints and stepping. A
// breakpoint fires once: it is removed when execution stops on it.
type Debugger struct {
	e           *Engine
	breakpoints map[*Script]map[int]bool
}

// NewDebugger returns a Debugger controlling e.
func NewDebugger(e *Engine) *Debugger {
	return &Debugger{e: e, breakpoints: make(map[*Script]map[int]bool)}
}

// Engine returns the engine being debugged.
func (d *Debugger) Engine() *Engine { return d.e }

// AddBreakPoint stops execution before the instruction at pos in s.
func (d *Debugger) AddBreakPoint(s *Script, pos int) {
	m := d.breakpoints[s]
	if m == nil {
		m = make(map[int]bool)
		d.breakpoints[s] = m
	}
	m[pos] = true
}

// RemoveBreakPoint removes a breakpoint and reports whether it
// was set.
func (d *Debugger) RemoveBreakPoint(s *Script, pos int) bool {
	m := d.breakpoints[s]
	if !m[pos] {
		return false
	}
	delete(m, pos)
	if len(m) == 0 {
		delete(d.breakpoints, s)
	}
	return true
}

// Execute runs until the engine halts, faults or reaches a
// breakpoint, in which case it returns Break.
func (d *Debugger) Execute() State {
	if d.e.state == Break {
		d.e.state = None
	}
	for d.e.state == None {
		d.step()
	}
	return d.e.state
}

// StepInto executes one instruction.
func (d *Debugger) StepInto() State {
	return d.e.Step()
}

// StepOver executes one instruction, running any context it calls
// to completion.
func (d *Debugger) StepOver() State {
	if d.e.state == Halt || d.e.state == Fault {
		return d.e.state
	}
	d.e.state = None
	depth := len(d.e.istack)
	d.step()
	for d.e.state == None && len(d.e.istack) > depth {
		d.step()
	}
	if d.e.state == None {
		d.e.state = Break
	}
	return d.e.state
}

// StepOut runs until the current context returns.
func (d *Debugger) StepOut() State {
	if d.e.state == Halt || d.e.state == Fault {
		return d.e.state
	}
	d.e.state = None
	depth := len(d.e.istack)
	for d.e.state == None && len(d.e.istack) >= depth {
		d.step()
	}
	if d.e.state == None {
		d.e.state = Break
	}
	return d.e.state
}

func (d *Debugger) step() {
	d.e.executeNext()
	if d.e.state != None || len(d.breakpoints) == 0 {
		return
	}
	ctx := d.e.CurrentContext()
	if ctx != nil && d.RemoveBreakPoint(ctx.Script(), ctx.ip) {
		d.e.state = Break
	}
}
