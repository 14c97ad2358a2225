package vm

import (
	"fmt"
	"io"
)

// Option configures an Engine.
type Option func(*Engine)

// WithLimits replaces the default limits.
func WithLimits(l Limits) Option {
	return func(e *Engine) {
		e.limits = l
	}
}

// WithPrices replaces the default price table.
func WithPrices(p *PriceTable) Option {
	return func(e *Engine) {
		e.prices = p
	}
}

// WithFeeFactor sets the multiplier applied to every opcode price.
func WithFeeFactor(f int64) Option {
	return func(e *Engine) {
		e.feeFactor = f
	}
}

// WithInterop sets the service that handles SYSCALL and CALLT.
func WithInterop(s InteropService) Option {
	return func(e *Engine) {
		e.interop = s
	}
}

// WithTrace calls f before each instruction executes.
func WithTrace(f func(ctx *Context, inst Instruction)) Option {
	return func(e *Engine) {
		e.trace = f
	}
}

// WithTraceOut writes a line to w before each instruction executes.
func WithTraceOut(w io.Writer) Option {
	return func(e *Engine) {
		e.trace = func(ctx *Context, inst Instruction) {
			fmt.Fprintf(w, "vm %d pc %d gas %d %s", len(e.istack)-1, ctx.ip, e.gasConsumed, inst.Op)
			if len(inst.Data) > 0 {
				fmt.Fprintf(w, " %x", inst.Data)
			}
			fmt.Fprint(w, "\n")
			items := ctx.Estack().Items()
			for i := len(items) - 1; i >= 0; i-- {
				fmt.Fprintf(w, "  stack %d: %s\n", len(items)-1-i, items[i])
			}
		}
	}
}
