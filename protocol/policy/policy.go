// Package policy holds the protocol parameters that engines run
// under: the fee factor, the default gas limit, resource limits and
// price overrides for opcodes and syscalls. Policies are read from
// TOML files such as:
//
//	fee_factor = 30
//	gas_limit = 2000000000
//
//	[limits]
//	max_stack_size = 2048
//
//	[opcode_prices]
//	PUSHDATA1 = 8
//
//	[syscall_prices]
//	"System.Runtime.Log" = 32768
package policy

import (
	"os"
	"sort"

	"github.com/BurntSushi/toml"
	"github.com/hashicorp/go-multierror"

	"github.com/onyx-protocol/neovm/errors"
	"github.com/onyx-protocol/neovm/protocol/interop"
	"github.com/onyx-protocol/neovm/protocol/vm"
)

var ErrInvalid = errors.New("invalid policy")

// DefaultGasLimit is the gas limit of a run when a policy does not
// set one.
const DefaultGasLimit = 20 * 100000000

// Policy is a set of protocol parameters. Zero values mean the
// default.
type Policy struct {
	FeeFactor     int64            `toml:"fee_factor"`
	GasLimit      int64            `toml:"gas_limit"`
	Limits        Limits           `toml:"limits"`
	OpcodePrices  map[string]int64 `toml:"opcode_prices"`
	SyscallPrices map[string]int64 `toml:"syscall_prices"`
}

// Limits mirrors vm.Limits in a policy file.
type Limits struct {
	MaxStackSize           int `toml:"max_stack_size"`
	MaxItemCount           int `toml:"max_item_count"`
	MaxInvocationStackSize int `toml:"max_invocation_stack_size"`
	MaxItemSize            int `toml:"max_item_size"`
	MaxShift               int `toml:"max_shift"`
	MaxTryNestingDepth     int `toml:"max_try_nesting_depth"`
	MaxComparableSize      int `toml:"max_comparable_size"`
}

// Default returns the policy with every parameter at its default.
func Default() *Policy {
	return &Policy{FeeFactor: 1, GasLimit: DefaultGasLimit}
}

// Load reads and validates the policy file at path.
func Load(path string) (*Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading policy")
	}
	p, err := Parse(data)
	return p, errors.Wrap(err, path)
}

// Parse decodes and validates a policy. Unset parameters take
// their defaults. Keys the policy does not define are errors.
func Parse(data []byte) (*Policy, error) {
	p := Default()
	md, err := toml.Decode(string(data), p)
	if err != nil {
		return nil, errors.Sub(ErrInvalid, err)
	}
	var result *multierror.Error
	for _, k := range md.Undecoded() {
		result = multierror.Append(result, errors.WithDetailf(ErrInvalid, "unknown key %s", k))
	}
	if err := p.Validate(); err != nil {
		result = multierror.Append(result, err)
	}
	if err := result.ErrorOrNil(); err != nil {
		result.ErrorFormat = listFormat
		return nil, err
	}
	return p, nil
}

// Validate reports every problem with p. The result is nil or a
// *multierror.Error whose errors all have root ErrInvalid.
func (p *Policy) Validate() error {
	var result *multierror.Error
	add := func(format string, args ...interface{}) {
		result = multierror.Append(result, errors.WithDetailf(ErrInvalid, format, args...))
	}
	if p.FeeFactor <= 0 {
		add("fee_factor %d is not positive", p.FeeFactor)
	}
	if p.GasLimit < 0 {
		add("gas_limit %d is negative", p.GasLimit)
	}
	l := p.Limits
	for _, f := range []struct {
		name string
		v    int
	}{
		{"max_stack_size", l.MaxStackSize},
		{"max_item_count", l.MaxItemCount},
		{"max_invocation_stack_size", l.MaxInvocationStackSize},
		{"max_item_size", l.MaxItemSize},
		{"max_shift", l.MaxShift},
		{"max_try_nesting_depth", l.MaxTryNestingDepth},
		{"max_comparable_size", l.MaxComparableSize},
	} {
		if f.v < 0 {
			add("limits.%s %d is negative", f.name, f.v)
		}
	}
	for _, name := range sortedKeys(p.OpcodePrices) {
		if op, ok := vm.OpByName(name); !ok || !op.IsValid() {
			add("opcode_prices: unknown opcode %s", name)
		}
		if price := p.OpcodePrices[name]; price < 0 {
			add("opcode_prices.%s %d is negative", name, price)
		}
	}
	for _, name := range sortedKeys(p.SyscallPrices) {
		if _, ok := interop.DefaultRegistry.LookupName(name); !ok {
			add("syscall_prices: unknown syscall %s", name)
		}
		if price := p.SyscallPrices[name]; price < 0 {
			add("syscall_prices.%q %d is negative", name, price)
		}
	}
	if result == nil {
		return nil
	}
	result.ErrorFormat = listFormat
	return result
}

func sortedKeys(m map[string]int64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func listFormat(errs []error) string {
	msg := ""
	for i, err := range errs {
		if i > 0 {
			msg += "; "
		}
		msg += err.Error()
	}
	return msg
}

// VMLimits returns the engine limits, with defaults for unset
// fields.
func (p *Policy) VMLimits() vm.Limits {
	l := vm.DefaultLimits()
	set := func(dst *int, v int) {
		if v > 0 {
			*dst = v
		}
	}
	set(&l.MaxStackSize, p.Limits.MaxStackSize)
	set(&l.MaxItemCount, p.Limits.MaxItemCount)
	set(&l.MaxInvocationStackSize, p.Limits.MaxInvocationStackSize)
	set(&l.MaxItemSize, p.Limits.MaxItemSize)
	set(&l.MaxShift, p.Limits.MaxShift)
	set(&l.MaxTryNestingDepth, p.Limits.MaxTryNestingDepth)
	set(&l.MaxComparableSize, p.Limits.MaxComparableSize)
	return l
}

// Prices returns the default opcode prices with p's overrides.
func (p *Policy) Prices() (*vm.PriceTable, error) {
	t := vm.DefaultPrices()
	for name, price := range p.OpcodePrices {
		op, ok := vm.OpByName(name)
		if !ok {
			return nil, errors.WithDetailf(ErrInvalid, "unknown opcode %s", name)
		}
		t.Set(op, price)
	}
	return t, nil
}

// Registry returns base with p's syscall price overrides.
func (p *Policy) Registry(base *interop.Registry) (*interop.Registry, error) {
	if len(p.SyscallPrices) == 0 {
		return base, nil
	}
	return base.WithPrices(p.SyscallPrices)
}

// EngineOptions returns the engine options that apply p.
func (p *Policy) EngineOptions() ([]vm.Option, error) {
	prices, err := p.Prices()
	if err != nil {
		return nil, err
	}
	return []vm.Option{
		vm.WithLimits(p.VMLimits()),
		vm.WithPrices(prices),
		vm.WithFeeFactor(p.FeeFactor),
	}, nil
}
