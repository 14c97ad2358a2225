// Package env converts environment variables into Go values.
// It is similar in design to package flag: variables are declared
// with a default, then Parse reads the environment.
package env

import (
	"context"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/onyx-protocol/neovm/errors"
	"github.com/onyx-protocol/neovm/log"
)

var funcs []func() error

// define registers a parser for name. parse is only called when
// the variable is set and non-empty.
func define(name string, parse func(string) error) {
	funcs = append(funcs, func() error {
		s := os.Getenv(name)
		if s == "" {
			return nil
		}
		return errors.Wrap(parse(s), name)
	})
}

// Int returns a new int pointer. When Parse is called,
// env var name is parsed with strconv.Atoi and stored there.
func Int(name string, value int) *int {
	p := new(int)
	IntVar(p, name, value)
	return p
}

// IntVar is like Int but stores the value in p.
func IntVar(p *int, name string, value int) {
	*p = value
	define(name, func(s string) (err error) {
		*p, err = strconv.Atoi(s)
		return err
	})
}

// Int64 returns a new int64 pointer. When Parse is called,
// env var name is parsed as a base-10 int64 and stored there.
func Int64(name string, value int64) *int64 {
	p := new(int64)
	Int64Var(p, name, value)
	return p
}

// Int64Var is like Int64 but stores the value in p.
func Int64Var(p *int64, name string, value int64) {
	*p = value
	define(name, func(s string) (err error) {
		*p, err = strconv.ParseInt(s, 10, 64)
		return err
	})
}

// Bool returns a new bool pointer. Parsing uses strconv.ParseBool.
func Bool(name string, value bool) *bool {
	p := new(bool)
	BoolVar(p, name, value)
	return p
}

// BoolVar is like Bool but stores the value in p.
func BoolVar(p *bool, name string, value bool) {
	*p = value
	define(name, func(s string) (err error) {
		*p, err = strconv.ParseBool(s)
		return err
	})
}

// Duration returns a new time.Duration pointer.
// Parsing uses time.ParseDuration.
func Duration(name string, value time.Duration) *time.Duration {
	p := new(time.Duration)
	DurationVar(p, name, value)
	return p
}

// DurationVar is like Duration but stores the value in p.
func DurationVar(p *time.Duration, name string, value time.Duration) {
	*p = value
	define(name, func(s string) (err error) {
		*p, err = time.ParseDuration(s)
		return err
	})
}

// String returns a new string pointer.
func String(name string, value string) *string {
	p := new(string)
	StringVar(p, name, value)
	return p
}

// StringVar is like String but stores the value in p.
func StringVar(p *string, name string, value string) {
	*p = value
	define(name, func(s string) error {
		*p = s
		return nil
	})
}

// StringSlice returns a pointer to a slice of strings read from
// a comma-separated env var.
func StringSlice(name string, value ...string) *[]string {
	p := new([]string)
	*p = value
	define(name, func(s string) error {
		*p = strings.Split(s, ",")
		return nil
	})
	return p
}

// Check parses known env vars and assigns the values to the
// variables previously registered. It returns the first error
// after attempting every variable.
func Check() error {
	var first error
	for _, f := range funcs {
		if err := f(); err != nil {
			log.Error(context.Background(), err)
			if first == nil {
				first = err
			}
		}
	}
	return first
}

// Parse is like Check, but exits the process with status 1
// if any value cannot be parsed.
func Parse() {
	if Check() != nil {
		os.Exit(1)
	}
}
