package log

import (
	"path/filepath"
	"runtime"
	"strconv"
)

const pkgPath = "github.com/onyx-protocol/neovm/log."

var skipFunc = map[string]bool{
	pkgPath + "Printkv":            true,
	pkgPath + "Printf":             true,
	pkgPath + "Error":              true,
	pkgPath + "Fatalkv":            true,
	pkgPath + "RecoverAndLogError": true,
}

// caller returns the file and line of the deepest function on the
// calling goroutine's stack that is not in skipFunc, or "?:?".
func caller() string {
	pc := make([]uintptr, 16)
	n := runtime.Callers(2, pc)
	frames := runtime.CallersFrames(pc[:n])
	for {
		f, more := frames.Next()
		if !skipFunc[f.Function] {
			return filepath.Base(f.File) + ":" + strconv.Itoa(f.Line)
		}
		if !more {
			return "?:?"
		}
	}
}
