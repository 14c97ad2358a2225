package errors_test

import (
	"fmt"

	"github.com/onyx-protocol/neovm/errors"
)

var ErrInteropFailure = errors.New("interop failure")

func ExampleSub() {
	err := errors.Sub(ErrInteropFailure, errors.New("key too long"))
	fmt.Println(errors.Root(err) == ErrInteropFailure)
	fmt.Println(err)
	// Output:
	// true
	// interop failure: key too long
}
