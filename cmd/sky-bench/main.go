// sky-bench measures full-scan speed over one object file.
//
// It opens the object file, walks every path and event with a PathIterator
// and Cursor the requested number of times, and reports the event count and
// wall-clock time.
package main

import (
	"fmt"
	"os"
)

var version = "0.1.0"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
