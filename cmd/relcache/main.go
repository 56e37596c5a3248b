// Command relcache inspects and edits a relcache namespace stored in any of
// the supported backends. Results are printed as JSON on stdout.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
