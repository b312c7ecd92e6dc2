// BiasLens renders bias classifications onto text and HTML: span analyses
// become segment sequences, and flagged clauses are located and decorated
// inside arbitrary DOM trees.
package main

import (
	"fmt"
	"os"

	"github.com/evanlambb/biaslens/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
