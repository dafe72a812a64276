// labelsync drives the batch sync engine from the command line: one
// subcommand per record kind plus a folder mode that runs every stage in
// dependency order.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
