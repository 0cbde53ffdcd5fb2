// Command kilombo runs the CRM data layer: the configuration panel HTTP
// server, schema migrations and a connection diagnostic.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
