// Command permcheck inspects runtime permission flows on Android devices.
package main

import (
	"fmt"
	"os"

	"github.com/go-drift/permissions/cmd/permcheck/cmd"
)

func main() {
	if err := cmd.Execute(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
