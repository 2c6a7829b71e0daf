package main

import (
	"fmt"
	"os"

	"github.com/erraggy/oasgate/cmd/oasgate/commands"
)

func main() {
	if err := commands.NewRootCommand(os.Stdout, os.Stderr).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
