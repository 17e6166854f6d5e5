package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	root := &cobra.Command{
		Use:     "gatewayctl",
		Short:   "Operational tooling for the StreamSight inference gateway",
		Version: version,
	}

	root.AddCommand(
		newKeysCmd(),
		newMigrateCmd(),
		newSeedCmd(),
		newHistoryCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
