package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	root := &cobra.Command{
		Use:     "veloce",
		Short:   "Veloce - embedding generation service with a two-tier cache",
		Version: version,
	}

	root.AddCommand(
		newServeCmd(),
		newEmbedCmd(),
		newCacheCmd(),
		newStatsCmd(),
		newAuditCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
