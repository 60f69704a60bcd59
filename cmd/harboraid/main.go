package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/harborcrm/harborai/internal/cli"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "harboraid",
		Short: "Harbor CRM context pipeline daemon",
		Long:  "Daemon for ingesting CRM content into the vector store and serving scoped retrieval",
	}

	cli.AddHelpJSONFlag(rootCmd)
	rootCmd.AddCommand(cli.ServeCmd())
	rootCmd.AddCommand(cli.BackfillCmd())
	rootCmd.AddCommand(cli.MigrateCmd())

	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	cli.CheckHelpJSON(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
