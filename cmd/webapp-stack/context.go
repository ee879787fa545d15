package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newContextCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "context",
		Short: "List cached lookups",
		Long: `Context lists the lookups recorded in the context file. Delete the file to
force lookups to run again.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			zones, err := a.zones(cmd.Context())
			if err != nil {
				return err
			}
			keys, err := zones.Keys()
			if err != nil {
				return err
			}
			if len(keys) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "No cached lookups in %s\n", a.settings.ContextFile)
				return nil
			}
			for _, k := range keys {
				fmt.Fprintln(cmd.OutOrStdout(), k)
			}
			return nil
		},
	}
}
