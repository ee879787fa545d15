package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	wetwire "github.com/lex00/wetwire-webapp-go"
	"github.com/lex00/wetwire-webapp-go/internal/stack"
)

func newListCmd(a *app) *cobra.Command {
	var outputFormat string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List declared resources and deployment stages",
		Long: `List displays every resource of the stack with its dependencies, grouped by
the deployment stage that provisions it.

Examples:
    webapp-stack list
    webapp-stack list --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, _, err := a.stack(cmd.Context())
			if err != nil {
				return err
			}
			return runList(s, outputFormat, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&outputFormat, "format", "f", "text", "Output format: text or json")

	return cmd
}

func runList(s *stack.Stack, format string, w io.Writer) error {
	discovered, err := s.Discovered()
	if err != nil {
		return err
	}

	listResult := wetwire.ListResult{
		Resources: make([]wetwire.ListResource, 0, len(discovered)),
	}
	for name, res := range discovered {
		listResult.Resources = append(listResult.Resources, wetwire.ListResource{
			Name:      name,
			Type:      res.Type,
			DependsOn: res.Dependencies,
		})
	}
	sort.Slice(listResult.Resources, func(i, j int) bool {
		return listResult.Resources[i].Name < listResult.Resources[j].Name
	})

	switch format {
	case "json":
		data, err := json.MarshalIndent(listResult, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(w, string(data))

	case "text":
		stages, err := s.Stages()
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "Declared resources (%d):\n", len(listResult.Resources))
		for _, stage := range stages {
			fmt.Fprintf(w, "\nStage %d:\n", stage.Index)
			for _, name := range stage.Resources {
				fmt.Fprintf(w, "  %s: %s\n", name, discovered[name].Type)
			}
			for _, name := range stage.Steps {
				step, _ := s.Step(name)
				fmt.Fprintf(w, "  %s: %s (step)\n", name, step.Kind())
			}
		}

	default:
		return fmt.Errorf("unknown format: %s", format)
	}

	return nil
}
