package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/lex00/wetwire-webapp-go/internal/graph"
	"github.com/lex00/wetwire-webapp-go/internal/stack"
)

func newGraphCmd(a *app) *cobra.Command {
	var (
		outputFormat  string
		clusterByType bool
	)

	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Generate DOT graph of resource dependencies",
		Long: `Generate a DOT or Mermaid graph of the stack. Provisioning steps are drawn
as dashed ellipses between the resources they need and the resources they gate.

The output can be rendered with Graphviz:
    webapp-stack graph | dot -Tpng -o deps.png

Examples:
    webapp-stack graph
    webapp-stack graph -c              # cluster by service
    webapp-stack graph -f mermaid      # mermaid format`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, _, err := a.stack(cmd.Context())
			if err != nil {
				return err
			}
			return runGraph(s, outputFormat, clusterByType, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&outputFormat, "format", "f", "dot", "Output format: dot or mermaid")
	cmd.Flags().BoolVarP(&clusterByType, "cluster", "c", false, "Cluster resources by AWS service type")

	return cmd
}

func runGraph(s *stack.Stack, format string, cluster bool, w io.Writer) error {
	var graphFormat graph.Format
	switch format {
	case "dot":
		graphFormat = graph.FormatDOT
	case "mermaid":
		graphFormat = graph.FormatMermaid
	default:
		return fmt.Errorf("unknown format: %s (use 'dot' or 'mermaid')", format)
	}

	discovered, err := s.Discovered()
	if err != nil {
		return err
	}

	gen := &graph.Generator{
		Format:        graphFormat,
		ClusterByType: cluster,
	}
	return gen.Generate(discovered, s.DiscoveredSteps(), w)
}
