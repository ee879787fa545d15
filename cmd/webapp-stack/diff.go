package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	wetwire "github.com/lex00/wetwire-webapp-go"
	"github.com/lex00/wetwire-webapp-go/internal/differ"
	"github.com/lex00/wetwire-webapp-go/internal/template"
)

func newDiffCmd(a *app) *cobra.Command {
	var (
		outputFormat string
		ignoreOrder  bool
		deployed     bool
	)

	cmd := &cobra.Command{
		Use:   "diff [template]",
		Short: "Compare the declared stack with a template",
		Long: `Diff synthesizes the stack and compares it with a template file, or with the
template of the deployed stack when --deployed is given.

Changes are reported per resource (added, removed, modified) and per output.

Examples:
    webapp-stack diff template.json
    webapp-stack diff --deployed
    webapp-stack diff --deployed --format json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if deployed == (len(args) == 1) {
				return errors.New("give either a template file or --deployed")
			}
			s, cfg, err := a.stack(cmd.Context())
			if err != nil {
				return err
			}
			current, err := template.FromStack(s, nil)
			if err != nil {
				return fmt.Errorf("synth failed: %w", err)
			}

			var base *wetwire.Template
			if deployed {
				engine, err := a.engine(cmd.Context())
				if err != nil {
					return err
				}
				base, err = engine.DeployedTemplate(cmd.Context(), cfg.StackName)
				if err != nil {
					return err
				}
			} else {
				base, err = differ.LoadTemplate(args[0])
				if err != nil {
					return err
				}
			}

			result, err := differ.Compare(base, current, differ.Options{IgnoreOrder: ignoreOrder})
			if err != nil {
				return err
			}
			return outputDiffResult(result, outputFormat, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&outputFormat, "format", "f", "text", "Output format: text or json")
	cmd.Flags().BoolVar(&ignoreOrder, "ignore-order", false, "Ignore array element order")
	cmd.Flags().BoolVar(&deployed, "deployed", false, "Compare with the deployed stack")

	return cmd
}

func outputDiffResult(result *differ.Result, format string, w io.Writer) error {
	switch format {
	case "json":
		data, err := json.MarshalIndent(struct {
			Diff    wetwire.TemplateDiff `json:"diff"`
			Summary wetwire.DiffSummary  `json:"summary"`
			Outputs []string             `json:"outputs,omitempty"`
		}{result.Diff, result.Summary, result.Outputs}, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(w, string(data))

	case "text":
		if result.Empty() {
			fmt.Fprintln(w, "No differences")
			return nil
		}
		for _, e := range result.Diff.Added {
			fmt.Fprintf(w, "+ %s (%s)\n", e.Resource, e.Type)
		}
		for _, e := range result.Diff.Removed {
			fmt.Fprintf(w, "- %s (%s)\n", e.Resource, e.Type)
		}
		for _, e := range result.Diff.Modified {
			fmt.Fprintf(w, "~ %s (%s)\n", e.Resource, e.Type)
			for _, c := range e.Changes {
				fmt.Fprintf(w, "    %s\n", c)
			}
		}
		for _, o := range result.Outputs {
			fmt.Fprintf(w, "  output %s\n", o)
		}
		fmt.Fprintf(w, "\n%d added, %d removed, %d modified\n",
			result.Summary.Added, result.Summary.Removed, result.Summary.Modified)

	default:
		return fmt.Errorf("unknown format: %s", format)
	}
	return nil
}
