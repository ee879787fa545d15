package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	wetwire "github.com/lex00/wetwire-webapp-go"
	"github.com/lex00/wetwire-webapp-go/internal/stack"
	"github.com/lex00/wetwire-webapp-go/internal/template"
)

func newSynthCmd(a *app) *cobra.Command {
	var (
		outputFormat string
		outputFile   string
	)

	cmd := &cobra.Command{
		Use:   "synth",
		Short: "Generate the CloudFormation template",
		Long: `Synth declares the stack and prints its CloudFormation template.

The hosted zone of the apex domain is read from the context file, or looked
up in Route 53 and recorded there, so later runs work offline.

Examples:
    webapp-stack synth
    webapp-stack synth -o template.json
    webapp-stack synth --format yaml --hosted-zone-id Z123`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, _, err := a.stack(cmd.Context())
			if err != nil {
				return err
			}
			return runSynth(s, outputFormat, outputFile, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&outputFormat, "format", "f", "json", "Output format: json or yaml")
	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file (default: stdout)")

	return cmd
}

func runSynth(s *stack.Stack, format, outputFile string, stdout io.Writer) error {
	tmpl, err := template.FromStack(s, nil)
	if err != nil {
		return fmt.Errorf("synth failed: %w", err)
	}
	result := wetwire.BuildResult{
		Success:   true,
		Template:  *tmpl,
		Resources: s.Names(),
	}
	return outputResult(result, format, outputFile, stdout)
}

func renderTemplate(t *wetwire.Template, format string) ([]byte, error) {
	switch format {
	case "json":
		return template.ToJSON(t)
	case "yaml":
		return template.ToYAML(t)
	default:
		return nil, fmt.Errorf("unknown format: %s", format)
	}
}

func outputResult(result wetwire.BuildResult, format, outputFile string, stdout io.Writer) error {
	data, err := renderTemplate(&result.Template, format)
	if err != nil {
		return err
	}
	if outputFile == "" {
		fmt.Fprintln(stdout, string(data))
		return nil
	}
	return os.WriteFile(outputFile, data, 0644)
}
