package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	wetwire "github.com/lex00/wetwire-webapp-go"
	"github.com/lex00/wetwire-webapp-go/internal/schema"
	"github.com/lex00/wetwire-webapp-go/internal/stack"
	"github.com/lex00/wetwire-webapp-go/internal/template"
	"github.com/lex00/wetwire-webapp-go/internal/validation"
)

var errValidationFailed = errors.New("validation failed")

func newValidateCmd(a *app) *cobra.Command {
	var (
		outputFormat string
		skipLint     bool
	)

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate the stack before deploying",
		Long: `Validate declares the stack and checks it for issues.

Checks performed:
  - Domain: records, custom domain and certificate all name subdomain.apex
  - Image gating: the function waits for the image deployment
  - Certificate: the custom domain serves the stack's certificate
  - Teardown: the repository is emptied and deleted with the stack
  - Schema: required properties, property types and allowed values
  - cfn-lint: CloudFormation validation of the synthesized template

Examples:
    webapp-stack validate
    webapp-stack validate --format json
    webapp-stack validate --skip-lint`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, cfg, err := a.stack(cmd.Context())
			if err != nil {
				return err
			}
			result, err := runValidate(s, cfg.Layout(), !skipLint)
			if err != nil {
				return err
			}
			return outputValidateResult(result, outputFormat, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&outputFormat, "format", "f", "text", "Output format: text or json")
	cmd.Flags().BoolVar(&skipLint, "skip-lint", false, "Skip cfn-lint on the synthesized template")

	return cmd
}

func runValidate(s *stack.Stack, layout validation.Layout, lint bool) (wetwire.ValidateResult, error) {
	result := wetwire.ValidateResult{
		Resources: len(s.Names()),
		Errors:    validation.CheckStack(s, layout),
	}

	tmpl, err := template.FromStack(s, nil)
	if err != nil {
		return result, fmt.Errorf("synth failed: %w", err)
	}
	schemaResult := schema.ValidateTemplate(tmpl, schema.Options{Strict: true})
	for _, issue := range schemaResult.Errors {
		result.Errors = append(result.Errors, issue.String())
	}
	for _, issue := range schemaResult.Warnings {
		result.Warnings = append(result.Warnings, issue.String())
	}

	if lint {
		lintResult, err := validation.LintTemplate(tmpl)
		if err != nil {
			return result, err
		}
		result.Errors = append(result.Errors, lintResult.Errors...)
		result.Warnings = append(result.Warnings, lintResult.Warnings...)
	}

	result.Success = len(result.Errors) == 0
	return result, nil
}

func outputValidateResult(result wetwire.ValidateResult, format string, w io.Writer) error {
	switch format {
	case "json":
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(w, string(data))

	case "text":
		if result.Success {
			fmt.Fprintf(w, "Validation passed: %d resources OK\n", result.Resources)
			for _, warnMsg := range result.Warnings {
				fmt.Fprintf(w, "  WARNING: %s\n", warnMsg)
			}
			return nil
		}

		fmt.Fprintln(w, "Validation FAILED:")
		for _, errMsg := range result.Errors {
			fmt.Fprintf(w, "  ERROR: %s\n", errMsg)
		}
		for _, warnMsg := range result.Warnings {
			fmt.Fprintf(w, "  WARNING: %s\n", warnMsg)
		}

	default:
		return fmt.Errorf("unknown format: %s", format)
	}

	if !result.Success {
		return errValidationFailed
	}
	return nil
}
