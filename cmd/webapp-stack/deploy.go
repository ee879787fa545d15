package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	wetwire "github.com/lex00/wetwire-webapp-go"
)

func newDeployCmd(a *app) *cobra.Command {
	var outputFormat string

	cmd := &cobra.Command{
		Use:   "deploy",
		Short: "Build, push and provision the stack",
		Long: `Deploy provisions the stack in stages. The first stage creates the
repository and everything that does not need the image; the image is then
built from the build context and pushed; the last stage creates the function
and the API in front of it.

Re-deploying unchanged settings leaves the stack unchanged.

Examples:
    webapp-stack deploy
    webapp-stack deploy --image-tag v2 --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.deployableStack(cmd.Context())
			if err != nil {
				return err
			}
			engine, err := a.engine(cmd.Context())
			if err != nil {
				return err
			}
			result, deployErr := engine.Deploy(cmd.Context(), s)
			if result == nil {
				return deployErr
			}
			if err := outputDeployResult(*result, outputFormat, cmd.OutOrStdout()); err != nil {
				return err
			}
			return deployErr
		},
	}

	cmd.Flags().StringVarP(&outputFormat, "format", "f", "text", "Output format: text or json")

	return cmd
}

func outputDeployResult(result wetwire.DeployResult, format string, w io.Writer) error {
	switch format {
	case "json":
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(w, string(data))

	case "text":
		for _, stage := range result.Stages {
			fmt.Fprintf(w, "Stage %d: %s (%d resources)\n", stage.Index, stage.Status, len(stage.Resources))
			for _, step := range stage.Steps {
				fmt.Fprintf(w, "  ran %s\n", step)
			}
		}
		if !result.Success {
			for _, e := range result.Errors {
				fmt.Fprintf(w, "  ERROR: %s\n", e)
			}
			return nil
		}
		keys := make([]string, 0, len(result.Outputs))
		for k := range result.Outputs {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		fmt.Fprintf(w, "\nStack %s deployed\n", result.Stack)
		for _, k := range keys {
			fmt.Fprintf(w, "  %s = %s\n", k, result.Outputs[k])
		}

	default:
		return fmt.Errorf("unknown format: %s", format)
	}
	return nil
}

func newDestroyCmd(a *app) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "destroy",
		Short: "Delete the stack",
		Long: `Destroy deletes the stack and every resource in it. The image repository is
emptied first, so pushed images are deleted as well.

Examples:
    webapp-stack destroy --yes`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return errors.New("destroy deletes every resource in the stack; pass --yes to confirm")
			}
			engine, err := a.engine(cmd.Context())
			if err != nil {
				return err
			}
			name := a.settings.Webapp.StackName
			if err := engine.Destroy(cmd.Context(), name); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Stack %s destroyed\n", name)
			return nil
		},
	}

	cmd.Flags().BoolVar(&yes, "yes", false, "Confirm deletion")

	return cmd
}
