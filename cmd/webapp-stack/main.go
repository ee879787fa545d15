// Command webapp-stack synthesizes, validates and deploys the web application
// stack: a container image served by Lambda behind API Gateway on a custom
// domain.
//
// Usage:
//
//	webapp-stack synth                 Print the CloudFormation template
//	webapp-stack validate              Check the stack before deploying
//	webapp-stack diff --deployed       Compare with the deployed stack
//	webapp-stack deploy                Build, push and provision
//	webapp-stack destroy --yes         Tear the stack down
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		handleError(err)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "webapp-stack",
		Short: "Deploy a containerized web application on Lambda and API Gateway",
		Long: `webapp-stack provisions a web application from a local container build context.

The stack contains a DNS-validated certificate, an ECR repository, the image
built from the build context, a Lambda function running it, an API Gateway
REST API on a custom domain, and the A and HTTPS records for the domain.

Settings come from flags, WEBAPP_* environment variables and webapp.yaml:

    webapp-stack synth --apex example.com --subdomain www
    WEBAPP_IMAGE_TAG=v2 webapp-stack deploy`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}

	rootCmd.PersistentFlags().StringVar(&a.configPath, "config", "", "Config file (default: ./webapp.yaml)")
	a.registerFlags(rootCmd.PersistentFlags())

	rootCmd.AddCommand(
		newSynthCmd(a),
		newListCmd(a),
		newGraphCmd(a),
		newValidateCmd(a),
		newDiffCmd(a),
		newDeployCmd(a),
		newDestroyCmd(a),
		newWatchCmd(a),
		newContextCmd(a),
		newVersionCmd(),
	)
	return rootCmd
}

func handleError(err error) {
	fmt.Fprintf(os.Stderr, "Error: %s\n", err)
	os.Exit(1)
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return nil
		},
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "webapp-stack %s\n", getVersion())
		},
	}
}
