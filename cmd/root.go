package cmd

import (
	"errors"
	"os"

	"github.com/spf13/cobra"

	"supermcp/internal/oauthprovider"
)

// Exit codes for CLI commands.
const (
	// ExitCodeSuccess indicates successful execution.
	ExitCodeSuccess = 0
	// ExitCodeError indicates a general error (command failed, invalid arguments).
	ExitCodeError = 1
	// ExitCodeAuthRequired indicates authentication is required but not available.
	ExitCodeAuthRequired = 2
	// ExitCodeAuthFailed indicates the OAuth flow failed.
	ExitCodeAuthFailed = 3
)

// rootCmd is the entry point when supermcp is invoked without a subcommand.
var rootCmd = &cobra.Command{
	Use:   "supermcp",
	Short: "Aggregate many MCP servers behind one router",
	Long: `supermcp exposes one MCP server surface to an agent while multiplexing
requests across many upstream MCP servers, whether they speak stdio or
HTTP/SSE and whether or not they require OAuth.`,
	SilenceUsage: true,
}

// SetVersion sets the version for the root command. main calls this with a
// build-time injected version string.
func SetVersion(v string) {
	rootCmd.Version = v
}

// GetVersion returns the current version of the application.
func GetVersion() string {
	return rootCmd.Version
}

// Execute is the entry point called by main.main().
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "supermcp version %s\n" .Version}}`)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(getExitCode(err))
	}
}

// getExitCode maps an error returned from a RunE function to a process exit
// code scripts can branch on.
func getExitCode(err error) int {
	var authRequired *oauthprovider.AuthRequiredError
	if errors.As(err, &authRequired) {
		return ExitCodeAuthRequired
	}

	var unauthorized *oauthprovider.UnauthorizedError
	if errors.As(err, &unauthorized) {
		return ExitCodeAuthRequired
	}

	var invalidToken *oauthprovider.InvalidTokenError
	if errors.As(err, &invalidToken) {
		return ExitCodeAuthFailed
	}

	return ExitCodeError
}
