// Package cli provides the command-line interface for the reviewcrawl application.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/echo-works/reviewcrawl/internal/app"
)

// SetApp stores the Application for commands to access
func SetApp(cmd *cobra.Command, a *app.Application) {
	globalApp = a
}

// GetAppFromCmd retrieves the Application for the running command
func GetAppFromCmd(cmd *cobra.Command) *app.Application {
	return globalApp
}

// Global reference - temporary until full context passing is implemented
var globalApp *app.Application
