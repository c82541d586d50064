package cmd

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	mcpserver "github.com/ziadkadry99/frontdesk/internal/mcp"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server for the voice agent",
	Long: `Starts a Model Context Protocol (MCP) server on stdio exposing the
help desk to a call agent: ask a question, check on an escalated request,
and read the business profile. Logs go to stderr.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		mcpserver.Version = Version

		logger.Info("frontdesk MCP server started on stdio", zap.String("database", a.db.Path()))

		srv := mcpserver.NewServer(a.desk, a.engine, a.profile)
		return srv.Serve()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
