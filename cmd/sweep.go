package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Close overdue pending requests once and exit",
	Long: `Runs a single timeout sweep. Useful from cron when no server is
running; the server sweeps on its own every sweep_interval_seconds.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		n, err := a.engine.SweepOnce(cmd.Context(), time.Now())
		if err != nil {
			return fmt.Errorf("sweep incomplete after %d requests: %w", n, err)
		}
		fmt.Printf("Timed out %d overdue requests.\n", n)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sweepCmd)
}
