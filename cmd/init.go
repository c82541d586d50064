package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/frontdesk/internal/config"
	"github.com/ziadkadry99/frontdesk/internal/profile"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize frontdesk configuration with an interactive wizard",
	Long: `Runs an interactive wizard that writes .frontdesk.yml and then asks for
the business profile, saved to the configured profile file.`,
	// Runs without a valid config; it writes one.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	RunE: func(cmd *cobra.Command, args []string) error {
		base, err := config.Load(cfgFile)
		if err != nil {
			base = config.DefaultConfig()
		}

		saved, err := config.RunWizard(base, cfgFile)
		if err != nil {
			return err
		}

		current, err := profile.LoadFile(saved.ProfileFile)
		if err != nil {
			return err
		}
		items, err := profile.CollectInteractive(current)
		if err != nil {
			return err
		}
		if err := profile.SaveFile(saved.ProfileFile, items); err != nil {
			return err
		}

		fmt.Printf("\nWrote %s and %s.\n", cfgFile, saved.ProfileFile)
		fmt.Println("Run `frontdesk seed` to load the profile, then `frontdesk server`.")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
