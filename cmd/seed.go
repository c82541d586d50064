package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/frontdesk/internal/db"
	"github.com/ziadkadry99/frontdesk/internal/profile"
	"github.com/ziadkadry99/frontdesk/internal/progress"
)

var seedCmd = &cobra.Command{
	Use:   "seed [profile.yml]",
	Short: "Load the business profile into the database",
	Long: `Loads the business profile the agent reads callers (name, hours,
services and so on) from a YAML file into the database. Without an
argument the profile_file from the config is used; --sample loads a
demo salon instead.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSeed,
}

func init() {
	seedCmd.Flags().Bool("sample", false, "load the built-in demo salon profile")
	rootCmd.AddCommand(seedCmd)
}

func runSeed(cmd *cobra.Command, args []string) error {
	sample, _ := cmd.Flags().GetBool("sample")

	var (
		items  []profile.Item
		source string
	)
	switch {
	case sample:
		items, source = profile.Sample(), "built-in sample"
	default:
		source = cfg.ProfileFile
		if len(args) == 1 {
			source = args[0]
		}
		var err error
		if items, err = profile.LoadFile(source); err != nil {
			return err
		}
		if items == nil {
			return fmt.Errorf("no profile at %s; run `frontdesk init` or pass --sample", source)
		}
	}

	database, err := db.Open(cfg.DatabasePath, cfg.StoreTimeout())
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer database.Close()
	store := profile.NewStore(database)

	reporter := progress.NewReporter()
	reporter.Start(len(items), "Seeding business profile")
	for i, it := range items {
		if err := store.Set(cmd.Context(), it.Key, it.Value); err != nil {
			return fmt.Errorf("saving %s: %w", it.Key, err)
		}
		reporter.Update(i+1, it.Key)
	}
	reporter.Finish()

	fmt.Printf("Loaded %d profile entries from %s into %s\n", len(items), source, database.Path())
	return nil
}
