package cmd

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/frontdesk/internal/db"
	"github.com/ziadkadry99/frontdesk/internal/knowledge"
)

var knowledgeCmd = &cobra.Command{
	Use:   "knowledge",
	Short: "Inspect the learned knowledge base",
}

var knowledgeListCmd = &cobra.Command{
	Use:   "list",
	Short: "List learned question and answer pairs",
	RunE:  runKnowledgeList,
}

var knowledgeMatchCmd = &cobra.Command{
	Use:   "match <question>",
	Short: "Show which entry, if any, would answer a question",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runKnowledgeMatch,
}

func init() {
	knowledgeCmd.AddCommand(knowledgeListCmd)
	knowledgeCmd.AddCommand(knowledgeMatchCmd)
	rootCmd.AddCommand(knowledgeCmd)
}

func openKnowledge() (*db.DB, *knowledge.Store, error) {
	database, err := db.Open(cfg.DatabasePath, cfg.StoreTimeout())
	if err != nil {
		return nil, nil, fmt.Errorf("opening database: %w", err)
	}
	return database, knowledge.NewStore(database), nil
}

func runKnowledgeList(cmd *cobra.Command, args []string) error {
	database, store, err := openKnowledge()
	if err != nil {
		return err
	}
	defer database.Close()

	entries, err := store.List(cmd.Context())
	if err != nil {
		return fmt.Errorf("listing knowledge: %w", err)
	}
	if len(entries) == 0 {
		fmt.Println("The knowledge base is empty. Answers are learned as supervisors resolve requests.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "LEARNED\tQUESTION\tANSWER\tSOURCE")
	for _, e := range entries {
		source := e.SourceRequestID
		if source == "" {
			source = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			e.CreatedAt.Local().Format(time.DateTime),
			truncate(e.Question, 50), truncate(e.Answer, 50), source)
	}
	return w.Flush()
}

func runKnowledgeMatch(cmd *cobra.Command, args []string) error {
	database, store, err := openKnowledge()
	if err != nil {
		return err
	}
	defer database.Close()

	matcher := knowledge.NewMatcher(store, cfg.Matcher.OverlapThreshold, cfg.Matcher.FuzzyThreshold)
	m, ok, err := matcher.Match(cmd.Context(), strings.Join(args, " "))
	if err != nil {
		return err
	}
	if !ok {
		fmt.Println("No match; this question would be escalated to a supervisor.")
		return nil
	}
	fmt.Printf("Matched (%s, confidence %.2f): %s\n", m.Strategy, m.Confidence, m.Entry.Question)
	fmt.Printf("  Answer: %s\n", m.Answer)
	return nil
}
