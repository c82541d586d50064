package cmd

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/frontdesk/internal/requests"
)

var requestsCmd = &cobra.Command{
	Use:   "requests",
	Short: "Inspect and answer help requests",
	Long:  `List, answer, close and purge help requests without the dashboard.`,
}

var requestsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List help requests by status",
	RunE:  runRequestsList,
}

var requestsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one help request",
	Args:  cobra.ExactArgs(1),
	RunE:  runRequestsShow,
}

var requestsResolveCmd = &cobra.Command{
	Use:   "resolve <id> <answer>",
	Short: "Answer a pending request and teach the answer to the knowledge base",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runRequestsResolve,
}

var requestsUnresolveCmd = &cobra.Command{
	Use:   "unresolve <id>",
	Short: "Close a pending request without an answer",
	Args:  cobra.ExactArgs(1),
	RunE:  runRequestsUnresolve,
}

var requestsPurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete closed requests older than the retention window",
	RunE:  runRequestsPurge,
}

func init() {
	requestsListCmd.Flags().String("status", string(requests.StatusPending), "pending, resolved or unresolved")
	requestsResolveCmd.Flags().String("by", "supervisor", "name recorded as the resolver")
	requestsUnresolveCmd.Flags().String("by", "supervisor", "name recorded as the resolver")
	requestsPurgeCmd.Flags().Int("days", 0, "retention in days (overrides retention_days)")

	requestsCmd.AddCommand(requestsListCmd)
	requestsCmd.AddCommand(requestsShowCmd)
	requestsCmd.AddCommand(requestsResolveCmd)
	requestsCmd.AddCommand(requestsUnresolveCmd)
	requestsCmd.AddCommand(requestsPurgeCmd)
	rootCmd.AddCommand(requestsCmd)
}

func runRequestsList(cmd *cobra.Command, args []string) error {
	status, _ := cmd.Flags().GetString("status")

	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	var list []requests.HelpRequest
	switch requests.Status(status) {
	case requests.StatusPending:
		list, err = a.engine.ListPending(cmd.Context())
	case requests.StatusResolved:
		list, err = a.engine.ListResolved(cmd.Context())
	case requests.StatusUnresolved:
		list, err = a.engine.ListUnresolved(cmd.Context())
	default:
		return fmt.Errorf("unknown status %q", status)
	}
	if err != nil {
		return err
	}

	if len(list) == 0 {
		fmt.Printf("No %s requests.\n", status)
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tCUSTOMER\tCREATED\tDEADLINE\tQUESTION")
	for _, r := range list {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			r.ID, r.CustomerID,
			r.CreatedAt.Local().Format(time.DateTime),
			r.Deadline.Local().Format(time.DateTime),
			truncate(r.Question, 60))
	}
	return w.Flush()
}

func runRequestsShow(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	r, err := a.engine.Get(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	printRequest(r)
	return nil
}

func runRequestsResolve(cmd *cobra.Command, args []string) error {
	by, _ := cmd.Flags().GetString("by")
	answer := strings.Join(args[1:], " ")

	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	r, err := a.engine.Resolve(cmd.Context(), args[0], answer, by)
	if err != nil {
		return err
	}
	fmt.Printf("Request %s resolved; the answer was added to the knowledge base.\n", r.ID)
	return nil
}

func runRequestsUnresolve(cmd *cobra.Command, args []string) error {
	by, _ := cmd.Flags().GetString("by")

	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	r, err := a.engine.MarkUnresolved(cmd.Context(), args[0], by)
	if err != nil {
		return err
	}
	fmt.Printf("Request %s marked unresolved.\n", r.ID)
	return nil
}

func runRequestsPurge(cmd *cobra.Command, args []string) error {
	retention := cfg.Retention()
	if days, _ := cmd.Flags().GetInt("days"); days > 0 {
		retention = time.Duration(days) * 24 * time.Hour
	}
	if retention <= 0 {
		fmt.Println("Retention is disabled; nothing purged.")
		return nil
	}

	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	before := time.Now().Add(-retention)
	n, err := a.engine.Purge(cmd.Context(), before)
	if err != nil {
		return err
	}
	if _, err := a.audit.DeleteBefore(cmd.Context(), before); err != nil {
		return fmt.Errorf("purging audit trail: %w", err)
	}
	fmt.Printf("Purged %d closed requests created before %s.\n", n, before.Local().Format(time.DateTime))
	return nil
}

func printRequest(r *requests.HelpRequest) {
	fmt.Printf("Request %s\n", r.ID)
	fmt.Printf("  Status: %s\n", r.Status)
	if r.Reason != "" {
		fmt.Printf("  Reason: %s\n", r.Reason)
	}
	fmt.Printf("  Customer: %s\n", r.CustomerID)
	fmt.Printf("  Question: %s\n", r.Question)
	fmt.Printf("  Created: %s\n", r.CreatedAt.Local().Format(time.DateTime))
	fmt.Printf("  Deadline: %s\n", r.Deadline.Local().Format(time.DateTime))
	if r.Answer != "" {
		fmt.Printf("  Answer: %s\n", r.Answer)
	}
	if r.ResolvedBy != "" {
		fmt.Printf("  Closed by: %s\n", r.ResolvedBy)
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
