package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/frontdesk/internal/intake"
)

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask the front desk a question as a customer would",
	Long: `Answers the question from the knowledge base or escalates it to a
supervisor. With --wait the command keeps polling until the supervisor
answers, the request times out, or the wait elapses.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().String("customer", "cli", "customer id recorded on an escalation")
	askCmd.Flags().String("callback", "", "callback ref for answer delivery (URL or session id)")
	askCmd.Flags().Duration("wait", 0, "how long to wait for a supervisor answer")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	customer, _ := cmd.Flags().GetString("customer")
	callback, _ := cmd.Flags().GetString("callback")
	wait, _ := cmd.Flags().GetDuration("wait")

	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	out, err := a.desk.Ask(cmd.Context(), customer, strings.Join(args, " "), callback)
	if err != nil {
		return err
	}
	if out.Found {
		fmt.Println(out.Answer)
		fmt.Printf("  (%s match, confidence %.2f)\n", out.Strategy, out.Confidence)
		return nil
	}

	fmt.Println(out.Message)
	fmt.Printf("  Escalated as request %s\n", out.Request.ID)
	if wait <= 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), wait)
	defer cancel()
	answer, ok, err := a.desk.Await(ctx, out.Request.ID, intake.DefaultPollInterval)
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		fmt.Printf("No answer after %s; the request is still pending.\n", wait)
		return nil
	case err != nil:
		return err
	case !ok:
		fmt.Println("The supervisor could not answer this one.")
		return nil
	}
	fmt.Println(answer)
	return nil
}
