package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"quiz-server/models"
	"quiz-server/quiz"
)

// resampleCmd forces a resample without starting the server
var resampleCmd = &cobra.Command{
	Use:   "resample",
	Short: "Rebuild the working set from the subject files",
	Long: `Resamples every subject pool regardless of whether the subject files
changed. Answered questions are kept in front; unanswered ones are replaced.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cfg, logger)
		if err != nil {
			return err
		}
		ws, err := a.service.ForceResample()
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Resampled %d questions (%d answered) into %s\n",
			len(ws), len(ws.Answered()), a.store.Path())
		return nil
	},
}

var resetWrongCmd = &cobra.Command{
	Use:   "reset-wrong",
	Short: "Clear every incorrect answer so it can be retried",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cfg, logger)
		if err != nil {
			return err
		}
		before, err := a.service.Stats()
		if err != nil {
			return err
		}
		ws, err := a.service.ResetWrongAnswers()
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Reset %d wrong answers, %d of %d questions remain answered\n",
			before.Answered-before.Correct, len(ws.Answered()), len(ws))
		return nil
	},
}

// statusCmd only reads: it never samples or writes the store.
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show progress and whether the working set is stale",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cfg, logger)
		if err != nil {
			return err
		}
		ws, ok, err := a.store.Load()
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintf(cmd.OutOrStdout(), "No working set at %s yet\n", a.store.Path())
			return nil
		}
		state, _, err := a.store.LoadState()
		if err != nil {
			return err
		}
		fp, err := a.loader.Fingerprint()
		if err != nil {
			return err
		}
		printStatus(cmd.OutOrStdout(), quiz.ComputeStats(ws), state, state.Fingerprint != fp)
		return nil
	},
}

func printStatus(out io.Writer, st models.Stats, state models.StoreState, stale bool) {
	fmt.Fprintf(out, "Answered:         %d of %d (%.2f%%)\n", st.Answered, st.Total, st.AnsweredPercentage)
	fmt.Fprintf(out, "Total accuracy:   %.2f%%\n", st.TotalAccuracy)
	fmt.Fprintf(out, "Rolling accuracy: %.2f%% (last %d)\n", st.RollingAccuracy, quiz.RollingWindow)
	if !state.SavedAt.IsZero() {
		fmt.Fprintf(out, "Last saved:       %s\n", state.SavedAt.Local().Format("2006-01-02 15:04:05"))
	}
	fmt.Fprintf(out, "Stale:            %t\n\n", stale)

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SUBJECT\tQUESTIONS\tANSWERED\tCORRECT")
	for _, s := range st.Subjects {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\n", s.Subject, s.Total, s.Answered, s.Correct)
	}
	_ = tw.Flush()
}
