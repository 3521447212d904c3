package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	domain "github.com/mohammadpnp/profile-import/internal/domain/profile"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newApplyCmd(rt *runtime) *cobra.Command {
	var reportPath string

	cmd := &cobra.Command{
		Use:   "apply <file>",
		Short: "Create and update profiles from a CSV or XLSX import file",
		Long: `Apply validates the file, then creates new profiles and updates existing
ones in batches. Rows that fail validation are skipped. Interrupting the
command cancels the run after the current row.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runApply(cmd, rt, args[0], reportPath)
		},
	}

	cmd.Flags().StringVar(&reportPath, "report", "", "Write failed rows to this CSV file")
	return cmd
}

func runApply(cmd *cobra.Command, rt *runtime, path, reportPath string) error {
	ctx := cmd.Context()
	sessions := rt.sessions(cmd)
	defer sessions.Close()

	snap, err := createSession(ctx, cmd, rt, sessions, path)
	if err != nil {
		return err
	}
	printValidation(cmd.OutOrStdout(), snap)
	if snap.NewUsers+snap.ExistingUsers == 0 {
		return withCode(exitRejected, errors.New("no valid rows to import"))
	}

	if err := sessions.Apply(snap.ID); err != nil {
		return err
	}

	summary, err := sessions.Wait(ctx, snap.ID)
	if errors.Is(err, context.Canceled) {
		rt.logger.Info("interrupted, cancelling import", zap.String("session_id", snap.ID))
		if cerr := sessions.Cancel(snap.ID); cerr != nil {
			return cerr
		}
		summary, err = sessions.Wait(context.Background(), snap.ID)
	}
	printSummary(cmd.OutOrStdout(), summary)

	if reportPath != "" && len(summary.Errors) > 0 {
		// ctx is already done after an interrupt; the partial run is still reported
		rerr := writeReport(context.WithoutCancel(ctx), rt, reportPath, func(w io.Writer) error {
			return sessions.WriteErrorReport(snap.ID, w)
		})
		switch {
		case rerr == nil:
			fmt.Fprintf(cmd.OutOrStdout(), "error report written to %s\n", reportPath)
		case err == nil:
			return rerr
		default:
			rt.logger.Warn("write error report failed", zap.String("path", reportPath), zap.Error(rerr))
		}
	}

	if err != nil {
		return err
	}
	if summary.Failed > 0 {
		return withCode(exitRejected, fmt.Errorf("%d rows failed", summary.Failed))
	}
	return nil
}

func printSummary(out io.Writer, s domain.BatchSummary) {
	status := "completed"
	if s.Cancelled {
		status = "cancelled"
	}
	fmt.Fprintf(out, "import %s in %s: %d total, %d successful, %d failed\n",
		status, s.Duration.Round(time.Millisecond), s.Total, s.Successful, s.Failed)
	for _, e := range s.Errors {
		fmt.Fprintf(out, "  row %d [%s]: %s\n", e.Row, e.Type, e.Message)
	}
}
