package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	app "github.com/mohammadpnp/profile-import/internal/application/profile"
	domain "github.com/mohammadpnp/profile-import/internal/domain/profile"
	"github.com/spf13/cobra"
)

func newValidateCmd(rt *runtime) *cobra.Command {
	var reportPath string

	cmd := &cobra.Command{
		Use:   "validate <file>",
		Short: "Check a CSV or XLSX import file without changing any profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd, rt, args[0], reportPath)
		},
	}

	cmd.Flags().StringVar(&reportPath, "report", "", "Write rejected rows to this CSV file")
	return cmd
}

func runValidate(cmd *cobra.Command, rt *runtime, path, reportPath string) error {
	ctx := cmd.Context()
	sessions := rt.sessions(cmd)
	defer sessions.Close()

	snap, err := createSession(ctx, cmd, rt, sessions, path)
	if err != nil {
		return err
	}
	printValidation(cmd.OutOrStdout(), snap)

	if snap.Invalid == 0 {
		return nil
	}
	if reportPath != "" {
		if err := writeReport(ctx, rt, reportPath, func(w io.Writer) error {
			return sessions.WriteValidationReport(snap.ID, w)
		}); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "validation report written to %s\n", reportPath)
	}
	return withCode(exitRejected, fmt.Errorf("%d rows failed validation", snap.Invalid))
}

func createSession(ctx context.Context, cmd *cobra.Command, rt *runtime, sessions *app.ImportSessions, path string) (app.SessionSnapshot, error) {
	body, size, err := rt.files.Open(ctx, path)
	if err != nil {
		return app.SessionSnapshot{}, withCode(exitUsage, err)
	}
	defer body.Close()

	var lastStage domain.ParseStage
	snap, err := sessions.Create(ctx, app.CreateSessionInput{
		Filename: path,
		Body:     body,
		Size:     size,
		OnProgress: func(p domain.ParseProgress) {
			if p.Stage == lastStage && p.Stage != domain.StageParsing {
				return
			}
			lastStage = p.Stage
			fmt.Fprintln(cmd.ErrOrStderr(), formatParseProgress(p))
		},
	})
	if err != nil {
		if errors.Is(err, app.ErrMalformedFile) {
			return app.SessionSnapshot{}, withCode(exitRejected, err)
		}
		return app.SessionSnapshot{}, err
	}
	return snap, nil
}

func printValidation(out io.Writer, snap app.SessionSnapshot) {
	fmt.Fprintf(out, "%s: %d new, %d existing, %d invalid\n", snap.Filename, snap.NewUsers, snap.ExistingUsers, snap.Invalid)
	for _, e := range snap.Errors {
		for _, msg := range e.Errors {
			fmt.Fprintf(out, "  row %d: %s\n", e.Row, msg)
		}
	}
}

func writeReport(ctx context.Context, rt *runtime, path string, write func(io.Writer) error) error {
	w, err := rt.files.Create(ctx, path)
	if err != nil {
		return err
	}
	if err := write(w); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}
