package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	app "github.com/mohammadpnp/profile-import/internal/application/profile"
	"github.com/mohammadpnp/profile-import/internal/bootstrap"
	"github.com/mohammadpnp/profile-import/internal/config"
	domain "github.com/mohammadpnp/profile-import/internal/domain/profile"
	infrafile "github.com/mohammadpnp/profile-import/internal/infrastructure/file"
	"github.com/mohammadpnp/profile-import/internal/infrastructure/repository"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const (
	exitOK       = 0
	exitFailure  = 1
	exitUsage    = 2
	exitRejected = 3
)

type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func withCode(code int, err error) error {
	return &exitError{code: code, err: err}
}

func exitCode(err error) int {
	if err == nil {
		return exitOK
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	return exitFailure
}

type profileStore interface {
	domain.ProfileStore
	ListProfiles(ctx context.Context) ([]domain.Profile, error)
}

// runtime is what every subcommand needs once config is loaded.
type runtime struct {
	cfg      *config.Config
	logger   *zap.Logger
	infra    *bootstrap.Infra
	files    *infrafile.LocalFiles
	store    profileStore
	runs     domain.ImportRunRepository
	progress domain.ProgressPublisher
}

func newRootCmd() *cobra.Command {
	var (
		baseDir string
		rt      runtime
	)

	root := &cobra.Command{
		Use:           "importer",
		Short:         "Validate, apply and export profile import files",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logger, err := bootstrap.NewLogger(cfg.Log.Level)
			if err != nil {
				return withCode(exitUsage, err)
			}
			infra, err := bootstrap.OpenInfra(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}

			rt.cfg = cfg
			rt.logger = logger
			rt.infra = infra
			rt.files = infrafile.NewLocalFiles(baseDir)
			rt.store = repository.NewStore(infra.DB, infra.Pool)
			rt.runs = repository.NewImportRunRepository(infra.DB)
			if infra.Publisher != nil {
				rt.progress = infra.Publisher
			}
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if rt.infra != nil {
				rt.infra.Close()
			}
			if rt.logger != nil {
				_ = rt.logger.Sync()
			}
		},
	}

	root.PersistentFlags().StringVar(&baseDir, "base-dir", ".", "Directory relative paths are resolved against")

	root.AddCommand(newValidateCmd(&rt))
	root.AddCommand(newApplyCmd(&rt))
	root.AddCommand(newExportCmd(&rt))
	return root
}

// sessions builds a session manager whose batch progress is echoed to the
// command's stderr.
func (rt *runtime) sessions(cmd *cobra.Command) *app.ImportSessions {
	return app.NewImportSessions(rt.store, rt.runs, newConsoleProgress(cmd.ErrOrStderr(), rt.progress), app.ImportSessionsConfig{
		BatchSize: rt.cfg.Import.BatchSize,
		TTL:       rt.cfg.Import.SessionTTL,
	}, rt.logger)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
	}
	os.Exit(exitCode(err))
}
