package main

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	app "github.com/mohammadpnp/profile-import/internal/application/profile"
	"github.com/spf13/cobra"
)

func newExportCmd(rt *runtime) *cobra.Command {
	var (
		out    string
		format string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write all profiles in the import file layout",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			resolved, err := exportFormat(format, out)
			if err != nil {
				return withCode(exitUsage, err)
			}
			if out == "" {
				out = fmt.Sprintf("profiles_%s.%s", time.Now().UTC().Format("2006-01-02"), resolved)
			}
			return runExport(cmd, rt, out, resolved)
		},
	}

	cmd.Flags().StringVar(&out, "out", "", "Output file (default profiles_<date>.<format>)")
	cmd.Flags().StringVar(&format, "format", "", "csv or xlsx (default from --out extension, else csv)")
	return cmd
}

// exportFormat picks the explicit format, else the output extension, else csv.
func exportFormat(format, out string) (string, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = strings.TrimPrefix(strings.ToLower(filepath.Ext(out)), ".")
		if format != "xlsx" {
			format = "csv"
		}
	}
	if format != "csv" && format != "xlsx" {
		return "", fmt.Errorf("unsupported --format %q", format)
	}
	return format, nil
}

func runExport(cmd *cobra.Command, rt *runtime, out, format string) error {
	ctx := cmd.Context()
	exporter := app.NewExporter(rt.store)

	w, err := rt.files.Create(ctx, out)
	if err != nil {
		return err
	}
	if format == "xlsx" {
		err = exporter.WriteXLSX(ctx, w)
	} else {
		err = exporter.WriteCSV(ctx, w)
	}
	if cerr := w.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "profiles exported to %s\n", out)
	return nil
}
