package profile

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	domain "github.com/mohammadpnp/profile-import/internal/domain/profile"
)

var reportHeader = []string{"Row", "Stage", "Message", "Details"}

const validationStage = "validation"

// ReportEntry is one line of an error report; both validation and batch
// errors are normalised to it.
type ReportEntry struct {
	Row     int
	Stage   string
	Message string
	Data    map[string]string
}

func EntriesFromImportErrors(errs []domain.ImportError) []ReportEntry {
	entries := make([]ReportEntry, 0, len(errs))
	for _, e := range errs {
		entries = append(entries, ReportEntry{
			Row:     e.Row,
			Stage:   string(e.Type),
			Message: e.Message,
			Data:    e.Data,
		})
	}
	return entries
}

func EntriesFromValidationErrors(errs []domain.ValidationError) []ReportEntry {
	entries := make([]ReportEntry, 0, len(errs))
	for _, e := range errs {
		entries = append(entries, ReportEntry{
			Row:     e.Row,
			Stage:   validationStage,
			Message: strings.Join(e.Errors, "; "),
		})
	}
	return entries
}

// WriteErrorReport writes entries as CSV with every field quoted. With no
// entries it writes nothing and returns ErrNothingToReport.
func WriteErrorReport(w io.Writer, entries []ReportEntry) error {
	if len(entries) == 0 {
		return ErrNothingToReport
	}

	bw := bufio.NewWriter(w)
	if err := writeQuoted(bw, reportHeader); err != nil {
		return err
	}
	for _, entry := range entries {
		record := []string{
			strconv.Itoa(entry.Row),
			entry.Stage,
			entry.Message,
			flattenData(entry.Data),
		}
		if err := writeQuoted(bw, record); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// ReportFilename builds "<context>_errors_<timestamp>.csv".
func ReportFilename(context string, now time.Time) string {
	return fmt.Sprintf("%s_errors_%s.csv", context, now.UTC().Format("2006-01-02T15-04-05Z"))
}

// flattenData renders one "key: value" line per populated key, sorted by key.
func flattenData(data map[string]string) string {
	keys := make([]string, 0, len(data))
	for key, value := range data {
		if strings.TrimSpace(value) == "" {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)

	lines := make([]string, 0, len(keys))
	for _, key := range keys {
		lines = append(lines, key+": "+data[key])
	}
	return strings.Join(lines, "\n")
}

// writeQuoted writes one RFC 4180 record quoting every field; encoding/csv
// only quotes when it has to.
func writeQuoted(w *bufio.Writer, record []string) error {
	for i, field := range record {
		if i > 0 {
			if err := w.WriteByte(','); err != nil {
				return err
			}
		}
		if _, err := w.WriteString(`"` + strings.ReplaceAll(field, `"`, `""`) + `"`); err != nil {
			return err
		}
	}
	_, err := w.WriteString("\r\n")
	return err
}
