package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	app "github.com/mohammadpnp/profile-import/internal/application/profile"
	domain "github.com/mohammadpnp/profile-import/internal/domain/profile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExitCode(t *testing.T) {
	t.Parallel()

	assert.Equal(t, exitOK, exitCode(nil))
	assert.Equal(t, exitFailure, exitCode(errors.New("boom")))
	assert.Equal(t, exitRejected, exitCode(withCode(exitRejected, errors.New("bad rows"))))
	assert.Equal(t, exitUsage, exitCode(fmt.Errorf("wrapped: %w", withCode(exitUsage, errors.New("flag")))))
}

func TestWithCodeKeepsCause(t *testing.T) {
	t.Parallel()

	cause := errors.New("cause")
	err := withCode(exitRejected, cause)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "cause", err.Error())
}

func TestExportFormat(t *testing.T) {
	t.Parallel()

	cases := []struct {
		format, out, want string
		wantErr           bool
	}{
		{format: "", out: "", want: "csv"},
		{format: "", out: "dump.xlsx", want: "xlsx"},
		{format: "", out: "dump.XLSX", want: "xlsx"},
		{format: "", out: "dump.txt", want: "csv"},
		{format: "XLSX", out: "dump.csv", want: "xlsx"},
		{format: "json", wantErr: true},
	}
	for _, tc := range cases {
		got, err := exportFormat(tc.format, tc.out)
		if tc.wantErr {
			assert.Error(t, err, "format=%q out=%q", tc.format, tc.out)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tc.want, got, "format=%q out=%q", tc.format, tc.out)
	}
}

type recordingPublisher struct {
	published []domain.BatchProgress
	expired   []time.Duration
}

func (r *recordingPublisher) Publish(_ context.Context, _ string, p domain.BatchProgress) error {
	r.published = append(r.published, p)
	return nil
}

func (r *recordingPublisher) Expire(_ context.Context, _ string, after time.Duration) error {
	r.expired = append(r.expired, after)
	return nil
}

func TestConsoleProgressPrintsOncePerBatchAndForwards(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	next := &recordingPublisher{}
	p := newConsoleProgress(&out, next)
	ctx := context.Background()

	require.NoError(t, p.Publish(ctx, "s", domain.BatchProgress{CurrentBatch: 1, TotalBatches: 2, Processed: 1, Total: 3}))
	require.NoError(t, p.Publish(ctx, "s", domain.BatchProgress{CurrentBatch: 1, TotalBatches: 2, Processed: 2, Total: 3}))
	require.NoError(t, p.Publish(ctx, "s", domain.BatchProgress{CurrentBatch: 2, TotalBatches: 2, Processed: 3, Total: 3}))
	require.NoError(t, p.Expire(ctx, "s", time.Minute))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	assert.Equal(t, []string{"batch 1/2: 1/3 rows", "batch 2/2: 3/3 rows"}, lines)
	assert.Len(t, next.published, 3)
	assert.Equal(t, []time.Duration{time.Minute}, next.expired)
}

func TestConsoleProgressWithoutNext(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	p := newConsoleProgress(&out, nil)
	require.NoError(t, p.Publish(context.Background(), "s", domain.BatchProgress{CurrentBatch: 1, TotalBatches: 1, Processed: 1, Total: 1}))
	require.NoError(t, p.Expire(context.Background(), "s", 0))
	assert.NotEmpty(t, out.String())
}

func TestFormatBatchProgress(t *testing.T) {
	t.Parallel()

	got := formatBatchProgress(domain.BatchProgress{
		CurrentBatch:           2,
		TotalBatches:           5,
		Processed:              20,
		Total:                  50,
		EstimatedTimeRemaining: 1500 * time.Millisecond,
		Errors:                 []domain.ImportError{{Row: 3}},
	})
	assert.Equal(t, "batch 2/5: 20/50 rows, 1 errors, about 2s left", got)
}

func TestPrintValidationListsEveryMessage(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	printValidation(&out, snapshotWithErrors())
	assert.Equal(t, "users.csv: 1 new, 0 existing, 1 invalid\n  row 3: email: Required\n  row 3: role: bad\n", out.String())
}

func TestPrintSummaryCancelled(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	printSummary(&out, domain.BatchSummary{Total: 4, Successful: 1, Cancelled: true, Duration: 1234 * time.Microsecond})
	assert.Equal(t, "import cancelled in 1ms: 4 total, 1 successful, 0 failed\n", out.String())
}

func snapshotWithErrors() app.SessionSnapshot {
	return app.SessionSnapshot{
		Filename: "users.csv",
		NewUsers: 1,
		Invalid:  1,
		Errors:   []domain.ValidationError{{Row: 3, Errors: []string{"email: Required", "role: bad"}}},
	}
}
