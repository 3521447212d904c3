package profile_test

import (
	"bytes"
	"strings"
	"testing"

	app "github.com/mohammadpnp/profile-import/internal/application/profile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func readAll(t *testing.T, reader app.RowReader) []app.RawRow {
	t.Helper()

	var rows []app.RawRow
	for reader.Next() {
		rows = append(rows, reader.Row())
	}
	require.NoError(t, reader.Err())
	return rows
}

func TestCSVRowReaderStripsBOMAndPadsShortRows(t *testing.T) {
	t.Parallel()

	body := "\xEF\xBB\xBF\"ID\", Email ,Role\n,a@x.io\n\n,b@x.io,admin,extra\n"
	reader, err := app.NewCSVRowReader(strings.NewReader(body), int64(len(body)))
	require.NoError(t, err)
	defer reader.Close()

	rows := readAll(t, reader)
	require.Len(t, rows, 2)
	assert.Equal(t, app.RawRow{Index: 0, Values: map[string]string{"ID": "", "Email": "a@x.io", "Role": ""}}, rows[0])
	assert.Equal(t, 1, rows[1].Index)
	assert.Equal(t, "admin", rows[1].Values["Role"])

	total, pct := reader.Estimate()
	assert.Equal(t, 2, total)
	assert.Equal(t, 100.0, pct)
}

func TestCSVRowReaderEstimateWhileReading(t *testing.T) {
	t.Parallel()

	var b strings.Builder
	b.WriteString("Email\n")
	for range 100 {
		b.WriteString("someone@x.io\n")
	}
	body := b.String()

	reader, err := app.NewCSVRowReader(strings.NewReader(body), int64(len(body)))
	require.NoError(t, err)

	for range 50 {
		require.True(t, reader.Next())
	}
	total, pct := reader.Estimate()
	assert.InDelta(t, 100, total, 10)
	assert.Greater(t, pct, 0.0)
	assert.Less(t, pct, 100.0)
}

func TestCSVRowReaderMissingHeader(t *testing.T) {
	t.Parallel()

	_, err := app.NewCSVRowReader(strings.NewReader(""), 0)
	assert.ErrorIs(t, err, app.ErrMalformedFile)
}

func TestOpenRowReaderPicksByExtension(t *testing.T) {
	t.Parallel()

	f := excelize.NewFile()
	defer f.Close()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]any{"Email", "Role"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]any{"a@x.io", "user"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A4", &[]any{"b@x.io"}))

	var buf bytes.Buffer
	_, err := f.WriteTo(&buf)
	require.NoError(t, err)

	reader, err := app.OpenRowReader("People.XLSX", bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)
	defer reader.Close()

	rows := readAll(t, reader)
	require.Len(t, rows, 2)
	assert.Equal(t, map[string]string{"Email": "a@x.io", "Role": "user"}, rows[0].Values)
	assert.Equal(t, map[string]string{"Email": "b@x.io", "Role": ""}, rows[1].Values)
	assert.Equal(t, 1, rows[1].Index)
}

func TestOpenRowReaderRejectsBrokenWorkbook(t *testing.T) {
	t.Parallel()

	_, err := app.OpenRowReader("broken.xlsx", strings.NewReader("not a zip"), 9)
	assert.ErrorIs(t, err, app.ErrMalformedFile)
}
