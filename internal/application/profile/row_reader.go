package profile

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

const utf8BOM = "\xEF\xBB\xBF"

// RawRow is one non-blank data line keyed by header. Index counts data rows
// from zero in file order.
type RawRow struct {
	Index  int
	Values map[string]string
}

// RowReader streams the data rows of an upload. It is single-pass: a new
// reader is needed to read the file again.
type RowReader interface {
	Next() bool
	Row() RawRow
	Err() error
	// Estimate returns the expected number of data rows and the share of the
	// input consumed so far. The count is a display hint only.
	Estimate() (totalRows int, percentage float64)
	Close() error
}

// OpenRowReader picks a reader from the file extension. size is the input
// length in bytes, or zero when unknown.
func OpenRowReader(filename string, r io.Reader, size int64) (RowReader, error) {
	if strings.EqualFold(filepath.Ext(filename), ".xlsx") {
		return NewXLSXRowReader(r)
	}
	return NewCSVRowReader(r, size)
}

type csvRowReader struct {
	r      *csv.Reader
	closer io.Closer
	header []string
	size   int64
	index  int
	row    RawRow
	done   bool
	err    error
}

// NewCSVRowReader reads the header line eagerly so that a file without one
// fails before any row is produced.
func NewCSVRowReader(r io.Reader, size int64) (RowReader, error) {
	br := bufio.NewReader(r)
	if lead, err := br.Peek(len(utf8BOM)); err == nil && string(lead) == utf8BOM {
		_, _ = br.Discard(len(utf8BOM))
	}

	cr := csv.NewReader(br)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: missing header row", ErrMalformedFile)
		}
		return nil, fmt.Errorf("%w: %v", ErrMalformedFile, err)
	}

	it := &csvRowReader{r: cr, size: size, header: normalizeHeader(header)}
	if c, ok := r.(io.Closer); ok {
		it.closer = c
	}
	return it, nil
}

func (it *csvRowReader) Next() bool {
	if it.done || it.err != nil {
		return false
	}
	for {
		record, err := it.r.Read()
		if errors.Is(err, io.EOF) {
			it.done = true
			return false
		}
		if err != nil {
			it.err = fmt.Errorf("%w: %v", ErrMalformedFile, err)
			return false
		}
		if blankRecord(record) {
			continue
		}
		it.row = RawRow{Index: it.index, Values: zipRecord(it.header, record)}
		it.index++
		return true
	}
}

func (it *csvRowReader) Row() RawRow {
	return it.row
}

func (it *csvRowReader) Err() error {
	return it.err
}

func (it *csvRowReader) Estimate() (int, float64) {
	if it.done {
		return it.index, 100
	}
	offset := it.r.InputOffset()
	if it.size <= 0 || offset <= 0 || it.index == 0 {
		return it.index, 0
	}
	ratio := float64(offset) / float64(it.size)
	if ratio > 1 {
		ratio = 1
	}
	return int(float64(it.index) / ratio), ratio * 100
}

func (it *csvRowReader) Close() error {
	if it.closer != nil {
		return it.closer.Close()
	}
	return nil
}

type xlsxRowReader struct {
	f      *excelize.File
	rows   *excelize.Rows
	header []string
	total  int
	index  int
	row    RawRow
	done   bool
	err    error
}

// NewXLSXRowReader reads the first sheet of a workbook; its first row is the
// header.
func NewXLSXRowReader(r io.Reader) (RowReader, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedFile, err)
	}
	sheet := f.GetSheetName(0)
	if sheet == "" {
		f.Close()
		return nil, fmt.Errorf("%w: no sheet found", ErrMalformedFile)
	}
	rows, err := f.Rows(sheet)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: %v", ErrMalformedFile, err)
	}
	if !rows.Next() {
		rows.Close()
		f.Close()
		return nil, fmt.Errorf("%w: missing header row", ErrMalformedFile)
	}
	header, err := rows.Columns()
	if err != nil {
		rows.Close()
		f.Close()
		return nil, fmt.Errorf("%w: %v", ErrMalformedFile, err)
	}

	it := &xlsxRowReader{f: f, rows: rows, header: normalizeHeader(header)}
	if dim, err := f.GetSheetDimension(sheet); err == nil {
		if _, last, err := excelize.CellNameToCoordinates(lastCell(dim)); err == nil && last > 1 {
			it.total = last - 1
		}
	}
	return it, nil
}

func (it *xlsxRowReader) Next() bool {
	if it.done || it.err != nil {
		return false
	}
	for it.rows.Next() {
		record, err := it.rows.Columns()
		if err != nil {
			it.err = fmt.Errorf("%w: %v", ErrMalformedFile, err)
			return false
		}
		if blankRecord(record) {
			continue
		}
		it.row = RawRow{Index: it.index, Values: zipRecord(it.header, record)}
		it.index++
		return true
	}
	if err := it.rows.Error(); err != nil {
		it.err = fmt.Errorf("%w: %v", ErrMalformedFile, err)
		return false
	}
	it.done = true
	return false
}

func (it *xlsxRowReader) Row() RawRow {
	return it.row
}

func (it *xlsxRowReader) Err() error {
	return it.err
}

func (it *xlsxRowReader) Estimate() (int, float64) {
	if it.done {
		return it.index, 100
	}
	if it.total <= 0 {
		return it.index, 0
	}
	total := it.total
	if it.index > total {
		total = it.index
	}
	return total, float64(it.index) / float64(total) * 100
}

func (it *xlsxRowReader) Close() error {
	var firstErr error
	if it.rows != nil {
		if err := it.rows.Close(); err != nil {
			firstErr = err
		}
	}
	if it.f != nil {
		if err := it.f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func normalizeHeader(header []string) []string {
	out := make([]string, len(header))
	for i, col := range header {
		if i == 0 {
			col = strings.TrimPrefix(col, utf8BOM)
		}
		out[i] = strings.TrimSpace(col)
	}
	return out
}

func zipRecord(header, record []string) map[string]string {
	values := make(map[string]string, len(header))
	for i, key := range header {
		if key == "" {
			continue
		}
		if _, seen := values[key]; seen {
			continue
		}
		if i < len(record) {
			values[key] = record[i]
		} else {
			values[key] = ""
		}
	}
	return values
}

func blankRecord(record []string) bool {
	for _, cell := range record {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

func lastCell(dimension string) string {
	if i := strings.LastIndex(dimension, ":"); i >= 0 {
		return dimension[i+1:]
	}
	return dimension
}
