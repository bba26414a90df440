// Package tabular parses uploaded order files into header/row tables.
package tabular

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/njprem/Porder_APP_BackEnd/internal/domain"
)

type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// PreviewRows is the number of data rows returned by ReadPreview.
const PreviewRows = 20

var (
	ErrEmptyFile         = errors.New("file is empty")
	ErrNoWorksheet       = errors.New("workbook has no worksheet")
	ErrUnsupportedFormat = errors.New("unsupported file format")
)

// ParseError reports input that could not be read in its declared format.
type ParseError struct {
	Format Format
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %v", e.Format, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// FormatFromFilename picks the reader for an uploaded file name.
func FormatFromFilename(name string) (Format, error) {
	switch strings.ToLower(filepath.Ext(strings.TrimSpace(name))) {
	case ".csv":
		return FormatCSV, nil
	case ".xlsx", ".xls":
		return FormatXLSX, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(name))
	}
}

// Read parses every data row of the input.
func Read(data []byte, format Format) (*domain.Table, error) {
	return read(data, format, 0)
}

// ReadPreview parses at most limit data rows (PreviewRows when limit <= 0).
func ReadPreview(data []byte, format Format, limit int) (*domain.Table, error) {
	if limit <= 0 {
		limit = PreviewRows
	}
	return read(data, format, limit)
}

func read(data []byte, format Format, limit int) (*domain.Table, error) {
	var (
		table *domain.Table
		err   error
	)
	switch format {
	case FormatCSV:
		table, err = readCSV(data, limit)
	case FormatXLSX:
		table, err = readXLSX(data, limit)
	default:
		err = fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	if err != nil {
		return nil, &ParseError{Format: format, Err: err}
	}
	return table, nil
}

func readCSV(data []byte, limit int) (*domain.Table, error) {
	decoded, _, err := decodeText(data)
	if err != nil {
		return nil, fmt.Errorf("decode text: %w", err)
	}
	if len(bytes.TrimSpace(decoded)) == 0 {
		return nil, ErrEmptyFile
	}

	reader := csv.NewReader(bytes.NewReader(decoded))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	var headers []string
	for headers == nil {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return nil, ErrEmptyFile
		}
		if err != nil {
			return nil, err
		}
		if isRecordEmpty(record) {
			continue
		}
		headers = trimAll(record)
	}

	rows := make([]domain.Record, 0)
	for limit <= 0 || len(rows) < limit {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		row := rowToRecord(headers, trimAll(record))
		if row.IsBlank() {
			continue
		}
		rows = append(rows, row)
	}
	return &domain.Table{Headers: headers, Rows: rows}, nil
}

func readXLSX(data []byte, limit int) (*domain.Table, error) {
	if len(data) == 0 {
		return nil, ErrEmptyFile
	}
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, ErrNoWorksheet
	}
	grid, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}
	if len(grid) == 0 {
		return &domain.Table{Headers: []string{}, Rows: []domain.Record{}}, nil
	}

	headers := make([]string, len(grid[0]))
	for i, cell := range grid[0] {
		name := strings.TrimSpace(cell)
		if name == "" {
			name = "컬럼" + strconv.Itoa(i+1)
		}
		headers[i] = name
	}

	rows := make([]domain.Record, 0, len(grid)-1)
	for _, cells := range grid[1:] {
		if limit > 0 && len(rows) >= limit {
			break
		}
		row := rowToRecord(headers, trimAll(cells))
		if row.IsBlank() {
			continue
		}
		rows = append(rows, row)
	}
	return &domain.Table{Headers: headers, Rows: rows}, nil
}

func rowToRecord(headers, values []string) domain.Record {
	rec := domain.NewRecord()
	for idx, key := range headers {
		val := ""
		if idx < len(values) {
			val = values[idx]
		}
		rec.Set(key, val)
	}
	return rec
}

func trimAll(record []string) []string {
	out := make([]string, len(record))
	for i, v := range record {
		out[i] = strings.TrimSpace(v)
	}
	return out
}

func isRecordEmpty(record []string) bool {
	for _, field := range record {
		if strings.TrimSpace(field) != "" {
			return false
		}
	}
	return true
}
