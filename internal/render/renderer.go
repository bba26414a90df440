// Package render writes transformed order rows into a standardized purchase
// order workbook, reusing a template when it is safe to do so.
package render

import (
	"bytes"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"

	"github.com/njprem/Porder_APP_BackEnd/internal/domain"
)

const (
	// SheetName is the worksheet name of a freshly generated document.
	SheetName = "발주서"
	// TotalLabel is written in the product column of the totals row.
	TotalLabel = "합계"

	defaultDataStart = 3
	markerScanRows   = 10
	markerScanCols   = 10
)

// ErrRender is returned when even a fresh document cannot be produced.
var ErrRender = errors.New("render purchase order")

var errNoTemplate = errors.New("no template supplied")

var seqMarkers = map[string]struct{}{"NO": {}, "번호": {}, "순번": {}}

var columnWidths = []float64{5, 20, 8, 12, 12, 15, 15, 25}

// Document is a rendered purchase order.
type Document struct {
	FileName      string
	Bytes         []byte
	ProcessedRows int
	TotalRows     int
	UsedTemplate  bool
	Errors        []domain.RowError
}

type state int

const (
	stateTryTemplate state = iota
	stateUseTemplate
	stateFreshDocument
)

func (s state) String() string {
	switch s {
	case stateTryTemplate:
		return "try-template"
	case stateUseTemplate:
		return "use-template"
	case stateFreshDocument:
		return "fresh-document"
	default:
		return "unknown"
	}
}

type Renderer struct {
	now func() time.Time
}

func NewRenderer() *Renderer {
	return &Renderer{now: time.Now}
}

// FileName is the name of a document generated at t.
func FileName(t time.Time) string {
	return "purchase_order_" + t.UTC().Format("2006-01-02T15-04-05") + ".xlsx"
}

// Render writes rows into the template when one is supplied and usable,
// and into a fresh workbook otherwise. Only a failure to produce the fresh
// workbook is returned as an error.
func (r *Renderer) Render(rows []domain.Record, template []byte) (*Document, error) {
	lines := make([]domain.OrderLine, len(rows))
	for i, rec := range rows {
		lines[i] = domain.NewOrderLine(i+1, rec)
	}
	fileName := FileName(r.now())

	var wb *excelize.File
	current := stateTryTemplate
	for {
		switch current {
		case stateTryTemplate:
			f, err := openTemplate(template)
			if err != nil {
				if !errors.Is(err, errNoTemplate) {
					log.Printf("render: template unusable, generating fresh document: %v", err)
				}
				current = stateFreshDocument
				continue
			}
			wb = f
			current = stateUseTemplate

		case stateUseTemplate:
			doc, err := fillTemplate(wb, lines)
			_ = wb.Close()
			if err != nil {
				log.Printf("render: template fill failed, generating fresh document: %v", err)
				current = stateFreshDocument
				continue
			}
			doc.FileName = fileName
			return doc, nil

		case stateFreshDocument:
			doc, err := buildFresh(lines)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrRender, err)
			}
			doc.FileName = fileName
			return doc, nil

		default:
			return nil, fmt.Errorf("%w: unexpected state %s", ErrRender, current)
		}
	}
}

func openTemplate(template []byte) (*excelize.File, error) {
	if len(template) == 0 {
		return nil, errNoTemplate
	}
	f, err := excelize.OpenReader(bytes.NewReader(template))
	if err != nil {
		return nil, fmt.Errorf("open template: %w", err)
	}
	if f.GetSheetName(0) == "" {
		_ = f.Close()
		return nil, errors.New("template has no worksheet")
	}
	return f, nil
}

func fillTemplate(f *excelize.File, lines []domain.OrderLine) (*Document, error) {
	sheet := f.GetSheetName(0)
	styles := newStyleManager(f)

	dataStart := findDataStart(f, sheet)
	for col, label := range domain.TargetSchema {
		name := cellName(col+1, dataStart-1)
		if err := f.SetCellStr(sheet, name, label); err != nil {
			return nil, fmt.Errorf("write header: %w", err)
		}
		if err := styles.bolden(sheet, name); err != nil {
			return nil, fmt.Errorf("style header: %w", err)
		}
	}

	doc := writeLines(f, sheet, dataStart, lines, 0)
	doc.UsedTemplate = true

	if doc.ProcessedRows > 0 {
		totalRow := dataStart + len(lines)
		if err := writeTotals(f, sheet, totalRow, lines, doc.Errors); err != nil {
			return nil, err
		}
		for col := 1; col <= len(domain.TargetSchema); col++ {
			if err := styles.bolden(sheet, cellName(col, totalRow)); err != nil {
				return nil, fmt.Errorf("style totals: %w", err)
			}
		}
	}

	if err := sweepFormulas(f, sheet, dataStart+len(lines)); err != nil {
		return nil, fmt.Errorf("replace formulas: %w", err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write template workbook: %w", err)
	}
	doc.Bytes = buf.Bytes()
	return doc, nil
}

func buildFresh(lines []domain.OrderLine) (*Document, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return nil, fmt.Errorf("name sheet: %w", err)
	}
	styles := newStyleManager(f)
	last := len(domain.TargetSchema)

	titleStyle, err := styles.title()
	if err != nil {
		return nil, err
	}
	if err := f.SetCellStr(SheetName, "A1", SheetName); err != nil {
		return nil, err
	}
	if err := f.MergeCell(SheetName, "A1", cellName(last, 1)); err != nil {
		return nil, fmt.Errorf("merge title: %w", err)
	}
	if err := f.SetCellStyle(SheetName, "A1", cellName(last, 1), titleStyle); err != nil {
		return nil, err
	}

	headerStyle, err := styles.header()
	if err != nil {
		return nil, err
	}
	for col, label := range domain.TargetSchema {
		if err := f.SetCellStr(SheetName, cellName(col+1, 2), label); err != nil {
			return nil, fmt.Errorf("write header: %w", err)
		}
	}
	if err := f.SetCellStyle(SheetName, "A2", cellName(last, 2), headerStyle); err != nil {
		return nil, err
	}

	dataStyle, err := styles.data()
	if err != nil {
		return nil, err
	}
	doc := writeLines(f, SheetName, defaultDataStart, lines, dataStyle)

	if doc.ProcessedRows > 0 {
		totalRow := defaultDataStart + len(lines)
		if err := writeTotals(f, SheetName, totalRow, lines, doc.Errors); err != nil {
			return nil, err
		}
		totalStyle, err := styles.totals()
		if err != nil {
			return nil, err
		}
		if err := f.SetCellStyle(SheetName, cellName(1, totalRow), cellName(last, totalRow), totalStyle); err != nil {
			return nil, err
		}
	}

	for col, width := range columnWidths {
		name, err := excelize.ColumnNumberToName(col + 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetColWidth(SheetName, name, name, width); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	doc.Bytes = buf.Bytes()
	return doc, nil
}

// writeLines writes every line starting at row start. A line that fails is
// cleared and recorded; the remaining lines are still written. A zero style
// leaves cell styles untouched.
func writeLines(f *excelize.File, sheet string, start int, lines []domain.OrderLine, style int) *Document {
	doc := &Document{
		TotalRows: len(lines),
		Errors:    make([]domain.RowError, 0),
	}
	for idx, line := range lines {
		rowNum := start + idx
		if err := writeLine(f, sheet, rowNum, line, style); err != nil {
			clearRow(f, sheet, rowNum)
			doc.Errors = append(doc.Errors, domain.RowError{
				Row:   idx + 1,
				Error: err.Error(),
				Data:  line.Source,
			})
			continue
		}
		doc.ProcessedRows++
	}
	return doc
}

func writeLine(f *excelize.File, sheet string, rowNum int, line domain.OrderLine, style int) error {
	if rowNum > excelize.TotalRows {
		return fmt.Errorf("row %d exceeds worksheet limit", rowNum)
	}
	for _, field := range [...]struct {
		name, text string
	}{
		{domain.FieldProduct, line.ProductName},
		{domain.FieldCustomer, line.CustomerName},
		{domain.FieldContact, line.Contact},
		{domain.FieldAddress, line.Address},
	} {
		if utf8.RuneCountInString(field.text) > excelize.TotalCellChars {
			return fmt.Errorf("column %s: text exceeds %d characters", field.name, excelize.TotalCellChars)
		}
	}
	values := []any{
		line.Seq,
		line.ProductName,
		intOrBlank(line.Quantity),
		floatOrBlank(line.UnitPrice),
		floatOrBlank(line.Amount),
		line.CustomerName,
		line.Contact,
		line.Address,
	}
	for col, val := range values {
		name := cellName(col+1, rowNum)
		if err := f.SetCellValue(sheet, name, val); err != nil {
			return fmt.Errorf("column %s: %w", domain.TargetSchema[col], err)
		}
	}
	if style != 0 {
		if err := f.SetCellStyle(sheet, cellName(1, rowNum), cellName(len(values), rowNum), style); err != nil {
			return err
		}
	}
	return nil
}

func clearRow(f *excelize.File, sheet string, rowNum int) {
	for col := 1; col <= len(domain.TargetSchema); col++ {
		_ = f.SetCellValue(sheet, cellName(col, rowNum), nil)
	}
}

// writeTotals sums the lines that were written. Totals are plain numbers so
// the document never depends on recalculation.
func writeTotals(f *excelize.File, sheet string, rowNum int, lines []domain.OrderLine, failed []domain.RowError) error {
	skip := make(map[int]struct{}, len(failed))
	for _, e := range failed {
		skip[e.Row] = struct{}{}
	}

	totalQty := 0
	totalAmount := 0.0
	for idx, line := range lines {
		if _, ok := skip[idx+1]; ok {
			continue
		}
		if line.Quantity != nil {
			totalQty += *line.Quantity
		}
		if line.Amount != nil {
			totalAmount += *line.Amount
		}
	}

	if err := f.SetCellStr(sheet, cellName(2, rowNum), TotalLabel); err != nil {
		return fmt.Errorf("write totals: %w", err)
	}
	if err := f.SetCellInt(sheet, cellName(3, rowNum), int64(totalQty)); err != nil {
		return fmt.Errorf("write totals: %w", err)
	}
	if err := f.SetCellFloat(sheet, cellName(5, rowNum), totalAmount, -1, 64); err != nil {
		return fmt.Errorf("write totals: %w", err)
	}
	return nil
}

// findDataStart returns the row after the sequence-number header marker,
// or the default start row when the template has none.
func findDataStart(f *excelize.File, sheet string) int {
	for row := 1; row <= markerScanRows; row++ {
		for col := 1; col <= markerScanCols; col++ {
			val, err := f.GetCellValue(sheet, cellName(col, row))
			if err != nil {
				continue
			}
			if _, ok := seqMarkers[strings.ToUpper(strings.TrimSpace(val))]; ok {
				return row + 1
			}
		}
	}
	return defaultDataStart
}

// sweepFormulas replaces every formula in the used range with its cached
// result (0 when there is none). Shared formulas cloned from templates are
// a common source of corrupt output.
func sweepFormulas(f *excelize.File, sheet string, minRows int) error {
	maxRow, maxCol, err := usedRange(f, sheet)
	if err != nil {
		return err
	}
	if maxRow < minRows {
		maxRow = minRows
	}
	if maxCol < len(domain.TargetSchema) {
		maxCol = len(domain.TargetSchema)
	}

	for row := 1; row <= maxRow; row++ {
		for col := 1; col <= maxCol; col++ {
			name := cellName(col, row)
			formula, err := f.GetCellFormula(sheet, name)
			if err != nil {
				return fmt.Errorf("cell %s: %w", name, err)
			}
			if formula == "" {
				continue
			}
			cached, err := f.GetCellValue(sheet, name, excelize.Options{RawCellValue: true})
			if err != nil {
				return fmt.Errorf("cell %s: %w", name, err)
			}
			value, ok := domain.ParseDecimal(cached)
			if !ok {
				value = 0
			}
			if err := f.SetCellFormula(sheet, name, ""); err != nil {
				return fmt.Errorf("cell %s: %w", name, err)
			}
			if err := f.SetCellFloat(sheet, name, value, -1, 64); err != nil {
				return fmt.Errorf("cell %s: %w", name, err)
			}
		}
	}
	return nil
}

// maxSweepCells bounds how much of a declared sheet dimension the sweep
// trusts. Larger declarations fall back to the cells GetRows returns.
const maxSweepCells = 100_000

// usedRange is the extent of populated cells, widened to the declared
// dimension when that stays within maxSweepCells.
func usedRange(f *excelize.File, sheet string) (int, int, error) {
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return 0, 0, err
	}
	maxRow, maxCol := len(rows), 0
	for _, r := range rows {
		if len(r) > maxCol {
			maxCol = len(r)
		}
	}

	dim, err := f.GetSheetDimension(sheet)
	if err != nil {
		return 0, 0, err
	}
	if _, end, ok := strings.Cut(dim, ":"); ok {
		if col, row, err := excelize.CellNameToCoordinates(end); err == nil && col*row <= maxSweepCells {
			if row > maxRow {
				maxRow = row
			}
			if col > maxCol {
				maxCol = col
			}
		}
	}
	return maxRow, maxCol, nil
}

func cellName(col, row int) string {
	name, _ := excelize.CoordinatesToCellName(col, row)
	return name
}

func intOrBlank(v *int) any {
	if v == nil {
		return ""
	}
	return *v
}

func floatOrBlank(v *float64) any {
	if v == nil {
		return ""
	}
	return *v
}
