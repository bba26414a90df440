package render

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/njprem/Porder_APP_BackEnd/internal/domain"
)

func orderRow(product, qty, price, amount string) domain.Record {
	rec := domain.NewRecord()
	rec.Set(domain.FieldProduct, product)
	rec.Set(domain.FieldQuantity, qty)
	rec.Set(domain.FieldUnitPrice, price)
	rec.Set(domain.FieldAmount, amount)
	return rec
}

func sampleRows() []domain.Record {
	return []domain.Record{
		orderRow("사과", "10", "1000", "10000"),
		orderRow("배", "5", "2000", "10000"),
	}
}

func fixedRenderer() *Renderer {
	return &Renderer{now: func() time.Time {
		return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	}}
}

func openDoc(t *testing.T, doc *Document) *excelize.File {
	t.Helper()
	f, err := excelize.OpenReader(bytes.NewReader(doc.Bytes))
	if err != nil {
		t.Fatalf("open rendered document: %v", err)
	}
	t.Cleanup(func() { _ = f.Close() })
	return f
}

func cellValue(t *testing.T, f *excelize.File, sheet, cell string) string {
	t.Helper()
	v, err := f.GetCellValue(sheet, cell)
	if err != nil {
		t.Fatalf("read %s: %v", cell, err)
	}
	return v
}

func TestRenderFreshDocument(t *testing.T) {
	doc, err := fixedRenderer().Render(sampleRows(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.UsedTemplate {
		t.Fatalf("expected fresh document")
	}
	if doc.ProcessedRows != 2 || doc.TotalRows != 2 || len(doc.Errors) != 0 {
		t.Fatalf("unexpected counts: processed=%d total=%d errors=%v", doc.ProcessedRows, doc.TotalRows, doc.Errors)
	}
	if doc.FileName != "purchase_order_2024-01-02T03-04-05.xlsx" {
		t.Fatalf("unexpected file name %q", doc.FileName)
	}

	f := openDoc(t, doc)
	if f.GetSheetName(0) != SheetName {
		t.Fatalf("expected sheet %q, got %q", SheetName, f.GetSheetName(0))
	}
	if got := cellValue(t, f, SheetName, "A1"); got != SheetName {
		t.Fatalf("expected title, got %q", got)
	}
	for col, label := range domain.TargetSchema {
		if got := cellValue(t, f, SheetName, cellName(col+1, 2)); got != label {
			t.Fatalf("header %d: expected %q, got %q", col, label, got)
		}
	}

	expected := map[string]string{
		"A3": "1", "B3": "사과", "C3": "10", "D3": "1000", "E3": "10000",
		"A4": "2", "B4": "배", "C4": "5", "D4": "2000", "E4": "10000",
		"B5": TotalLabel, "C5": "15", "E5": "20000",
	}
	for cell, want := range expected {
		if got := cellValue(t, f, SheetName, cell); got != want {
			t.Fatalf("%s: expected %q, got %q", cell, want, got)
		}
	}
}

func TestRenderEmptyRowsHasNoTotals(t *testing.T) {
	doc, err := fixedRenderer().Render(nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.ProcessedRows != 0 || doc.TotalRows != 0 {
		t.Fatalf("expected empty document, got %+v", doc)
	}
	f := openDoc(t, doc)
	if got := cellValue(t, f, SheetName, "B3"); got != "" {
		t.Fatalf("expected no totals row, got %q", got)
	}
}

func TestRenderUnreadableTemplateMatchesFresh(t *testing.T) {
	r := fixedRenderer()
	fresh, err := r.Render(sampleRows(), nil)
	if err != nil {
		t.Fatalf("fresh render: %v", err)
	}
	fallback, err := r.Render(sampleRows(), []byte("not a workbook"))
	if err != nil {
		t.Fatalf("fallback render: %v", err)
	}
	if fallback.UsedTemplate {
		t.Fatalf("garbage template must not be used")
	}
	if fallback.FileName != fresh.FileName {
		t.Fatalf("file names differ: %q vs %q", fallback.FileName, fresh.FileName)
	}

	a, b := openDoc(t, fresh), openDoc(t, fallback)
	for row := 1; row <= 6; row++ {
		for col := 1; col <= len(domain.TargetSchema); col++ {
			name := cellName(col, row)
			if x, y := cellValue(t, a, SheetName, name), cellValue(t, b, SheetName, name); x != y {
				t.Fatalf("%s: fresh %q, fallback %q", name, x, y)
			}
		}
	}
}

func buildTemplate(t *testing.T) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	if err := f.SetCellStr(sheet, "A1", "주식회사 발주처"); err != nil {
		t.Fatalf("write template: %v", err)
	}
	if err := f.SetCellStr(sheet, "A5", " no "); err != nil {
		t.Fatalf("write template: %v", err)
	}
	if err := f.SetCellFormula(sheet, "J2", "SUM(1,2)"); err != nil {
		t.Fatalf("write template formula: %v", err)
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("write template: %v", err)
	}
	return buf.Bytes()
}

func TestRenderUsesTemplateMarker(t *testing.T) {
	doc, err := fixedRenderer().Render(sampleRows(), buildTemplate(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !doc.UsedTemplate {
		t.Fatalf("expected template to be used")
	}

	f := openDoc(t, doc)
	sheet := f.GetSheetName(0)
	if got := cellValue(t, f, sheet, "A1"); got != "주식회사 발주처" {
		t.Fatalf("template content lost, got %q", got)
	}
	if got := cellValue(t, f, sheet, "A5"); got != domain.FieldSeq {
		t.Fatalf("expected header label at marker row, got %q", got)
	}
	if got := cellValue(t, f, sheet, "B6"); got != "사과" {
		t.Fatalf("expected first data row at 6, got %q", got)
	}
	if got := cellValue(t, f, sheet, "B8"); got != TotalLabel {
		t.Fatalf("expected totals at row 8, got %q", got)
	}

	formula, err := f.GetCellFormula(sheet, "J2")
	if err != nil {
		t.Fatalf("read formula: %v", err)
	}
	if formula != "" {
		t.Fatalf("expected formulas to be replaced, got %q", formula)
	}
	if got := cellValue(t, f, sheet, "J2"); got != "0" {
		t.Fatalf("formula without cached value should become 0, got %q", got)
	}
}

func TestFindDataStartDefault(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	if got := findDataStart(f, f.GetSheetName(0)); got != defaultDataStart {
		t.Fatalf("expected default start %d, got %d", defaultDataStart, got)
	}
	if err := f.SetCellStr(f.GetSheetName(0), "C2", "순번"); err != nil {
		t.Fatalf("write: %v", err)
	}
	if got := findDataStart(f, f.GetSheetName(0)); got != 3 {
		t.Fatalf("expected start 3, got %d", got)
	}
}

func TestRenderIsolatesRowFailure(t *testing.T) {
	rows := []domain.Record{
		orderRow("사과", "10", "1000", "10000"),
		orderRow(strings.Repeat("가", excelize.TotalCellChars+1), "3", "100", "300"),
		orderRow("배", "5", "2000", "10000"),
	}
	doc, err := fixedRenderer().Render(rows, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.ProcessedRows != 2 || doc.TotalRows != 3 {
		t.Fatalf("expected 2 of 3 rows, got %d of %d", doc.ProcessedRows, doc.TotalRows)
	}
	if len(doc.Errors) != 1 || doc.Errors[0].Row != 2 {
		t.Fatalf("expected one error for row 2, got %+v", doc.Errors)
	}
	if doc.Errors[0].Data.Value(domain.FieldQuantity) != "3" {
		t.Fatalf("row error should carry the source row")
	}

	f := openDoc(t, doc)
	if got := cellValue(t, f, SheetName, "B4"); got != "" {
		t.Fatalf("failed row should be blank, got %q", got)
	}
	if got := cellValue(t, f, SheetName, "B5"); got != "배" {
		t.Fatalf("rows after a failure should still be written, got %q", got)
	}
	if got := cellValue(t, f, SheetName, "C6"); got != "15" {
		t.Fatalf("totals should skip failed rows, got %q", got)
	}
}

func TestRenderBlankNumericsStayEmpty(t *testing.T) {
	doc, err := fixedRenderer().Render([]domain.Record{orderRow("사과", "", "abc", "")}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	f := openDoc(t, doc)
	for _, cell := range []string{"C3", "D3", "E3"} {
		if got := cellValue(t, f, SheetName, cell); got != "" {
			t.Fatalf("%s: expected blank, got %q", cell, got)
		}
	}
}

func TestSweepIgnoresOversizedDeclaredDimension(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	if err := f.SetCellValue(sheet, "A1", "NO"); err != nil {
		t.Fatalf("set A1: %v", err)
	}
	if err := f.SetCellFormula(sheet, "B2", "SUM(1,2)"); err != nil {
		t.Fatalf("set formula: %v", err)
	}
	if err := f.SetSheetDimension(sheet, "A1:XFD1048576"); err != nil {
		t.Fatalf("set dimension: %v", err)
	}

	maxRow, maxCol, err := usedRange(f, sheet)
	if err != nil {
		t.Fatalf("used range: %v", err)
	}
	if maxRow > 2 || maxCol > 2 {
		t.Fatalf("expected populated extent, got %d rows x %d cols", maxRow, maxCol)
	}

	if err := sweepFormulas(f, sheet, 3); err != nil {
		t.Fatalf("sweep: %v", err)
	}
	formula, err := f.GetCellFormula(sheet, "B2")
	if err != nil {
		t.Fatalf("get formula: %v", err)
	}
	if formula != "" {
		t.Fatalf("formula not replaced: %q", formula)
	}
	if v, _ := f.GetCellValue(sheet, "B2"); v != "0" {
		t.Fatalf("expected 0 in B2, got %q", v)
	}
}

func TestUsedRangeHonorsSmallDeclaredDimension(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	if err := f.SetCellValue(sheet, "A1", "NO"); err != nil {
		t.Fatalf("set A1: %v", err)
	}
	if err := f.SetSheetDimension(sheet, "A1:L40"); err != nil {
		t.Fatalf("set dimension: %v", err)
	}
	maxRow, maxCol, err := usedRange(f, sheet)
	if err != nil {
		t.Fatalf("used range: %v", err)
	}
	if maxRow != 40 || maxCol != 12 {
		t.Fatalf("expected 40 rows x 12 cols, got %d x %d", maxRow, maxCol)
	}
}
