package render

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

// styleManager caches style ids so each distinct style is registered with
// the workbook once.
type styleManager struct {
	file  *excelize.File
	cache map[string]int
}

func newStyleManager(f *excelize.File) *styleManager {
	return &styleManager{file: f, cache: make(map[string]int)}
}

func (sm *styleManager) title() (int, error) {
	return sm.getOrCreate("title", &excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 16},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
}

func (sm *styleManager) header() (int, error) {
	return sm.getOrCreate("header", &excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"E0E0E0"}},
		Border:    thinBorder(),
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
}

func (sm *styleManager) data() (int, error) {
	return sm.getOrCreate("data", &excelize.Style{
		Border: thinBorder(),
	})
}

func (sm *styleManager) totals() (int, error) {
	return sm.getOrCreate("totals", &excelize.Style{
		Font:   &excelize.Font{Bold: true},
		Fill:   excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"F0F0F0"}},
		Border: thinBorder(),
	})
}

// bolden makes a cell bold while keeping the rest of its existing style, so
// template formatting survives.
func (sm *styleManager) bolden(sheet, cell string) error {
	base, err := sm.file.GetCellStyle(sheet, cell)
	if err != nil {
		return err
	}
	key := fmt.Sprintf("bold:%d", base)
	id, ok := sm.cache[key]
	if !ok {
		style, err := sm.file.GetStyle(base)
		if err != nil {
			return err
		}
		if style.Font == nil {
			style.Font = &excelize.Font{}
		}
		style.Font.Bold = true
		if id, err = sm.file.NewStyle(style); err != nil {
			return err
		}
		sm.cache[key] = id
	}
	return sm.file.SetCellStyle(sheet, cell, cell, id)
}

func (sm *styleManager) getOrCreate(key string, style *excelize.Style) (int, error) {
	if id, ok := sm.cache[key]; ok {
		return id, nil
	}
	id, err := sm.file.NewStyle(style)
	if err != nil {
		return 0, err
	}
	sm.cache[key] = id
	return id, nil
}

func thinBorder() []excelize.Border {
	return []excelize.Border{
		{Type: "left", Color: "000000", Style: 1},
		{Type: "top", Color: "000000", Style: 1},
		{Type: "right", Color: "000000", Style: 1},
		{Type: "bottom", Color: "000000", Style: 1},
	}
}
