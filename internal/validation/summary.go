package validation

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/njprem/Porder_APP_BackEnd/internal/domain"
)

type SummaryDetails struct {
	Total       int `json:"total"`
	Valid       int `json:"valid"`
	Errors      int `json:"errors"`
	Warnings    int `json:"warnings"`
	SuccessRate int `json:"successRate"`
}

// Summary is the user-facing digest of a report.
type Summary struct {
	Status  string         `json:"status"`
	Message string         `json:"message"`
	Details SummaryDetails `json:"details"`
}

func Summarize(report domain.ValidationReport) Summary {
	summary := Summary{
		Status: "success",
		Details: SummaryDetails{
			Total:       report.TotalRows,
			Valid:       report.ValidRows,
			Errors:      report.ErrorRows,
			Warnings:    report.WarningRows,
			SuccessRate: report.Summary.SuccessRate,
		},
	}
	if report.IsValid {
		summary.Message = fmt.Sprintf("모든 데이터가 유효합니다! (%d/%d행 처리 가능)", report.ValidRows, report.TotalRows)
		return summary
	}
	summary.Status = "error"
	summary.Message = fmt.Sprintf("%d개 행에서 오류가 발견되었습니다. 수정 후 다시 시도해주세요.", report.ErrorRows)
	return summary
}

var nonPhoneChars = regexp.MustCompile(`[^\d-]`)

// Sanitize returns cleaned copies of rows: cells trimmed, thousands
// separators removed from numeric fields, and contact numbers reduced to
// digits and dashes.
func Sanitize(rows []domain.Record) []domain.Record {
	out := make([]domain.Record, 0, len(rows))
	for _, rec := range rows {
		clean := domain.NewRecord()
		for _, key := range rec.Keys() {
			value := strings.TrimSpace(rec.Value(key))
			switch key {
			case domain.FieldQuantity, domain.FieldUnitPrice, domain.FieldAmount:
				value = strings.ReplaceAll(value, ",", "")
			case domain.FieldContact:
				value = nonPhoneChars.ReplaceAllString(value, "")
			}
			clean.Set(key, value)
		}
		out = append(out, clean)
	}
	return out
}
