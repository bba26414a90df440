// Package validation checks parsed order rows against the purchase order
// schema. It never fails: every problem becomes an entry in the report.
package validation

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/njprem/Porder_APP_BackEnd/internal/domain"
)

// RequiredColumns must appear in the header row of an upload.
var RequiredColumns = []string{domain.FieldProduct, domain.FieldQuantity}

// LowPriceThreshold is the unit price under which a row is flagged.
const LowPriceThreshold = 100

var phonePattern = regexp.MustCompile(`^010-\d{4}-\d{4}$|^\d{2,3}-\d{3,4}-\d{4}$`)

type orderRow struct {
	ProductName string `validate:"required"`
	Quantity    string `validate:"omitempty,posint"`
	UnitPrice   string `validate:"omitempty,posnum"`
	Contact     string `validate:"omitempty,phone"`
}

type rule struct {
	tag string
	fn  validator.Func
}

var rowRules = []rule{
	{tag: "posint", fn: func(fl validator.FieldLevel) bool {
		n, ok := domain.ParseDecimal(fl.Field().String())
		return ok && n > 0 && n == math.Trunc(n)
	}},
	{tag: "posnum", fn: func(fl validator.FieldLevel) bool {
		n, ok := domain.ParseDecimal(fl.Field().String())
		return ok && n > 0
	}},
	{tag: "phone", fn: func(fl validator.FieldLevel) bool {
		return phonePattern.MatchString(fl.Field().String())
	}},
}

var validate = newValidator(rowRules)

// newValidator panics when a rule cannot be registered.
func newValidator(rules []rule) *validator.Validate {
	v := validator.New()
	for _, r := range rules {
		if err := v.RegisterValidation(r.tag, r.fn); err != nil {
			panic(fmt.Sprintf("register %q validation: %v", r.tag, err))
		}
	}
	return v
}

// Validate builds the report for rows keyed by their header names.
func Validate(rows []domain.Record, headers []string) domain.ValidationReport {
	report := domain.ValidationReport{
		TotalRows: len(rows),
		Errors:    make([]domain.Issue, 0),
		Warnings:  make([]domain.Issue, 0),
	}

	if missing := missingColumns(headers, RequiredColumns); len(missing) > 0 {
		report.Errors = append(report.Errors, domain.Issue{
			Type:     domain.IssueMissingColumns,
			Message:  fmt.Sprintf("필수 컬럼이 누락되었습니다: %s", strings.Join(missing, ", ")),
			Severity: domain.SeverityError,
		})
	}

	accepted := make(map[string]int)
	validRows := 0

	for idx, rec := range rows {
		rowNumber := idx + 2 // account for header line
		row := orderRow{
			ProductName: strings.TrimSpace(rec.Value(domain.FieldProduct)),
			Quantity:    strings.TrimSpace(rec.Value(domain.FieldQuantity)),
			UnitPrice:   strings.TrimSpace(rec.Value(domain.FieldUnitPrice)),
			Contact:     strings.TrimSpace(rec.Value(domain.FieldContact)),
		}

		rowErrors := schemaErrors(row)

		if row.Quantity != "" {
			if q, ok := domain.ParseQuantity(row.Quantity); ok && q <= 0 {
				rowErrors = append(rowErrors, fmt.Sprintf("수량이 0 이하입니다 (%s)", row.Quantity))
			}
		}

		if row.UnitPrice != "" {
			if p, ok := domain.ParseDecimal(row.UnitPrice); ok && p < LowPriceThreshold {
				report.Warnings = append(report.Warnings, domain.Issue{
					Type:     domain.IssueLowPrice,
					Message:  fmt.Sprintf("%d행: 단가가 너무 낮습니다 (%s원)", rowNumber, row.UnitPrice),
					Row:      intPtr(rowNumber),
					Severity: domain.SeverityWarning,
				})
			}
		}

		key := row.ProductName + "\x00" + rec.Value(domain.FieldCustomer)
		if prev, ok := accepted[key]; ok {
			report.Warnings = append(report.Warnings, domain.Issue{
				Type:     domain.IssueDuplicate,
				Message:  fmt.Sprintf("%d행: 중복된 주문입니다 (%d행과 동일)", rowNumber, prev),
				Row:      intPtr(rowNumber),
				Severity: domain.SeverityWarning,
			})
		}

		if len(rowErrors) > 0 {
			report.Errors = append(report.Errors, domain.Issue{
				Type:     domain.IssueRowError,
				Message:  fmt.Sprintf("%d행: %s", rowNumber, strings.Join(rowErrors, ", ")),
				Row:      intPtr(rowNumber),
				Errors:   rowErrors,
				Severity: domain.SeverityError,
			})
			continue
		}

		validRows++
		if _, ok := accepted[key]; !ok {
			accepted[key] = rowNumber
		}
	}

	report.ValidRows = validRows
	for _, issue := range report.Errors {
		if issue.Severity == domain.SeverityError {
			report.ErrorRows++
		}
	}
	report.WarningRows = len(report.Warnings)
	report.IsValid = report.ErrorRows == 0
	report.Summary = domain.ValidationSummary{
		SuccessRate: successRate(validRows, len(rows)),
		TotalIssues: len(report.Errors) + len(report.Warnings),
	}
	return report
}

func schemaErrors(row orderRow) []string {
	err := validate.Struct(row)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []string{err.Error()}
	}
	messages := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		messages = append(messages, fieldMessage(fe))
	}
	return messages
}

func fieldMessage(fe validator.FieldError) string {
	value, _ := fe.Value().(string)
	switch fe.StructField() {
	case "ProductName":
		return "상품명은 필수입니다"
	case "Quantity":
		n, ok := domain.ParseDecimal(value)
		switch {
		case !ok:
			return "수량은 숫자여야 합니다"
		case n <= 0:
			return "수량은 0보다 커야 합니다"
		default:
			return "수량은 정수여야 합니다"
		}
	case "UnitPrice":
		if _, ok := domain.ParseDecimal(value); !ok {
			return "단가는 숫자여야 합니다"
		}
		return "단가는 0보다 커야 합니다"
	case "Contact":
		return "올바른 전화번호 형식이 아닙니다"
	default:
		return fmt.Sprintf("%s 검증 실패 (%s)", fe.Field(), fe.Tag())
	}
}

func missingColumns(headers, required []string) []string {
	set := make(map[string]struct{}, len(headers))
	for _, h := range headers {
		set[h] = struct{}{}
	}
	var missing []string
	for _, req := range required {
		if _, ok := set[req]; !ok {
			missing = append(missing, req)
		}
	}
	return missing
}

func successRate(valid, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(100 * float64(valid) / float64(total)))
}

func intPtr(v int) *int {
	return &v
}
