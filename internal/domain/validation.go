package domain

type IssueType string

const (
	IssueMissingColumns IssueType = "missing_columns"
	IssueRowError       IssueType = "row_error"
	IssueLowPrice       IssueType = "low_price"
	IssueDuplicate      IssueType = "duplicate"
)

type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Issue is a single validation finding. Row is the spreadsheet row number
// (first data row = 2) and is nil for report-level issues.
type Issue struct {
	Type     IssueType `json:"type"`
	Message  string    `json:"message"`
	Row      *int      `json:"row"`
	Errors   []string  `json:"errors,omitempty"`
	Severity Severity  `json:"severity"`
}

type ValidationSummary struct {
	SuccessRate int `json:"successRate"`
	TotalIssues int `json:"totalIssues"`
}

type ValidationReport struct {
	IsValid     bool              `json:"isValid"`
	TotalRows   int               `json:"totalRows"`
	ValidRows   int               `json:"validRows"`
	ErrorRows   int               `json:"errorRows"`
	WarningRows int               `json:"warningRows"`
	Errors      []Issue           `json:"errors"`
	Warnings    []Issue           `json:"warnings"`
	Summary     ValidationSummary `json:"summary"`
}
