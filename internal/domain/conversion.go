package domain

// RowError records a row that could not be written to the output document.
type RowError struct {
	Row   int    `json:"row"`
	Error string `json:"error"`
	Data  Record `json:"data"`
}

type ConversionResult struct {
	FileName      string     `json:"fileName"`
	FilePath      string     `json:"filePath"`
	DownloadURL   string     `json:"downloadUrl,omitempty"`
	ProcessedRows int        `json:"processedRows"`
	TotalRows     int        `json:"totalRows"`
	UsedTemplate  bool       `json:"usedTemplate"`
	Errors        []RowError `json:"errors"`
}
