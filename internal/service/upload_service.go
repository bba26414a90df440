package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand/v2"
	"path/filepath"
	"strings"
	"time"

	"github.com/njprem/Porder_APP_BackEnd/internal/domain"
	"github.com/njprem/Porder_APP_BackEnd/internal/repository/ports"
	"github.com/njprem/Porder_APP_BackEnd/internal/tabular"
	"github.com/njprem/Porder_APP_BackEnd/internal/validation"
)

var (
	ErrUploadEmpty       = errors.New("no file uploaded")
	ErrUploadTooLarge    = errors.New("file exceeds maximum upload size")
	ErrUnsupportedFormat = errors.New("only .csv, .xlsx and .xls files are supported")
)

const defaultMaxUploadBytes int64 = 10 * 1024 * 1024

type UploadServiceConfig struct {
	Bucket       string
	MaxFileBytes int64
	PreviewRows  int
}

// UploadResult is the preview returned for a freshly uploaded order file.
type UploadResult struct {
	FileName    string                  `json:"fileName"`
	FileID      string                  `json:"fileId"`
	Headers     []string                `json:"headers"`
	PreviewData []domain.Record         `json:"previewData"`
	TotalRows   int                     `json:"totalRows"`
	Validation  domain.ValidationReport `json:"validation"`
	Summary     validation.Summary      `json:"summary"`
}

type UploadService struct {
	storage      ports.ObjectStorage
	bucket       string
	maxFileBytes int64
	previewRows  int
	now          func() time.Time
	random       func() uint32
}

func NewUploadService(storage ports.ObjectStorage, cfg UploadServiceConfig) *UploadService {
	maxFile := cfg.MaxFileBytes
	if maxFile <= 0 {
		maxFile = defaultMaxUploadBytes
	}
	preview := cfg.PreviewRows
	if preview <= 0 {
		preview = tabular.PreviewRows
	}
	return &UploadService{
		storage:      storage,
		bucket:       cfg.Bucket,
		maxFileBytes: maxFile,
		previewRows:  preview,
		now:          time.Now,
		random:       func() uint32 { return rand.Uint32N(1_000_000_000) },
	}
}

func (s *UploadService) MaxFileBytes() int64 {
	return s.maxFileBytes
}

// Upload stores the file under a generated id and returns a validated
// preview of its first rows.
func (s *UploadService) Upload(ctx context.Context, filename string, contents []byte) (*UploadResult, error) {
	if len(contents) == 0 {
		return nil, ErrUploadEmpty
	}
	if int64(len(contents)) > s.maxFileBytes {
		return nil, ErrUploadTooLarge
	}
	format, err := tabular.FormatFromFilename(filename)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(filename))
	}

	table, err := tabular.ReadPreview(contents, format, s.previewRows)
	if err != nil {
		return nil, err
	}

	fileID := s.buildFileID(filename)
	if _, err := s.storage.Put(ctx, s.bucket, fileID, "", bytes.NewReader(contents), int64(len(contents))); err != nil {
		return nil, fmt.Errorf("store upload: %w", err)
	}

	report := validation.Validate(table.Rows, table.Headers)
	log.Printf("upload: stored %s (%d headers, %d preview rows, valid=%t)", fileID, len(table.Headers), len(table.Rows), report.IsValid)

	return &UploadResult{
		FileName:    filename,
		FileID:      fileID,
		Headers:     table.Headers,
		PreviewData: table.Rows,
		TotalRows:   len(table.Rows),
		Validation:  report,
		Summary:     validation.Summarize(report),
	}, nil
}

func (s *UploadService) buildFileID(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	return fmt.Sprintf("orderFile-%d-%d%s", s.now().UnixMilli(), s.random(), ext)
}
