package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"sort"

	"github.com/njprem/Porder_APP_BackEnd/internal/domain"
	"github.com/njprem/Porder_APP_BackEnd/internal/mapping"
	"github.com/njprem/Porder_APP_BackEnd/internal/render"
	"github.com/njprem/Porder_APP_BackEnd/internal/repository/ports"
	"github.com/njprem/Porder_APP_BackEnd/internal/tabular"
)

var (
	ErrUnknownSchema    = errors.New("unknown target schema")
	ErrSourceNotFound   = errors.New("uploaded file not found")
	ErrDocumentNotFound = errors.New("generated document not found")
)

// ConversionError wraps any failure of the conversion pipeline with the
// step that produced it.
type ConversionError struct {
	Op  string
	Err error
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("convert: %s: %v", e.Op, e.Err)
}

func (e *ConversionError) Unwrap() error {
	return e.Err
}

type ConvertInput struct {
	Source   []byte
	Format   tabular.Format
	Template []byte
	Mapping  domain.Mapping
	SchemaID string
}

type ConversionServiceConfig struct {
	UploadBucket    string
	GeneratedBucket string
	TemplatePath    string
	Strict          bool
}

type mappingLoader interface {
	Load(ctx context.Context, name string) (*domain.MappingDefinition, error)
}

type documentRenderer interface {
	Render(rows []domain.Record, template []byte) (*render.Document, error)
}

type ConversionService struct {
	storage         ports.ObjectStorage
	mappings        mappingLoader
	engine          *mapping.Engine
	renderer        documentRenderer
	uploadBucket    string
	generatedBucket string
	templatePath    string
	readFile        func(string) ([]byte, error)
}

func NewConversionService(storage ports.ObjectStorage, mappings mappingLoader, cfg ConversionServiceConfig) *ConversionService {
	mode := mapping.ModeLenient
	if cfg.Strict {
		mode = mapping.ModeStrict
	}
	return &ConversionService{
		storage:         storage,
		mappings:        mappings,
		engine:          mapping.NewEngine(mode),
		renderer:        render.NewRenderer(),
		uploadBucket:    cfg.UploadBucket,
		generatedBucket: cfg.GeneratedBucket,
		templatePath:    cfg.TemplatePath,
		readFile:        os.ReadFile,
	}
}

// Convert reads the source, maps every row onto the target schema, renders
// the purchase order and stores it in the generated bucket.
func (s *ConversionService) Convert(ctx context.Context, in ConvertInput) (*domain.ConversionResult, error) {
	if in.SchemaID != "" && in.SchemaID != domain.StandardSchemaID {
		return nil, &ConversionError{Op: "schema", Err: fmt.Errorf("%w: %q", ErrUnknownSchema, in.SchemaID)}
	}

	table, err := tabular.Read(in.Source, in.Format)
	if err != nil {
		return nil, &ConversionError{Op: "read", Err: err}
	}

	rows, gaps := s.engine.Apply(table, in.Mapping)

	doc, err := s.renderer.Render(rows, in.Template)
	if err != nil {
		return nil, &ConversionError{Op: "render", Err: err}
	}

	if _, err := s.storage.Put(ctx, s.generatedBucket, doc.FileName, "", bytes.NewReader(doc.Bytes), int64(len(doc.Bytes))); err != nil {
		return nil, &ConversionError{Op: "store", Err: err}
	}

	result := &domain.ConversionResult{
		FileName:      doc.FileName,
		FilePath:      s.generatedBucket + "/" + doc.FileName,
		DownloadURL:   "/api/orders/download/" + doc.FileName,
		ProcessedRows: doc.ProcessedRows,
		TotalRows:     doc.TotalRows,
		UsedTemplate:  doc.UsedTemplate,
		Errors:        mergeRowErrors(doc.Errors, gaps, table.Rows),
	}
	log.Printf("conversion: generated %s (%d/%d rows, template=%t)", result.FileName, result.ProcessedRows, result.TotalRows, result.UsedTemplate)
	return result, nil
}

// ConvertStored converts an upload previously stored under fileID using the
// named mapping definition. A missing mapping falls back to heuristic
// mapping and a missing template to a fresh document.
func (s *ConversionService) ConvertStored(ctx context.Context, fileID, mappingID, schemaID string) (*domain.ConversionResult, error) {
	format, err := tabular.FormatFromFilename(fileID)
	if err != nil {
		return nil, &ConversionError{Op: "read", Err: err}
	}

	source, err := s.storage.Get(ctx, s.uploadBucket, fileID)
	if err != nil {
		if errors.Is(err, ports.ErrObjectNotFound) {
			return nil, &ConversionError{Op: "load source", Err: ErrSourceNotFound}
		}
		return nil, &ConversionError{Op: "load source", Err: err}
	}

	var rules domain.Mapping
	if mappingID != "" && s.mappings != nil {
		def, err := s.mappings.Load(ctx, mappingID)
		if err != nil {
			log.Printf("conversion: mapping %q unavailable, using fallback: %v", mappingID, err)
		} else {
			rules = def.Rules
		}
	}

	return s.Convert(ctx, ConvertInput{
		Source:   source,
		Format:   format,
		Template: s.loadTemplate(),
		Mapping:  rules,
		SchemaID: schemaID,
	})
}

// Download returns a generated document.
func (s *ConversionService) Download(ctx context.Context, fileName string) ([]byte, error) {
	data, err := s.storage.Get(ctx, s.generatedBucket, fileName)
	if err != nil {
		if errors.Is(err, ports.ErrObjectNotFound) {
			return nil, ErrDocumentNotFound
		}
		return nil, err
	}
	return data, nil
}

func (s *ConversionService) loadTemplate() []byte {
	if s.templatePath == "" {
		return nil
	}
	data, err := s.readFile(s.templatePath)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			log.Printf("conversion: read template %s: %v", s.templatePath, err)
		}
		return nil
	}
	return data
}

// mergeRowErrors combines render failures with strict-mode mapping gaps,
// ordered by row.
func mergeRowErrors(renderErrs []domain.RowError, gaps []mapping.Gap, source []domain.Record) []domain.RowError {
	out := make([]domain.RowError, 0, len(renderErrs)+len(gaps))
	out = append(out, renderErrs...)
	for _, g := range gaps {
		var data domain.Record
		if g.Row >= 1 && g.Row <= len(source) {
			data = source[g.Row-1]
		}
		out = append(out, domain.RowError{
			Row:   g.Row,
			Error: fmt.Sprintf("source column %q for %s is missing", g.SourceField, g.TargetField),
			Data:  data,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Row < out[j].Row })
	return out
}
