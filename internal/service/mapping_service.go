package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/njprem/Porder_APP_BackEnd/internal/domain"
	"github.com/njprem/Porder_APP_BackEnd/internal/repository/ports"
)

var (
	ErrInvalidMapping  = errors.New("invalid mapping definition")
	ErrMappingNotFound = errors.New("mapping not found")
)

type MappingInput struct {
	Name         string
	SourceFields []string
	TargetFields []string
	Rules        domain.Mapping
}

type MappingService struct {
	storage ports.ObjectStorage
	bucket  string
	now     func() time.Time
}

func NewMappingService(storage ports.ObjectStorage, bucket string) *MappingService {
	return &MappingService{storage: storage, bucket: bucket, now: time.Now}
}

func (s *MappingService) Save(ctx context.Context, in MappingInput) (*domain.MappingDefinition, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" || strings.ContainsAny(name, `/\`) {
		return nil, fmt.Errorf("%w: name is required and must not contain path separators", ErrInvalidMapping)
	}
	rules := make(domain.Mapping, len(in.Rules))
	for target, source := range in.Rules {
		if !domain.IsMappableField(target) {
			return nil, fmt.Errorf("%w: unknown target field %q", ErrInvalidMapping, target)
		}
		if source = strings.TrimSpace(source); source != "" {
			rules[target] = source
		}
	}

	def := &domain.MappingDefinition{
		Name:         name,
		CreatedAt:    s.now().UTC(),
		SourceFields: nonNil(in.SourceFields),
		TargetFields: nonNil(in.TargetFields),
		Rules:        rules,
	}
	payload, err := json.MarshalIndent(def, "", "  ")
	if err != nil {
		return nil, err
	}
	if _, err := s.storage.Put(ctx, s.bucket, objectNameForMapping(name), "application/json", bytes.NewReader(payload), int64(len(payload))); err != nil {
		return nil, fmt.Errorf("store mapping: %w", err)
	}
	return def, nil
}

func (s *MappingService) Load(ctx context.Context, name string) (*domain.MappingDefinition, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrMappingNotFound
	}
	data, err := s.storage.Get(ctx, s.bucket, objectNameForMapping(name))
	if err != nil {
		if errors.Is(err, ports.ErrObjectNotFound) {
			return nil, ErrMappingNotFound
		}
		return nil, err
	}
	var def domain.MappingDefinition
	if err := json.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMapping, err)
	}
	return &def, nil
}

func objectNameForMapping(name string) string {
	return name + ".json"
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
