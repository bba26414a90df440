package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
)

func TestUploadService_UploadStoresAndPreviews(t *testing.T) {
	store := newObjectStore()
	svc := NewUploadService(store, UploadServiceConfig{Bucket: "uploads"})
	svc.now = func() time.Time { return time.UnixMilli(1717236000000) }
	svc.random = func() uint32 { return 42 }

	var b strings.Builder
	b.WriteString("상품명,수량,단가\n")
	for i := 1; i <= 30; i++ {
		fmt.Fprintf(&b, "상품%d,%d,1000\n", i, i)
	}

	result, err := svc.Upload(context.Background(), "Orders.CSV", []byte(b.String()))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.FileID != "orderFile-1717236000000-42.csv" {
		t.Fatalf("unexpected file id %q", result.FileID)
	}
	if result.FileName != "Orders.CSV" {
		t.Fatalf("expected original name, got %q", result.FileName)
	}
	if len(result.PreviewData) != 20 || result.TotalRows != 20 {
		t.Fatalf("expected 20 preview rows, got %d", len(result.PreviewData))
	}
	if !result.Validation.IsValid || result.Summary.Status != "success" {
		t.Fatalf("expected valid preview, got %+v", result.Validation)
	}
	if _, err := store.Get(context.Background(), "uploads", result.FileID); err != nil {
		t.Fatalf("upload not stored: %v", err)
	}
}

func TestUploadService_Rejections(t *testing.T) {
	store := newObjectStore()
	svc := NewUploadService(store, UploadServiceConfig{Bucket: "uploads", MaxFileBytes: 16})

	if _, err := svc.Upload(context.Background(), "a.csv", nil); !errors.Is(err, ErrUploadEmpty) {
		t.Fatalf("expected ErrUploadEmpty, got %v", err)
	}
	if _, err := svc.Upload(context.Background(), "a.csv", []byte(strings.Repeat("x", 17))); !errors.Is(err, ErrUploadTooLarge) {
		t.Fatalf("expected ErrUploadTooLarge, got %v", err)
	}
	if _, err := svc.Upload(context.Background(), "a.pdf", []byte("x")); !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
	if len(store.objects) != 0 {
		t.Fatalf("rejected uploads must not be stored")
	}
}

func TestUploadService_DefaultLimit(t *testing.T) {
	svc := NewUploadService(newObjectStore(), UploadServiceConfig{})
	if svc.MaxFileBytes() != 10*1024*1024 {
		t.Fatalf("expected 10MB default, got %d", svc.MaxFileBytes())
	}
}
