package config

import "testing"

func setRequired(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://porder@localhost/porder")
	t.Setenv("MINIO_ENDPOINT", "localhost:9000")
	t.Setenv("MINIO_ACCESS_KEY", "minio")
	t.Setenv("MINIO_SECRET_KEY", "minio123")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)
	cfg := Load()

	if cfg.Port != "8080" || cfg.HistoryBackend != HistoryBackendPostgres {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if cfg.MaxUploadBytes != 10*1024*1024 || cfg.PreviewRows != 20 || cfg.EmailHistoryLimit != 100 {
		t.Fatalf("unexpected limits %+v", cfg)
	}
	if cfg.BucketUploads != "uploads" || cfg.BucketGenerated != "generated" || cfg.BucketMappings != "mappings" {
		t.Fatalf("unexpected buckets %+v", cfg)
	}
	if len(cfg.AllowOrigins) != 1 || cfg.AllowOrigins[0] != "*" {
		t.Fatalf("unexpected origins %v", cfg.AllowOrigins)
	}
}

func TestLoadOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("ALLOW_ORIGINS", " https://a.example , ,https://b.example")
	t.Setenv("MAX_UPLOAD_BYTES", "2048")
	t.Setenv("PREVIEW_ROWS", "not-a-number")
	t.Setenv("MAPPING_STRICT", "true")
	t.Setenv("HISTORY_BACKEND", "Redis")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")

	cfg := Load()
	if len(cfg.AllowOrigins) != 2 || cfg.AllowOrigins[1] != "https://b.example" {
		t.Fatalf("unexpected origins %v", cfg.AllowOrigins)
	}
	if cfg.MaxUploadBytes != 2048 || cfg.PreviewRows != 20 || !cfg.MappingStrict {
		t.Fatalf("unexpected overrides %+v", cfg)
	}
	if cfg.HistoryBackend != HistoryBackendRedis || cfg.RedisURL == "" {
		t.Fatalf("unexpected history backend %+v", cfg)
	}
}

func TestLoadPanicsWithoutRedisURL(t *testing.T) {
	setRequired(t)
	t.Setenv("HISTORY_BACKEND", "redis")
	t.Setenv("REDIS_URL", "")
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic for missing REDIS_URL")
		}
	}()
	Load()
}
