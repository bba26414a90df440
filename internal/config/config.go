package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	HistoryBackendPostgres = "postgres"
	HistoryBackendRedis    = "redis"
)

type Config struct {
	Port              string
	AllowOrigins      []string
	LogstashTCPAddr   string
	DatabaseURL       string
	HistoryBackend    string
	RedisURL          string
	MinIOEndpoint     string
	MinIOAccessKey    string
	MinIOSecretKey    string
	MinIOUseSSL       bool
	BucketUploads     string
	BucketGenerated   string
	BucketMappings    string
	SMTPHost          string
	SMTPPort          string
	SMTPUsername      string
	SMTPPassword      string
	SMTPFrom          string
	MaxUploadBytes    int64
	TemplatePath      string
	SwaggerSpecPath   string
	PreviewRows       int
	MappingStrict     bool
	EmailHistoryLimit int
}

func Load() Config {
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found: %v", err)
	}

	backend := strings.ToLower(getenv("HISTORY_BACKEND", HistoryBackendPostgres))
	redisURL := getenv("REDIS_URL", "")
	if backend == HistoryBackendRedis && redisURL == "" {
		redisURL = must("REDIS_URL")
	}

	return Config{
		Port:              getenv("PORT", "8080"),
		AllowOrigins:      splitAndTrim(getenv("ALLOW_ORIGINS", "*")),
		LogstashTCPAddr:   getenv("LOGSTASH_TCP_ADDR", ""),
		DatabaseURL:       must("DATABASE_URL"),
		HistoryBackend:    backend,
		RedisURL:          redisURL,
		MinIOEndpoint:     must("MINIO_ENDPOINT"),
		MinIOAccessKey:    must("MINIO_ACCESS_KEY"),
		MinIOSecretKey:    must("MINIO_SECRET_KEY"),
		MinIOUseSSL:       getenv("MINIO_USE_SSL", "false") == "true",
		BucketUploads:     getenv("MINIO_BUCKET_UPLOADS", "uploads"),
		BucketGenerated:   getenv("MINIO_BUCKET_GENERATED", "generated"),
		BucketMappings:    getenv("MINIO_BUCKET_MAPPINGS", "mappings"),
		SMTPHost:          getenv("SMTP_HOST", "smtp.gmail.com"),
		SMTPPort:          getenv("SMTP_PORT", "587"),
		SMTPUsername:      getenv("SMTP_USERNAME", ""),
		SMTPPassword:      getenv("SMTP_PASSWORD", ""),
		SMTPFrom:          getenv("SMTP_FROM", ""),
		MaxUploadBytes:    getenvInt64("MAX_UPLOAD_BYTES", 10*1024*1024),
		TemplatePath:      getenv("TEMPLATE_PATH", "file/porder_template.xlsx"),
		SwaggerSpecPath:   getenv("SWAGGER_SPEC_PATH", "docs/swagger.yaml"),
		PreviewRows:       int(getenvInt64("PREVIEW_ROWS", 20)),
		MappingStrict:     getenv("MAPPING_STRICT", "false") == "true",
		EmailHistoryLimit: int(getenvInt64("EMAIL_HISTORY_LIMIT", 100)),
	}
}

func splitAndTrim(input string) []string {
	parts := strings.Split(input, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		trimmed := strings.TrimSpace(p)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}

func getenv(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func getenvInt64(k string, d int64) int64 {
	if v, err := strconv.ParseInt(getenv(k, ""), 10, 64); err == nil && v > 0 {
		return v
	}
	return d
}

func must(k string) string {
	v := os.Getenv(k)
	if v == "" {
		panic("missing env: " + k)
	}
	return v
}
