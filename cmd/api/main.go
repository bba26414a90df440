package main

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/njprem/Porder_APP_BackEnd/internal/config"
	"github.com/njprem/Porder_APP_BackEnd/internal/logging"
	miniorepo "github.com/njprem/Porder_APP_BackEnd/internal/repository/minio"
	"github.com/njprem/Porder_APP_BackEnd/internal/repository/ports"
	"github.com/njprem/Porder_APP_BackEnd/internal/repository/postgres"
	redisrepo "github.com/njprem/Porder_APP_BackEnd/internal/repository/redis"
	"github.com/njprem/Porder_APP_BackEnd/internal/service"
	httpx "github.com/njprem/Porder_APP_BackEnd/internal/transport/http"
	"github.com/njprem/Porder_APP_BackEnd/internal/transport/mail"
)

func main() {
	cfg := config.Load()

	if cfg.LogstashTCPAddr != "" {
		writer, err := logging.NewLogstashWriter(cfg.LogstashTCPAddr)
		if err != nil {
			log.Printf("logstash disabled: %v", err)
		} else {
			defer writer.Close()
			log.SetOutput(io.MultiWriter(os.Stdout, writer))
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := postgres.New(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("connect database: %v", err)
	}
	defer db.Close()
	if err := postgres.EnsureSchema(ctx, db); err != nil {
		log.Fatalf("ensure schema: %v", err)
	}

	minioClient, err := miniorepo.NewClient(cfg.MinIOEndpoint, cfg.MinIOAccessKey, cfg.MinIOSecretKey, cfg.MinIOUseSSL)
	if err != nil {
		log.Fatalf("connect minio: %v", err)
	}
	storage := miniorepo.NewStorage(minioClient)
	if err := storage.EnsureBuckets(ctx, cfg.BucketUploads, cfg.BucketGenerated, cfg.BucketMappings); err != nil {
		log.Fatalf("prepare buckets: %v", err)
	}

	var history ports.EmailHistoryRepository
	switch cfg.HistoryBackend {
	case config.HistoryBackendRedis:
		rdb, err := redisrepo.NewClient(cfg.RedisURL)
		if err != nil {
			log.Fatalf("connect redis: %v", err)
		}
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Fatalf("ping redis: %v", err)
		}
		history = redisrepo.NewEmailHistoryStore(rdb, cfg.EmailHistoryLimit)
	default:
		history = postgres.NewEmailHistoryRepo(db, cfg.EmailHistoryLimit)
	}
	templates := postgres.NewEmailTemplateRepo(db)

	mailer := mail.NewOrderMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.SMTPFrom)
	if mailer.Simulated() {
		log.Printf("SMTP credentials not set, email runs in simulation mode")
	}

	uploadSvc := service.NewUploadService(storage, service.UploadServiceConfig{
		Bucket:       cfg.BucketUploads,
		MaxFileBytes: cfg.MaxUploadBytes,
		PreviewRows:  cfg.PreviewRows,
	})
	mappingSvc := service.NewMappingService(storage, cfg.BucketMappings)
	conversionSvc := service.NewConversionService(storage, mappingSvc, service.ConversionServiceConfig{
		UploadBucket:    cfg.BucketUploads,
		GeneratedBucket: cfg.BucketGenerated,
		TemplatePath:    cfg.TemplatePath,
		Strict:          cfg.MappingStrict,
	})
	emailSvc := service.NewEmailService(storage, cfg.BucketGenerated, mailer, history, templates)

	e := httpx.NewRouter(cfg.AllowOrigins, cfg.MaxUploadBytes)
	httpx.RegisterOrders(e, uploadSvc, mappingSvc, conversionSvc)
	httpx.RegisterEmail(e, emailSvc)
	httpx.RegisterSwagger(e, cfg.SwaggerSpecPath)

	go func() {
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}
