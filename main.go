package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v3"
	"gorm.io/gorm"

	"github.com/camden-git/imagestudio/ai"
	"github.com/camden-git/imagestudio/config"
	"github.com/camden-git/imagestudio/database"
	"github.com/camden-git/imagestudio/events"
	"github.com/camden-git/imagestudio/handlers"
	"github.com/camden-git/imagestudio/media"
	"github.com/camden-git/imagestudio/metrics"
	"github.com/camden-git/imagestudio/realtime"
	"github.com/camden-git/imagestudio/repository"
	"github.com/camden-git/imagestudio/services"
	"github.com/camden-git/imagestudio/transform"
	"github.com/camden-git/imagestudio/workers"
)

const shutdownTimeout = 15 * time.Second

func main() {
	if err := godotenv.Load(); err != nil {
		logrus.Debugf("No .env file found or error loading: %v", err)
	}

	cmd := &cli.Command{
		Name:   "imagestudio",
		Usage:  "image management and transformation API",
		Action: serve,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "run the HTTP API (default)",
				Action: serve,
			},
			{
				Name:   "migrate",
				Usage:  "apply database migrations and exit",
				Action: migrate,
			},
			{
				Name:      "decode",
				Usage:     "print the options a transform query string decodes to",
				ArgsUsage: "<query>",
				Action:    decode,
			},
			{
				Name:   "encode",
				Usage:  "validate options given as flags and print the canonical query string",
				Flags:  encodeFlags(),
				Action: encode,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		logrus.Fatalf("FATAL: %v", err)
	}
}

func loadConfig() (config.Config, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return cfg, fmt.Errorf("failed to load configuration: %w", err)
	}
	cfg.ConfigureLogging()
	return cfg, nil
}

func openDatabase(cfg config.Config) (*gorm.DB, error) {
	if dir := filepath.Dir(cfg.DatabasePath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory %s: %w", dir, err)
		}
	}
	db, err := database.InitGormDB(cfg.DatabasePath)
	if err != nil {
		return nil, err
	}
	if err := database.AutoMigrateModels(db); err != nil {
		return nil, err
	}
	return db, nil
}

func migrate(_ context.Context, _ *cli.Command) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	db, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func decode(_ context.Context, cmd *cli.Command) error {
	raw := cmd.Args().First()
	opts := transform.Decode(raw)
	out, err := json.MarshalIndent(opts, "", "  ")
	if err != nil {
		return err
	}
	fmt.Printf("canonical: %q\n%s\n", transform.Encode(opts), out)
	return nil
}

func encodeFlags() []cli.Flag {
	flags := make([]cli.Flag, 0, len(transform.Keys))
	for _, key := range transform.Keys {
		flags = append(flags, &cli.StringFlag{Name: key, Usage: "transform option " + key})
	}
	return flags
}

func encode(_ context.Context, cmd *cli.Command) error {
	var q transform.Query
	for _, key := range transform.Keys {
		if cmd.IsSet(key) {
			q.Set(key, cmd.String(key))
		}
	}
	opts, err := transform.Validate(q)
	if err != nil {
		return err
	}
	fmt.Println(transform.Encode(opts))
	return nil
}

func newStore(ctx context.Context, cfg config.Config) (media.Store, *media.LocalStorage, error) {
	if cfg.StorageDriver == config.StorageDriverS3 {
		store, err := media.NewS3Storage(ctx, cfg.S3Region, cfg.S3Bucket, cfg.S3PublicBaseURL)
		return store, nil, err
	}
	local, err := media.NewLocalStorage(cfg.MediaStoragePath, cfg.PublicBaseURL)
	if err != nil {
		return nil, nil, err
	}
	return local, local, nil
}

func serve(ctx context.Context, _ *cli.Command) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}
	logrus.Infof("Using database: %s", cfg.DatabasePath)

	store, localStore, err := newStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize media store: %w", err)
	}

	hub := realtime.NewHub()
	go hub.Run(ctx)

	publishers := events.Multi{hub}
	if cfg.AMQPURL != "" {
		amqpPublisher, err := events.NewAMQPPublisher(cfg.AMQPURL)
		if err != nil {
			return err
		}
		defer amqpPublisher.Close()
		publishers = append(publishers, amqpPublisher)
	}

	logrus.Infof("Initializing transform worker pool (Workers: %d, Queue Size: %d)...", cfg.TransformWorkers, cfg.TransformQueueSize)
	pool := workers.NewTransformPool(cfg.TransformQueueSize, cfg.TransformWorkers)
	defer pool.Stop()

	aiClient := ai.NewClient(cfg.AIBaseURL, cfg.AIAPIKey, cfg.AITimeout)
	if !aiClient.Configured() {
		logrus.Warn("AI_API_URL not set; enhance, generate and background removal are disabled")
	}

	m := metrics.New()
	images := repository.NewImageRepository(db)
	variants := repository.NewVariantRepository(db)
	users := repository.NewGormUserRepository(db)

	router := handlers.NewRouter(handlers.RouterConfig{
		Images:         images,
		Users:          users,
		Transforms:     services.NewTransformService(images, variants, store, aiClient, pool, publishers, m),
		Media:          services.NewMediaService(images, store, aiClient, publishers, m, cfg.MaxUploadSize),
		Hub:            hub,
		Metrics:        m,
		LocalStore:     localStore,
		JWTSecret:      cfg.JWTSecret,
		AllowedOrigins: cfg.AllowedOrigins,
		RequestTimeout: cfg.AITimeout + 30*time.Second,
	})

	serverAddr := ":" + cfg.Port
	server := &http.Server{
		Addr:        serverAddr,
		Handler:     router,
		ReadTimeout: 30 * time.Second,
		// transforms may wait on the AI service
		WriteTimeout: cfg.AITimeout + 45*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logrus.Infof("Server listening on %s", serverAddr)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logrus.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
