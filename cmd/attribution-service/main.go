package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/trackwell/attribution-service/internal/api"
	"github.com/trackwell/attribution-service/internal/cache"
	"github.com/trackwell/attribution-service/internal/config"
	"github.com/trackwell/attribution-service/internal/repository"
	"github.com/trackwell/attribution-service/internal/service"
	"github.com/trackwell/attribution-service/internal/workers"
	"github.com/trackwell/attribution-service/pkg/db"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	var configPath string

	root := &cobra.Command{
		Use:           "attribution-service",
		Short:         "Click attribution and commission tracking service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to yaml config file")

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(configPath)
		},
	}

	var migrationsDir string
	migrate := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(migrationsDir)
		},
	}
	migrate.Flags().StringVar(&migrationsDir, "dir", "migrations", "migrations directory")

	root.AddCommand(serve, migrate)

	if err := root.Execute(); err != nil {
		log.Fatal(err)
	}
}

func runMigrate(dir string) error {
	dbCfg, err := db.LoadPostgresConfig()
	if err != nil {
		return err
	}
	conn, err := db.NewPostgresConnection(dbCfg)
	if err != nil {
		return fmt.Errorf("db connect: %w", err)
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	return db.ApplyMigrations(ctx, conn, dir)
}

func runServe(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	dbCfg, err := db.LoadPostgresConfig()
	if err != nil {
		return err
	}
	conn, err := db.NewPostgresConnection(dbCfg)
	if err != nil {
		return fmt.Errorf("db connect: %w", err)
	}
	defer conn.Close()

	linkRepo := repository.NewLinkRepo(conn)
	conversionRepo := repository.NewConversionRepo(conn)
	rateRepo := repository.NewRateRepo(conn)
	payoutRepo := repository.NewPayoutRepo(conn)

	var rateCache cache.RateCache
	if cfg.RedisAddr != "" {
		client, err := cache.Connect(cfg.RedisAddr)
		if err != nil {
			return fmt.Errorf("redis connect: %w", err)
		}
		defer client.Close()
		rateCache = cache.NewRedisRateCache(client, cfg.RateCacheTTL)
		log.Printf("rate cache: redis at %s", cfg.RedisAddr)
	} else {
		rateCache = cache.NewMemoryRateCache(cfg.RateCacheTTL)
		log.Print("rate cache: in-process")
	}

	clickRecorder := workers.NewClickRecorder(cfg.ClickQueueSize, linkRepo)
	clickRecorder.Start(cfg.ClickWorkers)

	trackingSvc := service.NewTrackingService(linkRepo, clickRecorder, cfg.TrackingCodeLen)
	conversionSvc := service.NewConversionService(linkRepo, conversionRepo, rateRepo, rateCache, cfg.AttributionWindow)
	payoutSvc := service.NewPayoutService(payoutRepo)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      api.NewRouter(trackingSvc, conversionSvc, payoutSvc),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// graceful shutdown
	idleConnsClosed := make(chan struct{})
	go func() {
		c := make(chan os.Signal, 1)
		signal.Notify(c, os.Interrupt)
		<-c
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.Printf("HTTP server Shutdown: %v", err)
		}
		// Drain queued click audit rows before letting the process exit.
		clickRecorder.Shutdown()
		close(idleConnsClosed)
	}()

	log.Printf("starting attribution-service on :%d", cfg.HTTPPort)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("listen: %w", err)
	}

	<-idleConnsClosed
	log.Println("server stopped")
	return nil
}
