// @title f2dhis2 API
// @version 1.0
// @description Forwards Formhub submissions to DHIS2 as data value sets.
// @BasePath /api/v1
// @securityDefinitions.basic BasicAuth
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nats-io/nats.go"

	_ "f2dhis2/docs"
	"f2dhis2/internal/catalog"
	"f2dhis2/internal/config"
	"f2dhis2/internal/database"
	"f2dhis2/internal/dhis2"
	"f2dhis2/internal/formhub"
	"f2dhis2/internal/handlers"
	"f2dhis2/internal/mapping"
	"f2dhis2/internal/queue"
	"f2dhis2/internal/tasks"
	"f2dhis2/internal/telemetry"
)

const (
	drainTimeout    = 15 * time.Minute
	shutdownTimeout = 10 * time.Second
)

// backgroundDispatcher is a dispatcher that runs until stopped.
type backgroundDispatcher interface {
	tasks.Dispatcher
	Stop() error
}

type localDispatcher struct{ *tasks.Runner }

func (d localDispatcher) Stop() error {
	d.Runner.Stop()
	return nil
}

func main() {
	log.Println("Starting f2dhis2...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("%v", err)
	}
	if cfg.Formhub.AccessToken == "" && cfg.Formhub.OAuthClientID != "" {
		log.Println("FH_OAUTH_CLIENT_ID is set but FH_ACCESS_TOKEN is not; Formhub requests are sent unauthenticated")
	}

	log.Printf("Configuration:")
	log.Printf("  HTTP address: %s", cfg.HTTPAddr)
	log.Printf("  Database driver: %s", cfg.Database.Driver)
	log.Printf("  DHIS2 data value sets: %s", cfg.DHIS2.DataValueSetURL)
	log.Printf("  Formhub server: %s", cfg.Formhub.ServerURL)
	log.Printf("  Queue: %d workers, claim TTL %s, dispatcher %s", cfg.Queue.Workers, cfg.Queue.ClaimTTL, cfg.Queue.Dispatcher)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := telemetry.Init(ctx, cfg.Telemetry)
	if err != nil {
		log.Fatalf("Failed to initialise telemetry: %v", err)
	}

	db, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		log.Fatalf("Failed to get database handle: %v", err)
	}
	defer sqlDB.Close()

	catalogStore := catalog.NewStore(db)
	mappingStore := mapping.NewStore(db)
	queueStore := queue.NewStore(db)

	formhubClient := formhub.NewClient(formhub.Config{
		AccessToken: cfg.Formhub.AccessToken,
		Timeout:     cfg.Formhub.Timeout,
		RateLimit:   cfg.Formhub.RateLimit,
		RateBurst:   cfg.Formhub.RateBurst,
	})
	dhis2Client := dhis2.NewClient(dhis2.Config{
		DataValueSetURL: cfg.DHIS2.DataValueSetURL,
		Username:        cfg.DHIS2.Username,
		Password:        cfg.DHIS2.Password,
		Timeout:         cfg.DHIS2.Timeout,
	})

	processor := queue.NewProcessor(queueStore, formhubClient, dhis2Client, catalogStore, mappingStore, queue.Config{
		Workers:  cfg.Queue.Workers,
		ClaimTTL: cfg.Queue.ClaimTTL,
	})

	var dispatcher backgroundDispatcher
	switch cfg.Queue.Dispatcher {
	case "nats":
		nc, err := nats.Connect(cfg.Queue.NATSURL,
			nats.Timeout(10*time.Second),
			nats.RetryOnFailedConnect(true),
			nats.MaxReconnects(5),
			nats.ReconnectWait(time.Second),
		)
		if err != nil {
			log.Fatalf("Failed to connect to NATS at %s: %v", cfg.Queue.NATSURL, err)
		}
		defer nc.Close()
		log.Printf("Connected to NATS at %s", nc.ConnectedUrl())

		js, err := nc.JetStream()
		if err != nil {
			log.Fatalf("Failed to get JetStream context: %v", err)
		}
		natsDispatcher := tasks.NewNATSDispatcher(js, processor, drainTimeout)
		if err := natsDispatcher.Start(ctx); err != nil {
			log.Fatalf("Failed to start NATS drain consumer: %v", err)
		}
		dispatcher = natsDispatcher
	default:
		runner := tasks.NewRunner(processor, drainTimeout)
		runner.Start(ctx)
		dispatcher = localDispatcher{runner}
	}

	var sweeper *tasks.Sweeper
	if cfg.Queue.SweepSchedule != "" {
		sweeper, err = tasks.NewSweeper(cfg.Queue.SweepSchedule, dispatcher)
		if err != nil {
			log.Fatalf("Failed to create retry sweeper: %v", err)
		}
		sweeper.Start()
	}

	// Items left over from a previous run.
	if err := dispatcher.Trigger(ctx, "startup"); err != nil {
		log.Printf("Failed to request startup drain: %v", err)
	}

	var admin gin.Accounts
	if cfg.Admin.Username != "" {
		admin = gin.Accounts{cfg.Admin.Username: cfg.Admin.Password}
	} else {
		log.Println("ADMIN_USERNAME not set, the management API is unauthenticated")
	}

	api := handlers.NewAPI(handlers.Dependencies{
		Catalog:    catalogStore,
		Mappings:   mappingStore,
		Queue:      queueStore,
		Drainer:    processor,
		Dispatcher: dispatcher,
		Forms:      formhubClient,
		DataSets:   dhis2Client,
		Admin:      admin,
	})

	router := gin.Default()
	api.RegisterRoutes(router)

	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: router,
	}
	go func() {
		log.Printf("Listening on %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown: %v", err)
	}
	if sweeper != nil {
		sweeper.Stop()
	}
	if err := dispatcher.Stop(); err != nil {
		log.Printf("Dispatcher shutdown: %v", err)
	}
	if err := shutdownTelemetry(shutdownCtx); err != nil {
		log.Printf("Telemetry shutdown: %v", err)
	}
	log.Println("f2dhis2 stopped.")
}
