package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/bnguyen2/merkle-drop/config"
	"github.com/bnguyen2/merkle-drop/core/state"
	"github.com/bnguyen2/merkle-drop/gateway"
	"github.com/bnguyen2/merkle-drop/native/airdrop"
	"github.com/bnguyen2/merkle-drop/native/token"
	"github.com/bnguyen2/merkle-drop/observability/logging"
	telemetry "github.com/bnguyen2/merkle-drop/observability/otel"
	"github.com/bnguyen2/merkle-drop/storage"
)

func main() {
	configPath := flag.String("config", "dropd.toml", "path to the daemon configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger := logging.Setup("dropd", cfg.Env)

	shutdownTelemetry, err := telemetry.Init(context.Background(), telemetry.Config{
		ServiceName: "dropd",
		Environment: cfg.Env,
		Endpoint:    strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")),
		Insecure:    envBool("OTEL_EXPORTER_OTLP_INSECURE", true),
		Headers:     telemetry.ParseHeaders(os.Getenv("OTEL_EXPORTER_OTLP_HEADERS")),
		Metrics:     true,
		Traces:      true,
	})
	if err != nil {
		log.Fatalf("init telemetry: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTelemetry(ctx)
	}()

	if err := run(cfg, logger); err != nil {
		log.Fatalf("dropd failed: %v", err)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	root, err := cfg.Root()
	if err != nil {
		return err
	}
	signer, authority, instance, pool, err := cfg.Addresses()
	if err != nil {
		return err
	}

	db, err := storage.NewLevelDB(cfg.DataDir)
	if err != nil {
		return err
	}
	defer db.Close()

	store := state.NewStore(db)
	ledger := token.NewLedger(store, pool)

	engine, err := airdrop.NewEngine(airdrop.Params{
		MerkleRoot:    root,
		TrustedSigner: signer,
		Authority:     authority,
		ChainID:       cfg.ChainID,
		Instance:      instance,
	})
	if err != nil {
		return err
	}
	engine.SetState(store)
	engine.SetPayoutToken(ledger)

	server := gateway.New(gateway.Config{
		Engine: engine,
		Logger: logger,
		RateLimit: gateway.RateLimit{
			RequestsPerMinute: cfg.RequestsPerMinute,
			Burst:             cfg.Burst,
		},
	})

	httpServer := &http.Server{
		Addr:              cfg.ListenAddress,
		Handler:           otelhttp.NewHandler(server, "gateway"),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", cfg.ListenAddress)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		logger.Info("shutting down", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpServer.Shutdown(ctx)
}

func envBool(key string, fallback bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}
	return parsed
}
