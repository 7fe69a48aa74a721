package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"diag-storefront/internal/catalog"
	"diag-storefront/internal/checkout"
	"diag-storefront/internal/config"
	"diag-storefront/internal/env"
	"diag-storefront/internal/flows"
	"diag-storefront/internal/infrastructure/api"
	"diag-storefront/internal/infrastructure/cache"
	"diag-storefront/internal/infrastructure/razorpay"
	"diag-storefront/internal/infrastructure/repo"
	"diag-storefront/internal/logging"
	"diag-storefront/internal/server"
	"diag-storefront/internal/session"
)

type ledger interface {
	checkout.ReceiptRepo
	server.ReceiptLister
}

func main() {
	env.Load(".env", ".env.local")
	envDefaults := config.EnvDefaults()

	envName := flag.String("env", envDefaults.Env, "")
	port := flag.Int("port", envDefaults.Port, "")
	apiBase := flag.String("api", envDefaults.APIBaseURL, "remote storefront API base url")
	publicBase := flag.String("public-url", envDefaults.PublicBaseURL, "externally reachable base url of this service")
	razorpayKey := flag.String("razorpay-key", envDefaults.RazorpayKey, "")
	jwtSecret := flag.String("jwt-secret", envDefaults.JWTSecret, "")
	logJSON := flag.Bool("log-json", envDefaults.LogJSON, "")
	dbURL := flag.String("database-url", envDefaults.DatabaseURL, "postgres dsn for the receipt ledger")
	redisAddr := flag.String("redis", envDefaults.RedisAddr, "redis address for the catalog cache")
	tokenFile := flag.String("token-file", envDefaults.TokenFile, "")

	flag.Parse()

	cfg := envDefaults
	cfg.Env = *envName
	cfg.Port = *port
	cfg.APIBaseURL = *apiBase
	cfg.PublicBaseURL = *publicBase
	cfg.RazorpayKey = *razorpayKey
	cfg.JWTSecret = *jwtSecret
	cfg.LogJSON = *logJSON
	cfg.DatabaseURL = *dbURL
	cfg.RedisAddr = *redisAddr
	cfg.TokenFile = *tokenFile
	if cfg.PublicBaseURL == "" {
		cfg.PublicBaseURL = fmt.Sprintf("http://localhost:%d", cfg.Port)
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(2)
	}

	log, err := logging.New(cfg.Env, cfg.LogJSON)
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}

	err = run(cfg, log)
	if err != nil {
		log.Error("server stopped", zap.Error(err))
	}
	_ = log.Sync()
	if err != nil {
		os.Exit(1)
	}
}

func run(cfg config.Config, log *zap.Logger) error {
	if cfg.RazorpayKey == "" {
		log.Warn("razorpay key not configured, checkout will fail to open the payment window")
	}

	client := &api.Client{
		BaseURL: cfg.APIBaseURL,
		HTTP: &http.Client{
			Timeout:   cfg.RequestTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}

	var catalogCache cache.CatalogCache = cache.NewMemoryCache(cfg.CatalogTTL)
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()
		catalogCache = cache.NewRedisCache(rdb, cfg.CatalogTTL)
		log.Info("catalog cache on redis", zap.String("addr", cfg.RedisAddr))
	}

	var receipts ledger = repo.NewMemoryReceiptRepo()
	if cfg.DatabaseURL != "" {
		pg, err := repo.OpenPostgres(cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("open receipt ledger: %w", err)
		}
		defer pg.Close()
		receipts = pg
		log.Info("receipt ledger on postgres")
	}

	parser := session.Parser{Secret: cfg.JWTSecret}
	gateway := razorpay.NewHostedGateway(cfg.PublicBaseURL)

	registry := flows.NewRegistry(checkout.Deps{
		API:      client,
		Gateway:  gateway,
		Receipts: receipts,
		Log:      log,
	}, checkout.Config{
		RazorpayKey:     cfg.RazorpayKey,
		MerchantName:    cfg.MerchantName,
		Currency:        cfg.Currency,
		ResetDelay:      cfg.ResetDelay,
		CallbackTimeout: cfg.RequestTimeout,
	}, parser)
	defer registry.Close()

	var fallback session.Source
	if cfg.TokenFile != "" {
		fallback = &session.FileStore{Path: cfg.TokenFile, Parser: parser}
	}

	srv := server.New(cfg, server.Deps{
		Flows:    registry,
		Catalog:  catalog.NewService(client, catalogCache, log),
		Gateway:  gateway,
		Receipts: receipts,
		Fallback: fallback,
		Log:      log,
	})
	defer srv.Close()

	httpSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go sweepFlows(ctx, registry, cfg.FlowIdleTTL)

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", zap.String("addr", httpSrv.Addr), zap.String("api", cfg.APIBaseURL))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpSrv.Shutdown(shutdownCtx)
}

func sweepFlows(ctx context.Context, reg *flows.Registry, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	t := time.NewTicker(ttl / 2)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			reg.Evict(ttl)
		}
	}
}
