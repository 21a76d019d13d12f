package main

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/awnumar/memguard"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/crosslane-xyz/crosslane/internal/config"
	"github.com/crosslane-xyz/crosslane/internal/custody"
	"github.com/crosslane-xyz/crosslane/internal/engine"
	"github.com/crosslane-xyz/crosslane/internal/kms"
	"github.com/crosslane-xyz/crosslane/internal/mirror"
	"github.com/crosslane-xyz/crosslane/internal/swap"
)

func main() {
	defer memguard.Purge()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := buildLogger(cfg.Env)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	operator, err := loadOperatorKey(ctx, cfg)
	if err != nil {
		log.Fatal("load operator key", zap.Error(err))
	}

	registry := config.DefaultRegistry()
	eng := engine.New(log.Named("engine"))

	oracles := make(map[swap.Chain]engine.FundsOracle)
	transferers := make(map[swap.Chain]engine.Transferer)
	for _, chain := range []swap.Chain{swap.ChainSepolia, swap.ChainSolanaDevnet} {
		svc, err := custody.NewService(chain, registry, eng, operator, log.Named("custody"))
		if err != nil {
			log.Fatal("build custody service", zap.String("chain", chain.String()), zap.Error(err))
		}
		oracles[chain] = svc
		transferers[chain] = svc
	}

	interval := time.Duration(cfg.Engine.SettleIntervalMS) * time.Millisecond
	driver := engine.NewDriver(eng, oracles, transferers, interval, log.Named("driver"))
	go driver.Run(ctx)

	if cfg.Engine.MirrorOrders {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		m := mirror.New(mirror.GoRedisClient{C: client}, eng.Feed().Subscribe(), log.Named("mirror"))
		go m.Run(ctx)
	}

	if cfg.Env != "development" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	engine.NewServer(eng).Register(router)

	srv := &http.Server{Addr: cfg.Engine.Addr, Handler: router}
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	log.Info("matching engine ready", zap.String("addr", cfg.Engine.Addr), zap.String("env", cfg.Env))

	select {
	case <-ctx.Done():
		log.Info("shutting down gracefully")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warn("shutdown", zap.Error(err))
		}
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server error", zap.Error(err))
		}
	}
}

func buildLogger(env string) (*zap.Logger, error) {
	if env == "development" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// loadOperatorKey resolves the custody operator key: a KMS ciphertext in
// production, a derived dev key otherwise.
func loadOperatorKey(ctx context.Context, cfg *config.Config) (*custody.OperatorKey, error) {
	if cfg.Custody.OperatorKeyB64 == "" {
		return custody.OperatorKeyFromSeed(cfg.Custody.DevOperatorSeed)
	}

	ciphertext, err := base64.StdEncoding.DecodeString(cfg.Custody.OperatorKeyB64)
	if err != nil {
		return nil, fmt.Errorf("decode operator key ciphertext: %w", err)
	}

	client, err := kms.New(ctx, cfg.Custody.AWSRegion, cfg.LocalStackEndpoint)
	if err != nil {
		return nil, err
	}
	plaintext, err := client.DecryptOperatorKey(ctx, ciphertext)
	if err != nil {
		return nil, err
	}
	return custody.NewOperatorKey(plaintext)
}
