package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mojocn/base64Captcha"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/oakhaven/storefront/config"
	"github.com/oakhaven/storefront/limiter"
	"github.com/oakhaven/storefront/models"
	"github.com/oakhaven/storefront/moderation"
	"github.com/oakhaven/storefront/routes"
	"github.com/oakhaven/storefront/store"
	"github.com/oakhaven/storefront/utils"
	"github.com/oakhaven/storefront/validation"
)

func main() {
	cfg := config.Load()

	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}
	defer func() { _ = utils.Logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		stop()
		utils.Logger.Fatal("server stopped with error", zap.Error(err))
	}
}

// run wires the backends and serves until ctx is done. Cleanup is deferred here
// so it happens before main exits on error.
func run(ctx context.Context, cfg config.AppConfig) error {
	var rc *redis.Client
	if cfg.RedisHost != "" {
		var err error
		if rc, err = store.NewRedisClient(ctx, cfg); err != nil {
			if cfg.RateLimitBackend == "redis" {
				return fmt.Errorf("redis required by rate limit backend: %w", err)
			}
			utils.Logger.Warn("redis unavailable, continuing without cache", zap.Error(err))
			rc = nil
		} else {
			defer rc.Close()
		}
	}

	var rlStore store.RateLimitStore
	switch cfg.RateLimitBackend {
	case "redis":
		if rc == nil {
			return errors.New("rate limit backend redis requires RedisHost")
		}
		rlStore = store.NewRedisRateLimitStore(rc)
	default:
		mem := store.NewMemoryRateLimitStore()
		mem.StartSweeper(ctx, time.Duration(cfg.RateLimitSweepSec)*time.Second, utils.Logger)
		rlStore = mem
	}

	var repo store.ReviewRepository
	switch cfg.ReviewBackend {
	case "mysql":
		db, err := config.InitDatabase(&models.Review{})
		if err != nil {
			return fmt.Errorf("database init failed: %w", err)
		}
		repo = store.NewGormReviewRepository(db)
	default:
		repo = store.NewMemoryReviewRepository()
	}

	var storeOpts []store.ReviewStoreOption
	if rc != nil {
		storeOpts = append(storeOpts, store.WithReviewCache(
			store.NewRedisReviewCache(rc, time.Duration(cfg.ReviewCacheTTLSec)*time.Second, utils.Logger)))
	}
	reviews := store.NewReviewStore(repo, utils.Logger, storeOpts...)

	moderator := moderation.NewModerator(moderation.DefaultLists())
	if cfg.ModerationListsPath != "" {
		lw, err := moderation.NewListWatcher(utils.Logger, moderator, cfg.ModerationListsPath)
		if err != nil {
			return fmt.Errorf("moderation lists: %w", err)
		}
		if err := lw.Start(ctx); err != nil {
			return fmt.Errorf("moderation lists watcher: %w", err)
		}
		defer lw.Stop()
	}

	deps := routes.Deps{
		Validator: validation.New(),
		Moderator: moderator,
		Verifier:  moderation.PlaceholderVerifier{Sentinel: cfg.CaptchaSentinel},
		Reviews:   reviews,
		Limiter:   limiter.New(rlStore),
		Forwarder: utils.NewForwarder(cfg),
		Completer: utils.NewHTTPCompleter(utils.CompletionConfig{
			URL:     cfg.CompletionURL,
			APIKey:  cfg.CompletionAPIKey,
			Model:   cfg.CompletionModel,
			Timeout: time.Duration(cfg.CompletionTimeoutSec) * time.Second,
		}),
	}
	if cfg.CaptchaMode == "captcha" {
		var cs base64Captcha.Store
		if rc != nil {
			cs = store.NewRedisCaptchaStore(rc, 10*time.Minute)
		}
		deps.Captcha = moderation.NewCaptchaVerifier(cs)
		deps.Verifier = deps.Captcha
	}

	r := routes.SetupRouter(cfg, deps)

	utils.Logger.Info("starting server",
		zap.String("port", cfg.AppPort),
		zap.String("env", cfg.AppEnv),
		zap.String("rateLimitBackend", cfg.RateLimitBackend),
		zap.String("reviewBackend", cfg.ReviewBackend))
	return utils.NewServer(":"+cfg.AppPort, r).ListenAndServe(ctx)
}
