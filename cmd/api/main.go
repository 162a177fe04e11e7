package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"bar-bartender/internal/config"
	"bar-bartender/internal/db"
	"bar-bartender/internal/email"
	apihttp "bar-bartender/internal/http"
	"bar-bartender/internal/llm"
	"bar-bartender/internal/repository"
	"bar-bartender/internal/schema"
	"bar-bartender/internal/service"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: loading .env: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		panic(err)
	}

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	store, err := db.Open(ctx, cfg)
	if err != nil {
		logger.Fatal("db connect", zap.Error(err))
	}
	defer store.Close()
	logger.Info("database ready", zap.String("backend", string(store.Dialect.Name())))

	reconciler := schema.NewReconciler(store, logger)
	for _, res := range reconciler.Ensure(ctx) {
		if res.Outcome == schema.OutcomeFailed {
			logger.Warn("schema step failed at startup", zap.String("step", res.Step), zap.Error(res.Err))
		}
	}

	var (
		limiter     service.RegistrationLimiter
		tokenStore  service.RefreshTokenStore
		redisClient *redis.Client
	)
	limits := service.RegistrationLimits{
		Window:      time.Duration(cfg.OTPRateLimitWindowMinutes) * time.Minute,
		MaxCodes:    cfg.OTPRateLimitMax,
		MaxAttempts: cfg.VerifyMaxAttempts,
	}
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer redisClient.Close()
		ctxPing, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := redisClient.Ping(ctxPing).Err(); err != nil {
			logger.Warn("redis ping failed", zap.Error(err))
		} else {
			limiter = service.NewRedisRegistrationLimiter(redisClient, limits, logger)
			tokenStore = service.NewRedisRefreshTokenStore(redisClient)
		}
		cancel()
	}
	if limiter == nil {
		limiter = service.NewRegistrationLimiter(limits)
	}

	jwtSvc := service.NewJWTServiceWithStore(
		cfg.JWTSecret,
		time.Duration(cfg.JWTAccessTTLMinutes)*time.Minute,
		time.Duration(cfg.JWTRefreshTTLMinutes)*time.Minute,
		tokenStore,
	)
	if cfg.JWTSecret == "" {
		logger.Warn("jwt secret not configured")
	}

	var categorizer service.Categorizer
	if cfg.LLMAPIKey != "" {
		llmClient := llm.NewHTTPClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModel, time.Duration(cfg.LLMTimeoutSeconds)*time.Second, logger)
		categorizer = service.NewLLMCategorizer(llmClient, logger)
	} else {
		logger.Info("llm api key not configured, product categorization disabled")
	}

	repos := repository.NewStore(store)
	registration := service.NewRegistrationService(logger, repos, newEmailSender(cfg, logger), limiter)
	userSvc := service.NewUserService(logger, repos.Users())
	catalogSvc := service.NewCatalogService(logger, repos, categorizer)
	recipeSvc := service.NewRecipeService(logger, repos)

	router := apihttp.NewRouter(
		logger,
		jwtSvc,
		reconciler.Middleware(),
		apihttp.NewUserHandler(logger, registration, userSvc, jwtSvc),
		apihttp.NewCatalogHandler(logger, catalogSvc),
		apihttp.NewRecipeHandler(logger, recipeSvc),
	)

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("starting server", zap.String("port", cfg.HTTPPort))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
}

// newEmailSender prefiere SendGrid, luego SMTP. Sin ninguno el registro
// falla al enviar: el codigo nunca se muestra por otro medio.
func newEmailSender(cfg *config.Config, logger *zap.Logger) email.Sender {
	if cfg.SendGridAPIKey != "" {
		sender, err := email.NewSendGridSender(cfg.SendGridAPIKey, cfg.MailFrom, cfg.MailFromName)
		if err == nil {
			return sender
		}
		logger.Warn("sendgrid sender init failed", zap.Error(err))
	}
	if cfg.SMTPHost != "" {
		from := cfg.MailFrom
		if from == "" {
			from = cfg.SMTPUser
		}
		sender, err := email.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, from, cfg.MailFromName, cfg.SMTPUseTLS)
		if err == nil {
			return sender
		}
		logger.Warn("smtp sender init failed", zap.Error(err))
	}
	logger.Warn("no email sender configured, registration is unavailable")
	return email.NewDisabledSender("email sender not configured")
}
