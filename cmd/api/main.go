package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/nmoretto/turnero/internal/api/router"
	"github.com/nmoretto/turnero/internal/availability"
	"github.com/nmoretto/turnero/internal/booking"
	"github.com/nmoretto/turnero/internal/calendar"
	"github.com/nmoretto/turnero/internal/catalog"
	"github.com/nmoretto/turnero/internal/channels/instagram"
	"github.com/nmoretto/turnero/internal/clients"
	appconfig "github.com/nmoretto/turnero/internal/config"
	"github.com/nmoretto/turnero/internal/conversation"
	"github.com/nmoretto/turnero/internal/messages"
	"github.com/nmoretto/turnero/internal/notify"
	"github.com/nmoretto/turnero/internal/observability/metrics"
	"github.com/nmoretto/turnero/internal/orders"
	"github.com/nmoretto/turnero/internal/payments"
	"github.com/nmoretto/turnero/internal/professionals"
	"github.com/nmoretto/turnero/pkg/logging"
)

func main() {
	_ = godotenv.Load()
	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting turnero API server", "env", cfg.Env, "port", cfg.Port)

	ctx := context.Background()

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		logger.Error("invalid timezone", "tz", cfg.Timezone, "error", err)
		os.Exit(1)
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	defer func() { _ = rdb.Close() }()

	gateway, err := calendar.NewGoogleGateway(ctx, cfg.GoogleCredentialsFile)
	if err != nil {
		logger.Error("failed to create calendar gateway", "error", err)
		os.Exit(1)
	}

	// Repositories
	clientsRepo := clients.NewRepository(pool)
	messagesRepo := messages.NewRepository(pool)
	profsRepo := professionals.NewRepository(pool)
	catalogRepo := catalog.NewRepository(pool)
	ordersRepo := orders.NewRepository(pool)
	bookingRepo := booking.NewRepository(pool)

	// Domain services
	searcher := availability.NewSearcher(gateway, loc, logger.Component("availability"), availability.Options{
		HorizonDays:    cfg.SearchHorizon,
		WorkHoursStart: cfg.WorkHoursStart,
		WorkHoursEnd:   cfg.WorkHoursEnd,
	})

	var mailer booking.Mailer
	if sg := notify.NewSendGridSender(notify.SendGridConfig{
		APIKey:    cfg.SendGridAPIKey,
		FromEmail: cfg.SendGridFromEmail,
		FromName:  cfg.SendGridFromName,
	}, logger.Component("notify")); sg != nil {
		mailer = sg
	}

	bookingSvc := booking.NewService(gateway, bookingRepo, profsRepo, mailer, loc, logger.Component("booking"))

	mpClient := payments.NewMercadoPagoClient(cfg.MPBaseURL, cfg.MPAccessToken, logger.Component("payments"))
	ordersSvc := orders.NewService(ordersRepo, catalogRepo, mpClient, logger.Component("orders"))

	igClient := instagram.NewClient(cfg.InstagramToken, cfg.InstagramID)

	// LLM provider chain: Gemini first, Bedrock Converse as fallback.
	gemini, err := conversation.NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModelID)
	if err != nil {
		logger.Error("failed to create gemini client", "error", err)
		os.Exit(1)
	}
	defer func() { _ = gemini.Close() }()

	var fallback conversation.LLMClient
	if cfg.BedrockModelID != "" {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
		if err != nil {
			logger.Error("failed to load AWS config", "error", err)
			os.Exit(1)
		}
		fallback = conversation.NewBedrockClient(bedrockruntime.NewFromConfig(awsCfg), cfg.BedrockModelID)
	}
	llm := conversation.NewFallbackClient(gemini, fallback, logger.Component("llm"))

	convMetrics := metrics.NewConversationMetrics(nil)

	dispatcher := conversation.NewDispatcher(
		searcher, profsRepo, bookingSvc, clientsRepo, catalogRepo, ordersSvc,
		igClient, cfg.CatalogImageURL, loc, logger.Component("tools"))

	engine := conversation.NewEngine(llm, dispatcher, cfg.MaxToolRounds, convMetrics, logger.Component("engine"))

	convSvc := conversation.NewService(conversation.ServiceConfig{
		Clients:      clientsRepo,
		Log:          messagesRepo,
		Engine:       engine,
		Debouncer:    conversation.NewDebouncer(cfg.DebounceWait),
		Cache:        conversation.NewHistoryCache(rdb, nil),
		Sender:       igClient,
		Metrics:      convMetrics,
		Logger:       logger.Component("conversation"),
		Location:     loc,
		HistoryLimit: cfg.HistoryLimit,
	})

	webhook := instagram.NewWebhookHandler(cfg.InstagramVerifyToken, cfg.InstagramAppSecret,
		func(msg instagram.InboundMessage) {
			if err := convSvc.HandleInbound(context.Background(), msg.SenderID, msg.Text); err != nil {
				logger.Error("inbound message rejected", "sender", msg.SenderID, "error", err)
			}
		})

	r := router.New(&router.Config{
		Logger:         logger,
		Webhook:        webhook,
		PaymentHook:    payments.NewNotificationHandler(mpClient, ordersSvc, logger.Component("payments")),
		MetricsHandler: promhttp.Handler(),
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")
	convSvc.Drain()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}
