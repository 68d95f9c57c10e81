package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/fathima-sithara/conversation-service/internal/api"
	"github.com/fathima-sithara/conversation-service/internal/auth"
	"github.com/fathima-sithara/conversation-service/internal/config"
	"github.com/fathima-sithara/conversation-service/internal/events"
	"github.com/fathima-sithara/conversation-service/internal/kafka"
	"github.com/fathima-sithara/conversation-service/internal/logger"
	"github.com/fathima-sithara/conversation-service/internal/repository"
	"github.com/fathima-sithara/conversation-service/internal/service"
	"github.com/fathima-sithara/conversation-service/internal/users"
	"github.com/fathima-sithara/conversation-service/internal/ws"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load: %v", err)
	}

	zlog, err := logger.New(logger.Config{Development: cfg.App.Env != "production"})
	if err != nil {
		log.Fatalf("logger init: %v", err)
	}
	defer func() { _ = zlog.Sync() }()

	mc, err := repository.Connect(context.Background(), cfg.Mongo.URI)
	if err != nil {
		zlog.Fatalw("mongo connect", "err", err)
	}
	defer func() { _ = mc.Disconnect(context.Background()) }()

	stores := repository.NewMongoStores(mc.Database(cfg.Mongo.DB))

	var lookup users.Lookup = users.NewHTTPClient(users.HTTPClientConfig{
		BaseURL:         cfg.Users.BaseURL,
		Timeout:         cfg.Users.Timeout.Std(),
		RetryMaxElapsed: 2 * cfg.Users.Timeout.Std(),
	})
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
		lookup = users.NewCached(lookup, rdb, cfg.Users.CacheTTL.Std())
	}

	var lifecycle *events.Publisher
	if cfg.NATS.URL != "" {
		lifecycle, err = events.NewPublisher(cfg.NATS.URL, zlog)
		if err != nil {
			zlog.Fatalw("nats connect", "err", err)
		}
		defer lifecycle.Close()
	}

	var producer *kafka.Producer
	if len(cfg.Kafka.Brokers) > 0 {
		producer = kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		defer func() { _ = producer.Close() }()
	}

	convSvc := service.NewConversationService(stores.Conversations, lookup, lifecycle, zlog)

	var pub service.EventPublisher
	if producer != nil {
		pub = producer
	}
	msgSvc := service.NewMessageService(stores.Messages, stores.Conversations, stores.Reactions, lookup, pub, zlog)
	reactSvc := service.NewReactionService(stores.Reactions, stores.Messages, stores.Conversations, lookup, zlog)

	wsrv := ws.NewServer(convSvc, zlog)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if len(cfg.Kafka.Brokers) > 0 {
		consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.Kafka.GroupID, zlog)
		defer func() { _ = consumer.Close() }()
		go consumer.Start(ctx, wsrv.HandleEventMessage)
	}

	var jv *auth.JWTValidator
	if strings.EqualFold(cfg.JWT.Alg, "RS256") {
		jv, err = auth.NewRS256Validator(cfg.JWT.PublicKeyPath)
		if err != nil {
			zlog.Fatalw("jwt validator", "err", err)
		}
	} else {
		jv = auth.NewHS256Validator(cfg.JWT.HSSecret)
	}

	app := api.NewServer(jv, convSvc, msgSvc, reactSvc, wsrv, zlog)

	go func() {
		if err := app.Listen(":" + cfg.App.PortString()); err != nil {
			zlog.Fatalw("server listen", "err", err)
		}
	}()
	zlog.Infow("conversation-service started", "port", cfg.App.Port)

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout.Std())
	defer cancel()
	_ = app.ShutdownWithContext(shutdownCtx)
	zlog.Info("conversation-service stopped")
}
