package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"

	"bulk-order-service/config"
	"bulk-order-service/consumers"
	"bulk-order-service/database"
	"bulk-order-service/events"
	"bulk-order-service/kafka"
	"bulk-order-service/logging"
	"bulk-order-service/rabbitmq"
	"bulk-order-service/repository"
	"bulk-order-service/router"
	"bulk-order-service/services"
	"bulk-order-service/utils"
)

type stores struct {
	products repository.ProductRepository
	orders   repository.OrderRepository
	users    repository.UserRepository
	ping     func(ctx context.Context) error
	close    func()
}

func openStores(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*stores, error) {
	if cfg.StoreDriver == "memory" {
		log.Warn().Msg("using in-memory store, data is lost on restart")
		mem := repository.NewMemoryStore()
		return &stores{products: mem, orders: mem, users: mem, close: func() {}}, nil
	}

	db, err := database.InitDB(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	if err := database.AutoMigrate(ctx, db); err != nil {
		database.CloseDB(db, log)
		return nil, err
	}
	return &stores{
		products: repository.NewMySQLProductRepository(db),
		orders:   repository.NewMySQLOrderRepository(db),
		users:    repository.NewMySQLUserRepository(db),
		ping:     db.PingContext,
		close:    func() { database.CloseDB(db, log) },
	}, nil
}

func openPublisher(cfg *config.Config, log zerolog.Logger) (events.Publisher, error) {
	switch cfg.EventBroker {
	case "rabbitmq":
		rmq, err := rabbitmq.NewRabbitMQ(cfg, log)
		if err != nil {
			return nil, err
		}
		if err := rmq.SetupQueues(); err != nil {
			_ = rmq.Close()
			return nil, err
		}
		if err := consumers.NewOrderConsumer(log).Start(rmq.Channel, cfg); err != nil {
			_ = rmq.Close()
			return nil, err
		}
		return rmq, nil
	case "kafka":
		return kafka.NewPublisher(cfg, log), nil
	default:
		log.Info().Msg("event publishing disabled")
		return events.NopPublisher{}, nil
	}
}

func openGuard(ctx context.Context, cfg *config.Config, log zerolog.Logger) (services.IdempotencyGuard, func()) {
	if cfg.RedisAddr == "" {
		return services.NopIdempotencyGuard{}, func() {}
	}
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("redis not reachable, duplicate submissions will not be detected until it is")
	}
	return services.NewRedisIdempotencyGuard(rdb, cfg.IdempotencyTTL), func() {
		if err := rdb.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close redis client")
		}
	}
}

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		bootLog := zerolog.New(os.Stderr)
		bootLog.Fatal().Err(err).Msg("invalid configuration")
	}
	log := logging.New(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := openStores(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.StoreDriver).Msg("store initialization failed")
	}
	defer st.close()

	publisher, err := openPublisher(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Str("broker", cfg.EventBroker).Msg("event broker initialization failed")
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close event publisher")
		}
	}()

	guard, closeGuard := openGuard(ctx, cfg, log)
	defer closeGuard()

	tokens := utils.NewTokenManager(cfg.JWTSecret, cfg.JWTTTL)
	users := services.NewUserService(st.users, tokens, log).
		WithPasswordReset(cfg.PasswordResetURL, cfg.PasswordResetTTL, nil)
	if cfg.AdminEmail != "" && cfg.AdminPassword != "" {
		if err := users.EnsureAdmin(ctx, cfg.AdminEmail, cfg.AdminPassword); err != nil {
			log.Fatal().Err(err).Msg("failed to seed admin account")
		}
	}

	engine := router.New(router.Deps{
		Log:       log,
		Tokens:    tokens,
		Products:  services.NewProductService(st.products, log),
		Orders:    services.NewOrderService(st.orders, publisher, guard, log),
		Users:     users,
		RateLimit: cfg.RateLimit,
		RateBurst: cfg.RateBurst,
		Ping:      st.ping,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("order service starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}
