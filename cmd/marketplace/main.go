// Package main Digital Goods Marketplace API
//
// Serves listings, orders, reviews, notifications and admin endpoints over
// HTTP and the order lifecycle over gRPC. Caller identity comes from the
// X-User-ID and X-User-Role headers set by the upstream auth proxy.
//
//	@title			Digital Goods Marketplace API
//	@version		1.0
//	@description	Listings, orders, reviews and notifications of the digital goods marketplace
//	@termsOfService	http://swagger.io/terms/
//
//	@contact.name	API Support
//	@contact.email	support@example.com
//
//	@license.name	MIT
//	@license.url	https://opensource.org/licenses/MIT
//
//	@host		localhost:8080
//	@BasePath	/
//	@schemes	http https
package main

import (
	"context"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"gorm.io/gorm"

	_ "digimarket/docs/swagger"
	adminadapters "digimarket/internal/admin/adapters"
	adminapp "digimarket/internal/admin/application"
	adminhttp "digimarket/internal/admin/infrastructure"
	adminports "digimarket/internal/admin/ports"
	catalogadapters "digimarket/internal/catalog/adapters"
	catalogapp "digimarket/internal/catalog/application"
	cataloghttp "digimarket/internal/catalog/infrastructure"
	catalogports "digimarket/internal/catalog/ports"
	notificationadapters "digimarket/internal/notifications/adapters"
	notificationapp "digimarket/internal/notifications/application"
	notificationhttp "digimarket/internal/notifications/infrastructure"
	notificationports "digimarket/internal/notifications/ports"
	orderapp "digimarket/internal/orders/application"
	orderinfra "digimarket/internal/orders/infrastructure"
	orderports "digimarket/internal/orders/ports"
	outboxadapters "digimarket/internal/outbox/adapters"
	outboxapp "digimarket/internal/outbox/application"
	outboxports "digimarket/internal/outbox/ports"
	reviewapp "digimarket/internal/reviews/application"
	reviewhttp "digimarket/internal/reviews/infrastructure"
	reviewports "digimarket/internal/reviews/ports"
	"digimarket/internal/storage/memory"
	"digimarket/internal/storage/postgres"
	"digimarket/pkg/cache"
	"digimarket/pkg/config"
	"digimarket/pkg/db"
	grpcpkg "digimarket/pkg/grpc"
	"digimarket/pkg/logger"
	"digimarket/pkg/middleware"
	"digimarket/pkg/rabbitmq"
	pkgtls "digimarket/pkg/tls"
)

// storage groups the repositories and unit of work factories of one backend
type storage struct {
	users         catalogports.UserRepository
	listings      catalogports.ListingRepository
	notifications notificationports.NotificationRepository
	outbox        outboxports.Repository
	stats         adminports.StatsRepository
	orders        orderports.UnitOfWorkFactory
	reviews       reviewports.UnitOfWorkFactory
}

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	log := logger.New(cfg.ServiceName, cfg.LogLevel)
	defer log.Sync()

	log.Info("starting marketplace service", zap.String("storage", cfg.StorageDriver))

	store := openStorage(cfg, log)

	// Optional Redis idempotency store
	var idempotency orderports.IdempotencyStore
	if cfg.RedisAddr != "" {
		client, err := cache.NewClient(context.Background(), cache.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			log.Warn("failed to connect to Redis, idempotency keys will be ignored: " + err.Error())
		} else {
			defer client.Close()
			idempotency = cache.NewIdempotencyStore(client, cfg.ServiceName, cfg.IdempotencyTTL)
			log.Info("connected to Redis")
		}
	}

	// Optional RabbitMQ outbox relay
	var relay *outboxapp.Relay
	if cfg.RabbitMQEnabled {
		rabbitConn, err := rabbitmq.NewConnection(cfg.RabbitMQURL, log)
		if err != nil {
			log.Warn("failed to connect to RabbitMQ, events stay in the outbox: " + err.Error())
		} else {
			defer rabbitConn.Close()

			pub, err := rabbitmq.NewPublisher(rabbitConn, cfg.RabbitMQExchange, log)
			if err != nil {
				log.Warn("failed to create publisher: " + err.Error())
			} else {
				relay = outboxapp.NewRelay(store.outbox, pub, cfg.OutboxSchedule, cfg.OutboxBatchSize, log)
				if err := relay.Start(); err != nil {
					log.Fatal("failed to start outbox relay: " + err.Error())
				}
			}
		}
	}

	// Initialize use cases
	userUseCase := catalogapp.NewUserUseCase(store.users, log)
	listingUseCase := catalogapp.NewListingUseCase(store.listings, store.users, log)
	orderUseCase := orderapp.NewOrderUseCase(store.orders, idempotency, log)
	reviewUseCase := reviewapp.NewReviewUseCase(store.reviews, log)
	notificationUseCase := notificationapp.NewNotificationUseCase(store.notifications, log)
	adminUseCase := adminapp.NewAdminUseCase(store.stats, store.users, log)

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Setup Gin router
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(middleware.TraceID())
	router.Use(middleware.RequestLogger(log))
	router.Use(middleware.ErrorHandler(log))
	router.Use(middleware.CORS())
	router.Use(middleware.Actor())

	api := router.Group("/api/v1")
	cataloghttp.NewHTTPHandler(userUseCase, listingUseCase).RegisterRoutes(api)
	orderinfra.NewHTTPHandler(orderUseCase).RegisterRoutes(api)
	reviewhttp.NewHTTPHandler(reviewUseCase).RegisterRoutes(api)
	notificationhttp.NewHTTPHandler(notificationUseCase).RegisterRoutes(api)
	adminhttp.NewHTTPHandler(adminUseCase).RegisterRoutes(api)

	// Swagger documentation
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	httpServer := startHTTPServer(cfg, log, router)

	// Start gRPC server
	grpcServer := setupGRPCServer(cfg, log, orderUseCase)

	lis, err := net.Listen("tcp", ":"+cfg.GRPCPort)
	if err != nil {
		log.Fatal("failed to listen for gRPC: " + err.Error())
	}

	go func() {
		log.Info("gRPC server listening on :" + cfg.GRPCPort)
		if err := grpcServer.Serve(lis); err != nil {
			log.Fatal("gRPC server error: " + err.Error())
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down servers...")

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 10*time.Second)
	defer shutdownCancel()

	if relay != nil {
		relay.Stop()
	}
	grpcServer.GracefulStop()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP shutdown error: " + err.Error())
	}

	log.Info("servers stopped")
}

func openStorage(cfg *config.Config, log *logger.Logger) *storage {
	if cfg.UsesMemoryStorage() {
		log.Warn("using in-memory storage, data is lost on restart")
		return memoryStorage(memory.NewStore())
	}

	// Connect to database
	dbConn, err := db.NewConnection(db.Config{
		Host:     cfg.DBHost,
		Port:     cfg.DBPort,
		User:     cfg.DBUser,
		Password: cfg.DBPassword,
		DBName:   cfg.DBName,
		SSLMode:  cfg.DBSSLMode,
		Timeout:  cfg.DBTimeout,
	})
	if err != nil {
		log.Fatal("failed to connect to database: " + err.Error())
	}
	log.Info("connected to database")

	if err := postgres.Migrate(dbConn); err != nil {
		log.Fatal("failed to migrate database: " + err.Error())
	}

	return postgresStorage(dbConn)
}

func memoryStorage(store *memory.Store) *storage {
	return &storage{
		users:         store.Users(),
		listings:      store.Listings(),
		notifications: store.Notifications(),
		outbox:        store.Outbox(),
		stats:         store.Stats(),
		orders:        orderports.UnitOfWorkFactoryFunc(func() orderports.UnitOfWork { return store.NewUnitOfWork() }),
		reviews:       reviewports.UnitOfWorkFactoryFunc(func() reviewports.UnitOfWork { return store.NewUnitOfWork() }),
	}
}

func postgresStorage(dbConn *gorm.DB) *storage {
	factory := postgres.NewGormUnitOfWorkFactory(dbConn)
	return &storage{
		users:         catalogadapters.NewPostgresUserRepository(dbConn),
		listings:      catalogadapters.NewPostgresListingRepository(dbConn),
		notifications: notificationadapters.NewPostgresNotificationRepository(dbConn),
		outbox:        outboxadapters.NewPostgresOutboxRepository(dbConn),
		stats:         adminadapters.NewPostgresStatsRepository(dbConn),
		orders:        factory.Orders(),
		reviews:       factory.Reviews(),
	}
}

func startHTTPServer(cfg *config.Config, log *logger.Logger, router *gin.Engine) *http.Server {
	server := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  cfg.HTTPTimeout,
		WriteTimeout: cfg.HTTPTimeout,
	}

	if !cfg.TLSEnabled {
		go func() {
			log.Info("HTTP server listening on http://localhost:" + cfg.HTTPPort)
			log.Info("Swagger UI: http://localhost:" + cfg.HTTPPort + "/swagger/index.html")
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatal("HTTP server error: " + err.Error())
			}
		}()
		return server
	}

	tlsConfig, err := pkgtls.ServerConfig(cfg.TLSCertFile, cfg.TLSKeyFile, "", false)
	if err != nil {
		log.Fatal("failed to load TLS config: " + err.Error())
	}
	server.Addr = ":" + cfg.HTTPSPort
	server.TLSConfig = tlsConfig

	go func() {
		log.Info("HTTPS server listening on https://localhost:" + cfg.HTTPSPort)
		log.Info("Swagger UI: https://localhost:" + cfg.HTTPSPort + "/swagger/index.html")
		if err := server.ListenAndServeTLS("", ""); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTPS server error: " + err.Error())
		}
	}()
	return server
}

func setupGRPCServer(cfg *config.Config, log *logger.Logger, useCase *orderapp.OrderUseCase) *grpc.Server {
	var opts []grpc.ServerOption

	// Add interceptors
	opts = append(opts,
		grpc.UnaryInterceptor(grpcpkg.UnaryServerInterceptor(log, cfg.GRPCTimeout)),
		grpc.StreamInterceptor(grpcpkg.StreamServerInterceptor(log)),
	)

	// Configure mTLS if enabled
	if cfg.GRPCMTLSEnabled {
		tlsConfig, err := pkgtls.ServerConfig(
			cfg.TLSCertFile,
			cfg.TLSKeyFile,
			cfg.TLSCAFile,
			true, // require client cert
		)
		if err != nil {
			log.Fatal("failed to load TLS config: " + err.Error())
		}
		opts = append(opts, grpc.Creds(credentials.NewTLS(tlsConfig)))
		log.Info("gRPC mTLS enabled")
	}

	server := grpc.NewServer(opts...)
	orderinfra.RegisterOrderServiceServer(server, orderinfra.NewGRPCServer(useCase))

	return server
}
