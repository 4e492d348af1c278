package appServer

import (
	"context"
	"crypto/tls"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ds124wfegd/confhub/config"
	repository "github.com/ds124wfegd/confhub/internal/database/postgres"
	"github.com/ds124wfegd/confhub/internal/notifier"
	"github.com/ds124wfegd/confhub/internal/service"
	"github.com/ds124wfegd/confhub/internal/transport"
	"github.com/ds124wfegd/confhub/internal/worker"

	"github.com/ds124wfegd/confhub/pkg/postgres"
	"github.com/ds124wfegd/confhub/pkg/queue"
	"github.com/ds124wfegd/confhub/pkg/rabbitmq"
	"github.com/ds124wfegd/confhub/pkg/redis"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type Server struct {
	httpServer *http.Server
}

func (s *Server) Run(cfg *config.Config, handler http.Handler) error {
	s.httpServer = &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           handler,
		MaxHeaderBytes:    1 << 20,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      cfg.Server.Timeout,
		IdleTimeout:       cfg.Server.Idle_timeout,
		ReadHeaderTimeout: 3 * time.Second,
		TLSConfig:         &tls.Config{MinVersion: tls.VersionTLS12},
		ErrorLog:          log.New(os.Stderr, "SERVER ERROR: ", log.LstdFlags),
	}
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func NewServer(cfg *config.Config) {

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)
	logger.SetLevel(logrus.InfoLevel)

	// Initialize database
	db, err := postgres.NewPostgresDB(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	// Run database migrations
	if err := postgres.RunMigrations(db); err != nil {
		logger.Fatalf("Failed to run migrations: %v", err)
	}

	// Initialize repositories
	eventRepo := repository.NewEventRepository(db)
	ticketRepo := repository.NewTicketRepository(db)
	registrationRepo := repository.NewRegistrationRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	userRepo := repository.NewUserRepository(db)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize RabbitMQ publisher for realtime capacity updates
	var capacityNotifier *notifier.CapacityNotifier
	if cfg.RabbitMQ.Enabled {
		publisher, err := rabbitmq.NewRabbitMQ(rabbitmq.RabbitMQConfig{
			URL:          cfg.RabbitMQ.URL,
			ExchangeName: cfg.RabbitMQ.Exchange,
		})
		if err != nil {
			logger.Errorf("Failed to initialize RabbitMQ: %v. Continuing without realtime updates...", err)
		} else {
			defer publisher.Close()
			capacityNotifier = notifier.NewCapacityNotifier(publisher, cfg.Notifier.BufferSize, logger)
			capacityNotifier.Start(ctx)
			defer capacityNotifier.Stop()
			logger.Info("Capacity notifier started")
		}
	}

	// Initialize Redis client for availability cache
	redisClient := redis.NewRedisClient(&cfg.Redis)
	defer redisClient.Close()
	availabilityCache := service.NewAvailabilityCache(redisClient, cfg.Cache.AvailabilityTTL)

	// Initialize Redis task queue
	var redisQueue queue.Queue
	var taskPublisher service.TaskPublisher

	redisConfig := queue.DefaultRedisQueueConfig()
	redisConfig.Addr = fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port)
	redisConfig.Password = cfg.Redis.Password
	redisConfig.DB = cfg.Redis.DB

	rq, err := queue.NewRedisQueue(redisConfig, nil, nil)
	if err != nil {
		logger.Errorf("Failed to initialize Redis queue: %v. Continuing without queue...", err)
	} else {
		redisQueue = rq
		taskPublisher = service.NewQueueAdapter(redisQueue)
		logger.Info("Redis queue initialized")
	}

	// Initialize services
	paymentTimeout := time.Duration(cfg.Registration.PaymentTimeout) * time.Minute

	var notifierIface service.CapacityNotifier
	if capacityNotifier != nil {
		notifierIface = capacityNotifier
	}

	eventService := service.NewEventService(eventRepo, userRepo, logger)
	userService := service.NewUserService(userRepo, logger)
	ticketService := service.NewTicketService(ticketRepo, eventRepo, availabilityCache, logger)
	registrationService := service.NewRegistrationService(
		registrationRepo, ticketRepo, eventRepo, userRepo,
		taskPublisher, notifierIface, availabilityCache, paymentTimeout, logger,
	)
	sessionService := service.NewSessionService(sessionRepo, eventRepo, userRepo, notifierIface, logger)

	// Start queue consumer
	if redisQueue != nil {
		taskWorker := worker.NewTaskWorker(redisQueue, registrationService, userService, logger)
		if err := taskWorker.Start(ctx); err != nil {
			logger.Errorf("Queue subscriber error: %v", err)
		} else {
			logger.Info("Task worker started")
		}
	}

	// Initialize cleanup worker
	cleanupInterval := time.Duration(cfg.Worker.CleanupInterval) * time.Minute
	if cleanupInterval <= 0 {
		cleanupInterval = time.Minute
	}
	cleanupWorker := worker.NewRegistrationCleanupWorker(registrationService, cleanupInterval, paymentTimeout)
	go cleanupWorker.Start(ctx)
	logger.Info("Cleanup worker started")

	// Initialize handlers
	eventHandler := transport.NewEventHandler(eventService)
	ticketHandler := transport.NewTicketHandler(ticketService)
	registrationHandler := transport.NewRegistrationHandler(registrationService)
	sessionHandler := transport.NewSessionHandler(sessionService)
	userHandler := transport.NewUserHandler(userService)

	// Setup HTTP server
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	srv := new(Server)
	go func() {
		if err := srv.Run(cfg, transport.InitRoutes(eventHandler, ticketHandler, registrationHandler, sessionHandler, userHandler)); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("error occured while running http server: %s", err.Error())
		}
	}()

	logger.Print("App Started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)
	<-quit

	logger.Print("App Shutting Down")

	if redisQueue != nil {
		if err := redisQueue.Close(); err != nil {
			logger.Errorf("error occured on queue shutting down: %s", err.Error())
		}
	}

	if err := srv.Shutdown(context.Background()); err != nil {
		logger.Errorf("error occured on server shutting down: %s", err.Error())
	}
}
