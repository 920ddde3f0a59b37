package main

import (
	"context"
	"log"
	"time"

	"go.uber.org/zap"

	"freelancehub/config"
	mqcontracts "freelancehub/contracts/mq"
	"freelancehub/internal/events"
	"freelancehub/internal/handler"
	"freelancehub/internal/httpserver"
	"freelancehub/internal/mqhandler"
	"freelancehub/internal/realtime"
	"freelancehub/internal/repository"
	"freelancehub/internal/service"
	"freelancehub/pkg/db"
	"freelancehub/pkg/logger"
	"freelancehub/pkg/mq"
	"freelancehub/pkg/otel"
	"freelancehub/pkg/outbox"
	redispkg "freelancehub/pkg/redis"
	"freelancehub/pkg/util"
)

func main() {
	// 1. Load config
	cfg := config.Load()

	zlog := logger.NewLogger()
	defer zlog.Sync()

	// 2. Init tracing
	shutdownOtel, err := otel.Init(otel.Config{
		ServiceName:    cfg.Otel.ServiceName,
		ServiceVersion: cfg.Otel.ServiceVersion,
		Endpoint:       cfg.Otel.Endpoint,
		Enabled:        cfg.Otel.Enabled,
	}, zlog)
	if err != nil {
		zlog.Fatal("OTel initialization failed", zap.Error(err))
	}
	defer shutdownOtel()

	// 3. Init DB
	dbConn, err := db.NewConnection(cfg.DB, zlog)
	if err != nil {
		zlog.Fatal("DB initialization failed", zap.Error(err))
	}
	defer dbConn.Close()

	// 4. Init Redis
	rdb, err := redispkg.NewClient(cfg.Redis, zlog)
	if err != nil {
		zlog.Fatal("Redis initialization failed", zap.Error(err))
	}
	defer rdb.Close()

	// 5. Init RabbitMQ publisher + outbox dispatcher
	publisher, err := mq.NewPublisher(cfg.MQ.URL)
	if err != nil {
		log.Fatalf("failed to init publisher: %v", err)
	}
	defer publisher.Close()

	breakerPublisher := events.NewBreakerPublisher(publisher, zlog)

	outboxRepo := outbox.NewRepository(dbConn)
	dispatcher := outbox.NewDispatcher(outboxRepo, publisher, zlog)
	dispatcherCtx, stopDispatcher := context.WithCancel(context.Background())
	defer stopDispatcher()
	go dispatcher.Start(dispatcherCtx)

	// 6. Init repositories
	userRepo := repository.NewUserRepository(dbConn)
	taskRepo := repository.NewTaskRepository(dbConn, zlog)
	bidRepo := repository.NewBidRepository(dbConn, zlog)
	milestoneRepo := repository.NewMilestoneRepository(dbConn, zlog)
	notificationRepo := repository.NewNotificationRepository(dbConn, zlog)
	messageRepo := repository.NewMessageRepository(dbConn, zlog)

	// 7. Init services + realtime hub
	authService := service.NewAuthService(userRepo, cfg.JWT.Secret, zlog)
	taskService := service.NewTaskService(taskRepo, bidRepo, breakerPublisher, zlog)
	bidService := service.NewBidService(taskRepo, bidRepo, breakerPublisher, zlog)
	milestoneService := service.NewMilestoneService(taskRepo, bidRepo, milestoneRepo, breakerPublisher, zlog)

	presence := realtime.NewPresence(rdb)
	hub := realtime.NewHub(taskService, messageRepo, cfg.Chat.HistoryLimit, zlog)
	notificationService := service.NewNotificationService(notificationRepo, presence, hub, zlog)

	// 8. Init MQ consumers (one queue per routing key)
	deduper := util.NewDeduper(rdb, 24*time.Hour, zlog)
	retryCounter := util.NewRetryCounter(rdb, time.Hour)
	retryPolicy := mqhandler.NewRetryPolicy(deduper, retryCounter, publisher, zlog)

	consumers := map[string]struct {
		queue   string
		handler mq.MessageHandler
	}{
		mqcontracts.RoutingKeyBidSubmitted: {
			queue:   "notify.bid.submitted",
			handler: mqhandler.NewBidSubmittedHandler(notificationService, retryPolicy, zlog).Handle,
		},
		mqcontracts.RoutingKeyBidAccepted: {
			queue:   "notify.bid.accepted",
			handler: mqhandler.NewBidAcceptedHandler(notificationService, hub, retryPolicy, zlog).Handle,
		},
		mqcontracts.RoutingKeyMilestoneCreated: {
			queue:   "notify.milestone.created",
			handler: mqhandler.NewMilestoneCreatedHandler(notificationService, retryPolicy, zlog).Handle,
		},
		mqcontracts.RoutingKeyMilestoneCompleted: {
			queue:   "notify.milestone.completed",
			handler: mqhandler.NewMilestoneCompletedHandler(notificationService, retryPolicy, zlog).Handle,
		},
		mqcontracts.RoutingKeyMilestonePaid: {
			queue:   "notify.milestone.paid",
			handler: mqhandler.NewMilestonePaidHandler(notificationService, retryPolicy, zlog).Handle,
		},
		mqcontracts.RoutingKeyTaskCancelled: {
			queue:   "notify.task.cancelled",
			handler: mqhandler.NewTaskCancelledHandler(notificationService, retryPolicy, zlog).Handle,
		},
	}

	for routingKey, c := range consumers {
		consumer, err := mq.NewConsumer(cfg.MQ.URL, c.queue, routingKey, zlog)
		if err != nil {
			log.Fatalf("failed to init consumer for %s: %v", routingKey, err)
		}
		defer consumer.Close()
		consumer.SetHandler(c.handler)

		go func(rk string, cons *mq.Consumer) {
			if err := cons.StartConsuming(); err != nil {
				zlog.Fatal("consumer start failed", zap.String("routing_key", rk), zap.Error(err))
			}
		}(routingKey, consumer)
	}

	// 9. Init handlers
	authHandler := handler.NewAuthHandler(authService, zlog)
	taskHandler := handler.NewTaskHandler(taskService, zlog)
	bidHandler := handler.NewBidHandler(bidService, zlog)
	milestoneHandler := handler.NewMilestoneHandler(milestoneService, zlog)
	notificationHandler := handler.NewNotificationHandler(notificationService, zlog)
	wsHandler := handler.NewWSHandler(hub, presence, userRepo, cfg.JWT.Secret, zlog)

	// 10. Init router and run
	router := httpserver.NewRouter(
		authHandler,
		taskHandler,
		bidHandler,
		milestoneHandler,
		notificationHandler,
		wsHandler,
		cfg.JWT.Secret,
		dbConn,
		publisher.IsConnected,
		zlog,
	)
	if err := router.Run(cfg.Server.Port); err != nil {
		zlog.Fatal("server start failed", zap.Error(err))
	}
}
