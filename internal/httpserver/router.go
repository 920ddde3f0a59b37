package httpserver

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"freelancehub/internal/handler"
	"freelancehub/pkg/otel"
	"freelancehub/pkg/rbac"
)

type Router struct {
	Engine *gin.Engine
}

func NewRouter(
	authHandler *handler.AuthHandler,
	taskHandler *handler.TaskHandler,
	bidHandler *handler.BidHandler,
	milestoneHandler *handler.MilestoneHandler,
	notificationHandler *handler.NotificationHandler,
	wsHandler *handler.WSHandler,
	jwtSecret string,
	db *pgxpool.Pool,
	mqReady func() bool,
	logger *zap.Logger,
) *Router {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(TraceMiddleware())
	r.Use(otel.GinMiddleware())
	r.Use(MetricsMiddleware())
	r.Use(LoggingMiddleware(logger))

	// Health endpoints (放在最前面)
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	r.HEAD("/healthz", func(c *gin.Context) {
		c.Status(200)
	})
	r.GET("/readyz", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c, 1*time.Second)
		defer cancel()

		if err := db.Ping(ctx); err != nil {
			c.JSON(500, gin.H{"status": "db_not_ready", "error": err.Error()})
			return
		}
		if mqReady != nil && !mqReady() {
			c.JSON(500, gin.H{"status": "mq_not_ready"})
			return
		}
		c.JSON(200, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Public
	r.POST("/api/register", authHandler.Register)
	r.POST("/api/login", authHandler.Login)

	// Websocket does its own token check before the upgrade
	r.GET("/ws", wsHandler.Serve)

	// Protected
	auth := r.Group("/api")
	auth.Use(AuthMiddleware(jwtSecret))
	{
		auth.GET("/tasks", taskHandler.ListTasks)
		auth.GET("/tasks/:id", taskHandler.GetTask)
		auth.POST("/tasks", RequirePermission(rbac.PermissionCreateTask), taskHandler.CreateTask)
		auth.POST("/tasks/:id/cancel", RequirePermission(rbac.PermissionCancelTask), taskHandler.CancelTask)

		auth.GET("/tasks/:id/bids", bidHandler.ListBids)
		auth.POST("/tasks/:id/bids", RequirePermission(rbac.PermissionSubmitBid), bidHandler.SubmitBid)
		auth.POST("/bids/:id/accept", RequirePermission(rbac.PermissionAcceptBid), bidHandler.AcceptBid)

		auth.GET("/tasks/:id/milestones", milestoneHandler.ListMilestones)
		auth.POST("/tasks/:id/milestones", RequirePermission(rbac.PermissionCreateMilestone), milestoneHandler.CreateMilestone)
		auth.POST("/milestones/:id/complete", RequirePermission(rbac.PermissionCompleteWork), milestoneHandler.RequestCompletion)
		auth.POST("/milestones/:id/pay", RequirePermission(rbac.PermissionReleasePayment), milestoneHandler.ReleasePayment)

		auth.GET("/notifications", notificationHandler.ListNotifications)
		auth.POST("/notifications/:id/read", notificationHandler.MarkRead)
	}

	return &Router{Engine: r}
}

func (r *Router) Run(port string) error {
	return r.Engine.Run(port)
}
