package router

import (
	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/crew-shifts-backend/internal/config"
	"github.com/ignatzorin/crew-shifts-backend/internal/domain/valueobject"
	"github.com/ignatzorin/crew-shifts-backend/internal/http/handlers"
	"github.com/ignatzorin/crew-shifts-backend/internal/http/middleware"
)

// Handlers набор хэндлеров HTTP API.
type Handlers struct {
	Shift        *handlers.ShiftHandler
	Assignment   *handlers.AssignmentHandler
	Rating       *handlers.RatingHandler
	Dispute      *handlers.DisputeHandler
	Notification *handlers.NotificationHandler
	Evidence     *handlers.EvidenceHandler
	Health       *handlers.HealthHandler
	WS           *handlers.WSHandler
}

func SetupRouter(cfg *config.Config, h Handlers, tokens middleware.TokenParser) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))

	r.GET("/health", h.Health.Health)

	api := r.Group("/api")
	api.GET("/ws", h.WS.Handle)
	api.GET("/users/:id/rating", middleware.UUIDValidator("id"), h.Rating.GetUserRating)
	api.GET("/users/:id/ratings", middleware.UUIDValidator("id"), h.Rating.ListUserRatings)

	protected := api.Group("")
	protected.Use(middleware.AuthMiddleware(tokens))
	protected.Use(middleware.MutatingOnly(middleware.RateLimitMiddleware(cfg.RateLimitLimit, cfg.RateLimitPeriod)))
	{
		protected.POST("/shifts", h.Shift.CreateShift)
		protected.GET("/shifts/:id", middleware.UUIDValidator("id"), h.Shift.GetShift)
		protected.POST("/shifts/:id/applications", middleware.UUIDValidator("id"), h.Shift.Apply)
		protected.POST("/shifts/:id/applications/:workerId/approve", middleware.UUIDValidator("id", "workerId"), h.Shift.Approve)
		protected.POST("/shifts/:id/complete", middleware.UUIDValidator("id"), h.Shift.Complete)
		protected.POST("/shifts/:id/cancel", middleware.UUIDValidator("id"), h.Shift.Cancel)
		protected.POST("/shifts/:id/ratings", middleware.UUIDValidator("id"), h.Rating.SubmitRating)
		protected.GET("/shifts/:id/ratings", middleware.UUIDValidator("id"), h.Rating.ListShiftRatings)

		protected.POST("/assignments/:id/on-way", middleware.UUIDValidator("id"), h.Assignment.OnWay)
		protected.POST("/assignments/:id/check-in", middleware.UUIDValidator("id"), h.Assignment.CheckIn)
		protected.POST("/assignments/:id/check-out", middleware.UUIDValidator("id"), h.Assignment.CheckOut)
		protected.POST("/assignments/:id/confirm", middleware.UUIDValidator("id"), h.Assignment.Confirm)

		protected.POST("/evidence/photos", middleware.RequireRole(valueobject.ActorWorker), h.Evidence.UploadPhoto)

		protected.POST("/disputes", h.Dispute.OpenDispute)
		protected.GET("/disputes", h.Dispute.ListMyDisputes)
		protected.GET("/disputes/:id", middleware.UUIDValidator("id"), h.Dispute.GetDispute)

		protected.GET("/notifications", h.Notification.ListNotifications)
		protected.GET("/notifications/unread/count", h.Notification.CountUnread)
		protected.PUT("/notifications/read-all", h.Notification.MarkAllAsRead)
		protected.PUT("/notifications/:id/read", middleware.UUIDValidator("id"), h.Notification.MarkAsRead)
	}

	admin := protected.Group("/admin")
	admin.Use(middleware.RequireRole(valueobject.ActorAdmin))
	{
		admin.POST("/shifts/:id/finalize", middleware.UUIDValidator("id"), h.Shift.Finalize)
		admin.GET("/disputes", h.Dispute.ListDisputes)
		admin.POST("/disputes/:id/review", middleware.UUIDValidator("id"), h.Dispute.TakeInReview)
		admin.POST("/disputes/:id/resolve", middleware.UUIDValidator("id"), h.Dispute.ResolveDispute)
	}

	return r
}
