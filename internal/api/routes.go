package api

import (
	"net/http"

	"huddleup/meetup-app/internal/realtime"
	"huddleup/meetup-app/internal/service"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(
	router *gin.Engine,
	jwtSecret string,
	authService service.AuthService,
	profileService service.ProfileService,
	groupService service.GroupService,
	planService service.PlanService,
	leaderboardService service.LeaderboardService,
	subscriber realtime.Subscriber,
) {
	authHandler := NewAuthHandler(authService, profileService)
	groupHandler := NewGroupHandler(groupService, leaderboardService)
	planHandler := NewPlanHandler(planService)

	authMiddleware := AuthMiddleware(jwtSecret)

	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	apiV1 := router.Group("/api/v1")
	{
		authGroup := apiV1.Group("/auth")
		{
			authGroup.POST("/register", authHandler.Register)
			authGroup.POST("/login", authHandler.Login)
		}
	}

	protected := apiV1.Group("")
	protected.Use(authMiddleware)
	{
		protected.GET("/me", authHandler.GetMe)
		protected.PUT("/me/push-token", authHandler.UpdatePushToken)
		protected.POST("/me/avatar", authHandler.RequestAvatarUpload)

		groupRoutes := protected.Group("/groups")
		{
			groupRoutes.POST("", groupHandler.CreateGroup)
			groupRoutes.GET("/:id", groupHandler.GetGroup)
			groupRoutes.POST("/:id/members", groupHandler.AddMember)
			groupRoutes.GET("/:id/plans", planHandler.GetGroupPlans)
			groupRoutes.GET("/:id/leaderboard", groupHandler.GetLeaderboard)
		}

		planRoutes := protected.Group("/plans")
		{
			planRoutes.POST("", planHandler.CreatePlan)
			planRoutes.GET("/:id", planHandler.GetPlan)
			planRoutes.POST("/:id/votes", planHandler.CastVote)
			planRoutes.POST("/:id/checkin", planHandler.CheckIn)
			planRoutes.POST("/:id/complete", planHandler.CompletePlan)
			planRoutes.POST("/:id/cancel", planHandler.CancelPlan)
			planRoutes.POST("/:id/remind", planHandler.SendReminder)
		}
	}

	// The change feed is optional; without Redis there is nothing to
	// stream and the route is simply absent.
	if subscriber != nil {
		feedHandler := NewChangeFeedHandler(subscriber)
		router.GET("/ws/changes", authMiddleware, feedHandler.Subscribe)
	}
}
