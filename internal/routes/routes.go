package routes

import (
	"caredesk-server/internal/cache"
	"caredesk-server/internal/canvas"
	"caredesk-server/internal/chat"
	"caredesk-server/internal/config"
	"caredesk-server/internal/events"
	"caredesk-server/internal/gateway"
	"caredesk-server/internal/handlers"
	"caredesk-server/internal/metrics"
	"caredesk-server/internal/middleware"
	"caredesk-server/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"gorm.io/gorm"
)

// Deps carries the shared services the handlers are built from.
type Deps struct {
	DB       *gorm.DB
	Config   *config.Config
	Chat     *chat.Service
	Gateway  *gateway.Client
	Bus      *events.Bus
	Previews *cache.PreviewCache
	Canvas   *canvas.Manager
	Queue    *asynq.Client
}

// SetupRoutes configures the application routes.
func SetupRoutes(router *gin.Engine, deps Deps) {
	// Initialize handlers
	chatHandler := handlers.NewChatHandler(deps.DB, deps.Chat, deps.Gateway, deps.Bus, deps.Previews)
	patientHandler := handlers.NewPatientHandler(deps.DB)
	apptTypeHandler := handlers.NewAppointmentTypeHandler(deps.DB)
	leadHandler := handlers.NewLeadHandler(deps.DB)
	campaignHandler := handlers.NewCampaignHandler(deps.DB, deps.Queue)
	canvasHandler := handlers.NewCanvasHandler(deps.DB, deps.Canvas)

	// Public routes (no authentication required)
	public := router.Group("/api/v1")
	{
		// Gateway push events arrive with a shared-secret header, not a user
		// token; signature verification happens at the ingress proxy.
		public.POST("/gateway/events", chatHandler.HandleGatewayEvent)
	}

	// Authenticated routes
	private := router.Group("/api/v1")
	private.Use(middleware.AuthMiddleware(deps.Config))
	{
		// Chat routes
		chatRoutes := private.Group("/chat")
		{
			chatRoutes.POST("/send", chatHandler.SendMessage)
			chatRoutes.POST("/send-media", chatHandler.SendMediaMessage)
			chatRoutes.GET("/conversations", chatHandler.GetConversations)
			chatRoutes.GET("/conversations/:contactId/messages", chatHandler.GetConversationMessages)
			chatRoutes.GET("/ws", chatHandler.ServeWS)
		}

		// Patient and visit routes
		patientRoutes := private.Group("/patients")
		{
			patientRoutes.POST("", middleware.RoleAuthMiddleware(models.RoleAdmin, models.RoleReceptionist), patientHandler.CreatePatient)
			patientRoutes.GET("", patientHandler.GetPatients)
			patientRoutes.GET("/:id", patientHandler.GetPatientByID)
		}
		visitRoutes := private.Group("/visits")
		{
			visitRoutes.POST("", middleware.RoleAuthMiddleware(models.RoleAdmin, models.RoleReceptionist, models.RoleDoctor), patientHandler.CreateVisit)
			visitRoutes.GET("", patientHandler.GetVisits)
			visitRoutes.PATCH("/:id/status", patientHandler.UpdateVisitStatus)
		}

		// Appointment type catalog (admin-managed)
		apptTypeRoutes := private.Group("/appointment-types")
		{
			apptTypeRoutes.GET("", apptTypeHandler.GetAppointmentTypes)

			adminRoutes := apptTypeRoutes.Group("")
			adminRoutes.Use(middleware.RoleAuthMiddleware(models.RoleAdmin))
			{
				adminRoutes.POST("", apptTypeHandler.CreateAppointmentType)
				adminRoutes.PUT("/:id", apptTypeHandler.UpdateAppointmentType)
			}
		}

		// CRM lead routes
		leadRoutes := private.Group("/leads")
		{
			leadRoutes.POST("", leadHandler.CreateLead)
			leadRoutes.GET("", leadHandler.GetLeads)
			leadRoutes.PATCH("/:id/status", leadHandler.UpdateLeadStatus)
			leadRoutes.POST("/:id/tasks", leadHandler.CreateLeadTask)
			leadRoutes.PATCH("/tasks/:taskId/complete", leadHandler.CompleteLeadTask)
		}

		// Template and campaign routes
		templateRoutes := private.Group("/templates")
		{
			templateRoutes.POST("", middleware.RoleAuthMiddleware(models.RoleAdmin, models.RoleAgent), campaignHandler.CreateTemplate)
			templateRoutes.GET("", campaignHandler.GetTemplates)
		}
		campaignRoutes := private.Group("/campaigns")
		campaignRoutes.Use(middleware.RoleAuthMiddleware(models.RoleAdmin, models.RoleAgent))
		{
			campaignRoutes.POST("", campaignHandler.CreateCampaign)
			campaignRoutes.GET("", campaignHandler.GetCampaigns)
			campaignRoutes.POST("/:id/dispatch", campaignHandler.DispatchCampaign)
		}

		// Canvas routes (doctor-facing consultation notes)
		canvasRoutes := private.Group("/canvas/:responseId")
		{
			canvasRoutes.GET("", canvasHandler.GetCanvasState)
			canvasRoutes.POST("/ready", canvasHandler.MarkCanvasReady)
			canvasRoutes.PUT("/changes", canvasHandler.RecordCanvasChange)
			canvasRoutes.POST("/flush", canvasHandler.FlushCanvas)
			canvasRoutes.POST("/close", canvasHandler.CloseCanvas)
		}
	}

	// Simple health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "UP"})
	})

	// Prometheus scrape endpoint
	router.GET("/metrics", gin.WrapH(metrics.Handler()))
}
