package routes

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"clinic-app-server/internal/config"
	"clinic-app-server/internal/handlers"
	"clinic-app-server/internal/middleware"
	"clinic-app-server/internal/models"
	"clinic-app-server/internal/services"
)

// SetupRoutes configures the application routes.
func SetupRoutes(router *gin.Engine, db *gorm.DB, cfg *config.Config, storage *services.StorageService) {
	// Initialize handlers
	authHandler := handlers.NewAuthHandler(db, cfg)
	userHandler := handlers.NewUserHandler(db)
	patientHandler := handlers.NewPatientHandler(db)
	appointmentHandler := handlers.NewAppointmentHandler(db)
	proposalHandler := handlers.NewProposalHandler(db)
	objectiveHandler := handlers.NewObjectiveHandler(db)
	requestHandler := handlers.NewRequestHandler(db)
	reportHandler := handlers.NewReportHandler(db, storage)

	// Public routes (no authentication required)
	public := router.Group("/api/v1")
	{
		authRoutes := public.Group("/auth")
		{
			authRoutes.POST("/register", authHandler.Register)
			authRoutes.POST("/login", authHandler.Login)
			authRoutes.POST("/refresh-token", authHandler.RefreshToken)
		}

		// Intake forms are filled in before an account exists
		public.POST("/consultation-requests", requestHandler.CreateConsultationRequest)
		public.POST("/interview-requests", requestHandler.CreateInterviewRequest)
	}

	// Authenticated routes
	private := router.Group("/api/v1")
	private.Use(middleware.AuthMiddleware(cfg))
	{
		authRoutesPrivate := private.Group("/auth")
		{
			authRoutesPrivate.POST("/logout", authHandler.Logout)
			authRoutesPrivate.GET("/profile", authHandler.GetProfile)
			authRoutesPrivate.PUT("/profile", authHandler.UpdateProfile)
		}

		// User management routes
		userRoutes := private.Group("/users")
		{
			// Therapist directory - accessible by all authenticated users for booking
			userRoutes.GET("/therapists", userHandler.GetTherapists)

			// Admin-only routes
			adminRoutes := userRoutes.Group("")
			adminRoutes.Use(middleware.RoleAuthMiddleware(models.RoleAdmin))
			{
				adminRoutes.POST("", userHandler.CreateUser)
				adminRoutes.GET("", userHandler.GetUsers)
				adminRoutes.GET("/:id", userHandler.GetUserByID)
				adminRoutes.PUT("/:id", userHandler.UpdateUser)
				adminRoutes.DELETE("/:id", userHandler.DeleteUser)
			}
		}

		// Patient routes
		patientRoutes := private.Group("/patients")
		{
			patientRoutes.POST("", middleware.RoleAuthMiddleware(models.RoleAdmin), patientHandler.CreatePatient)
			patientRoutes.GET("", patientHandler.GetPatients) // scoped by role in handler
			patientRoutes.GET("/:id", patientHandler.GetPatientByID)
			patientRoutes.PUT("/:id", middleware.RoleAuthMiddleware(models.RoleAdmin, models.RoleTherapist), patientHandler.UpdatePatient)
			patientRoutes.DELETE("/:id", middleware.RoleAuthMiddleware(models.RoleAdmin), patientHandler.DeletePatient)
		}

		// Appointment routes
		appointmentRoutes := private.Group("/appointments")
		{
			appointmentRoutes.POST("", appointmentHandler.CreateAppointment)
			appointmentRoutes.GET("", appointmentHandler.GetAppointmentsForUser) // scoped by role in handler
			appointmentRoutes.GET("/:id", appointmentHandler.GetAppointmentByID)
			appointmentRoutes.GET("/:id/history", appointmentHandler.GetAppointmentHistory)

			// Lifecycle endpoints. The transition table is enforced in the
			// handlers; role gates here only restrict who may try.
			appointmentRoutes.PATCH("/:id/status", appointmentHandler.UpdateAppointmentStatus)
			appointmentRoutes.PATCH("/:id/mark-absent", middleware.RoleAuthMiddleware(models.RoleAdmin), appointmentHandler.MarkAbsent)
			appointmentRoutes.PATCH("/:id/reschedule", middleware.RoleAuthMiddleware(models.RoleAdmin, models.RoleTherapist), appointmentHandler.RescheduleAppointment)
		}

		// Treatment proposal routes
		proposalRoutes := private.Group("/proposals")
		{
			proposalRoutes.POST("", middleware.RoleAuthMiddleware(models.RoleTherapist), proposalHandler.CreateProposal)
			proposalRoutes.GET("", proposalHandler.GetProposals) // scoped by role in handler
			proposalRoutes.GET("/:id", proposalHandler.GetProposalByID)
			proposalRoutes.PATCH("/:id/status", middleware.RoleAuthMiddleware(models.RoleAdmin, models.RoleTherapist), proposalHandler.UpdateProposalStatus)
			proposalRoutes.PATCH("/:id/select-variant", proposalHandler.SelectVariant)
			proposalRoutes.POST("/:id/payments", middleware.RoleAuthMiddleware(models.RoleAdmin), proposalHandler.AddPayment)
		}

		// Objective routes
		objectiveRoutes := private.Group("/objectives")
		{
			objectiveRoutes.POST("", middleware.RoleAuthMiddleware(models.RoleTherapist), objectiveHandler.CreateObjective)
			objectiveRoutes.GET("/patient/:patientId", objectiveHandler.GetObjectivesForPatient)
			objectiveRoutes.PATCH("/:id/status", middleware.RoleAuthMiddleware(models.RoleAdmin, models.RoleTherapist), objectiveHandler.UpdateObjectiveStatus)
		}
		private.POST("/therapist/objective-progress", middleware.RoleAuthMiddleware(models.RoleTherapist), objectiveHandler.RecordProgress)

		// Intake request management (admin)
		requestRoutes := private.Group("", middleware.RoleAuthMiddleware(models.RoleAdmin))
		{
			requestRoutes.GET("/consultation-requests", requestHandler.GetConsultationRequests)
			requestRoutes.PATCH("/consultation-requests/:id/schedule", requestHandler.ScheduleConsultationRequest)
			requestRoutes.PATCH("/consultation-requests/:id/status", requestHandler.UpdateConsultationRequestStatus)

			requestRoutes.GET("/interview-requests", requestHandler.GetInterviewRequests)
			requestRoutes.PATCH("/interview-requests/:id/schedule", requestHandler.ScheduleInterviewRequest)
			requestRoutes.PATCH("/interview-requests/:id/status", requestHandler.UpdateInterviewRequestStatus)
		}

		// Report routes
		reportRoutes := private.Group("/reports")
		{
			reportRoutes.POST("", middleware.RoleAuthMiddleware(models.RoleTherapist), reportHandler.CreateReport)
			reportRoutes.GET("/patient/:patientId", reportHandler.GetReportsForPatient)
			reportRoutes.GET("/:id", reportHandler.GetReportByID)
			reportRoutes.PUT("/:id", middleware.RoleAuthMiddleware(models.RoleAdmin, models.RoleTherapist), reportHandler.UpdateReport)
			reportRoutes.DELETE("/:id", middleware.RoleAuthMiddleware(models.RoleAdmin), reportHandler.DeleteReport)
			reportRoutes.POST("/:id/document", middleware.RoleAuthMiddleware(models.RoleAdmin, models.RoleTherapist), reportHandler.UploadReportDocument)
		}
	}

	// Simple health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "UP"})
	})
}
