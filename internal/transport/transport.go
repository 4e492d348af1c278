package transport

import (
	"github.com/ds124wfegd/confhub/internal/transport/middleware"
	"github.com/gin-gonic/gin"
)

func InitRoutes(
	eventHandler *EventHandler,
	ticketHandler *TicketHandler,
	registrationHandler *RegistrationHandler,
	sessionHandler *SessionHandler,
	userHandler *UserHandler,
) *gin.Engine {

	router := gin.New()

	// Middleware
	router.Use(gin.Recovery())
	router.Use(middleware.CORS())
	router.Use(middleware.Logger())
	router.Use(middleware.Timeout(30))

	// API routes
	api := router.Group("/api/v1")
	{
		// Event routes
		events := api.Group("/events")
		{
			events.POST("", eventHandler.CreateEvent)
			events.GET("", eventHandler.GetAllEvents)
			events.GET("/:id", eventHandler.GetEvent)
			events.PUT("/:id", eventHandler.UpdateEvent)
			events.POST("/:id/publish", eventHandler.PublishEvent)
			events.DELETE("/:id", eventHandler.DeleteEvent)

			events.GET("/:id/tickets", ticketHandler.GetEventTickets)
			events.GET("/:id/sessions", sessionHandler.GetEventSessions)
			events.GET("/:id/registrations", registrationHandler.GetEventRegistrations)
		}

		// Ticket routes
		tickets := api.Group("/tickets")
		{
			tickets.POST("", ticketHandler.CreateTicket)
			tickets.GET("/:id", ticketHandler.GetTicket)
			tickets.PUT("/:id", ticketHandler.UpdateTicket)
			tickets.DELETE("/:id", ticketHandler.DeleteTicket)
			tickets.GET("/:id/availability", ticketHandler.GetAvailability)
		}

		// Registration routes
		registrations := api.Group("/registrations")
		{
			registrations.POST("", registrationHandler.Register)
			registrations.GET("/:id", registrationHandler.GetRegistration)
			registrations.DELETE("/:id", registrationHandler.CancelRegistration)
			registrations.POST("/:id/payment", registrationHandler.ConfirmPayment)
			registrations.POST("/:id/checkin", registrationHandler.Checkin)
		}
		api.POST("/checkin", registrationHandler.CheckinByQR)

		// Session routes
		sessions := api.Group("/sessions")
		{
			sessions.POST("", sessionHandler.CreateSession)
			sessions.GET("/:id", sessionHandler.GetSession)
			sessions.PUT("/:id", sessionHandler.UpdateSession)
			sessions.DELETE("/:id", sessionHandler.DeleteSession)
			sessions.POST("/:id/join", sessionHandler.JoinSession)
			sessions.POST("/:id/leave", sessionHandler.LeaveSession)
		}
		api.POST("/schedule/conflicts", sessionHandler.CheckConflicts)

		// User routes
		users := api.Group("/users")
		{
			users.POST("/register", userHandler.RegisterUser)
			users.GET("", userHandler.GetAllUsers)
			users.GET("/:id", userHandler.GetUser)
			users.GET("/:id/registrations", registrationHandler.GetUserRegistrations)
		}
	}

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status": "ok",
		})
	})

	return router
}
