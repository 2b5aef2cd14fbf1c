package app

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"booking-scheduler/internal/apperr"
	"booking-scheduler/internal/auth"
	"booking-scheduler/internal/booking"
	"booking-scheduler/internal/logger"
	"booking-scheduler/internal/store"
)

// App holds the handlers' dependencies. Login is nil when Google OAuth is
// not configured.
type App struct {
	Bookings *booking.Service
	Users    store.Users
	Issuer   *auth.TokenIssuer
	Login    *auth.GoogleLogin
}

// Register mounts every route on r.
func (a *App) Register(r *gin.Engine) {
	r.GET("/healthz", a.HealthHandler)

	public := r.Group("/public/:slug")
	{
		public.GET("/details", a.PublicDetailsHandler)
		public.GET("/slots", a.PublicSlotsHandler)
		public.POST("/book", a.PublicBookHandler)
	}

	r.GET("/auth/google/url", a.GoogleAuthURLHandler)
	r.POST("/auth/login/google", a.GoogleLoginHandler)
	r.GET("/oauth2callback", a.GoogleOAuth2CallbackHandler)

	api := r.Group("/api", auth.Middleware(a.Issuer, a.Users))
	{
		eventTypes := api.Group("/event-types")
		{
			eventTypes.POST("", a.CreateEventTypeHandler)
			eventTypes.GET("", a.ListEventTypesHandler)
			eventTypes.GET("/:id", a.GetEventTypeHandler)
			eventTypes.PUT("/:id", a.UpdateEventTypeHandler)
			eventTypes.PATCH("/:id", a.UpdateEventTypeHandler)
			eventTypes.DELETE("/:id", a.DeleteEventTypeHandler)

			eventTypes.POST("/:id/availability", a.SetAvailabilityHandler)
			eventTypes.PUT("/:id/availability", a.SetAvailabilityHandler)
			eventTypes.PATCH("/:id/availability", a.SetAvailabilityHandler)
			eventTypes.GET("/:id/availability", a.ListAvailabilityHandler)

			eventTypes.GET("/:id/bookings", a.ListBookingsHandler)
		}
	}
}

func (a *App) HealthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// respondError writes err as {"error", "code"}. Internal errors are logged
// and replaced with a generic message.
func respondError(c *gin.Context, err error) {
	status := apperr.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", "path", c.FullPath(), "error", err)
	}
	_ = c.Error(err)
	c.JSON(status, gin.H{"error": apperr.Public(err), "code": apperr.Code(err)})
}

func badRequest(c *gin.Context, msg string) {
	respondError(c, apperr.Validation("%s", msg))
}
