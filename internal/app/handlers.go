package app

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"booking-scheduler/internal/auth"
	"booking-scheduler/internal/availability"
	"booking-scheduler/internal/booking"
	"booking-scheduler/internal/models"
)

// ownerAndID reads the session user and the :id path parameter. It writes
// the error response itself and reports false when either is missing.
func ownerAndID(c *gin.Context) (userID, id int64, ok bool) {
	userID, ok = auth.UserID(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization", "code": "unauthorized"})
		return 0, 0, false
	}
	if c.Param("id") == "" {
		return userID, 0, true
	}
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		badRequest(c, "invalid id")
		return 0, 0, false
	}
	return userID, id, true
}

// POST /api/event-types
func (a *App) CreateEventTypeHandler(c *gin.Context) {
	userID, _, ok := ownerAndID(c)
	if !ok {
		return
	}
	var in booking.EventTypeInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	et, err := a.Bookings.CreateEventType(c.Request.Context(), userID, in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, et)
}

// GET /api/event-types
func (a *App) ListEventTypesHandler(c *gin.Context) {
	userID, _, ok := ownerAndID(c)
	if !ok {
		return
	}
	list, err := a.Bookings.ListEventTypes(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// GET /api/event-types/:id
func (a *App) GetEventTypeHandler(c *gin.Context) {
	userID, id, ok := ownerAndID(c)
	if !ok {
		return
	}
	et, err := a.Bookings.OwnedEventType(c.Request.Context(), userID, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, et)
}

// PUT /api/event-types/:id
// Omitted fields keep their current value.
func (a *App) UpdateEventTypeHandler(c *gin.Context) {
	userID, id, ok := ownerAndID(c)
	if !ok {
		return
	}
	var in booking.EventTypeInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	et, err := a.Bookings.UpdateEventType(c.Request.Context(), userID, id, in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, et)
}

// DELETE /api/event-types/:id
func (a *App) DeleteEventTypeHandler(c *gin.Context) {
	userID, id, ok := ownerAndID(c)
	if !ok {
		return
	}
	if err := a.Bookings.DeleteEventType(c.Request.Context(), userID, id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type ruleReq struct {
	Weekday   int    `json:"weekday"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

// POST|PUT /api/event-types/:id/availability
// Replaces the whole weekly schedule with the posted list.
func (a *App) SetAvailabilityHandler(c *gin.Context) {
	userID, id, ok := ownerAndID(c)
	if !ok {
		return
	}
	var payload []ruleReq
	if err := c.ShouldBindJSON(&payload); err != nil {
		badRequest(c, "expected a list of availability rules")
		return
	}

	rules := make([]models.AvailabilityRule, 0, len(payload))
	for _, r := range payload {
		rules = append(rules, models.AvailabilityRule{Weekday: r.Weekday, StartTime: r.StartTime, EndTime: r.EndTime})
	}
	saved, err := a.Bookings.ReplaceRules(c.Request.Context(), userID, id, rules)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, saved)
}

// GET /api/event-types/:id/availability
func (a *App) ListAvailabilityHandler(c *gin.Context) {
	userID, id, ok := ownerAndID(c)
	if !ok {
		return
	}
	rules, err := a.Bookings.ListRules(c.Request.Context(), userID, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rules)
}

// GET /api/event-types/:id/bookings?from=ISO&to=ISO
func (a *App) ListBookingsHandler(c *gin.Context) {
	userID, id, ok := ownerAndID(c)
	if !ok {
		return
	}

	loc := a.Bookings.Location()
	var from, to time.Time
	if s := c.Query("from"); s != "" {
		t, err := availability.ParseTimestamp(s, loc)
		if err != nil {
			badRequest(c, "invalid from")
			return
		}
		from = t
	}
	if s := c.Query("to"); s != "" {
		t, err := availability.ParseTimestamp(s, loc)
		if err != nil {
			badRequest(c, "invalid to")
			return
		}
		to = t
	}

	bookings, err := a.Bookings.ListBookings(c.Request.Context(), userID, id, from, to)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, bookings)
}
